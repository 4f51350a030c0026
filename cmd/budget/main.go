package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/term"

	"github.com/kenay85/budget/internal/backend"
	"github.com/kenay85/budget/internal/config"
	"github.com/kenay85/budget/internal/core"
	"github.com/kenay85/budget/internal/log"
	"github.com/kenay85/budget/internal/services"
)

func main() {
	// .env is optional, for local development only.
	_ = godotenv.Load()

	logger := log.New(log.Config{
		Level:     slog.LevelWarn,
		Component: log.ComponentApp,
		Handler:   slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}),
	})
	log.SetDefault(logger)

	if err := run(logger); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(logger *log.Logger) error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	stores, err := backend.Open(cfg, logger)
	if err != nil {
		return err
	}

	ctx := context.Background()
	auth := services.NewAuth(stores.Accounts, cfg.BcryptCost, logger)
	stdin := bufio.NewScanner(os.Stdin)

	user, err := loginLoop(ctx, auth, stdin)
	if err != nil {
		return err
	}

	session, err := services.OpenSession(ctx, stores, user, core.Today(), logger)
	if err != nil {
		return err
	}

	fmt.Printf("Logged in as %s. Type 'help' for commands.\n", user)
	repl(ctx, session, stdin)
	return session.Close(ctx)
}

func loginLoop(ctx context.Context, auth *services.Auth, stdin *bufio.Scanner) (string, error) {
	for {
		fmt.Print("login or register? [l/r] ")
		if !stdin.Scan() {
			return "", errors.New("no input")
		}
		choice := strings.TrimSpace(stdin.Text())

		fmt.Print("username: ")
		if !stdin.Scan() {
			return "", errors.New("no input")
		}
		username := strings.TrimSpace(stdin.Text())
		password, err := readPassword(stdin)
		if err != nil {
			return "", err
		}

		switch choice {
		case "r":
			if err := auth.Register(ctx, username, password); err != nil {
				fmt.Printf("registration failed: %v\n", err)
				continue
			}
			fmt.Println("account created, please log in")
		case "l":
			user, err := auth.Login(ctx, username, password)
			if err != nil {
				// One message for both unknown user and wrong password:
				// the prompt must not confirm which usernames exist.
				if errors.Is(err, services.ErrUnknownAccount) || errors.Is(err, services.ErrWrongPassword) {
					fmt.Println("invalid credentials")
					continue
				}
				return "", err
			}
			return user, nil
		}
	}
}

func readPassword(stdin *bufio.Scanner) (string, error) {
	fmt.Print("password: ")
	if term.IsTerminal(int(os.Stdin.Fd())) {
		b, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}
	if !stdin.Scan() {
		return "", errors.New("no input")
	}
	return stdin.Text(), nil
}

func repl(ctx context.Context, session *services.Session, stdin *bufio.Scanner) {
	for {
		fmt.Print("> ")
		if !stdin.Scan() {
			return
		}
		fields := strings.Fields(stdin.Text())
		if len(fields) == 0 {
			continue
		}
		cmd, args := fields[0], fields[1:]

		var err error
		switch cmd {
		case "help":
			printHelp()
		case "list":
			err = listTransactions(ctx, session)
		case "add":
			err = addTransaction(ctx, session, args)
		case "rm":
			err = removeTransaction(ctx, session, args)
		case "edit":
			err = editTransaction(ctx, session, args)
		case "limit":
			err = setLimit(ctx, session, args)
		case "budget":
			err = printBudgetStatus(ctx, session)
		case "totals":
			err = printTotals(ctx, session)
		case "monthly":
			err = printMonthly(ctx, session)
		case "rec":
			err = recurring(ctx, session, args)
		case "quit", "exit":
			return
		default:
			fmt.Printf("unknown command %q, type 'help'\n", cmd)
		}
		if err != nil {
			fmt.Printf("error: %v\n", err)
		}
	}
}

func printHelp() {
	fmt.Print(`commands:
  list                                             show all transactions
  add <date> <Income|Expense> <cat> <amount> [desc] append a transaction
  rm <date> <Income|Expense> <cat> <amount> [desc]  remove first matching transaction
  edit <old fields> :: <new fields>                replace first matching transaction
  limit <category> <amount>                        set a budget limit
  budget                                           budget status per category
  totals                                           income/expense totals
  monthly                                          monthly net balance
  rec list                                         list recurring templates
  rec add <next_due> <days> <Income|Expense> <cat> <amount> [desc]
  rec edit <id> <next_due> <days> <Income|Expense> <cat> <amount> [desc]
  rec rm <id>                                      delete a recurring template
  quit                                             save and exit
`)
}

func parseTransaction(owner string, args []string) (core.Transaction, error) {
	if len(args) < 4 {
		return core.Transaction{}, errors.New("want: <date> <Income|Expense> <category> <amount> [description]")
	}
	date, err := core.ParseDate(args[0])
	if err != nil {
		return core.Transaction{}, err
	}
	kind, err := core.ParseKind(args[1])
	if err != nil {
		return core.Transaction{}, err
	}
	amount, err := core.ParseAmount(args[3])
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		Owner:       owner,
		Date:        date,
		Kind:        kind,
		Category:    args[2],
		Description: strings.Join(args[4:], " "),
		Amount:      amount,
	}, nil
}

func listTransactions(ctx context.Context, session *services.Session) error {
	entries, err := session.Transactions(ctx)
	if err != nil {
		return err
	}
	for _, tx := range entries {
		if tx.Owner != session.User {
			continue
		}
		fmt.Printf("%s  %-7s  %-15s  %10s  %s\n",
			tx.Date, tx.Kind, tx.Category, core.FormatAmount(tx.Amount), tx.Description)
	}
	return nil
}

func addTransaction(ctx context.Context, session *services.Session, args []string) error {
	tx, err := parseTransaction(session.User, args)
	if err != nil {
		return err
	}
	breached, err := session.AddTransaction(ctx, tx)
	if err != nil {
		return err
	}
	if breached {
		fmt.Printf("warning: category %q is over its budget limit\n", tx.Category)
	}
	return nil
}

func removeTransaction(ctx context.Context, session *services.Session, args []string) error {
	tx, err := parseTransaction(session.User, args)
	if err != nil {
		return err
	}
	removed, err := session.RemoveTransaction(ctx, tx)
	if err != nil {
		return err
	}
	if !removed {
		fmt.Println("no matching transaction")
	}
	return nil
}

func editTransaction(ctx context.Context, session *services.Session, args []string) error {
	sep := -1
	for i, a := range args {
		if a == "::" {
			sep = i
			break
		}
	}
	if sep < 0 {
		return errors.New("want: edit <date> <Income|Expense> <category> <amount> [desc] :: <date> <Income|Expense> <category> <amount> [desc]")
	}
	old, err := parseTransaction(session.User, args[:sep])
	if err != nil {
		return err
	}
	updated, err := parseTransaction(session.User, args[sep+1:])
	if err != nil {
		return err
	}
	changed, err := session.UpdateTransaction(ctx, old, updated)
	if err != nil {
		return err
	}
	if !changed {
		fmt.Println("no matching transaction")
	}
	return nil
}

func setLimit(ctx context.Context, session *services.Session, args []string) error {
	if len(args) != 2 {
		return errors.New("want: limit <category> <amount>")
	}
	limit, err := core.ParseAmount(args[1])
	if err != nil {
		return err
	}
	return session.SetBudgetLimit(ctx, args[0], limit)
}

func printBudgetStatus(ctx context.Context, session *services.Session) error {
	rows, err := session.Reports.BudgetStatus(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%-15s %10s %10s %10s\n", "category", "limit", "spent", "left")
	for _, row := range rows {
		mark := ""
		if row.Over() {
			mark = "  OVER"
		}
		fmt.Printf("%-15s %10s %10s %10s%s\n", row.Category,
			core.FormatAmount(row.Limit), core.FormatAmount(row.Spent), core.FormatAmount(row.Remainder), mark)
	}
	return nil
}

func printTotals(ctx context.Context, session *services.Session) error {
	t, err := session.Reports.TotalsByKind(ctx, session.User)
	if err != nil {
		return err
	}
	fmt.Printf("income:  %s\nexpense: %s\n", core.FormatAmount(t.Income), core.FormatAmount(t.Expense))
	return nil
}

func printMonthly(ctx context.Context, session *services.Session) error {
	months, err := session.Reports.MonthlyNetBalance(ctx, session.User)
	if err != nil {
		return err
	}
	for _, m := range months {
		fmt.Printf("%s  %10s\n", m.Month, core.FormatAmount(m.Net))
	}
	return nil
}

func recurring(ctx context.Context, session *services.Session, args []string) error {
	if len(args) == 0 {
		return errors.New("want: rec list | rec add ... | rec edit <id> ... | rec rm <id>")
	}
	switch args[0] {
	case "list":
		templates, err := session.RecurringTemplates(ctx)
		if err != nil {
			return err
		}
		for _, tpl := range templates {
			if tpl.Owner != session.User {
				continue
			}
			fmt.Printf("%-14s next %s every %dd  %-7s %-15s %10s  %s\n",
				tpl.ID, tpl.NextDue, tpl.IntervalDays, tpl.Kind, tpl.Category,
				core.FormatAmount(tpl.Amount), tpl.Description)
		}
		return nil
	case "add":
		tpl, err := parseTemplate(args[1:])
		if err != nil {
			return err
		}
		id, err := session.CreateRecurring(ctx, tpl)
		if err != nil {
			return err
		}
		fmt.Printf("created %s\n", id)
		return nil
	case "edit":
		if len(args) < 2 {
			return errors.New("want: rec edit <id> <next_due> <days> <Income|Expense> <category> <amount> [description]")
		}
		tpl, err := parseTemplate(args[2:])
		if err != nil {
			return err
		}
		tpl.Owner = session.User
		return session.UpdateRecurring(ctx, args[1], tpl)
	case "rm":
		if len(args) != 2 {
			return errors.New("want: rec rm <id>")
		}
		return session.DeleteRecurring(ctx, args[1])
	default:
		return fmt.Errorf("unknown rec subcommand %q", args[0])
	}
}

func parseTemplate(args []string) (core.RecurringTemplate, error) {
	if len(args) < 5 {
		return core.RecurringTemplate{}, errors.New("want: <next_due> <days> <Income|Expense> <category> <amount> [description]")
	}
	nextDue, err := core.ParseDate(args[0])
	if err != nil {
		return core.RecurringTemplate{}, err
	}
	days, err := strconv.Atoi(args[1])
	if err != nil {
		return core.RecurringTemplate{}, fmt.Errorf("invalid interval %q: %w", args[1], err)
	}
	kind, err := core.ParseKind(args[2])
	if err != nil {
		return core.RecurringTemplate{}, err
	}
	amount, err := core.ParseAmount(args[4])
	if err != nil {
		return core.RecurringTemplate{}, err
	}
	return core.RecurringTemplate{
		NextDue:      nextDue,
		IntervalDays: days,
		Kind:         kind,
		Category:     args[3],
		Amount:       amount,
		Description:  strings.Join(args[5:], " "),
	}, nil
}
