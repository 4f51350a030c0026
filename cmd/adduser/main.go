// Command adduser creates a user account from the command line, without
// going through the interactive app. Useful for bootstrapping a fresh
// data directory.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/term"

	"github.com/kenay85/budget/internal/backend"
	"github.com/kenay85/budget/internal/config"
	"github.com/kenay85/budget/internal/log"
	"github.com/kenay85/budget/internal/services"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	_ = godotenv.Load()

	fs := flag.NewFlagSet("adduser", flag.ContinueOnError)
	fs.SetOutput(stderr)
	username := fs.String("user", "", "Username")
	passwordFlag := fs.String("password", "", "Password (optional, will prompt if omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *username == "" {
		fmt.Fprintln(stdout, "Usage: adduser -user <username> [-password <password>]")
		fs.PrintDefaults()
		return fmt.Errorf("missing required flag: user")
	}

	password := *passwordFlag
	if password == "" {
		fmt.Fprint(stdout, "Password: ")
		var err error
		password, err = readPassword(stdin)
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		fmt.Fprintln(stdout)
	}
	if strings.TrimSpace(password) == "" {
		return fmt.Errorf("password cannot be empty")
	}

	logger := log.New(log.Config{
		Level:     slog.LevelWarn,
		Component: log.ComponentApp,
		Handler:   slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn}),
	})

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}
	stores, err := backend.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if stores.Cleanup != nil {
			stores.Cleanup()
		}
	}()

	auth := services.NewAuth(stores.Accounts, cfg.BcryptCost, logger)
	if err := auth.Register(context.Background(), *username, password); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "User %s created successfully\n", *username)
	return nil
}

func readPassword(stdin io.Reader) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	// Fallback for pipes and tests.
	scanner := bufio.NewScanner(stdin)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
