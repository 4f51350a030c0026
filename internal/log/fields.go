package log

// Common field names for structured logging.
const (
	FieldComponent = "component"
	FieldOwner     = "owner"
	FieldCategory  = "category"
	FieldTemplate  = "template_id"
	FieldAmount    = "amount"
	FieldDate      = "date"
	FieldPath      = "path"
	FieldBackend   = "backend"
	FieldError     = "error"
	FieldOperation = "operation"
)

// Standard component names.
const (
	ComponentApp        = "app"
	ComponentStorage    = "storage"
	ComponentCrypt      = "crypt"
	ComponentRecurrence = "recurrence"
	ComponentReports    = "reports"
	ComponentAuth       = "auth"
	ComponentSession    = "session"
	ComponentBackend    = "backend"
)
