package log

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldOwner      = "owner_id"
	FieldMonthYear  = "month_year"
	FieldCategory   = "category"
	FieldAmount     = "amount"
	FieldExpenseID  = "expense_id"
	FieldBudgetID   = "budget_id"
	FieldAlertKind  = "alert_kind"
	FieldSpent      = "spent"
	FieldPercentage = "percentage"
	FieldChannel    = "channel"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentExpense   = "expense"
	ComponentBudget    = "budget"
	ComponentAlert     = "alert"
	ComponentHistory   = "history"
	ComponentNotify    = "notify"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentTelegram  = "telegram"
	ComponentSheets    = "sheets"
	ComponentCache     = "cache"
	ComponentRateLimit = "rate_limit"
	ComponentBackend   = "backend"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpList     = "list"
	OpEvaluate = "evaluate"
	OpDispatch = "dispatch"
	OpPersist  = "persist"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeDatabase      = "database_error"
	ErrorTypeNetwork       = "network_error"
	ErrorTypeTimeout       = "timeout_error"
	ErrorTypeNotFound      = "not_found_error"
	ErrorTypeConflict      = "conflict_error"
	ErrorTypeInternal      = "internal_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithOwner scopes the record to a user and month.
func (f LogFields) WithOwner(ownerID, monthYear string) LogFields {
	f[FieldOwner] = ownerID
	if monthYear != "" {
		f[FieldMonthYear] = monthYear
	}
	return f
}

// WithAlert adds the fields describing a threshold crossing.
func (f LogFields) WithAlert(kind, category string, spent, percentage decimal.Decimal) LogFields {
	f[FieldAlertKind] = kind
	f[FieldCategory] = category
	f[FieldSpent] = spent.String()
	f[FieldPercentage] = percentage.StringFixed(1)
	return f
}

// ToSlice converts LogFields to a slice for slog, ordered by key
func (f LogFields) ToSlice() []any {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	slice := make([]any, 0, len(f)*2)
	for _, k := range keys {
		slice = append(slice, k, f[k])
	}
	return slice
}
