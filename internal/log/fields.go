package log

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
	FieldUserID     = "user_id"
	FieldJob        = "job"
	FieldBudgetID   = "budget_id"
)

// Component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentStorage   = "storage"
	ComponentScheduler = "scheduler"
	ComponentMail      = "mail"
	ComponentAMQP      = "amqp"
	ComponentTelegram  = "telegram"
	ComponentAuth      = "auth"
)
