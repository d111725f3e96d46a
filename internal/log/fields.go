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
	FieldUserAgent  = "user_agent"
	FieldSuccess    = "success"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldSender     = "sender"
	FieldMediaCount = "media_count"
	FieldMediaType  = "media_type"
	FieldRow        = "row"
	FieldCategory   = "category"
	FieldAmount     = "amount"
	FieldBackend    = "backend"
)

// Components
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentWebhook   = "webhook"
	ComponentPipeline  = "pipeline"
	ComponentMedia     = "media"
	ComponentExtract   = "extract"
	ComponentLedger    = "ledger"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentArchive   = "archive"
	ComponentRateLimit = "rate_limit"
	ComponentTrace     = "trace"
)

// Operations
const (
	OpFetch    = "fetch"
	OpExtract  = "extract"
	OpAppend   = "append"
	OpSummary  = "summary"
	OpPublish  = "publish"
	OpMirror   = "mirror"
	OpArchive  = "archive"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)

// LogFields builds attribute lists for slog.
type LogFields map[string]any

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

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

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

// WithRow adds the fields describing one appended ledger row.
func (f LogFields) WithRow(row int, category, amount string) LogFields {
	f[FieldRow] = row
	f[FieldCategory] = category
	f[FieldAmount] = amount
	return f
}

func (f LogFields) WithHTTPRequest(method, path, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	if userAgent != "" {
		f[FieldUserAgent] = userAgent
	}
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = statusCode < 400
	return f
}

// ToSlice converts the fields to slog key/value arguments.
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
