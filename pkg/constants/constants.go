package constants

type ContextKey string

const (
	TxKey             ContextKey = "tx"
	PoolKey           ContextKey = "pool"
	LoggerKey         ContextKey = "logger"
	OrganizationIDKey ContextKey = "organization_id"
	RequestIDKey      ContextKey = "request_id"
)
