package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs within a context.
// Handlers and services enrich the context once, and every slog call made with that
// context carries the fields without repeating them.
type LogFields struct {
	Provider      *string // Webhook provider (e.g. "asaas", "stripe")
	ClaimKey      *string // Idempotency claim key derived for the event
	QueuedEventID *int64  // ID of the queue record written for a fresh claim
	TokenID       *string // Token ID from the caller's credential (never the secret)
	RequestID     *string // Per-request correlation ID
	Component     string  // Component name, e.g. "webhook.ingest"
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking precedence.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context.
// Returns empty LogFields if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, new LogFields) LogFields {
	result := existing

	if new.Provider != nil {
		result.Provider = new.Provider
	}
	if new.ClaimKey != nil {
		result.ClaimKey = new.ClaimKey
	}
	if new.QueuedEventID != nil {
		result.QueuedEventID = new.QueuedEventID
	}
	if new.TokenID != nil {
		result.TokenID = new.TokenID
	}
	if new.RequestID != nil {
		result.RequestID = new.RequestID
	}
	if new.Component != "" {
		result.Component = new.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value.
// Useful for setting LogFields inline: logger.WithLogFields(ctx, logger.LogFields{Provider: logger.Ptr("asaas")})
func Ptr[T any](v T) *T {
	return &v
}

// Truncate truncates a string to maxLen characters, appending "..." if truncated.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
