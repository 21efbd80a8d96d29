package dto

// Messages returned to providers. Providers retry on any non-2xx, so created and
// duplicate deliveries both answer 200 and differ only in message.
const (
	MessageEventCreated      = "Event created!"
	MessageEventReceived     = "Event received!"
	MessageEventRejected     = "Error on receiving event"
	MessageEventFailed       = "Error processing event"
	MessageInvalidPayload    = "Invalid JSON payload"
	MessagePayloadTooLarge   = "Payload too large"
	MessageTokenMissing      = "access token not provided"
	MessageTokenInvalid      = "invalid access token"
	MessageRouteNotFound     = "Route not found"
	MessageInternalError     = "Internal server error"
	MessageServerRunning     = "Webhook server is running"
	MessageDependencyFailure = "Dependency unavailable"
)

type WebhookResponse struct {
	Message string `json:"message"`
	EventID string `json:"eventId,omitempty"`
	Error   bool   `json:"error"`
}

type ErrorResponse struct {
	Message string `json:"message"`
	Path    string `json:"path,omitempty"`
	Error   bool   `json:"error"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
}

type ReadyResponse struct {
	Checks map[string]string `json:"checks"`
	Status string            `json:"status"`
}
