package webhook

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/moraeszete/webhook-payments-integrations/common/logger"
	"github.com/moraeszete/webhook-payments-integrations/internal/claim"
	"github.com/moraeszete/webhook-payments-integrations/internal/http/dto"
	"github.com/moraeszete/webhook-payments-integrations/internal/http/middleware"
	"github.com/moraeszete/webhook-payments-integrations/internal/provider"
	"github.com/moraeszete/webhook-payments-integrations/internal/service"
)

const maxLoggedPayload = 512

// ProviderWebhookHandler ingests deliveries for one provider. The body has
// already been authenticated and normalized by middleware.AuthGate.
type ProviderWebhookHandler struct {
	eventIngest service.EventIngestService
	spec        provider.Spec
}

func NewProviderWebhookHandler(spec provider.Spec, eventIngest service.EventIngestService) *ProviderWebhookHandler {
	return &ProviderWebhookHandler{
		eventIngest: eventIngest,
		spec:        spec,
	}
}

func (h *ProviderWebhookHandler) HandleEvent(c *gin.Context) {
	ctx := c.Request.Context()

	body, ok := middleware.WebhookBody(c)
	if !ok {
		c.JSON(http.StatusBadRequest, dto.WebhookResponse{Error: true, Message: dto.MessageInvalidPayload})
		return
	}

	identity, err := h.spec.Extract(body)
	if err != nil {
		slog.WarnContext(ctx, "webhook payload rejected",
			"error", err,
			"provider", h.spec.ID,
			"payload", logger.Truncate(string(body), maxLoggedPayload),
		)
		c.JSON(http.StatusBadRequest, dto.WebhookResponse{Error: true, Message: dto.MessageEventRejected})
		return
	}
	identity.Route = c.Request.URL.Path

	result, err := h.eventIngest.Ingest(ctx, service.IngestParams{
		Provider: h.spec.ID,
		Queue:    h.spec.Queue,
		Identity: identity,
		Payload:  body,
	})
	if err != nil {
		if errors.Is(err, claim.ErrEmptyIdentity) {
			slog.WarnContext(ctx, "webhook without identity rejected", "provider", h.spec.ID)
			c.JSON(http.StatusBadRequest, dto.WebhookResponse{Error: true, Message: dto.MessageEventRejected})
			return
		}
		slog.ErrorContext(ctx, "failed to ingest webhook event",
			"error", err,
			"provider", h.spec.ID,
			"event_type", identity.EventType,
			"event_id", identity.EventID,
		)
		c.JSON(http.StatusInternalServerError, dto.WebhookResponse{Error: true, Message: dto.MessageEventFailed})
		return
	}

	if result.Duplicated {
		c.JSON(http.StatusOK, dto.WebhookResponse{Message: dto.MessageEventReceived})
		return
	}

	c.JSON(http.StatusOK, dto.WebhookResponse{
		Message: dto.MessageEventCreated,
		EventID: strconv.FormatInt(result.QueuedEvent.ID, 10),
	})
}
