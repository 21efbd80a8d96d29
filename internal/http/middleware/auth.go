package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/moraeszete/webhook-payments-integrations/common/logger"
	"github.com/moraeszete/webhook-payments-integrations/internal/http/dto"
	"github.com/moraeszete/webhook-payments-integrations/internal/metrics"
	"github.com/moraeszete/webhook-payments-integrations/internal/provider"
	"github.com/moraeszete/webhook-payments-integrations/internal/service"
)

const (
	webhookBodyKey  = "webhook_body"
	authProviderKey = "webhook_auth_provider"
	tokenIDKey      = "webhook_token_id"

	envelopeField = "body"
)

type AuthGateConfig struct {
	Metrics      *metrics.Metrics
	SkipPaths    []string
	MaxBodyBytes int64
}

// AuthGate authenticates every request except SkipPaths, then normalizes the
// JSON body (unwrapping a {"body": ...} envelope) and stores it for handlers.
// Rejected requests never reach ingestion.
func AuthGate(auth service.TokenAuthenticator, providers *provider.Registry, cfg AuthGateConfig) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		ctx := c.Request.Context()

		spec, token, ok := providers.MatchCredential(c.Request.Header)
		if !ok {
			slog.InfoContext(ctx, "webhook rejected: no credential header", "path", c.Request.URL.Path)
			cfg.Metrics.AuthFailure("missing")
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Error: true, Message: dto.MessageTokenMissing})
			return
		}

		result, err := auth.Validate(ctx, token)
		if err != nil {
			slog.ErrorContext(ctx, "token validation failed", "error", err, "provider", spec.ID)
			cfg.Metrics.AuthFailure(string(service.ReasonInternal))
			c.AbortWithStatusJSON(http.StatusInternalServerError, dto.ErrorResponse{Error: true, Message: dto.MessageInternalError})
			return
		}
		if !result.OK {
			slog.InfoContext(ctx, "webhook rejected: invalid credential", "reason", result.Reason, "provider", spec.ID)
			cfg.Metrics.AuthFailure(string(result.Reason))
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Error: true, Message: dto.MessageTokenInvalid})
			return
		}

		ctx = logger.WithLogFields(ctx, logger.LogFields{TokenID: logger.Ptr(result.TokenID)})
		c.Request = c.Request.WithContext(ctx)
		c.Set(authProviderKey, spec.ID)
		c.Set(tokenIDKey, result.TokenID)

		body, status, err := readBody(c.Request, cfg.MaxBodyBytes)
		if err != nil {
			slog.WarnContext(ctx, "webhook body rejected", "error", err)
			msg := dto.MessageInvalidPayload
			if status == http.StatusRequestEntityTooLarge {
				msg = dto.MessagePayloadTooLarge
			}
			c.AbortWithStatusJSON(status, dto.ErrorResponse{Error: true, Message: msg})
			return
		}
		c.Set(webhookBodyKey, UnwrapEnvelope(body))

		c.Next()
	}
}

func readBody(r *http.Request, limit int64) (json.RawMessage, int, error) {
	reader := io.Reader(r.Body)
	if limit > 0 {
		reader = io.LimitReader(r.Body, limit+1)
	}
	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, http.StatusBadRequest, err
	}
	if limit > 0 && int64(len(raw)) > limit {
		return nil, http.StatusRequestEntityTooLarge, errors.New("request body exceeds limit")
	}
	r.Body = io.NopCloser(bytes.NewReader(raw))

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return json.RawMessage(`{}`), 0, nil
	}
	if !json.Valid(raw) {
		return nil, http.StatusBadRequest, errors.New("request body is not valid JSON")
	}
	return json.RawMessage(raw), 0, nil
}

// UnwrapEnvelope returns the payload nested under "body" when a gateway wrapped
// the provider's JSON, either as an object or as a JSON-encoded string. Any
// other shape is returned unchanged.
func UnwrapEnvelope(body json.RawMessage) json.RawMessage {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return body
	}
	inner, ok := envelope[envelopeField]
	if !ok {
		return body
	}

	inner = bytes.TrimSpace(inner)
	if len(inner) > 0 && inner[0] == '{' {
		return inner
	}

	var encoded string
	if err := json.Unmarshal(inner, &encoded); err == nil {
		decoded := bytes.TrimSpace([]byte(encoded))
		if len(decoded) > 0 && decoded[0] == '{' && json.Valid(decoded) {
			return json.RawMessage(decoded)
		}
	}
	return body
}

// WebhookBody returns the normalized body stored by AuthGate.
func WebhookBody(c *gin.Context) (json.RawMessage, bool) {
	v, ok := c.Get(webhookBodyKey)
	if !ok {
		return nil, false
	}
	body, ok := v.(json.RawMessage)
	return body, ok
}

// AuthTokenID returns the id half of the credential that authenticated the request.
func AuthTokenID(c *gin.Context) string {
	return c.GetString(tokenIDKey)
}
