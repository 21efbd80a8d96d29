package provider

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v82"

	"github.com/moraeszete/webhook-payments-integrations/internal/model"
)

// FieldExtractor reads the event type and id from top-level payload fields,
// taking the first non-empty candidate of each list. Non-string scalars
// (numeric ids) are used verbatim.
func FieldExtractor(eventFields, idFields []string) IdentityExtractor {
	return func(payload json.RawMessage) (model.EventIdentity, error) {
		var body map[string]json.RawMessage
		if err := json.Unmarshal(payload, &body); err != nil {
			return model.EventIdentity{}, fmt.Errorf("decode payload: %w", err)
		}
		return model.EventIdentity{
			EventType: firstScalar(body, eventFields),
			EventID:   firstScalar(body, idFields),
		}, nil
	}
}

// StripeExtractor decodes the payload as a Stripe event envelope.
func StripeExtractor(payload json.RawMessage) (model.EventIdentity, error) {
	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return model.EventIdentity{}, fmt.Errorf("decode stripe event: %w", err)
	}
	return model.EventIdentity{
		EventType: string(event.Type),
		EventID:   event.ID,
	}, nil
}

func firstScalar(body map[string]json.RawMessage, fields []string) string {
	for _, f := range fields {
		raw, ok := body[f]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
			continue
		}
		trimmed := strings.TrimSpace(string(raw))
		if trimmed == "" || trimmed == "null" || strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
			continue
		}
		return trimmed
	}
	return ""
}
