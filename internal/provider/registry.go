package provider

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/moraeszete/webhook-payments-integrations/internal/model"
)

// IdentityExtractor pulls the event type and event id out of a provider payload.
// The route component of the identity is filled in by the caller.
type IdentityExtractor func(payload json.RawMessage) (model.EventIdentity, error)

// Spec describes one provider. Adding a provider means adding a Spec, not new branching.
type Spec struct {
	Extract IdentityExtractor
	ID      model.Provider
	Route   string // e.g. "/asaas"
	Header  string // credential header the provider sends
	Queue   string // destination queue name
}

type Registry struct {
	specs   []Spec
	byRoute map[string]Spec
}

func NewRegistry(specs ...Spec) (*Registry, error) {
	r := &Registry{byRoute: make(map[string]Spec, len(specs))}
	headers := make(map[string]model.Provider, len(specs))

	for _, s := range specs {
		if s.ID == "" || s.Route == "" || s.Header == "" || s.Queue == "" || s.Extract == nil {
			return nil, fmt.Errorf("provider %q: id, route, header, queue and extractor are required", s.ID)
		}
		if !strings.HasPrefix(s.Route, "/") {
			return nil, fmt.Errorf("provider %q: route must start with /", s.ID)
		}
		if _, dup := r.byRoute[s.Route]; dup {
			return nil, fmt.Errorf("provider %q: route %s already registered", s.ID, s.Route)
		}
		canonical := http.CanonicalHeaderKey(s.Header)
		if owner, dup := headers[canonical]; dup {
			return nil, fmt.Errorf("provider %q: header %s already registered by %q", s.ID, s.Header, owner)
		}
		headers[canonical] = s.ID
		r.byRoute[s.Route] = s
		r.specs = append(r.specs, s)
	}
	return r, nil
}

// Default returns the providers this service accepts.
func Default() *Registry {
	r, err := NewRegistry(
		Spec{
			ID:      model.ProviderAsaas,
			Route:   "/asaas",
			Header:  "asaas-access-token",
			Queue:   "asaas_queue",
			Extract: FieldExtractor([]string{"event"}, []string{"id"}),
		},
		Spec{
			ID:      model.ProviderStripe,
			Route:   "/stripe",
			Header:  "stripe-access-token",
			Queue:   "stripe_queue",
			Extract: StripeExtractor,
		},
	)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) All() []Spec {
	out := make([]Spec, len(r.specs))
	copy(out, r.specs)
	return out
}

func (r *Registry) ByRoute(route string) (Spec, bool) {
	s, ok := r.byRoute[route]
	return s, ok
}

// MatchCredential returns the first registered header present on the request,
// in registration order, together with its value.
func (r *Registry) MatchCredential(h http.Header) (Spec, string, bool) {
	for _, s := range r.specs {
		if v := strings.TrimSpace(h.Get(s.Header)); v != "" {
			return s, v, true
		}
	}
	return Spec{}, "", false
}
