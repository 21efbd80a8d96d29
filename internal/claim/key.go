package claim

import (
	"errors"
	"strings"

	"github.com/moraeszete/webhook-payments-integrations/internal/model"
)

// Key is the deterministic identity of an event inside the claim store.
type Key string

func (k Key) String() string {
	return string(k)
}

// Separator joins the namespace and the field components of a Key.
const Separator = ":"

const (
	fieldPath    = "path"
	fieldEvent   = "event"
	fieldEventID = "eventId"
)

var ErrEmptyIdentity = errors.New("event identity has no non-empty field")

var (
	valueEscaper = strings.NewReplacer("%", "%25", Separator, "%3A")
	// Route segments additionally escape "_" so no segment can look like a "<field>_" component.
	segmentEscaper = strings.NewReplacer("%", "%25", Separator, "%3A", "_", "%5F")
)

// Derive builds the claim key for an identity:
//
//	<namespace>:path_<route>:event_<type>:eventId_<id>
//
// Components are always emitted in that order and empty fields are skipped.
// "/" inside the route becomes the separator; one leading and one trailing
// slash are insignificant ("/asaas" and "asaas" derive the same key).
func Derive(namespace string, identity model.EventIdentity) (Key, error) {
	if identity.IsEmpty() {
		return "", ErrEmptyIdentity
	}

	parts := make([]string, 0, 4)
	parts = append(parts, namespace)

	if route := normalizeRoute(identity.Route); route != "" {
		parts = append(parts, fieldPath+"_"+route)
	}
	if identity.EventType != "" {
		parts = append(parts, fieldEvent+"_"+valueEscaper.Replace(identity.EventType))
	}
	if identity.EventID != "" {
		parts = append(parts, fieldEventID+"_"+valueEscaper.Replace(identity.EventID))
	}

	if len(parts) == 1 {
		// Route was only slashes.
		return "", ErrEmptyIdentity
	}

	return Key(strings.Join(parts, Separator)), nil
}

// RoutePrefix returns the key prefix shared by every claim derived for route.
func RoutePrefix(namespace, route string) string {
	return namespace + Separator + fieldPath + "_" + normalizeRoute(route)
}

func normalizeRoute(route string) string {
	route = strings.TrimPrefix(route, "/")
	route = strings.TrimSuffix(route, "/")
	if route == "" {
		return ""
	}
	segments := strings.Split(route, "/")
	for i, s := range segments {
		segments[i] = segmentEscaper.Replace(s)
	}
	return strings.Join(segments, Separator)
}
