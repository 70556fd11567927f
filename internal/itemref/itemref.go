// Package itemref validates catalog item ids and turns user input (a bare id
// or an item/app URL) into an item id plus the portal that hosts it.
package itemref

import (
	"fmt"
	"net/url"
	"strings"
)

// DefaultPortal is the public portal used when no other portal is known.
const DefaultPortal = "https://www.arcgis.com"

// IDLength is the exact length of a catalog item id.
const IDLength = 32

// IsItemID reports whether s is exactly 32 hexadecimal characters.
func IsItemID(s string) bool {
	if len(s) != IDLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// Ref is a resolved root input.
type Ref struct {
	ItemID string `json:"itemId"`
	// Portal is empty when the input was a bare id.
	Portal string `json:"portal,omitempty"`
}

// ValidationError reports input that does not resolve to a valid item id.
type ValidationError struct {
	Input  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid item reference %q: %s", e.Input, e.Reason)
}

// pathMarkers are the path segments whose successor is an item id.
var pathMarkers = []string{"stories", "experience", "dashboards"}

// Parse classifies a root input. Accepted forms are a bare id, a URL with an
// id query parameter, a URL with stories/, experience/ or dashboards/ followed
// by an id, and a webappviewer URL carrying ?id=.
func Parse(input string) (Ref, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return Ref{}, &ValidationError{Input: input, Reason: "empty input"}
	}
	if IsItemID(input) {
		return Ref{ItemID: input}, nil
	}

	u, err := url.Parse(input)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return Ref{}, &ValidationError{Input: input, Reason: "not an item id or absolute URL"}
	}
	portal := PortalFromHost(u.Host)

	id := u.Query().Get("id")
	if IsItemID(id) {
		return Ref{ItemID: id, Portal: portal}, nil
	}

	parts := splitPath(u.Path)
	for _, marker := range pathMarkers {
		if next, ok := segmentAfter(parts, marker); ok && IsItemID(next) {
			return Ref{ItemID: next, Portal: portal}, nil
		}
	}

	return Ref{Portal: portal}, &ValidationError{Input: input, Reason: "no item id found in URL"}
}

// PortalFromHost derives a portal base from a URL host. The hosted
// experience and story viewers live on consumer subdomains whose content is
// served by the default portal.
func PortalFromHost(host string) string {
	h := strings.ToLower(host)
	if hostIs(h, "experience.arcgis.com") || hostIs(h, "storymaps.arcgis.com") {
		return DefaultPortal
	}
	return "https://" + host
}

// EnsurePortal trims a trailing slash and substitutes the default portal for
// an empty base.
func EnsurePortal(base string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return DefaultPortal
	}
	return strings.TrimSuffix(base, "/")
}

// ChoosePortal picks the portal for a run: an explicit portal wins over one
// derived from the input URL.
func ChoosePortal(explicit string, ref Ref) string {
	if strings.TrimSpace(explicit) != "" {
		return EnsurePortal(explicit)
	}
	return EnsurePortal(ref.Portal)
}

// SniffHref looks for an item id inside an absolute URL. Query parameters
// are checked first, in priority order, then the path segment that follows
// experience/, dashboards/ or stories/.
func SniffHref(href string) (string, bool) {
	u, err := url.Parse(href)
	if err != nil || u.Scheme == "" {
		return "", false
	}
	q := u.Query()
	for _, key := range []string{"id", "webmap", "webscene", "appid", "storyid"} {
		if v := q.Get(key); IsItemID(v) {
			return v, true
		}
	}
	parts := splitPath(u.Path)
	for i := 0; i < len(parts)-1; i++ {
		switch parts[i] {
		case "experience", "dashboards", "stories":
			if IsItemID(parts[i+1]) {
				return parts[i+1], true
			}
		}
	}
	return "", false
}

// IsAbsoluteURL reports whether s starts with an http or https scheme.
func IsAbsoluteURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func hostIs(host, domain string) bool {
	return host == domain || strings.HasSuffix(host, "."+domain)
}

func splitPath(p string) []string {
	var out []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func segmentAfter(parts []string, marker string) (string, bool) {
	for i, p := range parts {
		if p == marker {
			if i+1 < len(parts) {
				return parts[i+1], true
			}
			return "", false
		}
	}
	return "", false
}
