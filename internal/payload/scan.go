package payload

import "strings"

// MaxScanDepth bounds how deep Scan descends into nested containers.
const MaxScanDepth = 256

// Scan walks every key reachable from v and collects the value under each
// key whose name case-insensitively equals one of keys. Collected containers
// are still descended into. Arrays are walked like objects keyed by index.
//
// Payloads decoded by Parse are trees, but a Value assembled in code may
// share containers; each container is visited at most once and the walk stops
// at MaxScanDepth.
func Scan(v *Value, keys ...string) []*Value {
	if len(keys) == 0 || !v.IsContainer() {
		return nil
	}
	want := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		want[strings.ToLower(k)] = struct{}{}
	}
	s := &scanner{want: want, seen: make(map[*Value]struct{})}
	s.walk(v, 0)
	return s.out
}

// ScanStrings is Scan restricted to string values.
func ScanStrings(v *Value, keys ...string) []string {
	var out []string
	for _, hit := range Scan(v, keys...) {
		if s, ok := hit.Str(); ok {
			out = append(out, s)
		}
	}
	return out
}

type scanner struct {
	want map[string]struct{}
	seen map[*Value]struct{}
	out  []*Value
}

func (s *scanner) walk(v *Value, depth int) {
	if depth >= MaxScanDepth {
		return
	}
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}

	for _, m := range v.Children() {
		if _, ok := s.want[strings.ToLower(m.Key)]; ok {
			s.out = append(s.out, m.Value)
		}
		if m.Value.IsContainer() {
			s.walk(m.Value, depth+1)
		}
	}
}
