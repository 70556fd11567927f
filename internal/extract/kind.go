package extract

import "strings"

// Kind is the closed set of item kinds that have a dependency extractor.
type Kind int

const (
	KindNone Kind = iota
	KindWebMap
	KindDashboard
	KindExperience
	KindStory
	KindLegacyApp
)

var kindNames = map[Kind]string{
	KindNone:       "none",
	KindWebMap:     "webmap",
	KindDashboard:  "dashboard",
	KindExperience: "experience",
	KindStory:      "story",
	KindLegacyApp:  "legacy-app",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return k, true
		}
	}
	return KindNone, false
}

// Classify maps an item's type and type keywords to a Kind.
//
// "Web Mapping Application" contains "web map", so it is tested first;
// otherwise legacy applications would be handled as web maps.
func Classify(itemType string, typeKeywords []string) Kind {
	t := strings.ToLower(itemType)
	kw := strings.ToLower(strings.Join(typeKeywords, " "))

	switch {
	case strings.Contains(t, "web mapping application"):
		return KindLegacyApp
	case strings.Contains(t, "web map"):
		return KindWebMap
	case strings.Contains(t, "dashboard"):
		return KindDashboard
	case strings.Contains(t, "experience"), strings.Contains(kw, "experience"):
		return KindExperience
	case strings.Contains(t, "story"):
		return KindStory
	default:
		return KindNone
	}
}
