package depgraph

import (
	"sort"
	"strings"
)

// Group is the coarse category a node is displayed and filtered under.
type Group string

const (
	GroupStoryMap   Group = "StoryMap"
	GroupExperience Group = "Experience"
	GroupDashboard  Group = "Dashboard"
	GroupWebMap     Group = "Web Map"
	GroupWebApp     Group = "Web App"
	GroupScene      Group = "Scene"
	GroupFeature    Group = "Feature"
	GroupURL        Group = "URL"
	GroupOther      Group = "Other"
)

// Groups lists every group in classification order.
var Groups = []Group{
	GroupStoryMap, GroupExperience, GroupDashboard, GroupWebMap, GroupWebApp,
	GroupScene, GroupFeature, GroupURL, GroupOther,
}

// GroupOf classifies a raw item type. The first matching rule wins.
//
// "web map" is tested before "web mapping application", so legacy
// applications land in Web Map and GroupWebApp is never produced. The order
// is kept for compatibility with existing exports and saved filters.
func GroupOf(itemType string) Group {
	x := strings.ToLower(itemType)
	switch {
	case strings.Contains(x, "story"):
		return GroupStoryMap
	case strings.Contains(x, "experience"):
		return GroupExperience
	case strings.Contains(x, "dashboard"):
		return GroupDashboard
	case strings.Contains(x, "web map"):
		return GroupWebMap
	case strings.Contains(x, "web mapping application"):
		return GroupWebApp
	case strings.Contains(x, "scene"):
		return GroupScene
	case strings.Contains(x, "feature"):
		return GroupFeature
	case itemType == "URL":
		return GroupURL
	default:
		return GroupOther
	}
}

// ParseGroup matches s against the group names case-insensitively.
func ParseGroup(s string) (Group, bool) {
	for _, g := range Groups {
		if strings.EqualFold(string(g), strings.TrimSpace(s)) {
			return g, true
		}
	}
	return "", false
}

// Color is the display color of the group.
func (g Group) Color() string {
	switch g {
	case GroupStoryMap:
		return "#ffb876"
	case GroupExperience, GroupDashboard, GroupWebApp:
		return "#8a7ff0"
	case GroupWebMap:
		return "#6aa2ff"
	case GroupFeature, GroupScene:
		return "#2ec27e"
	default:
		return "#c0c7d1"
	}
}

// LegendEntry is one row of the legend.
type LegendEntry struct {
	Group Group  `json:"group"`
	Color string `json:"color"`
	Count int    `json:"count"`
}

// Legend counts view nodes per group, sorted by group name.
func Legend(g *Graph) []LegendEntry {
	counts := make(map[Group]int)
	for _, n := range g.Nodes() {
		counts[n.Group]++
	}
	out := make([]LegendEntry, 0, len(counts))
	for grp, c := range counts {
		out = append(out, LegendEntry{Group: grp, Color: grp.Color(), Count: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Group < out[j].Group })
	return out
}
