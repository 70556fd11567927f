// Package tui is the interactive browser over a resolved graph: a search
// box, legend toggles and a neighborhood pane, all driven through the
// session's filter.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cmesserich-br/ago-dependency-checker-app/internal/depgraph"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/query"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/render"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/session"
)

type BrowseModel struct {
	session  *session.Session
	graph    *depgraph.Graph
	nodes    map[string]depgraph.Node
	legend   []depgraph.LegendEntry
	result   query.Result
	rows     []depgraph.Node
	cursor   int
	search   bool // true while typing in the search box
	input    textinput.Model
	detail   viewport.Model
	renderer *render.Renderer
	styles   *Styles
	help     help.Model
	keys     keyMap
	width    int
	height   int
	quitting bool
}

type keyMap struct {
	Up     key.Binding
	Down   key.Binding
	Search key.Binding
	Group  key.Binding
	Clear  key.Binding
	Reset  key.Binding
	PgUp   key.Binding
	PgDown key.Binding
	Enter  key.Binding
	Escape key.Binding
	Quit   key.Binding
}

func (km keyMap) ShortHelp() []key.Binding {
	return []key.Binding{km.Up, km.Down, km.Search, km.Group, km.Clear, km.Reset, km.Quit}
}

func (km keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{km.Up, km.Down, km.PgUp, km.PgDown},
		{km.Search, km.Group, km.Clear, km.Reset},
		{km.Enter, km.Escape, km.Quit},
	}
}

func newKeyMap() keyMap {
	return keyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "prev node"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "next node"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		Group: key.NewBinding(
			key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"),
			key.WithHelp("1-9", "toggle group"),
		),
		Clear: key.NewBinding(
			key.WithKeys("0"),
			key.WithHelp("0", "all groups"),
		),
		Reset: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "clear filter"),
		),
		PgUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", "scroll details"),
		),
		PgDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("pgdn", "scroll details"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "apply"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "clear search"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// NewBrowseModel opens the current graph of s. The session's filter is the
// initial filter.
func NewBrowseModel(s *session.Session) (BrowseModel, error) {
	g, err := s.Graph()
	if err != nil {
		return BrowseModel{}, err
	}

	nodes := make(map[string]depgraph.Node)
	for _, n := range g.Nodes() {
		nodes[n.ID] = n
	}

	ti := textinput.New()
	ti.Placeholder = "owner:gis type:feature parcels"
	ti.Prompt = "search: "
	ti.Width = 50
	ti.SetValue(s.Filter().Query)

	m := BrowseModel{
		session:  s,
		graph:    g,
		nodes:    nodes,
		legend:   depgraph.Legend(g),
		input:    ti,
		detail:   viewport.New(40, 16),
		renderer: render.New(),
		styles:   DefaultStyles(),
		help:     help.New(),
		keys:     newKeyMap(),
		width:    100,
		height:   30,
	}
	m.refresh()
	return m, nil
}

// Filter is the filter currently applied.
func (m BrowseModel) Filter() query.Filter { return m.result.Filter }

// Rows returns the listed nodes in view order.
func (m BrowseModel) Rows() []depgraph.Node { return m.rows }

// Selected returns the node under the cursor.
func (m BrowseModel) Selected() (depgraph.Node, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return depgraph.Node{}, false
	}
	return m.rows[m.cursor], true
}

// refresh re-evaluates the session filter and rebuilds the list.
func (m *BrowseModel) refresh() {
	res, err := m.session.Search()
	if err != nil {
		res = query.Result{Filter: m.session.Filter()}
	}
	m.result = res
	m.rows = make([]depgraph.Node, 0, len(res.Nodes))
	for _, id := range res.Nodes {
		if n, ok := m.nodes[id]; ok {
			m.rows = append(m.rows, n)
		}
	}
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.showSelected()
}

func (m *BrowseModel) showSelected() {
	n, ok := m.Selected()
	if !ok {
		m.detail.SetContent(m.styles.Help.Render("No matching nodes."))
		return
	}
	self, neighbors, _, _ := m.graph.Neighborhood(n.ID)
	content := m.renderer.Neighborhood(self, neighbors)
	if self.URL != "" {
		content += "\n" + m.styles.Muted.Render(self.URL) + "\n"
	}
	m.detail.SetContent(content)
	m.detail.GotoTop()
}

func (m *BrowseModel) setQuery(q string) {
	f := m.session.Filter()
	f.Query = q
	m.session.SetFilter(f)
	m.refresh()
}

func (m BrowseModel) Init() tea.Cmd {
	return nil
}

func (m BrowseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.detail.Width = msg.Width/2 - 4
		m.detail.Height = msg.Height - 10
		return m, nil

	case tea.KeyMsg:
		if m.search {
			switch {
			case key.Matches(msg, m.keys.Enter):
				m.search = false
				m.input.Blur()
				return m, nil
			case key.Matches(msg, m.keys.Escape):
				m.search = false
				m.input.Blur()
				m.input.SetValue("")
				m.setQuery("")
				return m, nil
			default:
				m.input, cmd = m.input.Update(msg)
				m.setQuery(m.input.Value())
				return m, cmd
			}
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
				m.showSelected()
			}
			return m, nil

		case key.Matches(msg, m.keys.Down):
			if m.cursor < len(m.rows)-1 {
				m.cursor++
				m.showSelected()
			}
			return m, nil

		case key.Matches(msg, m.keys.Search):
			m.search = true
			return m, m.input.Focus()

		case key.Matches(msg, m.keys.Group):
			i := int(msg.String()[0] - '1')
			if i < len(m.legend) {
				m.session.ToggleGroup(m.legend[i].Group)
				m.refresh()
			}
			return m, nil

		case key.Matches(msg, m.keys.Clear):
			f := m.session.Filter()
			f.Group = ""
			m.session.SetFilter(f)
			m.refresh()
			return m, nil

		case key.Matches(msg, m.keys.Reset):
			m.input.SetValue("")
			m.session.SetFilter(query.Filter{})
			m.refresh()
			return m, nil

		case key.Matches(msg, m.keys.PgUp), key.Matches(msg, m.keys.PgDown):
			m.detail, cmd = m.detail.Update(msg)
			return m, cmd
		}
	}

	return m, nil
}

func (m BrowseModel) View() string {
	if m.quitting {
		return ""
	}

	sections := []string{
		m.renderTopBar(),
		m.renderLegend(),
		m.input.View(),
		m.renderPanels(),
		m.renderBottom(),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m BrowseModel) renderTopBar() string {
	title := m.styles.Title.Render(fmt.Sprintf("%s (%s)", m.graph.Root.Title, m.graph.Root.Type))
	count := fmt.Sprintf("%d of %d nodes", len(m.result.Nodes), m.result.Total)
	if m.result.All {
		count = fmt.Sprintf("%d nodes", m.result.Total)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, title, "  ", m.styles.Subtitle.Render(count))
}

func (m BrowseModel) renderLegend() string {
	tabs := make([]string, 0, len(m.legend))
	for i, e := range m.legend {
		label := fmt.Sprintf("%d %s (%d)", i+1, e.Group, e.Count)
		if m.result.Filter.Group == e.Group {
			tabs = append(tabs, m.styles.ActiveTab.Render(label))
		} else {
			tabs = append(tabs, m.styles.Tab.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m BrowseModel) renderPanels() string {
	panelWidth := (m.width - 6) / 2
	maxRows := m.height - 12
	if maxRows < 1 {
		maxRows = 1
	}

	var lines []string
	if len(m.rows) == 0 {
		lines = append(lines, m.styles.StatusWarning.Render("no match"))
	}
	start := 0
	if m.cursor >= maxRows {
		start = m.cursor - maxRows + 1
	}
	for i := start; i < len(m.rows) && i < start+maxRows; i++ {
		n := m.rows[i]
		line := truncate(fmt.Sprintf("%-10s %s", n.Group, strings.ReplaceAll(n.Title, "\n", " ")), panelWidth-4)
		if i == m.cursor {
			lines = append(lines, m.styles.Selected.Render("> "+line))
		} else {
			lines = append(lines, m.styles.Row.Render("  "+line))
		}
	}

	left := m.styles.ActiveBorder.Width(panelWidth).Render(strings.Join(lines, "\n"))
	right := m.styles.Border.Width(panelWidth).Render(m.detail.View())
	return lipgloss.JoinHorizontal(lipgloss.Top, left, right)
}

func (m BrowseModel) renderBottom() string {
	if m.search {
		return m.styles.Help.Render(m.help.ShortHelpView([]key.Binding{m.keys.Enter, m.keys.Escape}))
	}
	return m.styles.Help.Render(m.help.ShortHelpView(m.keys.ShortHelp()))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max < 3 {
		return "..."
	}
	return s[:max-3] + "..."
}
