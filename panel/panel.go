// Package panel draws the controls as a terminal quick settings panel.
package panel

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/trbjo/rogquick/logger"
	"github.com/trbjo/rogquick/widget"
)

var lg = logger.For("panel")

const sliderStep = 5

// Panel is a widget.Surface. Put and Remove may be called from any
// goroutine; the bubbletea program is told to redraw.
type Panel struct {
	activate func(id string, value any) bool

	mu      sync.Mutex
	items   map[string]widget.Snapshot
	order   []string
	header  string
	program *tea.Program
}

type refreshMsg struct{}

func New(activate func(id string, value any) bool) *Panel {
	return &Panel{activate: activate, items: map[string]widget.Snapshot{}}
}

func (p *Panel) Put(s widget.Snapshot) {
	p.mu.Lock()
	if _, ok := p.items[s.ID]; !ok {
		p.order = append(p.order, s.ID)
	}
	p.items[s.ID] = s
	p.mu.Unlock()
	p.refresh()
}

func (p *Panel) Remove(id string) {
	p.mu.Lock()
	delete(p.items, id)
	p.order = slices.DeleteFunc(p.order, func(v string) bool { return v == id })
	p.mu.Unlock()
	p.refresh()
}

// SetHeader replaces the line drawn above the controls.
func (p *Panel) SetHeader(s string) {
	p.mu.Lock()
	p.header = s
	p.mu.Unlock()
	p.refresh()
}

func (p *Panel) refresh() {
	p.mu.Lock()
	program := p.program
	p.mu.Unlock()
	if program != nil {
		// Send blocks until the program reads the message
		go program.Send(refreshMsg{})
	}
}

// rows returns the selectable controls, children right after their parent,
// and the titles of visible indicators.
func (p *Panel) rows() (rows []widget.Snapshot, badges []string, header string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	children := map[string][]widget.Snapshot{}
	for _, id := range p.order {
		s := p.items[id]
		if _, ok := p.items[s.Parent]; ok && s.Parent != "" {
			children[s.Parent] = append(children[s.Parent], s)
		}
	}
	for _, id := range p.order {
		s := p.items[id]
		if s.Kind == widget.KindIndicator {
			if s.Visible {
				badges = append(badges, s.Title)
			}
			continue
		}
		if s.Parent != "" {
			if _, ok := p.items[s.Parent]; ok {
				continue
			}
		}
		rows = append(rows, s)
		rows = append(rows, children[s.ID]...)
	}
	return rows, badges, p.header
}

// Run shows the panel until the user quits or ctx ends.
func (p *Panel) Run(ctx context.Context) error {
	program := tea.NewProgram(newModel(p), tea.WithContext(ctx), tea.WithAltScreen())
	p.mu.Lock()
	p.program = program
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.program = nil
		p.mu.Unlock()
	}()

	_, err := program.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

type model struct {
	panel  *Panel
	keys   keyMap
	help   help.Model
	styles styles

	rows   []widget.Snapshot
	badges []string
	header string
	cursor int
}

func newModel(p *Panel) model {
	m := model{panel: p, keys: defaultKeyMap(), help: help.New(), styles: defaultStyles()}
	m.reload()
	return m
}

func (m *model) reload() {
	var selected string
	if m.cursor < len(m.rows) {
		selected = m.rows[m.cursor].ID
	}
	m.rows, m.badges, m.header = m.panel.rows()
	// keep the cursor on the same control when rows move around it
	if i := slices.IndexFunc(m.rows, func(s widget.Snapshot) bool { return s.ID == selected }); i >= 0 {
		m.cursor = i
	}
	m.cursor = min(m.cursor, max(len(m.rows)-1, 0))
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case refreshMsg:
		m.reload()
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, m.keys.Down):
			if m.cursor < len(m.rows)-1 {
				m.cursor++
			}
		case key.Matches(msg, m.keys.Activate):
			m.send(nil)
		case key.Matches(msg, m.keys.Increase):
			m.step(1)
		case key.Matches(msg, m.keys.Decrease):
			m.step(-1)
		}
	}
	return m, nil
}

func (m model) selected() (widget.Snapshot, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return widget.Snapshot{}, false
	}
	return m.rows[m.cursor], true
}

func (m model) send(value any) {
	s, ok := m.selected()
	if !ok {
		return
	}
	if s.Kind == widget.KindSlider && value == nil {
		return
	}
	if !m.panel.activate(s.ID, value) {
		lg.Debug("activation dropped", "id", s.ID)
	}
}

// step moves a slider by sliderStep or a menu to its neighbouring option.
func (m model) step(dir int) {
	s, ok := m.selected()
	if !ok {
		return
	}
	switch {
	case s.Kind == widget.KindSlider:
		level := min(max(int(s.Level)+dir*sliderStep, 0), 100)
		if level != int(s.Level) {
			m.send(level)
		}
	case len(s.Options) > 0:
		i := slices.Index(s.Options, s.Subtitle)
		next := (i + dir + len(s.Options)) % len(s.Options)
		if i < 0 && dir < 0 {
			next = len(s.Options) - 1
		}
		m.send(s.Options[next])
	}
}

func (m model) View() string {
	var b strings.Builder
	title := m.styles.title.Render("ROG Quick Settings")
	if m.header != "" {
		title += "  " + m.styles.muted.Render(m.header)
	}
	for _, badge := range m.badges {
		title += "  " + m.styles.badge.Render(badge)
	}
	b.WriteString(title)
	b.WriteString("\n\n")

	if len(m.rows) == 0 {
		b.WriteString(m.styles.muted.Render("nothing supported on this machine"))
		b.WriteString("\n")
	}
	for i, s := range m.rows {
		line := m.renderRow(s)
		if i == m.cursor {
			line = m.styles.selected.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m model) renderRow(s widget.Snapshot) string {
	indent := ""
	if s.Parent != "" {
		indent = "   "
	}
	var state string
	switch s.Kind {
	case widget.KindSlider:
		state = sliderBar(s.Level, 20)
	default:
		state = "[ ]"
		if s.Checked {
			state = m.styles.on.Render("[x]")
		}
	}
	line := fmt.Sprintf("%s%s %s", indent, state, s.Title)
	if s.Subtitle != "" {
		line += " " + m.styles.muted.Render(s.Subtitle)
	}
	if s.Pending {
		line += " " + m.styles.pending.Render("…")
	}
	return line
}

func sliderBar(level uint8, width int) string {
	filled := int(level) * width / 100
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", width-filled) + "]"
}

type styles struct {
	title    lipgloss.Style
	muted    lipgloss.Style
	badge    lipgloss.Style
	selected lipgloss.Style
	on       lipgloss.Style
	pending  lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		title: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff2d55")),
		muted: lipgloss.NewStyle().Foreground(lipgloss.Color("#8a8a8a")),
		badge: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#000000")).
			Background(lipgloss.Color("#ffd60a")).
			Padding(0, 1),
		selected: lipgloss.NewStyle().Reverse(true),
		on:       lipgloss.NewStyle().Foreground(lipgloss.Color("#30d158")),
		pending:  lipgloss.NewStyle().Foreground(lipgloss.Color("#ffd60a")),
	}
}
