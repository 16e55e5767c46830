// Package tui provides an interactive terminal UI for reviewing
// duplicate image groups and choosing which copies to delete.
package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"imagedup/dedupe"
	"imagedup/scan"
	"imagedup/suggest"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			PaddingLeft(2).
			PaddingRight(2)

	itemStyle = lipgloss.NewStyle().PaddingLeft(4)

	cursorItemStyle = lipgloss.NewStyle().
			PaddingLeft(2).
			Foreground(lipgloss.Color("#7D56F4")).
			Bold(true)

	checkedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575")).
			Bold(true)

	uncheckedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	keeperStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA"))
)

// fileEntry is one row in the current group's file list.
type fileEntry struct {
	file     scan.FileRecord
	selected bool
	keeper   bool
}

// keyMap defines keybindings for the TUI
type keyMap struct {
	Up        key.Binding
	Down      key.Binding
	Toggle    key.Binding
	ToggleAll key.Binding
	Strategy  key.Binding
	Confirm   key.Binding
	Quit      key.Binding
	Help      key.Binding
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "move up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "move down"),
	),
	Toggle: key.NewBinding(
		key.WithKeys("space", " "),
		key.WithHelp("space", "toggle selection"),
	),
	ToggleAll: key.NewBinding(
		key.WithKeys("a"),
		key.WithHelp("a", "toggle all"),
	),
	Strategy: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "cycle keep strategy"),
	),
	Confirm: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "confirm group"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "esc", "ctrl+c"),
		key.WithHelp("q/esc", "quit"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "toggle help"),
	),
}

// ShortHelp returns keybindings to be shown in the mini help view.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Strategy, k.Help, k.Quit}
}

// FullHelp returns keybindings for the expanded help view.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Toggle, k.ToggleAll},
		{k.Strategy, k.Confirm, k.Help, k.Quit},
	}
}

// Model is the TUI state
type Model struct {
	groups       []dedupe.DuplicateGroup
	entries      []fileEntry
	strategy     suggest.Strategy
	reason       string
	currentGroup int
	cursor       int
	showHelp     bool
	confirmed    bool
	quitting     bool
	width        int
	height       int
	keys         keyMap
	help         help.Model
	toDelete     []Selection
	statusMsg    string
}

// Selection is one file the user marked for deletion, with enough
// context to feed a deletion run.
type Selection struct {
	Path    string
	GroupID string
	Size    int64
}

// New creates a new TUI model. Non-keepers of each group start
// pre-selected according to the given strategy.
func New(groups []dedupe.DuplicateGroup, strategy suggest.Strategy) Model {
	m := Model{
		groups:   groups,
		strategy: strategy,
		keys:     keys,
		help:     help.New(),
	}
	m.loadGroup()
	return m
}

// loadGroup rebuilds the entry list for the current group, marking the
// suggested keeper and pre-selecting everything else.
func (m *Model) loadGroup() {
	m.entries = nil
	m.reason = ""
	if m.currentGroup >= len(m.groups) {
		return
	}
	group := m.groups[m.currentGroup]
	sug, err := suggest.Suggest(group.Files, m.strategy)
	m.entries = make([]fileEntry, len(group.Files))
	for i, f := range group.Files {
		keeper := err == nil && f.Path == sug.Keeper.Path
		m.entries[i] = fileEntry{
			file:     f,
			selected: !keeper,
			keeper:   keeper,
		}
	}
	if err == nil {
		m.reason = sug.Reason
	}
	m.updateStatus()
}

// Init initializes the TUI
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages and user input
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			m.toDelete = nil
			return m, tea.Quit

		case key.Matches(msg, m.keys.Help):
			m.showHelp = !m.showHelp

		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}

		case key.Matches(msg, m.keys.Down):
			if m.cursor < len(m.entries)-1 {
				m.cursor++
			}

		case key.Matches(msg, m.keys.Toggle):
			if m.cursor < len(m.entries) {
				m.entries[m.cursor].selected = !m.entries[m.cursor].selected
				m.updateStatus()
			}

		case key.Matches(msg, m.keys.ToggleAll):
			allSelected := true
			for i := range m.entries {
				if !m.entries[i].selected {
					allSelected = false
					break
				}
			}
			for i := range m.entries {
				m.entries[i].selected = !allSelected
			}
			m.updateStatus()

		case key.Matches(msg, m.keys.Strategy):
			m.strategy = suggest.Next(m.strategy)
			m.loadGroup()
			m.cursor = 0

		case key.Matches(msg, m.keys.Confirm):
			if m.currentGroup < len(m.groups) {
				group := m.groups[m.currentGroup]
				for _, e := range m.entries {
					if e.selected {
						m.toDelete = append(m.toDelete, Selection{
							Path:    e.file.Path,
							GroupID: group.ID,
							Size:    e.file.Size,
						})
					}
				}
				m.currentGroup++
				m.cursor = 0
				m.loadGroup()

				if m.currentGroup >= len(m.groups) {
					m.confirmed = true
					return m, tea.Quit
				}
			}
		}
	}

	return m, nil
}

// updateStatus updates the status message
func (m *Model) updateStatus() {
	selected := 0
	for _, e := range m.entries {
		if e.selected {
			selected++
		}
	}
	m.statusMsg = fmt.Sprintf("Selected: %d/%d | Strategy: %s", selected, len(m.entries), m.strategy)
}

// View renders the TUI
func (m Model) View() string {
	if m.quitting {
		return "Cancelled, nothing deleted.\n"
	}

	if m.confirmed || m.currentGroup >= len(m.groups) {
		return m.renderConfirmation()
	}

	if len(m.groups) == 0 {
		return "No duplicates found!\n"
	}

	var s strings.Builder

	s.WriteString(titleStyle.Render(" imagedup - review duplicates "))
	s.WriteString("\n\n")

	group := m.groups[m.currentGroup]
	s.WriteString(headerStyle.Render(fmt.Sprintf("Group %d/%d", m.currentGroup+1, len(m.groups))))
	s.WriteString("\n")

	if group.Kind == dedupe.MatchSimilar {
		s.WriteString(infoStyle.Render(fmt.Sprintf("Similar (distance %d) | Reclaimable: %s",
			group.Distance, formatBytes(group.ReclaimableSize()))))
	} else {
		s.WriteString(infoStyle.Render(fmt.Sprintf("Exact match | Reclaimable: %s",
			formatBytes(group.ReclaimableSize()))))
	}
	s.WriteString("\n")
	if m.reason != "" {
		s.WriteString(infoStyle.Render("Keeper: " + m.reason))
		s.WriteString("\n")
	}
	s.WriteString("\n")

	s.WriteString(m.renderFileList())
	s.WriteString("\n")

	if m.statusMsg != "" {
		s.WriteString(infoStyle.Render(m.statusMsg))
		s.WriteString("\n")
	}

	s.WriteString("\n")
	if m.showHelp {
		s.WriteString(m.help.FullHelpView(m.keys.FullHelp()))
	} else {
		s.WriteString(m.help.ShortHelpView(m.keys.ShortHelp()))
	}

	return s.String()
}

// renderFileList renders the list of files in the current group
func (m Model) renderFileList() string {
	var s strings.Builder

	for i, e := range m.entries {
		var line strings.Builder

		if e.selected {
			line.WriteString(checkedStyle.Render("[✓] "))
		} else {
			line.WriteString(uncheckedStyle.Render("[ ] "))
		}

		filename := filepath.Base(e.file.Path)
		if i == m.cursor {
			line.WriteString(cursorItemStyle.Render("> " + filename))
		} else {
			line.WriteString(itemStyle.Render(filename))
		}

		info := fmt.Sprintf(" (%s)", formatBytes(e.file.Size))
		line.WriteString(infoStyle.Render(info))
		if e.keeper {
			line.WriteString(keeperStyle.Render(" ★ keep"))
		}

		s.WriteString(line.String())
		s.WriteString("\n")
	}

	return s.String()
}

// renderConfirmation renders the final confirmation screen
func (m Model) renderConfirmation() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" Confirmation "))
	s.WriteString("\n\n")

	if len(m.toDelete) == 0 {
		s.WriteString("No files selected for deletion.\n")
	} else {
		var total int64
		for _, sel := range m.toDelete {
			total += sel.Size
		}
		s.WriteString(fmt.Sprintf("Selected %d files (%s):\n\n", len(m.toDelete), formatBytes(total)))
		for i, sel := range m.toDelete {
			if i >= 10 {
				s.WriteString(fmt.Sprintf("  ... and %d more\n", len(m.toDelete)-10))
				break
			}
			s.WriteString(fmt.Sprintf("  • %s\n", sel.Path))
		}
	}

	return s.String()
}

// Selections returns the files marked for deletion. Empty when the user
// quit without confirming.
func (m Model) Selections() []Selection {
	if !m.confirmed {
		return nil
	}
	return m.toDelete
}

// Strategy returns the keep strategy in effect when the TUI exited.
func (m Model) Strategy() suggest.Strategy {
	return m.strategy
}

// Run starts the TUI and returns the confirmed selections.
func Run(groups []dedupe.DuplicateGroup, strategy suggest.Strategy) ([]Selection, error) {
	p := tea.NewProgram(New(groups, strategy), tea.WithAltScreen())
	m, err := p.Run()
	if err != nil {
		return nil, err
	}

	model := m.(Model)
	return model.Selections(), nil
}

// formatBytes formats bytes into human-readable string
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
