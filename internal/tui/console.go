// Package tui implements the live console view used by the console command.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rigtools/hilserial"
)

const maxLines = 2000

var (
	statusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	errStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("160")).
			Padding(0, 1)

	timestampStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// LineMsg delivers one received line to the view.
type LineMsg struct {
	Line hilserial.Line
}

// DisconnectMsg reports that the transport stopped delivering lines.
type DisconnectMsg struct {
	Err error
}

type keyMap struct {
	Quit  key.Binding
	Clear key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Clear: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "clear"),
	),
}

// Console is the Bubble Tea model for the live line view.
type Console struct {
	port     string
	viewport viewport.Model
	ready    bool

	lines      []string
	timestamps bool
	rx         int
	dropped    func() uint64
	err        error
}

// NewConsole creates the console model. dropped is polled for the transport
// overflow counter shown in the status bar.
func NewConsole(port string, timestamps bool, dropped func() uint64) *Console {
	return &Console{
		port:       port,
		timestamps: timestamps,
		dropped:    dropped,
	}
}

func (c *Console) Init() tea.Cmd {
	return nil
}

func (c *Console) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		statusHeight := 1
		if !c.ready {
			c.viewport = viewport.New(msg.Width, msg.Height-statusHeight)
			c.ready = true
		} else {
			c.viewport.Width = msg.Width
			c.viewport.Height = msg.Height - statusHeight
		}
		c.refresh()

	case LineMsg:
		c.rx++
		text := msg.Line.Text
		if c.timestamps {
			stamp := timestampStyle.Render(fmt.Sprintf("%10.3f ", msg.Line.At.Seconds()))
			text = stamp + text
		}
		c.lines = append(c.lines, text)
		if len(c.lines) > maxLines {
			c.lines = c.lines[len(c.lines)-maxLines:]
		}
		c.refresh()

	case DisconnectMsg:
		c.err = msg.Err

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return c, tea.Quit
		case key.Matches(msg, keys.Clear):
			c.lines = nil
			c.refresh()
		}
	}

	var cmd tea.Cmd
	c.viewport, cmd = c.viewport.Update(msg)
	return c, cmd
}

func (c *Console) refresh() {
	if !c.ready {
		return
	}
	atBottom := c.viewport.AtBottom()
	c.viewport.SetContent(strings.Join(c.lines, "\n"))
	if atBottom {
		c.viewport.GotoBottom()
	}
}

func (c *Console) View() string {
	if !c.ready {
		return "Initializing..."
	}
	return lipgloss.JoinVertical(lipgloss.Left, c.viewport.View(), c.statusBar())
}

func (c *Console) statusBar() string {
	if c.err != nil {
		return errStyle.Width(c.viewport.Width).Render(
			fmt.Sprintf("%s │ disconnected: %v │ q to quit", c.port, c.err))
	}
	return statusBarStyle.Width(c.viewport.Width).Render(
		fmt.Sprintf("%s │ rx %d │ dropped %d │ q quit, c clear", c.port, c.rx, c.dropped()))
}
