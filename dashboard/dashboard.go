// Package dashboard paints the tabbed chrome around the engine: a tab
// bar with a focus indicator, the focused tab's pane, and a status
// line. The engine decides when to paint; the dashboard owns what a
// frame looks like.
package dashboard

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/devmux/devmux/engine"
	"github.com/devmux/devmux/input"
)

// chromeRows is the tab bar plus the status line.
const chromeRows = 2

// Dashboard composes frames. It remembers the height of the previous
// frame so the next one can home the cursor over it.
type Dashboard struct {
	tab       lipgloss.Style
	activeTab lipgloss.Style
	stopped   lipgloss.Style
	status    lipgloss.Style
	overlay   lipgloss.Style

	lastRows int
}

// New returns a dashboard with the default styling.
func New() *Dashboard {
	return &Dashboard{
		tab:       lipgloss.NewStyle().Padding(0, 1).Faint(true),
		activeTab: lipgloss.NewStyle().Padding(0, 1).Bold(true).Reverse(true),
		stopped:   lipgloss.NewStyle().Padding(0, 1).Faint(true).Strikethrough(true),
		status:    lipgloss.NewStyle().Faint(true),
		overlay:   lipgloss.NewStyle().Bold(true).Reverse(true),
	}
}

// PaneRows returns how many rows remain for tab content.
func (d *Dashboard) PaneRows(rows int) int {
	if rows <= chromeRows {
		return 1
	}
	return rows - chromeRows
}

// Render paints one frame: home the cursor over the previous frame,
// then the tab bar, the focused pane, and the status line. Every line
// ends with erase-to-end so shorter frames leave no residue.
func (d *Dashboard) Render(w io.Writer, tabs []*engine.Controller, focused int, quitting bool) error {
	if len(tabs) == 0 {
		return nil
	}
	c := tabs[focused]
	paneRows := c.Screen().Rows()

	var b strings.Builder
	if d.lastRows > 0 {
		fmt.Fprintf(&b, "\x1b[%dF", d.lastRows)
	}

	b.WriteString(d.tabBar(tabs, focused))
	b.WriteString("\x1b[0K\r\n")

	for _, line := range c.RenderInto(paneRows) {
		b.WriteString(line)
		b.WriteString("\x1b[0K\r\n")
	}

	b.WriteString(d.statusLine(c, quitting))
	b.WriteString("\x1b[0K\r\n")

	d.lastRows = paneRows + chromeRows
	_, err := w.Write([]byte(b.String()))
	return err
}

func (d *Dashboard) tabBar(tabs []*engine.Controller, focused int) string {
	parts := make([]string, len(tabs))
	for i, c := range tabs {
		style := d.tab
		switch {
		case i == focused:
			style = d.activeTab
		case !c.Running():
			style = d.stopped
		}
		parts[i] = style.Render(fmt.Sprintf("%d:%s", i+1, c.Name()))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (d *Dashboard) statusLine(c *engine.Controller, quitting bool) string {
	if quitting {
		return d.overlay.Render(" Quitting... ")
	}
	state := c.State().String()
	if st := c.ExitStatus(); st != nil && !c.Running() {
		state = st.String()
	}
	hint := "tab: next  t: toggle  r: restart  i: interactive  q: quit"
	if c.Mode() == input.Interactive {
		hint = "C-x: leave interactive"
	}
	return d.status.Render(fmt.Sprintf(" %s | %s | %s ", c.Name(), state, hint))
}
