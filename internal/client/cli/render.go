package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dmitrijs2005/todosync/internal/client/models"
	"github.com/dmitrijs2005/todosync/internal/client/syncer"
)

var (
	doneStyle    = lipgloss.NewStyle().Strikethrough(true).Foreground(lipgloss.Color("8"))
	deletedStyle = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("1"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	onlineStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))
	offlineStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))
)

type renderer struct {
	color bool
}

func (r renderer) style(s lipgloss.Style, text string) string {
	if !r.color {
		return text
	}
	return s.Render(text)
}

// list renders todos numbered from 1. Ids in pending get a marker.
func (r renderer) list(todos []models.Todo, pending map[string]bool) string {
	if len(todos) == 0 {
		return "No todos."
	}

	var b strings.Builder
	for i, t := range todos {
		mark := " "
		if t.Done {
			mark = "x"
		}

		text := t.Text
		switch {
		case t.Deleted:
			text = r.style(deletedStyle, text+" (deleted)")
		case t.Done:
			text = r.style(doneStyle, text)
		}

		fmt.Fprintf(&b, "%2d. [%s] %s", i+1, mark, text)
		if pending[t.ID] {
			b.WriteString(" " + r.style(pendingStyle, "*"))
		}
		if i < len(todos)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func (r renderer) mode(m syncer.Mode) string {
	if m == syncer.ModeOnline {
		return r.style(onlineStyle, string(m))
	}
	return r.style(offlineStyle, string(m))
}

func (r renderer) status(st syncer.Status) string {
	var b strings.Builder
	fmt.Fprintf(&b, "mode:      %s\n", r.mode(st.Mode))
	fmt.Fprintf(&b, "device:    %s\n", st.DeviceID)
	fmt.Fprintf(&b, "pending:   %d\n", st.Pending)
	fmt.Fprintf(&b, "cursor:    %s\n", formatTime(st.Cursor))
	fmt.Fprintf(&b, "last sync: %s", formatTime(st.LastSync))
	if st.LastError != "" {
		fmt.Fprintf(&b, "\nerror:     %s", st.LastError)
	}
	return b.String()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format(time.DateTime)
}
