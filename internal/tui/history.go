package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/andrepadez/ostt/internal/domain"
	"github.com/andrepadez/ostt/internal/ports"
)

// HistoryModel is a list-navigation viewer over past transcripts.
// Enter copies the selected transcript to the clipboard.
type HistoryModel struct {
	records   []domain.TranscriptRecord
	clipboard ports.Clipboard

	cursor   int
	offset   int
	height   int
	banner   string
	quitting bool
}

func NewHistoryModel(records []domain.TranscriptRecord, clipboard ports.Clipboard) *HistoryModel {
	return &HistoryModel{records: records, clipboard: clipboard, height: 15}
}

func (m *HistoryModel) Init() tea.Cmd {
	return nil
}

func (m *HistoryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if msg.Height > 8 {
			m.height = msg.Height - 6
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.records)-1 {
				m.cursor++
			}
		case "enter":
			if m.clipboard != nil && m.cursor < len(m.records) {
				if err := m.clipboard.SetText(m.records[m.cursor].Text); err != nil {
					m.banner = "clipboard copy failed"
				} else {
					m.banner = "copied to clipboard"
				}
			}
		}
		m.scroll()
	}
	return m, nil
}

func (m *HistoryModel) scroll() {
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+m.height {
		m.offset = m.cursor - m.height + 1
	}
}

func (m *HistoryModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("ostt - history") + "\n\n")

	if len(m.records) == 0 {
		b.WriteString(dimStyle.Render("no transcriptions yet") + "\n")
	}

	end := min(m.offset+m.height, len(m.records))
	for i := m.offset; i < end; i++ {
		rec := m.records[i]
		line := fmt.Sprintf("%s  %-22s %s",
			rec.CreatedAt.Local().Format("2006-01-02 15:04"),
			rec.ModelID,
			truncate(rec.Text, 48))
		if i == m.cursor {
			b.WriteString(cursorStyle.Render("> "+line) + "\n")
		} else {
			b.WriteString("  " + line + "\n")
		}
	}

	if m.banner != "" {
		b.WriteString("\n" + okStyle.Render(m.banner) + "\n")
	}
	b.WriteString("\n" + helpStyle.Render("↑/↓ navigate · enter copy · q quit") + "\n")
	return b.String()
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
