package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/andrepadez/ostt/internal/ports"
)

// KeywordsModel manages the bias-keyword list: navigate, add, delete.
type KeywordsModel struct {
	store    ports.KeywordStore
	keywords []string

	cursor   int
	adding   bool
	input    string
	banner   string
	quitting bool
}

func NewKeywordsModel(store ports.KeywordStore) (*KeywordsModel, error) {
	keywords, err := store.Load()
	if err != nil {
		return nil, err
	}
	return &KeywordsModel{store: store, keywords: keywords}, nil
}

func (m *KeywordsModel) Init() tea.Cmd {
	return nil
}

func (m *KeywordsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	if m.adding {
		return m.updateInput(keyMsg)
	}

	switch keyMsg.String() {
	case "q", "esc", "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.keywords)-1 {
			m.cursor++
		}
	case "a":
		m.adding = true
		m.input = ""
		m.banner = ""
	case "d", "x":
		if len(m.keywords) > 0 {
			if err := m.store.Remove(m.cursor); err != nil {
				m.banner = err.Error()
				return m, nil
			}
			m.reload()
		}
	}
	return m, nil
}

func (m *KeywordsModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.adding = false
	case "enter":
		m.adding = false
		if err := m.store.Add(m.input); err != nil {
			m.banner = err.Error()
			return m, nil
		}
		m.reload()
	case "backspace":
		if len(m.input) > 0 {
			runes := []rune(m.input)
			m.input = string(runes[:len(runes)-1])
		}
	default:
		if msg.Type == tea.KeyRunes {
			m.input += string(msg.Runes)
		} else if msg.Type == tea.KeySpace {
			m.input += " "
		}
	}
	return m, nil
}

func (m *KeywordsModel) reload() {
	keywords, err := m.store.Load()
	if err != nil {
		m.banner = err.Error()
		return
	}
	m.keywords = keywords
	if m.cursor >= len(m.keywords) && m.cursor > 0 {
		m.cursor = len(m.keywords) - 1
	}
}

func (m *KeywordsModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("ostt - keywords") + "\n\n")

	if len(m.keywords) == 0 && !m.adding {
		b.WriteString(dimStyle.Render("no keywords; press a to add one") + "\n")
	}
	for i, kw := range m.keywords {
		if i == m.cursor && !m.adding {
			b.WriteString(cursorStyle.Render("> "+kw) + "\n")
		} else {
			b.WriteString("  " + kw + "\n")
		}
	}

	if m.adding {
		b.WriteString("\n" + "new keyword: " + m.input + "▌\n")
	}
	if m.banner != "" {
		b.WriteString("\n" + errorStyle.Render(m.banner) + "\n")
	}
	b.WriteString("\n" + helpStyle.Render("a add · d delete · ↑/↓ navigate · q quit") + "\n")
	return b.String()
}
