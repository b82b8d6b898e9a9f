package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"media-rag/internal/models"
)

// Assistant is the TUI-facing subset of a chat session.
type Assistant interface {
	Labels() []string
	Ask(ctx context.Context, label, query string) (models.History, error)
}

// answerMsg carries the transcript after a question was answered or failed.
type answerMsg struct {
	history models.History
	err     error
}

// Model is the Bubble Tea model of the chat screen.
type Model struct {
	assistant Assistant
	input     textinput.Model
	viewport  viewport.Model
	spinner   spinner.Model
	labels    []string
	selected  int
	history   models.History
	status    string
	summary   string
	waiting   bool
	ready     bool
}

// New creates the chat model. summary describes the ingested sources.
func New(assistant Assistant, summary string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question about the selected source"
	ti.Focus()
	ti.CharLimit = 0

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		assistant: assistant,
		input:     ti,
		viewport:  viewport.New(0, 0),
		spinner:   sp,
		labels:    assistant.Labels(),
		summary:   summary,
	}
	if len(m.labels) == 0 {
		m.status = "No sources with text were loaded."
	} else {
		m.status = "Tab selects the source. Enter asks."
	}
	return m
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

// Selected is the label questions are answered from.
func (m Model) Selected() string {
	if len(m.labels) == 0 {
		return ""
	}
	return m.labels[m.selected]
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, th := transcriptBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 3 + 1 + qh + 1 // header, summary, source; status; input box; spacer
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-th)
		m.refresh()
		return m, nil
	case answerMsg:
		m.waiting = false
		m.history = msg.history
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
		} else {
			m.status = "Answered from " + m.Selected()
		}
		m.refresh()
		return m, nil
	case spinner.TickMsg:
		if !m.waiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD || msg.Type == tea.KeyEsc {
			return m, tea.Quit
		}
		switch msg.Type {
		case tea.KeyTab:
			if len(m.labels) > 0 && !m.waiting {
				m.selected = (m.selected + 1) % len(m.labels)
			}
			return m, nil
		case tea.KeyShiftTab:
			if len(m.labels) > 0 && !m.waiting {
				m.selected = (m.selected - 1 + len(m.labels)) % len(m.labels)
			}
			return m, nil
		case tea.KeyEnter:
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.waiting || len(m.labels) == 0 {
				return m, nil
			}
			m.input.Reset()
			m.waiting = true
			m.history = m.history.Append(models.UserMessage(q))
			m.status = "Awaiting response..."
			m.refresh()
			return m, tea.Batch(m.spinner.Tick, askCmd(m.assistant, m.Selected(), q))
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func askCmd(assistant Assistant, label, query string) tea.Cmd {
	return func() tea.Msg {
		history, err := assistant.Ask(context.Background(), label, query)
		return answerMsg{history: history, err: err}
	}
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Media Q&A")
	summary := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.summary)
	source := sourceStyle.Render("Source: " + m.sourceLine())
	transcript := transcriptBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())

	status := statusStyle.Render(m.status)
	if m.waiting {
		status = m.spinner.View() + " " + status
	} else if strings.HasPrefix(m.status, "Error: ") {
		status = errorStyle.Render(m.status)
	}
	return header + "\n" + summary + "\n" + source + "\n" + transcript + "\n" + input + "\n" + status
}

func (m Model) sourceLine() string {
	if len(m.labels) == 0 {
		return "none"
	}
	return fmt.Sprintf("%s (%d/%d)", m.Selected(), m.selected+1, len(m.labels))
}

func (m *Model) refresh() {
	m.viewport.SetContent(renderTranscript(m.history))
	m.viewport.GotoBottom()
}

func renderTranscript(history models.History) string {
	if len(history) == 0 {
		return "No questions yet."
	}
	lines := make([]string, len(history))
	for i, msg := range history {
		if msg.IsUser {
			lines[i] = userStyle.Render(msg.String())
		} else {
			lines[i] = msg.String()
		}
	}
	return strings.Join(lines, "\n\n")
}

var (
	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	sourceStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	statusStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	userStyle          = lipgloss.NewStyle().Bold(true)
)
