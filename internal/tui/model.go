package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"study-stream/internal/db"
	"study-stream/internal/models"
	"study-stream/internal/task"
)

// Asker is the assistant surface the chat panel drives.
type Asker interface {
	AskAsync(ctx context.Context, question string) *task.Task[*models.QAResult]
}

type answerMsg struct{ result *models.QAResult }
type answerErrMsg struct{ err error }

// Model is the Bubble Tea model for the chat panel: a transcript viewport
// over a single-line question input. At most one question is in flight at
// a time; further input is held until the answer (or error) arrives.
type Model struct {
	assistant  Asker
	input      textinput.Model
	viewport   viewport.Model
	transcript []string
	status     string
	waiting    bool
	ready      bool
}

// New builds the chat panel. transcript holds prior conversation lines
// restored from the message log, oldest first.
func New(assistant Asker, transcript []string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question about your documents"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	vp.SetContent(strings.Join(transcript, "\n"))
	return Model{assistant: assistant, input: ti, viewport: vp, transcript: transcript, status: "Ready."}
}

// TranscriptLines renders persisted messages into transcript lines.
func TranscriptLines(messages []*db.Message) []string {
	var lines []string
	for _, msg := range messages {
		switch msg.Type {
		case db.MessageTypeQuestion:
			lines = append(lines, questionStyle.Render("You: ")+msg.Content)
		case db.MessageTypeAnswer:
			lines = append(lines, answerStyle.Render("Assistant: ")+msg.Content, "")
		}
	}
	return lines
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, th := transcriptStyle.GetFrameSize()
		_, qh := inputStyle.GetFrameSize()
		vh := msg.Height - qh - th - 3
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = vh
		m.viewport.SetContent(strings.Join(m.transcript, "\n"))
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if msg.String() == "enter" && !m.waiting {
			question := strings.TrimSpace(m.input.Value())
			if question != "" {
				m.waiting = true
				m.status = "Thinking..."
				m.appendLine(questionStyle.Render("You: ") + question)
				m.input.Reset()
				return m, m.ask(question)
			}
		}

	case answerMsg:
		m.waiting = false
		m.status = "Ready."
		m.appendLine(answerStyle.Render("Assistant: ") + msg.result.Answer)
		for _, source := range msg.result.Sources {
			m.appendLine(sourceStyle.Render(fmt.Sprintf("  [%s, page %d]", source.Source, source.PageNumber)))
		}
		m.appendLine("")
		return m, nil

	case answerErrMsg:
		m.waiting = false
		m.status = errorStyle.Render("Error: " + msg.err.Error())
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Study Stream")
	transcript := transcriptStyle.Render(m.viewport.View())
	input := inputStyle.Render(m.input.View())
	return header + "\n" + transcript + "\n" + input + "\n" + m.status
}

// ask dispatches the question to a worker and converts the eventual
// callback into a Bubble Tea message.
func (m Model) ask(question string) tea.Cmd {
	t := m.assistant.AskAsync(context.Background(), question)
	return func() tea.Msg {
		result, err := t.Wait()
		if err != nil {
			return answerErrMsg{err: err}
		}
		return answerMsg{result: result}
	}
}

func (m *Model) appendLine(line string) {
	m.transcript = append(m.transcript, line)
	m.viewport.SetContent(strings.Join(m.transcript, "\n"))
	m.viewport.GotoBottom()
}

var (
	transcriptStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	questionStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	answerStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	sourceStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)
