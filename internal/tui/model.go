// Package tui is a terminal chat over the notes. Every question is answered on its own;
// earlier turns are shown but never sent back to the model.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hyperjump/notionrag/internal/indexer"
	"github.com/hyperjump/notionrag/internal/models"
	"github.com/hyperjump/notionrag/internal/quota"
)

// WelcomeMessage opens every chat.
const WelcomeMessage = `Welcome, I'm really glad you're here. ✨

Whether you're feeling stuck, thinking about your next career move, or figuring out how to stay ahead in the AI era, I'm here to help you find clarity and move forward with confidence.

What's on your mind today?`

// SuggestedPrompts are offered with Tab.
var SuggestedPrompts = []string{
	"I feel stuck in my career",
	"I want to plan my next move",
	"I feel behind in AI",
	"I'm overthinking a decision",
}

// Asker answers one question.
type Asker interface {
	Ask(ctx context.Context, question string) (models.Answer, error)
}

// Quota tracks the user's daily prompts. Record reserves one atomically and
// fails with quota.ErrLimitReached when none are left; Release returns one.
type Quota interface {
	Usage(ctx context.Context, user string) (models.Usage, error)
	Record(ctx context.Context, user string) (models.Usage, error)
	Release(ctx context.Context, user string) (models.Usage, error)
}

type role int

const (
	roleAssistant role = iota
	roleUser
)

type turn struct {
	role role
	text string
}

type usageMsg struct {
	usage models.Usage
	err   error
}

type answerMsg struct {
	answer models.Answer
	usage  models.Usage
	err    error
}

// Model is the Bubble Tea model for the chat.
type Model struct {
	ctx        context.Context
	asker      Asker
	quota      Quota
	user       string
	input      textinput.Model
	viewport   viewport.Model
	spinner    spinner.Model
	transcript []turn
	usage      models.Usage
	pending    bool
	suggestion int
	status     string
	ready      bool
}

// New creates a chat for user.
func New(ctx context.Context, asker Asker, q Quota, user string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about your notes (Tab for ideas)"
	ti.Focus()
	ti.CharLimit = models.MaxQuestionLength
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{
		ctx:        ctx,
		asker:      asker,
		quota:      q,
		user:       user,
		input:      ti,
		viewport:   viewport.New(0, 0),
		spinner:    sp,
		transcript: []turn{{role: roleAssistant, text: WelcomeMessage}},
		usage:      models.Usage{Allowed: true},
	}
}

// Init loads today's usage.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.loadUsage())
}

func (m Model) loadUsage() tea.Cmd {
	return func() tea.Msg {
		u, err := m.quota.Usage(m.ctx, m.user)
		return usageMsg{usage: u, err: err}
	}
}

// ask reserves a prompt, then answers. Another chat or the HTTP API may share
// the same counter, so the cached usage is only a hint.
func (m Model) ask(question string) tea.Cmd {
	return func() tea.Msg {
		u, err := m.quota.Record(m.ctx, m.user)
		if errors.Is(err, quota.ErrLimitReached) {
			return answerMsg{answer: models.Answer{Question: question, Text: quota.LimitMessage(u.Limit)}, usage: u, err: err}
		}
		if err != nil {
			return answerMsg{answer: models.Answer{Question: question, Text: "Usage unavailable: " + err.Error(), Failed: true}, usage: m.usage, err: err}
		}
		a, err := m.asker.Ask(m.ctx, question)
		if errors.Is(err, indexer.ErrNoIndex) {
			if released, rerr := m.quota.Release(m.ctx, m.user); rerr == nil {
				u = released
			}
		}
		return answerMsg{answer: a, usage: u, err: err}
	}
}

// Update handles input, window and result messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, th := transcriptStyle.GetFrameSize()
		_, ih := inputStyle.GetFrameSize()
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = max(3, msg.Height-th-ih-3)
		m.refresh()
		return m, nil

	case usageMsg:
		if msg.err != nil {
			m.status = "Usage unavailable: " + msg.err.Error()
			return m, nil
		}
		m.usage = msg.usage
		m.status = m.usageLine()
		return m, nil

	case answerMsg:
		m.pending = false
		m.usage = msg.usage
		m.transcript = append(m.transcript, turn{role: roleAssistant, text: msg.answer.Text})
		m.status = m.usageLine()
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if !m.pending {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyTab:
			m.input.SetValue(SuggestedPrompts[m.suggestion%len(SuggestedPrompts)])
			m.input.CursorEnd()
			m.suggestion++
			return m, nil
		case tea.KeyEnter:
			return m.submit()
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	q := strings.TrimSpace(m.input.Value())
	if q == "" || m.pending {
		return m, nil
	}
	m.input.Reset()
	m.transcript = append(m.transcript, turn{role: roleUser, text: q})
	if !m.usage.Allowed {
		m.transcript = append(m.transcript, turn{role: roleAssistant, text: quota.LimitMessage(m.usage.Limit)})
		m.refresh()
		return m, nil
	}
	m.pending = true
	m.refresh()
	return m, tea.Batch(m.spinner.Tick, m.ask(q))
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m Model) usageLine() string {
	return fmt.Sprintf("%d of %d prompts used today", m.usage.Used, m.usage.Limit)
}

// View renders the transcript, input and status line.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := titleStyle.Render("Your Notes Coach")
	status := statusStyle.Render(m.status)
	if m.pending {
		status = m.spinner.View() + " thinking..."
	}
	return header + "\n" + transcriptStyle.Render(m.viewport.View()) + "\n" + inputStyle.Render(m.input.View()) + "\n" + status
}

func (m Model) renderTranscript() string {
	width := max(20, m.viewport.Width-2)
	wrap := lipgloss.NewStyle().Width(width)
	var b strings.Builder
	for i, t := range m.transcript {
		if i > 0 {
			b.WriteString("\n\n")
		}
		switch t.role {
		case roleUser:
			b.WriteString(userStyle.Render("You: "))
			b.WriteString(wrap.Render(t.text))
		default:
			b.WriteString(wrap.Render(t.text))
		}
	}
	return b.String()
}

var (
	titleStyle      = lipgloss.NewStyle().Bold(true)
	userStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	transcriptStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// Run starts the chat in the terminal and blocks until the user quits.
func Run(ctx context.Context, asker Asker, q Quota, user string) error {
	_, err := tea.NewProgram(New(ctx, asker, q, user), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}
