package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	session "github.com/marketpulse/voice-core/core"
	"github.com/marketpulse/voice-core/core/events"
	"github.com/marketpulse/voice-core/core/stocks"
	"github.com/muesli/reflow/wordwrap"
)

const (
	pollInterval  = 200 * time.Millisecond
	visibleEvents = 12
)

type model struct {
	sess        *session.Session
	stockClient *stocks.Client
	board       *noticeBoard

	input     textinput.Model
	width     int
	height    int
	statusMsg string
	starting  bool
	headlines []stocks.Headline

	theme theme
}

type theme struct {
	header    lipgloss.Style
	idle      lipgloss.Style
	thinking  lipgloss.Style
	speaking  lipgloss.Style
	inbound   lipgloss.Style
	outbound  lipgloss.Style
	notice    lipgloss.Style
	headline  lipgloss.Style
	statusBar lipgloss.Style
}

func newTheme() theme {
	return theme{
		header:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
		idle:      lipgloss.NewStyle().Background(lipgloss.Color("240")).Foreground(lipgloss.Color("255")).Padding(0, 1),
		thinking:  lipgloss.NewStyle().Background(lipgloss.Color("178")).Foreground(lipgloss.Color("232")).Padding(0, 1),
		speaking:  lipgloss.NewStyle().Background(lipgloss.Color("41")).Foreground(lipgloss.Color("232")).Padding(0, 1),
		inbound:   lipgloss.NewStyle().Foreground(lipgloss.Color("45")),
		outbound:  lipgloss.NewStyle().Foreground(lipgloss.Color("213")),
		notice:    lipgloss.NewStyle().Foreground(lipgloss.Color("229")),
		headline:  lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		statusBar: lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
	}
}

type tickMsg time.Time

type headlinesMsg struct {
	headlines []stocks.Headline
	err       error
}

type sessionStartedMsg struct{ err error }

func newModel(sess *session.Session, stockClient *stocks.Client, board *noticeBoard) model {
	input := textinput.New()
	input.Prompt = "> "
	input.Placeholder = "type a message, ctrl+s to start/stop the session"
	input.CharLimit = 500
	input.Focus()

	return model{
		sess:        sess,
		stockClient: stockClient,
		board:       board,
		input:       input,
		statusMsg:   "ctrl+s starts the session",
		theme:       newTheme(),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(tick(), m.fetchHeadlines())
}

func tick() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) fetchHeadlines() tea.Cmd {
	client := m.stockClient
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		headlines, err := client.News(ctx)
		return headlinesMsg{headlines: headlines, err: err}
	}
}

func (m model) toggleSession() (model, tea.Cmd) {
	if m.starting {
		return m, nil
	}

	switch m.sess.State() {
	case session.StateIdle:
		m.starting = true
		m.statusMsg = "negotiating..."
		sess := m.sess
		return m, func() tea.Msg {
			return sessionStartedMsg{err: sess.Start(context.Background())}
		}
	default:
		if err := m.sess.Stop(); err != nil {
			m.statusMsg = "stop: " + err.Error()
		} else {
			m.statusMsg = "session stopped"
		}
		return m, nil
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = msg.Width - 4
		return m, nil

	case tickMsg:
		return m, tick()

	case headlinesMsg:
		if msg.err == nil {
			m.headlines = msg.headlines
		}
		return m, nil

	case sessionStartedMsg:
		m.starting = false
		if msg.err != nil {
			m.statusMsg = msg.err.Error()
		} else {
			m.statusMsg = "session started"
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			_ = m.sess.Stop()
			return m, tea.Quit
		case tea.KeyCtrlS:
			return m.toggleSession()
		case tea.KeyEnter:
			text := strings.TrimSpace(m.input.Value())
			if text == "" {
				return m, nil
			}
			if err := m.sess.SendText(text); err != nil {
				m.statusMsg = err.Error()
				return m, nil
			}
			m.input.Reset()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) View() string {
	width := m.width
	if width <= 0 {
		width = 80
	}

	var b strings.Builder
	b.WriteString(m.theme.header.Render("voicedesk"))
	b.WriteString("  ")
	b.WriteString(m.presenceBadge())
	b.WriteString("  ")
	b.WriteString(m.theme.statusBar.Render(string(m.sess.State())))
	b.WriteString("\n\n")

	for _, line := range m.eventLines() {
		b.WriteString(wordwrap.String(line, width-2))
		b.WriteString("\n")
	}

	notices, followed := m.board.snapshot()
	if len(followed) > 0 {
		b.WriteString("\n")
		b.WriteString(m.theme.notice.Render("following: " + strings.Join(followed, ", ")))
		b.WriteString("\n")
	}
	if len(notices) > 0 {
		b.WriteString(m.theme.notice.Render(notices[len(notices)-1]))
		b.WriteString("\n")
	}

	if len(m.headlines) > 0 {
		b.WriteString("\n")
		limit := min(3, len(m.headlines))
		for _, headline := range m.headlines[:limit] {
			b.WriteString(m.theme.headline.Render(wordwrap.String("• "+headline.Title, width-2)))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(m.theme.statusBar.Render(m.statusMsg))
	return b.String()
}

func (m model) presenceBadge() string {
	switch m.sess.Presence() {
	case session.PresenceSpeaking:
		return m.theme.speaking.Render("speaking")
	case session.PresenceThinking:
		return m.theme.thinking.Render("thinking")
	default:
		return m.theme.idle.Render("idle")
	}
}

// eventLines renders the newest events, newest first, the way the log
// exposes them.
func (m model) eventLines() []string {
	logged := m.sess.Events()
	if len(logged) > visibleEvents {
		logged = logged[:visibleEvents]
	}

	lines := make([]string, 0, len(logged))
	for _, event := range logged {
		marker := m.theme.inbound.Render("<-")
		if event.Direction == events.DirectionOutbound {
			marker = m.theme.outbound.Render("->")
		}
		lines = append(lines, fmt.Sprintf("%s %s %s%s",
			event.Timestamp.Format("15:04:05"), marker, event.Type, eventDetail(event)))
	}
	return lines
}

func eventDetail(event events.Event) string {
	switch {
	case event.Item != nil && len(event.Item.Content) > 0:
		return "  " + event.Item.Content[0].Text
	case event.Response != nil && event.Response.Instructions != "":
		return "  " + event.Response.Instructions
	case event.Session != nil:
		return fmt.Sprintf("  %d tools", len(event.Session.Tools))
	}
	return ""
}
