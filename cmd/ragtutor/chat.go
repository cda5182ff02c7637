package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/a-h/ragtutor/client"
	"github.com/a-h/ragtutor/models"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

type ChatCommand struct {
	RAGServerURL    string `help:"The URL of the tutoring server." env:"RAG_SERVER_URL" default:"http://localhost:9020"`
	RAGServerAPIKey string `help:"The API key for the tutoring server. Without it, the conversation isn't saved." env:"RAG_SERVER_API_KEY" default:""`
	SessionID       string `help:"Continue an existing chat session." default:""`
	Document        string `help:"Only use this document to answer questions." default:""`
	LogLevel        string `help:"The log level to use." env:"LOG_LEVEL" default:"info"`
}

func (c ChatCommand) Run(ctx context.Context) (err error) {
	rsc := client.New(c.RAGServerURL, c.RAGServerAPIKey)

	toServer := make(chan string)
	fromServer := make(chan []turn)
	errors := make(chan error)
	defer close(toServer)

	go func() {
		sessionID := c.SessionID
		var turns []turn
		for question := range toServer {
			turns = append(turns, turn{Role: roleStudent, Content: question}, turn{Role: roleTutor, Content: "..."})
			fromServer <- clone(turns)

			resp, err := rsc.ChatPost(ctx, models.ChatPostRequest{
				Question:       question,
				SessionID:      sessionID,
				FilterDocument: c.Document,
			})
			if err != nil {
				turns = turns[:len(turns)-1]
				fromServer <- clone(turns)
				errors <- err
				continue
			}
			if resp.Saved != nil {
				sessionID = *resp.Saved
			}
			turns[len(turns)-1].Content = resp.Answer
			turns = append(turns, turn{Role: roleNote, Content: sourcesNote(resp)})
			fromServer <- clone(turns)
		}
	}()

	p := tea.NewProgram(newModel(ctx, toServer, fromServer, errors))
	if _, err = p.Run(); err != nil {
		return err
	}
	return nil
}

type role int

const (
	roleStudent role = iota
	roleTutor
	roleNote
)

type turn struct {
	Role    role
	Content string
}

func clone(turns []turn) []turn {
	return append([]turn(nil), turns...)
}

// sourcesNote tells the student where the answer came from.
func sourcesNote(resp models.ChatPostResponse) string {
	if resp.OutOfContext {
		return "Not based on your course material."
	}
	titles := make([]string, len(resp.TopChunks))
	for i, c := range resp.TopChunks {
		titles[i] = fmt.Sprintf("%s (chunk %d)", c.DocumentTitle, c.ChunkIndex)
	}
	return "Sources: " + strings.Join(titles, ", ")
}

// Dracula color scheme.
var (
	Background  = lipgloss.Color("#282a36")
	CurrentLine = lipgloss.Color("#44475a")
	Selection   = lipgloss.Color("#44475a")
	Foreground  = lipgloss.Color("#f8f8f2")
	Comment     = lipgloss.Color("#6272a4")
	Cyan        = lipgloss.Color("#8be9fd")
	Green       = lipgloss.Color("#50fa7b")
	Orange      = lipgloss.Color("#ffb86c")
	Pink        = lipgloss.Color("#ff79c6")
	Purple      = lipgloss.Color("#bd93f9")
	Red         = lipgloss.Color("#ff5555")
	Yellow      = lipgloss.Color("#f1fa8c")
)

var headerStyle = lipgloss.NewStyle().Background(CurrentLine).Foreground(Purple).Bold(true).Margin(10).Padding(1).PaddingTop(0)

var header = `
 _______  __   __  _______  _______  ______   
|       ||  | |  ||       ||       ||    _ |  
|_     _||  | |  ||_     _||   _   ||   | ||  
  |   |  |  |_|  |  |   |  |  | |  ||   |_||_ 
  |   |  |       |  |   |  |  |_|  ||    __  |
  |   |  |       |  |   |  |       ||   |  | |
  |___|  |_______|  |___|  |_______||___|  |_|
`

type model struct {
	viewport viewport.Model
	textarea textarea.Model
	err      error
	ctx      context.Context

	toServer   chan string
	fromServer chan []turn
	errors     chan error
}

func newModel(ctx context.Context, toServer chan string, fromServer chan []turn, errors chan error) model {
	ta := textarea.New()
	ta.Placeholder = "Ask a question..."
	ta.Focus()

	ta.Prompt = "┃ "
	ta.CharLimit = 1000

	ta.SetHeight(3)

	// Remove cursor line styling
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()

	ta.ShowLineNumbers = false

	vp := viewport.New(80, 20)
	vp.SetContent(headerStyle.Render(header))

	ta.KeyMap.InsertNewline.SetEnabled(false)

	return model{
		ctx:        ctx,
		textarea:   ta,
		viewport:   vp,
		fromServer: fromServer,
		toServer:   toServer,
		errors:     errors,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.subscribeToFromServer(),
		m.subscribeToErrors(),
	)
}

func (m model) subscribeToFromServer() tea.Cmd {
	return func() tea.Msg {
		select {
		case x := <-m.fromServer:
			return x
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m model) subscribeToErrors() tea.Cmd {
	return func() tea.Msg {
		select {
		case x := <-m.errors:
			return x
		case <-m.ctx.Done():
			return nil
		}
	}
}

var roleToStyle = map[role]lipgloss.Style{
	roleStudent: lipgloss.NewStyle().Padding(1).Margin(1).MarginBottom(0).Background(Background).Foreground(Pink),
	roleTutor:   lipgloss.NewStyle().Padding(1).Margin(1).MarginBottom(0).Background(Background).Foreground(Cyan),
	roleNote:    lipgloss.NewStyle().PaddingLeft(2).Foreground(Comment).Italic(true),
}

var roleToIcon = map[role]string{
	roleStudent: "🎒",
	roleTutor:   "🎓",
}

func formatTurn(t turn) string {
	style, ok := roleToStyle[t.Role]
	if !ok {
		return t.Content
	}
	text := t.Content
	if icon, ok := roleToIcon[t.Role]; ok {
		text = icon + " " + text
	}
	return style.Render(wordwrap.String(strings.TrimSpace(text), 80))
}

var errorStyle = lipgloss.NewStyle().Foreground(Red)

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case error:
		m.err = msg
		return m, m.subscribeToErrors()
	case []turn:
		m.err = nil
		var sb strings.Builder
		for _, t := range msg {
			sb.WriteString(formatTurn(t))
			sb.WriteString("\n")
		}
		m.viewport.SetContent(sb.String())
		m.viewport.GotoBottom()
		return m, m.subscribeToFromServer()
	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height - m.textarea.Height() - 4
		m.textarea.SetWidth(msg.Width)
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "ctrl+c":
			return m, tea.Quit
		case "enter":
			v := strings.TrimSpace(m.textarea.Value())
			if v == "" {
				// Don't send empty questions.
				return m, nil
			}
			m.textarea.Reset()
			// Sent from a command so the UI keeps updating while an answer is in flight.
			return m, func() tea.Msg {
				m.toServer <- v
				return nil
			}
		default:
			// Send all other keypresses to the textarea.
			var cmd tea.Cmd
			m.textarea, cmd = m.textarea.Update(msg)
			return m, cmd
		}

	case cursor.BlinkMsg:
		// Textarea should also process cursor blinks.
		var cmd tea.Cmd
		m.textarea, cmd = m.textarea.Update(msg)
		return m, cmd

	default:
		return m, nil
	}
}

func (m model) View() string {
	status := ""
	if m.err != nil {
		status = errorStyle.Render(m.err.Error())
	}
	return fmt.Sprintf("%s\n%s\n%s",
		m.viewport.View(),
		status,
		m.textarea.View(),
	) + "\n\n"
}
