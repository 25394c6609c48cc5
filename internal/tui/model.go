package tui

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"jargon-translator/internal/models"
	"jargon-translator/internal/parser"
	"jargon-translator/internal/translator"
)

// Translator is the TUI-facing subset of the translator service.
type Translator interface {
	LoadDocument(ctx context.Context, name, text string) (*translator.Document, []string)
	UnloadDocument()
	Translate(ctx context.Context, st translator.State, doc *translator.Document, role models.Role, statement string) (translator.State, models.Explanation, error)
	ExplainMore(ctx context.Context, st translator.State, role models.Role) (models.Explanation, error)
}

// Loader extracts the text of a document on disk.
type Loader func(path string) (*parser.Document, error)

type focus int

const (
	focusFile focus = iota
	focusRole
	focusStatement
	focusCount
)

type bannerKind int

const (
	bannerNone bannerKind = iota
	bannerSuccess
	bannerWarning
	bannerError
)

type documentLoadedMsg struct {
	doc      *translator.Document
	warnings []string
	err      error
}

type translatedMsg struct {
	state       translator.State
	explanation models.Explanation
	err         error
}

type explainedMsg struct {
	explanation models.Explanation
	err         error
}

// Model is the Bubble Tea model for the translator session.
type Model struct {
	ctx  context.Context
	svc  Translator
	load Loader

	file      textinput.Model
	statement textarea.Model
	output    viewport.Model
	spinner   spinner.Model
	focus     focus
	role      int

	state translator.State
	doc   *translator.Document

	busy       bool
	bannerKind bannerKind
	banner     string
	heading    string
	shown      string
	ready      bool
}

// New creates the TUI model. A nil loader uses parser.ParseFile.
func New(ctx context.Context, svc Translator, load Loader, state translator.State) Model {
	if load == nil {
		load = parser.ParseFile
	}

	fi := textinput.New()
	fi.Prompt = "Document: "
	fi.Placeholder = "path to a " + strings.Join(parser.Formats, ", ") + " file (optional)"
	fi.CharLimit = 0
	fi.Focus()

	ta := textarea.New()
	ta.Placeholder = "Enter a financial statement, e.g. \"EBITDA margin contracted 200bps YoY.\""
	ta.ShowLineNumbers = false
	ta.SetHeight(4)
	ta.CharLimit = 0

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	vp := viewport.New(0, 0)

	return Model{
		ctx:       ctx,
		svc:       svc,
		load:      load,
		file:      fi,
		statement: ta,
		output:    vp,
		spinner:   sp,
		state:     state,
	}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

// State returns the session state held by the model.
func (m Model) State() translator.State { return m.state }

func (m Model) Role() models.Role { return models.Roles[m.role] }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		w := max(20, msg.Width-4)
		m.file.Width = w - len(m.file.Prompt)
		m.statement.SetWidth(w)
		m.output.Width = w
		m.output.Height = max(3, msg.Height-headerHeight-m.statement.Height()-footerHeight)
		m.output.SetContent(m.renderOutput())
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case documentLoadedMsg:
		m.busy = false
		if msg.err != nil {
			m.setBanner(bannerError, "Could not read document: "+msg.err.Error())
			return m, nil
		}
		m.doc = msg.doc
		if len(msg.warnings) > 0 {
			m.setBanner(bannerWarning, strings.Join(msg.warnings, "\n"))
		} else {
			m.setBanner(bannerSuccess, fmt.Sprintf("Loaded %s (%d chunks)", msg.doc.Name, msg.doc.Chunks))
		}
		return m, nil

	case translatedMsg:
		m.busy = false
		if msg.err != nil {
			m.showError(msg.err)
			return m, nil
		}
		m.state = msg.state
		m.heading = "Simplified Explanation"
		m.bannerFor(msg.explanation.Warnings)
		m.shown = msg.explanation.Content
		m.output.SetContent(m.renderOutput())
		return m, nil

	case explainedMsg:
		m.busy = false
		if msg.err != nil {
			m.showError(msg.err)
			return m, nil
		}
		m.heading = "Even Simpler Explanation"
		m.bannerFor(nil)
		m.shown = msg.explanation.Content
		m.output.SetContent(m.renderOutput())
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		// one action at a time
		if m.busy {
			return m, nil
		}
		switch msg.String() {
		case "tab":
			return m.setFocus((m.focus + 1) % focusCount), nil
		case "shift+tab":
			return m.setFocus((m.focus + focusCount - 1) % focusCount), nil
		case "ctrl+s":
			return m.startTranslate()
		case "ctrl+e":
			return m.startExplainMore()
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.output, cmd = m.output.Update(msg)
			return m, cmd
		}

		switch m.focus {
		case focusFile:
			if msg.Type == tea.KeyEnter {
				return m.startLoad()
			}
		case focusRole:
			switch msg.String() {
			case "left", "h", "up", "k":
				m.role = (m.role + len(models.Roles) - 1) % len(models.Roles)
			case "right", "l", "down", "j":
				m.role = (m.role + 1) % len(models.Roles)
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	switch m.focus {
	case focusFile:
		m.file, cmd = m.file.Update(msg)
	case focusStatement:
		m.statement, cmd = m.statement.Update(msg)
	}
	return m, cmd
}

func (m Model) setFocus(f focus) Model {
	m.focus = f
	m.file.Blur()
	m.statement.Blur()
	switch f {
	case focusFile:
		m.file.Focus()
	case focusStatement:
		m.statement.Focus()
	}
	return m
}

func (m *Model) setBanner(kind bannerKind, text string) {
	m.bannerKind = kind
	m.banner = text
}

func (m *Model) bannerFor(warnings []string) {
	if len(warnings) > 0 {
		m.setBanner(bannerWarning, strings.Join(warnings, "\n"))
		return
	}
	m.setBanner(bannerSuccess, m.heading)
}

func (m *Model) showError(err error) {
	switch {
	case errors.Is(err, translator.ErrEmptyStatement), errors.Is(err, translator.ErrNoExplanation):
		m.setBanner(bannerWarning, capitalize(err.Error())+".")
	default:
		m.setBanner(bannerError, "Error: "+err.Error())
	}
}

func (m Model) startLoad() (tea.Model, tea.Cmd) {
	path := strings.TrimSpace(m.file.Value())
	if path == "" {
		m.svc.UnloadDocument()
		m.doc = nil
		m.setBanner(bannerWarning, "No document selected; explanations will not use document context.")
		return m, nil
	}

	m.busy = true
	m.setBanner(bannerNone, "Reading "+filepath.Base(path)+"...")
	ctx, svc, load := m.ctx, m.svc, m.load
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		parsed, err := load(path)
		if err != nil {
			return documentLoadedMsg{err: err}
		}
		doc, warnings := svc.LoadDocument(ctx, parsed.Name, parsed.Text)
		return documentLoadedMsg{doc: doc, warnings: append(parsed.Warnings, warnings...)}
	})
}

func (m Model) startTranslate() (tea.Model, tea.Cmd) {
	statement := m.statement.Value()
	if strings.TrimSpace(statement) == "" {
		m.showError(translator.ErrEmptyStatement)
		return m, nil
	}

	m.busy = true
	m.setBanner(bannerNone, "Translating...")
	ctx, svc, st, doc, role := m.ctx, m.svc, m.state, m.doc, m.Role()
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		next, out, err := svc.Translate(ctx, st, doc, role, statement)
		return translatedMsg{state: next, explanation: out, err: err}
	})
}

func (m Model) startExplainMore() (tea.Model, tea.Cmd) {
	if m.state.Explanation == "" {
		m.showError(translator.ErrNoExplanation)
		return m, nil
	}

	m.busy = true
	m.setBanner(bannerNone, "Simplifying...")
	ctx, svc, st, role := m.ctx, m.svc, m.state, m.Role()
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		out, err := svc.ExplainMore(ctx, st, role)
		return explainedMsg{explanation: out, err: err}
	})
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(models.AppTitle) + "\n")
	b.WriteString(subtitleStyle.Render(models.AppSubtitle) + "\n\n")
	b.WriteString(m.boxFor(focusFile).Render(m.file.View()) + "\n")
	b.WriteString(m.boxFor(focusRole).Render(m.renderRoles()) + "\n")
	b.WriteString(m.boxFor(focusStatement).Render(m.statement.View()) + "\n")
	b.WriteString(m.renderBanner() + "\n")
	b.WriteString(outputStyle.Render(m.output.View()) + "\n")
	b.WriteString(helpStyle.Render(m.help()))
	return b.String()
}

func (m Model) boxFor(f focus) lipgloss.Style {
	if m.focus == f {
		return focusedBoxStyle
	}
	return boxStyle
}

func (m Model) renderRoles() string {
	parts := make([]string, 0, len(models.Roles))
	for i, r := range models.Roles {
		if i == m.role {
			parts = append(parts, selectedRoleStyle.Render(r.String()))
		} else {
			parts = append(parts, roleStyle.Render(r.String()))
		}
	}
	return "Explain it for a: " + strings.Join(parts, " ")
}

func (m Model) renderBanner() string {
	if m.busy {
		return m.spinner.View() + " " + m.banner
	}
	switch m.bannerKind {
	case bannerSuccess:
		return successStyle.Render(m.banner)
	case bannerWarning:
		return warningStyle.Render(m.banner)
	case bannerError:
		return errorStyle.Render(m.banner)
	default:
		return m.banner
	}
}

func (m Model) renderOutput() string {
	text := m.shown
	if text == "" {
		text = m.state.Explanation
	}
	if text == "" {
		return "No explanation yet."
	}
	if m.output.Width <= 0 {
		return text
	}
	return lipgloss.NewStyle().Width(m.output.Width).Render(text)
}

// Shown is the explanation currently on screen.
func (m Model) Shown() string { return m.shown }

func (m Model) help() string {
	keys := []string{"tab: next field", "enter: load document", "ctrl+s: translate and explain"}
	if m.state.Explanation != "" {
		keys = append(keys, "ctrl+e: explain more")
	}
	keys = append(keys, "pgup/pgdown: scroll", "ctrl+c: quit")
	return strings.Join(keys, " • ")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
