package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/graphtune/graphtune"
)

// TUIHandler renders a live stage/step checklist while a playbook runs.
type TUIHandler struct {
	program  *tea.Program
	model    *tuiModel
	errW     io.Writer
	mu       sync.Mutex
	finished bool
}

// NewTUIHandler creates a TUI handler writing to w. Out-of-band error text
// goes to errW.
func NewTUIHandler(w, errW io.Writer) *TUIHandler {
	model := newTUIModel()

	opts := []tea.ProgramOption{
		tea.WithOutput(w),
		tea.WithoutSignalHandler(),
	}

	// Only read input when attached to a terminal.
	if f, ok := w.(*os.File); !ok || !isatty.IsTerminal(f.Fd()) {
		opts = append(opts, tea.WithInput(nil))
	}

	return &TUIHandler{
		program: tea.NewProgram(model, opts...),
		model:   model,
		errW:    errW,
	}
}

// SetPlaybook builds the checklist rows from the playbook before the run.
func (t *TUIHandler) SetPlaybook(pb *graphtune.Playbook) {
	t.model.setPlaybook(pb)
}

// Start begins the TUI event loop. Call this before running the playbook.
func (t *TUIHandler) Start() error {
	go func() {
		_, _ = t.program.Run()
	}()

	// Give the program a moment to initialize
	time.Sleep(20 * time.Millisecond)

	return nil
}

// Event sends a run event to the TUI.
func (t *TUIHandler) Event(_ context.Context, event Event, _ *Result) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.finished {
		return nil
	}

	t.program.Send(stepEventMsg(event))

	return nil
}

// Err writes error text to the error writer.
func (t *TUIHandler) Err(text string) error {
	_, err := fmt.Fprintln(t.errW, text)

	return err
}

// Summary stops the TUI and prints the final static output.
func (t *TUIHandler) Summary(result *Result) error {
	t.mu.Lock()
	t.finished = true
	t.mu.Unlock()

	t.program.Send(doneMsg{result: result})
	t.program.Wait()

	_, err := io.WriteString(os.Stdout, t.model.FinalView()+"\n")

	return err
}

// -----------------------------------------------------------------------------
// Model
// -----------------------------------------------------------------------------

type rowKind int

const (
	kindStage rowKind = iota
	kindStep
)

type rowStatus int

const (
	statusPending rowStatus = iota
	statusRunning
	statusPass
	statusFail
	statusSkip
	statusError
)

type tuiRow struct {
	kind    rowKind
	path    string // stage/step for steps, stage name for stages
	name    string
	status  rowStatus
	elapsed time.Duration
	detail  string // failed expectation or engine error
}

type stepEventMsg Event

type doneMsg struct {
	result *Result
}

type tuiModel struct {
	mu      sync.Mutex
	rows    []tuiRow
	byPath  map[string]int
	spinner spinner.Model
	styles  *Styles
	done    bool
	result  *Result
}

func newTUIModel() *tuiModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(colorRunning)

	return &tuiModel{
		byPath:  make(map[string]int),
		spinner: sp,
		styles:  DefaultStyles(),
	}
}

func (m *tuiModel) setPlaybook(pb *graphtune.Playbook) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, stage := range pb.Stages {
		m.rows = append(m.rows, tuiRow{kind: kindStage, path: stage.Name, name: stage.Name})

		for _, step := range stage.Steps {
			path := stage.Name + "/" + step.Name
			m.byPath[path] = len(m.rows)
			m.rows = append(m.rows, tuiRow{kind: kindStep, path: path, name: step.Name})
		}
	}
}

func (m *tuiModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m *tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}

		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)

		return m, cmd

	case stepEventMsg:
		m.apply(Event(msg))

		return m, nil

	case doneMsg:
		m.mu.Lock()
		m.done = true
		m.result = msg.result
		m.mu.Unlock()

		return m, tea.Quit
	}

	return m, nil
}

func (m *tuiModel) apply(event Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx, ok := m.byPath[event.PathString()]
	if !ok {
		return
	}

	row := &m.rows[idx]

	switch event.Action {
	case ActionRun:
		row.status = statusRunning
	case ActionPass:
		row.status = statusPass
		row.elapsed = event.Elapsed
	case ActionFail:
		row.status = statusFail
		row.elapsed = event.Elapsed
		row.detail = event.Field
	case ActionSkip:
		row.status = statusSkip
		row.elapsed = event.Elapsed
	case ActionError:
		row.status = statusError
		row.elapsed = event.Elapsed

		if event.Error != nil {
			row.detail = event.Error.Error()
		}
	case ActionOutput:
	}
}

func (m *tuiModel) View() string {
	return m.render(true)
}

// FinalView renders the checklist without the spinner, for static output
// after the program exits.
func (m *tuiModel) FinalView() string {
	return m.render(false)
}

func (m *tuiModel) render(live bool) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.styles

	var b strings.Builder

	for _, row := range m.rows {
		if row.kind == kindStage {
			b.WriteString(s.Stage.Render(row.name))
			b.WriteString("\n")

			continue
		}

		symbol := s.Dim.Render("·")

		switch row.status {
		case statusRunning:
			if live {
				symbol = m.spinner.View()
			} else {
				symbol = s.Running.Render(s.SymbolRunning)
			}
		case statusPass:
			symbol = s.Pass.Render(s.SymbolPass)
		case statusFail:
			symbol = s.Fail.Render(s.SymbolFail)
		case statusSkip:
			symbol = s.Skip.Render(s.SymbolSkip)
		case statusError:
			symbol = s.Error.Render(s.SymbolFail)
		case statusPending:
		}

		b.WriteString(fmt.Sprintf("  %s %s", symbol, s.StepName.Render(row.name)))

		if row.elapsed > 0 {
			b.WriteString(" " + s.Duration.Render(row.elapsed.Round(time.Millisecond).String()))
		}

		if row.detail != "" {
			b.WriteString("\n      " + s.Muted.Render(row.detail))
		}

		b.WriteString("\n")
	}

	if m.done && m.result != nil {
		line := fmt.Sprintf("%d steps: %d passed, %d failed, %d skipped, %d errors in %s",
			m.result.Total, m.result.Passed, m.result.Failed, m.result.Skipped, m.result.Errors,
			m.result.Elapsed().Round(time.Millisecond))

		style := s.Pass
		if !m.result.Ok() {
			style = s.Fail
		}

		b.WriteString("\n" + style.Render(line) + "\n")
	}

	return strings.TrimRight(b.String(), "\n")
}
