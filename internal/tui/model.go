package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/taskpipe/taskpipe/internal/events"
	"github.com/taskpipe/taskpipe/internal/task"
)

// taskState is the display state of one plan entry.
type taskState struct {
	name   string
	status string
	output []string
}

// Model is the root Bubble Tea model: the plan's tasks with live statuses, a
// progress bar over the plan, and a viewport showing the selected task's
// output.
type Model struct {
	tasks    []*taskState
	index    map[string]*taskState
	selected int

	bar      progress.Model
	percent  float64
	viewport viewport.Model

	eventSub <-chan events.Event
	stayOpen bool // watch mode keeps the TUI up after a run finishes
	finished bool
	exitCode int
	width    int
	height   int
}

// New creates a TUI model for the given plan, subscribed to all bus events.
func New(bus *events.Bus, plan []*task.Task, stayOpen bool) Model {
	m := Model{
		tasks:    make([]*taskState, 0, len(plan)),
		index:    make(map[string]*taskState, len(plan)),
		bar:      progress.New(progress.WithDefaultGradient()),
		viewport: viewport.New(0, 0),
		eventSub: bus.SubscribeAll(256),
		stayOpen: stayOpen,
	}

	for _, t := range plan {
		st := &taskState{name: t.Name, status: "pending"}
		m.tasks = append(m.tasks, st)
		m.index[t.Name] = st
	}

	return m
}

// Init starts waiting for bus events.
func (m Model) Init() tea.Cmd {
	return waitForEvent(m.eventSub)
}

// waitForEvent returns a command that delivers the next bus event.
func waitForEvent(sub <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-sub
		if !ok {
			return nil // bus closed
		}
		return event
	}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = msg.Width - 4
		m.viewport.Width = msg.Width - 4
		m.viewport.Height = max(msg.Height-len(m.tasks)-8, 3)
		m.refreshViewport()

	case tea.KeyMsg:
		switch msg.String() {
		case KeyQuit, KeyCtrlC:
			return m, tea.Quit
		case KeyJ, KeyDown:
			if m.selected < len(m.tasks)-1 {
				m.selected++
				m.refreshViewport()
			}
		case KeyK, KeyUp:
			if m.selected > 0 {
				m.selected--
				m.refreshViewport()
			}
		default:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case events.Event:
		m.apply(msg)
		if m.finished && !m.stayOpen {
			return m, tea.Quit
		}
		return m, waitForEvent(m.eventSub)
	}

	return m, nil
}

// apply folds one bus event into the display state.
func (m *Model) apply(event events.Event) {
	switch e := event.(type) {
	case events.TaskStartedEvent:
		if st := m.index[e.Name]; st != nil {
			st.status = "running"
		}

	case events.TaskOutputEvent:
		if st := m.index[e.Name]; st != nil {
			st.output = append(st.output, e.Line)
			if m.tasks[m.selected] == st {
				m.refreshViewport()
			}
		}

	case events.TaskCompletedEvent:
		if st := m.index[e.Name]; st != nil {
			st.status = "completed"
		}

	case events.TaskFailedEvent:
		if st := m.index[e.Name]; st != nil {
			st.status = "failed"
		}

	case events.PlanProgressEvent:
		if e.Total > 0 {
			m.percent = float64(e.Done+e.Failed) / float64(e.Total)
		}

	case events.RunFinishedEvent:
		m.finished = true
		m.exitCode = e.ExitCode
		if m.stayOpen {
			// Next iteration starts from a clean slate.
			m.resetStatuses()
		}
	}
}

func (m *Model) resetStatuses() {
	for _, st := range m.tasks {
		st.status = "pending"
	}
}

func (m *Model) refreshViewport() {
	if len(m.tasks) == 0 {
		return
	}

	st := m.tasks[m.selected]
	m.viewport.SetContent(strings.Join(st.output, "\n"))
	m.viewport.GotoBottom()
}

// View renders the run view.
func (m Model) View() string {
	if m.width == 0 {
		return ""
	}

	var b strings.Builder

	b.WriteString(StyleTitle.Render("taskpipe"))
	b.WriteString("\n\n")
	b.WriteString(m.bar.ViewAs(m.percent))
	b.WriteString("\n\n")

	for i, st := range m.tasks {
		marker := "  "
		name := st.name
		if i == m.selected {
			marker = "> "
			name = StyleSelected.Render(name)
		}
		b.WriteString(fmt.Sprintf("%s%s %s\n", marker, name, statusStyle(st.status).Render(st.status)))
	}

	b.WriteString("\n")
	b.WriteString(StyleBorder.Render(m.viewport.View()))
	b.WriteString("\n")

	if m.finished {
		summary := StyleStatusCompleted.Render("all tasks completed")
		if m.exitCode != 0 {
			summary = StyleStatusFailed.Render(fmt.Sprintf("run failed with exit code %d", m.exitCode))
		}
		b.WriteString(summary)
		b.WriteString("\n")
	}

	b.WriteString(HelpView())

	return lipgloss.NewStyle().Padding(0, 1).Render(b.String())
}
