package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jaxxstorm/pulumi-nginx-demo/internal/stack"
)

// Phase keys of an update.
const (
	PhaseChart        = "chart"
	PhaseController   = "controller"
	PhaseLoadBalancer = "loadbalancer"
	PhaseApps         = "apps"
	PhaseCommit       = "commit"
)

// Phase is an update phase for display.
type Phase struct {
	Name   string
	Key    string
	Done   bool
	Active bool
	Err    error
}

// Row is the latest status of one resource.
type Row struct {
	URN      string
	Type     string
	Name     string
	Op       stack.Op
	Status   stack.Status
	Attempt  int
	Err      error
	Duration time.Duration
}

// Model is the Bubble Tea model of the update view.
type Model struct {
	Stack string

	Phases []Phase
	Rows   []Row
	rowIdx map[string]int

	Outputs map[string]string

	StartTime    time.Time
	SpinnerFrame int

	Width  int
	Height int
	Err    error
	Done   bool
}

// NewUpModel creates the model for the up command.
func NewUpModel(stackName string) Model {
	return Model{
		Stack:     stackName,
		StartTime: time.Now(),
		rowIdx:    make(map[string]int),
		Phases: []Phase{
			{Name: "Ingress Chart: Fetch and Render", Key: PhaseChart},
			{Name: "Ingress Controller", Key: PhaseController},
			{Name: "Load Balancer Address", Key: PhaseLoadBalancer},
			{Name: "Production Apps", Key: PhaseApps},
			{Name: "Save State", Key: PhaseCommit},
		},
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height

	case PhaseMsg:
		m.updatePhase(msg)
		if msg.Err != nil {
			m.Err = msg.Err
			return m, tea.Quit
		}

	case EventMsg:
		m.updateRow(msg.Event)

	case TickMsg:
		m.SpinnerFrame++
		return m, tickCmd()

	case ErrMsg:
		m.Err = msg.Err
		return m, tea.Quit

	case DoneMsg:
		for i := range m.Phases {
			m.Phases[i].Done = true
			m.Phases[i].Active = false
		}
		m.Outputs = msg.Outputs
		m.Done = true
		return m, tea.Quit
	}

	return m, nil
}

func (m *Model) updatePhase(msg PhaseMsg) {
	idx := -1
	for i, phase := range m.Phases {
		if phase.Key == msg.Phase {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}

	for i := 0; i < idx; i++ {
		m.Phases[i].Done = true
		m.Phases[i].Active = false
	}

	if msg.Done {
		m.Phases[idx].Done = true
		m.Phases[idx].Active = false
	} else {
		m.Phases[idx].Active = true
	}

	if msg.Err != nil {
		m.Phases[idx].Err = msg.Err
	}
}

func (m *Model) updateRow(ev stack.Event) {
	if m.rowIdx == nil {
		m.rowIdx = make(map[string]int)
	}
	row := Row{
		URN:      ev.URN,
		Type:     ev.Type,
		Name:     ev.Name,
		Op:       ev.Op,
		Status:   ev.Status,
		Attempt:  ev.Attempt,
		Err:      ev.Err,
		Duration: ev.Duration,
	}
	if i, ok := m.rowIdx[ev.URN]; ok {
		m.Rows[i] = row
		return
	}
	m.rowIdx[ev.URN] = len(m.Rows)
	m.Rows = append(m.Rows, row)
}

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// View implements tea.Model.
func (m Model) View() string {
	return renderView(m)
}
