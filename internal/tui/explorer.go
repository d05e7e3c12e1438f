package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/KaramelBytes/healthlens-cli/internal/pipeline"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Runner produces pipeline results for a parameter set.
type Runner interface {
	Run(params pipeline.Params) (*pipeline.Result, error)
}

// Reloader is implemented by runners that can drop cached data.
type Reloader interface {
	Invalidate()
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230")).Background(lipgloss.Color("63")).Padding(0, 1)
	metricStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Padding(0, 1)
	barStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle     = lipgloss.NewStyle().Faint(true)
)

const barWidth = 40

type resultMsg struct {
	metric string
	res    *pipeline.Result
	err    error
}

// Model is the metric explorer: it shows the category mean of the selected metric
// and re-runs the pipeline when the selection changes.
type Model struct {
	runner  Runner
	bins    int
	metrics []string
	index   int
	loading bool
	spinner spinner.Model
	result  *pipeline.Result
	err     error
	width   int
}

// New starts the explorer on metric, falling back to the first selectable metric.
func New(runner Runner, metric string, bins int) *Model {
	m := &Model{
		runner:  runner,
		bins:    bins,
		metrics: pipeline.SelectableMetrics,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		loading: true,
	}
	for i, name := range m.metrics {
		if strings.EqualFold(name, metric) {
			m.index = i
		}
	}
	return m
}

// Metric returns the selected metric.
func (m *Model) Metric() string { return m.metrics[m.index] }

func (m *Model) runCmd() tea.Cmd {
	metric, bins, runner := m.Metric(), m.bins, m.runner
	return func() tea.Msg {
		res, err := runner.Run(pipeline.Params{Metric: metric, Bins: bins})
		return resultMsg{metric: metric, res: res, err: err}
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.runCmd())
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		case "right", "tab", "l":
			m.index = (m.index + 1) % len(m.metrics)
			m.loading = true
			return m, m.runCmd()
		case "left", "shift+tab", "h":
			m.index = (m.index + len(m.metrics) - 1) % len(m.metrics)
			m.loading = true
			return m, m.runCmd()
		case "r":
			if rl, ok := m.runner.(Reloader); ok {
				rl.Invalidate()
			}
			m.loading = true
			return m, m.runCmd()
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case resultMsg:
		// Drop results for a metric that is no longer selected.
		if msg.metric != m.Metric() {
			return m, nil
		}
		m.loading = false
		m.result, m.err = msg.res, msg.err
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("healthlens explorer"))
	b.WriteString("\n\n")
	for i, name := range m.metrics {
		if i == m.index {
			b.WriteString(selectedStyle.Render(name))
		} else {
			b.WriteString(metricStyle.Render(name))
		}
	}
	b.WriteString("\n\n")

	switch {
	case m.loading:
		b.WriteString(m.spinner.View() + " computing…\n")
	case m.err != nil:
		b.WriteString(errorStyle.Render("✗ " + m.err.Error()))
		b.WriteString("\n")
	case m.result != nil:
		b.WriteString(m.meansView())
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("←/→ switch metric • r reload • q quit"))
	return b.String()
}

func (m *Model) meansView() string {
	fig, ok := m.result.Figure(pipeline.MeanID(m.Metric()))
	if !ok {
		return ""
	}
	if fig.Failed() {
		return errorStyle.Render("⚠ "+fig.Error) + "\n"
	}
	labels, _ := fig.Frame.Col(fig.X)
	means, _ := fig.Frame.Col(fig.Y)
	labelWidth, hi := 0, 0.0
	for i := 0; i < labels.Len(); i++ {
		labelWidth = max(labelWidth, len(labels.Strings[i]))
		if !math.IsNaN(means.Floats[i]) {
			hi = math.Max(hi, means.Floats[i])
		}
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s (%d records)\n\n", fig.Title, m.result.Records))
	for i := 0; i < labels.Len(); i++ {
		v := means.Floats[i]
		n := 0
		if hi > 0 && !math.IsNaN(v) {
			n = int(math.Round(v / hi * barWidth))
		}
		b.WriteString(fmt.Sprintf("%-*s %s %s\n", labelWidth, labels.Strings[i], barStyle.Render(strings.Repeat("█", n)), means.Format(i)))
	}
	return b.String()
}

// Run starts the explorer in the alternate screen and blocks until the user quits.
func Run(runner Runner, metric string, bins int) error {
	p := tea.NewProgram(New(runner, metric, bins), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("explorer: %w", err)
	}
	return nil
}
