package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// reporter receives render outcomes as they finish. done may be called from
// several goroutines.
type reporter interface {
	done(path string, err error)
	finish()
}

type plainReporter struct {
	w  io.Writer
	mu sync.Mutex
}

func (p *plainReporter) done(path string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		fmt.Fprintf(p.w, "%s %s: %v\n", errorStyle.Render("failed"), path, err)
		return
	}
	fmt.Fprintf(p.w, "%s %s\n", okStyle.Render("wrote"), path)
}

func (p *plainReporter) finish() {}

type renderDoneMsg struct {
	err  error
	path string
}

type allDoneMsg struct{}

type progressModel struct {
	cancel  func()
	start   time.Time
	title   string
	lastErr string
	last    string
	spin    spinner.Model
	bar     progress.Model
	total   int
	done    int
	failed  int
	stopped bool
}

func newProgressModel(title string, total int, cancel func()) *progressModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	return &progressModel{
		cancel: cancel,
		start:  time.Now(),
		title:  title,
		spin:   s,
		bar:    progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		total:  total,
	}
}

func (m *progressModel) Init() tea.Cmd {
	return m.spin.Tick
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.cancel()
			m.stopped = true
			return m, tea.Quit
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		pm, cmd := m.bar.Update(msg)
		m.bar = pm.(progress.Model)
		return m, cmd

	case renderDoneMsg:
		m.done++
		m.last = msg.path
		if msg.err != nil {
			m.failed++
			m.lastErr = msg.err.Error()
		}
		return m, m.bar.SetPercent(float64(m.done) / float64(m.total))

	case allDoneMsg:
		return m, tea.Quit
	}
	return m, nil
}

func (m *progressModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n")
	b.WriteString(m.spin.View())
	fmt.Fprintf(&b, " %d/%d rendered", m.done, m.total)
	if m.failed > 0 {
		b.WriteString(errorStyle.Render(fmt.Sprintf(", %d failed", m.failed)))
	}
	fmt.Fprintf(&b, " in %s\n", time.Since(m.start).Round(time.Millisecond))
	b.WriteString(m.bar.View())
	b.WriteString("\n")
	if m.last != "" {
		b.WriteString(okStyle.Render("last: " + m.last))
		b.WriteString("\n")
	}
	if m.lastErr != "" {
		b.WriteString(errorStyle.Render("error: " + m.lastErr))
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("q: cancel"))
	b.WriteString("\n")
	return b.String()
}

// teaReporter drives a progressModel running in its own program.
type teaReporter struct {
	program *tea.Program
	exited  chan error
}

func startTeaReporter(out io.Writer, title string, total int, cancel func()) *teaReporter {
	p := tea.NewProgram(newProgressModel(title, total, cancel), tea.WithOutput(out))
	r := &teaReporter{program: p, exited: make(chan error, 1)}
	go func() {
		_, err := p.Run()
		r.exited <- err
	}()
	return r
}

func (r *teaReporter) done(path string, err error) {
	r.program.Send(renderDoneMsg{path: path, err: err})
}

func (r *teaReporter) finish() {
	r.program.Send(allDoneMsg{})
	<-r.exited
}
