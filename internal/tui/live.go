// Package tui renders simulations in the terminal: a live view following a
// run as it integrates, and static trajectory plots for archived runs.
package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/ecodyn/foodweb/internal/dynamics"
	"github.com/ecodyn/foodweb/internal/measure"
	"github.com/ecodyn/foodweb/internal/sim"
)

const historyCapacity = 600

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(14)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	doneStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

type sampleMsg struct {
	x dynamics.State
	t float64
}

type doneMsg struct {
	result *sim.Result
	err    error
}

// channelObserver forwards accepted steps out of the simulation goroutine.
type channelObserver struct {
	ch chan sampleMsg
}

func (o *channelObserver) OnStep(x dynamics.State, t float64) {
	select {
	case o.ch <- sampleMsg{x: x.Clone(), t: t}:
	default: // rendering is slower than integration; drop frames
	}
}

// Live is the bubbletea model following one simulation run.
type Live struct {
	label   string
	model   *dynamics.Model
	result  *sim.Result
	err     error
	samples chan sampleMsg
	done    chan doneMsg
	cancel  context.CancelFunc

	t       float64
	biomass []float64
	alive   int
	paused  bool
}

// NewLive starts the run in the background and returns the view following it.
func NewLive(label string, model *dynamics.Model, integ dynamics.Integrator, cfg sim.Config) *Live {
	samples := make(chan sampleMsg, 64)
	done := make(chan doneMsg, 1)
	ctx, cancel := context.WithCancel(context.Background())

	l := &Live{
		label:   label,
		model:   model,
		samples: samples,
		done:    done,
		cancel:  cancel,
		alive:   model.S(),
	}

	driver := sim.New(model, integ, sim.WithObserver(&channelObserver{ch: samples}))
	go func() {
		result, err := driver.Run(ctx, nil, cfg)
		done <- doneMsg{result: result, err: err}
	}()
	return l
}

func (l *Live) Init() tea.Cmd { return l.wait() }

// wait blocks on the next sample or the run finishing.
func (l *Live) wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case s := <-l.samples:
			return s
		case d := <-l.done:
			return d
		}
	}
}

func (l *Live) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			l.cancel()
			return l, tea.Quit
		case " ":
			l.paused = !l.paused
			if !l.paused {
				return l, l.wait()
			}
		}
	case sampleMsg:
		l.t = msg.t
		l.biomass = append(l.biomass, measure.TotalBiomass(msg.x, l.model.S()))
		if len(l.biomass) > historyCapacity {
			l.biomass = l.biomass[1:]
		}
		l.alive = 0
		for i := 0; i < l.model.S(); i++ {
			if msg.x[i] > 0 {
				l.alive++
			}
		}
		if l.paused {
			return l, nil
		}
		return l, l.wait()
	case doneMsg:
		l.result = msg.result
		l.err = msg.err
		return l, nil
	}
	return l, nil
}

func (l *Live) View() string {
	var s strings.Builder
	s.WriteString(headerStyle.Render(strings.ToUpper(l.label)) + "\n")

	if len(l.biomass) > 1 {
		chart := asciigraph.Plot(l.biomass,
			asciigraph.Height(10), asciigraph.Width(60),
			asciigraph.Caption("community biomass"))
		s.WriteString(graphStyle.Render(chart) + "\n\n")
	}

	s.WriteString(labelStyle.Render("Time") + valueStyle.Render(fmt.Sprintf("%.1f", l.t)) + "\n")
	s.WriteString(labelStyle.Render("Species alive") + valueStyle.Render(fmt.Sprintf("%d / %d", l.alive, l.model.S())) + "\n")
	if len(l.biomass) > 0 {
		s.WriteString(labelStyle.Render("Biomass") + valueStyle.Render(fmt.Sprintf("%.4f", l.biomass[len(l.biomass)-1])) + "\n")
	}

	switch {
	case l.err != nil:
		s.WriteString("\n" + doneStyle.Render(fmt.Sprintf("ERROR: %v", l.err)) + "\n")
	case l.result != nil:
		s.WriteString("\n" + doneStyle.Render(fmt.Sprintf("FINISHED: %s after %d steps", l.result.Status, l.result.StepsTaken)) + "\n")
	case l.paused:
		s.WriteString("\n" + doneStyle.Render("PAUSED") + "\n")
	}

	s.WriteString(helpStyle.Render("SP:Pause Q:Quit"))
	return s.String()
}
