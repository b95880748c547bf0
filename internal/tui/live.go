// Package tui renders a sweep as it runs: per-lane verdicts, the
// running agreement ratio, and the most recent discrepancies.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/collidebench/internal/manager"
)

var (
	cyan    = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white   = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim     = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dimmer  = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	green   = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	yellow  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	red     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	magenta = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
)

type tickMsg manager.TickRecord

type doneMsg struct {
	result *manager.SweepResult
	err    error
}

type model struct {
	scenario string
	total    int

	ticks      int
	agreed     int
	last       manager.TickRecord
	discrepant []manager.TickRecord
	history    []float64

	result *manager.SweepResult
	err    error
	done   bool
	cancel context.CancelFunc

	width  int
	height int
}

func newModel(scenario string, total int, cancel context.CancelFunc) *model {
	return &model{
		scenario: scenario,
		total:    total,
		history:  make([]float64, 0, 256),
		cancel:   cancel,
		width:    80,
		height:   24,
	}
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "escape":
			m.cancel()
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tickMsg:
		rec := manager.TickRecord(msg)
		m.ticks++
		if rec.Verdict.Agree {
			m.agreed++
		}
		if !rec.Verdict.Agree || len(rec.States) > 0 {
			m.discrepant = append(m.discrepant, rec)
		}
		m.last = rec
		m.history = append(m.history, float64(m.agreed)/float64(m.ticks))
	case doneMsg:
		m.done = true
		m.result = msg.result
		m.err = msg.err
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(dimmer.Render("    ╺━━━━━━━━━━━━━━━━━━━━━━━━━━━━╸") + "\n")
	b.WriteString("        " + cyan.Render("collidebench") + "  " + dim.Render(m.scenario) + "\n")
	b.WriteString(dimmer.Render("    ╺━━━━━━━━━━━━━━━━━━━━━━━━━━━━╸") + "\n\n")

	barWidth := 36
	progress := 0.0
	if m.total > 0 {
		progress = float64(m.ticks) / float64(m.total)
		if progress > 1 {
			progress = 1
		}
	}
	filled := int(progress * float64(barWidth))
	bar := cyan.Render(strings.Repeat("━", filled)) + dimmer.Render(strings.Repeat("─", barWidth-filled))
	b.WriteString(fmt.Sprintf("    %s %s\n\n", bar,
		dim.Render(fmt.Sprintf("%d/%d ticks", m.ticks, m.total))))

	ratio := 1.0
	if m.ticks > 0 {
		ratio = float64(m.agreed) / float64(m.ticks)
	}
	ratioStyle := green
	if len(m.discrepant) > 0 {
		ratioStyle = yellow
	}
	b.WriteString("    " + dim.Render("agreement  ") + ratioStyle.Render(fmt.Sprintf("%.4f", ratio)) +
		dim.Render(fmt.Sprintf("   discrepant %d", len(m.discrepant))) + "\n")

	if len(m.history) > 1 {
		b.WriteString("    " + cyan.Render(sparkline(m.history, 40)) + "\n")
	}
	b.WriteString("\n")

	if m.ticks > 0 {
		b.WriteString("    " + dim.Render(fmt.Sprintf("tick %d at (%.2f, %.2f, %.2f)",
			m.last.Index, m.last.Position[0], m.last.Position[1], m.last.Position[2])) + "\n")
		for _, r := range m.last.Verdict.Reports {
			style := dim
			switch r.Verdict {
			case manager.VerdictCollide:
				style = magenta
			case manager.VerdictTie:
				style = yellow
			}
			b.WriteString(fmt.Sprintf("      %s %s %s\n",
				white.Render(fmt.Sprintf("%-10s", r.Lane)),
				style.Render(fmt.Sprintf("%-8s", r.Verdict.String())),
				dim.Render(fmt.Sprintf("depth %.4f", r.MaxDepth))))
		}
		b.WriteString("\n")
	}

	shown := m.discrepant
	if len(shown) > 5 {
		shown = shown[len(shown)-5:]
	}
	for _, t := range shown {
		cause := strings.Join(t.Disagreeing(), " vs ")
		if cause == "" {
			cause = "state drift"
		} else {
			cause = "lanes " + cause
		}
		b.WriteString("    " + red.Render("✗") + dim.Render(fmt.Sprintf(
			" tick %d (%.2f, %.2f, %.2f) %s",
			t.Index, t.Position[0], t.Position[1], t.Position[2], cause)) + "\n")
	}

	b.WriteString("\n")
	if m.done {
		if m.err != nil {
			b.WriteString("    " + red.Render(fmt.Sprintf("sweep aborted: %v", m.err)) + "\n")
		} else if m.result != nil && m.result.Passed() {
			b.WriteString("    " + green.Render("sweep passed") + dim.Render(
				fmt.Sprintf("  ratio %.4f ≥ %.4f", m.result.AgreementRatio(), m.result.Config.MinAgreement)) + "\n")
		} else if m.result != nil {
			b.WriteString("    " + red.Render("sweep flagged") + dim.Render(
				fmt.Sprintf("  ratio %.4f < %.4f", m.result.AgreementRatio(), m.result.Config.MinAgreement)) + "\n")
		}
		b.WriteString("\n" + dim.Render("    q quit") + "\n")
	} else {
		b.WriteString(dim.Render("    q abort") + "\n")
	}

	return b.String()
}

func sparkline(data []float64, width int) string {
	if len(data) == 0 {
		return ""
	}
	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}
	minVal, maxVal := data[0], data[0]
	for _, v := range data {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	rang := maxVal - minVal
	if rang == 0 {
		rang = 1
	}
	step := len(data) / width
	if step < 1 {
		step = 1
	}
	var sb strings.Builder
	for i := 0; i < width && i*step < len(data); i++ {
		v := data[i*step]
		idx := int((v - minVal) / rang * 7)
		if idx > 7 {
			idx = 7
		}
		if idx < 0 {
			idx = 0
		}
		sb.WriteRune(chars[idx])
	}
	return sb.String()
}

// RunLiveSweep runs the sweep in the background while the terminal
// shows its progress. Returns the sweep result once both finish.
func RunLiveSweep(ctx context.Context, mgr *manager.Manager, cfg manager.SweepConfig, scenario string, totalTicks int) (*manager.SweepResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newModel(scenario, totalTicks, cancel), tea.WithAltScreen())

	var res *manager.SweepResult
	var sweepErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		res, sweepErr = mgr.RunSweep(ctx, cfg, func(t manager.TickRecord) {
			p.Send(tickMsg(t))
		})
		p.Send(doneMsg{result: res, err: sweepErr})
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-done
		return res, err
	}
	cancel()
	<-done
	if sweepErr != nil && !errors.Is(sweepErr, context.Canceled) {
		return res, sweepErr
	}
	return res, nil
}
