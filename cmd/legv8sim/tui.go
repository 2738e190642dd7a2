package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/spf13/cobra"

	"github.com/lookbusy1344/legv8-sim/config"
	"github.com/lookbusy1344/legv8-sim/internal/engine"
)

// simTUI is the interactive single-step front end, adapted from the
// teacher's debugger/tui.go: a tview.Application with bordered panels for
// the current micro-step trace, registers/flags, non-zero memory, and
// breakpoints, driven one micro-step at a time by F11/F10/F5 instead of a
// parsed command language (this engine has no expression evaluator).
type simTUI struct {
	app     *tview.Application
	engine  *engine.Engine

	traceView  *tview.TextView
	regView    *tview.TextView
	memView    *tview.TextView
	statusView *tview.TextView

	finished bool
}

func newSimTUI(e *engine.Engine) *simTUI {
	t := &simTUI{engine: e, app: tview.NewApplication()}

	t.traceView = tview.NewTextView().SetDynamicColors(true).SetScrollable(true)
	t.traceView.SetBorder(true).SetTitle(" Micro-step trace ")

	t.regView = tview.NewTextView().SetDynamicColors(true)
	t.regView.SetBorder(true).SetTitle(" Registers / Flags ")

	t.memView = tview.NewTextView().SetDynamicColors(true).SetScrollable(true)
	t.memView.SetBorder(true).SetTitle(" Non-zero memory ")

	t.statusView = tview.NewTextView().SetDynamicColors(true)
	t.statusView.SetBorder(true).SetTitle(" F11 micro-step | F10 next instruction | F5 run | F9 breakpoint | Ctrl-C quit ")

	right := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(t.regView, 0, 2, false).
		AddItem(t.memView, 0, 2, false)

	body := tview.NewFlex().
		AddItem(t.traceView, 0, 3, false).
		AddItem(right, 0, 2, false)

	layout := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(body, 0, 1, false).
		AddItem(t.statusView, 3, 0, false)

	t.app.SetRoot(layout, true)
	t.setupKeys()
	return t
}

func (t *simTUI) setupKeys() {
	t.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyF11:
			t.microStep()
			return nil
		case tcell.KeyF10:
			t.nextInstruction()
			return nil
		case tcell.KeyF5:
			t.runToEnd()
			return nil
		case tcell.KeyF9:
			t.toggleBreakpointAtPC()
			return nil
		case tcell.KeyCtrlC:
			t.app.Stop()
			return nil
		}
		return event
	})
}

func (t *simTUI) microStep() {
	if t.finished {
		return
	}
	res, err := t.engine.Step()
	if err != nil {
		t.logLine(fmt.Sprintf("[red]%s[white]", err))
		t.refresh()
		return
	}
	t.report(res)
	t.refresh()
}

// nextInstruction steps until the current instruction completes (or the
// program halts), matching the teacher's "next" debugger command.
func (t *simTUI) nextInstruction() {
	for !t.finished {
		res, err := t.engine.Step()
		if err != nil {
			t.logLine(fmt.Sprintf("[red]%s[white]", err))
			break
		}
		t.report(res)
		if res.Kind == engine.KindInstructionComplete || res.Kind == engine.KindBreakpoint || res.Kind == engine.KindError {
			break
		}
	}
	t.refresh()
}

func (t *simTUI) runToEnd() {
	for !t.finished {
		res, err := t.engine.Step()
		if err != nil {
			t.logLine(fmt.Sprintf("[red]%s[white]", err))
			break
		}
		t.report(res)
		if res.Kind == engine.KindBreakpoint || res.Kind == engine.KindError || res.Kind == engine.KindProgramFinished {
			break
		}
	}
	t.refresh()
}

func (t *simTUI) toggleBreakpointAtPC() {
	pc := t.engine.Inspect().PC
	bps := t.engine.Breakpoints()
	for _, addr := range bps {
		if addr == pc {
			t.engine.ClearBreakpoint(pc)
			t.logLine(fmt.Sprintf("breakpoint cleared at 0x%04X", pc))
			t.refresh()
			return
		}
	}
	t.engine.SetBreakpoint(pc)
	t.logLine(fmt.Sprintf("breakpoint set at 0x%04X", pc))
	t.refresh()
}

func (t *simTUI) report(res engine.StepResult) {
	switch res.Kind {
	case engine.KindMicroStep, engine.KindInstructionComplete:
		t.logLine(fmt.Sprintf("[%s] 0x%04X %s: %s", res.Record.Stage, res.Record.PC, res.Record.Instruction, res.Record.Log))
	case engine.KindBreakpoint:
		t.logLine(fmt.Sprintf("[yellow]breakpoint at 0x%04X[white]", res.BreakpointAddress))
	case engine.KindProgramFinished:
		t.finished = true
		t.logLine(fmt.Sprintf("[green]program finished: %s[white]", res.FinishedReason))
	case engine.KindError:
		t.finished = true
		t.logLine(fmt.Sprintf("[red]runtime error (%s): %s[white]", res.ErrKind, res.ErrMessage))
	}
}

func (t *simTUI) logLine(s string) {
	fmt.Fprintln(t.traceView, s)
	t.traceView.ScrollToEnd()
}

func (t *simTUI) refresh() {
	st := t.engine.Inspect()

	var regLines []string
	regLines = append(regLines, fmt.Sprintf("PC=0x%04X  N=%v Z=%v C=%v V=%v", st.PC, st.N, st.Z, st.C, st.V))
	for i := 0; i <= 30; i += 2 {
		n1, n2 := regName(i), regName(i+1)
		regLines = append(regLines, fmt.Sprintf("%-4s=0x%016X  %-4s=0x%016X", n1, st.Registers[n1], n2, st.Registers[n2]))
	}
	t.regView.SetText(strings.Join(regLines, "\n"))

	var memLines []string
	for _, entry := range st.Memory {
		memLines = append(memLines, fmt.Sprintf("0x%04X = 0x%016X", entry.Address, entry.Value))
	}
	if len(memLines) == 0 {
		memLines = append(memLines, "[gray](empty)[white]")
	}
	t.memView.SetText(strings.Join(memLines, "\n"))

	bps := t.engine.Breakpoints()
	sort.Slice(bps, func(i, j int) bool { return bps[i] < bps[j] })
	var bpText string
	for _, addr := range bps {
		bpText += fmt.Sprintf("0x%04X ", addr)
	}
	if bpText == "" {
		bpText = "(none)"
	}
	t.statusView.SetText(fmt.Sprintf("breakpoints: %s", bpText))

	t.app.Draw()
}

func (t *simTUI) Run() error {
	t.refresh()
	return t.app.Run()
}

// newTUICmd implements `legv8sim tui <file>`.
func newTUICmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tui <file.s>",
		Short: "Interactive single-step text user interface",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := readSourceFile(args[0])
			if err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("legv8sim: %w", err)
			}

			e := engine.New(cfg.History.Size)
			if err := e.Load(source); err != nil {
				return fmt.Errorf("legv8sim: load: %w", err)
			}

			return newSimTUI(e).Run()
		},
	}
	return cmd
}
