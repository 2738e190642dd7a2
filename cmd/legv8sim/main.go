// Command legv8sim is the CLI front end for the LEGv8 micro-step simulator.
// Grounded on the teacher's flag-based main.go for subcommand responsibility
// (run/step/assemble map onto the old -debug/-tui/no-flag run modes) and on
// oisee-z80-optimizer/cmd/z80opt/main.go for the cobra root-command-with-
// subcommands shape this repository actually adopts.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lookbusy1344/legv8-sim/config"
	"github.com/lookbusy1344/legv8-sim/internal/asm"
	"github.com/lookbusy1344/legv8-sim/internal/engine"
	"github.com/lookbusy1344/legv8-sim/internal/imem"
)

// Version information, overridable at build time with:
// go build -ldflags "-X main.Version=v1.2.3"
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "legv8sim",
		Short:   "LEGv8 micro-step instruction set simulator",
		Version: fmt.Sprintf("%s (%s)", Version, Commit),
	}

	root.AddCommand(newRunCmd())
	root.AddCommand(newStepCmd())
	root.AddCommand(newAssembleCmd())
	root.AddCommand(newTUICmd())

	return root
}

// newRunCmd implements `legv8sim run <file>`: assemble and execute a program
// to completion, then print final register/flag state.
func newRunCmd() *cobra.Command {
	var maxInstructions uint64
	var breakpoints []string
	var traceAll bool

	cmd := &cobra.Command{
		Use:   "run <file.s>",
		Short: "Assemble and run a program to completion",
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
			if maxInstructions == 0 {
				maxInstructions = cfg.Execution.MaxInstructions
			}

			e := engine.New(cfg.History.Size)
			if err := e.Load(source); err != nil {
				return fmt.Errorf("legv8sim: load: %w", err)
			}
			for _, bp := range breakpoints {
				addr, err := resolveBreakpoint(e, bp)
				if err != nil {
					return err
				}
				e.SetBreakpoint(addr)
			}

			var completed uint64
			for {
				if maxInstructions > 0 && completed >= maxInstructions {
					fmt.Printf("stopped: reached max-instructions=%d\n", maxInstructions)
					break
				}
				res, err := e.Step()
				if err != nil {
					return fmt.Errorf("legv8sim: %w", err)
				}
				switch res.Kind {
				case engine.KindInstructionComplete:
					completed++
					if traceAll {
						fmt.Printf("0x%04X: %s\n", res.Record.PC, res.Record.Instruction)
					}
				case engine.KindBreakpoint:
					fmt.Printf("breakpoint hit at 0x%04X\n", res.BreakpointAddress)
					printState(e)
					return nil
				case engine.KindProgramFinished:
					fmt.Printf("program finished: %s\n", res.FinishedReason)
					printState(e)
					return nil
				case engine.KindError:
					fmt.Printf("runtime error (%s): %s\n", res.ErrKind, res.ErrMessage)
					printState(e)
					return nil
				}
			}
			printState(e)
			return nil
		},
	}
	cmd.Flags().Uint64Var(&maxInstructions, "max-instructions", 0, "stop after this many completed instructions (0 = use config default)")
	cmd.Flags().StringArrayVar(&breakpoints, "break", nil, "breakpoint address (hex, e.g. 0x10) or label name, repeatable")
	cmd.Flags().BoolVar(&traceAll, "trace", false, "print every completed instruction as it executes")
	return cmd
}

// newStepCmd implements `legv8sim step <file>`: step through the program one
// micro-step at a time, printing one line per micro-step record until the
// program finishes or errors. It does not wait for input between steps.
func newStepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "step <file.s>",
		Short: "Single-step a program, printing one micro-step per line",
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

			for {
				res, err := e.Step()
				if err != nil {
					return fmt.Errorf("legv8sim: %w", err)
				}
				switch res.Kind {
				case engine.KindMicroStep:
					fmt.Printf("[%s] 0x%04X %s: %s\n", res.Record.Stage, res.Record.PC, res.Record.Instruction, res.Record.Log)
				case engine.KindInstructionComplete:
					fmt.Printf("[%s] 0x%04X %s: %s\n", res.Record.Stage, res.Record.PC, res.Record.Instruction, res.Record.Log)
				case engine.KindBreakpoint:
					fmt.Printf("breakpoint at 0x%04X\n", res.BreakpointAddress)
				case engine.KindProgramFinished:
					fmt.Printf("program finished: %s\n", res.FinishedReason)
					return nil
				case engine.KindError:
					fmt.Printf("runtime error (%s): %s\n", res.ErrKind, res.ErrMessage)
					return nil
				}
			}
		},
	}
	return cmd
}

// newAssembleCmd implements `legv8sim assemble <file>`: assemble only, then
// print the resolved label table and byte layout without executing.
func newAssembleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assemble <file.s>",
		Short: "Assemble a program and print its label table and layout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := os.ReadFile(args[0]) // #nosec G304 -- user-supplied source path
			if err != nil {
				return fmt.Errorf("legv8sim: %w", err)
			}

			im := imem.New()
			labels, err := asm.Assemble(string(source), im)
			if err != nil {
				return fmt.Errorf("legv8sim: assemble: %w", err)
			}

			if len(labels) > 0 {
				fmt.Println("labels:")
				for name, addr := range labels {
					fmt.Printf("  %-16s 0x%04X\n", name, addr)
				}
			}

			fmt.Println("instructions:")
			for addr := uint64(0); ; addr += 4 {
				text, ok := im.Processed(addr)
				if !ok {
					break
				}
				fmt.Printf("  0x%04X  %s\n", addr, text)
			}
			return nil
		},
	}
	return cmd
}

// printState renders the engine's current register/flag state to stdout,
// mirroring the teacher's plain-text `dump-symbols`/status output.
func printState(e *engine.Engine) {
	st := e.Inspect()
	fmt.Printf("PC = 0x%04X   N=%v Z=%v C=%v V=%v\n", st.PC, st.N, st.Z, st.C, st.V)
	for i := 0; i <= 30; i++ {
		name := regName(i)
		fmt.Printf("  %-4s = 0x%016X", name, st.Registers[name])
		if i%2 == 1 {
			fmt.Println()
		}
	}
	if len(st.Registers)%2 == 1 {
		fmt.Println()
	}
	if len(st.Memory) > 0 {
		fmt.Println("non-zero memory:")
		for _, entry := range st.Memory {
			fmt.Printf("  0x%04X = 0x%016X\n", entry.Address, entry.Value)
		}
	}
}

func regName(i int) string {
	switch i {
	case 28:
		return "X28"
	case 29:
		return "X29"
	case 30:
		return "X30"
	default:
		return fmt.Sprintf("X%d", i)
	}
}

// readSourceFile reads an assembly source file from disk, wrapping any
// error with the legv8sim: prefix the other subcommands use.
func readSourceFile(path string) (string, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- user-supplied source path
	if err != nil {
		return "", fmt.Errorf("legv8sim: %w", err)
	}
	return string(data), nil
}

// resolveBreakpoint accepts either a hex/decimal address literal or a label
// name already resolved by the most recent Load.
func resolveBreakpoint(e *engine.Engine, spec string) (uint64, error) {
	if addr, ok := e.Labels()[spec]; ok {
		return addr, nil
	}
	var addr uint64
	if _, err := fmt.Sscanf(spec, "0x%x", &addr); err == nil {
		return addr, nil
	}
	if _, err := fmt.Sscanf(spec, "%d", &addr); err == nil {
		return addr, nil
	}
	return 0, fmt.Errorf("legv8sim: unrecognized breakpoint %q (not a label or address)", spec)
}
