// Package main provides the CLI entry point for elfcode.
//
// Usage:
//
//	elfcode run program.elf              # Run a text or bytecode program
//	elfcode run program.elf -r 1         # Run with r0 = 1
//	elfcode compile program.elf          # Assemble to bytecode (.elfb)
//	elfcode exec program.elfb            # Run bytecode
//	elfcode disasm program.elfb          # Disassemble bytecode
//	elfcode resolve input.txt            # Deduce opcodes and run the numeric program
//	elfcode trace program.elf -o t.csv   # Record an execution trace
//	elfcode repl [program.elf]           # Interactive session
package main

import (
	"fmt"
	"os"
	"runtime/debug"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Version info set by GoReleaser via ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "elfcode",
		Short: "A register machine and opcode resolver.",
		Long: `elfcode runs programs for a six-register machine whose instruction pointer
may be bound to a register, and deduces opcode numbering from samples.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if getFlag(cmd, "verbose") {
				log.SetLevel(log.DebugLevel)
			}
		},
	}
	root.PersistentFlags().BoolP("verbose", "v", false, "increase logging verbosity")

	root.AddCommand(
		newRunCmd(),
		newExecCmd(),
		newCompileCmd(),
		newDisasmCmd(),
		newResolveCmd(),
		newTraceCmd(),
		newReplCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			v := version
			if v == "dev" {
				// Built via "go install"
				if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
					v = info.Main.Version
				}
			}
			fmt.Fprintf(out, "elfcode version %s\n", v)
			if commit != "none" {
				fmt.Fprintf(out, "  commit: %s\n", commit)
			}
			if date != "unknown" {
				fmt.Fprintf(out, "  built:  %s\n", date)
			}
		},
	}
}
