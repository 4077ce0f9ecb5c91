package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/akhildatla/elfcode/pkg/compiler"
	"github.com/akhildatla/elfcode/pkg/loader"
	"github.com/akhildatla/elfcode/pkg/repl"
	"github.com/akhildatla/elfcode/pkg/vm"
)

func newReplCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repl [flags] [program]",
		Short: "Start an interactive session",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n := getInt(cmd, "register-count")
			r := repl.New(n)

			if len(args) == 1 {
				p, err := loader.LoadProgram(args[0])
				if err != nil {
					return err
				}
				if err := compiler.Check(p, n); err != nil {
					return fmt.Errorf("%s: %w", args[0], err)
				}
				if err := r.SetProgram(p, args[0]); err != nil {
					return err
				}
			}

			// Piped input gets no banner or prompts.
			in := cmd.InOrStdin()
			if f, ok := in.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
				r.SetQuiet(true)
			}
			r.Start(in, cmd.OutOrStdout())
			return nil
		},
	}
	cmd.Flags().IntP("register-count", "n", vm.DeviceRegs, "number of registers")
	return cmd
}
