package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/akhildatla/elfcode/pkg/compiler"
	"github.com/akhildatla/elfcode/pkg/vm"
)

func newCompileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile [flags] program.elf",
		Short: "Assemble a text program to bytecode (.elfb)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputPath := args[0]
			outputPath := getString(cmd, "output")
			if outputPath == "" {
				ext := filepath.Ext(inputPath)
				outputPath = strings.TrimSuffix(inputPath, ext) + ".elfb"
			}
			log.Debugf("compiling %s -> %s", inputPath, outputPath)

			source, err := os.ReadFile(inputPath)
			if err != nil {
				return fmt.Errorf("reading source: %w", err)
			}
			bytecode, err := compiler.Assemble(string(source), getInt(cmd, "register-count"))
			if err != nil {
				return fmt.Errorf("compiling: %w", err)
			}
			if err := os.WriteFile(outputPath, bytecode, 0644); err != nil {
				return fmt.Errorf("writing bytecode: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Compiled: %s (%d bytes)\n", outputPath, len(bytecode))
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "", "output file (default: input with .elfb extension)")
	cmd.Flags().IntP("register-count", "n", vm.DeviceRegs, "number of registers the program must fit")
	return cmd
}

func newDisasmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "disasm [flags] program.elfb",
		Short: "Disassemble bytecode to text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bytecode, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading bytecode: %w", err)
			}
			program, err := vm.DeserializeProgram(bytecode)
			if err != nil {
				return fmt.Errorf("deserializing: %w", err)
			}
			asm := vm.Disassemble(program)

			if output := getString(cmd, "output"); output != "" {
				if err := os.WriteFile(output, []byte(asm), 0644); err != nil {
					return fmt.Errorf("writing output: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Disassembled to: %s\n", output)
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), asm)
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
	return cmd
}
