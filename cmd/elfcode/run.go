package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/akhildatla/elfcode/pkg/embed"
	"github.com/akhildatla/elfcode/pkg/vm"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [flags] program",
		Short: "Run a text or bytecode program",
		Long: `Run a program and print the final registers. Text programs may bind the
instruction pointer with "#ip N"; bytecode (.elfb) is detected automatically.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, profile, err := runOptions(cmd)
			if err != nil {
				return err
			}
			log.Debugf("running %s", args[0])

			result, err := embed.RunFile(args[0], opts...)
			if result == nil {
				return err
			}
			printResult(cmd.OutOrStdout(), result, getFlag(cmd, "plain"))
			if err != nil {
				return err
			}
			return profile.WriteTrace(result.Trace)
		},
	}
	addRunFlags(cmd)
	return cmd
}

func newExecCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exec [flags] program.elfb",
		Short: "Run compiled bytecode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, profile, err := runOptions(cmd)
			if err != nil {
				return err
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading bytecode: %w", err)
			}
			program, err := vm.DeserializeProgram(data)
			if err != nil {
				return fmt.Errorf("deserializing: %w", err)
			}
			log.Debugf("loaded %d statements from %s", program.Len(), args[0])

			result, err := embed.RunProgram(program, opts...)
			if result == nil {
				return err
			}
			printResult(cmd.OutOrStdout(), result, getFlag(cmd, "plain"))
			if err != nil {
				return err
			}
			return profile.WriteTrace(result.Trace)
		},
	}
	addRunFlags(cmd)
	return cmd
}

func newTraceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trace [flags] program",
		Short: "Run a program and record every executed step",
		Long: `Run a program and write one row per executed step: the statement at the
instruction pointer and the registers after it. Formats are csv, json and table.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, _, err := runOptions(cmd)
			if err != nil {
				return err
			}
			opts = append(opts, embed.WithTrace(getInt(cmd, "limit")))

			result, err := embed.RunFile(args[0], opts...)
			if result == nil {
				return err
			}
			if errors.Is(err, embed.ErrStepLimit) {
				log.Warnf("trace stopped after %d steps", result.Steps)
			} else if err != nil {
				return err
			}

			format := getString(cmd, "format")
			output := getString(cmd, "output")
			if output != "" && !cmd.Flags().Changed("format") {
				if ext := filepath.Ext(output); ext == ".json" {
					format = "json"
				}
			}

			out := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}

			switch format {
			case "csv":
				err = result.Trace.WriteCSV(out)
			case "json":
				err = result.Trace.WriteJSON(out)
			case "table":
				_, err = fmt.Fprint(out, result.Trace.DataFrame().Table())
			default:
				return fmt.Errorf("unknown trace format %q", format)
			}
			if err != nil {
				return err
			}
			if result.Trace.Dropped > 0 {
				log.Infof("%d steps not recorded (limit %d)", result.Trace.Dropped, result.Trace.Limit)
			}
			return nil
		},
	}
	addRunFlags(cmd)
	cmd.Flags().Int("limit", 10_000, "maximum number of rows recorded (0 = all)")
	cmd.Flags().StringP("format", "f", "csv", "output format: csv, json or table")
	cmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
	return cmd
}
