package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/exp/maps"

	"github.com/akhildatla/elfcode/pkg/compiler"
	"github.com/akhildatla/elfcode/pkg/embed"
	"github.com/akhildatla/elfcode/pkg/loader"
	"github.com/akhildatla/elfcode/pkg/resolver"
	"github.com/akhildatla/elfcode/pkg/vm"
)

func newResolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve [flags] samples",
		Short: "Deduce the opcode numbering from samples",
		Long: `Deduce which opcode each number denotes from before/after samples.

A text file may hold the samples followed by a numeric program; the program
is then translated with the deduced numbering and run. Samples may also be
read from .csv, .json or .parquet tables, with the program given by --program.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			samples, raw, err := readCalibration(args[0])
			if err != nil {
				return err
			}
			if path := getString(cmd, "program"); path != "" {
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				if raw, err = compiler.ParseRawProgram(string(data)); err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
			}
			log.Debugf("%d samples, %d program statements", len(samples), len(raw))

			out := cmd.OutOrStdout()
			workers := getInt(cmd, "workers")

			if getFlag(cmd, "candidates") {
				cands, err := resolver.Candidates(samples, resolver.WithWorkers(workers))
				if err != nil {
					return err
				}
				printCandidates(out, cands)
			}

			cal, err := embed.CalibrateSamples(samples, raw,
				embed.WithWorkers(workers),
				embed.WithRegisterCount(getInt(cmd, "register-count")),
				embed.WithMaxSteps(getInt64(cmd, "max-steps")),
			)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "samples matching %d or more opcodes: %d\n", embed.AmbiguityThreshold, cal.Ambiguous)
			printAssignment(out, cal.Assignment)
			if cal.Result != nil {
				fmt.Fprintf(out, "program result (r0): %d\n", cal.Result.Registers[0])
				log.Debugf("program registers %v after %d steps", cal.Result.Registers, cal.Result.Steps)
			}
			return nil
		},
	}
	cmd.Flags().String("program", "", "numeric program to translate and run")
	cmd.Flags().Bool("candidates", false, "print the candidate opcodes per number")
	cmd.Flags().Int("workers", 0, "concurrent sample matchers (default: GOMAXPROCS)")
	cmd.Flags().IntP("register-count", "n", vm.CalibrationRegs, "number of registers for the program")
	cmd.Flags().Int64("max-steps", 0, "step limit for the program (0 = unlimited)")
	return cmd
}

// readCalibration reads samples, plus the numeric program that follows them
// in text input.
func readCalibration(path string) ([]vm.Sample, []vm.RawInstruction, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", "":
		return loader.LoadCalibration(path)
	}
	samples, err := loader.LoadSamples(path)
	return samples, nil, err
}

func printCandidates(out io.Writer, cands map[int]resolver.CandidateSet) {
	ids := maps.Keys(cands)
	sort.Ints(ids)

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"id", "count", "candidates"})
	for _, id := range ids {
		set := cands[id]
		table.Append([]string{strconv.Itoa(id), strconv.Itoa(set.Count()), set.String()})
	}
	table.Render()
}

func printAssignment(out io.Writer, a resolver.Assignment) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"id", "opcode", "family"})
	for _, id := range a.IDs() {
		op := a[id]
		table.Append([]string{strconv.Itoa(id), op.String(), op.Family().String()})
	}
	table.Render()
}
