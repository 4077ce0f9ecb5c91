package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/akhildatla/elfcode/pkg/config"
	"github.com/akhildatla/elfcode/pkg/embed"
	"github.com/akhildatla/elfcode/pkg/vm"
)

// Get an expected flag, or panic if an error arises.
func getFlag(cmd *cobra.Command, flag string) bool {
	r, err := cmd.Flags().GetBool(flag)
	if err != nil {
		panic(err)
	}
	return r
}

func getString(cmd *cobra.Command, flag string) string {
	r, err := cmd.Flags().GetString(flag)
	if err != nil {
		panic(err)
	}
	return r
}

func getInt(cmd *cobra.Command, flag string) int {
	r, err := cmd.Flags().GetInt(flag)
	if err != nil {
		panic(err)
	}
	return r
}

func getInt64(cmd *cobra.Command, flag string) int64 {
	r, err := cmd.Flags().GetInt64(flag)
	if err != nil {
		panic(err)
	}
	return r
}

// addRunFlags registers the flags shared by commands that execute programs.
func addRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("profile", "p", "", "YAML run profile; explicit flags override it")
	f.IntP("register-count", "n", vm.DeviceRegs, "number of registers")
	f.Int64SliceP("registers", "r", nil, "initial values of the leading registers")
	f.Int64("max-steps", 0, "step limit (0 = unlimited)")
	f.Int64("watch-ip", 0, "instruction at which to capture a register")
	f.Int("watch-reg", 0, "register captured at the watch point")
	f.String("watch-mode", "first", "watch mode: first or last-unique")
	f.Int64("progress", 0, "log progress every N steps")
	f.Bool("stats", false, "print per-opcode counts")
	f.Bool("plain", false, "print registers on one line instead of a table")
}

// runOptions merges the profile, if any, with the flags the user set.
func runOptions(cmd *cobra.Command) ([]embed.Option, *config.Profile, error) {
	var opts []embed.Option
	profile := config.Default()

	if path := getString(cmd, "profile"); path != "" {
		p, err := config.Load(path)
		if err != nil {
			return nil, nil, err
		}
		log.Debugf("using profile %s", path)
		if log.IsLevelEnabled(log.DebugLevel) {
			if data, err := p.Marshal(); err == nil {
				log.Debugf("profile:\n%s", data)
			}
		}
		profile = p
		opts = append(opts, embed.WithProfile(p))
	}

	f := cmd.Flags()
	if f.Changed("register-count") {
		opts = append(opts, embed.WithRegisterCount(getInt(cmd, "register-count")))
	}
	if f.Changed("registers") {
		values, err := f.GetInt64Slice("registers")
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, embed.WithRegisters(values...))
	}
	if f.Changed("max-steps") {
		opts = append(opts, embed.WithMaxSteps(getInt64(cmd, "max-steps")))
	}
	if f.Changed("watch-ip") || f.Changed("watch-reg") || f.Changed("watch-mode") {
		mode, err := vm.ParseWatchMode(getString(cmd, "watch-mode"))
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, embed.WithWatch(getInt64(cmd, "watch-ip"), getInt(cmd, "watch-reg"), mode))
	}
	if n := getInt64(cmd, "progress"); n > 0 {
		opts = append(opts, embed.WithProgress(n, func(steps int64) {
			log.Infof("%d steps executed", steps)
		}))
	}
	if getFlag(cmd, "stats") {
		opts = append(opts, embed.WithStats())
	}
	return opts, profile, nil
}

// printResult writes the outcome of a run.
func printResult(out io.Writer, result *embed.Result, plain bool) {
	if plain {
		fmt.Fprintln(out, result.Registers)
	} else {
		printRegisters(out, result.Registers)
	}

	switch result.Reason {
	case vm.HaltWatch:
		fmt.Fprintf(out, "watch value: %d (%d observations)\n", result.Value, result.Observations)
	case vm.HaltStepLimit:
		fmt.Fprintf(out, "stopped after %d steps\n", result.Steps)
	default:
		log.Debugf("halted after %d steps", result.Steps)
	}

	if result.Stats != nil {
		printStats(out, result.Stats)
	}
}

func printRegisters(out io.Writer, regs []int64) {
	header := make([]string, len(regs))
	row := make([]string, len(regs))
	for i, v := range regs {
		header[i] = fmt.Sprintf("r%d", i)
		row[i] = strconv.FormatInt(v, 10)
	}

	table := tablewriter.NewWriter(out)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.Append(row)
	table.Render()
}

func printStats(out io.Writer, stats *vm.ExecutionStats) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"opcode", "count"})
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	for _, op := range vm.Opcodes() {
		if n := stats.OpCounts[op]; n > 0 {
			table.Append([]string{op.String(), strconv.FormatInt(n, 10)})
		}
	}
	table.SetFooter([]string{"total", strconv.FormatInt(stats.StepsExecuted, 10)})
	table.Render()
	fmt.Fprintf(out, "elapsed: %.3fms\n", float64(stats.ExecutionTimeNs)/1e6)
}
