package vm

import (
	"context"
	"fmt"
	"io"

	dataframe "github.com/rocketlaunchr/dataframe-go"
	"github.com/rocketlaunchr/dataframe-go/exports"
)

// TraceRow is one executed step: the statement at IP and the registers
// after the instruction pointer increment.
type TraceRow struct {
	Step      int64
	IP        int64
	Statement Statement
	Registers []int64
}

// Trace records executed steps. A zero Limit records everything.
type Trace struct {
	Limit   int
	Rows    []TraceRow
	Dropped int64
}

// NewTrace creates a trace that keeps at most limit rows.
func NewTrace(limit int) *Trace {
	return &Trace{Limit: limit}
}

func (t *Trace) record(step, ip int64, s Statement, rf RegisterFile) {
	if t.Limit > 0 && len(t.Rows) >= t.Limit {
		t.Dropped++
		return
	}
	t.Rows = append(t.Rows, TraceRow{
		Step:      step,
		IP:        ip,
		Statement: s,
		Registers: rf.Snapshot(),
	})
}

// Len returns the number of recorded rows.
func (t *Trace) Len() int {
	return len(t.Rows)
}

// DataFrame converts the trace into columns step, ip, op, a, b, c, r0..rN.
func (t *Trace) DataFrame() *dataframe.DataFrame {
	numRegs := 0
	if len(t.Rows) > 0 {
		numRegs = len(t.Rows[0].Registers)
	}

	var (
		steps = make([]interface{}, len(t.Rows))
		ips   = make([]interface{}, len(t.Rows))
		ops   = make([]interface{}, len(t.Rows))
		as    = make([]interface{}, len(t.Rows))
		bs    = make([]interface{}, len(t.Rows))
		cs    = make([]interface{}, len(t.Rows))
		regs  = make([][]interface{}, numRegs)
	)
	for r := range regs {
		regs[r] = make([]interface{}, len(t.Rows))
	}

	for i, row := range t.Rows {
		steps[i] = row.Step
		ips[i] = row.IP
		ops[i] = row.Statement.Op.String()
		as[i] = row.Statement.A
		bs[i] = row.Statement.B
		cs[i] = row.Statement.C
		for r := 0; r < numRegs && r < len(row.Registers); r++ {
			regs[r][i] = row.Registers[r]
		}
	}

	series := []dataframe.Series{
		dataframe.NewSeriesInt64("step", nil, steps...),
		dataframe.NewSeriesInt64("ip", nil, ips...),
		dataframe.NewSeriesString("op", nil, ops...),
		dataframe.NewSeriesInt64("a", nil, as...),
		dataframe.NewSeriesInt64("b", nil, bs...),
		dataframe.NewSeriesInt64("c", nil, cs...),
	}
	for r := range regs {
		series = append(series, dataframe.NewSeriesInt64(fmt.Sprintf("r%d", r), nil, regs[r]...))
	}

	return dataframe.NewDataFrame(series...)
}

// WriteCSV writes the trace as CSV with a header row.
func (t *Trace) WriteCSV(w io.Writer) error {
	if err := exports.ExportToCSV(context.Background(), w, t.DataFrame()); err != nil {
		return fmt.Errorf("exporting trace to CSV: %w", err)
	}
	return nil
}

// WriteJSON writes the trace as JSON, one object per row.
func (t *Trace) WriteJSON(w io.Writer) error {
	if err := exports.ExportToJSON(context.Background(), w, t.DataFrame()); err != nil {
		return fmt.Errorf("exporting trace to JSON: %w", err)
	}
	return nil
}
