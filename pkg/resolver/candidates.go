package resolver

import (
	"fmt"
	"math/bits"
	"runtime"
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/akhildatla/elfcode/pkg/vm"
)

// CandidateSet is a set of opcodes, one bit per opcode in canonical order.
type CandidateSet uint16

// AllOpcodes returns the set containing every opcode.
func AllOpcodes() CandidateSet {
	return CandidateSet(1<<vm.NumOpcodes - 1)
}

// NewCandidateSet creates a set holding the given opcodes.
func NewCandidateSet(ops ...vm.Opcode) CandidateSet {
	var s CandidateSet
	for _, op := range ops {
		s.Insert(op)
	}
	return s
}

// Insert a given opcode into this set.
func (s *CandidateSet) Insert(op vm.Opcode) {
	*s |= 1 << op
}

// Remove a given opcode from this set.
func (s *CandidateSet) Remove(op vm.Opcode) {
	*s &^= 1 << op
}

// Contains checks whether a given opcode is contained, or not.
func (s CandidateSet) Contains(op vm.Opcode) bool {
	return op.Valid() && s&(1<<op) != 0
}

// Count returns the number of opcodes in the set.
func (s CandidateSet) Count() int {
	return bits.OnesCount16(uint16(s))
}

// Empty reports whether the set has no opcodes.
func (s CandidateSet) Empty() bool {
	return s == 0
}

// Intersect returns the opcodes present in both sets.
func (s CandidateSet) Intersect(other CandidateSet) CandidateSet {
	return s & other
}

// Opcodes returns the members in canonical opcode order.
func (s CandidateSet) Opcodes() []vm.Opcode {
	ops := make([]vm.Opcode, 0, s.Count())
	for _, op := range vm.Opcodes() {
		if s.Contains(op) {
			ops = append(ops, op)
		}
	}
	return ops
}

func (s CandidateSet) String() string {
	ops := s.Opcodes()
	names := make([]string, len(ops))
	for i, op := range ops {
		names[i] = op.String()
	}
	return "{" + strings.Join(names, ", ") + "}"
}

// Matching returns the opcodes that transform the sample's before state into
// its after state.
func Matching(s vm.Sample) (CandidateSet, error) {
	if err := s.Validate(); err != nil {
		return 0, err
	}

	var set CandidateSet
	for _, op := range vm.Opcodes() {
		if s.Satisfies(op) {
			set.Insert(op)
		}
	}
	return set, nil
}

// CountAmbiguous returns the number of samples matched by at least threshold
// opcodes.
func CountAmbiguous(samples []vm.Sample, threshold int) (int, error) {
	count := 0
	for i, s := range samples {
		set, err := Matching(s)
		if err != nil {
			return 0, fmt.Errorf("sample %d: %w", i, err)
		}
		if set.Count() >= threshold {
			count++
		}
	}
	return count, nil
}

// Option configures candidate filtering.
type Option func(*settings)

type settings struct {
	workers int
}

// WithWorkers bounds the number of samples evaluated concurrently.
func WithWorkers(n int) Option {
	return func(s *settings) {
		s.workers = n
	}
}

// Candidates computes, for every opcode id seen in samples, the opcodes
// consistent with all of that id's samples.
func Candidates(samples []vm.Sample, opts ...Option) (map[int]CandidateSet, error) {
	cfg := settings{workers: runtime.GOMAXPROCS(0)}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.workers < 1 {
		cfg.workers = 1
	}

	matches := make([]CandidateSet, len(samples))
	var g errgroup.Group
	g.SetLimit(cfg.workers)
	for i := range samples {
		g.Go(func() error {
			set, err := Matching(samples[i])
			if err != nil {
				return fmt.Errorf("sample %d: %w", i, err)
			}
			matches[i] = set
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Reduce in sample order.
	candidates := make(map[int]CandidateSet)
	for i, s := range samples {
		id := s.Instruction.ID()
		if set, ok := candidates[id]; ok {
			candidates[id] = set.Intersect(matches[i])
		} else {
			candidates[id] = matches[i]
		}
	}

	log.Debugf("filtered %d samples into %d opcode ids using %d workers",
		len(samples), len(candidates), cfg.workers)
	return candidates, nil
}
