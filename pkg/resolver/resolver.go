// Package resolver deduces which numeric opcode id denotes which opcode from
// observed samples.
//
// Resolution runs in two steps. Candidates intersects, per id, the opcodes
// consistent with every sample of that id. Resolve then searches for a
// complete one-to-one assignment, always branching on the id with the fewest
// remaining candidates:
//
//	candidates, err := resolver.Candidates(samples)
//	assignment, err := resolver.Resolve(candidates)
//	program, err := assignment.Translate(raw)
package resolver

import (
	"errors"
	"fmt"
	"sort"

	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/maps"

	"github.com/akhildatla/elfcode/pkg/vm"
)

// Error definitions
var (
	ErrNoCandidates    = errors.New("no candidates to resolve")
	ErrUnsolvable      = errors.New("no consistent opcode assignment")
	ErrUnknownOpcodeID = errors.New("unmapped opcode id")
)

// Assignment maps numeric opcode ids to opcodes. A returned assignment is
// complete and injective.
type Assignment map[int]vm.Opcode

// IDs returns the assigned ids in increasing order.
func (a Assignment) IDs() []int {
	ids := maps.Keys(a)
	sort.Ints(ids)
	return ids
}

// Names returns the opcode name for every id.
func (a Assignment) Names() map[int]string {
	names := make(map[int]string, len(a))
	for id, op := range a {
		names[id] = op.String()
	}
	return names
}

// Translate converts a numeric program into executable statements. The
// result has no instruction pointer register.
func (a Assignment) Translate(raw []vm.RawInstruction) (*vm.Program, error) {
	statements := make([]vm.Statement, len(raw))
	for i, r := range raw {
		op, ok := a[r.ID()]
		if !ok {
			return nil, fmt.Errorf("instruction %d: %w: %d", i, ErrUnknownOpcodeID, r.ID())
		}
		x, y, z := r.Args()
		statements[i] = vm.Statement{Op: op, A: x, B: y, C: z}
	}
	return vm.NewProgram(vm.NoInstructionPointer, statements...), nil
}

// Resolve finds an assignment consistent with the candidate sets. The search
// is deterministic: the id with the smallest set is decided first (lowest id
// on ties) and its candidates are tried in canonical opcode order.
func Resolve(candidates map[int]CandidateSet) (Assignment, error) {
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}
	for _, id := range sortedIDs(candidates) {
		if candidates[id].Empty() {
			return nil, fmt.Errorf("%w: id %d has no candidates", ErrUnsolvable, id)
		}
	}

	assignment, ok := search(candidates, 0)
	if !ok {
		return nil, ErrUnsolvable
	}
	return assignment, nil
}

// ResolveSamples filters candidates from samples and resolves them.
func ResolveSamples(samples []vm.Sample, opts ...Option) (Assignment, error) {
	candidates, err := Candidates(samples, opts...)
	if err != nil {
		return nil, err
	}
	return Resolve(candidates)
}

func search(candidates map[int]CandidateSet, depth int) (Assignment, bool) {
	if len(candidates) == 1 {
		for id, set := range candidates {
			// A lone id left with several candidates is ambiguous.
			if set.Count() != 1 {
				log.Debugf("depth %d: id %d still ambiguous %s", depth, id, set)
				return nil, false
			}
			return Assignment{id: set.Opcodes()[0]}, true
		}
	}

	id := smallest(candidates)
	for _, op := range candidates[id].Opcodes() {
		log.Debugf("depth %d: trying %d -> %s", depth, id, op)

		rest, ok := eliminate(candidates, id, op)
		if !ok {
			log.Debugf("depth %d: %d -> %s leaves an id without candidates", depth, id, op)
			continue
		}
		if sub, ok := search(rest, depth+1); ok {
			sub[id] = op
			return sub, true
		}
		log.Debugf("depth %d: rejected %d -> %s", depth, id, op)
	}
	return nil, false
}

// eliminate returns a copy of candidates without id, with op removed from
// every other set. It reports false when some set becomes empty.
func eliminate(candidates map[int]CandidateSet, id int, op vm.Opcode) (map[int]CandidateSet, bool) {
	rest := make(map[int]CandidateSet, len(candidates)-1)
	for other, set := range candidates {
		if other == id {
			continue
		}
		set.Remove(op)
		if set.Empty() {
			return nil, false
		}
		rest[other] = set
	}
	return rest, true
}

func smallest(candidates map[int]CandidateSet) int {
	ids := sortedIDs(candidates)
	best := ids[0]
	for _, id := range ids[1:] {
		if candidates[id].Count() < candidates[best].Count() {
			best = id
		}
	}
	return best
}

func sortedIDs(candidates map[int]CandidateSet) []int {
	ids := maps.Keys(candidates)
	sort.Ints(ids)
	return ids
}
