// internal/vregister/queryfactory.go
//
// GenerateQueries/GenerateQuerySets port ir_device_query_factory.cpp's
// TIRDeviceQueryFactory. The merge algorithm is the original's O(n^2)
// double loop with erase: repeatedly scan for a mergeable pair, fold it
// into one set, remove the absorbed one, and keep scanning the same
// left-hand set against whatever's left. A pair is mergeable only if the
// address hull they'd form, read back against every block the *device*
// owns in that span (not just the two sets' own blocks), stays within the
// configured hole and count limits — the device-wide hole computation,
// preserved deliberately rather than narrowed to the merging pair alone.
package vregister

import (
	"sort"

	"github.com/irdevice/querycore/internal/cerr"
	"github.com/irdevice/querycore/internal/memblock"
	"github.com/irdevice/querycore/internal/regtype"
)

// Policy controls how aggressively GenerateQueries merges register sets.
type Policy int

const (
	// Minify merges whenever the hole/count limits allow it.
	Minify Policy = iota
	// NoDuplicates forces the effective hole limit to zero: only
	// identical or strictly adjoining blocks ever merge.
	NoDuplicates
)

// Limits is what the query factory needs from a device to bound a merge:
// the hole and count ceiling for one block type under one operation.
// Implemented by *device.Device.
type Limits interface {
	MaxHole(t regtype.BlockType, op Operation) uint32
	MaxCount(t regtype.BlockType, op Operation) uint16
}

type regSet struct {
	typ    regtype.BlockType
	blocks []*memblock.Block // sorted by address, unique
	vregs  []*VirtualRegister
}

func newRegSet(vr *VirtualRegister) *regSet {
	seen := make(map[*memblock.Block]bool)
	var blocks []*memblock.Block
	for _, bd := range vr.blocks {
		if seen[bd.Block] {
			continue
		}
		seen[bd.Block] = true
		blocks = append(blocks, bd.Block)
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].Address < blocks[j].Address })
	return &regSet{typ: vr.cfg.Type, blocks: blocks, vregs: []*VirtualRegister{vr}}
}

func (s *regSet) hull() (lo, hi uint32) {
	lo = s.blocks[0].Address
	hi = s.blocks[len(s.blocks)-1].Address
	return
}

func (s *regSet) count() uint16 {
	lo, hi := s.hull()
	return uint16(hi - lo + 1)
}

func checkSet(s *regSet, store *memblock.Store, limits Limits, op Operation) error {
	if s.count() > limits.MaxCount(s.typ, op) {
		return cerr.NewConfig("register set of type %s spans %d > max %d for %s", s.typ, s.count(), limits.MaxCount(s.typ, op), op)
	}
	lo, hi := s.hull()
	if gap := maxGap(store.Range(s.typ, lo, hi), lo, hi); gap > limits.MaxHole(s.typ, op) {
		return cerr.NewConfig("register set of type %s has hole %d > max %d for %s", s.typ, gap, limits.MaxHole(s.typ, op), op)
	}
	return nil
}

// maxGap returns the widest run of addresses in [lo, hi] with no block
// present in deviceBlocks (which must already be sorted by address).
func maxGap(deviceBlocks []*memblock.Block, lo, hi uint32) uint32 {
	var maxG uint32
	cursor := int64(lo) - 1
	for _, b := range deviceBlocks {
		if gap := int64(b.Address) - cursor - 1; gap > int64(maxG) {
			maxG = uint32(gap)
		}
		cursor = int64(b.Address)
	}
	if gap := int64(hi) - cursor; gap > int64(maxG) {
		maxG = uint32(gap)
	}
	return maxG
}

func mergeable(a, b *regSet, store *memblock.Store, limits Limits, op Operation, policy Policy) bool {
	if a.typ.Index != b.typ.Index {
		return false
	}
	aLo, aHi := a.hull()
	bLo, bHi := b.hull()
	lo, hi := aLo, aHi
	if bLo < lo {
		lo = bLo
	}
	if bHi > hi {
		hi = bHi
	}

	if uint16(hi-lo+1) > limits.MaxCount(a.typ, op) {
		return false
	}

	maxHole := limits.MaxHole(a.typ, op)
	if policy == NoDuplicates {
		maxHole = 0
	}
	if maxGap(store.Range(a.typ, lo, hi), lo, hi) > maxHole {
		return false
	}
	return true
}

func mergeInto(a, b *regSet) *regSet {
	seen := make(map[*memblock.Block]bool, len(a.blocks)+len(b.blocks))
	var blocks []*memblock.Block
	for _, blk := range a.blocks {
		if !seen[blk] {
			seen[blk] = true
			blocks = append(blocks, blk)
		}
	}
	for _, blk := range b.blocks {
		if !seen[blk] {
			seen[blk] = true
			blocks = append(blocks, blk)
		}
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].Address < blocks[j].Address })

	vregSeen := make(map[*VirtualRegister]bool, len(a.vregs)+len(b.vregs))
	var vregs []*VirtualRegister
	for _, vr := range append(append([]*VirtualRegister{}, a.vregs...), b.vregs...) {
		if !vregSeen[vr] {
			vregSeen[vr] = true
			vregs = append(vregs, vr)
		}
	}

	return &regSet{typ: a.typ, blocks: blocks, vregs: vregs}
}

// GenerateQueries groups vregs into the fewest queries that satisfy the
// device's per-type hole and count limits.
func GenerateQueries(store *memblock.Store, limits Limits, vregs []*VirtualRegister, op Operation, policy Policy) ([]*Query, error) {
	sets := make([]*regSet, 0, len(vregs))
	for _, vr := range vregs {
		if len(vr.blocks) == 0 {
			continue
		}
		sets = append(sets, newRegSet(vr))
	}

	for _, s := range sets {
		if err := checkSet(s, store, limits, op); err != nil {
			return nil, err
		}
	}

	for i := 0; i < len(sets); i++ {
		for j := i + 1; j < len(sets); {
			if mergeable(sets[i], sets[j], store, limits, op, policy) {
				sets[i] = mergeInto(sets[i], sets[j])
				sets = append(sets[:j], sets[j+1:]...)
				continue
			}
			j++
		}
	}

	queries := make([]*Query, 0, len(sets))
	for _, s := range sets {
		queries = append(queries, buildQuery(store, s, op))
	}
	return queries, nil
}

// buildQuery materialises every address in a set's hull as an actual
// block (creating placeholder, unlinked blocks for address gaps that no
// register claims), so the protocol adapter always sees a fully
// contiguous span to read or write.
func buildQuery(store *memblock.Store, s *regSet, op Operation) *Query {
	lo, hi := s.hull()
	count := uint16(hi - lo + 1)
	blocks := make([]*memblock.Block, count)
	for i := uint32(0); i < uint32(count); i++ {
		blocks[i] = store.GetOrCreate(lo+i, s.typ)
	}

	vregs := append([]*VirtualRegister{}, s.vregs...)

	return &Query{
		op:     op,
		typ:    s.typ,
		start:  lo,
		count:  count,
		blocks: blocks,
		vregs:  vregs,
		status: NotExecuted,
	}
}

// QuerySet is an ordered group of queries sharing a poll interval,
// executed sequentially by the driver.
type QuerySet struct {
	Queries []*Query
}

// PollGroup pairs a poll interval (milliseconds) with the query set built
// for the registers sharing it.
type PollGroup struct {
	PollIntervalMs int64
	Set            QuerySet
}

// GenerateQuerySets partitions vregs by poll interval, preserving the
// order intervals are first seen in vregs, and builds a minified query
// set for each group.
func GenerateQuerySets(store *memblock.Store, limits Limits, vregs []*VirtualRegister, op Operation) ([]PollGroup, error) {
	var order []int64
	groups := make(map[int64][]*VirtualRegister)
	for _, vr := range vregs {
		iv := vr.PollInterval()
		if _, ok := groups[iv]; !ok {
			order = append(order, iv)
		}
		groups[iv] = append(groups[iv], vr)
	}

	out := make([]PollGroup, 0, len(order))
	for _, iv := range order {
		queries, err := GenerateQueries(store, limits, groups[iv], op, Minify)
		if err != nil {
			return nil, err
		}
		out = append(out, PollGroup{PollIntervalMs: iv, Set: QuerySet{Queries: queries}})
	}
	return out, nil
}
