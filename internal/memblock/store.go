// internal/memblock/store.go
//
// Store is the device-scoped memory-block registry: blocks are owned
// here, virtual registers only ever hold shared references into it.
// Keeping one Store per device means two registers that bind overlapping
// addresses share the same *Block (and therefore the same linkage),
// which is what makes the query factory's device-wide hole view see
// every block in an address range, not just the ones belonging to the
// registers currently being merged.
package memblock

import (
	"sort"
	"sync"

	"github.com/irdevice/querycore/internal/regtype"
)

type blockKey struct {
	typeIndex uint32
	address   uint32
}

// Store holds every memory block created for one device. All planning
// happens on the main goroutine at configuration load time, so
// the mutex here guards against accidental reuse rather than steady-state
// contention.
type Store struct {
	mu     sync.Mutex
	blocks map[blockKey]*Block
}

// NewStore creates an empty block store.
func NewStore() *Store {
	return &Store{blocks: make(map[blockKey]*Block)}
}

// GetOrCreate returns the existing block at (t.Index, address), creating
// it if necessary.
func (s *Store) GetOrCreate(address uint32, t regtype.BlockType) *Block {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := blockKey{typeIndex: t.Index, address: address}
	if b, ok := s.blocks[k]; ok {
		return b
	}
	b := New(address, t)
	s.blocks[k] = b
	return b
}

// GetOrCreateVariadic is GetOrCreate for variadic-size types.
func (s *Store) GetOrCreateVariadic(address uint32, t regtype.BlockType, size uint16) *Block {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := blockKey{typeIndex: t.Index, address: address}
	if b, ok := s.blocks[k]; ok {
		return b
	}
	b := NewVariadic(address, t, size)
	s.blocks[k] = b
	return b
}

// Range returns every block of type t whose address falls within
// [firstAddr, lastAddr], ordered by address. This is the "view over a
// device-wide ordered container" the design asks for: the query
// factory's hole detection walks this range rather than the merged set
// alone, so it sees blocks belonging to other registers too.
func (s *Store) Range(t regtype.BlockType, firstAddr, lastAddr uint32) []*Block {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Block
	for k, b := range s.blocks {
		if k.typeIndex != t.Index {
			continue
		}
		if b.Address < firstAddr || b.Address > lastAddr {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}
