// internal/memblock/factory.go
//
// BuildBinding is the memory-block factory: given a starting
// address, a block type, a bit offset and a bit width, it produces the
// ordered sequence of (Block, BindInfo) pairs realising that bit range,
// normalising the offset into [0, block.Size*8) and walking into
// successive block addresses as needed. The resulting BindInfo ranges are
// contiguous in the register's own bit space, not in absolute terms.
package memblock

import (
	"github.com/irdevice/querycore/internal/bind"
	"github.com/irdevice/querycore/internal/cerr"
	"github.com/irdevice/querycore/internal/regtype"
)

// Binding pairs one block with the bit range of it a register claims.
type Binding struct {
	Block *Block
	Info  bind.Info
}

// BuildBinding realises a register's bit layout against store, creating
// any blocks that don't exist yet.
func BuildBinding(store *Store, t regtype.BlockType, startAddress uint32, bitOffset, bitWidth uint16) ([]Binding, error) {
	if t.Variadic {
		return nil, cerr.NewConfig("memblock: cannot bind a register against variadic type %s without an explicit block size", t.Name)
	}
	blockBits := t.BlockBits()
	if blockBits == 0 {
		return nil, cerr.NewConfig("memblock: type %s has zero size", t.Name)
	}
	if bitWidth == 0 {
		return nil, cerr.NewConfig("memblock: register bit width must be > 0")
	}

	addr := startAddress + uint32(bitOffset/blockBits)
	offsetInBlock := bitOffset % blockBits
	remaining := bitWidth

	var out []Binding
	for remaining > 0 {
		block := store.GetOrCreate(addr, t)

		avail := blockBits - offsetInBlock
		take := avail
		if remaining < take {
			take = remaining
		}

		out = append(out, Binding{
			Block: block,
			Info:  bind.Info{Start: offsetInBlock, End: offsetInBlock + take},
		})

		remaining -= take
		offsetInBlock = 0
		addr++
	}

	return out, nil
}
