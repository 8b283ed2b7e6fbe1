// internal/regtype/regtype.go
package regtype

import "fmt"

// BlockType is an immutable descriptor for one memory-block type on a
// device's protocol address space (e.g. "holding register", "coil").
// Two types are equal iff their Index matches; Name/Size/flags are along
// for the ride and never compared.
type BlockType struct {
	Index     uint32
	Name      string
	Size      uint16 // bytes; ignored when Variadic
	ReadOnly  bool
	SingleBit bool
	Variadic  bool
}

// Equal reports type-equality, defined solely by Index per the data model.
func (t BlockType) Equal(o BlockType) bool {
	return t.Index == o.Index
}

// BlockBits is the addressable bit width of one block of this type:
// exactly 1 for single-bit types (coils, discrete inputs are individually
// bit-addressable), Size*8 otherwise.
func (t BlockType) BlockBits() uint16 {
	if t.SingleBit {
		return 1
	}
	return t.Size * 8
}

func (t BlockType) String() string {
	return fmt.Sprintf("%s(#%d)", t.Name, t.Index)
}

// Registry holds the set of block types a protocol declares. It is built
// once at configuration load time and never mutated afterward, so it
// carries no locking of its own.
type Registry struct {
	byIndex map[uint32]BlockType
}

// NewRegistry builds a registry from a fixed list of types. Duplicate
// indices are a configuration error.
func NewRegistry(types ...BlockType) (*Registry, error) {
	r := &Registry{byIndex: make(map[uint32]BlockType, len(types))}
	for _, t := range types {
		if _, exists := r.byIndex[t.Index]; exists {
			return nil, fmt.Errorf("regtype: duplicate type index %d (%s)", t.Index, t.Name)
		}
		r.byIndex[t.Index] = t
	}
	return r, nil
}

// Get looks up a block type by index.
func (r *Registry) Get(index uint32) (BlockType, bool) {
	t, ok := r.byIndex[index]
	return t, ok
}

// MustGet panics if the index is unknown; used only at wiring time where
// the index is guaranteed to come from the same registry.
func (r *Registry) MustGet(index uint32) BlockType {
	t, ok := r.byIndex[index]
	if !ok {
		panic(fmt.Sprintf("regtype: unknown type index %d", index))
	}
	return t
}

// ByName looks up a block type by its declared name; used when resolving
// configuration that refers to types textually (e.g. YAML "type: holding").
func (r *Registry) ByName(name string) (BlockType, bool) {
	for _, t := range r.byIndex {
		if t.Name == name {
			return t, true
		}
	}
	return BlockType{}, false
}
