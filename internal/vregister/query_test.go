// internal/vregister/query_test.go
package vregister

import (
	"bytes"
	"testing"

	"github.com/irdevice/querycore/internal/formatter"
	"github.com/irdevice/querycore/internal/memblock"
)

func TestGetValuesPartialWritePreservesCache(t *testing.T) {
	store := memblock.NewStore()
	dev := &fakeDevice{id: "d1"}
	vr := newTestRegister(t, store, dev, Config{
		Name: "r", Type: holdingType, Address: 0, BitOffset: 4, BitWidth: 8, Format: formatter.U8, Scale: 1,
	})

	readQuery, err := newSingleRegisterQuery(vr, Read)
	if err != nil {
		t.Fatalf("newSingleRegisterQuery: %v", err)
	}
	if err := readQuery.FinalizeRead([]byte{0xAA, 0xBB}); err != nil {
		t.Fatalf("FinalizeRead: %v", err)
	}

	if err := vr.SetTextValue("90"); err != nil { // 90 == 0x5A
		t.Fatalf("SetTextValue: %v", err)
	}

	got := vr.writeQuery.GetValues()
	want := []byte{0xA5, 0xAB}
	if !bytes.Equal(got, want) {
		t.Fatalf("GetValues() = % x, want % x (untouched bits must come from cache)", got, want)
	}
}

func TestFinalizeReadPopulatesBlockCacheForPartialCoverage(t *testing.T) {
	store := memblock.NewStore()
	dev := &fakeDevice{id: "d1"}
	vr := newTestRegister(t, store, dev, Config{
		Name: "r", Type: holdingType, Address: 0, BitOffset: 0, BitWidth: 8, Format: formatter.U8,
	})

	if vr.blocks[0].Block.Cache() == nil {
		t.Fatal("a block only partially covered by its register must get a cache buffer at creation")
	}

	q, err := newSingleRegisterQuery(vr, Read)
	if err != nil {
		t.Fatalf("newSingleRegisterQuery: %v", err)
	}
	if err := q.FinalizeRead([]byte{0x11, 0x22}); err != nil {
		t.Fatalf("FinalizeRead: %v", err)
	}
	if !bytes.Equal(vr.blocks[0].Block.Cache(), []byte{0x11, 0x22}) {
		t.Fatalf("cache = % x, want % x", vr.blocks[0].Block.Cache(), []byte{0x11, 0x22})
	}
}
