package section

import (
	"testing"

	"github.com/blacktop/il2dump/pkg/il2cpp/addr"
)

func TestSetMembership(t *testing.T) {
	s := &Set{
		Exec: []addr.Range{addr.NewRange(0x1000, 0x1000, 0x401000, 0x1000)},
		Data: []addr.Range{addr.NewRange(0x2000, 0x800, 0x403000, 0x1000)},
	}
	s.Set(Bss, s.Data)

	tests := []struct {
		kind Kind
		va   uint64
		want bool
	}{
		{Exec, 0x401000, true},
		{Exec, 0x402000, true},
		{Exec, 0x402001, false},
		{Data, 0x403fff, true},
		{Data, 0x401500, false},
		{Bss, 0x404000, true},
	}
	for _, tt := range tests {
		if got := s.ContainsAddress(tt.kind, tt.va); got != tt.want {
			t.Errorf("ContainsAddress(%s, %#x) = %v, want %v", tt.kind, tt.va, got, tt.want)
		}
	}
	if !s.InDataOffset(0x2800) || s.InDataOffset(0x2801) {
		t.Error("InDataOffset closed interval mismatch")
	}
	if !s.AllAddresses(Exec, []uint64{0x401000, 0x401ff0}) {
		t.Error("AllAddresses(Exec) = false")
	}
	if s.AllAddresses(Exec, []uint64{0x401000, 0x403000}) {
		t.Error("AllAddresses(Exec) with a data pointer = true")
	}
	if !s.AllAddresses(Bss, nil) {
		t.Error("AllAddresses of nothing should hold")
	}
}
