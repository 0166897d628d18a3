// Package container turns an executable image into the mapped ranges and section lists the registration search runs on.
package container

import (
	"github.com/blacktop/il2dump/internal/magic"
	"github.com/blacktop/il2dump/pkg/il2cpp/addr"
	"github.com/blacktop/il2dump/pkg/il2cpp/section"
	"github.com/blacktop/il2dump/pkg/il2cpp/types"
	"github.com/pkg/errors"
)

// ErrUnsupported is returned for files that are not a recognized executable container
var ErrUnsupported = errors.New("unsupported container")

// Binary is a buffered executable ready for searching
type Binary struct {
	Kind      magic.Kind
	Arch      string
	Data      []byte
	PtrSize   int
	ImageBase uint64
	Mapper    addr.Mapper
	Sections  section.Set
	// Symbols holds exported names without any leading underscore
	Symbols map[string]uint64
	Dumped  bool
}

// ArchSelector picks one architecture of a universal binary
type ArchSelector func(arches []string) (int, error)

type options struct {
	selectArch ArchSelector
}

// Option configures Open
type Option func(*options)

// WithArchSelector sets the callback used to choose a slice of a universal Mach-O
func WithArchSelector(fn ArchSelector) Option {
	return func(o *options) { o.selectArch = fn }
}

// Open parses data according to its magic
func Open(data []byte, opts ...Option) (*Binary, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	switch k := magic.Detect(data); k {
	case magic.ELF:
		return openELF(data)
	case magic.PE:
		return openPE(data)
	case magic.MachO:
		return openMachO(data)
	case magic.MachOFat:
		return openFatMachO(data, o.selectArch)
	case magic.NSO:
		return openNSO(data)
	case magic.Wasm:
		return openWasm(data)
	default:
		return nil, errors.Wrapf(ErrUnsupported, "%s file", k)
	}
}

// Rebase treats the buffer as a memory dump of the module loaded at base:
// file offsets become link-time addresses relative to the original image base.
func (b *Binary) Rebase(base uint64) {
	relocate := func(rs []addr.Range) []addr.Range {
		out := make([]addr.Range, 0, len(rs))
		for _, r := range rs {
			rel := r.Address - b.ImageBase
			size := r.AddressEnd - r.Address
			out = append(out, addr.NewRange(rel, size, base+rel, size))
		}
		return out
	}
	b.Sections.Exec = relocate(b.Sections.Exec)
	b.Sections.Data = relocate(b.Sections.Data)
	b.Sections.Bss = relocate(b.Sections.Bss)
	for name, va := range b.Symbols {
		b.Symbols[name] = va - b.ImageBase + base
	}
	b.Mapper = addr.Dumped{Base: base, Size: uint64(len(b.Data))}
	b.ImageBase = base
	b.Dumped = true
}

// Space returns an address space over the binary for the given nominal version
func (b *Binary) Space(v types.Version) *addr.Space {
	return addr.New(b.Data, b.Mapper, b.PtrSize, v)
}
