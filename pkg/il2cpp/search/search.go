// Package search locates the code and metadata registration tables in a stripped binary.
package search

import (
	"github.com/apex/log"
	"github.com/blacktop/il2dump/pkg/il2cpp/addr"
	"github.com/blacktop/il2dump/pkg/il2cpp/section"
	"github.com/blacktop/il2dump/pkg/il2cpp/types"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
)

// maxBackSlots is how many pointer sized positions the structural fallbacks probe behind a count hit
const maxBackSlots = 64

// sampleCount is how many array entries are checked when validating a pointer array
const sampleCount = 3

const referenceCacheSize = 4096

// Counts are the expected table sizes taken from the metadata side-file
type Counts struct {
	Methods         int // methods with a non-negative method index
	TypeDefinitions int
	Images          int
	MetadataUsages  int64
}

// Locator runs the registration searches over one address space
type Locator struct {
	space    *addr.Space
	sections *section.Set
	counts   Counts

	pointerInExec bool
	refs          *lru.Cache[uint64, []uint64]
}

// New returns a Locator
func New(s *addr.Space, secs *section.Set, c Counts) (*Locator, error) {
	if s.PtrSize != 4 && s.PtrSize != 8 {
		return nil, errors.Errorf("invalid pointer size %d", s.PtrSize)
	}
	refs, err := lru.New[uint64, []uint64](referenceCacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create reference cache")
	}
	return &Locator{
		space:    s,
		sections: secs,
		counts:   c,
		refs:     refs,
	}, nil
}

// PointerInExec reports whether the module table was found by scanning exec ranges
func (l *Locator) PointerInExec() bool {
	return l.pointerInExec
}

func (l *Locator) ptrSize() uint64 {
	return uint64(l.space.PtrSize)
}

// FindCodeRegistration returns the address of CodeRegistration, or false if no strategy matched
func (l *Locator) FindCodeRegistration() (uint64, bool) {
	if l.space.Version < types.V24_2 {
		return l.FindCodeRegistrationOld()
	}

	first, second := section.Data, section.Exec
	if l.sections.PreferExec {
		first, second = section.Exec, section.Data
	}
	if cr, ok := l.FindCodeRegistration2019(first); ok {
		l.pointerInExec = first == section.Exec
		return cr, true
	}
	if cr, ok := l.FindCodeRegistration2019(second); ok {
		l.pointerInExec = second == section.Exec
		return cr, true
	}

	log.Debug("module name references did not lead to CodeRegistration, scanning for codeGenModules")
	return l.FindCodeRegistrationByCodeGenModules()
}

// FindMetadataRegistration returns the address of MetadataRegistration, or false if no strategy matched
func (l *Locator) FindMetadataRegistration() (uint64, bool) {
	if l.space.Version < types.V19 {
		return 0, false
	}
	if l.space.Version >= types.V27 {
		if mr, ok := l.FindMetadataRegistrationV21(); ok {
			return mr, true
		}
	} else {
		if mr, ok := l.FindMetadataRegistrationOld(); ok {
			return mr, true
		}
	}
	log.Debug("type definition count scan failed, scanning for metadataUsages")
	return l.FindMetadataRegistrationByMetadataUsages()
}

// sectionBytes returns the file backed bytes of r, clipped to the image
func (l *Locator) sectionBytes(r addr.Range) []byte {
	start, end := r.FileOffset, r.FileOffsetEnd
	if end > l.space.Len() {
		end = l.space.Len()
	}
	if start >= end {
		return nil
	}
	return l.space.Data[start:end]
}

// slotAddress converts a file offset inside r to its virtual address minus back pointer slots
func (l *Locator) slotAddress(r addr.Range, off uint64, back uint64) (uint64, bool) {
	va := off - r.FileOffset + r.Address
	if va < back*l.ptrSize() {
		return 0, false
	}
	return va - back*l.ptrSize(), true
}

// checkPointerArray maps arrayVA and checks the first few entries are non-null pointers into k
func (l *Locator) checkPointerArray(k section.Kind, arrayVA uint64, count uint64) bool {
	if arrayVA == 0 || count == 0 {
		return false
	}
	c := addr.NewCursor(l.space, 0)
	if err := c.SeekToAddr(arrayVA); err != nil || c.Offset() == 0 {
		return false
	}
	for range min(sampleCount, count) {
		p, err := c.ReadPointer()
		if err != nil || p == 0 {
			return false
		}
		if !l.sections.ContainsAddress(k, p) {
			return false
		}
	}
	return true
}
