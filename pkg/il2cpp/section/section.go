// Package section classifies mapped ranges as executable, initialized data or bss.
package section

import (
	"github.com/blacktop/il2dump/pkg/il2cpp/addr"
)

// Kind tags a range list
type Kind uint8

const (
	Exec Kind = iota
	Data
	Bss
)

func (k Kind) String() string {
	switch k {
	case Exec:
		return "exec"
	case Data:
		return "data"
	case Bss:
		return "bss"
	default:
		return "unknown"
	}
}

// Set holds the three classified range lists. All membership tests use closed intervals.
type Set struct {
	Exec []addr.Range
	Data []addr.Range
	Bss  []addr.Range
	// PreferExec makes the module table search scan exec before data
	PreferExec bool
}

// Ranges returns the list for k
func (s *Set) Ranges(k Kind) []addr.Range {
	switch k {
	case Exec:
		return s.Exec
	case Data:
		return s.Data
	case Bss:
		return s.Bss
	}
	return nil
}

// Set replaces the list for k
func (s *Set) Set(k Kind, ranges []addr.Range) {
	switch k {
	case Exec:
		s.Exec = ranges
	case Data:
		s.Data = ranges
	case Bss:
		s.Bss = ranges
	}
}

// ContainsAddress reports whether any range of kind k contains va
func (s *Set) ContainsAddress(k Kind, va uint64) bool {
	for _, r := range s.Ranges(k) {
		if r.ContainsAddress(va) {
			return true
		}
	}
	return false
}

// ContainsOffset reports whether any range of kind k contains the file offset off
func (s *Set) ContainsOffset(k Kind, off uint64) bool {
	for _, r := range s.Ranges(k) {
		if r.ContainsOffset(off) {
			return true
		}
	}
	return false
}

// AllAddresses reports whether every va is inside some range of kind k
func (s *Set) AllAddresses(k Kind, vas []uint64) bool {
	for _, va := range vas {
		if !s.ContainsAddress(k, va) {
			return false
		}
	}
	return true
}

func (s *Set) InExec(va uint64) bool        { return s.ContainsAddress(Exec, va) }
func (s *Set) InData(va uint64) bool        { return s.ContainsAddress(Data, va) }
func (s *Set) InBss(va uint64) bool         { return s.ContainsAddress(Bss, va) }
func (s *Set) InDataOffset(off uint64) bool { return s.ContainsOffset(Data, off) }
