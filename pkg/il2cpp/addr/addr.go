// Package addr translates between virtual addresses and file offsets and reads typed data at a virtual address.
package addr

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrUnmappableAddress is returned when an address is outside every known range
	ErrUnmappableAddress = errors.New("unmappable address")
	// ErrTruncated is returned when fewer bytes remain than a read requires
	ErrTruncated = errors.New("truncated read")
)

// Range is one contiguous mapped region. Both intervals are closed: End is a valid member.
type Range struct {
	FileOffset    uint64
	FileOffsetEnd uint64
	Address       uint64
	AddressEnd    uint64
}

// NewRange builds a Range from a container's (offset, file size, address, memory size) tuple
func NewRange(offset, fileSize, address, memSize uint64) Range {
	return Range{
		FileOffset:    offset,
		FileOffsetEnd: offset + fileSize,
		Address:       address,
		AddressEnd:    address + memSize,
	}
}

// ContainsAddress reports whether va is inside [Address, AddressEnd]
func (r Range) ContainsAddress(va uint64) bool {
	return va >= r.Address && va <= r.AddressEnd
}

// ContainsOffset reports whether off is inside [FileOffset, FileOffsetEnd]
func (r Range) ContainsOffset(off uint64) bool {
	return off >= r.FileOffset && off <= r.FileOffsetEnd
}

// FileSize is the number of file backed bytes
func (r Range) FileSize() uint64 {
	return r.FileOffsetEnd - r.FileOffset
}

func (r Range) String() string {
	return fmt.Sprintf("off=%#x-%#x addr=%#x-%#x", r.FileOffset, r.FileOffsetEnd, r.Address, r.AddressEnd)
}

// Mapper converts between virtual addresses and file offsets
type Mapper interface {
	MapToFileOffset(va uint64) (uint64, error)
	MapToVirtualAddress(off uint64) (uint64, error)
}

// Table maps through an ordered list of ranges; the first range containing the input wins
type Table []Range

func (t Table) MapToFileOffset(va uint64) (uint64, error) {
	for _, r := range t {
		if r.ContainsAddress(va) {
			return va - r.Address + r.FileOffset, nil
		}
	}
	return 0, errors.Wrapf(ErrUnmappableAddress, "address %#x", va)
}

func (t Table) MapToVirtualAddress(off uint64) (uint64, error) {
	for _, r := range t {
		if r.ContainsOffset(off) {
			return off - r.FileOffset + r.Address, nil
		}
	}
	return 0, errors.Wrapf(ErrUnmappableAddress, "offset %#x", off)
}

// Dumped maps a memory image captured from a running process: the file
// is the module as loaded at Base, so offsets are addresses minus Base.
type Dumped struct {
	Base uint64
	Size uint64
}

func (d Dumped) MapToFileOffset(va uint64) (uint64, error) {
	if va < d.Base || va-d.Base >= d.Size {
		return 0, errors.Wrapf(ErrUnmappableAddress, "address %#x outside image at %#x", va, d.Base)
	}
	return va - d.Base, nil
}

func (d Dumped) MapToVirtualAddress(off uint64) (uint64, error) {
	if off >= d.Size {
		return 0, errors.Wrapf(ErrUnmappableAddress, "offset %#x outside image", off)
	}
	return off + d.Base, nil
}
