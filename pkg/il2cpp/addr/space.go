package addr

import (
	"bytes"
	"encoding/binary"

	"github.com/blacktop/il2dump/pkg/il2cpp/types"
	"github.com/pkg/errors"
)

// Space is a fully buffered binary image together with its address mapping.
// Reads never move shared state, so a Space can be scanned from several goroutines
// as long as Version is not changed concurrently.
type Space struct {
	Data    []byte
	Mapper  Mapper
	PtrSize int
	Version types.Version
}

// New returns a Space over data
func New(data []byte, m Mapper, ptrSize int, v types.Version) *Space {
	return &Space{Data: data, Mapper: m, PtrSize: ptrSize, Version: v}
}

// Is32Bit reports whether pointers are 4 bytes wide
func (s *Space) Is32Bit() bool { return s.PtrSize == 4 }

// Len is the size of the buffered image
func (s *Space) Len() uint64 { return uint64(len(s.Data)) }

func (s *Space) MapToFileOffset(va uint64) (uint64, error) {
	return s.Mapper.MapToFileOffset(va)
}

func (s *Space) MapToVirtualAddress(off uint64) (uint64, error) {
	return s.Mapper.MapToVirtualAddress(off)
}

// IsMappable reports whether va translates to a file offset
func (s *Space) IsMappable(va uint64) bool {
	_, err := s.Mapper.MapToFileOffset(va)
	return err == nil
}

// Bytes returns n bytes at file offset off without copying
func (s *Space) Bytes(off uint64, n uint64) ([]byte, error) {
	if off > s.Len() || n > s.Len()-off {
		return nil, errors.Wrapf(ErrTruncated, "%#x bytes at offset %#x (image is %#x bytes)", n, off, s.Len())
	}
	return s.Data[off : off+n], nil
}

// BytesAt returns n bytes at virtual address va without copying
func (s *Space) BytesAt(va uint64, n uint64) ([]byte, error) {
	off, err := s.Mapper.MapToFileOffset(va)
	if err != nil {
		return nil, err
	}
	return s.Bytes(off, n)
}

// PointerAt decodes a pointer sized value at file offset off
func (s *Space) PointerAt(off uint64) (uint64, error) {
	b, err := s.Bytes(off, uint64(s.PtrSize))
	if err != nil {
		return 0, err
	}
	return s.pointer(b), nil
}

// IntPtrAt decodes a sign extended pointer sized value at file offset off
func (s *Space) IntPtrAt(off uint64) (int64, error) {
	b, err := s.Bytes(off, uint64(s.PtrSize))
	if err != nil {
		return 0, err
	}
	if s.PtrSize == 4 {
		return int64(int32(binary.LittleEndian.Uint32(b))), nil
	}
	return int64(binary.LittleEndian.Uint64(b)), nil
}

func (s *Space) pointer(b []byte) uint64 {
	if s.PtrSize == 4 {
		return uint64(binary.LittleEndian.Uint32(b))
	}
	return binary.LittleEndian.Uint64(b)
}

// ReadPointer reads a pointer sized value at va
func (s *Space) ReadPointer(va uint64) (uint64, error) {
	off, err := s.Mapper.MapToFileOffset(va)
	if err != nil {
		return 0, err
	}
	return s.PointerAt(off)
}

// ReadPointers reads count pointer sized values at va. A zero count never touches va.
func (s *Space) ReadPointers(va uint64, count uint64) ([]uint64, error) {
	if count == 0 {
		return []uint64{}, nil
	}
	off, err := s.Mapper.MapToFileOffset(va)
	if err != nil {
		return nil, err
	}
	return s.PointersAt(off, count)
}

// PointersAt reads count pointer sized values at file offset off
func (s *Space) PointersAt(off uint64, count uint64) ([]uint64, error) {
	if count > s.Len() {
		return nil, errors.Wrapf(ErrTruncated, "%d pointers at offset %#x", count, off)
	}
	b, err := s.Bytes(off, count*uint64(s.PtrSize))
	if err != nil {
		return nil, err
	}
	out := make([]uint64, count)
	for i := range out {
		out[i] = s.pointer(b[i*s.PtrSize:])
	}
	return out, nil
}

// ReadUint32s reads count 32-bit values at va
func (s *Space) ReadUint32s(va uint64, count uint64) ([]uint32, error) {
	if count == 0 {
		return []uint32{}, nil
	}
	if count > s.Len() {
		return nil, errors.Wrapf(ErrTruncated, "%d words at %#x", count, va)
	}
	b, err := s.BytesAt(va, count*4)
	if err != nil {
		return nil, err
	}
	out := make([]uint32, count)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return out, nil
}

// ReadInt32 reads a signed 32-bit value at va
func (s *Space) ReadInt32(va uint64) (int32, error) {
	b, err := s.BytesAt(va, 4)
	if err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(b)), nil
}

// ReadCString reads a NUL terminated string at va
func (s *Space) ReadCString(va uint64) (string, error) {
	off, err := s.Mapper.MapToFileOffset(va)
	if err != nil {
		return "", err
	}
	if off >= s.Len() {
		return "", errors.Wrapf(ErrTruncated, "string at %#x", va)
	}
	end := bytes.IndexByte(s.Data[off:], 0)
	if end < 0 {
		return "", errors.Wrapf(ErrTruncated, "unterminated string at %#x", va)
	}
	return string(s.Data[off : off+uint64(end)]), nil
}

// Read decodes a single structure at va using the current version
func Read[T any](s *Space, l *types.Layout[T], va uint64) (T, error) {
	var zero T
	b, err := s.BytesAt(va, uint64(l.Size(s.Version, s.PtrSize)))
	if err != nil {
		return zero, err
	}
	return l.Decode(b, s.Version, s.PtrSize)
}

// ReadArray decodes count consecutive structures at va. A zero count never touches va.
func ReadArray[T any](s *Space, l *types.Layout[T], va uint64, count uint64) ([]T, error) {
	if count == 0 {
		return []T{}, nil
	}
	size := uint64(l.Size(s.Version, s.PtrSize))
	if count > s.Len() || size == 0 {
		return nil, errors.Wrapf(ErrTruncated, "%s[%d] at %#x", l.Name, count, va)
	}
	b, err := s.BytesAt(va, count*size)
	if err != nil {
		return nil, err
	}
	return l.DecodeArray(b, int(count), s.Version, s.PtrSize)
}
