package types

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// ErrDecodeFailure is returned when bytes cannot be decoded into a structure
var ErrDecodeFailure = errors.New("decode failure")

type kind uint8

const (
	uptr kind = iota // pointer sized, zero extended
	iptr             // pointer sized, sign extended
	u32
	i32
	u16
)

func (k kind) size(ptrSize int) int {
	switch k {
	case uptr, iptr:
		return ptrSize
	case u16:
		return 2
	default:
		return 4
	}
}

type field[T any] struct {
	name  string
	kind  kind
	spans []span // empty means every version
	set   func(*T, uint64)
}

func (f field[T]) present(v Version) bool {
	if len(f.spans) == 0 {
		return true
	}
	for _, s := range f.spans {
		if s.contains(v) {
			return true
		}
	}
	return false
}

// Layout describes the on-disk field sequence of a structure for every schema version.
// Fields are packed back to back with no padding, little-endian.
type Layout[T any] struct {
	Name   string
	fields []field[T]
}

// Size returns the number of bytes a single T occupies for the given version and pointer width
func (l *Layout[T]) Size(v Version, ptrSize int) int {
	var n int
	for _, f := range l.fields {
		if f.present(v) {
			n += f.kind.size(ptrSize)
		}
	}
	return n
}

// Offset returns the byte offset of the named field, or false if the field does not exist in v
func (l *Layout[T]) Offset(name string, v Version, ptrSize int) (int, bool) {
	var n int
	for _, f := range l.fields {
		if !f.present(v) {
			continue
		}
		if f.name == name {
			return n, true
		}
		n += f.kind.size(ptrSize)
	}
	return 0, false
}

// Decode decodes a single T from the start of b
func (l *Layout[T]) Decode(b []byte, v Version, ptrSize int) (T, error) {
	var out T
	if ptrSize != 4 && ptrSize != 8 {
		return out, errors.Wrapf(ErrDecodeFailure, "%s: invalid pointer size %d", l.Name, ptrSize)
	}
	if need := l.Size(v, ptrSize); len(b) < need {
		return out, errors.Wrapf(ErrDecodeFailure, "%s: need %d bytes, have %d", l.Name, need, len(b))
	}
	var off int
	for _, f := range l.fields {
		if !f.present(v) {
			continue
		}
		var val uint64
		switch f.kind {
		case uptr:
			if ptrSize == 8 {
				val = binary.LittleEndian.Uint64(b[off:])
			} else {
				val = uint64(binary.LittleEndian.Uint32(b[off:]))
			}
		case iptr:
			if ptrSize == 8 {
				val = binary.LittleEndian.Uint64(b[off:])
			} else {
				val = uint64(int64(int32(binary.LittleEndian.Uint32(b[off:]))))
			}
		case u32:
			val = uint64(binary.LittleEndian.Uint32(b[off:]))
		case i32:
			val = uint64(int64(int32(binary.LittleEndian.Uint32(b[off:]))))
		case u16:
			val = uint64(binary.LittleEndian.Uint16(b[off:]))
		}
		f.set(&out, val)
		off += f.kind.size(ptrSize)
	}
	return out, nil
}

// DecodeArray decodes count consecutive T values from b
func (l *Layout[T]) DecodeArray(b []byte, count int, v Version, ptrSize int) ([]T, error) {
	size := l.Size(v, ptrSize)
	if count < 0 || len(b) < size*count {
		return nil, errors.Wrapf(ErrDecodeFailure, "%s[%d]: need %d bytes, have %d", l.Name, count, size*count, len(b))
	}
	out := make([]T, count)
	for i := range out {
		item, err := l.Decode(b[i*size:], v, ptrSize)
		if err != nil {
			return nil, err
		}
		out[i] = item
	}
	return out, nil
}
