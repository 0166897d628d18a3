package addr

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// Cursor is a sequential reader over a Space. Each initialization attempt owns its own Cursor.
type Cursor struct {
	s   *Space
	off uint64
}

// NewCursor returns a Cursor positioned at file offset off
func NewCursor(s *Space, off uint64) *Cursor {
	return &Cursor{s: s, off: off}
}

// Offset returns the current file offset
func (c *Cursor) Offset() uint64 { return c.off }

func (c *Cursor) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	default:
		return 0, errors.New("Seek: invalid whence")
	case io.SeekStart:
	case io.SeekCurrent:
		offset += int64(c.off)
	case io.SeekEnd:
		offset += int64(c.s.Len())
	}
	if offset < 0 {
		return 0, errors.New("Seek: invalid offset")
	}
	c.off = uint64(offset)
	return offset, nil
}

// SeekToAddr moves the cursor to the file offset backing va
func (c *Cursor) SeekToAddr(va uint64) error {
	off, err := c.s.MapToFileOffset(va)
	if err != nil {
		return err
	}
	c.off = off
	return nil
}

func (c *Cursor) Read(p []byte) (int, error) {
	if c.off >= c.s.Len() {
		return 0, io.EOF
	}
	n := copy(p, c.s.Data[c.off:])
	c.off += uint64(n)
	return n, nil
}

// ReadPointer reads a pointer sized value and advances
func (c *Cursor) ReadPointer() (uint64, error) {
	v, err := c.s.PointerAt(c.off)
	if err != nil {
		return 0, err
	}
	c.off += uint64(c.s.PtrSize)
	return v, nil
}

// ReadInt32 reads a signed 32-bit value and advances
func (c *Cursor) ReadInt32() (int32, error) {
	b, err := c.s.Bytes(c.off, 4)
	if err != nil {
		return 0, err
	}
	c.off += 4
	return int32(binary.LittleEndian.Uint32(b)), nil
}
