package container

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"

	"github.com/apex/log"
	"github.com/blacktop/il2dump/internal/magic"
	"github.com/blacktop/il2dump/pkg/il2cpp/addr"
	"github.com/pkg/errors"
)

const (
	wasmSectionImport   = 2
	wasmSectionFunction = 3
	wasmSectionData     = 11

	wasmOpI32Const = 0x41
	wasmOpEnd      = 0x0b

	// the linker reserves the first KiB of linear memory
	wasmDataStart = 1024
)

type wasmReader struct {
	*bytes.Reader
}

func (r wasmReader) uleb() (uint64, error) {
	return binary.ReadUvarint(r)
}

func (r wasmReader) sleb() (int64, error) {
	var result int64
	var shift uint
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		result |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			if shift < 64 && b&0x40 != 0 {
				result |= -1 << shift
			}
			return result, nil
		}
		if shift >= 64 {
			return 0, errors.New("sleb128 overflow")
		}
	}
}

func (r wasmReader) name() error {
	n, err := r.uleb()
	if err != nil {
		return err
	}
	_, err = r.Seek(int64(n), io.SeekCurrent)
	return err
}

func (r wasmReader) limits() error {
	flags, err := r.ReadByte()
	if err != nil {
		return err
	}
	if _, err := r.uleb(); err != nil {
		return err
	}
	if flags&1 != 0 {
		_, err = r.uleb()
	}
	return err
}

type wasmData struct {
	offset uint64
	bytes  []byte
}

// openWasm rebuilds linear memory from the active data segments. Function pointers in
// WebAssembly are table indices, so the exec range covers [0, function count].
func openWasm(data []byte) (*Binary, error) {
	if len(data) < 8 {
		return nil, errors.New("WebAssembly module too short")
	}
	r := wasmReader{bytes.NewReader(data[8:])}

	var funcs uint64
	var segs []wasmData
	for r.Len() > 0 {
		id, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		size, err := r.uleb()
		if err != nil {
			return nil, errors.Wrap(err, "failed to read section size")
		}
		if size > uint64(r.Len()) {
			return nil, errors.Errorf("section %d extends past end of module", id)
		}
		body := make([]byte, size)
		if _, err := io.ReadFull(r, body); err != nil {
			return nil, err
		}
		sr := wasmReader{bytes.NewReader(body)}
		switch id {
		case wasmSectionImport:
			n, err := sr.importedFunctions()
			if err != nil {
				return nil, errors.Wrap(err, "failed to parse import section")
			}
			funcs += n
		case wasmSectionFunction:
			n, err := sr.uleb()
			if err != nil {
				return nil, errors.Wrap(err, "failed to parse function section")
			}
			funcs += n
		case wasmSectionData:
			if segs, err = sr.dataSegments(); err != nil {
				return nil, errors.Wrap(err, "failed to parse data section")
			}
		}
	}
	if len(segs) == 0 {
		return nil, errors.New("WebAssembly module has no data segments")
	}

	var size uint64
	for _, s := range segs {
		size = max(size, s.offset+uint64(len(s.bytes)))
	}
	if size > math.MaxUint32 {
		return nil, errors.Errorf("linear memory too large (%#x bytes)", size)
	}
	memory := make([]byte, size)
	for _, s := range segs {
		copy(memory[s.offset:], s.bytes)
	}
	log.Debugf("WebAssembly: %d functions, %#x bytes of linear memory from %d segments", funcs, size, len(segs))

	b := &Binary{
		Kind:    magic.Wasm,
		Arch:    "wasm32",
		Data:    memory,
		PtrSize: 4,
		Mapper:  addr.Table{addr.NewRange(0, size, 0, size)},
		Symbols: make(map[string]uint64),
	}
	b.Sections.Exec = []addr.Range{{Address: 0, AddressEnd: funcs}}
	if size > wasmDataStart {
		b.Sections.Data = []addr.Range{addr.NewRange(wasmDataStart, size-wasmDataStart, wasmDataStart, size-wasmDataStart)}
	}
	b.Sections.Bss = []addr.Range{{FileOffset: size, FileOffsetEnd: math.MaxUint64, Address: size, AddressEnd: math.MaxUint64}}
	return b, nil
}

func (r wasmReader) importedFunctions() (uint64, error) {
	count, err := r.uleb()
	if err != nil {
		return 0, err
	}
	var funcs uint64
	for range count {
		if err := r.name(); err != nil {
			return 0, err
		}
		if err := r.name(); err != nil {
			return 0, err
		}
		kind, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		switch kind {
		case 0: // func
			funcs++
			_, err = r.uleb()
		case 1: // table
			if _, err = r.ReadByte(); err == nil {
				err = r.limits()
			}
		case 2: // memory
			err = r.limits()
		case 3: // global
			_, err = r.Seek(2, io.SeekCurrent)
		default:
			err = errors.Errorf("unknown import kind %d", kind)
		}
		if err != nil {
			return 0, err
		}
	}
	return funcs, nil
}

func (r wasmReader) dataSegments() ([]wasmData, error) {
	count, err := r.uleb()
	if err != nil {
		return nil, err
	}
	var segs []wasmData
	for range count {
		flags, err := r.uleb()
		if err != nil {
			return nil, err
		}
		var offset int64
		active := flags != 1
		if flags == 2 {
			if _, err := r.uleb(); err != nil { // memory index
				return nil, err
			}
		}
		if active {
			op, err := r.ReadByte()
			if err != nil {
				return nil, err
			}
			if op != wasmOpI32Const {
				return nil, errors.Errorf("unsupported data offset opcode %#x", op)
			}
			if offset, err = r.sleb(); err != nil {
				return nil, err
			}
			if end, err := r.ReadByte(); err != nil || end != wasmOpEnd {
				return nil, errors.New("unterminated data offset expression")
			}
		}
		n, err := r.uleb()
		if err != nil {
			return nil, err
		}
		if n > uint64(r.Len()) {
			return nil, errors.New("data segment extends past end of section")
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		if active && offset >= 0 {
			segs = append(segs, wasmData{offset: uint64(uint32(offset)), bytes: buf})
		}
	}
	return segs, nil
}
