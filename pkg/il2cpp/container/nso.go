package container

import (
	"bytes"
	"encoding/binary"

	"github.com/apex/log"
	"github.com/blacktop/il2dump/internal/magic"
	"github.com/blacktop/il2dump/pkg/il2cpp/addr"
	"github.com/pierrec/lz4/v4"
	"github.com/pkg/errors"
)

type nsoSegment struct {
	FileOffset       uint32
	MemoryOffset     uint32
	DecompressedSize uint32
}

type nsoHeader struct {
	Magic            uint32
	Version          uint32
	Reserved         uint32
	Flags            uint32
	Text             nsoSegment
	ModuleNameOffset uint32
	RoData           nsoSegment
	ModuleNameSize   uint32
	Data             nsoSegment
	BssSize          uint32
	ModuleID         [0x20]byte
	TextFileSize     uint32
	RoDataFileSize   uint32
	DataFileSize     uint32
}

const (
	nsoTextCompressed   = 1 << 0
	nsoRoDataCompressed = 1 << 1
	nsoDataCompressed   = 1 << 2
)

// openNSO decompresses every segment into a memory image where file offsets equal addresses
func openNSO(data []byte) (*Binary, error) {
	var hdr nsoHeader
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &hdr); err != nil {
		return nil, errors.Wrap(err, "failed to read NSO header")
	}

	bssStart := uint64(hdr.Data.MemoryOffset) + uint64(hdr.Data.DecompressedSize)
	size := bssStart + uint64(hdr.BssSize)
	if size > 1<<32 {
		return nil, errors.Errorf("NSO image too large (%#x bytes)", size)
	}
	image := make([]byte, size)

	segs := []struct {
		name       string
		seg        nsoSegment
		fileSize   uint32
		compressed bool
	}{
		{"text", hdr.Text, hdr.TextFileSize, hdr.Flags&nsoTextCompressed != 0},
		{"rodata", hdr.RoData, hdr.RoDataFileSize, hdr.Flags&nsoRoDataCompressed != 0},
		{"data", hdr.Data, hdr.DataFileSize, hdr.Flags&nsoDataCompressed != 0},
	}
	var ranges []addr.Range
	for _, s := range segs {
		start, end := uint64(s.seg.FileOffset), uint64(s.seg.FileOffset)+uint64(s.fileSize)
		if end > uint64(len(data)) {
			return nil, errors.Errorf("NSO %s segment extends past end of file", s.name)
		}
		memEnd := uint64(s.seg.MemoryOffset) + uint64(s.seg.DecompressedSize)
		if memEnd > size {
			return nil, errors.Errorf("NSO %s segment is outside the module image", s.name)
		}
		dst := image[s.seg.MemoryOffset:memEnd]
		if s.compressed {
			n, err := lz4.UncompressBlock(data[start:end], dst)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to decompress NSO %s segment", s.name)
			}
			if n != len(dst) {
				return nil, errors.Errorf("NSO %s segment decompressed to %#x bytes, expected %#x", s.name, n, len(dst))
			}
		} else {
			copy(dst, data[start:end])
		}
		log.Debugf("NSO %s: %#x bytes at %#x", s.name, s.seg.DecompressedSize, s.seg.MemoryOffset)
		ranges = append(ranges, addr.NewRange(uint64(s.seg.MemoryOffset), uint64(s.seg.DecompressedSize), uint64(s.seg.MemoryOffset), uint64(s.seg.DecompressedSize)))
	}

	b := &Binary{
		Kind:    magic.NSO,
		Arch:    "arm64",
		Data:    image,
		PtrSize: 8,
		Mapper:  addr.Table{addr.NewRange(0, size, 0, size)},
		Symbols: make(map[string]uint64),
	}
	b.Sections.Exec = ranges[:1]
	b.Sections.Data = ranges[1:]
	b.Sections.Bss = []addr.Range{addr.NewRange(bssStart, uint64(hdr.BssSize), bssStart, uint64(hdr.BssSize))}
	return b, nil
}
