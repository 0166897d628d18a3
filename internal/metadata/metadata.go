// Package metadata reads the global-metadata.dat side file.
//
// Only what the registration search needs is decoded: the schema version and the
// expected sizes of the image, type definition, method and metadata usage tables.
package metadata

import (
	"bytes"
	"encoding/binary"
	"os"

	"github.com/apex/log"
	"github.com/blacktop/il2dump/internal/magic"
	"github.com/blacktop/il2dump/pkg/il2cpp/types"
	"github.com/pkg/errors"
)

const (
	Sanity = uint32(magic.MagicMeta)

	minHeaderSize        = 0x120
	imagesSizeOffset     = 0xAC
	assembliesSizeOffset = 0xB4
	imageDefSize         = 0x28
	assemblyDefSize      = 0x40
	minLikelyVersion     = 16
	maxLikelyVersion     = 31
	versionFieldOffset   = 4

	// header size of 24.2 and later, where the string literal table starts
	header242Size = 0x108
	// metadata side file fields are always 32-bit
	fieldSize = 4
)

var (
	// ErrBadSanity is returned when the first word is not the metadata magic
	ErrBadSanity = errors.New("metadata file has a bad sanity value")
	// ErrTooSmall is returned when the buffer cannot hold a header
	ErrTooSmall = errors.New("metadata file is too small")
)

// Header is what the search needs from the metadata file
type Header struct {
	Sanity         uint32        `json:"sanity"`
	Version        types.Version `json:"version"`
	ImagesSize     int32         `json:"images_size"`
	AssembliesSize int32         `json:"assemblies_size"`
	// Counts taken from the tables the header points at.
	// A table outside the file leaves its count at zero.
	TypeDefinitionsCount int   `json:"type_definitions_count"`
	MethodCount          int   `json:"method_count"`
	MetadataUsagesCount  int64 `json:"metadata_usages_count"`
}

// ImageCount is the number of Il2CppImageDefinition entries
func (h Header) ImageCount() int {
	return count(h.ImagesSize, types.ImageDefinitionLayout.Size(h.Version, fieldSize))
}

// Parse decodes the metadata file in data
func Parse(data []byte) (*Header, error) {
	if len(data) < minHeaderSize {
		return nil, errors.Wrapf(ErrTooSmall, "%#x bytes", len(data))
	}
	var raw struct {
		Sanity  uint32
		Version int32
	}
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &raw); err != nil {
		return nil, errors.Wrap(err, "failed to read metadata header")
	}
	if raw.Sanity != Sanity {
		return nil, errors.Wrapf(ErrBadSanity, "%#x", raw.Sanity)
	}
	if raw.Version < minLikelyVersion || raw.Version > maxLikelyVersion {
		return nil, errors.Errorf("unsupported metadata version %d", raw.Version)
	}
	return decode(data)
}

// Probe is Parse but also accepts a scrubbed sanity word when the rest of the header is plausible
func Probe(data []byte) (*Header, error) {
	h, err := Parse(data)
	if errors.Is(err, ErrBadSanity) && IsLikely(data) {
		log.WithError(err).Warn("Metadata header looks valid, ignoring sanity")
		return decode(data)
	}
	return h, err
}

func decode(data []byte) (*Header, error) {
	v := resolveVersion(data, types.NewVersion(int(int32(binary.LittleEndian.Uint32(data[versionFieldOffset:]))), 0))
	raw, err := types.GlobalMetadataHeaderLayout.Decode(data, v, fieldSize)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode metadata header")
	}
	h := &Header{
		Sanity:               raw.Sanity,
		Version:              v,
		ImagesSize:           raw.ImagesSize,
		AssembliesSize:       raw.AssembliesSize,
		TypeDefinitionsCount: count(raw.TypeDefinitionsSize, types.TypeDefinitionLayout.Size(v, fieldSize)),
		MethodCount:          methodCount(data, raw, v),
		MetadataUsagesCount:  metadataUsagesCount(data, raw, v),
	}
	return h, nil
}

// resolveVersion splits the nominal 24 into 24, 24.1 and 24.2. 24.2 dropped two header
// fields, and 24.1 image definitions no longer line up with the 24 layout.
func resolveVersion(data []byte, v types.Version) types.Version {
	if v != types.V24 {
		return v
	}
	if raw, err := types.GlobalMetadataHeaderLayout.Decode(data, types.V24_2, fieldSize); err == nil && raw.StringLiteralOffset == header242Size {
		return types.V24_2
	}
	raw, err := types.GlobalMetadataHeaderLayout.Decode(data, types.V24, fieldSize)
	if err != nil {
		return v
	}
	b, ok := table(data, raw.ImagesOffset, raw.ImagesSize)
	if !ok {
		return v
	}
	size := types.ImageDefinitionLayout.Size(types.V24, fieldSize)
	images, err := types.ImageDefinitionLayout.DecodeArray(b, len(b)/size, types.V24, fieldSize)
	if err != nil {
		return v
	}
	for _, img := range images {
		if img.Token != 1 {
			log.Debugf("Image token %#x does not fit the 24 layout, using 24.1", img.Token)
			return types.V24_1
		}
	}
	return v
}

// methodCount counts the methods that have compiled code. From 24.2 on there is no
// methodIndex and every method counts.
func methodCount(data []byte, raw types.GlobalMetadataHeader, v types.Version) int {
	size := types.MethodDefinitionLayout.Size(v, fieldSize)
	if _, ok := types.MethodDefinitionLayout.Offset("methodIndex", v, fieldSize); !ok {
		return count(raw.MethodsSize, size)
	}
	b, ok := table(data, raw.MethodsOffset, raw.MethodsSize)
	if !ok {
		log.Debugf("Methods table %#x+%#x is outside the metadata file", raw.MethodsOffset, raw.MethodsSize)
		return 0
	}
	methods, err := types.MethodDefinitionLayout.DecodeArray(b, len(b)/size, v, fieldSize)
	if err != nil {
		return 0
	}
	var n int
	for _, m := range methods {
		if m.MethodIndex >= 0 {
			n++
		}
	}
	return n
}

// metadataUsagesCount is one past the highest metadataUsages slot any usage pair writes
func metadataUsagesCount(data []byte, raw types.GlobalMetadataHeader, v types.Version) int64 {
	if raw.MetadataUsageListsSize <= 0 || raw.MetadataUsagePairsSize <= 0 {
		return 0
	}
	lb, ok := table(data, raw.MetadataUsageListsOffset, raw.MetadataUsageListsSize)
	if !ok {
		return 0
	}
	pb, ok := table(data, raw.MetadataUsagePairsOffset, raw.MetadataUsagePairsSize)
	if !ok {
		return 0
	}
	lists, err := types.MetadataUsageListLayout.DecodeArray(lb, len(lb)/types.MetadataUsageListLayout.Size(v, fieldSize), v, fieldSize)
	if err != nil {
		return 0
	}
	pairs, err := types.MetadataUsagePairLayout.DecodeArray(pb, len(pb)/types.MetadataUsagePairLayout.Size(v, fieldSize), v, fieldSize)
	if err != nil {
		return 0
	}
	last := int64(-1)
	for _, l := range lists {
		for i := uint64(0); i < uint64(l.Count); i++ {
			idx := uint64(l.Start) + i
			if idx >= uint64(len(pairs)) {
				break
			}
			p := pairs[idx]
			if u := p.Usage(); u < 1 || u > 6 {
				continue
			}
			last = max(last, int64(p.DestinationIndex))
		}
	}
	return last + 1
}

// table returns the size bytes at off, or false when they are not all inside data
func table(data []byte, off, size int32) ([]byte, bool) {
	if off < 0 || size <= 0 || int64(off)+int64(size) > int64(len(data)) {
		return nil, false
	}
	return data[int64(off) : int64(off)+int64(size)], true
}

func count(size int32, elem int) int {
	if size <= 0 || elem <= 0 {
		return 0
	}
	return int(size) / elem
}

// Open reads and probes the metadata file at path
func Open(path string) (*Header, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}
	if len(data) < minHeaderSize {
		return nil, errors.Wrapf(ErrTooSmall, "%s is %#x bytes", path, len(data))
	}
	return Probe(data)
}

// IsLikely reports whether data looks like a metadata file even if it was
// decrypted or had its sanity word scrubbed.
func IsLikely(data []byte) bool {
	if len(data) < minHeaderSize {
		return false
	}
	version := int32(binary.LittleEndian.Uint32(data[versionFieldOffset:]))
	if version < minLikelyVersion || version > maxLikelyVersion {
		return false
	}
	imagesSize := int32(binary.LittleEndian.Uint32(data[imagesSizeOffset:]))
	if imagesSize <= 0 || imagesSize%imageDefSize != 0 {
		return false
	}
	assembliesSize := int32(binary.LittleEndian.Uint32(data[assembliesSizeOffset:]))
	return assembliesSize > 0 && assembliesSize%assemblyDefSize == 0
}
