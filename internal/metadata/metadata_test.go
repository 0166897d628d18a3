package metadata

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/blacktop/il2dump/pkg/il2cpp/types"
)

func header(sanity uint32, version, images, assemblies int32) []byte {
	buf := make([]byte, minHeaderSize)
	binary.LittleEndian.PutUint32(buf[0:], sanity)
	binary.LittleEndian.PutUint32(buf[versionFieldOffset:], uint32(version))
	binary.LittleEndian.PutUint32(buf[imagesSizeOffset:], uint32(images))
	binary.LittleEndian.PutUint32(buf[assembliesSizeOffset:], uint32(assemblies))
	return buf
}

// metadataFile grows a metadata file whose header fields are placed with the layout of v
type metadataFile struct {
	t   *testing.T
	v   types.Version
	buf []byte
}

func newMetadataFile(t *testing.T, nominal uint32, v types.Version) *metadataFile {
	f := &metadataFile{t: t, v: v, buf: make([]byte, minHeaderSize)}
	f.put(0, Sanity, nominal)
	return f
}

func (f *metadataFile) put(off int, words ...uint32) {
	for i, w := range words {
		binary.LittleEndian.PutUint32(f.buf[off+4*i:], w)
	}
}

func (f *metadataFile) set(name string, val int) {
	f.t.Helper()
	off, ok := types.GlobalMetadataHeaderLayout.Offset(name, f.v, 4)
	if !ok {
		f.t.Fatalf("no header field %s in %s", name, f.v)
	}
	f.put(off, uint32(val))
}

// table appends words at the end of the file and points the header at them
func (f *metadataFile) table(offsetField, sizeField string, words ...uint32) {
	f.t.Helper()
	f.set(offsetField, len(f.buf))
	f.set(sizeField, 4*len(words))
	f.buf = append(f.buf, make([]byte, 4*len(words))...)
	f.put(len(f.buf)-4*len(words), words...)
}

// records returns n records of size words, each with word at index set to the next value of vals
func records(n, size, index int, vals ...uint32) []uint32 {
	out := make([]uint32, n*size)
	for i, v := range vals {
		out[i*size+index] = v
	}
	return out
}

func TestParse(t *testing.T) {
	h, err := Parse(header(Sanity, 29, 3*0x28, 3*0x40))
	if err != nil {
		t.Fatal(err)
	}
	if h.Version != types.V29 {
		t.Errorf("Version = %v, want 29", h.Version)
	}
	if h.ImageCount() != 3 {
		t.Errorf("ImageCount() = %d, want 3", h.ImageCount())
	}
}

func TestParseCounts(t *testing.T) {
	f := newMetadataFile(t, 24, types.V24_2)
	f.set("stringLiteralOffset", 0x108)
	f.table("imagesOffset", "imagesSize", records(2, 10, 7, 1, 1)...)
	f.table("typeDefinitionsOffset", "typeDefinitionsSize", records(5, 23, 0)...)
	f.table("methodsOffset", "methodsSize", records(7, 8, 0)...)
	f.table("metadataUsageListsOffset", "metadataUsageListsCount", 0, 3, 3, 1, 4, 2)
	f.table("metadataUsagePairsOffset", "metadataUsagePairsCount",
		4, 1<<29|7,
		9, 5<<29|2,
		20, 0, // no usage kind
		2, 3<<29,
	)

	h, err := Parse(f.buf)
	if err != nil {
		t.Fatal(err)
	}
	want := Header{
		Sanity:               Sanity,
		Version:              types.V24_2,
		ImagesSize:           2 * 0x28,
		TypeDefinitionsCount: 5,
		MethodCount:          7,
		MetadataUsagesCount:  10,
	}
	if *h != want {
		t.Errorf("Parse() = %+v, want %+v", *h, want)
	}
	if h.ImageCount() != 2 {
		t.Errorf("ImageCount() = %d, want 2", h.ImageCount())
	}
}

func TestParseMethodIndex(t *testing.T) {
	const noCode = 0xffffffff
	tests := []struct {
		name    string
		v       types.Version
		images  []uint32
		methods []uint32
		want    int
	}{
		{
			name:    "24",
			v:       types.V24,
			images:  records(2, 8, 7, 1, 1),
			methods: records(3, 14, 6, 0, noCode, 1),
			want:    2,
		},
		{
			name:    "24.1",
			v:       types.V24_1,
			images:  records(2, 10, 7, 1, 1),
			methods: records(2, 13, 5, noCode, 0),
			want:    1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newMetadataFile(t, 24, tt.v)
			f.set("stringLiteralOffset", 0x110)
			f.table("imagesOffset", "imagesSize", tt.images...)
			f.table("methodsOffset", "methodsSize", tt.methods...)
			h, err := Parse(f.buf)
			if err != nil {
				t.Fatal(err)
			}
			if h.Version != tt.v {
				t.Errorf("Version = %s, want %s", h.Version, tt.v)
			}
			if h.MethodCount != tt.want {
				t.Errorf("MethodCount = %d, want %d", h.MethodCount, tt.want)
			}
			if h.ImageCount() != 2 {
				t.Errorf("ImageCount() = %d, want 2", h.ImageCount())
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"short", make([]byte, 0x40), ErrTooSmall},
		{"sanity", header(0xdeadbeef, 24, 0x28, 0x40), ErrBadSanity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(tt.data); !errors.Is(err, tt.want) {
				t.Errorf("Parse() error = %v, want %v", err, tt.want)
			}
		})
	}
	if _, err := Parse(header(Sanity, 12, 0x28, 0x40)); err == nil {
		t.Error("Parse() accepted version 12")
	}
}

func TestIsLikely(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{"valid", header(0, 29, 2*0x28, 2*0x40), true},
		{"scrubbed sanity", header(0x12345678, 27, 0x28, 0x40), true},
		{"old version", header(Sanity, 15, 0x28, 0x40), false},
		{"future version", header(Sanity, 32, 0x28, 0x40), false},
		{"ragged images", header(Sanity, 24, 0x29, 0x40), false},
		{"no images", header(Sanity, 24, 0, 0x40), false},
		{"ragged assemblies", header(Sanity, 24, 0x28, 0x41), false},
		{"short", make([]byte, 0x100), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsLikely(tt.data); got != tt.want {
				t.Errorf("IsLikely() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "global-metadata.dat")
	if err := os.WriteFile(path, header(Sanity, 31, 0x28, 0x40), 0o644); err != nil {
		t.Fatal(err)
	}
	h, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if h.Version != types.V31 || h.ImageCount() != 1 {
		t.Errorf("Open() = %+v", h)
	}

	short := filepath.Join(t.TempDir(), "short.dat")
	if err := os.WriteFile(short, []byte{0xaf, 0x1b, 0xb1, 0xfa}, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(short); !errors.Is(err, ErrTooSmall) {
		t.Errorf("Open(short) error = %v", err)
	}
}

func TestProbe(t *testing.T) {
	h, err := Probe(header(0, 27, 2*0x28, 0x40))
	if err != nil {
		t.Fatal(err)
	}
	if h.Version != types.V27 || h.ImageCount() != 2 {
		t.Errorf("Probe() = %+v", h)
	}
	if _, err := Probe(header(0, 27, 0x29, 0x40)); !errors.Is(err, ErrBadSanity) {
		t.Errorf("Probe() error = %v, want ErrBadSanity", err)
	}
}
