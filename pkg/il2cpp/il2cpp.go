// Package il2cpp recovers the code and metadata registration tables of an il2cpp
// binary and exposes the method pointers, types and generic tables they describe.
package il2cpp

import (
	"fmt"
	"os"

	"github.com/apex/log"
	"github.com/blacktop/il2dump/internal/magic"
	"github.com/blacktop/il2dump/pkg/il2cpp/addr"
	"github.com/blacktop/il2dump/pkg/il2cpp/container"
	"github.com/blacktop/il2dump/pkg/il2cpp/types"
	"github.com/pkg/errors"
)

var (
	// ErrStructureNotFound is returned when no strategy located a registration root
	ErrStructureNotFound = errors.New("registration structure not found")
	// ErrOversizedTable marks a count field that is implausibly large for the image
	ErrOversizedTable = errors.New("oversized table")
)

// invoker and RGCTX counts above these limits mean the layout is a newer sub-version
const (
	versionProbeLimit     = 0x50000
	versionProbeLimitWasm = 0x35000
)

// Config holds the nominal schema version and the expected table sizes read from the metadata side-file.
// Zero counts disable the matching plausibility checks.
type Config struct {
	Version                      types.Version
	ExpectedImageCount           int
	ExpectedTypeDefinitionsCount int
	ExpectedMethodCount          int // methods with a non-negative method index
	MetadataUsagesCount          int64
}

// File is an il2cpp binary and, once initialized, its recovered registration tables
type File struct {
	Tables

	bin     *container.Binary
	conf    Config
	space   *addr.Space
	version types.Version

	initialized bool
	transitions []Transition
}

// New returns a File over an already parsed container
func New(b *container.Binary, conf Config) (*File, error) {
	if b == nil {
		return nil, errors.New("nil binary")
	}
	if conf.Version < types.V16 {
		return nil, errors.Errorf("unsupported il2cpp version %s", conf.Version)
	}
	if b.PtrSize != 4 && b.PtrSize != 8 {
		return nil, errors.Errorf("unsupported pointer size %d", b.PtrSize)
	}
	return &File{
		bin:     b,
		conf:    conf,
		space:   b.Space(conf.Version),
		version: conf.Version,
	}, nil
}

// Open reads and parses the binary at path
func Open(path string, conf Config, opts ...container.Option) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}
	b, err := container.Open(data, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", path)
	}
	log.WithFields(log.Fields{
		"format": b.Kind,
		"arch":   b.Arch,
		"base":   b.ImageBase,
	}).Debug("Parsed binary")
	return New(b, conf)
}

// Binary returns the underlying container
func (f *File) Binary() *container.Binary { return f.bin }

// Version returns the schema version, refined by initialization
func (f *File) Version() types.Version { return f.version }

// Transitions returns the version refinements taken by the successful initialization
func (f *File) Transitions() []Transition { return f.transitions }

// Initialized reports whether a registration pair has been accepted
func (f *File) Initialized() bool { return f.initialized }

// Is32Bit reports whether the binary uses 4 byte pointers
func (f *File) Is32Bit() bool { return f.bin.PtrSize == 4 }

// Rebase treats the file as a memory dump of the module loaded at base
func (f *File) Rebase(base uint64) {
	f.bin.Rebase(base)
	f.space = f.bin.Space(f.conf.Version)
}

// RVA converts a virtual address to an offset from the image base
func (f *File) RVA(va uint64) uint64 {
	return va - f.bin.ImageBase
}

func (f *File) probeLimit() uint64 {
	if f.bin.Kind == magic.Wasm {
		return versionProbeLimitWasm
	}
	return versionProbeLimit
}

// attemptSpace returns a private address space at the nominal version for one initialization attempt
func (f *File) attemptSpace() *addr.Space {
	s := *f.space
	s.Version = f.conf.Version
	return &s
}

func hex(v uint64) string { return fmt.Sprintf("%#x", v) }
