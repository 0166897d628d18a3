package magic

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

type Magic uint32

const (
	Magic32    Magic = 0xfeedface
	Magic64    Magic = 0xfeedfacf
	MagicFatBE Magic = 0xcafebabe
	MagicFatLE Magic = 0xbebafeca
	MagicELF   Magic = 0x464c457f // \x7fELF
	MagicWasm  Magic = 0x6d736100 // \0asm
	MagicNSO   Magic = 0x304f534e // NSO0
	MagicPE    Magic = 0x00905a4d // MZ\x90\0
	MagicMeta  Magic = 0xfab11baf // global-metadata.dat sanity
)

// Kind is a recognized file type
type Kind int

const (
	Unknown Kind = iota
	ELF
	PE
	MachO
	MachOFat
	NSO
	Wasm
	Metadata
)

func (k Kind) String() string {
	switch k {
	case ELF:
		return "ELF"
	case PE:
		return "PE"
	case MachO:
		return "Mach-O"
	case MachOFat:
		return "Universal Mach-O"
	case NSO:
		return "NSO"
	case Wasm:
		return "WebAssembly"
	case Metadata:
		return "il2cpp metadata"
	default:
		return "unknown"
	}
}

// Detect classifies the first bytes of a file
func Detect(b []byte) Kind {
	if len(b) < 4 {
		return Unknown
	}
	m := Magic(binary.LittleEndian.Uint32(b))
	switch m {
	case Magic32, Magic64:
		return MachO
	case MagicFatBE, MagicFatLE:
		return MachOFat
	case MagicELF:
		return ELF
	case MagicWasm:
		return Wasm
	case MagicNSO:
		return NSO
	case MagicMeta:
		return Metadata
	}
	if b[0] == 'M' && b[1] == 'Z' {
		return PE
	}
	return Unknown
}

// DetectFile reads the magic of the file at path
func DetectFile(filePath string) (Kind, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return Unknown, fmt.Errorf("failed to open file %s: %w", filePath, err)
	}
	defer f.Close()

	var magic [4]byte
	if _, err = io.ReadFull(f, magic[:]); err != nil {
		return Unknown, fmt.Errorf("failed to read magic: %w", err)
	}
	return Detect(magic[:]), nil
}
