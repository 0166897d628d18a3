package container

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/apex/log"
	"github.com/blacktop/go-macho"
	mtypes "github.com/blacktop/go-macho/types"
	"github.com/blacktop/il2dump/internal/magic"
	"github.com/blacktop/il2dump/pkg/il2cpp/addr"
	"github.com/pkg/errors"
)

const (
	sectionTypeMask = 0xff
	vmProtExecute   = 0x4
)

// section types that occupy no file space
const (
	sectionZerofill       = 0x1
	sectionGBZerofill     = 0xc
	sectionThreadZerofill = 0x12
)

func openMachO(data []byte) (*Binary, error) {
	m, err := macho.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse Mach-O")
	}
	defer m.Close()
	return fromMachO(m, data)
}

func openFatMachO(data []byte, selectArch ArchSelector) (*Binary, error) {
	fat, err := macho.NewFatFile(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse universal Mach-O")
	}
	defer fat.Close()
	if len(fat.Arches) == 0 {
		return nil, errors.New("universal Mach-O has no slices")
	}

	choice := 0
	if len(fat.Arches) > 1 {
		if selectArch == nil {
			return nil, errors.New("universal Mach-O needs an architecture choice")
		}
		var options []string
		for _, arch := range fat.Arches {
			options = append(options, fmt.Sprintf("%s, %s", arch.CPU, arch.SubCPU.String(arch.CPU)))
		}
		if choice, err = selectArch(options); err != nil {
			return nil, err
		}
		if choice < 0 || choice >= len(fat.Arches) {
			return nil, errors.Errorf("invalid architecture choice %d", choice)
		}
	}
	arch := fat.Arches[choice]
	start, end := uint64(arch.Offset), uint64(arch.Offset)+uint64(arch.Size)
	if end > uint64(len(data)) {
		return nil, errors.Errorf("slice %d extends past end of file", choice)
	}
	log.Debugf("Using %s slice at %#x", arch.CPU, start)
	return fromMachO(arch.File, data[start:end])
}

func fromMachO(m *macho.File, data []byte) (*Binary, error) {
	b := &Binary{
		Kind:    magic.MachO,
		Arch:    m.CPU.String(),
		Data:    data,
		PtrSize: 4,
		Symbols: make(map[string]uint64),
	}
	if m.Magic == mtypes.Magic64 {
		b.PtrSize = 8
	}

	var table addr.Table
	execSegs := make(map[string]bool)
	for _, seg := range m.Segments() {
		if seg.Filesz == 0 && seg.Memsz == 0 {
			continue
		}
		if seg.Name == "__TEXT" {
			b.ImageBase = seg.Addr
		}
		r := addr.NewRange(seg.Offset, seg.Filesz, seg.Addr, seg.Memsz)
		table = append(table, r)
		if seg.Prot&vmProtExecute != 0 {
			execSegs[seg.Name] = true
			b.Sections.Exec = append(b.Sections.Exec, r)
		}
	}
	if len(table) == 0 {
		return nil, errors.New("Mach-O has no segments")
	}
	b.Mapper = table

	for _, sec := range m.Sections {
		if execSegs[sec.Seg] {
			continue
		}
		r := addr.NewRange(uint64(sec.Offset), sec.Size, sec.Addr, sec.Size)
		switch uint32(sec.Flags) & sectionTypeMask {
		case sectionZerofill, sectionGBZerofill, sectionThreadZerofill:
			b.Sections.Bss = append(b.Sections.Bss, r)
		default:
			b.Sections.Data = append(b.Sections.Data, r)
		}
	}
	if len(b.Sections.Bss) == 0 {
		b.Sections.Bss = b.Sections.Data
	}

	if m.Symtab != nil {
		for _, sym := range m.Symtab.Syms {
			if sym.Value != 0 {
				b.Symbols[strings.TrimPrefix(sym.Name, "_")] = sym.Value
			}
		}
	}
	return b, nil
}
