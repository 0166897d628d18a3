package container

import (
	"bytes"
	"debug/pe"

	"github.com/blacktop/il2dump/internal/magic"
	"github.com/blacktop/il2dump/pkg/il2cpp/addr"
	"github.com/pkg/errors"
)

func openPE(data []byte) (*Binary, error) {
	f, err := pe.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse PE")
	}
	defer f.Close()

	b := &Binary{
		Kind:    magic.PE,
		Data:    data,
		Symbols: make(map[string]uint64),
	}
	switch oh := f.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		b.PtrSize = 4
		b.ImageBase = uint64(oh.ImageBase)
		b.Arch = "i386"
	case *pe.OptionalHeader64:
		b.PtrSize = 8
		b.ImageBase = oh.ImageBase
		b.Arch = "x86_64"
	default:
		return nil, errors.New("PE has no optional header")
	}

	var table addr.Table
	for _, s := range f.Sections {
		r := addr.NewRange(uint64(s.Offset), uint64(s.Size), b.ImageBase+uint64(s.VirtualAddress), uint64(s.VirtualSize))
		table = append(table, r)
		switch {
		case s.Characteristics&pe.IMAGE_SCN_MEM_EXECUTE != 0:
			b.Sections.Exec = append(b.Sections.Exec, r)
		case s.Characteristics&pe.IMAGE_SCN_CNT_INITIALIZED_DATA != 0:
			b.Sections.Data = append(b.Sections.Data, r)
		}
	}
	b.Mapper = table
	b.Sections.Bss = b.Sections.Data

	for _, sym := range f.Symbols {
		if sym.SectionNumber <= 0 || int(sym.SectionNumber) > len(f.Sections) {
			continue
		}
		sec := f.Sections[sym.SectionNumber-1]
		b.Symbols[sym.Name] = b.ImageBase + uint64(sec.VirtualAddress) + uint64(sym.Value)
	}
	return b, nil
}
