package container

import (
	"bytes"
	"debug/elf"

	"github.com/blacktop/il2dump/internal/magic"
	"github.com/blacktop/il2dump/pkg/il2cpp/addr"
	"github.com/pkg/errors"
)

func openELF(data []byte) (*Binary, error) {
	f, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse ELF")
	}
	defer f.Close()

	b := &Binary{
		Kind:    magic.ELF,
		Arch:    f.Machine.String(),
		Data:    data,
		PtrSize: 4,
		Symbols: make(map[string]uint64),
	}
	if f.Class == elf.ELFCLASS64 {
		b.PtrSize = 8
	}

	var table addr.Table
	for _, p := range f.Progs {
		if p.Type != elf.PT_LOAD {
			continue
		}
		r := addr.NewRange(p.Off, p.Filesz, p.Vaddr, p.Memsz)
		table = append(table, r)
		if p.Flags&elf.PF_X != 0 {
			b.Sections.Exec = append(b.Sections.Exec, r)
		} else {
			b.Sections.Data = append(b.Sections.Data, r)
		}
	}
	if len(table) == 0 {
		return nil, errors.New("ELF has no PT_LOAD segments")
	}
	b.Mapper = table
	b.Sections.Bss = b.Sections.Data
	b.Sections.PreferExec = true

	for _, load := range []func() ([]elf.Symbol, error){f.DynamicSymbols, f.Symbols} {
		syms, err := load()
		if err != nil {
			continue
		}
		for _, sym := range syms {
			if sym.Value != 0 {
				b.Symbols[sym.Name] = sym.Value
			}
		}
	}
	return b, nil
}
