package search

import (
	"bytes"
	"encoding/binary"
	"iter"
	"strings"

	"github.com/apex/log"
	"github.com/blacktop/il2dump/pkg/il2cpp/addr"
	"github.com/blacktop/il2dump/pkg/il2cpp/section"
	"github.com/blacktop/il2dump/pkg/il2cpp/types"
)

var corlibName = []byte("mscorlib.dll\x00")

// codeGenModulesBackSlots is the distance, in pointer slots, from the codeGenModules field
// back to the start of CodeRegistration. Only the versions listed were observed; other
// sub-versions reuse the nearest entry and rely on the disambiguator to correct the start.
var codeGenModulesBackSlots = []struct {
	since types.Version
	slots uint64
}{
	{types.V29, 14},
	{types.V24_2, 13},
}

func backSlotsFor(v types.Version) uint64 {
	for _, b := range codeGenModulesBackSlots {
		if v >= b.since {
			return b.slots
		}
	}
	return 13
}

// warnUnverifiedBackSlots logs when the layout disagrees with the back-offset table for v
func warnUnverifiedBackSlots(v types.Version, ptrSize int) {
	off, ok := types.CodeRegistrationLayout.Offset("codeGenModules", v, ptrSize)
	if !ok {
		return
	}
	if slots := backSlotsFor(v); uint64(off/ptrSize) != slots {
		log.Warnf("CodeRegistration back offset for il2cpp %s is unverified (table %d, layout %d)", v, slots, off/ptrSize)
	}
}

// FindCodeRegistration2019 finds the "mscorlib.dll" name inside ranges of kind k and follows
// references from the name to its CodeGenModule, from the module to the module table and from
// the table to the codeGenModules field of CodeRegistration.
func (l *Locator) FindCodeRegistration2019(k section.Kind) (uint64, bool) {
	ps := l.ptrSize()
	images := l.counts.Images
	version := l.space.Version
	warnUnverifiedBackSlots(version, l.space.PtrSize)
	back := backSlotsFor(version) * ps

	for _, r := range l.sections.Ranges(k) {
		buf := l.sectionBytes(r)
		for idx := range indexAll(buf, corlibName) {
			nameVA := uint64(idx) + r.Address
			for moduleVA := range l.FindReference(nameVA) {
				for tableVA := range l.FindReference(moduleVA) {
					if version >= types.V27 {
						for i := images - 1; i >= 0; i-- {
							for cgmVA := range l.FindReference(tableVA - uint64(i)*ps) {
								count, err := l.space.MapToFileOffset(cgmVA - ps)
								if err != nil {
									continue
								}
								if v, err := l.space.IntPtrAt(count); err == nil && v == int64(images) && cgmVA >= back {
									log.Debugf("Found CodeRegistration via %s module %d at %#x", k, i, cgmVA-back)
									return cgmVA - back, true
								}
							}
						}
					} else {
						for i := range images {
							for cgmVA := range l.FindReference(tableVA - uint64(i)*ps) {
								if cgmVA < back {
									continue
								}
								log.Debugf("Found CodeRegistration via %s module %d at %#x", k, i, cgmVA-back)
								return cgmVA - back, true
							}
						}
					}
				}
			}
		}
	}
	return 0, false
}

// indexAll yields every offset of pattern in buf
func indexAll(buf, pattern []byte) iter.Seq[int] {
	return func(yield func(int) bool) {
		for pos := 0; pos < len(buf); {
			i := bytes.Index(buf[pos:], pattern)
			if i < 0 {
				return
			}
			if !yield(pos + i) {
				return
			}
			pos += i + 1
		}
	}
}

// pairHits yields the virtual address of every pointer aligned data slot equal to want
// that is followed by a non-null pointer.
func (l *Locator) pairHits(want uint64, fn func(hit, ptr uint64) bool) bool {
	ps := int(l.ptrSize())
	for _, r := range l.sections.Data {
		buf := l.sectionBytes(r)
		for i := 0; i+2*ps <= len(buf); i += ps {
			if l.word(buf[i:]) != want {
				continue
			}
			ptr := l.word(buf[i+ps:])
			if ptr == 0 {
				continue
			}
			if fn(uint64(i)+r.Address, ptr) {
				return true
			}
		}
	}
	return false
}

func (l *Locator) word(b []byte) uint64 {
	if l.space.PtrSize == 8 {
		return binary.LittleEndian.Uint64(b)
	}
	return uint64(binary.LittleEndian.Uint32(b))
}

// FindCodeRegistrationByCodeGenModules looks for codeGenModulesCount == image count followed by
// a pointer to an array of CodeGenModules with ".dll" names, then walks back to the start of the
// CodeRegistration whose fields agree with the hit.
func (l *Locator) FindCodeRegistrationByCodeGenModules() (uint64, bool) {
	if l.counts.Images <= 0 {
		return 0, false
	}
	var found uint64
	ok := l.pairHits(uint64(l.counts.Images), func(hit, ptr uint64) bool {
		if !l.checkCodeGenModules(ptr) {
			return false
		}
		var ok bool
		found, ok = l.bestCodeRegistrationStart(hit, ptr)
		return ok
	})
	if ok {
		log.Debugf("Found CodeRegistration by codeGenModules at %#x", found)
	}
	return found, ok
}

func (l *Locator) checkCodeGenModules(tableVA uint64) bool {
	c := addr.NewCursor(l.space, 0)
	if err := c.SeekToAddr(tableVA); err != nil || c.Offset() == 0 {
		return false
	}
	for range min(sampleCount, l.counts.Images) {
		p, err := c.ReadPointer()
		if err != nil || p == 0 {
			return false
		}
		m, err := addr.Read(l.space, types.CodeGenModuleLayout, p)
		if err != nil {
			return false
		}
		name, err := l.space.ReadCString(m.ModuleName)
		if err != nil || name == "" {
			return false
		}
		if !strings.Contains(strings.ToLower(name), ".dll") {
			return false
		}
	}
	return true
}

func (l *Locator) bestCodeRegistrationStart(countVA, modulesVA uint64) (uint64, bool) {
	ps := l.ptrSize()
	bestScore := -1
	var best uint64
	for back := range uint64(maxBackSlots + 1) {
		if countVA < back*ps {
			break
		}
		start := countVA - back*ps
		cr, err := addr.Read(l.space, types.CodeRegistrationLayout, start)
		if err != nil {
			continue
		}
		if cr.CodeGenModulesCount != uint64(l.counts.Images) || cr.CodeGenModules != modulesVA {
			continue
		}
		score := 0
		if cr.InvokerPointersCount > 0 && cr.InvokerPointers != 0 {
			score += 2
			if l.checkPointerArray(section.Exec, cr.InvokerPointers, cr.InvokerPointersCount) {
				score += 6
			}
		}
		if cr.GenericMethodPointersCount > 0 && cr.GenericMethodPointers != 0 {
			score += 2
			if l.checkPointerArray(section.Exec, cr.GenericMethodPointers, cr.GenericMethodPointersCount) {
				score += 6
			}
		}
		if cr.ReversePInvokeWrapperCount == 0 || cr.ReversePInvokeWrappers != 0 {
			score++
		}
		if cr.UnresolvedVirtualCallCount == 0 || cr.UnresolvedVirtualCallPointers != 0 {
			score++
		}
		log.Debugf("CodeRegistration candidate %#x scored %d", start, score)
		if score > bestScore {
			bestScore = score
			best = start
		}
	}
	return best, bestScore >= 0
}

// FindMetadataRegistrationByMetadataUsages looks for metadataUsagesCount followed by a pointer to
// an array of bss pointers, then walks back to the start of the MetadataRegistration whose fields
// agree with the hit.
func (l *Locator) FindMetadataRegistrationByMetadataUsages() (uint64, bool) {
	if l.counts.MetadataUsages <= 0 {
		return 0, false
	}
	usages := uint64(l.counts.MetadataUsages)
	var found uint64
	ok := l.pairHits(usages, func(hit, ptr uint64) bool {
		if !l.checkPointerArray(section.Bss, ptr, usages) {
			return false
		}
		var ok bool
		found, ok = l.bestMetadataRegistrationStart(hit, ptr)
		return ok
	})
	if ok {
		log.Debugf("Found MetadataRegistration by metadataUsages at %#x", found)
	}
	return found, ok
}

func (l *Locator) bestMetadataRegistrationStart(countVA, usagesVA uint64) (uint64, bool) {
	ps := l.ptrSize()
	usages := uint64(l.counts.MetadataUsages)
	bestScore := -1
	var best uint64
	for back := range uint64(maxBackSlots + 1) {
		if countVA < back*ps {
			break
		}
		start := countVA - back*ps
		mr, err := addr.Read(l.space, types.MetadataRegistrationLayout, start)
		if err != nil {
			continue
		}
		if mr.MetadataUsagesCount != usages || mr.MetadataUsages != usagesVA {
			continue
		}
		score := 0
		if mr.TypesCount > 0 && mr.Types != 0 {
			score++
		}
		if mr.FieldOffsetsCount > 0 && mr.FieldOffsets != 0 {
			score++
		}
		if l.checkPointerArray(section.Bss, mr.MetadataUsages, usages) {
			score += 6
		}
		if score > bestScore {
			bestScore = score
			best = start
		}
	}
	return best, bestScore >= 0
}
