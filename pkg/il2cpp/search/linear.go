package search

import (
	"github.com/apex/log"
	"github.com/blacktop/il2dump/pkg/il2cpp/addr"
	"github.com/blacktop/il2dump/pkg/il2cpp/section"
)

// Distances, in pointer slots, from the matched count back to the start of MetadataRegistration.
const (
	// typeDefinitionsSizesCount, followed two slots later by metadataUsagesCount and metadataUsages
	metadataOldBackSlots = 12
	// fieldOffsetsCount, with typeDefinitionsSizesCount two slots on
	metadataV21BackSlots = 10
)

// scanSlots calls fn with the file offset of every pointer aligned slot in the data ranges
// whose signed value equals want, leaving out slots starting in the last reserve bytes of
// each range. fn returns true to stop the scan.
func (l *Locator) scanSlots(want int64, reserve uint64, fn func(r addr.Range, off uint64) bool) bool {
	ps := l.ptrSize()
	for _, r := range l.sections.Data {
		end := min(r.FileOffsetEnd, l.space.Len())
		if end < reserve {
			continue
		}
		end -= reserve
		for off := r.FileOffset; off < end; off += ps {
			v, err := l.space.IntPtrAt(off)
			if err != nil {
				break
			}
			if v == want && fn(r, off) {
				return true
			}
		}
	}
	return false
}

// pointerArrayAt follows the pointer stored at file offset slot and, if it lands inside
// a data range, reads count pointers from there
func (l *Locator) pointerArrayAt(slot uint64, count uint64) ([]uint64, bool) {
	va, err := l.space.PointerAt(slot)
	if err != nil {
		return nil, false
	}
	off, err := l.space.MapToFileOffset(va)
	if err != nil {
		return nil, false
	}
	if !l.sections.InDataOffset(off) {
		return nil, false
	}
	ptrs, err := l.space.PointersAt(off, count)
	if err != nil {
		return nil, false
	}
	return ptrs, true
}

// FindCodeRegistrationOld scans data for methodPointersCount followed by a method pointer
// table whose every entry is in exec. The returned address is the count slot, which is
// where CodeRegistration starts in the layouts that carry a flat method table.
func (l *Locator) FindCodeRegistrationOld() (uint64, bool) {
	if l.counts.Methods <= 0 {
		return 0, false
	}
	var found uint64
	ok := l.scanSlots(int64(l.counts.Methods), 0, func(r addr.Range, off uint64) bool {
		ptrs, ok := l.pointerArrayAt(off+l.ptrSize(), uint64(l.counts.Methods))
		if !ok || !l.sections.AllAddresses(section.Exec, ptrs) {
			return false
		}
		found, ok = l.slotAddress(r, off, 0)
		return ok
	})
	if ok {
		log.Debugf("Found CodeRegistration by method count at %#x", found)
	}
	return found, ok
}

// FindMetadataRegistrationOld scans data for typeDefinitionsSizesCount; three slots on is
// metadataUsages, whose entries must all point into bss.
func (l *Locator) FindMetadataRegistrationOld() (uint64, bool) {
	if l.counts.TypeDefinitions <= 0 {
		return 0, false
	}
	ps := l.ptrSize()
	var found uint64
	ok := l.scanSlots(int64(l.counts.TypeDefinitions), l.ptrSize(), func(r addr.Range, off uint64) bool {
		ptrs, ok := l.pointerArrayAt(off+3*ps, uint64(max(l.counts.MetadataUsages, 0)))
		if !ok || !l.sections.AllAddresses(section.Bss, ptrs) {
			return false
		}
		found, ok = l.slotAddress(r, off, metadataOldBackSlots)
		return ok
	})
	if ok {
		log.Debugf("Found MetadataRegistration by type definition count at %#x", found)
	}
	return found, ok
}

// FindMetadataRegistrationV21 scans data for fieldOffsetsCount and typeDefinitionsSizesCount
// both equal to the type definition count. The typeDefinitionsSizes entries must point into
// exec when the module table was found there, data otherwise.
func (l *Locator) FindMetadataRegistrationV21() (uint64, bool) {
	if l.counts.TypeDefinitions <= 0 {
		return 0, false
	}
	ps := l.ptrSize()
	want := int64(l.counts.TypeDefinitions)
	target := section.Data
	if l.pointerInExec {
		target = section.Exec
	}
	var found uint64
	ok := l.scanSlots(want, l.ptrSize(), func(r addr.Range, off uint64) bool {
		if v, err := l.space.IntPtrAt(off + 2*ps); err != nil || v != want {
			return false
		}
		ptrs, ok := l.pointerArrayAt(off+3*ps, uint64(want))
		if !ok || !l.sections.AllAddresses(target, ptrs) {
			return false
		}
		found, ok = l.slotAddress(r, off, metadataV21BackSlots)
		return ok
	})
	if ok {
		log.Debugf("Found MetadataRegistration by paired type definition counts at %#x", found)
	}
	return found, ok
}
