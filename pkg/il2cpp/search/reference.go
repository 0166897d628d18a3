package search

import (
	"iter"
)

// FindReference yields the virtual address of every pointer aligned data slot holding va.
// Results are memoized since the module table search chases the same targets repeatedly.
func (l *Locator) FindReference(va uint64) iter.Seq[uint64] {
	return func(yield func(uint64) bool) {
		for _, ref := range l.references(va) {
			if !yield(ref) {
				return
			}
		}
	}
}

func (l *Locator) references(va uint64) []uint64 {
	if refs, ok := l.refs.Get(va); ok {
		return refs
	}
	var refs []uint64
	ps := l.ptrSize()
	for _, r := range l.sections.Data {
		end := min(r.FileOffsetEnd, l.space.Len())
		if end < ps {
			continue
		}
		end -= ps
		for off := r.FileOffset; off < end; off += ps {
			if v, err := l.space.PointerAt(off); err == nil && v == va {
				refs = append(refs, off-r.FileOffset+r.Address)
			}
		}
	}
	l.refs.Add(va, refs)
	return refs
}
