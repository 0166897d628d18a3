package il2cpp

import (
	"runtime"
	"slices"

	"github.com/apex/log"
	"github.com/blacktop/il2dump/pkg/il2cpp/addr"
	"github.com/blacktop/il2dump/pkg/il2cpp/types"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// rejected is the score of a candidate whose overlay cannot be a registration table
const rejected = -1

// neighborhood is how many pointer widths either side of a code registration base are tried
const neighborhood = 64

type candidate struct {
	va    uint64
	score int
}

// scoreCodeRegistration ranks a CodeRegistration candidate; higher is more plausible
func (f *File) scoreCodeRegistration(s *addr.Space, va uint64) int {
	cr, err := addr.Read(s, types.CodeRegistrationLayout, va)
	if err != nil {
		return rejected
	}
	lo, hi, haveImages := imageCountBounds(f.conf.ExpectedImageCount)
	if s.Version >= types.V24_2 {
		if cr.CodeGenModules == 0 || cr.CodeGenModulesCount == 0 {
			return rejected
		}
		if haveImages && (cr.CodeGenModulesCount < lo || cr.CodeGenModulesCount > hi) {
			return rejected
		}
	}

	var score int
	if haveImages {
		if cr.CodeGenModulesCount == uint64(f.conf.ExpectedImageCount) {
			score += 1000
		} else {
			score += 200
		}
	}
	if cr.CodeGenModules != 0 && s.IsMappable(cr.CodeGenModules) {
		score += 200
	}
	if expected := uint64(max(f.conf.ExpectedMethodCount, 0)); expected > 0 {
		switch n := cr.GenericMethodPointersCount; {
		case n > 0 && n <= expected*200 && n <= 5000000:
			score += 400
		case n == 0:
			score += 10
		default:
			score -= 200
		}
	}
	if cr.GenericMethodPointers != 0 && s.IsMappable(cr.GenericMethodPointers) {
		score += 50
	}
	if cr.InvokerPointers != 0 && s.IsMappable(cr.InvokerPointers) {
		score += 50
	}
	return score
}

// scoreMetadataRegistration ranks a MetadataRegistration candidate; higher is more plausible
func (f *File) scoreMetadataRegistration(s *addr.Space, va uint64) int {
	mr, err := addr.Read(s, types.MetadataRegistrationLayout, va)
	if err != nil {
		return rejected
	}
	if mr.Types == 0 || mr.TypesCount <= 0 {
		return rejected
	}

	var score int
	if expected := int64(f.conf.ExpectedTypeDefinitionsCount); expected > 0 {
		diff := mr.TypesCount - expected
		if diff < 0 {
			diff = -diff
		}
		switch {
		case diff == 0:
			score += 1000
		case diff < expected/10:
			score += 300
		default:
			score -= 100
		}
	}
	if s.IsMappable(mr.Types) {
		score += 200
	}
	if mr.MethodSpecs != 0 && s.IsMappable(mr.MethodSpecs) {
		score += 50
	}
	if mr.FieldOffsets != 0 && s.IsMappable(mr.FieldOffsets) {
		score += 50
	}
	return score
}

// rank scores every address concurrently and orders the survivors best first, keeping
// discovery order among equal scores. When every candidate is rejected all of them are
// returned unscored so a plausibility miss never hides the real table.
func rank(vas []uint64, score func(uint64) int) []candidate {
	scored := make([]candidate, len(vas))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, va := range vas {
		g.Go(func() error {
			scored[i] = candidate{va: va, score: score(va)}
			return nil
		})
	}
	_ = g.Wait()

	kept := slices.DeleteFunc(slices.Clone(scored), func(c candidate) bool { return c.score < 0 })
	if len(kept) == 0 {
		for i := range scored {
			scored[i].score = 0
		}
		return scored
	}
	slices.SortStableFunc(kept, func(a, b candidate) int { return b.score - a.score })
	return kept
}

// uniq collects non-zero addresses in first-seen order
type uniq []uint64

func (u *uniq) add(va uint64) {
	if va != 0 && !slices.Contains(*u, va) {
		*u = append(*u, va)
	}
}

// deref reads the pointer at va, reporting false unless it is non-null and mappable
func deref(s *addr.Space, va uint64) (uint64, bool) {
	p, err := s.ReadPointer(va)
	if err != nil || p == 0 || !s.IsMappable(p) {
		return 0, false
	}
	return p, true
}

// codeCandidates expands the base address and its dereference to every address
// within neighborhood pointer widths either side
func codeCandidates(s *addr.Space, codeRegistration uint64) []uint64 {
	var bases uniq
	bases.add(codeRegistration)
	if p, ok := deref(s, codeRegistration); ok {
		bases.add(p)
	}
	step := uint64(s.PtrSize)
	var out uniq
	for _, base := range bases {
		out.add(base)
		for delta := step; delta <= neighborhood*step; delta += step {
			out.add(base + delta)
			if base >= delta {
				out.add(base - delta)
			}
		}
	}
	return out
}

func metadataCandidates(s *addr.Space, metadataRegistration uint64) []uint64 {
	var out uniq
	out.add(metadataRegistration)
	if p, ok := deref(s, metadataRegistration); ok {
		out.add(p)
	}
	return out
}

// AutoInit finds the exact registration pair near approximate addresses. Every metadata
// candidate is tried against every code candidate, best scored first; the first pair
// that initializes is kept.
func (f *File) AutoInit(codeRegistration, metadataRegistration uint64) error {
	if metadataRegistration == 0 || codeRegistration == 0 {
		return errors.Wrap(ErrStructureNotFound, "missing registration address")
	}
	s := f.attemptSpace()
	mrs := rank(metadataCandidates(s, metadataRegistration), func(va uint64) int { return f.scoreMetadataRegistration(s, va) })
	crs := rank(codeCandidates(s, codeRegistration), func(va uint64) int { return f.scoreCodeRegistration(s, va) })
	log.WithFields(log.Fields{
		"code":     len(crs),
		"metadata": len(mrs),
	}).Debug("Scored registration candidates")

	for _, mr := range mrs {
		log.Debugf("MetadataRegistration candidate %#x (score %d)", mr.va, mr.score)
		for _, cr := range crs {
			err := f.Init(cr.va, mr.va)
			if err == nil {
				return nil
			}
			log.WithError(err).Debugf("CodeRegistration candidate %#x (score %d) failed", cr.va, cr.score)
		}
	}
	return errors.Wrapf(ErrStructureNotFound, "no candidate pair near code=%#x metadata=%#x initialized", codeRegistration, metadataRegistration)
}
