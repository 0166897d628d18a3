package il2cpp

import (
	"github.com/apex/log"
	"github.com/blacktop/il2dump/pkg/il2cpp/addr"
	"github.com/blacktop/il2dump/pkg/il2cpp/types"
	"github.com/pkg/errors"
)

// Transition is one refinement of an ambiguous nominal version
type Transition struct {
	From   types.Version `json:"from" yaml:"from"`
	To     types.Version `json:"to" yaml:"to"`
	Reason string        `json:"reason" yaml:"reason"`
}

// versionResolver refines the version of one initialization attempt. It owns the
// attempt's address space, so every refinement changes all later layout lookups.
type versionResolver struct {
	space       *addr.Space
	limit       uint64
	transitions []Transition
}

func newVersionResolver(s *addr.Space, limit uint64) *versionResolver {
	return &versionResolver{space: s, limit: limit}
}

func (r *versionResolver) version() types.Version { return r.space.Version }

// refine moves to a strictly greater version; each target is taken at most once
func (r *versionResolver) refine(to types.Version, reason string) error {
	from := r.space.Version
	if to <= from {
		return errors.Errorf("refusing to move il2cpp version from %s back to %s", from, to)
	}
	for _, t := range r.transitions {
		if t.To == to {
			return errors.Errorf("il2cpp version %s already taken", to)
		}
	}
	r.transitions = append(r.transitions, Transition{From: from, To: to, Reason: reason})
	r.space.Version = to
	log.WithFields(log.Fields{"from": from, "to": to}).Infof("Changed il2cpp version: %s", reason)
	return nil
}

// resolve decodes CodeRegistration at va, refining the version when the decoded
// values only fit a later sub-version, and returns the final decode
func (r *versionResolver) resolve(va uint64) (types.CodeRegistration, error) {
	cr, err := addr.Read(r.space, types.CodeRegistrationLayout, va)
	if err != nil {
		return cr, errors.Wrap(err, "failed to read CodeRegistration")
	}

	if r.version() == types.V27 && cr.InvokerPointersCount > r.limit {
		if err := r.refine(types.V27_1, "invoker count exceeds the 27 layout"); err != nil {
			return cr, err
		}
		if cr, err = addr.Read(r.space, types.CodeRegistrationLayout, va); err != nil {
			return cr, errors.Wrap(err, "failed to re-read CodeRegistration")
		}
	}
	if r.version() == types.V27_1 {
		wide, err := r.wideRGCTXData(cr)
		if err != nil {
			return cr, err
		}
		if wide {
			if err := r.refine(types.V27_2, "RGCTX data values are pointers"); err != nil {
				return cr, err
			}
		}
	}
	if r.version() == types.V24_4 && cr.InvokerPointersCount > r.limit {
		if err := r.refine(types.V24_5, "invoker count exceeds the 24.4 layout"); err != nil {
			return cr, err
		}
		if cr, err = addr.Read(r.space, types.CodeRegistrationLayout, va); err != nil {
			return cr, errors.Wrap(err, "failed to re-read CodeRegistration")
		}
	}
	if r.version() == types.V24_2 && cr.CodeGenModules == 0 {
		if err := r.refine(types.V24_3, "codeGenModules is null in the 24.2 layout"); err != nil {
			return cr, err
		}
		if cr, err = addr.Read(r.space, types.CodeRegistrationLayout, va); err != nil {
			return cr, errors.Wrap(err, "failed to re-read CodeRegistration")
		}
	}
	return cr, nil
}

// wideRGCTXData checks the first module with RGCTX entries: when every data value is
// larger than the limit the entries hold pointers, which only 27.2 does
func (r *versionResolver) wideRGCTXData(cr types.CodeRegistration) (bool, error) {
	modules, err := r.space.ReadPointers(cr.CodeGenModules, cr.CodeGenModulesCount)
	if err != nil {
		return false, errors.Wrap(err, "failed to read codeGenModules")
	}
	for _, ptr := range modules {
		m, err := addr.Read(r.space, types.CodeGenModuleLayout, ptr)
		if err != nil {
			return false, errors.Wrapf(err, "failed to read CodeGenModule at %#x", ptr)
		}
		if m.RGCTXsCount <= 0 {
			continue
		}
		rgctxs, err := addr.ReadArray(r.space, types.RGCTXDefinitionLayout, m.RGCTXs, uint64(m.RGCTXsCount))
		if err != nil {
			return false, errors.Wrapf(err, "failed to read RGCTXs at %#x", m.RGCTXs)
		}
		for _, def := range rgctxs {
			if int64(def.Data) <= int64(r.limit) {
				return false, nil
			}
		}
		return true, nil
	}
	return false, nil
}
