package il2cpp

import (
	"github.com/apex/log"
	"github.com/blacktop/il2dump/pkg/il2cpp/addr"
	"github.com/blacktop/il2dump/pkg/il2cpp/types"
	"github.com/pkg/errors"
)

// Tables are the arrays derived from an accepted registration pair
type Tables struct {
	CodeRegistrationAddr     uint64
	MetadataRegistrationAddr uint64
	CodeRegistration         types.CodeRegistration
	MetadataRegistration     types.MetadataRegistration

	MethodPointers                []uint64 // < 24.2
	GenericMethodPointers         []uint64
	InvokerPointers               []uint64
	CustomAttributeGenerators     []uint64 // < 27
	ReversePInvokeWrappers        []uint64 // >= 22
	UnresolvedVirtualCallPointers []uint64 // >= 22
	MetadataUsages                []uint64 // 19 - 24.5

	GenericInstPointers []uint64
	GenericInsts        []types.GenericInst
	TypePointers        []uint64
	Types               []*types.Type

	// CodeGenModules and the maps below are keyed by module name (>= 24.2)
	CodeGenModules       map[string]types.CodeGenModule
	ModuleMethodPointers map[string][]uint64
	RGCTXs               map[string]map[uint32][]types.RGCTXDefinition

	GenericMethodTable []types.GenericMethodFunctionsDefinitions
	MethodSpecs        []types.MethodSpec
	// MethodDefinitionMethodSpecs maps a method definition to indices into MethodSpecs.
	// MethodSpecGenericMethodPointers is keyed by the same indices.
	MethodDefinitionMethodSpecs     map[int32][]int32
	MethodSpecGenericMethodPointers map[int32]uint64

	// Skipped lists tables zeroed because their count was implausible
	Skipped []SkippedTable

	fieldOffsets            []uint64
	fieldOffsetsArePointers bool
	typesByAddr             map[uint64]*types.Type
}

// SkippedTable records one table dropped by the plausibility checks
type SkippedTable struct {
	Name     string `json:"name" yaml:"name"`
	Count    uint64 `json:"count" yaml:"count"`
	Expected int    `json:"expected" yaml:"expected"`
}

// Init reads both registration tables at the given addresses. The version always starts
// from the nominal one, and nothing on the File changes unless every table decodes.
func (f *File) Init(codeRegistration, metadataRegistration uint64) error {
	s := f.attemptSpace()
	r := newVersionResolver(s, f.probeLimit())

	cr, err := r.resolve(codeRegistration)
	if err != nil {
		return err
	}
	t := &Tables{
		CodeRegistrationAddr:     codeRegistration,
		MetadataRegistrationAddr: metadataRegistration,
	}
	if err := f.checkCodeRegistration(s.Version, &cr, t); err != nil {
		return err
	}
	t.CodeRegistration = cr

	mr, err := addr.Read(s, types.MetadataRegistrationLayout, metadataRegistration)
	if err != nil {
		return errors.Wrap(err, "failed to read MetadataRegistration")
	}
	t.MetadataRegistration = mr
	log.WithFields(log.Fields{
		"typesCount":        mr.TypesCount,
		"fieldOffsetsCount": mr.FieldOffsetsCount,
		"methodSpecsCount":  mr.MethodSpecsCount,
		"types":             hex(mr.Types),
		"fieldOffsets":      hex(mr.FieldOffsets),
		"methodSpecs":       hex(mr.MethodSpecs),
	}).Debug("MetadataRegistration")

	if err := f.loadTables(s, t); err != nil {
		return err
	}

	f.Tables = *t
	f.version = s.Version
	f.space.Version = s.Version
	f.transitions = r.transitions
	f.initialized = true
	log.WithFields(log.Fields{
		"code":     hex(codeRegistration),
		"metadata": hex(metadataRegistration),
		"version":  s.Version,
	}).Info("Initialized registrations")
	return nil
}

// checkCodeRegistration validates the module table and zeroes tables whose counts are
// far beyond what the method count allows
func (f *File) checkCodeRegistration(v types.Version, cr *types.CodeRegistration, t *Tables) error {
	if v >= types.V24_2 {
		if cr.CodeGenModulesCount == 0 || cr.CodeGenModules == 0 {
			return errors.Wrap(types.ErrDecodeFailure, "invalid CodeRegistration: codeGenModules is null")
		}
		if lo, hi, ok := imageCountBounds(f.conf.ExpectedImageCount); ok {
			if cr.CodeGenModulesCount < lo || cr.CodeGenModulesCount > hi {
				return errors.Wrapf(types.ErrDecodeFailure, "invalid CodeRegistration: codeGenModulesCount=%d expected~%d",
					cr.CodeGenModulesCount, f.conf.ExpectedImageCount)
			}
		}
		if expected := f.conf.ExpectedMethodCount; expected > 0 {
			skip := func(name string, n, ptr *uint64, factor, floor uint64) {
				if *n > uint64(expected)*factor && *n > floor {
					log.WithError(errors.Wrapf(ErrOversizedTable, "%s count %d, expected ~%d", name, *n, expected)).Warnf("Skipping %s", name)
					t.Skipped = append(t.Skipped, SkippedTable{Name: name, Count: *n, Expected: expected})
					*n, *ptr = 0, 0
				}
			}
			skip("genericMethodPointers", &cr.GenericMethodPointersCount, &cr.GenericMethodPointers, 200, 2000000)
			skip("invokerPointers", &cr.InvokerPointersCount, &cr.InvokerPointers, 10, 500000)
			skip("reversePInvokeWrappers", &cr.ReversePInvokeWrapperCount, &cr.ReversePInvokeWrappers, 10, 500000)
			skip("unresolvedVirtualCallPointers", &cr.UnresolvedVirtualCallCount, &cr.UnresolvedVirtualCallPointers, 10, 500000)
		}
	}
	log.WithFields(log.Fields{
		"reversePInvokeWrapperCount":     cr.ReversePInvokeWrapperCount,
		"genericMethodPointersCount":     cr.GenericMethodPointersCount,
		"invokerPointersCount":           cr.InvokerPointersCount,
		"codeGenModulesCount":            cr.CodeGenModulesCount,
		"unresolvedVirtualCallCount":     cr.UnresolvedVirtualCallCount,
		"interopDataCount":               cr.InteropDataCount,
		"windowsRuntimeFactoryCount":     cr.WindowsRuntimeFactoryCount,
		"genericMethodPointers":          hex(cr.GenericMethodPointers),
		"invokerPointers":                hex(cr.InvokerPointers),
		"codeGenModules":                 hex(cr.CodeGenModules),
		"unresolvedInstanceCallPointers": hex(cr.UnresolvedInstanceCallPointers),
		"unresolvedStaticCallPointers":   hex(cr.UnresolvedStaticCallPointers),
	}).Debug("CodeRegistration")
	return nil
}

// imageCountBounds is the accepted module count range [expected/2, expected*2]
func imageCountBounds(expected int) (lo, hi uint64, ok bool) {
	if expected <= 0 {
		return 0, 0, false
	}
	e := uint64(expected)
	lo = e
	if e > 1 {
		lo = e / 2
	}
	return lo, e * 2, true
}

func (f *File) loadTables(s *addr.Space, t *Tables) error {
	v := s.Version
	cr, mr := &t.CodeRegistration, &t.MetadataRegistration
	var err error

	t.GenericMethodPointers = tolerant(s, "genericMethodPointers", cr.GenericMethodPointers, cr.GenericMethodPointersCount)
	t.InvokerPointers = tolerant(s, "invokerPointers", cr.InvokerPointers, cr.InvokerPointersCount)
	if v < types.V27 {
		if t.CustomAttributeGenerators, err = s.ReadPointers(cr.CustomAttributeGenerators, cr.CustomAttributeCount); err != nil {
			return errors.Wrap(err, "failed to read customAttributeGenerators")
		}
	}
	if v > types.V16 && v < types.V27 {
		usages, err := count("metadataUsages", f.conf.MetadataUsagesCount)
		if err != nil {
			return err
		}
		if t.MetadataUsages, err = s.ReadPointers(mr.MetadataUsages, usages); err != nil {
			return errors.Wrap(err, "failed to read metadataUsages")
		}
	}
	if v >= types.V22 {
		if cr.ReversePInvokeWrapperCount != 0 {
			t.ReversePInvokeWrappers = tolerant(s, "reversePInvokeWrappers", cr.ReversePInvokeWrappers, cr.ReversePInvokeWrapperCount)
		}
		if cr.UnresolvedVirtualCallCount != 0 {
			t.UnresolvedVirtualCallPointers = tolerant(s, "unresolvedVirtualCallPointers", cr.UnresolvedVirtualCallPointers, cr.UnresolvedVirtualCallCount)
		}
	}

	if err := loadGenericInsts(s, t); err != nil {
		return err
	}
	if err := loadFieldOffsets(s, t); err != nil {
		return err
	}
	if err := loadTypes(s, t); err != nil {
		return err
	}
	if v >= types.V24_2 {
		if err := loadCodeGenModules(s, t); err != nil {
			return err
		}
	} else {
		if t.MethodPointers, err = s.ReadPointers(cr.MethodPointers, cr.MethodPointersCount); err != nil {
			return errors.Wrap(err, "failed to read methodPointers")
		}
	}
	return loadGenericMethods(s, t)
}

// tolerant reads a pointer table, treating any failure as an empty table
func tolerant(s *addr.Space, name string, va, n uint64) []uint64 {
	ptrs, err := s.ReadPointers(va, n)
	if err != nil {
		log.WithError(err).Debugf("Ignoring unreadable %s", name)
		return []uint64{}
	}
	return ptrs
}

// count converts a signed table size, rejecting negative values
func count(name string, n int64) (uint64, error) {
	if n < 0 {
		return 0, errors.Wrapf(types.ErrDecodeFailure, "negative %s count %d", name, n)
	}
	return uint64(n), nil
}

func loadGenericInsts(s *addr.Space, t *Tables) error {
	mr := &t.MetadataRegistration
	n, err := count("genericInsts", mr.GenericInstsCount)
	if err != nil {
		return err
	}
	if t.GenericInstPointers, err = s.ReadPointers(mr.GenericInsts, n); err != nil {
		return errors.Wrap(err, "failed to read genericInsts")
	}
	t.GenericInsts = make([]types.GenericInst, len(t.GenericInstPointers))
	for i, ptr := range t.GenericInstPointers {
		if t.GenericInsts[i], err = addr.Read(s, types.GenericInstLayout, ptr); err != nil {
			return errors.Wrapf(err, "failed to read GenericInst %d", i)
		}
	}
	return nil
}

func loadFieldOffsets(s *addr.Space, t *Tables) error {
	mr := &t.MetadataRegistration
	t.fieldOffsetsArePointers = s.Version > types.V21
	if s.Version == types.V21 {
		// 21 shipped with both formats; a pointer table starts with the five empty system types
		probe, err := s.ReadUint32s(mr.FieldOffsets, 6)
		if err != nil {
			return errors.Wrap(err, "failed to probe fieldOffsets")
		}
		t.fieldOffsetsArePointers = probe[0] == 0 && probe[1] == 0 && probe[2] == 0 && probe[3] == 0 && probe[4] == 0 && probe[5] > 0
	}
	n, err := count("fieldOffsets", mr.FieldOffsetsCount)
	if err != nil {
		return err
	}
	if t.fieldOffsetsArePointers {
		if t.fieldOffsets, err = s.ReadPointers(mr.FieldOffsets, n); err != nil {
			return errors.Wrap(err, "failed to read fieldOffsets")
		}
		return nil
	}
	offsets, err := s.ReadUint32s(mr.FieldOffsets, n)
	if err != nil {
		return errors.Wrap(err, "failed to read fieldOffsets")
	}
	t.fieldOffsets = make([]uint64, len(offsets))
	for i, o := range offsets {
		t.fieldOffsets[i] = uint64(o)
	}
	return nil
}

func loadTypes(s *addr.Space, t *Tables) error {
	mr := &t.MetadataRegistration
	n, err := count("types", mr.TypesCount)
	if err != nil {
		return err
	}
	if t.TypePointers, err = s.ReadPointers(mr.Types, n); err != nil {
		return errors.Wrap(err, "failed to read types")
	}
	t.Types = make([]*types.Type, len(t.TypePointers))
	t.typesByAddr = make(map[uint64]*types.Type, len(t.TypePointers))
	for i, ptr := range t.TypePointers {
		typ, err := addr.Read(s, types.TypeLayout, ptr)
		if err != nil {
			return errors.Wrapf(err, "failed to read Type %d", i)
		}
		typ.Unpack(s.Version)
		t.Types[i] = &typ
		if _, dup := t.typesByAddr[ptr]; !dup {
			t.typesByAddr[ptr] = &typ
		}
	}
	return nil
}

func loadCodeGenModules(s *addr.Space, t *Tables) error {
	cr := &t.CodeRegistration
	ptrs, err := s.ReadPointers(cr.CodeGenModules, cr.CodeGenModulesCount)
	if err != nil {
		return errors.Wrap(err, "failed to read codeGenModules")
	}
	t.CodeGenModules = make(map[string]types.CodeGenModule, len(ptrs))
	t.ModuleMethodPointers = make(map[string][]uint64, len(ptrs))
	t.RGCTXs = make(map[string]map[uint32][]types.RGCTXDefinition, len(ptrs))
	for _, ptr := range ptrs {
		m, err := addr.Read(s, types.CodeGenModuleLayout, ptr)
		if err != nil {
			return errors.Wrapf(err, "failed to read CodeGenModule at %#x", ptr)
		}
		name, err := s.ReadCString(m.ModuleName)
		if err != nil {
			return errors.Wrapf(err, "failed to read CodeGenModule name at %#x", m.ModuleName)
		}
		if _, dup := t.CodeGenModules[name]; dup {
			log.Warnf("Duplicate CodeGenModule %s at %#x, keeping the first", name, ptr)
			continue
		}
		t.CodeGenModules[name] = m

		n := uint64(max(m.MethodPointerCount, 0))
		methods, err := s.ReadPointers(m.MethodPointers, n)
		if err != nil {
			log.WithError(err).Debugf("Ignoring unreadable methodPointers of %s", name)
			methods = make([]uint64, n)
		}
		t.ModuleMethodPointers[name] = methods

		byToken, err := loadRGCTXs(s, m)
		if err != nil {
			return errors.Wrapf(err, "failed to read RGCTXs of %s", name)
		}
		t.RGCTXs[name] = byToken
	}
	return nil
}

// loadRGCTXs slices a module's RGCTX table into per-token runs
func loadRGCTXs(s *addr.Space, m types.CodeGenModule) (map[uint32][]types.RGCTXDefinition, error) {
	byToken := make(map[uint32][]types.RGCTXDefinition)
	if m.RGCTXsCount <= 0 {
		return byToken, nil
	}
	defs, err := addr.ReadArray(s, types.RGCTXDefinitionLayout, m.RGCTXs, uint64(m.RGCTXsCount))
	if err != nil {
		return nil, err
	}
	n, err := count("rgctxRanges", m.RGCTXRangesCount)
	if err != nil {
		return nil, err
	}
	ranges, err := addr.ReadArray(s, types.TokenRangePairLayout, m.RGCTXRanges, n)
	if err != nil {
		return nil, err
	}
	for _, r := range ranges {
		start, end := int64(r.Start), int64(r.Start)+int64(r.Length)
		if r.Start < 0 || r.Length < 0 || end > int64(len(defs)) {
			return nil, errors.Wrapf(types.ErrDecodeFailure, "RGCTX range %d+%d for token %#x is outside %d entries", r.Start, r.Length, r.Token, len(defs))
		}
		if _, dup := byToken[r.Token]; dup {
			return nil, errors.Wrapf(types.ErrDecodeFailure, "duplicate RGCTX range for token %#x", r.Token)
		}
		byToken[r.Token] = defs[start:end:end]
	}
	return byToken, nil
}

func loadGenericMethods(s *addr.Space, t *Tables) error {
	mr := &t.MetadataRegistration
	n, err := count("genericMethodTable", mr.GenericMethodTableCount)
	if err != nil {
		return err
	}
	if t.GenericMethodTable, err = addr.ReadArray(s, types.GenericMethodFunctionsDefinitionsLayout, mr.GenericMethodTable, n); err != nil {
		return errors.Wrap(err, "failed to read genericMethodTable")
	}
	if n, err = count("methodSpecs", mr.MethodSpecsCount); err != nil {
		return err
	}
	if t.MethodSpecs, err = addr.ReadArray(s, types.MethodSpecLayout, mr.MethodSpecs, n); err != nil {
		return errors.Wrap(err, "failed to read methodSpecs")
	}

	t.MethodDefinitionMethodSpecs = make(map[int32][]int32)
	t.MethodSpecGenericMethodPointers = make(map[int32]uint64)
	if len(t.GenericMethodPointers) == 0 {
		return nil
	}
	for _, def := range t.GenericMethodTable {
		if def.GenericMethodIndex < 0 || int(def.GenericMethodIndex) >= len(t.MethodSpecs) {
			return errors.Wrapf(types.ErrDecodeFailure, "generic method index %d is outside %d method specs", def.GenericMethodIndex, len(t.MethodSpecs))
		}
		spec := t.MethodSpecs[def.GenericMethodIndex]
		t.MethodDefinitionMethodSpecs[spec.MethodDefinitionIndex] = append(t.MethodDefinitionMethodSpecs[spec.MethodDefinitionIndex], def.GenericMethodIndex)
		if idx := def.MethodIndex; idx >= 0 && int(idx) < len(t.GenericMethodPointers) {
			if _, dup := t.MethodSpecGenericMethodPointers[def.GenericMethodIndex]; !dup {
				t.MethodSpecGenericMethodPointers[def.GenericMethodIndex] = t.GenericMethodPointers[idx]
			}
		}
	}
	return nil
}
