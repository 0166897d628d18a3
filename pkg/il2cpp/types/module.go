package types

// CodeGenModule describes one compiled assembly (>= 24.2)
type CodeGenModule struct {
	ModuleName                   uint64
	MethodPointerCount           int64
	MethodPointers               uint64
	AdjustorThunkCount           int64
	AdjustorThunks               uint64
	InvokerIndices               uint64
	ReversePInvokeWrapperCount   uint64
	ReversePInvokeWrapperIndices uint64
	RGCTXRangesCount             int64
	RGCTXRanges                  uint64
	RGCTXsCount                  int64
	RGCTXs                       uint64
	DebuggerMetadata             uint64
	CustomAttributeCacheGen      uint64
	ModuleInitializer            uint64
	StaticConstructorTypeIndices uint64
	MetadataRegistration         uint64
	CodeRegistration             uint64
}

var CodeGenModuleLayout = &Layout[CodeGenModule]{
	Name: "CodeGenModule",
	fields: []field[CodeGenModule]{
		{"moduleName", uptr, nil, func(m *CodeGenModule, v uint64) { m.ModuleName = v }},
		{"methodPointerCount", iptr, nil, func(m *CodeGenModule, v uint64) { m.MethodPointerCount = int64(v) }},
		{"methodPointers", uptr, nil, func(m *CodeGenModule, v uint64) { m.MethodPointers = v }},
		{"adjustorThunkCount", iptr, []span{only(V24_5), since(V27_1)}, func(m *CodeGenModule, v uint64) { m.AdjustorThunkCount = int64(v) }},
		{"adjustorThunks", uptr, []span{only(V24_5), since(V27_1)}, func(m *CodeGenModule, v uint64) { m.AdjustorThunks = v }},
		{"invokerIndices", uptr, nil, func(m *CodeGenModule, v uint64) { m.InvokerIndices = v }},
		{"reversePInvokeWrapperCount", uptr, nil, func(m *CodeGenModule, v uint64) { m.ReversePInvokeWrapperCount = v }},
		{"reversePInvokeWrapperIndices", uptr, nil, func(m *CodeGenModule, v uint64) { m.ReversePInvokeWrapperIndices = v }},
		{"rgctxRangesCount", iptr, nil, func(m *CodeGenModule, v uint64) { m.RGCTXRangesCount = int64(v) }},
		{"rgctxRanges", uptr, nil, func(m *CodeGenModule, v uint64) { m.RGCTXRanges = v }},
		{"rgctxsCount", iptr, nil, func(m *CodeGenModule, v uint64) { m.RGCTXsCount = int64(v) }},
		{"rgctxs", uptr, nil, func(m *CodeGenModule, v uint64) { m.RGCTXs = v }},
		{"debuggerMetadata", uptr, nil, func(m *CodeGenModule, v uint64) { m.DebuggerMetadata = v }},
		{"customAttributeCacheGenerator", uptr, []span{between(V27, V27_2)}, func(m *CodeGenModule, v uint64) { m.CustomAttributeCacheGen = v }},
		{"moduleInitializer", uptr, []span{since(V27)}, func(m *CodeGenModule, v uint64) { m.ModuleInitializer = v }},
		{"staticConstructorTypeIndices", uptr, []span{since(V27)}, func(m *CodeGenModule, v uint64) { m.StaticConstructorTypeIndices = v }},
		{"metadataRegistration", uptr, []span{since(V27)}, func(m *CodeGenModule, v uint64) { m.MetadataRegistration = v }},
		{"codeRegistration", uptr, []span{since(V27)}, func(m *CodeGenModule, v uint64) { m.CodeRegistration = v }},
	},
}

// RGCTXDefinition is one runtime generic context entry.
// Up to 27.1 both words are 32-bit; 27.2 keeps only a pointer sized data word and 29 widens type again.
type RGCTXDefinition struct {
	Type uint64
	Data uint64
}

var RGCTXDefinitionLayout = &Layout[RGCTXDefinition]{
	Name: "RGCTXDefinition",
	fields: []field[RGCTXDefinition]{
		{"type", i32, []span{until(V27_1)}, func(r *RGCTXDefinition, v uint64) { r.Type = v }},
		{"type", uptr, []span{since(V29)}, func(r *RGCTXDefinition, v uint64) { r.Type = v }},
		{"data", i32, []span{until(V27_1)}, func(r *RGCTXDefinition, v uint64) { r.Data = v }},
		{"data", uptr, []span{since(V27_2)}, func(r *RGCTXDefinition, v uint64) { r.Data = v }},
	},
}

// TokenRangePair slices a module's RGCTX table per metadata token
type TokenRangePair struct {
	Token  uint32
	Start  int32
	Length int32
}

var TokenRangePairLayout = &Layout[TokenRangePair]{
	Name: "TokenRangePair",
	fields: []field[TokenRangePair]{
		{"token", u32, nil, func(t *TokenRangePair, v uint64) { t.Token = uint32(v) }},
		{"start", i32, nil, func(t *TokenRangePair, v uint64) { t.Start = int32(v) }},
		{"length", i32, nil, func(t *TokenRangePair, v uint64) { t.Length = int32(v) }},
	},
}
