package types

// CodeRegistration is the root table holding every compiled entry point
type CodeRegistration struct {
	MethodPointersCount                      uint64 // <= 24.1
	MethodPointers                           uint64 // <= 24.1
	DelegateWrappersFromNativeToManagedCount uint64 // <= 21
	DelegateWrappersFromNativeToManaged      uint64 // <= 21
	ReversePInvokeWrapperCount               uint64 // >= 22
	ReversePInvokeWrappers                   uint64 // >= 22
	DelegateWrappersFromManagedToNativeCount uint64 // <= 22
	DelegateWrappersFromManagedToNative      uint64 // <= 22
	MarshalingFunctionsCount                 uint64 // <= 22
	MarshalingFunctions                      uint64 // <= 22
	CcwMarshalingFunctionsCount              uint64 // 21 - 22
	CcwMarshalingFunctions                   uint64 // 21 - 22
	GenericMethodPointersCount               uint64
	GenericMethodPointers                    uint64
	GenericAdjustorThunks                    uint64 // 24.5, >= 27.1
	InvokerPointersCount                     uint64
	InvokerPointers                          uint64
	CustomAttributeCount                     uint64 // <= 24.5
	CustomAttributeGenerators                uint64 // <= 24.5
	GUIDCount                                uint64 // 21 - 22
	GUIDs                                    uint64 // 21 - 22
	UnresolvedVirtualCallCount               uint64 // >= 22
	UnresolvedVirtualCallPointers            uint64 // >= 22
	UnresolvedInstanceCallPointers           uint64 // >= 29.1
	UnresolvedStaticCallPointers             uint64 // >= 29.1
	InteropDataCount                         uint64 // >= 23
	InteropData                              uint64 // >= 23
	WindowsRuntimeFactoryCount               uint64 // >= 24.3
	WindowsRuntimeFactoryTable               uint64 // >= 24.3
	CodeGenModulesCount                      uint64 // >= 24.2
	CodeGenModules                           uint64 // >= 24.2
}

// CodeRegistrationLayout is the CodeRegistration field sequence across schema versions
var CodeRegistrationLayout = &Layout[CodeRegistration]{
	Name: "CodeRegistration",
	fields: []field[CodeRegistration]{
		{"methodPointersCount", uptr, []span{until(V24_1)}, func(c *CodeRegistration, v uint64) { c.MethodPointersCount = v }},
		{"methodPointers", uptr, []span{until(V24_1)}, func(c *CodeRegistration, v uint64) { c.MethodPointers = v }},
		{"delegateWrappersFromNativeToManagedCount", uptr, []span{until(V21)}, func(c *CodeRegistration, v uint64) { c.DelegateWrappersFromNativeToManagedCount = v }},
		{"delegateWrappersFromNativeToManaged", uptr, []span{until(V21)}, func(c *CodeRegistration, v uint64) { c.DelegateWrappersFromNativeToManaged = v }},
		{"reversePInvokeWrapperCount", uptr, []span{since(V22)}, func(c *CodeRegistration, v uint64) { c.ReversePInvokeWrapperCount = v }},
		{"reversePInvokeWrappers", uptr, []span{since(V22)}, func(c *CodeRegistration, v uint64) { c.ReversePInvokeWrappers = v }},
		{"delegateWrappersFromManagedToNativeCount", uptr, []span{until(V22)}, func(c *CodeRegistration, v uint64) { c.DelegateWrappersFromManagedToNativeCount = v }},
		{"delegateWrappersFromManagedToNative", uptr, []span{until(V22)}, func(c *CodeRegistration, v uint64) { c.DelegateWrappersFromManagedToNative = v }},
		{"marshalingFunctionsCount", uptr, []span{until(V22)}, func(c *CodeRegistration, v uint64) { c.MarshalingFunctionsCount = v }},
		{"marshalingFunctions", uptr, []span{until(V22)}, func(c *CodeRegistration, v uint64) { c.MarshalingFunctions = v }},
		{"ccwMarshalingFunctionsCount", uptr, []span{between(V21, V22)}, func(c *CodeRegistration, v uint64) { c.CcwMarshalingFunctionsCount = v }},
		{"ccwMarshalingFunctions", uptr, []span{between(V21, V22)}, func(c *CodeRegistration, v uint64) { c.CcwMarshalingFunctions = v }},
		{"genericMethodPointersCount", uptr, nil, func(c *CodeRegistration, v uint64) { c.GenericMethodPointersCount = v }},
		{"genericMethodPointers", uptr, nil, func(c *CodeRegistration, v uint64) { c.GenericMethodPointers = v }},
		{"genericAdjustorThunks", uptr, []span{only(V24_5), since(V27_1)}, func(c *CodeRegistration, v uint64) { c.GenericAdjustorThunks = v }},
		{"invokerPointersCount", uptr, nil, func(c *CodeRegistration, v uint64) { c.InvokerPointersCount = v }},
		{"invokerPointers", uptr, nil, func(c *CodeRegistration, v uint64) { c.InvokerPointers = v }},
		{"customAttributeCount", uptr, []span{until(V24_5)}, func(c *CodeRegistration, v uint64) { c.CustomAttributeCount = v }},
		{"customAttributeGenerators", uptr, []span{until(V24_5)}, func(c *CodeRegistration, v uint64) { c.CustomAttributeGenerators = v }},
		{"guidCount", uptr, []span{between(V21, V22)}, func(c *CodeRegistration, v uint64) { c.GUIDCount = v }},
		{"guids", uptr, []span{between(V21, V22)}, func(c *CodeRegistration, v uint64) { c.GUIDs = v }},
		{"unresolvedVirtualCallCount", uptr, []span{since(V22)}, func(c *CodeRegistration, v uint64) { c.UnresolvedVirtualCallCount = v }},
		{"unresolvedVirtualCallPointers", uptr, []span{since(V22)}, func(c *CodeRegistration, v uint64) { c.UnresolvedVirtualCallPointers = v }},
		{"unresolvedInstanceCallPointers", uptr, []span{since(V29_1)}, func(c *CodeRegistration, v uint64) { c.UnresolvedInstanceCallPointers = v }},
		{"unresolvedStaticCallPointers", uptr, []span{since(V29_1)}, func(c *CodeRegistration, v uint64) { c.UnresolvedStaticCallPointers = v }},
		{"interopDataCount", uptr, []span{since(V23)}, func(c *CodeRegistration, v uint64) { c.InteropDataCount = v }},
		{"interopData", uptr, []span{since(V23)}, func(c *CodeRegistration, v uint64) { c.InteropData = v }},
		{"windowsRuntimeFactoryCount", uptr, []span{since(V24_3)}, func(c *CodeRegistration, v uint64) { c.WindowsRuntimeFactoryCount = v }},
		{"windowsRuntimeFactoryTable", uptr, []span{since(V24_3)}, func(c *CodeRegistration, v uint64) { c.WindowsRuntimeFactoryTable = v }},
		{"codeGenModulesCount", uptr, []span{since(V24_2)}, func(c *CodeRegistration, v uint64) { c.CodeGenModulesCount = v }},
		{"codeGenModules", uptr, []span{since(V24_2)}, func(c *CodeRegistration, v uint64) { c.CodeGenModules = v }},
	},
}

// MetadataRegistration is the root table holding type descriptors and generic tables
type MetadataRegistration struct {
	GenericClassesCount       int64
	GenericClasses            uint64
	GenericInstsCount         int64
	GenericInsts              uint64
	GenericMethodTableCount   int64
	GenericMethodTable        uint64
	TypesCount                int64
	Types                     uint64
	MethodSpecsCount          int64
	MethodSpecs               uint64
	MethodReferencesCount     int64  // <= 16
	MethodReferences          uint64 // <= 16
	FieldOffsetsCount         int64
	FieldOffsets              uint64
	TypeDefinitionsSizesCount int64
	TypeDefinitionsSizes      uint64
	MetadataUsagesCount       uint64 // >= 19
	MetadataUsages            uint64 // >= 19
}

// MetadataRegistrationLayout is the MetadataRegistration field sequence across schema versions
var MetadataRegistrationLayout = &Layout[MetadataRegistration]{
	Name: "MetadataRegistration",
	fields: []field[MetadataRegistration]{
		{"genericClassesCount", iptr, nil, func(m *MetadataRegistration, v uint64) { m.GenericClassesCount = int64(v) }},
		{"genericClasses", uptr, nil, func(m *MetadataRegistration, v uint64) { m.GenericClasses = v }},
		{"genericInstsCount", iptr, nil, func(m *MetadataRegistration, v uint64) { m.GenericInstsCount = int64(v) }},
		{"genericInsts", uptr, nil, func(m *MetadataRegistration, v uint64) { m.GenericInsts = v }},
		{"genericMethodTableCount", iptr, nil, func(m *MetadataRegistration, v uint64) { m.GenericMethodTableCount = int64(v) }},
		{"genericMethodTable", uptr, nil, func(m *MetadataRegistration, v uint64) { m.GenericMethodTable = v }},
		{"typesCount", iptr, nil, func(m *MetadataRegistration, v uint64) { m.TypesCount = int64(v) }},
		{"types", uptr, nil, func(m *MetadataRegistration, v uint64) { m.Types = v }},
		{"methodSpecsCount", iptr, nil, func(m *MetadataRegistration, v uint64) { m.MethodSpecsCount = int64(v) }},
		{"methodSpecs", uptr, nil, func(m *MetadataRegistration, v uint64) { m.MethodSpecs = v }},
		{"methodReferencesCount", iptr, []span{until(V16)}, func(m *MetadataRegistration, v uint64) { m.MethodReferencesCount = int64(v) }},
		{"methodReferences", uptr, []span{until(V16)}, func(m *MetadataRegistration, v uint64) { m.MethodReferences = v }},
		{"fieldOffsetsCount", iptr, nil, func(m *MetadataRegistration, v uint64) { m.FieldOffsetsCount = int64(v) }},
		{"fieldOffsets", uptr, nil, func(m *MetadataRegistration, v uint64) { m.FieldOffsets = v }},
		{"typeDefinitionsSizesCount", iptr, nil, func(m *MetadataRegistration, v uint64) { m.TypeDefinitionsSizesCount = int64(v) }},
		{"typeDefinitionsSizes", uptr, nil, func(m *MetadataRegistration, v uint64) { m.TypeDefinitionsSizes = v }},
		{"metadataUsagesCount", uptr, []span{since(V19)}, func(m *MetadataRegistration, v uint64) { m.MetadataUsagesCount = v }},
		{"metadataUsages", uptr, []span{since(V19)}, func(m *MetadataRegistration, v uint64) { m.MetadataUsages = v }},
	},
}
