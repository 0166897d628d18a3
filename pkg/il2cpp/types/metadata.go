package types

import "slices"

// Structures of the global-metadata.dat side file. The file is always read with 32-bit
// fields, so these layouts are decoded with a pointer size of 4.

// GlobalMetadataHeader is the header prefix up to the metadata usage tables.
// Every size is in bytes.
type GlobalMetadataHeader struct {
	Sanity                   uint32
	Version                  int32
	StringLiteralOffset      int32
	MethodsOffset            int32
	MethodsSize              int32
	TypeDefinitionsOffset    int32
	TypeDefinitionsSize      int32
	ImagesOffset             int32
	ImagesSize               int32
	AssembliesOffset         int32
	AssembliesSize           int32
	MetadataUsageListsOffset int32 // 19 - 24.5
	MetadataUsageListsSize   int32 // 19 - 24.5
	MetadataUsagePairsOffset int32 // 19 - 24.5
	MetadataUsagePairsSize   int32 // 19 - 24.5
}

func nop[T any](*T, uint64) {}

// skipped returns unused 32-bit fields present in every version
func skipped[T any](names ...string) []field[T] {
	out := make([]field[T], len(names))
	for i, name := range names {
		out[i] = field[T]{name: name, kind: i32, set: nop[T]}
	}
	return out
}

type header = GlobalMetadataHeader

var GlobalMetadataHeaderLayout = &Layout[GlobalMetadataHeader]{
	Name: "GlobalMetadataHeader",
	fields: slices.Concat(
		[]field[header]{
			{"sanity", u32, nil, func(h *header, v uint64) { h.Sanity = uint32(v) }},
			{"version", i32, nil, func(h *header, v uint64) { h.Version = int32(v) }},
			{"stringLiteralOffset", i32, nil, func(h *header, v uint64) { h.StringLiteralOffset = int32(v) }},
		},
		skipped[header](
			"stringLiteralSize",
			"stringLiteralDataOffset", "stringLiteralDataSize",
			"stringOffset", "stringSize",
			"eventsOffset", "eventsSize",
			"propertiesOffset", "propertiesSize",
		),
		[]field[header]{
			{"methodsOffset", i32, nil, func(h *header, v uint64) { h.MethodsOffset = int32(v) }},
			{"methodsSize", i32, nil, func(h *header, v uint64) { h.MethodsSize = int32(v) }},
		},
		skipped[header](
			"parameterDefaultValuesOffset", "parameterDefaultValuesSize",
			"fieldDefaultValuesOffset", "fieldDefaultValuesSize",
			"fieldAndParameterDefaultValueDataOffset", "fieldAndParameterDefaultValueDataSize",
			"fieldMarshaledSizesOffset", "fieldMarshaledSizesSize",
			"parametersOffset", "parametersSize",
			"fieldsOffset", "fieldsSize",
			"genericParametersOffset", "genericParametersSize",
			"genericParameterConstraintsOffset", "genericParameterConstraintsSize",
			"genericContainersOffset", "genericContainersSize",
			"nestedTypesOffset", "nestedTypesSize",
			"interfacesOffset", "interfacesSize",
			"vtableMethodsOffset", "vtableMethodsSize",
			"interfaceOffsetsOffset", "interfaceOffsetsSize",
		),
		[]field[header]{
			{"typeDefinitionsOffset", i32, nil, func(h *header, v uint64) { h.TypeDefinitionsOffset = int32(v) }},
			{"typeDefinitionsSize", i32, nil, func(h *header, v uint64) { h.TypeDefinitionsSize = int32(v) }},
			{"rgctxEntriesOffset", i32, []span{until(V24_1)}, nop[header]},
			{"rgctxEntriesCount", i32, []span{until(V24_1)}, nop[header]},
			{"imagesOffset", i32, nil, func(h *header, v uint64) { h.ImagesOffset = int32(v) }},
			{"imagesSize", i32, nil, func(h *header, v uint64) { h.ImagesSize = int32(v) }},
			{"assembliesOffset", i32, nil, func(h *header, v uint64) { h.AssembliesOffset = int32(v) }},
			{"assembliesSize", i32, nil, func(h *header, v uint64) { h.AssembliesSize = int32(v) }},
			{"metadataUsageListsOffset", i32, []span{between(V19, V24_5)}, func(h *header, v uint64) { h.MetadataUsageListsOffset = int32(v) }},
			{"metadataUsageListsCount", i32, []span{between(V19, V24_5)}, func(h *header, v uint64) { h.MetadataUsageListsSize = int32(v) }},
			{"metadataUsagePairsOffset", i32, []span{between(V19, V24_5)}, func(h *header, v uint64) { h.MetadataUsagePairsOffset = int32(v) }},
			{"metadataUsagePairsCount", i32, []span{between(V19, V24_5)}, func(h *header, v uint64) { h.MetadataUsagePairsSize = int32(v) }},
		},
	),
}

// ImageDefinition describes one assembly image
type ImageDefinition struct {
	NameIndex uint32
	TypeStart int32
	TypeCount uint32
	Token     uint32 // >= 19
}

var ImageDefinitionLayout = &Layout[ImageDefinition]{
	Name: "ImageDefinition",
	fields: []field[ImageDefinition]{
		{"nameIndex", u32, nil, func(d *ImageDefinition, v uint64) { d.NameIndex = uint32(v) }},
		{"assemblyIndex", i32, nil, nop[ImageDefinition]},
		{"typeStart", i32, nil, func(d *ImageDefinition, v uint64) { d.TypeStart = int32(v) }},
		{"typeCount", u32, nil, func(d *ImageDefinition, v uint64) { d.TypeCount = uint32(v) }},
		{"exportedTypeStart", i32, []span{since(V24)}, nop[ImageDefinition]},
		{"exportedTypeCount", u32, []span{since(V24)}, nop[ImageDefinition]},
		{"entryPointIndex", i32, nil, nop[ImageDefinition]},
		{"token", u32, []span{since(V19)}, func(d *ImageDefinition, v uint64) { d.Token = uint32(v) }},
		{"customAttributeStart", i32, []span{since(V24_1)}, nop[ImageDefinition]},
		{"customAttributeCount", u32, []span{since(V24_1)}, nop[ImageDefinition]},
	},
}

// TypeDefinition is one managed type. Only the fields the dumper needs are kept.
type TypeDefinition struct {
	NameIndex      uint32
	NamespaceIndex uint32
	ByvalTypeIndex int32
	Token          uint32
}

type typeDef = TypeDefinition

var TypeDefinitionLayout = &Layout[TypeDefinition]{
	Name: "TypeDefinition",
	fields: slices.Concat(
		[]field[typeDef]{
			{"nameIndex", u32, nil, func(d *typeDef, v uint64) { d.NameIndex = uint32(v) }},
			{"namespaceIndex", u32, nil, func(d *typeDef, v uint64) { d.NamespaceIndex = uint32(v) }},
			{"customAttributeIndex", i32, []span{until(V24)}, nop[typeDef]},
			{"byvalTypeIndex", i32, nil, func(d *typeDef, v uint64) { d.ByvalTypeIndex = int32(v) }},
			{"byrefTypeIndex", i32, []span{until(V24_5)}, nop[typeDef]},
			{"declaringTypeIndex", i32, nil, nop[typeDef]},
			{"parentIndex", i32, nil, nop[typeDef]},
			{"elementTypeIndex", i32, nil, nop[typeDef]},
			{"rgctxStartIndex", i32, []span{until(V24_1)}, nop[typeDef]},
			{"rgctxCount", i32, []span{until(V24_1)}, nop[typeDef]},
			{"genericContainerIndex", i32, nil, nop[typeDef]},
			{"delegateWrapperFromManagedToNativeIndex", i32, []span{until(V22)}, nop[typeDef]},
			{"marshalingFunctionsIndex", i32, []span{until(V22)}, nop[typeDef]},
			{"ccwFunctionIndex", i32, []span{between(V21, V22)}, nop[typeDef]},
			{"guidIndex", i32, []span{between(V21, V22)}, nop[typeDef]},
		},
		skipped[typeDef](
			"flags", "fieldStart", "methodStart", "eventStart", "propertyStart",
			"nestedTypesStart", "interfacesStart", "vtableStart", "interfaceOffsetsStart",
		),
		[]field[typeDef]{
			{"method_count", u16, nil, nop[typeDef]},
			{"property_count", u16, nil, nop[typeDef]},
			{"field_count", u16, nil, nop[typeDef]},
			{"event_count", u16, nil, nop[typeDef]},
			{"nested_type_count", u16, nil, nop[typeDef]},
			{"vtable_count", u16, nil, nop[typeDef]},
			{"interfaces_count", u16, nil, nop[typeDef]},
			{"interface_offsets_count", u16, nil, nop[typeDef]},
			{"bitfield", u32, nil, nop[typeDef]},
			{"token", u32, nil, func(d *typeDef, v uint64) { d.Token = uint32(v) }},
		},
	),
}

// MethodDefinition is one managed method
type MethodDefinition struct {
	NameIndex     uint32
	DeclaringType int32
	MethodIndex   int32 // <= 24.1, negative for methods without code
	Token         uint32
}

var MethodDefinitionLayout = &Layout[MethodDefinition]{
	Name: "MethodDefinition",
	fields: []field[MethodDefinition]{
		{"nameIndex", u32, nil, func(m *MethodDefinition, v uint64) { m.NameIndex = uint32(v) }},
		{"declaringType", i32, nil, func(m *MethodDefinition, v uint64) { m.DeclaringType = int32(v) }},
		{"returnType", i32, nil, nop[MethodDefinition]},
		{"returnParameterToken", i32, []span{since(V31)}, nop[MethodDefinition]},
		{"parameterStart", i32, nil, nop[MethodDefinition]},
		{"customAttributeIndex", i32, []span{until(V24)}, nop[MethodDefinition]},
		{"genericContainerIndex", i32, nil, nop[MethodDefinition]},
		{"methodIndex", i32, []span{until(V24_1)}, func(m *MethodDefinition, v uint64) { m.MethodIndex = int32(v) }},
		{"invokerIndex", i32, []span{until(V24_1)}, nop[MethodDefinition]},
		{"delegateWrapperIndex", i32, []span{until(V24_1)}, nop[MethodDefinition]},
		{"rgctxStartIndex", i32, []span{until(V24_1)}, nop[MethodDefinition]},
		{"rgctxCount", i32, []span{until(V24_1)}, nop[MethodDefinition]},
		{"token", u32, nil, func(m *MethodDefinition, v uint64) { m.Token = uint32(v) }},
		{"flags", u16, nil, nop[MethodDefinition]},
		{"iflags", u16, nil, nop[MethodDefinition]},
		{"slot", u16, nil, nop[MethodDefinition]},
		{"parameterCount", u16, nil, nop[MethodDefinition]},
	},
}

// MetadataUsageList is a run of entries in the metadata usage pair table (19 - 24.5)
type MetadataUsageList struct {
	Start uint32
	Count uint32
}

var MetadataUsageListLayout = &Layout[MetadataUsageList]{
	Name: "MetadataUsageList",
	fields: []field[MetadataUsageList]{
		{"start", u32, nil, func(l *MetadataUsageList, v uint64) { l.Start = uint32(v) }},
		{"count", u32, nil, func(l *MetadataUsageList, v uint64) { l.Count = uint32(v) }},
	},
}

// MetadataUsagePair binds a metadataUsages slot to an encoded metadata index (19 - 24.5)
type MetadataUsagePair struct {
	DestinationIndex   uint32
	EncodedSourceIndex uint32
}

// Usage is the kind of metadata the source index refers to, 1 through 6 when valid
func (p MetadataUsagePair) Usage() uint32 { return (p.EncodedSourceIndex & 0xE0000000) >> 29 }

var MetadataUsagePairLayout = &Layout[MetadataUsagePair]{
	Name: "MetadataUsagePair",
	fields: []field[MetadataUsagePair]{
		{"destinationIndex", u32, nil, func(p *MetadataUsagePair, v uint64) { p.DestinationIndex = uint32(v) }},
		{"encodedSourceIndex", u32, nil, func(p *MetadataUsagePair, v uint64) { p.EncodedSourceIndex = uint32(v) }},
	},
}
