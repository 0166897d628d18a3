package types

// MethodSpec identifies a concrete generic method instantiation
type MethodSpec struct {
	MethodDefinitionIndex int32
	ClassIndexIndex       int32
	MethodIndexIndex      int32
}

var MethodSpecLayout = &Layout[MethodSpec]{
	Name: "MethodSpec",
	fields: []field[MethodSpec]{
		{"methodDefinitionIndex", i32, nil, func(m *MethodSpec, v uint64) { m.MethodDefinitionIndex = int32(v) }},
		{"classIndexIndex", i32, nil, func(m *MethodSpec, v uint64) { m.ClassIndexIndex = int32(v) }},
		{"methodIndexIndex", i32, nil, func(m *MethodSpec, v uint64) { m.MethodIndexIndex = int32(v) }},
	},
}

// GenericInst is a list of generic type arguments
type GenericInst struct {
	TypeArgc int64
	TypeArgv uint64
}

var GenericInstLayout = &Layout[GenericInst]{
	Name: "GenericInst",
	fields: []field[GenericInst]{
		{"type_argc", iptr, nil, func(g *GenericInst, v uint64) { g.TypeArgc = int64(v) }},
		{"type_argv", uptr, nil, func(g *GenericInst, v uint64) { g.TypeArgv = v }},
	},
}

// GenericMethodFunctionsDefinitions links a method spec to its generic method pointer and invoker
type GenericMethodFunctionsDefinitions struct {
	GenericMethodIndex int32
	MethodIndex        int32
	InvokerIndex       int32
	AdjustorThunk      int32 // 24.5, >= 27.1
}

var GenericMethodFunctionsDefinitionsLayout = &Layout[GenericMethodFunctionsDefinitions]{
	Name: "GenericMethodFunctionsDefinitions",
	fields: []field[GenericMethodFunctionsDefinitions]{
		{"genericMethodIndex", i32, nil, func(g *GenericMethodFunctionsDefinitions, v uint64) { g.GenericMethodIndex = int32(v) }},
		{"methodIndex", i32, nil, func(g *GenericMethodFunctionsDefinitions, v uint64) { g.MethodIndex = int32(v) }},
		{"invokerIndex", i32, nil, func(g *GenericMethodFunctionsDefinitions, v uint64) { g.InvokerIndex = int32(v) }},
		{"adjustorThunk", i32, []span{only(V24_5), since(V27_1)}, func(g *GenericMethodFunctionsDefinitions, v uint64) { g.AdjustorThunk = int32(v) }},
	},
}
