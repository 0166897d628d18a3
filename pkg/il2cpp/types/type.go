package types

import "fmt"

// TypeEnum is the element type tag stored in a type descriptor
type TypeEnum uint8

const (
	TypeEnd         TypeEnum = 0x00
	TypeVoid        TypeEnum = 0x01
	TypeBoolean     TypeEnum = 0x02
	TypeChar        TypeEnum = 0x03
	TypeI1          TypeEnum = 0x04
	TypeU1          TypeEnum = 0x05
	TypeI2          TypeEnum = 0x06
	TypeU2          TypeEnum = 0x07
	TypeI4          TypeEnum = 0x08
	TypeU4          TypeEnum = 0x09
	TypeI8          TypeEnum = 0x0a
	TypeU8          TypeEnum = 0x0b
	TypeR4          TypeEnum = 0x0c
	TypeR8          TypeEnum = 0x0d
	TypeString      TypeEnum = 0x0e
	TypePtr         TypeEnum = 0x0f
	TypeByRef       TypeEnum = 0x10
	TypeValueType   TypeEnum = 0x11
	TypeClass       TypeEnum = 0x12
	TypeVar         TypeEnum = 0x13
	TypeArray       TypeEnum = 0x14
	TypeGenericInst TypeEnum = 0x15
	TypeTypedByRef  TypeEnum = 0x16
	TypeI           TypeEnum = 0x18
	TypeU           TypeEnum = 0x19
	TypeFnPtr       TypeEnum = 0x1b
	TypeObject      TypeEnum = 0x1c
	TypeSzArray     TypeEnum = 0x1d
	TypeMVar        TypeEnum = 0x1e
)

var typeEnumNames = map[TypeEnum]string{
	TypeEnd:         "END",
	TypeVoid:        "VOID",
	TypeBoolean:     "BOOLEAN",
	TypeChar:        "CHAR",
	TypeI1:          "I1",
	TypeU1:          "U1",
	TypeI2:          "I2",
	TypeU2:          "U2",
	TypeI4:          "I4",
	TypeU4:          "U4",
	TypeI8:          "I8",
	TypeU8:          "U8",
	TypeR4:          "R4",
	TypeR8:          "R8",
	TypeString:      "STRING",
	TypePtr:         "PTR",
	TypeByRef:       "BYREF",
	TypeValueType:   "VALUETYPE",
	TypeClass:       "CLASS",
	TypeVar:         "VAR",
	TypeArray:       "ARRAY",
	TypeGenericInst: "GENERICINST",
	TypeTypedByRef:  "TYPEDBYREF",
	TypeI:           "I",
	TypeU:           "U",
	TypeFnPtr:       "FNPTR",
	TypeObject:      "OBJECT",
	TypeSzArray:     "SZARRAY",
	TypeMVar:        "MVAR",
}

func (t TypeEnum) String() string {
	if s, ok := typeEnumNames[t]; ok {
		return s
	}
	return fmt.Sprintf("TypeEnum(%#x)", uint8(t))
}

// Type is a runtime type descriptor. Datapoint is a class index, a type
// pointer or a generic class pointer depending on Type.
type Type struct {
	Datapoint uint64
	Bits      uint32

	Attrs     uint16
	Type      TypeEnum
	NumMods   uint8
	ByRef     bool
	Pinned    bool
	ValueType bool // >= 27.2
}

var TypeLayout = &Layout[Type]{
	Name: "Type",
	fields: []field[Type]{
		{"datapoint", uptr, nil, func(t *Type, v uint64) { t.Datapoint = v }},
		{"bits", u32, nil, func(t *Type, v uint64) { t.Bits = uint32(v) }},
	},
}

// Unpack splits Bits into its fields; the bit positions moved in 27.2
func (t *Type) Unpack(v Version) {
	t.Attrs = uint16(t.Bits & 0xffff)
	t.Type = TypeEnum((t.Bits >> 16) & 0xff)
	if v >= V27_2 {
		t.NumMods = uint8((t.Bits >> 24) & 0x1f)
		t.ByRef = (t.Bits>>29)&1 == 1
		t.Pinned = (t.Bits>>30)&1 == 1
		t.ValueType = t.Bits>>31 == 1
	} else {
		t.NumMods = uint8((t.Bits >> 24) & 0x3f)
		t.ByRef = (t.Bits>>30)&1 == 1
		t.Pinned = t.Bits>>31 == 1
		t.ValueType = false
	}
}

func (t Type) String() string {
	var mods string
	if t.ByRef {
		mods += "&"
	}
	if t.Pinned {
		mods += " pinned"
	}
	return fmt.Sprintf("%s%s data=%#x attrs=%#x", t.Type, mods, t.Datapoint, t.Attrs)
}
