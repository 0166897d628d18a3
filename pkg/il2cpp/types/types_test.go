package types

import (
	"encoding/binary"
	"errors"
	"reflect"
	"testing"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Version
		wantErr bool
	}{
		{name: "nominal", in: "29", want: V29},
		{name: "sub version", in: "24.2", want: V24_2},
		{name: "refined", in: "27.1", want: V27_1},
		{name: "patch is zero", in: "24.5.0", want: V24_5},
		{name: "garbage", in: "latest", wantErr: true},
		{name: "too old", in: "12", wantErr: true},
		{name: "patch set", in: "24.2.1", wantErr: true},
		{name: "minor too big", in: "24.12", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseVersion(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseVersion(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseVersion(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestVersionString(t *testing.T) {
	if got := V27.String(); got != "27" {
		t.Errorf("V27.String() = %q", got)
	}
	if got := V24_5.String(); got != "24.5" {
		t.Errorf("V24_5.String() = %q", got)
	}
	if V27_2.Major() != 27 || V27_2.Minor() != 2 {
		t.Errorf("V27_2 = %d.%d", V27_2.Major(), V27_2.Minor())
	}
}

func TestVersionText(t *testing.T) {
	b, err := V27_1.MarshalText()
	if err != nil || string(b) != "27.1" {
		t.Fatalf("MarshalText() = %q, %v", b, err)
	}
	var v Version
	if err := v.UnmarshalText([]byte("24.5")); err != nil || v != V24_5 {
		t.Errorf("UnmarshalText() = %v, %v", v, err)
	}
	if err := v.UnmarshalText([]byte("nope")); err == nil {
		t.Error("UnmarshalText() accepted garbage")
	}
}

func TestCodeRegistrationOffsets(t *testing.T) {
	tests := []struct {
		v       Version
		ptrSize int
		field   string
		want    int
	}{
		{V24_2, 8, "codeGenModules", 13 * 8},
		{V24_2, 4, "codeGenModules", 13 * 4},
		{V24_3, 8, "codeGenModules", 15 * 8},
		{V27, 8, "codeGenModules", 13 * 8},
		{V27_1, 8, "codeGenModules", 14 * 8},
		{V29, 8, "codeGenModules", 14 * 8},
		{V29_1, 8, "codeGenModules", 16 * 8},
		{V24_2, 8, "invokerPointersCount", 4 * 8},
		{V24_5, 8, "invokerPointersCount", 5 * 8},
		{V24_1, 8, "methodPointers", 1 * 8},
		{V21, 8, "genericMethodPointersCount", 10 * 8},
	}
	for _, tt := range tests {
		got, ok := CodeRegistrationLayout.Offset(tt.field, tt.v, tt.ptrSize)
		if !ok {
			t.Errorf("%s missing in %v", tt.field, tt.v)
			continue
		}
		if got != tt.want {
			t.Errorf("Offset(%s, %v, %d) = %#x, want %#x", tt.field, tt.v, tt.ptrSize, got, tt.want)
		}
	}
	if _, ok := CodeRegistrationLayout.Offset("methodPointers", V24_2, 8); ok {
		t.Error("methodPointers should not exist in 24.2")
	}
}

func TestMetadataRegistrationSize(t *testing.T) {
	tests := []struct {
		v       Version
		ptrSize int
		want    int
	}{
		{V16, 8, 16 * 8},
		{V24, 8, 16 * 8},
		{V27, 4, 16 * 4},
	}
	for _, tt := range tests {
		if got := MetadataRegistrationLayout.Size(tt.v, tt.ptrSize); got != tt.want {
			t.Errorf("Size(%v, %d) = %d, want %d", tt.v, tt.ptrSize, got, tt.want)
		}
	}
	off, _ := MetadataRegistrationLayout.Offset("typeDefinitionsSizesCount", V24, 8)
	if off != 12*8 {
		t.Errorf("typeDefinitionsSizesCount at %#x, want %#x", off, 12*8)
	}
	off, _ = MetadataRegistrationLayout.Offset("fieldOffsetsCount", V27, 8)
	if off != 10*8 {
		t.Errorf("fieldOffsetsCount at %#x, want %#x", off, 10*8)
	}
}

func TestDecodeSignExtension(t *testing.T) {
	b := make([]byte, MetadataRegistrationLayout.Size(V24, 4))
	binary.LittleEndian.PutUint32(b[6*4:], 0xffffffff) // typesCount
	binary.LittleEndian.PutUint32(b[7*4:], 0x80001000) // types
	mr, err := MetadataRegistrationLayout.Decode(b, V24, 4)
	if err != nil {
		t.Fatal(err)
	}
	if mr.TypesCount != -1 {
		t.Errorf("TypesCount = %d, want -1", mr.TypesCount)
	}
	if mr.Types != 0x80001000 {
		t.Errorf("Types = %#x, want 0x80001000", mr.Types)
	}
}

func TestDecodeShort(t *testing.T) {
	_, err := CodeRegistrationLayout.Decode(make([]byte, 16), V24_2, 8)
	if !errors.Is(err, ErrDecodeFailure) {
		t.Errorf("Decode() error = %v, want ErrDecodeFailure", err)
	}
	_, err = CodeRegistrationLayout.Decode(make([]byte, 512), V24_2, 2)
	if !errors.Is(err, ErrDecodeFailure) {
		t.Errorf("Decode() error = %v, want ErrDecodeFailure", err)
	}
}

func TestDecodeArray(t *testing.T) {
	var b []byte
	for _, v := range []uint32{0x06000001, 0, 2, 0x06000007, 2, 3} {
		b = binary.LittleEndian.AppendUint32(b, v)
	}
	got, err := TokenRangePairLayout.DecodeArray(b, 2, V24_2, 8)
	if err != nil {
		t.Fatal(err)
	}
	want := []TokenRangePair{
		{Token: 0x06000001, Start: 0, Length: 2},
		{Token: 0x06000007, Start: 2, Length: 3},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DecodeArray() = %v, want %v", got, want)
	}
	if _, err := TokenRangePairLayout.DecodeArray(b, 3, V24_2, 8); !errors.Is(err, ErrDecodeFailure) {
		t.Errorf("DecodeArray() error = %v, want ErrDecodeFailure", err)
	}
}

func TestRGCTXDefinitionSize(t *testing.T) {
	tests := []struct {
		v    Version
		want int
	}{
		{V24_2, 8},
		{V27_1, 8},
		{V27_2, 8},
		{V29, 16},
	}
	for _, tt := range tests {
		if got := RGCTXDefinitionLayout.Size(tt.v, 8); got != tt.want {
			t.Errorf("RGCTXDefinition size for %v = %d, want %d", tt.v, got, tt.want)
		}
	}
}

func TestCodeGenModuleSize(t *testing.T) {
	tests := []struct {
		v    Version
		want int
	}{
		{V24_2, 11},
		{V24_5, 13},
		{V27, 16},
		{V27_1, 18},
		{V29, 17},
	}
	for _, tt := range tests {
		if got := CodeGenModuleLayout.Size(tt.v, 8); got != tt.want*8 {
			t.Errorf("CodeGenModule size for %v = %d, want %d", tt.v, got, tt.want*8)
		}
	}
}

func TestTypeUnpack(t *testing.T) {
	tests := []struct {
		name string
		v    Version
		bits uint32
		want Type
	}{
		{
			name: "old byref",
			v:    V24_2,
			bits: 1<<30 | uint32(TypeClass)<<16 | 0x6,
			want: Type{Attrs: 6, Type: TypeClass, ByRef: true},
		},
		{
			name: "old pinned mods",
			v:    V27_1,
			bits: 1<<31 | 0x21<<24 | uint32(TypeI4)<<16,
			want: Type{Type: TypeI4, NumMods: 0x21, Pinned: true},
		},
		{
			name: "new valuetype",
			v:    V27_2,
			bits: 1<<31 | 1<<29 | 0x3<<24 | uint32(TypeValueType)<<16 | 0x10,
			want: Type{Attrs: 0x10, Type: TypeValueType, NumMods: 3, ByRef: true, ValueType: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Type{Bits: tt.bits}
			got.Unpack(tt.v)
			tt.want.Bits = tt.bits
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Unpack() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestMetadataDefinitionSizes(t *testing.T) {
	tests := []struct {
		v                          Version
		image, typeDef, methodDef int
	}{
		{V16, 0x14, 112, 56},
		{V21, 0x18, 120, 56},
		{V24, 0x20, 104, 56},
		{V24_1, 0x28, 100, 52},
		{V24_2, 0x28, 92, 32},
		{V27, 0x28, 88, 32},
		{V31, 0x28, 88, 36},
	}
	for _, tt := range tests {
		if got := ImageDefinitionLayout.Size(tt.v, 4); got != tt.image {
			t.Errorf("ImageDefinition size for %v = %#x, want %#x", tt.v, got, tt.image)
		}
		if got := TypeDefinitionLayout.Size(tt.v, 4); got != tt.typeDef {
			t.Errorf("TypeDefinition size for %v = %d, want %d", tt.v, got, tt.typeDef)
		}
		if got := MethodDefinitionLayout.Size(tt.v, 4); got != tt.methodDef {
			t.Errorf("MethodDefinition size for %v = %d, want %d", tt.v, got, tt.methodDef)
		}
	}
}

func TestGlobalMetadataHeaderOffsets(t *testing.T) {
	tests := []struct {
		name string
		v    Version
		want int
		ok   bool
	}{
		{"methodsOffset", V24, 0x30, true},
		{"typeDefinitionsOffset", V24_2, 0xA0, true},
		{"imagesSize", V24_2, 0xAC, true},
		{"imagesSize", V24_1, 0xB4, true},
		{"assembliesSize", V27, 0xB4, true},
		{"metadataUsagePairsCount", V24_5, 0xC4, true},
		{"metadataUsagePairsCount", V27, 0, false},
	}
	for _, tt := range tests {
		got, ok := GlobalMetadataHeaderLayout.Offset(tt.name, tt.v, 4)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Offset(%s, %v) = %#x, %v, want %#x, %v", tt.name, tt.v, got, ok, tt.want, tt.ok)
		}
	}
}

func TestDecodeMethodDefinition(t *testing.T) {
	b := make([]byte, 32)
	binary.LittleEndian.PutUint32(b[0:], 7)
	binary.LittleEndian.PutUint32(b[4:], 3)
	binary.LittleEndian.PutUint32(b[20:], 0x06000002)
	binary.LittleEndian.PutUint16(b[24:], 0x86)
	m, err := MethodDefinitionLayout.Decode(b, V24_2, 4)
	if err != nil {
		t.Fatal(err)
	}
	want := MethodDefinition{NameIndex: 7, DeclaringType: 3, Token: 0x06000002}
	if m != want {
		t.Errorf("Decode() = %+v, want %+v", m, want)
	}
}
