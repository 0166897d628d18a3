package il2cpp

import (
	"encoding/binary"
	"reflect"
	"testing"

	"github.com/blacktop/il2dump/pkg/il2cpp/addr"
	"github.com/blacktop/il2dump/pkg/il2cpp/container"
	"github.com/blacktop/il2dump/pkg/il2cpp/types"
	"github.com/pkg/errors"
)

const (
	execVA = 0x10000
	dataVA = 0x20000

	codeReg     = 0x20400
	gmpTable    = 0x20600
	invTable    = 0x20620
	moduleTable = 0x20700
	module      = 0x20800
	moduleName  = 0x20a00
	methodTable = 0x20b00
	rgctxRanges = 0x20c00
	rgctxTable  = 0x20c40

	metaReg     = 0x21000
	instTable   = 0x21200
	inst        = 0x21240
	gmTable     = 0x21300
	typeTable   = 0x21400
	valueType   = 0x21480
	classType   = 0x21490
	specTable   = 0x21500
	offsetTable = 0x21600
	typeOffsets = 0x21700
	sizesTable  = 0x21800
	usagesTable = 0x21900
)

// fixture is a synthetic 64-bit binary: exec at file 0x0, data (also bss) at file 0x1000
type fixture struct {
	bin *container.Binary
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	exec := addr.NewRange(0, 0x1000, execVA, 0x1000)
	data := addr.NewRange(0x1000, 0x4000, dataVA, 0x4000)
	b := &container.Binary{
		Data:      make([]byte, 0x5000),
		PtrSize:   8,
		ImageBase: execVA,
		Mapper:    addr.Table{exec, data},
		Symbols:   make(map[string]uint64),
	}
	b.Sections.Exec = []addr.Range{exec}
	b.Sections.Data = []addr.Range{data}
	b.Sections.Bss = b.Sections.Data
	return &fixture{bin: b}
}

func (fx *fixture) off(t *testing.T, va uint64) uint64 {
	t.Helper()
	off, err := fx.bin.Mapper.MapToFileOffset(va)
	if err != nil {
		t.Fatalf("bad fixture address %#x: %v", va, err)
	}
	return off
}

func (fx *fixture) put(t *testing.T, va uint64, words ...uint64) {
	t.Helper()
	off := fx.off(t, va)
	for i, w := range words {
		binary.LittleEndian.PutUint64(fx.bin.Data[off+uint64(i)*8:], w)
	}
}

func (fx *fixture) put32(t *testing.T, va uint64, words ...uint32) {
	t.Helper()
	off := fx.off(t, va)
	for i, w := range words {
		binary.LittleEndian.PutUint32(fx.bin.Data[off+uint64(i)*4:], w)
	}
}

func (fx *fixture) field(t *testing.T, base uint64, slot int, v uint64) {
	t.Helper()
	fx.put(t, base+uint64(slot)*8, v)
}

func (fx *fixture) str(t *testing.T, va uint64, s string) {
	t.Helper()
	copy(fx.bin.Data[fx.off(t, va):], s+"\x00")
}

// registrations lays out a complete 24.2 registration pair with one module
func registrations(t *testing.T) *fixture {
	fx := newFixture(t)

	fx.field(t, codeReg, 2, 2) // genericMethodPointersCount
	fx.field(t, codeReg, 3, gmpTable)
	fx.field(t, codeReg, 4, 1) // invokerPointersCount
	fx.field(t, codeReg, 5, invTable)
	fx.field(t, codeReg, 12, 1) // codeGenModulesCount
	fx.field(t, codeReg, 13, moduleTable)
	fx.put(t, gmpTable, 0x10100, 0x10200)
	fx.put(t, invTable, 0x10300)
	fx.put(t, moduleTable, module)

	fx.field(t, module, 0, moduleName)
	fx.field(t, module, 1, 3) // methodPointerCount
	fx.field(t, module, 2, methodTable)
	fx.field(t, module, 6, 1) // rgctxRangesCount
	fx.field(t, module, 7, rgctxRanges)
	fx.field(t, module, 8, 2) // rgctxsCount
	fx.field(t, module, 9, rgctxTable)
	fx.str(t, moduleName, "mscorlib.dll")
	fx.put(t, methodTable, 0x10010, 0x10020, 0x10030)
	fx.put32(t, rgctxRanges, 0x06000001, 0, 2)
	fx.put32(t, rgctxTable, 1, 5, 2, 7)

	fx.field(t, metaReg, 2, 1) // genericInstsCount
	fx.field(t, metaReg, 3, instTable)
	fx.field(t, metaReg, 4, 1) // genericMethodTableCount
	fx.field(t, metaReg, 5, gmTable)
	fx.field(t, metaReg, 6, 2) // typesCount
	fx.field(t, metaReg, 7, typeTable)
	fx.field(t, metaReg, 8, 1) // methodSpecsCount
	fx.field(t, metaReg, 9, specTable)
	fx.field(t, metaReg, 10, 2) // fieldOffsetsCount
	fx.field(t, metaReg, 11, offsetTable)
	fx.field(t, metaReg, 12, 2) // typeDefinitionsSizesCount
	fx.field(t, metaReg, 13, sizesTable)
	fx.field(t, metaReg, 14, 2) // metadataUsagesCount
	fx.field(t, metaReg, 15, usagesTable)

	fx.put(t, instTable, inst)
	fx.put(t, inst, 1, typeTable)
	fx.put32(t, gmTable, 0, 1, 0)
	fx.put(t, typeTable, valueType, classType)
	fx.put(t, valueType, 7)
	fx.put32(t, valueType+8, uint32(types.TypeValueType)<<16|0x6)
	fx.put(t, classType, 9)
	fx.put32(t, classType+8, uint32(types.TypeClass)<<16|1<<30)
	fx.put32(t, specTable, 42, 0xffffffff, 0)
	fx.put(t, offsetTable, typeOffsets, 0)
	fx.put32(t, typeOffsets, 0x10, 0x18, 0x20)
	fx.put(t, usagesTable, 0x23000, 0x23008)
	return fx
}

var fixtureConfig = Config{
	Version:                      types.V24_2,
	ExpectedImageCount:           1,
	ExpectedTypeDefinitionsCount: 2,
	ExpectedMethodCount:          3,
	MetadataUsagesCount:          2,
}

func (fx *fixture) file(t *testing.T, conf Config) *File {
	t.Helper()
	f, err := New(fx.bin, conf)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return f
}

func TestInit(t *testing.T) {
	f := registrations(t).file(t, fixtureConfig)
	if err := f.Init(codeReg, metaReg); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if !f.Initialized() || f.Version() != types.V24_2 || len(f.Transitions()) != 0 {
		t.Errorf("Init() initialized = %v, version = %s, transitions = %v", f.Initialized(), f.Version(), f.Transitions())
	}
	if want := []uint64{0x10100, 0x10200}; !reflect.DeepEqual(f.GenericMethodPointers, want) {
		t.Errorf("GenericMethodPointers = %#x, want %#x", f.GenericMethodPointers, want)
	}
	if want := []uint64{0x10300}; !reflect.DeepEqual(f.InvokerPointers, want) {
		t.Errorf("InvokerPointers = %#x, want %#x", f.InvokerPointers, want)
	}
	if want := []uint64{0x23000, 0x23008}; !reflect.DeepEqual(f.MetadataUsages, want) {
		t.Errorf("MetadataUsages = %#x, want %#x", f.MetadataUsages, want)
	}
	if want := []uint64{0x10010, 0x10020, 0x10030}; !reflect.DeepEqual(f.ModuleMethodPointers["mscorlib.dll"], want) {
		t.Errorf("ModuleMethodPointers = %v", f.ModuleMethodPointers)
	}
	wantRGCTX := []types.RGCTXDefinition{{Type: 1, Data: 5}, {Type: 2, Data: 7}}
	if got := f.ModuleRGCTXs("mscorlib.dll", 0x06000001); !reflect.DeepEqual(got, wantRGCTX) {
		t.Errorf("ModuleRGCTXs() = %v, want %v", got, wantRGCTX)
	}
	if want := []types.GenericInst{{TypeArgc: 1, TypeArgv: typeTable}}; !reflect.DeepEqual(f.GenericInsts, want) {
		t.Errorf("GenericInsts = %v, want %v", f.GenericInsts, want)
	}

	typ, ok := f.Type(valueType)
	if !ok || typ.Type != types.TypeValueType || typ.Attrs != 0x6 || typ.Datapoint != 7 {
		t.Errorf("Type(valueType) = %v, %v", typ, ok)
	}
	typ, ok = f.Type(classType)
	if !ok || typ.Type != types.TypeClass || !typ.ByRef {
		t.Errorf("Type(classType) = %v, %v", typ, ok)
	}
	if _, ok := f.Type(0x21444); ok {
		t.Error("Type() found a descriptor that is not in the types table")
	}

	want := []types.MethodSpec{{MethodDefinitionIndex: 42, ClassIndexIndex: -1, MethodIndexIndex: 0}}
	if !reflect.DeepEqual(f.MethodSpecs, want) {
		t.Errorf("MethodSpecs = %v, want %v", f.MethodSpecs, want)
	}
	if got := f.MethodDefinitionSpecs(42); !reflect.DeepEqual(got, []int32{0}) {
		t.Errorf("MethodDefinitionSpecs(42) = %v", got)
	}
	if p, ok := f.GenericMethodPointer(0); !ok || p != 0x10200 {
		t.Errorf("GenericMethodPointer() = %#x, %v", p, ok)
	}
	if got := f.RVA(0x10200); got != 0x200 {
		t.Errorf("RVA() = %#x, want 0x200", got)
	}
}

func TestInitIdenticalMethodSpecs(t *testing.T) {
	fx := registrations(t)
	fx.field(t, metaReg, 4, 2) // genericMethodTableCount
	fx.field(t, metaReg, 8, 2) // methodSpecsCount
	fx.put32(t, gmTable, 0, 0, 0, 1, 1, 0)
	fx.put32(t, specTable, 42, 0xffffffff, 0, 42, 0xffffffff, 0)
	f := fx.file(t, fixtureConfig)
	if err := f.Init(codeReg, metaReg); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if got := f.MethodDefinitionSpecs(42); !reflect.DeepEqual(got, []int32{0, 1}) {
		t.Errorf("MethodDefinitionSpecs(42) = %v, want [0 1]", got)
	}
	for i, want := range []uint64{0x10100, 0x10200} {
		if p, ok := f.GenericMethodPointer(int32(i)); !ok || p != want {
			t.Errorf("GenericMethodPointer(%d) = %#x, %v, want %#x", i, p, ok, want)
		}
	}
}

func TestInitFailureLeavesFileUntouched(t *testing.T) {
	fx := registrations(t)
	// a generic method table entry pointing past the method specs
	fx.put32(t, gmTable, 5, 1, 0)
	f := fx.file(t, fixtureConfig)
	err := f.Init(codeReg, metaReg)
	if !errors.Is(err, types.ErrDecodeFailure) {
		t.Fatalf("Init() error = %v, want ErrDecodeFailure", err)
	}
	if f.Initialized() || f.CodeRegistrationAddr != 0 || f.GenericMethodPointers != nil {
		t.Error("failed Init() changed the File")
	}
}

func TestInitRejectsModuleCount(t *testing.T) {
	conf := fixtureConfig
	conf.ExpectedImageCount = 10
	f := registrations(t).file(t, conf)
	if err := f.Init(codeReg, metaReg); err == nil {
		t.Error("Init() accepted 1 module when 10 were expected")
	}
}

func TestInitSkipsOversizedTables(t *testing.T) {
	fx := registrations(t)
	fx.field(t, codeReg, 4, 600000) // invokerPointersCount
	f := fx.file(t, fixtureConfig)
	if err := f.Init(codeReg, metaReg); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	want := []SkippedTable{{Name: "invokerPointers", Count: 600000, Expected: 3}}
	if !reflect.DeepEqual(f.Skipped, want) {
		t.Errorf("Skipped = %v, want %v", f.Skipped, want)
	}
	if len(f.InvokerPointers) != 0 || f.CodeRegistration.InvokerPointers != 0 {
		t.Errorf("InvokerPointers = %#x, want none", f.InvokerPointers)
	}
}

func TestInitRefines243(t *testing.T) {
	fx := registrations(t)
	fx.field(t, codeReg, 12, 0) // windowsRuntimeFactoryCount
	fx.field(t, codeReg, 13, 0) // windowsRuntimeFactoryTable
	fx.field(t, codeReg, 14, 1)
	fx.field(t, codeReg, 15, moduleTable)
	f := fx.file(t, fixtureConfig)
	if err := f.Init(codeReg, metaReg); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if f.Version() != types.V24_3 {
		t.Errorf("Version() = %s, want 24.3", f.Version())
	}
	want := []Transition{{From: types.V24_2, To: types.V24_3, Reason: "codeGenModules is null in the 24.2 layout"}}
	if !reflect.DeepEqual(f.Transitions(), want) {
		t.Errorf("Transitions() = %v, want %v", f.Transitions(), want)
	}

	// a second attempt starts again from 24.2
	if err := f.Init(codeReg, metaReg); err != nil {
		t.Fatalf("second Init() error = %v", err)
	}
	if len(f.Transitions()) != 1 || f.Transitions()[0].From != types.V24_2 {
		t.Errorf("second Init() transitions = %v", f.Transitions())
	}
}

func TestVersionResolver(t *testing.T) {
	tests := []struct {
		name    string
		version types.Version
		setup   func(t *testing.T, fx *fixture)
		want    []types.Version
		invoker uint64
	}{
		{
			name:    "27 to 27.2",
			version: types.V27,
			setup: func(t *testing.T, fx *fixture) {
				fx.field(t, codeReg, 4, 0x60000) // 27: invokerPointersCount, 27.1: genericAdjustorThunks
				fx.field(t, codeReg, 5, 10)
				fx.field(t, codeReg, 13, 1)
				fx.field(t, codeReg, 14, moduleTable)
				fx.put(t, moduleTable, module)
				fx.field(t, module, 10, 1) // 27.1 rgctxsCount
				fx.field(t, module, 11, rgctxTable)
				fx.put32(t, rgctxTable, 3, 0x60000)
			},
			want:    []types.Version{types.V27_1, types.V27_2},
			invoker: 10,
		},
		{
			name:    "27 to 27.1",
			version: types.V27,
			setup: func(t *testing.T, fx *fixture) {
				fx.field(t, codeReg, 4, 0x60000)
				fx.field(t, codeReg, 5, 10)
				fx.field(t, codeReg, 13, 1)
				fx.field(t, codeReg, 14, moduleTable)
				fx.put(t, moduleTable, module)
				fx.field(t, module, 10, 2)
				fx.field(t, module, 11, rgctxTable)
				fx.put32(t, rgctxTable, 3, 0x60000, 3, 0x10)
			},
			want:    []types.Version{types.V27_1},
			invoker: 10,
		},
		{
			name:    "27 stays",
			version: types.V27,
			setup: func(t *testing.T, fx *fixture) {
				fx.field(t, codeReg, 4, 0x50000)
			},
			invoker: 0x50000,
		},
		{
			name:    "24.4 to 24.5",
			version: types.V24_4,
			setup: func(t *testing.T, fx *fixture) {
				fx.field(t, codeReg, 4, 0x60000)
				fx.field(t, codeReg, 5, 3)
			},
			want:    []types.Version{types.V24_5},
			invoker: 3,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t)
			tt.setup(t, fx)
			f := fx.file(t, Config{Version: tt.version})
			r := newVersionResolver(f.attemptSpace(), f.probeLimit())
			cr, err := r.resolve(codeReg)
			if err != nil {
				t.Fatalf("resolve() error = %v", err)
			}
			var got []types.Version
			prev := tt.version
			for _, tr := range r.transitions {
				if tr.From != prev || tr.To <= tr.From {
					t.Errorf("transition %s -> %s does not continue from %s", tr.From, tr.To, prev)
				}
				prev = tr.To
				got = append(got, tr.To)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("resolve() versions = %v, want %v", got, tt.want)
			}
			if cr.InvokerPointersCount != tt.invoker {
				t.Errorf("InvokerPointersCount = %#x, want %#x", cr.InvokerPointersCount, tt.invoker)
			}
			if f.space.Version != tt.version {
				t.Errorf("resolve() changed the File's version to %s", f.space.Version)
			}
		})
	}
}

func TestRefineNeverRegresses(t *testing.T) {
	f := newFixture(t).file(t, Config{Version: types.V27})
	r := newVersionResolver(f.attemptSpace(), f.probeLimit())
	if err := r.refine(types.V24_5, "down"); err == nil {
		t.Error("refine() moved the version backwards")
	}
	if err := r.refine(types.V27, "same"); err == nil {
		t.Error("refine() accepted the current version")
	}
	if err := r.refine(types.V27_1, "up"); err != nil {
		t.Errorf("refine() error = %v", err)
	}
	r.space.Version = types.V27
	if err := r.refine(types.V27_1, "again"); err == nil {
		t.Error("refine() took the same transition twice")
	}
}

func TestScoreMonotonic(t *testing.T) {
	fx := registrations(t)
	f := fx.file(t, fixtureConfig)
	s := f.attemptSpace()

	before := f.scoreCodeRegistration(s, codeReg)
	fx.field(t, codeReg, 9, invTable) // unresolvedVirtualCallPointers
	if after := f.scoreCodeRegistration(s, codeReg); after < before {
		t.Errorf("score fell from %d to %d after adding a mappable pointer", before, after)
	}
	fx.field(t, codeReg, 3, 0)
	withoutGMP := f.scoreCodeRegistration(s, codeReg)
	fx.field(t, codeReg, 3, gmpTable)
	if with := f.scoreCodeRegistration(s, codeReg); with <= withoutGMP {
		t.Errorf("score %d with genericMethodPointers, %d without", with, withoutGMP)
	}

	fx.field(t, metaReg, 9, 0)
	withoutSpecs := f.scoreMetadataRegistration(s, metaReg)
	fx.field(t, metaReg, 9, specTable)
	if with := f.scoreMetadataRegistration(s, metaReg); with <= withoutSpecs {
		t.Errorf("score %d with methodSpecs, %d without", with, withoutSpecs)
	}
	if got := f.scoreMetadataRegistration(s, codeReg); got != rejected {
		t.Errorf("scoreMetadataRegistration(codeReg) = %d, want rejected", got)
	}
	if got := f.scoreCodeRegistration(s, 0xdead0000); got != rejected {
		t.Errorf("scoreCodeRegistration(unmapped) = %d, want rejected", got)
	}
}

func TestRank(t *testing.T) {
	scores := map[uint64]int{1: 10, 2: rejected, 3: 50, 4: 10}
	got := rank([]uint64{1, 2, 3, 4}, func(va uint64) int { return scores[va] })
	want := []candidate{{3, 50}, {1, 10}, {4, 10}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("rank() = %v, want %v", got, want)
	}
	got = rank([]uint64{5, 6}, func(uint64) int { return rejected })
	want = []candidate{{5, 0}, {6, 0}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("rank() of rejected = %v, want %v", got, want)
	}
}

func TestCodeCandidates(t *testing.T) {
	fx := registrations(t)
	f := fx.file(t, fixtureConfig)
	got := codeCandidates(f.attemptSpace(), codeReg+3*8)
	if got[0] != codeReg+3*8 {
		t.Errorf("first candidate = %#x, want the hint", got[0])
	}
	seen := make(map[uint64]bool)
	for _, va := range got {
		if seen[va] {
			t.Fatalf("duplicate candidate %#x", va)
		}
		seen[va] = true
	}
	for _, va := range []uint64{codeReg, codeReg + 3*8 - 64*8, codeReg + 3*8 + 64*8, gmpTable + 64*8} {
		if !seen[va] {
			t.Errorf("candidate %#x missing", va)
		}
	}
	if seen[codeReg+3*8-65*8] || seen[gmpTable+65*8] {
		t.Error("candidate outside the neighborhood")
	}
}

func TestAutoInit(t *testing.T) {
	f := registrations(t).file(t, fixtureConfig)
	if err := f.AutoInit(codeReg+3*8, metaReg); err != nil {
		t.Fatalf("AutoInit() error = %v", err)
	}
	if f.CodeRegistrationAddr != codeReg || f.MetadataRegistrationAddr != metaReg {
		t.Errorf("AutoInit() = %#x, %#x; want %#x, %#x", f.CodeRegistrationAddr, f.MetadataRegistrationAddr, codeReg, metaReg)
	}
}

func TestAutoInitNotFound(t *testing.T) {
	f := newFixture(t).file(t, fixtureConfig)
	err := f.AutoInit(0x23000, 0x23800)
	if !errors.Is(err, ErrStructureNotFound) {
		t.Errorf("AutoInit() error = %v, want ErrStructureNotFound", err)
	}
	if err := f.AutoInit(0, metaReg); !errors.Is(err, ErrStructureNotFound) {
		t.Errorf("AutoInit(0) error = %v, want ErrStructureNotFound", err)
	}
}

func TestPlusSearch(t *testing.T) {
	f := registrations(t).file(t, fixtureConfig)
	if err := f.PlusSearch(); err != nil {
		t.Fatalf("PlusSearch() error = %v", err)
	}
	if f.CodeRegistrationAddr != codeReg || f.MetadataRegistrationAddr != metaReg {
		t.Errorf("PlusSearch() = %#x, %#x", f.CodeRegistrationAddr, f.MetadataRegistrationAddr)
	}
}

func TestSymbolSearch(t *testing.T) {
	fx := registrations(t)
	f := fx.file(t, fixtureConfig)
	if err := f.SymbolSearch(); !errors.Is(err, ErrStructureNotFound) {
		t.Errorf("SymbolSearch() without symbols error = %v", err)
	}
	fx.bin.Symbols[codeRegistrationSymbol] = codeReg
	fx.bin.Symbols[metadataRegistrationSymbol] = metaReg
	if err := f.SymbolSearch(); err != nil {
		t.Fatalf("SymbolSearch() error = %v", err)
	}
	if f.CodeRegistrationAddr != codeReg {
		t.Errorf("SymbolSearch() code = %#x", f.CodeRegistrationAddr)
	}
}

func TestLocate(t *testing.T) {
	f := registrations(t).file(t, fixtureConfig)
	name, err := f.Locate()
	if err != nil {
		t.Fatal(err)
	}
	if name != "plus search" {
		t.Errorf("Locate() strategy = %q", name)
	}
}

func TestLocateNotFound(t *testing.T) {
	f := newFixture(t).file(t, fixtureConfig)
	if _, err := f.Locate(); !errors.Is(err, ErrStructureNotFound) {
		t.Errorf("Locate() error = %v, want ErrStructureNotFound", err)
	}
}

func TestMethodPointer(t *testing.T) {
	f := registrations(t).file(t, fixtureConfig)
	if err := f.Init(codeReg, metaReg); err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		image string
		token uint32
		want  uint64
	}{
		{"mscorlib.dll", 0x06000001, 0x10010},
		{"mscorlib.dll", 0x06000003, 0x10030},
		{"mscorlib.dll", 0x06000000, 0},
		{"mscorlib.dll", 0x06000004, 0},
		{"System.dll", 0x06000001, 0},
	}
	for _, tt := range tests {
		if got := f.MethodPointer(tt.image, tt.token, -1); got != tt.want {
			t.Errorf("MethodPointer(%s, %#x) = %#x, want %#x", tt.image, tt.token, got, tt.want)
		}
	}

	old := &File{version: types.V24_1, Tables: Tables{MethodPointers: []uint64{0x1000, 0x2000}}}
	for idx, want := range map[int32]uint64{-1: 0, 0: 0x1000, 1: 0x2000, 2: 0} {
		if got := old.MethodPointer("", 0, idx); got != want {
			t.Errorf("MethodPointer(index %d) = %#x, want %#x", idx, got, want)
		}
	}
}

func TestFieldOffsetPointers(t *testing.T) {
	f := registrations(t).file(t, fixtureConfig)
	if err := f.Init(codeReg, metaReg); err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name                  string
		typeIndex, inType     int
		isValueType, isStatic bool
		want                  int32
	}{
		{"value type instance", 0, 1, true, false, 0x18 - 16},
		{"value type static", 0, 1, true, true, 0x18},
		{"reference type", 0, 2, false, false, 0x20},
		{"null offsets", 1, 0, false, false, -1},
		{"type out of range", 5, 0, false, false, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.FieldOffset(tt.typeIndex, tt.inType, 0, tt.isValueType, tt.isStatic); got != tt.want {
				t.Errorf("FieldOffset() = %#x, want %#x", got, tt.want)
			}
		})
	}
}

func TestFieldOffsetDirect(t *testing.T) {
	for _, tt := range []struct {
		ptrSize int
		want    int32
	}{
		{4, 0x14 - 8},
		{8, 0x14 - 16},
	} {
		f := &File{
			bin:    &container.Binary{PtrSize: tt.ptrSize},
			Tables: Tables{fieldOffsets: []uint64{0, 0x14}},
		}
		if got := f.FieldOffset(0, 0, 1, true, false); got != tt.want {
			t.Errorf("%d-bit FieldOffset() = %#x, want %#x", tt.ptrSize*8, got, tt.want)
		}
		if got := f.FieldOffset(0, 0, 1, true, true); got != 0x14 {
			t.Errorf("%d-bit static FieldOffset() = %#x, want 0x14", tt.ptrSize*8, got)
		}
		if got := f.FieldOffset(0, 0, 0, true, false); got != 0 {
			t.Errorf("FieldOffset() of a zero offset = %#x, want 0", got)
		}
		if got := f.FieldOffset(0, 0, 9, false, false); got != -1 {
			t.Errorf("FieldOffset() out of range = %#x, want -1", got)
		}
	}
}
