package il2cpp

import (
	"io"

	"github.com/blacktop/il2dump/pkg/il2cpp/addr"
	"github.com/blacktop/il2dump/pkg/il2cpp/types"
)

// MethodPointer returns the native entry point of a method, or 0 when it has none.
// From 24.2 the low 24 bits of the token index the module's table; earlier versions
// index the flat table by method index.
func (f *File) MethodPointer(imageName string, token uint32, methodIndex int32) uint64 {
	if f.version >= types.V24_2 {
		ptrs, ok := f.ModuleMethodPointers[imageName]
		if !ok {
			return 0
		}
		rid := token & 0x00ffffff
		if rid == 0 || int(rid) > len(ptrs) {
			return 0
		}
		return ptrs[rid-1]
	}
	if methodIndex < 0 || int(methodIndex) >= len(f.MethodPointers) {
		return 0
	}
	return f.MethodPointers[methodIndex]
}

// FieldOffset returns the byte offset of a field inside its object, or -1 when it cannot be read.
// Instance fields of value types are reported without the object header.
func (f *File) FieldOffset(typeIndex, fieldIndexInType, fieldIndex int, isValueType, isStatic bool) int32 {
	offset := int32(-1)
	if f.fieldOffsetsArePointers {
		if typeIndex < 0 || typeIndex >= len(f.fieldOffsets) || fieldIndexInType < 0 {
			return -1
		}
		if ptr := f.fieldOffsets[typeIndex]; ptr > 0 {
			c := addr.NewCursor(f.space, 0)
			if err := c.SeekToAddr(ptr); err != nil {
				return -1
			}
			if _, err := c.Seek(4*int64(fieldIndexInType), io.SeekCurrent); err != nil {
				return -1
			}
			v, err := c.ReadInt32()
			if err != nil {
				return -1
			}
			offset = v
		}
	} else {
		if fieldIndex < 0 || fieldIndex >= len(f.fieldOffsets) {
			return -1
		}
		offset = int32(f.fieldOffsets[fieldIndex])
	}
	if offset > 0 && isValueType && !isStatic {
		if f.Is32Bit() {
			offset -= 8
		} else {
			offset -= 16
		}
	}
	return offset
}

// Type returns the descriptor at a type pointer taken from the types table
func (f *File) Type(va uint64) (*types.Type, bool) {
	t, ok := f.typesByAddr[va]
	return t, ok
}

// MethodDefinitionSpecs returns the MethodSpecs indices instantiating a method definition
func (f *File) MethodDefinitionSpecs(methodDefinitionIndex int32) []int32 {
	return f.MethodDefinitionMethodSpecs[methodDefinitionIndex]
}

// GenericMethodPointer returns the entry point compiled for the method spec at index
func (f *File) GenericMethodPointer(methodSpecIndex int32) (uint64, bool) {
	p, ok := f.MethodSpecGenericMethodPointers[methodSpecIndex]
	return p, ok
}

// ModuleRGCTXs returns the runtime generic context entries of a token in a module
func (f *File) ModuleRGCTXs(imageName string, token uint32) []types.RGCTXDefinition {
	return f.RGCTXs[imageName][token]
}
