package magic

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want Kind
	}{
		{"elf", []byte("\x7fELF\x02\x01"), ELF},
		{"pe", []byte("MZ\x90\x00"), PE},
		{"macho64", []byte{0xcf, 0xfa, 0xed, 0xfe}, MachO},
		{"fat", []byte{0xca, 0xfe, 0xba, 0xbe}, MachOFat},
		{"nso", []byte("NSO0"), NSO},
		{"wasm", []byte("\x00asm\x01\x00\x00\x00"), Wasm},
		{"metadata", []byte{0xaf, 0x1b, 0xb1, 0xfa, 0x18, 0, 0, 0}, Metadata},
		{"short", []byte("MZ"), Unknown},
		{"garbage", []byte("hello"), Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Detect(tt.in); got != tt.want {
				t.Errorf("Detect() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDetectFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "global-metadata.dat")
	if err := os.WriteFile(path, []byte{0xaf, 0x1b, 0xb1, 0xfa, 0x1d, 0, 0, 0}, 0o644); err != nil {
		t.Fatal(err)
	}
	k, err := DetectFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if k != Metadata {
		t.Errorf("DetectFile() = %v, want %v", k, Metadata)
	}
	if _, err := DetectFile(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("DetectFile() opened a missing file")
	}
}
