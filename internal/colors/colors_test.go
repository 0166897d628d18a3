package colors

import (
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestInit(t *testing.T) {
	orig := color.NoColor
	defer func() { color.NoColor = orig }()

	color.NoColor = true
	on := true
	Init(&on)
	if !Enabled() {
		t.Error("expected colors enabled when Init(true)")
	}

	off := false
	Init(&off)
	if Enabled() {
		t.Error("expected colors disabled when Init(false)")
	}

	Init(nil)
	if Enabled() {
		t.Error("Init(nil) should not change NoColor")
	}
}

func TestPalette(t *testing.T) {
	orig := color.NoColor
	defer func() { color.NoColor = orig }()

	palette := []struct {
		name string
		fn   func() *color.Color
	}{
		{"Bold", Bold},
		{"Faint", Faint},
		{"Address", Address},
		{"Field", Field},
		{"Version", Version},
		{"Success", Success},
		{"Warning", Warning},
		{"Failure", Failure},
	}
	for _, tc := range palette {
		t.Run(tc.name, func(t *testing.T) {
			color.NoColor = false
			if got := tc.fn().Sprint("x"); !strings.Contains(got, "\x1b[") {
				t.Errorf("%s() produced no ANSI codes: %q", tc.name, got)
			}
			color.NoColor = true
			if got := tc.fn().Sprint("x"); got != "x" {
				t.Errorf("%s() with colors disabled = %q", tc.name, got)
			}
		})
	}
}
