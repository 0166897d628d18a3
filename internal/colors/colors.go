// Package colors provides the CLI palette with TTY-aware defaults.
//
// Colors are automatically disabled when stdout is not a terminal (piped or
// redirected to a file). Use Init() to override based on CLI flags.
package colors

import "github.com/fatih/color"

// Init allows overriding the auto-detected color setting.
//   - forceColor == nil: keep auto-detected value
//   - forceColor == true: force colors on (e.g., --color flag)
//   - forceColor == false: force colors off (e.g., --no-color flag)
func Init(forceColor *bool) {
	if forceColor != nil {
		color.NoColor = !*forceColor
	}
}

// Enabled returns true if colors are currently enabled.
func Enabled() bool {
	return !color.NoColor
}

func Bold() *color.Color  { return color.New(color.Bold) }
func Faint() *color.Color { return color.New(color.Faint) }

// Address is used for virtual addresses and file offsets
func Address() *color.Color { return color.New(color.FgHiMagenta) }

// Field is used for structure and table names
func Field() *color.Color { return color.New(color.Bold, color.FgHiBlue) }

// Version is used for schema versions
func Version() *color.Color { return color.New(color.Bold, color.FgHiCyan) }

func Success() *color.Color { return color.New(color.Bold, color.FgHiGreen) }
func Warning() *color.Color { return color.New(color.Bold, color.FgHiYellow) }
func Failure() *color.Color { return color.New(color.Bold, color.FgHiRed) }
