package types

import (
	"fmt"

	"github.com/hashicorp/go-version"
	"github.com/pkg/errors"
)

// Version is an il2cpp schema revision encoded as major*10+minor (e.g. 24.2 == 242).
// Sub-versions such as 27.1 and 27.2 are binary incompatible with their nominal version.
type Version uint16

// Known schema revisions
const (
	V16   Version = 160
	V19   Version = 190
	V20   Version = 200
	V21   Version = 210
	V22   Version = 220
	V23   Version = 230
	V24   Version = 240
	V24_1 Version = 241
	V24_2 Version = 242
	V24_3 Version = 243
	V24_4 Version = 244
	V24_5 Version = 245
	V27   Version = 270
	V27_1 Version = 271
	V27_2 Version = 272
	V29   Version = 290
	V29_1 Version = 291
	V31   Version = 310
)

// NewVersion builds a Version from a major/minor pair
func NewVersion(major, minor int) Version {
	return Version(major*10 + minor)
}

// Major returns the nominal version
func (v Version) Major() int { return int(v) / 10 }

// Minor returns the sub-variant
func (v Version) Minor() int { return int(v) % 10 }

func (v Version) String() string {
	if v.Minor() == 0 {
		return fmt.Sprintf("%d", v.Major())
	}
	return fmt.Sprintf("%d.%d", v.Major(), v.Minor())
}

func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

func (v *Version) UnmarshalText(text []byte) error {
	parsed, err := ParseVersion(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// ParseVersion parses an operator supplied version string like "24.2" or "29"
func ParseVersion(s string) (Version, error) {
	ver, err := version.NewVersion(s)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid il2cpp version %q", s)
	}
	segs := ver.Segments()
	if len(segs) > 2 && segs[2] != 0 {
		return 0, errors.Errorf("invalid il2cpp version %q: too many components", s)
	}
	if segs[0] < 16 || segs[0] > 99 {
		return 0, errors.Errorf("invalid il2cpp version %q: major out of range", s)
	}
	minor := 0
	if len(segs) > 1 {
		minor = segs[1]
	}
	if minor < 0 || minor > 9 {
		return 0, errors.Errorf("invalid il2cpp version %q: minor out of range", s)
	}
	return NewVersion(segs[0], minor), nil
}

// span is an inclusive version range; a zero max is unbounded
type span struct {
	min Version
	max Version
}

func (s span) contains(v Version) bool {
	return v >= s.min && (s.max == 0 || v <= s.max)
}

func since(v Version) span { return span{min: v} }
func until(v Version) span { return span{max: v} }
func between(a, b Version) span { return span{min: a, max: b} }
func only(v Version) span { return span{min: v, max: v} }
