// Package hint loads the out-of-band registration hint written next to a
// metadata file by runtime dumpers.
package hint

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Suffix is appended to the metadata path to find the default hint file
const Suffix = ".hint.json"

var (
	// ErrIncomplete is returned when neither RVA nor runtime addresses are usable
	ErrIncomplete = errors.New("hint is missing module.base or il2cpp registrations")
	// ErrBelowBase is returned when a runtime address is below the module base
	ErrBelowBase = errors.New("hint runtime addresses are below module base")
)

// Hint is the on-disk hint document. Addresses are hex strings with an optional 0x prefix.
type Hint struct {
	Schema int `json:"schema"`
	Module struct {
		Base string `json:"base"`
	} `json:"module"`
	Il2Cpp struct {
		CodeRegistration        string `json:"code_registration"`
		MetadataRegistration    string `json:"metadata_registration"`
		CodeRegistrationRVA     string `json:"code_registration_rva"`
		MetadataRegistrationRVA string `json:"metadata_registration_rva"`
	} `json:"il2cpp"`
}

// Mode says how a Pair was derived
type Mode string

const (
	ModeRVA     Mode = "rva"
	ModeRuntime Mode = "runtime"
)

// Pair is a code/metadata registration address pair rebased onto the image
type Pair struct {
	Mode                 Mode   `json:"mode"`
	CodeRegistration     uint64 `json:"code_registration"`
	MetadataRegistration uint64 `json:"metadata_registration"`
}

// DefaultPath returns the hint path used when none is given
func DefaultPath(metadataPath string) string {
	return metadataPath + Suffix
}

// Load reads and decodes the hint at path
func Load(path string) (*Hint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a hint document
func Parse(data []byte) (*Hint, error) {
	var h Hint
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, errors.Wrap(err, "failed to parse hint")
	}
	return &h, nil
}

// parseHex is lenient: anything that is not a hex number is 0
func parseHex(s string) uint64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if len(s) > 1 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0
	}
	return v
}

// Candidates returns the pairs to try in order: RVA mode first, then runtime
// addresses relative to module.base. The error explains why the runtime pair is
// missing and is only fatal when no pair is returned.
func (h *Hint) Candidates(imageBase uint64) ([]Pair, error) {
	var pairs []Pair

	codeRVA := parseHex(h.Il2Cpp.CodeRegistrationRVA)
	metaRVA := parseHex(h.Il2Cpp.MetadataRegistrationRVA)
	if codeRVA != 0 && metaRVA != 0 {
		pairs = append(pairs, Pair{
			Mode:                 ModeRVA,
			CodeRegistration:     imageBase + codeRVA,
			MetadataRegistration: imageBase + metaRVA,
		})
	}

	base := parseHex(h.Module.Base)
	code := parseHex(h.Il2Cpp.CodeRegistration)
	meta := parseHex(h.Il2Cpp.MetadataRegistration)
	if base == 0 || code == 0 || meta == 0 {
		return pairs, ErrIncomplete
	}
	if code < base || meta < base {
		return pairs, ErrBelowBase
	}
	return append(pairs, Pair{
		Mode:                 ModeRuntime,
		CodeRegistration:     imageBase + (code - base),
		MetadataRegistration: imageBase + (meta - base),
	}), nil
}
