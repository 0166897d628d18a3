/*
Copyright © 2018-2025 blacktop

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"fmt"
	"io"
	"sort"

	"github.com/blacktop/il2dump/internal/colors"
	"github.com/blacktop/il2dump/pkg/il2cpp"
	"github.com/blacktop/il2dump/pkg/il2cpp/types"
	"github.com/blacktop/il2dump/pkg/table"
	"github.com/dustin/go-humanize"
)

type registration struct {
	Address string `json:"address" yaml:"address"`
	RVA     string `json:"rva" yaml:"rva"`
}

type module struct {
	Name    string `json:"name" yaml:"name"`
	Methods int    `json:"methods" yaml:"methods"`
	RGCTXs  int    `json:"rgctxs" yaml:"rgctxs"`
}

type report struct {
	Binary      string                `json:"binary" yaml:"binary"`
	Format      string                `json:"format" yaml:"format"`
	Arch        string                `json:"arch" yaml:"arch"`
	Size        uint64                `json:"size" yaml:"size"`
	ImageBase   string                `json:"image_base" yaml:"image_base"`
	Dumped      bool                  `json:"dumped,omitempty" yaml:"dumped,omitempty"`
	Strategy    string                `json:"strategy" yaml:"strategy"`
	Nominal     types.Version         `json:"nominal_version" yaml:"nominal_version"`
	Version     types.Version         `json:"version" yaml:"version"`
	Transitions []il2cpp.Transition   `json:"transitions,omitempty" yaml:"transitions,omitempty"`
	Code        registration          `json:"code_registration" yaml:"code_registration"`
	Metadata    registration          `json:"metadata_registration" yaml:"metadata_registration"`
	Tables      map[string]int        `json:"tables" yaml:"tables"`
	Modules     []module              `json:"modules,omitempty" yaml:"modules,omitempty"`
	Skipped     []il2cpp.SkippedTable `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

func newReport(path string, ic il2cpp.Config, strategy string, f *il2cpp.File) *report {
	b := f.Binary()
	reg := func(va uint64) registration {
		return registration{
			Address: fmt.Sprintf("%#x", va),
			RVA:     fmt.Sprintf("%#x", f.RVA(va)),
		}
	}
	r := &report{
		Binary:      path,
		Format:      b.Kind.String(),
		Arch:        b.Arch,
		Size:        uint64(len(b.Data)),
		ImageBase:   fmt.Sprintf("%#x", b.ImageBase),
		Dumped:      b.Dumped,
		Strategy:    strategy,
		Nominal:     ic.Version,
		Version:     f.Version(),
		Transitions: f.Transitions(),
		Code:        reg(f.CodeRegistrationAddr),
		Metadata:    reg(f.MetadataRegistrationAddr),
		Tables: map[string]int{
			"methodPointers":                len(f.MethodPointers),
			"genericMethodPointers":         len(f.GenericMethodPointers),
			"invokerPointers":               len(f.InvokerPointers),
			"customAttributeGenerators":     len(f.CustomAttributeGenerators),
			"reversePInvokeWrappers":        len(f.ReversePInvokeWrappers),
			"unresolvedVirtualCallPointers": len(f.UnresolvedVirtualCallPointers),
			"metadataUsages":                len(f.MetadataUsages),
			"genericInsts":                  len(f.GenericInsts),
			"types":                         len(f.Types),
			"genericMethodTable":            len(f.GenericMethodTable),
			"methodSpecs":                   len(f.MethodSpecs),
		},
		Skipped: f.Skipped,
	}
	for name, ptrs := range f.ModuleMethodPointers {
		r.Modules = append(r.Modules, module{
			Name:    name,
			Methods: len(ptrs),
			RGCTXs:  len(f.RGCTXs[name]),
		})
	}
	sort.Slice(r.Modules, func(i, j int) bool { return r.Modules[i].Name < r.Modules[j].Name })
	return r
}

func (r *report) print(w io.Writer) {
	addr := colors.Address().SprintFunc()
	field := colors.Field().SprintFunc()

	fmt.Fprintf(w, "%s %s (%s, %s)\n", field("Binary:"), r.Binary, r.Format, r.Arch)
	fmt.Fprintf(w, "%s %s\n", field("Size:"), humanize.Bytes(r.Size))
	fmt.Fprintf(w, "%s %s", field("Image Base:"), addr(r.ImageBase))
	if r.Dumped {
		fmt.Fprint(w, colors.Warning().Sprint(" (memory dump)"))
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s %s", field("Version:"), colors.Version().Sprint(r.Version))
	if r.Version != r.Nominal {
		fmt.Fprintf(w, " (metadata says %s)", r.Nominal)
	}
	fmt.Fprintln(w)
	for _, t := range r.Transitions {
		fmt.Fprintf(w, "    %s -> %s: %s\n", t.From, t.To, t.Reason)
	}
	fmt.Fprintf(w, "%s %s\n", field("Found By:"), colors.Success().Sprint(r.Strategy))
	fmt.Fprintf(w, "%s %s (rva %s)\n", field("CodeRegistration:"), addr(r.Code.Address), r.Code.RVA)
	fmt.Fprintf(w, "%s %s (rva %s)\n\n", field("MetadataRegistration:"), addr(r.Metadata.Address), r.Metadata.RVA)

	names := make([]string, 0, len(r.Tables))
	for name := range r.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	tbl := table.New(colors.Enabled(), "TABLE", "ENTRIES")
	tbl.AlignRight(1)
	for _, name := range names {
		tbl.Append(name, humanize.Comma(int64(r.Tables[name])))
	}
	fmt.Fprintln(w, tbl.Render())

	if len(r.Modules) > 0 {
		fmt.Fprintln(w)
		mods := table.New(colors.Enabled(), "MODULE", "METHODS", "RGCTX TOKENS")
		mods.AlignRight(1, 2)
		for _, m := range r.Modules {
			mods.Append(m.Name, humanize.Comma(int64(m.Methods)), humanize.Comma(int64(m.RGCTXs)))
		}
		fmt.Fprintln(w, mods.Render())
	}

	for _, s := range r.Skipped {
		fmt.Fprintf(w, "%s %s has %s entries (expected about %s), table skipped\n",
			colors.Warning().Sprint("WARNING:"), s.Name, humanize.Comma(int64(s.Count)), humanize.Comma(int64(s.Expected)))
	}
}
