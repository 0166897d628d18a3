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
	"os"
	"sort"
	"strings"

	"github.com/blacktop/il2dump/internal/colors"
	"github.com/blacktop/il2dump/pkg/il2cpp/addr"
	"github.com/blacktop/il2dump/pkg/il2cpp/section"
	"github.com/blacktop/il2dump/pkg/table"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(sectionsCmd)

	sectionsCmd.Flags().Bool("symbols", false, "Also list symbols naming a registration structure")
	viper.BindPFlag("sections.symbols", sectionsCmd.Flags().Lookup("symbols"))
	sectionsCmd.MarkZshCompPositionalArgumentFile(1)
}

// sectionsCmd represents the sections command
var sectionsCmd = &cobra.Command{
	Use:           "sections <binary>",
	Aliases:       []string{"s"},
	Short:         "List the exec, data and bss ranges the search scans",
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := openContainer(args[0])
		if err != nil {
			return err
		}

		fmt.Printf("%s %s, %s, %d-bit, base %s\n",
			colors.Field().Sprint("Binary:"),
			b.Kind, b.Arch, b.PtrSize*8,
			colors.Address().Sprintf("%#x", b.ImageBase))

		tbl := table.New(colors.Enabled(), "KIND", "OFFSET", "FILE SIZE", "ADDRESS", "END")
		tbl.AlignRight(1, 2, 3, 4)
		for _, k := range []section.Kind{section.Exec, section.Data, section.Bss} {
			for _, r := range b.Sections.Ranges(k) {
				tbl.Append(k.String(),
					fmt.Sprintf("%#x", r.FileOffset),
					humanize.IBytes(r.FileSize()),
					fmt.Sprintf("%#x", r.Address),
					fmt.Sprintf("%#x", r.AddressEnd))
			}
		}
		fmt.Println(tbl.Render())

		if viper.GetBool("sections.symbols") {
			names := make([]string, 0, len(b.Symbols))
			for name := range b.Symbols {
				if strings.Contains(name, "Registration") {
					names = append(names, name)
				}
			}
			sort.Strings(names)
			fmt.Println()
			syms := table.New(colors.Enabled(), "SYMBOL", "ADDRESS", "OFFSET")
			syms.AlignRight(1, 2)
			for _, name := range names {
				va := b.Symbols[name]
				off := colors.Failure().Sprint("unmapped")
				if o, err := b.Mapper.MapToFileOffset(va); err == nil {
					off = fmt.Sprintf("%#x", o)
				} else if !errors.Is(err, addr.ErrUnmappableAddress) {
					fmt.Fprintln(os.Stderr, err)
				}
				syms.Append(name, fmt.Sprintf("%#x", va), off)
			}
			fmt.Println(syms.Render())
		}

		return nil
	},
}
