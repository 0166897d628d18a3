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

	"github.com/blacktop/il2dump/internal/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(a2oCmd)

	a2oCmd.Flags().BoolP("dec", "d", false, "Return address in decimal")
	a2oCmd.Flags().BoolP("hex", "x", false, "Return address in hexadecimal")
	viper.BindPFlag("a2o.dec", a2oCmd.Flags().Lookup("dec"))
	viper.BindPFlag("a2o.hex", a2oCmd.Flags().Lookup("hex"))
	a2oCmd.MarkZshCompPositionalArgumentFile(1)
}

// a2oCmd represents the a2o command
var a2oCmd = &cobra.Command{
	Use:           "a2o <binary> <vaddr>",
	Short:         "Convert virtual address to file offset",
	Args:          cobra.ExactArgs(2),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		// flags
		inDec := viper.GetBool("a2o.dec")
		inHex := viper.GetBool("a2o.hex")

		if inDec && inHex {
			return fmt.Errorf("you can only use --dec OR --hex")
		}

		va, err := utils.ConvertStrToInt(args[1])
		if err != nil {
			return err
		}

		b, err := openContainer(args[0])
		if err != nil {
			return err
		}

		off, err := b.Mapper.MapToFileOffset(va)
		if err != nil {
			return err
		}

		if inDec {
			fmt.Printf("%d\n", off)
		} else if inHex {
			fmt.Printf("%#x\n", off)
		} else {
			logConversion("Offset", off, classify(b, va))
		}

		return nil
	},
}
