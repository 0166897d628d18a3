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
	rootCmd.AddCommand(o2aCmd)

	o2aCmd.Flags().BoolP("dec", "d", false, "Return address in decimal")
	o2aCmd.Flags().BoolP("hex", "x", false, "Return address in hexadecimal")
	viper.BindPFlag("o2a.dec", o2aCmd.Flags().Lookup("dec"))
	viper.BindPFlag("o2a.hex", o2aCmd.Flags().Lookup("hex"))
	o2aCmd.MarkZshCompPositionalArgumentFile(1)
}

// o2aCmd represents the o2a command
var o2aCmd = &cobra.Command{
	Use:           "o2a <binary> <offset>",
	Short:         "Convert file offset to virtual address",
	Args:          cobra.ExactArgs(2),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		// flags
		inDec := viper.GetBool("o2a.dec")
		inHex := viper.GetBool("o2a.hex")

		if inDec && inHex {
			return fmt.Errorf("you can only use --dec OR --hex")
		}

		off, err := utils.ConvertStrToInt(args[1])
		if err != nil {
			return err
		}

		b, err := openContainer(args[0])
		if err != nil {
			return err
		}

		va, err := b.Mapper.MapToVirtualAddress(off)
		if err != nil {
			return err
		}

		if inDec {
			fmt.Printf("%d\n", va)
		} else if inHex {
			fmt.Printf("%#x\n", va)
		} else {
			logConversion("Address", va, classify(b, va))
		}

		return nil
	},
}
