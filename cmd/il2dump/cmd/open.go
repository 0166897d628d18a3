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
	"slices"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/apex/log"
	"github.com/blacktop/il2dump/internal/config"
	"github.com/blacktop/il2dump/internal/utils"
	"github.com/blacktop/il2dump/pkg/il2cpp"
	"github.com/blacktop/il2dump/pkg/il2cpp/container"
	"github.com/pkg/errors"
	"golang.org/x/term"
)

// interactive reports whether prompts can be shown
func interactive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// selectArch returns the universal Mach-O slice chooser: the --arch flag wins, then a prompt
func selectArch(want string) container.ArchSelector {
	return func(arches []string) (int, error) {
		if want != "" {
			for i, arch := range arches {
				if slices.ContainsFunc(strings.Split(arch, ", "), func(part string) bool {
					return strings.EqualFold(part, want)
				}) {
					return i, nil
				}
			}
			return 0, fmt.Errorf("universal MachO does not contain arch %s (has %v)", want, arches)
		}
		if !interactive() {
			log.Warnf("Defaulting to %s (use --arch to choose)", arches[0])
			return 0, nil
		}
		choice := 0
		prompt := &survey.Select{
			Message: "Detected a universal MachO file, please select an architecture to analyze:",
			Options: arches,
		}
		if err := survey.AskOne(prompt, &choice); err != nil {
			if err == terminal.InterruptErr {
				return 0, errors.New("interrupted")
			}
			return 0, err
		}
		return choice, nil
	}
}

// openBinary parses the binary at path and rebases it when it is a memory dump
func openBinary(path string, conf *config.Config, ic il2cpp.Config) (*il2cpp.File, error) {
	f, err := il2cpp.Open(path, ic, container.WithArchSelector(selectArch(conf.Arch)))
	if err != nil {
		return nil, err
	}
	if base, ok := conf.Dumped(); ok {
		utils.Indent(log.WithField("base", fmt.Sprintf("%#x", base)).Info, 2)("Treating binary as a memory dump")
		f.Rebase(base)
	}
	return f, nil
}

// askAddress prompts for a hex address; an empty answer means the operator gave up
func askAddress(message string) (uint64, bool, error) {
	var answer string
	prompt := &survey.Input{Message: message}
	validate := func(val any) error {
		s, _ := val.(string)
		if s == "" {
			return nil
		}
		if _, err := utils.ConvertStrToInt(s); err != nil {
			return fmt.Errorf("invalid address %q", s)
		}
		return nil
	}
	if err := survey.AskOne(prompt, &answer, survey.WithValidator(validate)); err != nil {
		if err == terminal.InterruptErr {
			return 0, false, nil
		}
		return 0, false, err
	}
	if answer == "" {
		return 0, false, nil
	}
	va, err := utils.ConvertStrToInt(answer)
	return va, err == nil, err
}
