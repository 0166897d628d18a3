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
	"path/filepath"

	"github.com/apex/log"
	"github.com/blacktop/il2dump/internal/config"
	"github.com/blacktop/il2dump/pkg/il2cpp/container"
	"github.com/blacktop/il2dump/pkg/il2cpp/section"
	"github.com/pkg/errors"
)

// openContainer parses the binary at path without any il2cpp metadata
func openContainer(path string) (*container.Binary, error) {
	conf, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	b, err := container.Open(data, container.WithArchSelector(selectArch(conf.Arch)))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", path)
	}
	if base, ok := conf.Dumped(); ok {
		b.Rebase(base)
	}
	return b, nil
}

// classify names the section kinds containing va
func classify(b *container.Binary, va uint64) []string {
	var kinds []string
	for _, k := range []section.Kind{section.Exec, section.Data, section.Bss} {
		if b.Sections.ContainsAddress(k, va) {
			kinds = append(kinds, k.String())
		}
	}
	return kinds
}

func logConversion(msg string, v uint64, kinds []string) {
	log.WithFields(log.Fields{
		"hex":      fmt.Sprintf("%#x", v),
		"dec":      fmt.Sprintf("%d", v),
		"sections": kinds,
	}).Info(msg)
}
