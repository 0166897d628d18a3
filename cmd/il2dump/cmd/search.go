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
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/apex/log"
	"github.com/blacktop/il2dump/internal/colors"
	"github.com/blacktop/il2dump/internal/config"
	"github.com/blacktop/il2dump/internal/hint"
	"github.com/blacktop/il2dump/internal/magic"
	"github.com/blacktop/il2dump/internal/metadata"
	"github.com/blacktop/il2dump/internal/utils"
	"github.com/blacktop/il2dump/pkg/il2cpp"
	"github.com/briandowns/spinner"
	"github.com/caarlos0/ctrlc"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().String("il2cpp-version", "", "Force the il2cpp schema version (e.g. 24.2)")
	searchCmd.Flags().Int("images", 0, "Expected image count (overrides metadata)")
	searchCmd.Flags().Int("type-definitions", 0, "Expected type definition count")
	searchCmd.Flags().Int("methods", 0, "Expected count of methods with a method index")
	searchCmd.Flags().Int64("metadata-usages", 0, "Metadata usages count (< 27)")
	searchCmd.Flags().String("hint", "", "Hint JSON (default is <metadata>.hint.json)")
	searchCmd.Flags().String("code-registration", "", "CodeRegistration address (skips the search)")
	searchCmd.Flags().String("metadata-registration", "", "MetadataRegistration address (skips the search)")
	searchCmd.Flags().Bool("no-prompt", false, "Never ask for addresses when the search fails")
	searchCmd.Flags().StringP("output", "o", "", "Output format (json, yaml)")
	viper.BindPFlag("version", searchCmd.Flags().Lookup("il2cpp-version"))
	viper.BindPFlag("counts.images", searchCmd.Flags().Lookup("images"))
	viper.BindPFlag("counts.type-definitions", searchCmd.Flags().Lookup("type-definitions"))
	viper.BindPFlag("counts.methods", searchCmd.Flags().Lookup("methods"))
	viper.BindPFlag("counts.metadata-usages", searchCmd.Flags().Lookup("metadata-usages"))
	viper.BindPFlag("hint", searchCmd.Flags().Lookup("hint"))
	viper.BindPFlag("search.code-registration", searchCmd.Flags().Lookup("code-registration"))
	viper.BindPFlag("search.metadata-registration", searchCmd.Flags().Lookup("metadata-registration"))
	viper.BindPFlag("search.no-prompt", searchCmd.Flags().Lookup("no-prompt"))
	viper.BindPFlag("search.output", searchCmd.Flags().Lookup("output"))
	searchCmd.MarkZshCompPositionalArgumentFile(1)
}

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search <binary> [global-metadata.dat] [hint.json]",
	Short: "Find CodeRegistration and MetadataRegistration",
	Example: heredoc.Doc(`
		# Search a libil2cpp.so using its metadata for the version and counts
		❯ il2dump search libil2cpp.so global-metadata.dat
		# Force a schema version and give the expected method count
		❯ il2dump search GameAssembly.dll --il2cpp-version 24.2 --methods 81234
		# Use the addresses a runtime dumper wrote next to the metadata
		❯ il2dump search GameAssembly.dll global-metadata.dat GameAssembly.hint.json
		# Search a memory dump and print the result as JSON
		❯ il2dump search --dump-base 0x7ff600000000 dump.bin global-metadata.dat -o json`),
	Args:          cobra.RangeArgs(1, 3),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := config.LoadConfig()
		if err != nil {
			return err
		}
		// flags
		output := viper.GetString("search.output")
		noPrompt := viper.GetBool("search.no-prompt")
		if output != "" && output != "json" && output != "yaml" {
			return fmt.Errorf("invalid --output %q (use json or yaml)", output)
		}

		binPath := filepath.Clean(args[0])
		if k, err := magic.DetectFile(binPath); err != nil {
			return err
		} else if k == magic.Metadata {
			return fmt.Errorf("%s is il2cpp metadata: pass the binary first", binPath)
		}
		metaPath, hintPath, err := classifyArgs(args[1:])
		if err != nil {
			return err
		}
		if hintPath == "" {
			hintPath = conf.Hint
		}

		var header *metadata.Header
		if metaPath != "" {
			if header, err = metadata.Open(metaPath); err != nil {
				return errors.Wrapf(err, "failed to read metadata %s", metaPath)
			}
			log.WithFields(log.Fields{
				"version":          header.Version,
				"images":           header.ImageCount(),
				"type-definitions": header.TypeDefinitionsCount,
				"methods":          header.MethodCount,
				"metadata-usages":  header.MetadataUsagesCount,
			}).Info("Metadata")
		}

		ic, err := conf.Il2Cpp(header)
		if err != nil {
			return err
		}
		f, err := openBinary(binPath, conf, ic)
		if err != nil {
			return err
		}
		log.WithFields(log.Fields{
			"format":  f.Binary().Kind,
			"arch":    f.Binary().Arch,
			"version": ic.Version,
		}).Info("Il2Cpp")

		strategy, err := locate(f, metaPath, hintPath, noPrompt)
		if err != nil {
			return err
		}

		rep := newReport(binPath, ic, strategy, f)
		switch output {
		case "json":
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(rep)
		case "yaml":
			enc := yaml.NewEncoder(os.Stdout)
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(rep)
		}
		rep.print(os.Stdout)
		return nil
	},
}

// classifyArgs sorts the optional arguments into a metadata file and a hint
func classifyArgs(args []string) (metaPath, hintPath string, err error) {
	for _, arg := range args {
		if strings.EqualFold(filepath.Ext(arg), ".json") {
			hintPath = arg
			continue
		}
		data, err := os.ReadFile(arg)
		if err != nil {
			return "", "", err
		}
		if _, perr := metadata.Probe(data); perr == nil {
			metaPath = arg
			continue
		}
		return "", "", fmt.Errorf("%s is neither a metadata file nor a hint", arg)
	}
	return metaPath, hintPath, nil
}

// locate runs the hint, every automatic strategy and finally the manual prompt.
// It returns the name of the strategy that initialized the file.
func locate(f *il2cpp.File, metaPath, hintPath string, noPrompt bool) (string, error) {
	code := viper.GetString("search.code-registration")
	meta := viper.GetString("search.metadata-registration")
	if code != "" || meta != "" {
		cr, err := utils.ConvertStrToInt(code)
		if err != nil {
			return "", fmt.Errorf("invalid --code-registration: %v", err)
		}
		mr, err := utils.ConvertStrToInt(meta)
		if err != nil {
			return "", fmt.Errorf("invalid --metadata-registration: %v", err)
		}
		return "manual", f.Init(cr, mr)
	}

	if ok := tryHint(f, metaPath, hintPath); ok {
		return "hint", nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var found string
	if err := ctrlc.Default.Run(ctx, func() error {
		if interactive() && !viper.GetBool("verbose") {
			s := spinner.New(spinner.CharSets[38], 100*time.Millisecond)
			s.Prefix = colors.Faint().Sprint("   • Searching... ")
			s.Writer = os.Stderr
			s.Start()
			defer s.Stop()
		}
		var err error
		found, err = f.Locate()
		return err
	}); err != nil {
		if errors.As(err, &ctrlc.ErrorCtrlC{}) {
			return "", errors.New("search interrupted")
		}
		if !errors.Is(err, il2cpp.ErrStructureNotFound) {
			return "", err
		}
	}
	if found != "" {
		return found, nil
	}

	log.Error("Can't use auto mode to process file, try manual mode")
	if noPrompt || !interactive() {
		return "", il2cpp.ErrStructureNotFound
	}
	cr, ok, err := askAddress("Input CodeRegistration:")
	if err != nil || !ok {
		return "", errors.Wrap(il2cpp.ErrStructureNotFound, "no manual input provided")
	}
	mr, ok, err := askAddress("Input MetadataRegistration:")
	if err != nil || !ok {
		return "", errors.Wrap(il2cpp.ErrStructureNotFound, "no manual input provided")
	}
	return "manual", f.Init(cr, mr)
}

// tryHint hands every hinted address pair to AutoInit
func tryHint(f *il2cpp.File, metaPath, hintPath string) bool {
	explicit := hintPath != ""
	if !explicit {
		if metaPath == "" {
			return false
		}
		hintPath = hint.DefaultPath(metaPath)
	}
	h, err := hint.Load(hintPath)
	if err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			log.WithError(err).Warn("Hint not used")
		}
		return false
	}
	log.Infof("Hint found: %s", hintPath)

	pairs, err := h.Candidates(f.Binary().ImageBase)
	for _, p := range pairs {
		log.WithFields(log.Fields{
			"mode":     p.Mode,
			"code":     fmt.Sprintf("%#x", p.CodeRegistration),
			"metadata": fmt.Sprintf("%#x", p.MetadataRegistration),
		}).Info("Hint")
		if err := f.AutoInit(p.CodeRegistration, p.MetadataRegistration); err != nil {
			utils.Indent(log.WithError(err).Warn, 2)(fmt.Sprintf("Hint %s mode failed", p.Mode))
			continue
		}
		return true
	}
	if err != nil {
		log.WithError(err).Warn("Hint not used")
	}
	return false
}
