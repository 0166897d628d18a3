package il2cpp

import (
	"github.com/apex/log"
	"github.com/blacktop/il2dump/pkg/il2cpp/search"
	"github.com/blacktop/il2dump/pkg/il2cpp/types"
	"github.com/pkg/errors"
)

// exported by unstripped builds; Mach-O names lose their leading underscore when loaded
const (
	codeRegistrationSymbol     = "g_CodeRegistration"
	metadataRegistrationSymbol = "g_MetadataRegistration"
)

// Strategy is one way of locating the registration pair
type Strategy struct {
	Name string
	Run  func() error
}

func (f *File) locator() (*search.Locator, error) {
	return search.New(f.attemptSpace(), &f.bin.Sections, search.Counts{
		Methods:         f.conf.ExpectedMethodCount,
		TypeDefinitions: f.conf.ExpectedTypeDefinitionsCount,
		Images:          f.conf.ExpectedImageCount,
		MetadataUsages:  f.conf.MetadataUsagesCount,
	})
}

// PlusSearch runs the count and structure heuristics and disambiguates around their hits
func (f *File) PlusSearch() error {
	l, err := f.locator()
	if err != nil {
		return err
	}
	cr, okc := l.FindCodeRegistration()
	mr, okm := l.FindMetadataRegistration()
	log.WithFields(log.Fields{
		"code":     hex(cr),
		"metadata": hex(mr),
	}).Debug("PlusSearch")
	if !okc || !okm {
		return errors.Wrap(ErrStructureNotFound, "heuristic search")
	}
	return f.AutoInit(cr, mr)
}

// Search runs the linear count scans and initializes at their hits directly
func (f *File) Search() error {
	l, err := f.locator()
	if err != nil {
		return err
	}
	cr, okc := l.FindCodeRegistrationOld()
	var mr uint64
	var okm bool
	if f.conf.Version >= types.V27 {
		mr, okm = l.FindMetadataRegistrationV21()
	} else {
		mr, okm = l.FindMetadataRegistrationOld()
	}
	log.WithFields(log.Fields{
		"code":     hex(cr),
		"metadata": hex(mr),
	}).Debug("Search")
	if !okc || !okm {
		return errors.Wrap(ErrStructureNotFound, "linear search")
	}
	return f.Init(cr, mr)
}

// SymbolSearch initializes from exported registration symbols
func (f *File) SymbolSearch() error {
	cr, okc := f.bin.Symbols[codeRegistrationSymbol]
	mr, okm := f.bin.Symbols[metadataRegistrationSymbol]
	if !okc || !okm {
		return errors.Wrap(ErrStructureNotFound, "registration symbols not exported")
	}
	log.WithFields(log.Fields{
		"code":     hex(cr),
		"metadata": hex(mr),
	}).Debug("SymbolSearch")
	return f.Init(cr, mr)
}

// Strategies lists the automatic strategies in the order Locate tries them
func (f *File) Strategies() []Strategy {
	return []Strategy{
		{Name: "plus search", Run: f.PlusSearch},
		{Name: "search", Run: f.Search},
		{Name: "symbol search", Run: f.SymbolSearch},
	}
}

// Locate tries every automatic strategy until one initializes and returns its name.
// A caller that gets ErrStructureNotFound can still supply addresses to Init by hand.
func (f *File) Locate() (string, error) {
	for _, s := range f.Strategies() {
		log.Infof("Trying %s", s.Name)
		err := s.Run()
		if err == nil {
			return s.Name, nil
		}
		log.WithError(err).Debugf("%s failed", s.Name)
	}
	return "", errors.Wrap(ErrStructureNotFound, "every automatic strategy failed")
}
