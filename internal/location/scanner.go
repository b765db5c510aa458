package location

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"

	"github.com/spf13/afero"
)

// Pattern describes migration file names of the form
// <prefix><version><separator><description><suffix>.
type Pattern struct {
	Prefix    string
	Separator string
	Suffixes  []string
}

// Parse splits a file name into its version and description. Underscores in
// the description are replaced with spaces.
func (p Pattern) Parse(name string) (version, description string, ok bool) {
	rest, ok := strings.CutPrefix(name, p.Prefix)
	if !ok || p.Prefix == "" || p.Separator == "" {
		return "", "", false
	}
	suffix := p.suffix(rest)
	if suffix == "" {
		return "", "", false
	}
	rest = strings.TrimSuffix(rest, suffix)
	version, description, ok = strings.Cut(rest, p.Separator)
	if !ok {
		return "", "", false
	}
	return version, strings.ReplaceAll(description, "_", " "), true
}

func (p Pattern) Matches(name string) bool {
	_, _, ok := p.Parse(name)
	return ok
}

// suffix returns the longest configured suffix of name.
func (p Pattern) suffix(name string) string {
	var match string
	for _, s := range p.Suffixes {
		if len(s) > len(match) && len(name) > len(s) && strings.HasSuffix(name, s) {
			match = s
		}
	}
	return match
}

type Resource struct {
	Location    string
	Path        string
	Name        string
	Version     string
	Description string
	Size        int64
}

type Scanner struct {
	loader *Loader
}

func NewScanner(loader *Loader) *Scanner {
	return &Scanner{loader: loader}
}

// Scan recursively collects the files under the given locations that match the
// pattern. Locations that don't exist are skipped. Results are in location
// order, then in lexical path order.
func (s *Scanner) Scan(locations []string, pattern Pattern) ([]Resource, error) {
	var resources []Resource
	for _, loc := range locations {
		root := s.loader.Resolve(loc)
		if _, err := s.loader.fs.Stat(root); errors.Is(err, os.ErrNotExist) {
			continue
		}
		err := afero.Walk(s.loader.fs, root, func(path string, info fs.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				return nil
			}
			version, description, ok := pattern.Parse(info.Name())
			if !ok {
				return nil
			}
			if slices.ContainsFunc(resources, func(r Resource) bool { return r.Path == path }) {
				return nil
			}
			resources = append(resources, Resource{
				Location:    loc,
				Path:        path,
				Name:        info.Name(),
				Version:     version,
				Description: description,
				Size:        info.Size(),
			})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan location %q: %w", loc, err)
		}
	}
	return resources, nil
}
