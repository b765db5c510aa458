package location

import (
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// Loader maps locations onto directories. Classpath locations, and locations
// without a prefix, are relative to the resource root. File locations are
// used as-is.
type Loader struct {
	fs           afero.Fs
	resourceRoot string
}

func NewLoader(fs afero.Fs, resourceRoot string) *Loader {
	return &Loader{
		fs:           fs,
		resourceRoot: resourceRoot,
	}
}

func (l *Loader) Fs() afero.Fs {
	return l.fs
}

func (l *Loader) Resolve(location string) string {
	location = Normalize(location)
	if path, ok := strings.CutPrefix(location, PrefixFile); ok {
		return filepath.Clean(path)
	}
	path := strings.TrimPrefix(location, PrefixClasspath)
	return filepath.Join(l.resourceRoot, strings.TrimPrefix(path, "/"))
}

// Exists is a Predicate.
func (l *Loader) Exists(location string) bool {
	_, err := l.fs.Stat(l.Resolve(location))
	return err == nil
}
