package filesystem

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// TreeNode is an entry in a directory tree that can be written to a
// filesystem. It's used to lay out migration resources.
type TreeNode interface {
	Create(fs afero.Fs, parent string) error
}

type Directory struct {
	Path     string
	Mode     os.FileMode
	Children []TreeNode
}

func (d *Directory) Create(fs afero.Fs, parent string) error {
	mode := d.Mode
	if mode == 0 {
		mode = 0o755
	}
	path := filepath.Join(parent, d.Path)
	if err := fs.MkdirAll(path, mode); err != nil {
		return fmt.Errorf("failed to create directory %q: %w", path, err)
	}
	for _, c := range d.Children {
		if err := c.Create(fs, path); err != nil {
			return err
		}
	}
	return nil
}

type File struct {
	Path     string
	Mode     os.FileMode
	Contents string
}

func (f *File) Create(fs afero.Fs, parent string) error {
	mode := f.Mode
	if mode == 0 {
		mode = 0o644
	}
	path := filepath.Join(parent, f.Path)
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %q: %w", path, err)
	}
	if err := afero.WriteFile(fs, path, []byte(f.Contents), mode); err != nil {
		return fmt.Errorf("failed to write file %q: %w", path, err)
	}
	return nil
}

// Files is a shorthand for a directory of plain files keyed by their relative
// paths.
func Files(path string, files map[string]string) *Directory {
	dir := &Directory{Path: path}
	for name, contents := range files {
		dir.Children = append(dir.Children, &File{Path: name, Contents: contents})
	}
	return dir
}
