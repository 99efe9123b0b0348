package notebook

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// ErrNoNotebooks is returned when a directory holds no notebooks.
var ErrNoNotebooks = errors.New("no .ipynb notebooks found")

// Discover resolves an input path to notebook paths. A file is returned as
// is; a directory is walked recursively for *.ipynb files, skipping hidden
// directories such as .ipynb_checkpoints. Results are sorted.
func Discover(afs afero.Fs, path string) ([]string, error) {
	info, err := afs.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var out []string
	err = afero.Walk(afs, path, func(p string, fi fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			if p != path && strings.HasPrefix(fi.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.EqualFold(filepath.Ext(p), ".ipynb") {
			out = append(out, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", path, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoNotebooks)
	}
	sort.Strings(out)
	return out, nil
}
