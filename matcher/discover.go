package matcher

import (
	"os"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
)

// Discover resolves the report globs below dir. Results are unique and
// sorted so a run processes files in a stable order.
func Discover(dir string, globs []string) ([]string, error) {
	if dir == "" {
		dir = "."
	}
	var files []string
	for _, pattern := range globs {
		matches, err := doublestar.Glob(os.DirFS(dir), pattern)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			files = append(files, filepath.Join(dir, m))
		}
	}
	slices.Sort(files)
	return slices.Compact(files), nil
}
