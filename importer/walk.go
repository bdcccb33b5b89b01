package importer

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/viant/crystalize/progress"
)

// expand replaces each directory in paths with the supported files below it,
// in lexical order. Other paths are kept as given.
func expand(paths []string, rep *progress.Reporter) []string {
	var out []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil || !info.IsDir() {
			out = append(out, path)
			continue
		}
		found := 0
		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				rep.Warn(fmt.Sprintf("Error reading %s: %v", p, err), "path", p, "error", err)
				if d != nil && d.IsDir() && p != path {
					return fs.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}
			if _, err := detectFormat(p); err == nil {
				out = append(out, p)
				found++
			}
			return nil
		})
		if err != nil {
			rep.Warn(fmt.Sprintf("Error reading %s: %v", path, err), "path", path, "error", err)
		}
		if found == 0 {
			rep.Status("No suitable log files found in %s", path)
		}
	}
	return out
}
