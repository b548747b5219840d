// Package discover inspects the target directory before it is linted.
package discover

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// SwiftExt is the extension of files swiftlint lints.
const SwiftExt = ".swift"

var skipDirs = map[string]struct{}{
	".git":         {},
	".hg":          {},
	".svn":         {},
	".build":       {},
	".swiftpm":     {},
	"Pods":         {},
	"Carthage":     {},
	"DerivedData":  {},
	"node_modules": {},
}

// buildDirs are top-level directories holding generated or vendored Swift
// that should never be linted.
var buildDirs = []string{".build", "Pods", "Carthage", "DerivedData"}

// SwiftFiles returns the Swift sources under root, relative to root and
// sorted. A single file root is returned as-is. Files ignored by root's
// .gitignore and files under well-known build directories are skipped.
func SwiftFiles(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		if filepath.Ext(root) == SwiftExt {
			return []string{filepath.Base(root)}, nil
		}
		return nil, nil
	}

	gi := loadGitignore(root)

	var results []string
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip errors
		}

		name := d.Name()
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}

		if d.IsDir() {
			if path == root {
				return nil
			}
			if _, skip := skipDirs[name]; skip {
				return filepath.SkipDir
			}
			if gi != nil && gi.MatchesPath(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		// Skip symlinks
		if d.Type()&os.ModeSymlink != 0 {
			return nil
		}
		if filepath.Ext(name) != SwiftExt {
			return nil
		}
		if gi != nil && gi.MatchesPath(rel) {
			return nil
		}

		results = append(results, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(results)
	return results, nil
}

// Excluded returns absolute paths of top-level directories under root that
// swiftlint should skip: well-known build directories and directories matched
// by root's .gitignore. Hidden directories other than .build are left alone.
func Excluded(root string) ([]string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, nil
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, err
	}

	known := make(map[string]struct{}, len(buildDirs))
	for _, d := range buildDirs {
		known[d] = struct{}{}
	}
	gi := loadGitignore(abs)

	var out []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		name := e.Name()
		_, isBuild := known[name]
		ignored := gi != nil && !strings.HasPrefix(name, ".") && gi.MatchesPath(name+"/")
		if isBuild || ignored {
			out = append(out, filepath.Join(abs, name))
		}
	}
	sort.Strings(out)
	return out, nil
}

func loadGitignore(root string) *ignore.GitIgnore {
	path := filepath.Join(root, ".gitignore")
	gi, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		return nil
	}
	return gi
}
