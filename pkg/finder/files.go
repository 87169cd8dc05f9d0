package finder

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// DefaultExtensions are the source file extensions analyzed by default
var DefaultExtensions = []string{".py"}

// skipDirs are never descended into: caches, virtualenvs and dependency trees
var skipDirs = []string{
	"__pycache__",
	"node_modules",
	"site-packages",
	"venv",
	"build",
	"dist",
}

// Options controls which files FindSourceFiles returns
type Options struct {
	Extensions  []string // defaults to DefaultExtensions
	Exclude     []string // gitignore-style patterns relative to the root
	NoGitignore bool     // do not honor <root>/.gitignore
}

// FindSourceFiles walks root and returns all matching source files in
// lexical order, skipping hidden directories, caches, virtualenvs and
// anything excluded by .gitignore or the configured patterns.
func FindSourceFiles(root string, opts Options) ([]string, error) {
	extensions := opts.Extensions
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}

	matcher, err := compileMatcher(root, opts)
	if err != nil {
		return nil, err
	}

	var sourceFiles []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if path == root {
				return nil
			}
			name := d.Name()
			if strings.HasPrefix(name, ".") || slices.Contains(skipDirs, name) {
				return filepath.SkipDir
			}
			if matcher != nil && (matcher.MatchesPath(rel) || matcher.MatchesPath(rel+"/")) {
				return filepath.SkipDir
			}
			return nil
		}

		if !slices.Contains(extensions, filepath.Ext(path)) {
			return nil
		}
		if matcher != nil && matcher.MatchesPath(rel) {
			return nil
		}

		sourceFiles = append(sourceFiles, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	return sourceFiles, nil
}

func compileMatcher(root string, opts Options) (*ignore.GitIgnore, error) {
	var lines []string

	if !opts.NoGitignore {
		data, err := os.ReadFile(filepath.Join(root, ".gitignore"))
		switch {
		case err == nil:
			lines = append(lines, strings.Split(string(data), "\n")...)
		case !errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("failed to read .gitignore: %w", err)
		}
	}
	lines = append(lines, opts.Exclude...)

	if len(lines) == 0 {
		return nil, nil
	}
	return ignore.CompileIgnoreLines(lines...), nil
}
