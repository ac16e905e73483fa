package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/moby/patternmatcher"
)

// WalkError reports an I/O failure enumerating one directory during
// Walk (a failed os.ReadDir, or a failed per-entry stat), per spec.md's
// WalkError{path, cause}. It is its own type, distinct from
// NotADirectoryError, so a caller can tell "the root wasn't a directory
// at all" apart from "reading some directory inside the walk failed".
type WalkError struct {
	Path  string
	Cause error
}

func (e *WalkError) Error() string {
	return fmt.Sprintf("fsutil: walk %q: %v", e.Path, e.Cause)
}

func (e *WalkError) Unwrap() error { return e.Cause }

// NotADirectoryError reports that the walk root exists but isn't a
// directory.
type NotADirectoryError struct {
	Path string
}

func (e *NotADirectoryError) Error() string {
	return fmt.Sprintf("fsutil: root %q is not a directory", e.Path)
}

// WalkOptions configures a context-directory walk.
type WalkOptions struct {
	// FollowPaths restricts the listing to these relative paths and their
	// ancestor directories. A nil/empty slice walks everything.
	FollowPaths []string
	// ExcludePatterns is a .dockerignore-style pattern list (patterns
	// prefixed with "!" re-include). Evaluated with moby/patternmatcher,
	// the same package BuildKit's own dockerignore filter uses.
	ExcludePatterns []string
}

// Walk performs the depth-first, alphabetically sorted traversal DiffCopy's
// STAT phase requires, skipping anything outside FollowPaths' ancestor
// closure and anything matched by ExcludePatterns.
func Walk(root string, opt WalkOptions) ([]Entry, error) {
	root = filepath.Clean(root)

	info, err := os.Lstat(root)
	if err != nil {
		return nil, &WalkError{Path: root, Cause: err}
	}
	if !info.IsDir() {
		return nil, &NotADirectoryError{Path: root}
	}

	var matcher *patternmatcher.PatternMatcher
	if len(opt.ExcludePatterns) > 0 {
		matcher, err = patternmatcher.New(opt.ExcludePatterns)
		if err != nil {
			return nil, fmt.Errorf("fsutil: compile exclude patterns: %w", err)
		}
	}

	include := followPathClosure(opt.FollowPaths)

	var entries []Entry
	err = walkDir(root, "", matcher, include, &entries)
	return entries, err
}

// followPathClosure expands a list of relative paths into the set of
// those paths plus every ancestor directory, so the DFS can decide
// per-directory whether to descend without re-deriving ancestors each
// time. A nil result means "no filtering".
func followPathClosure(paths []string) map[string]struct{} {
	if len(paths) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(paths)*2)
	for _, p := range paths {
		p = filepath.ToSlash(filepath.Clean(p))
		for {
			set[p] = struct{}{}
			idx := strings.LastIndexByte(p, '/')
			if idx < 0 {
				break
			}
			p = p[:idx]
		}
	}
	return set
}

func walkDir(fullDir, relDir string, matcher *patternmatcher.PatternMatcher, include map[string]struct{}, out *[]Entry) error {
	dirEntries, err := os.ReadDir(fullDir)
	if err != nil {
		return &WalkError{Path: fullDir, Cause: err}
	}

	names := make([]string, 0, len(dirEntries))
	byName := make(map[string]os.DirEntry, len(dirEntries))
	for _, de := range dirEntries {
		names = append(names, de.Name())
		byName[de.Name()] = de
	}
	sortNames(names)

	for _, name := range names {
		de := byName[name]
		rel := name
		if relDir != "" {
			rel = relDir + "/" + name
		}
		full := filepath.Join(fullDir, name)

		if include != nil {
			if _, ok := include[rel]; !ok {
				continue
			}
		}

		if matcher != nil {
			skip, err := matcher.MatchesUsingParentResults(rel, patternmatcher.MatchInfo{})
			if err != nil {
				return fmt.Errorf("fsutil: match %q: %w", rel, err)
			}
			if skip {
				continue
			}
		}

		fi, err := de.Info()
		if err != nil {
			return &WalkError{Path: full, Cause: err}
		}

		st, err := statEntry(rel, full, fi)
		if err != nil {
			return &WalkError{Path: full, Cause: err}
		}

		*out = append(*out, Entry{
			Path:     rel,
			FullPath: full,
			IsDir:    fi.IsDir(),
			Stat:     st,
		})

		if fi.IsDir() {
			if err := walkDir(full, rel, matcher, include, out); err != nil {
				return err
			}
		}
	}

	return nil
}
