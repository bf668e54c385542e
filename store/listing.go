package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

const (
	gitDir        = ".git"
	gitignoreFile = ".gitignore"
)

// ListOptions controls directory listing.
type ListOptions struct {
	// Globs are override patterns in gitignore syntax. Plain entries
	// whitelist, "!"-prefixed entries exclude. Overrides win over ignore files.
	Globs []string
	// IncludeHidden lists dot-files and descends into dot-directories.
	// The root's .git directory is never listed.
	IncludeHidden bool
	// GlobalIgnoreFile is an extra ignore file applied below every
	// project-level rule, e.g. ~/.config/git/ignore.
	GlobalIgnoreFile string
}

// List returns every file below root as sorted root-relative slash paths,
// honoring .gitignore files (including those of an enclosing worktree)
// and the override globs in opts.
func List(root AbsPath, opts ListOptions) ([]string, error) {
	info, err := os.Stat(root.String())
	if err != nil {
		return nil, wrapFSError("list", root.String(), err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("list %s: not a directory: %w", root, ErrPath)
	}

	rules, err := loadIgnoreRules(root, opts.GlobalIgnoreFile)
	if err != nil {
		return nil, err
	}
	ov := parseOverrides(opts.Globs)

	var files []string
	walkErr := filepath.WalkDir(root.String(), func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root.String() {
				return err
			}
			return nil // skip unreadable entries
		}
		if p == root.String() {
			return nil
		}
		rel, err := filepath.Rel(root.String(), p)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		parts := strings.Split(rel, "/")
		name := d.Name()

		if d.IsDir() {
			if name == gitDir {
				return filepath.SkipDir
			}
			if !opts.IncludeHidden && isHidden(name) {
				return filepath.SkipDir
			}
			if ov.excludesDir(parts) {
				return filepath.SkipDir
			}
			if !ov.hasPositive && rules.ignored(parts, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if !opts.IncludeHidden && isHidden(name) {
			return nil
		}
		if !isListableFile(p, d) {
			return nil
		}

		switch ov.decide(parts) {
		case overrideInclude:
			files = append(files, rel)
		case overrideExclude:
		default:
			if !rules.ignored(parts, false) {
				files = append(files, rel)
			}
		}
		return nil
	})
	if walkErr != nil {
		return nil, wrapFSError("list", root.String(), walkErr)
	}

	sort.Strings(files)
	return compactSorted(files), nil
}

// FindFiles resolves pattern relative to cwd and returns the files of the
// root listing it matches. cwd must lie inside root.
func FindFiles(root, cwd AbsPath, pattern string, opts ListOptions) ([]string, error) {
	if !root.Contains(cwd) {
		return nil, fmt.Errorf("find: cwd %s outside %s: %w", cwd, root, ErrPath)
	}
	norm, err := Normalize(root, cwd, pattern)
	if err != nil {
		return nil, err
	}
	files, err := List(root, opts)
	if err != nil {
		return nil, err
	}

	match := CompilePattern(norm)
	var out []string
	for _, f := range files {
		if match(f) {
			out = append(out, f)
		}
	}
	return out, nil
}

// CompilePattern returns a predicate over slash-separated relative paths.
// A literal pattern matches the path itself or anything below it. A glob
// starting with a wildcard matches at any depth; other globs are anchored
// at the listing root.
func CompilePattern(pattern string) func(rel string) bool {
	if pattern == "." || pattern == "" {
		return func(string) bool { return true }
	}
	if !IsGlob(pattern) {
		pattern = strings.TrimSuffix(pattern, "/")
		return func(rel string) bool {
			return rel == pattern || strings.HasPrefix(rel, pattern+"/")
		}
	}

	p := pattern
	if !globStart(p) && !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	compiled := gitignore.ParsePattern(p, nil)
	return func(rel string) bool {
		return compiled.Match(strings.Split(rel, "/"), false) == gitignore.Exclude
	}
}

type overrideDecision int

const (
	overrideNone overrideDecision = iota
	overrideInclude
	overrideExclude
)

type overrides struct {
	patterns    []gitignore.Pattern
	hasPositive bool
}

func parseOverrides(globs []string) overrides {
	var ov overrides
	for _, g := range globs {
		g = strings.TrimSpace(g)
		if g == "" || g == "!" {
			continue
		}
		if !strings.HasPrefix(g, "!") {
			ov.hasPositive = true
		}
		ov.patterns = append(ov.patterns, gitignore.ParsePattern(g, nil))
	}
	return ov
}

// decide applies the last matching override. A gitignore "exclude" match is
// a plain glob, i.e. a whitelist hit here.
func (o overrides) decide(parts []string) overrideDecision {
	for i := len(o.patterns) - 1; i >= 0; i-- {
		switch o.patterns[i].Match(parts, false) {
		case gitignore.Exclude:
			return overrideInclude
		case gitignore.Include:
			return overrideExclude
		}
	}
	if o.hasPositive {
		return overrideExclude
	}
	return overrideNone
}

func (o overrides) excludesDir(parts []string) bool {
	for i := len(o.patterns) - 1; i >= 0; i-- {
		switch o.patterns[i].Match(parts, true) {
		case gitignore.Exclude:
			return false
		case gitignore.Include:
			return true
		}
	}
	return false
}

type ignoreRules struct {
	matcher gitignore.Matcher
	// prefix is the listing root's position inside the worktree the
	// patterns were read from.
	prefix []string
}

func (r ignoreRules) ignored(parts []string, isDir bool) bool {
	if r.matcher == nil {
		return false
	}
	full := make([]string, 0, len(r.prefix)+len(parts))
	full = append(full, r.prefix...)
	full = append(full, parts...)
	return r.matcher.Match(full, isDir)
}

// loadIgnoreRules collects patterns in increasing precedence: the global
// ignore file, .gitignore files of enclosing worktree directories, then
// every .gitignore below root.
func loadIgnoreRules(root AbsPath, globalFile string) (ignoreRules, error) {
	base := root.String()
	var prefix []string
	if top, ok := worktreeTop(base); ok {
		if rel, err := filepath.Rel(top, base); err == nil && rel != "." && !strings.HasPrefix(rel, "..") {
			base = top
			prefix = strings.Split(filepath.ToSlash(rel), "/")
		}
	}

	var ps []gitignore.Pattern
	if globalFile != "" {
		global, err := readPatternFile(globalFile, nil)
		if err != nil {
			return ignoreRules{}, err
		}
		ps = append(ps, global...)
	}
	// ReadPatterns picks up base/.git/info/exclude on its own, so it only
	// needs reading here when base was moved up to an enclosing worktree.
	if len(prefix) > 0 {
		exclude, err := readPatternFile(filepath.Join(base, gitDir, "info", "exclude"), nil)
		if err != nil {
			return ignoreRules{}, err
		}
		ps = append(ps, exclude...)
	}
	for i := range prefix {
		domain := prefix[:i]
		file := filepath.Join(base, filepath.FromSlash(strings.Join(domain, "/")), gitignoreFile)
		ancestor, err := readPatternFile(file, domain)
		if err != nil {
			return ignoreRules{}, err
		}
		ps = append(ps, ancestor...)
	}

	local, err := gitignore.ReadPatterns(osfs.New(base), prefix)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return ignoreRules{}, fmt.Errorf("read ignore files under %s: %w: %w", root, ErrIO, err)
	}
	ps = append(ps, local...)

	if len(ps) == 0 {
		return ignoreRules{}, nil
	}
	return ignoreRules{matcher: gitignore.NewMatcher(ps), prefix: prefix}, nil
}

// worktreeTop returns the worktree root of the git repository enclosing dir.
func worktreeTop(dir string) (string, bool) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", false
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", false
	}
	return wt.Filesystem.Root(), true
}

func readPatternFile(path string, domain []string) ([]gitignore.Pattern, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read ignore file %s: %w: %w", path, ErrIO, err)
	}
	var ps []gitignore.Pattern
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ps = append(ps, gitignore.ParsePattern(line, domain))
	}
	return ps, nil
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// isListableFile accepts regular files and symlinks to regular files.
func isListableFile(p string, d fs.DirEntry) bool {
	if d.Type().IsRegular() {
		return true
	}
	if d.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

func compactSorted(in []string) []string {
	if len(in) < 2 {
		return in
	}
	out := in[:1]
	for _, s := range in[1:] {
		if s != out[len(out)-1] {
			out = append(out, s)
		}
	}
	return out
}

func wrapFSError(op, path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s %s: %w: %w", op, path, ErrNotFound, err)
	}
	return fmt.Errorf("%s %s: %w: %w", op, path, ErrIO, err)
}
