package store

import (
	"fmt"
	"path/filepath"
	"strings"
)

// AbsPath is a cleaned, absolute filesystem path. The zero value is invalid;
// build one with NewAbsPath.
type AbsPath struct {
	p string
}

// NewAbsPath resolves p against the process working directory and cleans it.
func NewAbsPath(p string) (AbsPath, error) {
	if strings.TrimSpace(p) == "" {
		return AbsPath{}, fmt.Errorf("empty path: %w", ErrPath)
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return AbsPath{}, fmt.Errorf("resolve %q: %w: %w", p, ErrPath, err)
	}
	return AbsPath{p: filepath.Clean(abs)}, nil
}

func (a AbsPath) String() string { return a.p }

// IsZero reports whether a was never initialised.
func (a AbsPath) IsZero() bool { return a.p == "" }

// Join returns the absolute path of the root-relative path rel below a.
func (a AbsPath) Join(rel string) string {
	return filepath.Join(a.p, filepath.FromSlash(rel))
}

// Contains reports whether other is a or lies below it.
func (a AbsPath) Contains(other AbsPath) bool {
	rel, err := filepath.Rel(a.p, other.p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// IsGlob reports whether s contains glob metacharacters.
func IsGlob(s string) bool {
	return strings.ContainsAny(s, "*?[")
}

// globStart reports whether s begins with a wildcard. Such patterns are
// matched against listings later and never resolved against the filesystem.
func globStart(s string) bool {
	return strings.HasPrefix(s, "*")
}

// Normalize resolves input against cwd and returns it relative to root,
// using forward slashes. The root itself is returned as ".".
//
// Both separators are accepted. Any ".." that would climb above the
// filesystem root, or a result outside root, fails with ErrPath.
func Normalize(root, cwd AbsPath, input string) (string, error) {
	if root.IsZero() || cwd.IsZero() {
		return "", fmt.Errorf("normalize %q: uninitialised root or cwd: %w", input, ErrInternal)
	}
	if strings.ContainsRune(input, 0) {
		return "", fmt.Errorf("normalize %q: NUL byte: %w", input, ErrPath)
	}
	if globStart(input) {
		return input, nil
	}

	in := strings.ReplaceAll(input, `\`, "/")
	var stack []string
	if !strings.HasPrefix(in, "/") && !hasVolume(input) {
		stack = splitSlash(filepath.ToSlash(cwd.String()))
	} else if hasVolume(input) {
		in = filepath.ToSlash(input)
	}

	for _, part := range strings.Split(in, "/") {
		switch part {
		case "", ".":
		case "..":
			if len(stack) == 0 {
				return "", fmt.Errorf("normalize %q: climbs above filesystem root: %w", input, ErrPath)
			}
			stack = stack[:len(stack)-1]
		default:
			stack = append(stack, part)
		}
	}

	rootParts := splitSlash(filepath.ToSlash(root.String()))
	if len(stack) < len(rootParts) {
		return "", fmt.Errorf("normalize %q: outside %s: %w", input, root, ErrPath)
	}
	for i, p := range rootParts {
		if stack[i] != p {
			return "", fmt.Errorf("normalize %q: outside %s: %w", input, root, ErrPath)
		}
	}

	rel := stack[len(rootParts):]
	if len(rel) == 0 {
		return ".", nil
	}
	return strings.Join(rel, "/"), nil
}

func splitSlash(p string) []string {
	var parts []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return parts
}

func hasVolume(p string) bool {
	return filepath.VolumeName(p) != ""
}
