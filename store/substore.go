package store

import (
	"path"
	"strings"
)

// MemoryPrefix marks paths that live in the in-memory store. Such paths
// never touch the filesystem.
const MemoryPrefix = "::"

// SubStore is the contract shared by the directory and memory backends.
// Paths are store-relative: root-relative for a Directory, prefixed keys
// for Memory.
type SubStore interface {
	List() ([]string, error)
	Read(path string) (string, error)
	Write(path, content string) error
	Remove(path string) error
}

var (
	_ SubStore = (*Directory)(nil)
	_ SubStore = (*Memory)(nil)
)

// IsMemoryPath reports whether p routes to the memory store.
func IsMemoryPath(p string) bool {
	return strings.HasPrefix(p, MemoryPrefix)
}

// CleanMemoryPath cleans the part of p after the prefix, so "::./a//b"
// and "::a/b" name the same entry.
func CleanMemoryPath(p string) string {
	rest := strings.TrimPrefix(p, MemoryPrefix)
	rest = strings.ReplaceAll(rest, `\`, "/")
	if rest == "" {
		return MemoryPrefix
	}
	cleaned := strings.TrimPrefix(path.Clean(rest), "/")
	if cleaned == "." {
		cleaned = ""
	}
	return MemoryPrefix + cleaned
}
