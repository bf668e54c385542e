package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ByteMirror/editstore/log"
	"gopkg.in/yaml.v3"
)

// Seed is a document preloaded into the memory store at startup.
type Seed struct {
	Key         string // memory key without the store prefix, e.g. "plan.md"
	Description string
	Body        string
	SourceFile  string
}

type seedFrontmatter struct {
	Key         string `yaml:"key"`
	Description string `yaml:"description"`
}

// LoadSeeds loads seeds from the seeds/ directory of the config dir.
func LoadSeeds() ([]Seed, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return nil, fmt.Errorf("seeds: get config dir: %w", err)
	}
	return LoadSeedsFrom(filepath.Join(dir, "seeds"))
}

// LoadSeedsFrom loads every non-hidden file in dir, sorted by key. YAML
// frontmatter is optional; files with malformed frontmatter are skipped
// with a warning log.
func LoadSeedsFrom(dir string) ([]Seed, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seeds dir: %w", err)
	}

	var seeds []Seed
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		seed, err := parseSeedFile(data, path)
		if err != nil {
			log.WarningLog.Printf("skipping seed %s: %v", path, err)
			continue
		}
		seeds = append(seeds, seed)
	}
	sort.Slice(seeds, func(i, j int) bool { return seeds[i].Key < seeds[j].Key })
	return seeds, nil
}

func parseSeedFile(data []byte, sourcePath string) (Seed, error) {
	const sep = "---"
	s := string(data)
	seed := Seed{Key: filepath.Base(sourcePath), Body: s, SourceFile: sourcePath}

	if !strings.HasPrefix(s, sep+"\n") {
		return seed, nil
	}
	rest := s[len(sep):]
	idx := strings.Index(rest, "\n"+sep)
	if idx < 0 {
		return Seed{}, fmt.Errorf("unclosed frontmatter")
	}
	frontmatterRaw := rest[:idx]
	body := strings.TrimPrefix(rest[idx+len("\n"+sep):], "\n")

	var fm seedFrontmatter
	if err := yaml.NewDecoder(bytes.NewBufferString(frontmatterRaw)).Decode(&fm); err != nil {
		return Seed{}, fmt.Errorf("parse frontmatter: %w", err)
	}
	if fm.Key != "" {
		seed.Key = strings.TrimPrefix(fm.Key, "::")
	}
	seed.Description = fm.Description
	seed.Body = body
	return seed, nil
}
