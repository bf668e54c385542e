package change

import "errors"

// Patch is an ordered batch of changes applied and snapshotted together.
type Patch []Change

// NewPatch returns a Patch holding changes in order.
func NewPatch(changes ...Change) Patch {
	return append(Patch(nil), changes...)
}

func (p Patch) Write(path, content string) Patch {
	return append(p, Write(path, content))
}

func (p Patch) Replace(path, old, new string) Patch {
	return append(p, Replace(path, old, new))
}

func (p Patch) ReplaceFuzzy(path, old, new string) Patch {
	return append(p, ReplaceFuzzy(path, old, new))
}

func (p Patch) Insert(path string, line int, new string) Patch {
	return append(p, Insert(path, line, new))
}

func (p Patch) View(path string) Patch {
	return append(p, View(path))
}

func (p Patch) ViewRange(path string, start, end int) Patch {
	return append(p, ViewRange(path, start, end))
}

func (p Patch) Undo(path string) Patch {
	return append(p, Undo(path))
}

// AffectedFiles returns every path the patch names, de-duplicated, in
// first-seen order.
func (p Patch) AffectedFiles() []string {
	seen := make(map[string]struct{}, len(p))
	var out []string
	for _, c := range p {
		if _, ok := seen[c.Path]; ok {
			continue
		}
		seen[c.Path] = struct{}{}
		out = append(out, c.Path)
	}
	return out
}

// HasViews reports whether any change is a View or ViewRange.
func (p Patch) HasViews() bool {
	for _, c := range p {
		if c.IsView() {
			return true
		}
	}
	return false
}

// Validate joins the validation errors of every change.
func (p Patch) Validate() error {
	var errs []error
	for _, c := range p {
		if err := c.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ApplyTo applies every change targeting path to content in order and
// stops at the first failure.
func (p Patch) ApplyTo(path, content string) (string, error) {
	for _, c := range p {
		if c.Path != path {
			continue
		}
		var err error
		if content, err = c.Apply(content); err != nil {
			return "", err
		}
	}
	return content, nil
}
