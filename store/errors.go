package store

import "errors"

// Sentinel errors, one per failure kind. Callers wrap them with
// fmt.Errorf("...: %w", ErrX) and classify with KindOf.
var (
	ErrPath     = errors.New("path error")
	ErrIO       = errors.New("io error")
	ErrNotFound = errors.New("not found")
	ErrInternal = errors.New("internal error")
	ErrPatch    = errors.New("patch error")
)

// Kind classifies an error returned by the engine.
type Kind string

const (
	KindPath     Kind = "path"
	KindIO       Kind = "io"
	KindNotFound Kind = "not_found"
	KindInternal Kind = "internal"
	KindPatch    Kind = "patch"
)

// KindOf reports the kind of err. Errors that carry no sentinel are
// classified as internal.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPatch):
		return KindPatch
	case errors.Is(err, ErrPath):
		return KindPath
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrIO):
		return KindIO
	default:
		return KindInternal
	}
}

// Retryable is true when a follow-up edit proposal could fix err, i.e. the
// change disagreed with the current file contents.
func Retryable(err error) bool {
	return errors.Is(err, ErrPatch)
}
