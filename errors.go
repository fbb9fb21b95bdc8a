package trinity

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is wrapped by every error caused by a resource that
	// doesn't exist. Missing style and script resources are expected and
	// never surface; a missing markup resource does.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidName is returned when a template name can't be turned
	// into a valid path inside the resource filesystem.
	ErrInvalidName = errors.New("invalid template name")

	// ErrNoFilesystem is returned when templates need to be listed but
	// the Cache has no filesystem to list them from.
	ErrNoFilesystem = errors.New("no template filesystem")
)

// Kind identifies which of a template's three resources is being loaded.
type Kind int

const (
	// KindMarkup is the template's HTML. It is mandatory.
	KindMarkup Kind = iota

	// KindStyle is the template's CSS, appended to the document's style
	// aggregation node. It is optional.
	KindStyle

	// KindScript is the template's enrichment script. It is optional.
	KindScript
)

func (k Kind) String() string {
	switch k {
	case KindMarkup:
		return "markup"
	case KindStyle:
		return "style"
	case KindScript:
		return "script"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ResourceError describes a failure to load, parse, compile, or run one of
// a template's resources.
type ResourceError struct {
	Template string
	Kind     Kind
	Path     string
	Err      error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("error loading %s for template %q from %q: %v", e.Kind, e.Template, e.Path, e.Err)
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}
