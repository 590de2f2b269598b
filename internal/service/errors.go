package service

import (
	"errors"
	"fmt"
)

// ErrInvalid marks input the caller must fix before retrying.
var ErrInvalid = errors.New("invalid input")

var (
	ErrInvalidWidgetType = fmt.Errorf("%w: unknown widget type", ErrInvalid)
	ErrUnknownTemplate   = fmt.Errorf("%w: unknown template", ErrInvalid)
	ErrHomepageRemoval   = fmt.Errorf("%w: the homepage cannot be removed", ErrInvalid)
	ErrDuplicateSlug     = fmt.Errorf("%w: slug already in use", ErrInvalid)
	ErrForeignPage       = fmt.Errorf("%w: page belongs to another configuration", ErrInvalid)

	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
	ErrBusy          = errors.New("already running")
)
