package profile

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrNotEditable is returned when editing is attempted without an active permission.
	ErrNotEditable = errors.New("profile is not editable")
	// ErrNotEditing is returned when a draft operation runs outside edit mode.
	ErrNotEditing = errors.New("field is not in edit mode")
)

// ValidationError carries a field-level message produced before any network call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Field + ": " + e.Message }

// EditableField is one independently editable profile value. It moves from
// display to edit mode only when gate allows, keeps a local draft, and calls
// save only when the draft differs from the last saved value.
type EditableField[T comparable] struct {
	name     string
	gate     func() bool
	validate func(T) string
	save     func(ctx context.Context, value T) error

	mu      sync.Mutex
	saved   T
	draft   T
	editing bool
	saving  bool
	errMsg  string
}

// NewEditableField creates a field showing initial. validate returns an empty
// string for a valid draft; it may be nil.
func NewEditableField[T comparable](name string, initial T, gate func() bool, validate func(T) string, save func(context.Context, T) error) *EditableField[T] {
	return &EditableField[T]{
		name:     name,
		gate:     gate,
		validate: validate,
		save:     save,
		saved:    initial,
		draft:    initial,
	}
}

// Name returns the backend field name.
func (f *EditableField[T]) Name() string { return f.name }

// Value returns the last saved value.
func (f *EditableField[T]) Value() T {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saved
}

// Draft returns the local draft; equal to Value outside edit mode.
func (f *EditableField[T]) Draft() T {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft
}

// Editing reports whether the field shows an input.
func (f *EditableField[T]) Editing() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.editing
}

// Error returns the inline message of the last failed validation or save.
func (f *EditableField[T]) Error() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errMsg
}

// Editable reports whether StartEdit would succeed.
func (f *EditableField[T]) Editable() bool {
	return f.gate == nil || f.gate()
}

// StartEdit enters edit mode with the draft seeded from the saved value.
func (f *EditableField[T]) StartEdit() error {
	if !f.Editable() {
		return ErrNotEditable
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.editing {
		f.draft = f.saved
		f.editing = true
		f.errMsg = ""
	}
	return nil
}

// SetDraft replaces the draft.
func (f *EditableField[T]) SetDraft(v T) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.editing {
		return ErrNotEditing
	}
	f.draft = v
	return nil
}

// Cancel discards the draft and leaves edit mode.
func (f *EditableField[T]) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saving {
		return
	}
	f.draft = f.saved
	f.editing = false
	f.errMsg = ""
}

// Save persists the draft. An unchanged draft leaves edit mode without a
// network call. On failure the field stays in edit mode with the draft intact.
func (f *EditableField[T]) Save(ctx context.Context) error {
	editable := f.Editable()
	f.mu.Lock()
	if !f.editing {
		f.mu.Unlock()
		return ErrNotEditing
	}
	if f.saving {
		f.mu.Unlock()
		return nil
	}
	draft := f.draft
	if draft == f.saved {
		f.editing = false
		f.errMsg = ""
		f.mu.Unlock()
		return nil
	}
	if !editable {
		f.mu.Unlock()
		return ErrNotEditable
	}
	if f.validate != nil {
		if msg := f.validate(draft); msg != "" {
			f.errMsg = msg
			f.mu.Unlock()
			return &ValidationError{Field: f.name, Message: msg}
		}
	}
	f.saving = true
	f.mu.Unlock()

	err := f.save(ctx, draft)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.saving = false
	if err != nil {
		f.errMsg = SaveFailedMessage
		return err
	}
	f.saved = draft
	f.draft = draft
	f.editing = false
	f.errMsg = ""
	return nil
}

// Reset replaces the saved value after a refetch. A field in edit mode keeps its draft.
func (f *EditableField[T]) Reset(v T) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = v
	if !f.editing {
		f.draft = v
	}
}
