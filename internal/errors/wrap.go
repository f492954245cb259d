package errors

import "fmt"

// Wrap annotates err with a message while preserving errors.Is/errors.As
// compatibility with the wrapped sentinel, matching the teacher's
// fmt.Errorf("%w: ...") convention used throughout internal/errors.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Validation wraps ErrValidation with context.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}

// NotFound wraps ErrNotFound with context.
func NotFound(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrNotFound}, args...)...)
}

// Store wraps ErrStore with context.
func Store(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrStore}, args...)...)
}

// HandlerLoad wraps ErrHandlerLoad with context.
func HandlerLoad(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrHandlerLoad}, args...)...)
}

// HandlerReported wraps ErrHandlerReported with context.
func HandlerReported(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrHandlerReported}, args...)...)
}

// Capability wraps ErrCapability with context.
func Capability(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrCapability}, args...)...)
}
