// Package errors provides small helpers for attaching context to errors.
package errors

import "fmt"

// Wrap annotates err with a context message, preserving the original
// error for errors.Is/As. A nil err returns nil.
func Wrap(err error, context string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", context, err)
}

// Wrapf is Wrap with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
