package helper

import "fmt"

// NewError wraps err with the failed operation for consistent error messages
func NewError(operation string, err error) error {
	return fmt.Errorf("failed to %s: %w", operation, err)
}
