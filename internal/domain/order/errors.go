package order

import "fmt"

// InvalidTransitionError rejects a status edge that is not in the
// transition graph, including self-transitions
type InvalidTransitionError struct {
	From Status
	To   Status
}

// Error implements the error interface
func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("order transition %s -> %s is not allowed", e.From, e.To)
}

// GuardFailedError rejects a structurally allowed transition whose
// business precondition was not met. Err carries the underlying cause,
// such as an insufficient stock rejection from the reservation engine.
type GuardFailedError struct {
	From  Status
	To    Status
	Guard string
	Err   error
}

// Error implements the error interface
func (e *GuardFailedError) Error() string {
	return fmt.Sprintf("guard %q blocked order transition %s -> %s: %v", e.Guard, e.From, e.To, e.Err)
}

// Unwrap returns the underlying guard failure
func (e *GuardFailedError) Unwrap() error {
	return e.Err
}
