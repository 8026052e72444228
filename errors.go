package main

import "fmt"

// MachineError reports a failure while building or driving the machine:
// loading the ROM, assembling a program, opening a spool file.
type MachineError struct {
	Operation string // What operation was being attempted
	Details   string // Additional error context
	Err       error  // Underlying error if any
}

func (e *MachineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("machine %s failed: %s: %v", e.Operation, e.Details, e.Err)
	}
	return fmt.Sprintf("machine %s failed: %s", e.Operation, e.Details)
}

func (e *MachineError) Unwrap() error { return e.Err }

// TapeError reports a failure to attach or use a tape image.
type TapeError struct {
	Operation string
	Details   string
	Err       error
}

func (e *TapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tape %s failed: %s: %v", e.Operation, e.Details, e.Err)
	}
	return fmt.Sprintf("tape %s failed: %s", e.Operation, e.Details)
}

func (e *TapeError) Unwrap() error { return e.Err }
