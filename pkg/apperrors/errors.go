package apperrors

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrConflict             = errors.New("conflict")
	ErrInvalidInput         = errors.New("invalid input")
	ErrConnectionRequired   = errors.New("connection id is required")
	ErrConnectionInactive   = errors.New("connection is not active")
	ErrConnectionInUse      = errors.New("connection is referenced by existing threads")
	ErrWorkflowNotReady     = errors.New("workflow engine is not ready")
	ErrUnsupportedProvider  = errors.New("unsupported llm provider")
	ErrUnsupportedDatabase  = errors.New("unsupported database type")
	ErrExportNothingToWrite = errors.New("interaction has no result rows to export")
)
