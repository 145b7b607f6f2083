package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents different types of errors in the system
type ErrorType string

const (
	// ErrorTypeNotFound indicates a resource was not found
	ErrorTypeNotFound ErrorType = "NOT_FOUND"

	// ErrorTypeValidation indicates a malformed request that must be
	// rejected before it reaches storage
	ErrorTypeValidation ErrorType = "VALIDATION"

	// ErrorTypeDataQuality indicates a skippable input row (price out of
	// range, missing geocode); recorded in run statistics, never fatal
	ErrorTypeDataQuality ErrorType = "DATA_QUALITY"

	// ErrorTypeConflict indicates a conflict with in-flight work, such as
	// an overlapping pipeline run for the same source and metric
	ErrorTypeConflict ErrorType = "CONFLICT"

	// ErrorTypePersistence indicates a storage failure
	ErrorTypePersistence ErrorType = "PERSISTENCE"

	// ErrorTypeGeometry indicates a boundary generation failure for a
	// single cell
	ErrorTypeGeometry ErrorType = "GEOMETRY"

	// ErrorTypeInternal indicates an internal error
	ErrorTypeInternal ErrorType = "INTERNAL"
)

// AppError represents an application error
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements the unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// IsType reports whether err is an AppError of the given type
func IsType(err error, t ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == t
	}
	return false
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: message,
	}
}

// NewDataQualityError creates a new data quality error
func NewDataQualityError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeDataQuality,
		Message: message,
	}
}

// NewConflictError creates a new conflict error
func NewConflictError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeConflict,
		Message: message,
	}
}

// NewPersistenceError creates a new persistence error
func NewPersistenceError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypePersistence,
		Message: message,
		Err:     err,
	}
}

// NewGeometryError creates a new geometry error
func NewGeometryError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeGeometry,
		Message: message,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Err:     err,
	}
}
