package usecase

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode is the stable machine-readable reason returned to clients.
type ErrorCode string

const (
	CodeValidation          ErrorCode = "VALIDATION_FAILED"
	CodeInvalidCoordinates  ErrorCode = "INVALID_COORDINATES"
	CodeInvalidStatus       ErrorCode = "INVALID_STATUS"
	CodeNoPickupCoordinates ErrorCode = "NO_PICKUP_COORDINATES"

	CodeBookingNotFound  ErrorCode = "BOOKING_NOT_FOUND"
	CodeDriverNotFound   ErrorCode = "DRIVER_NOT_FOUND"
	CodeVehicleNotFound  ErrorCode = "VEHICLE_NOT_FOUND"
	CodeCustomerNotFound ErrorCode = "CUSTOMER_NOT_FOUND"
	CodeNoLocation       ErrorCode = "NO_LOCATION"

	CodeBookingNotAssignable ErrorCode = "BOOKING_NOT_ASSIGNABLE"
	CodeAlreadyAssigned      ErrorCode = "ALREADY_ASSIGNED"
	CodeDriverUnavailable    ErrorCode = "DRIVER_UNAVAILABLE"
	CodeNoVehicle            ErrorCode = "NO_VEHICLE"
	CodeNoDriverAvailable    ErrorCode = "NO_DRIVER_AVAILABLE"
	CodeNotAssigned          ErrorCode = "NOT_ASSIGNED"
	CodeInvalidTransition    ErrorCode = "INVALID_TRANSITION"
	CodeDriverRequired       ErrorCode = "DRIVER_REQUIRED"
	CodeDriverBusy           ErrorCode = "DRIVER_BUSY"
	CodeDriverInactive       ErrorCode = "DRIVER_INACTIVE"
	CodeDriverHasVehicle     ErrorCode = "DRIVER_HAS_VEHICLE"
	CodeVehicleUnavailable   ErrorCode = "VEHICLE_UNAVAILABLE"
	CodeVehicleNotAssigned   ErrorCode = "VEHICLE_NOT_ASSIGNED"
	CodeConflict             ErrorCode = "CONFLICT"

	CodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	CodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	CodeForbidden          ErrorCode = "FORBIDDEN"
	CodeAccountDisabled    ErrorCode = "ACCOUNT_DISABLED"

	CodeConsistencyWarning ErrorCode = "CONSISTENCY_WARNING"
	CodeInternal           ErrorCode = "INTERNAL_ERROR"
)

func (c ErrorCode) HTTPStatus() int {
	switch c {
	case CodeValidation, CodeInvalidCoordinates, CodeInvalidStatus, CodeNoPickupCoordinates:
		return http.StatusBadRequest
	case CodeBookingNotFound, CodeDriverNotFound, CodeVehicleNotFound, CodeCustomerNotFound, CodeNoLocation:
		return http.StatusNotFound
	case CodeBookingNotAssignable, CodeAlreadyAssigned, CodeDriverUnavailable, CodeNoVehicle,
		CodeNoDriverAvailable, CodeNotAssigned, CodeInvalidTransition, CodeDriverRequired,
		CodeDriverBusy, CodeDriverInactive, CodeDriverHasVehicle, CodeVehicleUnavailable,
		CodeVehicleNotAssigned, CodeConflict:
		return http.StatusConflict
	case CodeUnauthorized, CodeInvalidCredentials:
		return http.StatusUnauthorized
	case CodeForbidden, CodeAccountDisabled:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// AppError is returned by every service operation that fails for a reason
// the caller should see.
type AppError struct {
	Code    ErrorCode
	Message string
	Fields  map[string]string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func validationError(fields map[string]string) *AppError {
	return &AppError{Code: CodeValidation, Message: "Validation failed", Fields: fields}
}

// internalError hides err from the client; it is still logged by the handler.
func internalError(op string, err error) *AppError {
	return &AppError{Code: CodeInternal, Message: "Internal server error", Err: fmt.Errorf("%s: %w", op, err)}
}

// CodeOf returns the code carried by err, or CodeInternal.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}
