package common

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Error codes carried by AppError.
const (
	CodeNoFiles             = "NO_FILES"
	CodeUnsupportedFileType = "UNSUPPORTED_FILE_TYPE"
	CodeFileTooLarge        = "FILE_TOO_LARGE"
	CodeOCRTimeout          = "OCR_TIMEOUT"
	CodeOCRFailed           = "OCR_FAILED"
	CodeLLMAuth             = "LLM_AUTH_FAILED"
	CodeLLMValidation       = "LLM_VALIDATION"
	CodeLLMUnavailable      = "LLM_UNAVAILABLE"
	CodeLLMPermission       = "LLM_PERMISSION_DENIED"
	CodeLLMFailed           = "LLM_EXTRACTION_FAILED"
	CodeLLMOutputInvalid    = "LLM_OUTPUT_INVALID"
	CodeLLMOutputTruncated  = "LLM_OUTPUT_TRUNCATED"
	CodeConfig              = "CONFIG_ERROR"
	CodeNotFound            = "NOT_FOUND"
	CodeInvalidInput        = "INVALID_INPUT"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error

	// Status is an HTTP-style hint for callers that front this with HTTP.
	Status    int
	Retryable bool
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches another AppError by code, so errors.Is(err, &AppError{Code: X}) works.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if errors.As(target, &t) {
		return t.Code != "" && t.Code == e.Code
	}
	return false
}

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrTooLarge     = errors.New("payload too large")
	ErrInternal     = errors.New("internal error")
	ErrDatabase     = errors.New("database error")
	ErrOCR          = errors.New("ocr failed")
	ErrLLMTransport = errors.New("llm request failed")
	ErrLLMOutput    = errors.New("llm output unusable")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
		Status:  statusForCode(code),
	}
}

// NewInputError is a client-side rejection raised before any OCR or LLM work.
func NewInputError(code, message string) *AppError {
	cause := ErrInvalidInput
	if code == CodeFileTooLarge {
		cause = ErrTooLarge
	}
	return NewAppError(code, message, cause)
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// CodeOf returns the AppError code anywhere in err's chain, or "".
func CodeOf(err error) string {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

// IsRetryable reports whether err is a transient failure worth retrying.
func IsRetryable(err error) bool {
	var ae *AppError
	return errors.As(err, &ae) && ae.Retryable
}

// HTTPStatus returns the status hint for err, 500 when none is known.
func HTTPStatus(err error) int {
	var ae *AppError
	if errors.As(err, &ae) && ae.Status != 0 {
		return ae.Status
	}
	return http.StatusInternalServerError
}

func statusForCode(code string) int {
	switch code {
	case CodeNoFiles, CodeUnsupportedFileType, CodeInvalidInput:
		return http.StatusBadRequest
	case CodeFileTooLarge:
		return http.StatusRequestEntityTooLarge
	case CodeNotFound:
		return http.StatusNotFound
	case CodeLLMUnavailable:
		return http.StatusServiceUnavailable
	case CodeOCRTimeout:
		return http.StatusGatewayTimeout
	case CodeLLMAuth, CodeLLMPermission, CodeLLMValidation, CodeLLMFailed,
		CodeLLMOutputInvalid, CodeLLMOutputTruncated:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ToGRPCStatus maps an application error to a gRPC status error.
func ToGRPCStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	var c codes.Code
	switch HTTPStatus(err) {
	case http.StatusBadRequest:
		c = codes.InvalidArgument
	case http.StatusRequestEntityTooLarge:
		c = codes.ResourceExhausted
	case http.StatusNotFound:
		c = codes.NotFound
	case http.StatusServiceUnavailable:
		c = codes.Unavailable
	case http.StatusGatewayTimeout:
		c = codes.DeadlineExceeded
	case http.StatusBadGateway:
		c = codes.Aborted
	default:
		c = codes.Internal
	}
	return status.Error(c, err.Error())
}

// gRPC error helpers
func InvalidArgumentError(message string) error {
	return status.Error(codes.InvalidArgument, message)
}

func NotFoundError(message string) error {
	return status.Error(codes.NotFound, message)
}

func InternalError(message string) error {
	return status.Error(codes.Internal, message)
}

func InvalidArgumentErrorf(format string, args ...interface{}) error {
	return InvalidArgumentError(fmt.Sprintf(format, args...))
}

func InternalErrorf(format string, args ...interface{}) error {
	return InternalError(fmt.Sprintf(format, args...))
}
