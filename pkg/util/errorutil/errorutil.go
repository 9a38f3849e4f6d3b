package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	cr "github.com/cockroachdb/errors"
)

// Kind classifies a DomainError for propagation and rendering.
type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindInternal   Kind = "internal"
)

// Machine-readable error codes returned to clients.
const (
	CodeValidationFailed  = "VALIDATION_FAILED"
	CodeInvalidQuantity   = "INVALID_QUANTITY"
	CodeInvalidPrice      = "INVALID_PRICE"
	CodeInvalidDate       = "INVALID_DATE"
	CodeInvalidDateRange  = "INVALID_DATE_RANGE"
	CodeOwnerNotFound     = "OWNER_NOT_FOUND"
	CodeNoAvailableTicket = "NO_AVAILABLE_TICKET"
	CodeNotFound          = "NOT_FOUND"
	CodeRequestTimeout    = "REQUEST_TIMEOUT"
	CodeInternal          = "INTERNAL_ERROR"
)

// Sentinels for errors.Is checks; matching is by Code.
var (
	ErrInvalidQuantity   = &DomainError{Kind: KindValidation, Code: CodeInvalidQuantity}
	ErrInvalidPrice      = &DomainError{Kind: KindValidation, Code: CodeInvalidPrice}
	ErrInvalidDate       = &DomainError{Kind: KindValidation, Code: CodeInvalidDate}
	ErrInvalidDateRange  = &DomainError{Kind: KindValidation, Code: CodeInvalidDateRange}
	ErrOwnerNotFound     = &DomainError{Kind: KindNotFound, Code: CodeOwnerNotFound}
	ErrNoAvailableTicket = &DomainError{Kind: KindConflict, Code: CodeNoAvailableTicket}
	ErrInternal          = &DomainError{Kind: KindInternal, Code: CodeInternal}
)

// DomainError standardizes application errors.
type DomainError struct {
	Kind       Kind
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a DomainError with the same code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError constructs a DomainError.
func NewDomainError(kind Kind, code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Kind: kind, Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(KindValidation, CodeValidationFailed, message, http.StatusBadRequest, details)
}

// NewInvalidQuantity reports a batch size outside the accepted bounds.
func NewInvalidQuantity(quantity, min, max int) error {
	return NewDomainError(KindValidation, CodeInvalidQuantity,
		fmt.Sprintf("quantity must be between %d and %d", min, max),
		http.StatusBadRequest,
		map[string]any{"quantity": quantity, "min": min, "max": max})
}

func NewInvalidPrice(price, max string) error {
	return NewDomainError(KindValidation, CodeInvalidPrice, fmt.Sprintf("price must be between 0 and %s", max),
		http.StatusBadRequest, map[string]any{"price": price, "max": max})
}

func NewInvalidDate(field, value string) error {
	return NewDomainError(KindValidation, CodeInvalidDate, fmt.Sprintf("invalid %s date", field),
		http.StatusBadRequest, map[string]any{"field": field, "value": value})
}

func NewInvalidDateRange(from, to string) error {
	return NewDomainError(KindValidation, CodeInvalidDateRange, "from date must not be after to date",
		http.StatusBadRequest, map[string]any{"from": from, "to": to})
}

func NewOwnerNotFound(details map[string]any) error {
	return NewDomainError(KindNotFound, CodeOwnerNotFound, "owner not found", http.StatusNotFound, details)
}

// NewNoAvailableTicket is a conflict-kind outcome rendered as 404: the owner
// exists but holds nothing to consume.
func NewNoAvailableTicket(details map[string]any) error {
	return NewDomainError(KindConflict, CodeNoAvailableTicket, "no available ticket for owner", http.StatusNotFound, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Kind:       KindNotFound,
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewRequestTimeout() error {
	return NewDomainError(KindInternal, CodeRequestTimeout, "request timed out", http.StatusServiceUnavailable, nil)
}

// NewInternalError wraps err with a stack trace; the message stays sanitized.
func NewInternalError(err error) error {
	if err != nil {
		err = cr.WithStackDepth(err, 1)
	}
	return &DomainError{
		Kind:       KindInternal,
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return NewInternalError(err).(*DomainError)
}

// Wrap annotates err with msg and a stack trace.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return cr.Wrap(err, msg)
}

// StackLines renders the verbose form of err, capped at maxLines.
func StackLines(err error, maxLines int) []string {
	if err == nil {
		return nil
	}
	lines := strings.Split(fmt.Sprintf("%+v", err), "\n")
	if maxLines > 0 && len(lines) > maxLines {
		lines = lines[:maxLines]
	}
	return lines
}
