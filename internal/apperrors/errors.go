// Package apperrors is the error taxonomy shared by stores, services and handlers.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindAuth
	KindProvider
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindAuth:
		return "auth"
	case KindProvider:
		return "provider"
	case KindStorage:
		return "storage"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	if e.Message == "" {
		return e.Err.Error()
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(format string, args ...interface{}) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Auth(format string, args ...interface{}) error {
	return &Error{Kind: KindAuth, Message: fmt.Sprintf(format, args...)}
}

func Provider(err error, format string, args ...interface{}) error {
	return &Error{Kind: KindProvider, Message: fmt.Sprintf(format, args...), Err: err}
}

func Storage(err error, format string, args ...interface{}) error {
	return &Error{Kind: KindStorage, Message: fmt.Sprintf(format, args...), Err: err}
}

// ErrEmptyCart is returned when a cart has no lines to price or order.
var ErrEmptyCart = &Error{Kind: KindValidation, Message: "cart is empty"}

// StaleReferenceError lists cart lines whose variant or product no longer exists.
type StaleReferenceError struct {
	LineIDs []string
}

func (e *StaleReferenceError) Error() string {
	return "cart references unavailable items: " + strings.Join(e.LineIDs, ", ")
}

// InsufficientStockError aborts an order when a product cannot cover the requested quantity.
type InsufficientStockError struct {
	ProductID string
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s (requested %d)", e.ProductID, e.Requested)
}

// KindOf classifies any error, including the typed errors above.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var stale *StaleReferenceError
	if errors.As(err, &stale) {
		return KindValidation
	}
	var stock *InsufficientStockError
	if errors.As(err, &stock) {
		return KindValidation
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknown
}

func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps an error to the response code the storefront answers with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindAuth:
		return http.StatusUnauthorized
	case KindProvider:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage hides storage and unknown failures from clients.
func PublicMessage(err error) string {
	switch KindOf(err) {
	case KindStorage, KindUnknown:
		return "internal error"
	case KindProvider:
		return "payment provider unavailable, please try again"
	default:
		return err.Error()
	}
}
