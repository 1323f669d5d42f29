package pkcs11

import (
	"errors"
	"fmt"
)

// Standard sentinel errors for descriptor lookups.
var (
	// ErrNotFound is returned when no descriptor matches a lookup.
	ErrNotFound = errors.New("pkcs11: descriptor not found")

	// ErrUnknownAttribute is returned when a descriptor has no row for an attribute type.
	ErrUnknownAttribute = errors.New("pkcs11: attribute not in descriptor")
)

// NotFoundError represents a (class, key type) pair with no descriptor.
type NotFoundError struct {
	class   uint64
	keyType uint64
}

// Error returns the error string.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("pkcs11: no descriptor for class 0x%08x key type 0x%08x", e.class, e.keyType)
}

// Is reports whether the target error matches NotFoundError.
// This allows errors.Is(notFoundErr, ErrNotFound) to return true.
func (e *NotFoundError) Is(err error) bool {
	return err == ErrNotFound
}

// Class returns the object class that was searched for.
func (e *NotFoundError) Class() uint64 {
	return e.class
}

// KeyType returns the key type that was searched for.
func (e *NotFoundError) KeyType() uint64 {
	return e.keyType
}

// NewNotFoundError returns a new NotFoundError for the given pair.
func NewNotFoundError(class, keyType uint64) *NotFoundError {
	return &NotFoundError{class: class, keyType: keyType}
}

// IsNotFound returns true if the error is a NotFoundError.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *NotFoundError
	return errors.As(err, &e) || errors.Is(err, ErrNotFound)
}

// AttributeError represents a lookup of an attribute type a descriptor does not carry.
type AttributeError struct {
	typ uint64
}

// Error returns the error string.
func (e *AttributeError) Error() string {
	return fmt.Sprintf("pkcs11: attribute 0x%08x not in descriptor", e.typ)
}

// Is reports whether the target error matches AttributeError.
func (e *AttributeError) Is(err error) bool {
	return err == ErrUnknownAttribute
}

// Type returns the attribute type that was searched for.
func (e *AttributeError) Type() uint64 {
	return e.typ
}

// NewAttributeError returns a new AttributeError for the given attribute type.
func NewAttributeError(typ uint64) *AttributeError {
	return &AttributeError{typ: typ}
}

// IsUnknownAttribute returns true if the error is an AttributeError.
func IsUnknownAttribute(err error) bool {
	if err == nil {
		return false
	}
	var e *AttributeError
	return errors.As(err, &e) || errors.Is(err, ErrUnknownAttribute)
}
