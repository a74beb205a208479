package model

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed or policy-violating input.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func Invalid(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// AccessDenied reports a resolvable entity the caller may not use.
type AccessDenied struct {
	Reason string
}

func (e *AccessDenied) Error() string {
	return e.Reason
}

func Denied(format string, args ...any) error {
	return &AccessDenied{Reason: fmt.Sprintf(format, args...)}
}

// NotFound is also returned for entities owned by somebody else.
type NotFound struct {
	Entity string
	ID     any
}

func (e *NotFound) Error() string {
	return fmt.Sprintf("%s not found (%v)", e.Entity, e.ID)
}

func Missing(entity string, id any) error {
	return &NotFound{Entity: entity, ID: id}
}

// IntegrityError means the dense order of a sibling set was broken. It is
// never a user error.
type IntegrityError struct {
	Table  string
	Parent string
	Orders []int
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("order_num of %s under %s is not dense: %v", e.Table, e.Parent, e.Orders)
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsDenied(err error) bool {
	var v *AccessDenied
	return errors.As(err, &v)
}

func IsNotFound(err error) bool {
	var v *NotFound
	return errors.As(err, &v)
}

func IsIntegrity(err error) bool {
	var v *IntegrityError
	return errors.As(err, &v)
}
