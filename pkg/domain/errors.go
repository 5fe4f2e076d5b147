package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound reports an unknown record id within a register.
type ErrNotFound struct {
	Register RegisterType
	ID       int64
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s record %d not found", e.Register, e.ID)
}

// ErrUnknownRegister reports a register type absent from the registry.
type ErrUnknownRegister struct {
	Register RegisterType
}

func (e ErrUnknownRegister) Error() string {
	return fmt.Sprintf("unknown register type %q", e.Register)
}

// ErrUnknownColumn reports a column name absent from the register schema.
type ErrUnknownColumn struct {
	Register RegisterType
	Column   string
}

func (e ErrUnknownColumn) Error() string {
	return fmt.Sprintf("register %s has no column %q", e.Register, e.Column)
}

// ErrReadOnlyColumn reports an attempted edit of a derived column.
type ErrReadOnlyColumn struct {
	Register RegisterType
	Column   string
}

func (e ErrReadOnlyColumn) Error() string {
	return fmt.Sprintf("register %s column %q is derived and read-only", e.Register, e.Column)
}

// ErrTypeMismatch reports a value whose kind does not match the column.
type ErrTypeMismatch struct {
	Register RegisterType
	Column   string
	Want     Kind
	Got      Kind
}

func (e ErrTypeMismatch) Error() string {
	return fmt.Sprintf("register %s column %q wants %s, got %s", e.Register, e.Column, e.Want, e.Got)
}

// ErrImportAborted marks a whole-source ingestion failure. No partial
// write reaches the store when it is returned.
var ErrImportAborted = errors.New("import aborted")
