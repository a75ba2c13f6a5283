package db

import "errors"

// Sentinel errors for database operations.
var (
	ErrKeyNotFound = errors.New("db: key not found")
	ErrKeyExists   = errors.New("db: key already exists")
)

// Op constants name the backend command for error context.
const (
	OpDel        = "DEL"
	OpHGetAll    = "HGETALL"
	OpHPut       = "HPUT"
	OpHSetNX     = "HSETNX"
	OpHReplace   = "HREPLACE"
	OpExists     = "EXISTS"
	OpScan       = "SCAN"
	OpGet        = "GET"
	OpSet        = "SET"
	OpInsertMany = "insertMany"
	OpPing       = "ping"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
