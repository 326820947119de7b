package models

import "errors"

// Store sentinels. Stores wrap these so services can tell a missing row or a
// lost conditional write from an infrastructure failure.
var (
	ErrNotFound            = errors.New("record not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrDuplicate           = errors.New("record already exists")
)
