// Package process looks up processes and takes memory map snapshots of them
package process

import "errors"

var (
	// ErrNoMatch is returned when a name or pattern matches no running process.
	ErrNoMatch = errors.New("no matching process")
)
