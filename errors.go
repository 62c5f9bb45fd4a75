package gdbstub

import (
	"errors"
	"fmt"
)

// ErrNack is returned by Poll when the debugger sends a NACK (`-`)
// requesting retransmission of the previous response. Retransmission is
// not implemented; a reliable transport is required instead.
var ErrNack = errors.New("gdbstub: debugger sent NACK, retransmission not supported")

// errKilled is an internal sentinel: it unwinds Poll's dispatch loop when
// a Kill command has been handled. Poll converts it to a nil (successful)
// return; it is never observed outside this package.
var errKilled = errors.New("gdbstub: target killed")

// ChecksumError is returned by Poll when an inbound packet's trailing
// checksum doesn't match the computed sum of its body.
type ChecksumError struct {
	Received byte
	Computed byte
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("gdbstub: checksum mismatch: received %02x, computed %02x", e.Received, e.Computed)
}

// UnexpectedByteError is returned by Poll when a byte read at the top of
// the loop is none of `$`, `+`, or `-`, or when the two checksum digits
// after a packet's `#` are not a hex byte.
type UnexpectedByteError struct {
	Byte     byte
	Expected string
}

func (e *UnexpectedByteError) Error() string {
	return fmt.Sprintf("gdbstub: unexpected byte %q, expected %s", e.Byte, e.Expected)
}
