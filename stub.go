// Package gdbstub implements a remote debugging stub speaking the GDB
// Remote Serial Protocol (RSP). It mediates between a connected GDB
// client and a user-supplied target adapter: it frames and parses
// packets, dispatches the resulting commands to the adapter, and
// serialises the adapter's responses back onto the wire.
//
// The stub does not implement retransmission on NACK; a reliable
// transport is required. Non-stop mode, multiprocess extensions,
// tracepoints, watchpoints, extended-remote, and qSupported feature
// negotiation are not implemented.
package gdbstub

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"

	"go.uber.org/zap"

	"github.com/jonas-schievink/gdbstub/comm"
	"github.com/jonas-schievink/gdbstub/proto"
	"github.com/jonas-schievink/gdbstub/target"
)

// Stub is a GDB target connected via the remote debugging protocol. It
// persists thread-selector state across packets for the life of one
// connection and must not be used concurrently.
type Stub struct {
	comm   comm.Comm
	target target.Adapter
	desc   target.Desc
	log    *zap.Logger

	// buf is the reused inbound packet body buffer. It is cleared at the
	// start of every read and never carries the `$` start marker or `#XX`
	// trailer.
	buf []byte

	// threadContStep and threadOther hold the stub's notion of "currently
	// selected thread" for continue/step and for every other operation,
	// respectively. They are remembered verbatim but never interpreted or
	// forwarded to the adapter.
	threadContStep proto.ThreadID
	threadOther    proto.ThreadID
}

// Option configures a Stub at construction time.
type Option func(*Stub)

// WithLogger attaches a zap logger the stub uses for diagnostics. The
// default is a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Stub) {
		s.log = log
	}
}

// New creates a Stub over c, dispatching to adapter using the register
// layout and endianness desc declares. The initial thread selectors are
// All (continue/step) and Any (everything else), per the protocol's
// default assumptions before GDB sends its first H packet.
func New(c comm.Comm, adapter target.Adapter, desc target.Desc, opts ...Option) *Stub {
	s := &Stub{
		comm:           c,
		target:         adapter,
		desc:           desc,
		log:            zap.NewNop(),
		threadContStep: proto.ThreadID{Kind: proto.ThreadAll},
		threadOther:    proto.ThreadID{Kind: proto.ThreadAny},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Poll reads and replies to incoming commands until the debugger kills
// the connection (a `k` packet) or an unrecoverable protocol or transport
// error occurs. A `k` packet ends Poll successfully; every other failure
// mode — transport loss, checksum mismatch, a malformed packet, a
// debugger NACK, or an unexpected top-level byte — ends it with an error.
//
// ctx is checked between packets, not mid-read: the underlying Comm has
// no cancellation point of its own, so cancellation takes effect once the
// current read returns (or, for cont()/step(), whenever the adapter
// chooses to honour it).
func (s *Stub) Poll(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		b, err := s.comm.Read()
		if err != nil {
			return err
		}

		switch b {
		case '$':
			if err := s.handlePacket(); err != nil {
				if err == errKilled {
					s.log.Info("debugger killed connection")
					return nil
				}
				return err
			}
		case '+':
			// Stray ACK for a previous response; ignore.
		case '-':
			return ErrNack
		default:
			return &UnexpectedByteError{Byte: b, Expected: "start of packet ($) or ACK (+)"}
		}
	}
}

// handlePacket reads one packet body into s.buf, verifies its checksum,
// ACKs it, parses it, and dispatches the resulting command.
func (s *Stub) handlePacket() error {
	if err := s.readPacket(); err != nil {
		return err
	}

	// ACK before dispatching: the packet is well-formed by this point.
	if err := s.comm.Write('+'); err != nil {
		return err
	}

	var dispatchErr error
	cmd, err := proto.Parse(s.buf)
	switch {
	case errors.Is(err, proto.ErrUnsupported):
		dispatchErr = s.replyEmpty()
	case errors.Is(err, proto.ErrMalformed):
		if len(s.buf) > 0 && s.buf[0] == 'H' && (len(s.buf) < 2 || (s.buf[1] != 'c' && s.buf[1] != 'g')) {
			s.log.Warn("malformed H action char", zap.ByteString("packet", s.buf))
		}
		return proto.ErrMalformed
	case err != nil:
		return err
	default:
		s.log.Debug("dispatching command", zap.String("type", commandName(cmd)))
		dispatchErr = s.dispatch(cmd)
	}

	// Flush whatever was written (ACK, and the response unless dispatch
	// stopped short, e.g. on Kill) before waiting on GDB's next packet —
	// the same deadlock the teacher's gdbHandle avoids with an explicit
	// conn.Flush() after each reply.
	if fl, ok := s.comm.(flusher); ok {
		if flushErr := fl.Flush(); flushErr != nil && dispatchErr == nil {
			return flushErr
		}
	}
	return dispatchErr
}

// readPacket fills s.buf with the body of one packet (the `$` has already
// been consumed by Poll) and validates its trailing checksum.
func (s *Stub) readPacket() error {
	s.buf = s.buf[:0]

	var computed byte
	for {
		b, err := s.comm.Read()
		if err != nil {
			return err
		}
		if b == '#' {
			break
		}
		s.buf = append(s.buf, b)
		computed = proto.UpdateChecksum(computed, b)
	}

	var digits [2]byte
	for i := range digits {
		b, err := s.comm.Read()
		if err != nil {
			return err
		}
		digits[i] = b
	}
	received64, err := strconv.ParseUint(string(digits[:]), 16, 8)
	if err != nil {
		return &UnexpectedByteError{Byte: digits[0], Expected: "checksum (hex byte)"}
	}
	received := byte(received64)

	if received != computed {
		s.log.Error("checksum mismatch",
			zap.String("received", fmt.Sprintf("%02x", received)),
			zap.String("computed", fmt.Sprintf("%02x", computed)),
		)
		return &ChecksumError{Received: received, Computed: computed}
	}
	return nil
}

// dispatch processes cmd and writes the corresponding response.
func (s *Stub) dispatch(cmd proto.Command) error {
	switch c := cmd.(type) {
	case proto.GetHaltReason:
		return s.replyString("S00")

	case proto.ReadRegisters:
		regs := s.target.ReadRegisters()
		return s.replyWith(func(w *proto.ResponseWriter) error {
			return regs.Encode(w, s.desc.Endianness())
		})

	case proto.WriteRegisters:
		writer, ok := s.target.(target.RegisterWriter)
		if !ok {
			return s.replyEmpty()
		}
		regs := s.target.ReadRegisters()
		if err := decodeInto(regs, c.Raw, s.desc.Endianness()); err != nil {
			return proto.ErrMalformed
		}
		writer.WriteRegisters(regs)
		return s.replyString("OK")

	case proto.Kill:
		s.target.Kill()
		return errKilled

	case proto.ReadMem:
		return s.dispatchReadMem(c)

	case proto.WriteMem:
		return s.dispatchWriteMem(c)

	case proto.SetThread:
		switch c.Action {
		case proto.ContStep:
			s.threadContStep = c.Thread
		case proto.Other:
			s.threadOther = c.Thread
		}
		return s.replyString("OK")

	case proto.Continue:
		s.target.Continue()
		return s.replyString("S05")

	case proto.Step:
		s.target.Step()
		return s.replyString("S05")

	default:
		// Parse never returns a Command type outside the switch above;
		// reaching this indicates a new variant was added without a
		// matching dispatch case.
		return s.replyEmpty()
	}
}

func (s *Stub) dispatchReadMem(c proto.ReadMem) error {
	return s.replyWith(func(w *proto.ResponseWriter) error {
		for addr := c.Start; addr < c.Start+c.Len; addr++ {
			b, err := s.target.ReadMem(addr)
			if err != nil {
				// Stop and send the truncated response: GDB reads a
				// short reply as "everything above here is unmapped".
				return nil
			}
			if err := w.WriteHex(b); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Stub) dispatchWriteMem(c proto.WriteMem) error {
	failed := false
	for i, b := range c.Bytes {
		addr := c.Start + uint64(i)
		if err := s.target.WriteMem(addr, b); err != nil {
			failed = true
			break
		}
	}
	if failed {
		return s.replyString("E00")
	}
	return s.replyString("OK")
}

// replyEmpty sends the empty-body response ($#00) used for unsupported
// or unrecognised packets.
func (s *Stub) replyEmpty() error {
	return s.replyWith(func(*proto.ResponseWriter) error { return nil })
}

// replyString sends body verbatim as the response.
func (s *Stub) replyString(body string) error {
	return s.replyWith(func(w *proto.ResponseWriter) error {
		return w.WriteString(body)
	})
}

// flusher is implemented by Comm transports that buffer writes (e.g. the
// bufio-backed Comm returned by comm.FromReadWriter). The engine flushes
// after every response so GDB isn't left waiting on buffered bytes while
// the stub waits on GDB's next packet — the same deadlock the teacher's
// gdbHandle avoids with an explicit conn.Flush() after each reply.
type flusher interface {
	Flush() error
}

// replyWith frames a response, letting f write the body, and finishes the
// frame (emitting `#` and the checksum) on every path, including when f
// returns an error.
func (s *Stub) replyWith(f func(*proto.ResponseWriter) error) error {
	w, err := proto.NewResponseWriter(s.comm)
	if err != nil {
		return err
	}
	bodyErr := f(w)
	checksum := w.Checksum()
	finishErr := w.Finish()

	if finishErr != nil {
		if bodyErr != nil {
			return bodyErr
		}
		return finishErr
	}
	if bodyErr == nil {
		s.log.Debug("response framed", zap.String("checksum", checksum))
	}
	return bodyErr
}

// decodeInto decodes raw into regs (in place) using order, returning an
// error if raw isn't exactly regs.Size() bytes.
func decodeInto(regs target.Registers, raw []byte, order binary.ByteOrder) error {
	if len(raw) != regs.Size() {
		return proto.ErrMalformed
	}
	return regs.Decode(&byteReader{raw}, order)
}

// byteReader adapts a []byte to io.Reader without allocating a
// bytes.Reader, since this is on the hot path of every register decode.
// The length check in decodeInto guarantees regs.Decode never reads past
// the end of data in practice.
type byteReader struct{ data []byte }

func (r *byteReader) Read(p []byte) (int, error) {
	n := copy(p, r.data)
	r.data = r.data[n:]
	if n == 0 && len(p) > 0 {
		return 0, io.EOF
	}
	return n, nil
}

func commandName(cmd proto.Command) string {
	switch cmd.(type) {
	case proto.GetHaltReason:
		return "GetHaltReason"
	case proto.ReadRegisters:
		return "ReadRegisters"
	case proto.WriteRegisters:
		return "WriteRegisters"
	case proto.Kill:
		return "Kill"
	case proto.ReadMem:
		return "ReadMem"
	case proto.WriteMem:
		return "WriteMem"
	case proto.SetThread:
		return "SetThread"
	case proto.Continue:
		return "Continue"
	case proto.Step:
		return "Step"
	default:
		return "Unknown"
	}
}
