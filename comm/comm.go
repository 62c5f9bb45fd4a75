// Package comm defines the bidirectional bytewise transport the stub
// engine speaks over, plus a checksum-observing decorator used while
// framing responses.
package comm

import (
	"bufio"
	"fmt"
	"io"
)

// Comm is a bidirectional bytewise transport between the stub and a
// connected debugger. It is comparable to io.Reader+io.Writer, but
// single-byte oriented, since RSP framing is parsed one byte at a time.
type Comm interface {
	// Read blocks until one byte is available, or returns an error if the
	// transport is lost.
	Read() (byte, error)

	// Write enqueues one byte for transmission.
	Write(b byte) error

	// WriteAll writes every byte of data, in order.
	WriteAll(data []byte) error

	// WriteHex writes exactly two lowercase hex digits for b.
	WriteHex(b byte) error

	// WriteAllHex writes every byte of data as two lowercase hex digits,
	// in array order, with no separator.
	WriteAllHex(data []byte) error
}

// readWriterComm adapts any io.Reader+io.Writer (e.g. a net.Conn) to Comm.
type readWriterComm struct {
	r *bufio.Reader
	w *bufio.Writer
}

// FromReadWriter builds a Comm backed by rw, buffering both directions.
// Callers must call Flush after each response if timely delivery matters;
// the stub engine does this itself after every dispatched command.
func FromReadWriter(rw io.ReadWriter) *readWriterComm {
	return &readWriterComm{
		r: bufio.NewReader(rw),
		w: bufio.NewWriter(rw),
	}
}

func (c *readWriterComm) Read() (byte, error) {
	return c.r.ReadByte()
}

func (c *readWriterComm) Write(b byte) error {
	return c.w.WriteByte(b)
}

func (c *readWriterComm) WriteAll(data []byte) error {
	_, err := c.w.Write(data)
	return err
}

func (c *readWriterComm) WriteHex(b byte) error {
	return writeHex(c, b)
}

func (c *readWriterComm) WriteAllHex(data []byte) error {
	return writeAllHex(c, data)
}

// Flush pushes any buffered output to the underlying writer.
func (c *readWriterComm) Flush() error {
	return c.w.Flush()
}

// writeHex is the shared WriteHex implementation for any Comm whose Write
// is already defined; Comm implementations embed this via the helpers
// below rather than each re-deriving the two hex digits by hand.
func writeHex(c Comm, b byte) error {
	const digits = "0123456789abcdef"
	if err := c.Write(digits[b>>4]); err != nil {
		return err
	}
	return c.Write(digits[b&0xf])
}

func writeAllHex(c Comm, data []byte) error {
	for _, b := range data {
		if err := c.WriteHex(b); err != nil {
			return err
		}
	}
	return nil
}

// ChecksumComm decorates an inner Comm, forwarding every write while
// accumulating an 8-bit wrapping sum of all bytes written through it. It
// is created with a zero accumulator and used for the lifetime of one
// response body.
type ChecksumComm struct {
	inner    Comm
	checksum byte
}

// NewChecksumComm wraps inner with a fresh, zeroed checksum accumulator.
func NewChecksumComm(inner Comm) *ChecksumComm {
	return &ChecksumComm{inner: inner}
}

func (c *ChecksumComm) Read() (byte, error) {
	return c.inner.Read()
}

func (c *ChecksumComm) Write(b byte) error {
	c.checksum += b
	return c.inner.Write(b)
}

func (c *ChecksumComm) WriteAll(data []byte) error {
	for _, b := range data {
		if err := c.Write(b); err != nil {
			return err
		}
	}
	return nil
}

func (c *ChecksumComm) WriteHex(b byte) error {
	return writeHex(c, b)
}

func (c *ChecksumComm) WriteAllHex(data []byte) error {
	return writeAllHex(c, data)
}

// Checksum returns the accumulated sum mod 256.
func (c *ChecksumComm) Checksum() byte {
	return c.checksum
}

// String renders the checksum as the two lowercase hex digits the wire
// format expects, for logging.
func (c *ChecksumComm) String() string {
	return fmt.Sprintf("%02x", c.checksum)
}
