package proto

import (
	"runtime"

	"github.com/jonas-schievink/gdbstub/comm"
)

// ResponseWriter frames one outbound RSP response: `$` <body> `#` <two hex
// checksum digits>. It is a scoped resource: Finish must be called exactly
// once on every path, success or failure. Writing through an unfinished
// ResponseWriter accumulates into the checksum; dropping one unfinished is
// a programming error.
type ResponseWriter struct {
	out      comm.Comm
	body     *comm.ChecksumComm
	finished bool
}

// NewResponseWriter starts a new response by writing the `$` start marker
// and returns a writer for the body. Finish must be called to emit the
// trailer.
func NewResponseWriter(out comm.Comm) (*ResponseWriter, error) {
	if err := out.Write('$'); err != nil {
		return nil, err
	}
	rw := &ResponseWriter{
		out:  out,
		body: comm.NewChecksumComm(out),
	}
	if debugFinalizers {
		runtime.SetFinalizer(rw, func(rw *ResponseWriter) {
			if !rw.finished {
				panic("proto: ResponseWriter finalized without Finish")
			}
		})
	}
	return rw, nil
}

// Write implements comm.Comm for the body half of the response, so callers
// can pass *ResponseWriter anywhere a comm.Comm is expected while framing a
// reply.
func (rw *ResponseWriter) Write(b byte) error { return rw.body.Write(b) }

// WriteAll writes every byte of data into the response body.
func (rw *ResponseWriter) WriteAll(data []byte) error { return rw.body.WriteAll(data) }

// WriteHex writes b as two lowercase hex digits into the response body.
func (rw *ResponseWriter) WriteHex(b byte) error { return rw.body.WriteHex(b) }

// WriteAllHex writes every byte of data as two lowercase hex digits into
// the response body.
func (rw *ResponseWriter) WriteAllHex(data []byte) error { return rw.body.WriteAllHex(data) }

// WriteString writes s verbatim into the response body.
func (rw *ResponseWriter) WriteString(s string) error {
	return rw.WriteAll([]byte(s))
}

// Read panics: a ResponseWriter is write-only.
func (rw *ResponseWriter) Read() (byte, error) {
	panic("proto: attempted to read using a ResponseWriter")
}

// Finish writes the `#` end marker and the two hex checksum digits, and
// marks the writer as finished. Calling Finish twice is a programming
// error.
func (rw *ResponseWriter) Finish() error {
	if rw.finished {
		panic("proto: ResponseWriter.Finish called twice")
	}
	rw.finished = true
	if err := rw.out.Write('#'); err != nil {
		return err
	}
	return rw.out.WriteHex(rw.body.Checksum())
}

// Checksum exposes the accumulated body checksum for logging before
// Finish is called.
func (rw *ResponseWriter) Checksum() string {
	return rw.body.String()
}
