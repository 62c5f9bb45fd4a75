package comm

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromReadWriter_ReadWrite(t *testing.T) {
	in := bytes.NewBufferString("ab")
	var out bytes.Buffer
	c := FromReadWriter(&readWriteCloser{in, &out})

	b, err := c.Read()
	require.NoError(t, err)
	assert.Equal(t, byte('a'), b)

	require.NoError(t, c.Write('z'))
	require.NoError(t, c.Flush())
	assert.Equal(t, "z", out.String())
}

func TestFromReadWriter_WriteAllHex(t *testing.T) {
	var out bytes.Buffer
	c := FromReadWriter(&readWriteCloser{bytes.NewBuffer(nil), &out})

	require.NoError(t, c.WriteAllHex([]byte{0x90, 0x00, 0xff}))
	require.NoError(t, c.Flush())
	assert.Equal(t, "9000ff", out.String())
}

func TestChecksumComm_AccumulatesAndForwards(t *testing.T) {
	var out bytes.Buffer
	inner := FromReadWriter(&readWriteCloser{bytes.NewBuffer(nil), &out})
	cc := NewChecksumComm(inner)

	require.NoError(t, cc.WriteAll([]byte("S00")))
	require.NoError(t, inner.Flush())

	// sum('S') + sum('0') + sum('0') mod 256
	want := byte('S') + '0' + '0'
	assert.Equal(t, want, cc.Checksum())
	assert.Equal(t, "S00", out.String())
}

func TestChecksumComm_FreshAccumulatorPerInstance(t *testing.T) {
	var out bytes.Buffer
	inner := FromReadWriter(&readWriteCloser{bytes.NewBuffer(nil), &out})

	first := NewChecksumComm(inner)
	require.NoError(t, first.WriteAll([]byte{0xff, 0xff}))
	assert.Equal(t, byte(0xfe), first.Checksum())

	second := NewChecksumComm(inner)
	assert.Equal(t, byte(0), second.Checksum())
}

// readWriteCloser adapts a reader and a writer into one io.ReadWriter for
// test fixtures, since bytes.Buffer alone can't be split across two
// separate in/out buffers otherwise.
type readWriteCloser struct {
	r *bytes.Buffer
	w *bytes.Buffer
}

func (rw *readWriteCloser) Read(p []byte) (int, error)  { return rw.r.Read(p) }
func (rw *readWriteCloser) Write(p []byte) (int, error) { return rw.w.Write(p) }
