package novaplanwire

import (
	"bytes"
	"encoding/binary"
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrame_RoundTripOverPipe(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	optimize := false
	sent := PlanRequest{ID: 7, SQL: "SELECT users.id FROM users", Optimize: &optimize}

	errc := make(chan error, 1)
	go func() { errc <- WriteFrame(a, sent) }()

	var got PlanRequest
	require.NoError(t, ReadFrame(b, &got))
	require.NoError(t, <-errc)
	assert.Equal(t, sent, got)
}

func TestReadFrame_Rejects(t *testing.T) {
	var empty bytes.Buffer
	empty.Write([]byte{0, 0, 0, 0})
	require.ErrorIs(t, ReadFrame(&empty, &PlanRequest{}), ErrEmptyFrame)

	var huge bytes.Buffer
	hdr := make([]byte, 4)
	binary.BigEndian.PutUint32(hdr, MaxFrameSize+1)
	huge.Write(hdr)
	require.ErrorIs(t, ReadFrame(&huge, &PlanRequest{}), ErrFrameTooLarge)

	var short bytes.Buffer
	binary.BigEndian.PutUint32(hdr, 10)
	short.Write(hdr)
	short.WriteString("{}")
	require.ErrorIs(t, ReadFrame(&short, &PlanRequest{}), io.ErrUnexpectedEOF)

	var bad bytes.Buffer
	binary.BigEndian.PutUint32(hdr, 3)
	bad.Write(hdr)
	bad.WriteString("{x}")
	require.ErrorContains(t, ReadFrame(&bad, &PlanRequest{}), "bad json")

	require.ErrorIs(t, ReadFrame(&bytes.Buffer{}, &PlanRequest{}), io.EOF)
}
