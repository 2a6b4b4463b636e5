package ipc

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{
		Magic:     ProtocolMagic,
		Version:   ProtocolVersion,
		Flags:     FlagJSON,
		Type:      MsgStatusRequest,
		RequestID: 42,
		Length:    7,
	}

	var buf bytes.Buffer
	require.NoError(t, h.Write(&buf))
	assert.Equal(t, HeaderSize, buf.Len())

	got, err := ReadHeader(&buf)
	require.NoError(t, err)
	assert.Equal(t, h, *got)
}

func TestReadHeaderRejectsBadMagic(t *testing.T) {
	buf := make([]byte, HeaderSize)
	buf[0] = 0xde
	buf[1] = 0xad

	_, err := ReadHeader(bytes.NewReader(buf))
	assert.ErrorContains(t, err, "invalid magic")
}

func TestMessageRoundTrip(t *testing.T) {
	payload, err := Encode(&ReloadResponse{Success: true, Triggers: 12})
	require.NoError(t, err)

	msg := NewMessage(MsgReloadResponse, 7, payload)

	var buf bytes.Buffer
	require.NoError(t, msg.Write(&buf))

	got, err := ReadMessage(&buf)
	require.NoError(t, err)
	assert.Equal(t, MsgReloadResponse, got.Header.Type)
	assert.Equal(t, uint32(7), got.Header.RequestID)

	var resp ReloadResponse
	require.NoError(t, Decode(got.Payload, &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 12, resp.Triggers)
}

func startTestServer(t *testing.T, handler Handler) (*Server, string) {
	t.Helper()
	socketPath := filepath.Join(t.TempDir(), "test.sock")

	srv := NewServer(DefaultServerConfig(socketPath), handler)
	require.NoError(t, srv.Start())
	t.Cleanup(func() { srv.Stop() })

	return srv, socketPath
}

func connectTestClient(t *testing.T, socketPath string) *Client {
	t.Helper()
	cfg := DefaultClientConfig(socketPath)
	cfg.RequestTimeout = 5 * time.Second
	client := NewClient(cfg)
	require.NoError(t, client.Connect())
	t.Cleanup(func() { client.Close() })
	return client
}

func TestPingPong(t *testing.T) {
	_, socketPath := startTestServer(t, nil)
	client := connectTestClient(t, socketPath)

	require.NoError(t, client.Ping())
}

func TestStatusRequestRoundTrip(t *testing.T) {
	started := time.Now().Add(-time.Minute)

	handler := HandlerFunc(func(ctx context.Context, msg *Message) (*Message, error) {
		switch msg.Header.Type {
		case MsgStatusRequest:
			return NewResponse(MsgStatusResponse, msg.Header.RequestID, &StatusResponse{
				Version:   "1.2.3",
				StartedAt: started,
				UptimeSec: 60,
				Triggers:  3,
				Backend:   "wtype",
			})
		default:
			return NewErrorMessage(msg.Header.RequestID, ErrInvalidRequest, "unknown type"), nil
		}
	})

	_, socketPath := startTestServer(t, handler)
	client := connectTestClient(t, socketPath)

	status, err := client.Status()
	require.NoError(t, err)
	assert.Equal(t, "1.2.3", status.Version)
	assert.Equal(t, 3, status.Triggers)
	assert.Equal(t, "wtype", status.Backend)
}

func TestErrorResponseSurfacesToCaller(t *testing.T) {
	handler := HandlerFunc(func(ctx context.Context, msg *Message) (*Message, error) {
		return NewErrorMessage(msg.Header.RequestID, ErrInvalidRequest, "nope"), nil
	})

	_, socketPath := startTestServer(t, handler)
	client := connectTestClient(t, socketPath)

	_, err := client.Reload()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
}

func TestClientReportsDaemonNotRunning(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "absent.sock")
	client := NewClient(DefaultClientConfig(socketPath))

	err := client.Connect()
	assert.ErrorIs(t, err, ErrDaemonNotRunning)
}

func TestServerStopRemovesSocket(t *testing.T) {
	srv, socketPath := startTestServer(t, nil)
	require.NoError(t, srv.Stop())

	client := NewClient(DefaultClientConfig(socketPath))
	err := client.Connect()
	assert.Error(t, err)
}

func TestMultipleRequestsOnOneConnection(t *testing.T) {
	var calls int
	handler := HandlerFunc(func(ctx context.Context, msg *Message) (*Message, error) {
		calls++
		return NewResponse(MsgPauseResponse, msg.Header.RequestID, &PauseResponse{Paused: calls%2 == 1})
	})

	_, socketPath := startTestServer(t, handler)
	client := connectTestClient(t, socketPath)

	p1, err := client.Pause()
	require.NoError(t, err)
	assert.True(t, p1.Paused)

	p2, err := client.Resume()
	require.NoError(t, err)
	assert.False(t, p2.Paused)
}
