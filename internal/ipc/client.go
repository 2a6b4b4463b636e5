package ipc

import (
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Common errors
var (
	ErrNotConnected     = errors.New("not connected to daemon")
	ErrDaemonNotRunning = errors.New("daemon is not running")
)

// Client is a synchronous request/response client for the daemon socket.
// Requests are serialized; concurrent callers block on the connection lock.
type Client struct {
	mu         sync.Mutex
	conn       net.Conn
	socketPath string
	timeout    time.Duration
	nextReqID  atomic.Uint32
}

// ClientConfig configures the IPC client
type ClientConfig struct {
	SocketPath     string
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
}

// DefaultClientConfig returns sensible defaults
func DefaultClientConfig(socketPath string) ClientConfig {
	return ClientConfig{
		SocketPath:     socketPath,
		ConnectTimeout: 5 * time.Second,
		RequestTimeout: 30 * time.Second,
	}
}

// NewClient creates a new IPC client
func NewClient(cfg ClientConfig) *Client {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	return &Client{
		socketPath: cfg.SocketPath,
		timeout:    cfg.RequestTimeout,
	}
}

// Connect establishes a connection to the daemon
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return nil
	}

	dialer := net.Dialer{Timeout: 5 * time.Second}
	conn, err := dialer.Dial("unix", c.socketPath)
	if err != nil {
		if _, statErr := os.Stat(c.socketPath); os.IsNotExist(statErr) {
			return ErrDaemonNotRunning
		}
		return err
	}

	c.conn = conn
	return nil
}

// Close closes the connection to the daemon
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// roundTrip sends a request and reads the matching response.
func (c *Client) roundTrip(msgType MessageType, payload []byte) (*Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil, ErrNotConnected
	}

	reqID := c.nextReqID.Add(1)
	msg := NewMessage(msgType, reqID, payload)

	deadline := time.Now().Add(c.timeout)
	c.conn.SetDeadline(deadline)

	if err := msg.Write(c.conn); err != nil {
		return nil, fmt.Errorf("write request: %w", err)
	}

	for {
		resp, err := ReadMessage(c.conn)
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		// Skip unsolicited messages from older requests.
		if resp.Header.RequestID != reqID {
			continue
		}
		if resp.Header.Type == MsgError {
			var errResp ErrorResponse
			if err := Decode(resp.Payload, &errResp); err != nil {
				return nil, fmt.Errorf("daemon error (undecodable)")
			}
			return nil, fmt.Errorf("daemon error %d: %s", errResp.Code, errResp.Message)
		}
		return resp, nil
	}
}

// request sends a typed request and decodes the response into out.
func (c *Client) request(msgType MessageType, out any) error {
	resp, err := c.roundTrip(msgType, nil)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return Decode(resp.Payload, out)
}

// Ping checks daemon liveness.
func (c *Client) Ping() error {
	resp, err := c.roundTrip(MsgPing, nil)
	if err != nil {
		return err
	}
	if resp.Header.Type != MsgPong {
		return fmt.Errorf("unexpected response type %#04x", resp.Header.Type)
	}
	return nil
}

// Status fetches daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var out StatusResponse
	if err := c.request(MsgStatusRequest, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Reload asks the daemon to reload its match files.
func (c *Client) Reload() (*ReloadResponse, error) {
	var out ReloadResponse
	if err := c.request(MsgReloadRequest, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Triggers lists the loaded triggers.
func (c *Client) Triggers() (*TriggersResponse, error) {
	var out TriggersResponse
	if err := c.request(MsgTriggersRequest, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Pause suspends expansion matching.
func (c *Client) Pause() (*PauseResponse, error) {
	var out PauseResponse
	if err := c.request(MsgPauseRequest, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Resume re-enables expansion matching.
func (c *Client) Resume() (*PauseResponse, error) {
	var out PauseResponse
	if err := c.request(MsgResumeRequest, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Stats fetches expansion history aggregates.
func (c *Client) Stats() (*StatsResponse, error) {
	var out StatsResponse
	if err := c.request(MsgStatsRequest, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Shutdown asks the daemon to exit.
func (c *Client) Shutdown() error {
	return c.request(MsgShutdown, nil)
}
