// Package discord speaks the local Discord IPC protocol used for rich
// presence.
package discord

import (
	"context"
	"encoding/json"
	"net"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var (
	// ErrPipeTimeout means Discord did not answer on the socket in time.
	ErrPipeTimeout = errors.New("no response was received from the pipe in time")
	// ErrNotConnected is returned by calls made before Connect.
	ErrNotConnected = errors.New("not connected to discord")
)

// Dialer opens the IPC socket.
type Dialer func(ctx context.Context) (net.Conn, error)

// Client is a single IPC connection bound to one application id. Calls are
// serialized.
type Client struct {
	dial    Dialer
	timeout time.Duration
	pid     int

	mu       sync.Mutex
	conn     net.Conn
	clientID string
}

// Option configures a Client.
type Option func(*Client)

// WithDialer replaces socket discovery.
func WithDialer(d Dialer) Option {
	return func(c *Client) {
		if d != nil {
			c.dial = d
		}
	}
}

// WithTimeout bounds every request round trip.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithPID overrides the pid reported with activities.
func WithPID(pid int) Option {
	return func(c *Client) { c.pid = pid }
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		dial:    DialSocket,
		timeout: 5 * time.Second,
		pid:     os.Getpid(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect opens the socket and performs the handshake for clientID. An
// existing connection is closed first.
func (c *Client) Connect(ctx context.Context, clientID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if clientID == "" {
		return errors.New("client id required")
	}
	c.closeLocked()

	conn, err := c.dial(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to open discord socket")
	}
	c.conn = conn

	op, payload, err := c.roundTrip(ctx, OpHandshake, handshake{Version: 1, ClientID: clientID})
	if err != nil {
		c.closeLocked()
		return errors.Wrap(err, "handshake failed")
	}
	if op == OpClose {
		c.closeLocked()
		return errors.Errorf("handshake rejected: %s", closeReason(payload))
	}

	var ready response
	if err := json.Unmarshal(payload, &ready); err != nil {
		c.closeLocked()
		return errors.Wrap(err, "failed to decode handshake reply")
	}
	if ready.Evt != "READY" {
		c.closeLocked()
		return errors.Errorf("unexpected handshake reply %q", ready.Evt)
	}

	c.clientID = clientID
	return nil
}

// SetActivity replaces the presence shown for this application.
func (c *Client) SetActivity(ctx context.Context, act *Activity) error {
	return c.setActivity(ctx, act)
}

// ClearActivity removes the presence.
func (c *Client) ClearActivity(ctx context.Context) error {
	return c.setActivity(ctx, nil)
}

func (c *Client) setActivity(ctx context.Context, act *Activity) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return ErrNotConnected
	}

	nonce := uuid.NewString()
	cmd := command{
		Cmd:   "SET_ACTIVITY",
		Args:  activityArgs{PID: c.pid, Activity: act},
		Nonce: nonce,
	}

	op, payload, err := c.roundTrip(ctx, OpFrame, cmd)
	if err != nil {
		return errors.Wrap(err, "SET_ACTIVITY failed")
	}
	if op == OpClose {
		c.closeLocked()
		return errors.Errorf("discord closed the connection: %s", closeReason(payload))
	}

	var resp response
	if err := json.Unmarshal(payload, &resp); err != nil {
		return errors.Wrap(err, "failed to decode SET_ACTIVITY reply")
	}
	if resp.Evt == "ERROR" {
		var data errorData
		_ = json.Unmarshal(resp.Data, &data)
		return errors.Errorf("discord rejected activity: %d %s", data.Code, data.Message)
	}
	return nil
}

// Close sends the close frame and drops the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.timeout))
	werr := WriteFrame(c.conn, OpClose, struct{}{})
	cerr := c.conn.Close()
	c.conn = nil
	c.clientID = ""
	if werr != nil {
		return errors.Wrap(werr, "failed to send close frame")
	}
	return cerr
}

// Connected reports whether a handshake succeeded and the connection is open.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil && c.clientID != ""
}

// ClientID returns the application id of the open connection.
func (c *Client) ClientID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clientID
}

func (c *Client) closeLocked() {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.clientID = ""
}

// roundTrip writes one frame and returns the next non-ping reply.
func (c *Client) roundTrip(ctx context.Context, op Opcode, v interface{}) (Opcode, []byte, error) {
	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetDeadline(deadline); err != nil {
		return 0, nil, err
	}
	defer c.conn.SetDeadline(time.Time{})

	if err := WriteFrame(c.conn, op, v); err != nil {
		return 0, nil, asTimeout(err)
	}

	for {
		rop, payload, err := ReadFrame(c.conn)
		if err != nil {
			return 0, nil, asTimeout(err)
		}
		if rop == OpPing {
			if err := writeRaw(c.conn, OpPong, payload); err != nil {
				return 0, nil, asTimeout(err)
			}
			continue
		}
		return rop, payload, nil
	}
}

func writeRaw(conn net.Conn, op Opcode, payload []byte) error {
	if len(payload) == 0 {
		return WriteFrame(conn, op, struct{}{})
	}
	return WriteFrame(conn, op, json.RawMessage(payload))
}

func asTimeout(err error) error {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return errors.Wrap(ErrPipeTimeout, err.Error())
	}
	return err
}

func closeReason(payload []byte) string {
	var data errorData
	if err := json.Unmarshal(payload, &data); err != nil || data.Message == "" {
		return string(payload)
	}
	return data.Message
}
