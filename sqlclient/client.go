package sqlclient

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tuannm99/novaplan/internal/engine"
	"github.com/tuannm99/novaplan/server/novaplanwire"
)

// Client is a synchronous plan client. Calls are serialized on one
// connection.
type Client struct {
	conn net.Conn
	mu   sync.Mutex
	id   atomic.Uint64

	// per-request timeout, 0 means none
	rwTimeout time.Duration
}

func Dial(addr string, timeout time.Duration) (*Client, error) {
	return DialContext(context.Background(), addr, timeout)
}

func DialContext(ctx context.Context, addr string, timeout time.Duration) (*Client, error) {
	d := net.Dialer{Timeout: timeout}
	c, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return NewClient(c), nil
}

// NewClient wraps an established connection.
func NewClient(conn net.Conn) *Client {
	return &Client{conn: conn}
}

// SetRWTimeout sets a per-request read/write deadline.
func (c *Client) SetRWTimeout(d time.Duration) {
	if c == nil {
		return
	}
	c.rwTimeout = d
}

func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func (c *Client) Plan(sql string, optimize bool) (*engine.Report, error) {
	return c.PlanContext(context.Background(), sql, optimize)
}

// PlanContext sends one statement and waits for its plan. Planning
// failures come back as *novaplanwire.RemoteError.
func (c *Client) PlanContext(ctx context.Context, sql string, optimize bool) (*engine.Report, error) {
	if c == nil || c.conn == nil {
		return nil, fmt.Errorf("sqlclient: nil client")
	}

	reqID := c.id.Add(1)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.applyDeadline(ctx); err != nil {
		return nil, err
	}
	defer func() {
		_ = c.conn.SetDeadline(time.Time{})
	}()

	req := novaplanwire.PlanRequest{ID: reqID, SQL: sql, Optimize: &optimize}
	if err := novaplanwire.WriteFrame(c.conn, req); err != nil {
		return nil, err
	}

	var resp novaplanwire.PlanResponse
	if err := novaplanwire.ReadFrame(c.conn, &resp); err != nil {
		return nil, err
	}

	if resp.ID != reqID {
		return nil, fmt.Errorf("sqlclient: response id mismatch: got=%d want=%d", resp.ID, reqID)
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	if resp.Report == nil {
		return nil, fmt.Errorf("sqlclient: response %d has no report", resp.ID)
	}
	return resp.Report, nil
}

func (c *Client) applyDeadline(ctx context.Context) error {
	if dl, ok := ctx.Deadline(); ok {
		return c.conn.SetDeadline(dl)
	}
	if c.rwTimeout > 0 {
		return c.conn.SetDeadline(time.Now().Add(c.rwTimeout))
	}
	return nil
}
