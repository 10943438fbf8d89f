// Package testutil holds helpers shared by transport integration tests.
package testutil

import (
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/cory-johannsen/imposter/internal/frontend/telnet"
)

// TelnetClient is a line-oriented test client. Output is matched with ANSI
// colors and Telnet negotiation removed, and text past a match is kept for
// the next read.
type TelnetClient struct {
	t       *testing.T
	conn    net.Conn
	pending string
	// partial holds an escape sequence split across reads.
	partial string
}

// NewTelnetClient dials addr and closes the connection when the test ends.
func NewTelnetClient(t *testing.T, addr string) *TelnetClient {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		t.Fatalf("connecting to %s: %v", addr, err)
	}
	t.Cleanup(func() { conn.Close() })
	return &TelnetClient{t: t, conn: conn}
}

// ReadUntil reads until substr appears and returns the text up to and
// including it.
func (c *TelnetClient) ReadUntil(substr string, timeout time.Duration) string {
	c.t.Helper()
	if out, ok := c.take(substr); ok {
		return out
	}

	_ = c.conn.SetReadDeadline(time.Now().Add(timeout))
	tmp := make([]byte, 1024)
	for {
		n, err := c.conn.Read(tmp)
		if n > 0 {
			c.pending += c.clean(tmp[:n])
			if out, ok := c.take(substr); ok {
				return out
			}
		}
		if err != nil {
			c.t.Fatalf("reading until %q: got %q, error: %v", substr, c.pending, err)
		}
	}
}

func (c *TelnetClient) take(substr string) (string, bool) {
	i := strings.Index(c.pending, substr)
	if i < 0 {
		return "", false
	}
	end := i + len(substr)
	out := c.pending[:end]
	c.pending = c.pending[end:]
	return out, true
}

// clean drops Telnet negotiation bytes and ANSI color sequences.
func (c *TelnetClient) clean(b []byte) string {
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		if b[i] == telnet.IAC && i+2 < len(b) {
			i += 2
			continue
		}
		out = append(out, b[i])
	}
	s := c.partial + string(out)
	c.partial = ""
	if i := strings.LastIndexByte(s, '\033'); i >= 0 && !strings.Contains(s[i:], "m") {
		c.partial = s[i:]
		s = s[:i]
	}
	return telnet.StripANSI(s)
}

// Send writes text followed by CR LF.
func (c *TelnetClient) Send(text string) {
	c.t.Helper()
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if _, err := fmt.Fprintf(c.conn, "%s\r\n", text); err != nil {
		c.t.Fatalf("sending %q: %v", text, err)
	}
}

// Close hangs up.
func (c *TelnetClient) Close() {
	c.conn.Close()
}
