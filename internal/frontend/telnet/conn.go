package telnet

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"net"
	"sync"
	"time"
)

// Telnet command and option bytes (RFC 854, RFC 857, RFC 858).
const (
	IAC  byte = 255
	DONT byte = 254
	DO   byte = 253
	WONT byte = 252
	WILL byte = 251
	SB   byte = 250
	GA   byte = 249
	NOP  byte = 241
	SE   byte = 240

	OptEcho            byte = 1
	OptSuppressGoAhead byte = 3
	OptLinemode        byte = 34
)

// MaxLineLength bounds a single line of client input, in bytes.
const MaxLineLength = 512

// ErrLineTooLong is returned by ReadLine when a line exceeds MaxLineLength.
// The rest of the offending line is discarded, so the connection stays usable.
var ErrLineTooLong = errors.New("input line too long")

// Conn is a Telnet connection. Reads strip protocol negotiation and control
// characters; writes are serialized so the session and the input loop can
// share one connection.
type Conn struct {
	raw    net.Conn
	reader *bufio.Reader

	mu           sync.Mutex
	readTimeout  time.Duration
	writeTimeout time.Duration

	closeOnce sync.Once
	closeErr  error
}

// NewConn wraps raw. A zero timeout disables the corresponding deadline.
//
// Precondition: raw must be an open connection.
func NewConn(raw net.Conn, readTimeout, writeTimeout time.Duration) *Conn {
	return &Conn{
		raw:          raw,
		reader:       bufio.NewReaderSize(raw, 4096),
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
	}
}

// Negotiate offers to suppress go-ahead, the only option the server uses.
func (c *Conn) Negotiate() error {
	return c.Write([]byte{IAC, WILL, OptSuppressGoAhead})
}

// ReadLine returns the next line of input without its line terminator.
// CR, LF, and CR LF all end a line.
//
// Postcondition: Returns a line of printable text, or an error (io.EOF on hangup).
func (c *Conn) ReadLine() (string, error) {
	if c.readTimeout > 0 {
		_ = c.raw.SetReadDeadline(time.Now().Add(c.readTimeout))
	}

	var line bytes.Buffer
	overflow := false
	for {
		b, err := c.reader.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) && line.Len() > 0 && !overflow {
				return line.String(), nil
			}
			return "", err
		}

		switch {
		case b == IAC:
			lit, err := c.skipCommand()
			if err != nil {
				return "", err
			}
			if !lit {
				continue
			}
		case b == '\n':
			return c.finish(&line, overflow)
		case b == '\r':
			if c.reader.Buffered() > 0 {
				if next, err := c.reader.Peek(1); err == nil && (next[0] == '\n' || next[0] == 0) {
					_, _ = c.reader.ReadByte()
				}
			}
			return c.finish(&line, overflow)
		case b < 32 && b != '\t':
			continue
		}

		if line.Len() >= MaxLineLength {
			overflow = true
			continue
		}
		line.WriteByte(b)
	}
}

func (c *Conn) finish(line *bytes.Buffer, overflow bool) (string, error) {
	if overflow {
		return "", ErrLineTooLong
	}
	return line.String(), nil
}

// skipCommand consumes the rest of an IAC sequence. It reports true for an
// escaped IAC, which the caller treats as a literal 0xFF data byte.
func (c *Conn) skipCommand() (bool, error) {
	cmd, err := c.reader.ReadByte()
	if err != nil {
		return false, err
	}
	switch cmd {
	case IAC:
		return true, nil
	case WILL, WONT, DO, DONT:
		_, err := c.reader.ReadByte()
		return false, err
	case SB:
		for {
			b, err := c.reader.ReadByte()
			if err != nil {
				return false, err
			}
			if b != IAC {
				continue
			}
			next, err := c.reader.ReadByte()
			if err != nil {
				return false, err
			}
			if next == SE {
				return false, nil
			}
		}
	default:
		return false, nil
	}
}

// Write sends data as-is.
func (c *Conn) Write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.writeTimeout > 0 {
		_ = c.raw.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	_, err := c.raw.Write(data)
	return err
}

// WriteLine sends text followed by CR LF.
func (c *Conn) WriteLine(text string) error {
	return c.Write([]byte(text + "\r\n"))
}

// WritePrompt sends text without a line terminator.
func (c *Conn) WritePrompt(prompt string) error {
	return c.Write([]byte(prompt))
}

// Close closes the underlying connection. Calls after the first return the
// first call's result.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.raw.Close()
	})
	return c.closeErr
}

// RemoteAddr returns the client's network address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.raw.RemoteAddr()
}
