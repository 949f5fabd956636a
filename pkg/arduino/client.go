package arduino

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"ledtester/internal/serial"
)

// Default timing for the exchange cycle. The board needs a short pause
// between receiving a command line and having the full reply on the wire.
const (
	DefaultReadTimeout     = 2 * time.Second
	DefaultSettleDelay     = 50 * time.Millisecond
	DefaultHelpSettleDelay = 100 * time.Millisecond
)

// Response is the controller's reply, parsed but otherwise untouched. The
// board is the sole validator of command semantics; whatever object it sends
// back is what the caller gets, no schema imposed here.
type Response map[string]any

// Options sets the exchange timing. Zero values take the defaults above.
type Options struct {
	// ReadTimeout is the overall wait for one reply line.
	ReadTimeout time.Duration
	// SettleDelay is the pause between the command write and the first read.
	SettleDelay time.Duration
	// HelpSettleDelay is the pause after the help trigger before draining.
	HelpSettleDelay time.Duration
}

// Client speaks the newline-delimited JSON protocol of the LED controller
// over one serial port. The mutex keeps exchanges strictly sequential: the
// board answers one command at a time, and interleaved writes would pair
// replies with the wrong requests.
type Client struct {
	mu     sync.Mutex
	port   serial.Port
	opts   Options
	closed bool
}

// NewClient wraps an open serial port. A nil port builds a client in the
// not-connected state, where every call reports the absence instead of
// touching the wire; the server stays up for diagnostics either way.
func NewClient(port serial.Port, opts Options) *Client {
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = DefaultReadTimeout
	}
	if opts.SettleDelay == 0 {
		opts.SettleDelay = DefaultSettleDelay
	}
	if opts.HelpSettleDelay == 0 {
		opts.HelpSettleDelay = DefaultHelpSettleDelay
	}
	return &Client{port: port, opts: opts}
}

// Connected reports whether the client holds an open port. The link is
// opened once at startup; a lost board stays lost until restart.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.port != nil && !c.closed
}

// Close releases the port. Calls after Close report not connected.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.port == nil {
		c.closed = true
		return nil
	}
	c.closed = true
	return c.port.Close()
}

// Exchange performs one request/reply cycle: discard stale input, write the
// command line, give the board a moment to answer, read one reply line.
// Failures never surface as Go errors; each comes back as an error Response
// so the HTTP layer relays it like any other reply.
func (c *Client) Exchange(command string) Response {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.port == nil || c.closed {
		return errResponse("Arduino not connected")
	}

	// Bytes already buffered belong to an earlier command or the boot
	// banner, not to this request.
	if err := c.port.Flush(); err != nil {
		return errResponse("Serial communication error: %v", err)
	}
	if _, err := c.port.Write([]byte(command + "\n")); err != nil {
		return errResponse("Serial communication error: %v", err)
	}
	time.Sleep(c.opts.SettleDelay)

	line, err := c.readLine()
	if err != nil {
		return errResponse("Serial communication error: %v", err)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return errResponse("No response from Arduino")
	}

	var resp Response
	if err := json.Unmarshal([]byte(line), &resp); err != nil {
		return errResponse("Invalid JSON response: %s", line)
	}
	return resp
}

// Help fetches the board's plain-text command reference.
func (c *Client) Help() string {
	return c.BulkRead("help")
}

// BulkRead sends a bare trigger line and drains the multi-line plain-text
// dump that follows, one whitespace-stripped line per row. The reply is not
// JSON, so the result is a string; faults come back as a describing string
// too. Unlike Exchange there is no overall deadline, only the implicit end
// when the input goes quiet.
func (c *Client) BulkRead(trigger string) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.port == nil || c.closed {
		return "Arduino not connected"
	}
	if _, err := c.port.Write([]byte(trigger + "\n")); err != nil {
		return fmt.Sprintf("Error getting help: %v", err)
	}
	time.Sleep(c.opts.HelpSettleDelay)

	r := bufio.NewReader(c.port)
	var text strings.Builder
	for {
		line, err := r.ReadString('\n')
		if err != nil && err != io.EOF {
			return fmt.Sprintf("Error getting help: %v", err)
		}
		if line != "" {
			text.WriteString(strings.TrimSpace(line))
			text.WriteByte('\n')
		}
		if err != nil {
			// One quiet poll interval means the dump is over.
			break
		}
	}
	return text.String()
}

// readLine accumulates reply bytes until a newline arrives or the overall
// read timeout passes. The port times out per read (its poll interval), so
// ReadString returns io.EOF whenever the wire goes quiet for a moment; only
// the deadline ends the wait. A fresh reader per exchange keeps a previous
// reply's buffered tail out of this one.
func (c *Client) readLine() (string, error) {
	r := bufio.NewReader(c.port)
	deadline := time.Now().Add(c.opts.ReadTimeout)
	var line strings.Builder
	for {
		chunk, err := r.ReadString('\n')
		line.WriteString(chunk)
		if err == nil {
			return line.String(), nil
		}
		if err != io.EOF {
			return "", err
		}
		if !time.Now().Before(deadline) {
			return line.String(), nil
		}
	}
}

func errResponse(format string, args ...any) Response {
	return Response{"status": "error", "message": fmt.Sprintf(format, args...)}
}
