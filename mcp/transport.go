package mcp

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// ErrMalformedFrame marks an inbound line that is not a valid JSON-RPC
// message. Callers should report it and keep reading; transport-level read
// errors (EOF, closed pipe) are returned unwrapped and are fatal.
var ErrMalformedFrame = errors.New("mcp: malformed frame")

// ServerTransport frames JSON-RPC messages as newline-delimited JSON records
// over a duplex byte stream, the server side of the stdio tool protocol.
type ServerTransport struct {
	reader *bufio.Reader

	mu     sync.Mutex
	writer io.Writer
}

// NewStdioTransport returns a transport over the process stdin/stdout.
// Stdout carries only protocol frames; logs must go to stderr.
func NewStdioTransport() *ServerTransport {
	return NewServerTransport(os.Stdin, os.Stdout)
}

// NewServerTransport returns a transport over an arbitrary reader/writer pair.
func NewServerTransport(r io.Reader, w io.Writer) *ServerTransport {
	return &ServerTransport{
		reader: bufio.NewReader(r),
		writer: w,
	}
}

// Read returns the next inbound message. Blank lines are skipped.
func (t *ServerTransport) Read() (Message, error) {
	for {
		line, err := t.reader.ReadBytes('\n')
		if err != nil {
			if len(bytes.TrimSpace(line)) == 0 {
				return Message{}, err
			}
			// A final unterminated line is still a frame.
		} else if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		var msg Message
		if jsonErr := json.Unmarshal(line, &msg); jsonErr != nil {
			return Message{}, fmt.Errorf("%w: %v", ErrMalformedFrame, jsonErr)
		}
		return msg, nil
	}
}

// Write emits one message as a single newline-terminated record. The frame
// is written with one Write call so a message is never interleaved or
// half-written.
func (t *ServerTransport) Write(msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("mcp: encode frame: %w", err)
	}
	data = append(data, '\n')

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := t.writer.Write(data); err != nil {
		return fmt.Errorf("mcp: write frame: %w", err)
	}
	return nil
}
