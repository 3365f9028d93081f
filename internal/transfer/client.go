// Package transfer delivers the report file to the supplier over SFTP.
//
// A Client opens one session per upload and always closes it, whatever
// happens after the session exists. Outcomes are reported as a Result, never
// as a panic or a bare error.
package transfer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/JonMunkholm/salesfeed/internal/logging"
)

// Session is an open remote file-transfer session.
type Session interface {
	// Create opens path for writing, truncating any existing file.
	Create(path string) (io.WriteCloser, error)
	Close() error
}

// Dialer opens sessions.
type Dialer interface {
	Dial(ctx context.Context) (Session, error)
}

// Client uploads files through sessions obtained from a Dialer.
type Client struct {
	dialer Dialer
	state  State
}

// NewClient creates a client in the Disconnected state.
func NewClient(d Dialer) *Client {
	return &Client{dialer: d, state: StateDisconnected}
}

// State returns the state the client reached in its last Upload.
func (c *Client) State() State {
	return c.state
}

// Upload writes data to remotePath in a fresh session.
//
// The session is closed on every path once it has been opened, including when
// the transfer panics; the panic is reported as a failure.
func (c *Client) Upload(ctx context.Context, remotePath string, data []byte) (result Result) {
	log := logging.WithFields(ctx, "remote_path", remotePath)

	c.state = StateConnecting
	session, err := c.dialer.Dial(ctx)
	if err != nil {
		c.state = StateAborted
		result = Failure(fmt.Errorf("connect: %w", err))
		log.Error("sftp connection failed", "error", err, "code", result.Code)
		return result
	}
	c.state = StateConnected
	log.Info("sftp connection established")

	defer func() {
		if err := session.Close(); err != nil {
			log.Warn("sftp close failed", "error", err)
		}
		c.state = StateClosed
		log.Info("sftp connection closed")
	}()

	defer func() {
		if p := recover(); p != nil {
			c.state = StateTransferFailed
			result = Failure(fmt.Errorf("transfer aborted: %v", p))
			log.Error("unexpected error during transfer", "error", result.Reason, "code", result.Code)
		}
	}()

	c.state = StateTransferring
	if err := put(session, remotePath, data); err != nil {
		c.state = StateTransferFailed
		result = Failure(err)
		log.Error("csv upload failed", "error", err, "code", result.Code)
		return result
	}

	c.state = StateTransferred
	log.Info("csv uploaded", "bytes", len(data))
	return Success()
}

// put streams data into a new remote file. The file is complete only once
// its Close succeeds.
func put(session Session, remotePath string, data []byte) error {
	f, err := session.Create(remotePath)
	if err != nil {
		return fmt.Errorf("create %s: %w", remotePath, err)
	}

	if _, err := io.Copy(f, bytes.NewReader(data)); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", remotePath, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", remotePath, err)
	}
	return nil
}

// RemotePath joins the remote directory and file name with exactly one '/'.
// An empty dir yields the bare name, relative to the login directory.
func RemotePath(dir, name string) string {
	if dir == "" {
		return name
	}
	return strings.TrimRight(dir, "/") + "/" + strings.TrimLeft(name, "/")
}
