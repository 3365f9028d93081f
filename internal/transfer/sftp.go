package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/JonMunkholm/salesfeed/internal/config"
	"github.com/JonMunkholm/salesfeed/internal/logging"
)

// SFTPDialer opens password-authenticated SFTP sessions.
type SFTPDialer struct {
	cfg config.SFTPConfig
}

// NewSFTPDialer creates a dialer for the configured endpoint.
func NewSFTPDialer(cfg config.SFTPConfig) *SFTPDialer {
	return &SFTPDialer{cfg: cfg}
}

// Dial connects, completes the SSH handshake and starts the sftp subsystem.
func (d *SFTPDialer) Dial(ctx context.Context) (Session, error) {
	hostKeyCallback, err := d.hostKeyCallback(ctx)
	if err != nil {
		return nil, err
	}

	addr := d.cfg.Addr()
	clientCfg := &ssh.ClientConfig{
		User: d.cfg.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(d.cfg.Password),
			ssh.KeyboardInteractive(d.answerWithPassword),
		},
		HostKeyCallback: hostKeyCallback,
		Timeout:         d.cfg.DialTimeout,
	}

	dialer := net.Dialer{Timeout: d.cfg.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	// Bound the handshake; cleared once the connection is up.
	if d.cfg.DialTimeout > 0 {
		conn.SetDeadline(time.Now().Add(d.cfg.DialTimeout))
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, clientCfg)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ssh handshake with %s: %w", addr, err)
	}
	conn.SetDeadline(time.Time{})

	client := ssh.NewClient(sshConn, chans, reqs)
	sc, err := sftp.NewClient(client)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("start sftp subsystem: %w", err)
	}

	return &sftpSession{client: sc, conn: client}, nil
}

// answerWithPassword handles servers that only offer keyboard-interactive auth.
func (d *SFTPDialer) answerWithPassword(_, _ string, questions []string, _ []bool) ([]string, error) {
	answers := make([]string, len(questions))
	for i := range questions {
		answers[i] = d.cfg.Password
	}
	return answers, nil
}

func (d *SFTPDialer) hostKeyCallback(ctx context.Context) (ssh.HostKeyCallback, error) {
	if d.cfg.KnownHostsFile == "" {
		logging.FromContext(ctx).Warn("SFTP_KNOWN_HOSTS not set; host key will not be verified",
			"host", d.cfg.Hostname)
		return ssh.InsecureIgnoreHostKey(), nil
	}
	cb, err := knownhosts.New(d.cfg.KnownHostsFile)
	if err != nil {
		return nil, fmt.Errorf("load known_hosts %s: %w", d.cfg.KnownHostsFile, err)
	}
	return cb, nil
}

// sftpSession owns the sftp client and the SSH connection beneath it.
type sftpSession struct {
	client *sftp.Client
	conn   *ssh.Client
}

func (s *sftpSession) Create(path string) (io.WriteCloser, error) {
	// Write-only: some servers refuse handles opened for read and write.
	f, err := s.client.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (s *sftpSession) Close() error {
	return errors.Join(s.client.Close(), s.conn.Close())
}
