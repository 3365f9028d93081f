package transfer

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/pkg/sftp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/JonMunkholm/salesfeed/internal/config"
)

const (
	testUser     = "fornecedor"
	testPassword = "senha-secreta"
)

// sftpServer is the common surface of sftp.Server and sftp.RequestServer.
type sftpServer interface {
	Serve() error
	Close() error
}

// startSFTPServer runs an in-process SSH server exposing the sftp subsystem
// over the local filesystem. It returns the listen address and host key.
func startSFTPServer(t *testing.T) (string, ssh.PublicKey) {
	return startSSHServer(t, func(ch ssh.Channel) (sftpServer, error) {
		return sftp.NewServer(ch)
	})
}

// startSSHServer runs an in-process SSH server whose sftp subsystem is
// provided by newServer.
func startSSHServer(t *testing.T, newServer func(ssh.Channel) (sftpServer, error)) (string, ssh.PublicKey) {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	signer, err := ssh.NewSignerFromKey(priv)
	require.NoError(t, err)

	serverCfg := &ssh.ServerConfig{
		PasswordCallback: func(c ssh.ConnMetadata, pass []byte) (*ssh.Permissions, error) {
			if c.User() == testUser && string(pass) == testPassword {
				return nil, nil
			}
			return nil, errors.New("password rejected")
		},
	}
	serverCfg.AddHostKey(signer)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			nc, err := ln.Accept()
			if err != nil {
				return
			}
			go serveSSH(nc, serverCfg, newServer)
		}
	}()

	return ln.Addr().String(), signer.PublicKey()
}

func serveSSH(nc net.Conn, cfg *ssh.ServerConfig, newServer func(ssh.Channel) (sftpServer, error)) {
	_, chans, reqs, err := ssh.NewServerConn(nc, cfg)
	if err != nil {
		nc.Close()
		return
	}
	go ssh.DiscardRequests(reqs)

	for newCh := range chans {
		if newCh.ChannelType() != "session" {
			newCh.Reject(ssh.UnknownChannelType, "unsupported channel type")
			continue
		}
		ch, requests, err := newCh.Accept()
		if err != nil {
			continue
		}
		go func(in <-chan *ssh.Request) {
			for req := range in {
				ok := req.Type == "subsystem" && len(req.Payload) > 4 && string(req.Payload[4:]) == "sftp"
				req.Reply(ok, nil)
				if !ok {
					continue
				}
				server, err := newServer(ch)
				if err != nil {
					ch.Close()
					return
				}
				go func() {
					server.Serve()
					server.Close()
				}()
			}
		}(requests)
	}
}

// writeOnlyStore is an in-memory sftp backend that, like several managed
// SFTP services, refuses handles opened for both reading and writing.
type writeOnlyStore struct {
	mu    sync.Mutex
	files map[string][]byte
	opens []sftp.FileOpenFlags
}

func (s *writeOnlyStore) Filewrite(r *sftp.Request) (io.WriterAt, error) {
	flags := r.Pflags()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.opens = append(s.opens, flags)
	if flags.Read {
		return nil, os.ErrPermission
	}
	if flags.Trunc {
		s.files[r.Filepath] = nil
	}
	return &storeFile{store: s, path: r.Filepath}, nil
}

func (s *writeOnlyStore) openFlags() []sftp.FileOpenFlags {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sftp.FileOpenFlags(nil), s.opens...)
}

func (s *writeOnlyStore) content(path string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.files[path]
}

type storeFile struct {
	store *writeOnlyStore
	path  string
}

func (f *storeFile) WriteAt(p []byte, off int64) (int, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	b := f.store.files[f.path]
	if need := int(off) + len(p); need > len(b) {
		b = append(b, make([]byte, need-len(b))...)
	}
	copy(b[off:], p)
	f.store.files[f.path] = b
	return len(p), nil
}

func sftpConfig(t *testing.T, addr string) config.SFTPConfig {
	t.Helper()
	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	return config.SFTPConfig{
		Hostname:    host,
		Port:        port,
		Username:    testUser,
		Password:    testPassword,
		DialTimeout: 5 * time.Second,
	}
}

func TestSFTPDialer_Upload(t *testing.T) {
	addr, _ := startSFTPServer(t)
	dir := t.TempDir()

	client := NewClient(NewSFTPDialer(sftpConfig(t, addr)))
	remote := RemotePath(dir, "VENDAS_01032024.csv")
	data := []byte("SKU;COR\n301;Rosa\n")

	res := client.Upload(context.Background(), remote, data)
	require.True(t, res.OK(), res.String())
	assert.Equal(t, StateClosed, client.State())

	got, err := os.ReadFile(filepath.Join(dir, "VENDAS_01032024.csv"))
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestSFTPDialer_OverwritesExistingFile(t *testing.T) {
	addr, _ := startSFTPServer(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "VENDAS_01032024.csv")
	require.NoError(t, os.WriteFile(path, []byte("stale content that is longer"), 0o644))

	res := NewClient(NewSFTPDialer(sftpConfig(t, addr))).Upload(context.Background(), path, []byte("fresh"))
	require.True(t, res.OK(), res.String())

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "fresh", string(got))
}

func TestSFTPDialer_OpensWriteOnly(t *testing.T) {
	store := &writeOnlyStore{files: map[string][]byte{
		"/VENDAS_01032024.csv": []byte("stale content that is longer"),
	}}
	addr, _ := startSSHServer(t, func(ch ssh.Channel) (sftpServer, error) {
		return sftp.NewRequestServer(ch, sftp.Handlers{FilePut: store}), nil
	})

	res := NewClient(NewSFTPDialer(sftpConfig(t, addr))).Upload(context.Background(), "/VENDAS_01032024.csv", []byte("fresh"))
	require.True(t, res.OK(), res.String())

	opens := store.openFlags()
	require.Len(t, opens, 1)
	flags := opens[0]
	assert.False(t, flags.Read, "remote file must not be opened for reading")
	assert.True(t, flags.Write)
	assert.True(t, flags.Creat)
	assert.True(t, flags.Trunc)
	assert.Equal(t, "fresh", string(store.content("/VENDAS_01032024.csv")))
}

func TestSFTPDialer_WrongPassword(t *testing.T) {
	addr, _ := startSFTPServer(t)
	cfg := sftpConfig(t, addr)
	cfg.Password = "errada"

	client := NewClient(NewSFTPDialer(cfg))
	res := client.Upload(context.Background(), "/tmp/x.csv", []byte("x"))

	assert.False(t, res.OK())
	assert.Equal(t, Code("SFTP002"), res.Code)
	assert.Equal(t, StateAborted, client.State())
}

func TestSFTPDialer_MissingRemoteDir(t *testing.T) {
	addr, _ := startSFTPServer(t)
	remote := filepath.Join(t.TempDir(), "nao-existe", "x.csv")

	client := NewClient(NewSFTPDialer(sftpConfig(t, addr)))
	res := client.Upload(context.Background(), remote, []byte("x"))

	assert.False(t, res.OK())
	assert.Equal(t, Code("SFTP004"), res.Code)
	assert.Equal(t, StateClosed, client.State())
}

func TestSFTPDialer_KnownHosts(t *testing.T) {
	addr, hostKey := startSFTPServer(t)
	knownHosts := filepath.Join(t.TempDir(), "known_hosts")
	line := knownhosts.Line([]string{addr}, hostKey)
	require.NoError(t, os.WriteFile(knownHosts, []byte(line+"\n"), 0o600))

	cfg := sftpConfig(t, addr)
	cfg.KnownHostsFile = knownHosts
	remote := filepath.Join(t.TempDir(), "x.csv")

	res := NewClient(NewSFTPDialer(cfg)).Upload(context.Background(), remote, []byte("x"))
	assert.True(t, res.OK(), res.String())
}

func TestSFTPDialer_HostKeyMismatch(t *testing.T) {
	addr, _ := startSFTPServer(t)

	_, otherPriv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	otherSigner, err := ssh.NewSignerFromKey(otherPriv)
	require.NoError(t, err)

	knownHosts := filepath.Join(t.TempDir(), "known_hosts")
	line := knownhosts.Line([]string{addr}, otherSigner.PublicKey())
	require.NoError(t, os.WriteFile(knownHosts, []byte(line+"\n"), 0o600))

	cfg := sftpConfig(t, addr)
	cfg.KnownHostsFile = knownHosts

	res := NewClient(NewSFTPDialer(cfg)).Upload(context.Background(), "/tmp/x.csv", []byte("x"))
	assert.False(t, res.OK())
	assert.Equal(t, Code("SFTP006"), res.Code)
}

func TestSFTPDialer_MissingKnownHostsFile(t *testing.T) {
	cfg := config.SFTPConfig{
		Hostname:       "127.0.0.1",
		Port:           22,
		KnownHostsFile: filepath.Join(t.TempDir(), "absent"),
		DialTimeout:    time.Second,
	}

	_, err := NewSFTPDialer(cfg).Dial(context.Background())
	assert.ErrorContains(t, err, "known_hosts")
}

func TestSFTPDialer_ConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	res := NewClient(NewSFTPDialer(sftpConfig(t, addr))).Upload(context.Background(), "/tmp/x.csv", []byte("x"))
	assert.False(t, res.OK())
	assert.Equal(t, Code("SFTP001"), res.Code)
}
