// Package transfer owns the ssh connection and the sftp channel a run works
// through.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"recmover/config"
	"recmover/moverr"
)

// Session is an open ssh connection with an sftp sub-channel on top of it.
// Stat and Mkdir always go through sftp; Put uses the configured protocol.
type Session struct {
	conn     *ssh.Client
	sftp     *sftp.Client
	protocol string
	logger   *log.Logger
}

// Option customizes a Session.
type Option func(s *Session)

func WithLogger(logger *log.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Open connects to the host in cfg and opens the sftp channel. Any failure is
// tagged with moverr.ErrConnection and leaves nothing open.
func Open(ctx context.Context, cfg config.SSH, opts ...Option) (*Session, error) {
	s := &Session{
		protocol: cfg.Protocol,
		logger:   log.New(io.Discard),
	}
	for _, o := range opts {
		o(s)
	}
	if s.protocol == "" {
		s.protocol = config.ProtocolSFTP
	}

	addr := cfg.Address()
	clientConfig, err := ClientConfig(cfg)
	if err != nil {
		return nil, moverr.Wrap(moverr.ErrConnection, "configure", addr, err)
	}

	s.logger.Debug("Connecting", "addr", addr, "user", cfg.Username, "protocol", s.protocol)
	if s.conn, err = dial(ctx, addr, clientConfig); err != nil {
		return nil, moverr.Wrap(moverr.ErrConnection, "connect", addr, err)
	}

	s.sftp, err = sftp.NewClient(s.conn, sftp.UseConcurrentWrites(true))
	if err != nil {
		_ = s.Close()
		return nil, moverr.Wrap(moverr.ErrConnection, "open sftp", addr, err)
	}
	return s, nil
}

func dial(ctx context.Context, addr string, cfg *ssh.ClientConfig) (*ssh.Client, error) {
	dialer := net.Dialer{Timeout: cfg.Timeout}
	netConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	// The handshake itself has no context; bound it with a deadline instead.
	if cfg.Timeout > 0 {
		_ = netConn.SetDeadline(time.Now().Add(cfg.Timeout))
	}
	stop := context.AfterFunc(ctx, func() { _ = netConn.Close() })
	c, chans, reqs, err := ssh.NewClientConn(netConn, addr, cfg)
	stop()
	if err != nil {
		_ = netConn.Close()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	_ = netConn.SetDeadline(time.Time{})
	return ssh.NewClient(c, chans, reqs), nil
}

// Close shuts the sftp channel, then the connection. It is safe to call on a
// partially opened session and more than once.
func (s *Session) Close() error {
	if s == nil {
		return nil
	}
	var errs []error
	if s.sftp != nil {
		if err := s.sftp.Close(); err != nil && !isClosed(err) {
			errs = append(errs, fmt.Errorf("close sftp: %w", err))
		}
		s.sftp = nil
	}
	if s.conn != nil {
		if err := s.conn.Close(); err != nil && !isClosed(err) {
			errs = append(errs, fmt.Errorf("close ssh: %w", err))
		}
		s.conn = nil
	}
	return errors.Join(errs...)
}

// Stat returns remote file metadata. A missing path yields an error matching
// fs.ErrNotExist.
func (s *Session) Stat(p string) (fs.FileInfo, error) {
	if s.sftp == nil {
		return nil, errSessionClosed
	}
	return s.sftp.Stat(p)
}

// Mkdir creates a single remote directory.
func (s *Session) Mkdir(p string) error {
	if s.sftp == nil {
		return errSessionClosed
	}
	return s.sftp.Mkdir(p)
}

// Put uploads localPath to remotePath, reporting progress as bytes are read.
func (s *Session) Put(ctx context.Context, localPath, remotePath string, progress func(transferred, total int64)) error {
	if s.sftp == nil || s.conn == nil {
		return moverr.Wrap(moverr.ErrRemoteIO, "upload", remotePath, errSessionClosed)
	}
	if progress == nil {
		progress = func(int64, int64) {}
	}
	start := time.Now()
	var err error
	if s.protocol == config.ProtocolSCP {
		err = s.putSCP(ctx, localPath, remotePath, progress)
	} else {
		err = s.putSFTP(ctx, localPath, remotePath, progress)
	}
	if err == nil {
		s.logger.Debug("Uploaded", "dest", remotePath, "elapsed", time.Since(start).Round(time.Millisecond))
		return nil
	}
	if ctx.Err() == nil && !s.alive() {
		return moverr.Wrap(moverr.ErrConnection, "upload", remotePath, err)
	}
	return err
}

// alive reports whether the ssh connection still answers a global request.
func (s *Session) alive() bool {
	_, _, err := s.conn.SendRequest("keepalive@openssh.com", true, nil)
	return err == nil
}

var errSessionClosed = errors.New("session closed")

func isClosed(err error) bool {
	return errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF)
}
