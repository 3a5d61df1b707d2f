// Package sftptest runs an in-process SSH server with an sftp subsystem rooted
// at a local directory, for tests of the transfer layer. WithSCP also accepts
// scp uploads by running the local scp binary in sink mode.
package sftptest

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/logging"
	"github.com/pkg/sftp"
)

const (
	Username = "recorder"
	Password = "tiger"
)

// Server is a running test server. Remote paths map onto Root.
type Server struct {
	Root string
	Host string
	Port int

	srv *ssh.Server

	scp bool

	mu     sync.Mutex
	mkdirs []string
}

// Option customizes a Server.
type Option func(s *Server)

// WithSCP serves `scp -t` sessions with the scp binary on PATH. The test is
// skipped when none is installed.
func WithSCP() Option {
	return func(s *Server) {
		s.scp = true
	}
}

// New starts a server on a random loopback port and stops it when the test ends.
func New(tb testing.TB, root string, opts ...Option) *Server {
	tb.Helper()

	s := &Server{Root: root}
	for _, o := range opts {
		o(s)
	}
	middleware := []wish.Middleware{logging.StructuredMiddleware()}
	if s.scp {
		if _, err := exec.LookPath("scp"); err != nil {
			tb.Skip("scp binary not available")
		}
		middleware = append([]wish.Middleware{s.scpMiddleware}, middleware...)
	}

	srv, err := wish.NewServer(
		wish.WithHostKeyPath(filepath.Join(tb.TempDir(), "host_ed25519")),
		wish.WithPasswordAuth(func(ctx ssh.Context, password string) bool {
			return password == Password
		}),
		wish.WithSubsystem("sftp", s.sftpSubsystem),
		wish.WithMiddleware(middleware...),
	)
	if err != nil {
		tb.Fatalf("create ssh server: %v", err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		tb.Fatalf("listen: %v", err)
	}
	host, port, err := net.SplitHostPort(ln.Addr().String())
	if err != nil {
		tb.Fatalf("split listen address: %v", err)
	}
	s.Host = host
	s.Port, _ = strconv.Atoi(port)
	s.srv = srv

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
			log.Error("test ssh server stopped", "error", err)
		}
	}()
	tb.Cleanup(func() { _ = srv.Close() })
	return s
}

// Close stops the server and drops every open connection.
func (s *Server) Close() error {
	return s.srv.Close()
}

// Addr returns host:port of the server.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// Mkdirs lists the remote directories created over sftp, in order.
func (s *Server) Mkdirs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.mkdirs...)
}

// Local maps a remote path onto the server's root directory.
func (s *Server) Local(remotePath string) string {
	return filepath.Join(s.Root, filepath.FromSlash(remotePath))
}

func (s *Server) sftpSubsystem(sess ssh.Session) {
	srv := sftp.NewRequestServer(sess, sftp.Handlers{
		FileGet:  s,
		FilePut:  s,
		FileCmd:  s,
		FileList: s,
	})
	if err := srv.Serve(); errors.Is(err, io.EOF) {
		_ = srv.Close()
	} else if err != nil {
		wish.Fatalln(sess, "sftp:", err)
	}
}

// scpMiddleware runs `scp ... -t PATH` as a local sink with PATH mapped under
// Root. Other commands fall through.
func (s *Server) scpMiddleware(next ssh.Handler) ssh.Handler {
	return func(sess ssh.Session) {
		args := sess.Command()
		if len(args) < 2 || args[0] != "scp" {
			next(sess)
			return
		}
		target := args[len(args)-1]
		cmdArgs := append(append([]string(nil), args[1:len(args)-1]...), s.Local(target))

		cmd := exec.CommandContext(sess.Context(), "scp", cmdArgs...)
		cmd.Dir = s.Root
		cmd.Stdout = sess
		cmd.Stderr = sess.Stderr()
		stdin, err := cmd.StdinPipe()
		if err == nil {
			err = cmd.Start()
		}
		if err != nil {
			wish.Fatalln(sess, "scp:", err)
			return
		}
		go func() {
			_, _ = io.Copy(stdin, sess)
			_ = stdin.Close()
		}()

		code := 0
		if err := cmd.Wait(); err != nil {
			var exitErr *exec.ExitError
			if !errors.As(err, &exitErr) {
				wish.Fatalln(sess, "scp:", err)
				return
			}
			code = exitErr.ExitCode()
			if code < 0 {
				code = 1
			}
		}
		_ = sess.Exit(code)
	}
}

var (
	_ sftp.FileLister = &Server{}
	_ sftp.FileReader = &Server{}
	_ sftp.FileWriter = &Server{}
	_ sftp.FileCmder  = &Server{}
)

type listerAt []fs.FileInfo

func (l listerAt) ListAt(ls []fs.FileInfo, offset int64) (int, error) {
	if offset >= int64(len(l)) {
		return 0, io.EOF
	}
	n := copy(ls, l[offset:])
	if n < len(ls) {
		return n, io.EOF
	}
	return n, nil
}

func openFlags(r *sftp.Request) int {
	var flags int
	pflags := r.Pflags()
	if pflags.Append {
		flags |= os.O_APPEND
	}
	if pflags.Creat {
		flags |= os.O_CREATE
	}
	if pflags.Excl {
		flags |= os.O_EXCL
	}
	if pflags.Trunc {
		flags |= os.O_TRUNC
	}

	if pflags.Read && pflags.Write {
		flags |= os.O_RDWR
	} else if pflags.Read {
		flags |= os.O_RDONLY
	} else if pflags.Write {
		flags |= os.O_WRONLY
	}
	return flags
}

// Fileread implements sftp.FileReader.
func (s *Server) Fileread(r *sftp.Request) (io.ReaderAt, error) {
	return os.OpenFile(s.Local(r.Filepath), openFlags(r), 0o600)
}

// Filewrite implements sftp.FileWriter.
func (s *Server) Filewrite(r *sftp.Request) (io.WriterAt, error) {
	return os.OpenFile(s.Local(r.Filepath), openFlags(r), 0o644)
}

// Filecmd implements sftp.FileCmder.
func (s *Server) Filecmd(r *sftp.Request) error {
	switch r.Method {
	case "Mkdir":
		if err := os.Mkdir(s.Local(r.Filepath), 0o755); err != nil {
			return err
		}
		s.mu.Lock()
		s.mkdirs = append(s.mkdirs, r.Filepath)
		s.mu.Unlock()
		return nil
	case "Remove":
		return os.Remove(s.Local(r.Filepath))
	case "Rmdir":
		return os.Remove(s.Local(r.Filepath))
	case "Rename":
		return os.Rename(s.Local(r.Filepath), s.Local(r.Target))
	case "Setstat":
		return nil
	default:
		return sftp.ErrSSHFxOpUnsupported
	}
}

// Filelist implements sftp.FileLister.
func (s *Server) Filelist(r *sftp.Request) (sftp.ListerAt, error) {
	switch r.Method {
	case "List":
		entries, err := os.ReadDir(s.Local(r.Filepath))
		if err != nil {
			return nil, fmt.Errorf("sftp: %w", err)
		}
		infos := make([]fs.FileInfo, len(entries))
		for i, entry := range entries {
			info, err := entry.Info()
			if err != nil {
				return nil, err
			}
			infos[i] = info
		}
		return listerAt(infos), nil
	case "Stat", "Lstat":
		fi, err := os.Stat(s.Local(r.Filepath))
		if err != nil {
			return nil, err
		}
		return listerAt{fi}, nil
	default:
		return nil, sftp.ErrSSHFxOpUnsupported
	}
}
