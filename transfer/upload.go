package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	scp "github.com/bramvdbogaerde/go-scp"

	"recmover/moverr"
)

func (s *Session) putSFTP(ctx context.Context, localPath, remotePath string, progress func(int64, int64)) error {
	src, info, err := openSource(localPath)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := s.sftp.OpenFile(remotePath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		return moverr.Wrap(moverr.ErrRemoteIO, "create", remotePath, err)
	}

	reader := newProgressReader(ctx, src, info.Size(), progress)
	_, copyErr := dst.ReadFrom(reader)
	closeErr := dst.Close()
	if copyErr != nil {
		// Leave no partial file behind; a later run uploads it again.
		_ = s.sftp.Remove(remotePath)
		return classifyCopyError(reader, remotePath, copyErr)
	}
	if closeErr != nil {
		return moverr.Wrap(moverr.ErrRemoteIO, "close", remotePath, closeErr)
	}
	return nil
}

func (s *Session) putSCP(ctx context.Context, localPath, remotePath string, progress func(int64, int64)) error {
	src, info, err := openSource(localPath)
	if err != nil {
		return err
	}
	defer src.Close()

	client, err := scp.NewClientBySSH(s.conn)
	if err != nil {
		return moverr.Wrap(moverr.ErrRemoteIO, "scp session", remotePath, err)
	}
	// The default timeout bounds the whole copy, which large recordings exceed.
	client.Timeout = 0

	var reader *progressReader
	passThru := func(r io.Reader, total int64) io.Reader {
		reader = newProgressReader(ctx, r, total, progress)
		return reader
	}
	perm := fmt.Sprintf("%04o", info.Mode().Perm())
	if err := client.CopyFromFilePassThru(ctx, *src, remotePath, perm, passThru); err != nil {
		// go-scp reports a cancelled copy in several shapes; the context is authoritative.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("upload %s: %w", remotePath, ctxErr)
		}
		if reader == nil {
			return moverr.Wrap(moverr.ErrRemoteIO, "scp", remotePath, err)
		}
		return classifyCopyError(reader, remotePath, err)
	}
	return nil
}

func openSource(localPath string) (*os.File, os.FileInfo, error) {
	src, err := os.Open(localPath)
	if err != nil {
		return nil, nil, moverr.Wrap(moverr.ErrLocalIO, "open", localPath, err)
	}
	info, err := src.Stat()
	if err != nil {
		src.Close()
		return nil, nil, moverr.Wrap(moverr.ErrLocalIO, "stat", localPath, err)
	}
	return src, info, nil
}

func classifyCopyError(reader *progressReader, remotePath string, err error) error {
	readErr := reader.err()
	switch {
	case readErr == nil:
		return moverr.Wrap(moverr.ErrRemoteIO, "upload", remotePath, err)
	case errors.Is(readErr, context.Canceled), errors.Is(readErr, context.DeadlineExceeded):
		return fmt.Errorf("upload %s: %w", remotePath, readErr)
	default:
		return moverr.Wrap(moverr.ErrLocalIO, "read source for", remotePath, readErr)
	}
}

// progressReader counts bytes read from the local file and stops reading once
// ctx is done. Uploaders may read it from their own goroutine.
type progressReader struct {
	ctx    context.Context
	r      io.Reader
	total  int64
	read   int64
	report func(transferred, total int64)

	mu      sync.Mutex
	readErr error
}

func newProgressReader(ctx context.Context, r io.Reader, total int64, report func(int64, int64)) *progressReader {
	return &progressReader{ctx: ctx, r: r, total: total, report: report}
}

func (p *progressReader) Read(b []byte) (int, error) {
	if err := p.ctx.Err(); err != nil {
		p.setErr(err)
		return 0, err
	}
	n, err := p.r.Read(b)
	if n > 0 {
		p.read += int64(n)
		p.report(p.read, p.total)
	}
	if err != nil && !errors.Is(err, io.EOF) {
		p.setErr(err)
	}
	return n, err
}

// Size lets the sftp client pipeline writes for large files.
func (p *progressReader) Size() int64 {
	return p.total
}

func (p *progressReader) setErr(err error) {
	p.mu.Lock()
	p.readErr = err
	p.mu.Unlock()
}

func (p *progressReader) err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.readErr
}
