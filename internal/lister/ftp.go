package lister

import (
	"context"
	"errors"
	"net"
	"net/textproto"
	"path"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/oappleby/plotsat/internal/config"
	"github.com/oappleby/plotsat/internal/manifest"
	"github.com/oappleby/plotsat/internal/model"
	"github.com/oappleby/plotsat/internal/resilience"
)

// FTP lists chunk files from partition folders on an FTP server. Each List
// call opens a fresh connection, walks the folders with NAME LIST, and quits.
type FTP struct {
	job   *manifest.Job
	cfg   config.FTPConfig
	retry resilience.RetryConfig
}

// NewFTP creates an FTP lister. Listing failures are retried per retry
// before being reported as SourceUnavailableError.
func NewFTP(job *manifest.Job, cfg config.FTPConfig, retry resilience.RetryConfig) *FTP {
	retry.OnRetry = resilience.RetryLogger("ftp", "list_chunks")
	return &FTP{job: job, cfg: cfg, retry: retry}
}

// Source implements Lister.
func (f *FTP) Source() string { return "ftp" }

// List implements Lister.
func (f *FTP) List(ctx context.Context) (map[model.ChunkID]struct{}, error) {
	chunks, err := resilience.DoVal(ctx, f.retry, f.listOnce)
	if err != nil {
		return nil, &model.SourceUnavailableError{Source: f.Source(), Err: err}
	}
	return chunks, nil
}

func (f *FTP) listOnce(ctx context.Context) (map[model.ChunkID]struct{}, error) {
	timeout := time.Duration(f.cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	addr := f.cfg.Addr
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, "21")
	}

	zap.L().Debug("ftp: connecting", zap.String("addr", addr))

	conn, err := ftp.Dial(addr, ftp.DialWithTimeout(timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, eris.Wrap(err, "lister: ftp dial")
	}
	defer conn.Quit() //nolint:errcheck

	user, pass := f.cfg.User, f.cfg.Password
	if user == "" {
		user, pass = "anonymous", "anonymous@"
	}
	if err := conn.Login(user, pass); err != nil {
		return nil, eris.Wrap(err, "lister: ftp login")
	}

	chunks := make(map[model.ChunkID]struct{})
	for _, part := range f.job.Partitions() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		dir := path.Join(f.cfg.BasePath, f.job.FolderName(part))
		names, err := conn.NameList(dir)
		if err != nil {
			if isFTPNotFound(err) {
				// Partition not exported yet.
				continue
			}
			return nil, eris.Wrapf(err, "lister: ftp list %s", dir)
		}

		for _, name := range names {
			if id, ok := f.job.ParseChunkFile(part, path.Base(name)); ok {
				chunks[id] = struct{}{}
			}
		}
	}

	zap.L().Debug("listed ftp chunks",
		zap.String("addr", addr),
		zap.Int("chunks", len(chunks)),
	)
	return chunks, nil
}

// isFTPNotFound reports whether an FTP reply means the directory does not
// exist (550 file unavailable).
func isFTPNotFound(err error) bool {
	var protoErr *textproto.Error
	return errors.As(err, &protoErr) && protoErr.Code == ftp.StatusFileUnavailable
}
