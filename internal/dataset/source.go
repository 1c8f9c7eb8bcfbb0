// Package dataset reads question tables from local files, HTTP(S) or FTP
// and writes prediction files.
package dataset

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/answer-engine/internal/resilience"
)

// SourceOptions configures remote reads.
type SourceOptions struct {
	Timeout   time.Duration
	UserAgent string
	Retry     resilience.RetryConfig
}

// Source opens table locations: local paths, http(s) URLs and ftp URLs.
type Source struct {
	client *http.Client
	opts   SourceOptions
}

// NewSource creates a Source, filling unset options with defaults.
func NewSource(opts SourceOptions) *Source {
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "answer-engine/1.0"
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = resilience.DefaultRetryConfig()
	}
	opts.Retry.ShouldRetry = resilience.IsTransient
	return &Source{client: &http.Client{Timeout: opts.Timeout}, opts: opts}
}

// Open returns a reader for location. The caller must close it.
func (s *Source) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	u, err := url.Parse(location)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// Plain paths, including Windows drive letters.
		f, err := os.Open(location)
		if err != nil {
			return nil, eris.Wrapf(err, "dataset: open %s", location)
		}
		return f, nil
	}

	switch u.Scheme {
	case "http", "https":
		return s.openHTTP(ctx, location)
	case "ftp":
		return s.openFTP(ctx, u)
	case "file":
		f, err := os.Open(u.Path)
		if err != nil {
			return nil, eris.Wrapf(err, "dataset: open %s", u.Path)
		}
		return f, nil
	default:
		return nil, eris.Errorf("dataset: unsupported scheme %q", u.Scheme)
	}
}

func (s *Source) openHTTP(ctx context.Context, location string) (io.ReadCloser, error) {
	cfg := s.opts.Retry
	cfg.OnRetry = resilience.RetryLogger("http", "dataset")
	return resilience.DoVal(ctx, cfg, func(ctx context.Context) (io.ReadCloser, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
		if err != nil {
			return nil, eris.Wrap(err, "dataset: build request")
		}
		req.Header.Set("User-Agent", s.opts.UserAgent)

		resp, err := s.client.Do(req)
		if err != nil {
			return nil, resilience.NewTransientError(eris.Wrap(err, "dataset: http get"), 0)
		}
		if resp.StatusCode != http.StatusOK {
			_ = resp.Body.Close()
			err := eris.Errorf("dataset: http get %s: status %d", location, resp.StatusCode)
			if resilience.IsTransientHTTPStatus(resp.StatusCode) {
				return nil, resilience.NewTransientError(err, resp.StatusCode)
			}
			return nil, err
		}
		return resp.Body, nil
	})
}

// ftpReader closes the transfer and the control connection together.
type ftpReader struct {
	resp *ftp.Response
	conn *ftp.ServerConn
}

func (r *ftpReader) Read(p []byte) (int, error) {
	return r.resp.Read(p)
}

func (r *ftpReader) Close() error {
	respErr := r.resp.Close()
	quitErr := r.conn.Quit()
	if respErr != nil {
		return eris.Wrap(respErr, "dataset: close ftp response")
	}
	if quitErr != nil {
		return eris.Wrap(quitErr, "dataset: quit ftp connection")
	}
	return nil
}

func (s *Source) openFTP(ctx context.Context, u *url.URL) (io.ReadCloser, error) {
	host := u.Host
	if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(host, "21")
	}
	if u.Path == "" {
		return nil, eris.New("dataset: empty path in ftp url")
	}

	zap.L().Debug("dataset: ftp connect", zap.String("host", host), zap.String("path", u.Path))
	conn, err := ftp.Dial(host, ftp.DialWithTimeout(s.opts.Timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, eris.Wrap(err, "dataset: ftp dial")
	}

	user, pass := "anonymous", "anonymous@"
	if u.User != nil {
		user = u.User.Username()
		if p, ok := u.User.Password(); ok {
			pass = p
		}
	}
	if err := conn.Login(user, pass); err != nil {
		_ = conn.Quit()
		return nil, eris.Wrap(err, "dataset: ftp login")
	}

	resp, err := conn.Retr(u.Path)
	if err != nil {
		_ = conn.Quit()
		return nil, eris.Wrap(err, "dataset: ftp retrieve")
	}
	return &ftpReader{resp: resp, conn: conn}, nil
}
