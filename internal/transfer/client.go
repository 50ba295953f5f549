package transfer

import (
	"context"
	"io"
	"net"
	"net/http"
	"sync"
	"time"
)

const (
	// DefaultUserAgent is sent with every direct request. Some CDNs serve
	// degraded responses to non-browser clients.
	DefaultUserAgent = "Mozilla/5.0 (Linux; Android 13; Pixel 7) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36"
	DefaultTimeout   = 30 * time.Second
	DefaultChunkSize = 128 * 1024
)

// NewClient returns an HTTP client whose dial, TLS handshake and response
// header waits are bounded by timeout. Body reads are bounded separately by
// idleReader, so long transfers are not cut off by a whole-request deadline.
func NewClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	dialer := &net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}
	return &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           dialer.DialContext,
			TLSHandshakeTimeout:   timeout,
			ResponseHeaderTimeout: timeout,
			MaxIdleConns:          10,
			IdleConnTimeout:       90 * time.Second,
		},
	}
}

// idleReader cancels its request when no Read completes within timeout.
type idleReader struct {
	r       io.Reader
	timeout time.Duration
	timer   *time.Timer
	once    sync.Once
}

func newIdleReader(r io.Reader, timeout time.Duration, cancel context.CancelFunc) *idleReader {
	ir := &idleReader{r: r, timeout: timeout}
	ir.timer = time.AfterFunc(timeout, cancel)
	return ir
}

func (ir *idleReader) Read(p []byte) (int, error) {
	n, err := ir.r.Read(p)
	ir.timer.Reset(ir.timeout)
	return n, err
}

func (ir *idleReader) stop() {
	ir.once.Do(func() { ir.timer.Stop() })
}
