package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/folioforge/portfolio-platform/internal/api/metrics"
	"github.com/folioforge/portfolio-platform/internal/api/middleware"
	"github.com/folioforge/portfolio-platform/internal/core/domain"
	"github.com/folioforge/portfolio-platform/pkg/logger"
)

// NewTransport returns the pooled transport shared by every backend proxy.
func NewTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          512,
		MaxIdleConnsPerHost:   64,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}
}

// Proxy forwards the requests of one route to its backend.
type Proxy struct {
	route  Route
	target *url.URL
	rp     *httputil.ReverseProxy
	log    zerolog.Logger
}

type upstreamErrKey struct{}

// upstreamErr carries a transport failure out of the reverse proxy so the
// echo error handler can render it.
type upstreamErr struct {
	err error
}

func NewProxy(route Route, transport http.RoundTripper, log zerolog.Logger) (*Proxy, error) {
	target, err := url.Parse(route.Target)
	if err != nil {
		return nil, fmt.Errorf("parse target for %s: %w", route.Prefix, err)
	}

	p := &Proxy{route: route, target: target, log: log}
	p.rp = &httputil.ReverseProxy{
		Rewrite:      p.rewrite,
		Transport:    transport,
		ErrorHandler: p.handleError,
	}
	return p, nil
}

func (p *Proxy) rewrite(pr *httputil.ProxyRequest) {
	out := pr.Out.URL
	out.Scheme = p.target.Scheme
	out.Host = p.target.Host
	out.Path = strings.TrimSuffix(p.target.Path, "/") + p.route.RewritePath(pr.In.URL.Path)
	out.RawPath = ""
	out.RawQuery = pr.In.URL.RawQuery
	pr.Out.Host = p.target.Host
	pr.SetXForwarded()

	// Identity headers only ever come from the verifier.
	if !p.route.Protected || p.route.IsOpen(pr.In.URL.Path) {
		middleware.StripIdentityHeaders(pr.Out.Header)
	}
}

// Handle proxies the request. JSON bodies are buffered and re-serialised
// first so the forwarded Content-Length matches what is sent.
func (p *Proxy) Handle(c echo.Context) error {
	req := c.Request()
	if err := compactJSONBody(req); err != nil {
		return err
	}

	var failure upstreamErr
	ctx := context.WithValue(req.Context(), upstreamErrKey{}, &failure)

	start := time.Now()
	p.rp.ServeHTTP(c.Response(), req.WithContext(ctx))
	metrics.UpstreamDuration.WithLabelValues(p.route.Service).Observe(time.Since(start).Seconds())

	return failure.err
}

func (p *Proxy) handleError(w http.ResponseWriter, r *http.Request, err error) {
	kind, mapped := classify(r.Context(), err)
	metrics.ProxyErrorsTotal.WithLabelValues(p.route.Service, kind).Inc()

	log := logger.WithTrace(p.log, r.Header.Get(middleware.TraceHeader))
	log.Warn().
		Err(err).
		Str("service", p.route.Service).
		Str("kind", kind).
		Str("path", r.URL.Path).
		Msg("upstream request failed")

	if f, ok := r.Context().Value(upstreamErrKey{}).(*upstreamErr); ok {
		f.err = mapped
		return
	}
	w.WriteHeader(http.StatusBadGateway)
}

func classify(ctx context.Context, err error) (string, error) {
	var ne net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(ctx.Err(), context.DeadlineExceeded),
		errors.As(err, &ne) && ne.Timeout():
		return "timeout", domain.ErrUpstreamTimeout
	default:
		return "unavailable", domain.ErrUpstreamUnavailable
	}
}

func compactJSONBody(req *http.Request) error {
	if req.Body == nil || req.Body == http.NoBody {
		return nil
	}
	mediaType, _, _ := mime.ParseMediaType(req.Header.Get(echo.HeaderContentType))
	if mediaType != echo.MIMEApplicationJSON && !strings.HasSuffix(mediaType, "+json") {
		return nil
	}

	raw, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return he
		}
		return fmt.Errorf("%w: unreadable body", domain.ErrInvalidInput)
	}

	var buf bytes.Buffer
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Compact(&buf, raw); err != nil {
			return fmt.Errorf("%w: malformed JSON body", domain.ErrInvalidInput)
		}
	}

	body := buf.Bytes()
	req.Body = io.NopCloser(bytes.NewReader(body))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
	req.ContentLength = int64(len(body))
	req.Header.Del(echo.HeaderContentLength)
	return nil
}
