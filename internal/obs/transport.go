package obs

import (
	"net/http"
	"time"
)

// Transport logs one structured event per outbound API call and stamps the
// request with X-Request-Id.
type Transport struct {
	Base http.RoundTripper
	Pkg  string
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx, requestID := EnsureRequestID(req.Context())
	req = req.Clone(ctx)
	req.Header.Set("X-Request-Id", requestID)

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	start := time.Now()
	resp, err := base.RoundTrip(req)
	durMS := float64(time.Since(start).Microseconds()) / 1000.0

	l := From(ctx)
	if t.Pkg != "" {
		l = l.With("pkg", t.Pkg)
	}
	if err != nil {
		l.Warn("api_call_failed",
			"method", req.Method,
			"path", req.URL.Path,
			"dur_ms", durMS,
			"error", err,
		)
		return nil, err
	}
	l.Debug("api_call",
		"method", req.Method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"dur_ms", durMS,
	)
	return resp, nil
}
