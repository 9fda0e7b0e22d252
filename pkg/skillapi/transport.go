package skillapi

import (
	"context"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// caller performs one named remote call. Implementations return raw errors;
// the client wraps them into RemoteCallError.
type caller interface {
	call(ctx context.Context, method string, arg any) (any, error)
	close() error
}

// noArg marks a remote call that takes no parameters.
var noArg any

type basicAuthTransport struct {
	username string
	password string
	base     http.RoundTripper
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.SetBasicAuth(t.username, t.password)
	return t.base.RoundTrip(req)
}

// newRoundTripper builds the HTTP transport shared by both wire formats.
// timeout bounds dialing and waiting for response headers; zero leaves them open.
func newRoundTripper(base http.RoundTripper, username, password string, timeout time.Duration) http.RoundTripper {
	if base == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if timeout > 0 {
			transport.DialContext = (&net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}).DialContext
			transport.ResponseHeaderTimeout = timeout
		}
		// one call per process, nothing to keep warm
		transport.DisableKeepAlives = true
		base = transport
	}

	if username != "" {
		base = &basicAuthTransport{username: username, password: password, base: base}
	}

	return otelhttp.NewTransport(base,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return "skillapi " + r.Method + " " + r.URL.Path
		}),
	)
}
