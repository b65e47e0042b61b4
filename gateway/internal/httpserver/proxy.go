package httpserver

import (
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	echo "github.com/labstack/echo/v4"

	"github.com/Skotchmaster/sweet_shop/pkg/logging"
)

// upstreamTransport is shared by every proxied service.
var upstreamTransport = &http.Transport{
	Proxy: http.ProxyFromEnvironment,
	DialContext: (&net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 60 * time.Second,
	}).DialContext,
	MaxIdleConns:          200,
	MaxIdleConnsPerHost:   50,
	IdleConnTimeout:       90 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	ExpectContinueTimeout: 1 * time.Second,
}

// newProxy forwards to target with stripPrefix removed from the path.
// Websocket upgrades pass through unchanged.
func newProxy(name, target, stripPrefix string) (echo.HandlerFunc, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, err
	}

	p := &httputil.ReverseProxy{
		Transport:     upstreamTransport,
		FlushInterval: 100 * time.Millisecond,
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(u)
			pr.SetXForwarded()

			if stripPrefix == "" {
				return
			}
			out := pr.Out.URL
			out.Path = trimPrefix(out.Path, u.Path+stripPrefix, u.Path)
			if out.RawPath != "" {
				out.RawPath = trimPrefix(out.RawPath, u.Path+stripPrefix, u.Path)
			}
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logging.FromContext(r.Context()).Error("upstream_error", "upstream", name, "error", err)
			w.WriteHeader(http.StatusBadGateway)
		},
	}

	return func(c echo.Context) error {
		p.ServeHTTP(c.Response(), c.Request())
		return nil
	}, nil
}

func trimPrefix(path, prefix, base string) string {
	if !strings.HasPrefix(path, prefix) {
		return path
	}
	rest := strings.TrimPrefix(path, prefix)
	if rest == "" || rest[0] != '/' {
		rest = "/" + rest
	}
	return strings.TrimSuffix(base, "/") + rest
}
