// Package pages forwards guarded page traffic to the rendering origin.
package pages

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Proxy forwards requests that passed the access guard to the app origin
type Proxy struct {
	proxy *httputil.ReverseProxy
}

// NewProxy creates a reverse proxy to the rendering origin
func NewProxy(appOrigin string, logger *zap.Logger) (*Proxy, error) {
	target, err := url.Parse(appOrigin)
	if err != nil {
		return nil, fmt.Errorf("invalid app origin %q: %w", appOrigin, err)
	}

	rp := httputil.NewSingleHostReverseProxy(target)
	rp.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Error("upstream page fetch failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		w.WriteHeader(http.StatusBadGateway)
	}

	return &Proxy{proxy: rp}, nil
}

// Handle serves a page request through the proxy
func (p *Proxy) Handle(c *gin.Context) {
	p.proxy.ServeHTTP(c.Writer, c.Request)
}
