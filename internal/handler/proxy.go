package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/hafizbahtiar/console/internal/client"
)

// NewUpstreamProxy forwards every request that passed the guard to the
// console frontend.
func NewUpstreamProxy(upstream string, log *slog.Logger) (gin.HandlerFunc, error) {
	target, err := url.Parse(upstream)
	if err != nil || target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("invalid upstream %q", upstream)
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.Error("upstream unavailable", "upstream", target.String(), "path", r.URL.Path, "err", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"message":"upstream unavailable","statusCode":502}`))
	}

	return func(c *gin.Context) {
		c.Request.Header.Set(client.HeaderRequestID, requestid.Get(c))
		proxy.ServeHTTP(c.Writer, c.Request)
	}, nil
}
