package handlers

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/dimitrije/agency-api/internal/config"
	"github.com/dimitrije/agency-api/internal/logging"
	"github.com/m1z23r/drift/pkg/drift"
)

const electricShapePath = "/v1/shape"

// Query parameters a client may pass through to the shape API. Everything
// else, table and where in particular, is set here.
var electricPassthrough = []string{"offset", "handle", "live", "cursor", "columns", "replica"}

// ElectricHandler proxies notification shape requests to Electric, scoped
// to the caller and tenant.
type ElectricHandler struct {
	cfg   config.ElectricConfig
	proxy *httputil.ReverseProxy
}

func NewElectricHandler(cfg config.ElectricConfig) (*ElectricHandler, error) {
	target, err := url.Parse(strings.TrimRight(cfg.URL, "/") + electricShapePath)
	if err != nil {
		return nil, fmt.Errorf("parse electric url: %w", err)
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("electric url %q must be absolute", cfg.URL)
	}

	proxy := &httputil.ReverseProxy{
		Rewrite: func(r *httputil.ProxyRequest) {
			r.Out.URL.Scheme = target.Scheme
			r.Out.URL.Host = target.Host
			r.Out.URL.Path = target.Path
			r.Out.URL.RawPath = ""
			r.Out.URL.RawQuery = r.In.URL.RawQuery
			r.Out.Host = target.Host
			r.Out.Header.Del("Authorization")
			r.Out.Header.Del("Cookie")
			r.SetXForwarded()
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logging.FromContext(r.Context()).Error("electric proxy", "error", err)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"error":"sync service unavailable"}`))
		},
	}

	return &ElectricHandler{cfg: cfg, proxy: proxy}, nil
}

// shapeQuery builds the upstream query: the client's paging parameters plus
// a fixed table and row filter.
func (h *ElectricHandler) shapeQuery(in url.Values, userID, tenantID string) url.Values {
	out := url.Values{}
	for _, key := range electricPassthrough {
		if v := in.Get(key); v != "" {
			out.Set(key, v)
		}
	}
	out.Set("table", "notifications")
	out.Set("where", fmt.Sprintf("user_id = '%s' AND tenant_id = '%s'", userID, tenantID))
	if h.cfg.Secret != "" {
		out.Set("secret", h.cfg.Secret)
	}
	return out
}

func (h *ElectricHandler) Notifications(c *drift.Context) {
	actor, ok := currentMember(c)
	if !ok {
		return
	}

	req := c.Request.Clone(c.Request.Context())
	req.URL.RawQuery = h.shapeQuery(c.Request.URL.Query(), actor.UserID.String(), actor.TenantID.String()).Encode()

	h.proxy.ServeHTTP(c.Response, req)
	c.Abort()
}
