package httpx

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CORSPolicy defines the CORS headers to emit for matching origins.
type CORSPolicy struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowCredentials bool
	MaxAge           time.Duration
}

type corsResponder struct {
	origins     []string
	wildcard    bool
	methods     string
	headers     string
	credentials bool
	maxAge      string
}

// WithCORS adds basic CORS handling. If AllowedOrigins is empty, it is a no-op.
func WithCORS(cfg CORSPolicy) Middleware {
	if len(cfg.AllowedOrigins) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	c := corsResponder{
		methods:     joinTrimmed(cfg.AllowedMethods),
		headers:     joinTrimmed(cfg.AllowedHeaders),
		credentials: cfg.AllowCredentials,
	}
	for _, o := range cfg.AllowedOrigins {
		o = strings.TrimSpace(o)
		if o == "*" {
			c.wildcard = true
		} else if o != "" {
			c.origins = append(c.origins, o)
		}
	}
	if secs := int(cfg.MaxAge.Seconds()); secs > 0 {
		c.maxAge = strconv.Itoa(secs)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			allow := c.resolve(origin)
			if allow == "" {
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("Access-Control-Allow-Origin", allow)
			if c.credentials {
				h.Set("Access-Control-Allow-Credentials", "true")
			}
			h.Add("Vary", "Origin")
			h.Add("Vary", "Access-Control-Request-Method")
			h.Add("Vary", "Access-Control-Request-Headers")

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				if c.methods != "" {
					h.Set("Access-Control-Allow-Methods", c.methods)
				}
				if c.headers != "" {
					h.Set("Access-Control-Allow-Headers", c.headers)
				}
				if c.maxAge != "" {
					h.Set("Access-Control-Max-Age", c.maxAge)
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// resolve returns the Access-Control-Allow-Origin value for origin, or ""
// when the origin is absent or not allowed.
func (c corsResponder) resolve(origin string) string {
	if origin == "" {
		return ""
	}
	for _, candidate := range c.origins {
		if strings.EqualFold(candidate, origin) {
			return origin
		}
	}
	if c.wildcard {
		// The wildcard form is invalid with credentials, so echo the origin.
		if c.credentials {
			return origin
		}
		return "*"
	}
	return ""
}

func joinTrimmed(values []string) string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return strings.Join(out, ", ")
}
