package router

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

type HandlerFunc func(http.ResponseWriter, *http.Request)

type route struct {
	method  string
	path    string
	handler HandlerFunc
}

type mount struct {
	prefix  string
	handler http.Handler
}

// Router matches exact paths first, then wildcard routes in registration
// order, then mounted prefixes.
type Router struct {
	routes    map[string]HandlerFunc // key = METHOD:PATH
	paths     map[string]bool        // track registered paths
	wildcards []route
	mounts    []mount
	logger    *zap.Logger
}

func New(logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		routes: make(map[string]HandlerFunc),
		paths:  make(map[string]bool),
		logger: logger,
	}
}

// ServeHTTP dispatches the request and logs it
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	start := time.Now()
	lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

	r.dispatch(lrw, req)

	r.logger.Info("http request",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", lrw.statusCode),
		zap.Duration("duration", time.Since(start)),
	)
}

func (r *Router) dispatch(w http.ResponseWriter, req *http.Request) {
	if h, ok := r.routes[req.Method+":"+req.URL.Path]; ok {
		h(w, req)
		return
	}

	pathMatched := r.paths[req.URL.Path]
	for _, rt := range r.wildcards {
		if !matchWildcardRoute(req.URL.Path, rt.path) {
			continue
		}
		if rt.method == req.Method {
			rt.handler(w, req)
			return
		}
		pathMatched = true
	}

	for _, m := range r.mounts {
		if strings.HasPrefix(req.URL.Path, m.prefix) {
			m.handler.ServeHTTP(w, req)
			return
		}
	}

	if pathMatched {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	http.Error(w, "Not Found", http.StatusNotFound)
}

// matchWildcardRoute checks if a request path matches a wildcard route pattern
func matchWildcardRoute(requestPath, routePattern string) bool {
	requestSegments := strings.Split(strings.Trim(requestPath, "/"), "/")
	routeSegments := strings.Split(strings.Trim(routePattern, "/"), "/")

	// A trailing wildcard matches one or more remaining segments
	if n := len(routeSegments); n > 0 && routeSegments[n-1] == "*" {
		if len(requestSegments) < n {
			return false
		}
		for i := 0; i < n-1; i++ {
			if requestSegments[i] != routeSegments[i] {
				return false
			}
		}
		return requestSegments[n-1] != ""
	}

	if len(requestSegments) != len(routeSegments) {
		return false
	}
	for i, routeSegment := range routeSegments {
		if routeSegment == "*" {
			if requestSegments[i] == "" {
				return false
			}
			continue
		}
		if requestSegments[i] != routeSegment {
			return false
		}
	}
	return true
}

// --- Register paths ---
func (r *Router) register(method, path string, handler HandlerFunc) {
	if strings.Contains(path, "*") {
		r.wildcards = append(r.wildcards, route{method: method, path: path, handler: handler})
		return
	}
	r.routes[method+":"+path] = handler
	r.paths[path] = true
}

func (r *Router) GET(path string, handler HandlerFunc)    { r.register(http.MethodGet, path, handler) }
func (r *Router) POST(path string, handler HandlerFunc)   { r.register(http.MethodPost, path, handler) }
func (r *Router) PUT(path string, handler HandlerFunc)    { r.register(http.MethodPut, path, handler) }
func (r *Router) PATCH(path string, handler HandlerFunc)  { r.register(http.MethodPatch, path, handler) }
func (r *Router) DELETE(path string, handler HandlerFunc) { r.register(http.MethodDelete, path, handler) }

// Mount serves every path under prefix with h, for any method
func (r *Router) Mount(prefix string, h http.Handler) {
	r.mounts = append(r.mounts, mount{prefix: prefix, handler: h})
}

// Getter methods for testing
func (r *Router) Routes() map[string]HandlerFunc {
	return r.routes
}

func (r *Router) Paths() map[string]bool {
	return r.paths
}

// --- Logging response writer to capture status codes ---
type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}
