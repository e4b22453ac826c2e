package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"k8s.io/klog/v2"

	"github.com/ppiankov/promptarmor/internal/armor"
)

// hopHeaders are connection-scoped and never forwarded.
var hopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Proxy-Authorization",
	"Proxy-Authenticate",
	"Keep-Alive",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// Config holds proxy server configuration.
type Config struct {
	Port int
}

// Server is a forward HTTP proxy. Plain HTTP exchanges run through the
// hooks; HTTPS CONNECT is tunnelled byte for byte (no TLS interception).
type Server struct {
	cfg       Config
	hooks     armor.Hooks
	transport http.RoundTripper
	srv       *http.Server
}

// NewServer creates a proxy server with the given configuration.
func NewServer(cfg Config, hooks armor.Hooks) *Server {
	// Ignore HTTP_PROXY so a client pointed at us never loops back.
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil

	s := &Server{
		cfg:       cfg,
		hooks:     hooks,
		transport: transport,
	}
	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start begins listening for proxy connections. Blocks until context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.srv.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts proxy connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.srv.Shutdown(shutdownCtx)
	}()

	klog.InfoS("proxy listening", "addr", ln.Addr().String())
	err := s.srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.srv.Addr
}

// ServeHTTP dispatches incoming requests to the appropriate handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodConnect {
		s.handleConnect(w, r)
	} else {
		s.handleHTTP(w, r)
	}
}

// handleHTTP forwards a plain HTTP proxy request with full inspection.
func (s *Server) handleHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Host == "" {
		http.Error(w, "proxy requests must use an absolute URL", http.StatusBadRequest)
		return
	}

	outReq := r.Clone(r.Context())
	outReq.RequestURI = ""
	for _, h := range hopHeaders {
		outReq.Header.Del(h)
	}
	// Responses must come back as text to be restorable.
	outReq.Header.Del("Accept-Encoding")

	host := r.URL.Hostname()
	if err := armor.HookRequest(s.hooks, outReq, host); err != nil {
		http.Error(w, fmt.Sprintf("failed to read request: %v", err), http.StatusBadRequest)
		return
	}

	resp, err := s.transport.RoundTrip(outReq)
	if err != nil {
		http.Error(w, fmt.Sprintf("proxy error: %v", err), http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	for _, h := range hopHeaders {
		resp.Header.Del(h)
	}
	armor.WriteResponse(s.hooks, w, resp, host, r.URL.Path)
}

// handleConnect tunnels HTTPS CONNECT without looking inside.
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	klog.V(2).InfoS("tunnel passthrough", "host", r.Host)

	targetConn, err := net.DialTimeout("tcp", r.Host, 10*time.Second)
	if err != nil {
		http.Error(w, fmt.Sprintf("tunnel error: %v", err), http.StatusBadGateway)
		return
	}

	hijacker, ok := w.(http.Hijacker)
	if !ok {
		targetConn.Close()
		http.Error(w, "hijacking not supported", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)

	clientConn, _, err := hijacker.Hijack()
	if err != nil {
		targetConn.Close()
		klog.V(2).InfoS("hijack failed", "host", r.Host, "err", err)
		return
	}

	// Bidirectional tunnel
	go func() {
		defer targetConn.Close()
		defer clientConn.Close()
		io.Copy(targetConn, clientConn)
	}()
	go func() {
		defer targetConn.Close()
		defer clientConn.Close()
		io.Copy(clientConn, targetConn)
	}()
}
