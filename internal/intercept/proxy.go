package intercept

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"k8s.io/klog/v2"

	"github.com/ppiankov/promptarmor/internal/armor"
)

// Config holds interceptor proxy configuration.
type Config struct {
	Port     int
	Upstream string // e.g. "https://api.openai.com"
}

// Server is a reverse HTTP proxy in front of one AI provider. Request
// bodies are sanitized on the way out and responses, including event
// streams, are restored on the way back.
type Server struct {
	cfg       Config
	upstream  *url.URL
	hooks     armor.Hooks
	transport http.RoundTripper
	srv       *http.Server
}

// NewServer creates an interceptor proxy that runs every exchange
// through hooks.
func NewServer(cfg Config, hooks armor.Hooks) (*Server, error) {
	upstream, err := url.Parse(cfg.Upstream)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream URL: %w", err)
	}
	if upstream.Scheme == "" || upstream.Host == "" {
		return nil, fmt.Errorf("invalid upstream URL %q: scheme and host required", cfg.Upstream)
	}

	s := &Server{
		cfg:       cfg,
		upstream:  upstream,
		hooks:     hooks,
		transport: http.DefaultTransport,
	}
	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Upstream returns the parsed upstream URL.
func (s *Server) Upstream() *url.URL { return s.upstream }

// Start begins listening. Blocks until context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.srv.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.srv.Shutdown(shutdownCtx)
	}()

	klog.InfoS("interceptor listening", "addr", ln.Addr().String(), "upstream", s.upstream.String())
	err := s.srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// ServeHTTP forwards the request upstream and restores the response.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	host := s.upstream.Hostname()

	outURL := *s.upstream
	outURL.Path = singleJoin(s.upstream.Path, r.URL.Path)
	outURL.RawQuery = r.URL.RawQuery

	outReq, err := http.NewRequestWithContext(r.Context(), r.Method, outURL.String(), r.Body)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to create request: %v", err), http.StatusInternalServerError)
		return
	}

	// Copy all headers (preserves Authorization, anthropic-version, etc.)
	for k, vv := range r.Header {
		for _, v := range vv {
			outReq.Header.Add(k, v)
		}
	}
	outReq.Host = s.upstream.Host
	outReq.ContentLength = r.ContentLength
	// Responses must come back as text to be restorable.
	outReq.Header.Del("Accept-Encoding")

	if err := armor.HookRequest(s.hooks, outReq, host); err != nil {
		http.Error(w, fmt.Sprintf("failed to read request: %v", err), http.StatusBadRequest)
		return
	}

	resp, err := s.transport.RoundTrip(outReq)
	if err != nil {
		http.Error(w, fmt.Sprintf("upstream error: %v", err), http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	armor.WriteResponse(s.hooks, w, resp, host, r.URL.Path)
}

func singleJoin(base, path string) string {
	switch {
	case base == "" || base == "/":
		return path
	case path == "" || path == "/":
		return base
	case base[len(base)-1] == '/' && path[0] == '/':
		return base + path[1:]
	case base[len(base)-1] != '/' && path[0] != '/':
		return base + "/" + path
	}
	return base + path
}
