package armor

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"k8s.io/klog/v2"
)

// MaxBody is the largest body an adapter buffers for hooking. Larger
// bodies are forwarded untouched.
const MaxBody = 10 << 20

// maxFrame bounds a single event-stream line. Longer lines pass
// through unrestored.
const maxFrame = 1 << 20

var newline = []byte{'\n'}

// HookRequest passes r's body through OnOutboundRequest and installs
// the result as the new body. Encoded or oversized bodies are left as
// they are. host is the destination hostname used for filtering.
func HookRequest(h Hooks, r *http.Request, host string) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	if !IsIdentity(r.Header.Get("Content-Encoding")) || r.ContentLength > MaxBody {
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, MaxBody+1))
	if err != nil {
		return fmt.Errorf("read request body: %w", err)
	}
	if len(body) > MaxBody {
		r.Body = struct {
			io.Reader
			io.Closer
		}{io.MultiReader(bytes.NewReader(body), r.Body), r.Body}
		return nil
	}
	r.Body.Close()

	out, _ := h.OnOutboundRequest(OutboundRequest{
		Host:   host,
		Method: r.Method,
		Path:   r.URL.Path,
		Body:   body,
	})
	setBody(r, out)
	return nil
}

func setBody(r *http.Request, body []byte) {
	r.Body = io.NopCloser(bytes.NewReader(body))
	r.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
	r.ContentLength = int64(len(body))
	r.Header.Del("Content-Length")
}

// WriteResponse copies resp to w, restoring placeholders on the way.
// Event streams are handled line by line, each line an independent
// frame; other text bodies are restored whole with a corrected
// Content-Length. Encoded or oversized bodies pass through.
func WriteResponse(h Hooks, w http.ResponseWriter, resp *http.Response, host, path string) {
	encoded := !IsIdentity(resp.Header.Get("Content-Encoding"))

	if !encoded && IsEventStream(resp.Header.Get("Content-Type")) {
		if fl, ok := w.(http.Flusher); ok {
			writeStream(h, w, fl, resp, host, path)
			return
		}
	}

	if encoded {
		CopyHeaders(w, resp.Header)
		w.WriteHeader(resp.StatusCode)
		io.Copy(w, resp.Body)
		return
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBody+1))
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to read upstream response: %v", err), http.StatusBadGateway)
		return
	}
	if len(body) > MaxBody {
		CopyHeaders(w, resp.Header)
		w.WriteHeader(resp.StatusCode)
		w.Write(body)
		io.Copy(w, resp.Body)
		return
	}

	out, _ := h.OnInboundResponse(InboundResponse{Host: host, Path: path, Body: body})

	CopyHeaders(w, resp.Header)
	w.Header().Set("Content-Length", strconv.Itoa(len(out)))
	w.WriteHeader(resp.StatusCode)
	w.Write(out)
}

func writeStream(h Hooks, w http.ResponseWriter, fl http.Flusher, resp *http.Response, host, path string) {
	CopyHeaders(w, resp.Header)
	w.Header().Del("Content-Length")
	w.WriteHeader(resp.StatusCode)
	fl.Flush()

	if err := copyFrames(h, fl.Flush, w, resp.Body, host, path); err != nil {
		klog.V(2).InfoS("event stream ended early", "host", host, "err", err)
	}
}

// RestoreResponse rewrites resp's body in place for callers that own the
// response, such as an http.RoundTripper. Event streams are restored
// line by line as the caller reads them.
func RestoreResponse(h Hooks, resp *http.Response, host, path string) error {
	if resp.Body == nil || resp.Body == http.NoBody || !IsIdentity(resp.Header.Get("Content-Encoding")) {
		return nil
	}

	if IsEventStream(resp.Header.Get("Content-Type")) {
		resp.Body = newFrameReader(h, resp.Body, host, path)
		resp.ContentLength = -1
		resp.Header.Del("Content-Length")
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBody+1))
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	if len(body) > MaxBody {
		resp.Body = struct {
			io.Reader
			io.Closer
		}{io.MultiReader(bytes.NewReader(body), resp.Body), resp.Body}
		return nil
	}
	resp.Body.Close()

	out, _ := h.OnInboundResponse(InboundResponse{Host: host, Path: path, Body: body})
	resp.Body = io.NopCloser(bytes.NewReader(out))
	resp.ContentLength = int64(len(out))
	resp.Header.Set("Content-Length", strconv.Itoa(len(out)))
	return nil
}

// frameReader serves a restored event stream through a pipe. Closing it
// closes the upstream body.
type frameReader struct {
	*io.PipeReader
	body io.Closer
}

func (f *frameReader) Close() error {
	f.PipeReader.Close()
	return f.body.Close()
}

func newFrameReader(h Hooks, body io.ReadCloser, host, path string) io.ReadCloser {
	pr, pw := io.Pipe()
	go func() {
		defer body.Close()
		pw.CloseWithError(copyFrames(h, func() {}, pw, body, host, path))
	}()
	return &frameReader{PipeReader: pr, body: body}
}

// copyFrames restores src line by line into dst, calling flush after
// each line. Line endings are kept as received. A line longer than
// maxFrame is written through unmodified and the stream carries on.
func copyFrames(h Hooks, flush func(), dst io.Writer, src io.Reader, host, path string) error {
	br := bufio.NewReaderSize(src, 64*1024)
	var line []byte
	for {
		chunk, err := br.ReadSlice('\n')
		if err == bufio.ErrBufferFull {
			if len(line)+len(chunk) <= maxFrame {
				line = append(line, chunk...)
				continue
			}
			if err := passLine(dst, br, line, chunk); err != nil {
				return err
			}
			klog.V(2).InfoS("oversized stream line passed through", "host", host, "limit", maxFrame)
			line = line[:0]
			flush()
			continue
		}
		if err != nil && err != io.EOF {
			return err
		}

		line = append(line, chunk...)
		if len(line) > 0 {
			payload, nl := line, false
			if payload[len(payload)-1] == '\n' {
				payload, nl = payload[:len(payload)-1], true
			}
			out, _ := h.OnStreamFrame(StreamFrame{
				Host:       host,
				Path:       path,
				FromServer: true,
				Payload:    payload,
			})
			if _, werr := dst.Write(out); werr != nil {
				return werr
			}
			if nl {
				if _, werr := dst.Write(newline); werr != nil {
					return werr
				}
			}
			flush()
		}
		line = line[:0]
		if err == io.EOF {
			return nil
		}
	}
}

// passLine writes the buffered start of a line followed by the rest of
// it, up to and including the next newline, without looking inside.
func passLine(dst io.Writer, br *bufio.Reader, head, chunk []byte) error {
	if _, err := dst.Write(head); err != nil {
		return err
	}
	for {
		if _, err := dst.Write(chunk); err != nil {
			return err
		}
		var err error
		chunk, err = br.ReadSlice('\n')
		if err == bufio.ErrBufferFull {
			continue
		}
		if err != nil && err != io.EOF {
			return err
		}
		if _, werr := dst.Write(chunk); werr != nil {
			return werr
		}
		return nil
	}
}

// IsIdentity reports whether a Content-Encoding value means the body
// is not compressed.
func IsIdentity(encoding string) bool {
	encoding = strings.TrimSpace(strings.ToLower(encoding))
	return encoding == "" || encoding == "identity"
}

// IsEventStream reports whether a Content-Type is text/event-stream.
func IsEventStream(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "text/event-stream")
}

// CopyHeaders copies every header value from src to w.
func CopyHeaders(w http.ResponseWriter, src http.Header) {
	for k, vv := range src {
		for _, v := range vv {
			w.Header().Add(k, v)
		}
	}
}
