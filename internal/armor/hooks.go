// Package armor binds the sanitize and restore pipeline to whatever
// interception engine carries the traffic. Adapters translate their
// native request, response and frame types into the structs below and
// call the Hooks methods synchronously on the exchange path.
package armor

// OutboundRequest is a request about to leave for a remote host.
type OutboundRequest struct {
	Host   string
	Method string
	Path   string
	Body   []byte
}

// InboundResponse is a full response body returning from a remote host.
type InboundResponse struct {
	Host string
	Path string
	Body []byte
}

// StreamFrame is one independent frame of a persistent or streamed
// exchange. FromServer is false for frames travelling to the host.
type StreamFrame struct {
	Host       string
	Path       string
	FromServer bool
	Payload    []byte
}

// Hooks is the capability an interception engine invokes. Each method
// returns the (possibly unchanged) content and whether it was modified.
// Implementations never fail: on any problem they return the input.
type Hooks interface {
	OnOutboundRequest(req OutboundRequest) ([]byte, bool)
	OnInboundResponse(resp InboundResponse) ([]byte, bool)
	OnStreamFrame(frame StreamFrame) ([]byte, bool)
}
