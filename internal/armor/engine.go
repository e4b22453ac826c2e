package armor

import (
	"sync/atomic"

	"k8s.io/klog/v2"

	"github.com/ppiankov/promptarmor/internal/filter"
	"github.com/ppiankov/promptarmor/internal/model"
	"github.com/ppiankov/promptarmor/internal/redact"
	"github.com/ppiankov/promptarmor/internal/telemetry"
)

// StreamMethod is the method reported for client-to-host stream frames.
const StreamMethod = "STREAM"

// Engine implements Hooks over a shared Vault. The Filter and Registry
// can be swapped at runtime; the Vault lives as long as the Engine.
type Engine struct {
	vault    *redact.Vault
	emitter  telemetry.Emitter
	filter   atomic.Pointer[filter.Filter]
	registry atomic.Pointer[redact.Registry]
}

var _ Hooks = (*Engine)(nil)

// New creates an Engine. A nil emitter disables telemetry.
func New(f *filter.Filter, reg *redact.Registry, v *redact.Vault, em telemetry.Emitter) *Engine {
	if em == nil {
		em = telemetry.Nop{}
	}
	e := &Engine{vault: v, emitter: em}
	e.filter.Store(f)
	e.registry.Store(reg)
	return e
}

// Vault returns the engine's token vault.
func (e *Engine) Vault() *redact.Vault { return e.vault }

// Registry returns the active pattern registry.
func (e *Engine) Registry() *redact.Registry { return e.registry.Load() }

// Filter returns the active traffic filter.
func (e *Engine) Filter() *filter.Filter { return e.filter.Load() }

// SetRegistry swaps the pattern registry used for new exchanges.
func (e *Engine) SetRegistry(reg *redact.Registry) { e.registry.Store(reg) }

// SetFilter swaps the traffic filter used for new exchanges.
func (e *Engine) SetFilter(f *filter.Filter) { e.filter.Store(f) }

// OnOutboundRequest sanitizes a POST text body bound for a target host.
func (e *Engine) OnOutboundRequest(req OutboundRequest) ([]byte, bool) {
	f := e.filter.Load()
	if !f.IsTarget(req.Host) {
		return req.Body, false
	}
	if !filter.IsEligibleBody(req.Method, filter.IsText(req.Body)) {
		return req.Body, false
	}
	return e.sanitize(f, req.Host, req.Method, req.Path, req.Body)
}

// OnInboundResponse restores placeholders in a text response from a
// target host.
func (e *Engine) OnInboundResponse(resp InboundResponse) ([]byte, bool) {
	f := e.filter.Load()
	if !f.IsTarget(resp.Host) || !filter.IsText(resp.Body) {
		return resp.Body, false
	}
	out, ok := redact.Restore(string(resp.Body), e.vault)
	if !ok {
		return resp.Body, false
	}
	e.restored(f, resp.Host, resp.Path)
	return []byte(out), true
}

// OnStreamFrame restores host-to-client frames and sanitizes
// client-to-host text frames. Each frame is handled on its own.
func (e *Engine) OnStreamFrame(frame StreamFrame) ([]byte, bool) {
	f := e.filter.Load()
	if !f.IsTarget(frame.Host) {
		return frame.Payload, false
	}

	if frame.FromServer {
		out, ok := redact.RestoreFrame(frame.Payload, e.vault)
		if ok {
			e.restored(f, frame.Host, frame.Path)
		}
		return out, ok
	}

	if !filter.IsText(frame.Payload) {
		return frame.Payload, false
	}
	return e.sanitize(f, frame.Host, StreamMethod, frame.Path, frame.Payload)
}

func (e *Engine) sanitize(f *filter.Filter, host, method, path string, body []byte) ([]byte, bool) {
	provider := f.Provider(host)
	e.emitter.Emit(model.NewRequestSeen(host, provider))

	reg := e.registry.Load()
	res := redact.Sanitize(string(body), reg, e.vault)
	if !res.Changed() {
		return body, false
	}

	risk := redact.Score(res.Counts, reg)
	ex := model.Exchange{
		Domain:   host,
		Provider: provider,
		Method:   method,
		Path:     path,
		Size:     len(body),
	}
	e.emitter.Emit(model.NewSanitizedRequest(ex, res.Counts, risk, res.Replacements))

	klog.V(1).InfoS("sanitized request",
		"host", host, "provider", provider, "method", method,
		"replacements", len(res.Replacements), "types", res.Counts, "risk", risk,
		"vault_size", e.vault.Len())
	return []byte(res.Text), true
}

func (e *Engine) restored(f *filter.Filter, host, path string) {
	provider := f.Provider(host)
	e.emitter.Emit(model.NewRestoredResponse(host, provider))
	klog.V(1).InfoS("restored response", "host", host, "provider", provider, "path", path)
}
