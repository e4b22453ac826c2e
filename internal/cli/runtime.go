package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"k8s.io/klog/v2"

	"github.com/ppiankov/promptarmor/internal/armor"
	"github.com/ppiankov/promptarmor/internal/config"
	"github.com/ppiankov/promptarmor/internal/redact"
	"github.com/ppiankov/promptarmor/internal/telemetry"
)

// runtime is the state shared by the long-running commands: the loaded
// config and one engine whose vault lives for the whole process.
type runtime struct {
	path    string
	hash    string
	cfg     *config.Config
	engine  *armor.Engine
	emitter telemetry.Emitter
}

// loadRuntime resolves and loads the config and builds the engine. A nil
// emitter means telemetry goes to the configured sink.
func loadRuntime(em telemetry.Emitter) (*runtime, error) {
	path := config.ResolvePath(configPath)
	cfg, hash, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	reg, err := cfg.Registry()
	if err != nil {
		return nil, err
	}
	if em == nil {
		em = telemetry.New(cfg.Telemetry)
	}

	return &runtime{
		path:    path,
		hash:    hash,
		cfg:     cfg,
		engine:  armor.New(cfg.Filter(), reg, redact.NewVault(), em),
		emitter: em,
	}, nil
}

// apply swaps the engine's registry and filter for the ones in cfg. The
// vault is kept so tokens already handed out still restore.
func (rt *runtime) apply(cfg *config.Config, hash string) {
	reg, err := cfg.Registry()
	if err != nil {
		klog.ErrorS(err, "reloaded config rejected", "path", rt.path)
		return
	}
	rt.engine.SetRegistry(reg)
	rt.engine.SetFilter(cfg.Filter())
	klog.InfoS("engine updated", "patterns", len(reg.Patterns()), "targets", len(cfg.Filter().Targets()), "hash", hash)
}

// watcher returns a reloader for the config file, or nil when the file
// cannot be watched. Telemetry and dashboard settings are not reloaded.
func (rt *runtime) watcher() *config.Reloader {
	if rt.path == "" {
		return nil
	}
	r, err := config.NewReloader(rt.path, rt.hash, rt.apply)
	if err != nil {
		klog.V(1).InfoS("config hot-reload disabled", "path", rt.path, "err", err)
		return nil
	}
	return r
}

// printSummary prints the shutdown summary: the vault size and, when the
// emitter keeps count, how many telemetry events were lost.
func printSummary(w io.Writer, rt *runtime) {
	fmt.Fprintf(w, "Vault size: %d\n", rt.engine.Vault().Len())
	if c, ok := rt.emitter.(telemetry.Counter); ok {
		fmt.Fprintf(w, "Telemetry: %d dropped, %d failed\n", c.Dropped(), c.Failed())
	}
}

// signalContext returns a context cancelled on SIGINT or SIGTERM. msg is
// printed to stderr when a signal arrives.
func signalContext(msg string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigCh)
		select {
		case <-sigCh:
			fmt.Fprintln(os.Stderr, msg)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
