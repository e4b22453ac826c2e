package dashboard

import (
	"context"
	"fmt"
	"sync"

	"k8s.io/klog/v2"

	"github.com/ppiankov/promptarmor/internal/model"
)

// Subscriber is one live receiver of snapshots. Implementations must be
// comparable (pointer types) and bound their own send time.
type Subscriber interface {
	Send(ctx context.Context, snap model.Snapshot) error
	Close() error
}

// Broadcaster keeps the live subscriber set and fans snapshots out to it.
// A subscriber that fails a send is closed and removed; it must
// subscribe again to rejoin.
type Broadcaster struct {
	source func() model.Snapshot

	mu   sync.Mutex
	subs map[Subscriber]struct{}

	// pubMu orders publishes so the last delivered snapshot is the freshest.
	pubMu sync.Mutex
}

// NewBroadcaster creates a Broadcaster that reads the current snapshot
// from source on subscribe and on PublishLatest.
func NewBroadcaster(source func() model.Snapshot) *Broadcaster {
	return &Broadcaster{
		source: source,
		subs:   make(map[Subscriber]struct{}),
	}
}

// Subscribe adds sub to the live set and immediately sends it the
// current snapshot. If that first send fails, sub is closed, removed,
// and the error is returned.
func (b *Broadcaster) Subscribe(ctx context.Context, sub Subscriber) error {
	b.pubMu.Lock()
	defer b.pubMu.Unlock()

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	if err := sub.Send(ctx, b.source()); err != nil {
		b.remove(sub)
		return fmt.Errorf("initial snapshot: %w", err)
	}
	return nil
}

// Unsubscribe removes sub from the live set without closing it.
// Removing an unknown subscriber is a no-op.
func (b *Broadcaster) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	delete(b.subs, sub)
	b.mu.Unlock()
}

// Publish sends snap to every live subscriber, then prunes the ones
// whose send failed. It returns the number of successful deliveries.
func (b *Broadcaster) Publish(ctx context.Context, snap model.Snapshot) int {
	b.pubMu.Lock()
	defer b.pubMu.Unlock()
	return b.publish(ctx, snap)
}

// PublishLatest reads the current snapshot and publishes it. The read
// happens inside the publish critical section.
func (b *Broadcaster) PublishLatest(ctx context.Context) int {
	b.pubMu.Lock()
	defer b.pubMu.Unlock()
	return b.publish(ctx, b.source())
}

func (b *Broadcaster) publish(ctx context.Context, snap model.Snapshot) int {
	live := b.live()
	if len(live) == 0 {
		return 0
	}

	errs := make([]error, len(live))
	var wg sync.WaitGroup
	for i, sub := range live {
		wg.Add(1)
		go func(i int, sub Subscriber) {
			defer wg.Done()
			errs[i] = sub.Send(ctx, snap)
		}(i, sub)
	}
	wg.Wait()

	delivered := 0
	for i, err := range errs {
		if err == nil {
			delivered++
			continue
		}
		klog.V(2).InfoS("dropping dashboard subscriber", "err", err)
		b.remove(live[i])
	}
	return delivered
}

// Len returns the number of live subscribers.
func (b *Broadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close closes and removes every subscriber.
func (b *Broadcaster) Close() {
	for _, sub := range b.live() {
		b.remove(sub)
	}
}

func (b *Broadcaster) live() []Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Subscriber, 0, len(b.subs))
	for sub := range b.subs {
		out = append(out, sub)
	}
	return out
}

func (b *Broadcaster) remove(sub Subscriber) {
	b.mu.Lock()
	_, ok := b.subs[sub]
	delete(b.subs, sub)
	b.mu.Unlock()
	if ok {
		sub.Close()
	}
}
