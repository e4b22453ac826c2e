package dashboard

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/promptarmor/internal/analytics"
	"github.com/ppiankov/promptarmor/internal/model"
)

type fakeSub struct {
	mu     sync.Mutex
	fail   bool
	got    []model.Snapshot
	closed bool
}

func (f *fakeSub) Send(_ context.Context, snap model.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("broken pipe")
	}
	f.got = append(f.got, snap)
	return nil
}

func (f *fakeSub) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeSub) received() []model.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Snapshot(nil), f.got...)
}

func (f *fakeSub) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func sanitizedEvent() model.Event {
	return model.NewSanitizedRequest(
		model.Exchange{Domain: "api.openai.com", Provider: "openai", Method: "POST", Path: "/v1/chat"},
		map[string]int{"EMAIL": 1}, 2, nil)
}

func TestSubscribeSendsCurrentSnapshot(t *testing.T) {
	agg := analytics.NewAggregator()
	b := NewBroadcaster(agg.Snapshot)

	for i := 0; i < 5; i++ {
		agg.Apply(sanitizedEvent())
	}

	late := &fakeSub{}
	require.NoError(t, b.Subscribe(context.Background(), late))

	got := late.received()
	require.Len(t, got, 1)
	assert.Equal(t, 5, got[0].Summary.TotalSanitized)
	assert.Equal(t, 1, b.Len())
}

func TestSubscribeFailureRemovesSubscriber(t *testing.T) {
	b := NewBroadcaster(analytics.NewAggregator().Snapshot)

	bad := &fakeSub{fail: true}
	require.Error(t, b.Subscribe(context.Background(), bad))
	assert.Equal(t, 0, b.Len())
	assert.True(t, bad.isClosed())
}

func TestPublishPrunesOnlyFailedSubscriber(t *testing.T) {
	agg := analytics.NewAggregator()
	b := NewBroadcaster(agg.Snapshot)

	a, c, bad := &fakeSub{}, &fakeSub{}, &fakeSub{}
	for _, s := range []*fakeSub{a, bad, c} {
		require.NoError(t, b.Subscribe(context.Background(), s))
	}
	require.Equal(t, 3, b.Len())

	bad.mu.Lock()
	bad.fail = true
	bad.mu.Unlock()

	agg.Apply(sanitizedEvent())
	delivered := b.PublishLatest(context.Background())

	assert.Equal(t, 2, delivered)
	assert.Equal(t, 2, b.Len())
	assert.True(t, bad.isClosed())
	assert.False(t, a.isClosed())
	assert.False(t, c.isClosed())

	for _, s := range []*fakeSub{a, c} {
		got := s.received()
		require.Len(t, got, 2)
		assert.Equal(t, 1, got[1].Summary.TotalSanitized)
	}

	// The pruned subscriber stays gone on later publishes.
	agg.Apply(sanitizedEvent())
	assert.Equal(t, 2, b.PublishLatest(context.Background()))
	assert.Len(t, bad.received(), 1)
}

func TestPublishWithNoSubscribers(t *testing.T) {
	b := NewBroadcaster(analytics.NewAggregator().Snapshot)
	assert.Equal(t, 0, b.Publish(context.Background(), model.Snapshot{}))
}

func TestUnsubscribeDoesNotClose(t *testing.T) {
	b := NewBroadcaster(analytics.NewAggregator().Snapshot)
	s := &fakeSub{}
	require.NoError(t, b.Subscribe(context.Background(), s))

	b.Unsubscribe(s)
	b.Unsubscribe(s)

	assert.Equal(t, 0, b.Len())
	assert.False(t, s.isClosed())
}

func TestCloseClosesAll(t *testing.T) {
	b := NewBroadcaster(analytics.NewAggregator().Snapshot)
	subs := []*fakeSub{{}, {}, {}}
	for _, s := range subs {
		require.NoError(t, b.Subscribe(context.Background(), s))
	}

	b.Close()

	assert.Equal(t, 0, b.Len())
	for _, s := range subs {
		assert.True(t, s.isClosed())
	}
}

func TestConcurrentPublishLastSnapshotIsFreshest(t *testing.T) {
	agg := analytics.NewAggregator()
	b := NewBroadcaster(agg.Snapshot)
	s := &fakeSub{}
	require.NoError(t, b.Subscribe(context.Background(), s))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			agg.Apply(sanitizedEvent())
			b.PublishLatest(context.Background())
		}()
	}
	wg.Wait()

	got := s.received()
	require.Len(t, got, 51)
	assert.Equal(t, 50, got[len(got)-1].Summary.TotalSanitized)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i].Summary.TotalSanitized, got[i-1].Summary.TotalSanitized)
	}
}
