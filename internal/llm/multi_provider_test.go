package llm

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeProvider struct {
	name  string
	out   string
	err   error
	delay time.Duration

	calls    atomic.Int32
	inflight atomic.Int32
	peak     atomic.Int32
	closed   atomic.Bool
}

func (f *fakeProvider) Generate(ctx context.Context, _ string) (string, error) {
	f.calls.Add(1)
	n := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.out, f.err
}

func (f *fakeProvider) Close() error {
	f.closed.Store(true)
	return nil
}

func (f *fakeProvider) GetModelInfo() map[string]interface{} {
	return map[string]interface{}{"provider": f.name}
}

func TestMultiProviderFailover(t *testing.T) {
	bad := &fakeProvider{name: "bad", err: errors.New("connection refused")}
	good := &fakeProvider{name: "good", out: "verdict"}

	client, err := NewMultiProviderClient([]Generator{bad, good}, 1, zap.NewNop())
	require.NoError(t, err)

	out, err := client.Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "verdict", out)

	info := client.GetModelInfo()
	assert.Equal(t, "good", info["provider"])
	assert.Equal(t, 1, info["provider_index"])

	_, err = client.Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, int32(1), bad.calls.Load())
}

func TestMultiProviderKeepsProviderBelowThreshold(t *testing.T) {
	flaky := &fakeProvider{name: "flaky", err: errors.New("timeout")}
	backup := &fakeProvider{name: "backup", out: "ok"}

	client, err := NewMultiProviderClient([]Generator{flaky, backup}, 3, zap.NewNop())
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "flaky", client.GetModelInfo()["provider"])
}

func TestMultiProviderSwitchesOnRateLimit(t *testing.T) {
	limited := &fakeProvider{name: "limited", err: errors.New("groq API returned status 429: slow down")}
	backup := &fakeProvider{name: "backup", out: "ok"}

	client, err := NewMultiProviderClient([]Generator{limited, backup}, 10, zap.NewNop())
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "backup", client.GetModelInfo()["provider"])
}

func TestMultiProviderAllFail(t *testing.T) {
	cause := errors.New("model not loaded")
	client, err := NewMultiProviderClient([]Generator{
		&fakeProvider{err: errors.New("first")},
		&fakeProvider{err: cause},
	}, 3, zap.NewNop())
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), "p")

	assert.ErrorIs(t, err, ErrAllProvidersFailed)
	assert.ErrorIs(t, err, cause)
}

func TestMultiProviderCancelled(t *testing.T) {
	p := &fakeProvider{out: "ok"}
	client, err := NewMultiProviderClient([]Generator{p}, 3, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = client.Generate(ctx, "p")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, p.calls.Load())
}

func TestMultiProviderRequiresProviders(t *testing.T) {
	_, err := NewMultiProviderClient(nil, 3, zap.NewNop())
	assert.ErrorIs(t, err, ErrNoProviders)
}

func TestMultiProviderClose(t *testing.T) {
	a, b := &fakeProvider{}, &fakeProvider{}
	client, err := NewMultiProviderClient([]Generator{a, b}, 3, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, client.Close())
	assert.True(t, a.closed.Load())
	assert.True(t, b.closed.Load())
	assert.Len(t, client.GetProvidersInfo(), 2)
}

func TestRateLimiterBlocksWhenEmpty(t *testing.T) {
	rl := NewRateLimiter(1)
	require.NoError(t, rl.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, rl.Wait(ctx), context.DeadlineExceeded)
}

func TestRateLimiterRefills(t *testing.T) {
	rl := NewRateLimiter(60000)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	for i := 0; i < 60010; i++ {
		require.NoError(t, rl.Wait(ctx))
	}
}

func TestRateLimitedProviderSerializes(t *testing.T) {
	inner := &fakeProvider{out: "ok", delay: 5 * time.Millisecond}
	p := NewRateLimitedProvider(inner, 6000, 1, zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.Generate(context.Background(), "p")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(8), inner.calls.Load())
	assert.Equal(t, int32(1), inner.peak.Load())
}
