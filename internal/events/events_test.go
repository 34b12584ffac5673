package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aroundtable/pkg/platform/circuit"
	"aroundtable/pkg/requestcontext"
)

type recordingPublisher struct {
	err    error
	events []Event
}

func (r *recordingPublisher) Publish(_ context.Context, e Event) error {
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, e)
	return nil
}

type countingPublisher struct {
	mu    sync.Mutex
	err   error
	block chan struct{}
	calls atomic.Int32
}

func (c *countingPublisher) setErr(err error) {
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
}

func (c *countingPublisher) Publish(context.Context, Event) error {
	c.calls.Add(1)
	if c.block != nil {
		<-c.block
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

var start = time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC)

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	pub := NewLogPublisher(slog.New(slog.NewJSONHandler(&buf, nil)))

	err := pub.Publish(context.Background(), Event{
		Type:        FamilyAdded,
		AggregateID: "fam-1",
		OccurredAt:  time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "family.added", entry["event_type"])
	assert.Equal(t, "fam-1", entry["aggregate_id"])
}

func TestResilientPublisher(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	event := Event{Type: SessionSaved, AggregateID: "s-1"}

	t.Run("healthy primary receives events", func(t *testing.T) {
		primary, fallback := &recordingPublisher{}, &recordingPublisher{}
		pub := NewResilientPublisher(primary, fallback, circuit.New("kafka"), logger)

		require.NoError(t, pub.Publish(context.Background(), event))
		assert.Len(t, primary.events, 1)
		assert.Empty(t, fallback.events)
	})

	t.Run("failures below threshold surface the error", func(t *testing.T) {
		primary, fallback := &recordingPublisher{err: errors.New("broker down")}, &recordingPublisher{}
		pub := NewResilientPublisher(primary, fallback, circuit.New("kafka", circuit.WithFailureThreshold(2)), logger)

		require.Error(t, pub.Publish(context.Background(), event))
		assert.Empty(t, fallback.events)
	})

	t.Run("open circuit routes to fallback without calling the primary", func(t *testing.T) {
		primary := &countingPublisher{err: errors.New("broker down")}
		fallback := &recordingPublisher{}
		breaker := circuit.New("kafka", circuit.WithFailureThreshold(1))
		pub := NewResilientPublisher(primary, fallback, breaker, logger, WithTrialInterval(time.Minute))
		ctx := requestcontext.WithTime(context.Background(), start)

		for range 3 {
			require.NoError(t, pub.Publish(ctx, event))
		}
		assert.True(t, breaker.IsOpen())
		assert.Equal(t, int32(1), primary.calls.Load())
		assert.Len(t, fallback.events, 3)
	})

	t.Run("open circuit does not wait on a stalled primary", func(t *testing.T) {
		release := make(chan struct{})
		defer close(release)
		primary := &countingPublisher{err: errors.New("produce timeout"), block: release}
		breaker := circuit.New("kafka", circuit.WithFailureThreshold(1))
		pub := NewResilientPublisher(primary, &recordingPublisher{}, breaker, logger)
		breaker.RecordFailure()
		pub.scheduleTrial(start.Add(time.Minute))

		done := make(chan error, 1)
		go func() { done <- pub.Publish(requestcontext.WithTime(context.Background(), start), event) }()

		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("publish blocked on the primary while the circuit was open")
		}
		assert.Zero(t, primary.calls.Load())
	})

	t.Run("trial after the interval closes a recovered circuit", func(t *testing.T) {
		primary := &countingPublisher{err: errors.New("broker down")}
		fallback := &recordingPublisher{}
		breaker := circuit.New("kafka", circuit.WithFailureThreshold(2), circuit.WithSuccessThreshold(2))
		pub := NewResilientPublisher(primary, fallback, breaker, logger, WithTrialInterval(time.Minute))
		ctx := requestcontext.WithTime(context.Background(), start)

		require.Error(t, pub.Publish(ctx, event))
		require.NoError(t, pub.Publish(ctx, event))
		require.NoError(t, pub.Publish(ctx, event))
		assert.True(t, breaker.IsOpen())
		assert.Equal(t, int32(2), primary.calls.Load())

		primary.setErr(nil)
		later := requestcontext.WithTime(context.Background(), start.Add(time.Minute))
		require.NoError(t, pub.Publish(later, event))
		assert.True(t, breaker.IsOpen(), "one success is not enough to close")
		require.NoError(t, pub.Publish(later, event))
		assert.False(t, breaker.IsOpen())
		assert.Equal(t, int32(4), primary.calls.Load())
		assert.Len(t, fallback.events, 2)
	})

	t.Run("failed trial waits another interval", func(t *testing.T) {
		primary := &countingPublisher{err: errors.New("broker down")}
		breaker := circuit.New("kafka", circuit.WithFailureThreshold(1))
		pub := NewResilientPublisher(primary, &recordingPublisher{}, breaker, logger, WithTrialInterval(time.Minute))

		require.NoError(t, pub.Publish(requestcontext.WithTime(context.Background(), start), event))
		trial := requestcontext.WithTime(context.Background(), start.Add(time.Minute))
		require.NoError(t, pub.Publish(trial, event))
		require.NoError(t, pub.Publish(trial, event))
		require.NoError(t, pub.Publish(requestcontext.WithTime(context.Background(), start.Add(90*time.Second)), event))
		assert.Equal(t, int32(2), primary.calls.Load())
	})
}

func TestEvent_JSONShape(t *testing.T) {
	raw, err := json.Marshal(Event{
		Type:        FamilyRemoved,
		AggregateID: "fam-9",
		OccurredAt:  time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"family.removed","aggregate_id":"fam-9","occurred_at":"2025-03-01T18:00:00Z"}`, string(raw))
}
