package stream

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/satindergrewal/mnome/internal/metrics"
)

// runBroadcaster starts b on a fresh source channel and returns it.
func runBroadcaster(t *testing.T, b *Broadcaster, buffer int) chan<- []int16 {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	source := make(chan []int16, buffer)
	done := make(chan struct{})
	go func() {
		b.Run(ctx, source)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return source
}

func receive(t *testing.T, l *Listener) []int16 {
	t.Helper()
	select {
	case f := <-l.C:
		return f
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for frame")
		return nil
	}
}

func drain(l *Listener) int {
	n := 0
	for {
		select {
		case <-l.C:
			n++
		default:
			return n
		}
	}
}

// --- Subscriptions ---

func TestListenerCount(t *testing.T) {
	b := NewBroadcaster()
	if b.ListenerCount() != 0 {
		t.Fatalf("new broadcaster has %d listeners", b.ListenerCount())
	}

	ls := []*Listener{b.Subscribe("http"), b.Subscribe("webrtc"), b.Subscribe("http")}
	if b.ListenerCount() != len(ls) {
		t.Errorf("ListenerCount = %d, want %d", b.ListenerCount(), len(ls))
	}
	for i, l := range ls {
		b.Unsubscribe(l)
		if want := len(ls) - i - 1; b.ListenerCount() != want {
			t.Errorf("after %d unsubscribes ListenerCount = %d, want %d", i+1, b.ListenerCount(), want)
		}
		select {
		case <-l.Done():
		default:
			t.Errorf("listener %d not signalled on unsubscribe", i)
		}
	}
}

func TestUnsubscribeTwice(t *testing.T) {
	b := NewBroadcaster()
	l := b.Subscribe("http")
	b.Unsubscribe(l)
	b.Unsubscribe(l) // must not panic on a closed done channel
	if b.ListenerCount() != 0 {
		t.Errorf("ListenerCount = %d, want 0", b.ListenerCount())
	}
}

func TestListenerGauge(t *testing.T) {
	b := NewBroadcaster()
	gauge := metrics.StreamListeners.WithLabelValues("webrtc")
	before := testutil.ToFloat64(gauge)

	l := b.Subscribe("webrtc")
	if got := testutil.ToFloat64(gauge); got != before+1 {
		t.Errorf("gauge after subscribe = %v, want %v", got, before+1)
	}
	b.Unsubscribe(l)
	b.Unsubscribe(l)
	if got := testutil.ToFloat64(gauge); got != before {
		t.Errorf("gauge after unsubscribe = %v, want %v", got, before)
	}
}

// --- Fan-out ---

func TestClickReachesEveryListener(t *testing.T) {
	b := NewBroadcaster()
	ls := []*Listener{b.Subscribe("http"), b.Subscribe("http"), b.Subscribe("webrtc")}
	source := runBroadcaster(t, b, 4)

	click := []int16{0, 8191, 16383, 8191, 0, -8191}
	source <- click

	for i, l := range ls {
		got := receive(t, l)
		if len(got) != len(click) {
			t.Fatalf("listener %d got %d samples, want %d", i, len(got), len(click))
		}
		for j := range click {
			if got[j] != click[j] {
				t.Errorf("listener %d sample %d = %d, want %d", i, j, got[j], click[j])
			}
		}
	}
}

func TestSlowListenerDoesNotBlockOthers(t *testing.T) {
	b := NewBroadcaster()
	stalled := b.Subscribe("http")
	live := b.Subscribe("webrtc")
	source := runBroadcaster(t, b, listenerBuffer+50)

	for i := range listenerBuffer + 50 {
		source <- []int16{int16(i)}
	}

	// the live listener keeps up while the stalled one never reads
	got := 0
	deadline := time.Now().Add(2 * time.Second)
	for got < listenerBuffer+50 && time.Now().Before(deadline) {
		select {
		case <-live.C:
			got++
		case <-time.After(10 * time.Millisecond):
		}
	}
	if got == 0 {
		t.Fatal("live listener got no frames")
	}
	if n := drain(stalled); n > listenerBuffer {
		t.Errorf("stalled listener holds %d frames, cap is %d", n, listenerBuffer)
	}
}

// --- Shutdown ---

func TestRunReturns(t *testing.T) {
	tests := []struct {
		name string
		stop func(cancel context.CancelFunc, source chan []int16)
	}{
		{"context cancelled", func(cancel context.CancelFunc, _ chan []int16) { cancel() }},
		{"source closed", func(_ context.CancelFunc, source chan []int16) { close(source) }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := NewBroadcaster()
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			source := make(chan []int16)
			done := make(chan struct{})
			go func() {
				b.Run(ctx, source)
				close(done)
			}()

			tc.stop(cancel, source)
			select {
			case <-done:
			case <-time.After(2 * time.Second):
				t.Fatal("Run did not return")
			}
		})
	}
}
