package feed

import (
	"sync"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func receive[T any](t *testing.T, ch <-chan T) (T, bool) {
	t.Helper()
	select {
	case v, ok := <-ch:
		return v, ok
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for delivery")
	}
	var zero T
	return zero, false
}

func TestHubFansOutToAllSubscribers(t *testing.T) {
	hub := NewHub[int]()
	a, cancelA := hub.Subscribe()
	b, cancelB := hub.Subscribe()
	defer cancelA()
	defer cancelB()

	hub.Publish(7)

	if v, _ := receive(t, a); v != 7 {
		t.Errorf("subscriber a: expected 7, got %d", v)
	}
	if v, _ := receive(t, b); v != 7 {
		t.Errorf("subscriber b: expected 7, got %d", v)
	}
}

func TestHubReplaysLastValueToNewSubscribers(t *testing.T) {
	hub := NewHub[string]()
	hub.Publish("first")
	hub.Publish("second")

	ch, cancel := hub.Subscribe()
	defer cancel()

	if v, _ := receive(t, ch); v != "second" {
		t.Errorf("expected latest value, got %q", v)
	}
}

func TestHubSlowSubscriberSeesNewestValue(t *testing.T) {
	hub := NewHub[int]()
	ch, cancel := hub.Subscribe()
	defer cancel()

	for i := 1; i <= 50; i++ {
		hub.Publish(i)
	}

	if v, _ := receive(t, ch); v != 50 {
		t.Errorf("expected newest value 50, got %d", v)
	}
}

func TestHubCancelStopsDelivery(t *testing.T) {
	hub := NewHub[int]()
	ch, cancel := hub.Subscribe()

	hub.Publish(1)
	cancel()
	hub.Publish(2)
	cancel()

	if v, ok := <-ch; ok {
		t.Fatalf("expected closed channel after cancel, received %d", v)
	}
	if hub.Len() != 0 {
		t.Errorf("expected no subscribers, got %d", hub.Len())
	}
}

func TestHubCloseEndsSubscriptions(t *testing.T) {
	hub := NewHub[int]()
	ch, cancel := hub.Subscribe()
	defer cancel()

	hub.Close()
	if _, ok := <-ch; ok {
		t.Error("expected channel to be closed")
	}

	late, lateCancel := hub.Subscribe()
	defer lateCancel()
	if _, ok := <-late; ok {
		t.Error("expected subscriptions after close to be closed")
	}
}

func TestHubConcurrentPublishAndCancel(t *testing.T) {
	hub := NewHub[int]()
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ch, cancel := hub.Subscribe()
			<-ch
			cancel()
			for range ch {
				t.Error("received a value after cancel")
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	for i := 0; ; i++ {
		hub.Publish(i)
		select {
		case <-done:
			return
		case <-time.After(time.Millisecond):
		}
	}
}

func TestProperty_NoEmissionAfterCancel(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("a canceled subscription receives nothing further", prop.ForAll(
		func(before []int, after []int) bool {
			hub := NewHub[int]()
			ch, cancel := hub.Subscribe()
			for _, v := range before {
				hub.Publish(v)
			}
			cancel()
			for _, v := range after {
				hub.Publish(v)
			}
			_, ok := <-ch
			return !ok
		},
		gen.SliceOf(gen.Int()),
		gen.SliceOf(gen.Int()),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestRegistryKeepsOneSubscriptionPerConsumerAndQuery(t *testing.T) {
	hub := NewHub[int]()
	reg := NewRegistry()

	first, cancel := hub.Subscribe()
	reg.Track("ui-1", "batches", cancel)

	second, cancel := hub.Subscribe()
	stop := reg.Track("ui-1", "batches", cancel)
	defer stop()

	if _, ok := <-first; ok {
		t.Error("expected the earlier subscription to be canceled")
	}
	if reg.Active() != 1 || hub.Len() != 1 {
		t.Errorf("expected one active subscription, got registry=%d hub=%d", reg.Active(), hub.Len())
	}

	other, cancel := hub.Subscribe()
	reg.Track("ui-2", "batches", cancel)
	hub.Publish(3)

	if v, _ := receive(t, second); v != 3 {
		t.Errorf("expected 3 on the live subscription, got %d", v)
	}
	if v, _ := receive(t, other); v != 3 {
		t.Errorf("expected 3 for the other consumer, got %d", v)
	}

	reg.CancelAll()
	if reg.Active() != 0 || hub.Len() != 0 {
		t.Errorf("expected everything canceled, got registry=%d hub=%d", reg.Active(), hub.Len())
	}
}

func TestRegistryStaleCancelDoesNotDropNewerSubscription(t *testing.T) {
	reg := NewRegistry()
	var canceled []string

	stale := reg.Track("c", "q", func() { canceled = append(canceled, "old") })
	reg.Track("c", "q", func() { canceled = append(canceled, "new") })

	stale()

	if reg.Active() != 1 {
		t.Errorf("expected newer subscription to stay tracked, got %d", reg.Active())
	}
	if len(canceled) != 2 || canceled[0] != "old" || canceled[1] != "old" {
		t.Errorf("unexpected cancel sequence: %v", canceled)
	}
}
