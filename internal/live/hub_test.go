package live

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"mamon/internal/core"
)

// fakeLister serves a mutable per-user transaction list.
type fakeLister struct {
	mu  sync.Mutex
	txs map[string][]core.Transaction
}

func (f *fakeLister) set(user string, txs []core.Transaction) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.txs == nil {
		f.txs = make(map[string][]core.Transaction)
	}
	f.txs[user] = txs
}

func (f *fakeLister) ListByUser(_ context.Context, user string) ([]core.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.txs[user], nil
}

func TestSubscribeDeliversInitialSnapshot(t *testing.T) {
	lister := &fakeLister{}
	lister.set("a@x.com", []core.Transaction{{ID: "1", User: "a@x.com"}})
	hub := NewHub(lister)

	sub, err := hub.Subscribe(context.Background(), "a@x.com")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Cancel()

	snap := <-sub.C
	if len(snap) != 1 || snap[0].ID != "1" {
		t.Fatalf("initial snapshot = %v", snap)
	}
}

func TestNotifyPushesFullReplacement(t *testing.T) {
	lister := &fakeLister{}
	lister.set("a@x.com", nil)
	hub := NewHub(lister)

	sub, err := hub.Subscribe(context.Background(), "a@x.com")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Cancel()
	<-sub.C // drain initial empty snapshot

	lister.set("a@x.com", []core.Transaction{{ID: "1"}, {ID: "2"}})
	hub.Notify(context.Background(), "a@x.com")

	snap := <-sub.C
	if len(snap) != 2 {
		t.Fatalf("expected full result set, got %v", snap)
	}
}

func TestNotifyReplacesStaleSnapshot(t *testing.T) {
	lister := &fakeLister{}
	hub := NewHub(lister)

	sub, err := hub.Subscribe(context.Background(), "a@x.com")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Cancel()

	// Consumer has not drained the initial snapshot; two notifications
	// arrive. Only the latest state must be readable.
	lister.set("a@x.com", []core.Transaction{{ID: "1"}})
	hub.Notify(context.Background(), "a@x.com")
	lister.set("a@x.com", []core.Transaction{{ID: "1"}, {ID: "2"}})
	hub.Notify(context.Background(), "a@x.com")

	snap := <-sub.C
	if len(snap) != 2 {
		t.Fatalf("expected latest snapshot (2 items), got %d", len(snap))
	}
}

func TestNotifyOnlyReachesOwningUser(t *testing.T) {
	lister := &fakeLister{}
	hub := NewHub(lister)

	subA, _ := hub.Subscribe(context.Background(), "a@x.com")
	subB, _ := hub.Subscribe(context.Background(), "b@x.com")
	defer subA.Cancel()
	defer subB.Cancel()
	<-subA.C
	<-subB.C

	lister.set("a@x.com", []core.Transaction{{ID: "1"}})
	hub.Notify(context.Background(), "a@x.com")

	if snap := <-subA.C; len(snap) != 1 {
		t.Fatalf("subscriber A should see the update, got %v", snap)
	}
	select {
	case snap := <-subB.C:
		t.Fatalf("subscriber B must not receive A's update, got %v", snap)
	default:
	}
}

// gatedLister stalls the first listing (the one Subscribe issues) until the
// test releases it; later listings pass straight through to the inner fake.
type gatedLister struct {
	inner   *fakeLister
	entered chan struct{}
	gate    chan struct{}
	calls   atomic.Int32
}

func (g *gatedLister) ListByUser(ctx context.Context, user string) ([]core.Transaction, error) {
	if g.calls.Add(1) == 1 {
		close(g.entered)
		<-g.gate
	}
	return g.inner.ListByUser(ctx, user)
}

func TestSubscribeSeesMutationDuringInitialQuery(t *testing.T) {
	lister := &gatedLister{
		inner:   &fakeLister{},
		entered: make(chan struct{}),
		gate:    make(chan struct{}),
	}
	hub := NewHub(lister)

	type result struct {
		sub *Subscription
		err error
	}
	done := make(chan result, 1)
	go func() {
		sub, err := hub.Subscribe(context.Background(), "a@x.com")
		done <- result{sub, err}
	}()

	// A mutation commits and notifies while the initial query is in flight.
	<-lister.entered
	lister.inner.set("a@x.com", []core.Transaction{{ID: "1", User: "a@x.com"}})
	hub.Notify(context.Background(), "a@x.com")
	close(lister.gate)

	res := <-done
	if res.err != nil {
		t.Fatalf("subscribe: %v", res.err)
	}
	defer res.sub.Cancel()

	select {
	case snap := <-res.sub.C:
		if len(snap) != 1 || snap[0].ID != "1" {
			t.Fatalf("snapshot = %v, want the committed mutation", snap)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot delivered")
	}
}

func TestCancelIsExactlyOnce(t *testing.T) {
	lister := &fakeLister{}
	hub := NewHub(lister)

	sub, err := hub.Subscribe(context.Background(), "a@x.com")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	<-sub.C

	sub.Cancel()
	sub.Cancel() // second call must be a no-op, not a double close

	if _, ok := <-sub.C; ok {
		t.Fatalf("channel should be closed after cancel")
	}

	// Notifications after cancel must not panic or deliver.
	hub.Notify(context.Background(), "a@x.com")
}
