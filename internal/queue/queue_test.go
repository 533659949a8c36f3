package queue

import (
	"errors"
	"sync"
	"testing"
)

type request struct {
	Zone    string
	Attempt int
}

func TestQueue_New(t *testing.T) {
	q := New[request]()
	if q == nil {
		t.Fatal("expected non-nil queue")
	}
	if !q.Empty() {
		t.Error("expected empty queue")
	}
	if q.Limit() != 0 {
		t.Errorf("expected unbounded queue, got limit %d", q.Limit())
	}
}

func TestQueue_PushPop(t *testing.T) {
	q := New[request]()

	if got := q.Pop(); got != (request{}) {
		t.Errorf("expected zero value from empty queue, got %+v", got)
	}

	q.Push(request{Zone: "a"}, request{Zone: "b"})
	q.Push()
	if q.Len() != 2 {
		t.Fatalf("expected length 2, got %d", q.Len())
	}

	first, ok := q.TryPop()
	if !ok || first.Zone != "a" {
		t.Errorf("expected a, got %+v (ok=%v)", first, ok)
	}
	if got := q.Pop(); got.Zone != "b" {
		t.Errorf("expected b, got %+v", got)
	}
	if _, ok := q.TryPop(); ok {
		t.Error("expected TryPop on empty queue to report false")
	}
}

func TestQueue_Offer(t *testing.T) {
	q := NewBounded[request](2)

	for _, z := range []string{"a", "b"} {
		if err := q.Offer(request{Zone: z}); err != nil {
			t.Fatalf("offer %s: %v", z, err)
		}
	}
	if err := q.Offer(request{Zone: "c"}); !errors.Is(err, ErrFull) {
		t.Errorf("expected ErrFull, got %v", err)
	}
	if q.Len() != 2 {
		t.Errorf("expected length 2, got %d", q.Len())
	}

	q.Pop()
	if err := q.Offer(request{Zone: "c"}); err != nil {
		t.Errorf("expected room after pop, got %v", err)
	}
}

func TestQueue_UnboundedOffer(t *testing.T) {
	q := New[int]()
	for i := 0; i < 1000; i++ {
		if err := q.Offer(i); err != nil {
			t.Fatalf("offer %d: %v", i, err)
		}
	}
}

func TestQueue_Ready(t *testing.T) {
	q := New[int]()

	select {
	case <-q.Ready():
		t.Fatal("no signal expected before a push")
	default:
	}

	q.Push(1)
	q.Push(2)
	select {
	case <-q.Ready():
	default:
		t.Fatal("expected a signal after push")
	}
	if got := q.GetAndEmpty(); len(got) != 2 {
		t.Errorf("one signal covers both items, got %v", got)
	}
}

func TestQueue_Clear(t *testing.T) {
	q := New[request]()
	q.Push(request{Zone: "a"}, request{Zone: "b"}, request{Zone: "c"})

	q.Clear()

	if !q.Empty() {
		t.Error("expected empty queue after clear")
	}
}

func TestQueue_GetAndEmpty(t *testing.T) {
	q := New[request]()
	q.Push(request{Zone: "a"}, request{Zone: "b"}, request{Zone: "c"})

	result := q.GetAndEmpty()

	if len(result) != 3 {
		t.Fatalf("expected 3 items, got %d", len(result))
	}
	if result[0].Zone != "a" || result[1].Zone != "b" || result[2].Zone != "c" {
		t.Errorf("unexpected items: %+v", result)
	}
	if !q.Empty() {
		t.Error("expected empty queue after GetAndEmpty")
	}

	// the returned slice is not reused by later pushes
	q.Push(request{Zone: "d"})
	if result[0].Zone != "a" {
		t.Errorf("result mutated: %+v", result)
	}
}

func TestQueue_Concurrent(t *testing.T) {
	q := New[request]()
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			q.Push(request{Attempt: n})
		}(i)
	}
	wg.Wait()

	if q.Len() != 100 {
		t.Errorf("expected 100 items, got %d", q.Len())
	}

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Pop()
		}()
	}
	wg.Wait()

	if q.Len() != 50 {
		t.Errorf("expected 50 items after pops, got %d", q.Len())
	}
}

func TestQueue_ConcurrentOfferRespectsLimit(t *testing.T) {
	q := NewBounded[int](10)
	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if q.Offer(n) == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if accepted != 10 || q.Len() != 10 {
		t.Errorf("expected 10 accepted, got %d (len %d)", accepted, q.Len())
	}
}

func TestQueue_ConcurrentGetAndEmpty(t *testing.T) {
	q := New[int]()
	for i := 0; i < 100; i++ {
		q.Push(i)
	}

	var wg sync.WaitGroup
	results := make(chan []int, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- q.GetAndEmpty()
		}()
	}
	wg.Wait()
	close(results)

	total := 0
	for r := range results {
		total += len(r)
	}
	if total != 100 {
		t.Errorf("expected total 100 items, got %d", total)
	}
}
