package collab

import (
	"sync"
	"testing"
)

func TestSubscriptionsReleaseOnce(t *testing.T) {
	var s Subscriptions
	var order []int
	var calls [3]int
	for i := range 3 {
		s.Add(func() {
			calls[i]++
			order = append(order, i)
		})
	}
	if s.Len() != 3 {
		t.Fatalf("Len = %d", s.Len())
	}

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Close()
		}()
	}
	wg.Wait()

	for i, n := range calls {
		if n != 1 {
			t.Fatalf("subscription %d released %d times", i, n)
		}
	}
	if order[0] != 2 || order[2] != 0 {
		t.Fatalf("release order = %v, want reverse", order)
	}
	if s.Len() != 0 {
		t.Fatalf("Len after Close = %d", s.Len())
	}
}

func TestSubscriptionsAddAfterClose(t *testing.T) {
	var s Subscriptions
	s.Close()

	released := false
	s.Add(func() { released = true })
	if !released {
		t.Fatal("subscription added after Close was kept")
	}
	s.Add(nil)
}
