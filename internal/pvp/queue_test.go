package pvp

import (
	"errors"
	"sync"
	"testing"
)

func TestQueuePairsInArrivalOrder(t *testing.T) {
	q := NewQueue()
	if _, paired, _ := q.Enqueue("a"); paired {
		t.Fatalf("first user should wait")
	}
	if _, paired, _ := q.Enqueue("b"); !paired {
		t.Fatalf("second user should pair")
	}
	if q.Len() != 0 {
		t.Fatalf("queue len = %d; want 0", q.Len())
	}

	q.Enqueue("c")
	q.Enqueue("c")
	if q.Len() != 1 {
		t.Fatalf("duplicate request should not add a second entry, len = %d", q.Len())
	}
	opp, paired, _ := q.Enqueue("d")
	if !paired || opp != "c" {
		t.Fatalf("d paired with %q (%v); want c", opp, paired)
	}
}

func TestQueueNeverSelfPairs(t *testing.T) {
	q := NewQueue()
	q.Enqueue("a")
	opp, paired, err := q.Enqueue("a")
	if err != nil || paired || opp != "" {
		t.Fatalf("self pairing: opp=%q paired=%v err=%v", opp, paired, err)
	}
	if !q.Contains("a") {
		t.Fatalf("a should still be waiting at the head")
	}
}

func TestQueueRemove(t *testing.T) {
	q := NewQueue()
	q.Enqueue("a")
	if !q.Remove("a") {
		t.Fatalf("remove existing entry")
	}
	if q.Remove("a") {
		t.Fatalf("second remove should report false")
	}
	if _, paired, _ := q.Enqueue("b"); paired {
		t.Fatalf("removed user must not be paired")
	}
}

func TestQueueRejectsEmptyUser(t *testing.T) {
	q := NewQueue()
	if _, _, err := q.Enqueue("  "); !errors.Is(err, ErrInvalidArgs) {
		t.Fatalf("err = %v; want ErrInvalidArgs", err)
	}
}

func TestQueueConcurrentPairing(t *testing.T) {
	q := NewQueue()
	const n = 200
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		pairs int
		seen  = map[string]int{}
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user := string(rune('A'+i%26)) + string(rune('a'+i/26))
			opp, paired, _ := q.Enqueue(user)
			if paired {
				mu.Lock()
				pairs++
				seen[user]++
				seen[opp]++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	if pairs != n/2 || q.Len() != 0 {
		t.Fatalf("pairs = %d len = %d; want %d and 0", pairs, q.Len(), n/2)
	}
	for u, c := range seen {
		if c != 1 {
			t.Fatalf("%s paired %d times", u, c)
		}
	}
}
