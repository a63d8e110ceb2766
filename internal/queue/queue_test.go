package queue

import (
	"sync"
	"testing"
)

func TestQueueFIFO(t *testing.T) {
	q := New[int]()
	q.Push(1, 2)
	q.Push(3)

	first := q.Drain(2)
	if len(first) != 2 || first[0] != 1 || first[1] != 2 {
		t.Fatalf("unexpected first batch: %v", first)
	}

	rest := q.Drain(0)
	if len(rest) != 1 || rest[0] != 3 {
		t.Fatalf("unexpected second batch: %v", rest)
	}

	if q.Len() != 0 {
		t.Fatalf("queue should be empty, got %d", q.Len())
	}
}

func TestQueueDrainEmptyDoesNotBlock(t *testing.T) {
	var q Queue[string]
	if got := q.Drain(0); got != nil {
		t.Fatalf("Drain() on empty queue = %v, want nil", got)
	}
}

func TestQueueDrainedBatchIsIndependent(t *testing.T) {
	q := New[int]()
	q.Push(1, 2, 3)

	batch := q.Drain(1)
	q.Push(4)
	batch[0] = 99

	rest := q.Drain(0)
	if len(rest) != 3 || rest[0] != 2 || rest[2] != 4 {
		t.Fatalf("unexpected remainder: %v", rest)
	}
}

func TestQueueConcurrentProducers(t *testing.T) {
	q := New[int]()
	const producers, perProducer = 8, 500

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Push(base + i)
			}
		}(p * perProducer)
	}

	total := 0
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	for {
		total += len(q.Drain(0))
		select {
		case <-done:
			total += len(q.Drain(0))
			if total != producers*perProducer {
				t.Fatalf("drained %d items, want %d", total, producers*perProducer)
			}
			return
		default:
		}
	}
}
