package tap

import "testing"

func TestQueueFIFOOrder(t *testing.T) {
	q := NewQueue()
	for i := 0; i < 5; i++ {
		if !q.Put(Frame{Sector: int64(i), Count: 1}) {
			t.Fatalf("Put(%d) failed unexpectedly", i)
		}
	}
	for i := 0; i < 5; i++ {
		f, ok := q.Get()
		if !ok {
			t.Fatalf("Get() failed at i=%d", i)
		}
		if f.Sector != int64(i) {
			t.Errorf("Get() = %d, want %d", f.Sector, i)
		}
	}
	if _, ok := q.Get(); ok {
		t.Error("expected empty queue to report ok=false")
	}
}

func TestQueueRejectsWhenFull(t *testing.T) {
	q := NewQueue()
	for i := 0; i < QueueCapacity; i++ {
		if !q.Put(Frame{Sector: int64(i)}) {
			t.Fatalf("Put(%d) failed before capacity reached", i)
		}
	}
	if q.Put(Frame{Sector: 99999}) {
		t.Error("expected Put to reject once queue is full")
	}
	if q.Len() != QueueCapacity {
		t.Errorf("Len() = %d, want %d", q.Len(), QueueCapacity)
	}
}

func TestQueueWrapsAroundRingBuffer(t *testing.T) {
	q := NewQueue()
	for i := 0; i < QueueCapacity-1; i++ {
		q.Put(Frame{Sector: int64(i)})
	}
	for i := 0; i < QueueCapacity/2; i++ {
		q.Get()
	}
	for i := 0; i < QueueCapacity/2; i++ {
		if !q.Put(Frame{Sector: int64(1000 + i)}) {
			t.Fatalf("Put after wraparound failed at i=%d", i)
		}
	}
	count := 0
	for {
		if _, ok := q.Get(); !ok {
			break
		}
		count++
	}
	if count != QueueCapacity-1 {
		t.Errorf("drained %d frames, want %d", count, QueueCapacity-1)
	}
}
