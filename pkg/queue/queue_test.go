package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedTask struct {
	producer int
	seq      int
	valid    bool
}

func (t *recordedTask) Execute()    {}
func (t *recordedTask) Valid() bool { return t.valid }

func TestEnqueueDequeueSingle(t *testing.T) {
	q := New()
	assert.True(t, q.Empty())

	task := &recordedTask{producer: 0, seq: 1, valid: true}
	assert.True(t, q.Enqueue(task))
	assert.Equal(t, 1, q.Len())

	got := q.Dequeue()
	require.NotNil(t, got)
	assert.Same(t, task, got)
	assert.True(t, q.Empty())
}

func TestDequeueEmptyReturnsNil(t *testing.T) {
	q := New()
	assert.Nil(t, q.Dequeue())
}

func TestEnqueueRejectsNilAndInvalid(t *testing.T) {
	q := New()
	assert.False(t, q.Enqueue(nil))
	assert.False(t, q.Enqueue(&recordedTask{valid: false}))
	assert.True(t, q.Empty())

	var fn Func
	assert.False(t, q.Enqueue(fn))
}

func TestFIFOOrder(t *testing.T) {
	q := New()
	const n = 100
	for i := 0; i < n; i++ {
		require.True(t, q.Enqueue(&recordedTask{seq: i, valid: true}))
	}
	for i := 0; i < n; i++ {
		got := q.Dequeue()
		require.NotNil(t, got)
		assert.Equal(t, i, got.(*recordedTask).seq)
	}
	assert.Nil(t, q.Dequeue())
}

// TestMPMCStress drives 4 producers and 4 consumers concurrently and
// verifies that the union of dequeued tasks equals the set of enqueued
// tasks (no loss, no duplication) and that each producer's tasks are
// observed in submission order.
func TestMPMCStress(t *testing.T) {
	const (
		producers        = 4
		consumers        = 4
		tasksPerProducer = 10000
	)

	q := New()

	var wgProducers sync.WaitGroup
	for p := 0; p < producers; p++ {
		wgProducers.Add(1)
		go func(producer int) {
			defer wgProducers.Done()
			for i := 0; i < tasksPerProducer; i++ {
				if !q.Enqueue(&recordedTask{producer: producer, seq: i, valid: true}) {
					t.Errorf("enqueue failed for producer %d seq %d", producer, i)
					return
				}
			}
		}(p)
	}

	results := make([][]*recordedTask, consumers)
	done := make(chan struct{})
	var wgConsumers sync.WaitGroup
	for c := 0; c < consumers; c++ {
		wgConsumers.Add(1)
		go func(consumer int) {
			defer wgConsumers.Done()
			for {
				task := q.Dequeue()
				if task == nil {
					select {
					case <-done:
						// Drain whatever raced in before the signal.
						if task := q.Dequeue(); task != nil {
							results[consumer] = append(results[consumer], task.(*recordedTask))
							continue
						}
						return
					default:
						continue
					}
				}
				results[consumer] = append(results[consumer], task.(*recordedTask))
			}
		}(c)
	}

	wgProducers.Wait()
	close(done)
	wgConsumers.Wait()

	// No loss, no duplication.
	seen := make(map[[2]int]int)
	total := 0
	for _, chunk := range results {
		for _, task := range chunk {
			seen[[2]int{task.producer, task.seq}]++
			total++
		}
	}
	require.Equal(t, producers*tasksPerProducer, total)
	for key, count := range seen {
		require.Equal(t, 1, count, "task %v dequeued %d times", key, count)
	}

	// Per-producer order is preserved within each consumer's observed
	// sequence: a single consumer can never see producer P's task k
	// after its task k+1.
	for consumer, chunk := range results {
		last := make(map[int]int)
		for _, task := range chunk {
			if prev, ok := last[task.producer]; ok {
				assert.Greater(t, task.seq, prev,
					"consumer %d saw producer %d out of order", consumer, task.producer)
			}
			last[task.producer] = task.seq
		}
	}

	assert.True(t, q.Empty())
}

func TestLenIsAdvisory(t *testing.T) {
	q := New()
	for i := 0; i < 10; i++ {
		q.Enqueue(&recordedTask{seq: i, valid: true})
	}
	assert.Equal(t, 10, q.Len())
	q.Dequeue()
	assert.Equal(t, 9, q.Len())
}

func TestFuncTask(t *testing.T) {
	q := New()
	ran := false
	require.True(t, q.Enqueue(Func(func() { ran = true })))
	task := q.Dequeue()
	require.NotNil(t, task)
	task.Execute()
	assert.True(t, ran)
}
