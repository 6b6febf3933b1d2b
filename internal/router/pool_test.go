package router

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/flemzord/sigma/pkg/message"
)

func TestWorkerPool_Size(t *testing.T) {
	t.Parallel()

	const workerCount = 3
	pool := NewWorkerPool(workerCount)
	inbox := make(chan message.InboundMessage, workerCount)

	var concurrent, maxConcurrent atomic.Int32
	var processed sync.WaitGroup
	processed.Add(workerCount)
	barrier := make(chan struct{})

	pool.Start(context.Background(), inbox, func(context.Context, message.InboundMessage) {
		cur := concurrent.Add(1)
		for {
			prev := maxConcurrent.Load()
			if cur <= prev || maxConcurrent.CompareAndSwap(prev, cur) {
				break
			}
		}
		<-barrier
		concurrent.Add(-1)
		processed.Done()
	})

	for range workerCount {
		inbox <- message.InboundMessage{}
	}

	time.Sleep(50 * time.Millisecond)
	close(barrier)
	processed.Wait()
	close(inbox)
	pool.Wait()

	if got := maxConcurrent.Load(); got != workerCount {
		t.Errorf("max concurrent = %d, want %d", got, workerCount)
	}
}

func TestWorkerPool_DefaultSize(t *testing.T) {
	t.Parallel()

	if got := NewWorkerPool(0).size; got != DefaultWorkerCount {
		t.Errorf("size = %d, want %d", got, DefaultWorkerCount)
	}
}

func TestWorkerPool_WaitAfterClose(t *testing.T) {
	t.Parallel()

	pool := NewWorkerPool(2)
	inbox := make(chan message.InboundMessage)
	var handled atomic.Int32
	pool.Start(context.Background(), inbox, func(context.Context, message.InboundMessage) {
		handled.Add(1)
	})

	inbox <- message.InboundMessage{ID: "1"}
	close(inbox)
	pool.Wait()

	if handled.Load() != 1 {
		t.Errorf("handled = %d, want 1", handled.Load())
	}
}
