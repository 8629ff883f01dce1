package queue

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

// Worker handles one item. It is owned by a single goroutine, so any state it
// closes over (a detection engine, scratch buffers) is never shared.
type Worker[T any] func(ctx context.Context, item T)

// WorkerFactory builds the per-goroutine worker. It is called once per pool
// slot, inside that slot's goroutine.
type WorkerFactory[T any] func(slot int) (Worker[T], error)

// RunPool starts size goroutines draining q and blocks until ctx is done and
// every goroutine has returned. A factory error stops only that slot.
func RunPool[T any](ctx context.Context, q *Bounded[T], size int, factory WorkerFactory[T], log *logrus.Logger) error {
	var wg sync.WaitGroup
	errs := make([]error, size)

	for slot := 0; slot < size; slot++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()

			work, err := factory(slot)
			if err != nil {
				log.WithFields(logrus.Fields{
					"queue": q.Name(),
					"slot":  slot,
					"error": err.Error(),
				}).Error("Failed to start worker")
				errs[slot] = err
				return
			}

			for {
				item, err := q.Take(ctx)
				if err != nil {
					return
				}
				work(ctx, item)
			}
		}(slot)
	}

	wg.Wait()
	return errors.Join(errs...)
}
