package chat

import (
	"context"
	"log"
	"sync"
)

// Detached runs background work that callers never wait on. Results are
// only logged.
type Detached struct {
	wg sync.WaitGroup
}

func NewDetached() *Detached {
	return &Detached{}
}

// Go starts fn on a context that keeps the values of ctx but not its
// cancellation.
func (d *Detached) Go(ctx context.Context, name string, fn func(ctx context.Context) error) {
	detachedCtx := context.WithoutCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Printf("detached task=%s panic: %v", name, r)
			}
		}()

		if err := fn(detachedCtx); err != nil {
			log.Printf("detached task=%s failed: %v", name, err)
			return
		}
		log.Printf("detached task=%s done", name)
	}()
}

// Wait blocks until every started task has returned.
func (d *Detached) Wait() {
	d.wg.Wait()
}

// WaitContext is Wait bounded by ctx.
func (d *Detached) WaitContext(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
