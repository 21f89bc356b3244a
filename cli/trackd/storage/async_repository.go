package storage

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/locatr/trackd/cli/trackd/track"
	log "github.com/sirupsen/logrus"
)

// AsyncRepository decouples the ingestion path from backend latency: the
// listener enqueues accepted fixes and a worker pool drains them into
// the fanout repository.
type AsyncRepository struct {
	repo   *Repository
	ch     chan track.Fix
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func NewAsyncRepository(repo *Repository, buffer, workers int) *AsyncRepository {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	ctx, cancel := context.WithCancel(context.Background())
	ar := &AsyncRepository{
		repo:   repo,
		ch:     make(chan track.Fix, buffer),
		ctx:    ctx,
		cancel: cancel,
	}
	for i := 0; i < workers; i++ {
		ar.wg.Add(1)
		go ar.worker()
	}
	return ar
}

func (a *AsyncRepository) worker() {
	defer a.wg.Done()
	for {
		select {
		case fix, ok := <-a.ch:
			if !ok {
				return
			}
			if err := a.repo.Save(fix); err != nil {
				log.WithField("err", err).Error("Failed to persist fix")
			}
		case <-a.ctx.Done():
			return
		}
	}
}

func (a *AsyncRepository) Save(fix track.Fix) error {
	select {
	case a.ch <- fix:
		return nil
	case <-a.ctx.Done():
		return fmt.Errorf("async repository is closed")
	}
}

func (a *AsyncRepository) Close() {
	a.cancel()
	close(a.ch)
	a.wg.Wait()
}
