package coordinator

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/sirupsen/logrus"

	"github.com/carson-networks/up-bridge/internal/upapi"
)

const (
	// DefaultRefreshInterval applies when the configured interval is below
	// the minimum.
	DefaultRefreshInterval = 10 * time.Minute

	// MinRefreshInterval is the smallest scheduled full-refresh interval.
	MinRefreshInterval = time.Minute

	// refreshTimeout bounds a single refresh cycle so a stuck remote call
	// cannot wedge the worker indefinitely.
	refreshTimeout = 60 * time.Second

	// queueCapacity bounds the webhook-driven refresh backlog. A dropped
	// event is reconciled by the next scheduled full refresh.
	queueCapacity = 16
)

// upClient is the slice of the API client the coordinator needs.
type upClient interface {
	GetAccounts(ctx context.Context) (*upapi.AccountsEnvelope, error)
	GetAccount(ctx context.Context, accountID string) (*upapi.AccountEnvelope, error)
	GetTransactions(ctx context.Context, pageSize int) (*upapi.TransactionsEnvelope, error)
	GetTransaction(ctx context.Context, transactionID string) (*upapi.TransactionEnvelope, error)
	GetCategories(ctx context.Context) (*upapi.CategoriesEnvelope, error)
	GetTags(ctx context.Context) (*upapi.TagsEnvelope, error)
}

// refreshRequest is one unit of work for the worker: a full refresh, or a
// partial refresh scoped to a single transaction. response is non-nil when
// a caller is waiting on the outcome.
type refreshRequest struct {
	partial       bool
	transactionID string
	response      chan error
}

// Coordinator owns the Snapshot. All mutation flows through a single worker
// goroutine consuming a bounded queue, so no two refreshes ever run
// concurrently and readers never observe a torn snapshot.
type Coordinator struct {
	client   upClient
	logger   *logrus.Logger
	interval time.Duration

	queue    chan refreshRequest
	snapshot atomic.Pointer[Snapshot]

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewCoordinator(client upClient, logger *logrus.Logger, interval time.Duration) *Coordinator {
	if interval < MinRefreshInterval {
		logger.Warnf("Coordinator.interval %v below minimum, using default %v", interval, DefaultRefreshInterval)
		interval = DefaultRefreshInterval
	}

	return &Coordinator{
		client:   client,
		logger:   logger,
		interval: interval,
		queue:    make(chan refreshRequest, queueCapacity),
		stopCh:   make(chan struct{}),
	}
}

// Start launches the refresh worker and the full-refresh scheduler.
func (c *Coordinator) Start() {
	c.wg.Add(2)
	go func() {
		defer c.wg.Done()
		c.worker()
	}()
	go func() {
		defer c.wg.Done()
		c.scheduler()
	}()
}

// Stop halts the worker and scheduler and waits for an in-flight refresh to
// finish. Enqueues after Stop are accepted but never processed.
func (c *Coordinator) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
		c.wg.Wait()
	})
}

// Snapshot returns the current snapshot, nil before the first successful
// refresh.
func (c *Coordinator) Snapshot() *Snapshot {
	return c.snapshot.Load()
}

// Ready reports whether the mandatory first refresh has completed.
func (c *Coordinator) Ready() bool {
	return c.snapshot.Load() != nil
}

// RefreshNow runs a full refresh through the worker and waits for its
// outcome. Used for the mandatory first refresh at startup.
func (c *Coordinator) RefreshNow(ctx context.Context) error {
	response := make(chan error, 1)

	select {
	case c.queue <- refreshRequest{response: response}:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-response:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// EnqueueFull submits a fire-and-forget full refresh. Returns false when
// the queue is full, which callers treat as "already plenty of work
// pending".
func (c *Coordinator) EnqueueFull() bool {
	return c.enqueue(refreshRequest{})
}

// EnqueuePartial submits a fire-and-forget partial refresh for one
// transaction.
func (c *Coordinator) EnqueuePartial(transactionID string) bool {
	return c.enqueue(refreshRequest{partial: true, transactionID: transactionID})
}

func (c *Coordinator) enqueue(request refreshRequest) bool {
	select {
	case c.queue <- request:
		return true
	default:
		return false
	}
}

func (c *Coordinator) worker() {
	for {
		select {
		case <-c.stopCh:
			return
		case request := <-c.queue:
			err := c.process(request)
			if request.response != nil {
				request.response <- err
			}
		}
	}
}

func (c *Coordinator) scheduler() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			if !c.EnqueueFull() {
				c.logger.Debug("Coordinator.scheduler.refresh already pending, skipping tick")
			}
		}
	}
}

// process executes one refresh request. On failure the previous snapshot is
// retained; the new snapshot is only ever published fully formed.
func (c *Coordinator) process(request refreshRequest) error {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	var next *Snapshot
	var err error

	if request.partial {
		var fragment *Snapshot
		fragment, err = c.fetchPartial(ctx, request.transactionID)
		if err == nil {
			next = merge(c.snapshot.Load(), fragment, c.logger)
		}
	} else {
		next, err = c.fetchFull(ctx)
	}

	if err != nil {
		c.logger.WithError(err).Error("Coordinator.refresh.failed, keeping previous snapshot")
		return fmt.Errorf("refresh failed: %w", err)
	}

	next.RefreshedAt = time.Now()
	c.snapshot.Store(next)

	c.logger.WithFields(logrus.Fields{
		"accounts":     next.Summary.AccountCount,
		"transactions": next.Summary.TransactionCount,
		"totalBalance": next.Summary.TotalBalance.String(),
		"partial":      request.partial,
	}).Info("Coordinator.refresh.complete")

	if c.logger.IsLevelEnabled(logrus.DebugLevel) {
		c.logger.Debugf("Coordinator.refresh.summary %v", spew.Sdump(next.Summary))
	}
	return nil
}
