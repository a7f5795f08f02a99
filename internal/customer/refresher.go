package customer

import (
	"context"
	"sync"
	"time"

	"github.com/wolfman30/salon-booking/pkg/logging"
)

// Backoff bounds the background customer refresh.
type Backoff struct {
	Base        time.Duration
	Max         time.Duration
	MaxAttempts int
}

// Delay returns the wait before attempt n (0-based). The first attempt runs
// immediately; later ones double from Base up to Max.
func (b Backoff) Delay(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	base := b.Base
	if base <= 0 {
		base = time.Second
	}
	d := base
	for i := 1; i < n; i++ {
		d *= 2
		if b.Max > 0 && d >= b.Max {
			return b.Max
		}
	}
	if b.Max > 0 && d > b.Max {
		return b.Max
	}
	return d
}

// Refresher re-checks a resolver in the background after a login until a
// customer is present, the attempts run out, or it is stopped.
type Refresher struct {
	resolver *Resolver
	backoff  Backoff
	logger   *logging.Logger
	sleep    func(ctx context.Context, d time.Duration) bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRefresher creates an idle refresher.
func NewRefresher(resolver *Resolver, backoff Backoff, logger *logging.Logger) *Refresher {
	if logger == nil {
		logger = logging.Default()
	}
	if backoff.MaxAttempts <= 0 {
		backoff.MaxAttempts = 1
	}
	return &Refresher{resolver: resolver, backoff: backoff, logger: logger, sleep: sleepCtx}
}

// Start begins a new refresh run, replacing any run in progress.
func (f *Refresher) Start(parent context.Context) {
	f.Stop()

	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})
	f.mu.Lock()
	f.cancel, f.done = cancel, done
	f.mu.Unlock()

	go func() {
		defer close(done)
		f.run(ctx)
	}()
}

// Stop cancels the current run and waits for it to exit.
func (f *Refresher) Stop() {
	f.mu.Lock()
	cancel, done := f.cancel, f.done
	f.cancel, f.done = nil, nil
	f.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Wait blocks until the current run, if any, has finished.
func (f *Refresher) Wait() {
	f.mu.Lock()
	done := f.done
	f.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (f *Refresher) run(ctx context.Context) {
	for attempt := 0; attempt < f.backoff.MaxAttempts; attempt++ {
		if !f.sleep(ctx, f.backoff.Delay(attempt)) {
			return
		}
		switch f.resolver.Snapshot().State {
		case StatePresent:
			return
		case StateLoading:
			continue
		}
		snap, err := f.resolver.Load(ctx)
		if err != nil {
			return
		}
		if snap.State == StatePresent {
			return
		}
		if snap.Err != nil {
			f.logger.Debug("customer refresh failed", "attempt", attempt+1, "error", snap.Err)
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
