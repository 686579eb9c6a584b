package service

import (
	"context"
	"sync"
	"time"

	"github.com/existflow/tasknest/internal/logger"
)

// AutoSave runs a save function once changes have been quiet for the
// debounce period
type AutoSave struct {
	save         func(ctx context.Context) error
	debounceTime time.Duration
	pending      bool
	mu           sync.Mutex
	saveMu       sync.Mutex // one save at a time, in order
	stopCh       chan struct{}
	stopOnce     sync.Once
	log          *logger.Logger
}

// NewAutoSave creates a new auto-save manager. A debounce of zero or less
// saves synchronously on every trigger.
func NewAutoSave(save func(ctx context.Context) error, debounce time.Duration, log *logger.Logger) *AutoSave {
	return &AutoSave{
		save:         save,
		debounceTime: debounce,
		stopCh:       make(chan struct{}),
		log:          log,
	}
}

// TriggerSave marks that a save is needed (debounced)
func (a *AutoSave) TriggerSave() {
	if a.debounceTime <= 0 {
		a.mu.Lock()
		a.pending = true
		a.mu.Unlock()
		a.performSave()
		return
	}

	a.mu.Lock()
	if !a.pending {
		a.pending = true
		go a.debouncedSave()
	}
	a.mu.Unlock()
}

func (a *AutoSave) debouncedSave() {
	timer := time.NewTimer(a.debounceTime)
	defer timer.Stop()

	select {
	case <-timer.C:
		a.performSave()
	case <-a.stopCh:
		return
	}
}

func (a *AutoSave) performSave() {
	a.saveMu.Lock()
	defer a.saveMu.Unlock()

	if !a.takePending() {
		return
	}
	if err := a.save(context.Background()); err != nil {
		a.log.Error("Autosave failed", logger.F("error", err))
	}
}

func (a *AutoSave) takePending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	was := a.pending
	a.pending = false
	return was
}

// Flush saves immediately if there are pending changes, waiting for a save
// already in progress first
func (a *AutoSave) Flush(ctx context.Context) error {
	a.saveMu.Lock()
	defer a.saveMu.Unlock()

	if !a.takePending() {
		return nil
	}
	return a.save(ctx)
}

// SaveNow saves immediately whether or not anything is pending
func (a *AutoSave) SaveNow(ctx context.Context) error {
	a.saveMu.Lock()
	defer a.saveMu.Unlock()

	a.takePending()
	return a.save(ctx)
}

// IsPending returns true if a save is scheduled
func (a *AutoSave) IsPending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending
}

// Stop cancels scheduled saves. Pending changes stay pending for Flush.
func (a *AutoSave) Stop() {
	a.stopOnce.Do(func() { close(a.stopCh) })
}
