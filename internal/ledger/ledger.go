// Package ledger keeps at most one calendar reminder per task. Each record
// caches the id of an event that existed in the external calendar when the
// record was written; the calendar owns the event, the store owns the record.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/existflow/tasknest/internal/apperr"
	"github.com/existflow/tasknest/internal/logger"
	"github.com/existflow/tasknest/internal/model"
	"golang.org/x/sync/errgroup"
)

// ErrCalendarNotConfigured is wrapped in a configuration error when the
// ledger has no calendar.
var ErrCalendarNotConfigured = errors.New("calendar credentials are not configured")

// Calendar creates and deletes events in an external calendar
type Calendar interface {
	CreateEvent(ctx context.Context, ev Event) (eventID string, err error)
	// DeleteEvent must treat an event that is already gone as success.
	DeleteEvent(ctx context.Context, eventID string) error
}

// Store persists reminder records keyed by task id
type Store interface {
	UpsertReminder(ctx context.Context, r model.Reminder) error
	GetReminder(ctx context.Context, taskID string) (model.Reminder, bool, error)
	DeleteReminder(ctx context.Context, taskID string) error
	ListReminders(ctx context.Context) ([]model.Reminder, error)
}

// Mode controls what Delete does when the calendar call fails
type Mode int

const (
	// Strict keeps the record and returns the calendar error so the user can retry.
	Strict Mode = iota
	// BestEffort logs the calendar error and removes the record anyway,
	// accepting an orphaned event. Used when a task is deleted.
	BestEffort
)

const (
	DefaultTimeout      = 10 * time.Second
	DefaultCascadeLimit = 4
)

// Ledger drives the reminder create/delete protocol
type Ledger struct {
	store        Store
	calendar     Calendar
	timeout      time.Duration
	cascadeLimit int
	locks        keyedMutex
	log          *logger.Logger
}

// Option configures a Ledger
type Option func(*Ledger)

// WithTimeout bounds every calendar call. A timeout is an external service error.
func WithTimeout(d time.Duration) Option {
	return func(l *Ledger) {
		if d > 0 {
			l.timeout = d
		}
	}
}

// WithCascadeLimit sets how many reminders a cascade deletes concurrently
func WithCascadeLimit(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.cascadeLimit = n
		}
	}
}

// WithLogger sets the logger used for best-effort failures
func WithLogger(log *logger.Logger) Option {
	return func(l *Ledger) { l.log = log }
}

// New creates a ledger. A nil calendar is allowed: reminder operations that
// need it then fail with a configuration error before doing anything.
func New(store Store, calendar Calendar, opts ...Option) *Ledger {
	l := &Ledger{
		store:        store,
		calendar:     calendar,
		timeout:      DefaultTimeout,
		cascadeLimit: DefaultCascadeLimit,
		locks:        keyedMutex{locks: map[string]*keyLock{}},
	}
	for _, o := range opts {
		o(l)
	}
	if l.log == nil {
		l.log = logger.WithFields(logger.F("component", "ledger"))
	}
	return l
}

// Configured reports whether a calendar is available
func (l *Ledger) Configured() bool { return l.calendar != nil }

// Create schedules a calendar event for the task and records it. The calendar
// is called first; nothing is stored if it fails. If storing fails after the
// event was created, the event is left orphaned and a persistence error is
// returned. An existing record for the task is overwritten; use Replace to
// remove its event first.
func (l *Ledger) Create(ctx context.Context, taskID, taskName string, at time.Time) (model.Reminder, error) {
	if err := l.precheck("create reminder", taskID); err != nil {
		return model.Reminder{}, err
	}
	unlock := l.locks.Lock(taskID)
	defer unlock()

	return l.create(ctx, taskID, taskName, at)
}

// Replace deletes any existing reminder for the task in strict mode and then
// creates the new one, holding the task's lock throughout. If the old event
// cannot be deleted nothing changes.
func (l *Ledger) Replace(ctx context.Context, taskID, taskName string, at time.Time) (model.Reminder, error) {
	if err := l.precheck("replace reminder", taskID); err != nil {
		return model.Reminder{}, err
	}
	unlock := l.locks.Lock(taskID)
	defer unlock()

	if _, err := l.delete(ctx, taskID, Strict); err != nil {
		return model.Reminder{}, err
	}
	return l.create(ctx, taskID, taskName, at)
}

func (l *Ledger) precheck(op, taskID string) error {
	if taskID == "" {
		return fmt.Errorf("%s: task id required", op)
	}
	if l.calendar == nil {
		return apperr.Configuration(op, ErrCalendarNotConfigured)
	}
	return nil
}

func (l *Ledger) create(ctx context.Context, taskID, taskName string, at time.Time) (model.Reminder, error) {
	cctx, cancel := context.WithTimeout(ctx, l.timeout)
	eventID, err := l.calendar.CreateEvent(cctx, NewEvent(taskName, at))
	cancel()
	if err != nil {
		return model.Reminder{}, apperr.External("create calendar event", err)
	}
	if eventID == "" {
		return model.Reminder{}, apperr.External("create calendar event", errors.New("calendar returned no event id"))
	}

	r := model.Reminder{TaskID: taskID, EventID: eventID, ReminderDate: at}
	if err := l.store.UpsertReminder(ctx, r); err != nil {
		l.log.Error("Reminder not recorded, calendar event orphaned",
			logger.F("task_id", taskID), logger.F("event_id", eventID), logger.F("error", err))
		return model.Reminder{}, apperr.Persistence("record reminder", err)
	}

	l.log.Info("Reminder created", logger.F("task_id", taskID), logger.F("event_id", eventID),
		logger.F("at", at.Format(time.RFC3339)))
	return r, nil
}

// Delete removes the task's reminder and its calendar event. It reports
// whether a reminder existed; a missing reminder is not an error.
func (l *Ledger) Delete(ctx context.Context, taskID string, mode Mode) (bool, error) {
	if mode == Strict && l.calendar == nil {
		return false, apperr.Configuration("delete reminder", ErrCalendarNotConfigured)
	}
	unlock := l.locks.Lock(taskID)
	defer unlock()

	return l.delete(ctx, taskID, mode)
}

func (l *Ledger) delete(ctx context.Context, taskID string, mode Mode) (bool, error) {
	r, ok, err := l.store.GetReminder(ctx, taskID)
	if err != nil {
		return false, apperr.Persistence("look up reminder", err)
	}
	if !ok {
		return false, nil
	}

	if err := l.deleteEvent(ctx, r.EventID); err != nil {
		if mode == Strict {
			return false, err
		}
		l.log.Warn("Calendar event not deleted, removing reminder anyway",
			logger.F("task_id", taskID), logger.F("event_id", r.EventID), logger.F("error", err))
	}

	if err := l.store.DeleteReminder(ctx, taskID); err != nil {
		return false, apperr.Persistence("remove reminder", err)
	}

	l.log.Info("Reminder deleted", logger.F("task_id", taskID), logger.F("event_id", r.EventID))
	return true, nil
}

func (l *Ledger) deleteEvent(ctx context.Context, eventID string) error {
	if l.calendar == nil {
		return apperr.Configuration("delete calendar event", ErrCalendarNotConfigured)
	}
	cctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	if err := l.calendar.DeleteEvent(cctx, eventID); err != nil {
		return apperr.External("delete calendar event", err)
	}
	return nil
}

// List returns every reminder keyed by task id
func (l *Ledger) List(ctx context.Context) (map[string]model.Reminder, error) {
	list, err := l.store.ListReminders(ctx)
	if err != nil {
		return nil, apperr.Persistence("list reminders", err)
	}
	out := make(map[string]model.Reminder, len(list))
	for _, r := range list {
		out[r.TaskID] = r
	}
	return out, nil
}

// Get returns the reminder for one task
func (l *Ledger) Get(ctx context.Context, taskID string) (model.Reminder, bool, error) {
	r, ok, err := l.store.GetReminder(ctx, taskID)
	if err != nil {
		return model.Reminder{}, false, apperr.Persistence("look up reminder", err)
	}
	return r, ok, nil
}

// Cascade deletes, best effort, the reminders of tasks that were removed from
// the tree. Calendar failures are logged and never returned. The returned
// error joins any store failures; every task is still attempted.
func (l *Ledger) Cascade(ctx context.Context, taskIDs []string) error {
	if len(taskIDs) == 0 {
		return nil
	}
	// the task is already gone; finish the cleanup even if the caller goes away
	ctx = context.WithoutCancel(ctx)
	existing, err := l.List(ctx)
	if err != nil {
		return err
	}

	var (
		mu   sync.Mutex
		errs []error
	)
	var g errgroup.Group
	g.SetLimit(l.cascadeLimit)
	for _, id := range taskIDs {
		if _, ok := existing[id]; !ok {
			continue
		}
		g.Go(func() error {
			if _, err := l.Delete(ctx, id, BestEffort); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// keyedMutex serialises work per task id
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// Lock blocks until key is free and returns its unlock function
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	kl, ok := k.locks[key]
	if !ok {
		kl = &keyLock{}
		k.locks[key] = kl
	}
	kl.refs++
	k.mu.Unlock()

	kl.mu.Lock()
	return func() {
		kl.mu.Unlock()
		k.mu.Lock()
		kl.refs--
		if kl.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
