// Package service owns the live task tree: it serialises access, persists the
// tree as one blob after changes settle and cascades task deletion into the
// reminder ledger.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/existflow/tasknest/internal/apperr"
	"github.com/existflow/tasknest/internal/logger"
	"github.com/existflow/tasknest/internal/model"
	"github.com/existflow/tasknest/internal/tree"
)

// TreeStore persists the serialized tree
type TreeStore interface {
	LoadTree(ctx context.Context) (data []byte, ok bool, err error)
	SaveTree(ctx context.Context, data []byte) error
}

// Reminders removes the reminders of deleted tasks, best effort
type Reminders interface {
	Cascade(ctx context.Context, taskIDs []string) error
}

// DefaultDebounce is how long the tree must be quiet before it is saved
const DefaultDebounce = 500 * time.Millisecond

// Tasks is the task service
type Tasks struct {
	mu        sync.RWMutex
	tree      *tree.Tree
	store     TreeStore
	reminders Reminders
	autosave  *AutoSave
	log       *logger.Logger
}

type options struct {
	debounce  time.Duration
	treeOpts  []tree.Option
	log       *logger.Logger
	reminders Reminders
}

// Option configures the service
type Option func(*options)

// WithDebounce sets the autosave quiet period. Zero saves on every change.
func WithDebounce(d time.Duration) Option {
	return func(o *options) { o.debounce = d }
}

// WithTreeOptions passes options to the underlying tree
func WithTreeOptions(opts ...tree.Option) Option {
	return func(o *options) { o.treeOpts = append(o.treeOpts, opts...) }
}

// WithReminders enables reminder cleanup when tasks are deleted
func WithReminders(r Reminders) Option {
	return func(o *options) { o.reminders = r }
}

// WithLogger sets the service logger
func WithLogger(log *logger.Logger) Option {
	return func(o *options) { o.log = log }
}

// New creates an empty service. Call Load to read the stored tree.
func New(store TreeStore, opts ...Option) *Tasks {
	o := options{debounce: DefaultDebounce}
	for _, fn := range opts {
		fn(&o)
	}
	if o.log == nil {
		o.log = logger.WithFields(logger.F("component", "tasks"))
	}

	s := &Tasks{
		tree:      tree.New(o.treeOpts...),
		store:     store,
		reminders: o.reminders,
		log:       o.log,
	}
	s.autosave = NewAutoSave(s.persist, o.debounce, o.log)
	return s
}

// Load replaces the in-memory tree with the stored one. No stored tree means
// an empty tree.
func (s *Tasks) Load(ctx context.Context) error {
	data, ok, err := s.store.LoadTree(ctx)
	if err != nil {
		return apperr.Persistence("load tasks", err)
	}

	var tasks []model.Task
	if ok && len(data) > 0 {
		if err := json.Unmarshal(data, &tasks); err != nil {
			return apperr.Persistence("load tasks", fmt.Errorf("decode tree: %w", err))
		}
	}

	s.mu.Lock()
	s.tree.Replace(tasks)
	n := s.tree.Len()
	s.mu.Unlock()

	s.log.Debug("Task tree loaded", logger.F("tasks", n))
	return nil
}

// persist writes a snapshot of the current tree
func (s *Tasks) persist(ctx context.Context) error {
	s.mu.RLock()
	tasks := s.tree.Tasks()
	s.mu.RUnlock()

	data, err := json.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("encode tree: %w", err)
	}
	if err := s.store.SaveTree(ctx, data); err != nil {
		return apperr.Persistence("save tasks", err)
	}
	s.log.Debug("Task tree saved", logger.F("bytes", len(data)))
	return nil
}

// Snapshot returns a copy of the tree in stored order
func (s *Tasks) Snapshot() []model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Tasks()
}

// Sorted returns a sorted copy of the tree
func (s *Tasks) Sorted(cfg tree.SortConfig) []model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Sorted(cfg)
}

// Find returns a task with its subtree
func (s *Tasks) Find(id string) (model.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tree.Find(id)
	if !ok {
		return model.Task{}, notFound("find task", id)
	}
	return t, nil
}

// Replace swaps in a whole new tree and saves it before returning. Reminders
// of tasks that are no longer present are cleaned up best effort.
func (s *Tasks) Replace(ctx context.Context, tasks []model.Task) error {
	s.mu.Lock()
	before := s.tree.Len()
	old := idSet(s.tree.Tasks())
	s.tree.Replace(tasks)
	for id := range idSet(tasks) {
		delete(old, id)
	}
	after := s.tree.Len()
	s.mu.Unlock()

	if err := s.autosave.SaveNow(ctx); err != nil {
		return err
	}
	s.log.Info("Task tree replaced", logger.F("before", before), logger.F("after", after))

	gone := make([]string, 0, len(old))
	for id := range old {
		gone = append(gone, id)
	}
	s.cascade(ctx, gone)
	return nil
}

// Add creates a task under parentID, or at the root when parentID is empty
func (s *Tasks) Add(parentID string, f model.Fields) (model.Task, error) {
	if err := f.Validate(); err != nil {
		return model.Task{}, err
	}

	s.mu.Lock()
	t, ok := s.tree.Add(parentID, f)
	s.mu.Unlock()
	if !ok {
		return model.Task{}, notFound("add task", parentID)
	}

	s.autosave.TriggerSave()
	s.log.Info("Task added", logger.F("task_id", t.ID), logger.F("parent_id", parentID))
	return t, nil
}

// Update applies a partial update to a task
func (s *Tasks) Update(id string, p model.Patch) (model.Task, error) {
	if err := p.Validate(); err != nil {
		return model.Task{}, err
	}

	s.mu.Lock()
	t, ok := s.tree.Update(id, p)
	s.mu.Unlock()
	if !ok {
		return model.Task{}, notFound("update task", id)
	}

	s.autosave.TriggerSave()
	return t, nil
}

// SetStatus sets a task's status
func (s *Tasks) SetStatus(id string, status model.Status) (model.Task, error) {
	return s.Update(id, model.Patch{Status: &status})
}

// ToggleDone flips a task between Done and In progress
func (s *Tasks) ToggleDone(id string) (model.Task, error) {
	return s.mutate("toggle done", id, s.tree.ToggleDone)
}

// ToggleExpanded flips a task's expanded flag
func (s *Tasks) ToggleExpanded(id string) (model.Task, error) {
	return s.mutate("toggle expanded", id, s.tree.ToggleExpanded)
}

func (s *Tasks) mutate(op, id string, fn func(string) bool) (model.Task, error) {
	s.mu.Lock()
	ok := fn(id)
	t, _ := s.tree.Find(id)
	s.mu.Unlock()
	if !ok {
		return model.Task{}, notFound(op, id)
	}

	s.autosave.TriggerSave()
	return t, nil
}

// Delete removes a task and its subtree, then deletes the reminders of every
// removed task best effort. The task is gone even if the calendar is down.
func (s *Tasks) Delete(ctx context.Context, id string) (model.Task, error) {
	s.mu.Lock()
	removed, ok := s.tree.Delete(id)
	s.mu.Unlock()
	if !ok {
		return model.Task{}, notFound("delete task", id)
	}

	s.autosave.TriggerSave()
	ids := removed.IDs()
	s.log.Info("Task deleted", logger.F("task_id", id), logger.F("removed", len(ids)))
	s.cascade(ctx, ids)
	return removed, nil
}

func (s *Tasks) cascade(ctx context.Context, ids []string) {
	if s.reminders == nil || len(ids) == 0 {
		return
	}
	if err := s.reminders.Cascade(ctx, ids); err != nil {
		s.log.Error("Reminder cleanup failed", logger.F("tasks", len(ids)), logger.F("error", err))
	}
}

// Flush saves pending changes now
func (s *Tasks) Flush(ctx context.Context) error {
	return s.autosave.Flush(ctx)
}

// Close stops the autosave timer and saves anything pending
func (s *Tasks) Close(ctx context.Context) error {
	s.autosave.Stop()
	return s.autosave.Flush(ctx)
}

func notFound(op, id string) error {
	return apperr.NotFound(op, fmt.Errorf("task %q", id))
}

func idSet(tasks []model.Task) map[string]struct{} {
	set := map[string]struct{}{}
	for _, t := range tasks {
		for _, id := range t.IDs() {
			set[id] = struct{}{}
		}
	}
	return set
}
