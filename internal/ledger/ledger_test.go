package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/existflow/tasknest/internal/apperr"
	"github.com/existflow/tasknest/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCalendar struct {
	mu          sync.Mutex
	events      map[string]Event
	next        int
	createErr   error
	deleteErr   error
	deleteCalls int
	delay       time.Duration
	block       bool
	inflight    int
	maxInflight int
}

func newFakeCalendar() *fakeCalendar {
	return &fakeCalendar{events: map[string]Event{}}
}

func (f *fakeCalendar) enter() {
	f.mu.Lock()
	f.inflight++
	if f.inflight > f.maxInflight {
		f.maxInflight = f.inflight
	}
	f.mu.Unlock()
}

func (f *fakeCalendar) leave() {
	f.mu.Lock()
	f.inflight--
	f.mu.Unlock()
}

func (f *fakeCalendar) CreateEvent(ctx context.Context, ev Event) (string, error) {
	f.enter()
	defer f.leave()
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	f.next++
	id := fmt.Sprintf("evt-%d", f.next)
	f.events[id] = ev
	return id, nil
}

func (f *fakeCalendar) DeleteEvent(ctx context.Context, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.events, eventID)
	return nil
}

func (f *fakeCalendar) eventIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for id := range f.events {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

type memStore struct {
	mu        sync.Mutex
	rows      map[string]model.Reminder
	upsertErr error
	deleteErr error
}

func newMemStore() *memStore { return &memStore{rows: map[string]model.Reminder{}} }

func (m *memStore) UpsertReminder(_ context.Context, r model.Reminder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.rows[r.TaskID] = r
	return nil
}

func (m *memStore) GetReminder(_ context.Context, taskID string) (model.Reminder, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[taskID]
	return r, ok, nil
}

func (m *memStore) DeleteReminder(_ context.Context, taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.rows, taskID)
	return nil
}

func (m *memStore) ListReminders(_ context.Context) ([]model.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Reminder
	for _, r := range m.rows {
		out = append(out, r)
	}
	return out, nil
}

var at = time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)

func TestCreateListDelete(t *testing.T) {
	cal, st := newFakeCalendar(), newMemStore()
	l := New(st, cal)
	ctx := context.Background()

	r, err := l.Create(ctx, "T", "Write report", at)
	require.NoError(t, err)
	assert.Equal(t, "evt-1", r.EventID)

	list, err := l.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]model.Reminder{"T": {TaskID: "T", EventID: "evt-1", ReminderDate: at}}, list)

	deleted, err := l.Delete(ctx, "T", Strict)
	require.NoError(t, err)
	assert.True(t, deleted)

	list, err = l.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Empty(t, cal.eventIDs())
}

func TestCreateBuildsReminderEvent(t *testing.T) {
	cal := newFakeCalendar()
	l := New(newMemStore(), cal)

	_, err := l.Create(context.Background(), "T", "Pay rent", at)
	require.NoError(t, err)

	ev := cal.events["evt-1"]
	assert.Equal(t, "Task Reminder: Pay rent", ev.Summary)
	assert.Equal(t, `This is a reminder for your task: "Pay rent"`, ev.Description)
	assert.Equal(t, at, ev.Start)
	assert.Equal(t, at, ev.End)
	assert.Equal(t, []Alert{{"email", 60}, {"popup", 10}}, ev.Alerts)
}

func TestCreateCalendarFailurePersistsNothing(t *testing.T) {
	cal, st := newFakeCalendar(), newMemStore()
	cal.createErr = errors.New("quota exceeded")
	l := New(st, cal)

	_, err := l.Create(context.Background(), "T", "x", at)

	assert.ErrorIs(t, err, apperr.ErrExternalService)
	assert.Empty(t, st.rows)
}

func TestCreateStoreFailureOrphansEvent(t *testing.T) {
	cal, st := newFakeCalendar(), newMemStore()
	st.upsertErr = errors.New("disk full")
	l := New(st, cal)

	_, err := l.Create(context.Background(), "T", "x", at)

	assert.ErrorIs(t, err, apperr.ErrPersistence)
	assert.Equal(t, []string{"evt-1"}, cal.eventIDs(), "event stays in the calendar")
	assert.Empty(t, st.rows)
}

func TestCreateTwiceKeepsOneRecordAndOrphansFirstEvent(t *testing.T) {
	cal, st := newFakeCalendar(), newMemStore()
	l := New(st, cal)
	ctx := context.Background()

	_, err := l.Create(ctx, "T", "x", at)
	require.NoError(t, err)
	_, err = l.Create(ctx, "T", "x", at.Add(time.Hour))
	require.NoError(t, err)

	list, err := l.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "evt-2", list["T"].EventID)
	assert.Equal(t, []string{"evt-1", "evt-2"}, cal.eventIDs())
}

func TestReplaceDeletesPreviousEvent(t *testing.T) {
	cal, st := newFakeCalendar(), newMemStore()
	l := New(st, cal)
	ctx := context.Background()

	_, err := l.Create(ctx, "T", "x", at)
	require.NoError(t, err)
	r, err := l.Replace(ctx, "T", "x", at.Add(time.Hour))
	require.NoError(t, err)

	list, err := l.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, r, list["T"])
	assert.Equal(t, []string{"evt-2"}, cal.eventIDs())
}

func TestReplaceStopsWhenOldEventCannotBeDeleted(t *testing.T) {
	cal, st := newFakeCalendar(), newMemStore()
	l := New(st, cal)
	ctx := context.Background()
	_, err := l.Create(ctx, "T", "x", at)
	require.NoError(t, err)

	cal.deleteErr = errors.New("503")
	_, err = l.Replace(ctx, "T", "x", at.Add(time.Hour))

	assert.ErrorIs(t, err, apperr.ErrExternalService)
	assert.Equal(t, "evt-1", st.rows["T"].EventID)
	assert.Equal(t, []string{"evt-1"}, cal.eventIDs())
}

func TestDeleteMissingIsNoop(t *testing.T) {
	cal := newFakeCalendar()
	l := New(newMemStore(), cal)

	deleted, err := l.Delete(context.Background(), "nope", Strict)

	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Zero(t, cal.deleteCalls)
}

func TestDeleteStrictKeepsRecordOnCalendarFailure(t *testing.T) {
	cal, st := newFakeCalendar(), newMemStore()
	l := New(st, cal)
	ctx := context.Background()
	_, err := l.Create(ctx, "T", "x", at)
	require.NoError(t, err)

	cal.deleteErr = errors.New("unreachable")
	deleted, err := l.Delete(ctx, "T", Strict)

	assert.ErrorIs(t, err, apperr.ErrExternalService)
	assert.False(t, deleted)
	assert.Contains(t, st.rows, "T", "record kept for retry")
}

func TestDeleteBestEffortRemovesRecordOnCalendarFailure(t *testing.T) {
	cal, st := newFakeCalendar(), newMemStore()
	l := New(st, cal)
	ctx := context.Background()
	_, err := l.Create(ctx, "T", "x", at)
	require.NoError(t, err)

	cal.deleteErr = errors.New("unreachable")
	deleted, err := l.Delete(ctx, "T", BestEffort)

	require.NoError(t, err)
	assert.True(t, deleted)
	assert.NotContains(t, st.rows, "T")
	assert.Equal(t, 1, cal.deleteCalls, "the calendar delete is still attempted")
}

func TestDeleteStoreFailure(t *testing.T) {
	cal, st := newFakeCalendar(), newMemStore()
	l := New(st, cal)
	ctx := context.Background()
	_, err := l.Create(ctx, "T", "x", at)
	require.NoError(t, err)

	st.deleteErr = errors.New("locked")
	_, err = l.Delete(ctx, "T", BestEffort)

	assert.ErrorIs(t, err, apperr.ErrPersistence)
}

func TestWithoutCalendarFailsWithConfigurationError(t *testing.T) {
	st := newMemStore()
	l := New(st, nil)
	ctx := context.Background()

	assert.False(t, l.Configured())

	_, err := l.Create(ctx, "T", "x", at)
	assert.ErrorIs(t, err, apperr.ErrConfiguration)
	assert.NotErrorIs(t, err, apperr.ErrExternalService)

	_, err = l.Delete(ctx, "T", Strict)
	assert.ErrorIs(t, err, apperr.ErrConfiguration)

	// cascades still clean up the record
	st.rows["T"] = model.Reminder{TaskID: "T", EventID: "e", ReminderDate: at}
	require.NoError(t, l.Cascade(ctx, []string{"T"}))
	assert.Empty(t, st.rows)
}

func TestCalendarTimeoutIsExternalError(t *testing.T) {
	cal := newFakeCalendar()
	cal.block = true
	l := New(newMemStore(), cal, WithTimeout(20*time.Millisecond))

	start := time.Now()
	_, err := l.Create(context.Background(), "T", "x", at)

	assert.ErrorIs(t, err, apperr.ErrExternalService)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestCascadeRemovesRecordsEvenWhenCalendarFails(t *testing.T) {
	cal, st := newFakeCalendar(), newMemStore()
	l := New(st, cal, WithCascadeLimit(2))
	ctx := context.Background()
	for _, id := range []string{"a", "c", "other"} {
		_, err := l.Create(ctx, id, id, at)
		require.NoError(t, err)
	}

	cal.deleteErr = errors.New("calendar down")
	err := l.Cascade(ctx, []string{"a", "b", "c"})

	require.NoError(t, err)
	assert.Equal(t, []string{"other"}, keys(st.rows))
	assert.Equal(t, 2, cal.deleteCalls)
}

func TestSameTaskOperationsAreSerialised(t *testing.T) {
	cal := newFakeCalendar()
	cal.delay = 5 * time.Millisecond
	st := newMemStore()
	l := New(st, cal)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = l.Replace(ctx, "T", "x", at)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, cal.maxInflight)
	assert.Len(t, st.rows, 1)
	assert.Len(t, cal.eventIDs(), 1, "each replace removed the previous event")
	assert.Empty(t, l.locks.locks, "locks are released")
}

func TestDifferentTasksRunConcurrently(t *testing.T) {
	cal := newFakeCalendar()
	cal.delay = 20 * time.Millisecond
	l := New(newMemStore(), cal)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = l.Create(context.Background(), fmt.Sprintf("T%d", i), "x", at)
		}()
	}
	wg.Wait()

	assert.Greater(t, cal.maxInflight, 1)
}

func keys(m map[string]model.Reminder) []string {
	var out []string
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
