package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in   string
		want Status
	}{
		{"in progress", StatusInProgress},
		{"In-Progress", StatusInProgress},
		{"not_started", StatusNotStarted},
		{"DONE", StatusDone},
		{" archived ", StatusArchived},
	}
	for _, tt := range tests {
		got, err := ParseStatus(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseStatus("blocked")
	assert.Error(t, err)
}

func TestParsePriority(t *testing.T) {
	p, err := ParsePriority("high")
	require.NoError(t, err)
	assert.Equal(t, PriorityHigh, p)

	_, err = ParsePriority("urgent")
	assert.Error(t, err)
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-03-09")
	require.NoError(t, err)
	assert.Equal(t, "2025-03-09", d.String())

	d, err = ParseDate("2025-03-09T23:30:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, "2025-03-09", d.String())

	d, err = ParseDate("")
	require.NoError(t, err)
	assert.True(t, d.IsZero())

	_, err = ParseDate("09/03/2025")
	assert.Error(t, err)
}

func TestTaskJSONShape(t *testing.T) {
	task := NewTask("1", Fields{Name: "Root", Due: NewDate(2025, time.May, 1)})
	task.Children = []Task{NewTask("2", Fields{})}
	task.Expanded = true

	data, err := json.Marshal(task)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id": "1", "name": "Root", "status": "Not started", "priority": "Medium",
		"due": "2025-05-01", "isExpanded": true,
		"subtasks": [{"id": "2", "name": "Untitled Task", "status": "Not started", "priority": "Medium"}]
	}`, string(data))

	var back Task
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, task, back)
}

func TestDateAcceptsNull(t *testing.T) {
	var task Task
	require.NoError(t, json.Unmarshal([]byte(`{"id":"x","due":null,"subtasks":[]}`), &task))
	assert.True(t, task.Due.IsZero())
	assert.Empty(t, task.Children)
}

func TestPatchApply(t *testing.T) {
	task := NewTask("1", Fields{Name: "a", Tags: []string{"x"}, Due: NewDate(2025, 1, 2)})
	task.Children = []Task{NewTask("2", Fields{})}

	empty := ""
	noDue := Date{}
	high := PriorityHigh
	Patch{Name: &empty, Due: &noDue, Priority: &high}.Apply(&task)

	assert.Equal(t, DefaultName, task.Name)
	assert.True(t, task.Due.IsZero())
	assert.Equal(t, PriorityHigh, task.Priority)
	assert.Equal(t, []string{"x"}, task.Tags)
	assert.Len(t, task.Children, 1)
	assert.True(t, Patch{}.Empty())
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Fields{}.Validate())
	assert.NoError(t, Fields{Status: StatusDone, Priority: PriorityLow}.Validate())
	assert.ErrorIs(t, Fields{Status: "Blocked"}.Validate(), ErrInvalid)

	bad := Priority("Urgent")
	assert.ErrorIs(t, Patch{Priority: &bad}.Validate(), ErrInvalid)
}

func TestIsOverdue(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	task := NewTask("1", Fields{Due: NewDate(2025, 6, 9)})
	assert.True(t, task.IsOverdue(now))

	task.Status = StatusDone
	assert.False(t, task.IsOverdue(now))

	task = NewTask("2", Fields{Due: NewDate(2025, 6, 10)})
	assert.False(t, task.IsOverdue(now))
}

func TestPatchDueFromJSON(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantSet   bool
		wantClear bool
	}{
		{"absent leaves due alone", `{"name":"x"}`, false, false},
		{"null clears", `{"due":null}`, true, true},
		{"empty string clears", `{"due":""}`, true, true},
		{"date sets", `{"due":"2025-04-01"}`, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p Patch
			require.NoError(t, json.Unmarshal([]byte(tt.body), &p))
			if !tt.wantSet {
				assert.Nil(t, p.Due)
				return
			}
			require.NotNil(t, p.Due)
			assert.Equal(t, tt.wantClear, p.Due.IsZero())
		})
	}

	var p Patch
	require.NoError(t, json.Unmarshal([]byte(`{"name":"n","priority":"High","tags":["a"]}`), &p))
	require.NotNil(t, p.Name)
	assert.Equal(t, "n", *p.Name)
	assert.Equal(t, PriorityHigh, *p.Priority)
	assert.Equal(t, []string{"a"}, *p.Tags)

	assert.Error(t, json.Unmarshal([]byte(`{"due":"tomorrow"}`), &p))
}
