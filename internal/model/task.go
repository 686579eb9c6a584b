package model

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"
)

// DefaultName is used when a task is created or renamed with an empty name.
const DefaultName = "Untitled Task"

// Status of a task
type Status string

const (
	StatusNotStarted Status = "Not started"
	StatusInProgress Status = "In progress"
	StatusDone       Status = "Done"
	StatusCancelled  Status = "Cancelled"
	StatusArchived   Status = "Archived"
)

// Statuses lists every known status in display order
var Statuses = []Status{StatusNotStarted, StatusInProgress, StatusDone, StatusCancelled, StatusArchived}

// statusRank is the sort order for statuses, not alphabetical.
var statusRank = map[Status]int{
	StatusInProgress: 0,
	StatusNotStarted: 1,
	StatusArchived:   2,
	StatusDone:       3,
	StatusCancelled:  4,
}

// Rank returns the sort position of the status. Unknown values sort last.
func (s Status) Rank() int {
	if r, ok := statusRank[s]; ok {
		return r
	}
	return 999
}

// Valid reports whether s is one of the known statuses
func (s Status) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// ParseStatus accepts a status name in any case, with spaces, dashes or
// underscores between words ("in-progress", "In progress", "done").
func ParseStatus(s string) (Status, error) {
	norm := normalizeWord(s)
	for _, st := range Statuses {
		if normalizeWord(string(st)) == norm {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// Priority of a task
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

var priorityRank = map[Priority]int{
	PriorityHigh:   0,
	PriorityMedium: 1,
	PriorityLow:    2,
}

// Rank returns the sort position of the priority, High first. Unknown values sort last.
func (p Priority) Rank() int {
	if r, ok := priorityRank[p]; ok {
		return r
	}
	return 999
}

// Valid reports whether p is one of the known priorities
func (p Priority) Valid() bool {
	_, ok := priorityRank[p]
	return ok
}

// ParsePriority accepts a priority name in any case
func ParsePriority(s string) (Priority, error) {
	norm := normalizeWord(s)
	for _, p := range []Priority{PriorityLow, PriorityMedium, PriorityHigh} {
		if normalizeWord(string(p)) == norm {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown priority %q", s)
}

func normalizeWord(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("-", " ", "_", " ").Replace(s)
}

// Task is a node in the task tree. Children holds the subtasks.
type Task struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Status   Status   `json:"status"`
	Priority Priority `json:"priority"`
	Due      Date     `json:"due,omitzero"`
	Tags     []string `json:"tags,omitempty"`
	Children []Task   `json:"subtasks,omitempty"`
	Expanded bool     `json:"isExpanded,omitempty"`
}

// NewTask creates a task with defaults applied to any empty field
func NewTask(id string, f Fields) Task {
	t := Task{
		ID:       id,
		Name:     f.Name,
		Status:   f.Status,
		Priority: f.Priority,
		Due:      f.Due,
		Tags:     slices.Clone(f.Tags),
	}
	if strings.TrimSpace(t.Name) == "" {
		t.Name = DefaultName
	}
	if t.Status == "" {
		t.Status = StatusNotStarted
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	return t
}

// IsOverdue returns true if the task has a due date before today and is still open
func (t *Task) IsOverdue(now time.Time) bool {
	if t.Due.IsZero() || t.Status == StatusDone || t.Status == StatusCancelled {
		return false
	}
	return t.Due.Before(DateOf(now))
}

// IDs returns the id of t and of every descendant, depth first
func (t Task) IDs() []string {
	ids := []string{t.ID}
	for _, c := range t.Children {
		ids = append(ids, c.IDs()...)
	}
	return ids
}

// Count returns the number of tasks in a forest, at all depths
func Count(tasks []Task) int {
	n := 0
	for _, t := range tasks {
		n += 1 + Count(t.Children)
	}
	return n
}

// Fields are the user-supplied values for a new task
type Fields struct {
	Name     string   `json:"name"`
	Status   Status   `json:"status,omitempty"`
	Priority Priority `json:"priority,omitempty"`
	Due      Date     `json:"due,omitzero"`
	Tags     []string `json:"tags,omitempty"`
}

// Patch is a partial update. A nil field means "no change".
// A non-nil Due holding the zero Date clears the due date; in JSON both
// "due": null and "due": "" clear it, while an absent due leaves it alone.
type Patch struct {
	Name     *string   `json:"name,omitempty"`
	Status   *Status   `json:"status,omitempty"`
	Priority *Priority `json:"priority,omitempty"`
	Due      *Date     `json:"due,omitempty"`
	Tags     *[]string `json:"tags,omitempty"`
	Expanded *bool     `json:"isExpanded,omitempty"`
}

// UnmarshalJSON decodes a patch, keeping an explicit "due": null as a clear
func (p *Patch) UnmarshalJSON(data []byte) error {
	type plain Patch
	var raw struct {
		plain
		Due json.RawMessage `json:"due"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = Patch(raw.plain)
	if raw.Due != nil {
		var d Date
		if err := d.UnmarshalJSON(raw.Due); err != nil {
			return err
		}
		p.Due = &d
	}
	return nil
}

// Empty reports whether the patch changes nothing
func (p Patch) Empty() bool {
	return p.Name == nil && p.Status == nil && p.Priority == nil &&
		p.Due == nil && p.Tags == nil && p.Expanded == nil
}

// Apply merges the patch into t. ID and Children are never touched.
func (p Patch) Apply(t *Task) {
	if p.Name != nil {
		t.Name = *p.Name
		if strings.TrimSpace(t.Name) == "" {
			t.Name = DefaultName
		}
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Due != nil {
		t.Due = *p.Due
	}
	if p.Tags != nil {
		t.Tags = slices.Clone(*p.Tags)
	}
	if p.Expanded != nil {
		t.Expanded = *p.Expanded
	}
}
