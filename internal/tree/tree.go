// Package tree holds the in-memory task forest. Tasks live in an arena keyed
// by an internal handle with parent links and ordered child lists; an id index
// makes find, add and delete lookups instead of re-walks.
//
// A Tree is not safe for concurrent use. Callers serialise access.
package tree

import (
	"fmt"
	"slices"

	"github.com/existflow/tasknest/internal/model"
	"github.com/google/uuid"
)

type handle int

const noParent handle = -1

type node struct {
	task     model.Task // Children is always nil here; the arena owns structure
	parent   handle
	children []handle
}

// Tree is a forest of tasks with ids unique across every depth
type Tree struct {
	roots []handle
	nodes map[handle]*node
	index map[string]handle
	next  handle
	dups  int // ids that appeared more than once in loaded data
	newID func() string
}

// Option configures a Tree
type Option func(*Tree)

// WithIDFunc replaces the id source for new tasks. Returned ids that collide
// with an existing task are retried.
func WithIDFunc(fn func() string) Option {
	return func(t *Tree) { t.newID = fn }
}

// New returns an empty tree
func New(opts ...Option) *Tree {
	t := &Tree{
		nodes: map[handle]*node{},
		index: map[string]handle{},
		newID: uuid.NewString,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// FromTasks builds a tree from a nested task list, e.g. a decoded blob.
// If the data contains duplicate ids, the first one in depth-first order is
// the one lookups resolve to.
func FromTasks(tasks []model.Task, opts ...Option) *Tree {
	t := New(opts...)
	t.Replace(tasks)
	return t
}

// Replace discards the current contents and loads tasks
func (t *Tree) Replace(tasks []model.Task) {
	t.roots = nil
	t.nodes = map[handle]*node{}
	t.index = map[string]handle{}
	t.dups = 0
	for _, task := range tasks {
		t.roots = append(t.roots, t.insert(task, noParent))
	}
}

func (t *Tree) insert(task model.Task, parent handle) handle {
	h := t.next
	t.next++

	children := task.Children
	task.Children = nil
	n := &node{task: task, parent: parent}
	t.nodes[h] = n

	if _, exists := t.index[task.ID]; exists {
		t.dups++
	} else {
		t.index[task.ID] = h
	}

	for _, c := range children {
		n.children = append(n.children, t.insert(c, h))
	}
	return h
}

// Len returns the number of tasks at all depths
func (t *Tree) Len() int { return len(t.nodes) }

// Tasks returns a deep copy of the forest in stored order
func (t *Tree) Tasks() []model.Task {
	out := make([]model.Task, 0, len(t.roots))
	for _, h := range t.roots {
		out = append(out, t.snapshot(h))
	}
	return out
}

func (t *Tree) snapshot(h handle) model.Task {
	n := t.nodes[h]
	task := n.task
	if n.task.Tags != nil {
		task.Tags = slices.Clone(n.task.Tags)
	}
	if len(n.children) > 0 {
		task.Children = make([]model.Task, 0, len(n.children))
		for _, c := range n.children {
			task.Children = append(task.Children, t.snapshot(c))
		}
	}
	return task
}

// Find returns the task with id together with its subtree
func (t *Tree) Find(id string) (model.Task, bool) {
	h, ok := t.index[id]
	if !ok {
		return model.Task{}, false
	}
	return t.snapshot(h), true
}

// Parent returns the id of the task's parent, or "" for a root task
func (t *Tree) Parent(id string) (string, bool) {
	h, ok := t.index[id]
	if !ok {
		return "", false
	}
	p := t.nodes[h].parent
	if p == noParent {
		return "", true
	}
	return t.nodes[p].task.ID, true
}

// Add creates a task from f with a fresh id. An empty parentID appends to the
// roots; otherwise the task becomes the last child of parentID and the parent
// is expanded. Returns false and changes nothing if parentID does not exist.
func (t *Tree) Add(parentID string, f model.Fields) (model.Task, bool) {
	parent := noParent
	if parentID != "" {
		ph, ok := t.index[parentID]
		if !ok {
			return model.Task{}, false
		}
		parent = ph
	}

	task := model.NewTask(t.uniqueID(), f)
	h := t.insert(task, parent)
	if parent == noParent {
		t.roots = append(t.roots, h)
	} else {
		p := t.nodes[parent]
		p.children = append(p.children, h)
		p.task.Expanded = true
	}
	return t.snapshot(h), true
}

func (t *Tree) uniqueID() string {
	base := t.newID()
	id := base
	for i := 1; id == "" || t.has(id); i++ {
		if i%8 == 0 {
			base = t.newID()
		}
		id = fmt.Sprintf("%s-%d", base, i)
	}
	return id
}

func (t *Tree) has(id string) bool {
	_, ok := t.index[id]
	return ok
}

// Update merges p into the task. ID and children are left untouched.
func (t *Tree) Update(id string, p model.Patch) (model.Task, bool) {
	h, ok := t.index[id]
	if !ok {
		return model.Task{}, false
	}
	p.Apply(&t.nodes[h].task)
	return t.snapshot(h), true
}

// SetStatus sets the status of a task
func (t *Tree) SetStatus(id string, s model.Status) bool {
	_, ok := t.Update(id, model.Patch{Status: &s})
	return ok
}

// ToggleDone flips a task between Done and In progress. Any status other
// than Done becomes Done.
func (t *Tree) ToggleDone(id string) bool {
	h, ok := t.index[id]
	if !ok {
		return false
	}
	task := &t.nodes[h].task
	if task.Status == model.StatusDone {
		task.Status = model.StatusInProgress
	} else {
		task.Status = model.StatusDone
	}
	return true
}

// ToggleExpanded flips the expanded flag of one task, not its descendants
func (t *Tree) ToggleExpanded(id string) bool {
	h, ok := t.index[id]
	if !ok {
		return false
	}
	t.nodes[h].task.Expanded = !t.nodes[h].task.Expanded
	return true
}

// Delete removes the task and its whole subtree wherever it sits and returns
// what was removed so the caller can clean up related records.
func (t *Tree) Delete(id string) (model.Task, bool) {
	h, ok := t.index[id]
	if !ok {
		return model.Task{}, false
	}
	removed := t.snapshot(h)

	if p := t.nodes[h].parent; p == noParent {
		t.roots = removeHandle(t.roots, h)
	} else {
		t.nodes[p].children = removeHandle(t.nodes[p].children, h)
	}
	t.drop(h)

	if t.dups > 0 {
		t.reindex()
	}
	return removed, true
}

func (t *Tree) drop(h handle) {
	n := t.nodes[h]
	for _, c := range n.children {
		t.drop(c)
	}
	if t.index[n.task.ID] == h {
		delete(t.index, n.task.ID)
	}
	delete(t.nodes, h)
}

// reindex rebuilds the id index in depth-first order so that a duplicate left
// behind by a delete becomes reachable.
func (t *Tree) reindex() {
	t.index = make(map[string]handle, len(t.nodes))
	t.dups = 0
	var walk func(hs []handle)
	walk = func(hs []handle) {
		for _, h := range hs {
			n := t.nodes[h]
			if _, exists := t.index[n.task.ID]; exists {
				t.dups++
			} else {
				t.index[n.task.ID] = h
			}
			walk(n.children)
		}
	}
	walk(t.roots)
}

func removeHandle(hs []handle, h handle) []handle {
	i := slices.Index(hs, h)
	if i < 0 {
		return hs
	}
	return slices.Delete(hs, i, i+1)
}

// Sorted returns a sorted copy of the forest. The stored order is unchanged.
func (t *Tree) Sorted(cfg SortConfig) []model.Task {
	return Sort(t.Tasks(), cfg)
}
