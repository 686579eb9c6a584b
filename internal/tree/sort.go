package tree

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/existflow/tasknest/internal/model"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortKey names a field to order tasks by
type SortKey string

const (
	SortNone     SortKey = ""
	SortStatus   SortKey = "status"
	SortPriority SortKey = "priority"
	SortName     SortKey = "name"
	SortDue      SortKey = "due"
)

// ParseSortKey validates a sort key. The empty string is SortNone.
func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(s))); k {
	case SortNone, SortStatus, SortPriority, SortName, SortDue:
		return k, nil
	default:
		return SortNone, fmt.Errorf("unknown sort key %q (want status, priority, name or due)", s)
	}
}

// SortConfig orders by Primary, breaking ties with Secondary
type SortConfig struct {
	Primary   SortKey `json:"primary,omitempty"`
	Secondary SortKey `json:"secondary,omitempty"`
}

// Locale used to compare task names
var Locale = language.English

// Sort returns a copy of tasks ordered by cfg at every level. Siblings are
// only compared with each other and remaining ties keep their stored order.
// With no primary key the copy is returned in stored order.
func Sort(tasks []model.Task, cfg SortConfig) []model.Task {
	if cfg.Primary == SortNone {
		return clone(tasks)
	}
	c := comparator{cfg: cfg, coll: collate.New(Locale)}
	return c.sort(tasks)
}

type comparator struct {
	cfg  SortConfig
	coll *collate.Collator // not safe for concurrent use; one per Sort call
}

func (c comparator) sort(tasks []model.Task) []model.Task {
	if tasks == nil {
		return nil
	}
	out := slices.Clone(tasks)
	slices.SortStableFunc(out, c.compare)
	for i := range out {
		out[i].Children = c.sort(out[i].Children)
	}
	return out
}

func (c comparator) compare(a, b model.Task) int {
	if r := c.by(c.cfg.Primary, a, b); r != 0 || c.cfg.Secondary == SortNone {
		return r
	}
	return c.by(c.cfg.Secondary, a, b)
}

func (c comparator) by(key SortKey, a, b model.Task) int {
	switch key {
	case SortStatus:
		return cmp.Compare(a.Status.Rank(), b.Status.Rank())
	case SortPriority:
		return cmp.Compare(a.Priority.Rank(), b.Priority.Rank())
	case SortName:
		return c.coll.CompareString(a.Name, b.Name)
	case SortDue:
		// no due date sorts after every dated task
		switch {
		case a.Due.IsZero() && b.Due.IsZero():
			return 0
		case a.Due.IsZero():
			return 1
		case b.Due.IsZero():
			return -1
		}
		return a.Due.Compare(b.Due)
	}
	return 0
}

func clone(tasks []model.Task) []model.Task {
	if tasks == nil {
		return nil
	}
	out := slices.Clone(tasks)
	for i := range out {
		out[i].Children = clone(out[i].Children)
	}
	return out
}
