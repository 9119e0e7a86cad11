package intent

import (
	"sort"
	"strings"
)

// Canonical slot names. Every extractor output is canonicalised to these
// before it reaches the coordinator.
const (
	SlotProject    = "project"
	SlotIssueTitle = "issue_title"
	SlotMilestone  = "milestone"
	SlotSubtask    = "subtask"
	SlotAssignee   = "assignee"
	SlotDueDate    = "dueDate"
	SlotPriority   = "priority"
	SlotQuery      = "query"

	// SlotProjectMention carries a project name found anywhere in the
	// prompt rather than in a project phrase. It is weaker than
	// SlotProject and is resolved before merging.
	SlotProjectMention = "project_mention"
)

// Values carried by SlotQuery.
const (
	QueryStatus  = "status"
	QueryUpdates = "updates"
	QueryIssues  = "issues"
)

var aliases = map[string]string{
	"projectname":    SlotProject,
	"project_name":   SlotProject,
	"title":          SlotIssueTitle,
	"issuetitle":     SlotIssueTitle,
	"issue":          SlotIssueTitle,
	"milestonename":  SlotMilestone,
	"milestone_name": SlotMilestone,
	"subtasktitle":   SlotSubtask,
	"subtask_title":  SlotSubtask,
	"sub_task":       SlotSubtask,
	"owner":          SlotAssignee,
	"assigned_to":    SlotAssignee,
	"assignedto":     SlotAssignee,
	"due":            SlotDueDate,
	"due_date":       SlotDueDate,
	"duedate":        SlotDueDate,
	"deadline":       SlotDueDate,
}

// CanonicalSlot maps a synonym to its canonical slot name. Unknown names are
// returned trimmed but otherwise unchanged.
func CanonicalSlot(name string) string {
	n := strings.TrimSpace(name)
	if c, ok := aliases[strings.ToLower(n)]; ok {
		return c
	}
	switch strings.ToLower(n) {
	case SlotProject, SlotIssueTitle, SlotMilestone, SlotSubtask, SlotAssignee, SlotPriority, SlotQuery:
		return strings.ToLower(n)
	}
	return n
}

// Entities is a sparse slot -> value mapping. Keys are canonical slot names
// and values are never empty.
type Entities map[string]string

// Canonicalize rewrites synonyms to canonical slot names and drops empty
// values. When two synonyms collide the canonical key keeps priority.
func Canonicalize(raw map[string]string) Entities {
	out := make(Entities, len(raw))
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	// canonical spellings last so they win over synonyms
	sort.SliceStable(keys, func(i, j int) bool {
		return !isCanonical(keys[i]) && isCanonical(keys[j])
	})
	for _, k := range keys {
		v := strings.TrimSpace(raw[k])
		if v == "" {
			continue
		}
		out[CanonicalSlot(k)] = v
	}
	return out
}

func isCanonical(name string) bool {
	return CanonicalSlot(name) == name
}

// Has reports whether slot holds a non-empty value.
func (e Entities) Has(slot string) bool {
	return strings.TrimSpace(e[slot]) != ""
}

// Clone returns a copy safe to mutate.
func (e Entities) Clone() Entities {
	out := make(Entities, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// Merge returns prior overlaid with next. Only non-empty values from next
// replace prior ones; absent or empty values never erase.
func Merge(prior, next Entities) Entities {
	out := prior.Clone()
	for k, v := range next {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out[k] = v
	}
	return out
}

// Keys returns the slot names in sorted order.
func (e Entities) Keys() []string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
