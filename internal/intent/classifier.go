package intent

import "sort"

type Kind string

const (
	KindUnknown      Kind = "unknown"
	KindCreateIssue  Kind = "create_issue"
	KindAddSubtask   Kind = "add_subtask"
	KindQueryStatus  Kind = "query_status"
	KindQueryUpdates Kind = "query_updates"
	KindQueryIssues  Kind = "query_issues"
)

// Rule identifies an intent by the slots that must be present before the
// intent is considered at all (Defining) and lists, in the order they are
// asked for, every slot the action needs before it can commit (Required).
// Values pins a defining slot to a specific value.
type Rule struct {
	Kind     Kind
	Defining []string
	Values   map[string]string
	Required []string
}

// Specificity is the number of defining slots.
func (r Rule) Specificity() int { return len(r.Defining) }

func (r Rule) matches(state Entities) bool {
	for _, slot := range r.Defining {
		if !state.Has(slot) {
			return false
		}
		if want, ok := r.Values[slot]; ok && state[slot] != want {
			return false
		}
	}
	return true
}

// DefaultRules is the static required-field table.
var DefaultRules = []Rule{
	{
		Kind:     KindAddSubtask,
		Defining: []string{SlotProject, SlotMilestone, SlotSubtask},
		Required: []string{SlotProject, SlotMilestone, SlotSubtask, SlotAssignee, SlotDueDate},
	},
	{
		Kind:     KindCreateIssue,
		Defining: []string{SlotProject, SlotIssueTitle},
		Required: []string{SlotProject, SlotIssueTitle, SlotAssignee, SlotDueDate},
	},
	{
		Kind:     KindQueryStatus,
		Defining: []string{SlotQuery},
		Values:   map[string]string{SlotQuery: QueryStatus},
		Required: []string{SlotProject},
	},
	{
		Kind:     KindQueryUpdates,
		Defining: []string{SlotQuery},
		Values:   map[string]string{SlotQuery: QueryUpdates},
		Required: []string{SlotProject},
	},
	{
		Kind:     KindQueryIssues,
		Defining: []string{SlotQuery},
		Values:   map[string]string{SlotQuery: QueryIssues},
		Required: []string{SlotProject},
	},
}

// Classifier picks an intent from merged slot state using a rule table
// ordered by specificity. It keeps no state between calls.
type Classifier struct {
	rules []Rule
}

// NewClassifier orders rules by descending specificity; rules of equal
// specificity keep their table order.
func NewClassifier(rules []Rule) *Classifier {
	ordered := append([]Rule(nil), rules...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Specificity() > ordered[j].Specificity()
	})
	return &Classifier{rules: ordered}
}

// Classify returns the most specific intent whose defining slots are all
// present, or KindUnknown.
func (c *Classifier) Classify(state Entities) Kind {
	for _, r := range c.rules {
		if r.matches(state) {
			return r.Kind
		}
	}
	return KindUnknown
}

// Required returns the ordered required slots for kind.
func (c *Classifier) Required(kind Kind) []string {
	for _, r := range c.rules {
		if r.Kind == kind {
			return append([]string(nil), r.Required...)
		}
	}
	return nil
}

// Missing lists the required slots for kind absent from state, in
// required-field order.
func (c *Classifier) Missing(kind Kind, state Entities) []string {
	missing := []string{}
	for _, slot := range c.Required(kind) {
		if !state.Has(slot) {
			missing = append(missing, slot)
		}
	}
	return missing
}

// Closest returns the intent whose distinctive defining slots are most
// present in state when no rule matches outright. A slot is distinctive
// when it defines exactly one rule, so a lone project name points nowhere.
// Ties go to the more specific rule, then table order.
func (c *Classifier) Closest(state Entities) (Kind, bool) {
	owners := map[string]int{}
	for _, r := range c.rules {
		for _, slot := range r.Defining {
			owners[definingKey(r, slot)]++
		}
	}
	best, bestScore := KindUnknown, 0
	for _, r := range c.rules {
		score := 0
		for _, slot := range r.Defining {
			if owners[definingKey(r, slot)] != 1 || !state.Has(slot) {
				continue
			}
			if want, ok := r.Values[slot]; ok && state[slot] != want {
				continue
			}
			score++
		}
		if score > bestScore {
			best, bestScore = r.Kind, score
		}
	}
	return best, bestScore > 0
}

// definingKey distinguishes value-pinned slots, so query=status and
// query=issues count as different defining fields.
func definingKey(r Rule, slot string) string {
	if v, ok := r.Values[slot]; ok {
		return slot + "=" + v
	}
	return slot
}
