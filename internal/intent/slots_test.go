package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalize(t *testing.T) {
	got := Canonicalize(map[string]string{
		"projectName": "Apollo",
		"title":       "Login bug",
		"owner":       "Dee",
		"due_date":    "tomorrow",
		"priority":    "  ",
		"extra":       "kept",
	})
	assert.Equal(t, Entities{
		SlotProject:    "Apollo",
		SlotIssueTitle: "Login bug",
		SlotAssignee:   "Dee",
		SlotDueDate:    "tomorrow",
		"extra":        "kept",
	}, got)
}

func TestCanonicalizePrefersCanonicalSpelling(t *testing.T) {
	got := Canonicalize(map[string]string{
		"project":      "Apollo",
		"project_name": "Zephyr",
	})
	assert.Equal(t, Entities{SlotProject: "Apollo"}, got)
}

func TestCanonicalSlot(t *testing.T) {
	assert.Equal(t, SlotDueDate, CanonicalSlot("DueDate"))
	assert.Equal(t, SlotDueDate, CanonicalSlot("deadline"))
	assert.Equal(t, SlotAssignee, CanonicalSlot("assigned_to"))
	assert.Equal(t, SlotProject, CanonicalSlot(" Project "))
	assert.Equal(t, "whatever", CanonicalSlot("whatever"))
}

func TestMergeIsNonDestructive(t *testing.T) {
	prior := Entities{SlotProject: "Apollo", SlotIssueTitle: "Login bug"}
	next := Entities{SlotAssignee: "Dee", SlotProject: ""}

	merged := Merge(prior, next)
	assert.Equal(t, Entities{
		SlotProject:    "Apollo",
		SlotIssueTitle: "Login bug",
		SlotAssignee:   "Dee",
	}, merged)
	// inputs are untouched
	assert.Len(t, prior, 2)

	merged = Merge(merged, Entities{SlotProject: "Zephyr"})
	assert.Equal(t, "Zephyr", merged[SlotProject])
}

func TestMergeIsIdempotent(t *testing.T) {
	prior := Entities{SlotProject: "Apollo"}
	next := Entities{SlotIssueTitle: "Login bug"}
	once := Merge(prior, next)
	assert.Equal(t, once, Merge(once, next))
}

func TestMergeNilPrior(t *testing.T) {
	assert.Equal(t, Entities{SlotProject: "Apollo"}, Merge(nil, Entities{SlotProject: "Apollo"}))
}
