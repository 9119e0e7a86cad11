package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	c := NewClassifier(DefaultRules)
	tests := []struct {
		name  string
		state Entities
		want  Kind
	}{
		{"empty", Entities{}, KindUnknown},
		{"project only", Entities{SlotProject: "Apollo"}, KindUnknown},
		{"issue", Entities{SlotProject: "Apollo", SlotIssueTitle: "Bug"}, KindCreateIssue},
		{"subtask", Entities{SlotProject: "Apollo", SlotMilestone: "Beta", SlotSubtask: "Docs"}, KindAddSubtask},
		{"subtask wins over issue", Entities{
			SlotProject: "Apollo", SlotIssueTitle: "Bug", SlotMilestone: "Beta", SlotSubtask: "Docs",
		}, KindAddSubtask},
		{"subtask without milestone", Entities{SlotProject: "Apollo", SlotSubtask: "Docs"}, KindUnknown},
		{"status", Entities{SlotQuery: QueryStatus}, KindQueryStatus},
		{"updates", Entities{SlotQuery: QueryUpdates, SlotProject: "Apollo"}, KindQueryUpdates},
		{"issues", Entities{SlotQuery: QueryIssues}, KindQueryIssues},
		{"unknown query value", Entities{SlotQuery: "weather"}, KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.state))
		})
	}
}

func TestClassifierSpecificityTieBreak(t *testing.T) {
	rules := []Rule{
		{Kind: "short", Defining: []string{"a"}, Required: []string{"a"}},
		{Kind: "first", Defining: []string{"a", "b"}, Required: []string{"a", "b"}},
		{Kind: "second", Defining: []string{"a", "c"}, Required: []string{"a", "c"}},
	}
	c := NewClassifier(rules)

	state := Entities{"a": "1", "b": "2", "c": "3"}
	assert.Equal(t, Kind("first"), c.Classify(state))
	assert.Equal(t, Kind("second"), c.Classify(Entities{"a": "1", "c": "3"}))
	assert.Equal(t, Kind("short"), c.Classify(Entities{"a": "1"}))
}

func TestMissing(t *testing.T) {
	c := NewClassifier(DefaultRules)

	missing := c.Missing(KindCreateIssue, Entities{SlotProject: "Apollo", SlotIssueTitle: "Bug"})
	assert.Equal(t, []string{SlotAssignee, SlotDueDate}, missing)

	missing = c.Missing(KindAddSubtask, Entities{SlotProject: "Apollo", SlotMilestone: "Beta", SlotSubtask: "Docs", SlotDueDate: "today"})
	assert.Equal(t, []string{SlotAssignee}, missing)

	missing = c.Missing(KindQueryStatus, Entities{SlotQuery: QueryStatus})
	assert.Equal(t, []string{SlotProject}, missing)

	missing = c.Missing(KindCreateIssue, Entities{
		SlotProject: "Apollo", SlotIssueTitle: "Bug", SlotAssignee: "Dee", SlotDueDate: "today",
	})
	assert.NotNil(t, missing)
	assert.Empty(t, missing)
}

func TestRequiredReturnsCopy(t *testing.T) {
	c := NewClassifier(DefaultRules)
	req := c.Required(KindCreateIssue)
	req[0] = "mutated"
	assert.Equal(t, SlotProject, c.Required(KindCreateIssue)[0])
	assert.Nil(t, c.Required(KindUnknown))
}

func TestClosest(t *testing.T) {
	c := NewClassifier(DefaultRules)
	tests := []struct {
		name  string
		state Entities
		want  Kind
		ok    bool
	}{
		{"title without project", Entities{SlotIssueTitle: "Bug", SlotAssignee: "Dee"}, KindCreateIssue, true},
		{"subtask without milestone", Entities{SlotSubtask: "Docs", SlotProject: "Apollo"}, KindAddSubtask, true},
		{"milestone and subtask", Entities{SlotMilestone: "Beta", SlotSubtask: "Docs"}, KindAddSubtask, true},
		{"project alone", Entities{SlotProject: "Apollo"}, KindUnknown, false},
		{"assignee alone", Entities{SlotAssignee: "Dee"}, KindUnknown, false},
		{"unknown query value", Entities{SlotQuery: "weather"}, KindUnknown, false},
		{"empty", Entities{}, KindUnknown, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := c.Closest(tt.state)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
