package quickupdate

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"tracker-backend/internal/intent"
	"tracker-backend/internal/store"
)

type extractFunc func(ctx context.Context, prompt string) (intent.Entities, error)

func (f extractFunc) Extract(ctx context.Context, prompt string) (intent.Entities, error) {
	return f(ctx, prompt)
}

func newEngine(t *testing.T, f *fixture, x intent.Extractor) (*Coordinator, *store.MemorySessionStore) {
	t.Helper()
	sessions := store.NewMemorySessionStore(0, 0)
	t.Cleanup(func() { sessions.Close() })
	if x == nil {
		x = intent.CatalogExtractor{Next: intent.NewRegexExtractor(nil), Catalog: f.projects}
	}
	c := NewCoordinator(x, intent.NewClassifier(intent.DefaultRules), f.dispatch, sessions, zaptest.NewLogger(t))
	return c, sessions
}

func TestQuickUpdateConversation(t *testing.T) {
	f := newFixture(t)
	c, sessions := newEngine(t, f, nil)
	ctx := context.Background()

	res, err := c.Handle(ctx, "s1", "Create an issue called API Integration Bug in Zephyr Migration")
	require.NoError(t, err)
	assert.Equal(t, StatusPartial, res.Status)
	assert.Equal(t, intent.KindCreateIssue, res.Intent)
	assert.Equal(t, []string{intent.SlotAssignee, intent.SlotDueDate}, res.MissingFields)
	assert.Equal(t, "Zephyr Migration", res.Collected[intent.SlotProject])
	assert.Equal(t, "API Integration Bug", res.Collected[intent.SlotIssueTitle])
	assert.Equal(t, "Got it. I still need the assignee and the due date for this issue.", res.Message)

	res, err = c.Handle(ctx, "s1", "assign to Pratik M, due tomorrow")
	require.NoError(t, err)
	require.Equal(t, StatusComplete, res.Status, res.Message)
	issue, ok := res.Created.(*store.Issue)
	require.True(t, ok)
	assert.Equal(t, "Pratik M", issue.Owner)
	assert.Equal(t, "2026-10-20", issue.DueDate)
	assert.Equal(t, "API Integration Bug", issue.Title)
	assert.Equal(t, f.zephyr.ID, issue.ProjectID)

	_, ok, err = sessions.Get(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, ok)

	// a new request on the same id starts from scratch
	res, err = c.Handle(ctx, "s1", "Create an issue called Second bug in Apollo")
	require.NoError(t, err)
	assert.Equal(t, StatusPartial, res.Status)
	assert.Equal(t, intent.Entities{
		intent.SlotProject:    "Apollo",
		intent.SlotIssueTitle: "Second bug",
	}, res.Collected)
}

func TestQuickUpdateUnknownProjectKeepsSession(t *testing.T) {
	f := newFixture(t)
	c, _ := newEngine(t, f, nil)
	ctx := context.Background()
	prompt := "Create an issue called X in Nonexistent Project, assign to A, due today"

	res, err := c.Handle(ctx, "s1", prompt)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, FailureNotFound, ClassifyFailure(res.Err))
	assert.Contains(t, res.Message, "Nonexistent Project")

	collected, ok, err := c.Collected(ctx, "s1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, res.Collected, collected)

	again, err := c.Handle(ctx, "s1", prompt)
	require.NoError(t, err)
	if diff := cmp.Diff(res.Collected, again.Collected); diff != "" {
		t.Errorf("retry changed state (-first +retry):\n%s", diff)
	}
	assert.Equal(t, res.Message, again.Message)

	// correcting the project completes the original request
	res, err = c.Handle(ctx, "s1", "project is Apollo")
	require.NoError(t, err)
	require.Equal(t, StatusComplete, res.Status, res.Message)
	issue := res.Created.(*store.Issue)
	assert.Equal(t, f.apollo.ID, issue.ProjectID)
	assert.Equal(t, "X", issue.Title)
}

func TestQuickUpdateNameMentionNeverReplacesProject(t *testing.T) {
	f := newFixture(t)
	c, _ := newEngine(t, f, nil)
	ctx := context.Background()

	followUps := map[string]string{
		"s1": "assign to Apollonia Reyes, due tomorrow",
		"s2": "assign to Dee, due tomorrow, the Apollo team is waiting",
	}
	for sid, second := range followUps {
		res, err := c.Handle(ctx, sid, "Create an issue called API Integration Bug in Zephyr Migration")
		require.NoError(t, err)
		require.Equal(t, StatusPartial, res.Status)

		res, err = c.Handle(ctx, sid, second)
		require.NoError(t, err)
		require.Equal(t, StatusComplete, res.Status, res.Message)
		issue := res.Created.(*store.Issue)
		assert.Equal(t, f.zephyr.ID, issue.ProjectID, second)
		assert.Equal(t, "Zephyr Migration", res.Collected[intent.SlotProject])
		assert.NotContains(t, res.Collected, intent.SlotProjectMention)
	}

	// with nothing collected yet a mentioned name fills the project
	res, err := c.Handle(ctx, "s3", "Log a bug: Login fails for apollo users, assign to Dee, due tomorrow")
	require.NoError(t, err)
	require.Equal(t, StatusComplete, res.Status, res.Message)
	assert.Equal(t, f.apollo.ID, res.Created.(*store.Issue).ProjectID)
}

func TestQuickUpdateAsksForMissingDefiningField(t *testing.T) {
	f := newFixture(t)
	c, sessions := newEngine(t, f, nil)
	ctx := context.Background()

	res, err := c.Handle(ctx, "s1", "Create an issue called Login bug, assign to Dee, due tomorrow")
	require.NoError(t, err)
	require.Equal(t, StatusPartial, res.Status, res.Message)
	assert.NoError(t, res.Err)
	assert.Equal(t, intent.KindCreateIssue, res.Intent)
	assert.Equal(t, []string{intent.SlotProject}, res.MissingFields)
	assert.Equal(t, "Got it. I still need the project name for this issue.", res.Message)
	assert.Equal(t, 1, sessions.Len())

	res, err = c.Handle(ctx, "s1", "project is Apollo")
	require.NoError(t, err)
	require.Equal(t, StatusComplete, res.Status, res.Message)
	issue := res.Created.(*store.Issue)
	assert.Equal(t, f.apollo.ID, issue.ProjectID)
	assert.Equal(t, "Login bug", issue.Title)
	assert.Equal(t, "Dee", issue.Owner)
}

func TestQuickUpdateIdempotentPartial(t *testing.T) {
	f := newFixture(t)
	c, _ := newEngine(t, f, nil)
	ctx := context.Background()

	first, err := c.Handle(ctx, "s1", "Add subtask Write docs to milestone Beta in Zephyr Migration")
	require.NoError(t, err)
	second, err := c.Handle(ctx, "s1", "Add subtask Write docs to milestone Beta in Zephyr Migration")
	require.NoError(t, err)

	assert.Equal(t, StatusPartial, first.Status)
	assert.Equal(t, intent.KindAddSubtask, first.Intent)
	assert.Equal(t, first, second)
}

func TestQuickUpdateNoiseIsNotPersisted(t *testing.T) {
	f := newFixture(t)
	c, sessions := newEngine(t, f, nil)
	ctx := context.Background()

	res, err := c.Handle(ctx, "s1", "hello there")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, res.Status)
	assert.ErrorIs(t, res.Err, ErrIntentUndetermined)
	assert.Equal(t, intent.KindUnknown, res.Intent)
	assert.Equal(t, 0, sessions.Len())
}

func TestQuickUpdateUnknownWithSlotsAccumulates(t *testing.T) {
	f := newFixture(t)
	c, _ := newEngine(t, f, nil)
	ctx := context.Background()

	res, err := c.Handle(ctx, "s1", "assign to Dee")
	require.NoError(t, err)
	assert.ErrorIs(t, res.Err, ErrIntentUndetermined)

	res, err = c.Handle(ctx, "s1", "Create an issue called Login bug in Apollo, due friday")
	require.NoError(t, err)
	require.Equal(t, StatusComplete, res.Status, res.Message)
	issue := res.Created.(*store.Issue)
	assert.Equal(t, "Dee", issue.Owner)
	assert.Equal(t, "2026-10-23", issue.DueDate)
}

func TestQuickUpdateQueryClearsSession(t *testing.T) {
	f := newFixture(t)
	c, sessions := newEngine(t, f, nil)
	ctx := context.Background()

	res, err := c.Handle(ctx, "s1", "what's the status?")
	require.NoError(t, err)
	assert.Equal(t, StatusPartial, res.Status)
	assert.Equal(t, []string{intent.SlotProject}, res.MissingFields)
	assert.Equal(t, "Got it. I still need the project name for the status report.", res.Message)

	res, err = c.Handle(ctx, "s1", "project is Zephyr Migration")
	require.NoError(t, err)
	require.Equal(t, StatusComplete, res.Status, res.Message)
	assert.Equal(t, intent.KindQueryStatus, res.Intent)
	assert.True(t, strings.HasPrefix(res.Message, "Zephyr Migration has 1 milestone(s)"))
	assert.Equal(t, 0, sessions.Len())
}

func TestQuickUpdateUpstreamFailureIsNoOp(t *testing.T) {
	f := newFixture(t)
	fail := false
	x := extractFunc(func(ctx context.Context, prompt string) (intent.Entities, error) {
		if fail {
			return nil, &intent.UpstreamError{Err: errors.New("timeout")}
		}
		return intent.Entities{intent.SlotProject: "Apollo", intent.SlotIssueTitle: "Bug"}, nil
	})
	c, _ := newEngine(t, f, x)
	ctx := context.Background()

	_, err := c.Handle(ctx, "s1", "first")
	require.NoError(t, err)
	before, _, _ := c.Collected(ctx, "s1")

	fail = true
	res, err := c.Handle(ctx, "s1", "second")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, FailureUpstream, ClassifyFailure(res.Err))

	after, _, _ := c.Collected(ctx, "s1")
	assert.Equal(t, before, after)
}

func TestQuickUpdateValidationKeepsSession(t *testing.T) {
	f := newFixture(t)
	x := extractFunc(func(context.Context, string) (intent.Entities, error) {
		return intent.Entities{
			intent.SlotProject:    "Apollo",
			intent.SlotIssueTitle: "Bug",
			intent.SlotAssignee:   "Dee",
			intent.SlotDueDate:    "someday",
			intent.SlotPriority:   "meh",
		}, nil
	})
	c, _ := newEngine(t, f, x)

	res, err := c.Handle(context.Background(), "s1", "anything")
	require.NoError(t, err)
	assert.Equal(t, FailureValidation, ClassifyFailure(res.Err))
	assert.Contains(t, ValidationFields(res.Err), intent.SlotPriority)
	assert.True(t, strings.HasPrefix(res.Message, "Some details need fixing: priority "))

	_, ok, err := c.Collected(context.Background(), "s1")
	require.NoError(t, err)
	assert.True(t, ok)
}

type brokenSessions struct{ err error }

func (b brokenSessions) Get(context.Context, string) (map[string]string, bool, error) {
	return nil, false, b.err
}
func (b brokenSessions) Set(context.Context, string, map[string]string) error { return b.err }
func (b brokenSessions) Delete(context.Context, string) error                 { return b.err }

func TestQuickUpdateSessionStoreFailure(t *testing.T) {
	boom := errors.New("cache unavailable")
	c := NewCoordinator(intent.NewRegexExtractor(nil), nil, NewDispatcher(failingStore{}, nil), brokenSessions{err: boom}, nil)

	_, err := c.Handle(context.Background(), "s1", "hello")
	assert.ErrorIs(t, err, boom)

	_, err = c.Handle(context.Background(), "", "hello")
	assert.Error(t, err)
}

func TestQuickUpdateConcurrentTurnsOnOneSession(t *testing.T) {
	f := newFixture(t)
	x := extractFunc(func(_ context.Context, prompt string) (intent.Entities, error) {
		slot, value, _ := strings.Cut(prompt, "=")
		return intent.Entities{slot: value}, nil
	})
	c, _ := newEngine(t, f, x)
	ctx := context.Background()

	prompts := []string{"project=Apollo", "issue_title=Bug", "assignee=Dee", "priority=high"}
	var wg sync.WaitGroup
	for _, p := range prompts {
		wg.Add(1)
		go func(p string) {
			defer wg.Done()
			_, err := c.Handle(ctx, "s1", p)
			assert.NoError(t, err)
		}(p)
	}
	wg.Wait()

	collected, ok, err := c.Collected(ctx, "s1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, intent.Entities{
		intent.SlotProject:    "Apollo",
		intent.SlotIssueTitle: "Bug",
		intent.SlotAssignee:   "Dee",
		intent.SlotPriority:   "high",
	}, collected)
	assert.Equal(t, 0, c.locks.size())
}

func TestReset(t *testing.T) {
	f := newFixture(t)
	c, sessions := newEngine(t, f, nil)
	ctx := context.Background()

	_, err := c.Handle(ctx, "s1", "Create an issue called Bug in Apollo")
	require.NoError(t, err)
	require.Equal(t, 1, sessions.Len())

	require.NoError(t, c.Reset(ctx, "s1"))
	_, ok, err := c.Collected(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, ok)
}
