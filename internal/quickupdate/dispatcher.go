package quickupdate

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tracker-backend/internal/intent"
	"tracker-backend/internal/store"
)

// Store is the data-store surface the dispatcher consumes.
type Store interface {
	FindProjectsByName(ctx context.Context, name string) ([]store.Project, error)
	FindMilestonesByProject(ctx context.Context, projectID string) ([]store.Milestone, error)
	CreateIssue(ctx context.Context, in store.IssueInput) (*store.Issue, error)
	CreateSubtask(ctx context.Context, in store.SubtaskInput) (*store.Subtask, error)
	ListIssues(ctx context.Context, projectID string) ([]store.Issue, error)
	ListSubtasksByProject(ctx context.Context, projectID string) ([]store.Subtask, error)
}

// Outcome is the result of a committed action.
type Outcome struct {
	Created any
	Message string
}

// recentLimit caps the entries returned by the updates query.
const recentLimit = 5

// Dispatcher resolves names in a complete slot set and performs exactly one
// store operation for the intent.
type Dispatcher struct {
	store  Store
	now    func() time.Time
	logger *zap.Logger
}

func NewDispatcher(s Store, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{store: s, now: time.Now, logger: logger}
}

// WithClock replaces the time source used to resolve relative due dates.
func (d *Dispatcher) WithClock(now func() time.Time) *Dispatcher {
	d.now = now
	return d
}

func (d *Dispatcher) Dispatch(ctx context.Context, kind intent.Kind, state intent.Entities) (*Outcome, error) {
	switch kind {
	case intent.KindCreateIssue:
		return d.createIssue(ctx, state)
	case intent.KindAddSubtask:
		return d.addSubtask(ctx, state)
	case intent.KindQueryStatus:
		return d.queryStatus(ctx, state)
	case intent.KindQueryUpdates:
		return d.queryUpdates(ctx, state)
	case intent.KindQueryIssues:
		return d.queryIssues(ctx, state)
	}
	return nil, ErrIntentUndetermined
}

func (d *Dispatcher) createIssue(ctx context.Context, state intent.Entities) (*Outcome, error) {
	project, err := d.resolveProject(ctx, state[intent.SlotProject])
	if err != nil {
		return nil, err
	}
	priority, err := NormalizePriority(state[intent.SlotPriority])
	if err != nil {
		return nil, err
	}
	due, err := ResolveDueDate(state[intent.SlotDueDate], d.now())
	if err != nil {
		return nil, err
	}
	issue, err := d.store.CreateIssue(ctx, store.IssueInput{
		ProjectID: project.ID,
		Title:     state[intent.SlotIssueTitle],
		Owner:     state[intent.SlotAssignee],
		DueDate:   due,
		Priority:  priority,
	})
	if err != nil {
		return nil, err
	}
	d.logger.Info("issue created",
		zap.String("issue_id", issue.ID),
		zap.String("project", project.Name))
	return &Outcome{
		Created: issue,
		Message: fmt.Sprintf("Created issue %q in %s, assigned to %s, due %s (%s priority).",
			issue.Title, project.Name, issue.Owner, issue.DueDate, issue.Priority),
	}, nil
}

func (d *Dispatcher) addSubtask(ctx context.Context, state intent.Entities) (*Outcome, error) {
	project, err := d.resolveProject(ctx, state[intent.SlotProject])
	if err != nil {
		return nil, err
	}
	milestone, err := d.resolveMilestone(ctx, project, state[intent.SlotMilestone])
	if err != nil {
		return nil, err
	}
	due, err := ResolveDueDate(state[intent.SlotDueDate], d.now())
	if err != nil {
		return nil, err
	}
	subtask, err := d.store.CreateSubtask(ctx, store.SubtaskInput{
		MilestoneID: milestone.ID,
		Title:       state[intent.SlotSubtask],
		Owner:       state[intent.SlotAssignee],
		DueDate:     due,
	})
	if err != nil {
		return nil, err
	}
	d.logger.Info("subtask created",
		zap.String("subtask_id", subtask.ID),
		zap.String("project", project.Name),
		zap.String("milestone", milestone.Name))
	return &Outcome{
		Created: subtask,
		Message: fmt.Sprintf("Added subtask %q to %s in %s, assigned to %s, due %s.",
			subtask.Title, milestone.Name, project.Name, subtask.Owner, subtask.DueDate),
	}, nil
}

// ProjectStatus summarises a project for the status query.
type ProjectStatus struct {
	Project          store.Project `json:"project"`
	Milestones       int           `json:"milestones"`
	OpenIssues       int           `json:"openIssues"`
	TotalIssues      int           `json:"totalIssues"`
	Subtasks         int           `json:"subtasks"`
	SubtasksDone     int           `json:"subtasksDone"`
	NextMilestone    string        `json:"nextMilestone,omitempty"`
	NextMilestoneDue string        `json:"nextMilestoneDue,omitempty"`
}

// Update is one entry in a project's recent activity.
type Update struct {
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Owner     string    `json:"owner"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

type projectSnapshot struct {
	milestones []store.Milestone
	issues     []store.Issue
	subtasks   []store.Subtask
}

// snapshot loads milestones, issues and subtasks of a project concurrently.
func (d *Dispatcher) snapshot(ctx context.Context, projectID string) (*projectSnapshot, error) {
	var snap projectSnapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snap.milestones, err = d.store.FindMilestonesByProject(gctx, projectID)
		return err
	})
	g.Go(func() error {
		var err error
		snap.issues, err = d.store.ListIssues(gctx, projectID)
		return err
	})
	g.Go(func() error {
		var err error
		snap.subtasks, err = d.store.ListSubtasksByProject(gctx, projectID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (d *Dispatcher) queryStatus(ctx context.Context, state intent.Entities) (*Outcome, error) {
	project, err := d.resolveProject(ctx, state[intent.SlotProject])
	if err != nil {
		return nil, err
	}
	snap, err := d.snapshot(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	st := ProjectStatus{Project: *project, Milestones: len(snap.milestones), TotalIssues: len(snap.issues), Subtasks: len(snap.subtasks)}
	for _, is := range snap.issues {
		if is.Status == store.StatusOpen {
			st.OpenIssues++
		}
	}
	for _, s := range snap.subtasks {
		if s.Status == store.StatusDone {
			st.SubtasksDone++
		}
	}
	today := d.now().Format(store.DateLayout)
	for _, m := range snap.milestones {
		if m.DueDate == "" || m.DueDate < today {
			continue
		}
		if st.NextMilestoneDue == "" || m.DueDate < st.NextMilestoneDue {
			st.NextMilestone, st.NextMilestoneDue = m.Name, m.DueDate
		}
	}
	msg := fmt.Sprintf("%s has %d milestone(s), %d open issue(s) of %d, and %d/%d subtasks done.",
		project.Name, st.Milestones, st.OpenIssues, st.TotalIssues, st.SubtasksDone, st.Subtasks)
	if st.NextMilestone != "" {
		msg += fmt.Sprintf(" Next milestone: %s on %s.", st.NextMilestone, st.NextMilestoneDue)
	}
	return &Outcome{Created: st, Message: msg}, nil
}

func (d *Dispatcher) queryUpdates(ctx context.Context, state intent.Entities) (*Outcome, error) {
	project, err := d.resolveProject(ctx, state[intent.SlotProject])
	if err != nil {
		return nil, err
	}
	snap, err := d.snapshot(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	updates := make([]Update, 0, len(snap.issues)+len(snap.subtasks))
	for _, is := range snap.issues {
		updates = append(updates, Update{Kind: "issue", Title: is.Title, Owner: is.Owner, Status: is.Status, CreatedAt: is.CreatedAt})
	}
	for _, s := range snap.subtasks {
		updates = append(updates, Update{Kind: "subtask", Title: s.Title, Owner: s.Owner, Status: s.Status, CreatedAt: s.CreatedAt})
	}
	sort.SliceStable(updates, func(i, j int) bool { return updates[i].CreatedAt.After(updates[j].CreatedAt) })
	if len(updates) > recentLimit {
		updates = updates[:recentLimit]
	}
	if len(updates) == 0 {
		return &Outcome{Created: updates, Message: fmt.Sprintf("No recent updates in %s.", project.Name)}, nil
	}
	titles := make([]string, 0, len(updates))
	for _, u := range updates {
		titles = append(titles, fmt.Sprintf("%s %q (%s)", u.Kind, u.Title, u.Owner))
	}
	return &Outcome{
		Created: updates,
		Message: fmt.Sprintf("Latest in %s: %s.", project.Name, strings.Join(titles, "; ")),
	}, nil
}

func (d *Dispatcher) queryIssues(ctx context.Context, state intent.Entities) (*Outcome, error) {
	project, err := d.resolveProject(ctx, state[intent.SlotProject])
	if err != nil {
		return nil, err
	}
	issues, err := d.store.ListIssues(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	open := make([]store.Issue, 0, len(issues))
	for _, is := range issues {
		if is.Status == store.StatusOpen {
			open = append(open, is)
		}
	}
	if len(open) == 0 {
		return &Outcome{Created: open, Message: fmt.Sprintf("%s has no open issues.", project.Name)}, nil
	}
	titles := make([]string, 0, len(open))
	for _, is := range open {
		titles = append(titles, fmt.Sprintf("%q", is.Title))
	}
	return &Outcome{
		Created: open,
		Message: fmt.Sprintf("%s has %d open issue(s): %s.", project.Name, len(open), strings.Join(titles, ", ")),
	}, nil
}

func (d *Dispatcher) resolveProject(ctx context.Context, name string) (*store.Project, error) {
	candidates, err := d.store.FindProjectsByName(ctx, name)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(candidates))
	for i, p := range candidates {
		names[i] = p.Name
	}
	i, ok := intent.MatchName(name, names)
	if !ok {
		return nil, &NotFoundError{Entity: "project", Name: name}
	}
	return &candidates[i], nil
}

func (d *Dispatcher) resolveMilestone(ctx context.Context, project *store.Project, name string) (*store.Milestone, error) {
	milestones, err := d.store.FindMilestonesByProject(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(milestones))
	for i, m := range milestones {
		names[i] = m.Name
	}
	i, ok := intent.MatchName(name, names)
	if !ok {
		return nil, &NotFoundError{Entity: "milestone", Name: name}
	}
	return &milestones[i], nil
}
