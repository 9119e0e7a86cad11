package quickupdate

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"tracker-backend/internal/intent"
)

// SessionStore holds accumulated slots per session id.
type SessionStore interface {
	Get(ctx context.Context, sessionID string) (map[string]string, bool, error)
	Set(ctx context.Context, sessionID string, slots map[string]string) error
	Delete(ctx context.Context, sessionID string) error
}

// ActionDispatcher commits a classified intent with a complete slot set.
type ActionDispatcher interface {
	Dispatch(ctx context.Context, kind intent.Kind, state intent.Entities) (*Outcome, error)
}

type Status string

const (
	StatusPartial  Status = "partial"
	StatusComplete Status = "complete"
	StatusFailed   Status = "failed"
)

// Result describes one conversational turn. Err is set only when Status is
// StatusFailed.
type Result struct {
	Status        Status
	Intent        intent.Kind
	Message       string
	MissingFields []string
	Collected     intent.Entities
	Created       any
	Err           error
}

var fieldLabels = map[string]string{
	intent.SlotProject:    "project name",
	intent.SlotIssueTitle: "issue title",
	intent.SlotMilestone:  "milestone",
	intent.SlotSubtask:    "subtask title",
	intent.SlotAssignee:   "assignee",
	intent.SlotDueDate:    "due date",
	intent.SlotPriority:   "priority",
}

var intentLabels = map[intent.Kind]string{
	intent.KindCreateIssue:  "this issue",
	intent.KindAddSubtask:   "this subtask",
	intent.KindQueryStatus:  "the status report",
	intent.KindQueryUpdates: "the latest updates",
	intent.KindQueryIssues:  "the open issues",
}

const unrecognisedMessage = "Sorry, I couldn't tell what you want to do. Try something like " +
	"\"Create an issue called Login bug in Apollo\" or \"What's the status of Apollo?\""

// Coordinator runs the slot-filling loop: extract, merge with the session,
// classify, then either ask for what is missing or dispatch.
type Coordinator struct {
	extractor  intent.Extractor
	classifier *intent.Classifier
	dispatcher ActionDispatcher
	sessions   SessionStore
	locks      *keyedMutex
	logger     *zap.Logger
}

func NewCoordinator(extractor intent.Extractor, classifier *intent.Classifier, dispatcher ActionDispatcher, sessions SessionStore, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if classifier == nil {
		classifier = intent.NewClassifier(intent.DefaultRules)
	}
	return &Coordinator{
		extractor:  extractor,
		classifier: classifier,
		dispatcher: dispatcher,
		sessions:   sessions,
		locks:      newKeyedMutex(),
		logger:     logger,
	}
}

// Handle processes one prompt for a session. The returned error is reserved
// for session store failures; every other failure is reported on the Result.
func (c *Coordinator) Handle(ctx context.Context, sessionID, prompt string) (*Result, error) {
	if sessionID == "" {
		return nil, errors.New("session id is required")
	}
	unlock := c.locks.Lock(sessionID)
	defer unlock()

	log := c.logger.With(zap.String("session_id", sessionID))

	raw, _, err := c.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	prior := intent.Canonicalize(raw)

	extracted, err := c.extractor.Extract(ctx, prompt)
	if err != nil {
		log.Warn("extraction failed", zap.Error(err))
		return &Result{
			Status:    StatusFailed,
			Intent:    intent.KindUnknown,
			Message:   "Something went wrong understanding that request. Please try again.",
			Collected: prior,
			Err:       err,
		}, nil
	}
	extracted = intent.ResolveMention(prior, intent.Canonicalize(extracted))
	merged := intent.Merge(prior, extracted)
	kind := c.classifier.Classify(merged)
	log.Debug("turn classified",
		zap.Strings("extracted", extracted.Keys()),
		zap.Strings("collected", merged.Keys()),
		zap.String("intent", string(kind)))

	if kind == intent.KindUnknown {
		if closest, ok := c.classifier.Closest(merged); ok {
			log.Debug("intent inferred from partial fields", zap.String("intent", string(closest)))
			kind = closest
		}
	}
	if kind == intent.KindUnknown {
		if len(extracted) > 0 {
			if err := c.sessions.Set(ctx, sessionID, merged); err != nil {
				return nil, fmt.Errorf("failed to save session: %w", err)
			}
		}
		return &Result{
			Status:    StatusFailed,
			Intent:    kind,
			Message:   unrecognisedMessage,
			Collected: merged,
			Err:       ErrIntentUndetermined,
		}, nil
	}

	missing := c.classifier.Missing(kind, merged)
	if len(missing) > 0 {
		if err := c.sessions.Set(ctx, sessionID, merged); err != nil {
			return nil, fmt.Errorf("failed to save session: %w", err)
		}
		log.Info("awaiting fields", zap.String("intent", string(kind)), zap.Strings("missing", missing))
		return &Result{
			Status:        StatusPartial,
			Intent:        kind,
			Message:       followUp(kind, missing),
			MissingFields: missing,
			Collected:     merged,
		}, nil
	}

	out, err := c.dispatcher.Dispatch(ctx, kind, merged)
	if err != nil {
		if serr := c.sessions.Set(ctx, sessionID, merged); serr != nil {
			return nil, fmt.Errorf("failed to save session: %w", serr)
		}
		log.Info("dispatch failed", zap.String("intent", string(kind)), zap.Error(err))
		return &Result{
			Status:    StatusFailed,
			Intent:    kind,
			Message:   failureMessage(err),
			Collected: merged,
			Err:       err,
		}, nil
	}

	if err := c.sessions.Delete(ctx, sessionID); err != nil {
		return nil, fmt.Errorf("failed to clear session: %w", err)
	}
	log.Info("quick update completed", zap.String("intent", string(kind)))
	return &Result{
		Status:    StatusComplete,
		Intent:    kind,
		Message:   out.Message,
		Collected: merged,
		Created:   out.Created,
	}, nil
}

// Collected returns the slots accumulated so far for a session.
func (c *Coordinator) Collected(ctx context.Context, sessionID string) (intent.Entities, bool, error) {
	raw, ok, err := c.sessions.Get(ctx, sessionID)
	if err != nil || !ok {
		return nil, ok, err
	}
	return intent.Canonicalize(raw), true, nil
}

// Reset discards a session's accumulated slots.
func (c *Coordinator) Reset(ctx context.Context, sessionID string) error {
	unlock := c.locks.Lock(sessionID)
	defer unlock()
	return c.sessions.Delete(ctx, sessionID)
}

func followUp(kind intent.Kind, missing []string) string {
	labels := make([]string, len(missing))
	for i, slot := range missing {
		labels[i] = "the " + fieldLabel(slot)
	}
	return fmt.Sprintf("Got it. I still need %s for %s.", joinWords(labels), intentLabels[kind])
}

func failureMessage(err error) string {
	var nf *NotFoundError
	switch ClassifyFailure(err) {
	case FailureNotFound:
		if errors.As(err, &nf) {
			return fmt.Sprintf("I couldn't find a %s named %q. Which %s did you mean?", nf.Entity, nf.Name, nf.Entity)
		}
		return "I couldn't find what you referred to."
	case FailureValidation:
		fields := ValidationFields(err)
		parts := make([]string, 0, len(fields))
		for _, slot := range sortedKeys(fields) {
			parts = append(parts, fmt.Sprintf("%s %s", fieldLabel(slot), fields[slot]))
		}
		return "Some details need fixing: " + strings.Join(parts, "; ") + "."
	}
	return "Something went wrong saving that update. Please try again."
}

func fieldLabel(slot string) string {
	if l, ok := fieldLabels[slot]; ok {
		return l
	}
	return slot
}

func joinWords(words []string) string {
	switch len(words) {
	case 0:
		return ""
	case 1:
		return words[0]
	}
	return strings.Join(words[:len(words)-1], ", ") + " and " + words[len(words)-1]
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
