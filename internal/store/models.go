package store

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// DateLayout is the calendar-date format used for due dates.
const DateLayout = "2006-01-02"

const (
	StatusOpen = "open"
	StatusTodo = "todo"
	StatusDone = "done"
)

// Priorities accepted on issues, in display form.
var Priorities = []string{"High", "Medium", "Low"}

type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Milestone struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"projectId"`
	Name      string    `json:"name"`
	DueDate   string    `json:"dueDate,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type Issue struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"projectId"`
	Title     string    `json:"title"`
	Owner     string    `json:"owner"`
	DueDate   string    `json:"dueDate"`
	Priority  string    `json:"priority"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

type Subtask struct {
	ID          string    `json:"id"`
	MilestoneID string    `json:"milestoneId"`
	Title       string    `json:"title"`
	Owner       string    `json:"owner"`
	DueDate     string    `json:"dueDate"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

type IssueInput struct {
	ProjectID string
	Title     string
	Owner     string
	DueDate   string
	Priority  string
}

type SubtaskInput struct {
	MilestoneID string
	Title       string
	Owner       string
	DueDate     string
}

// ErrNotFound is returned when a row looked up by id does not exist.
var ErrNotFound = errors.New("not found")

// ValidationError carries field-level problems with a create payload.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "invalid " + strings.Join(parts, "; ")
}

type validator map[string]string

func (v validator) required(field, value string) {
	if strings.TrimSpace(value) == "" {
		v[field] = "is required"
	}
}

func (v validator) date(field, value string, optional bool) {
	if strings.TrimSpace(value) == "" {
		if !optional {
			v[field] = "is required"
		}
		return
	}
	if _, err := time.Parse(DateLayout, value); err != nil {
		v[field] = "must be a YYYY-MM-DD date"
	}
}

func (v validator) oneOf(field, value string, allowed []string) {
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	v[field] = "must be one of " + strings.Join(allowed, ", ")
}

func (v validator) err() error {
	if len(v) == 0 {
		return nil
	}
	return &ValidationError{Fields: v}
}
