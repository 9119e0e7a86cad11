package types

type QuickUpdateRequest struct {
	SessionID string `json:"sessionId"`
	Prompt    string `json:"prompt"`
}

// QuickUpdateResponse is returned for every quick-update turn. FollowUp is
// set while the engine is still collecting fields.
type QuickUpdateResponse struct {
	Success       bool              `json:"success"`
	SessionID     string            `json:"sessionId"`
	Intent        string            `json:"intent,omitempty"`
	Message       string            `json:"message"`
	FollowUp      bool              `json:"followUp,omitempty"`
	MissingFields []string          `json:"missingFields,omitempty"`
	Collected     map[string]string `json:"collected,omitempty"`
	Created       any               `json:"created,omitempty"`
	Errors        map[string]string `json:"errors,omitempty"`
}

type SessionResponse struct {
	SessionID string            `json:"sessionId"`
	Collected map[string]string `json:"collected"`
}

type CreateProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type CreateMilestoneRequest struct {
	Name    string `json:"name"`
	DueDate string `json:"dueDate"`
}

type ErrorResponse struct {
	Error  string            `json:"error"`
	Errors map[string]string `json:"errors,omitempty"`
}
