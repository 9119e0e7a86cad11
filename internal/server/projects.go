package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"tracker-backend/internal/store"
	"tracker-backend/internal/types"
)

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.projects.ListProjects(r.Context())
	if err != nil {
		s.writeStoreError(w, "failed to list projects", err)
		return
	}
	if projects == nil {
		projects = []store.Project{}
	}
	writeJSON(w, http.StatusOK, projects)
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req types.CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	p, err := s.projects.CreateProject(r.Context(), req.Name, req.Description)
	if err != nil {
		s.writeStoreError(w, "failed to create project", err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleListMilestones(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.projects.GetProject(r.Context(), id); err != nil {
		s.writeStoreError(w, "failed to load project", err)
		return
	}
	milestones, err := s.projects.FindMilestonesByProject(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, "failed to list milestones", err)
		return
	}
	if milestones == nil {
		milestones = []store.Milestone{}
	}
	writeJSON(w, http.StatusOK, milestones)
}

func (s *Server) handleCreateMilestone(w http.ResponseWriter, r *http.Request) {
	var req types.CreateMilestoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	m, err := s.projects.CreateMilestone(r.Context(), chi.URLParam(r, "id"), req.Name, req.DueDate)
	if err != nil {
		s.writeStoreError(w, "failed to create milestone", err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) handleListIssues(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.projects.GetProject(r.Context(), id); err != nil {
		s.writeStoreError(w, "failed to load project", err)
		return
	}
	issues, err := s.projects.ListIssues(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, "failed to list issues", err)
		return
	}
	if issues == nil {
		issues = []store.Issue{}
	}
	writeJSON(w, http.StatusOK, issues)
}

// writeStoreError maps store errors onto HTTP statuses.
func (s *Server) writeStoreError(w http.ResponseWriter, msg string, err error) {
	var ve *store.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, types.ErrorResponse{Error: ve.Error(), Errors: ve.Fields})
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "project not found")
	default:
		s.logger.Error(msg, zap.Error(err))
		writeError(w, http.StatusInternalServerError, msg)
	}
}
