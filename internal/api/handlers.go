package api

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/hpungsan/spark/internal/errors"
	"github.com/hpungsan/spark/internal/ops"
	"github.com/hpungsan/spark/internal/project"
)

const (
	defaultMaxBodyBytes = 64 << 10
	maxPromptRunes      = 4000
)

var requestValidator = validator.New(validator.WithRequiredStructEnabled())

type handlers struct {
	svc     *ops.Service
	maxBody int64
}

type recommendRequest struct {
	Prompt string `json:"prompt" validate:"max=4000"`
}

type projectsResponse struct {
	Projects []project.Project `json:"projects"`
}

type projectResponse struct {
	Project *project.Project `json:"project"`
}

// health handles GET /healthz.
func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// listProjects handles GET /projects.
func (h *handlers) listProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.svc.ListProjects(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, projectsResponse{Projects: projects})
}

// getProject handles GET /projects/{id}.
func (h *handlers) getProject(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.GetProject(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, projectResponse{Project: p})
}

// recommend handles POST /recommend-projects.
func (h *handlers) recommend(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			writeErrorBody(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit), codePayloadTooLarge, nil)
			return
		}
		writeError(w, r, errors.NewInvalidRequest("failed to read request body"))
		return
	}

	var req recommendRequest
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, r, errors.NewInvalidRequest("request body must be a JSON object with a string prompt"))
			return
		}
	}
	if err := requestValidator.Struct(req); err != nil {
		writeError(w, r, errors.NewInvalidRequest(fmt.Sprintf("prompt exceeds %d characters", maxPromptRunes)))
		return
	}

	explain, _ := strconv.ParseBool(r.URL.Query().Get("explain"))
	out, err := h.svc.Recommend(r.Context(), ops.RecommendInput{Prompt: req.Prompt, Explain: explain})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
