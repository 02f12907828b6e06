package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/openscribe/scribe/core/errors"
	"github.com/openscribe/scribe/core/ontology"
	"github.com/openscribe/scribe/core/pack"
	"github.com/openscribe/scribe/core/wire"
	"github.com/openscribe/scribe/internal/cache"
	"github.com/openscribe/scribe/internal/logging"
	"github.com/openscribe/scribe/internal/server"
	"github.com/openscribe/scribe/internal/store"
	"github.com/openscribe/scribe/internal/validation"
)

// Version is the API version reported by the root and health endpoints.
const Version = "0.3.0"

// APIResponse is the standard API response wrapper.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *APIMeta    `json:"meta,omitempty"`
}

// APIError represents an API error.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// APIMeta contains response metadata.
type APIMeta struct {
	Total     int    `json:"total,omitempty"`
	Timestamp string `json:"timestamp"`
}

// HealthInfo is the health check response.
type HealthInfo struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Uptime   string `json:"uptime"`
	Projects int    `json:"projects"`
}

// Server handles the REST API backed by a document store.
type Server struct {
	cfg       Config
	store     *store.Store
	hub       *Hub
	indexes   *cache.Keyed[*ontology.Index]
	startTime time.Time
}

// NewServer creates a server around an open store and starts its WebSocket hub.
func NewServer(cfg Config, st *store.Store) *Server {
	s := &Server{
		cfg:       cfg,
		store:     st,
		hub:       NewHub(),
		indexes:   cache.NewKeyed[*ontology.Index](),
		startTime: time.Now(),
	}
	go s.hub.Run()
	return s
}

// Hub returns the server's WebSocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// routes configures all HTTP routes.
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/projects", s.handleProjects)
	mux.HandleFunc("/projects/", s.handleProjectByID)
	mux.HandleFunc("/documents/", s.handleDocumentByID)
	mux.HandleFunc("/jobs", s.handleJobs)
	mux.HandleFunc("/jobs/", s.handleJobByID)
	mux.HandleFunc("/ws", s.handleWebSocket)

	return mux
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Endpoint not found")
		return
	}

	respond(w, http.StatusOK, map[string]interface{}{
		"name":    "Scribe Annotation API",
		"version": Version,
		"endpoints": []string{
			"GET /health",
			"GET /projects",
			"POST /projects",
			"GET /projects/:id",
			"PUT /projects/:id",
			"DELETE /projects/:id",
			"GET /projects/:id/documents",
			"POST /projects/:id/documents",
			"GET /projects/:id/export",
			"GET /documents/:id",
			"PUT /documents/:id",
			"DELETE /documents/:id",
			"GET /documents/:id/pack",
			"POST /documents/:id/entries",
			"PUT /documents/:id/entries",
			"DELETE /documents/:id/entries",
			"GET /documents/:id/jobs",
			"POST /documents/:id/jobs",
			"GET /jobs?assignee=",
			"GET /jobs/:id",
			"PUT /jobs/:id",
			"DELETE /jobs/:id",
			"WS /ws",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET is allowed")
		return
	}

	projects, err := s.store.ListProjects(r.Context())
	if err != nil {
		respondStoreError(w, err)
		return
	}

	respond(w, http.StatusOK, HealthInfo{
		Status:   "healthy",
		Version:  Version,
		Uptime:   time.Since(s.startTime).String(),
		Projects: len(projects),
	})
}

// Project handlers

type createProjectRequest struct {
	Name     string          `json:"name"`
	Ontology json.RawMessage `json:"ontology"`
	Owner    string          `json:"owner"`
}

// actorFrom identifies the caller for project access checks. Authentication
// is a shared API key, so the acting annotator is self-reported per request.
func actorFrom(r *http.Request) string {
	return r.Header.Get("X-Actor")
}

func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		projects, err := s.store.ListProjects(r.Context())
		if err != nil {
			respondStoreError(w, err)
			return
		}
		respondList(w, projects, len(projects))
	case http.MethodPost:
		s.createProject(w, r)
	default:
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET and POST are allowed")
	}
}

func (s *Server) createProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", errors.NewParse("JSON", "request body", err.Error()).Error())
		return
	}

	if req.Name != "" && !server.ValidateIdentifier(req.Name) {
		respondError(w, http.StatusBadRequest, "INVALID_INPUT",
			"project name must be 1-64 characters of letters, digits, underscore, or hyphen")
		return
	}

	// Reject ontologies that don't build before touching the store.
	if _, err := ontology.Build(string(req.Ontology)); err != nil {
		respondStoreError(w, err)
		return
	}

	proj, err := s.store.CreateProject(r.Context(), req.Name, string(req.Ontology), req.Owner)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	logging.Info("project_created", "project_id", proj.ID, "name", proj.Name)
	respond(w, http.StatusCreated, proj)
}

func (s *Server) handleProjectByID(w http.ResponseWriter, r *http.Request) {
	id, sub := splitResourcePath(r.URL.Path, "/projects/")
	if id == "" {
		respondError(w, http.StatusBadRequest, "MISSING_ID", "Project ID is required")
		return
	}

	switch sub {
	case "":
		s.projectResource(w, r, id)
	case "documents":
		s.projectDocuments(w, r, id)
	case "export":
		s.exportProject(w, r, id)
	default:
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Endpoint not found")
	}
}

func (s *Server) projectResource(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		proj, err := s.store.GetProject(r.Context(), id)
		if err != nil {
			respondStoreError(w, err)
			return
		}
		respond(w, http.StatusOK, proj)
	case http.MethodPut:
		var req createProjectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_JSON", errors.NewParse("JSON", "request body", err.Error()).Error())
			return
		}
		if err := s.checkProjectAccess(r, id, "update"); err != nil {
			respondStoreError(w, err)
			return
		}
		if _, err := ontology.Build(string(req.Ontology)); err != nil {
			respondStoreError(w, err)
			return
		}
		if err := s.store.UpdateProjectOntology(r.Context(), id, string(req.Ontology)); err != nil {
			respondStoreError(w, err)
			return
		}
		respond(w, http.StatusOK, map[string]string{"message": "Ontology updated"})
	case http.MethodDelete:
		if err := s.checkProjectAccess(r, id, "delete"); err != nil {
			respondStoreError(w, err)
			return
		}
		if err := s.store.DeleteProject(r.Context(), id); err != nil {
			respondStoreError(w, err)
			return
		}
		s.indexes.Invalidate(id)
		logging.Info("project_deleted", "project_id", id)
		respond(w, http.StatusOK, map[string]string{"message": "Project deleted"})
	default:
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET, PUT, and DELETE are allowed")
	}
}

// Document handlers

type createDocumentRequest struct {
	Name string          `json:"name"`
	Pack json.RawMessage `json:"pack"`
}

func (s *Server) projectDocuments(w http.ResponseWriter, r *http.Request, projectID string) {
	switch r.Method {
	case http.MethodGet:
		docs, err := s.store.ListDocuments(r.Context(), projectID)
		if err != nil {
			respondStoreError(w, err)
			return
		}
		respondList(w, docs, len(docs))
	case http.MethodPost:
		var req createDocumentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_JSON", errors.NewParse("JSON", "request body", err.Error()).Error())
			return
		}
		if err := s.checkProjectAccess(r, projectID, "create document"); err != nil {
			respondStoreError(w, err)
			return
		}

		doc, err := s.store.CreateDocument(r.Context(), projectID, req.Name, string(req.Pack))
		if err != nil {
			respondStoreError(w, err)
			return
		}

		logging.DocumentEvent("document_created", doc.ID, "project_id", projectID, "name", doc.Name)
		s.hub.BroadcastDocument("created", projectID, doc.ID, doc.Revision)
		respond(w, http.StatusCreated, doc)
	default:
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET and POST are allowed")
	}
}

func (s *Server) handleDocumentByID(w http.ResponseWriter, r *http.Request) {
	id, sub := splitResourcePath(r.URL.Path, "/documents/")
	if id == "" {
		respondError(w, http.StatusBadRequest, "MISSING_ID", "Document ID is required")
		return
	}

	switch sub {
	case "":
		s.documentResource(w, r, id)
	case "pack":
		s.decodedPack(w, r, id)
	case "entries":
		s.documentEntries(w, r, id)
	case "jobs":
		s.documentJobs(w, r, id)
	default:
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Endpoint not found")
	}
}

type savePackRequest struct {
	Pack     json.RawMessage `json:"pack"`
	Revision string          `json:"revision"`
}

func (s *Server) documentResource(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		doc, err := s.store.GetDocument(r.Context(), id)
		if err != nil {
			respondStoreError(w, err)
			return
		}
		respond(w, http.StatusOK, doc)
	case http.MethodPut:
		var req savePackRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_JSON", errors.NewParse("JSON", "request body", err.Error()).Error())
			return
		}

		existing, err := s.store.GetDocument(r.Context(), id)
		if err != nil {
			respondStoreError(w, err)
			return
		}
		if err := s.checkProjectAccess(r, existing.ProjectID, "save"); err != nil {
			respondStoreError(w, err)
			return
		}

		doc, err := s.store.SaveDocumentPack(r.Context(), id, string(req.Pack), revisionFrom(r, req.Revision))
		if err != nil {
			respondStoreError(w, err)
			return
		}

		logging.DocumentEvent("document_saved", doc.ID, "revision", doc.Revision)
		s.hub.BroadcastDocument("updated", doc.ProjectID, doc.ID, doc.Revision)
		respond(w, http.StatusOK, doc)
	case http.MethodDelete:
		doc, err := s.store.GetDocument(r.Context(), id)
		if err != nil {
			respondStoreError(w, err)
			return
		}
		if err := s.checkProjectAccess(r, doc.ProjectID, "delete document"); err != nil {
			respondStoreError(w, err)
			return
		}
		if err := s.store.DeleteDocument(r.Context(), id); err != nil {
			respondStoreError(w, err)
			return
		}
		logging.DocumentEvent("document_deleted", id)
		s.hub.BroadcastDocument("deleted", doc.ProjectID, id, "")
		respond(w, http.StatusOK, map[string]string{"message": "Document deleted"})
	default:
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET, PUT, and DELETE are allowed")
	}
}

// decodedPack decodes the document's wire payload against the project
// ontology and returns the normalized pack.
func (s *Server) decodedPack(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET is allowed")
		return
	}

	doc, _, idx, err := s.loadDocumentIndex(r, id)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	decoded, err := wire.Decode(doc.Pack, idx)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	respond(w, http.StatusOK, map[string]interface{}{
		"documentId": doc.ID,
		"revision":   doc.Revision,
		"pack":       decoded,
	})
}

// Entry mutation handlers

type entryRequest struct {
	Entry    json.RawMessage `json:"entry"`
	Revision string          `json:"revision"`
}

func (s *Server) documentEntries(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodPost:
		s.mutateEntry(w, r, id, "added", wire.Add)
	case http.MethodPut:
		s.mutateEntry(w, r, id, "edited", func(rawText string, entry *wire.Entry, idx *ontology.Index) (string, error) {
			out, changed, err := wire.Edit(rawText, entry, idx)
			if err != nil {
				return "", err
			}
			if !changed {
				return "", errors.NewNotFound("entry", entry.ID())
			}
			return out, nil
		})
	case http.MethodDelete:
		s.deleteEntry(w, r, id)
	default:
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only POST, PUT, and DELETE are allowed")
	}
}

func (s *Server) mutateEntry(w http.ResponseWriter, r *http.Request, id, operation string, mutate func(string, *wire.Entry, *ontology.Index) (string, error)) {
	var req entryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", errors.NewParse("JSON", "request body", err.Error()).Error())
		return
	}
	if err := validation.ValidateEntryPayload(req.Entry); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_ENTRY", err.Error())
		return
	}

	entry, err := wire.ParseEntry(string(req.Entry))
	if err != nil {
		respondStoreError(w, err)
		return
	}

	doc, proj, idx, err := s.loadDocumentIndex(r, id)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if err := proj.CheckAccess("annotate", actorFrom(r)); err != nil {
		respondStoreError(w, err)
		return
	}

	out, err := mutate(doc.Pack, entry, idx)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	saved, err := s.store.SaveDocumentPack(r.Context(), id, out, revisionFrom(r, req.Revision))
	if err != nil {
		respondStoreError(w, err)
		return
	}

	logging.EntryMutation(operation, id, entry.Type, "revision", saved.Revision)
	s.hub.BroadcastEntry(operation, id, saved.Revision, map[string]interface{}{
		"entryType": entry.Type,
	})
	respond(w, http.StatusOK, saved)
}

func (s *Server) deleteEntry(w http.ResponseWriter, r *http.Request, id string) {
	entryID := r.URL.Query().Get("id")
	kind := pack.Kind(r.URL.Query().Get("kind"))
	if entryID == "" || kind == "" {
		respondError(w, http.StatusBadRequest, "MISSING_PARAMS", "id and kind query parameters are required")
		return
	}

	doc, proj, idx, err := s.loadDocumentIndex(r, id)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if err := proj.CheckAccess("annotate", actorFrom(r)); err != nil {
		respondStoreError(w, err)
		return
	}

	out, changed, err := wire.Delete(doc.Pack, entryID, kind, idx)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if !changed {
		respondError(w, http.StatusNotFound, "NOT_FOUND", errors.NewNotFound("entry", entryID).Error())
		return
	}

	saved, err := s.store.SaveDocumentPack(r.Context(), id, out, revisionFrom(r, ""))
	if err != nil {
		respondStoreError(w, err)
		return
	}

	logging.EntryMutation("deleted", id, string(kind), "entry_id", entryID, "revision", saved.Revision)
	s.hub.BroadcastEntry("deleted", id, saved.Revision, map[string]interface{}{
		"entryId": entryID,
		"kind":    string(kind),
	})
	respond(w, http.StatusOK, saved)
}

// Job handlers

type createJobRequest struct {
	Assignee string `json:"assignee"`
}

type updateJobRequest struct {
	Status   string `json:"status"`
	Assignee string `json:"assignee"`
}

func (s *Server) documentJobs(w http.ResponseWriter, r *http.Request, docID string) {
	switch r.Method {
	case http.MethodGet:
		jobs, err := s.store.ListJobs(r.Context(), docID)
		if err != nil {
			respondStoreError(w, err)
			return
		}
		respondList(w, jobs, len(jobs))
	case http.MethodPost:
		var req createJobRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_JSON", errors.NewParse("JSON", "request body", err.Error()).Error())
			return
		}
		assignee := server.LimitStringLength(server.SanitizeUserInput(req.Assignee), 64)
		job, err := s.store.CreateJob(r.Context(), docID, assignee)
		if err != nil {
			respondStoreError(w, err)
			return
		}
		respond(w, http.StatusCreated, job)
	default:
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET and POST are allowed")
	}
}

// handleJobs lists jobs filtered by assignee, so an annotator can query
// their queue across documents.
func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET is allowed")
		return
	}

	assignee := r.URL.Query().Get("assignee")
	if assignee == "" {
		respondError(w, http.StatusBadRequest, "MISSING_PARAMS", "assignee query parameter is required")
		return
	}

	jobs, err := s.store.ListJobsByAssignee(r.Context(), assignee)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondList(w, jobs, len(jobs))
}

func (s *Server) handleJobByID(w http.ResponseWriter, r *http.Request) {
	id, sub := splitResourcePath(r.URL.Path, "/jobs/")
	if id == "" || sub != "" {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Endpoint not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		job, err := s.store.GetJob(r.Context(), id)
		if err != nil {
			respondStoreError(w, err)
			return
		}
		respond(w, http.StatusOK, job)
	case http.MethodPut:
		var req updateJobRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_JSON", errors.NewParse("JSON", "request body", err.Error()).Error())
			return
		}
		if err := s.store.UpdateJobStatus(r.Context(), id, req.Status, req.Assignee); err != nil {
			respondStoreError(w, err)
			return
		}
		job, err := s.store.GetJob(r.Context(), id)
		if err != nil {
			respondStoreError(w, err)
			return
		}
		respond(w, http.StatusOK, job)
	case http.MethodDelete:
		if err := s.store.DeleteJob(r.Context(), id); err != nil {
			respondStoreError(w, err)
			return
		}
		respond(w, http.StatusOK, map[string]string{"message": "Job deleted"})
	default:
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET, PUT, and DELETE are allowed")
	}
}

// Export handler

func (s *Server) exportProject(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET is allowed")
		return
	}

	archivePath, err := ExportProject(r.Context(), s.store, id, s.cfg.ExportsDir)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/x-xz")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", filepath.Base(archivePath)))
	http.ServeFile(w, r, archivePath)
}

// Helpers

// loadDocumentIndex fetches a document with its owning project and builds
// the ontology index. Built indexes are cached per project, keyed by the
// hash of the ontology text so an ontology update invalidates naturally.
func (s *Server) loadDocumentIndex(r *http.Request, id string) (*store.Document, *store.Project, *ontology.Index, error) {
	doc, proj, err := s.store.LoadDocument(r.Context(), id)
	if err != nil {
		return nil, nil, nil, err
	}

	revision := pack.HashString(proj.Ontology)
	if idx, ok := s.indexes.Get(proj.ID, revision); ok {
		return doc, proj, idx, nil
	}

	idx, err := ontology.Build(proj.Ontology)
	if err != nil {
		return nil, nil, nil, err
	}
	s.indexes.Put(proj.ID, revision, idx)
	return doc, proj, idx, nil
}

// checkProjectAccess enforces the owner restriction for a write operation.
func (s *Server) checkProjectAccess(r *http.Request, projectID, operation string) error {
	proj, err := s.store.GetProject(r.Context(), projectID)
	if err != nil {
		return err
	}
	return proj.CheckAccess(operation, actorFrom(r))
}

// revisionFrom resolves the expected revision for an optimistic write:
// the If-Match header wins, then the request body field. Empty skips the check.
func revisionFrom(r *http.Request, bodyRevision string) string {
	if etag := r.Header.Get("If-Match"); etag != "" {
		return strings.Trim(etag, `"`)
	}
	return bodyRevision
}

// splitResourcePath extracts the resource ID and optional sub-resource from
// a path like /documents/<id>/<sub>.
func splitResourcePath(path, prefix string) (id, sub string) {
	rest := strings.TrimPrefix(path, prefix)
	rest = strings.Trim(rest, "/")
	if rest == "" {
		return "", ""
	}
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return parts[0], ""
}

// respondStoreError maps domain errors to HTTP responses.
func respondStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errors.ErrNotFound):
		respondError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, errors.ErrUnauthorized):
		respondError(w, http.StatusForbidden, "PERMISSION_DENIED", err.Error())
	case errors.Is(err, errors.ErrConflict):
		respondError(w, http.StatusConflict, "REVISION_CONFLICT", err.Error())
	case errors.Is(err, errors.ErrAlreadyExists):
		respondError(w, http.StatusConflict, "ALREADY_EXISTS", err.Error())
	case errors.Is(err, errors.ErrUnsupported):
		respondError(w, http.StatusUnprocessableEntity, "UNSUPPORTED", err.Error())
	case errors.Is(err, errors.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, "INVALID_INPUT", err.Error())
	default:
		logging.Error("internal error", "error", err)
		respondError(w, http.StatusInternalServerError, "INTERNAL", "Internal server error")
	}
}

func respondList(w http.ResponseWriter, data interface{}, total int) {
	response := APIResponse{
		Success: true,
		Data:    data,
		Meta: &APIMeta{
			Total:     total,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func respond(w http.ResponseWriter, status int, data interface{}) {
	response := APIResponse{
		Success: true,
		Data:    data,
		Meta: &APIMeta{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	response := APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
		},
		Meta: &APIMeta{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}
