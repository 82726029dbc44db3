package importer

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/openpim/importer/internal/auth"
	"github.com/openpim/importer/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Handler exposes the import service over HTTP.
type Handler struct {
	service *Service
}

// NewHandler wraps the service with the task API routes.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the task API on a chi router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/imports", h.createTask)
	r.Post("/imports/{taskID}/start", h.startImport)
	r.Post("/imports/{taskID}/cancel", h.cancelImport)
	r.Get("/imports/{taskID}", h.getTask)
	r.Get("/imports/{taskID}/report", h.downloadReport)
	r.Get("/field-schema", h.fieldSchema)
	return r
}

// mappingEntry is one element of the JSON-encoded column mapping, ordered
// as submitted.
type mappingEntry struct {
	Column string `json:"column"`
	Field  string `json:"field"`
}

func (h *Handler) createTask(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, fmt.Sprintf("invalid form data: %v", err), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, fmt.Sprintf("file required: %v", err), http.StatusBadRequest)
		return
	}
	defer file.Close()

	orgID, err := uuid.Parse(strings.TrimSpace(r.FormValue("organizationId")))
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid organization id: %v", err), http.StatusBadRequest)
		return
	}
	if err := auth.EnforceOrganizationScope(r.Context(), orgID); err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	var createdBy uuid.UUID
	if raw := strings.TrimSpace(r.FormValue("userId")); raw != "" {
		createdBy, err = uuid.Parse(raw)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid user id: %v", err), http.StatusBadRequest)
			return
		}
	}

	var entries []mappingEntry
	if err := json.Unmarshal([]byte(r.FormValue("mapping")), &entries); err != nil {
		http.Error(w, fmt.Sprintf("invalid mapping: %v", err), http.StatusBadRequest)
		return
	}
	pairs := make(map[string]string, len(entries))
	order := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Column == "" || entry.Field == "" {
			http.Error(w, "mapping entries require column and field", http.StatusBadRequest)
			return
		}
		if _, dup := pairs[entry.Column]; dup {
			http.Error(w, fmt.Sprintf("duplicate mapping for column %q", entry.Column), http.StatusBadRequest)
			return
		}
		pairs[entry.Column] = entry.Field
		order = append(order, entry.Column)
	}

	task, err := h.service.CreateTask(r.Context(), CreateTaskRequest{
		OrganizationID:    orgID,
		CreatedBy:         createdBy,
		FileName:          header.Filename,
		Data:              file,
		Mapping:           domain.NewColumnMapping(pairs, order),
		DuplicateStrategy: domain.DuplicateStrategy(strings.TrimSpace(r.FormValue("duplicateStrategy"))),
		SchemaVersion:     strings.TrimSpace(r.FormValue("schemaVersion")),
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, taskStatusPayload(task))
}

func (h *Handler) startImport(w http.ResponseWriter, r *http.Request) {
	taskID, ok := parseTaskID(w, r)
	if !ok {
		return
	}
	if err := h.service.StartImport(r.Context(), taskID); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func (h *Handler) cancelImport(w http.ResponseWriter, r *http.Request) {
	taskID, ok := parseTaskID(w, r)
	if !ok {
		return
	}
	status, err := h.service.CancelImport(r.Context(), taskID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

func (h *Handler) getTask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := parseTaskID(w, r)
	if !ok {
		return
	}
	task, err := h.service.GetTask(r.Context(), taskID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, taskStatusPayload(task))
}

func (h *Handler) downloadReport(w http.ResponseWriter, r *http.Request) {
	taskID, ok := parseTaskID(w, r)
	if !ok {
		return
	}
	task, err := h.service.GetTask(r.Context(), taskID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if task.ReportPath == nil || strings.TrimSpace(*task.ReportPath) == "" {
		http.Error(w, "no error report for this task", http.StatusNotFound)
		return
	}

	report, err := os.Open(*task.ReportPath)
	if err != nil {
		http.Error(w, "error report is unavailable", http.StatusNotFound)
		return
	}
	defer report.Close()

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("import-errors-%s.csv", task.ID)))
	http.ServeContent(w, r, "", task.UpdatedAt, report)
}

func (h *Handler) fieldSchema(w http.ResponseWriter, r *http.Request) {
	version := strings.TrimSpace(r.URL.Query().Get("version"))
	writeJSON(w, http.StatusOK, domain.FieldSchemaFor(version))
}

func parseTaskID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	taskID, err := uuid.Parse(chi.URLParam(r, "taskID"))
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid task id: %v", err), http.StatusBadRequest)
		return uuid.Nil, false
	}
	return taskID, true
}

func taskStatusPayload(task domain.ImportTask) map[string]any {
	return map[string]any{
		"id":             task.ID,
		"status":         task.Status,
		"processed":      task.ProcessedRows,
		"total_rows":     task.TotalRows,
		"error_count":    task.ErrorCount,
		"execution_time": task.ExecutionTime.Seconds(),
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}
