package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/guslozua/bitacora-sync/logging"
	"github.com/guslozua/bitacora-sync/models"
)

const dateLayout = "2006-01-02"

// Response is the mutation response shape shared by every backend write
// endpoint.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	ID      string `json:"id,omitempty"`
}

type wireEntity struct {
	ID               string `json:"id"`
	Titulo           string `json:"titulo"`
	Descripcion      string `json:"descripcion"`
	Estado           string `json:"estado"`
	Progreso         *int   `json:"progreso,omitempty"`
	Prioridad        string `json:"prioridad"`
	FechaInicio      string `json:"fecha_inicio"`
	FechaVencimiento string `json:"fecha_vencimiento"`
	IDProyecto       string `json:"id_proyecto,omitempty"`
	IDTarea          string `json:"id_tarea,omitempty"`
}

type listResponse struct {
	Data []wireEntity `json:"data"`
}

type wireAssignment struct {
	IDUsuario string `json:"id_usuario"`
	Rol       string `json:"rol,omitempty"`
}

type assignmentListResponse struct {
	Data []wireAssignment `json:"data"`
}

// CreateTaskRequest mirrors the backend's POST /tasks payload.
type CreateTaskRequest struct {
	Titulo           string `json:"titulo"`
	Descripcion      string `json:"descripcion"`
	Estado           string `json:"estado"`
	Prioridad        string `json:"prioridad"`
	FechaInicio      string `json:"fecha_inicio"`
	FechaVencimiento string `json:"fecha_vencimiento"`
	IDProyecto       string `json:"id_proyecto,omitempty"`
}

// BackendClient is the single boundary where composite-key prefixes are
// stripped and added. Everything past it speaks plain backend ids.
type BackendClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	breakers   map[models.EntityType]*gobreaker.CircuitBreaker
}

func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     2 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Logger.Infof("Event ID: CIRCUIT_BREAKER_STATE_CHANGE, Description: Circuit Breaker '%s' changed from '%s' to '%s'", name, from.String(), to.String())
		},
	})
}

// NewBackendClient builds a client for the operations backend with one
// circuit breaker per entity endpoint group.
func NewBackendClient(baseURL, token string, httpClient *http.Client) *BackendClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &BackendClient{
		baseURL:    baseURL,
		token:      token,
		httpClient: httpClient,
		breakers: map[models.EntityType]*gobreaker.CircuitBreaker{
			models.TypeProject: newBreaker("ProjectsCB"),
			models.TypeTask:    newBreaker("TasksCB"),
			models.TypeSubtask: newBreaker("SubtasksCB"),
		},
	}
}

func pluralFor(t models.EntityType) string {
	switch t {
	case models.TypeProject:
		return "projects"
	case models.TypeSubtask:
		return "subtasks"
	}
	return "tasks"
}

func (c *BackendClient) do(ctx context.Context, t models.EntityType, method, path string, body interface{}, out interface{}) error {
	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return models.NewTransportError("failed to encode request body", err)
		}
		payload = bytes.NewReader(raw)
	}

	_, err := c.breakers[t].Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
		if err != nil {
			return nil, models.NewTransportError("failed to build request", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, models.NewTransportError(fmt.Sprintf("request to %s failed", path), err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			raw, _ := io.ReadAll(resp.Body)
			return nil, models.NewTransportError(fmt.Sprintf("backend error (%d) on %s: %s", resp.StatusCode, path, string(raw)), nil)
		}

		if out != nil {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return nil, models.NewTransportError(fmt.Sprintf("failed to decode response from %s", path), err)
			}
		}
		return nil, nil
	})
	return err
}

// mutate runs a write call and folds a success:false payload into a
// logical error carrying the backend message verbatim.
func (c *BackendClient) mutate(ctx context.Context, t models.EntityType, method, path string, body interface{}) (Response, error) {
	var resp Response
	if err := c.do(ctx, t, method, path, body, &resp); err != nil {
		return Response{}, err
	}
	if !resp.Success {
		msg := resp.Message
		if msg == "" {
			msg = fmt.Sprintf("backend rejected %s %s", method, path)
		}
		return resp, models.NewLogicalError(msg)
	}
	return resp, nil
}

func (c *BackendClient) fetchList(ctx context.Context, t models.EntityType) ([]models.Entity, error) {
	var list listResponse
	if err := c.do(ctx, t, http.MethodGet, "/"+pluralFor(t), nil, &list); err != nil {
		return nil, err
	}
	entities := make([]models.Entity, 0, len(list.Data))
	for _, w := range list.Data {
		entities = append(entities, toEntity(t, w))
	}
	return entities, nil
}

// FetchProjects returns the flat project list.
func (c *BackendClient) FetchProjects(ctx context.Context) ([]models.Entity, error) {
	return c.fetchList(ctx, models.TypeProject)
}

// FetchTasks returns the flat task list.
func (c *BackendClient) FetchTasks(ctx context.Context) ([]models.Entity, error) {
	return c.fetchList(ctx, models.TypeTask)
}

// FetchSubtasks returns the flat subtask list.
func (c *BackendClient) FetchSubtasks(ctx context.Context) ([]models.Entity, error) {
	return c.fetchList(ctx, models.TypeSubtask)
}

// UpdateStatus issues PUT /{plural}/{id} with the translated status
// string.
func (c *BackendClient) UpdateStatus(ctx context.Context, t models.EntityType, id string, estado models.Status) error {
	path := fmt.Sprintf("/%s/%s", pluralFor(t), id)
	_, err := c.mutate(ctx, t, http.MethodPut, path, map[string]string{"estado": string(estado)})
	return err
}

// CreateTask posts a new task under a project and returns the backend id.
func (c *BackendClient) CreateTask(ctx context.Context, req CreateTaskRequest) (string, error) {
	resp, err := c.mutate(ctx, models.TypeTask, http.MethodPost, "/tasks", req)
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}

// CreateSubtask posts a new subtask under a task and returns the backend
// id.
func (c *BackendClient) CreateSubtask(ctx context.Context, taskID string, req CreateTaskRequest) (string, error) {
	req.IDProyecto = ""
	path := fmt.Sprintf("/tasks/%s/subtasks", taskID)
	resp, err := c.mutate(ctx, models.TypeSubtask, http.MethodPost, path, req)
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}

// Delete removes an entity; the backend cascades to children.
func (c *BackendClient) Delete(ctx context.Context, t models.EntityType, id string) error {
	path := fmt.Sprintf("/%s/%s", pluralFor(t), id)
	_, err := c.mutate(ctx, t, http.MethodDelete, path, nil)
	return err
}

// Assignments lists the users assigned to an entity.
func (c *BackendClient) Assignments(ctx context.Context, t models.EntityType, id string) ([]models.AssignmentEntry, error) {
	var list assignmentListResponse
	path := fmt.Sprintf("/%s/%s/assignments", pluralFor(t), id)
	if err := c.do(ctx, t, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	entries := make([]models.AssignmentEntry, 0, len(list.Data))
	for _, w := range list.Data {
		entries = append(entries, models.AssignmentEntry{
			EntityKey: models.CompositeKey(t, id),
			UserID:    w.IDUsuario,
			Role:      w.Rol,
		})
	}
	return entries, nil
}

// Assign adds a user to an entity. The role field is forwarded only for
// projects; the caller is expected to have dropped it otherwise.
func (c *BackendClient) Assign(ctx context.Context, t models.EntityType, id, userID, role string) error {
	path := fmt.Sprintf("/%s/%s/assignments", pluralFor(t), id)
	body := wireAssignment{IDUsuario: userID}
	if models.SupportsRoles(t) {
		body.Rol = role
	}
	_, err := c.mutate(ctx, t, http.MethodPost, path, body)
	return err
}

// Unassign removes a user from an entity.
func (c *BackendClient) Unassign(ctx context.Context, t models.EntityType, id, userID string) error {
	path := fmt.Sprintf("/%s/%s/assignments/%s", pluralFor(t), id, userID)
	_, err := c.mutate(ctx, t, http.MethodDelete, path, nil)
	return err
}

// UpdateRole changes an assignment role. The backend restricts this
// endpoint to projects.
func (c *BackendClient) UpdateRole(ctx context.Context, projectID, userID, role string) error {
	path := fmt.Sprintf("/projects/%s/assignments/%s/rol", projectID, userID)
	_, err := c.mutate(ctx, models.TypeProject, http.MethodPut, path, map[string]string{"rol": role})
	return err
}

// toEntity converts a wire record into the canonical model. An explicit
// numeric progress wins; otherwise progress is derived from the
// normalized status string.
func toEntity(t models.EntityType, w wireEntity) models.Entity {
	status, _ := models.NormalizeStatus(w.Estado)
	progress := models.ProgressForStatus(status)
	if w.Progreso != nil {
		progress = models.ClampProgress(*w.Progreso)
	}

	parentID := ""
	switch t {
	case models.TypeTask:
		parentID = w.IDProyecto
	case models.TypeSubtask:
		parentID = w.IDTarea
	}

	return models.Entity{
		Type:        t,
		ID:          w.ID,
		Title:       w.Titulo,
		Description: w.Descripcion,
		Progress:    progress,
		ParentID:    parentID,
		StartDate:   parseDate(w.FechaInicio),
		EndDate:     parseDate(w.FechaVencimiento),
		Priority:    models.NormalizePriority(w.Prioridad),
	}
}

func parseDate(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	if d, err := time.Parse(dateLayout, raw); err == nil {
		return d
	}
	if d, err := time.Parse(time.RFC3339, raw); err == nil {
		return d
	}
	return time.Time{}
}

// FormatDate renders a date in the backend's wire format.
func FormatDate(d time.Time) string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}
