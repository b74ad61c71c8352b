package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/iota-uz/orgchart/modules/orgchart/domain/department"
	"github.com/iota-uz/orgchart/modules/orgchart/domain/person"
	"github.com/iota-uz/orgchart/modules/orgchart/services"
	"github.com/iota-uz/orgchart/pkg/application"
	"github.com/iota-uz/orgchart/pkg/composables"
	"github.com/iota-uz/orgchart/pkg/httpapi"
)

const (
	codeInvalidBody = "ORGCHART_INVALID_BODY"
	codeInvalidPath = "ORGCHART_INVALID_PATH"
)

// BulkMutator is implemented by *services.BulkService.
type BulkMutator interface {
	Authorize(ctx context.Context, orgID, actor uuid.UUID) error
	DeletePeople(ctx context.Context, orgID uuid.UUID, ids []uuid.UUID, actor uuid.UUID) (services.BulkResult[person.Person], error)
	MovePeople(ctx context.Context, orgID uuid.UUID, ids []uuid.UUID, target uuid.UUID, actor uuid.UUID) (services.BulkResult[person.Person], error)
	EditPeople(ctx context.Context, orgID uuid.UUID, ids []uuid.UUID, updates services.PeopleUpdates, actor uuid.UUID) (services.BulkResult[person.Person], error)
	DeleteDepartments(ctx context.Context, orgID uuid.UUID, ids []uuid.UUID, actor uuid.UUID) (services.BulkResult[department.Department], error)
	EditDepartments(ctx context.Context, orgID uuid.UUID, ids []uuid.UUID, updates department.Patch, actor uuid.UUID) (services.BulkResult[department.Department], error)
}

// TreeReader is implemented by *services.TreeService.
type TreeReader interface {
	ListDepartments(ctx context.Context, orgID, actor uuid.UUID) ([]department.Department, error)
	ListPeople(ctx context.Context, orgID, departmentID, actor uuid.UUID) ([]person.Person, error)
	VisibleDescendants(ctx context.Context, orgID, departmentID, actor uuid.UUID) ([]uuid.UUID, error)
}

type OrgChartAPIController struct {
	bulk        BulkMutator
	tree        TreeReader
	actorHeader string
	apiPrefix   string
}

func NewOrgChartAPIController(bulk BulkMutator, tree TreeReader, actorHeader string) application.Controller {
	if actorHeader == "" {
		actorHeader = "X-User-ID"
	}
	return &OrgChartAPIController{
		bulk:        bulk,
		tree:        tree,
		actorHeader: actorHeader,
		apiPrefix:   "/api/orgs/{orgId}",
	}
}

func (c *OrgChartAPIController) Key() string {
	return c.apiPrefix
}

func (c *OrgChartAPIController) Register(r *mux.Router) {
	api := r.PathPrefix(c.apiPrefix).Subrouter()

	api.HandleFunc("/people/bulk-delete", c.BulkDeletePeople).Methods(http.MethodPost)
	api.HandleFunc("/people/bulk-move", c.BulkMovePeople).Methods(http.MethodPost)
	api.HandleFunc("/people/bulk-edit", c.BulkEditPeople).Methods(http.MethodPost)
	api.HandleFunc("/departments/bulk-delete", c.BulkDeleteDepartments).Methods(http.MethodPost)
	api.HandleFunc("/departments/bulk-edit", c.BulkEditDepartments).Methods(http.MethodPost)

	api.HandleFunc("/departments", c.ListDepartments).Methods(http.MethodGet)
	api.HandleFunc("/departments/{id}/people", c.ListPeople).Methods(http.MethodGet)
	api.HandleFunc("/departments/{id}/descendants", c.ListDescendants).Methods(http.MethodGet)
}

func (c *OrgChartAPIController) BulkDeletePeople(w http.ResponseWriter, r *http.Request) {
	orgID, actor, ok := c.authorize(w, r)
	if !ok {
		return
	}
	var req bulkIDsRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := c.bulk.DeletePeople(r.Context(), orgID, req.IDs, actor)
	respond(w, r, res, err)
}

func (c *OrgChartAPIController) BulkMovePeople(w http.ResponseWriter, r *http.Request) {
	orgID, actor, ok := c.authorize(w, r)
	if !ok {
		return
	}
	var req bulkMoveRequest
	if !decode(w, r, &req) {
		return
	}
	if req.DepartmentID == uuid.Nil {
		_ = httpapi.WriteRequestError(w, r, http.StatusBadRequest, codeInvalidBody, "departmentId is required")
		return
	}
	res, err := c.bulk.MovePeople(r.Context(), orgID, req.IDs, req.DepartmentID, actor)
	respond(w, r, res, err)
}

func (c *OrgChartAPIController) BulkEditPeople(w http.ResponseWriter, r *http.Request) {
	orgID, actor, ok := c.authorize(w, r)
	if !ok {
		return
	}
	var req bulkEditPeopleRequest
	if !decode(w, r, &req) {
		return
	}
	updates := services.PeopleUpdates{DepartmentID: req.Updates.DepartmentID}
	if req.Updates.Title.Set {
		updates.Title = person.SetTitle(req.Updates.Title.Value)
	}
	res, err := c.bulk.EditPeople(r.Context(), orgID, req.IDs, updates, actor)
	respond(w, r, res, err)
}

func (c *OrgChartAPIController) BulkDeleteDepartments(w http.ResponseWriter, r *http.Request) {
	orgID, actor, ok := c.authorize(w, r)
	if !ok {
		return
	}
	var req bulkIDsRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := c.bulk.DeleteDepartments(r.Context(), orgID, req.IDs, actor)
	respond(w, r, res, err)
}

func (c *OrgChartAPIController) BulkEditDepartments(w http.ResponseWriter, r *http.Request) {
	orgID, actor, ok := c.authorize(w, r)
	if !ok {
		return
	}
	var req bulkEditDepartmentsRequest
	if !decode(w, r, &req) {
		return
	}
	var patch department.Patch
	if req.Updates.ParentID.Set {
		patch.Parent = department.SetParent(req.Updates.ParentID.Value)
	}
	res, err := c.bulk.EditDepartments(r.Context(), orgID, req.IDs, patch, actor)
	respond(w, r, res, err)
}

func (c *OrgChartAPIController) ListDepartments(w http.ResponseWriter, r *http.Request) {
	orgID, actor, ok := c.scope(w, r)
	if !ok {
		return
	}
	depts, err := c.tree.ListDepartments(r.Context(), orgID, actor)
	respond(w, r, map[string]any{"departments": depts}, err)
}

func (c *OrgChartAPIController) ListPeople(w http.ResponseWriter, r *http.Request) {
	orgID, actor, ok := c.scope(w, r)
	if !ok {
		return
	}
	deptID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	people, err := c.tree.ListPeople(r.Context(), orgID, deptID, actor)
	respond(w, r, map[string]any{"people": people}, err)
}

func (c *OrgChartAPIController) ListDescendants(w http.ResponseWriter, r *http.Request) {
	orgID, actor, ok := c.scope(w, r)
	if !ok {
		return
	}
	deptID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	ids, err := c.tree.VisibleDescendants(r.Context(), orgID, deptID, actor)
	respond(w, r, map[string]any{"ids": ids}, err)
}

// scope reads the organization from the path and the actor from the actor
// header. A missing or malformed actor is passed on as uuid.Nil and left to
// the permission gate.
func (c *OrgChartAPIController) scope(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	orgID, ok := pathUUID(w, r, "orgId")
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	actor, err := uuid.Parse(r.Header.Get(c.actorHeader))
	if err != nil {
		actor = uuid.Nil
	}
	return orgID, actor, true
}

// authorize resolves the scope and runs the permission gate before any body
// is read, so a forbidden caller gets 403 whatever it sent.
func (c *OrgChartAPIController) authorize(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	orgID, actor, ok := c.scope(w, r)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	if err := c.bulk.Authorize(r.Context(), orgID, actor); err != nil {
		writeServiceError(w, r, err)
		return uuid.Nil, uuid.Nil, false
	}
	return orgID, actor, true
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil || id == uuid.Nil {
		_ = httpapi.WriteRequestError(w, r, http.StatusBadRequest, codeInvalidPath, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpapi.DecodeJSON(r, dst); err != nil {
		_ = httpapi.WriteRequestError(w, r, http.StatusBadRequest, codeInvalidBody, err.Error())
		return false
	}
	return true
}

func respond(w http.ResponseWriter, r *http.Request, payload any, err error) {
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, payload)
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var svcErr *services.ServiceError
	if errors.As(err, &svcErr) {
		if svcErr.Status >= http.StatusInternalServerError {
			composables.UseLogger(r.Context()).WithError(err).Error("orgchart request failed")
		}
		_ = httpapi.WriteRequestError(w, r, svcErr.Status, svcErr.Code, svcErr.Message)
		return
	}
	composables.UseLogger(r.Context()).WithError(err).Error("orgchart request failed")
	_ = httpapi.WriteRequestError(w, r, http.StatusInternalServerError, services.CodeInternal, "internal error")
}
