package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/orgchart/modules/orgchart/domain/department"
	"github.com/iota-uz/orgchart/modules/orgchart/domain/person"
	"github.com/iota-uz/orgchart/modules/orgchart/services"
	"github.com/iota-uz/orgchart/pkg/httpapi"
)

type call struct {
	op      string
	orgID   uuid.UUID
	ids     []uuid.UUID
	target  uuid.UUID
	actor   uuid.UUID
	people  services.PeopleUpdates
	parents department.Patch
}

type stubBulk struct {
	calls  []call
	err    error
	denied error
	gated  int
}

func (s *stubBulk) Authorize(context.Context, uuid.UUID, uuid.UUID) error {
	s.gated++
	return s.denied
}

func (s *stubBulk) record(c call) error {
	s.calls = append(s.calls, c)
	return s.err
}

func (s *stubBulk) DeletePeople(_ context.Context, orgID uuid.UUID, ids []uuid.UUID, actor uuid.UUID) (services.BulkResult[person.Person], error) {
	return services.BulkResult[person.Person]{}, s.record(call{op: "delete-people", orgID: orgID, ids: ids, actor: actor})
}

func (s *stubBulk) MovePeople(_ context.Context, orgID uuid.UUID, ids []uuid.UUID, target uuid.UUID, actor uuid.UUID) (services.BulkResult[person.Person], error) {
	return services.BulkResult[person.Person]{}, s.record(call{op: "move-people", orgID: orgID, ids: ids, target: target, actor: actor})
}

func (s *stubBulk) EditPeople(_ context.Context, orgID uuid.UUID, ids []uuid.UUID, updates services.PeopleUpdates, actor uuid.UUID) (services.BulkResult[person.Person], error) {
	return services.BulkResult[person.Person]{}, s.record(call{op: "edit-people", orgID: orgID, ids: ids, people: updates, actor: actor})
}

func (s *stubBulk) DeleteDepartments(_ context.Context, orgID uuid.UUID, ids []uuid.UUID, actor uuid.UUID) (services.BulkResult[department.Department], error) {
	return services.BulkResult[department.Department]{}, s.record(call{op: "delete-departments", orgID: orgID, ids: ids, actor: actor})
}

func (s *stubBulk) EditDepartments(_ context.Context, orgID uuid.UUID, ids []uuid.UUID, updates department.Patch, actor uuid.UUID) (services.BulkResult[department.Department], error) {
	return services.BulkResult[department.Department]{}, s.record(call{op: "edit-departments", orgID: orgID, ids: ids, parents: updates, actor: actor})
}

type stubTree struct {
	depts []department.Department
	err   error
}

func (s *stubTree) ListDepartments(context.Context, uuid.UUID, uuid.UUID) ([]department.Department, error) {
	return s.depts, s.err
}

func (s *stubTree) ListPeople(context.Context, uuid.UUID, uuid.UUID, uuid.UUID) ([]person.Person, error) {
	return []person.Person{}, s.err
}

func (s *stubTree) VisibleDescendants(context.Context, uuid.UUID, uuid.UUID, uuid.UUID) ([]uuid.UUID, error) {
	return []uuid.UUID{}, s.err
}

func newRouter(bulk BulkMutator, tree TreeReader) *mux.Router {
	r := mux.NewRouter()
	NewOrgChartAPIController(bulk, tree, "").Register(r)
	return r
}

func do(t *testing.T, h http.Handler, method, path, actor, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if actor != "" {
		req.Header.Set("X-User-ID", actor)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestBulkRoutesDecodeAndDelegate(t *testing.T) {
	bulk := &stubBulk{}
	h := newRouter(bulk, &stubTree{})
	orgID, actor, id, target := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	base := "/api/orgs/" + orgID.String()
	ids := `{"ids":["` + id.String() + `"]`

	cases := []struct {
		path string
		body string
		op   string
	}{
		{"/people/bulk-delete", ids + `}`, "delete-people"},
		{"/people/bulk-move", ids + `,"departmentId":"` + target.String() + `"}`, "move-people"},
		{"/people/bulk-edit", ids + `,"updates":{"title":null}}`, "edit-people"},
		{"/departments/bulk-delete", ids + `}`, "delete-departments"},
		{"/departments/bulk-edit", ids + `,"updates":{"parentId":null}}`, "edit-departments"},
	}
	for i, tc := range cases {
		rec := do(t, h, http.MethodPost, base+tc.path, actor.String(), tc.body)
		require.Equal(t, http.StatusOK, rec.Code, tc.path)
		got := bulk.calls[i]
		require.Equal(t, tc.op, got.op)
		require.Equal(t, orgID, got.orgID)
		require.Equal(t, actor, got.actor)
		require.Equal(t, []uuid.UUID{id}, got.ids)
	}

	require.Equal(t, target, bulk.calls[1].target)
	require.NotNil(t, bulk.calls[2].people.Title, "explicit null clears the title")
	require.Nil(t, *bulk.calls[2].people.Title)
	require.NotNil(t, bulk.calls[4].parents.Parent, "explicit null moves to root")
	require.Nil(t, *bulk.calls[4].parents.Parent)
}

func TestBulkEditAbsentFieldsStayAbsent(t *testing.T) {
	bulk := &stubBulk{}
	h := newRouter(bulk, &stubTree{})
	base := "/api/orgs/" + uuid.New().String()

	rec := do(t, h, http.MethodPost, base+"/departments/bulk-edit", "", `{"ids":[],"updates":{}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, bulk.calls[0].parents.IsEmpty())
	require.Equal(t, uuid.Nil, bulk.calls[0].actor)

	rec = do(t, h, http.MethodPost, base+"/people/bulk-edit", "", `{"ids":[],"updates":{"departmentId":"`+uuid.NewString()+`"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Nil(t, bulk.calls[1].people.Title)
	require.NotNil(t, bulk.calls[1].people.DepartmentID)
}

func TestBulkRejectsMalformedRequests(t *testing.T) {
	bulk := &stubBulk{}
	h := newRouter(bulk, &stubTree{})
	base := "/api/orgs/" + uuid.New().String()

	cases := map[string]struct {
		path string
		body string
		code string
	}{
		"bad org id":     {"/api/orgs/nope/people/bulk-delete", `{"ids":[]}`, codeInvalidPath},
		"empty body":     {base + "/people/bulk-delete", ``, codeInvalidBody},
		"unknown field":  {base + "/people/bulk-delete", `{"ids":[],"extra":1}`, codeInvalidBody},
		"bad uuid":       {base + "/people/bulk-delete", `{"ids":["x"]}`, codeInvalidBody},
		"missing target": {base + "/people/bulk-move", `{"ids":[]}`, codeInvalidBody},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, tc.path, "", tc.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			var env httpapi.ErrorEnvelope
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
			require.Equal(t, tc.code, env.Code)
		})
	}
	require.Empty(t, bulk.calls)
}

func TestBulkGateRunsBeforeBodyValidation(t *testing.T) {
	denied := &services.ServiceError{Status: http.StatusForbidden, Code: services.CodePermissionDenied, Message: "permission denied"}
	bulk := &stubBulk{denied: denied}
	h := newRouter(bulk, &stubTree{})
	base := "/api/orgs/" + uuid.New().String()

	paths := []string{
		"/people/bulk-delete",
		"/people/bulk-move",
		"/people/bulk-edit",
		"/departments/bulk-delete",
		"/departments/bulk-edit",
	}
	for _, path := range paths {
		for _, body := range []string{``, `{"ids":["x"]}`, `{"ids":[],"extra":1}`} {
			rec := do(t, h, http.MethodPost, base+path, uuid.NewString(), body)
			require.Equal(t, http.StatusForbidden, rec.Code, path+" "+body)
			var env httpapi.ErrorEnvelope
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
			require.Equal(t, services.CodePermissionDenied, env.Code)
		}
	}
	require.Equal(t, len(paths)*3, bulk.gated)
	require.Empty(t, bulk.calls)

	// a bad org id is still a path error; the gate needs a scope
	rec := do(t, h, http.MethodPost, "/api/orgs/nope/people/bulk-delete", "", `{"ids":[]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, len(paths)*3, bulk.gated)
}

func TestServiceErrorsMapToStatus(t *testing.T) {
	base := "/api/orgs/" + uuid.New().String()
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{&services.ServiceError{Status: 403, Code: services.CodePermissionDenied, Message: "permission denied"}, 403, services.CodePermissionDenied},
		{&services.ServiceError{Status: 400, Code: services.CodeBadBatch, Message: "At least one item is required"}, 400, services.CodeBadBatch},
		{&services.ServiceError{Status: 404, Code: services.CodeTargetNotFound, Message: "missing"}, 404, services.CodeTargetNotFound},
		{context.DeadlineExceeded, 500, services.CodeInternal},
	}
	for _, tc := range cases {
		h := newRouter(&stubBulk{err: tc.err}, &stubTree{})
		rec := do(t, h, http.MethodPost, base+"/people/bulk-delete", "", `{"ids":[]}`)
		require.Equal(t, tc.status, rec.Code)
		var env httpapi.ErrorEnvelope
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
		require.Equal(t, tc.code, env.Code)
	}
}

func TestListDepartments(t *testing.T) {
	d := department.Hydrate(uuid.New(), uuid.New(), nil, "Ops", nil, 0, nil, time.Now(), time.Now())
	h := newRouter(&stubBulk{}, &stubTree{depts: []department.Department{d}})

	rec := do(t, h, http.MethodGet, "/api/orgs/"+uuid.NewString()+"/departments", uuid.NewString(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Departments []map[string]any `json:"departments"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Departments, 1)
	require.Equal(t, "Ops", body.Departments[0]["name"])

	rec = do(t, h, http.MethodGet, "/api/orgs/"+uuid.NewString()+"/departments/not-a-uuid/people", "", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
