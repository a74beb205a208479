package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mbolis/formify/app"
	"github.com/mbolis/formify/config"
	"github.com/mbolis/formify/database"
	"github.com/mbolis/formify/httpx"
	"github.com/mbolis/formify/live"
	"github.com/mbolis/formify/model"
	"github.com/mbolis/formify/report"
	"github.com/mbolis/formify/service"
	"github.com/mbolis/formify/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testServer struct {
	*httptest.Server
	app app.App
}

func newServer(t *testing.T) *testServer {
	t.Helper()
	db, err := database.OpenPath(filepath.Join(t.TempDir(), "test.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	cfg := config.Config{TokenSecret: "test-secret", TokenTTL: time.Minute}
	hub := live.NewHub(ctx)
	builder := report.NewBuilder(db)
	a := app.App{
		DB:           db,
		BearerServer: httpx.NewBearerServer(db, cfg),
		Config:       cfg,
		Services:     service.New(db, hub),
		Reports:      report.NewReports(db),
		Builder:      builder,
		Scheduler:    report.NewScheduler(db, builder, report.NewDeliverer(report.NewSMTPMailer(cfg.SMTP), cfg.SMTP)),
		Hub:          hub,
	}

	for _, u := range []model.User{
		{Username: "owner", Email: "owner@example.com"},
		{Username: "other"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.Username+"-pw"), bcrypt.MinCost)
		require.NoError(t, err)
		require.NoError(t, store.InsertUser(ctx, db, &u, hash))
	}

	srv := httptest.NewServer(Wire(a))
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, app: a}
}

func (s *testServer) login(t *testing.T, username string) string {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, s.URL+"/api/login", nil)
	require.NoError(t, err)
	req.SetBasicAuth(username, username+"-pw")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body.AccessToken)
	return body.AccessToken
}

// do sends body as JSON and decodes the JSON answer into out, if given.
func (s *testServer) do(t *testing.T, method, path, token string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, s.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("content-type", "application/json")
	if token != "" {
		req.Header.Set("authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && strings.HasPrefix(resp.Header.Get("content-type"), "application/json") {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func itoa(n int) string { return strconv.Itoa(n) }

type detail struct {
	Detail string `json:"detail"`
}

func (s *testServer) createForm(t *testing.T, token string, body map[string]any) model.Form {
	t.Helper()
	var form model.Form
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/admin/forms", token, body, &form))
	return form
}

func (s *testServer) createField(t *testing.T, token string, formID string, label string, required bool) model.Field {
	t.Helper()
	var field model.Field
	status := s.do(t, http.MethodPost, "/api/admin/forms/"+formID+"/fields", token, map[string]any{
		"label":       label,
		"field_type":  "text",
		"is_required": required,
	}, &field)
	require.Equal(t, http.StatusCreated, status)
	return field
}

func TestLogin(t *testing.T) {
	s := newServer(t)
	token := s.login(t, "owner")

	var me model.User
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/admin/me", token, nil, &me))
	assert.Equal(t, "owner", me.Username)
	assert.False(t, me.IsStaff)
}

func TestLogin_WrongPassword(t *testing.T) {
	s := newServer(t)
	req, err := http.NewRequest(http.MethodPost, s.URL+"/api/login", nil)
	require.NoError(t, err)
	req.SetBasicAuth("owner", "nope")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAdmin_RequiresToken(t *testing.T) {
	s := newServer(t)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/admin/forms", "", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/admin/forms", "garbage", nil, nil))
}

func TestForms_Validation(t *testing.T) {
	s := newServer(t)
	token := s.login(t, "owner")

	var d detail
	status := s.do(t, http.MethodPost, "/api/admin/forms", token, map[string]any{"description": "no title"}, &d)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "title is required.", d.Detail)

	d = detail{}
	status = s.do(t, http.MethodPost, "/api/admin/forms", token, map[string]any{"title": "Secret", "is_public": false}, &d)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Password is required for private access.", d.Detail)
}

func TestForms_NotOwnedIsNotFound(t *testing.T) {
	s := newServer(t)
	form := s.createForm(t, s.login(t, "owner"), map[string]any{"title": "Mine"})

	other := s.login(t, "other")
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/admin/forms/"+form.ID.String(), other, nil, nil))
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodDelete, "/api/admin/forms/"+form.ID.String(), other, nil, nil))
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/admin/forms/not-a-uuid", other, nil, nil))
}

func TestFields_OrderThroughAPI(t *testing.T) {
	s := newServer(t)
	token := s.login(t, "owner")
	form := s.createForm(t, token, map[string]any{"title": "Ordered"})

	a := s.createField(t, token, form.ID.String(), "A", false)
	b := s.createField(t, token, form.ID.String(), "B", false)
	c := s.createField(t, token, form.ID.String(), "C", false)
	assert.Equal(t, []int{1, 2, 3}, []int{a.OrderNum, b.OrderNum, c.OrderNum})

	var moved model.Field
	status := s.do(t, http.MethodPost, "/api/admin/fields/"+c.ID.String()+"/reorder", token, map[string]any{"order_num": 1}, &moved)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, moved.OrderNum)

	require.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, "/api/admin/fields/"+a.ID.String(), token, nil, nil))

	var fields []model.Field
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/admin/forms/"+form.ID.String()+"/fields", token, nil, &fields))
	require.Len(t, fields, 2)
	assert.Equal(t, "C", fields[0].Label)
	assert.Equal(t, 1, fields[0].OrderNum)
	assert.Equal(t, "B", fields[1].Label)
	assert.Equal(t, 2, fields[1].OrderNum)

	var d detail
	status = s.do(t, http.MethodPost, "/api/admin/fields/"+b.ID.String()+"/reorder", token, map[string]any{"order_num": 0}, &d)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "order_num is required.", d.Detail)
}

func TestFields_UnknownType(t *testing.T) {
	s := newServer(t)
	token := s.login(t, "owner")
	form := s.createForm(t, token, map[string]any{"title": "Typed"})

	var d detail
	status := s.do(t, http.MethodPost, "/api/admin/forms/"+form.ID.String()+"/fields", token, map[string]any{
		"label":      "Color",
		"field_type": "colour",
	}, &d)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Unknown field type 'colour'.", d.Detail)

	field := s.createField(t, token, form.ID.String(), "Name", false)
	d = detail{}
	status = s.do(t, http.MethodPatch, "/api/admin/fields/"+field.ID.String(), token, map[string]any{
		"label":      "Name",
		"field_type": "slider",
	}, &d)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Unknown field type 'slider'.", d.Detail)
}

func TestCatalogs(t *testing.T) {
	s := newServer(t)
	token := s.login(t, "owner")

	var fieldTypes []model.Choice
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/admin/field-types", token, nil, &fieldTypes))
	assert.Len(t, fieldTypes, 11)
	assert.Equal(t, "text", fieldTypes[0].Value)

	var processTypes []model.Choice
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/admin/process-types", token, nil, &processTypes))
	assert.Equal(t, model.ProcessTypes, processTypes)
}

func TestPublicSubmit(t *testing.T) {
	s := newServer(t)
	token := s.login(t, "owner")
	form := s.createForm(t, token, map[string]any{"title": "Feedback"})
	name := s.createField(t, token, form.ID.String(), "Name", true)
	s.createField(t, token, form.ID.String(), "Comment", false)

	var opened model.Form
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/public/forms/"+form.ID.String(), "", nil, &opened))
	assert.Len(t, opened.Fields, 2)

	var d detail
	status := s.do(t, http.MethodPost, "/api/public/forms/"+form.ID.String()+"/submit", "", map[string]any{
		"answers": []map[string]any{},
	}, &d)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Required fields not answered: Name", d.Detail)

	var response model.Response
	status = s.do(t, http.MethodPost, "/api/public/forms/"+form.ID.String()+"/submit", "", map[string]any{
		"answers": []map[string]any{{"field_id": name.ID.String(), "value": "Ada"}},
	}, &response)
	require.Equal(t, http.StatusCreated, status)
	assert.Nil(t, response.SubmittedBy)
	assert.Equal(t, "127.0.0.1", response.IPAddress)

	var responses []model.Response
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/admin/forms/"+form.ID.String()+"/responses", token, nil, &responses))
	assert.Len(t, responses, 1)

	var summary report.Summary
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/admin/forms/"+form.ID.String()+"/report?type=summary", token, nil, &summary))
	assert.Equal(t, 1, summary.Totals.Responses)
}

func TestPublicSubmit_RecordsLoggedInUser(t *testing.T) {
	s := newServer(t)
	token := s.login(t, "owner")
	form := s.createForm(t, token, map[string]any{"title": "Signed"})

	var response model.Response
	status := s.do(t, http.MethodPost, "/api/public/forms/"+form.ID.String()+"/submit", token, map[string]any{
		"answers": []map[string]any{},
	}, &response)
	require.Equal(t, http.StatusCreated, status)
	require.NotNil(t, response.SubmittedBy)

	// a stale token does not block an anonymous submission
	var anonymous model.Response
	status = s.do(t, http.MethodPost, "/api/public/forms/"+form.ID.String()+"/submit", "garbage", map[string]any{
		"answers": []map[string]any{},
	}, &anonymous)
	require.Equal(t, http.StatusCreated, status)
	assert.Nil(t, anonymous.SubmittedBy)
}

func TestPrivateForm(t *testing.T) {
	s := newServer(t)
	token := s.login(t, "owner")
	private := s.createForm(t, token, map[string]any{"title": "Secret", "is_public": false, "access_password": "hunter2"})
	public := s.createForm(t, token, map[string]any{"title": "Open"})
	path := "/api/public/forms/" + private.ID.String()

	var d detail
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, path, "", nil, &d))
	assert.Equal(t, "Password is required.", d.Detail)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, path+"?password=nope", "", nil, &d))
	assert.Equal(t, "Invalid password.", d.Detail)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, path+"?password=hunter2", "", nil, nil))

	var form model.Form
	status := s.do(t, http.MethodPost, "/api/private/forms/validate", "", map[string]any{
		"form_id":  private.ID.String(),
		"password": "hunter2",
	}, &form)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, private.ID, form.ID)

	status = s.do(t, http.MethodPost, "/api/private/forms/validate", "", map[string]any{
		"form_id": public.ID.String(),
	}, &d)
	assert.Equal(t, http.StatusBadRequest, status)

	status = s.do(t, http.MethodPost, "/api/private/forms/validate", "", map[string]any{}, &d)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "form_id is required.", d.Detail)

	n, err := store.CountFormViews(context.Background(), s.app.DB, private.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSubmitResponse_PrivateFormOfAnotherUser(t *testing.T) {
	s := newServer(t)
	owner := s.login(t, "owner")
	other := s.login(t, "other")
	private := s.createForm(t, owner, map[string]any{"title": "Secret", "is_public": false, "access_password": "hunter2"})
	path := "/api/admin/forms/" + private.ID.String() + "/responses"

	var d detail
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPost, path, other, map[string]any{"answers": []any{}}, &d))
	assert.Equal(t, "Password is required.", d.Detail)

	assert.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, path, other, map[string]any{
		"password": "hunter2",
		"answers":  []any{},
	}, nil))
	assert.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, path, owner, map[string]any{"answers": []any{}}, nil))
}

func TestWorkflow(t *testing.T) {
	s := newServer(t)
	token := s.login(t, "owner")
	first := s.createForm(t, token, map[string]any{"title": "Step one"})
	second := s.createForm(t, token, map[string]any{"title": "Step two"})

	var process model.Process
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/admin/processes", token, map[string]any{
		"title":        "Onboarding",
		"process_type": "linear",
	}, &process))

	var step1, step2 model.ProcessStep
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/admin/processes/"+process.ID.String()+"/steps", token, map[string]any{
		"form_id":   first.ID.String(),
		"step_name": "One",
	}, &step1))
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/admin/processes/"+process.ID.String()+"/steps", token, map[string]any{
		"form_id":   second.ID.String(),
		"step_name": "Two",
	}, &step2))
	assert.Equal(t, 2, step2.OrderNum)

	query := "?process_id=" + process.ID.String()
	var progress service.Progress
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/workflow/progress"+query, "", nil, &progress))
	assert.Equal(t, 0, progress.CompletedSteps)
	assert.Equal(t, 2, progress.TotalSteps)

	var current service.CurrentStep
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/workflow/current-step"+query, "", nil, &current))
	require.NotNil(t, current.Step)
	assert.Equal(t, step1.ID, current.Step.ID)

	var completion service.Completion
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/workflow/complete-step", "", map[string]any{
		"step_id": step1.ID.String(),
		"answers": []map[string]any{},
	}, &completion))
	require.NotNil(t, completion.NextStep)
	assert.Equal(t, step2.ID, completion.NextStep.ID)
	assert.False(t, completion.IsProcessComplete)

	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/workflow/progress"+query, "", nil, &progress))
	assert.Equal(t, 1, progress.CompletedSteps)
	assert.InDelta(t, 50.0, progress.Percentage, 0.001)

	var d detail
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/workflow/progress", "", nil, &d))
	assert.Equal(t, "process_id is required.", d.Detail)
}

func TestCategories(t *testing.T) {
	s := newServer(t)
	token := s.login(t, "owner")
	form := s.createForm(t, token, map[string]any{"title": "Tagged"})

	var category model.Category
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/admin/categories", token, map[string]any{"name": "HR"}, &category))

	var d detail
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/admin/categories", token, map[string]any{"name": "HR"}, &d))

	base := "/api/admin/categories/" + itoa(category.ID) + "/entities"
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, base, token, map[string]any{
		"entity_type": "form",
		"entity_id":   form.ID.String(),
	}, nil))

	var links []model.EntityCategory
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, base, token, nil, &links))
	require.Len(t, links, 1)
	assert.Equal(t, model.FormRef(form.ID), links[0].Entity)

	require.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, base+"/"+form.ID.String()+"?type=form", token, nil, nil))

	other := s.login(t, "other")
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, base, other, nil, nil))
}

func TestReports(t *testing.T) {
	s := newServer(t)
	token := s.login(t, "owner")
	form := s.createForm(t, token, map[string]any{"title": "Weekly"})

	var r model.Report
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/admin/reports", token, map[string]any{
		"form_id":       form.ID.String(),
		"type":          "detailed",
		"schedule_type": "weekly",
	}, &r))
	require.NotNil(t, r.NextRun)

	var d detail
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/admin/reports", token, map[string]any{
		"form_id": form.ID.String(),
		"type":    "pie",
	}, &d))
	assert.Equal(t, "type must be one of: summary, detailed.", d.Detail)

	var detailed report.Detailed
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/admin/reports/"+itoa(r.ID)+"/generate", token, nil, &detailed))
	assert.Equal(t, form.ID, detailed.Form.ID)

	var run report.Run
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/admin/reports/"+itoa(r.ID)+"/run", token, nil, &run))
	require.NotNil(t, run.Delivery)
	assert.False(t, run.Delivered)

	other := s.login(t, "other")
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/admin/reports/"+itoa(r.ID), other, nil, nil))
}

func TestLiveReports_TokenParam(t *testing.T) {
	s := newServer(t)
	token := s.login(t, "owner")
	form := s.createForm(t, token, map[string]any{"title": "Live", "is_public": false, "access_password": "pw"})

	url := "ws" + strings.TrimPrefix(s.URL, "http") + "/ws/reports/" + form.ID.String()

	conn, _, err := websocket.DefaultDialer.Dial(url+"?access_token="+token, nil)
	require.NoError(t, err)
	defer conn.Close()

	var frame live.Frame
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "init", frame.Type)
	assert.Equal(t, model.ReportSummary, frame.ReportType)

	anon, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer anon.Close()
	_, _, err = anon.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, live.CloseForbidden, closeErr.Code)
}

func TestMetrics(t *testing.T) {
	s := newServer(t)
	resp, err := http.Get(s.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
