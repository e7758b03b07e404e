package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-blackswan/allocation-timeline/internal/chart"
	"github.com/p-blackswan/allocation-timeline/internal/dataservice"
	"github.com/p-blackswan/allocation-timeline/internal/filter"
	"github.com/p-blackswan/allocation-timeline/internal/metrics"
	"github.com/p-blackswan/allocation-timeline/internal/models"
	"github.com/p-blackswan/allocation-timeline/internal/store"
	"github.com/p-blackswan/allocation-timeline/internal/views"
)

const jwtSecret = "test-jwt-secret"

var testNow = time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	app   *fiber.App
	store *store.Store
}

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := models.ParseDate(s)
	require.NoError(t, err)
	return d
}

func newTestEnv(t *testing.T, auth AuthConfig, rl RateLimitConfig) *testEnv {
	t.Helper()
	st, err := store.New(":memory:", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	ctx := context.Background()
	require.NoError(t, st.UpsertResource(ctx, models.ResourceSummary{ID: "r1", Name: "Ada", DefaultRole: "Developer"}))
	require.NoError(t, st.UpsertResource(ctx, models.ResourceSummary{ID: "r2", Name: "Grace", DefaultRole: "QA"}))
	require.NoError(t, st.UpsertResource(ctx, models.ResourceSummary{ID: "r3", Name: "Linus", DefaultRole: "Developer"}))
	require.NoError(t, st.UpsertProject(ctx, models.Project{ID: "p1", Name: "Apollo", Color: models.ColorTeal}))
	require.NoError(t, st.UpsertProject(ctx, models.Project{ID: "p2", Name: "Zeus", Color: models.ColorRed}))
	for _, a := range []models.Allocation{
		{ID: "a1", ResourceID: "r1", ProjectID: models.StringPtr("p1"), StartDate: day(t, "2024-03-12"), EndDate: day(t, "2024-03-14"), Status: models.StatusActive, Effort: models.EffortHigh, Role: "Developer"},
		{ID: "a2", ResourceID: "r2", ProjectID: models.StringPtr("p2"), StartDate: day(t, "2024-03-18"), EndDate: day(t, "2024-03-19"), Status: models.StatusActive, Role: "QA"},
	} {
		a := a
		require.NoError(t, st.SaveAllocation(ctx, &a))
	}

	data := dataservice.NewLocal(st, time.UTC, zerolog.Nop())
	now := func() time.Time { return testNow }
	reg := views.NewRegistry(data, chart.Options{
		WeekStart: time.Sunday,
		Location:  time.UTC,
		Now:       now,
	}, nil, 8, nil, zerolog.Nop())
	t.Cleanup(reg.CloseAll)

	srv := NewServer(ServerConfig{AuthConfig: auth, RateLimit: rl}, Deps{
		Data:      data,
		Store:     st,
		Views:     reg,
		Metrics:   metrics.New(),
		Location:  time.UTC,
		WeekStart: time.Sunday,
		Now:       now,
	}, zerolog.Nop())
	t.Cleanup(func() { srv.Shutdown() })
	return &testEnv{app: srv.App(), store: st}
}

func testApp(t *testing.T, mode, apiKey string) *fiber.App {
	t.Helper()
	return newTestEnv(t, AuthConfig{Mode: mode, APIKey: apiKey, JWTSecret: jwtSecret}, RateLimitConfig{}).app
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req, _ := http.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestAuth_NoAuth_Mode(t *testing.T) {
	app := testApp(t, "none", "")

	req, _ := http.NewRequest("GET", "/api/v1/resources", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuth_APIKey_Valid(t *testing.T) {
	app := testApp(t, "api-key", "test-secret-key")

	req, _ := http.NewRequest("GET", "/api/v1/resources", nil)
	req.Header.Set("Authorization", "Bearer test-secret-key")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuth_APIKey_Missing(t *testing.T) {
	app := testApp(t, "api-key", "test-secret-key")

	req, _ := http.NewRequest("GET", "/api/v1/resources", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	problem := decode[ProblemDetail](t, resp)
	assert.Equal(t, "missing_auth", problem.Type)
	assert.Equal(t, "application/problem+json", resp.Header.Get("Content-Type"))
}

func TestAuth_APIKey_Invalid(t *testing.T) {
	app := testApp(t, "api-key", "test-secret-key")

	req, _ := http.NewRequest("GET", "/api/v1/resources", nil)
	req.Header.Set("Authorization", "Bearer wrong-key")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	problem := decode[ProblemDetail](t, resp)
	assert.Equal(t, "invalid_api_key", problem.Type)
}

func TestAuth_APIKey_InvalidScheme(t *testing.T) {
	app := testApp(t, "api-key", "test-secret-key")

	req, _ := http.NewRequest("GET", "/api/v1/resources", nil)
	req.Header.Set("Authorization", "Basic dGVzdDp0ZXN0")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuth_ProbeEndpoints_NoAuth(t *testing.T) {
	app := testApp(t, "api-key", "test-secret-key")

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		req, _ := http.NewRequest("GET", path, nil)
		resp, err := app.Test(req, -1)
		require.NoError(t, err, "path: %s", path)
		assert.Equal(t, http.StatusOK, resp.StatusCode, "path: %s", path)
	}
}

func TestAuth_JWT_Roles(t *testing.T) {
	app := testApp(t, "jwt", "")

	viewer, err := IssueToken(jwtSecret, "vera", RoleViewer, time.Hour)
	require.NoError(t, err)
	editor, err := IssueToken(jwtSecret, "ed", RoleEditor, time.Hour)
	require.NoError(t, err)

	body := []byte(`{"allocation_id":"a1","role":"Lead"}`)
	post := func(token string) *http.Response {
		req, _ := http.NewRequest("POST", "/api/v1/allocations", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		return resp
	}

	resp := post(viewer)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "insufficient_role", decode[ProblemDetail](t, resp).Type)

	resp = post(editor)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req, _ := http.NewRequest("GET", "/api/v1/resources", nil)
	req.Header.Set("Authorization", "Bearer "+viewer)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuth_JWT_Rejected(t *testing.T) {
	app := testApp(t, "jwt", "")

	wrong, err := IssueToken("other-secret", "eve", RoleAdmin, time.Hour)
	require.NoError(t, err)
	expired, err := IssueToken(jwtSecret, "old", RoleAdmin, -time.Minute)
	require.NoError(t, err)

	for name, token := range map[string]string{"wrong secret": wrong, "expired": expired, "garbage": "not-a-jwt"} {
		req, _ := http.NewRequest("GET", "/api/v1/resources", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := app.Test(req, -1)
		require.NoError(t, err, name)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, name)
		assert.Equal(t, "invalid_token", decode[ProblemDetail](t, resp).Type, name)
	}
}

func TestRequestID_Echoed(t *testing.T) {
	app := testApp(t, "none", "")

	req, _ := http.NewRequest("GET", "/api/v1/projects", nil)
	req.Header.Set("X-Request-ID", "req-42")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, "req-42", resp.Header.Get("X-Request-ID"))

	req, _ = http.NewRequest("GET", "/api/v1/projects", nil)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, AuthConfig{Mode: "none"}, RateLimitConfig{RPS: 1, Burst: 2})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, env.do(t, "GET", "/api/v1/projects", nil).StatusCode)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestDataEndpoints(t *testing.T) {
	env := newTestEnv(t, AuthConfig{Mode: "none"}, RateLimitConfig{})

	resp := env.do(t, "GET", "/api/v1/resources", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rs := decode[struct {
		Resources []models.ResourceSummary `json:"resources"`
	}](t, resp)
	assert.Len(t, rs.Resources, 3)

	resp = env.do(t, "GET", "/api/v1/projects", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ps := decode[struct {
		Projects []models.Project `json:"projects"`
	}](t, resp)
	assert.Len(t, ps.Projects, 2)

	q := dataservice.NewChartQuery("p1", day(t, "2024-03-10"), day(t, "2024-03-23"), 1, filter.Criteria{}, time.UTC)
	resp = env.do(t, "POST", "/api/v1/chart-data", q)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := decode[dataservice.ChartData](t, resp)
	require.NotNil(t, data.ProjectID)
	assert.Equal(t, "p1", *data.ProjectID)
	require.Len(t, data.Resources, 1)
	assert.Equal(t, "r1", data.Resources[0].ID)

	q.OwnerID = "missing"
	resp = env.do(t, "POST", "/api/v1/chart-data", q)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", decode[ProblemDetail](t, resp).Type)
}

func TestAllocationEndpoints(t *testing.T) {
	env := newTestEnv(t, AuthConfig{Mode: "none"}, RateLimitConfig{})
	ctx := context.Background()

	start := models.EncodeDate(day(t, "2024-03-20"), time.UTC)
	end := models.EncodeDate(day(t, "2024-03-21"), time.UTC)
	resp := env.do(t, "POST", "/api/v1/allocations", models.AllocationPatch{
		ResourceID: "r3",
		ProjectID:  models.StringPtr("p2"),
		StartDate:  &start,
		EndDate:    &end,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	res := decode[dataservice.SaveResult](t, resp)
	require.NotEmpty(t, res.AllocationID)

	a, err := env.store.GetAllocation(ctx, res.AllocationID)
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, "Developer", a.Role)
	assert.Equal(t, day(t, "2024-03-21"), a.EndDate)

	resp = env.do(t, "POST", "/api/v1/allocations", models.AllocationPatch{ResourceID: "r3"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, "POST", "/api/v1/allocations", models.AllocationPatch{AllocationID: "nope", Role: models.StringPtr("x")})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.do(t, "DELETE", "/api/v1/allocations/"+res.AllocationID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = env.do(t, "DELETE", "/api/v1/allocations/"+res.AllocationID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSeedingAndAudit(t *testing.T) {
	env := newTestEnv(t, AuthConfig{Mode: "none"}, RateLimitConfig{})

	resp := env.do(t, "PUT", "/api/v1/projects/p3", map[string]string{"name": "Hermes"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	p := decode[models.Project](t, resp)
	assert.Equal(t, "p3", p.ID)
	assert.Equal(t, models.ColorBlue, p.Color)

	resp = env.do(t, "PUT", "/api/v1/projects/p4", map[string]string{"name": "Ares", "color": "plaid"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_color", decode[ProblemDetail](t, resp).Type)

	resp = env.do(t, "PUT", "/api/v1/resources/r9", map[string]string{"name": ""})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, "PUT", "/api/v1/resources/r9", map[string]string{"name": "Barbara", "default_role": "PM"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, "GET", "/api/v1/audit", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	audit := decode[struct {
		Entries []struct {
			UserID string `json:"user_id"`
			Action string `json:"action"`
			Result string `json:"result"`
		} `json:"entries"`
	}](t, resp)
	require.Len(t, audit.Entries, 4)
	var actions []string
	for _, e := range audit.Entries {
		assert.Equal(t, "anonymous", e.UserID)
		actions = append(actions, e.Action+" "+e.Result)
	}
	assert.Contains(t, actions, "PUT /api/v1/projects/:id 400")
	assert.Contains(t, actions, "PUT /api/v1/resources/:id 200")
}

func TestGetGrid(t *testing.T) {
	env := newTestEnv(t, AuthConfig{Mode: "none"}, RateLimitConfig{})

	resp := env.do(t, "GET", "/api/v1/grid?date=2024-03-13&view=1/14", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	g := decode[struct {
		Title string `json:"title"`
		Today string `json:"today"`
		Slots []struct {
			Index   int    `json:"index"`
			Start   string `json:"start"`
			IsToday bool   `json:"is_today"`
		} `json:"slots"`
	}](t, resp)
	assert.Equal(t, "2024-03-13", g.Today)
	require.Len(t, g.Slots, 14)
	assert.Equal(t, "2024-03-10", g.Slots[0].Start)
	assert.True(t, g.Slots[3].IsToday)
	assert.NotEmpty(t, g.Title)

	resp = env.do(t, "GET", "/api/v1/grid?date=13/03/2024", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = env.do(t, "GET", "/api/v1/grid?view=0/3", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// layoutBar finds the bar for allocationID in a decoded layout.
func layoutBar(l chart.Layout, allocationID string) (chart.BarLayout, bool) {
	for _, r := range l.Resources {
		for _, row := range r.Rows {
			for _, b := range row.Bars {
				if b.Allocation.ID == allocationID {
					return b, true
				}
			}
		}
	}
	return chart.BarLayout{}, false
}

func openTestView(t *testing.T, env *testEnv, owner string) chart.Layout {
	t.Helper()
	resp := env.do(t, "POST", "/api/v1/views", views.OpenRequest{OwnerID: owner, View: "1/14", Date: "2024-03-10"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	l := decode[chart.Layout](t, resp)
	require.NotEmpty(t, l.ID)
	require.True(t, l.Loaded)
	return l
}

func TestViews_OpenNavigateClose(t *testing.T) {
	env := newTestEnv(t, AuthConfig{Mode: "none"}, RateLimitConfig{})

	resp := env.do(t, "GET", "/api/v1/views/config", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cfg := decode[struct {
		Views       []struct{ Value string } `json:"views"`
		DefaultView string                   `json:"default_view"`
	}](t, resp)
	assert.Len(t, cfg.Views, 2)
	assert.Equal(t, "7/10", cfg.DefaultView)

	l := openTestView(t, env, "")
	assert.Len(t, l.Resources, 3)
	_, ok := layoutBar(l, "a1")
	assert.True(t, ok)

	base := "/api/v1/views/" + l.ID
	resp = env.do(t, "POST", base+"/navigate", NavigateRequest{Action: "next"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	next := decode[chart.Layout](t, resp)
	_, ok = layoutBar(next, "a1")
	assert.False(t, ok, "a1 ends before the shifted window")
	_, ok = layoutBar(next, "a2")
	assert.True(t, ok)

	resp = env.do(t, "POST", base+"/navigate", NavigateRequest{Action: "sideways"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, "POST", base+"/view", map[string]string{"view": "3/3"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = env.do(t, "POST", base+"/view", map[string]string{"view": "7/10"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, "DELETE", base, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = env.do(t, "GET", base, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = env.do(t, "DELETE", base, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestViews_DragMove(t *testing.T) {
	env := newTestEnv(t, AuthConfig{Mode: "none"}, RateLimitConfig{})
	l := openTestView(t, env, "")
	base := "/api/v1/views/" + l.ID

	resp := env.do(t, "POST", base+"/gestures/begin", map[string]any{"allocation_id": "a1", "direction": "move", "slot": 2})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, "POST", base+"/gestures/begin", map[string]any{"allocation_id": "a1", "slot": 2})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = env.do(t, "POST", base+"/gestures/enter", map[string]any{"slot": 4})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, "POST", base+"/gestures/drop", map[string]any{"slot": 4})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	drop := decode[struct {
		AllocationID string       `json:"allocation_id"`
		Layout       chart.Layout `json:"layout"`
	}](t, resp)
	assert.Equal(t, "a1", drop.AllocationID)
	assert.Nil(t, drop.Layout.Gesture)

	a, err := env.store.GetAllocation(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, day(t, "2024-03-14"), a.StartDate)
	assert.Equal(t, day(t, "2024-03-16"), a.EndDate)

	resp = env.do(t, "POST", base+"/gestures/drop", map[string]any{"slot": 4})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestViews_GestureErrors(t *testing.T) {
	env := newTestEnv(t, AuthConfig{Mode: "none"}, RateLimitConfig{})
	l := openTestView(t, env, "")
	base := "/api/v1/views/" + l.ID

	resp := env.do(t, "POST", base+"/gestures/begin", map[string]any{"allocation_id": "a1", "direction": "diagonal", "slot": 2})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, "POST", base+"/gestures/begin", map[string]any{"allocation_id": "a1"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, "POST", base+"/gestures/begin", map[string]any{"allocation_id": "a1", "direction": "resizeRight", "slot": 4})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, "POST", base+"/gestures/drop", map[string]any{"slot": 40})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "out_of_window", decode[ProblemDetail](t, resp).Type)

	resp = env.do(t, "POST", base+"/gestures/cancel", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, decode[map[string]any](t, resp)["cancelled"])
}

func TestViews_ClickToCreate(t *testing.T) {
	env := newTestEnv(t, AuthConfig{Mode: "none"}, RateLimitConfig{})
	l := openTestView(t, env, "")
	base := "/api/v1/views/" + l.ID

	resp := env.do(t, "POST", base+"/dialog/confirm", map[string]any{})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = env.do(t, "POST", base+"/gestures/click", map[string]any{"resource_id": "r3", "slot": 5})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	click := decode[struct {
		Dialog *chart.DialogState `json:"dialog"`
	}](t, resp)
	require.NotNil(t, click.Dialog)
	assert.Equal(t, chart.DialogCreate, click.Dialog.Kind)

	resp = env.do(t, "POST", base+"/dialog/confirm", map[string]any{"project_id": "p2"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	after := decode[chart.Layout](t, resp)
	assert.Nil(t, after.Dialog)

	allocs, err := env.store.ListAllocations(context.Background(), store.AllocationQuery{
		Start: day(t, "2024-03-15"), End: day(t, "2024-03-15"), ResourceID: "r3",
	})
	require.NoError(t, err)
	require.Len(t, allocs, 1)
	assert.Equal(t, "p2", allocs[0].Project())
	assert.Equal(t, "Developer", allocs[0].Role)
	assert.Equal(t, models.StatusActive, allocs[0].Status)
}

func TestViews_EditAndDeleteDialogs(t *testing.T) {
	env := newTestEnv(t, AuthConfig{Mode: "none"}, RateLimitConfig{})
	l := openTestView(t, env, "")
	base := "/api/v1/views/" + l.ID
	ctx := context.Background()

	resp := env.do(t, "POST", base+"/dialogs/edit", map[string]string{"allocation_id": "missing"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.do(t, "POST", base+"/dialogs/create", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, "POST", base+"/dialogs/edit", map[string]string{"allocation_id": "a1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	state := decode[chart.DialogState](t, resp)
	assert.Equal(t, chart.DialogEdit, state.Kind)

	resp = env.do(t, "POST", base+"/dialog/confirm", map[string]string{"role": "Lead"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	a, err := env.store.GetAllocation(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "Lead", a.Role)

	resp = env.do(t, "POST", base+"/dialogs/delete", map[string]string{"allocation_id": "a1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = env.do(t, "POST", base+"/dialog/close", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Nil(t, decode[chart.Layout](t, resp).Dialog)

	resp = env.do(t, "POST", base+"/dialogs/delete", map[string]string{"allocation_id": "a1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = env.do(t, "POST", base+"/dialog/confirm", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_, ok := layoutBar(decode[chart.Layout](t, resp), "a1")
	assert.False(t, ok)

	a, err = env.store.GetAllocation(ctx, "a1")
	require.NoError(t, err)
	assert.Nil(t, a)
}

func TestViews_FilterAndAddResource(t *testing.T) {
	env := newTestEnv(t, AuthConfig{Mode: "none"}, RateLimitConfig{})
	l := openTestView(t, env, "p1")
	base := "/api/v1/views/" + l.ID
	require.Len(t, l.Resources, 1)

	resp := env.do(t, "POST", base+"/filters/options", FilterOptionsRequest{Kind: "project", Text: "ze"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "filter dialog is closed")

	resp = env.do(t, "POST", base+"/filters", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, chart.DialogFilter, decode[chart.DialogState](t, resp).Kind)

	resp = env.do(t, "POST", base+"/filters/options", FilterOptionsRequest{Kind: "project", Text: "ze"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	opts := decode[struct {
		Options []models.Project `json:"options"`
	}](t, resp)
	require.Len(t, opts.Options, 1)
	assert.Equal(t, "p2", opts.Options[0].ID)

	resp = env.do(t, "POST", base+"/filters/options", FilterOptionsRequest{Kind: "role", Text: "q"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	roles := decode[struct {
		Options []string `json:"options"`
	}](t, resp)
	assert.Equal(t, []string{"QA"}, roles.Options)

	resp = env.do(t, "POST", base+"/filters/options", FilterOptionsRequest{Kind: "color"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, "POST", base+"/dialog/close", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, "POST", base+"/dialogs/add_resource", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = env.do(t, "POST", base+"/dialog/confirm", map[string]string{"resource_id": "r2"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	after := decode[chart.Layout](t, resp)
	require.Len(t, after.Resources, 2)
	assert.Equal(t, "r2", after.Resources[1].ID)
}

func TestViews_UnknownSession(t *testing.T) {
	env := newTestEnv(t, AuthConfig{Mode: "none"}, RateLimitConfig{})

	for _, path := range []string{"/refresh", "/gestures/cancel", "/dialog/close"} {
		resp := env.do(t, "POST", "/api/v1/views/nope"+path, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}
}
