package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kerhoff/IgrejaBoT/internal/models"
	"github.com/Kerhoff/IgrejaBoT/internal/service"
	"github.com/Kerhoff/IgrejaBoT/internal/testutil"
)

type testAPI struct {
	t       *testing.T
	handler http.Handler
	svc     *service.Service
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store := testutil.NewMemStore()
	svc := service.New(logger, store.TxManager(),
		store.Members(), store.Groups(), store.Memberships(), store.Sessions(), store.Classes(),
		service.Options{
			PublicBaseURL: "https://igreja.example.org",
			Now:           func() time.Time { return time.Date(2024, time.March, 6, 10, 0, 0, 0, time.UTC) },
		},
	)
	return &testAPI{t: t, handler: NewServer(svc, logger).Handler(), svc: svc}
}

func (a *testAPI) do(method, path string, body any) *httptest.ResponseRecorder {
	a.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (a *testAPI) createGroup(name string) models.Group {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/api/groups", map[string]string{
		"name":         name,
		"leader":       "Pr. Carlos",
		"meeting_day":  "Quinta-feira",
		"meeting_time": "19:30",
	})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[models.Group](a.t, rec)
}

func (a *testAPI) createMember(name string) models.Member {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/api/members", map[string]string{"name": name})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[models.Member](a.t, rec)
}

func TestHealth(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t)

	rec := a.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestGroupLifecycle(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t)

	g := a.createGroup("Jovens")
	path := "/api/groups/" + strconv.FormatInt(g.ID, 10)

	rec := a.do(http.MethodPatch, path, map[string]string{"location": "Salão 3"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Salão 3", decode[models.Group](t, rec).Location)

	rec = a.do(http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decode[models.GroupSnapshot](t, rec)
	assert.Equal(t, "Jovens", snap.Group.Name)
	assert.Equal(t, "2024-03-07", snap.NextMeeting)

	rec = a.do(http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = a.do(http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateGroup_ValidationFields(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t)

	rec := a.do(http.MethodPost, "/api/groups", map[string]string{"name": "Sem líder"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decode[struct {
		Fields []models.FieldError `json:"fields"`
	}](t, rec)
	fields := make([]string, 0, len(body.Fields))
	for _, f := range body.Fields {
		fields = append(fields, f.Field)
	}
	assert.Contains(t, fields, "leader")
	assert.Contains(t, fields, "meeting_day")
}

func TestBadRequests(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t)

	cases := []struct {
		name   string
		method string
		path   string
	}{
		{"non numeric group id", http.MethodGet, "/api/groups/abc"},
		{"empty body", http.MethodPost, "/api/groups"},
		{"bad status filter", http.MethodGet, "/api/members?status=Maybe"},
		{"negative limit", http.MethodGet, "/api/members?limit=-1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := a.do(tc.method, tc.path, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestRosterAndSessions(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t)

	g := a.createGroup("Casais")
	ana := a.createMember("Ana")
	bia := a.createMember("Bia")
	base := "/api/groups/" + strconv.FormatInt(g.ID, 10)

	rec := a.do(http.MethodPost, base+"/members", map[string][]int64{"member_ids": {ana.ID, bia.ID}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, models.AddResult{Added: 2}, decode[models.AddResult](t, rec))

	rec = a.do(http.MethodPost, base+"/members", map[string][]int64{"member_ids": {ana.ID}})
	assert.Equal(t, models.AddResult{AlreadyMembers: 1}, decode[models.AddResult](t, rec))

	rec = a.do(http.MethodPost, base+"/members", map[string][]int64{"member_ids": {999}})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(http.MethodPost, base+"/sessions", map[string]any{
		"date":               "2024-03-01",
		"lesson_name":        "Oração",
		"present_member_ids": []int64{ana.ID},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[map[string]int64](t, rec)

	rec = a.do(http.MethodPut, base+"/sessions/"+strconv.FormatInt(created["id"], 10), map[string]any{
		"date":               "2024-03-01",
		"lesson_name":        "Oração",
		"present_member_ids": []int64{ana.ID, bia.ID},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.do(http.MethodGet, base+"/sessions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	history := decode[[]models.HistoryEntry](t, rec)
	require.Len(t, history, 1)
	assert.ElementsMatch(t, []int64{ana.ID, bia.ID}, history[0].PresentMemberIDs)
	assert.Equal(t, 2, history[0].TotalMembers)
	assert.InDelta(t, 1.0, history[0].AttendanceRate, 1e-9)

	rec = a.do(http.MethodDelete, base+"/members/"+strconv.FormatInt(bia.ID, 10), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = a.do(http.MethodGet, base+"/members", nil)
	roster := decode[[]models.RosterMember](t, rec)
	require.Len(t, roster, 1)
	assert.Equal(t, "Ana", roster[0].Name)
}

func TestSessionValidation(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t)

	g := a.createGroup("Homens")
	rec := a.do(http.MethodPost, "/api/groups/"+strconv.FormatInt(g.ID, 10)+"/sessions", map[string]any{
		"date":        "01/03/2024",
		"lesson_name": "Fé",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMessages_NoSender(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t)

	g := a.createGroup("Mulheres")
	rec := a.do(http.MethodPost, "/api/groups/"+strconv.FormatInt(g.ID, 10)+"/messages", map[string]string{"text": "Olá"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
