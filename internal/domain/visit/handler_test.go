package visit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/awv/awv/internal/platform/auth"
)

func newTestHandler(t *testing.T) (*Handler, *echo.Echo, *testEnv) {
	env := newTestEnv(t)
	return NewHandler(env.svc), echo.New(), env
}

func physicianRequest(method, body string) *http.Request {
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req.WithContext(auth.WithUser(req.Context(), "dr-a", []string{auth.RolePhysician}))
}

func expectStatus(t *testing.T, err error, code int) {
	t.Helper()
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T (%v)", err, err)
	}
	if httpErr.Code != code {
		t.Errorf("expected %d, got %d", code, httpErr.Code)
	}
}

func TestHandler_ScheduleVisit(t *testing.T) {
	h, e, env := newTestHandler(t)

	body := `{"patientId":"` + env.patient.ID + `","templateId":"` + env.template.ID + `","date":"2026-06-01","provider":"Dr. Adams"}`
	rec := httptest.NewRecorder()
	c := e.NewContext(physicianRequest(http.MethodPost, body), rec)
	if err := h.ScheduleVisit(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}

	var v Visit
	json.Unmarshal(rec.Body.Bytes(), &v)
	if v.UserID != "dr-a" {
		t.Errorf("expected owner dr-a, got %s", v.UserID)
	}
	if v.PatientName != "Jane Smith" {
		t.Errorf("expected patient name snapshot, got %q", v.PatientName)
	}
}

func TestHandler_ScheduleVisit_BadRequest(t *testing.T) {
	h, e, _ := newTestHandler(t)

	c := e.NewContext(physicianRequest(http.MethodPost, `{"date":"2026-06-01"}`), httptest.NewRecorder())
	expectStatus(t, h.ScheduleVisit(c), http.StatusBadRequest)
}

func TestHandler_ScheduleVisit_InactivePatient(t *testing.T) {
	h, e, env := newTestHandler(t)
	env.patients.DeactivatePatient(physicianRequest(http.MethodGet, "").Context(), env.patient.ID)

	body := `{"patientId":"` + env.patient.ID + `","templateId":"` + env.template.ID + `","date":"2026-06-01"}`
	c := e.NewContext(physicianRequest(http.MethodPost, body), httptest.NewRecorder())
	expectStatus(t, h.ScheduleVisit(c), http.StatusConflict)
}

func TestHandler_Transition(t *testing.T) {
	h, e, env := newTestHandler(t)
	v := env.schedule(t)

	rec := httptest.NewRecorder()
	c := e.NewContext(physicianRequest(http.MethodPut, `{"status":"in-progress"}`), rec)
	c.SetParamNames("id")
	c.SetParamValues(v.ID)
	if err := h.Transition(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	c = e.NewContext(physicianRequest(http.MethodPut, `{"status":"scheduled"}`), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(v.ID)
	expectStatus(t, h.Transition(c), http.StatusConflict)

	c = e.NewContext(physicianRequest(http.MethodPut, `{"status":"finished"}`), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(v.ID)
	expectStatus(t, h.Transition(c), http.StatusBadRequest)
}

func TestHandler_RecordAndComplete(t *testing.T) {
	h, e, env := newTestHandler(t)
	v := env.schedule(t)

	rec := httptest.NewRecorder()
	c := e.NewContext(physicianRequest(http.MethodPut, `{"smoke":"yes","packs":1}`), rec)
	c.SetParamNames("id")
	c.SetParamValues(v.ID)
	if err := h.RecordResponses(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got Visit
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got.Status != StatusInProgress {
		t.Errorf("expected in-progress, got %s", got.Status)
	}
	if _, ok := got.Responses["id"]; ok {
		t.Error("expected path params to stay out of responses")
	}

	rec = httptest.NewRecorder()
	c = e.NewContext(physicianRequest(http.MethodPost, `{"recommendations":[{"text":"Walk daily","category":"Exercise"}]}`), rec)
	c.SetParamNames("id")
	c.SetParamValues(v.ID)
	if err := h.CompleteVisit(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got = Visit{}
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got.Status != StatusCompleted {
		t.Errorf("expected completed, got %s", got.Status)
	}
	if len(got.Recommendations) != 3 {
		t.Errorf("expected 3 recommendations, got %d", len(got.Recommendations))
	}

	c = e.NewContext(physicianRequest(http.MethodPut, `{"smoke":"no"}`), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(v.ID)
	expectStatus(t, h.RecordResponses(c), http.StatusConflict)
}

func TestHandler_GetVisit_NotFound(t *testing.T) {
	h, e, _ := newTestHandler(t)

	c := e.NewContext(physicianRequest(http.MethodGet, ""), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("missing")
	expectStatus(t, h.GetVisit(c), http.StatusNotFound)
}

func TestHandler_ListPatientVisits(t *testing.T) {
	h, e, env := newTestHandler(t)
	env.schedule(t)
	env.schedule(t)

	rec := httptest.NewRecorder()
	c := e.NewContext(physicianRequest(http.MethodGet, ""), rec)
	c.SetParamNames("id")
	c.SetParamValues(env.patient.ID)
	if err := h.ListPatientVisits(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var resp struct {
		Total int `json:"total"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Total != 2 {
		t.Errorf("expected total 2, got %d", resp.Total)
	}
}

func TestHandler_ListVisits_BadStatus(t *testing.T) {
	h, e, _ := newTestHandler(t)

	req := physicianRequest(http.MethodGet, "")
	req.URL.RawQuery = "status=bogus"
	c := e.NewContext(req, httptest.NewRecorder())
	expectStatus(t, h.ListVisits(c), http.StatusBadRequest)
}
