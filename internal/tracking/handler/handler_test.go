package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"repairdesk_backend/internal/tracking/service"
	"repairdesk_backend/internal/tracking/transport"
	"repairdesk_backend/platform/httpkit"
	"repairdesk_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func newTestRouter(role, subject string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := service.New(nil, nil, nil, service.Options{
		Now: func() time.Time { return time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC) },
	})
	h := New(svc, validator.New())

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(httpkit.ContextRoleKey, role)
		c.Set(httpkit.ContextSubjectKey, subject)
		c.Next()
	})
	g := r.Group("/tracking")
	g.POST("/technicians/:id/fixes", h.ReportFix)
	h.RegisterRoutes(g)
	return r
}

func postFix(r http.Handler, id, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/tracking/technicians/"+id+"/fixes", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestReportFixAndReadPosition(t *testing.T) {
	tech := uuid.New()
	r := newTestRouter(httpkit.RoleTechnician, tech.String())

	rec := postFix(r, tech.String(), `{"lat": 40.4168, "lng": -3.7038, "accuracy": 5}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp transport.FixResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Accepted || resp.Decision != "first" || resp.Position == nil {
		t.Fatalf("response = %+v", resp)
	}

	req := httptest.NewRequest(http.MethodGet, "/tracking/technicians/"+tech.String()+"/position", nil)
	get := httptest.NewRecorder()
	r.ServeHTTP(get, req)
	if get.Code != http.StatusOK {
		t.Fatalf("position status = %d", get.Code)
	}
	var pos transport.PositionResponse
	if err := json.Unmarshal(get.Body.Bytes(), &pos); err != nil {
		t.Fatal(err)
	}
	if pos.Lat != 40.4168 || pos.Lng != -3.7038 {
		t.Fatalf("position = %+v", pos)
	}
}

func TestReportFixRejects(t *testing.T) {
	tech := uuid.New()

	cases := []struct {
		name    string
		role    string
		subject string
		id      string
		body    string
		want    int
	}{
		{name: "other technician", role: httpkit.RoleTechnician, subject: uuid.NewString(), id: tech.String(), body: `{"lat":1,"lng":1}`, want: http.StatusForbidden},
		{name: "bad id", role: httpkit.RoleService, id: "nope", body: `{"lat":1,"lng":1}`, want: http.StatusBadRequest},
		{name: "missing lat", role: httpkit.RoleService, id: tech.String(), body: `{"lng":1}`, want: http.StatusBadRequest},
		{name: "latitude out of range", role: httpkit.RoleService, id: tech.String(), body: `{"lat":95,"lng":1}`, want: http.StatusBadRequest},
		{name: "negative accuracy", role: httpkit.RoleService, id: tech.String(), body: `{"lat":1,"lng":1,"accuracy":-2}`, want: http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestRouter(tc.role, tc.subject)
			if rec := postFix(r, tc.id, tc.body); rec.Code != tc.want {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tc.want, rec.Body.String())
			}
		})
	}
}

func TestGetPositionUnknownTechnician(t *testing.T) {
	r := newTestRouter(httpkit.RoleDispatcher, "")

	req := httptest.NewRequest(http.MethodGet, "/tracking/technicians/"+uuid.NewString()+"/position", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
