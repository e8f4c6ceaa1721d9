package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"repairdesk_backend/internal/autopilot/engine"
	"repairdesk_backend/internal/autopilot/service"
	"repairdesk_backend/internal/autopilot/transport"
	"repairdesk_backend/internal/availability"
	"repairdesk_backend/internal/settings"
	"repairdesk_backend/internal/tickets"
	"repairdesk_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type staticSettings struct {
	s settings.Settings
}

func (f staticSettings) Load(context.Context) (settings.Settings, error) { return f.s, nil }

type oneDayAvailability struct {
	slots []availability.Slot
}

func (f oneDayAvailability) SlotsForDay(context.Context, availability.Request) ([]availability.Slot, error) {
	return f.slots, nil
}

type queue struct {
	ids []uuid.UUID
}

func (q *queue) EnqueueProcessTicket(_ context.Context, id uuid.UUID) error {
	q.ids = append(q.ids, id)
	return nil
}

func newTestRouter(t *testing.T, store *tickets.MemoryStore, enqueuer service.Enqueuer) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := settings.Defaults()
	cfg.Mode = settings.ModePro

	start := time.Now().Add(24 * time.Hour).Truncate(time.Hour)
	avail := oneDayAvailability{slots: []availability.Slot{
		{TechnicianID: uuid.New(), TechnicianName: "Ana", Start: start, End: start.Add(2 * time.Hour)},
	}}

	eng := engine.New(store, avail, nil, nil, nil, engine.Options{})
	sweeper := engine.NewSweeper(store, nil, nil, engine.Options{})
	svc := service.New(staticSettings{s: cfg}, eng, sweeper, service.SweepModeSingle, nil)
	if enqueuer != nil {
		svc.SetEnqueuer(enqueuer)
	}

	r := gin.New()
	New(svc, validator.New()).RegisterRoutes(r.Group("/autopilot"))
	return r
}

func doJSON(r http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func newTicket(store *tickets.MemoryStore) tickets.Ticket {
	t := tickets.Ticket{
		ID:              uuid.New(),
		Status:          tickets.StatusRequested,
		DurationMinutes: 120,
		OriginChannel:   tickets.OriginApp,
		CreatedAt:       time.Now().Add(-time.Minute),
	}
	store.Put(t)
	return t
}

func TestRunSpecificTicket(t *testing.T) {
	store := tickets.NewMemoryStore(time.UTC)
	ticket := newTicket(store)
	r := newTestRouter(t, store, nil)

	rec := doJSON(r, "/autopilot/run", `{"ticketId":"`+ticket.ID.String()+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}

	var resp transport.RunResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Mode != transport.RunModeTicket || len(resp.Results) != 1 || resp.Results[0].Outcome != string(engine.OutcomeProposed) {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestRunEmptyBodyProcessesNext(t *testing.T) {
	store := tickets.NewMemoryStore(time.UTC)
	newTicket(store)
	r := newTestRouter(t, store, nil)

	rec := doJSON(r, "/autopilot/run", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	var resp transport.RunResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Mode != transport.RunModeNext {
		t.Fatalf("mode = %s", resp.Mode)
	}
}

func TestRunRejectsMalformedPayload(t *testing.T) {
	r := newTestRouter(t, tickets.NewMemoryStore(time.UTC), nil)

	cases := []string{
		`{"ticketId":"not-a-uuid"}`,
		`{"batch":true,"limit":50}`,
		`{`,
	}
	for _, body := range cases {
		if rec := doJSON(r, "/autopilot/run", body); rec.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d", body, rec.Code)
		}
	}
}

func TestWebhookEnqueuesInsertedTicket(t *testing.T) {
	store := tickets.NewMemoryStore(time.UTC)
	ticket := newTicket(store)
	q := &queue{}
	r := newTestRouter(t, store, q)

	body := `{"type":"INSERT","table":"tickets","record":{"id":"` + ticket.ID.String() + `","status":"requested"}}`
	rec := doJSON(r, "/autopilot/webhook", body)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	if len(q.ids) != 1 || q.ids[0] != ticket.ID {
		t.Fatalf("queued = %v", q.ids)
	}

	got, _ := store.GetByID(context.Background(), ticket.ID)
	if got.Proposal != nil {
		t.Fatal("queued webhook must not process inline")
	}
}

func TestWebhookProcessesInlineWithoutQueue(t *testing.T) {
	store := tickets.NewMemoryStore(time.UTC)
	ticket := newTicket(store)
	r := newTestRouter(t, store, nil)

	body := `{"type":"INSERT","table":"tickets","record":{"id":"` + ticket.ID.String() + `"}}`
	rec := doJSON(r, "/autopilot/webhook", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}

	got, _ := store.GetByID(context.Background(), ticket.ID)
	if got.Proposal == nil {
		t.Fatal("expected inline processing to attach a proposal")
	}
}

func TestWebhookRejectsUnexpectedPayloads(t *testing.T) {
	store := tickets.NewMemoryStore(time.UTC)
	ticket := newTicket(store)
	r := newTestRouter(t, store, nil)
	id := ticket.ID.String()

	cases := []string{
		`{"type":"UPDATE","table":"tickets","record":{"id":"` + id + `"}}`,
		`{"type":"INSERT","table":"technicians","record":{"id":"` + id + `"}}`,
		`{"type":"INSERT","table":"tickets","record":{}}`,
		`{"table":"tickets","record":{"id":"` + id + `"}}`,
	}
	for _, body := range cases {
		if rec := doJSON(r, "/autopilot/webhook", body); rec.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d", body, rec.Code)
		}
	}

	got, _ := store.GetByID(context.Background(), ticket.ID)
	if !got.IsEligible() {
		t.Fatal("rejected payloads must have no side effects")
	}
}

func TestTimeoutSweepReturnsCounts(t *testing.T) {
	store := tickets.NewMemoryStore(time.UTC)
	ticket := newTicket(store)
	p := tickets.NewProposal(nil, time.Now().Add(-time.Hour), 30)
	ticket.Proposal = &p
	store.Put(ticket)
	r := newTestRouter(t, store, nil)

	rec := doJSON(r, "/autopilot/timeout-sweep", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	var resp transport.SweepResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Checked != 1 || resp.Expired != 1 || resp.Skipped != 0 {
		t.Fatalf("unexpected counts %+v", resp)
	}
}
