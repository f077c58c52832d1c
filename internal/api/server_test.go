package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Matt-Aurora-Ventures/Jarvis-sub032/internal/domain/execution"
	"github.com/Matt-Aurora-Ventures/Jarvis-sub032/internal/domain/intent"
	"github.com/Matt-Aurora-Ventures/Jarvis-sub032/internal/infra/store/jsonfile"
	"github.com/Matt-Aurora-Ventures/Jarvis-sub032/internal/service/monitor"
)

type stubJournal struct {
	records []execution.Record
	err     error
}

func (j *stubJournal) Record(_ context.Context, rec execution.Record) error {
	j.records = append(j.records, rec)
	return nil
}

func (j *stubJournal) Recent(_ context.Context, limit int) ([]execution.Record, error) {
	if j.err != nil {
		return nil, j.err
	}
	if limit > 0 && limit < len(j.records) {
		return j.records[:limit], nil
	}
	return j.records, nil
}

func newTestServer(t *testing.T, journal execution.Journal) *Server {
	t.Helper()

	store := jsonfile.New(filepath.Join(t.TempDir(), "intents.json"))
	mon := monitor.NewService(monitor.Config{}, store, nil, nil, nil)
	return NewServer(Config{}, mon, journal)
}

func doRequest(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := doRequest(t, srv, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "OK" {
		t.Errorf("Expected body OK, got %q", rec.Body.String())
	}
}

func TestIntentLifecycle(t *testing.T) {
	srv := newTestServer(t, nil)

	payload := `{
		"position_id": "pos-1",
		"token_mint": "So11111111111111111111111111111111111111112",
		"symbol": "WIF",
		"entry_price": 1,
		"quantity": 1000,
		"auto_execute": true,
		"plan": {
			"take_profits": [
				{"gain_pct": 50, "size_pct": 60},
				{"gain_pct": 100, "size_pct": 25},
				{"gain_pct": 200, "size_pct": 15}
			],
			"stop_loss_pct": 15
		}
	}`

	var created intent.ExitIntent

	t.Run("create resolves the plan", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodPost, "/api/intents", payload)
		if rec.Code != http.StatusCreated {
			t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if created.ID == "" {
			t.Fatal("Expected a generated intent ID")
		}
		if created.Status != intent.StatusActive {
			t.Errorf("Expected active, got %s", created.Status)
		}
		if len(created.TakeProfits) != 3 {
			t.Fatalf("Expected 3 TP levels, got %d", len(created.TakeProfits))
		}
		if created.TakeProfits[0].Price.String() != "1.5" {
			t.Errorf("Expected TP1 at 1.5, got %s", created.TakeProfits[0].Price)
		}
		if created.StopLoss == nil || created.StopLoss.Price.String() != "0.85" {
			t.Error("Expected stop-loss resolved at 0.85")
		}
	})

	t.Run("list returns the intent", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodGet, "/api/intents", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", rec.Code)
		}
		var got []intent.ExitIntent
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("Failed to decode list: %v", err)
		}
		if len(got) != 1 || got[0].ID != created.ID {
			t.Errorf("Expected the created intent listed, got %+v", got)
		}
	})

	t.Run("get by id", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodGet, "/api/intents/"+created.ID, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", rec.Code)
		}
		var got intent.ExitIntent
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("Failed to decode intent: %v", err)
		}
		if got.ID != created.ID {
			t.Errorf("Expected %s, got %s", created.ID, got.ID)
		}
	})

	t.Run("get unknown is 404", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodGet, "/api/intents/missing", "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("Expected 404, got %d", rec.Code)
		}
	})

	t.Run("cancel terminalizes", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodPost, fmt.Sprintf("/api/intents/%s/cancel", created.ID), "")
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		var got intent.ExitIntent
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("Failed to decode intent: %v", err)
		}
		if got.Status != intent.StatusCancelled {
			t.Errorf("Expected cancelled, got %s", got.Status)
		}
	})

	t.Run("cancel again is 409", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodPost, fmt.Sprintf("/api/intents/%s/cancel", created.ID), "")
		if rec.Code != http.StatusConflict {
			t.Errorf("Expected 409, got %d", rec.Code)
		}
	})

	t.Run("cancel unknown is 404", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodPost, "/api/intents/missing/cancel", "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("Expected 404, got %d", rec.Code)
		}
	})
}

func TestCreateIntentDefaultPlan(t *testing.T) {
	srv := newTestServer(t, nil)

	payload := `{
		"position_id": "pos-2",
		"token_mint": "mint",
		"symbol": "TK",
		"entry_price": "2.00",
		"quantity": "500"
	}`

	rec := doRequest(t, srv, http.MethodPost, "/api/intents", payload)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var created intent.ExitIntent
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(created.TakeProfits) != 3 {
		t.Errorf("Expected the default 3-rung ladder, got %d", len(created.TakeProfits))
	}
	if created.TrailingStop == nil || !created.TrailingStop.Active {
		t.Error("Expected the default plan's trailing stop")
	}
	if created.TimeStop == nil {
		t.Error("Expected the default plan's time stop")
	}
	if created.AutoExecute {
		t.Error("Expected auto_execute to default to false")
	}
}

func TestCreateIntentValidation(t *testing.T) {
	srv := newTestServer(t, nil)

	t.Run("malformed body", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodPost, "/api/intents", "{not json")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", rec.Code)
		}
	})

	t.Run("unbuildable plan", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodPost, "/api/intents",
			`{"token_mint": "mint", "symbol": "TK", "entry_price": 0, "quantity": 100}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "invalid exit plan") {
			t.Errorf("Expected a plan validation message, got %q", rec.Body.String())
		}
	})
}

func TestStatsEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := doRequest(t, srv, http.MethodGet, "/api/stats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var stats monitor.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("Failed to decode stats: %v", err)
	}
	if stats.Passes != 0 || stats.ActiveIntents != 0 {
		t.Errorf("Expected zeroed counters, got %+v", stats)
	}
}

func TestExecutionsEndpoint(t *testing.T) {
	journal := &stubJournal{records: []execution.Record{
		{IntentID: "int-1", Trigger: "take_profit", Success: true},
		{IntentID: "int-2", Trigger: "stop_loss", Success: false},
	}}
	srv := newTestServer(t, journal)

	t.Run("returns journal rows", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodGet, "/api/executions", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", rec.Code)
		}
		var got []execution.Record
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("Failed to decode records: %v", err)
		}
		if len(got) != 2 {
			t.Errorf("Expected 2 records, got %d", len(got))
		}
	})

	t.Run("honors limit", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodGet, "/api/executions?limit=1", "")
		var got []execution.Record
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("Failed to decode records: %v", err)
		}
		if len(got) != 1 {
			t.Errorf("Expected 1 record, got %d", len(got))
		}
	})

	t.Run("rejects bad limit", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodGet, "/api/executions?limit=zero", "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", rec.Code)
		}
	})

	t.Run("no journal configured", func(t *testing.T) {
		bare := newTestServer(t, nil)
		rec := doRequest(t, bare, http.MethodGet, "/api/executions", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", rec.Code)
		}
		var got []execution.Record
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("Failed to decode records: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("Expected empty list, got %d", len(got))
		}
	})
}
