package worms

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		BaseURL:            srv.URL,
		RateLimitPerMinute: 600000, // effectively unthrottled for tests
		HTTPClient:         srv.Client(),
	})
}

func TestAphiaRecordByIDParsesRecord(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/AphiaRecordByAphiaID/104464" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"AphiaID":104464,"scientificname":"Calanus finmarchicus","status":"accepted","rank":"Species","lsid":"urn:lsid:marinespecies.org:taxname:104464","kingdom":"Animalia","phylum":"Arthropoda","genus":"Calanus"}`))
	})

	outcome := client.AphiaRecordByID(context.Background(), 104464)
	if !outcome.OK() {
		t.Fatalf("expected record, got notfound=%v err=%v", outcome.NotFound, outcome.Err)
	}
	rec := outcome.Record
	if rec.ScientificName != "Calanus finmarchicus" || !rec.Accepted() || rec.Genus != "Calanus" {
		t.Fatalf("unexpected record %+v", rec)
	}
}

func TestAphiaRecordByIDNoContentIsNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	outcome := client.AphiaRecordByID(context.Background(), 1)
	if !outcome.NotFound || outcome.Err != nil || outcome.OK() {
		t.Fatalf("expected not-found outcome, got %+v", outcome)
	}
}

func TestAphiaRecordByID404IsNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	outcome := client.AphiaRecordByID(context.Background(), 1)
	if !outcome.NotFound || outcome.OK() {
		t.Fatalf("expected not-found outcome, got %+v", outcome)
	}
}

func TestRetryOn500ThenSuccess(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"AphiaID":2,"scientificname":"Animalia","status":"accepted","rank":"Kingdom"}`))
	})
	outcome := client.AphiaRecordByID(context.Background(), 2)
	if !outcome.OK() {
		t.Fatalf("expected success after retry, got %+v", outcome)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestRetryHonorsRetryAfter(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"AphiaID":2,"scientificname":"Animalia","status":"accepted"}`))
	})
	start := time.Now()
	outcome := client.AphiaRecordByID(context.Background(), 2)
	if !outcome.OK() {
		t.Fatalf("expected success after 429, got %+v", outcome)
	}
	// Retry-After: 0 parses to no delay, so the backoff schedule applies;
	// just bound it loosely to catch pathological waits.
	if time.Since(start) > 5*time.Second {
		t.Fatalf("retry took too long")
	}
}

func TestMatchNamesEncodesQueryAndAligns(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		names := q["scientificnames[]"]
		if len(names) != 3 || names[0] != "Animalia" || names[2] != "Calanus sp" {
			t.Errorf("unexpected names %v", names)
		}
		if q.Get("marine_only") != "false" {
			t.Errorf("expected marine_only=false, got %q", q.Get("marine_only"))
		}
		w.Header().Set("Content-Type", "application/json")
		// Second name has no candidates; third list omitted entirely.
		_, _ = w.Write([]byte(`[[{"AphiaID":2,"scientificname":"Animalia","status":"accepted","rank":"Kingdom"}],[]]`))
	})

	matches, err := client.MatchNames(context.Background(), []string{"Animalia", "Nomatchia", "Calanus sp"})
	if err != nil {
		t.Fatalf("match names: %v", err)
	}
	if len(matches) != 3 {
		t.Fatalf("expected 3 aligned lists, got %d", len(matches))
	}
	if len(matches[0]) != 1 || matches[0][0].ScientificName != "Animalia" {
		t.Fatalf("unexpected first list %+v", matches[0])
	}
	if len(matches[1]) != 0 || len(matches[2]) != 0 {
		t.Fatalf("expected empty candidate lists, got %v / %v", matches[1], matches[2])
	}
}

func TestMatchNamesNoContent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	matches, err := client.MatchNames(context.Background(), []string{"Aaa", "Bbb"})
	if err != nil {
		t.Fatalf("match names: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 empty lists, got %d", len(matches))
	}
}

func TestMatchNamesEmptyInput(t *testing.T) {
	client := NewClient(Config{})
	matches, err := client.MatchNames(context.Background(), nil)
	if err != nil || matches != nil {
		t.Fatalf("expected no-op for empty input, got %v %v", matches, err)
	}
}

func TestParseRetryAfter(t *testing.T) {
	if got := parseRetryAfter("3"); got != 3*time.Second {
		t.Fatalf("parseRetryAfter(3) = %v", got)
	}
	if got := parseRetryAfter(""); got != 0 {
		t.Fatalf("parseRetryAfter(empty) = %v", got)
	}
	if got := parseRetryAfter("garbage"); got != 0 {
		t.Fatalf("parseRetryAfter(garbage) = %v", got)
	}
}
