package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/sayhello/sayhello/internal/directory"
	"github.com/sayhello/sayhello/internal/store"
)

const knownID = "1d1906f5-6ff7-4e35-b2e9-01a7a2f7c6e8"

type recordedRequest struct {
	method string
	path   string
	query  string
	header http.Header
	body   string
}

// newTestClient points a client at an httptest server whose handler
// records every request and replies with the queued responses.
func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *[]recordedRequest) {
	t.Helper()
	var (
		mu       sync.Mutex
		requests []recordedRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		requests = append(requests, recordedRequest{
			method: r.Method,
			path:   r.URL.Path,
			query:  r.URL.RawQuery,
			header: r.Header.Clone(),
			body:   string(body),
		})
		mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	return New(Config{URL: srv.URL, Key: "test-key"}), &requests
}

func respondJSON(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}
}

func TestListRequestShape(t *testing.T) {
	client, requests := newTestClient(t, respondJSON(200, `[{"id":"`+knownID+`","name":"Ann","interests":"run, cook"}]`))

	profiles, err := client.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(profiles) != 1 || profiles[0].Name != "Ann" {
		t.Fatalf("profiles = %+v", profiles)
	}
	if len(profiles[0].Interests) != 2 {
		t.Errorf("interests not split: %v", profiles[0].Interests)
	}

	req := (*requests)[0]
	if req.method != http.MethodGet || req.path != "/rest/v1/profiles" {
		t.Errorf("request = %s %s", req.method, req.path)
	}
	if req.query != "select=%2A" && req.query != "select=*" {
		t.Errorf("query = %q, want select=*", req.query)
	}
	if req.header.Get("apikey") != "test-key" {
		t.Errorf("apikey header = %q", req.header.Get("apikey"))
	}
	if req.header.Get("Authorization") != "Bearer test-key" {
		t.Errorf("Authorization header = %q", req.header.Get("Authorization"))
	}
}

func TestSaveDispatchesOnID(t *testing.T) {
	row := `[{"id":"` + knownID + `","name":"Ann"}]`
	client, requests := newTestClient(t, respondJSON(200, row))

	existing := directory.Profile{ID: directory.ParseRecordID(knownID), Name: "Ann", Interests: []string{}}
	if _, err := client.Save(context.Background(), existing); err != nil {
		t.Fatalf("Save(existing): %v", err)
	}

	fresh := directory.Profile{Name: "Bob", Interests: []string{}}
	if _, err := client.Save(context.Background(), fresh); err != nil {
		t.Fatalf("Save(new): %v", err)
	}

	patch := (*requests)[0]
	if patch.method != http.MethodPatch {
		t.Errorf("existing profile should PATCH, got %s", patch.method)
	}
	if patch.query != "id=eq."+knownID {
		t.Errorf("PATCH query = %q", patch.query)
	}
	if patch.header.Get("Prefer") != "return=representation" {
		t.Errorf("Prefer = %q", patch.header.Get("Prefer"))
	}
	var sent map[string]any
	if err := json.Unmarshal([]byte(patch.body), &sent); err != nil {
		t.Fatalf("decoding PATCH body: %v", err)
	}
	if _, ok := sent["id"]; ok {
		t.Error("PATCH body must not carry the id")
	}

	post := (*requests)[1]
	if post.method != http.MethodPost {
		t.Errorf("new profile should POST, got %s", post.method)
	}
	if post.query != "" {
		t.Errorf("POST query = %q, want none", post.query)
	}
}

func TestSaveEmptyRepresentationIsNotFound(t *testing.T) {
	// PostgREST answers 200 with an empty array when the id filter
	// matched nothing.
	client, _ := newTestClient(t, respondJSON(200, `[]`))

	existing := directory.Profile{ID: directory.ParseRecordID(knownID), Interests: []string{}}
	_, err := client.Save(context.Background(), existing)
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Save on missing row = %v, want ErrNotFound", err)
	}
}

func TestRemoveRequestShape(t *testing.T) {
	client, requests := newTestClient(t, respondJSON(204, ""))

	if err := client.Remove(context.Background(), knownID); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	req := (*requests)[0]
	if req.method != http.MethodDelete || req.query != "id=eq."+knownID {
		t.Errorf("request = %s ?%s", req.method, req.query)
	}
}

func TestBulkSavePartitions(t *testing.T) {
	client, requests := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		// Echo nothing useful; distinguish batches by Prefer header.
		if r.Header.Get("Prefer") == "resolution=merge-duplicates,return=representation" {
			io.WriteString(w, `[{"id":"`+knownID+`","name":"Upserted"}]`)
		} else {
			io.WriteString(w, `[{"id":"2d1906f5-6ff7-4e35-b2e9-01a7a2f7c6e8","name":"Inserted"}]`)
		}
	})

	profiles := []directory.Profile{
		{Name: "New", Interests: []string{}},
		{ID: directory.ParseRecordID(knownID), Name: "Old", Interests: []string{}},
	}
	got, err := client.BulkSave(context.Background(), profiles)
	if err != nil {
		t.Fatalf("BulkSave: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("results = %+v", got)
	}
	if got[0].Name != "Upserted" || got[1].Name != "Inserted" {
		t.Errorf("results must come back upserts-first, got [%s %s]", got[0].Name, got[1].Name)
	}

	if len(*requests) != 2 {
		t.Fatalf("expected two batch requests, got %d", len(*requests))
	}
	seen := map[string]bool{}
	for _, req := range *requests {
		if req.method != http.MethodPost {
			t.Errorf("batch method = %s, want POST", req.method)
		}
		seen[req.header.Get("Prefer")] = true
	}
	if !seen["resolution=merge-duplicates,return=representation"] || !seen["return=representation"] {
		t.Errorf("Prefer headers = %v", seen)
	}
}

func TestBulkSaveEmptyInputSkipsBackend(t *testing.T) {
	client, requests := newTestClient(t, respondJSON(200, `[]`))

	got, err := client.BulkSave(context.Background(), nil)
	if err != nil {
		t.Fatalf("BulkSave(nil): %v", err)
	}
	if len(got) != 0 {
		t.Errorf("results = %+v, want empty", got)
	}
	if len(*requests) != 0 {
		t.Errorf("empty input must not hit the backend, saw %d requests", len(*requests))
	}
}

func TestErrorBodyPropagates(t *testing.T) {
	client, _ := newTestClient(t, respondJSON(409, `{"message":"duplicate key value","code":"23505"}`))

	_, err := client.Save(context.Background(), directory.Profile{Name: "Ann", Interests: []string{}})
	var tErr *store.TransportError
	if !errors.As(err, &tErr) {
		t.Fatalf("err = %v, want *store.TransportError", err)
	}
	if tErr.Status != 409 || tErr.Message != "duplicate key value" {
		t.Errorf("TransportError = %+v", tErr)
	}
}

func TestNonJSONErrorBody(t *testing.T) {
	client, _ := newTestClient(t, respondJSON(502, `bad gateway`))

	_, err := client.List(context.Background())
	var tErr *store.TransportError
	if !errors.As(err, &tErr) {
		t.Fatalf("err = %v, want *store.TransportError", err)
	}
	if tErr.Message != "HTTP 502" {
		t.Errorf("Message = %q, want the status fallback", tErr.Message)
	}
}
