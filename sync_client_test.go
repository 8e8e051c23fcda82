package statsync

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPSyncClient_PushDelta(t *testing.T) {
	var gotMethod, gotPath, gotAuth string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"serverVersion": 12}`))
	}))
	defer server.Close()

	transport := NewHTTPTransport(server.URL)
	transport.Authorize = func(req *http.Request) error {
		req.Header.Set("Authorization", "Bearer token")
		return nil
	}
	client := NewHTTPSyncClient(transport, "user one", "scid-1")

	delta := []byte(`{"clientVersion":1,"mutations":[]}`)
	ack, err := client.PushDelta(context.Background(), delta)
	if err != nil {
		t.Fatalf("push failed: %v", err)
	}
	if ack.ServerVersion != 12 {
		t.Fatalf("expected server version 12, got %d", ack.ServerVersion)
	}
	if gotMethod != http.MethodPost {
		t.Fatalf("expected POST, got %s", gotMethod)
	}
	if gotPath != "/stats/users/user%20one/scids/scid-1" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotAuth != "Bearer token" {
		t.Fatalf("expected authorize hook applied, got %q", gotAuth)
	}
	if string(gotBody) != string(delta) {
		t.Fatalf("unexpected body %s", gotBody)
	}
}

func TestHTTPSyncClient_PullSnapshot(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"clientVersion": 2,
			"serverVersion": 7,
			"version":       1,
			"clientId":      "client-9",
			"stats": map[string]any{
				"score": map[string]any{"dataType": "double", "value": 150.0},
				"rank":  map[string]any{"dataType": "string", "value": "gold"},
			},
			"contexts": []map[string]string{
				{"dimensionName": "game_mode", "dimensionValue": "ranked"},
			},
		})
	}))
	defer server.Close()

	client := NewHTTPSyncClient(NewHTTPTransport(server.URL), "u1", "scid-1")
	snap, err := client.PullSnapshot(context.Background())
	if err != nil {
		t.Fatalf("pull failed: %v", err)
	}
	if snap.ServerVersion != 7 || snap.ClientVersion != 2 || snap.ClientID != "client-9" {
		t.Fatalf("unexpected snapshot header: %+v", snap)
	}
	if len(snap.Stats) != 2 {
		t.Fatalf("expected 2 stats, got %d", len(snap.Stats))
	}
	if len(snap.Contexts) != 1 || snap.Contexts[0].Name != "game_mode" {
		t.Fatalf("unexpected contexts: %+v", snap.Contexts)
	}

	doc := NewDocument("local")
	doc.MergeSnapshot(snap)
	score, err := doc.GetStat("score")
	if err != nil || score.Number != 150 {
		t.Fatalf("unexpected merged score: %+v err=%v", score, err)
	}
}

func TestHTTPSyncClient_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewHTTPSyncClient(NewHTTPTransport(server.URL), "u1", "scid-1")
	_, err := client.PushDelta(context.Background(), []byte(`{}`))
	var syncErr *SyncError
	if !errors.As(err, &syncErr) {
		t.Fatalf("expected SyncError, got %v", err)
	}
	if syncErr.Status != http.StatusServiceUnavailable || syncErr.Network {
		t.Fatalf("unexpected classification: %+v", syncErr)
	}
}

func TestHTTPSyncClient_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewHTTPSyncClient(NewHTTPTransport(server.URL), "u1", "scid-1")
	_, err := client.PullSnapshot(context.Background())
	var syncErr *SyncError
	if !errors.As(err, &syncErr) {
		t.Fatalf("expected SyncError, got %v", err)
	}
	if !syncErr.Network {
		t.Fatalf("expected network classification: %+v", syncErr)
	}
}

func TestHTTPSyncClient_MalformedAck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	client := NewHTTPSyncClient(NewHTTPTransport(server.URL), "u1", "scid-1")
	_, err := client.PushDelta(context.Background(), []byte(`{}`))
	var syncErr *SyncError
	if !errors.As(err, &syncErr) || syncErr.Network {
		t.Fatalf("expected non-network SyncError, got %v", err)
	}
}
