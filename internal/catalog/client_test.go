package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/als-computing/ingest-core/internal/httpclient"
)

func fastTransport() *httpclient.Config {
	return &httpclient.Config{RateLimit: 1000, RateBurst: 100}
}

func TestClient_LoginInstallsToken(t *testing.T) {
	var sawAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			var creds map[string]string
			if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
				t.Errorf("login body: %v", err)
			}
			if creds["username"] != "ingestor" || creds["password"] != "secret" {
				t.Errorf("credentials = %v", creds)
			}
			json.NewEncoder(w).Encode(map[string]string{"access_token": "tok-abc"})
		case "/datasets":
			sawAuth = r.Header.Get("Authorization")
			json.NewEncoder(w).Encode(map[string]string{"pid": "PID.prefix/abc-123"})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, fastTransport())
	if err := c.Login(context.Background(), "ingestor", "secret"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	pid, err := c.CreateDataset(context.Background(), &DatasetCreate{Name: "mysample"})
	if err != nil {
		t.Fatalf("CreateDataset failed: %v", err)
	}
	if pid != "PID.prefix/abc-123" {
		t.Errorf("pid = %q", pid)
	}
	if sawAuth != "Bearer tok-abc" {
		t.Errorf("Authorization = %q", sawAuth)
	}
}

func TestClient_LoginFallsBackToIDToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Older catalog servers return the token in the "id" field.
		json.NewEncoder(w).Encode(map[string]string{"id": "legacy-token"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, fastTransport())
	if err := c.Login(context.Background(), "u", "p"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
}

func TestClient_LoginRejectsEmptyToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	if err := NewClient(srv.URL, fastTransport()).Login(context.Background(), "u", "p"); err == nil {
		t.Fatal("Login accepted a tokenless response")
	}
}

func TestClient_CreateAttachmentEscapesDatasetID(t *testing.T) {
	var sawPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawPath = r.URL.EscapedPath()
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, fastTransport())
	err := c.CreateAttachment(context.Background(), "PID.prefix/abc-123", &AttachmentCreate{Caption: "thumbnail"})
	if err != nil {
		t.Fatalf("CreateAttachment failed: %v", err)
	}
	if !strings.Contains(sawPath, "PID.prefix%2Fabc-123") {
		t.Errorf("dataset id not escaped in path: %q", sawPath)
	}
}
