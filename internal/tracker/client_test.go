package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/als-computing/ingest-core/internal/httpclient"
)

func fastTransport() *httpclient.Config {
	return &httpclient.Config{RateLimit: 1000, RateBurst: 100}
}

func TestClient_GetShareNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "u", "p", fastTransport())
	_, err := c.GetShare(context.Background(), "no-such-share")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetShare = %v, want ErrNotFound", err)
	}
}

func TestClient_GetShare(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/shares/als-beegfs" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") == "" {
			t.Error("request not authenticated")
		}
		json.NewEncoder(w).Encode(Share{Slug: "als-beegfs", Name: "ALS BeeGFS"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "u", "p", fastTransport())
	share, err := c.GetShare(context.Background(), "als-beegfs")
	if err != nil {
		t.Fatalf("GetShare failed: %v", err)
	}
	if share.Slug != "als-beegfs" {
		t.Errorf("share = %+v", share)
	}
}

func TestClient_ListBeamlinesFiltersByName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/beamlines" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("name"); got != "bl832" {
			t.Errorf("name filter = %q", got)
		}
		json.NewEncoder(w).Encode([]Beamline{{Slug: "bl832", Name: "bl832"}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "u", "p", fastTransport())
	got, err := c.ListBeamlines(context.Background(), "bl832")
	if err != nil {
		t.Fatalf("ListBeamlines failed: %v", err)
	}
	if len(got) != 1 || got[0].Slug != "bl832" {
		t.Errorf("beamlines = %+v", got)
	}
}

func TestClient_ListInstancesQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("slug_dataset") != "my-dataset" ||
			q.Get("slug_share") != "als-beegfs" ||
			q.Get("path") != "raw/bl832/scan" ||
			q.Get("date_files_deleted__isnull") != "true" {
			t.Errorf("query = %v", q)
		}
		json.NewEncoder(w).Encode([]DatasetInstance{})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "u", "p", fastTransport())
	_, err := c.ListInstances(context.Background(), InstanceFilter{
		SlugDataset:    "my-dataset",
		SlugShare:      "als-beegfs",
		Path:           "raw/bl832/scan",
		ExcludeDeleted: true,
	})
	if err != nil {
		t.Fatalf("ListInstances failed: %v", err)
	}
}

func TestClient_InstanceFileLifecycle(t *testing.T) {
	var deleted string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/dataset-instance-files":
			var in InstanceFileCreate
			if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
				t.Errorf("create body: %v", err)
			}
			if in.InstanceID != "inst-1" || in.Path != "a.txt" {
				t.Errorf("create payload = %+v", in)
			}
			json.NewEncoder(w).Encode(DatasetInstanceFile{
				ID: "file-1", InstanceID: in.InstanceID, Path: in.Path, SizeBytes: in.SizeBytes,
			})
		case r.Method == http.MethodPut && r.URL.Path == "/dataset-instance-files/file-1":
			var f DatasetInstanceFile
			json.NewDecoder(r.Body).Decode(&f)
			json.NewEncoder(w).Encode(f)
		case r.Method == http.MethodDelete && r.URL.Path == "/dataset-instance-files/file-1":
			deleted = "file-1"
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "u", "p", fastTransport())
	ctx := context.Background()

	created, err := c.CreateInstanceFile(ctx, &InstanceFileCreate{
		InstanceID: "inst-1", Path: "a.txt", SizeBytes: 10,
	})
	if err != nil {
		t.Fatalf("CreateInstanceFile failed: %v", err)
	}
	if created.ID != "file-1" {
		t.Errorf("created = %+v", created)
	}

	created.SizeBytes = 15
	if _, err := c.UpdateInstanceFile(ctx, created); err != nil {
		t.Fatalf("UpdateInstanceFile failed: %v", err)
	}

	if err := c.DeleteInstanceFile(ctx, "file-1"); err != nil {
		t.Fatalf("DeleteInstanceFile failed: %v", err)
	}
	if deleted != "file-1" {
		t.Error("delete never reached the server")
	}
}

func TestClient_GetDatasetNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "u", "p", fastTransport())
	if _, err := c.GetDataset(context.Background(), "gone"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetDataset = %v, want ErrNotFound", err)
	}
}
