package gcs

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/api/googleapi"

	"github.com/angelmondragon/backoffice-api/pkg/config"
)

func TestUploadSendsMediaRequest(t *testing.T) {
	var gotPath, gotQuery, gotType, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"inventory/a.png"}`))
	}))
	defer srv.Close()

	client := newClient(srv.Client(), srv.URL, config.GCSConfig{BucketName: "shop-media", PublicBaseURL: "https://cdn.example.com/"}, nil)

	publicURL, err := client.Upload(context.Background(), "inventory/a.png", "image/png", strings.NewReader("pngbytes"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if gotPath != "/upload/storage/v1/b/shop-media/o" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if !strings.Contains(gotQuery, "uploadType=media") || !strings.Contains(gotQuery, "name=inventory%2Fa.png") {
		t.Fatalf("unexpected query %q", gotQuery)
	}
	if gotType != "image/png" || gotBody != "pngbytes" {
		t.Fatalf("unexpected request type=%q body=%q", gotType, gotBody)
	}
	if publicURL != "https://cdn.example.com/shop-media/inventory/a.png" {
		t.Fatalf("unexpected public url %q", publicURL)
	}
}

func TestUploadSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"denied"}}`))
	}))
	defer srv.Close()

	client := newClient(srv.Client(), srv.URL, config.GCSConfig{BucketName: "b"}, nil)
	_, err := client.Upload(context.Background(), "x.jpg", "image/jpeg", strings.NewReader("x"))
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected googleapi.Error, got %v", err)
	}
	if apiErr.Code != http.StatusForbidden {
		t.Fatalf("unexpected code %d", apiErr.Code)
	}
}

func TestUploadRequiresObjectName(t *testing.T) {
	client := newClient(http.DefaultClient, "http://unused", config.GCSConfig{BucketName: "b"}, nil)
	if _, err := client.Upload(context.Background(), "/", "", strings.NewReader("")); err == nil {
		t.Fatal("expected error for empty object name")
	}
}

func TestPing(t *testing.T) {
	status := http.StatusOK
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/storage/v1/b/b/o" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := newClient(srv.Client(), srv.URL, config.GCSConfig{BucketName: "b"}, nil)
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	status = http.StatusNotFound
	if err := client.Ping(context.Background()); err == nil {
		t.Fatal("expected ping failure on 404")
	}

	var nilClient *Client
	if err := nilClient.Ping(context.Background()); err == nil {
		t.Fatal("expected error for nil client")
	}
}

func TestPublicURLDefaultsToStorageHost(t *testing.T) {
	client := newClient(http.DefaultClient, defaultEndpoint, config.GCSConfig{BucketName: "b"}, nil)
	if got := client.PublicURL("inventory/my file.png"); got != "https://storage.googleapis.com/b/inventory/my%20file.png" {
		t.Fatalf("unexpected url %q", got)
	}
}
