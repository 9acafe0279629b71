// Copyright 2026 The Playable Authors
// SPDX-License-Identifier: Apache-2.0

package previewserver

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/playable-foundation/playable/lib/blobstore"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testServer(t *testing.T) (*Server, *blobstore.Store) {
	t.Helper()
	store, err := blobstore.NewStore("", testLogger())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	server := New(store, testLogger())
	server.Activate()
	return server, store
}

func get(t *testing.T, server *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	recorder := httptest.NewRecorder()
	server.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, path, nil))
	return recorder
}

func TestInactiveServer(t *testing.T) {
	store, err := blobstore.NewStore("", testLogger())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	server := New(store, testLogger())

	response := get(t, server, "/preview/ns/index.html")
	if response.Code != http.StatusServiceUnavailable {
		t.Errorf("inactive server status = %d, want 503", response.Code)
	}

	server.Activate()
	response = get(t, server, "/preview/ns/index.html")
	if response.Code != http.StatusNotFound {
		t.Errorf("active server status = %d, want 404 for missing blob", response.Code)
	}
}

func TestBadPath(t *testing.T) {
	server, _ := testServer(t)

	for _, path := range []string{"/preview/ns", "/preview/ns/", "/preview//x"} {
		response := get(t, server, path)
		if response.Code != http.StatusBadRequest {
			t.Errorf("GET %s status = %d, want 400", path, response.Code)
		}
	}
}

func TestMissNamesThePath(t *testing.T) {
	server, store := testServer(t)

	response := get(t, server, "/preview/ns/does-not-exist")
	if response.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", response.Code)
	}
	if !strings.Contains(response.Body.String(), "does-not-exist") {
		t.Errorf("404 body %q does not name the missing path", response.Body.String())
	}
	// No store mutation on a miss.
	if store.Len("ns") != 0 {
		t.Error("miss mutated the store")
	}
}

func TestServeBlob(t *testing.T) {
	server, store := testServer(t)
	ctx := context.Background()

	data := []byte{1, 2, 3, 4}
	if err := store.Put(ctx, "ns", "Build/game.data.gz", data, "application/octet-stream"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	response := get(t, server, "/preview/ns/Build/game.data.gz")
	if response.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", response.Code)
	}
	if !bytes.Equal(response.Body.Bytes(), data) {
		t.Error("body differs from stored blob")
	}
	if encoding := response.Header().Get("Content-Encoding"); encoding != "" {
		t.Errorf("Content-Encoding = %q, must never be set", encoding)
	}
}

func TestContentTypeOverride(t *testing.T) {
	server, store := testServer(t)
	ctx := context.Background()

	// Stored with a generic declared type; the override table must
	// win for the wasm suffix, compressed variant included.
	if err := store.Put(ctx, "ns", "Build/x.wasm.gz", []byte("raw"), "application/octet-stream"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	response := get(t, server, "/preview/ns/Build/x.wasm.gz")
	if contentType := response.Header().Get("Content-Type"); contentType != "application/wasm" {
		t.Errorf("Content-Type = %q, want application/wasm", contentType)
	}

	// Unknown suffixes keep the declared type.
	if err := store.Put(ctx, "ns", "assets/model.fbx", []byte("x"), "model/custom"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	response = get(t, server, "/preview/ns/assets/model.fbx")
	if contentType := response.Header().Get("Content-Type"); contentType != "model/custom" {
		t.Errorf("Content-Type = %q, want the declared model/custom", contentType)
	}
}

func TestConfigInjection(t *testing.T) {
	server, store := testServer(t)
	ctx := context.Background()

	html := []byte("<html><head><title>g</title></head><body></body></html>")
	if err := store.Put(ctx, "ns", "index.html", html, "text/html"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	server.SetEntryPath("ns", "index.html")

	t.Run("absent_config_serves_unmodified", func(t *testing.T) {
		response := get(t, server, "/preview/ns/index.html")
		if response.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", response.Code)
		}
		if !bytes.Equal(response.Body.Bytes(), html) {
			t.Error("document should be served unmodified without a live config")
		}
	})

	live := []byte(`{"variables":[{"name":"speed","value":"5"}]}`)
	if err := store.Put(ctx, "ns", "homa_config.json", live, "application/json"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	t.Run("injects_after_head_open", func(t *testing.T) {
		body := get(t, server, "/preview/ns/index.html").Body.String()
		want := `<head><script>window.homaConfig = {"variables":[{"name":"speed","value":"5"}]};</script>`
		if !strings.Contains(body, want) {
			t.Errorf("body %q missing injected script %q", body, want)
		}
	})

	t.Run("injection_is_idempotent", func(t *testing.T) {
		first := get(t, server, "/preview/ns/index.html").Body.Bytes()
		second := get(t, server, "/preview/ns/index.html").Body.Bytes()
		if !bytes.Equal(first, second) {
			t.Error("two serves with an unchanged live config must be byte-identical")
		}
	})

	t.Run("non_entry_html_not_injected", func(t *testing.T) {
		if err := store.Put(ctx, "ns", "about.html", html, "text/html"); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		body := get(t, server, "/preview/ns/about.html").Body.String()
		if strings.Contains(body, "homaConfig") {
			t.Error("non-entry documents must not get config injection")
		}
	})
}

func TestConfigInjectionReflectsLiveEdits(t *testing.T) {
	server, store := testServer(t)
	ctx := context.Background()

	if err := store.Put(ctx, "ns", "index.html", []byte("<html><head></head></html>"), "text/html"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	server.SetEntryPath("ns", "index.html")

	if err := store.Put(ctx, "ns", "homa_config.json",
		[]byte(`{"variables":[{"name":"speed","value":"5"}]}`), "application/json"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if !strings.Contains(get(t, server, "/preview/ns/index.html").Body.String(), `"value":"5"`) {
		t.Fatal("first serve missing speed=5")
	}

	// Injection happens at serve time, not ingestion time: a store
	// write is visible on the very next request.
	if err := store.Put(ctx, "ns", "homa_config.json",
		[]byte(`{"variables":[{"name":"speed","value":"9"}]}`), "application/json"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if !strings.Contains(get(t, server, "/preview/ns/index.html").Body.String(), `"value":"9"`) {
		t.Error("second serve missing speed=9")
	}
}

func TestETagRevalidation(t *testing.T) {
	server, store := testServer(t)
	ctx := context.Background()

	if err := store.Put(ctx, "ns", "style.css", []byte("body{}"), "text/css"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	first := get(t, server, "/preview/ns/style.css")
	etag := first.Header().Get("ETag")
	if etag == "" {
		t.Fatal("no ETag on a static blob")
	}

	request := httptest.NewRequest(http.MethodGet, "/preview/ns/style.css", nil)
	request.Header.Set("If-None-Match", etag)
	recorder := httptest.NewRecorder()
	server.ServeHTTP(recorder, request)
	if recorder.Code != http.StatusNotModified {
		t.Errorf("revalidation status = %d, want 304", recorder.Code)
	}
}
