// Copyright 2026 The Playable Authors
// SPDX-License-Identifier: Apache-2.0

// Package previewserver serves an ingested bundle as if it came from
// a real origin. Every request under the reserved prefix
// /preview/<namespace>/<rest...> is resolved against the blob store
// and never reaches any other handler or a real backend.
//
// The server is a single explicit service object with an activation
// lifecycle: it is constructed once per process and claims the
// serving role the moment Activate is called, so the preview frame's
// in-flight requests are owned immediately rather than falling
// through to a 404 on a real network fetch.
package previewserver

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/playable-foundation/playable/lib/blobstore"
	"github.com/playable-foundation/playable/lib/manifest"
	"github.com/playable-foundation/playable/lib/webbundle"
)

// Prefix is the reserved URL prefix the server owns.
const Prefix = "/preview/"

// ConfigGlobal is the JavaScript global the injected live
// configuration is assigned to. The embedded runtime's bootstrap code
// reads this binding before constructing the game instance.
const ConfigGlobal = "window.homaConfig"

// Server resolves preview requests against the blob store. It is a
// pure read-through view: it owns no bundle data and performs no
// store mutation.
type Server struct {
	store  *blobstore.Store
	logger *slog.Logger

	// active is the claim state. Requests arriving while inactive
	// are answered 503 instead of being allowed to escape to
	// another origin.
	active atomic.Bool

	// mu guards entryPaths: namespace → archive path of the entry
	// document, registered at upload time. Only the entry document
	// gets config injection.
	mu         sync.RWMutex
	entryPaths map[string]string
}

// New creates a preview server over the given store. The server is
// inactive until Activate is called.
func New(store *blobstore.Store, logger *slog.Logger) *Server {
	if store == nil {
		panic("previewserver.New: store is required")
	}
	if logger == nil {
		panic("previewserver.New: logger is required")
	}
	return &Server{
		store:      store,
		logger:     logger,
		entryPaths: make(map[string]string),
	}
}

// Activate claims the serving role immediately. There is no handoff
// wait: requests racing the call are owned as soon as the flag is
// visible.
func (s *Server) Activate() {
	if s.active.CompareAndSwap(false, true) {
		s.logger.Info("preview server activated", "prefix", Prefix)
	}
}

// Deactivate releases the serving role. Subsequent requests get 503.
func (s *Server) Deactivate() {
	if s.active.CompareAndSwap(true, false) {
		s.logger.Info("preview server deactivated")
	}
}

// SetEntryPath registers the entry document path for a namespace.
// Called by the upload flow after ingestion; replaces any previous
// registration for the namespace.
func (s *Server) SetEntryPath(namespace, entryPath string) {
	s.mu.Lock()
	s.entryPaths[namespace] = entryPath
	s.mu.Unlock()
}

func (s *Server) entryPath(namespace string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entryPaths[namespace]
}

// ServeHTTP resolves one preview request. Failures are per-request:
// a bad path never affects other in-flight requests.
func (s *Server) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	if !s.active.Load() {
		http.Error(writer, "preview server is not active", http.StatusServiceUnavailable)
		return
	}

	rest, ok := strings.CutPrefix(request.URL.Path, Prefix)
	if !ok {
		// Mounted under the wrong prefix; refuse rather than guess.
		http.NotFound(writer, request)
		return
	}

	segments := strings.Split(rest, "/")
	if len(segments) < 2 || segments[0] == "" || segments[len(segments)-1] == "" {
		http.Error(writer, "preview path must be /preview/<namespace>/<path>", http.StatusBadRequest)
		return
	}
	namespace := segments[0]
	blobPath := strings.Join(segments[1:], "/")

	blob, err := s.store.Get(request.Context(), namespace, blobPath)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			// Terminal, non-retried: the consuming frame shows its
			// broken-load state.
			http.Error(writer, fmt.Sprintf("preview: no blob at %q in namespace %q", blobPath, namespace), http.StatusNotFound)
			return
		}
		s.logger.Error("preview lookup failed", "namespace", namespace, "path", blobPath, "error", err)
		http.Error(writer, "preview lookup failed", http.StatusInternalServerError)
		return
	}

	body := blob.Data
	injected := false
	if blobPath == s.entryPath(namespace) {
		body, injected = s.injectConfig(request, namespace, body)
	}

	// Content-Type comes from the stored blob but is overridden for
	// known WebGL artifact suffixes: ingestion may have kept
	// still-compressed bytes whose logical type must be reported
	// correctly to the runtime loader.
	writer.Header().Set("Content-Type", overrideContentType(blobPath, blob.ContentType))

	// Never a Content-Encoding header: the payload was already
	// decompressed at ingestion (or deliberately kept raw), and an
	// encoding header would trigger a second decompression attempt
	// in the requester.

	// The entry document varies with the live configuration, so only
	// unmodified blobs are ETag-cacheable.
	if !injected {
		etag := `"` + hex.EncodeToString(blob.Hash[:]) + `"`
		writer.Header().Set("ETag", etag)
		if request.Header.Get("If-None-Match") == etag {
			writer.WriteHeader(http.StatusNotModified)
			return
		}
	}

	writer.Write(body)
}

// injectConfig fetches the live configuration document for the
// namespace and, when present, injects a script assigning it to the
// runtime's config global right after the head-open marker. An absent
// or unreadable document is a degraded default-values preview, not an
// error.
func (s *Server) injectConfig(request *http.Request, namespace string, document []byte) ([]byte, bool) {
	blob, err := s.store.Get(request.Context(), namespace, manifest.FileName)
	if err != nil {
		return document, false
	}

	live, err := manifest.ParseLive(blob.Data)
	if err != nil {
		s.logger.Warn("live configuration unreadable, serving defaults",
			"namespace", namespace, "error", err)
		return document, false
	}

	encoded, err := live.Encode()
	if err != nil {
		s.logger.Warn("live configuration encode failed, serving defaults",
			"namespace", namespace, "error", err)
		return document, false
	}

	script := "<script>" + ConfigGlobal + " = " + string(encoded) + ";</script>"
	return webbundle.InsertAfterHeadOpen(document, script), true
}
