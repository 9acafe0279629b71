// Copyright 2026 The Playable Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"sync"

	"github.com/playable-foundation/playable/lib/blobstore"
	"github.com/playable-foundation/playable/lib/export"
	"github.com/playable-foundation/playable/lib/liveconfig"
	"github.com/playable-foundation/playable/lib/manifest"
	"github.com/playable-foundation/playable/lib/previewserver"
	"github.com/playable-foundation/playable/lib/variable"
	"github.com/playable-foundation/playable/lib/webbundle"
)

// maxArchiveBytes caps uploaded archive size. Build archives are tens
// of megabytes; anything past this is a client error, not a build.
const maxArchiveBytes = 256 << 20

// handlerConfig configures the daemon handler.
type handlerConfig struct {
	Store      *blobstore.Store
	Preview    *previewserver.Server
	Live       *liveconfig.Writer
	Transcoder *export.Transcoder
	Logger     *slog.Logger
}

// handler is the daemon's HTTP surface. Project IDs double as blob
// store namespaces.
type handler struct {
	mux        *http.ServeMux
	store      *blobstore.Store
	preview    *previewserver.Server
	live       *liveconfig.Writer
	transcoder *export.Transcoder
	logger     *slog.Logger

	// projects retains per-project upload state: the original
	// archive bytes (exports always read these, never the store) and
	// the parsed manifest for variable validation.
	mu       sync.Mutex
	projects map[string]*project
}

type project struct {
	archive   []byte
	manifest  *manifest.Manifest
	entryPath string
}

func newHandler(config handlerConfig) *handler {
	if config.Store == nil || config.Preview == nil || config.Live == nil ||
		config.Transcoder == nil || config.Logger == nil {
		panic("newHandler: all dependencies are required")
	}

	h := &handler{
		mux:        http.NewServeMux(),
		store:      config.Store,
		preview:    config.Preview,
		live:       config.Live,
		transcoder: config.Transcoder,
		logger:     config.Logger,
		projects:   make(map[string]*project),
	}

	h.mux.HandleFunc("POST /api/projects/{id}/bundle", h.handleBundle)
	h.mux.HandleFunc("GET /api/projects/{id}/variables", h.handleGetVariables)
	h.mux.HandleFunc("PUT /api/projects/{id}/variables", h.handlePutVariables)
	h.mux.HandleFunc("POST /api/projects/{id}/export", h.handleExport)
	h.mux.Handle(previewserver.Prefix, config.Preview)

	return h
}

func (h *handler) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	h.mux.ServeHTTP(writer, request)
}

// bundleResponse acknowledges an upload.
type bundleResponse struct {
	EntryPath string            `json:"entry_path"`
	Entries   int               `json:"entries"`
	Variables []variable.Config `json:"variables"`
}

// handleBundle ingests an uploaded archive and publishes it to the
// project's namespace: clear first, then one put per entry, so a
// concurrent preview request sees either the old bundle or the new
// one, never a blend with stale leftovers.
func (h *handler) handleBundle(writer http.ResponseWriter, request *http.Request) {
	projectID := request.PathValue("id")
	ctx := request.Context()

	archive, err := io.ReadAll(http.MaxBytesReader(writer, request.Body, maxArchiveBytes))
	if err != nil {
		h.writeError(writer, http.StatusBadRequest, fmt.Errorf("reading archive: %w", err))
		return
	}

	bundle, err := webbundle.Ingest(archive, h.logger)
	if err != nil {
		h.writeError(writer, http.StatusUnprocessableEntity, err)
		return
	}

	if err := h.store.Clear(ctx, projectID); err != nil {
		h.writeError(writer, http.StatusInternalServerError, err)
		return
	}

	paths := make([]string, 0, len(bundle.Entries))
	for path := range bundle.Entries {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		entry := bundle.Entries[path]
		if err := h.store.Put(ctx, projectID, entry.Path, entry.Data, entry.ContentType); err != nil {
			h.writeError(writer, http.StatusInternalServerError, err)
			return
		}
	}

	// Publish the variable defaults at the fixed live document path.
	// The manifest itself parses as a live document, so a fresh
	// upload serves defaults before the editor's first write, even
	// when the archive nests the manifest below the root.
	if err := h.live.Write(ctx, projectID, bundle.Manifest.Defaults()); err != nil {
		h.writeError(writer, http.StatusInternalServerError, err)
		return
	}

	h.preview.SetEntryPath(projectID, bundle.EntryPath)

	h.mu.Lock()
	h.projects[projectID] = &project{
		archive:   archive,
		manifest:  bundle.Manifest,
		entryPath: bundle.EntryPath,
	}
	h.mu.Unlock()

	h.logger.Info("bundle ingested",
		"project", projectID,
		"entries", len(bundle.Entries),
		"entry_path", bundle.EntryPath,
	)

	h.writeJSON(writer, http.StatusOK, bundleResponse{
		EntryPath: bundle.EntryPath,
		Entries:   len(bundle.Entries),
		Variables: bundle.Manifest.Variables,
	})
}

// variablesResponse lists the project's declared variables.
type variablesResponse struct {
	Variables []variable.Config `json:"variables"`
}

func (h *handler) handleGetVariables(writer http.ResponseWriter, request *http.Request) {
	proj, ok := h.project(request.PathValue("id"))
	if !ok {
		h.writeError(writer, http.StatusNotFound, errors.New("unknown project"))
		return
	}
	h.writeJSON(writer, http.StatusOK, variablesResponse{Variables: proj.manifest.Variables})
}

// variablesRequest is an editor write: the complete set of live
// values.
type variablesRequest struct {
	Variables []manifest.LiveValue `json:"variables"`
}

func (h *handler) handlePutVariables(writer http.ResponseWriter, request *http.Request) {
	projectID := request.PathValue("id")
	proj, ok := h.project(projectID)
	if !ok {
		h.writeError(writer, http.StatusNotFound, errors.New("unknown project"))
		return
	}

	var body variablesRequest
	if err := json.NewDecoder(request.Body).Decode(&body); err != nil {
		h.writeError(writer, http.StatusBadRequest, fmt.Errorf("decoding body: %w", err))
		return
	}

	for _, value := range body.Variables {
		declaration := proj.manifest.Variable(value.Name)
		if declaration == nil {
			h.writeError(writer, http.StatusBadRequest,
				fmt.Errorf("variable %q is not declared by the manifest", value.Name))
			return
		}
		if err := declaration.Validate(value.Value); err != nil {
			h.writeError(writer, http.StatusBadRequest, err)
			return
		}
	}

	if err := h.live.Write(request.Context(), projectID, body.Variables); err != nil {
		h.writeError(writer, http.StatusInternalServerError, err)
		return
	}

	writer.WriteHeader(http.StatusNoContent)
}

func (h *handler) handleExport(writer http.ResponseWriter, request *http.Request) {
	projectID := request.PathValue("id")
	proj, ok := h.project(projectID)
	if !ok {
		h.writeError(writer, http.StatusNotFound, errors.New("unknown project"))
		return
	}

	target, err := export.ParseTarget(request.URL.Query().Get("target"))
	if err != nil {
		h.writeError(writer, http.StatusBadRequest, err)
		return
	}

	artifact, err := h.transcoder.Export(request.Context(), export.Request{
		Target:  target,
		Archive: proj.archive,
		Values:  h.liveValues(request.Context(), projectID, proj),
		Name:    projectID,
	})
	var sizeErr *export.SizeExceededError
	switch {
	case errors.As(err, &sizeErr):
		h.writeJSON(writer, http.StatusRequestEntityTooLarge, map[string]any{
			"error":   sizeErr.Error(),
			"size":    sizeErr.Size,
			"ceiling": sizeErr.Ceiling,
		})
		return
	case errors.Is(err, export.ErrMissingBuildArtifact):
		h.writeError(writer, http.StatusUnprocessableEntity, err)
		return
	case err != nil:
		h.writeError(writer, http.StatusInternalServerError, err)
		return
	}

	writer.Header().Set("Content-Type", artifact.ContentType)
	writer.Header().Set("Content-Disposition", `attachment; filename="`+artifact.Name+`"`)
	writer.Header().Set("Content-Length", strconv.Itoa(len(artifact.Data)))
	writer.WriteHeader(http.StatusOK)
	writer.Write(artifact.Data)
}

// liveValues reads the current live document so an export bakes in
// whatever the preview is serving right now. A missing or unreadable
// document degrades to the manifest defaults.
func (h *handler) liveValues(ctx context.Context, projectID string, proj *project) []manifest.LiveValue {
	blob, err := h.store.Get(ctx, projectID, manifest.FileName)
	if err != nil {
		return proj.manifest.Defaults()
	}
	document, err := manifest.ParseLive(blob.Data)
	if err != nil {
		h.logger.Warn("live document unreadable, exporting defaults",
			"project", projectID, "error", err)
		return proj.manifest.Defaults()
	}
	return document.Variables
}

func (h *handler) project(id string) (*project, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	proj, ok := h.projects[id]
	return proj, ok
}

func (h *handler) writeJSON(writer http.ResponseWriter, status int, payload any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	if err := json.NewEncoder(writer).Encode(payload); err != nil {
		h.logger.Error("encoding response", "error", err)
	}
}

func (h *handler) writeError(writer http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "status", status, "error", err)
	}
	h.writeJSON(writer, status, map[string]string{"error": err.Error()})
}
