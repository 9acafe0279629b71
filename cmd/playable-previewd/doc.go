// Copyright 2026 The Playable Authors
// SPDX-License-Identifier: Apache-2.0

// playable-previewd is the preview daemon: it accepts uploaded WebGL
// build archives, serves the ingested files for live preview, applies
// editor variable writes with debounced reload, and produces export
// artifacts on demand.
//
// API surface:
//
//	POST /api/projects/{id}/bundle      upload and ingest an archive
//	GET  /api/projects/{id}/variables   current variable declarations
//	PUT  /api/projects/{id}/variables   write live variable values
//	POST /api/projects/{id}/export      produce an export artifact
//	GET  /preview/{id}/...              the preview file server
package main
