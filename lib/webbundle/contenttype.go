// Copyright 2026 The Playable Authors
// SPDX-License-Identifier: Apache-2.0

package webbundle

import (
	"path"
	"strings"
)

// contentTypes is the fixed extension→type table for the file set a
// WebGL build produces. This is deliberately not general-purpose MIME
// sniffing: everything outside the known set is an opaque payload.
var contentTypes = map[string]string{
	".html": "text/html",
	".htm":  "text/html",
	".js":   "application/javascript",
	".css":  "text/css",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".wasm": "application/wasm",
	".json": "application/json",
	".data": "application/octet-stream",
}

// ContentTypeFor derives the content type of an entry from its
// cleaned path (compression suffix already stripped by the caller).
// Unknown extensions are opaque binary.
func ContentTypeFor(cleanedPath string) string {
	if contentType, ok := contentTypes[strings.ToLower(path.Ext(cleanedPath))]; ok {
		return contentType
	}
	return "application/octet-stream"
}
