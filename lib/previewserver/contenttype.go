// Copyright 2026 The Playable Authors
// SPDX-License-Identifier: Apache-2.0

package previewserver

import (
	"strings"

	"github.com/playable-foundation/playable/lib/webbundle"
)

// typeOverrides maps cleaned-path suffixes of known WebGL artifacts
// to the logical type the runtime loader expects. The table applies
// to still-compressed variants too (x.wasm.gz, x.wasm.br): the .gz or
// .br suffix is stripped before lookup, so a payload whose
// decompression failed at ingestion still reports its logical type.
var typeOverrides = map[string]string{
	".wasm": "application/wasm",
	".js":   "application/javascript",
	".data": "application/octet-stream",
	".json": "application/json",
	".html": "text/html",
}

// overrideContentType returns the serving content type for a blob:
// the override table wins for known artifact suffixes, the blob's own
// declared type otherwise.
func overrideContentType(blobPath, declared string) string {
	cleaned := webbundle.CleanPath(blobPath)
	for suffix, contentType := range typeOverrides {
		if strings.HasSuffix(cleaned, suffix) {
			return contentType
		}
	}
	return declared
}
