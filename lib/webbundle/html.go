// Copyright 2026 The Playable Authors
// SPDX-License-Identifier: Apache-2.0

package webbundle

import (
	"bytes"
	"strings"
)

// InsertBeforeHeadClose inserts fragment immediately before the
// document's </head> marker (case-insensitive). When the document has
// no head-close marker the fragment is prepended instead, so the
// insertion never silently disappears.
func InsertBeforeHeadClose(document []byte, fragment string) []byte {
	index := indexCaseInsensitive(document, "</head>")
	if index < 0 {
		return append([]byte(fragment), document...)
	}
	return spliceAt(document, index, fragment)
}

// InsertAfterHeadOpen inserts fragment immediately after the
// document's <head> marker (case-insensitive). When the document has
// no head-open marker the fragment is prepended.
func InsertAfterHeadOpen(document []byte, fragment string) []byte {
	index := indexCaseInsensitive(document, "<head>")
	if index < 0 {
		return append([]byte(fragment), document...)
	}
	return spliceAt(document, index+len("<head>"), fragment)
}

func indexCaseInsensitive(document []byte, marker string) int {
	return bytes.Index(bytes.ToLower(document), []byte(strings.ToLower(marker)))
}

func spliceAt(document []byte, index int, fragment string) []byte {
	result := make([]byte, 0, len(document)+len(fragment))
	result = append(result, document[:index]...)
	result = append(result, fragment...)
	result = append(result, document[index:]...)
	return result
}
