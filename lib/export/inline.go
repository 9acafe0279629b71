// Copyright 2026 The Playable Authors
// SPDX-License-Identifier: Apache-2.0

package export

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"
	"text/template"
)

// Required build artifacts for the self-contained document, located
// by fixed suffix within the archive. Exactly one entry per suffix.
const (
	loaderSuffix    = ".loader.js"
	frameworkSuffix = ".framework.js.gz"
	wasmSuffix      = ".wasm.gz"
	dataSuffix      = ".data.gz"
)

// inlineTemplate is the self-contained document. The loader script
// runs inline; the three binary payloads are embedded as base64 of
// their still-compressed bytes (decompressing at export time would
// triple the document size for nothing — the consuming environment
// can gunzip). A runtime helper reverses the base64 and streams the
// payloads through DecompressionStream into object URLs, and the
// bootstrap constructs the runtime instance against those URLs.
var inlineTemplate = template.Must(template.New("inline").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1, user-scalable=no">
<title>{{.Title}}</title>
<style>html,body{margin:0;padding:0;width:100%;height:100%;overflow:hidden;background:#000}#unity-canvas{width:100%!important;height:100%!important;display:block}</style>
<script>{{.LoaderJS}}</script>
<script>
var HOMA_PAYLOADS = {
	framework: "{{.FrameworkB64}}",
	wasm: "{{.WasmB64}}",
	data: "{{.DataB64}}"
};

async function homaObjectURL(base64) {
	var binary = atob(base64);
	var bytes = new Uint8Array(binary.length);
	for (var i = 0; i < binary.length; i++) {
		bytes[i] = binary.charCodeAt(i);
	}
	var stream = new Blob([bytes]).stream().pipeThrough(new DecompressionStream("gzip"));
	var blob = await new Response(stream).blob();
	return URL.createObjectURL(blob);
}

async function homaBoot() {
	var canvas = document.getElementById("unity-canvas");
	var frameworkUrl = await homaObjectURL(HOMA_PAYLOADS.framework);
	var codeUrl = await homaObjectURL(HOMA_PAYLOADS.wasm);
	var dataUrl = await homaObjectURL(HOMA_PAYLOADS.data);
	createUnityInstance(canvas, {
		frameworkUrl: frameworkUrl,
		codeUrl: codeUrl,
		dataUrl: dataUrl
	});
}
window.addEventListener("load", homaBoot);
</script>
{{.Shim}}
</head>
<body><canvas id="unity-canvas"></canvas></body>
</html>
`))

type inlineDocument struct {
	Title        string
	LoaderJS     string
	FrameworkB64 string
	WasmB64      string
	DataB64      string
	Shim         string
}

// exportInlineHTML emits one self-contained document embedding the
// loader inline and the three binary build artifacts as base64 of
// their still-compressed bytes.
func (t *Transcoder) exportInlineHTML(request Request, name string) (*Artifact, error) {
	entries, err := readRawEntries(request.Archive)
	if err != nil {
		return nil, err
	}

	loader, err := findBuildArtifact(entries, loaderSuffix)
	if err != nil {
		return nil, err
	}
	framework, err := findBuildArtifact(entries, frameworkSuffix)
	if err != nil {
		return nil, err
	}
	wasm, err := findBuildArtifact(entries, wasmSuffix)
	if err != nil {
		return nil, err
	}
	data, err := findBuildArtifact(entries, dataSuffix)
	if err != nil {
		return nil, err
	}

	shim, err := compatibilityShim(request.Values)
	if err != nil {
		return nil, fmt.Errorf("rendering shim: %w", err)
	}

	document := inlineDocument{
		Title: name,
		// A literal close-script-tag sequence inside the loader
		// would terminate the inline script element early; escape
		// it the way browsers un-escape it.
		LoaderJS:     strings.ReplaceAll(string(loader.Data), "</script", `<\/script`),
		FrameworkB64: base64.StdEncoding.EncodeToString(framework.Data),
		WasmB64:      base64.StdEncoding.EncodeToString(wasm.Data),
		DataB64:      base64.StdEncoding.EncodeToString(data.Data),
		Shim:         shim,
	}

	var buffer bytes.Buffer
	if err := inlineTemplate.Execute(&buffer, document); err != nil {
		return nil, fmt.Errorf("rendering document: %w", err)
	}

	if err := t.checkCeiling(TargetInlineHTML, int64(buffer.Len())); err != nil {
		return nil, err
	}

	return &Artifact{
		Name:        name + ".html",
		ContentType: "text/html",
		Data:        buffer.Bytes(),
	}, nil
}

// findBuildArtifact locates the single entry carrying a required
// suffix. Zero matches is a missing artifact; several matches means
// the archive violates the one-file-per-suffix layout contract.
func findBuildArtifact(entries []rawEntry, suffix string) (rawEntry, error) {
	var found rawEntry
	count := 0
	for _, entry := range entries {
		if strings.HasSuffix(entry.Path, suffix) {
			found = entry
			count++
		}
	}
	switch count {
	case 0:
		return rawEntry{}, fmt.Errorf("%w: no entry matches %q", ErrMissingBuildArtifact, suffix)
	case 1:
		return found, nil
	default:
		return rawEntry{}, fmt.Errorf("archive has %d entries matching %q, want exactly one", count, suffix)
	}
}
