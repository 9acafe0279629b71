// Copyright 2026 The Playable Authors
// SPDX-License-Identifier: Apache-2.0

package export

import (
	"encoding/json"
	"strings"

	"github.com/playable-foundation/playable/lib/manifest"
)

// ValuesGlobal is the JavaScript global carrying the exported
// variable values. Mirrors the preview server's config injection but
// in the flattened name→value shape ad creatives read directly.
const ValuesGlobal = "window.homaValues"

// shimScript is the compatibility glue injected into every export:
//
//   - install/game-end callbacks that route a click-through, used by
//     creatives as their conversion points;
//   - a first-user-interaction latch that force-mutes media at
//     injection time and unmutes exactly once on the first click or
//     touch (autoplay policies block unmuted playback before a user
//     gesture);
//   - an MRAID readiness handshake: when a hosting SDK provides the
//     mraid global, viewability/size/state listeners are wired only
//     after its ready signal; without it the creative runs in a
//     degraded standalone mode;
//   - a click-through helper preferring mraid.open over direct
//     navigation.
//
// The @VALUES@ placeholder is replaced with the JSON value map.
const shimScript = `<script>
(function () {
	"use strict";

	` + ValuesGlobal + ` = @VALUES@;

	function openClickThrough() {
		var url = window.homaClickThroughURL || "";
		if (typeof mraid !== "undefined" && mraid && typeof mraid.open === "function") {
			mraid.open(url);
			return;
		}
		if (url) {
			window.location.href = url;
		}
	}
	window.openClickThrough = openClickThrough;
	window.install = window.install || openClickThrough;
	window.gameEnd = window.gameEnd || openClickThrough;

	function setMuted(muted) {
		var media = document.querySelectorAll("audio, video");
		for (var i = 0; i < media.length; i++) {
			media[i].muted = muted;
		}
	}

	var interacted = false;
	function onFirstInteraction() {
		if (interacted) {
			return;
		}
		interacted = true;
		setMuted(false);
		if (typeof window.onHomaFirstInteraction === "function") {
			window.onHomaFirstInteraction();
		}
		document.removeEventListener("click", onFirstInteraction, true);
		document.removeEventListener("touchstart", onFirstInteraction, true);
	}
	setMuted(true);
	document.addEventListener("click", onFirstInteraction, true);
	document.addEventListener("touchstart", onFirstInteraction, true);

	function wireMraid() {
		mraid.addEventListener("viewableChange", function (viewable) {
			if (typeof window.onHomaViewableChange === "function") {
				window.onHomaViewableChange(viewable);
			}
		});
		mraid.addEventListener("sizeChange", function (width, height) {
			if (typeof window.onHomaSizeChange === "function") {
				window.onHomaSizeChange(width, height);
			}
		});
		mraid.addEventListener("stateChange", function (state) {
			if (typeof window.onHomaStateChange === "function") {
				window.onHomaStateChange(state);
			}
		});
	}
	if (typeof mraid !== "undefined" && mraid) {
		if (typeof mraid.getState === "function" && mraid.getState() !== "loading") {
			wireMraid();
		} else {
			mraid.addEventListener("ready", wireMraid);
		}
	}
})();
</script>`

// compatibilityShim renders the shim with the given variable values
// embedded. encoding/json sorts map keys, so equal value sets render
// identical shims.
func compatibilityShim(values []manifest.LiveValue) (string, error) {
	document := manifest.LiveDocument{Variables: values}
	encoded, err := json.Marshal(document.ValueMap())
	if err != nil {
		return "", err
	}
	return strings.Replace(shimScript, "@VALUES@", string(encoded), 1), nil
}
