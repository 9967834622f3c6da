// Package transcript converts WebVTT recording transcripts into readable
// speaker-grouped plain text.
package transcript

import (
	"strings"
)

// entry is one attributed utterance after cue parsing
type entry struct {
	speaker string
	text    string
}

// Format converts raw WebVTT transcript content into plain text grouped by
// speaker. Consecutive cues from the same speaker merge into one block; cues
// without a "Speaker: text" shape are dropped.
func Format(vtt string) string {
	entries := parseCues(vtt)

	var blocks []string
	lastSpeaker := ""
	for _, e := range entries {
		if e.speaker == lastSpeaker && len(blocks) > 0 {
			blocks[len(blocks)-1] += " " + e.text
			continue
		}
		blocks = append(blocks, e.speaker+": "+e.text)
		lastSpeaker = e.speaker
	}

	return strings.Join(blocks, "\n\n")
}

// parseCues extracts attributed utterances from WebVTT content, skipping the
// header, cue identifiers, timestamp lines and blanks.
func parseCues(vtt string) []entry {
	var entries []entry

	for _, line := range strings.Split(vtt, "\n") {
		line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "WEBVTT") {
			continue
		}
		if strings.Contains(line, "-->") {
			continue
		}
		if isCueIdentifier(line) {
			continue
		}

		speaker, text, ok := splitSpeaker(line)
		if !ok {
			continue
		}
		entries = append(entries, entry{speaker: speaker, text: text})
	}

	return entries
}

// isCueIdentifier reports whether a line is a purely numeric cue sequence number
func isCueIdentifier(line string) bool {
	for _, r := range line {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// splitSpeaker splits a cue payload at the first colon into speaker and text.
// Lines without a colon, or with an empty side, carry no attribution.
func splitSpeaker(line string) (string, string, bool) {
	idx := strings.Index(line, ":")
	if idx < 0 {
		return "", "", false
	}

	speaker := strings.TrimSpace(line[:idx])
	text := strings.TrimSpace(line[idx+1:])
	if speaker == "" || text == "" {
		return "", "", false
	}

	return speaker, text, true
}
