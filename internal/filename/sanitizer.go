// Package filename derives destination file names for transferred recordings
package filename

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	defaultMaxTopicLength = 100
	defaultTopic          = "untitled"
)

var (
	multiSpaceRegex = regexp.MustCompile(`\s+`)
	multiDashRegex  = regexp.MustCompile(`-+`)
)

// Namer builds destination file names of the form
// {yyyy-MM-dd}_{topic}_{role}.{ext}.
type Namer struct {
	maxTopicLength int
	topicPrefix    string
}

// NewNamer creates a Namer. topicPrefix, when non-empty, is stripped from the
// front of topics before sanitization.
func NewNamer(topicPrefix string) *Namer {
	return &Namer{
		maxTopicLength: defaultMaxTopicLength,
		topicPrefix:    topicPrefix,
	}
}

// StripPrefix removes the configured topic prefix, if present, and trims the
// remainder. Called once per item so dedup lookups and folder naming see the
// same normalized topic.
func (n *Namer) StripPrefix(topic string) string {
	if n.topicPrefix == "" {
		return strings.TrimSpace(topic)
	}
	stripped := strings.TrimPrefix(topic, n.topicPrefix)
	stripped = strings.TrimSpace(stripped)
	if stripped == "" {
		return strings.TrimSpace(topic)
	}
	return stripped
}

// SanitizeTopic converts a meeting topic into a filesystem-safe lowercase
// dash-separated string
func (n *Namer) SanitizeTopic(topic string) string {
	if topic == "" {
		return defaultTopic
	}

	ascii := foldToASCII(topic)

	// Keep letters and digits, turn everything else into word separators
	var b strings.Builder
	for _, r := range ascii {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}

	collapsed := multiSpaceRegex.ReplaceAllString(strings.TrimSpace(b.String()), " ")
	dashed := strings.ReplaceAll(strings.ToLower(collapsed), " ", "-")
	dashed = multiDashRegex.ReplaceAllString(dashed, "-")
	dashed = strings.Trim(dashed, "-")

	if dashed == "" {
		return defaultTopic
	}

	if len(dashed) > n.maxTopicLength {
		truncated := dashed[:n.maxTopicLength]
		if lastDash := strings.LastIndex(truncated, "-"); lastDash > n.maxTopicLength*2/3 {
			truncated = truncated[:lastDash]
		}
		dashed = strings.TrimRight(truncated, "-")
	}

	return dashed
}

// FileName builds the destination name for one recording file:
// {date}_{sanitized topic}_{role}.{ext}. date must already be yyyy-MM-dd.
func (n *Namer) FileName(date, topic, fileType, fileExtension string) string {
	role := Role(fileType)
	ext := Extension(fileType, fileExtension)
	return date + "_" + n.SanitizeTopic(topic) + "_" + role + ext
}

// SummaryName builds the destination name for an AI summary document
func (n *Namer) SummaryName(date, topic string) string {
	return date + "_" + n.SanitizeTopic(topic) + "_summary.txt"
}

// Role maps a recording file type to its naming role
func Role(fileType string) string {
	switch strings.ToUpper(fileType) {
	case "MP4":
		return "video"
	case "M4A":
		return "audio"
	case "TRANSCRIPT", "CC":
		return "transcript"
	default:
		return strings.ToLower(fileType)
	}
}

// Extension resolves the destination extension for a file type. Caption and
// transcript tracks are converted to plain text, so they take .txt regardless
// of the source extension.
func Extension(fileType, fileExtension string) string {
	switch strings.ToUpper(fileType) {
	case "TRANSCRIPT", "CC", "CHAT":
		return ".txt"
	}
	if fileExtension != "" {
		return "." + strings.ToLower(strings.TrimPrefix(fileExtension, "."))
	}
	switch strings.ToUpper(fileType) {
	case "MP4":
		return ".mp4"
	case "M4A":
		return ".m4a"
	case "CSV":
		return ".csv"
	case "JSON":
		return ".json"
	default:
		return ".bin"
	}
}

// foldToASCII normalizes unicode input, dropping diacritics and characters
// with no ASCII representation
func foldToASCII(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)

	var b strings.Builder
	for _, r := range result {
		if r <= unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) || unicode.IsPunct(r)) {
			b.WriteRune(r)
		} else if unicode.IsSpace(r) {
			b.WriteRune(' ')
		}
	}
	return b.String()
}
