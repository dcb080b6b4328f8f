// Package artifact names session directories and writes the transcript and
// summary files.
package artifact

import (
	"path/filepath"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

// File names inside a session directory.
const (
	TranscriptFile  = "transcript.txt"
	SummaryFile     = "summary.txt"
	SummaryDocxFile = "summary.docx"
)

// MaxSlugLen bounds the directory name in bytes.
const MaxSlugLen = 100

// Session identifies one recording and where its artifacts go.
type Session struct {
	ID        uuid.UUID
	Name      string // as typed by the operator
	Slug      string // filesystem-safe form of Name
	Dir       string
	StartedAt time.Time
}

// NewSession derives the slug and directory for name under outputDir.
func NewSession(id uuid.UUID, name, outputDir string, startedAt time.Time) Session {
	slug := Sanitize(name, startedAt)
	return Session{
		ID:        id,
		Name:      name,
		Slug:      slug,
		Dir:       filepath.Join(outputDir, slug),
		StartedAt: startedAt,
	}
}

// TranscriptPath returns the transcript location.
func (s Session) TranscriptPath() string { return filepath.Join(s.Dir, TranscriptFile) }

// SummaryPath returns the summary location.
func (s Session) SummaryPath() string { return filepath.Join(s.Dir, SummaryFile) }

// SummaryDocxPath returns the optional rendered summary location.
func (s Session) SummaryDocxPath() string { return filepath.Join(s.Dir, SummaryDocxFile) }

// Sanitize turns an operator-typed name into a single path element.
// Separators, reserved and control characters become '_', surrounding
// spaces and dots are trimmed, and an empty result falls back to a
// timestamped name. Sanitize(Sanitize(x)) == Sanitize(x).
func Sanitize(name string, now time.Time) string {
	var b strings.Builder
	for _, r := range trimName(name) {
		switch {
		case r == utf8.RuneError, unicode.IsControl(r), strings.ContainsRune(`/\:*?"<>|`, r):
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}

	s := trimName(b.String())
	if len(s) > MaxSlugLen {
		cut := MaxSlugLen
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = trimName(s[:cut])
	}
	if s == "" {
		return "session-" + now.Format("20060102-150405")
	}
	return s
}

func trimName(s string) string {
	return strings.TrimFunc(s, func(r rune) bool { return r == '.' || unicode.IsSpace(r) })
}
