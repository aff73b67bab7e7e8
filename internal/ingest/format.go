// Package ingest moves focus sessions in and out of the database
// as JSONL or YAML exchange files and watches an import directory
// for new files.
package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"

	"github.com/Harshith0710/ToDoApp/internal/db"
	"github.com/Harshith0710/ToDoApp/internal/stats"
	"github.com/Harshith0710/ToDoApp/internal/timeutil"
)

// FormatVersion is written to the header of every export.
const FormatVersion = "v1.0.0"

// ErrUnsupportedFormat is returned for files written by an
// incompatible version of the exchange format.
var ErrUnsupportedFormat = errors.New("unsupported exchange format")

// sessionNamespace seeds deterministic IDs for sessions imported
// without one.
var sessionNamespace = uuid.MustParse("6f1d8a2e-3c4b-5e7f-9a0b-1c2d3e4f5a6b")

// Format selects an export encoding.
type Format string

const (
	FormatJSONL Format = "jsonl"
	FormatYAML  Format = "yaml"
)

// ParseFormat accepts "jsonl", "yaml" or "yml".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "jsonl", "json":
		return FormatJSONL, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// FormatForPath picks the decoder for a file by extension.
func FormatForPath(path string) Format {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml") {
		return FormatYAML
	}
	return FormatJSONL
}

// record is the exchange representation of one session.
type record struct {
	Type            string `json:"type"                yaml:"-"`
	ID              string `json:"id"                  yaml:"id"`
	StartTime       string `json:"start_time"          yaml:"start_time"`
	EndTime         string `json:"end_time"            yaml:"end_time"`
	DurationSeconds int64  `json:"duration_seconds"    yaml:"duration_seconds"`
	Mode            string `json:"mode"                yaml:"mode"`
}

type header struct {
	Type       string `json:"type"`
	Format     string `json:"format"`
	ExportedAt string `json:"exported_at"`
	Sessions   int    `json:"sessions"`
}

type yamlDocument struct {
	Format     string   `yaml:"format"`
	ExportedAt string   `yaml:"exported_at,omitempty"`
	Sessions   []record `yaml:"sessions"`
}

// ParseResult is the outcome of decoding one exchange file.
type ParseResult struct {
	Sessions []stats.FocusSession
	// Skipped counts lines or entries that could not be decoded or
	// failed validation.
	Skipped int
	// Problems describes the first few skipped entries.
	Problems []string
}

const maxProblems = 10

func (r *ParseResult) skip(format string, args ...any) {
	r.Skipped++
	if len(r.Problems) < maxProblems {
		r.Problems = append(r.Problems, fmt.Sprintf(format, args...))
	}
}

// checkVersion rejects versions whose major differs from ours.
func checkVersion(v string) error {
	if !semver.IsValid(v) {
		return fmt.Errorf("%w: invalid version %q", ErrUnsupportedFormat, v)
	}
	if semver.Major(v) != semver.Major(FormatVersion) {
		return fmt.Errorf("%w: version %s, want %s.x",
			ErrUnsupportedFormat, v, semver.Major(FormatVersion))
	}
	return nil
}

// ParseJSONL decodes a JSONL exchange stream. The optional first
// line is a header naming the format version. Malformed or invalid
// session lines are skipped and counted.
func ParseJSONL(r io.Reader) (ParseResult, error) {
	var res ParseResult
	lr := newLineReader(r, maxLineSize)
	first := true

	for {
		line, ok := lr.next()
		if !ok {
			break
		}
		lineNo := lr.lineNo
		isFirst := first
		first = false

		if !gjson.Valid(line) {
			res.skip("line %d: invalid JSON", lineNo)
			continue
		}
		parsed := gjson.Parse(line)
		if !parsed.IsObject() {
			res.skip("line %d: not an object", lineNo)
			continue
		}

		switch typ := parsed.Get("type").Str; typ {
		case "header":
			if !isFirst {
				res.skip("line %d: header after first line", lineNo)
				continue
			}
			if err := checkVersion(parsed.Get("format").Str); err != nil {
				return ParseResult{}, err
			}
		case "session", "":
			s, err := sessionFromJSON(parsed)
			if err != nil {
				res.skip("line %d: %v", lineNo, err)
				continue
			}
			res.Sessions = append(res.Sessions, s)
		default:
			res.skip("line %d: unknown type %q", lineNo, typ)
		}
	}
	if err := lr.Err(); err != nil {
		return ParseResult{}, fmt.Errorf("reading sessions: %w", err)
	}
	for range lr.oversized {
		res.skip("oversized line")
	}
	return res, nil
}

func sessionFromJSON(v gjson.Result) (stats.FocusSession, error) {
	dur := v.Get("duration_seconds")
	if dur.Type != gjson.Number {
		return stats.FocusSession{}, errors.New("duration_seconds must be a number")
	}
	if dur.Num != math.Trunc(dur.Num) {
		return stats.FocusSession{}, errors.New("duration_seconds must be a whole number")
	}
	return toSession(record{
		ID:              v.Get("id").Str,
		StartTime:       v.Get("start_time").Str,
		EndTime:         v.Get("end_time").Str,
		DurationSeconds: dur.Int(),
		Mode:            v.Get("mode").Str,
	})
}

// toSession validates rec and converts it. A missing ID is derived
// from the session's content so re-importing yields the same ID.
func toSession(rec record) (stats.FocusSession, error) {
	start, err := timeutil.Parse(rec.StartTime)
	if err != nil {
		return stats.FocusSession{}, fmt.Errorf("start_time: %w", err)
	}
	end, err := timeutil.Parse(rec.EndTime)
	if err != nil {
		return stats.FocusSession{}, fmt.Errorf("end_time: %w", err)
	}
	mode, err := stats.ParseMode(rec.Mode)
	if err != nil {
		return stats.FocusSession{}, err
	}
	s := stats.FocusSession{
		ID:              rec.ID,
		StartTime:       start,
		EndTime:         end,
		DurationSeconds: rec.DurationSeconds,
		Mode:            mode,
	}
	if err := db.ValidateSession(s); err != nil {
		return stats.FocusSession{}, err
	}
	if s.ID == "" {
		s.ID = DeterministicID(s)
	}
	return s, nil
}

// DeterministicID derives a stable ID from a session's start,
// mode and duration.
func DeterministicID(s stats.FocusSession) string {
	key := fmt.Sprintf("%s|%s|%d",
		timeutil.Sortable(s.StartTime), s.Mode, s.DurationSeconds)
	return uuid.NewSHA1(sessionNamespace, []byte(key)).String()
}

// ParseYAML decodes a YAML exchange document.
func ParseYAML(r io.Reader) (ParseResult, error) {
	var doc yamlDocument
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return ParseResult{}, nil
		}
		return ParseResult{}, fmt.Errorf("decoding yaml: %w", err)
	}
	if doc.Format != "" {
		if err := checkVersion(doc.Format); err != nil {
			return ParseResult{}, err
		}
	}

	var res ParseResult
	for i, rec := range doc.Sessions {
		s, err := toSession(rec)
		if err != nil {
			res.skip("entry %d: %v", i+1, err)
			continue
		}
		res.Sessions = append(res.Sessions, s)
	}
	return res, nil
}

// Parse decodes r in the given format.
func Parse(r io.Reader, f Format) (ParseResult, error) {
	if f == FormatYAML {
		return ParseYAML(r)
	}
	return ParseJSONL(r)
}

func toRecord(s stats.FocusSession) record {
	return record{
		Type:            "session",
		ID:              s.ID,
		StartTime:       timeutil.Format(s.StartTime),
		EndTime:         timeutil.Format(s.EndTime),
		DurationSeconds: s.DurationSeconds,
		Mode:            string(s.Mode),
	}
}

// Export writes sessions to w in format f, stamped with now.
func Export(
	w io.Writer, sessions []stats.FocusSession, f Format, now time.Time,
) error {
	switch f {
	case FormatYAML:
		doc := yamlDocument{
			Format:     FormatVersion,
			ExportedAt: timeutil.Format(now),
			Sessions:   make([]record, len(sessions)),
		}
		for i, s := range sessions {
			doc.Sessions[i] = toRecord(s)
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return enc.Close()

	case FormatJSONL, "":
		enc := json.NewEncoder(w)
		err := enc.Encode(header{
			Type:       "header",
			Format:     FormatVersion,
			ExportedAt: timeutil.Format(now),
			Sessions:   len(sessions),
		})
		if err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
		for _, s := range sessions {
			if err := enc.Encode(toRecord(s)); err != nil {
				return fmt.Errorf("writing session %s: %w", s.ID, err)
			}
		}
		return nil
	}
	return fmt.Errorf("unknown export format %q", f)
}
