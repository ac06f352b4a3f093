package logger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// FixedFormatWriter re-renders zerolog JSON entries as fixed-width columns:
//
//	2026-02-26 12:00:00.000 [INF] [main           ] Starting ServiceHost version=dev
//	2026-02-26 12:00:01.200 [ERR] [service        ] Failed to report service status error="The handle is invalid."
type FixedFormatWriter struct {
	w io.Writer
}

// NewFixedFormatWriter creates a FixedFormatWriter writing to w.
func NewFixedFormatWriter(w io.Writer) *FixedFormatWriter {
	return &FixedFormatWriter{w: w}
}

const (
	componentWidth = 15
	timeLayout     = "2006-01-02 15:04:05.000"
)

// Write converts one JSON entry. Input that is not a JSON object is passed
// through unchanged.
func (f *FixedFormatWriter) Write(p []byte) (int, error) {
	dec := json.NewDecoder(bytes.NewReader(p))
	dec.UseNumber()

	var fields map[string]interface{}
	if err := dec.Decode(&fields); err != nil {
		return f.w.Write(p)
	}

	ts := columnTime(takeString(fields, zerolog.TimestampFieldName))
	lvl := levelTag(takeString(fields, zerolog.LevelFieldName))
	comp := takeString(fields, "component")
	msg := takeString(fields, zerolog.MessageFieldName)
	delete(fields, zerolog.CallerFieldName)

	if len(comp) > componentWidth {
		comp = comp[:componentWidth]
	}

	var line strings.Builder
	fmt.Fprintf(&line, "%s [%s] [%-*s] %s", ts, lvl, componentWidth, comp, msg)
	if rest := renderFields(fields); rest != "" {
		line.WriteByte(' ')
		line.WriteString(rest)
	}
	line.WriteByte('\n')

	_, err := io.WriteString(f.w, line.String())
	// zerolog treats a short count as a failed write.
	return len(p), err
}

// takeString removes key from fields and returns its value as text.
func takeString(fields map[string]interface{}, key string) string {
	v, ok := fields[key]
	if !ok {
		return ""
	}
	delete(fields, key)
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func levelTag(level string) string {
	l, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		return "???"
	}
	switch l {
	case zerolog.TraceLevel:
		return "TRC"
	case zerolog.DebugLevel:
		return "DBG"
	case zerolog.InfoLevel:
		return "INF"
	case zerolog.WarnLevel:
		return "WRN"
	case zerolog.ErrorLevel:
		return "ERR"
	case zerolog.FatalLevel:
		return "FTL"
	case zerolog.PanicLevel:
		return "PNC"
	default:
		return "???"
	}
}

// columnTime renders an RFC 3339 timestamp as wall-clock time in its own
// offset, millisecond precision. Anything unparsable is padded as-is.
func columnTime(ts string) string {
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return fmt.Sprintf("%-*.*s", len(timeLayout), len(timeLayout), ts)
	}
	return t.Format(timeLayout)
}

// renderFields builds sorted "key=value" pairs, quoting values that contain
// whitespace or quotes.
func renderFields(fields map[string]interface{}) string {
	if len(fields) == 0 {
		return ""
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		v := fmt.Sprint(fields[k])
		if v == "" || strings.ContainsAny(v, " \t\n\"") {
			fmt.Fprintf(&b, "%s=%q", k, v)
		} else {
			fmt.Fprintf(&b, "%s=%s", k, v)
		}
	}
	return b.String()
}
