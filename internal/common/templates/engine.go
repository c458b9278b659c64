// Package templates renders operator-authored wildcard strings such as
// "{ric}{functionChar}: {msg}" against an alarm event.
package templates

import (
	"sort"
	"strings"

	"alarm-relay/internal/models"
)

const (
	timeLayout = "15:04:05"
	dateLayout = "2006-01-02"
)

type resolver func(e models.AlarmEvent) string

var vocabulary = map[string]resolver{
	"fms":           func(e models.AlarmEvent) string { return e.FMS },
	"status":        func(e models.AlarmEvent) string { return e.Status },
	"direction":     func(e models.AlarmEvent) string { return e.Direction },
	"directionText": func(e models.AlarmEvent) string { return e.DirectionText },
	"tsi":           func(e models.AlarmEvent) string { return e.TSI },
	"zvei":          func(e models.AlarmEvent) string { return e.ZVEI },
	"ric":           func(e models.AlarmEvent) string { return e.RIC },
	"function":      func(e models.AlarmEvent) string { return e.Function },
	"functionChar":  func(e models.AlarmEvent) string { return e.SubAddress() },
	"msg":           func(e models.AlarmEvent) string { return e.Msg },
	"bitrate":       func(e models.AlarmEvent) string { return e.Bitrate },
	"description":   func(e models.AlarmEvent) string { return e.Description },
	"frequency":     func(e models.AlarmEvent) string { return e.Frequency },
	"kind":          func(e models.AlarmEvent) string { return string(e.Kind) },
	"time": func(e models.AlarmEvent) string {
		if e.Timestamp.IsZero() {
			return ""
		}
		return e.Timestamp.Format(timeLayout)
	},
	"date": func(e models.AlarmEvent) string {
		if e.Timestamp.IsZero() {
			return ""
		}
		return e.Timestamp.Format(dateLayout)
	},
	"br":   func(models.AlarmEvent) string { return "\n" },
	"lpar": func(models.AlarmEvent) string { return "(" },
	"rpar": func(models.AlarmEvent) string { return ")" },
}

// Engine renders wildcard templates. The zero value is ready to use and
// holds no state, so one Engine may be shared across goroutines.
type Engine struct{}

// Render replaces every known {placeholder} in tmpl with the matching event
// field. Unknown placeholders and unbalanced braces are copied verbatim.
func (Engine) Render(tmpl string, event models.AlarmEvent) string {
	return Render(tmpl, event)
}

// Render is the package-level form of Engine.Render
func Render(tmpl string, event models.AlarmEvent) string {
	if !strings.Contains(tmpl, "{") {
		return tmpl
	}

	var b strings.Builder
	b.Grow(len(tmpl))

	rest := tmpl
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			b.WriteString(rest)
			break
		}
		b.WriteString(rest[:open])
		rest = rest[open:]

		end := strings.IndexAny(rest[1:], "{}")
		if end < 0 || rest[1+end] == '{' {
			// no closing brace before the next opening one
			b.WriteByte('{')
			rest = rest[1:]
			continue
		}

		name := rest[1 : 1+end]
		if resolve, ok := vocabulary[name]; ok {
			b.WriteString(resolve(event))
		} else {
			b.WriteString(rest[:end+2])
		}
		rest = rest[end+2:]
	}

	return b.String()
}

// Placeholders lists the placeholder names Render understands, sorted
func Placeholders() []string {
	names := make([]string, 0, len(vocabulary))
	for name := range vocabulary {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsPlaceholder reports whether name is part of the vocabulary
func IsPlaceholder(name string) bool {
	_, ok := vocabulary[name]
	return ok
}
