// Package templates renders {{dotted.path}} placeholders against event metadata.
package templates

import (
	"fmt"
	"regexp"
	"strings"

	"alert-notification-service/internal/models"
)

var placeholder = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.\-]+)\s*\}\}`)

// Compile replaces every placeholder in tmpl with the value at its path in data.
// Paths that do not resolve, or resolve to nil or a nested object, render as "".
func Compile(tmpl string, data map[string]interface{}) string {
	return placeholder.ReplaceAllStringFunc(tmpl, func(m string) string {
		path := placeholder.FindStringSubmatch(m)[1]
		v, ok := lookup(data, strings.Split(path, "."))
		if !ok {
			return ""
		}
		return format(v)
	})
}

// Render compiles subject and body of t for payload.
func Render(t models.NotificationTemplate, payload models.EventPayload) (subject, body string) {
	return Compile(t.Subject, payload.Metadata), Compile(t.Body, payload.Metadata)
}

func lookup(data map[string]interface{}, path []string) (interface{}, bool) {
	var cur interface{} = data
	for _, key := range path {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func format(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case map[string]interface{}, []interface{}:
		return ""
	case float64:
		// JSON numbers decode as float64; keep integers free of exponent notation.
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprint(t)
	default:
		return fmt.Sprint(t)
	}
}
