// Package templates renders the embedded email templates used by the email
// worker.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	htmpl "html/template"
	"strings"
)

//go:embed *.tmpl
var FS embed.FS

// Template names.
const (
	Welcome = "welcome"
)

var funcMap = htmpl.FuncMap{
	"upper": strings.ToUpper,
	"default": func(fallback, value string) string {
		if strings.TrimSpace(value) == "" {
			return fallback
		}
		return value
	},
}

// RenderHTML renders the named template with data.
func RenderHTML(name string, data map[string]any) (string, error) {
	t, err := htmpl.New(name + ".tmpl").Funcs(funcMap).ParseFS(FS, name+".tmpl")
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Subject returns the subject line for the named template.
func Subject(name string, data map[string]any) string {
	switch name {
	case Welcome:
		app := str(data["AppName"])
		if app == "" {
			app = "teamdeck"
		}
		return fmt.Sprintf("Welcome to %s", app)
	default:
		return str(data["Subject"])
	}
}

func str(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}
