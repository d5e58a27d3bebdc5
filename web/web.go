// Package web embeds the blog's HTML templates.
package web

import (
	"embed"
	"html/template"
	"strings"
	"time"

	"github.com/cppla/photoblog/utils"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates parses every page template with the helper functions they rely on.
// mediaURL turns a stored image path into a browser URL.
func Templates(mediaURL func(rel string) string) (*template.Template, error) {
	funcs := template.FuncMap{
		"renderText": utils.RenderPostText,
		"formatDate": formatDate,
		"mediaURL":   mediaURL,
		"join":       strings.Join,
	}
	return template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
}

func formatDate(v interface{}) string {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return ""
		}
		return t.Format("2006-01-02 15:04")
	case *time.Time:
		if t == nil {
			return ""
		}
		return t.Format("2006-01-02 15:04")
	default:
		return ""
	}
}
