package utils

import (
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var sanitizer = bluemonday.UGCPolicy()

// Sanitize cleans HTML content to prevent XSS attacks.
func Sanitize(input string) string {
	return sanitizer.Sanitize(input)
}

// RenderPostText turns stored post text into safe HTML, keeping line breaks.
func RenderPostText(text string) template.HTML {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return template.HTML(Sanitize(strings.ReplaceAll(text, "\n", "<br>")))
}
