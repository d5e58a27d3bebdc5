// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"mime"
	"mime/multipart"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cppla/photoblog/config"
	"github.com/cppla/photoblog/models"
)

// Seeded user ids.
const (
	AdminID  uint = 1
	EditorID uint = 2
)

// NewDB opens a private in-memory SQLite database with the schema migrated
// and two users: admin (id 1) and editor (id 2).
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := config.OpenDatabase(config.AppConfig{
		DBDriver:    "sqlite",
		DatabaseURI: "file:" + uuid.NewString() + "?mode=memory&cache=shared",
		LogLevel:    "silent",
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Post{}); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	for _, u := range []models.User{
		{ID: AdminID, Username: "admin", IsStaff: true},
		{ID: EditorID, Username: "editor"},
	} {
		u := u
		if err := db.Create(&u).Error; err != nil {
			t.Fatalf("seed user %s: %v", u.Username, err)
		}
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// TinyPNG encodes a solid w×h PNG.
func TinyPNG(t testing.TB, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 80, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// File is a file part for Multipart.
type File struct {
	Field    string
	Filename string
	Content  []byte
}

// Multipart builds a multipart/form-data body and returns it with its content type.
func Multipart(t testing.TB, fields map[string]string, files ...File) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field %s: %v", k, err)
		}
	}
	for _, f := range files {
		part, err := w.CreateFormFile(f.Field, f.Filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(f.Content); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &body, w.FormDataContentType()
}

// FileHeader parses a single uploaded file back into a *multipart.FileHeader.
func FileHeader(t testing.TB, field, filename string, content []byte) *multipart.FileHeader {
	t.Helper()
	body, contentType := Multipart(t, nil, File{Field: field, Filename: filename, Content: content})
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		t.Fatalf("parse content type: %v", err)
	}
	form, err := multipart.NewReader(body, params["boundary"]).ReadForm(32 << 20)
	if err != nil {
		t.Fatalf("read multipart form: %v", err)
	}
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File[field][0]
}
