package forms

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cppla/photoblog/media"
)

// Placeholder values the mobile client relies on when it only sends an image.
const (
	DefaultMobileTitle = "모바일 업로드 이미지"
	DefaultMobileText  = "안드로이드 앱에서 업로드됨"
)

// PostPayload is the partial, not yet validated input of the post API.
// A nil pointer means the field was absent from the request.
type PostPayload struct {
	Title  *string
	Text   *string
	Author *string

	PublishedDate     *string
	PublishedDateNull bool

	Image *multipart.FileHeader
	// ImageNotFile is set when "image" arrived as a plain value instead of a file part.
	ImageNotFile bool
	// ImageCleared is set when "image" was explicitly sent empty or null.
	ImageCleared bool

	// nulls records fields sent as an explicit JSON null.
	nulls       map[string]bool
	fieldErrors Errors
}

// ApplyDefaults fills the fields the mobile upload flow leaves out. Fields sent
// as null are not absent and keep failing validation.
func (p *PostPayload) ApplyDefaults(defaultAuthorID uint) {
	if p.Title == nil && !p.nulls["title"] {
		p.Title = strPtr(DefaultMobileTitle)
	}
	if p.Text == nil && !p.nulls["text"] {
		p.Text = strPtr(DefaultMobileText)
	}
	if p.Author == nil && !p.nulls["author"] {
		p.Author = strPtr(strconv.FormatUint(uint64(defaultAuthorID), 10))
	}
}

// PostInput is a validated PostPayload. Nil pointers are fields left unchanged.
type PostInput struct {
	Title    *string
	Text     *string
	AuthorID *uint

	PublishedDate    *time.Time
	PublishedDateSet bool

	Image      *media.Upload
	ClearImage bool
}

type payloadFields struct {
	Title string `form:"title" validate:"notblank,max=200"`
	Text  string `form:"text" validate:"notblank"`
}

// Validate checks the payload. With partial set, absent fields are allowed (PATCH);
// otherwise title, text and author are required.
func (p *PostPayload) Validate(partial bool, store *media.Store) (PostInput, Errors) {
	errs := Errors{}
	for field, msgs := range p.fieldErrors {
		for _, m := range msgs {
			errs.Add(field, m)
		}
	}
	var in PostInput

	if !partial {
		for field, v := range map[string]*string{"title": p.Title, "text": p.Text, "author": p.Author} {
			if v == nil && len(errs[field]) == 0 {
				errs.Add(field, MsgRequired)
			}
		}
	}

	fields := payloadFields{Title: "x", Text: "x"}
	if p.Title != nil {
		fields.Title = strings.TrimSpace(*p.Title)
		in.Title = &fields.Title
	}
	if p.Text != nil {
		fields.Text = strings.TrimSpace(*p.Text)
		in.Text = &fields.Text
	}
	collect(fields, errs)

	if p.Author != nil {
		raw := strings.TrimSpace(*p.Author)
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			errs.Add("author", fmt.Sprintf(MsgInvalidPK, "str"))
		} else {
			authorID := uint(id)
			in.AuthorID = &authorID
		}
	}

	switch {
	case p.PublishedDateNull:
		in.PublishedDateSet = true
	case p.PublishedDate != nil:
		ts, err := time.Parse(time.RFC3339, strings.TrimSpace(*p.PublishedDate))
		if err != nil {
			errs.Add("published_date", MsgInvalidDate)
		} else {
			ts = ts.UTC()
			in.PublishedDate = &ts
			in.PublishedDateSet = true
		}
	}

	switch {
	case p.ImageNotFile:
		errs.Add("image", MsgNotAFile)
	case p.Image != nil:
		up, err := store.Open(p.Image)
		if err != nil {
			errs.Add("image", imageMessage(err))
		} else {
			in.Image = up
		}
	case p.ImageCleared:
		in.ClearImage = true
	}

	return in, errs
}

// PayloadFromForm reads a urlencoded or multipart submission.
func PayloadFromForm(values url.Values, files map[string][]*multipart.FileHeader) PostPayload {
	var p PostPayload
	if _, ok := values["title"]; ok {
		p.Title = strPtr(values.Get("title"))
	}
	if _, ok := values["text"]; ok {
		p.Text = strPtr(values.Get("text"))
	}
	if _, ok := values["author"]; ok {
		p.Author = strPtr(values.Get("author"))
	}
	if _, ok := values["published_date"]; ok {
		if v := values.Get("published_date"); v == "" {
			p.PublishedDateNull = true
		} else {
			p.PublishedDate = strPtr(v)
		}
	}
	if fhs := files["image"]; len(fhs) > 0 && fhs[0] != nil {
		p.Image = fhs[0]
	} else if _, ok := values["image"]; ok {
		if values.Get("image") == "" {
			p.ImageCleared = true
		} else {
			p.ImageNotFile = true
		}
	}
	return p
}

// PayloadFromJSON decodes a JSON object body. Malformed JSON is returned as an error;
// fields of the wrong type become field errors.
func PayloadFromJSON(body []byte) (PostPayload, error) {
	var p PostPayload
	if len(bytes.TrimSpace(body)) == 0 {
		return p, nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return p, fmt.Errorf("JSON parse error - %w", err)
	}
	p.fieldErrors = Errors{}
	p.nulls = map[string]bool{}

	for _, field := range []string{"title", "text", "author"} {
		if v, ok := raw[field]; ok && isNull(v) {
			p.nulls[field] = true
			p.fieldErrors.Add(field, MsgNull)
		}
	}
	if v, ok := raw["title"]; ok && !p.nulls["title"] {
		p.Title = p.jsonString("title", v)
	}
	if v, ok := raw["text"]; ok && !p.nulls["text"] {
		p.Text = p.jsonString("text", v)
	}
	if v, ok := raw["author"]; ok && !p.nulls["author"] {
		s := strings.Trim(string(v), `"`)
		p.Author = &s
	}
	if v, ok := raw["published_date"]; ok {
		if isNull(v) {
			p.PublishedDateNull = true
		} else {
			p.PublishedDate = p.jsonString("published_date", v)
		}
	}
	if v, ok := raw["image"]; ok {
		var s string
		if isNull(v) || (json.Unmarshal(v, &s) == nil && s == "") {
			p.ImageCleared = true
		} else {
			p.ImageNotFile = true
		}
	}
	return p, nil
}

// jsonString accepts JSON strings and numbers, mirroring how form fields arrive as text.
func (p *PostPayload) jsonString(field string, v json.RawMessage) *string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return &s
	}
	var n json.Number
	if err := json.Unmarshal(v, &n); err == nil {
		s = n.String()
		return &s
	}
	p.fieldErrors.Add(field, MsgNotAString)
	return nil
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

func strPtr(s string) *string { return &s }
