package forms

import (
	"mime/multipart"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/photoblog/media"
	"github.com/cppla/photoblog/models"
	"github.com/cppla/photoblog/testutil"
)

func TestPostFormBind(t *testing.T) {
	store := media.NewStore(t.TempDir(), "/media/", 1)
	fh := testutil.FileHeader(t, "image", "cat.png", testutil.TinyPNG(t, 3, 3))

	f := NewPostForm(nil)
	ok := f.Bind(url.Values{"title": {"  Hello  "}, "text": {"World"}}, map[string][]*multipart.FileHeader{"image": {fh}}, store)
	require.True(t, ok, f.Errors)
	assert.Equal(t, "Hello", f.Title)
	assert.Equal(t, "World", f.Text)
	require.NotNil(t, f.Image)
	assert.Equal(t, "png", f.Image.Format)
}

func TestPostFormErrors(t *testing.T) {
	store := media.NewStore(t.TempDir(), "/media/", 1)
	bad := testutil.FileHeader(t, "image", "notes.png", []byte("plain text"))

	f := NewPostForm(nil)
	ok := f.Bind(url.Values{"title": {strings.Repeat("가", 201)}, "text": {"   "}}, map[string][]*multipart.FileHeader{"image": {bad}}, store)
	require.False(t, ok)
	assert.Equal(t, []string{"Ensure this field has no more than 200 characters."}, f.Errors.Get("title"))
	assert.Equal(t, []string{MsgRequired}, f.Errors.Get("text"))
	assert.Equal(t, []string{MsgInvalidImage}, f.Errors.Get("image"))
	assert.Nil(t, f.Image)
}

func TestPostFormPrefillAndClear(t *testing.T) {
	store := media.NewStore(t.TempDir(), "/media/", 1)
	f := NewPostForm(&models.Post{Title: "t", Text: "x", Image: "blog_image/a.png"})
	assert.Equal(t, "blog_image/a.png", f.CurrentImage)

	ok := f.Bind(url.Values{"title": {"t"}, "text": {"x"}, "image-clear": {"on"}}, nil, store)
	require.True(t, ok)
	assert.True(t, f.ClearImage)
	assert.Equal(t, "blog_image/a.png", f.CurrentImage)
}

func TestPayloadDefaults(t *testing.T) {
	store := media.NewStore(t.TempDir(), "/media/", 1)
	fh := testutil.FileHeader(t, "image", "upload.jpg", testutil.TinyPNG(t, 2, 2))

	p := PayloadFromForm(url.Values{}, map[string][]*multipart.FileHeader{"image": {fh}})
	p.ApplyDefaults(1)
	in, errs := p.Validate(false, store)
	require.False(t, errs.Any(), errs)
	assert.Equal(t, DefaultMobileTitle, *in.Title)
	assert.Equal(t, DefaultMobileText, *in.Text)
	assert.Equal(t, uint(1), *in.AuthorID)
	assert.NotNil(t, in.Image)
	assert.False(t, in.PublishedDateSet)
}

func TestPayloadDefaultsKeepProvidedValues(t *testing.T) {
	p := PayloadFromForm(url.Values{"title": {"Mine"}, "author": {"2"}}, nil)
	p.ApplyDefaults(1)
	assert.Equal(t, "Mine", *p.Title)
	assert.Equal(t, DefaultMobileText, *p.Text)
	assert.Equal(t, "2", *p.Author)
}

func TestPayloadDefaultAuthorIsConfigurable(t *testing.T) {
	store := media.NewStore(t.TempDir(), "/media/", 1)

	p := PayloadFromForm(url.Values{}, nil)
	p.ApplyDefaults(7)
	in, errs := p.Validate(false, store)
	require.False(t, errs.Any(), errs)
	assert.Equal(t, uint(7), *in.AuthorID)
}

func TestPayloadJSONNullsAreNotDefaulted(t *testing.T) {
	store := media.NewStore(t.TempDir(), "/media/", 1)

	p, err := PayloadFromJSON([]byte(`{"author":null,"title":null}`))
	require.NoError(t, err)
	p.ApplyDefaults(1)
	assert.Nil(t, p.Author)
	assert.Nil(t, p.Title)
	assert.Equal(t, DefaultMobileText, *p.Text)

	_, errs := p.Validate(false, store)
	assert.Equal(t, []string{MsgNull}, errs.Get("author"))
	assert.Equal(t, []string{MsgNull}, errs.Get("title"))
	assert.Empty(t, errs.Get("text"))
}

func TestPayloadValidation(t *testing.T) {
	store := media.NewStore(t.TempDir(), "/media/", 1)

	p := PayloadFromForm(url.Values{"title": {""}, "author": {"abc"}, "published_date": {"yesterday"}}, nil)
	_, errs := p.Validate(false, store)
	assert.Equal(t, []string{MsgBlank}, errs.Get("title"))
	assert.Equal(t, []string{MsgRequired}, errs.Get("text"))
	assert.Equal(t, []string{"Incorrect type. Expected pk value, received str."}, errs.Get("author"))
	assert.Equal(t, []string{MsgInvalidDate}, errs.Get("published_date"))
}

func TestPayloadPartial(t *testing.T) {
	store := media.NewStore(t.TempDir(), "/media/", 1)

	p := PayloadFromForm(url.Values{"text": {"only text"}, "published_date": {""}}, nil)
	in, errs := p.Validate(true, store)
	require.False(t, errs.Any(), errs)
	assert.Nil(t, in.Title)
	assert.Equal(t, "only text", *in.Text)
	assert.Nil(t, in.AuthorID)
	assert.True(t, in.PublishedDateSet)
	assert.Nil(t, in.PublishedDate)
}

func TestPayloadFromJSON(t *testing.T) {
	store := media.NewStore(t.TempDir(), "/media/", 1)

	p, err := PayloadFromJSON([]byte(`{"title":"T","text":"body","author":2,"published_date":"2026-10-19T09:00:00+09:00"}`))
	require.NoError(t, err)
	in, errs := p.Validate(false, store)
	require.False(t, errs.Any(), errs)
	assert.Equal(t, uint(2), *in.AuthorID)
	require.NotNil(t, in.PublishedDate)
	assert.Equal(t, 0, in.PublishedDate.Hour())

	p, err = PayloadFromJSON([]byte(`{"image":"http://example.com/a.png","title":["x"]}`))
	require.NoError(t, err)
	_, errs = p.Validate(true, store)
	assert.Equal(t, []string{MsgNotAFile}, errs.Get("image"))
	assert.Equal(t, []string{MsgNotAString}, errs.Get("title"))

	_, err = PayloadFromJSON([]byte(`{"title":`))
	assert.Error(t, err)

	p, err = PayloadFromJSON(nil)
	require.NoError(t, err)
	p.ApplyDefaults(1)
	_, errs = p.Validate(false, store)
	assert.False(t, errs.Any(), errs)
}
