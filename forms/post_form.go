package forms

import (
	"mime/multipart"
	"net/url"
	"strings"

	"github.com/cppla/photoblog/media"
	"github.com/cppla/photoblog/models"
)

// PostForm backs the HTML new/edit pages: title, text and an optional image.
type PostForm struct {
	Title string `form:"title" validate:"required,max=200"`
	Text  string `form:"text" validate:"required"`

	// CurrentImage is the media path already attached to the post being edited.
	CurrentImage string `form:"-" validate:"-"`
	// Image is set when a new, valid image was uploaded.
	Image *media.Upload `form:"-" validate:"-"`
	// ClearImage removes CurrentImage when no new image is uploaded.
	ClearImage bool `form:"-" validate:"-"`

	Errors Errors `form:"-" validate:"-"`
}

// NewPostForm returns a form prefilled from post, or an empty form when post is nil.
func NewPostForm(post *models.Post) *PostForm {
	f := &PostForm{Errors: Errors{}}
	if post != nil {
		f.Title = post.Title
		f.Text = post.Text
		f.CurrentImage = post.Image
	}
	return f
}

// Bind loads submitted values and files into the form and validates them.
// It reports whether the form is valid; on failure f.Errors holds per-field messages.
func (f *PostForm) Bind(values url.Values, files map[string][]*multipart.FileHeader, store *media.Store) bool {
	if f.Errors == nil {
		f.Errors = Errors{}
	}
	f.Title = strings.TrimSpace(values.Get("title"))
	f.Text = strings.TrimSpace(values.Get("text"))
	f.ClearImage = values.Get("image-clear") != ""

	collect(f, f.Errors)

	if fhs := files["image"]; len(fhs) > 0 && fhs[0] != nil {
		up, err := store.Open(fhs[0])
		if err != nil {
			f.Errors.Add("image", imageMessage(err))
		} else {
			f.Image = up
			f.ClearImage = false
		}
	}
	return !f.Errors.Any()
}
