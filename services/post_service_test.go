package services

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/cppla/photoblog/forms"
	"github.com/cppla/photoblog/media"
	"github.com/cppla/photoblog/models"
	"github.com/cppla/photoblog/testutil"
)

var fixedNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func newPostService(t *testing.T) (*PostService, *gorm.DB) {
	t.Helper()
	db := testutil.NewDB(t)
	store := media.NewStore(t.TempDir(), "/media/", 1)
	return NewPostService(db, store, func() time.Time { return fixedNow }, testutil.AdminID), db
}

func seedPost(t *testing.T, db *gorm.DB, title string, published *time.Time) models.Post {
	t.Helper()
	p := models.Post{AuthorID: testutil.AdminID, Title: title, Text: "body", CreatedDate: fixedNow.Add(-48 * time.Hour), PublishedDate: published}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func at(d time.Duration) *time.Time {
	ts := fixedNow.Add(d)
	return &ts
}

func titles(posts []models.Post) []string {
	out := make([]string, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.Title)
	}
	return out
}

func TestListPublishedOrderingAndVisibility(t *testing.T) {
	svc, db := newPostService(t)
	ctx := context.Background()

	seedPost(t, db, "middle", at(-2*time.Hour))
	seedPost(t, db, "draft", nil)
	seedPost(t, db, "oldest", at(-5*time.Hour))
	seedPost(t, db, "scheduled", at(time.Hour))
	seedPost(t, db, "newest", at(-time.Minute))
	seedPost(t, db, "exactly-now", at(0))

	asc, err := svc.ListPublished(ctx, OldestFirst)
	require.NoError(t, err)
	assert.Equal(t, []string{"oldest", "middle", "newest", "exactly-now"}, titles(asc))

	desc, err := svc.ListPublished(ctx, NewestFirst)
	require.NoError(t, err)
	assert.Equal(t, []string{"exactly-now", "newest", "middle", "oldest"}, titles(desc))
}

func TestGetIgnoresPublishState(t *testing.T) {
	svc, db := newPostService(t)
	ctx := context.Background()
	draft := seedPost(t, db, "draft", nil)
	scheduled := seedPost(t, db, "scheduled", at(time.Hour))

	got, err := svc.Get(ctx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, "draft", got.Title)
	assert.Equal(t, "admin", got.Author.Username)

	_, err = svc.GetPublished(ctx, scheduled.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Get(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Get(ctx, 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateFromFormForcesAuthorAndDate(t *testing.T) {
	svc, _ := newPostService(t)
	ctx := context.Background()

	f := forms.NewPostForm(nil)
	fh := testutil.FileHeader(t, "image", "a.png", testutil.TinyPNG(t, 2, 2))
	require.True(t, f.Bind(url.Values{"title": {"Hi"}, "text": {"there"}, "author": {"1"}, "published_date": {"2000-01-01T00:00:00Z"}},
		map[string][]*multipart.FileHeader{"image": {fh}}, svc.Store()))

	post, err := svc.CreateFromForm(ctx, Requester{UserID: testutil.EditorID}, f)
	require.NoError(t, err)
	assert.Equal(t, testutil.EditorID, post.AuthorID)
	require.NotNil(t, post.PublishedDate)
	assert.True(t, post.PublishedDate.Equal(fixedNow))
	assert.NotEmpty(t, post.Image)
	_, err = os.Stat(svc.Store().Path(post.Image))
	assert.NoError(t, err)

	_, err = svc.CreateFromForm(ctx, Requester{}, f)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestUpdateFromFormResetsAuthorAndDate(t *testing.T) {
	svc, db := newPostService(t)
	ctx := context.Background()
	p := seedPost(t, db, "before", at(-24*time.Hour))

	f := forms.NewPostForm(&p)
	require.True(t, f.Bind(url.Values{"title": {"after"}, "text": {"edited"}}, nil, svc.Store()))
	post, err := svc.UpdateFromForm(ctx, Requester{UserID: testutil.EditorID}, p.ID, f)
	require.NoError(t, err)
	assert.Equal(t, "after", post.Title)
	assert.Equal(t, testutil.EditorID, post.AuthorID)
	assert.True(t, post.PublishedDate.Equal(fixedNow))

	var reloaded models.Post
	require.NoError(t, db.First(&reloaded, p.ID).Error)
	assert.Equal(t, testutil.EditorID, reloaded.AuthorID)
	assert.Equal(t, "edited", reloaded.Text)

	_, err = svc.UpdateFromForm(ctx, Requester{UserID: testutil.EditorID}, 4242, f)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateFromFormImageReplaceAndClear(t *testing.T) {
	svc, db := newPostService(t)
	ctx := context.Background()
	p := seedPost(t, db, "pic", at(-time.Hour))
	req := Requester{UserID: testutil.AdminID}

	f := forms.NewPostForm(&p)
	fh := testutil.FileHeader(t, "image", "one.png", testutil.TinyPNG(t, 2, 2))
	require.True(t, f.Bind(url.Values{"title": {"pic"}, "text": {"x"}}, map[string][]*multipart.FileHeader{"image": {fh}}, svc.Store()))
	first, err := svc.UpdateFromForm(ctx, req, p.ID, f)
	require.NoError(t, err)
	firstImage := first.Image
	require.NotEmpty(t, firstImage)

	f = forms.NewPostForm(first)
	require.True(t, f.Bind(url.Values{"title": {"pic"}, "text": {"x"}}, nil, svc.Store()))
	kept, err := svc.UpdateFromForm(ctx, req, p.ID, f)
	require.NoError(t, err)
	assert.Equal(t, firstImage, kept.Image)

	f = forms.NewPostForm(kept)
	require.True(t, f.Bind(url.Values{"title": {"pic"}, "text": {"x"}, "image-clear": {"on"}}, nil, svc.Store()))
	cleared, err := svc.UpdateFromForm(ctx, req, p.ID, f)
	require.NoError(t, err)
	assert.Empty(t, cleared.Image)
	_, err = os.Stat(svc.Store().Path(firstImage))
	assert.True(t, os.IsNotExist(err))
}

func TestCreateFromAPIDefaults(t *testing.T) {
	svc, _ := newPostService(t)
	ctx := context.Background()

	p := forms.PayloadFromForm(url.Values{}, nil)
	p.ApplyDefaults(svc.DefaultAuthorID())
	in, errs := p.Validate(false, svc.Store())
	require.False(t, errs.Any())

	post, err := svc.CreateFromAPI(ctx, Requester{}, in)
	require.NoError(t, err)
	assert.Equal(t, forms.DefaultMobileTitle, post.Title)
	assert.Equal(t, forms.DefaultMobileText, post.Text)
	assert.Equal(t, testutil.AdminID, post.AuthorID)
	assert.True(t, post.PublishedDate.Equal(fixedNow))

	authored, err := svc.CreateFromAPI(ctx, Requester{UserID: testutil.EditorID}, in)
	require.NoError(t, err)
	assert.Equal(t, testutil.EditorID, authored.AuthorID)
}

func TestCreateFromAPIUnknownAuthor(t *testing.T) {
	svc, db := newPostService(t)

	p := forms.PayloadFromForm(url.Values{"author": {"77"}}, nil)
	p.ApplyDefaults(svc.DefaultAuthorID())
	in, errs := p.Validate(false, svc.Store())
	require.False(t, errs.Any())

	_, err := svc.CreateFromAPI(context.Background(), Requester{}, in)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{`Invalid pk "77" - object does not exist.`}, verr.Fields["author"])

	var count int64
	db.Model(&models.Post{}).Count(&count)
	assert.Zero(t, count)
}

func TestUpdateFromAPIPartial(t *testing.T) {
	svc, db := newPostService(t)
	ctx := context.Background()
	p := seedPost(t, db, "orig", at(-time.Hour))
	draft := seedPost(t, db, "draft", nil)

	text := "patched"
	post, err := svc.UpdateFromAPI(ctx, p.ID, forms.PostInput{Text: &text})
	require.NoError(t, err)
	assert.Equal(t, "orig", post.Title)
	assert.Equal(t, "patched", post.Text)
	assert.True(t, post.PublishedDate.Equal(fixedNow.Add(-time.Hour)))

	post, err = svc.UpdateFromAPI(ctx, p.ID, forms.PostInput{PublishedDateSet: true})
	require.NoError(t, err)
	assert.Nil(t, post.PublishedDate)

	_, err = svc.UpdateFromAPI(ctx, p.ID, forms.PostInput{Text: &text})
	assert.ErrorIs(t, err, ErrNotFound, "unpublished posts are outside the API")
	_, err = svc.UpdateFromAPI(ctx, draft.ID, forms.PostInput{Text: &text})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteRemovesImage(t *testing.T) {
	svc, db := newPostService(t)
	ctx := context.Background()

	up, err := svc.Store().Read("d.png", bytes.NewReader(testutil.TinyPNG(t, 1, 1)))
	require.NoError(t, err)
	rel, err := svc.Store().Save(up, fixedNow)
	require.NoError(t, err)
	p := models.Post{AuthorID: testutil.AdminID, Title: "bye", Text: "x", Image: rel, CreatedDate: fixedNow, PublishedDate: at(-time.Minute)}
	require.NoError(t, db.Create(&p).Error)

	require.NoError(t, svc.Delete(ctx, p.ID))
	_, err = os.Stat(svc.Store().Path(rel))
	assert.True(t, os.IsNotExist(err))
	_, err = svc.GetPublished(ctx, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, p.ID), ErrNotFound)
}
