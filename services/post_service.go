package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/photoblog/forms"
	"github.com/cppla/photoblog/media"
	"github.com/cppla/photoblog/models"
	"github.com/cppla/photoblog/utils"
)

// Order selects the publish-date direction of a listing.
type Order int

const (
	// OldestFirst orders by published_date ascending, then id.
	OldestFirst Order = iota
	// NewestFirst orders by published_date descending, then id descending.
	NewestFirst
)

// PostService creates, reads, updates and deletes posts.
type PostService struct {
	db              *gorm.DB
	store           *media.Store
	now             Clock
	defaultAuthorID uint
}

// NewPostService wires a PostService. A nil clock falls back to SystemClock.
func NewPostService(db *gorm.DB, store *media.Store, now Clock, defaultAuthorID uint) *PostService {
	if now == nil {
		now = SystemClock
	}
	if defaultAuthorID == 0 {
		defaultAuthorID = 1
	}
	return &PostService{db: db, store: store, now: now, defaultAuthorID: defaultAuthorID}
}

// Store exposes the media store used for post images.
func (s *PostService) Store() *media.Store { return s.store }

// DefaultAuthorID is the author of anonymous API uploads.
func (s *PostService) DefaultAuthorID() uint { return s.defaultAuthorID }

func (s *PostService) published(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Model(&models.Post{}).
		Where("published_date IS NOT NULL AND published_date <= ?", s.now())
}

// ListPublished returns every post whose published_date is set and not in the future.
func (s *PostService) ListPublished(ctx context.Context, order Order) ([]models.Post, error) {
	q := s.published(ctx)
	if order == NewestFirst {
		q = q.Order("published_date DESC").Order("id DESC")
	} else {
		q = q.Order("published_date ASC").Order("id ASC")
	}
	var posts []models.Post
	if err := q.Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("list published posts: %w", err)
	}
	return posts, nil
}

// Get returns a post by id regardless of its publish state.
func (s *PostService) Get(ctx context.Context, id uint) (*models.Post, error) {
	return s.first(s.db.WithContext(ctx), id)
}

// GetPublished returns a post by id only if it is published.
func (s *PostService) GetPublished(ctx context.Context, id uint) (*models.Post, error) {
	return s.first(s.published(ctx), id)
}

func (s *PostService) first(q *gorm.DB, id uint) (*models.Post, error) {
	if id == 0 {
		return nil, ErrNotFound
	}
	var post models.Post
	if err := q.Preload("Author").First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load post %d: %w", id, err)
	}
	return &post, nil
}

// CreateFromForm persists a post submitted through the HTML form.
// The author is the requester and the post is published immediately.
func (s *PostService) CreateFromForm(ctx context.Context, req Requester, f *forms.PostForm) (*models.Post, error) {
	if !req.Authenticated() {
		return nil, ErrUnauthenticated
	}
	now := s.now()
	post := &models.Post{
		AuthorID:      req.UserID,
		Title:         f.Title,
		Text:          f.Text,
		CreatedDate:   now,
		PublishedDate: &now,
	}
	if err := s.save(ctx, post, f.Image, false, true); err != nil {
		return nil, err
	}
	return post, nil
}

// UpdateFromForm applies an HTML edit. Every edit resets the author to the
// requester and published_date to now.
func (s *PostService) UpdateFromForm(ctx context.Context, req Requester, id uint, f *forms.PostForm) (*models.Post, error) {
	if !req.Authenticated() {
		return nil, ErrUnauthenticated
	}
	post, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	post.Title = f.Title
	post.Text = f.Text
	post.AuthorID = req.UserID
	post.PublishedDate = &now
	if err := s.save(ctx, post, f.Image, f.ClearImage, false); err != nil {
		return nil, err
	}
	return post, nil
}

// CreateFromAPI persists a post from a validated API payload. The author is the
// requester when authenticated and the configured default author otherwise;
// published_date is always now.
func (s *PostService) CreateFromAPI(ctx context.Context, req Requester, in forms.PostInput) (*models.Post, error) {
	if err := s.checkAuthor(ctx, in.AuthorID); err != nil {
		return nil, err
	}
	now := s.now()
	post := &models.Post{
		AuthorID:      s.defaultAuthorID,
		Title:         deref(in.Title),
		Text:          deref(in.Text),
		CreatedDate:   now,
		PublishedDate: &now,
	}
	if req.Authenticated() {
		post.AuthorID = req.UserID
	}
	if err := s.save(ctx, post, in.Image, false, true); err != nil {
		return nil, err
	}
	return post, nil
}

// UpdateFromAPI applies a PUT or PATCH to a published post. Only fields present
// in the input change.
func (s *PostService) UpdateFromAPI(ctx context.Context, id uint, in forms.PostInput) (*models.Post, error) {
	post, err := s.GetPublished(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkAuthor(ctx, in.AuthorID); err != nil {
		return nil, err
	}
	if in.Title != nil {
		post.Title = *in.Title
	}
	if in.Text != nil {
		post.Text = *in.Text
	}
	if in.AuthorID != nil {
		post.AuthorID = *in.AuthorID
	}
	if in.PublishedDateSet {
		post.PublishedDate = in.PublishedDate
	}
	if err := s.save(ctx, post, in.Image, in.ClearImage, false); err != nil {
		return nil, err
	}
	return post, nil
}

// Delete removes a published post and its image file.
func (s *PostService) Delete(ctx context.Context, id uint) error {
	post, err := s.GetPublished(ctx, id)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(&models.Post{}, post.ID).Error; err != nil {
		return fmt.Errorf("delete post %d: %w", id, err)
	}
	s.removeImage(post.Image)
	return nil
}

func (s *PostService) checkAuthor(ctx context.Context, authorID *uint) error {
	if authorID == nil {
		return nil
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", *authorID).Count(&count).Error; err != nil {
		return fmt.Errorf("check author %d: %w", *authorID, err)
	}
	if count == 0 {
		return &ValidationError{Fields: forms.Errors{
			"author": {fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", *authorID)},
		}}
	}
	return nil
}

// save writes the new image (if any), persists the post and then drops the
// replaced image. A failed write removes the freshly stored file again.
func (s *PostService) save(ctx context.Context, post *models.Post, upload *media.Upload, clear, create bool) error {
	previous := post.Image
	stored := ""
	if upload != nil {
		rel, err := s.store.Save(upload, s.now())
		if err != nil {
			return fmt.Errorf("store image: %w", err)
		}
		stored = rel
		post.Image = rel
	} else if clear {
		post.Image = ""
	}

	tx := s.db.WithContext(ctx).Omit("Author")
	var err error
	if create {
		err = tx.Create(post).Error
	} else {
		err = tx.Save(post).Error
	}
	if err != nil {
		s.removeImage(stored)
		post.Image = previous
		return fmt.Errorf("save post: %w", err)
	}
	if previous != "" && previous != post.Image {
		s.removeImage(previous)
	}
	return nil
}

func (s *PostService) removeImage(rel string) {
	if rel == "" {
		return
	}
	if err := s.store.Delete(rel); err != nil {
		utils.Logger.Warn("remove post image failed", zap.String("path", rel), zap.Error(err))
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
