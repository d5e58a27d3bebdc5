package controllers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/photoblog/forms"
	"github.com/cppla/photoblog/middleware"
	"github.com/cppla/photoblog/models"
	"github.com/cppla/photoblog/services"
	"github.com/cppla/photoblog/utils"
)

// PostRepresentation is the API view of a post.
type PostRepresentation struct {
	ID            uint       `json:"id"`
	Title         string     `json:"title"`
	Text          string     `json:"text"`
	Image         *string    `json:"image"`
	Author        uint       `json:"author"`
	CreatedDate   time.Time  `json:"created_date"`
	PublishedDate *time.Time `json:"published_date"`
}

// PostAPIController exposes CRUD over posts for the mobile client. No
// permission checks apply; identity only decides the author on create.
type PostAPIController struct {
	posts *services.PostService
}

// NewPostAPIController creates a new PostAPIController instance.
func NewPostAPIController(posts *services.PostService) *PostAPIController {
	return &PostAPIController{posts: posts}
}

// List returns published posts, newest first.
func (p *PostAPIController) List(ctx *gin.Context) {
	posts, err := p.posts.ListPublished(ctx.Request.Context(), services.NewestFirst)
	if err != nil {
		p.internalError(ctx, "list posts failed", err)
		return
	}
	out := make([]PostRepresentation, 0, len(posts))
	for i := range posts {
		out = append(out, p.represent(ctx, &posts[i]))
	}
	ctx.JSON(http.StatusOK, out)
}

// Retrieve returns one published post.
func (p *PostAPIController) Retrieve(ctx *gin.Context) {
	post, ok := p.lookup(ctx)
	if !ok {
		return
	}
	ctx.JSON(http.StatusOK, p.represent(ctx, post))
}

// Create stores a new post. Missing title, text and author fall back to the
// mobile upload placeholders before validation.
func (p *PostAPIController) Create(ctx *gin.Context) {
	payload, ok := p.payload(ctx)
	if !ok {
		return
	}
	payload.ApplyDefaults(p.posts.DefaultAuthorID())
	in, errs := payload.Validate(false, p.posts.Store())
	if errs.Any() {
		p.invalid(ctx, errs)
		return
	}

	post, err := p.posts.CreateFromAPI(ctx.Request.Context(), middleware.CurrentRequester(ctx), in)
	if !p.handleWriteError(ctx, err, "create post failed") {
		return
	}
	utils.Logger.Info("post created via api", zap.Uint("post_id", post.ID), zap.Uint("author_id", post.AuthorID))
	ctx.JSON(http.StatusCreated, p.represent(ctx, post))
}

// Update replaces a post (PUT): title, text and author are required.
func (p *PostAPIController) Update(ctx *gin.Context) {
	p.update(ctx, false)
}

// PartialUpdate changes only the supplied fields (PATCH).
func (p *PostAPIController) PartialUpdate(ctx *gin.Context) {
	p.update(ctx, true)
}

func (p *PostAPIController) update(ctx *gin.Context, partial bool) {
	existing, ok := p.lookup(ctx)
	if !ok {
		return
	}
	payload, ok := p.payload(ctx)
	if !ok {
		return
	}
	in, errs := payload.Validate(partial, p.posts.Store())
	if errs.Any() {
		p.invalid(ctx, errs)
		return
	}

	post, err := p.posts.UpdateFromAPI(ctx.Request.Context(), existing.ID, in)
	if !p.handleWriteError(ctx, err, "update post failed") {
		return
	}
	ctx.JSON(http.StatusOK, p.represent(ctx, post))
}

// Destroy deletes a post and its image.
func (p *PostAPIController) Destroy(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		notFound(ctx)
		return
	}
	err := p.posts.Delete(ctx.Request.Context(), id)
	if errors.Is(err, services.ErrNotFound) {
		notFound(ctx)
		return
	}
	if err != nil {
		p.internalError(ctx, "delete post failed", err)
		return
	}
	utils.Logger.Info("post deleted via api", zap.Uint("post_id", id))
	ctx.Status(http.StatusNoContent)
}

func (p *PostAPIController) lookup(ctx *gin.Context) (*models.Post, bool) {
	id, ok := parseID(ctx, "id")
	if !ok {
		notFound(ctx)
		return nil, false
	}
	post, err := p.posts.GetPublished(ctx.Request.Context(), id)
	if errors.Is(err, services.ErrNotFound) {
		notFound(ctx)
		return nil, false
	}
	if err != nil {
		p.internalError(ctx, "load post failed", err)
		return nil, false
	}
	return post, true
}

// payload reads the request body as JSON or form data.
func (p *PostAPIController) payload(ctx *gin.Context) (forms.PostPayload, bool) {
	if ctx.ContentType() == gin.MIMEJSON {
		body, err := io.ReadAll(ctx.Request.Body)
		if err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40001, "failed to read request body")
			return forms.PostPayload{}, false
		}
		payload, err := forms.PayloadFromJSON(body)
		if err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40001, err.Error())
			return forms.PostPayload{}, false
		}
		return payload, true
	}
	values, files, err := readForm(ctx)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40002, "invalid form payload")
		return forms.PostPayload{}, false
	}
	return forms.PayloadFromForm(values, files), true
}

func (p *PostAPIController) invalid(ctx *gin.Context, errs forms.Errors) {
	utils.Logger.Warn("post payload rejected",
		zap.String("method", ctx.Request.Method),
		zap.String("path", ctx.Request.URL.Path),
		zap.Any("errors", errs))
	utils.ValidationFailed(ctx, errs)
}

// handleWriteError reports err and returns false, or returns true when err is nil.
func (p *PostAPIController) handleWriteError(ctx *gin.Context, err error, msg string) bool {
	if err == nil {
		return true
	}
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		p.invalid(ctx, verr.Fields)
	case errors.Is(err, services.ErrNotFound):
		notFound(ctx)
	default:
		p.internalError(ctx, msg, err)
	}
	return false
}

func (p *PostAPIController) internalError(ctx *gin.Context, msg string, err error) {
	utils.Logger.Error(msg, zap.Error(err), zap.String("path", ctx.Request.URL.Path))
	utils.Error(ctx, http.StatusInternalServerError, 50000, "internal server error")
}

func (p *PostAPIController) represent(ctx *gin.Context, post *models.Post) PostRepresentation {
	rep := PostRepresentation{
		ID:            post.ID,
		Title:         post.Title,
		Text:          post.Text,
		Author:        post.AuthorID,
		CreatedDate:   post.CreatedDate,
		PublishedDate: post.PublishedDate,
	}
	if post.Image != "" {
		u := p.posts.Store().AbsoluteURL(requestScheme(ctx), ctx.Request.Host, post.Image)
		rep.Image = &u
	}
	return rep
}

func notFound(ctx *gin.Context) {
	utils.Error(ctx, http.StatusNotFound, 40400, "Not found.")
}
