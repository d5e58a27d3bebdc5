package controllers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/photoblog/forms"
	"github.com/cppla/photoblog/middleware"
	"github.com/cppla/photoblog/services"
	"github.com/cppla/photoblog/utils"
)

// BlogController serves the server-rendered blog pages.
type BlogController struct {
	posts *services.PostService
}

// NewBlogController creates a new BlogController instance.
func NewBlogController(posts *services.PostService) *BlogController {
	return &BlogController{posts: posts}
}

// PostList shows published posts, oldest first.
func (b *BlogController) PostList(ctx *gin.Context) {
	posts, err := b.posts.ListPublished(ctx.Request.Context(), services.OldestFirst)
	if err != nil {
		serverErrorPage(ctx, "list posts failed", err)
		return
	}
	render(ctx, http.StatusOK, "post_list.html", gin.H{"posts": posts})
}

// PostDetail shows a single post by id, published or not.
func (b *BlogController) PostDetail(ctx *gin.Context) {
	id, ok := parseID(ctx, "pk")
	if !ok {
		NotFoundPage(ctx)
		return
	}
	post, err := b.posts.Get(ctx.Request.Context(), id)
	if errors.Is(err, services.ErrNotFound) {
		NotFoundPage(ctx)
		return
	}
	if err != nil {
		serverErrorPage(ctx, "load post failed", err)
		return
	}
	render(ctx, http.StatusOK, "post_detail.html", gin.H{"post": post, "title": post.Title})
}

// PostNew shows the empty form and creates a post on submission.
func (b *BlogController) PostNew(ctx *gin.Context) {
	form := forms.NewPostForm(nil)
	if ctx.Request.Method != http.MethodPost {
		render(ctx, http.StatusOK, "post_edit.html", gin.H{"form": form, "title": "New post"})
		return
	}

	if !b.bind(ctx, form) {
		render(ctx, http.StatusOK, "post_edit.html", gin.H{"form": form, "title": "New post"})
		return
	}
	post, err := b.posts.CreateFromForm(ctx.Request.Context(), middleware.CurrentRequester(ctx), form)
	if err != nil {
		serverErrorPage(ctx, "create post failed", err)
		return
	}
	utils.Logger.Info("post created", zap.Uint("post_id", post.ID), zap.Uint("author_id", post.AuthorID))
	ctx.Redirect(http.StatusFound, fmt.Sprintf("/post/%d/", post.ID))
}

// PostEdit shows the prefilled form for a post and saves it on submission.
func (b *BlogController) PostEdit(ctx *gin.Context) {
	id, ok := parseID(ctx, "pk")
	if !ok {
		NotFoundPage(ctx)
		return
	}
	post, err := b.posts.Get(ctx.Request.Context(), id)
	if errors.Is(err, services.ErrNotFound) {
		NotFoundPage(ctx)
		return
	}
	if err != nil {
		serverErrorPage(ctx, "load post failed", err)
		return
	}

	form := forms.NewPostForm(post)
	if ctx.Request.Method != http.MethodPost {
		render(ctx, http.StatusOK, "post_edit.html", gin.H{"form": form, "post": post, "title": "Edit post"})
		return
	}

	if !b.bind(ctx, form) {
		render(ctx, http.StatusOK, "post_edit.html", gin.H{"form": form, "post": post, "title": "Edit post"})
		return
	}
	post, err = b.posts.UpdateFromForm(ctx.Request.Context(), middleware.CurrentRequester(ctx), id, form)
	if errors.Is(err, services.ErrNotFound) {
		NotFoundPage(ctx)
		return
	}
	if err != nil {
		serverErrorPage(ctx, "update post failed", err)
		return
	}
	utils.Logger.Info("post updated", zap.Uint("post_id", post.ID), zap.Uint("author_id", post.AuthorID))
	ctx.Redirect(http.StatusFound, fmt.Sprintf("/post/%d/", post.ID))
}

func (b *BlogController) bind(ctx *gin.Context, form *forms.PostForm) bool {
	values, files, err := readForm(ctx)
	if err != nil {
		form.Errors.Add("__all__", "The submitted form could not be read.")
		return false
	}
	return form.Bind(values, files, b.posts.Store())
}
