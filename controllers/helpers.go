package controllers

import (
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/photoblog/middleware"
	"github.com/cppla/photoblog/utils"
)

// render executes an HTML template with the requester always available as "user".
func render(ctx *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["user"] = middleware.CurrentRequester(ctx)
	ctx.HTML(status, name, data)
}

// NotFoundPage renders the 404 page.
func NotFoundPage(ctx *gin.Context) {
	render(ctx, http.StatusNotFound, "404.html", gin.H{"title": "Not Found"})
}

func serverErrorPage(ctx *gin.Context, msg string, err error) {
	utils.Logger.Error(msg, zap.Error(err), zap.String("path", ctx.Request.URL.Path))
	render(ctx, http.StatusInternalServerError, "500.html", gin.H{"title": "Server Error"})
}

// parseID reads a positive numeric route parameter.
func parseID(ctx *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// readForm parses a urlencoded or multipart body.
func readForm(ctx *gin.Context) (url.Values, map[string][]*multipart.FileHeader, error) {
	if ctx.ContentType() == gin.MIMEMultipartPOSTForm {
		form, err := ctx.MultipartForm()
		if err != nil {
			return nil, nil, err
		}
		return url.Values(form.Value), form.File, nil
	}
	if err := ctx.Request.ParseForm(); err != nil {
		return nil, nil, err
	}
	return ctx.Request.PostForm, nil, nil
}

// requestScheme honours X-Forwarded-Proto from a reverse proxy.
func requestScheme(ctx *gin.Context) string {
	if proto := ctx.GetHeader("X-Forwarded-Proto"); proto != "" {
		return strings.ToLower(strings.TrimSpace(strings.Split(proto, ",")[0]))
	}
	if ctx.Request.TLS != nil {
		return "https"
	}
	return "http"
}

// safeNext returns target when it is a local path, otherwise fallback.
func safeNext(target, fallback string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return fallback
	}
	u, err := url.Parse(target)
	if err != nil || u.Host != "" || u.Scheme != "" {
		return fallback
	}
	return target
}
