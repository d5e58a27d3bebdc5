package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/photoblog/middleware"
	"github.com/cppla/photoblog/models"
	"github.com/cppla/photoblog/services"
	"github.com/cppla/photoblog/utils"
)

// AuthController issues and revokes JWTs for the API and for browser sessions.
type AuthController struct {
	users        *services.UserService
	blacklist    *utils.TokenBlacklist
	secret       string
	secureCookie bool
}

// NewAuthController creates a new AuthController instance.
func NewAuthController(users *services.UserService, blacklist *utils.TokenBlacklist, secret string, secureCookie bool) *AuthController {
	return &AuthController{users: users, blacklist: blacklist, secret: secret, secureCookie: secureCookie}
}

// Token exchanges a username and password for a JWT.
func (a *AuthController) Token(ctx *gin.Context) {
	type request struct {
		Username string `json:"username" form:"username" binding:"required"`
		Password string `json:"password" form:"password" binding:"required"`
	}

	var req request
	if err := ctx.ShouldBind(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}

	user, err := a.users.Authenticate(ctx.Request.Context(), req.Username, req.Password)
	if errors.Is(err, services.ErrInvalidCredentials) {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid username or password")
		return
	}
	if err != nil {
		utils.Logger.Error("authenticate failed", zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to authenticate")
		return
	}

	token, err := utils.GenerateToken(a.secret, user.ID, user.Username, utils.TokenTTL)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}

	utils.Success(ctx, gin.H{
		"token":      token,
		"expires_in": int(utils.TokenTTL.Seconds()),
		"user":       userResponse(*user),
	})
}

// Logout invalidates the token by blacklisting it until expiration.
func (a *AuthController) Logout(ctx *gin.Context) {
	token, expiresAt, ok := middleware.CurrentToken(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40107, "not logged in")
		return
	}
	a.blacklist.Add(ctx.Request.Context(), token, expiresAt)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Me returns the authenticated user.
func (a *AuthController) Me(ctx *gin.Context) {
	req := middleware.CurrentRequester(ctx)
	user, err := a.users.Get(ctx.Request.Context(), req.UserID)
	if errors.Is(err, services.ErrNotFound) {
		utils.Error(ctx, http.StatusNotFound, 40401, "user not found")
		return
	}
	if err != nil {
		utils.Logger.Error("load current user failed", zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50005, "failed to load user")
		return
	}
	utils.Success(ctx, gin.H{"user": userResponse(*user)})
}

// LoginPage shows the browser login form and sets the auth cookie on success.
func (a *AuthController) LoginPage(ctx *gin.Context) {
	next := safeNext(ctx.Query("next"), "/")
	if ctx.Request.Method != http.MethodPost {
		render(ctx, http.StatusOK, "login.html", gin.H{"next": next, "title": "Log in"})
		return
	}

	next = safeNext(ctx.PostForm("next"), "/")
	username := strings.TrimSpace(ctx.PostForm("username"))
	user, err := a.users.Authenticate(ctx.Request.Context(), username, ctx.PostForm("password"))
	if err != nil {
		if !errors.Is(err, services.ErrInvalidCredentials) {
			utils.Logger.Error("authenticate failed", zap.Error(err))
		}
		render(ctx, http.StatusOK, "login.html", gin.H{
			"next":     next,
			"username": username,
			"title":    "Log in",
			"error":    "Please enter a correct username and password.",
		})
		return
	}

	token, err := utils.GenerateToken(a.secret, user.ID, user.Username, utils.TokenTTL)
	if err != nil {
		serverErrorPage(ctx, "generate token failed", err)
		return
	}
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(middleware.AuthCookieName, token, int(utils.TokenTTL/time.Second), "/", "", a.secureCookie, true)
	ctx.Redirect(http.StatusFound, next)
}

// LogoutPage revokes the browser session and returns to the post list.
func (a *AuthController) LogoutPage(ctx *gin.Context) {
	if token, expiresAt, ok := middleware.CurrentToken(ctx); ok {
		a.blacklist.Add(ctx.Request.Context(), token, expiresAt)
	}
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(middleware.AuthCookieName, "", -1, "/", "", a.secureCookie, true)
	ctx.Redirect(http.StatusFound, "/")
}

func userResponse(user models.User) gin.H {
	return gin.H{
		"id":         user.ID,
		"username":   user.Username,
		"is_staff":   user.IsStaff,
		"created_at": user.CreatedAt,
	}
}
