package middleware

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/photoblog/services"
	"github.com/cppla/photoblog/utils"
)

const (
	// ContextUserIDKey is the key used to store authenticated user ID in Gin context.
	ContextUserIDKey = "user_id"
	// ContextUsernameKey stores the username inside Gin context.
	ContextUsernameKey = "username"
	// ContextTokenKey stores the raw token the request authenticated with.
	ContextTokenKey = "auth_token"
	// ContextTokenExpiryKey stores the token's expiry as time.Time.
	ContextTokenExpiryKey = "auth_token_expiry"

	// AuthCookieName holds the JWT for browser sessions.
	AuthCookieName = "photoblog_token"
	// LoginPath is where LoginRequired sends anonymous visitors.
	LoginPath = "/accounts/login/"
)

// Authenticator resolves request identity from a JWT.
type Authenticator struct {
	secret    string
	blacklist *utils.TokenBlacklist
}

// NewAuthenticator creates an Authenticator. blacklist may be nil.
func NewAuthenticator(secret string, blacklist *utils.TokenBlacklist) *Authenticator {
	return &Authenticator{secret: secret, blacklist: blacklist}
}

// OptionalAuth attaches the requester's identity when a valid token is sent in
// the Authorization header or the auth cookie. Missing, invalid or revoked
// tokens leave the request anonymous.
func (a *Authenticator) OptionalAuth() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		tokenString := tokenFromRequest(ctx)
		if tokenString == "" {
			ctx.Next()
			return
		}
		if a.blacklist != nil && a.blacklist.Contains(ctx.Request.Context(), tokenString) {
			ctx.Next()
			return
		}
		claims, err := utils.ParseToken(a.secret, tokenString)
		if err != nil {
			ctx.Next()
			return
		}

		ctx.Set(ContextUserIDKey, claims.UserID)
		ctx.Set(ContextUsernameKey, claims.Username)
		ctx.Set(ContextTokenKey, tokenString)
		ctx.Set(ContextTokenExpiryKey, claims.ExpiresAtOrDefault())
		ctx.Next()
	}
}

// AuthRequired rejects anonymous API requests. It must run after OptionalAuth.
func AuthRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !CurrentRequester(ctx).Authenticated() {
			utils.Error(ctx, http.StatusUnauthorized, 40101, "authentication credentials were not provided")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

// LoginRequired redirects anonymous browser requests to the login page with a
// next parameter pointing back at the original URL.
func LoginRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !CurrentRequester(ctx).Authenticated() {
			ctx.Redirect(http.StatusFound, LoginPath+"?next="+url.QueryEscape(ctx.Request.URL.RequestURI()))
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

// CurrentRequester returns the identity OptionalAuth attached, or an anonymous requester.
func CurrentRequester(ctx *gin.Context) services.Requester {
	var req services.Requester
	if v, ok := ctx.Get(ContextUserIDKey); ok {
		if id, ok := v.(uint); ok {
			req.UserID = id
		}
	}
	req.Username = ctx.GetString(ContextUsernameKey)
	return req
}

// CurrentToken returns the token the request authenticated with and its expiry.
func CurrentToken(ctx *gin.Context) (string, time.Time, bool) {
	token := ctx.GetString(ContextTokenKey)
	if token == "" {
		return "", time.Time{}, false
	}
	return token, ctx.GetTime(ContextTokenExpiryKey), true
}

func tokenFromRequest(ctx *gin.Context) string {
	if authHeader := ctx.GetHeader("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if cookie, err := ctx.Cookie(AuthCookieName); err == nil {
		return strings.TrimSpace(cookie)
	}
	return ""
}
