package middleware

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"goblog/models"
	"goblog/utils"
)

const (
	// SessionCookieName is the HttpOnly cookie carrying the signed session token.
	SessionCookieName = "blog_session"
	// ContextUserKey stores the resolved *models.User inside Gin context.
	ContextUserKey = "current_user"
)

// ResolveIdentity reads the session cookie, validates the signed token, and
// re-resolves the stored user id against the database on every request.
// Any failure along the way (missing cookie, bad signature, revoked token,
// user row gone) leaves the request anonymous rather than erroring.
func ResolveIdentity(db *gorm.DB) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token, err := ctx.Cookie(SessionCookieName)
		if err != nil || token == "" {
			ctx.Next()
			return
		}
		if utils.IsSessionRevoked(token) {
			ctx.Next()
			return
		}
		claims, err := utils.ParseSessionToken(token)
		if err != nil {
			ctx.Next()
			return
		}
		var user models.User
		if err := db.First(&user, claims.UserID).Error; err != nil {
			ctx.Next()
			return
		}
		ctx.Set(ContextUserKey, &user)
		ctx.Next()
	}
}

// CurrentUser returns the authenticated user for this request, if any.
func CurrentUser(ctx *gin.Context) (*models.User, bool) {
	v, ok := ctx.Get(ContextUserKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok
}
