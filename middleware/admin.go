package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"goblog/models"
)

// adminUserID is the id of the first-ever registered account, the sole
// administrator. This is deliberately an id-equality check, not a role flag.
const adminUserID = 1

// IsAdmin reports whether the user is the administrator account.
func IsAdmin(u *models.User) bool {
	return u != nil && u.ID == adminUserID
}

// AdminOnly permits the request only when the current identity is
// authenticated and is the administrator. Denial renders a 403 page with no
// redirect and no side effects.
func AdminOnly() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		user, ok := CurrentUser(ctx)
		if !ok || !IsAdmin(user) {
			ctx.HTML(http.StatusForbidden, "403.html", gin.H{})
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}
