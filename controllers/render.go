package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"goblog/middleware"
	"goblog/utils"
)

// render writes an HTML page, injecting the shared view state every template
// expects: the current user (if any) and a pending flash notice.
func render(ctx *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	if user, ok := middleware.CurrentUser(ctx); ok {
		data["User"] = user
		data["IsAdmin"] = middleware.IsAdmin(user)
	}
	if msg := utils.PopFlash(ctx); msg != "" {
		data["Flash"] = msg
	}
	ctx.HTML(status, name, data)
}

func renderNotFound(ctx *gin.Context) {
	render(ctx, http.StatusNotFound, "404.html", nil)
}

// isDuplicateKeyError recognizes unique-index violations across drivers.
// GORM's TranslateError covers most cases; the string checks catch drivers
// that do not implement the translator.
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "Duplicate entry")
}
