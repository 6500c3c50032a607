package utils

import "github.com/gin-gonic/gin"

const flashCookieName = "flash"

// SetFlash stores a one-shot notice shown on the next rendered page.
// The cookie survives one redirect and is cleared when read. Gin url-encodes
// cookie values, so arbitrary message text is safe here.
func SetFlash(ctx *gin.Context, message string) {
	ctx.SetCookie(flashCookieName, message, 60, "/", "", false, true)
}

// PopFlash returns the pending flash notice, if any, and clears it.
func PopFlash(ctx *gin.Context) string {
	msg, err := ctx.Cookie(flashCookieName)
	if err != nil || msg == "" {
		return ""
	}
	ctx.SetCookie(flashCookieName, "", -1, "/", "", false, true)
	return msg
}
