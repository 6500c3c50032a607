package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"goblog/config"
	"goblog/middleware"
	"goblog/models"
	"goblog/utils"
)

// sessionTTL bounds how long a login survives without re-authenticating.
const sessionTTL = 72 * time.Hour

// AuthController handles registration, login and logout.
type AuthController struct {
	db *gorm.DB
}

// NewAuthController creates an AuthController.
func NewAuthController(db *gorm.DB) *AuthController {
	return &AuthController{db: db}
}

// ShowRegister renders the registration form.
func (a *AuthController) ShowRegister(ctx *gin.Context) {
	render(ctx, http.StatusOK, "register.html", gin.H{"Email": "", "Name": ""})
}

// Register creates an account from the submitted form, logs it in, and
// redirects to the listing page. An email that is already registered is sent
// to the login page with a notice instead; no new row is created.
func (a *AuthController) Register(ctx *gin.Context) {
	var req struct {
		Email    string `form:"email" binding:"required,email"`
		Password string `form:"password" binding:"required"`
		Name     string `form:"name" binding:"required"`
	}
	if err := ctx.ShouldBind(&req); err != nil {
		render(ctx, http.StatusBadRequest, "register.html", gin.H{
			"Error": "Please fill in a valid email, a name, and a password.",
			"Email": ctx.PostForm("email"),
			"Name":  ctx.PostForm("name"),
		})
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	name := strings.TrimSpace(req.Name)

	ip := ctx.ClientIP()
	if utils.AuthIsBanned(ip) || !utils.RegistrationCooldownTry(ip) || !utils.RegistrationDailyLimitCheck(ip) {
		render(ctx, http.StatusTooManyRequests, "register.html", gin.H{
			"Error": "Too many attempts from your address, please try again later.",
			"Email": email,
			"Name":  name,
		})
		return
	}

	var existing models.User
	if err := a.db.Where("email = ?", email).First(&existing).Error; err == nil {
		utils.SetFlash(ctx, "You have already signed up with that email, log in instead!")
		ctx.Redirect(http.StatusSeeOther, "/login")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		ctx.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.Sugar.Errorf("hash password: %v", err)
		ctx.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}

	user := models.User{
		Email:        email,
		PasswordHash: hash,
		Name:         name,
	}
	if err := a.db.Create(&user).Error; err != nil {
		// Concurrent signup with the same email lost the race against the
		// unique index; treat it the same as the pre-check above.
		if isDuplicateKeyError(err) {
			utils.SetFlash(ctx, "You have already signed up with that email, log in instead!")
			ctx.Redirect(http.StatusSeeOther, "/login")
			return
		}
		utils.Sugar.Errorf("create user: %v", err)
		ctx.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}
	utils.RegistrationDailyIncrement(ip)

	if err := a.establishSession(ctx, &user); err != nil {
		ctx.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}
	ctx.Redirect(http.StatusSeeOther, "/")
}

// ShowLogin renders the login form.
func (a *AuthController) ShowLogin(ctx *gin.Context) {
	render(ctx, http.StatusOK, "login.html", gin.H{"Email": ""})
}

// Login verifies credentials and establishes a session. Unknown email and
// wrong password both answer with the same redirect-plus-notice shape so the
// status code never reveals which one failed.
func (a *AuthController) Login(ctx *gin.Context) {
	var req struct {
		Email    string `form:"email" binding:"required"`
		Password string `form:"password" binding:"required"`
	}
	if err := ctx.ShouldBind(&req); err != nil {
		render(ctx, http.StatusBadRequest, "login.html", gin.H{
			"Error": "Email and password are required.",
			"Email": ctx.PostForm("email"),
		})
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	ip := ctx.ClientIP()
	if utils.AuthIsBanned(ip) {
		render(ctx, http.StatusTooManyRequests, "login.html", gin.H{
			"Error": "Too many attempts from your address, please try again later.",
			"Email": email,
		})
		return
	}

	var user models.User
	if err := a.db.Where("email = ?", email).First(&user).Error; err != nil {
		a.recordLoginFailure(ip)
		utils.SetFlash(ctx, "Wrong email address, please try again.")
		ctx.Redirect(http.StatusSeeOther, "/login")
		return
	}

	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		a.recordLoginFailure(ip)
		utils.SetFlash(ctx, "Password incorrect, please try again.")
		ctx.Redirect(http.StatusSeeOther, "/login")
		return
	}

	if err := a.establishSession(ctx, &user); err != nil {
		ctx.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}
	ctx.Redirect(http.StatusSeeOther, "/")
}

// Logout revokes the session token, clears the cookie, and redirects to the
// listing page. Logging out while anonymous is a no-op that still redirects.
func (a *AuthController) Logout(ctx *gin.Context) {
	if token, err := ctx.Cookie(middleware.SessionCookieName); err == nil && token != "" {
		if claims, err := utils.ParseSessionToken(token); err == nil && claims.ExpiresAt != nil {
			utils.RevokeSessionToken(token, claims.ExpiresAt.Time)
		}
	}
	ctx.SetCookie(middleware.SessionCookieName, "", -1, "/", "", false, true)
	ctx.Redirect(http.StatusSeeOther, "/")
}

func (a *AuthController) establishSession(ctx *gin.Context, user *models.User) error {
	token, err := utils.NewSessionToken(user.ID, user.Name, sessionTTL)
	if err != nil {
		utils.Sugar.Errorf("issue session token: %v", err)
		return err
	}
	ctx.SetCookie(middleware.SessionCookieName, token, int(sessionTTL.Seconds()), "/", "", false, true)
	return nil
}

func (a *AuthController) recordLoginFailure(ip string) {
	fails := utils.LoginFailRecord(ip)
	if limit := config.Get().RegisterFailedMaxPerIPPerHour; limit > 0 && fails >= limit {
		utils.AuthBan(ip)
	}
}
