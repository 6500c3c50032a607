package controllers

import (
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"goblog/middleware"
	"goblog/models"
	"goblog/utils"
)

// postDateLayout is the long-form publication date shown on posts.
const postDateLayout = "January 02, 2006"

// PostController manages listing, reading, writing and deleting posts, plus
// comment submission.
type PostController struct {
	db *gorm.DB
}

// NewPostController creates a new PostController instance.
func NewPostController(db *gorm.DB) *PostController {
	return &PostController{db: db}
}

// Index renders the listing page with all posts, newest first.
func (p *PostController) Index(ctx *gin.Context) {
	var posts []models.Post
	if err := p.db.Preload("Author").Order("created_at DESC").Find(&posts).Error; err != nil {
		utils.Sugar.Errorf("list posts: %v", err)
		ctx.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}
	render(ctx, http.StatusOK, "index.html", gin.H{"Posts": posts})
}

// Show renders a single post with its comments. An unknown id gets a
// deterministic 404 page.
func (p *PostController) Show(ctx *gin.Context) {
	post, ok := p.loadPost(ctx)
	if !ok {
		return
	}
	p.renderPost(ctx, http.StatusOK, post, "")
}

// AddComment stores a comment from the current user on the post and redirects
// back to the detail page. Anonymous visitors are redirected to login with a
// notice and no record is created.
func (p *PostController) AddComment(ctx *gin.Context) {
	post, ok := p.loadPost(ctx)
	if !ok {
		return
	}

	user, authed := middleware.CurrentUser(ctx)
	if !authed {
		utils.SetFlash(ctx, "You need to login or register to comment.")
		ctx.Redirect(http.StatusSeeOther, "/login")
		return
	}

	text := utils.Sanitize(strings.TrimSpace(ctx.PostForm("text")))
	if text == "" {
		p.renderPost(ctx, http.StatusBadRequest, post, "Comment text cannot be empty.")
		return
	}

	comment := models.Comment{
		PostID:   post.ID,
		AuthorID: user.ID,
		Text:     text,
	}
	if err := p.db.Create(&comment).Error; err != nil {
		utils.Sugar.Errorf("create comment: %v", err)
		ctx.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}

	ctx.Redirect(http.StatusSeeOther, "/post/"+strconv.Itoa(int(post.ID)))
}

// New renders the empty post form. Admin only.
func (p *PostController) New(ctx *gin.Context) {
	render(ctx, http.StatusOK, "make-post.html", gin.H{"Action": "/new-post"})
}

// Create builds a post authored by the current user with today's date and
// redirects to the listing. A duplicate title leaves the store unchanged and
// sends the form back with a conflict notice, the same shape as the
// duplicate-email path on registration.
func (p *PostController) Create(ctx *gin.Context) {
	form, ok := p.bindPostForm(ctx, "/new-post", nil)
	if !ok {
		return
	}

	user, _ := middleware.CurrentUser(ctx)
	post := models.Post{
		AuthorID: user.ID,
		Title:    form.Title,
		Subtitle: form.Subtitle,
		Date:     time.Now().Format(postDateLayout),
		Body:     form.Body,
		ImageURL: form.ImageURL,
	}
	if err := p.db.Create(&post).Error; err != nil {
		if isDuplicateKeyError(err) {
			utils.SetFlash(ctx, "A post with that title already exists.")
			ctx.Redirect(http.StatusSeeOther, "/new-post")
			return
		}
		utils.Sugar.Errorf("create post: %v", err)
		ctx.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}

	ctx.Redirect(http.StatusSeeOther, "/")
}

// Edit renders the post form pre-filled from the existing post, including the
// author selector. Admin only.
func (p *PostController) Edit(ctx *gin.Context) {
	post, ok := p.loadPost(ctx)
	if !ok {
		return
	}
	p.renderPostForm(ctx, http.StatusOK, "/edit-post/"+strconv.Itoa(int(post.ID)), post, "")
}

// Update overwrites title, subtitle, image URL, author and body of the post.
// The publication date is never changed by an edit. The author field is
// deliberately writable here (ownership reassignment, pending product review);
// the target user must exist.
func (p *PostController) Update(ctx *gin.Context) {
	post, ok := p.loadPost(ctx)
	if !ok {
		return
	}
	action := "/edit-post/" + strconv.Itoa(int(post.ID))

	form, ok := p.bindPostForm(ctx, action, post)
	if !ok {
		return
	}

	var author models.User
	if err := p.db.First(&author, form.AuthorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			p.renderPostForm(ctx, http.StatusBadRequest, action, post, "The selected author does not exist.")
			return
		}
		ctx.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}

	post.Title = form.Title
	post.Subtitle = form.Subtitle
	post.ImageURL = form.ImageURL
	// Assign the association too, or Save would restore the preloaded
	// author's id over the reassignment.
	post.AuthorID = author.ID
	post.Author = author
	post.Body = form.Body
	if err := p.db.Save(post).Error; err != nil {
		if isDuplicateKeyError(err) {
			utils.SetFlash(ctx, "A post with that title already exists.")
			ctx.Redirect(http.StatusSeeOther, action)
			return
		}
		utils.Sugar.Errorf("update post: %v", err)
		ctx.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}

	ctx.Redirect(http.StatusSeeOther, "/post/"+strconv.Itoa(int(post.ID)))
}

// Delete removes the post together with all of its comments, in one
// transaction, then redirects to the listing. Admin only.
func (p *PostController) Delete(ctx *gin.Context) {
	post, ok := p.loadPost(ctx)
	if !ok {
		return
	}

	err := p.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(post).Error
	})
	if err != nil {
		utils.Sugar.Errorf("delete post %d: %v", post.ID, err)
		ctx.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}

	ctx.Redirect(http.StatusSeeOther, "/")
}

// postForm is the shared create/edit form payload.
type postForm struct {
	Title    string `form:"title" binding:"required"`
	Subtitle string `form:"subtitle"`
	Body     string `form:"body" binding:"required"`
	ImageURL string `form:"image_url"`
	AuthorID uint   `form:"author_id"`
}

// bindPostForm validates and sanitizes the submitted form. On validation
// failure it re-renders the form (no mutation) and returns ok=false.
func (p *PostController) bindPostForm(ctx *gin.Context, action string, post *models.Post) (*postForm, bool) {
	var form postForm
	if err := ctx.ShouldBind(&form); err != nil {
		p.renderPostForm(ctx, http.StatusBadRequest, action, post, "Title and body are required.")
		return nil, false
	}
	form.Title = strings.TrimSpace(utils.Sanitize(form.Title))
	form.Body = utils.Sanitize(form.Body)
	if form.Title == "" || form.Body == "" {
		p.renderPostForm(ctx, http.StatusBadRequest, action, post, "Title and body are required.")
		return nil, false
	}
	return &form, true
}

// loadPost resolves the :id route parameter to a post, rendering a 404 page
// and returning ok=false when the id does not exist.
func (p *PostController) loadPost(ctx *gin.Context) (*models.Post, bool) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil || id <= 0 {
		renderNotFound(ctx)
		return nil, false
	}
	var post models.Post
	if err := p.db.Preload("Author").First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			renderNotFound(ctx)
			return nil, false
		}
		utils.Sugar.Errorf("load post %d: %v", id, err)
		ctx.String(http.StatusInternalServerError, "Internal Server Error")
		return nil, false
	}
	return &post, true
}

// commentView carries a comment to the template with its already-sanitized
// text marked render-safe.
type commentView struct {
	Text   template.HTML
	Author string
}

func (p *PostController) renderPost(ctx *gin.Context, status int, post *models.Post, formError string) {
	var comments []models.Comment
	if err := p.db.Where("post_id = ?", post.ID).Preload("Author").Order("created_at ASC").Find(&comments).Error; err != nil {
		utils.Sugar.Errorf("load comments for post %d: %v", post.ID, err)
		ctx.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}
	views := make([]commentView, 0, len(comments))
	for _, c := range comments {
		views = append(views, commentView{Text: template.HTML(c.Text), Author: c.Author.Name})
	}
	render(ctx, status, "post.html", gin.H{
		"Post":     post,
		"Body":     template.HTML(post.Body), // sanitized at write time
		"Comments": views,
		"Error":    formError,
	})
}

func (p *PostController) renderPostForm(ctx *gin.Context, status int, action string, post *models.Post, formError string) {
	var users []models.User
	if err := p.db.Order("id ASC").Find(&users).Error; err != nil {
		utils.Sugar.Errorf("list users for post form: %v", err)
	}
	render(ctx, status, "make-post.html", gin.H{
		"Action": action,
		"Post":   post,
		"Users":  users,
		"Error":  formError,
	})
}
