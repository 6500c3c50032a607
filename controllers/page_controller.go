package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"goblog/models"
	"goblog/utils"
)

// PageController serves the static pages and the stats endpoint.
type PageController struct {
	db *gorm.DB
}

// NewPageController creates a PageController.
func NewPageController(db *gorm.DB) *PageController {
	return &PageController{db: db}
}

// About renders the about page.
func (p *PageController) About(ctx *gin.Context) {
	render(ctx, http.StatusOK, "about.html", nil)
}

// Contact renders the contact page.
func (p *PageController) Contact(ctx *gin.Context) {
	render(ctx, http.StatusOK, "contact.html", nil)
}

// Stats returns aggregate counts as JSON.
func (p *PageController) Stats(ctx *gin.Context) {
	var users, posts, comments, pageViews int64
	if err := p.db.Model(&models.User{}).Count(&users).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50000, "failed to count users")
		return
	}
	if err := p.db.Model(&models.Post{}).Count(&posts).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to count posts")
		return
	}
	if err := p.db.Model(&models.Comment{}).Count(&comments).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50002, "failed to count comments")
		return
	}
	p.db.Model(&models.PageView{}).Select("COALESCE(SUM(count), 0)").Scan(&pageViews)

	utils.Success(ctx, gin.H{
		"users":      users,
		"posts":      posts,
		"comments":   comments,
		"page_views": pageViews,
	})
}
