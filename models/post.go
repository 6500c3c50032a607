package models

import "time"

// Post represents a blog entry. Date is the human-readable publication date
// fixed at creation time ("January 02, 2006") and never changed by edits.
type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	AuthorID  uint      `gorm:"index;not null" json:"author_id"`
	Title     string    `gorm:"size:255;uniqueIndex;not null" json:"title"`
	Subtitle  string    `gorm:"size:255" json:"subtitle"`
	Date      string    `gorm:"size:64;not null" json:"date"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	ImageURL  string    `gorm:"size:512" json:"image_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Author    User      `gorm:"foreignKey:AuthorID" json:"author"`
	Comments  []Comment `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"comments"`
}
