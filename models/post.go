package models

import "time"

// Post is a photo-blog entry. It is visible in listings once PublishedDate is set and not in the future.
type Post struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	AuthorID      uint       `gorm:"index;not null" json:"author"`
	Title         string     `gorm:"size:200;not null" json:"title"`
	Text          string     `gorm:"type:text;not null" json:"text"`
	Image         string     `gorm:"size:255" json:"image"` // path relative to the media root
	CreatedDate   time.Time  `gorm:"not null" json:"created_date"`
	PublishedDate *time.Time `gorm:"index" json:"published_date"`
	UpdatedAt     time.Time  `json:"-"`
	Author        User       `gorm:"foreignKey:AuthorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}

// IsPublished reports whether the post is visible at the given instant.
func (p *Post) IsPublished(now time.Time) bool {
	return p.PublishedDate != nil && !p.PublishedDate.After(now)
}
