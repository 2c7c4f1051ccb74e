package models

import (
	"BPIApi/cmd/db"
	"BPIApi/pkg/logger"
	"time"

	"gorm.io/gorm"
)

type BlogPost struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Slug      string    `gorm:"uniqueIndex;size:160;not null" json:"slug"`
	Title     string    `gorm:"not null" json:"title"`
	Excerpt   string    `json:"excerpt"`
	Body      string    `gorm:"type:text" json:"body"`
	Category  string    `gorm:"size:64;index" json:"category"`
	CoverURL  string    `json:"cover_url"`
	Published bool      `gorm:"index" json:"published"`
	AuthorID  int64     `json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type HelpArticle struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Slug      string    `gorm:"uniqueIndex;size:160;not null" json:"slug"`
	Title     string    `gorm:"not null" json:"title"`
	Body      string    `gorm:"type:text" json:"body"`
	Category  string    `gorm:"size:64;index" json:"category"`
	SortOrder int       `json:"sort_order"`
	Published bool      `gorm:"index" json:"published"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func ListPublishedPosts(tx *gorm.DB, category string, page, pageSize int) ([]BlogPost, error) {
	if tx == nil {
		tx = db.DB
	}

	query := tx.Where("published = ?", true)
	if category != "" {
		query = query.Where("category = ?", category)
	}

	var posts []BlogPost
	err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&posts).Error
	if err != nil {
		return nil, logger.WrapError(err, "")
	}

	return posts, nil
}

func ListPublishedHelpArticles(tx *gorm.DB, category string) ([]HelpArticle, error) {
	if tx == nil {
		tx = db.DB
	}

	query := tx.Where("published = ?", true)
	if category != "" {
		query = query.Where("category = ?", category)
	}

	var articles []HelpArticle
	if err := query.Order("category, sort_order, id").Find(&articles).Error; err != nil {
		return nil, logger.WrapError(err, "")
	}

	return articles, nil
}
