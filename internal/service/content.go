package service

import (
	"BPIApi/cmd/db"
	"BPIApi/internal/models"
	"BPIApi/pkg/logger"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
)

var slugSanitizer = regexp.MustCompile(`[^a-z0-9]+`)

// slugify turns a title into a lower-case, dash separated slug.
func slugify(title string) string {
	return strings.Trim(slugSanitizer.ReplaceAllString(strings.ToLower(title), "-"), "-")
}

func GetBlogPosts(c *gin.Context) {
	page, pageSize := pagination(c)
	posts, err := models.ListPublishedPosts(nil, c.Query("category"), page, pageSize)
	if err != nil {
		logger.Error("%v", err)
		c.Status(500)
		return
	}
	c.JSON(200, posts)
}

func GetBlogPost(c *gin.Context) {
	var post models.BlogPost
	if err := db.DB.Where("slug = ? AND published = ?", c.Param("slug"), true).
		First(&post).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(200, post)
}

func GetHelpArticles(c *gin.Context) {
	articles, err := models.ListPublishedHelpArticles(nil, c.Query("category"))
	if err != nil {
		logger.Error("%v", err)
		c.Status(500)
		return
	}
	c.JSON(200, articles)
}

func GetHelpArticle(c *gin.Context) {
	var article models.HelpArticle
	if err := db.DB.Where("slug = ? AND published = ?", c.Param("slug"), true).
		First(&article).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(200, article)
}

type blogPostInput struct {
	Title     string `json:"title" validate:"required,max=200"`
	Slug      string `json:"slug" validate:"omitempty,max=160"`
	Excerpt   string `json:"excerpt" validate:"max=500"`
	Body      string `json:"body" validate:"required"`
	Category  string `json:"category" validate:"max=64"`
	CoverURL  string `json:"cover_url" validate:"omitempty,url"`
	Published bool   `json:"published"`
}

func (i *blogPostInput) apply(p *models.BlogPost) {
	p.Title = i.Title
	p.Slug = slugify(i.Slug)
	if p.Slug == "" {
		p.Slug = slugify(i.Title)
	}
	p.Excerpt = i.Excerpt
	p.Body = i.Body
	p.Category = i.Category
	p.CoverURL = i.CoverURL
	p.Published = i.Published
}

func AdminCreateBlogPost(c *gin.Context) {
	authorID, ok := currentUserID(c)
	if !ok {
		return
	}

	var input blogPostInput
	if !bindJSON(c, &input) {
		return
	}

	post := models.BlogPost{AuthorID: authorID}
	input.apply(&post)
	if err := db.DB.Create(&post).Error; err != nil {
		logger.Error("%v", err)
		c.JSON(409, gin.H{"error": "Unable to create post, slug may already exist"})
		return
	}
	c.JSON(201, post)
}

func AdminUpdateBlogPost(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var input blogPostInput
	if !bindJSON(c, &input) {
		return
	}

	var post models.BlogPost
	if err := db.DB.First(&post, id).Error; err != nil {
		respondError(c, err)
		return
	}

	input.apply(&post)
	if err := db.DB.Save(&post).Error; err != nil {
		logger.Error("%v", err)
		c.Status(500)
		return
	}
	c.JSON(200, post)
}

func AdminDeleteBlogPost(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := db.DB.Delete(&models.BlogPost{}, id).Error; err != nil {
		logger.Error("%v", err)
		c.Status(500)
		return
	}
	c.Status(204)
}

type helpArticleInput struct {
	Title     string `json:"title" validate:"required,max=200"`
	Slug      string `json:"slug" validate:"omitempty,max=160"`
	Body      string `json:"body" validate:"required"`
	Category  string `json:"category" validate:"max=64"`
	SortOrder int    `json:"sort_order"`
	Published bool   `json:"published"`
}

func (i *helpArticleInput) apply(a *models.HelpArticle) {
	a.Title = i.Title
	a.Slug = slugify(i.Slug)
	if a.Slug == "" {
		a.Slug = slugify(i.Title)
	}
	a.Body = i.Body
	a.Category = i.Category
	a.SortOrder = i.SortOrder
	a.Published = i.Published
}

func AdminCreateHelpArticle(c *gin.Context) {
	var input helpArticleInput
	if !bindJSON(c, &input) {
		return
	}

	var article models.HelpArticle
	input.apply(&article)
	if err := db.DB.Create(&article).Error; err != nil {
		logger.Error("%v", err)
		c.JSON(409, gin.H{"error": "Unable to create article, slug may already exist"})
		return
	}
	c.JSON(201, article)
}

func AdminUpdateHelpArticle(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var input helpArticleInput
	if !bindJSON(c, &input) {
		return
	}

	var article models.HelpArticle
	if err := db.DB.First(&article, id).Error; err != nil {
		respondError(c, err)
		return
	}

	input.apply(&article)
	if err := db.DB.Save(&article).Error; err != nil {
		logger.Error("%v", err)
		c.Status(500)
		return
	}
	c.JSON(200, article)
}

func AdminDeleteHelpArticle(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := db.DB.Delete(&models.HelpArticle{}, id).Error; err != nil {
		logger.Error("%v", err)
		c.Status(500)
		return
	}
	c.Status(204)
}
