package draft

import (
	"strings"

	"rankwell/derive"
	"rankwell/models"
)

type PostTouched struct {
	Slug    bool `json:"slug"`
	Excerpt bool `json:"excerpt"`
	// ReadTime is set only while the current read time was typed by the author
	// after the last content change.
	ReadTime bool `json:"readTime"`
}

// PostDraft is the in-progress state of the blog post wizard.
type PostDraft struct {
	ID               string      `json:"id,omitempty"`
	Title            string      `json:"title"`
	Slug             string      `json:"slug"`
	Category         string      `json:"category"`
	Content          string      `json:"content"`
	Excerpt          string      `json:"excerpt"`
	FeaturedImageURL string      `json:"featuredImageUrl"`
	FeaturedImageAlt string      `json:"featuredImageAlt"`
	HasImagePreview  bool        `json:"hasImagePreview"`
	MetaDescription  string      `json:"metaDescription"`
	Tags             []string    `json:"tags"`
	ReadTime         int         `json:"readTime"`
	IsFeatured       bool        `json:"isFeatured"`
	Published        bool        `json:"published"`
	Touched          PostTouched `json:"touched"`
}

type PostPatch struct {
	Title            *string   `json:"title"`
	Slug             *string   `json:"slug"`
	Category         *string   `json:"category"`
	Content          *string   `json:"content"`
	Excerpt          *string   `json:"excerpt"`
	GenerateExcerpt  bool      `json:"generateExcerpt"`
	FeaturedImageURL *string   `json:"featuredImageUrl"`
	FeaturedImageAlt *string   `json:"featuredImageAlt"`
	HasImagePreview  *bool     `json:"hasImagePreview"`
	RemoveImage      bool      `json:"removeImage"`
	MetaDescription  *string   `json:"metaDescription"`
	Tags             *[]string `json:"tags"`
	AddTag           *string   `json:"addTag"`
	RemoveTag        *string   `json:"removeTag"`
	ReadTime         *int      `json:"readTime"`
	IsFeatured       *bool     `json:"isFeatured"`
	Published        *bool     `json:"published"`
}

func NewPostDraft() *PostDraft {
	return &PostDraft{Tags: []string{}, ReadTime: derive.ReadTime("")}
}

func (d *PostDraft) SetTitle(title string) {
	d.Title = title
	if !d.Touched.Slug {
		d.Slug = derive.Slugify(title)
	}
}

func (d *PostDraft) SetSlug(slug string) {
	d.Slug = slug
	if slug != derive.Slugify(d.Title) {
		d.Touched.Slug = true
	}
}

// SetContent recomputes the read time; an override typed earlier is dropped.
func (d *PostDraft) SetContent(content string) {
	d.Content = content
	d.ReadTime = derive.ReadTime(content)
	d.Touched.ReadTime = false
}

func (d *PostDraft) SetReadTime(minutes int) {
	if minutes < 1 {
		minutes = 1
	}
	d.ReadTime = minutes
	d.Touched.ReadTime = minutes != derive.ReadTime(d.Content)
}

func (d *PostDraft) SetExcerpt(excerpt string) {
	d.Excerpt = excerpt
	d.Touched.Excerpt = excerpt != ""
}

// GenerateExcerpt fills the excerpt from the content on request.
func (d *PostDraft) GenerateExcerpt() {
	d.SetExcerpt(derive.Excerpt(d.Content))
}

func (d *PostDraft) AddTag(tag string) bool {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return false
	}
	for _, t := range d.Tags {
		if t == tag {
			return false
		}
	}
	d.Tags = append(d.Tags, tag)
	return true
}

func (d *PostDraft) RemoveTag(tag string) {
	kept := d.Tags[:0]
	for _, t := range d.Tags {
		if t != tag {
			kept = append(kept, t)
		}
	}
	d.Tags = kept
}

func (d *PostDraft) RemoveImage() {
	d.FeaturedImageURL = ""
	d.FeaturedImageAlt = ""
	d.HasImagePreview = false
}

func (d *PostDraft) HasImage() bool {
	return d.FeaturedImageURL != "" || d.HasImagePreview
}

// Apply runs a patch through the setters. Content is applied before an explicit
// read time so that an override in the same edit wins over the recomputation.
func (d *PostDraft) Apply(p PostPatch) {
	if p.RemoveImage {
		d.RemoveImage()
	}
	if p.Title != nil {
		d.SetTitle(*p.Title)
	}
	if p.Slug != nil {
		d.SetSlug(*p.Slug)
	}
	setString(&d.Category, p.Category)
	if p.Content != nil {
		d.SetContent(*p.Content)
	}
	if p.ReadTime != nil {
		d.SetReadTime(*p.ReadTime)
	}
	if p.Excerpt != nil {
		d.SetExcerpt(*p.Excerpt)
	}
	if p.GenerateExcerpt {
		d.GenerateExcerpt()
	}
	setString(&d.FeaturedImageURL, p.FeaturedImageURL)
	setString(&d.FeaturedImageAlt, p.FeaturedImageAlt)
	setString(&d.MetaDescription, p.MetaDescription)
	if p.HasImagePreview != nil {
		d.HasImagePreview = *p.HasImagePreview
	}
	if p.Tags != nil {
		d.Tags = []string{}
		for _, t := range *p.Tags {
			d.AddTag(t)
		}
	}
	if p.AddTag != nil {
		d.AddTag(*p.AddTag)
	}
	if p.RemoveTag != nil {
		d.RemoveTag(*p.RemoveTag)
	}
	if p.IsFeatured != nil {
		d.IsFeatured = *p.IsFeatured
	}
	if p.Published != nil {
		d.Published = *p.Published
	}
}

func PostDraftFrom(p *models.BlogPost) *PostDraft {
	tags := append([]string{}, p.Tags...)
	return &PostDraft{
		ID:               p.ID,
		Title:            p.Title,
		Slug:             p.Slug,
		Category:         p.Category,
		Content:          p.Content,
		Excerpt:          p.Excerpt,
		FeaturedImageURL: p.FeaturedImageURL,
		FeaturedImageAlt: p.FeaturedImageAlt,
		MetaDescription:  p.MetaDescription,
		Tags:             tags,
		ReadTime:         p.ReadTime,
		IsFeatured:       p.IsFeatured,
		Published:        p.Published,
		Touched: PostTouched{
			Slug:     true,
			Excerpt:  p.Excerpt != "",
			ReadTime: p.ReadTime != derive.ReadTime(p.Content),
		},
	}
}
