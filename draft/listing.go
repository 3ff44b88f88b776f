package draft

import (
	"rankwell/derive"
	"rankwell/models"
)

// ListingTouched records which derived listing fields the author has taken over.
// Once a field is touched it is never re-derived for the life of the draft.
type ListingTouched struct {
	Slug            bool `json:"slug"`
	MetaTitle       bool `json:"metaTitle"`
	MetaDescription bool `json:"metaDescription"`
}

// ListingDraft is the in-progress state of the business listing wizard.
type ListingDraft struct {
	ID               string         `json:"id,omitempty"`
	Category         string         `json:"category"`
	Title            string         `json:"title"`
	Slug             string         `json:"slug"`
	Description      string         `json:"description"`
	Address          string         `json:"address"`
	City             string         `json:"city"`
	State            string         `json:"state"`
	PostalCode       string         `json:"postalCode"`
	Phone            string         `json:"phone"`
	Email            string         `json:"email"`
	Website          string         `json:"website"`
	WhatsappNumber   string         `json:"whatsappNumber"`
	FeaturedImageURL string         `json:"featuredImageUrl"`
	FeaturedImageAlt string         `json:"featuredImageAlt"`
	HasImagePreview  bool           `json:"hasImagePreview"`
	PriceRange       string         `json:"priceRange"`
	Amenities        string         `json:"amenities"`
	MetaTitle        string         `json:"metaTitle"`
	MetaDescription  string         `json:"metaDescription"`
	Keywords         string         `json:"keywords"`
	IsPublished      bool           `json:"isPublished"`
	Touched          ListingTouched `json:"touched"`
}

// ListingPatch carries the fields changed by one edit; nil fields are left alone.
type ListingPatch struct {
	Category         *string `json:"category"`
	Title            *string `json:"title"`
	Slug             *string `json:"slug"`
	Description      *string `json:"description"`
	Address          *string `json:"address"`
	City             *string `json:"city"`
	State            *string `json:"state"`
	PostalCode       *string `json:"postalCode"`
	Phone            *string `json:"phone"`
	Email            *string `json:"email"`
	Website          *string `json:"website"`
	WhatsappNumber   *string `json:"whatsappNumber"`
	FeaturedImageURL *string `json:"featuredImageUrl"`
	FeaturedImageAlt *string `json:"featuredImageAlt"`
	HasImagePreview  *bool   `json:"hasImagePreview"`
	RemoveImage      bool    `json:"removeImage"`
	PriceRange       *string `json:"priceRange"`
	Amenities        *string `json:"amenities"`
	MetaTitle        *string `json:"metaTitle"`
	MetaDescription  *string `json:"metaDescription"`
	Keywords         *string `json:"keywords"`
	IsPublished      *bool   `json:"isPublished"`
}

func NewListingDraft() *ListingDraft {
	return &ListingDraft{}
}

func (d *ListingDraft) SetTitle(title string) {
	d.Title = title
	if !d.Touched.Slug {
		d.Slug = derive.Slugify(title)
	}
	d.refreshMeta()
}

// SetSlug stores the slug; diverging from the title's slug stops auto-derivation.
func (d *ListingDraft) SetSlug(slug string) {
	d.Slug = slug
	if slug != derive.Slugify(d.Title) {
		d.Touched.Slug = true
	}
}

func (d *ListingDraft) SetCity(city string) {
	d.City = city
	d.refreshMeta()
}

func (d *ListingDraft) SetDescription(description string) {
	d.Description = description
	d.refreshMeta()
}

func (d *ListingDraft) SetMetaTitle(v string) {
	d.MetaTitle = v
	if v != derive.MetaTitle(d.Title, d.City) {
		d.Touched.MetaTitle = true
	}
}

func (d *ListingDraft) SetMetaDescription(v string) {
	d.MetaDescription = v
	if v != derive.MetaDescription(d.Description) {
		d.Touched.MetaDescription = true
	}
}

func (d *ListingDraft) RemoveImage() {
	d.FeaturedImageURL = ""
	d.FeaturedImageAlt = ""
	d.HasImagePreview = false
}

// HasImage reports whether a featured image is set or waiting to be uploaded.
func (d *ListingDraft) HasImage() bool {
	return d.FeaturedImageURL != "" || d.HasImagePreview
}

func (d *ListingDraft) refreshMeta() {
	if !d.Touched.MetaTitle {
		d.MetaTitle = derive.MetaTitle(d.Title, d.City)
	}
	if !d.Touched.MetaDescription {
		d.MetaDescription = derive.MetaDescription(d.Description)
	}
}

// Apply runs a patch through the setters. Title, city and description go first so
// that explicit slug and meta values in the same patch win over derived ones.
func (d *ListingDraft) Apply(p ListingPatch) {
	if p.RemoveImage {
		d.RemoveImage()
	}
	setString(&d.Category, p.Category)
	if p.Title != nil {
		d.SetTitle(*p.Title)
	}
	if p.City != nil {
		d.SetCity(*p.City)
	}
	if p.Description != nil {
		d.SetDescription(*p.Description)
	}
	if p.Slug != nil {
		d.SetSlug(*p.Slug)
	}
	if p.MetaTitle != nil {
		d.SetMetaTitle(*p.MetaTitle)
	}
	if p.MetaDescription != nil {
		d.SetMetaDescription(*p.MetaDescription)
	}
	setString(&d.Address, p.Address)
	setString(&d.State, p.State)
	setString(&d.PostalCode, p.PostalCode)
	setString(&d.Phone, p.Phone)
	setString(&d.Email, p.Email)
	setString(&d.Website, p.Website)
	setString(&d.WhatsappNumber, p.WhatsappNumber)
	setString(&d.FeaturedImageURL, p.FeaturedImageURL)
	setString(&d.FeaturedImageAlt, p.FeaturedImageAlt)
	setString(&d.PriceRange, p.PriceRange)
	setString(&d.Amenities, p.Amenities)
	setString(&d.Keywords, p.Keywords)
	if p.HasImagePreview != nil {
		d.HasImagePreview = *p.HasImagePreview
	}
	if p.IsPublished != nil {
		d.IsPublished = *p.IsPublished
	}
}

// ListingDraftFrom seeds an edit draft from a stored listing. Every derived field
// already has a persisted value, so all of them count as touched.
func ListingDraftFrom(l *models.BusinessListing) *ListingDraft {
	return &ListingDraft{
		ID:               l.ID,
		Category:         l.Category,
		Title:            l.Title,
		Slug:             l.Slug,
		Description:      l.Description,
		Address:          l.Address,
		City:             l.City,
		State:            l.State,
		PostalCode:       l.PostalCode,
		Phone:            l.Phone,
		Email:            l.Email,
		Website:          l.Website,
		WhatsappNumber:   l.WhatsappNumber,
		FeaturedImageURL: l.FeaturedImage,
		FeaturedImageAlt: l.FeaturedAlt,
		PriceRange:       l.PriceRange,
		Amenities:        derive.JoinList(l.Amenities),
		MetaTitle:        l.MetaTitle,
		MetaDescription:  l.MetaDescription,
		Keywords:         derive.JoinList(l.Keywords),
		IsPublished:      l.IsPublished,
		Touched:          ListingTouched{Slug: true, MetaTitle: true, MetaDescription: true},
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
