package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ApprovalStatus string

const (
	StatusPending  ApprovalStatus = "pending"
	StatusApproved ApprovalStatus = "approved"
	StatusRejected ApprovalStatus = "rejected"
)

func (s ApprovalStatus) Valid() bool {
	return s == StatusPending || s == StatusApproved || s == StatusRejected
}

const RoleAdmin = "admin"

type User struct {
	ID           string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Email        string    `gorm:"unique;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"` // never serialized
	CreatedAt    time.Time `json:"created_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

type UserRole struct {
	ID     uint   `gorm:"primaryKey"`
	UserID string `gorm:"not null;uniqueIndex:idx_user_role" json:"user_id"`
	Role   string `gorm:"not null;uniqueIndex:idx_user_role" json:"role"`
}

type BusinessListing struct {
	ID              string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID          string         `gorm:"not null;index" json:"user_id"`
	Category        string         `gorm:"not null;index" json:"category"`
	Title           string         `gorm:"not null" json:"title"`
	Slug            string         `gorm:"not null;index" json:"slug"`
	Description     string         `gorm:"type:text" json:"description"`
	Address         string         `json:"address"`
	City            string         `gorm:"index" json:"city"`
	State           string         `json:"state"`
	PostalCode      string         `json:"postal_code"`
	Phone           string         `json:"phone"`
	Email           string         `json:"email,omitempty"`
	Website         string         `json:"website,omitempty"`
	WhatsappNumber  string         `json:"whatsapp_number,omitempty"`
	FeaturedImage   string         `json:"featured_image_url,omitempty"`
	FeaturedAlt     string         `json:"featured_image_alt,omitempty"`
	PriceRange      string         `json:"price_range,omitempty"`
	Amenities       []string       `gorm:"serializer:json" json:"amenities"`
	MetaTitle       string         `json:"meta_title"`
	MetaDescription string         `json:"meta_description"`
	Keywords        []string       `gorm:"serializer:json" json:"keywords"`
	IsPublished     bool           `gorm:"default:false;index" json:"is_published"`
	ApprovalStatus  ApprovalStatus `gorm:"type:varchar(16);default:pending;index" json:"approval_status"`
	RejectionReason *string        `json:"rejection_reason"` // set only while rejected
	ApprovedBy      *string        `json:"approved_by"`
	ApprovedAt      *time.Time     `json:"approved_at"`
	IsFeatured      bool           `gorm:"default:false" json:"is_featured"`
	ViewsCount      int64          `gorm:"default:0" json:"views_count"`
	ContactClicks   int64          `gorm:"default:0" json:"contact_clicks"`
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func (l *BusinessListing) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.ApprovalStatus == "" {
		l.ApprovalStatus = StatusPending
	}
	return nil
}

// Visible reports whether the listing may appear on the public site.
func (l *BusinessListing) Visible() bool {
	return l.IsPublished && l.ApprovalStatus == StatusApproved
}

type BlogPost struct {
	ID               string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	AuthorID         string    `gorm:"not null;index" json:"author_id"`
	Title            string    `gorm:"not null" json:"title"`
	Slug             string    `gorm:"not null;uniqueIndex" json:"slug"`
	Category         string    `gorm:"index" json:"category"`
	Content          string    `gorm:"type:text" json:"content"`
	Excerpt          string    `gorm:"type:text" json:"excerpt"`
	FeaturedImageURL string    `json:"featured_image_url,omitempty"`
	FeaturedImageAlt string    `json:"featured_image_alt,omitempty"`
	MetaDescription  string    `json:"meta_description"`
	Tags             []string  `gorm:"serializer:json" json:"tags"`
	ReadTime         int       `gorm:"default:1" json:"read_time"`
	IsFeatured       bool      `gorm:"default:false" json:"is_featured"`
	Published        bool      `gorm:"default:false;index" json:"published"`
	CreatedAt        time.Time `gorm:"index" json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (p *BlogPost) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
