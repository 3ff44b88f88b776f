// Package validation holds the per-step field rules of the listing and post wizards.
// Rules never fail hard: every check reports a list of violations ordered by field.
package validation

import (
	"errors"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"rankwell/apperrors"
	"rankwell/catalog"
	"rankwell/draft"
)

var SlugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// notBlank rejects strings that are empty after trimming.
func notBlank(msg string) validation.Rule {
	return validation.By(func(value interface{}) error {
		s, _ := value.(string)
		if strings.TrimSpace(s) == "" {
			return errors.New(msg)
		}
		return nil
	})
}

// trimmedLength checks the rune count of the value with surrounding whitespace
// removed, the form in which it is stored. max of 0 means no upper bound.
func trimmedLength(min, max int, msg string) validation.Rule {
	return validation.By(func(value interface{}) error {
		s, _ := value.(string)
		n := utf8.RuneCountInString(strings.TrimSpace(s))
		if n < min || (max > 0 && n > max) {
			return errors.New(msg)
		}
		return nil
	})
}

func listingCategories() []interface{} {
	out := make([]interface{}, 0, len(catalog.ListingCategories))
	for _, c := range catalog.ListingCategories {
		out = append(out, c.Value)
	}
	return out
}

func priceRanges() []interface{} {
	out := make([]interface{}, 0, len(catalog.PriceRanges))
	for _, p := range catalog.PriceRanges {
		out = append(out, p.Value)
	}
	return out
}

func ValidateListingStep(d *draft.ListingDraft, step int) []apperrors.Violation {
	var err error
	switch step {
	case 1:
		err = validation.ValidateStruct(d,
			validation.Field(&d.Category,
				validation.Required.Error("Please select a category"),
				validation.In(listingCategories()...).Error("Please select a valid category")),
			validation.Field(&d.Title,
				notBlank("Title is required"),
				trimmedLength(5, 200, "Title must be between 5 and 200 characters")),
			validation.Field(&d.Slug,
				validation.Required.Error("Slug is required"),
				validation.Match(SlugPattern).Error("Slug can only contain lowercase letters, numbers, and hyphens")),
		)
	case 2:
		err = validation.ValidateStruct(d,
			validation.Field(&d.Description,
				validation.Required.Error("Description must be at least 50 characters"),
				validation.RuneLength(50, 0).Error("Description must be at least 50 characters")),
			validation.Field(&d.Address,
				validation.Required.Error("Address is required"),
				validation.RuneLength(10, 0).Error("Address is required")),
			validation.Field(&d.City,
				validation.Required.Error("City is required"),
				validation.RuneLength(2, 0).Error("City is required")),
			validation.Field(&d.Phone,
				validation.Required.Error("Phone number is required"),
				validation.RuneLength(10, 0).Error("Phone number is required")),
		)
	case 3:
		err = validation.ValidateStruct(d,
			validation.Field(&d.Email, is.EmailFormat.Error("Invalid email address")),
			validation.Field(&d.Website, is.URL.Error("Invalid URL")),
			validation.Field(&d.PriceRange, validation.In(priceRanges()...).Error("Please select a valid price range")),
			validation.Field(&d.FeaturedImageAlt,
				validation.When(d.HasImage(), notBlank("Alt text is required for accessibility"))),
		)
	}
	return violations(err)
}

func ValidatePostStep(d *draft.PostDraft, step int) []apperrors.Violation {
	var err error
	switch step {
	case 1:
		err = validation.ValidateStruct(d,
			validation.Field(&d.Title, notBlank("Title is required")),
			validation.Field(&d.Slug,
				validation.Required.Error("Slug is required"),
				validation.Match(SlugPattern).Error("Slug can only contain lowercase letters, numbers, and hyphens")),
			validation.Field(&d.Category, notBlank("Category is required")),
		)
	case 2:
		err = validation.ValidateStruct(d,
			validation.Field(&d.Content,
				notBlank("Content is required"),
				validation.RuneLength(50, 0).Error("Content must be at least 50 characters")),
		)
	case 3:
		err = validation.ValidateStruct(d,
			validation.Field(&d.FeaturedImageAlt,
				validation.When(d.HasImage(), notBlank("Alt text is required for accessibility"))),
		)
	}
	return violations(err)
}

func ValidateListing(d *draft.ListingDraft) []apperrors.Violation {
	var all []apperrors.Violation
	for step := 1; step <= 4; step++ {
		all = append(all, ValidateListingStep(d, step)...)
	}
	sortViolations(all)
	return all
}

func ValidatePost(d *draft.PostDraft) []apperrors.Violation {
	var all []apperrors.Violation
	for step := 1; step <= 4; step++ {
		all = append(all, ValidatePostStep(d, step)...)
	}
	sortViolations(all)
	return all
}

// QuickEdit is the subset of listing fields editable inline from the admin table.
type QuickEdit struct {
	Title       string `json:"title"`
	Category    string `json:"category"`
	Phone       string `json:"phone"`
	City        string `json:"city"`
	Address     string `json:"address"`
	IsPublished bool   `json:"isPublished"`
	IsFeatured  bool   `json:"isFeatured"`
}

func ValidateQuickEdit(q *QuickEdit) []apperrors.Violation {
	err := validation.ValidateStruct(q,
		validation.Field(&q.Title, notBlank("Title is required"), trimmedLength(5, 200, "Title must be between 5 and 200 characters")),
		validation.Field(&q.Category, validation.Required.Error("Please select a category"), validation.In(listingCategories()...).Error("Please select a valid category")),
		validation.Field(&q.Phone, validation.Required.Error("Phone number is required"), validation.RuneLength(10, 0).Error("Phone number is required")),
		validation.Field(&q.City, validation.Required.Error("City is required"), validation.RuneLength(2, 0).Error("City is required")),
		validation.Field(&q.Address, validation.Required.Error("Address is required"), validation.RuneLength(10, 0).Error("Address is required")),
	)
	return violations(err)
}

func violations(err error) []apperrors.Violation {
	if err == nil {
		return nil
	}
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return []apperrors.Violation{{Field: "_", Message: err.Error()}}
	}
	out := make([]apperrors.Violation, 0, len(errs))
	for field, ferr := range errs {
		if ferr == nil {
			continue
		}
		out = append(out, apperrors.Violation{Field: field, Message: ferr.Error()})
	}
	sortViolations(out)
	return out
}

func sortViolations(v []apperrors.Violation) {
	sort.SliceStable(v, func(i, j int) bool { return v[i].Field < v[j].Field })
}
