package database

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"rankwell/models"
)

func RunMigrations(db *gorm.DB, log *zap.Logger) error {
	log.Info("running database migrations")

	err := db.AutoMigrate(
		&models.User{},
		&models.UserRole{},
		&models.BusinessListing{},
		&models.BlogPost{},
	)
	if err != nil {
		log.Error("migrations failed", zap.Error(err))
		return err
	}

	// slugs only need to be unique among published listings
	err = db.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_listings_published_slug ON business_listings (slug) WHERE is_published = true").Error
	if err != nil {
		log.Error("creating published slug index failed", zap.Error(err))
		return err
	}

	log.Info("migrations completed")
	return nil
}

// EnsureAdmin creates the bootstrap admin account if it does not exist yet and makes
// sure it holds the admin role. Empty credentials are a no-op.
func EnsureAdmin(db *gorm.DB, email, password string, log *zap.Logger) error {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil
	}

	var user models.User
	err := db.Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hashing admin password: %w", err)
		}
		user = models.User{Email: email, PasswordHash: string(hash)}
		if err := db.Create(&user).Error; err != nil {
			return fmt.Errorf("creating admin user: %w", err)
		}
		log.Info("admin user created", zap.String("email", email))
	} else if err != nil {
		return err
	}

	role := models.UserRole{UserID: user.ID, Role: models.RoleAdmin}
	return db.Where(role).FirstOrCreate(&role).Error
}
