// Package auth resolves the signed-in user once per request and exposes it as an
// explicit Session value that handlers pass down to the domain packages.
package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"rankwell/apperrors"
	"rankwell/config"
	"rankwell/models"
)

const (
	sessionName   = "rankwell-session"
	userIDKey     = "user_id"
	contextKey    = "auth.session"
	loginRedirect = "/login"
)

// Session identifies the caller. A nil *Session means anonymous.
type Session struct {
	UserID string   `json:"userId"`
	Email  string   `json:"email"`
	Roles  []string `json:"roles"`
}

func (s *Session) IsAdmin() bool {
	if s == nil {
		return false
	}
	for _, r := range s.Roles {
		if r == models.RoleAdmin {
			return true
		}
	}
	return false
}

// RequireUser returns ErrAuthRequired for an anonymous caller.
func RequireUser(s *Session) error {
	if s == nil || s.UserID == "" {
		return apperrors.ErrAuthRequired
	}
	return nil
}

// RequireAdminRole returns ErrAdminRequired unless the caller holds the admin role.
func RequireAdminRole(s *Session) error {
	if err := RequireUser(s); err != nil {
		return err
	}
	if !s.IsAdmin() {
		return apperrors.ErrAdminRequired
	}
	return nil
}

// SessionStore builds the cookie store used by the sessions middleware.
func SessionStore(cfg config.SessionConfig) sessions.Store {
	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return store
}

func Sessions(store sessions.Store) gin.HandlerFunc {
	return sessions.Sessions(sessionName, store)
}

type AuthModule struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewAuthModule(db *gorm.DB, log *zap.Logger) *AuthModule {
	return &AuthModule{db: db, log: log}
}

func (a *AuthModule) RegisterRoutes(router *gin.Engine) {
	router.POST("/login", a.login)
	router.POST("/logout", a.logout)
	router.GET("/api/session", a.current)
}

// LoadSession is installed at the root of the router. It reads the cookie, looks up
// the user and roles, and stores the result for Current. Stale cookies are cleared.
func (a *AuthModule) LoadSession(c *gin.Context) {
	store := sessions.Default(c)
	raw := store.Get(userIDKey)
	userID, _ := raw.(string)
	if userID == "" {
		c.Next()
		return
	}

	s, err := a.lookup(userID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			a.log.Error("session lookup failed", zap.String("user_id", userID), zap.Error(err))
		}
		store.Clear()
		_ = store.Save()
		c.Next()
		return
	}

	c.Set(contextKey, s)
	c.Next()
}

func (a *AuthModule) lookup(userID string) (*Session, error) {
	var user models.User
	if err := a.db.Where("id = ?", userID).First(&user).Error; err != nil {
		return nil, err
	}
	var roles []string
	if err := a.db.Model(&models.UserRole{}).Where("user_id = ?", userID).Pluck("role", &roles).Error; err != nil {
		return nil, err
	}
	if roles == nil {
		roles = []string{}
	}
	return &Session{UserID: user.ID, Email: user.Email, Roles: roles}, nil
}

// Current returns the session resolved by LoadSession, or nil.
func Current(c *gin.Context) *Session {
	v, ok := c.Get(contextKey)
	if !ok {
		return nil
	}
	s, _ := v.(*Session)
	return s
}

func RequireAuth(c *gin.Context) {
	if err := RequireUser(Current(c)); err != nil {
		abortWith(c, err)
		return
	}
	c.Next()
}

func RequireAdmin(c *gin.Context) {
	if err := RequireAdminRole(Current(c)); err != nil {
		abortWith(c, err)
		return
	}
	c.Next()
}

func abortWith(c *gin.Context, err error) {
	n := apperrors.Notify(err)
	c.AbortWithStatusJSON(n.Status, n)
}

type credentials struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

func (a *AuthModule) login(c *gin.Context) {
	var in credentials
	if err := c.ShouldBind(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	email := strings.TrimSpace(strings.ToLower(in.Email))

	var user models.User
	if err := a.db.Where("email = ?", email).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}
	if !checkPasswordHash(in.Password, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	store := sessions.Default(c)
	store.Set(userIDKey, user.ID)
	if err := store.Save(); err != nil {
		a.log.Error("saving session failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to sign in"})
		return
	}

	s, err := a.lookup(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to sign in"})
		return
	}
	a.log.Info("user signed in", zap.String("user_id", user.ID))
	c.JSON(http.StatusOK, s)
}

func (a *AuthModule) logout(c *gin.Context) {
	store := sessions.Default(c)
	store.Clear()
	store.Options(sessions.Options{Path: "/", MaxAge: -1})
	_ = store.Save()
	c.JSON(http.StatusOK, gin.H{"redirect": "/"})
}

func (a *AuthModule) current(c *gin.Context) {
	s := Current(c)
	if s == nil {
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"authenticated": true, "session": s, "isAdmin": s.IsAdmin()})
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func checkPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
