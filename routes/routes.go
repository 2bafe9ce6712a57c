package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"eventboard/feed"
	"eventboard/middlewares"
	"eventboard/models"
	"eventboard/storage"
	"eventboard/utils"
)

// deps is the DI container handed to every handler.
type deps struct {
	users   models.UserRepository
	events  models.EventRepository
	mirror  *feed.Mirror
	inv     *utils.CacheInvalidator
	blobs   storage.BlobStore
	uploads *uploadRegistry
	logger  *slog.Logger
}

// RegisterRoutes mounts the full HTTP surface: public feed reads, auth
// endpoints, and the authenticated mutation group with per-user limits.
func RegisterRoutes(
	server *gin.Engine,
	u models.UserRepository,
	e models.EventRepository,
	mirror *feed.Mirror,
	blobs storage.BlobStore,
	rdb *redis.Client,
	inv *utils.CacheInvalidator,
	logger *slog.Logger,
) {
	if logger == nil {
		logger = slog.Default()
	}
	d := &deps{
		users:   u,
		events:  e,
		mirror:  mirror,
		inv:     inv,
		blobs:   blobs,
		uploads: newUploadRegistry(),
		logger:  logger,
	}

	// Global IP rate limit.
	globalLimiter := middlewares.NewRateLimiter(middlewares.LimiterConfig{
		RPS:     20,
		Burst:   40,
		IdleTTL: 3 * time.Minute,
	})
	server.Use(globalLimiter.Middleware(func(c *gin.Context) string {
		return "ip:" + c.ClientIP()
	}))

	// Stricter per-IP limit on the credential endpoints.
	authLimiter := middlewares.NewRateLimiter(middlewares.LimiterConfig{
		RPS:     0.5,
		Burst:   2,
		IdleTTL: 10 * time.Minute,
	})
	server.POST("/signup",
		authLimiter.Middleware(func(c *gin.Context) string { return "signup:" + c.ClientIP() }),
		d.signup,
	)
	server.POST("/login",
		authLimiter.Middleware(func(c *gin.Context) string { return "login:" + c.ClientIP() }),
		d.login,
	)

	// Authenticated group: JWT first, then per-user rate limit and quota.
	auth := server.Group("/")
	auth.Use(middlewares.Authenticate)

	userLimiter := middlewares.NewRateLimiter(middlewares.LimiterConfig{
		RPS:     5,
		Burst:   10,
		IdleTTL: 10 * time.Minute,
	})
	auth.Use(userLimiter.Middleware(func(c *gin.Context) string {
		return "u:" + strconv.FormatInt(c.GetInt64("userId"), 10)
	}))

	auth.Use(middlewares.Quota(rdb, middlewares.QuotaRule{
		Limit:  2000,
		Window: 24 * time.Hour,
		KeyFn: func(c *gin.Context) string {
			uid := c.GetInt64("userId")
			if uid == 0 {
				return ""
			}
			return fmt.Sprintf("quota:user:%d:day", uid)
		},
	}))

	// Public reads, served from the live mirror.
	server.GET("/events", d.getEvents)
	server.GET("/events/:id", d.getEvent)

	// Mutations and user-scoped reads.
	auth.POST("/events", d.createEvent)
	auth.PUT("/events/:id", d.updateEvent)
	auth.DELETE("/events/:id", d.deleteEvent)
	auth.POST("/events/:id/like", d.likeEvent)
	auth.GET("/me/events", d.myEvents)
	auth.GET("/me/liked", d.likedEvents)
	auth.POST("/uploads", d.createUpload)
	auth.GET("/uploads/:id", d.getUpload)
}

// currentUID is the string identity used in document uid/likes fields.
func currentUID(c *gin.Context) string {
	return strconv.FormatInt(c.GetInt64("userId"), 10)
}

/* --------------------- Auth --------------------- */

// POST /signup
func (d *deps) signup(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Could not parse request data."})
		return
	}

	u := models.User{Email: req.Email, Password: req.Password}
	if err := d.users.Create(&u); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not save user."})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "user created successfully"})
}

// POST /login
func (d *deps) login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Could not parse request data."})
		return
	}

	user, err := d.users.ValidateCredentials(req.Email, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Could not authenticate user."})
		return
	}

	token, err := utils.GenerateToken(user.Email, user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not authenticate user."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Login successful!", "token": token})
}
