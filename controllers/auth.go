package controllers

import (
	"net/http"
	"time"

	"envmon/middlewares"
	"envmon/models"
	"envmon/services"

	"github.com/gin-gonic/gin"
)

type credentials struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AuthHandler struct {
	users  *services.UserService
	secret string
	ttl    time.Duration
}

func NewAuthHandler(users *services.UserService, secret string, ttl time.Duration) *AuthHandler {
	return &AuthHandler{users: users, secret: secret, ttl: ttl}
}

func (h *AuthHandler) RegisterRoutes(public, protected *gin.RouterGroup) {
	public.POST("/auth/register", h.Register)
	public.POST("/auth/login", h.Login)
	protected.GET("/profile", h.Profile)
}

// Register creates an EnvironmentalScientist account. Administrators grant
// other roles afterwards.
func (h *AuthHandler) Register(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid input")
		return
	}

	user, err := h.users.Register(c.Request.Context(), req.Username, req.Password, models.RoleEnvironmentalScientist)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// Login authenticates a user and returns a JWT token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := middlewares.IssueToken(h.secret, user, h.ttl)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_at": time.Now().Add(h.ttl).UTC(),
		"user":       user,
	})
}

func (h *AuthHandler) Profile(c *gin.Context) {
	user, err := h.users.Get(c.Request.Context(), middlewares.CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
