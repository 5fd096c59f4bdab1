// Package accounts implements the login, registration and profile endpoints.
package accounts

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tenderhub/tender-insight-hub/internal/api/views"
	"github.com/tenderhub/tender-insight-hub/internal/db/models"
	"github.com/tenderhub/tender-insight-hub/internal/middleware"
	"github.com/tenderhub/tender-insight-hub/internal/services"
)

// Service is the account logic behind the handlers.
type Service interface {
	Login(ctx context.Context, email, password string) (*services.Session, error)
	Register(ctx context.Context, req services.RegisterRequest) (*services.Session, error)
	Profile(ctx context.Context, userID string) (*models.User, *models.Organization, error)
}

// Handler handles account requests
type Handler struct {
	accounts Service
}

// NewHandler creates a new accounts handler
func NewHandler(accounts Service) *Handler {
	return &Handler{accounts: accounts}
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest is the body of POST /api/auth/register.
type RegisterRequest struct {
	Email            string `json:"email" binding:"required"`
	Password         string `json:"password" binding:"required"`
	FirstName        string `json:"firstName"`
	LastName         string `json:"lastName"`
	OrganizationName string `json:"organizationName"`
	Plan             string `json:"plan"`
}

// @Summary      Log in
// @Description  Verifies email and password and returns the user, their organization and a bearer token.
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        body  body  LoginRequest  true  "Credentials"
// @Success      200  {object}  views.Session
// @Failure      400  {object}  map[string]interface{}  "Invalid request body"
// @Failure      401  {object}  map[string]interface{}  "Incorrect email or password"
// @Router       /api/auth/login [post]
// Login handles POST /api/auth/login
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	session, err := h.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			c.Header("WWW-Authenticate", "Bearer")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Incorrect email or password"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to log in"})
		return
	}

	c.JSON(http.StatusOK, views.NewSession(session))
}

// @Summary      Register
// @Description  Creates an organization on the requested plan with the caller as its admin, and opens a session.
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        body  body  RegisterRequest  true  "Registration"
// @Success      200  {object}  views.Session
// @Failure      400  {object}  map[string]interface{}  "Email already registered or invalid field"
// @Router       /api/auth/register [post]
// Register handles POST /api/auth/register
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	session, err := h.accounts.Register(c.Request.Context(), services.RegisterRequest{
		Email:            req.Email,
		Password:         req.Password,
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		OrganizationName: req.OrganizationName,
		Plan:             req.Plan,
	})
	if err != nil {
		var verr *services.ValidationError
		switch {
		case errors.Is(err, services.ErrEmailTaken):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Email already registered"})
		case errors.As(err, &verr):
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
		default:
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register"})
		}
		return
	}

	c.JSON(http.StatusOK, views.NewSession(session))
}

// @Summary      Current user
// @Description  Returns the authenticated user and their organization.
// @Tags         Authentication
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  views.Profile
// @Failure      401  {object}  map[string]interface{}  "Not authenticated"
// @Router       /api/auth/me [get]
// Me handles GET /api/auth/me
func (h *Handler) Me(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	u, org, err := h.accounts.Profile(c.Request.Context(), user.ID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load profile"})
		return
	}

	c.JSON(http.StatusOK, views.Profile{
		User:         views.NewUser(u),
		Organization: views.NewOrganization(org),
	})
}
