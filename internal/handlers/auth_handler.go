package handlers

import (
	"errors"
	"fmt"

	"bookshelf/internal/apierror"
	"bookshelf/internal/middleware"
	"bookshelf/internal/models"
	"bookshelf/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	authService *services.AuthService
	validate    *validator.Validate
	log         logrus.FieldLogger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, log logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validate:    validator.New(),
		log:         log,
	}
}

// RegisterRoutes registers the authentication routes. protect guards /me;
// middlewares run in front of every /auth route.
func (h *AuthHandler) RegisterRoutes(router fiber.Router, protect fiber.Handler, middlewares ...fiber.Handler) {
	authRoutes := router.Group("/auth", middlewares...)
	authRoutes.Post("/register", h.HandleRegister)
	authRoutes.Post("/login", h.HandleLogin)
	authRoutes.Post("/refresh", h.HandleRefresh)
	authRoutes.Get("/me", protect, h.HandleMe)
}

// RegisterRequest represents the request body for registration.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=80"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest represents the request body for a token refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// validationFailed renders validator errors as {"errors": {field: message}}.
func (h *AuthHandler) validationFailed(c *fiber.Ctx, err error) error {
	errorMessages := make(map[string]string)
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, e := range validationErrors {
			errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
		}
	}
	return apierror.Respond(c, fiber.StatusBadRequest, apierror.ValidationFailed, "Validation failed",
		fiber.Map{"errors": errorMessages})
}

// HandleRegister handles new user registration.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apierror.Respond(c, fiber.StatusBadRequest, apierror.BadRequest, "Invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return h.validationFailed(c, err)
	}

	user := models.User{Username: req.Username, Password: req.Password}
	if err := h.authService.RegisterUser(c.UserContext(), &user); err != nil {
		if errors.Is(err, services.ErrUsernameTaken) {
			return apierror.Respond(c, fiber.StatusConflict, apierror.Conflict, err.Error())
		}
		h.log.WithError(err).Error("Error registering user")
		return apierror.Respond(c, fiber.StatusInternalServerError, apierror.Internal, "Could not register user")
	}

	// Never return the password hash
	user.Password = ""
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User registered successfully",
		"user":    user,
	})
}

// HandleLogin handles user login and issues an access and a refresh token.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apierror.Respond(c, fiber.StatusBadRequest, apierror.BadRequest, "Invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return h.validationFailed(c, err)
	}

	tokens, err := h.authService.LoginUser(c.UserContext(), req.Username, req.Password)
	if err != nil {
		h.log.WithField("username", req.Username).Info("Login rejected")
		return apierror.Respond(c, fiber.StatusUnauthorized, apierror.Unauthorized, "Invalid username or password")
	}
	return c.JSON(tokens)
}

// HandleRefresh exchanges a refresh token for a new access token.
func (h *AuthHandler) HandleRefresh(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return apierror.Respond(c, fiber.StatusBadRequest, apierror.BadRequest, "Invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return h.validationFailed(c, err)
	}

	tokens, err := h.authService.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return apierror.Respond(c, fiber.StatusUnauthorized, apierror.Unauthorized, "Invalid or expired refresh token")
	}
	return c.JSON(tokens)
}

// HandleMe echoes the identity carried by the access token.
func (h *AuthHandler) HandleMe(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"user_id":  c.Locals(middleware.LocalUserID),
		"username": c.Locals(middleware.LocalUsername),
	})
}
