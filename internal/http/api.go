package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"accountd/internal/auth"
	"accountd/internal/domain"
	"accountd/internal/service"
	"accountd/internal/storage"
	"accountd/internal/store"
)

const ctxUserKey = "accountd.user"

// Handler wires HTTP routes to domain services.
type Handler struct {
	accounts  *service.AccountService
	authsvc   *service.AuthService
	users     *store.UserStore
	tokens    *auth.TokenIssuer
	exporter  storage.Service
	bucket    string
	keyPrefix string
	logger    *logrus.Logger
}

func NewHandler(
	accounts *service.AccountService,
	authsvc *service.AuthService,
	users *store.UserStore,
	tokens *auth.TokenIssuer,
	exporter storage.Service,
	bucket, keyPrefix string,
	logger *logrus.Logger,
) *Handler {
	return &Handler{
		accounts:  accounts,
		authsvc:   authsvc,
		users:     users,
		tokens:    tokens,
		exporter:  exporter,
		bucket:    bucket,
		keyPrefix: keyPrefix,
		logger:    logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware(), requestIDMiddleware())

	api := router.Group("/api")
	{
		api.POST("/register", h.register)
		api.POST("/login", h.login)
		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
		})

		authed := api.Group("", h.authRequired())
		{
			authed.GET("/me", h.me)
			authed.POST("/me/password", h.changePassword)

			admin := authed.Group("", h.requireCapability("admin"))
			{
				admin.GET("/users", h.listUsers)
				admin.GET("/users/:id", h.getUser)
				admin.PATCH("/users/:id", h.updateUser)
				admin.DELETE("/users/:id", h.deleteUser)
				admin.POST("/users/export", h.exportUsers)
			}
		}
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Writer.Header().Set("X-Request-ID", id)
		c.Next()
	}
}

func (h *Handler) authRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims, err := h.tokens.Parse(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		// Load the live record: a token outlives neither deactivation nor
		// a role change.
		user, err := h.users.GetByID(c.Request.Context(), claims.UserID)
		if err != nil || !user.Active {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(ctxUserKey, user)
		c.Next()
	}
}

func (h *Handler) requireCapability(capability string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		if user == nil || !user.HasPermission(capability) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
			return
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) *domain.User {
	v, ok := c.Get(ctxUserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*domain.User)
	return user
}

type registerRequest struct {
	Email    string `json:"email" binding:"required"`
	Name     string `json:"name"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.accounts.Register(c.Request.Context(), req.Email, req.Name, req.Password, domain.RoleUser)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, domain.ToRepresentation(*user))
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.authsvc.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}

	token, err := h.tokens.Sign(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token signing failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  domain.ToRepresentation(*user),
	})
}

func (h *Handler) me(c *gin.Context) {
	user := currentUser(c)
	c.JSON(http.StatusOK, domain.ToRepresentation(*user))
}

type changePasswordRequest struct {
	Password string `json:"password" binding:"required"`
}

func (h *Handler) changePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user := currentUser(c)
	if err := h.accounts.ChangePassword(c.Request.Context(), user.ID, req.Password); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": user.ID})
}

func (h *Handler) listUsers(c *gin.Context) {
	role := domain.RoleAny
	if raw := c.Query("role"); raw != "" {
		role = domain.ParseRole(raw)
		if role.String() != strings.ToLower(raw) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown role filter"})
			return
		}
	}

	includeInactive, err := strconv.ParseBool(c.DefaultQuery("include_inactive", "false"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid flag include_inactive"})
		return
	}

	users, err := h.users.List(c.Request.Context(), role, includeInactive)
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := make([]domain.Representation, len(users))
	for i := range users {
		resp[i] = domain.ToRepresentation(users[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) getUser(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, domain.ToRepresentation(*user))
}

type updateUserRequest struct {
	Name   *string `json:"name"`
	Role   *string `json:"role"`
	Active *bool   `json:"active"`
}

func (h *Handler) updateUser(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		return
	}

	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	updated := *user
	if req.Name != nil {
		updated.Name = *req.Name
	}
	if req.Role != nil {
		role := domain.ParseRole(*req.Role)
		if role.String() != strings.ToLower(*req.Role) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown role"})
			return
		}
		updated.Role = role
	}
	if req.Active != nil {
		updated.Active = *req.Active
	}

	if err := h.users.Update(c.Request.Context(), &updated); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, domain.ToRepresentation(updated))
}

func (h *Handler) deleteUser(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		return
	}

	if err := h.accounts.Deactivate(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

func (h *Handler) exportUsers(c *gin.Context) {
	if h.exporter == nil || h.bucket == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage service not configured"})
		return
	}

	users, err := h.users.List(c.Request.Context(), domain.RoleAny, true)
	if err != nil {
		h.writeError(c, err)
		return
	}

	result, err := h.exporter.UploadSnapshot(c.Request.Context(), users, h.bucket, h.keyPrefix)
	if err != nil {
		h.logger.Warnf("snapshot export: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "snapshot export failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"location": result.Location, "count": result.Count})
}

func userIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return 0, false
	}
	return id, true
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrDuplicateEmail):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidUser),
		errors.Is(err, domain.ErrWeakCredential),
		errors.Is(err, domain.ErrMalformedInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	default:
		h.logger.Errorf("request failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
