package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"driveshare/internal/auth"
	"driveshare/internal/domain"
	"driveshare/internal/service"
)

// Handler wires HTTP routes to domain services.
type Handler struct {
	users     service.UserService
	files     service.FileService
	jwtSecret string
	tokenTTL  time.Duration
	logger    *logrus.Logger
}

func NewHandler(users service.UserService, files service.FileService, jwtSecret string, tokenTTL time.Duration, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
	}
	return &Handler{
		users:     users,
		files:     files,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		logger:    logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware())

	api := router.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", h.register)
			authGroup.POST("/login", h.login)
		}

		files := api.Group("/files", h.authRequired())
		{
			files.POST("/upload", h.upload)
			files.GET("/my-files", h.listOwnFiles)
			files.GET("/download/:id", h.download)
			files.DELETE("/delete/:id", h.deleteFile)

			admin := files.Group("/admin", h.adminRequired())
			{
				admin.GET("/all-files", h.listAllFiles)
				admin.PUT("/update-status/:id", h.updateStatus)
				admin.DELETE("/delete/:id", h.deleteFile)
			}
		}
	}
}

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	user, err := h.users.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserAlreadyExists):
			c.JSON(http.StatusBadRequest, gin.H{"error": "duplicate_username", "message": "username is already registered"})
		case errors.Is(err, service.ErrEmailAlreadyExists):
			c.JSON(http.StatusBadRequest, gin.H{"error": "duplicate_email", "message": "email is already registered"})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "success", "user": userToResponse(user)})
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials", "message": "username or password is incorrect"})
			return
		}
		h.serverError(c, err)
		return
	}

	token, err := auth.GenerateToken(h.jwtSecret, user, h.tokenTTL)
	if err != nil {
		h.serverError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"token":  token,
		"role":   user.Role,
		"user":   userToResponse(user),
	})
}

func (h *Handler) upload(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated", "message": "login required"})
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "multipart field \"file\" is required"})
		return
	}
	defer file.Close()

	record, err := h.files.Upload(
		c.Request.Context(),
		user,
		header.Filename,
		header.Header.Get("Content-Type"),
		file,
		header.Size,
	)
	if err != nil {
		h.fileError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "uploaded", "file": fileToResponse(*record)})
}

func (h *Handler) listOwnFiles(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated", "message": "login required"})
		return
	}

	records, err := h.files.ListOwn(c.Request.Context(), user.ID)
	if err != nil {
		h.serverError(c, err)
		return
	}

	resp := make([]FileResponse, len(records))
	for i := range records {
		resp[i] = fileToResponse(records[i])
	}
	c.JSON(http.StatusOK, gin.H{"files": resp})
}

func (h *Handler) listAllFiles(c *gin.Context) {
	records, err := h.files.ListAll(c.Request.Context())
	if err != nil {
		h.serverError(c, err)
		return
	}

	resp := make([]FileResponse, len(records))
	for i := range records {
		resp[i] = fileToResponse(records[i])
	}
	c.JSON(http.StatusOK, gin.H{"files": resp})
}

func (h *Handler) updateStatus(c *gin.Context) {
	id, ok := fileIDParam(c)
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	record, err := h.files.UpdateStatus(c.Request.Context(), id, domain.FileStatus(req.Status))
	if err != nil {
		h.fileError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "file": fileToResponse(*record)})
}

func (h *Handler) deleteFile(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated", "message": "login required"})
		return
	}

	id, ok := fileIDParam(c)
	if !ok {
		return
	}

	if err := h.files.Delete(c.Request.Context(), user, id); err != nil {
		h.fileError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted", "deleted": id})
}

func (h *Handler) download(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated", "message": "login required"})
		return
	}

	id, ok := fileIDParam(c)
	if !ok {
		return
	}

	body, record, err := h.files.Download(c.Request.Context(), user, id)
	if err != nil {
		h.fileError(c, err)
		return
	}
	defer body.Close()

	contentType := record.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	disposition := fmt.Sprintf("attachment; filename=%q", record.Filename)

	c.DataFromReader(http.StatusOK, record.SizeBytes, contentType, body, map[string]string{
		"Content-Disposition": disposition,
	})
}

func fileIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "invalid file id"})
		return 0, false
	}
	return id, true
}

// fileError maps file service sentinels onto status codes and stable codes.
func (h *Handler) fileError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "file not found"})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden", "message": "you do not have access to this file"})
	case errors.Is(err, service.ErrUnsupportedFileType):
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported_file_type", "message": "file type is not allowed"})
	case errors.Is(err, service.ErrFileTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file_too_large", "message": "file exceeds the maximum allowed size"})
	case errors.Is(err, service.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_status", "message": "status must be pending, accepted or rejected"})
	case errors.Is(err, service.ErrStorage):
		h.logger.WithError(err).Error("storage failure")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage_error", "message": "file storage is unavailable"})
	default:
		h.serverError(c, err)
	}
}

func (h *Handler) serverError(c *gin.Context, err error) {
	h.logger.WithError(err).Error("request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "an unexpected error occurred"})
}

type UserResponse struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
}

type FileResponse struct {
	ID            int64  `json:"id"`
	OwnerID       int64  `json:"owner_id"`
	Filename      string `json:"filename"`
	SizeBytes     int64  `json:"size_bytes"`
	MimeType      string `json:"mime_type"`
	Status        string `json:"status"`
	UploadedAt    string `json:"uploaded_at"`
	UpdatedAt     string `json:"updated_at"`
	OwnerUsername string `json:"username,omitempty"`
	OwnerEmail    string `json:"email,omitempty"`
}

func userToResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Role:      string(user.Role),
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
	}
}

func fileToResponse(record domain.FileRecord) FileResponse {
	return FileResponse{
		ID:            record.ID,
		OwnerID:       record.OwnerID,
		Filename:      record.Filename,
		SizeBytes:     record.SizeBytes,
		MimeType:      record.MimeType,
		Status:        string(record.Status),
		UploadedAt:    record.UploadedAt.Format(time.RFC3339),
		UpdatedAt:     record.UpdatedAt.Format(time.RFC3339),
		OwnerUsername: record.OwnerUsername,
		OwnerEmail:    record.OwnerEmail,
	}
}
