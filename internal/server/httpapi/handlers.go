package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tallyhq/tally/internal/common"
	"github.com/tallyhq/tally/internal/logging"
	"github.com/tallyhq/tally/internal/server/models"
	"github.com/tallyhq/tally/internal/server/services"
)

// Handler holds the services behind the HTTP API.
type Handler struct {
	users     *services.UserService
	documents *services.DocumentService
	receipts  *services.ReceiptService
	logger    logging.Logger
}

func NewHandler(users *services.UserService, documents *services.DocumentService, receipts *services.ReceiptService, logger logging.Logger) *Handler {
	return &Handler{users: users, documents: documents, receipts: receipts, logger: logger}
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, common.ErrValidation), errors.Is(err, common.ErrBatchTooLarge):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, common.ErrUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrRefreshTokenExpired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	case errors.Is(err, common.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		h.logger.Error(c.Request.Context(), "internal error", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) tokenResponse(c *gin.Context, pair *services.TokenPair) {
	c.JSON(http.StatusOK, gin.H{
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	})
}

func (h *Handler) RegisterUser(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json body"})
		return
	}
	pair, err := h.users.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.tokenResponse(c, pair)
}

func (h *Handler) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json body"})
		return
	}
	pair, err := h.users.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.tokenResponse(c, pair)
}

func (h *Handler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json body"})
		return
	}
	pair, err := h.users.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.tokenResponse(c, pair)
}

func (h *Handler) ServerTime(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"unixMilli": time.Now().UnixMilli()})
}

// ListDocuments returns every document of a collection, or a single-element
// list when the localId filter is present.
func (h *Handler) ListDocuments(c *gin.Context) {
	userID := UserIDFromContext(c)
	collection := c.Param("name")

	if raw := c.Query("localId"); raw != "" {
		localID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid localId"})
			return
		}
		doc, err := h.documents.FindByLocalID(c.Request.Context(), userID, collection, localID)
		if errors.Is(err, common.ErrNotFound) {
			c.JSON(http.StatusOK, gin.H{"documents": []*models.Document{}})
			return
		}
		if err != nil {
			h.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"documents": []*models.Document{doc}})
		return
	}

	docs, err := h.documents.List(c.Request.Context(), userID, collection)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if docs == nil {
		docs = []*models.Document{}
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs})
}

func (h *Handler) CreateDocument(c *gin.Context) {
	userID := UserIDFromContext(c)
	collection := c.Param("name")

	var req struct {
		LocalID   int64           `json:"localId"`
		Data      json.RawMessage `json:"data"`
		UpdatedAt int64           `json:"updatedAt"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json body"})
		return
	}

	doc, err := h.documents.Create(c.Request.Context(), userID, collection, req.LocalID, req.Data, req.UpdatedAt)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": doc.ID})
}

func (h *Handler) UpdateDocument(c *gin.Context) {
	userID := UserIDFromContext(c)

	var req struct {
		Data      json.RawMessage `json:"data"`
		UpdatedAt int64           `json:"updatedAt"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json body"})
		return
	}

	if err := h.documents.Update(c.Request.Context(), userID, c.Param("id"), req.Data, req.UpdatedAt); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

func (h *Handler) DeleteDocument(c *gin.Context) {
	userID := UserIDFromContext(c)
	if err := h.documents.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

func (h *Handler) Batch(c *gin.Context) {
	userID := UserIDFromContext(c)

	var req struct {
		Ops []services.BatchOp `json:"ops"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json body"})
		return
	}

	results, err := h.documents.Batch(c.Request.Context(), userID, req.Ops)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (h *Handler) PresignReceiptPut(c *gin.Context) {
	key, url, err := h.receipts.PresignedPutURL(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key, "url": url})
}

func (h *Handler) PresignReceiptGet(c *gin.Context) {
	key := c.Query("key")
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "key is required"})
		return
	}
	url, err := h.receipts.PresignedGetURL(c.Request.Context(), key)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}
