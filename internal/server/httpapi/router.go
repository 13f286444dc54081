// Package httpapi exposes the server's JSON API over gin.
package httpapi

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/tallyhq/tally/internal/logging"
)

func NewRouter(h *Handler, logger logging.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(logger))
	r.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Authorization", "Content-Type"},
	}))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	auth := r.Group("/api/v1/auth")
	{
		auth.POST("/register", h.RegisterUser)
		auth.POST("/login", h.Login)
		auth.POST("/refresh", h.Refresh)
	}

	v1 := r.Group("/api/v1")
	v1.Use(Auth(h.users))
	{
		v1.GET("/time", h.ServerTime)

		v1.GET("/collections/:name/documents", h.ListDocuments)
		v1.POST("/collections/:name/documents", h.CreateDocument)
		v1.PUT("/collections/:name/documents/:id", h.UpdateDocument)
		v1.DELETE("/collections/:name/documents/:id", h.DeleteDocument)

		v1.POST("/batch", h.Batch)

		v1.POST("/receipts/presign-put", h.PresignReceiptPut)
		v1.GET("/receipts/presign-get", h.PresignReceiptGet)
	}
	return r
}
