package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/docuquery/rag-be/types"
)

type HealthHandler struct{}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

func (h *HealthHandler) HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, types.DataResponse{
		Status:  true,
		Message: "ok",
	})
}
