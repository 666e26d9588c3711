package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	services "github.com/docuquery/rag-be/service"
	"github.com/docuquery/rag-be/types"
)

type QueryHandler struct {
	queryService *services.QueryService
}

func NewQueryHandler(queryService *services.QueryService) *QueryHandler {
	return &QueryHandler{
		queryService: queryService,
	}
}

// QueryHandler answers a question against the ingested corpus.
func (h *QueryHandler) QueryHandler(c *gin.Context) {
	var req types.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  false,
			Message: "Invalid request body",
		})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  false,
			Message: "Query must not be empty",
		})
		return
	}

	answer, err := h.queryService.Query(c.Request.Context(), req)
	if err != nil {
		c.JSON(statusForError(err), types.DataResponse{
			Status:  false,
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, types.DataResponse{
		Status: true,
		Data: types.QueryResponse{
			Query:          req.Query,
			Answer:         answer.Text,
			Sources:        answer.Sources,
			Confidence:     answer.Confidence,
			ProcessingTime: answer.ProcessingTime.Seconds(),
		},
	})
}
