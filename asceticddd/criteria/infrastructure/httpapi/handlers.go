package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"reflect"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	criteria "github.com/krew-solutions/ascetic-criteria-go/asceticddd/criteria/domain"
)

const requestIDHeader = "X-Request-ID"

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type DatasetInfo struct {
	Name   string `json:"name"`
	Entity string `json:"entity"`
}

type FilterResponse struct {
	Dataset string `json:"dataset"`
	Entity  string `json:"entity"`
	Total   int    `json:"total"`
	Items   []any  `json:"items"`
}

type Handlers struct {
	datasets *Datasets
	logger   *slog.Logger
}

func NewHandlers(datasets *Datasets, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{datasets: datasets, logger: logger}
}

// HandleList handles GET /v1/datasets.
func (h *Handlers) HandleList(c *gin.Context) {
	names := h.datasets.Names()
	out := make([]DatasetInfo, 0, len(names))
	for _, name := range names {
		ds, ok := h.datasets.Lookup(name)
		if !ok {
			continue
		}
		out = append(out, DatasetInfo{Name: name, Entity: criteria.TypeName(ds.EntityType())})
	}
	c.JSON(http.StatusOK, out)
}

// HandleFilter handles POST /v1/datasets/:name/filter.
//
//	200 OK: FilterResponse
//	400 Bad Request: the query document does not decode, validate or compile
//	404 Not Found: no dataset by that name
func (h *Handlers) HandleFilter(c *gin.Context) {
	name := c.Param("name")
	logger := h.logger.With("request_id", requestID(c), "dataset", name)

	ds, ok := h.datasets.Lookup(name)
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "unknown dataset " + name, Code: "UNKNOWN_DATASET"})
		return
	}

	var doc criteria.QueryDocument
	if err := c.ShouldBindJSON(&doc); err != nil {
		logger.Warn("invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_REQUEST"})
		return
	}
	if err := doc.Validate(); err != nil {
		logger.Warn("invalid query", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_QUERY"})
		return
	}

	page, err := ds.FindDocument(c.Request.Context(), &doc)
	if err != nil {
		status, code := classify(err)
		if status >= http.StatusInternalServerError {
			logger.Error("filter failed", "error", err)
		} else {
			logger.Warn("filter rejected", "error", err)
		}
		c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
		return
	}

	logger.Info("filter served", "total", page.Total, "returned", len(page.Items))
	c.JSON(http.StatusOK, FilterResponse{
		Dataset: name,
		Entity:  criteria.TypeName(ds.EntityType()),
		Total:   page.Total,
		Items:   page.Items,
	})
}

// HandleValidate handles POST /v1/datasets/:name/validate. The query is
// checked against the dataset's entity type but not run.
func (h *Handlers) HandleValidate(c *gin.Context) {
	name := c.Param("name")
	ds, ok := h.datasets.Lookup(name)
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "unknown dataset " + name, Code: "UNKNOWN_DATASET"})
		return
	}
	var doc criteria.QueryDocument
	if err := c.ShouldBindJSON(&doc); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_REQUEST"})
		return
	}
	if err := doc.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_QUERY"})
		return
	}
	if err := validateFor(ds.EntityType(), &doc); err != nil {
		status, code := classify(err)
		c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
		return
	}
	c.Status(http.StatusNoContent)
}

func validateFor(entity reflect.Type, doc *criteria.QueryDocument) error {
	if _, err := criteria.CompileType(entity, doc.Condition); err != nil {
		return err
	}
	_, err := criteria.CompileSort(entity, doc.Sort)
	return err
}

func classify(err error) (int, string) {
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		return http.StatusBadRequest, "INVALID_QUERY"
	case errors.Is(err, criteria.ErrInvalidSelector),
		errors.Is(err, criteria.ErrTypeMismatch),
		errors.Is(err, criteria.ErrUnsupportedOperator),
		errors.Is(err, criteria.ErrCoercion),
		errors.Is(err, criteria.ErrUnparsableDate),
		errors.Is(err, criteria.ErrCyclicTree):
		return http.StatusBadRequest, "INVALID_QUERY"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "TIMEOUT"
	}
	return http.StatusInternalServerError, "QUERY_FAILED"
}

func requestID(c *gin.Context) string {
	id := c.GetHeader(requestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}
	c.Header(requestIDHeader, id)
	return id
}

func RegisterRoutes(rg *gin.RouterGroup, h *Handlers) {
	datasets := rg.Group("/datasets")
	{
		datasets.GET("", h.HandleList)
		datasets.POST("/:name/filter", h.HandleFilter)
		datasets.POST("/:name/validate", h.HandleValidate)
	}
}

// NewRouter builds the service engine. metrics, when not nil, is served at
// /metrics.
func NewRouter(h *Handlers, metrics http.Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	RegisterRoutes(router.Group("/v1"), h)
	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics))
	}
	return router
}
