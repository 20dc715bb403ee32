package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotesync/internal/adapters/http/dto"
	"github.com/jsamuelsen/quotesync/internal/app"
	"github.com/jsamuelsen/quotesync/internal/domain"
)

// ExportFilename is suggested to clients downloading an export.
const ExportFilename = "quotes.json"

// QuoteHandler serves the quote collection.
type QuoteHandler struct {
	store *app.QuoteStore
}

// NewQuoteHandler creates a quote handler.
func NewQuoteHandler(store *app.QuoteStore) *QuoteHandler {
	return &QuoteHandler{store: store}
}

// List handles GET /api/v1/quotes?category=.
func (h *QuoteHandler) List(c *gin.Context) {
	var q dto.CategoryQuery
	if err := dto.BindQueryAndValidate(c, &q); err != nil {
		dto.RespondBindError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewQuoteList(q.Category, h.store.Filter(q.Category)))
}

// Create handles POST /api/v1/quotes.
func (h *QuoteHandler) Create(c *gin.Context) {
	var req dto.AddQuoteRequest
	if err := dto.BindAndValidate(c, &req); err != nil {
		dto.RespondBindError(c, err)
		return
	}

	quote, err := h.store.Add(c.Request.Context(), req.Text, req.Category)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.FromQuote(quote))
}

// Random handles GET /api/v1/quotes/random?category=.
func (h *QuoteHandler) Random(c *gin.Context) {
	var q dto.CategoryQuery
	if err := dto.BindQueryAndValidate(c, &q); err != nil {
		dto.RespondBindError(c, err)
		return
	}

	quote, err := h.store.Random(q.Category)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromQuote(quote))
}

// Categories handles GET /api/v1/categories.
func (h *QuoteHandler) Categories(c *gin.Context) {
	c.JSON(http.StatusOK, dto.CategoryList{
		Categories: append([]string{domain.AllCategories}, h.store.Categories()...),
	})
}

// Export handles GET /api/v1/quotes/export.
func (h *QuoteHandler) Export(c *gin.Context) {
	data, err := h.store.Export()
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+ExportFilename+`"`)
	c.Data(http.StatusOK, "application/json", data)
}

// Import handles POST /api/v1/quotes/import with a raw JSON document body.
func (h *QuoteHandler) Import(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			dto.AbortWithCode(c, dto.ErrorCodeTooLarge, "import document too large")
			return
		}

		dto.AbortWithCode(c, dto.ErrorCodeBadRequest, "reading request body")

		return
	}

	n, err := h.store.Import(c.Request.Context(), body)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ImportResult{Imported: n})
}

// RegisterRoutes registers the quote routes on rg.
func (h *QuoteHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/categories", h.Categories)

	quotes := rg.Group("/quotes")
	quotes.GET("", h.List)
	quotes.POST("", h.Create)
	quotes.GET("/random", h.Random)
	quotes.GET("/export", h.Export)
	quotes.POST("/import", h.Import)
}
