package sale

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/Rokatacaem/SistemaBillar/internal/api"
	"github.com/Rokatacaem/SistemaBillar/internal/logger"
	"github.com/Rokatacaem/SistemaBillar/internal/metrics"
	"github.com/Rokatacaem/SistemaBillar/internal/product"
)

type Handler struct {
	repo *Repository
	now  func() time.Time
}

func NewHandler(db *sqlx.DB) *Handler {
	return &Handler{repo: NewRepository(db), now: time.Now}
}

// @Summary      Direct sale
// @Description  Counter sale without a table session.
// @Tags         sales
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request body sale.DirectSaleRequest true "Sale payload"
// @Success      201 {object} sale.Sale
// @Failure      400 {object} api.ErrorResponse
// @Failure      409 {object} api.ErrorResponse
// @Router       /sales [post]
func (h *Handler) CreateDirect(c *gin.Context) {
	var req DirectSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	s, err := h.repo.CreateDirect(c.Request.Context(), req, h.now())
	if err != nil {
		h.saleError(c, err, "Failed to record sale")
		return
	}
	metrics.RecordSale(string(s.Method), s.Total)
	c.JSON(http.StatusCreated, s)
}

// @Summary      Product return
// @Description  Refunds a sold product as a negative sale. WRONG returns restock, DEFECTIVE returns write off.
// @Tags         sales
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request body sale.ReturnRequest true "Return payload"
// @Success      201 {object} sale.Sale
// @Failure      400 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Router       /sales/returns [post]
func (h *Handler) Return(c *gin.Context) {
	var req ReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	s, err := h.repo.Return(c.Request.Context(), req, h.now())
	if err != nil {
		h.saleError(c, err, "Failed to record return")
		return
	}
	c.JSON(http.StatusCreated, s)
}

// @Summary      Product exchange
// @Description  Swaps one product for another, billing the price difference.
// @Tags         sales
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request body sale.ExchangeRequest true "Exchange payload"
// @Success      201 {object} sale.Sale
// @Failure      400 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Failure      409 {object} api.ErrorResponse
// @Router       /sales/exchanges [post]
func (h *Handler) Exchange(c *gin.Context) {
	var req ExchangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	s, err := h.repo.Exchange(c.Request.Context(), req, h.now())
	if err != nil {
		h.saleError(c, err, "Failed to record exchange")
		return
	}
	c.JSON(http.StatusCreated, s)
}

func (h *Handler) saleError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrPayerRequired):
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Venta a cuenta requiere un socio registrado"})
	case errors.Is(err, ErrProductNotFound):
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Producto no encontrado"})
	case errors.Is(err, product.ErrInsufficientStock):
		metrics.RecordInsufficientStock()
		c.JSON(http.StatusConflict, api.ErrorResponse{Error: "Stock insuficiente: " + err.Error()})
	default:
		logger.Error("sale operation failed", "err", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: fallback})
	}
}
