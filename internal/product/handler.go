package product

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/Rokatacaem/SistemaBillar/internal/api"
	"github.com/Rokatacaem/SistemaBillar/internal/auth"
)

type Handler struct {
	repo *Repository
	now  func() time.Time
}

func NewHandler(db *sqlx.DB) *Handler {
	return &Handler{
		repo: NewRepository(db),
		now:  time.Now,
	}
}

// @Summary      List products
// @Tags         products
// @Security     BearerAuth
// @Produce      json
// @Success      200 {array} product.Product
// @Failure      500 {object} api.ErrorResponse
// @Router       /products [get]
func (h *Handler) List(c *gin.Context) {
	products, err := h.repo.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to fetch products"})
		return
	}
	c.JSON(http.StatusOK, products)
}

// @Summary      Create product
// @Tags         products
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request body product.CreateProductRequest true "Product payload"
// @Success      201 {object} product.Product
// @Failure      400 {object} api.ErrorResponse
// @Failure      409 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /products [post]
func (h *Handler) Create(c *gin.Context) {
	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	p, err := h.repo.Create(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, ErrDuplicateName) {
			c.JSON(http.StatusConflict, api.ErrorResponse{Error: "Product name already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to create product"})
		return
	}
	c.JSON(http.StatusCreated, p)
}

// @Summary      Update product
// @Tags         products
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        productID path int true "Product ID"
// @Param        request body product.UpdateProductRequest true "Product payload"
// @Success      200 {object} product.Product
// @Failure      400 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /products/{productID} [put]
func (h *Handler) Update(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("productID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid product ID"})
		return
	}

	var req UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	p, err := h.repo.Update(c.Request.Context(), id, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrProductNotFound):
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Product not found"})
		case errors.Is(err, ErrDuplicateName):
			c.JSON(http.StatusConflict, api.ErrorResponse{Error: "Product name already exists"})
		default:
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to update product"})
		}
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary      Delete product
// @Tags         products
// @Security     BearerAuth
// @Produce      json
// @Param        productID path int true "Product ID"
// @Success      200 {object} api.MessageResponse
// @Failure      400 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /products/{productID} [delete]
func (h *Handler) Delete(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("productID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid product ID"})
		return
	}

	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, ErrProductNotFound) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Product not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to delete product"})
		return
	}
	c.JSON(http.StatusOK, api.MessageResponse{Message: "Product deleted"})
}

// @Summary      Add stock
// @Description  Registers a stock purchase or adjustment with history.
// @Tags         products
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        productID path int true "Product ID"
// @Param        request body product.AddStockRequest true "Stock movement"
// @Success      200 {object} gin.H
// @Failure      400 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /products/{productID}/stock [post]
func (h *Handler) AddStock(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("productID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid product ID"})
		return
	}

	var req AddStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	var createdBy *int
	if userID, ok := auth.GetUserID(c); ok {
		createdBy = &userID
	}

	newStock, err := h.repo.AddStock(c.Request.Context(), id, req.Amount, req.Type, req.ReferenceDoc, req.Provider, createdBy, h.now())
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Product not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to add stock"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"new_stock": newStock})
}

// @Summary      Stock history
// @Tags         products
// @Security     BearerAuth
// @Produce      json
// @Param        productID path int true "Product ID"
// @Success      200 {array} product.StockMovement
// @Failure      400 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /products/{productID}/stock [get]
func (h *Handler) StockHistory(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("productID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid product ID"})
		return
	}

	movements, err := h.repo.StockHistory(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to fetch stock history"})
		return
	}
	c.JSON(http.StatusOK, movements)
}
