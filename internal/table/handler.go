package table

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/Rokatacaem/SistemaBillar/internal/api"
)

type Handler struct {
	repo *Repository
}

func NewHandler(db *sqlx.DB) *Handler {
	return &Handler{repo: NewRepository(db)}
}

// @Summary      Floor view
// @Description  All tables with their open sessions and consumption totals.
// @Tags         tables
// @Security     BearerAuth
// @Produce      json
// @Success      200 {array} table.TableWithSession
// @Failure      500 {object} api.ErrorResponse
// @Router       /tables [get]
func (h *Handler) List(c *gin.Context) {
	tables, err := h.repo.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to fetch tables"})
		return
	}
	c.JSON(http.StatusOK, tables)
}

// @Summary      Create table
// @Tags         tables
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request body table.CreateTableRequest true "Table payload"
// @Success      201 {object} table.Table
// @Failure      400 {object} api.ErrorResponse
// @Failure      409 {object} api.ErrorResponse
// @Router       /tables [post]
func (h *Handler) Create(c *gin.Context) {
	var req CreateTableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}
	if !req.Type.Valid() {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid game type"})
		return
	}

	t, err := h.repo.Create(c.Request.Context(), req.Name, req.Type)
	if err != nil {
		if errors.Is(err, ErrDuplicateName) {
			c.JSON(http.StatusConflict, api.ErrorResponse{Error: "Ya existe una mesa con ese nombre"})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to create table"})
		return
	}
	c.JSON(http.StatusCreated, t)
}

// @Summary      Update table
// @Tags         tables
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        tableID path int true "Table ID"
// @Param        request body table.UpdateTableRequest true "Table payload"
// @Success      200 {object} table.Table
// @Failure      400 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Failure      409 {object} api.ErrorResponse
// @Router       /tables/{tableID} [put]
func (h *Handler) Update(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("tableID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid table ID"})
		return
	}

	var req UpdateTableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}
	if !req.Type.Valid() {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid game type"})
		return
	}

	t, err := h.repo.Update(c.Request.Context(), id, req.Name, req.Type)
	if err != nil {
		switch {
		case errors.Is(err, ErrTableNotFound):
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Mesa no encontrada"})
		case errors.Is(err, ErrDuplicateName):
			c.JSON(http.StatusConflict, api.ErrorResponse{Error: "Ya existe una mesa con ese nombre"})
		default:
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to update table"})
		}
		return
	}
	c.JSON(http.StatusOK, t)
}

// @Summary      Delete table
// @Tags         tables
// @Security     BearerAuth
// @Produce      json
// @Param        tableID path int true "Table ID"
// @Success      200 {object} api.MessageResponse
// @Failure      400 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Router       /tables/{tableID} [delete]
func (h *Handler) Delete(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("tableID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid table ID"})
		return
	}

	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		switch {
		case errors.Is(err, ErrTableNotFound):
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Mesa no encontrada"})
		case errors.Is(err, ErrTableOccupied):
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "No se puede eliminar una mesa ocupada"})
		default:
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to delete table"})
		}
		return
	}
	c.JSON(http.StatusOK, api.MessageResponse{Message: "Table deleted"})
}
