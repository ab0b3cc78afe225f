package session

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/Rokatacaem/SistemaBillar/internal/api"
	"github.com/Rokatacaem/SistemaBillar/internal/logger"
	"github.com/Rokatacaem/SistemaBillar/internal/metrics"
	"github.com/Rokatacaem/SistemaBillar/internal/product"
	"github.com/Rokatacaem/SistemaBillar/internal/sale"
)

type Handler struct {
	svc Service
}

func NewHandler(db *sqlx.DB) *Handler {
	return &Handler{svc: NewService(NewRepository(db))}
}

// @Summary      Open session
// @Description  Opens a session on a free table and snapshots each player's hourly rate.
// @Tags         sessions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request body session.OpenSessionRequest true "Session payload"
// @Success      201 {object} session.SessionDetail
// @Failure      400 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Failure      409 {object} api.ErrorResponse
// @Router       /sessions [post]
func (h *Handler) Start(c *gin.Context) {
	var req OpenSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	d, err := h.svc.Start(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrTableNotFound):
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Mesa no encontrada"})
		case errors.Is(err, ErrTableOccupied):
			c.JSON(http.StatusConflict, api.ErrorResponse{Error: "La mesa ya está ocupada"})
		case errors.Is(err, ErrNotEnoughPlayers):
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Las sesiones de cartas requieren al menos dos jugadores"})
		default:
			logger.Error("open session failed", "table_id", req.TableID, "err", err)
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to open session"})
		}
		return
	}
	c.JSON(http.StatusCreated, d)
}

// @Summary      Session detail
// @Tags         sessions
// @Security     BearerAuth
// @Produce      json
// @Param        sessionID path int true "Session ID"
// @Success      200 {object} session.SessionDetail
// @Failure      404 {object} api.ErrorResponse
// @Router       /sessions/{sessionID} [get]
func (h *Handler) Detail(c *gin.Context) {
	id, ok := pathID(c, "sessionID")
	if !ok {
		return
	}
	d, err := h.svc.Detail(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Sesión no encontrada"})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to fetch session"})
		return
	}
	c.JSON(http.StatusOK, d)
}

// @Summary      Active session on table
// @Tags         sessions
// @Security     BearerAuth
// @Produce      json
// @Param        tableID path int true "Table ID"
// @Success      200 {object} session.SessionDetail
// @Failure      404 {object} api.ErrorResponse
// @Router       /tables/{tableID}/session [get]
func (h *Handler) ActiveByTable(c *gin.Context) {
	id, ok := pathID(c, "tableID")
	if !ok {
		return
	}
	d, err := h.svc.ActiveByTable(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNoActiveSession) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "La mesa no tiene sesión activa"})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to fetch session"})
		return
	}
	c.JSON(http.StatusOK, d)
}

// @Summary      Add player
// @Tags         sessions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        sessionID path int true "Session ID"
// @Param        request body session.PlayerRequest true "Player payload"
// @Success      201 {object} session.SessionPlayer
// @Failure      400 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Router       /sessions/{sessionID}/players [post]
func (h *Handler) AddPlayer(c *gin.Context) {
	id, ok := pathID(c, "sessionID")
	if !ok {
		return
	}
	var req PlayerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	p, err := h.svc.AddPlayer(c.Request.Context(), id, req)
	if err != nil {
		h.sessionError(c, err, "Failed to add player")
		return
	}
	c.JSON(http.StatusCreated, p)
}

// @Summary      End player early
// @Description  Closes one player's clock and bills their time immediately.
// @Tags         sessions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        sessionID path int true "Session ID"
// @Param        playerID path int true "Player ID"
// @Param        request body session.EndPlayerRequest true "Payment payload"
// @Success      200 {object} sale.Sale
// @Failure      400 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Failure      409 {object} api.ErrorResponse
// @Router       /sessions/{sessionID}/players/{playerID}/end [post]
func (h *Handler) EndPlayer(c *gin.Context) {
	sessionID, ok := pathID(c, "sessionID")
	if !ok {
		return
	}
	playerID, ok := pathID(c, "playerID")
	if !ok {
		return
	}
	var req EndPlayerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	billed, err := h.svc.EndPlayer(c.Request.Context(), sessionID, playerID, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrPlayerNotFound):
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Jugador no encontrado"})
		case errors.Is(err, ErrPlayerAlreadyEnded):
			c.JSON(http.StatusConflict, api.ErrorResponse{Error: "El jugador ya salió de la sesión"})
		case errors.Is(err, sale.ErrPayerRequired):
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Venta a cuenta requiere un socio registrado"})
		default:
			h.sessionError(c, err, "Failed to end player")
		}
		return
	}
	c.JSON(http.StatusOK, billed)
}

// @Summary      Add consumption
// @Tags         sessions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        sessionID path int true "Session ID"
// @Param        request body session.AddItemRequest true "Item payload"
// @Success      201 {object} session.SessionItem
// @Failure      400 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Router       /sessions/{sessionID}/items [post]
func (h *Handler) AddItem(c *gin.Context) {
	id, ok := pathID(c, "sessionID")
	if !ok {
		return
	}
	var req AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	item, err := h.svc.AddItem(c.Request.Context(), id, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrProductNotFound):
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Producto no encontrado"})
		case errors.Is(err, product.ErrInsufficientStock):
			metrics.RecordInsufficientStock()
			c.JSON(http.StatusConflict, api.ErrorResponse{Error: "Stock insuficiente: " + err.Error()})
		default:
			h.sessionError(c, err, "Failed to add item")
		}
		return
	}
	c.JSON(http.StatusCreated, item)
}

// @Summary      Settle session
// @Description  Closes the table's active session and bills time plus consumption.
// @Tags         sessions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        tableID path int true "Table ID"
// @Param        request body session.SettleRequest true "Settlement payload"
// @Success      200 {object} session.SettleResult
// @Failure      400 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Failure      409 {object} api.ErrorResponse
// @Router       /tables/{tableID}/settle [post]
func (h *Handler) Settle(c *gin.Context) {
	tableID, ok := pathID(c, "tableID")
	if !ok {
		return
	}
	var req SettleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	result, err := h.svc.Settle(c.Request.Context(), tableID, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrNoActiveSession):
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "La mesa no tiene sesión activa"})
		case errors.Is(err, ErrInvalidSplit):
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Los porcentajes deben sumar 100"})
		case errors.Is(err, ErrSettlementConflict):
			c.JSON(http.StatusConflict, api.ErrorResponse{Error: "La sesión ya fue cobrada"})
		case errors.Is(err, sale.ErrPayerRequired):
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Venta a cuenta requiere un socio registrado"})
		default:
			logger.Error("settlement failed", "table_id", tableID, "err", err)
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to settle session"})
		}
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) sessionError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Sesión no encontrada"})
	case errors.Is(err, ErrSessionNotActive):
		c.JSON(http.StatusConflict, api.ErrorResponse{Error: "La sesión ya fue cerrada"})
	case errors.Is(err, ErrNotCardsSession):
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Solo las sesiones de cartas llevan jugadores"})
	default:
		logger.Error("session operation failed", "err", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: fallback})
	}
}

func pathID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid " + name})
		return 0, false
	}
	return id, true
}
