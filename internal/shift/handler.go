package shift

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/Rokatacaem/SistemaBillar/internal/api"
	"github.com/Rokatacaem/SistemaBillar/internal/auth"
	"github.com/Rokatacaem/SistemaBillar/internal/logger"
	"github.com/Rokatacaem/SistemaBillar/internal/notify"
)

type Handler struct {
	svc Service
}

func NewHandler(db *sqlx.DB, notifier notify.Notifier) *Handler {
	return &Handler{svc: NewService(NewRepository(db), notifier)}
}

// @Summary      Open shift
// @Tags         shifts
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request body shift.OpenShiftRequest true "Shift payload"
// @Success      201 {object} shift.Shift
// @Failure      400 {object} api.ErrorResponse
// @Failure      409 {object} api.ErrorResponse
// @Router       /shifts [post]
func (h *Handler) Open(c *gin.Context) {
	var req OpenShiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	var staffID *int
	if id, ok := auth.GetUserID(c); ok {
		staffID = &id
	}

	opened, err := h.svc.Open(c.Request.Context(), staffID, req.StaffName, req)
	if err != nil {
		if errors.Is(err, ErrShiftAlreadyOpen) {
			c.JSON(http.StatusConflict, api.ErrorResponse{Error: "Ya existe un turno abierto"})
			return
		}
		logger.Error("open shift failed", "err", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to open shift"})
		return
	}
	c.JSON(http.StatusCreated, opened)
}

// @Summary      Current shift
// @Description  The open shift with live drawer totals.
// @Tags         shifts
// @Security     BearerAuth
// @Produce      json
// @Success      200 {object} shift.CurrentShiftResponse
// @Failure      404 {object} api.ErrorResponse
// @Router       /shifts/current [get]
func (h *Handler) Current(c *gin.Context) {
	current, err := h.svc.Current(c.Request.Context())
	if err != nil {
		if errors.Is(err, ErrNoOpenShift) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "No hay turno abierto"})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to fetch shift"})
		return
	}
	c.JSON(http.StatusOK, current)
}

// @Summary      Add expense
// @Tags         shifts
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request body shift.AddExpenseRequest true "Expense payload"
// @Success      201 {object} shift.Expense
// @Failure      400 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Router       /shifts/expenses [post]
func (h *Handler) AddExpense(c *gin.Context) {
	var req AddExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	var createdBy *int
	if id, ok := auth.GetUserID(c); ok {
		createdBy = &id
	}

	e, err := h.svc.AddExpense(c.Request.Context(), createdBy, req)
	if err != nil {
		if errors.Is(err, ErrNoOpenShift) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "No hay turno abierto"})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to add expense"})
		return
	}
	c.JSON(http.StatusCreated, e)
}

// @Summary      Close shift
// @Description  Closes the open shift and returns the reconciliation report.
// @Tags         shifts
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request body shift.CloseShiftRequest true "Closing payload"
// @Success      200 {object} shift.CloseReport
// @Failure      400 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Failure      409 {object} api.ErrorResponse
// @Router       /shifts/close [post]
func (h *Handler) Close(c *gin.Context) {
	var req CloseShiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	var closedBy *int
	if id, ok := auth.GetUserID(c); ok {
		closedBy = &id
	}

	report, err := h.svc.Close(c.Request.Context(), closedBy, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrNoOpenShift):
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "No hay turno abierto"})
		case errors.Is(err, ErrShiftConflict):
			c.JSON(http.StatusConflict, api.ErrorResponse{Error: "El turno ya fue cerrado"})
		default:
			logger.Error("close shift failed", "err", err)
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to close shift"})
		}
		return
	}
	c.JSON(http.StatusOK, report)
}

// @Summary      Shift expenses
// @Tags         shifts
// @Security     BearerAuth
// @Produce      json
// @Param        shiftID path int true "Shift ID"
// @Success      200 {array} shift.Expense
// @Failure      400 {object} api.ErrorResponse
// @Router       /shifts/{shiftID}/expenses [get]
func (h *Handler) Expenses(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("shiftID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid shift ID"})
		return
	}

	expenses, err := h.svc.Expenses(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to fetch expenses"})
		return
	}
	c.JSON(http.StatusOK, expenses)
}

// @Summary      Shift history
// @Tags         shifts
// @Security     BearerAuth
// @Produce      json
// @Param        limit query int false "Max shifts to return"
// @Success      200 {array} shift.Shift
// @Router       /shifts/history [get]
func (h *Handler) History(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "30"))

	shifts, err := h.svc.History(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to fetch shift history"})
		return
	}
	c.JSON(http.StatusOK, shifts)
}
