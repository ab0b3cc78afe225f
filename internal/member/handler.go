package member

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/Rokatacaem/SistemaBillar/internal/api"
	"github.com/Rokatacaem/SistemaBillar/internal/auth"
	"github.com/Rokatacaem/SistemaBillar/internal/sale"
)

type Handler struct {
	service  Service
	saleRepo *sale.Repository
}

func NewHandler(db *sqlx.DB, jwtSecret string) *Handler {
	return &Handler{
		service:  NewService(NewRepository(db), jwtSecret),
		saleRepo: sale.NewRepository(db),
	}
}

// @Summary      Staff login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body member.LoginRequest true "Credentials"
// @Success      200 {object} gin.H
// @Failure      400 {object} api.ErrorResponse
// @Failure      401 {object} api.ErrorResponse
// @Router       /auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	m, accessToken, refreshToken, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "Usuario o contraseña incorrectos"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"user": gin.H{
			"id":   m.ID,
			"name": m.FullName,
			"role": m.Role,
			"rut":  m.RUT,
			"type": m.Type,
		},
	})
}

// @Summary      Change own password
// @Tags         auth
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request body member.ChangePasswordRequest true "Passwords"
// @Success      200 {object} api.MessageResponse
// @Failure      400 {object} api.ErrorResponse
// @Failure      401 {object} api.ErrorResponse
// @Router       /auth/change-password [put]
func (h *Handler) ChangePassword(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	if err := h.service.ChangePassword(c.Request.Context(), userID, req); err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "Contraseña actual incorrecta"})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to change password"})
		return
	}
	c.JSON(http.StatusOK, api.MessageResponse{Message: "Password updated"})
}

// @Summary      List members
// @Tags         members
// @Security     BearerAuth
// @Produce      json
// @Param        type query string false "Tier filter"
// @Param        role query string false "Role filter"
// @Success      200 {array} member.Member
// @Failure      500 {object} api.ErrorResponse
// @Router       /users [get]
func (h *Handler) List(c *gin.Context) {
	members, err := h.service.List(c.Request.Context(), c.Query("type"), c.Query("role"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to fetch members"})
		return
	}
	c.JSON(http.StatusOK, members)
}

// @Summary      List socios with membership status
// @Tags         members
// @Security     BearerAuth
// @Produce      json
// @Success      200 {array} member.MemberWithMembership
// @Failure      500 {object} api.ErrorResponse
// @Router       /members [get]
func (h *Handler) ListSocios(c *gin.Context) {
	members, err := h.service.ListSocios(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to fetch socios"})
		return
	}
	c.JSON(http.StatusOK, members)
}

// @Summary      Create member
// @Tags         members
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request body member.CreateMemberRequest true "Member payload"
// @Success      201 {object} member.Member
// @Failure      400 {object} api.ErrorResponse
// @Failure      409 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /users [post]
func (h *Handler) Create(c *gin.Context) {
	var req CreateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	m, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, ErrRUTExists) {
			c.JSON(http.StatusConflict, api.ErrorResponse{Error: "El RUT ya está registrado"})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to create member"})
		return
	}
	c.JSON(http.StatusCreated, m)
}

// @Summary      Get member
// @Tags         members
// @Security     BearerAuth
// @Produce      json
// @Param        memberID path int true "Member ID"
// @Success      200 {object} member.Member
// @Failure      404 {object} api.ErrorResponse
// @Router       /users/{memberID} [get]
func (h *Handler) Get(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("memberID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid member ID"})
		return
	}

	m, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrMemberNotFound) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Member not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to fetch member"})
		return
	}
	c.JSON(http.StatusOK, m)
}

// @Summary      Update member
// @Tags         members
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        memberID path int true "Member ID"
// @Param        request body member.UpdateMemberRequest true "Member payload"
// @Success      200 {object} api.MessageResponse
// @Failure      400 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Router       /users/{memberID} [put]
func (h *Handler) Update(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("memberID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid member ID"})
		return
	}

	var req UpdateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	if err := h.service.Update(c.Request.Context(), id, req); err != nil {
		if errors.Is(err, ErrMemberNotFound) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Member not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to update member"})
		return
	}
	c.JSON(http.StatusOK, api.MessageResponse{Message: "Member updated"})
}

// @Summary      Delete member
// @Description  Soft delete: the member row stays for ledger history.
// @Tags         members
// @Security     BearerAuth
// @Produce      json
// @Param        memberID path int true "Member ID"
// @Success      200 {object} api.MessageResponse
// @Failure      404 {object} api.ErrorResponse
// @Router       /users/{memberID} [delete]
func (h *Handler) Delete(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("memberID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid member ID"})
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, ErrMemberNotFound) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Member not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to delete member"})
		return
	}
	c.JSON(http.StatusOK, api.MessageResponse{Message: "Member deleted"})
}

// @Summary      Pay down member debt
// @Tags         members
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        memberID path int true "Member ID"
// @Param        request body member.PayDebtRequest true "Payment"
// @Success      200 {object} gin.H
// @Failure      400 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Router       /users/{memberID}/pay [post]
func (h *Handler) PayDebt(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("memberID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid member ID"})
		return
	}

	var req PayDebtRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	newDebt, err := h.service.PayDebt(c.Request.Context(), id, req)
	if err != nil {
		if errors.Is(err, ErrMemberNotFound) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Member not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to process payment"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"new_debt": newDebt})
}

// @Summary      Pay membership
// @Description  Extends the membership expiry and records the payment.
// @Tags         members
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        memberID path int true "Member ID"
// @Param        request body member.PayMembershipRequest true "Payment"
// @Success      200 {object} gin.H
// @Failure      400 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Router       /members/{memberID}/pay-membership [post]
func (h *Handler) PayMembership(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("memberID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid member ID"})
		return
	}

	var req PayMembershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	newExpiry, err := h.service.PayMembership(c.Request.Context(), id, req)
	if err != nil {
		if errors.Is(err, ErrMemberNotFound) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Socio no encontrado"})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to register payment"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"new_expiry": newExpiry})
}

// @Summary      Member purchase history
// @Tags         members
// @Security     BearerAuth
// @Produce      json
// @Param        memberID path int true "Member ID"
// @Success      200 {array} sale.Sale
// @Failure      400 {object} api.ErrorResponse
// @Router       /users/{memberID}/sales [get]
func (h *Handler) SalesHistory(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("memberID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid member ID"})
		return
	}

	sales, err := h.saleRepo.ListByUser(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to fetch purchase history"})
		return
	}
	c.JSON(http.StatusOK, sales)
}
