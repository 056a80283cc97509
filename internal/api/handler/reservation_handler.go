package handler

import (
	"errors"
	"net/http"
	"strconv"

	"mobypark/internal/domain"
	"mobypark/internal/repository"
	"mobypark/internal/service"

	"github.com/gin-gonic/gin"
)

type ReservationHandler struct {
	reservationService *service.ReservationService
}

func NewReservationHandler(rs *service.ReservationService) *ReservationHandler {
	return &ReservationHandler{reservationService: rs}
}

// POST /reservations
func (h *ReservationHandler) CreateReservation(c *gin.Context) {
	var dto domain.CreateReservationDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reservation, err := h.reservationService.Create(c.Request.Context(), dto)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		if errors.Is(err, repository.ErrLotFull) {
			c.JSON(http.StatusConflict, gin.H{"error": "Bãi đỗ xe đã hết chỗ để giữ trước"})
			return
		}
		if errors.Is(err, service.ErrInvalidReservationStatus) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể tạo reservation", "details": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, reservation)
}

// GET /reservations/:id
func (h *ReservationHandler) GetReservationByID(c *gin.Context) {
	idStr := c.Param("id")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID reservation không hợp lệ"})
		return
	}

	reservation, err := h.reservationService.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy reservation"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi khi lấy thông tin reservation"})
		return
	}
	c.JSON(http.StatusOK, reservation)
}

// GET /users/:id/reservations
func (h *ReservationHandler) GetReservationsByUser(c *gin.Context) {
	idStr := c.Param("id")
	userID, err := strconv.Atoi(idStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID người dùng không hợp lệ"})
		return
	}

	reservations, err := h.reservationService.GetByUserID(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi khi lấy danh sách reservation"})
		return
	}
	c.JSON(http.StatusOK, reservations)
}

// PUT /reservations/:id
func (h *ReservationHandler) UpdateReservation(c *gin.Context) {
	idStr := c.Param("id")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID reservation không hợp lệ"})
		return
	}

	var dto domain.UpdateReservationDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reservation, err := h.reservationService.Update(c.Request.Context(), id, dto)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy reservation để cập nhật"})
			return
		}
		if errors.Is(err, service.ErrInvalidReservationStatus) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể cập nhật reservation", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, reservation)
}

// DELETE /reservations/:id
func (h *ReservationHandler) DeleteReservation(c *gin.Context) {
	idStr := c.Param("id")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID reservation không hợp lệ"})
		return
	}

	err = h.reservationService.Delete(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy reservation để xóa"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể xóa reservation", "details": err.Error()})
		return
	}
	c.JSON(http.StatusNoContent, nil)
}
