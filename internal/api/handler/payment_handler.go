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

type PaymentHandler struct {
	paymentService *service.PaymentService
}

func NewPaymentHandler(ps *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: ps}
}

// GET /payments/unpaid/:licensePlate
func (h *PaymentHandler) GetUnpaidSessions(c *gin.Context) {
	licensePlate := c.Param("licensePlate")
	if licensePlate == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Thiếu biển số xe"})
		return
	}

	sessions, err := h.paymentService.GetUnpaidSessions(c.Request.Context(), licensePlate)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi khi tìm các phiên chưa thanh toán"})
		return
	}
	c.JSON(http.StatusOK, sessions)
}

// POST /payments/session
func (h *PaymentHandler) PaySingleSession(c *gin.Context) {
	var dto domain.PaySessionDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	payment, err := h.paymentService.PaySingleSession(c.Request.Context(), dto)
	if err != nil {
		if errors.Is(err, service.ErrNoUnpaidSession) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể thanh toán phiên đỗ xe", "details": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, payment)
}

// POST /payments/aggregate
func (h *PaymentHandler) CreateAggregatePayment(c *gin.Context) {
	var dto domain.AggregatePaymentDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	payment, err := h.paymentService.CreateAggregatePayment(c.Request.Context(), dto)
	if err != nil {
		if errors.Is(err, service.ErrNoUnpaidSessions) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể tạo payment gộp", "details": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, payment)
}

// GET /payments
func (h *PaymentHandler) GetAllPayments(c *gin.Context) {
	payments, err := h.paymentService.GetAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi khi lấy danh sách payment"})
		return
	}
	c.JSON(http.StatusOK, payments)
}

// GET /payments/:id
func (h *PaymentHandler) GetPaymentByID(c *gin.Context) {
	idStr := c.Param("id")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID payment không hợp lệ"})
		return
	}

	payment, err := h.paymentService.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy payment"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi khi lấy thông tin payment"})
		return
	}
	c.JSON(http.StatusOK, payment)
}

// DELETE /payments/:id
func (h *PaymentHandler) DeletePayment(c *gin.Context) {
	idStr := c.Param("id")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID payment không hợp lệ"})
		return
	}

	deleted, err := h.paymentService.Delete(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể xóa payment", "details": err.Error()})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy payment để xóa"})
		return
	}
	c.JSON(http.StatusNoContent, nil)
}
