package handler

import (
	"errors"
	"net/http"

	"mobypark/internal/repository"
	"mobypark/internal/service"

	"github.com/gin-gonic/gin"
)

type BillingHandler struct {
	billingService *service.BillingService
}

func NewBillingHandler(bs *service.BillingService) *BillingHandler {
	return &BillingHandler{billingService: bs}
}

// GET /billing
func (h *BillingHandler) GetAllBillings(c *gin.Context) {
	billings, err := h.billingService.GetAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi khi tổng hợp hóa đơn"})
		return
	}
	c.JSON(http.StatusOK, billings)
}

// GET /billing/:username
func (h *BillingHandler) GetBillingByUser(c *gin.Context) {
	username := c.Param("username")
	if username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Thiếu tên người dùng"})
		return
	}

	billing, err := h.billingService.GetByUser(c.Request.Context(), username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi khi tổng hợp hóa đơn người dùng"})
		return
	}
	c.JSON(http.StatusOK, billing)
}
