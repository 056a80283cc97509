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

type VehicleHandler struct {
	vehicleService *service.VehicleService
}

func NewVehicleHandler(vs *service.VehicleService) *VehicleHandler {
	return &VehicleHandler{vehicleService: vs}
}

// POST /vehicles
func (h *VehicleHandler) CreateVehicle(c *gin.Context) {
	var dto domain.VehicleDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	vehicle, err := h.vehicleService.Create(c.Request.Context(), dto)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			c.JSON(http.StatusConflict, gin.H{"error": "Biển số xe đã được đăng ký"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể đăng ký xe", "details": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, vehicle)
}

// GET /vehicles/:id
func (h *VehicleHandler) GetVehicleByID(c *gin.Context) {
	idStr := c.Param("id")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID xe không hợp lệ"})
		return
	}

	vehicle, err := h.vehicleService.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy xe"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi khi lấy thông tin xe"})
		return
	}
	c.JSON(http.StatusOK, vehicle)
}

// GET /users/:id/vehicles
func (h *VehicleHandler) GetVehiclesByUser(c *gin.Context) {
	idStr := c.Param("id")
	userID, err := strconv.Atoi(idStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID người dùng không hợp lệ"})
		return
	}

	vehicles, err := h.vehicleService.GetByUserID(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi khi lấy danh sách xe"})
		return
	}
	c.JSON(http.StatusOK, vehicles)
}

// DELETE /vehicles/:id
func (h *VehicleHandler) DeleteVehicle(c *gin.Context) {
	idStr := c.Param("id")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID xe không hợp lệ"})
		return
	}

	err = h.vehicleService.Delete(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy xe để xóa"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể xóa xe", "details": err.Error()})
		return
	}
	c.JSON(http.StatusNoContent, nil)
}
