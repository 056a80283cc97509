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

type ParkingSessionHandler struct {
	sessionService *service.SessionService
}

func NewParkingSessionHandler(ss *service.SessionService) *ParkingSessionHandler {
	return &ParkingSessionHandler{sessionService: ss}
}

// POST /sessions
func (h *ParkingSessionHandler) StartSession(c *gin.Context) {
	var dto domain.StartSessionDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.sessionService.StartSession(c.Request.Context(), dto)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy bãi đỗ xe"})
			return
		}
		if errors.Is(err, repository.ErrLotFull) {
			c.JSON(http.StatusConflict, gin.H{"error": "Bãi đỗ xe đã đầy"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể bắt đầu phiên đỗ xe", "details": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, session)
}

// POST /sessions/:id/stop
func (h *ParkingSessionHandler) StopSession(c *gin.Context) {
	idStr := c.Param("id")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID phiên không hợp lệ"})
		return
	}

	session, err := h.sessionService.StopSession(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy phiên đỗ xe"})
			return
		}
		if errors.Is(err, service.ErrSessionAlreadyStopped) || errors.Is(err, service.ErrSessionSettled) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể kết thúc phiên đỗ xe", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, session)
}

// GET /sessions/:id
func (h *ParkingSessionHandler) GetSessionByID(c *gin.Context) {
	idStr := c.Param("id")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID phiên không hợp lệ"})
		return
	}

	session, err := h.sessionService.GetSessionByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy phiên đỗ xe"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi khi lấy thông tin phiên đỗ xe"})
		return
	}
	c.JSON(http.StatusOK, session)
}

// GET /sessions?lotId=&licensePlate=&paymentStatus=&active=
func (h *ParkingSessionHandler) FindSessions(c *gin.Context) {
	var filter domain.SessionFilterDTO
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sessions, err := h.sessionService.FindSessions(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi khi tìm phiên đỗ xe"})
		return
	}
	c.JSON(http.StatusOK, sessions)
}
