package api

import (
	"mobypark/internal/api/handler"
	"mobypark/internal/api/middleware"
	"mobypark/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRouter(as *service.AuthService, ps *service.ParkingService, ss *service.SessionService,
	rs *service.ReservationService, pays *service.PaymentService, bs *service.BillingService,
	vs *service.VehicleService, authMw *middleware.AuthMiddleware, wsManager *handler.WebSocketManager) *gin.Engine {
	r := gin.Default()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	// WebSocket endpoint (không cần auth cho real-time connection)
	wsHandler := handler.NewWebSocketHandler(wsManager)
	r.GET("/ws", wsHandler.HandleWebSocket)

	// Prometheus metrics
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authHandler := handler.NewAuthHandler(as)
	authRoutes := r.Group("/auth")
	{
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.POST("/login", authHandler.Login)
		authRoutes.POST("/logout", authHandler.Logout)
	}

	v1 := r.Group("/api/v1")
	v1.Use(authMw.Authenticate())
	{
		lotH := handler.NewParkingLotHandler(ps)
		lotRoutes := v1.Group("/parking-lots")
		{
			lotRoutes.POST("", authMw.AuthorizeRole("admin"), lotH.CreateParkingLot)
			lotRoutes.GET("", lotH.GetAllParkingLots)
			lotRoutes.GET("/:id", lotH.GetParkingLotByID)
			lotRoutes.PUT("/:id", authMw.AuthorizeRole("admin"), lotH.UpdateParkingLot)
			lotRoutes.DELETE("/:id", authMw.AuthorizeRole("admin"), lotH.DeleteParkingLot)
		}

		sessionH := handler.NewParkingSessionHandler(ss)
		sessionRoutes := v1.Group("/parking-sessions")
		{
			sessionRoutes.POST("", sessionH.StartSession)
			sessionRoutes.POST("/:id/stop", sessionH.StopSession)
			sessionRoutes.GET("", sessionH.FindSessions)
			sessionRoutes.GET("/:id", sessionH.GetSessionByID)
		}

		reservationH := handler.NewReservationHandler(rs)
		reservationRoutes := v1.Group("/reservations")
		{
			reservationRoutes.POST("", reservationH.CreateReservation)
			reservationRoutes.GET("/:id", reservationH.GetReservationByID)
			reservationRoutes.PUT("/:id", reservationH.UpdateReservation)
			reservationRoutes.DELETE("/:id", reservationH.DeleteReservation)
		}

		vehicleH := handler.NewVehicleHandler(vs)
		vehicleRoutes := v1.Group("/vehicles")
		{
			vehicleRoutes.POST("", vehicleH.CreateVehicle)
			vehicleRoutes.GET("/:id", vehicleH.GetVehicleByID)
			vehicleRoutes.DELETE("/:id", vehicleH.DeleteVehicle)
		}

		userRoutes := v1.Group("/users")
		{
			userRoutes.GET("/:id/vehicles", vehicleH.GetVehiclesByUser)
			userRoutes.GET("/:id/reservations", reservationH.GetReservationsByUser)
		}

		paymentH := handler.NewPaymentHandler(pays)
		paymentRoutes := v1.Group("/payments")
		{
			paymentRoutes.GET("/unpaid/:licensePlate", paymentH.GetUnpaidSessions)
			paymentRoutes.POST("/session", paymentH.PaySingleSession)
			paymentRoutes.POST("/aggregate", paymentH.CreateAggregatePayment)
			paymentRoutes.GET("", paymentH.GetAllPayments)
			paymentRoutes.GET("/:id", paymentH.GetPaymentByID)
			paymentRoutes.DELETE("/:id", authMw.AuthorizeRole("admin"), paymentH.DeletePayment)
		}

		billingH := handler.NewBillingHandler(bs)
		billingRoutes := v1.Group("/billing")
		billingRoutes.Use(authMw.AuthorizeRole("admin"))
		{
			billingRoutes.GET("", billingH.GetAllBillings)
			billingRoutes.GET("/:username", billingH.GetBillingByUser)
		}
	}
	return r
}
