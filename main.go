package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mobypark/internal/api"
	"mobypark/internal/api/handler"
	"mobypark/internal/api/middleware"
	"mobypark/internal/clock"
	"mobypark/internal/config"
	"mobypark/internal/repository/postgresql"
	"mobypark/internal/service"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()
	log.Println("Cấu hình đã được tải.")

	// 2. Chạy migrations trước khi mở pool chính
	if err := runMigrations(cfg); err != nil {
		log.Fatalf("Không thể chạy migrations: %v", err)
	}
	log.Println("Migrations đã được áp dụng.")

	// 3. Setup Database Connection
	db, err := postgresql.NewDB(cfg)
	if err != nil {
		log.Fatalf("Không thể kết nối database: %v", err)
	}
	defer db.Close()
	log.Println("Đã kết nối database thành công!")

	// 4. Session store (Redis) cho token, có thể tắt
	var tokenStore service.TokenStore
	if cfg.RedisAddr == "" {
		log.Println("CẢNH BÁO: REDIS_ADDR chưa được cấu hình. Token sẽ không thu hồi được khi logout.")
	} else {
		redisClient, err := service.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			log.Fatalf("Không thể kết nối Redis: %v", err)
		}
		defer redisClient.Close()
		tokenStore = service.NewRedisTokenStore(redisClient)
		log.Println("Đã kết nối Redis session store.")
	}

	// 5. Initialize Repositories
	userRepo := postgresql.NewPgUserRepository(db)
	parkingLotRepo := postgresql.NewPgParkingLotRepository(db)
	vehicleRepo := postgresql.NewPgVehicleRepository(db)
	reservationRepo := postgresql.NewPgReservationRepository(db)
	sessionRepo := postgresql.NewPgParkingSessionRepository(db)
	paymentRepo := postgresql.NewPgPaymentRepository(db)

	// init websocket manager
	webSocketManager := handler.NewWebSocketManager()
	go webSocketManager.Start()
	log.Println("WebSocket Manager đã được khởi động.")

	// 6. Initialize Services
	clk := clock.NewSystem()
	authService := service.NewAuthService(userRepo, tokenStore, cfg.JWTSecret, cfg.JWTExpirationHours)
	parkingService := service.NewParkingService(parkingLotRepo, webSocketManager)
	sessionService := service.NewSessionService(sessionRepo, parkingLotRepo, parkingService, clk)
	reservationService := service.NewReservationService(reservationRepo, vehicleRepo, parkingLotRepo,
		parkingService, sessionService)
	paymentService := service.NewPaymentService(paymentRepo, sessionRepo, clk)
	billingService := service.NewBillingService(paymentRepo)
	vehicleService := service.NewVehicleService(vehicleRepo)

	// 7. Initialize Auth Middleware
	authMiddleware := middleware.NewAuthMiddleware(authService)

	// 8. Setup HTTP Router
	router := api.SetupRouter(authService, parkingService, sessionService, reservationService,
		paymentService, billingService, vehicleService, authMiddleware, webSocketManager)

	// 9. Start HTTP Server
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	go func() {
		log.Printf("Server đang chạy trên port %s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Lỗi ListenAndServe(): %v", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Đang tắt server...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server buộc phải tắt: %v", err)
	}

	log.Println("Server đã tắt.")
}

func runMigrations(cfg *config.Config) error {
	db, err := goose.OpenDBWithDriver("postgres", postgresql.DSN(cfg))
	if err != nil {
		return err
	}
	defer db.Close()

	return goose.Up(db, cfg.MigrationsDir)
}
