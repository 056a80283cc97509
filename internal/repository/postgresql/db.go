package postgresql

import (
	"database/sql"
	"fmt"

	"mobypark/internal/config"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// DSN dựng chuỗi kết nối dùng chung cho pool chính và migrations.
func DSN(cfg *config.Config) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSslMode)
}

func NewDB(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("pgx", DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("lỗi mở kết nối database: %w", err)
	}

	err = db.Ping()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("lỗi ping database: %w", err)
	}
	return db, nil
}
