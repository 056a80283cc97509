package service

import (
	"context"

	"mobypark/internal/domain"
	"mobypark/internal/repository"
)

type VehicleService struct {
	vehicleRepo repository.VehicleRepository
}

func NewVehicleService(vehicleRepo repository.VehicleRepository) *VehicleService {
	return &VehicleService{vehicleRepo: vehicleRepo}
}

func (s *VehicleService) Create(ctx context.Context, dto domain.VehicleDTO) (*domain.Vehicle, error) {
	vehicle := &domain.Vehicle{
		UserID:       dto.UserID,
		LicensePlate: dto.LicensePlate,
		Model:        dto.Model,
	}
	return s.vehicleRepo.Create(ctx, vehicle)
}

func (s *VehicleService) GetByID(ctx context.Context, id int) (*domain.Vehicle, error) {
	return s.vehicleRepo.FindByID(ctx, id)
}

func (s *VehicleService) GetByUserID(ctx context.Context, userID int) ([]domain.Vehicle, error) {
	return s.vehicleRepo.FindByUserID(ctx, userID)
}

func (s *VehicleService) Delete(ctx context.Context, id int) error {
	return s.vehicleRepo.Delete(ctx, id)
}
