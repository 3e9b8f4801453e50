package application

import (
	"github.com/wms-platform/promising-service/internal/domain"
)

// ToAllocationResultDTO converts a domain allocation result to a DTO
func ToAllocationResultDTO(r *domain.AllocationResult) *AllocationResultDTO {
	return &AllocationResultDTO{
		OrderID:          r.OrderID,
		SKU:              r.SKU,
		RequestedQty:     r.RequestedQty,
		AllocatedQty:     r.AllocatedQty,
		ShortfallQty:     r.ShortfallQty,
		Strategy:         string(r.Strategy),
		SourceShipmentID: r.SourceShipmentID,
		PromisedETA:      r.PromisedETA,
		LockID:           r.LockID,
		DecidedAt:        r.DecidedAt,
	}
}

// ToLockDTO converts a domain lock to a DTO
func ToLockDTO(l *domain.Lock) *LockDTO {
	return &LockDTO{
		LockID:     l.LockID,
		ShipmentID: l.ShipmentID,
		OrderID:    l.OrderID,
		SKU:        l.SKU,
		LockedQty:  l.LockedQty,
		Status:     string(l.Status),
		CreatedAt:  l.CreatedAt,
		ReleasedAt: l.ReleasedAt,
	}
}

// ToPositionDTO converts a domain position to a DTO
func ToPositionDTO(p *domain.InventoryPosition) *PositionDTO {
	return &PositionDTO{
		SKU:            p.SKU,
		OnHandQty:      p.OnHandQty,
		SafetyStockQty: p.SafetyStockQty,
		FreeQty:        p.FreeQty(),
	}
}

// ToShipmentDTOs converts domain shipments to DTOs
func ToShipmentDTOs(shipments []domain.InboundShipment) []ShipmentDTO {
	dtos := make([]ShipmentDTO, 0, len(shipments))
	for _, s := range shipments {
		dtos = append(dtos, ShipmentDTO{
			ShipmentID:           s.ShipmentID,
			SKU:                  s.SKU,
			ExpectedQty:          s.ExpectedQty,
			ETA:                  s.ETA,
			RemainingUnlockedQty: s.RemainingUnlockedQty,
			Status:               string(s.Status),
		})
	}
	return dtos
}
