package catalog

import (
	"fmt"

	"github.com/google/uuid"
)

// InsufficientStockError reports the actual availability so callers can
// clamp the requested quantity and retry, instead of silently clamping
// on their behalf.
type InsufficientStockError struct {
	ProductID uuid.UUID
	ColorID   uuid.UUID
	SizeID    uuid.UUID
	Requested int32
	Available int32
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s color %s size %s: requested %d, available %d",
		e.ProductID, e.ColorID, e.SizeID, e.Requested, e.Available)
}
