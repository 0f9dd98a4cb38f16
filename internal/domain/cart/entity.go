package cart

import (
	"errors"

	"github.com/google/uuid"
)

var ErrInvalidQuantity = errors.New("cart line quantity must be positive")

// Line is one (product, color, size) entry in a user's cart. Cart
// quantities are advisory only: the authoritative stock check happens
// at checkout against live counters, not against what the cart showed.
type Line struct {
	ProductID     uuid.UUID
	ColorID       uuid.UUID
	SizeID        uuid.UUID
	Quantity      int32
	PriceSnapshot int64
}

func NewLine(productID, colorID, sizeID uuid.UUID, quantity int32, priceSnapshot int64) (Line, error) {
	if quantity <= 0 {
		return Line{}, ErrInvalidQuantity
	}
	return Line{
		ProductID:     productID,
		ColorID:       colorID,
		SizeID:        sizeID,
		Quantity:      quantity,
		PriceSnapshot: priceSnapshot,
	}, nil
}

type Cart struct {
	UserID uuid.UUID
	Lines  []Line
}
