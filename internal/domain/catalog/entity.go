package catalog

import (
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNegativePrice    = errors.New("price cannot be negative")
	ErrDiscountTooLarge = errors.New("discount cannot exceed price")
	ErrNotSellable      = errors.New("item is not sellable")
)

// Product is the catalog read model consumed at checkout and quote time.
// Stock counters live on SizeStock rows; the authoritative mutation path
// for sold counters is the stock repository, never this entity.
type Product struct {
	id       uuid.UUID
	name     string
	price    int64
	discount int64
	isActive bool
	variants []Variant
}

type Variant struct {
	id       uuid.UUID
	colorID  uuid.UUID
	image    string
	isActive bool
	sizes    []SizeStock
}

// SizeStock is the smallest stock-tracked unit: one size within one color
// variant. quantity is the total ever stocked in, sold the cumulative
// committed sales. 0 <= sold <= quantity holds at all times.
type SizeStock struct {
	sizeID   uuid.UUID
	quantity int32
	sold     int32
	isActive bool
}

func ReconstructProduct(id uuid.UUID, name string, price, discount int64, isActive bool, variants []Variant) (*Product, error) {
	if price < 0 {
		return nil, ErrNegativePrice
	}
	if discount < 0 || discount > price {
		return nil, ErrDiscountTooLarge
	}
	return &Product{
		id:       id,
		name:     name,
		price:    price,
		discount: discount,
		isActive: isActive,
		variants: variants,
	}, nil
}

func ReconstructVariant(id, colorID uuid.UUID, image string, isActive bool, sizes []SizeStock) Variant {
	return Variant{
		id:       id,
		colorID:  colorID,
		image:    image,
		isActive: isActive,
		sizes:    sizes,
	}
}

func ReconstructSizeStock(sizeID uuid.UUID, quantity, sold int32, isActive bool) SizeStock {
	return SizeStock{
		sizeID:   sizeID,
		quantity: quantity,
		sold:     sold,
		isActive: isActive,
	}
}

// SellingPrice is the list price minus the flat catalog discount.
func (p *Product) SellingPrice() int64 {
	selling := p.price - p.discount
	if selling < 0 {
		return 0
	}
	return selling
}

// FindSize resolves the stock row for a (color, size) pair. Inactive
// products, variants and sizes resolve to not-found: callers see them
// as unsellable rather than as an error.
func (p *Product) FindSize(colorID, sizeID uuid.UUID) (SizeStock, bool) {
	if !p.isActive {
		return SizeStock{}, false
	}
	for _, v := range p.variants {
		if v.colorID != colorID || !v.isActive {
			continue
		}
		for _, s := range v.sizes {
			if s.sizeID == sizeID && s.isActive {
				return s, true
			}
		}
	}
	return SizeStock{}, false
}

func (p *Product) ID() uuid.UUID      { return p.id }
func (p *Product) Name() string       { return p.name }
func (p *Product) Price() int64       { return p.price }
func (p *Product) Discount() int64    { return p.discount }
func (p *Product) IsActive() bool     { return p.isActive }
func (p *Product) Variants() []Variant { return p.variants }

func (v Variant) ID() uuid.UUID      { return v.id }
func (v Variant) ColorID() uuid.UUID { return v.colorID }
func (v Variant) Image() string      { return v.image }
func (v Variant) IsActive() bool     { return v.isActive }
func (v Variant) Sizes() []SizeStock { return v.sizes }

func (s SizeStock) SizeID() uuid.UUID { return s.sizeID }
func (s SizeStock) Quantity() int32   { return s.quantity }
func (s SizeStock) Sold() int32       { return s.sold }
func (s SizeStock) IsActive() bool    { return s.isActive }

// Available is the number of units still sellable.
func (s SizeStock) Available() int32 {
	avail := s.quantity - s.sold
	if avail < 0 {
		return 0
	}
	return avail
}
