package promotion

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Ineligibility reasons surfaced to callers. Redeem re-checks the same
// guards inside its atomic update; these sentinels classify both paths.
var (
	ErrInactive           = errors.New("voucher is inactive")
	ErrExpired            = errors.New("voucher is outside its validity window")
	ErrBelowMinimum       = errors.New("order total is below the voucher minimum")
	ErrGlobalLimitReached = errors.New("voucher global usage limit reached")
	ErrUserLimitReached   = errors.New("voucher per-user usage limit reached")

	ErrInvalidWindow = errors.New("voucher start date must be before end date")
)

// Promotion holds voucher terms plus the two usage counters that must
// never exceed their ceilings: usedCount globally and usedBy per user.
// Zero usageLimit / limitPerUser / maxDiscount mean unlimited/uncapped.
type Promotion struct {
	id            uuid.UUID
	code          Code
	typ           Type
	discount      int64
	minOrderValue int64
	maxDiscount   int64
	startsAt      time.Time
	endsAt        time.Time
	usageLimit    int32
	usedCount     int32
	limitPerUser  int32
	usedBy        map[uuid.UUID]int32
	active        bool
}

func NewPromotion(
	id uuid.UUID,
	code string,
	typ string,
	discount int64,
	minOrderValue, maxDiscount int64,
	startsAt, endsAt time.Time,
	usageLimit, limitPerUser int32,
	active bool,
) (*Promotion, error) {
	promoCode, err := NewCode(code)
	if err != nil {
		return nil, err
	}
	promoType, err := NewType(typ)
	if err != nil {
		return nil, err
	}
	if discount < 0 {
		return nil, ErrInvalidDiscountAmount
	}
	if promoType == TypePercent && discount > 100 {
		return nil, ErrInvalidDiscountPercent
	}
	if !startsAt.Before(endsAt) {
		return nil, ErrInvalidWindow
	}

	return &Promotion{
		id:            id,
		code:          promoCode,
		typ:           promoType,
		discount:      discount,
		minOrderValue: minOrderValue,
		maxDiscount:   maxDiscount,
		startsAt:      startsAt,
		endsAt:        endsAt,
		usageLimit:    usageLimit,
		limitPerUser:  limitPerUser,
		usedBy:        map[uuid.UUID]int32{},
		active:        active,
	}, nil
}

func ReconstructPromotion(
	id uuid.UUID,
	code Code,
	typ Type,
	discount int64,
	minOrderValue, maxDiscount int64,
	startsAt, endsAt time.Time,
	usageLimit, usedCount, limitPerUser int32,
	usedBy map[uuid.UUID]int32,
	active bool,
) *Promotion {
	if usedBy == nil {
		usedBy = map[uuid.UUID]int32{}
	}
	return &Promotion{
		id:            id,
		code:          code,
		typ:           typ,
		discount:      discount,
		minOrderValue: minOrderValue,
		maxDiscount:   maxDiscount,
		startsAt:      startsAt,
		endsAt:        endsAt,
		usageLimit:    usageLimit,
		usedCount:     usedCount,
		limitPerUser:  limitPerUser,
		usedBy:        usedBy,
		active:        active,
	}
}

func (p *Promotion) IsWithinWindow(now time.Time) bool {
	return !now.Before(p.startsAt) && !now.After(p.endsAt)
}

// CheckEligibility applies the validation guards in order. The check is
// advisory: the redeem path re-evaluates every guard inside its atomic
// update, so a pass here never grants a usage slot.
func (p *Promotion) CheckEligibility(now time.Time, userID uuid.UUID, orderTotal int64) error {
	if !p.active {
		return ErrInactive
	}
	if !p.IsWithinWindow(now) {
		return ErrExpired
	}
	if orderTotal < p.minOrderValue {
		return ErrBelowMinimum
	}
	if p.usageLimit > 0 && p.usedCount >= p.usageLimit {
		return ErrGlobalLimitReached
	}
	if p.limitPerUser > 0 && p.usedBy[userID] >= p.limitPerUser {
		return ErrUserLimitReached
	}
	return nil
}

// DiscountValue computes the discount for an order total:
// percent vouchers floor(total*discount/100), fixed vouchers the flat
// amount; both capped by maxDiscount when set and clamped to the total.
func (p *Promotion) DiscountValue(orderTotal int64) int64 {
	if orderTotal <= 0 {
		return 0
	}

	var value int64
	switch p.typ {
	case TypePercent:
		value = orderTotal * p.discount / 100
	case TypeFixed:
		value = p.discount
	}

	if p.maxDiscount > 0 && value > p.maxDiscount {
		value = p.maxDiscount
	}
	if value > orderTotal {
		value = orderTotal
	}
	if value < 0 {
		value = 0
	}
	return value
}

func (p *Promotion) UsedBy(userID uuid.UUID) int32 {
	return p.usedBy[userID]
}

func (p *Promotion) ID() uuid.UUID        { return p.id }
func (p *Promotion) Code() Code           { return p.code }
func (p *Promotion) Type() Type           { return p.typ }
func (p *Promotion) Discount() int64      { return p.discount }
func (p *Promotion) MinOrderValue() int64 { return p.minOrderValue }
func (p *Promotion) MaxDiscount() int64   { return p.maxDiscount }
func (p *Promotion) StartsAt() time.Time  { return p.startsAt }
func (p *Promotion) EndsAt() time.Time    { return p.endsAt }
func (p *Promotion) UsageLimit() int32    { return p.usageLimit }
func (p *Promotion) UsedCount() int32     { return p.usedCount }
func (p *Promotion) LimitPerUser() int32  { return p.limitPerUser }
func (p *Promotion) Active() bool         { return p.active }
