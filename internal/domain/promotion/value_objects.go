package promotion

import (
	"errors"
	"regexp"
	"strings"
)

var (
	ErrInvalidCode            = errors.New("invalid voucher code format")
	ErrInvalidType            = errors.New("invalid discount type")
	ErrInvalidDiscountAmount  = errors.New("discount amount cannot be negative")
	ErrInvalidDiscountPercent = errors.New("percentage discount must be between 0 and 100")
)

var codeRegex = regexp.MustCompile(`^[A-Z0-9]{3,20}$`)

// Code is a case-normalized voucher code. Codes compare and persist in
// uppercase regardless of how the user typed them.
type Code string

func NewCode(code string) (Code, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !codeRegex.MatchString(code) {
		return Code(""), ErrInvalidCode
	}
	return Code(code), nil
}

func (c Code) String() string {
	return string(c)
}

type Type string

const (
	TypePercent Type = "percent"
	TypeFixed   Type = "fixed"
)

func NewType(t string) (Type, error) {
	switch Type(t) {
	case TypePercent, TypeFixed:
		return Type(t), nil
	}
	return Type(""), ErrInvalidType
}

func (t Type) String() string {
	return string(t)
}
