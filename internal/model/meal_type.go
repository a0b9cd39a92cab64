package model

import (
	"fmt"
	"strings"
)

// MealType is one of exactly four meal slots. The zero value is not a valid
// meal type.
type MealType int

const (
	MealBreakfast MealType = iota + 1
	MealLunch
	MealDinner
	MealSnack
)

var MealTypes = []MealType{MealBreakfast, MealLunch, MealDinner, MealSnack}

func (m MealType) Valid() bool {
	switch m {
	case MealBreakfast, MealLunch, MealDinner, MealSnack:
		return true
	default:
		return false
	}
}

func (m MealType) String() string {
	switch m {
	case MealBreakfast:
		return "breakfast"
	case MealLunch:
		return "lunch"
	case MealDinner:
		return "dinner"
	case MealSnack:
		return "snack"
	default:
		return fmt.Sprintf("MealType(%d)", int(m))
	}
}

// ThaiLabel is the label shown by the Thai interface.
func (m MealType) ThaiLabel() string {
	switch m {
	case MealBreakfast:
		return "มื้อเช้า"
	case MealLunch:
		return "มื้อกลางวัน"
	case MealDinner:
		return "มื้อเย็น"
	case MealSnack:
		return "ของว่าง"
	default:
		return ""
	}
}

// ParseMealType accepts the English key (any case, "snacks" too) or the Thai
// label.
func ParseMealType(value string) (MealType, error) {
	v := strings.TrimSpace(value)
	switch strings.ToLower(v) {
	case "breakfast", "มื้อเช้า":
		return MealBreakfast, nil
	case "lunch", "มื้อกลางวัน":
		return MealLunch, nil
	case "dinner", "supper", "มื้อเย็น":
		return MealDinner, nil
	case "snack", "snacks", "ของว่าง":
		return MealSnack, nil
	}
	return 0, fmt.Errorf("invalid meal type %q (use breakfast, lunch, dinner, or snack)", value)
}

func (m MealType) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("invalid meal type %d", int(m))
	}
	return []byte(m.String()), nil
}

func (m *MealType) UnmarshalText(text []byte) error {
	parsed, err := ParseMealType(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
