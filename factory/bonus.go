/*
Package factory converts external definitions into generic domain values.

PURPOSE:
  - bonus.go:    JSON bonus-plan definitions -> generic.BonusPlan
  - scenario.go: YAML demo scenarios -> store contents

JSON SCHEMA (bonus plan):
  {
    "id": "bp-puntualidad",
    "name": "Bono de puntualidad",
    "amount": "50.00",
    "condition": "PUNCTUALITY",
    "offset_minutes": -10
  }

  amount:         string or number, at most 2 decimal places, >= 0
  condition:      NONE | PUNCTUALITY (default NONE)
  offset_minutes: minutes of required earliness as a non-positive offset
                  from the scheduled clock-in (default 0)

USAGE:
  f := factory.NewBonusFactory()
  plan, err := f.ParseBonusPlan(factory.PunctualityPlanJSON("bp-1", "Puntualidad", "50.00", 10))

SEE ALSO:
  - generic/types.go: BonusPlan
  - attendance/punctuality.go: how the offset shifts the deadline
*/
package factory

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/timeclock/generic"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// BonusPlanJSON is the JSON representation of a bonus plan.
type BonusPlanJSON struct {
	ID            string          `json:"id,omitempty"`
	Name          string          `json:"name"`
	Amount        decimal.Decimal `json:"amount"`
	Condition     string          `json:"condition,omitempty"`
	OffsetMinutes int             `json:"offset_minutes"`
}

// =============================================================================
// BONUS FACTORY
// =============================================================================

// BonusFactory converts JSON bonus plans to Go structs.
type BonusFactory struct{}

func NewBonusFactory() *BonusFactory {
	return &BonusFactory{}
}

// ParseBonusPlan parses a JSON string into a validated BonusPlan.
func (f *BonusFactory) ParseBonusPlan(jsonStr string) (generic.BonusPlan, error) {
	var bj BonusPlanJSON
	if err := json.Unmarshal([]byte(jsonStr), &bj); err != nil {
		return generic.BonusPlan{}, &generic.ValidationError{Field: "bonus_plan", Message: err.Error()}
	}
	return f.FromJSON(bj)
}

// FromJSON validates and normalises a definition. A missing id gets a UUID.
func (f *BonusFactory) FromJSON(bj BonusPlanJSON) (generic.BonusPlan, error) {
	name := strings.TrimSpace(bj.Name)
	if name == "" {
		return generic.BonusPlan{}, &generic.ValidationError{Field: "name", Message: "required"}
	}

	amount := bj.Amount
	if amount.IsNegative() {
		return generic.BonusPlan{}, &generic.ValidationError{Field: "amount", Message: "must not be negative"}
	}
	if !amount.Equal(amount.Round(generic.MoneyPlaces)) {
		return generic.BonusPlan{}, &generic.ValidationError{Field: "amount", Message: "more than 2 decimal places"}
	}

	condition, err := parseCondition(bj.Condition)
	if err != nil {
		return generic.BonusPlan{}, err
	}

	if bj.OffsetMinutes > 0 {
		return generic.BonusPlan{}, &generic.ValidationError{
			Field:   "offset_minutes",
			Message: fmt.Sprintf("must be zero or negative, got %d", bj.OffsetMinutes),
		}
	}

	id := bj.ID
	if id == "" {
		id = uuid.NewString()
	}

	return generic.BonusPlan{
		ID:            generic.BonusPlanID(id),
		Name:          name,
		Amount:        amount,
		Condition:     condition,
		OffsetMinutes: bj.OffsetMinutes,
	}, nil
}

// ToJSON converts a BonusPlan to BonusPlanJSON.
func (f *BonusFactory) ToJSON(b generic.BonusPlan) BonusPlanJSON {
	return BonusPlanJSON{
		ID:            string(b.ID),
		Name:          b.Name,
		Amount:        b.Amount,
		Condition:     string(b.Condition),
		OffsetMinutes: b.OffsetMinutes,
	}
}

func parseCondition(s string) (generic.BonusCondition, error) {
	switch generic.BonusCondition(strings.ToUpper(strings.TrimSpace(s))) {
	case "", generic.ConditionNone:
		return generic.ConditionNone, nil
	case generic.ConditionPunctuality:
		return generic.ConditionPunctuality, nil
	default:
		return "", &generic.ValidationError{Field: "condition", Message: fmt.Sprintf("unknown condition %q", s)}
	}
}

// =============================================================================
// PRESETS
// =============================================================================

// PunctualityPlanJSON defines a plan paid per day arriving earlyMinutes
// before the scheduled clock-in.
func PunctualityPlanJSON(id, name, amount string, earlyMinutes int) string {
	return fmt.Sprintf(`{
		"id": %q,
		"name": %q,
		"amount": %q,
		"condition": "PUNCTUALITY",
		"offset_minutes": %d
	}`, id, name, amount, -earlyMinutes)
}
