package valueobject

import (
	"fmt"
	"math"

	"github.com/ecorelais/delivery-backend/internal/pkg/apperror"
)

// Currency платформы. Все суммы хранятся в евро с точностью до цента.
const Currency = "EUR"

// Money: сумма в минимальных единицах валюты (центах).
type Money int64

func NewMoney(euros float64) (Money, error) {
	if euros < 0 {
		return 0, apperror.Validation("сумма не может быть отрицательной")
	}
	return MoneyFromEuros(euros), nil
}

// MoneyFromEuros округляет до ближайшего цента.
func MoneyFromEuros(euros float64) Money {
	return Money(math.Round(euros * 100))
}

func (m Money) Cents() int64 {
	return int64(m)
}

func (m Money) Euros() float64 {
	return float64(m) / 100
}

func (m Money) String() string {
	return fmt.Sprintf("%.2f %s", m.Euros(), Currency)
}
