package valueobject

import "github.com/ecorelais/delivery-backend/internal/pkg/apperror"

type PackageSize string

const (
	PackageSmall  PackageSize = "small"
	PackageMedium PackageSize = "medium"
	PackageLarge  PackageSize = "large"
)

// CommissionRate: доля платформы от цены миссии.
const CommissionRate = 0.20

var packagePrices = map[PackageSize]Money{
	PackageSmall:  300,
	PackageMedium: 500,
	PackageLarge:  800,
}

func (s PackageSize) IsValid() bool {
	_, ok := packagePrices[s]
	return ok
}

func ParsePackageSize(raw string) (PackageSize, error) {
	s := PackageSize(raw)
	if !s.IsValid() {
		return "", apperror.Validation("размер посылки должен быть small, medium или large")
	}
	return s, nil
}

// Quote: цена миссии и её разбиение между платформой и партнёром.
type Quote struct {
	Price         Money
	Commission    Money
	PartnerAmount Money
}

// QuoteFor рассчитывает цену по размеру посылки. Размер должен быть уже проверен.
func QuoteFor(size PackageSize) Quote {
	price := packagePrices[size]
	commission := MoneyFromEuros(price.Euros() * CommissionRate)
	return Quote{
		Price:         price,
		Commission:    commission,
		PartnerAmount: price - commission,
	}
}

// PartnerShare: выплата партнёру по сохранённым цене и комиссии.
func PartnerShare(price, commission Money) Money {
	return price - commission
}
