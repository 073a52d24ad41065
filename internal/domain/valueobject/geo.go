package valueobject

import "github.com/ecorelais/delivery-backend/internal/pkg/apperror"

const (
	MinSearchRadiusM     = 500
	MaxSearchRadiusM     = 1000
	DefaultSearchRadiusM = 1000

	// metersPerDegree: грубое приближение длины градуса широты.
	metersPerDegree = 111000.0
)

type Point struct {
	Lat float64
	Lng float64
}

func ValidLat(lat float64) bool { return lat >= -90 && lat <= 90 }

func ValidLng(lng float64) bool { return lng >= -180 && lng <= 180 }

func NewPoint(lat, lng float64) (Point, error) {
	if !ValidLat(lat) || !ValidLng(lng) {
		return Point{}, apperror.Validation("некорректные координаты")
	}
	return Point{Lat: lat, Lng: lng}, nil
}

// ClampRadius приводит радиус поиска к [500, 1000] м; ноль означает радиус по умолчанию.
func ClampRadius(meters int) int {
	if meters <= 0 {
		return DefaultSearchRadiusM
	}
	if meters < MinSearchRadiusM {
		return MinSearchRadiusM
	}
	if meters > MaxSearchRadiusM {
		return MaxSearchRadiusM
	}
	return meters
}

// RadiusDegrees переводит метры в градусы для приближённого поиска.
func RadiusDegrees(meters int) float64 {
	return float64(meters) / metersPerDegree
}
