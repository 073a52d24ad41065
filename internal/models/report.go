package models

// PlatformStats: сводка для панели администратора.
type PlatformStats struct {
	TotalUsers     int           `json:"total_users"`
	ActiveMissions int           `json:"active_missions"`
	Revenue        float64       `json:"revenue"`
	Growth         []GrowthPoint `json:"growth"`
}

// GrowthPoint: накопленное число пользователей и выручка за месяц YYYY-MM.
type GrowthPoint struct {
	Month   string  `json:"month"`
	Users   int     `json:"users"`
	Revenue float64 `json:"revenue"`
}

// MonthlyValue: строка агрегата по месяцам.
type MonthlyValue struct {
	Month string  `db:"month"`
	Value float64 `db:"value"`
}
