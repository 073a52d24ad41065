package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ecorelais/delivery-backend/internal/domain/entity"
	domainrepo "github.com/ecorelais/delivery-backend/internal/domain/repository"
	"github.com/ecorelais/delivery-backend/internal/domain/valueobject"
	"github.com/ecorelais/delivery-backend/internal/models"
	"github.com/ecorelais/delivery-backend/internal/pkg/apperror"
	"github.com/ecorelais/delivery-backend/internal/repository"
	"github.com/ecorelais/delivery-backend/internal/validation"
)

const (
	statsCacheTTL     = 30 * time.Second
	growthMonths      = 6
	defaultUsersLimit = 15
	maxUsersLimit     = 100
	// AdminMissionsLimit: сколько миссий максимум отдаёт админский список.
	AdminMissionsLimit = 500
)

// StatsRepository: агрегаты для панели администратора.
type StatsRepository interface {
	CountUsers(ctx context.Context) (int, error)
	CountUsersBefore(ctx context.Context, before time.Time) (int, error)
	CountActiveMissions(ctx context.Context) (int, error)
	Revenue(ctx context.Context) (float64, error)
	UsersByMonth(ctx context.Context, since time.Time) ([]models.MonthlyValue, error)
	RevenueByMonth(ctx context.Context, since time.Time) ([]models.MonthlyValue, error)
}

type AdminUserRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	MarkVerified(ctx context.Context, id uuid.UUID) error
}

type MissionLister interface {
	List(ctx context.Context, filter domainrepo.MissionFilter) ([]*entity.Mission, error)
}

// UsersPage: страница админского списка пользователей.
type UsersPage struct {
	Data  []models.UserView
	Total int
	Page  int
	Limit int
}

type AdminService struct {
	stats    StatsRepository
	users    AdminUserRepository
	missions MissionLister
	cache    *CacheService
	now      func() time.Time
}

func NewAdminService(stats StatsRepository, users AdminUserRepository, missions MissionLister, cache *CacheService) *AdminService {
	return &AdminService{stats: stats, users: users, missions: missions, cache: cache, now: time.Now}
}

// Stats возвращает сводку платформы; результат кэшируется на 30 секунд.
func (s *AdminService) Stats(ctx context.Context) (*models.PlatformStats, error) {
	// загрузку делят все ожидающие вызовы, отмена одного из них на неё не влияет
	loadCtx := context.WithoutCancel(ctx)
	v, err := s.cache.GetOrSet(StatsCacheKey, statsCacheTTL, func() (any, error) {
		return s.computeStats(loadCtx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.PlatformStats), nil
}

func (s *AdminService) computeStats(ctx context.Context) (*models.PlatformStats, error) {
	total, err := s.stats.CountUsers(ctx)
	if err != nil {
		return nil, err
	}
	active, err := s.stats.CountActiveMissions(ctx)
	if err != nil {
		return nil, err
	}
	revenue, err := s.stats.Revenue(ctx)
	if err != nil {
		return nil, err
	}

	months := growthWindow(s.now().UTC(), growthMonths)
	since := months[0]

	base, err := s.stats.CountUsersBefore(ctx, since)
	if err != nil {
		return nil, err
	}
	usersByMonth, err := s.stats.UsersByMonth(ctx, since)
	if err != nil {
		return nil, err
	}
	revenueByMonth, err := s.stats.RevenueByMonth(ctx, since)
	if err != nil {
		return nil, err
	}

	return &models.PlatformStats{
		TotalUsers:     total,
		ActiveMissions: active,
		Revenue:        revenue,
		Growth:         buildGrowth(months, base, usersByMonth, revenueByMonth),
	}, nil
}

// growthWindow возвращает начала последних n месяцев, включая текущий.
func growthWindow(now time.Time, n int) []time.Time {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	out := make([]time.Time, n)
	for i := 0; i < n; i++ {
		out[i] = first.AddDate(0, i-(n-1), 0)
	}
	return out
}

// buildGrowth считает users как накопленное число пользователей на конец месяца и revenue за месяц.
func buildGrowth(months []time.Time, base int, users, revenue []models.MonthlyValue) []models.GrowthPoint {
	usersIdx := make(map[string]float64, len(users))
	for _, u := range users {
		usersIdx[u.Month] = u.Value
	}
	revenueIdx := make(map[string]float64, len(revenue))
	for _, r := range revenue {
		revenueIdx[r.Month] = r.Value
	}

	cumulative := base
	out := make([]models.GrowthPoint, 0, len(months))
	for _, m := range months {
		key := m.Format("2006-01")
		cumulative += int(usersIdx[key])
		out = append(out, models.GrowthPoint{
			Month:   key,
			Users:   cumulative,
			Revenue: revenueIdx[key],
		})
	}
	return out
}

// Users отдаёт страницу пользователей; платёжный аккаунт скрыт.
func (s *AdminService) Users(ctx context.Context, role string, page, limit int) (*UsersPage, error) {
	if role != "" {
		if err := validation.ValidateRole(role); err != nil {
			return nil, apperror.Validation(err.Error())
		}
	}
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultUsersLimit
	}
	if limit > maxUsersLimit {
		limit = maxUsersLimit
	}

	users, total, err := s.users.List(ctx, models.UserFilter{Role: role, Limit: limit, Offset: (page - 1) * limit})
	if err != nil {
		return nil, err
	}

	views := make([]models.UserView, 0, len(users))
	for i := range users {
		views = append(views, users[i].View())
	}
	return &UsersPage{Data: views, Total: total, Page: page, Limit: limit}, nil
}

// Missions возвращает миссии с опциональным фильтром по статусу.
func (s *AdminService) Missions(ctx context.Context, status string) ([]*entity.Mission, error) {
	if status != "" {
		if _, err := valueobject.NewMissionStatus(status); err != nil {
			return nil, err
		}
	}
	return s.missions.List(ctx, domainrepo.MissionFilter{Status: status, Limit: AdminMissionsLimit})
}

// VerifyUser вручную подтверждает пользователя.
func (s *AdminService) VerifyUser(ctx context.Context, id uuid.UUID) error {
	err := s.users.MarkVerified(ctx, id)
	if errors.Is(err, repository.ErrUserNotFound) {
		return apperror.ErrUserNotFound
	}
	if err == nil {
		s.cache.InvalidateByPrefix(adminCachePrefix)
	}
	return err
}
