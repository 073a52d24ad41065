package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/ecorelais/delivery-backend/internal/domain/entity"
	"github.com/ecorelais/delivery-backend/internal/logger"
	"github.com/ecorelais/delivery-backend/internal/models"
	"github.com/ecorelais/delivery-backend/internal/repository"
)

// DemoPassword: пароль всех демо-аккаунтов.
const DemoPassword = "EcoRelais2024!"

// SeedUserRepository: операции с пользователями, нужные генератору.
type SeedUserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

type SeedMissionRepository interface {
	Create(ctx context.Context, m *entity.Mission) error
}

// SeedService генерирует демо-данные: администратора, клиентов, партнёров и миссии.
type SeedService struct {
	users    SeedUserRepository
	missions SeedMissionRepository
	rnd      *rand.Rand
}

// NewSeedService создаёт генератор с детерминированным seed.
func NewSeedService(users SeedUserRepository, missions SeedMissionRepository, seed int64) *SeedService {
	return &SeedService{users: users, missions: missions, rnd: rand.New(rand.NewSource(seed))}
}

// SeedResult: сколько записей создано.
type SeedResult struct {
	Users    int
	Missions int
}

var (
	demoFirstNames = []string{"Léa", "Hugo", "Chloé", "Lucas", "Manon", "Louis", "Camille", "Jules", "Inès", "Nathan"}
	demoLastNames  = []string{"Martin", "Bernard", "Dubois", "Thomas", "Robert", "Richard", "Petit", "Durand", "Leroy", "Moreau"}
	demoStreets    = []string{"rue de Rivoli", "boulevard Voltaire", "rue Oberkampf", "avenue de la République", "rue du Faubourg Saint-Antoine", "rue de Charonne"}
	demoTitles     = []string{"Livres", "Colis Vinted", "Vêtements", "Vaisselle", "Petit meuble", "Plantes", "Jeux de société"}
	demoSizes      = []string{"small", "medium", "large"}
	demoSlots      = []string{"08:00-10:00", "10:00-12:00", "14:00-16:00", "16:00-18:00", "18:00-20:00"}
)

// Центр демо-района (Париж, 11-й округ).
const (
	demoLat = 48.8590
	demoLng = 2.3800
)

// SeedData создаёт demo-admin и по clients/partners пользователей, затем
// missions миссий у случайных клиентов. Уже существующие email пропускаются.
func (s *SeedService) SeedData(ctx context.Context, clients, partners, missions int) (*SeedResult, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("seed service: hash password %w", err)
	}

	res := &SeedResult{}
	if _, err := s.ensureUser(ctx, "admin@eco-relais.com", models.RoleAdmin, string(hash), res); err != nil {
		return nil, err
	}

	var clientIDs []uuid.UUID
	for i := 0; i < clients; i++ {
		u, err := s.ensureUser(ctx, fmt.Sprintf("client%d@eco-relais.com", i+1), models.RoleClient, string(hash), res)
		if err != nil {
			return nil, err
		}
		clientIDs = append(clientIDs, u.ID)
	}
	for i := 0; i < partners; i++ {
		if _, err := s.ensureUser(ctx, fmt.Sprintf("partner%d@eco-relais.com", i+1), models.RolePartner, string(hash), res); err != nil {
			return nil, err
		}
	}

	if len(clientIDs) == 0 {
		return res, nil
	}

	for i := 0; i < missions; i++ {
		m, err := entity.NewMission(clientIDs[s.rnd.Intn(len(clientIDs))], s.draft())
		if err != nil {
			return nil, fmt.Errorf("seed service: draft %w", err)
		}
		if err := s.missions.Create(ctx, m); err != nil {
			return nil, fmt.Errorf("seed service: create mission %w", err)
		}
		res.Missions++
	}

	logger.Log.WithField("users", res.Users).WithField("missions", res.Missions).Info("seed: демо-данные созданы")
	return res, nil
}

func (s *SeedService) ensureUser(ctx context.Context, email, role, hash string, res *SeedResult) (*models.User, error) {
	existing, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}

	u := &models.User{
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		FirstName:    pick(s.rnd, demoFirstNames),
		LastName:     pick(s.rnd, demoLastNames),
		Verified:     true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("seed service: create user %s %w", email, err)
	}
	res.Users++
	return u, nil
}

func (s *SeedService) draft() entity.MissionDraft {
	return entity.MissionDraft{
		PackageTitle:    pick(s.rnd, demoTitles),
		PackageSize:     pick(s.rnd, demoSizes),
		PickupAddress:   fmt.Sprintf("%d %s, 75011 Paris", 1+s.rnd.Intn(120), pick(s.rnd, demoStreets)),
		PickupLat:       demoLat + s.jitter(),
		PickupLng:       demoLng + s.jitter(),
		DeliveryAddress: fmt.Sprintf("%d %s, 75011 Paris", 1+s.rnd.Intn(120), pick(s.rnd, demoStreets)),
		DeliveryLat:     demoLat + s.jitter(),
		DeliveryLng:     demoLng + s.jitter(),
		PickupTimeSlot:  pick(s.rnd, demoSlots),
	}
}

// jitter: смещение в пределах примерно 800 м.
func (s *SeedService) jitter() float64 {
	return (s.rnd.Float64()*2 - 1) * 0.007
}

func pick(r *rand.Rand, values []string) string {
	return values[r.Intn(len(values))]
}
