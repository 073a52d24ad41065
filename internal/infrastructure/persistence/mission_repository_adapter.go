package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ecorelais/delivery-backend/internal/domain/entity"
	"github.com/ecorelais/delivery-backend/internal/domain/repository"
	"github.com/ecorelais/delivery-backend/internal/domain/valueobject"
	"github.com/ecorelais/delivery-backend/internal/pkg/apperror"
	"github.com/ecorelais/delivery-backend/internal/repository/common"
)

// adminListLimit: верхняя граница выдачи админского списка миссий.
const adminListLimit = 500

const missionSelect = `
	SELECT m.id, m.client_id, m.partner_id, m.package_photo_url, m.package_title, m.package_size,
	       m.pickup_address, m.pickup_lat, m.pickup_lng, m.delivery_address, m.delivery_lat, m.delivery_lng,
	       m.pickup_time_slot, m.status, m.price, m.commission, m.qr_code, m.created_at, m.completed_at,
	       c.first_name AS client_first_name, c.last_name AS client_last_name,
	       p.first_name AS partner_first_name, p.last_name AS partner_last_name
	FROM missions m
	JOIN users c ON c.id = m.client_id
	LEFT JOIN users p ON p.id = m.partner_id
`

type missionRow struct {
	ID               uuid.UUID      `db:"id"`
	ClientID         uuid.UUID      `db:"client_id"`
	PartnerID        uuid.NullUUID  `db:"partner_id"`
	PackagePhotoURL  sql.NullString `db:"package_photo_url"`
	PackageTitle     string         `db:"package_title"`
	PackageSize      string         `db:"package_size"`
	PickupAddress    string         `db:"pickup_address"`
	PickupLat        float64        `db:"pickup_lat"`
	PickupLng        float64        `db:"pickup_lng"`
	DeliveryAddress  string         `db:"delivery_address"`
	DeliveryLat      float64        `db:"delivery_lat"`
	DeliveryLng      float64        `db:"delivery_lng"`
	PickupTimeSlot   string         `db:"pickup_time_slot"`
	Status           string         `db:"status"`
	Price            float64        `db:"price"`
	Commission       float64        `db:"commission"`
	QRCode           sql.NullString `db:"qr_code"`
	CreatedAt        time.Time      `db:"created_at"`
	CompletedAt      sql.NullTime   `db:"completed_at"`
	ClientFirstName  string         `db:"client_first_name"`
	ClientLastName   string         `db:"client_last_name"`
	PartnerFirstName sql.NullString `db:"partner_first_name"`
	PartnerLastName  sql.NullString `db:"partner_last_name"`
}

func (row missionRow) toEntity() *entity.Mission {
	m := &entity.Mission{
		ID:             row.ID,
		ClientID:       row.ClientID,
		PackageTitle:   row.PackageTitle,
		PackageSize:    valueobject.PackageSize(row.PackageSize),
		Pickup:         entity.Address{Line: row.PickupAddress, Point: valueobject.Point{Lat: row.PickupLat, Lng: row.PickupLng}},
		Delivery:       entity.Address{Line: row.DeliveryAddress, Point: valueobject.Point{Lat: row.DeliveryLat, Lng: row.DeliveryLng}},
		PickupTimeSlot: row.PickupTimeSlot,
		Status:         valueobject.MissionStatus(row.Status),
		Price:          valueobject.MoneyFromEuros(row.Price),
		Commission:     valueobject.MoneyFromEuros(row.Commission),
		CreatedAt:      row.CreatedAt,
		Client: &entity.PersonSummary{
			ID:        row.ClientID,
			FirstName: row.ClientFirstName,
			LastName:  row.ClientLastName,
		},
	}
	if row.PartnerID.Valid {
		id := row.PartnerID.UUID
		m.PartnerID = &id
		m.Partner = &entity.PersonSummary{
			ID:        id,
			FirstName: row.PartnerFirstName.String,
			LastName:  row.PartnerLastName.String,
		}
	}
	if row.PackagePhotoURL.Valid {
		m.PackagePhotoURL = &row.PackagePhotoURL.String
	}
	if row.QRCode.Valid {
		m.QRCode = &row.QRCode.String
	}
	if row.CompletedAt.Valid {
		t := row.CompletedAt.Time
		m.CompletedAt = &t
	}
	return m
}

type MissionRepositoryAdapter struct {
	db *sqlx.DB
}

func NewMissionRepositoryAdapter(db *sqlx.DB) *MissionRepositoryAdapter {
	return &MissionRepositoryAdapter{db: db}
}

var _ repository.MissionRepository = (*MissionRepositoryAdapter)(nil)

func (r *MissionRepositoryAdapter) Create(ctx context.Context, m *entity.Mission) error {
	query := `
		INSERT INTO missions (id, client_id, package_photo_url, package_title, package_size,
			pickup_address, pickup_lat, pickup_lng, delivery_address, delivery_lat, delivery_lng,
			pickup_time_slot, status, price, commission, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err := r.db.ExecContext(ctx, query,
		m.ID,
		m.ClientID,
		m.PackagePhotoURL,
		m.PackageTitle,
		string(m.PackageSize),
		m.Pickup.Line,
		m.Pickup.Point.Lat,
		m.Pickup.Point.Lng,
		m.Delivery.Line,
		m.Delivery.Point.Lat,
		m.Delivery.Point.Lng,
		m.PickupTimeSlot,
		string(m.Status),
		m.Price.Euros(),
		m.Commission.Euros(),
		m.CreatedAt,
	)
	if err != nil {
		if common.IsForeignKeyViolation(err) {
			return apperror.ErrUserNotFound
		}
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось создать миссию")
	}
	return nil
}

func (r *MissionRepositoryAdapter) FindByID(ctx context.Context, id uuid.UUID) (*entity.Mission, error) {
	var row missionRow
	if err := r.db.GetContext(ctx, &row, missionSelect+` WHERE m.id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrMissionNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить миссию")
	}
	return row.toEntity(), nil
}

func (r *MissionRepositoryAdapter) FindByClientID(ctx context.Context, clientID uuid.UUID) ([]*entity.Mission, error) {
	return r.selectMany(ctx, missionSelect+` WHERE m.client_id = $1 ORDER BY m.created_at DESC`, clientID)
}

func (r *MissionRepositoryAdapter) FindByPartnerID(ctx context.Context, partnerID uuid.UUID) ([]*entity.Mission, error) {
	return r.selectMany(ctx, missionSelect+` WHERE m.partner_id = $1 ORDER BY m.created_at DESC`, partnerID)
}

// FindNearbyPending ищет свободные миссии в круге radiusM метров вокруг точки
// по приближению «градус ≈ 111 км».
func (r *MissionRepositoryAdapter) FindNearbyPending(ctx context.Context, center valueobject.Point, radiusM, limit int) ([]*entity.Mission, error) {
	deg := valueobject.RadiusDegrees(radiusM)
	query := missionSelect + `
		WHERE m.status = 'pending'
		  AND (m.pickup_lat - $1) * (m.pickup_lat - $1) + (m.pickup_lng - $2) * (m.pickup_lng - $2) <= $3
		ORDER BY m.created_at DESC
		LIMIT $4
	`
	return r.selectMany(ctx, query, center.Lat, center.Lng, deg*deg, limit)
}

func (r *MissionRepositoryAdapter) List(ctx context.Context, filter repository.MissionFilter) ([]*entity.Mission, error) {
	limit := filter.Limit
	if limit <= 0 || limit > adminListLimit {
		limit = adminListLimit
	}
	if filter.Status != "" {
		return r.selectMany(ctx, missionSelect+` WHERE m.status = $1 ORDER BY m.created_at DESC LIMIT $2`, filter.Status, limit)
	}
	return r.selectMany(ctx, missionSelect+` ORDER BY m.created_at DESC LIMIT $1`, limit)
}

func (r *MissionRepositoryAdapter) SetQRCode(ctx context.Context, id uuid.UUID, code string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE missions SET qr_code = $2 WHERE id = $1`, id, code); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось сохранить QR-код")
	}
	return nil
}

func (r *MissionRepositoryAdapter) Transition(ctx context.Context, m *entity.Mission, from valueobject.MissionStatus) error {
	return transition(ctx, r.db, m, from)
}

func (r *MissionRepositoryAdapter) Deliver(ctx context.Context, m *entity.Mission, s *entity.Settlement) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := transition(ctx, tx, m, valueobject.MissionStatusInTransit); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO transactions (id, mission_id, partner_id, amount, payment_reference, status, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, s.ID, s.MissionID, s.PartnerID, s.Amount.Euros(), s.PaymentReference, string(s.Status), s.CreatedAt)
		if err != nil {
			return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось создать выплату")
		}
		return nil
	})
}

func (r *MissionRepositoryAdapter) UpdateSettlement(ctx context.Context, s *entity.Settlement) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET status = $2, payment_reference = $3 WHERE id = $1`,
		s.ID, string(s.Status), s.PaymentReference,
	)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось обновить выплату")
	}
	return nil
}

// transition выполняет условное обновление: строка меняется, только если статус всё ещё from.
func transition(ctx context.Context, exec sqlx.ExecerContext, m *entity.Mission, from valueobject.MissionStatus) error {
	res, err := exec.ExecContext(ctx, `
		UPDATE missions
		SET status = $2, partner_id = $3, completed_at = $4
		WHERE id = $1 AND status = $5
	`, m.ID, string(m.Status), m.PartnerID, m.CompletedAt, string(from))
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось обновить статус миссии")
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось проверить результат обновления")
	}
	if rows == 0 {
		return repository.ErrStaleMission
	}
	return nil
}

func (r *MissionRepositoryAdapter) selectMany(ctx context.Context, query string, args ...interface{}) ([]*entity.Mission, error) {
	var rows []missionRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить список миссий")
	}
	out := make([]*entity.Mission, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toEntity())
	}
	return out, nil
}
