package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/justuche224/swift/internal/domain"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type giftModel struct {
	ID          string `gorm:"primaryKey"`
	Name        string `gorm:"not null"`
	Description string
	Price       decimal.Decimal `gorm:"type:numeric(10,2);not null"`
	Category    string
	ImageURLs   pq.StringArray `gorm:"column:image_urls;type:text[]"`
	Sizes       pq.StringArray `gorm:"type:text[]"`
	Stock       int
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (giftModel) TableName() string { return "gifts" }

type GormRepository struct {
	db  *gorm.DB
	now func() time.Time
}

var _ Repository = (*GormRepository)(nil)

// NewGormRepository wraps an existing Postgres pool; the gifts table is
// created by the order store migrations.
func NewGormRepository(sqlDB *sql.DB) (*GormRepository, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Warn),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open gorm: %w", err)
	}
	return &GormRepository{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (r *GormRepository) List(ctx context.Context, f ListFilter) ([]domain.Gift, int64, error) {
	q := r.db.WithContext(ctx).Model(&giftModel{})
	if f.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	if s := strings.TrimSpace(f.Query); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(category) LIKE ?", like, like)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count gifts: %w", err)
	}

	var models []giftModel
	err := q.Order("created_at DESC").Order("id DESC").
		Limit(f.PageSize).
		Offset((f.Page - 1) * f.PageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list gifts: %w", err)
	}

	gifts := make([]domain.Gift, 0, len(models))
	for _, m := range models {
		gifts = append(gifts, m.toDomain())
	}
	return gifts, total, nil
}

func (r *GormRepository) Get(ctx context.Context, id string) (*domain.Gift, error) {
	var m giftModel
	err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrGiftNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get gift: %w", err)
	}
	g := m.toDomain()
	return &g, nil
}

// Create assigns an id when g has none and fills the timestamps back into g.
func (r *GormRepository) Create(ctx context.Context, g *domain.Gift) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	m := fromDomain(g)
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return fmt.Errorf("create gift: %w", err)
	}
	*g = m.toDomain()
	return nil
}

func (r *GormRepository) Update(ctx context.Context, g *domain.Gift) error {
	m := fromDomain(g)
	m.UpdatedAt = r.now()
	res := r.db.WithContext(ctx).
		Model(&giftModel{ID: g.ID}).
		Select("*").
		Omit("id", "created_at").
		Updates(&m)
	if res.Error != nil {
		return fmt.Errorf("update gift: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrGiftNotFound
	}

	updated, err := r.Get(ctx, g.ID)
	if err != nil {
		return err
	}
	*g = *updated
	return nil
}

func (r *GormRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&giftModel{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete gift: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrGiftNotFound
	}
	return nil
}

func (r *GormRepository) SetActive(ctx context.Context, id string, active bool) (*domain.Gift, error) {
	res := r.db.WithContext(ctx).
		Model(&giftModel{}).
		Where("id = ?", id).
		Updates(map[string]any{"is_active": active, "updated_at": r.now()})
	if res.Error != nil {
		return nil, fmt.Errorf("set gift active: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrGiftNotFound
	}
	return r.Get(ctx, id)
}

func fromDomain(g *domain.Gift) giftModel {
	return giftModel{
		ID:          g.ID,
		Name:        g.Name,
		Description: g.Description,
		Price:       g.Price,
		Category:    g.Category,
		ImageURLs:   pq.StringArray(nonNil(g.ImageURLs)),
		Sizes:       pq.StringArray(nonNil(g.Sizes)),
		Stock:       g.Stock,
		IsActive:    g.IsActive,
		CreatedAt:   g.CreatedAt,
		UpdatedAt:   g.UpdatedAt,
	}
}

func (m giftModel) toDomain() domain.Gift {
	return domain.Gift{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		Price:       m.Price,
		Category:    m.Category,
		ImageURLs:   nonNil([]string(m.ImageURLs)),
		Sizes:       nonNil([]string(m.Sizes)),
		Stock:       m.Stock,
		IsActive:    m.IsActive,
		CreatedAt:   m.CreatedAt.UTC(),
		UpdatedAt:   m.UpdatedAt.UTC(),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
