package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agenthive/auth-service/internal/domain"
	"github.com/agenthive/auth-service/internal/observability"
)

// SessionRepository persists session rows backing refresh tokens. Live rows
// are append-only: Rotate only ever inserts, concurrent rotations for the
// same principal land as independent rows, and nothing updates a row after
// creation. DeleteExpired is the reaper's entry point.
type SessionRepository interface {
	Rotate(ctx context.Context, s *domain.Session) error
	ListByPrincipalID(ctx context.Context, principalID uuid.UUID) ([]domain.Session, error)
	CountByPrincipalID(ctx context.Context, principalID uuid.UUID) (int64, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

type GormSessionRepository struct{ db *gorm.DB }

func NewSessionRepository(db *gorm.DB) SessionRepository { return &GormSessionRepository{db: db} }

func (r *GormSessionRepository) Rotate(ctx context.Context, s *domain.Session) error {
	err := r.db.WithContext(ctx).Create(s).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "session", "rotate", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "session", "rotate", "success")
	return nil
}

func (r *GormSessionRepository) ListByPrincipalID(ctx context.Context, principalID uuid.UUID) ([]domain.Session, error) {
	var sessions []domain.Session
	err := r.db.WithContext(ctx).
		Where("principal_id = ?", principalID).
		Order("created_at ASC").
		Find(&sessions).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "session", "list_by_principal_id", "error")
		return sessions, err
	}
	observability.RecordRepositoryOperation(ctx, "session", "list_by_principal_id", "success")
	return sessions, nil
}

// ListPageByPrincipalID is the paged variant backing the maintenance CLI,
// newest rows first.
func (r *GormSessionRepository) ListPageByPrincipalID(ctx context.Context, principalID uuid.UUID, req PageRequest) ([]domain.Session, PageInfo, error) {
	req = normalizePageRequest(req)

	var total int64
	if err := r.db.WithContext(ctx).
		Model(&domain.Session{}).
		Where("principal_id = ?", principalID).
		Count(&total).Error; err != nil {
		observability.RecordRepositoryOperation(ctx, "session", "list_page_by_principal_id", "error")
		return nil, PageInfo{}, err
	}

	var sessions []domain.Session
	err := r.db.WithContext(ctx).
		Where("principal_id = ?", principalID).
		Order("created_at DESC").
		Offset((req.Page - 1) * req.PageSize).
		Limit(req.PageSize).
		Find(&sessions).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "session", "list_page_by_principal_id", "error")
		return nil, PageInfo{}, err
	}
	observability.RecordRepositoryOperation(ctx, "session", "list_page_by_principal_id", "success")
	return sessions, PageInfo{
		Page:       req.Page,
		PageSize:   req.PageSize,
		Total:      total,
		TotalPages: calcTotalPages(total, req.PageSize),
	}, nil
}

func (r *GormSessionRepository) CountByPrincipalID(ctx context.Context, principalID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Session{}).
		Where("principal_id = ?", principalID).
		Count(&count).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "session", "count_by_principal_id", "error")
		return 0, err
	}
	observability.RecordRepositoryOperation(ctx, "session", "count_by_principal_id", "success")
	return count, nil
}

func (r *GormSessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at <= ?", time.Now()).Delete(&domain.Session{})
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "session", "delete_expired", "error")
		return res.RowsAffected, res.Error
	}
	observability.RecordRepositoryOperation(ctx, "session", "delete_expired", "success")
	return res.RowsAffected, nil
}
