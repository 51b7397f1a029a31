package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/totegamma/curatorgate/internal/domain"
	"github.com/totegamma/curatorgate/internal/infra/database/models"
	"github.com/totegamma/curatorgate/internal/usecase"
)

type GrantRepository struct {
	db *gorm.DB
}

func NewGrantRepository(db *gorm.DB) *GrantRepository {
	return &GrantRepository{db: db}
}

// Exists reports whether subjectID holds any grant (scopeID empty) or a grant
// covering scopeID, global grants included.
func (r *GrantRepository) Exists(ctx context.Context, subjectID, scopeID string) (bool, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Grant{}).
		Where("subject_id = ?", subjectID)
	if scopeID != "" {
		query = query.Where("scope_id IN ?", []string{scopeID, domain.GlobalScope})
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, storageErr(err, "failed to look up grants")
	}
	return count > 0, nil
}

func (r *GrantRepository) ListBySubject(ctx context.Context, subjectID string) ([]domain.Grant, error) {
	var rows []models.Grant
	err := r.db.WithContext(ctx).
		Where("subject_id = ?", subjectID).
		Order("issued_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, storageErr(err, "failed to list grants")
	}

	grants := make([]domain.Grant, 0, len(rows))
	for _, row := range rows {
		grants = append(grants, toDomainGrant(row))
	}
	return grants, nil
}

func toDomainGrant(row models.Grant) domain.Grant {
	return domain.Grant{
		ID:        row.ID,
		SubjectID: row.SubjectID,
		ScopeID:   row.ScopeID,
		Code:      row.Code,
		IssuedAt:  row.IssuedAt,
	}
}

var _ usecase.GrantRepository = (*GrantRepository)(nil)
