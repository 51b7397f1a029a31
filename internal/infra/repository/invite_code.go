package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/totegamma/curatorgate/internal/domain"
	"github.com/totegamma/curatorgate/internal/infra/database/models"
	"github.com/totegamma/curatorgate/internal/usecase"
)

type InviteCodeRepository struct {
	db *gorm.DB
}

func NewInviteCodeRepository(db *gorm.DB) *InviteCodeRepository {
	return &InviteCodeRepository{db: db}
}

func (r *InviteCodeRepository) Create(ctx context.Context, code domain.InviteCode) error {
	row := fromDomainCode(code)
	err := r.db.WithContext(ctx).Create(&row).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrAlreadyExists
	}
	if err != nil {
		return storageErr(err, "failed to create invite code")
	}
	return nil
}

func (r *InviteCodeRepository) Get(ctx context.Context, code string) (domain.InviteCode, error) {
	var row models.InviteCode
	err := r.db.WithContext(ctx).
		Where("code = ?", code).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.InviteCode{}, domain.NotFoundError{Resource: "invite code"}
	}
	if err != nil {
		return domain.InviteCode{}, storageErr(err, "failed to get invite code")
	}
	return toDomainCode(row), nil
}

// Redeem locks the code row, checks it, takes one use and records the grant
// in a single transaction. The conditional update is the last line of
// defence against double spending.
func (r *InviteCodeRepository) Redeem(ctx context.Context, input domain.RedeemInput) (domain.Grant, error) {
	var grant models.Grant

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.InviteCode
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("code = ?", input.Code).
			Take(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.NotFoundError{Resource: "invite code"}
		}
		if err != nil {
			return storageErr(err, "failed to lock invite code")
		}

		code := toDomainCode(row)
		if err := code.Redeemable(input.Email, input.Now); err != nil {
			return err
		}

		updates := map[string]any{"used_count": gorm.Expr("used_count + 1")}
		if row.MaxUses > 0 && row.UsedCount+1 >= row.MaxUses {
			updates["consumed_at"] = input.Now
		}
		result := tx.Model(&models.InviteCode{}).
			Where("code = ? AND (max_uses = 0 OR used_count < max_uses)", input.Code).
			Updates(updates)
		if result.Error != nil {
			return storageErr(result.Error, "failed to consume invite code")
		}
		if result.RowsAffected == 0 {
			return domain.ErrAlreadyUsed
		}

		scope := input.Mode.GrantScope(code)
		newGrant := models.Grant{
			ID:        uuid.NewString(),
			SubjectID: input.SubjectID,
			ScopeID:   scope,
			Code:      row.Code,
			IssuedAt:  input.Now,
		}
		err = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "subject_id"}, {Name: "scope_id"}},
			DoNothing: true,
		}).Create(&newGrant).Error
		if err != nil {
			return storageErr(err, "failed to record grant")
		}

		// the subject may already hold a grant for this scope
		err = tx.Where("subject_id = ? AND scope_id = ?", input.SubjectID, scope).
			Take(&grant).Error
		if err != nil {
			return storageErr(err, "failed to load grant")
		}
		return nil
	})
	if err != nil {
		return domain.Grant{}, err
	}

	return toDomainGrant(grant), nil
}

func fromDomainCode(code domain.InviteCode) models.InviteCode {
	return models.InviteCode{
		Code:       code.Code,
		BoundEmail: code.BoundEmail,
		MaxUses:    code.MaxUses,
		UsedCount:  code.UsedCount,
		ExpiresAt:  code.ExpiresAt,
		ScopeID:    code.ScopeID,
		CreatedAt:  code.CreatedAt,
		ConsumedAt: code.ConsumedAt,
	}
}

func toDomainCode(row models.InviteCode) domain.InviteCode {
	return domain.InviteCode{
		Code:       row.Code,
		BoundEmail: row.BoundEmail,
		MaxUses:    row.MaxUses,
		UsedCount:  row.UsedCount,
		ExpiresAt:  row.ExpiresAt,
		ScopeID:    row.ScopeID,
		CreatedAt:  row.CreatedAt,
		ConsumedAt: row.ConsumedAt,
	}
}

var _ usecase.InviteCodeRepository = (*InviteCodeRepository)(nil)
