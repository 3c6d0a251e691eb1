package media

import (
	"context"
	"slices"

	"gorm.io/gorm"

	"github.com/angelmondragon/adspace-backend/internal/access"
	"github.com/angelmondragon/adspace-backend/pkg/db/models"
	"github.com/angelmondragon/adspace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/adspace-backend/pkg/errors"
)

// Rules lists every price rule linked to the media.
func (s *service) Rules(ctx context.Context, actor access.Actor, id uint64) ([]models.PriceRule, error) {
	if _, err := s.visible(ctx, actor, id); err != nil {
		return nil, err
	}
	rules, err := s.repo.LinkedRules(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load price rules")
	}
	return nonNil(rules), nil
}

// ActiveRules lists the linked rules whose window contains today.
func (s *service) ActiveRules(ctx context.Context, actor access.Actor, id uint64) ([]models.PriceRule, error) {
	if _, err := s.visible(ctx, actor, id); err != nil {
		return nil, err
	}
	rules, err := s.repo.ActiveRules(ctx, id, s.clock.Today())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active price rules")
	}
	return nonNil(rules), nil
}

func (s *service) AttachRule(ctx context.Context, actor access.Actor, id, ruleID uint64) ([]models.PriceRule, error) {
	return s.changeLinks(ctx, actor, id, func(current []uint64) ([]uint64, error) {
		if slices.Contains(current, ruleID) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "price rule already attached")
		}
		return append(slices.Clone(current), ruleID), nil
	})
}

func (s *service) DetachRule(ctx context.Context, actor access.Actor, id, ruleID uint64) ([]models.PriceRule, error) {
	return s.changeLinks(ctx, actor, id, func(current []uint64) ([]uint64, error) {
		idx := slices.Index(current, ruleID)
		if idx < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "price rule is not attached to the media")
		}
		return slices.Delete(slices.Clone(current), idx, idx+1), nil
	})
}

// SyncRules makes ruleIDs the exact linked set.
func (s *service) SyncRules(ctx context.Context, actor access.Actor, id uint64, ruleIDs []uint64) (*Reconciled, error) {
	var out Reconciled
	err := s.withOwnedMedia(ctx, actor, id, func(tx *gorm.DB, repo Repository, current []uint64) error {
		var err error
		out, err = s.reconciler.Reconcile(ctx, tx, id, current, ruleIDs)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *service) changeLinks(ctx context.Context, actor access.Actor, id uint64, next func([]uint64) ([]uint64, error)) ([]models.PriceRule, error) {
	var rules []models.PriceRule
	err := s.withOwnedMedia(ctx, actor, id, func(tx *gorm.DB, repo Repository, current []uint64) error {
		wanted, err := next(current)
		if err != nil {
			return err
		}
		if _, err := s.reconciler.Reconcile(ctx, tx, id, current, wanted); err != nil {
			return err
		}
		rules, err = repo.LinkedRules(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load price rules")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return nonNil(rules), nil
}

// withOwnedMedia locks the media, checks the actor may edit it and hands the
// currently linked rule ids to fn.
func (s *service) withOwnedMedia(ctx context.Context, actor access.Actor, id uint64, fn func(tx *gorm.DB, repo Repository, current []uint64) error) error {
	if err := actor.RequireRole(enums.RoleAdmin, enums.RoleProvider); err != nil {
		return err
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		media, err := repo.Lock(ctx, id)
		if err != nil {
			return lookupError(err)
		}
		if err := actor.RequireOwnerOrAdmin(media.UserID, "media"); err != nil {
			return err
		}
		current, err := repo.LinkedRuleIDs(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load linked rules")
		}
		return fn(tx, repo, current)
	})
}

func nonNil(rules []models.PriceRule) []models.PriceRule {
	if rules == nil {
		return []models.PriceRule{}
	}
	return rules
}
