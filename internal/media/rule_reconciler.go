package media

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"gorm.io/gorm"

	pkgerrors "github.com/angelmondragon/adspace-backend/pkg/errors"
)

// RuleReconciler syncs a media's price rule references with the media_price_rules table.
type RuleReconciler interface {
	Reconcile(ctx context.Context, tx *gorm.DB, mediaID uint64, oldRuleIDs, newRuleIDs []uint64) (Reconciled, error)
}

// Reconciled reports what a sync changed.
type Reconciled struct {
	Attached []uint64 `json:"attached"`
	Detached []uint64 `json:"detached"`
}

type ruleReconciler struct {
	links linkRepository
}

type linkRepository interface {
	Create(ctx context.Context, tx *gorm.DB, mediaID, ruleID uint64) error
	Delete(ctx context.Context, tx *gorm.DB, mediaID, ruleID uint64) error
	ExistingRules(ctx context.Context, tx *gorm.DB, ids []uint64) ([]uint64, error)
}

// NewRuleReconciler constructs the helper shared by media writes and the
// attach, detach and sync endpoints.
func NewRuleReconciler(links linkRepository) (RuleReconciler, error) {
	if links == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rule link repository required")
	}
	return &ruleReconciler{links: links}, nil
}

func (r *ruleReconciler) Reconcile(ctx context.Context, tx *gorm.DB, mediaID uint64, oldRuleIDs, newRuleIDs []uint64) (Reconciled, error) {
	var out Reconciled
	if mediaID == 0 {
		return out, pkgerrors.New(pkgerrors.CodeValidation, "media_id required")
	}
	if tx == nil || tx.Statement == nil || tx.Statement.ConnPool == nil {
		return out, pkgerrors.New(pkgerrors.CodeValidation, "transaction required")
	}

	oldSet := dedupe(oldRuleIDs)
	newSet := dedupe(newRuleIDs)
	out.Attached = difference(newSet, oldSet)
	out.Detached = difference(oldSet, newSet)

	if len(out.Attached) > 0 {
		found, err := r.links.ExistingRules(ctx, tx, out.Attached)
		if err != nil {
			return Reconciled{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load price rules")
		}
		if missing := difference(dedupe(out.Attached), dedupe(found)); len(missing) > 0 {
			return Reconciled{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown price rules").
				WithDetails(map[string]any{"price_rule_ids": "unknown ids " + joinIDs(missing)})
		}
	}

	for _, ruleID := range out.Attached {
		if err := r.links.Create(ctx, tx, mediaID, ruleID); err != nil {
			return Reconciled{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attach price rule")
		}
	}
	for _, ruleID := range out.Detached {
		if err := r.links.Delete(ctx, tx, mediaID, ruleID); err != nil {
			return Reconciled{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "detach price rule")
		}
	}
	return out, nil
}

func dedupe(ids []uint64) map[uint64]struct{} {
	set := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		set[id] = struct{}{}
	}
	return set
}

// difference returns the ids of a missing from b in ascending order.
func difference(a, b map[uint64]struct{}) []uint64 {
	out := make([]uint64, 0)
	for id := range a {
		if _, ok := b[id]; !ok {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

func joinIDs(ids []uint64) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprint(id))
	}
	return strings.Join(parts, ", ")
}
