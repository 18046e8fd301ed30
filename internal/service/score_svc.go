package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/divakaivan/my-reddit-server/internal/apperr"
	"github.com/divakaivan/my-reddit-server/internal/metrics"
	"github.com/divakaivan/my-reddit-server/internal/model"
	"github.com/divakaivan/my-reddit-server/internal/repository"
)

// ScoreStore is the storage surface for score audits.
type ScoreStore interface {
	repository.TxRunner
	ScoreDrift(ctx context.Context) ([]model.ScoreDrift, error)
}

// ScoreService checks that each post's stored score equals the sum of its
// ledger entries, and repairs drift from the ledger.
type ScoreService struct {
	store ScoreStore
	log   zerolog.Logger
}

func NewScoreService(store ScoreStore, log zerolog.Logger) *ScoreService {
	return &ScoreService{store: store, log: log.With().Str("component", "score").Logger()}
}

// Audit checks one post. A mismatch is an invariant violation.
func (s *ScoreService) Audit(ctx context.Context, postID int64) error {
	var score, sum int64
	err := s.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		p, err := tx.GetPost(ctx, postID)
		if err != nil {
			return err
		}
		score = p.Score
		sum, err = tx.LedgerSum(ctx, postID)
		return err
	})
	if err != nil {
		return storeError("audit post", err)
	}
	if score != sum {
		s.log.Error().Int64("post_id", postID).Int64("score", score).Int64("ledger_sum", sum).
			Msg("post score disagrees with vote ledger")
		return apperr.New(apperr.CodeInvariantViolation,
			fmt.Sprintf("post %d: score %d, ledger sum %d", postID, score, sum))
	}
	return nil
}

// AuditAll lists every drifted post.
func (s *ScoreService) AuditAll(ctx context.Context) ([]model.ScoreDrift, error) {
	drift, err := s.store.ScoreDrift(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "list score drift", err)
	}
	metrics.SetScoreDrift(len(drift))
	for _, d := range drift {
		s.log.Error().Int64("post_id", d.PostID).Int64("score", d.Score).Int64("ledger_sum", d.LedgerSum).
			Msg("post score disagrees with vote ledger")
	}
	return drift, nil
}

// Reconcile rewrites every drifted score from its ledger, one transaction per
// post, and returns how many posts were repaired.
func (s *ScoreService) Reconcile(ctx context.Context) (int, error) {
	drift, err := s.AuditAll(ctx)
	if err != nil {
		return 0, err
	}

	fixed := 0
	for _, d := range drift {
		err := s.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
			// Recompute inside the transaction; votes may have landed since the audit.
			sum, err := tx.LedgerSum(ctx, d.PostID)
			if err != nil {
				return err
			}
			return tx.SetScore(ctx, d.PostID, sum)
		})
		if err != nil {
			return fixed, storeError("reconcile score", err)
		}
		fixed++
		s.log.Info().Int64("post_id", d.PostID).Msg("score reconciled from ledger")
	}
	if fixed > 0 {
		metrics.SetScoreDrift(0)
	}
	return fixed, nil
}
