package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/divakaivan/my-reddit-server/internal/apperr"
	"github.com/divakaivan/my-reddit-server/internal/metrics"
	"github.com/divakaivan/my-reddit-server/internal/model"
	"github.com/divakaivan/my-reddit-server/internal/repository"
	"github.com/divakaivan/my-reddit-server/internal/requestctx"
)

// PlanKind is the ledger action chosen for a vote.
type PlanKind int

const (
	PlanNoop PlanKind = iota
	PlanInsert
	PlanFlip
)

func (k PlanKind) String() string {
	switch k {
	case PlanInsert:
		return "inserted"
	case PlanFlip:
		return "flipped"
	default:
		return "noop"
	}
}

// VotePlan is the ledger write and score delta for one vote.
type VotePlan struct {
	Kind  PlanKind
	From  model.Direction // previous direction, set for PlanFlip
	To    model.Direction
	Delta int64
}

// PlanVote decides what casting want does given the viewer's current entry.
//
//	no entry           -> insert, delta = want
//	same direction     -> no-op
//	opposite direction -> flip, delta = 2*want
func PlanVote(existing model.Direction, found bool, want model.Direction) (VotePlan, error) {
	if !want.Valid() {
		return VotePlan{}, apperr.New(apperr.CodeInvalidArgument, fmt.Sprintf("invalid vote direction %d", want))
	}
	if !found {
		return VotePlan{Kind: PlanInsert, To: want, Delta: int64(want)}, nil
	}
	if !existing.Valid() {
		return VotePlan{}, apperr.New(apperr.CodeInvariantViolation,
			fmt.Sprintf("ledger entry holds direction %d", existing))
	}
	if existing == want {
		return VotePlan{Kind: PlanNoop, From: existing, To: want}, nil
	}
	return VotePlan{Kind: PlanFlip, From: existing, To: want, Delta: 2 * int64(want)}, nil
}

// VoteService records votes in the ledger and keeps post scores in step.
type VoteService struct {
	store repository.TxRunner
	log   zerolog.Logger
}

func NewVoteService(store repository.TxRunner, log zerolog.Logger) *VoteService {
	return &VoteService{store: store, log: log.With().Str("component", "vote").Logger()}
}

// Cast records the viewer's vote on postID. Repeating the current direction
// succeeds without writing. A lost race is retried once; a second loss is
// reported as a transient failure and nothing is applied.
func (s *VoteService) Cast(ctx context.Context, req *requestctx.Request, postID int64, dir model.Direction) error {
	viewerID, ok := req.Viewer()
	if !ok {
		metrics.ObserveVote(dir.String(), "unauthenticated")
		return apperr.ErrUnauthenticated
	}
	if !dir.Valid() {
		metrics.ObserveVote("invalid", "invalid")
		return apperr.New(apperr.CodeInvalidArgument, fmt.Sprintf("invalid vote direction %d", dir))
	}
	if postID <= 0 {
		metrics.ObserveVote(dir.String(), "not_found")
		return apperr.New(apperr.CodeNotFound, "post not found")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	// Once started, the transaction runs to commit or rollback.
	ctx = context.WithoutCancel(ctx)

	plan, err := s.apply(ctx, viewerID, postID, dir)
	if errors.Is(err, repository.ErrConflict) {
		s.log.Debug().Int64("post_id", postID).Err(err).Msg("vote conflict, retrying")
		plan, err = s.apply(ctx, viewerID, postID, dir)
		if errors.Is(err, repository.ErrConflict) {
			metrics.ObserveVote(dir.String(), "transient")
			s.log.Warn().Int64("post_id", postID).Err(err).Msg("vote conflict after retry")
			return apperr.Wrap(apperr.CodeTransientFailure, "vote could not be applied, try again", err)
		}
	}

	switch {
	case err == nil:
		metrics.ObserveVote(dir.String(), plan.Kind.String())
		s.log.Debug().
			Int64("post_id", postID).
			Int64("viewer_id", viewerID).
			Str("direction", dir.String()).
			Str("outcome", plan.Kind.String()).
			Int64("delta", plan.Delta).
			Msg("vote cast")
		return nil
	case errors.Is(err, repository.ErrNotFound):
		metrics.ObserveVote(dir.String(), "not_found")
		return apperr.Wrap(apperr.CodeNotFound, "post not found", err)
	case apperr.HasCode(err, apperr.CodeInvariantViolation):
		metrics.ObserveVote(dir.String(), "invariant_violation")
		s.log.Error().
			Int64("post_id", postID).
			Int64("viewer_id", viewerID).
			Err(err).
			Msg("vote ledger invariant violated")
		return err
	default:
		metrics.ObserveVote(dir.String(), "error")
		return apperr.Wrap(apperr.CodeInternal, "cast vote", err)
	}
}

// apply runs one vote attempt in its own transaction.
func (s *VoteService) apply(ctx context.Context, viewerID, postID int64, dir model.Direction) (VotePlan, error) {
	var plan VotePlan
	err := s.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		existing, found, err := tx.GetVote(ctx, viewerID, postID)
		if err != nil {
			return err
		}
		plan, err = PlanVote(existing, found, dir)
		if err != nil {
			return err
		}

		switch plan.Kind {
		case PlanNoop:
			return nil
		case PlanInsert:
			err = tx.InsertVote(ctx, viewerID, postID, plan.To)
		case PlanFlip:
			err = tx.FlipVote(ctx, viewerID, postID, plan.From, plan.To)
		}
		if err != nil {
			return err
		}
		_, err = tx.AddScore(ctx, postID, plan.Delta)
		return err
	})
	return plan, err
}
