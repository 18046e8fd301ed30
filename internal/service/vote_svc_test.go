package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/divakaivan/my-reddit-server/internal/apperr"
	"github.com/divakaivan/my-reddit-server/internal/model"
	"github.com/divakaivan/my-reddit-server/internal/repository"
	"github.com/divakaivan/my-reddit-server/internal/requestctx"
)

func TestPlanVote(t *testing.T) {
	tests := []struct {
		name     string
		existing model.Direction
		found    bool
		want     model.Direction
		kind     PlanKind
		delta    int64
	}{
		{"first upvote", 0, false, model.Up, PlanInsert, 1},
		{"first downvote", 0, false, model.Down, PlanInsert, -1},
		{"repeat upvote", model.Up, true, model.Up, PlanNoop, 0},
		{"repeat downvote", model.Down, true, model.Down, PlanNoop, 0},
		{"up to down", model.Up, true, model.Down, PlanFlip, -2},
		{"down to up", model.Down, true, model.Up, PlanFlip, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := PlanVote(tt.existing, tt.found, tt.want)
			if err != nil {
				t.Fatalf("PlanVote() error = %v", err)
			}
			if plan.Kind != tt.kind || plan.Delta != tt.delta {
				t.Errorf("PlanVote() = %v/%d, want %v/%d", plan.Kind, plan.Delta, tt.kind, tt.delta)
			}
		})
	}
}

func TestPlanVote_Errors(t *testing.T) {
	if _, err := PlanVote(0, false, 0); !apperr.HasCode(err, apperr.CodeInvalidArgument) {
		t.Errorf("zero direction: err = %v, want INVALID_ARGUMENT", err)
	}
	if _, err := PlanVote(5, true, model.Up); !apperr.HasCode(err, apperr.CodeInvariantViolation) {
		t.Errorf("stored direction 5: err = %v, want INVARIANT_VIOLATION", err)
	}
}

func TestCast_InsertRepeatFlip(t *testing.T) {
	s := openStore(t)
	author := seedUser(t, s, "author")
	voter := seedUser(t, s, "voter")
	post := seedPost(t, s, author.ID, "p", time.Now())
	svc := NewVoteService(s, testLog)
	ctx := context.Background()

	require.NoError(t, svc.Cast(ctx, viewer(s, voter.ID), post.ID, model.Up))
	assert.EqualValues(t, 1, postScore(t, s, post.ID))

	require.NoError(t, svc.Cast(ctx, viewer(s, voter.ID), post.ID, model.Up))
	assert.EqualValues(t, 1, postScore(t, s, post.ID), "repeating a vote is a no-op")

	require.NoError(t, svc.Cast(ctx, viewer(s, voter.ID), post.ID, model.Down))
	assert.EqualValues(t, -1, postScore(t, s, post.ID), "flip moves the score by 2")

	require.NoError(t, svc.Cast(ctx, viewer(s, voter.ID), post.ID, model.Up))
	assert.EqualValues(t, 1, postScore(t, s, post.ID))

	require.NoError(t, NewScoreService(s, testLog).Audit(ctx, post.ID))
}

func TestCast_ScoreEqualsLedgerSum(t *testing.T) {
	s := openStore(t)
	author := seedUser(t, s, "author")
	post := seedPost(t, s, author.ID, "p", time.Now())
	svc := NewVoteService(s, testLog)
	ctx := context.Background()

	dirs := []model.Direction{model.Up, model.Down, model.Up, model.Up, model.Down}
	for i, d := range dirs {
		u := seedUser(t, s, fmt.Sprintf("voter%d", i))
		require.NoError(t, svc.Cast(ctx, viewer(s, u.ID), post.ID, d))
	}
	assert.EqualValues(t, 1, postScore(t, s, post.ID))
	require.NoError(t, NewScoreService(s, testLog).Audit(ctx, post.ID))
}

func TestCast_Unauthenticated(t *testing.T) {
	runner := &scriptedRunner{}
	svc := NewVoteService(runner, testLog)

	err := svc.Cast(context.Background(), requestctx.New(0, nil), 1, model.Up)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
	assert.Zero(t, runner.calls, "no store access for anonymous viewers")
}

func TestCast_InvalidDirection(t *testing.T) {
	runner := &scriptedRunner{}
	svc := NewVoteService(runner, testLog)

	err := svc.Cast(context.Background(), requestctx.New(1, nil), 1, 0)
	assert.True(t, apperr.HasCode(err, apperr.CodeInvalidArgument), "err = %v", err)
	assert.Zero(t, runner.calls)
}

func TestCast_PostNotFound(t *testing.T) {
	s := openStore(t)
	voter := seedUser(t, s, "voter")
	svc := NewVoteService(s, testLog)

	err := svc.Cast(context.Background(), viewer(s, voter.ID), 4242, model.Up)
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound), "err = %v", err)
}

func TestCast_ConcurrentViewers(t *testing.T) {
	s := openStore(t)
	author := seedUser(t, s, "author")
	post := seedPost(t, s, author.ID, "p", time.Now())
	svc := NewVoteService(s, testLog)

	const n = 20
	voters := make([]*model.Author, n)
	for i := range voters {
		voters[i] = seedUser(t, s, fmt.Sprintf("voter%02d", i))
	}

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for _, v := range voters {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			errs <- svc.Cast(context.Background(), viewer(s, id), post.ID, model.Up)
		}(v.ID)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.EqualValues(t, n, postScore(t, s, post.ID))
}

func TestCast_ConcurrentSameViewer(t *testing.T) {
	s := openStore(t)
	author := seedUser(t, s, "author")
	voter := seedUser(t, s, "voter")
	post := seedPost(t, s, author.ID, "p", time.Now())
	svc := NewVoteService(s, testLog)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := svc.Cast(context.Background(), viewer(s, voter.ID), post.ID, model.Up)
			// A lost race may surface as a transient failure; it must never double count.
			if err != nil && !apperr.HasCode(err, apperr.CodeTransientFailure) {
				t.Errorf("Cast() error = %v", err)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, postScore(t, s, post.ID))
	require.NoError(t, NewScoreService(s, testLog).Audit(context.Background(), post.ID))
}

func TestCast_RetryPolicy(t *testing.T) {
	tests := []struct {
		name      string
		results   []error
		wantCalls int
		wantCode  apperr.Code
	}{
		{"success", []error{nil}, 1, ""},
		{"one conflict then success", []error{repository.ErrConflict, nil}, 2, ""},
		{"two conflicts", []error{repository.ErrConflict, repository.ErrConflict}, 2, apperr.CodeTransientFailure},
		{"not found is not retried", []error{repository.ErrNotFound}, 1, apperr.CodeNotFound},
		{"other errors are not retried", []error{errors.New("disk full")}, 1, apperr.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &scriptedRunner{results: tt.results}
			svc := NewVoteService(runner, testLog)

			err := svc.Cast(context.Background(), requestctx.New(1, nil), 1, model.Up)
			assert.Equal(t, tt.wantCalls, runner.calls)
			assert.Equal(t, tt.wantCode, apperr.CodeOf(err))
		})
	}
}

func TestCast_InvariantViolationIsReported(t *testing.T) {
	runner := &scriptedRunner{tx: &stubTx{existing: 3, found: true}}
	svc := NewVoteService(runner, testLog)

	err := svc.Cast(context.Background(), requestctx.New(1, nil), 1, model.Up)
	assert.True(t, apperr.HasCode(err, apperr.CodeInvariantViolation), "err = %v", err)
	assert.Equal(t, 1, runner.calls)
	assert.False(t, runner.tx.wrote, "nothing is written on a corrupt entry")
}

func TestCast_CancelledBeforeStart(t *testing.T) {
	runner := &scriptedRunner{}
	svc := NewVoteService(runner, testLog)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := svc.Cast(ctx, requestctx.New(1, nil), 1, model.Up)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, runner.calls)
}

// scriptedRunner returns results[i] from the i-th InTx call. When tx is set the
// callback runs against it first.
type scriptedRunner struct {
	results []error
	tx      *stubTx
	calls   int
}

func (r *scriptedRunner) InTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	r.calls++
	if r.tx != nil {
		if err := fn(ctx, r.tx); err != nil {
			return err
		}
	}
	if r.calls <= len(r.results) {
		return r.results[r.calls-1]
	}
	return nil
}

type stubTx struct {
	existing model.Direction
	found    bool
	wrote    bool
}

func (s *stubTx) GetVote(context.Context, int64, int64) (model.Direction, bool, error) {
	return s.existing, s.found, nil
}

func (s *stubTx) InsertVote(context.Context, int64, int64, model.Direction) error {
	s.wrote = true
	return nil
}

func (s *stubTx) FlipVote(context.Context, int64, int64, model.Direction, model.Direction) error {
	s.wrote = true
	return nil
}

func (s *stubTx) AddScore(context.Context, int64, int64) (int64, error) {
	s.wrote = true
	return 0, nil
}

func (s *stubTx) GetPost(context.Context, int64) (*model.Post, error) {
	return nil, repository.ErrNotFound
}

func (s *stubTx) UpdatePost(context.Context, int64, string, string, time.Time) (*model.Post, error) {
	return nil, repository.ErrNotFound
}

func (s *stubTx) DeleteVotesForPost(context.Context, int64) error { return nil }
func (s *stubTx) DeletePost(context.Context, int64) error         { return nil }
func (s *stubTx) LedgerSum(context.Context, int64) (int64, error) { return 0, nil }
func (s *stubTx) SetScore(context.Context, int64, int64) error    { return nil }
