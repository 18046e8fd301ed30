package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/divakaivan/my-reddit-server/internal/apperr"
	"github.com/divakaivan/my-reddit-server/internal/model"
	"github.com/divakaivan/my-reddit-server/internal/repository"
)

func TestScoreService_AuditDetectsAndReconcilesDrift(t *testing.T) {
	s := openStore(t)
	alice := seedUser(t, s, "alice")
	bob := seedUser(t, s, "bob")
	clean := seedPost(t, s, alice.ID, "clean", time.Now())
	drifted := seedPost(t, s, alice.ID, "drifted", time.Now())
	ctx := context.Background()

	votes := NewVoteService(s, testLog)
	require.NoError(t, votes.Cast(ctx, viewer(s, bob.ID), clean.ID, model.Up))
	require.NoError(t, votes.Cast(ctx, viewer(s, bob.ID), drifted.ID, model.Down))

	// Corrupt one denormalized score behind the ledger's back.
	require.NoError(t, s.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		return tx.SetScore(ctx, drifted.ID, 10)
	}))

	svc := NewScoreService(s, testLog)
	require.NoError(t, svc.Audit(ctx, clean.ID))

	err := svc.Audit(ctx, drifted.ID)
	assert.True(t, apperr.HasCode(err, apperr.CodeInvariantViolation), "err = %v", err)

	drift, err := svc.AuditAll(ctx)
	require.NoError(t, err)
	require.Len(t, drift, 1)
	assert.Equal(t, model.ScoreDrift{PostID: drifted.ID, Score: 10, LedgerSum: -1}, drift[0])

	fixed, err := svc.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, fixed)
	require.NoError(t, svc.Audit(ctx, drifted.ID))
	assert.EqualValues(t, -1, postScore(t, s, drifted.ID))
}

func TestScoreService_AuditMissingPost(t *testing.T) {
	s := openStore(t)
	err := NewScoreService(s, testLog).Audit(context.Background(), 31337)
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound), "err = %v", err)
}

func TestAuditWorker_StopsOnSignal(t *testing.T) {
	s := openStore(t)
	w := NewAuditWorker(NewScoreService(s, testLog), time.Hour, testLog)

	done := make(chan struct{})
	go func() {
		w.Start(context.Background())
		close(done)
	}()
	w.Stop()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
	}
}
