package loader

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/divakaivan/my-reddit-server/internal/model"
)

type fakeSource struct {
	mu          sync.Mutex
	authors     map[int64]model.Author
	votes       map[model.VoteKey]model.Direction
	authorCalls [][]int64
	voteCalls   [][]model.VoteKey
	err         error
}

func (f *fakeSource) AuthorsByIDs(_ context.Context, ids []int64) ([]model.Author, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authorCalls = append(f.authorCalls, append([]int64(nil), ids...))
	if f.err != nil {
		return nil, f.err
	}
	var out []model.Author
	// Reverse order to show result order does not matter.
	for i := len(ids) - 1; i >= 0; i-- {
		if a, ok := f.authors[ids[i]]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeSource) VotesByKeys(_ context.Context, keys []model.VoteKey) ([]model.Vote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.voteCalls = append(f.voteCalls, append([]model.VoteKey(nil), keys...))
	if f.err != nil {
		return nil, f.err
	}
	var out []model.Vote
	for i := len(keys) - 1; i >= 0; i-- {
		if d, ok := f.votes[keys[i]]; ok {
			out = append(out, model.Vote{ViewerID: keys[i].ViewerID, PostID: keys[i].PostID, Direction: d})
		}
	}
	return out, nil
}

func TestVoteLoaderBatchesFivePairsIntoOneFetch(t *testing.T) {
	src := &fakeSource{votes: map[model.VoteKey]model.Direction{
		{ViewerID: 1, PostID: 10}: model.Up,
		{ViewerID: 1, PostID: 30}: model.Down,
	}}
	ls := NewLoaders(src)

	var thunks []*Thunk[model.VoteKey, model.Direction]
	for _, post := range []int64{10, 20, 30, 40, 50} {
		thunks = append(thunks, ls.Votes.Load(model.VoteKey{ViewerID: 1, PostID: post}))
	}
	require.NoError(t, ls.Flush(context.Background()))

	require.Len(t, src.voteCalls, 1)
	assert.Len(t, src.voteCalls[0], 5)
	assert.Empty(t, src.authorCalls, "no author keys were loaded")

	want := []struct {
		dir   model.Direction
		found bool
	}{
		{model.Up, true}, {0, false}, {model.Down, true}, {0, false}, {0, false},
	}
	for i, th := range thunks {
		dir, found, err := th.Get()
		require.NoError(t, err)
		assert.Equal(t, want[i].found, found, "thunk %d", i)
		assert.Equal(t, want[i].dir, dir, "thunk %d", i)
	}
}

func TestLoaderDeduplicatesKeys(t *testing.T) {
	src := &fakeSource{authors: map[int64]model.Author{7: {ID: 7, Username: "ann"}}}
	l := New(AuthorBatch(src), nil)

	a := l.Load(7)
	b := l.Load(7)
	l.Load(8)
	require.NoError(t, l.Flush(context.Background()))

	require.Len(t, src.authorCalls, 1)
	got := src.authorCalls[0]
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	assert.Equal(t, []int64{7, 8}, got)

	for _, th := range []*Thunk[int64, model.Author]{a, b} {
		v, found, err := th.Get()
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "ann", v.Username)
	}
}

func TestLoaderCachesAbsenceWithoutRefetch(t *testing.T) {
	src := &fakeSource{authors: map[int64]model.Author{}}
	l := New(AuthorBatch(src), nil)

	l.Load(99)
	require.NoError(t, l.Flush(context.Background()))

	th := l.Load(99)
	require.NoError(t, l.Flush(context.Background()))

	_, found, err := th.Get()
	require.NoError(t, err)
	assert.False(t, found)
	assert.Len(t, src.authorCalls, 1, "absent key must not be refetched")
	assert.Equal(t, 1, l.Batches())
}

func TestThunkPendingBeforeFlush(t *testing.T) {
	l := New(AuthorBatch(&fakeSource{}), nil)
	_, _, err := l.Load(1).Get()
	assert.ErrorIs(t, err, ErrPending)
}

func TestFlushWithNothingPendingIsNoop(t *testing.T) {
	src := &fakeSource{}
	l := New(AuthorBatch(src), nil)
	require.NoError(t, l.Flush(context.Background()))
	assert.Empty(t, src.authorCalls)
}

func TestLoaderPropagatesFetchError(t *testing.T) {
	boom := errors.New("boom")
	src := &fakeSource{err: boom}
	l := New(AuthorBatch(src), nil)

	th := l.Load(1)
	err := l.Flush(context.Background())
	assert.ErrorIs(t, err, boom)

	_, found, err := th.Get()
	assert.ErrorIs(t, err, boom)
	assert.False(t, found)
}

func TestLoaderObservesBatchSize(t *testing.T) {
	var sizes []int
	l := New(AuthorBatch(&fakeSource{}), func(n int) { sizes = append(sizes, n) })
	l.Load(1)
	l.Load(2)
	l.Load(2)
	require.NoError(t, l.Flush(context.Background()))
	assert.Equal(t, []int{2}, sizes)
}

func TestLoadersAreIsolatedPerInstance(t *testing.T) {
	src := &fakeSource{authors: map[int64]model.Author{1: {ID: 1, Username: "a"}}}
	first := NewLoaders(src)
	second := NewLoaders(src)

	first.Authors.Load(1)
	require.NoError(t, first.Flush(context.Background()))

	th := second.Authors.Load(1)
	_, _, err := th.Get()
	assert.ErrorIs(t, err, ErrPending, "a fresh loader must not see another loader's cache")

	require.NoError(t, second.Flush(context.Background()))
	assert.Len(t, src.authorCalls, 2)
}

func TestLoaderGet(t *testing.T) {
	src := &fakeSource{authors: map[int64]model.Author{3: {ID: 3, Username: "c"}}}
	l := New(AuthorBatch(src), nil)

	a, found, err := l.Get(context.Background(), 3)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "c", a.Username)
}

func TestLoadDuringInFlightFlushSharesTheFetch(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var mu sync.Mutex
	calls := 0
	l := New(func(_ context.Context, keys []int64) (map[int64]string, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		close(started)
		<-release
		return map[int64]string{1: "one"}, nil
	}, nil)
	ctx := context.Background()

	first := l.Load(1)
	firstDone := make(chan error, 1)
	go func() { firstDone <- l.Flush(ctx) }()
	<-started

	second := l.Load(1)
	secondDone := make(chan error, 1)
	go func() { secondDone <- l.Flush(ctx) }()

	close(release)
	require.NoError(t, <-firstDone)
	require.NoError(t, <-secondDone)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, l.Batches())
	for _, th := range []*Thunk[int64, string]{first, second} {
		v, found, err := th.Get()
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "one", v)
	}
}

func TestFlushWaitHonorsContext(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	defer close(release)
	l := New(func(_ context.Context, keys []int64) (map[int64]string, error) {
		close(started)
		<-release
		return nil, nil
	}, nil)

	l.Load(1)
	go func() { _ = l.Flush(context.Background()) }()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, l.Flush(ctx), context.Canceled)
}
