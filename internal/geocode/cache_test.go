package geocode

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSearcher struct {
	mock.Mock
}

func (m *mockSearcher) Search(ctx context.Context, term string) (Envelope, error) {
	args := m.Called(ctx, term)
	return args.Get(0).(Envelope), args.Error(1)
}

func TestCachedSearcher_HitsCacheOnRepeat(t *testing.T) {
	next := &mockSearcher{}
	features := []Feature{{ID: "a", Label: "Amsterdam"}}
	next.On("Search", mock.Anything, "ams").Return(Envelope{Features: features}, nil).Once()

	s := NewCachedSearcher(next, 8, time.Minute)
	for i := 0; i < 3; i++ {
		env, err := s.Search(context.Background(), "ams")
		require.NoError(t, err)
		assert.Equal(t, features, env.Features)
	}
	assert.Equal(t, 1, s.Len())
	next.AssertExpectations(t)
}

func TestCachedSearcher_DoesNotCacheFailuresOrDiscards(t *testing.T) {
	next := &mockSearcher{}
	next.On("Search", mock.Anything, "x").Return(Envelope{}, errors.New("boom")).Once()
	next.On("Search", mock.Anything, "y").Return(Envelope{Discard: true}, nil).Once()

	s := NewCachedSearcher(next, 8, time.Minute)
	_, err := s.Search(context.Background(), "x")
	assert.Error(t, err)
	env, err := s.Search(context.Background(), "y")
	require.NoError(t, err)
	assert.True(t, env.Discard)

	assert.Equal(t, 0, s.Len())
	next.AssertExpectations(t)
}
