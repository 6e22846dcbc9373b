package product

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) List(ctx context.Context, opts ListOptions) ([]*Product, int64, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*Product), args.Get(1).(int64), args.Error(2)
}

func (m *MockRepository) GetByID(ctx context.Context, id uint) (*Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Product), args.Error(1)
}

func TestService_GetList(t *testing.T) {
	ctx := context.Background()

	t.Run("NormalizesPaging", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo)

		repo.On("List", ctx, ListOptions{Limit: 100, Page: 1}).
			Return([]*Product{{ID: 1}}, int64(1), nil)

		res, err := svc.GetList(ctx, ListOptions{Limit: 500, Page: 0})
		require.NoError(t, err)
		assert.Equal(t, 100, res.Limit)
		assert.Equal(t, 1, res.Page)
		assert.Len(t, res.Items, 1)
		repo.AssertExpectations(t)
	})

	t.Run("DefaultLimit", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("List", ctx, ListOptions{Limit: 20, Page: 3}).Return([]*Product{}, int64(40), nil)

		res, err := NewService(repo).GetList(ctx, ListOptions{Page: 3})
		require.NoError(t, err)
		assert.Equal(t, int64(40), res.Total)
	})

	t.Run("RepoError", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("List", ctx, mock.Anything).Return(nil, int64(0), errors.New("db error"))

		_, err := NewService(repo).GetList(ctx, ListOptions{})
		assert.Error(t, err)
	})
}
