package viewrepo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"sitetrack/internal/pkg/cache"
	"sitetrack/internal/pkg/logger"
	"sitetrack/internal/query"
)

type MockCache struct{ mock.Mock }

func (m *MockCache) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}
func (m *MockCache) Set(ctx context.Context, key string, v interface{}, exp time.Duration) error {
	return m.Called(ctx, key, v, exp).Error(0)
}
func (m *MockCache) Delete(ctx context.Context, key string) error { return m.Called(ctx, key).Error(0) }
func (m *MockCache) GetInt(ctx context.Context, key string) (int, error) {
	args := m.Called(ctx, key)
	return args.Int(0), args.Error(1)
}
func (m *MockCache) Incr(ctx context.Context, key string) (int64, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(int64), args.Error(1)
}
func (m *MockCache) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func TestLoad_MissReturnsInitialState(t *testing.T) {
	c := new(MockCache)
	c.On("Get", mock.Anything, "list-state:products:u1").Return("", cache.ErrCacheMiss)
	repo := New[query.ProductFilters](c, "products", time.Hour, logger.NewNop())

	s := repo.Load(context.Background(), "u1")

	assert.Equal(t, query.NewListState[query.ProductFilters](), s)
}

func TestLoad_RedisErrorFallsBack(t *testing.T) {
	c := new(MockCache)
	c.On("Get", mock.Anything, "list-state:tasks:u1").Return("", errors.New("conexão recusada"))
	repo := New[query.TaskFilters](c, "tasks", time.Hour, logger.NewNop())

	s := repo.Load(context.Background(), "u1")

	assert.Equal(t, 1, s.Params.Page)
	assert.Equal(t, query.ViewGrid, s.View)
}

func TestSaveThenLoad(t *testing.T) {
	c := new(MockCache)
	var stored []byte
	c.On("Set", mock.Anything, "list-state:products:u1", mock.Anything, time.Hour).
		Run(func(args mock.Arguments) { stored = args.Get(2).([]byte) }).
		Return(nil)
	repo := New[query.ProductFilters](c, "products", time.Hour, logger.NewNop())

	state := query.NewListState[query.ProductFilters]()
	state.SetSearch("furadeira")
	state.SetPage(3)
	state.SetView(query.ViewList)
	repo.Save(context.Background(), "u1", state)

	c.On("Get", mock.Anything, "list-state:products:u1").Return(string(stored), nil)
	loaded := repo.Load(context.Background(), "u1")

	assert.Equal(t, "furadeira", loaded.Params.Search)
	assert.Equal(t, 3, loaded.Params.Page)
	assert.Equal(t, query.ViewList, loaded.View)
	c.AssertExpectations(t)
}

func TestSave_ErrorIsOnlyLogged(t *testing.T) {
	c := new(MockCache)
	c.On("Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("timeout"))
	repo := New[query.TaskFilters](c, "tasks", time.Hour, logger.NewNop())

	assert.NotPanics(t, func() {
		repo.Save(context.Background(), "u1", query.NewListState[query.TaskFilters]())
	})
}
