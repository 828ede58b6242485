package mirror

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/trbjo/rogquick/fanout"
)

type mockAccessor struct {
	mock.Mock
	connected bool
	handler   func([]any)
}

func (m *mockAccessor) Connected() bool { return m.connected }

func (m *mockAccessor) Fetch(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *mockAccessor) Store(ctx context.Context, v bool) error {
	return m.Called(ctx, v).Error(0)
}

func (m *mockAccessor) Decode(prev bool, body []any) (bool, error) {
	if len(body) == 0 {
		return prev, errors.New("empty")
	}
	v, ok := body[0].(bool)
	if !ok {
		return prev, errors.New("not a bool")
	}
	return v, nil
}

func (m *mockAccessor) Watch(h func([]any)) func() {
	m.handler = h
	return func() { m.handler = nil }
}

type counter struct{ n int }

func (c *counter) Sync() { c.n++ }

func newMirror(connected bool, initial bool) (*Mirror[bool], *mockAccessor, *counter) {
	acc := &mockAccessor{connected: connected}
	m := New("MiniLed", acc, initial)
	c := &counter{}
	m.Subscribe(c)
	return m, acc, c
}

func TestMirror_DisconnectedIsNoop(t *testing.T) {
	m, acc, c := newMirror(false, true)
	ctx := context.Background()

	assert.True(t, m.Get(ctx))
	assert.NoError(t, m.Set(ctx, false))
	assert.True(t, m.Cached())
	assert.Zero(t, c.n)
	acc.AssertNotCalled(t, "Fetch", mock.Anything)
	acc.AssertNotCalled(t, "Store", mock.Anything, mock.Anything)
}

func TestMirror_GetUpdatesCache(t *testing.T) {
	m, acc, c := newMirror(true, false)
	acc.On("Fetch", mock.Anything).Return(true, nil).Twice()

	assert.True(t, m.Get(context.Background()))
	assert.True(t, m.Cached())
	assert.Equal(t, 1, c.n)

	m.Get(context.Background())
	assert.Equal(t, 1, c.n, "unchanged fetch must not notify")
	acc.AssertExpectations(t)
}

func TestMirror_GetErrorKeepsStaleCache(t *testing.T) {
	m, acc, c := newMirror(true, true)
	acc.On("Fetch", mock.Anything).Return(false, errors.New("timeout"))

	assert.True(t, m.Get(context.Background()))
	assert.True(t, m.Cached())
	assert.Zero(t, c.n)
}

func TestMirror_SetIsOptimistic(t *testing.T) {
	m, acc, c := newMirror(true, true)
	acc.On("Store", mock.Anything, false).Run(func(mock.Arguments) {
		assert.False(t, m.Cached(), "cache must hold the new value while the write is in flight")
	}).Return(nil).Once()

	require.NoError(t, m.Set(context.Background(), false))
	assert.False(t, m.Cached())
	assert.Equal(t, 1, c.n)
	acc.AssertExpectations(t)
}

func TestMirror_SetOfCachedValueIsNotWritten(t *testing.T) {
	m, acc, c := newMirror(true, true)

	require.NoError(t, m.Set(context.Background(), true))
	assert.True(t, m.Cached())
	assert.Zero(t, c.n)
	acc.AssertNotCalled(t, "Store", mock.Anything, mock.Anything)
}

func TestMirror_Confirmed(t *testing.T) {
	m, acc, _ := newMirror(true, false)
	assert.False(t, m.Confirmed())

	acc.On("Fetch", mock.Anything).Return(false, errors.New("timeout")).Once()
	m.Get(context.Background())
	assert.False(t, m.Confirmed(), "a failed fetch confirms nothing")

	m.OnPush([]any{false})
	assert.True(t, m.Confirmed())

	m.Reset()
	assert.False(t, m.Confirmed())
}

func TestMirror_FailedSetRollsBack(t *testing.T) {
	m, acc, c := newMirror(true, true)
	acc.On("Store", mock.Anything, false).Return(errors.New("denied"))

	err := m.Set(context.Background(), false)
	assert.Error(t, err)
	assert.True(t, m.Cached())
	assert.Equal(t, 2, c.n)
}

func TestMirror_FailedSetKeepsNewerPush(t *testing.T) {
	m, acc, _ := newMirror(true, true)
	acc.On("Store", mock.Anything, false).Run(func(mock.Arguments) {
		// the daemon reports its own value before our write is answered
		m.OnPush([]any{true})
	}).Return(errors.New("denied"))

	assert.Error(t, m.Set(context.Background(), false))
	assert.True(t, m.Cached())

	acc.ExpectedCalls = nil
	acc.On("Store", mock.Anything, true).Run(func(mock.Arguments) {
		m.OnPush([]any{false})
	}).Return(errors.New("denied"))

	m.OnPush([]any{false})
	assert.Error(t, m.Set(context.Background(), true))
	assert.False(t, m.Cached(), "a rollback must not clobber the pushed value")
}

func TestMirror_OnPush(t *testing.T) {
	m, _, c := newMirror(true, false)

	m.OnPush([]any{true})
	assert.True(t, m.Cached())
	assert.Equal(t, 1, c.n)

	m.OnPush([]any{true})
	assert.Equal(t, 2, c.n, "every push fans out")

	m.OnPush([]any{"bogus"})
	m.OnPush(nil)
	assert.True(t, m.Cached())
	assert.Equal(t, 2, c.n)
}

func TestMirror_AttachAndDetach(t *testing.T) {
	m, acc, c := newMirror(true, false)
	acc.On("Fetch", mock.Anything).Return(true, nil).Once()

	m.Attach(context.Background())
	require.NotNil(t, acc.handler)
	assert.True(t, m.Cached())

	acc.handler([]any{false})
	assert.False(t, m.Cached())
	assert.Equal(t, 2, c.n)

	m.Detach()
	assert.Nil(t, acc.handler)
	assert.Zero(t, m.Subscribers())
	assert.False(t, m.Cached())
}

func TestMirror_PosterReceivesOffLoopNotifications(t *testing.T) {
	acc := &mockAccessor{connected: true}
	var queued []func()
	m := New("PanelOd", acc, false, WithPoster(func(fn func()) bool {
		queued = append(queued, fn)
		return true
	}))
	c := &counter{}
	m.Subscribe(c)
	acc.On("Store", mock.Anything, true).Return(nil)

	require.NoError(t, m.Set(context.Background(), true))
	assert.Zero(t, c.n)
	require.Len(t, queued, 1)
	queued[0]()
	assert.Equal(t, 1, c.n)

	m.OnPush([]any{false})
	assert.Equal(t, 2, c.n, "pushes already run on the loop")
	assert.Len(t, queued, 1)
}

func TestMirror_SubscribeIsASet(t *testing.T) {
	m, _, c := newMirror(true, false)
	m.Subscribe(c)
	f := &fanout.SubscriberFunc{Name: "other", Fn: func() {}}
	m.Subscribe(f)
	assert.Equal(t, 2, m.Subscribers())

	m.Unsubscribe(f)
	m.OnPush([]any{true})
	assert.Equal(t, 1, c.n)
}
