package registry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alerts-service/internal/logging"
	"alerts-service/internal/models"
)

type fakeConn struct {
	id   int64
	open bool
}

func (f *fakeConn) UserID() int64 { return f.id }

func (f *fakeConn) WriteEnvelope(models.Envelope) error { return nil }

func (f *fakeConn) IsOpen() bool { return f.open }

func (f *fakeConn) Close() error { f.open = false; return nil }

func newRegistry(t *testing.T, maxPerUser int) *Registry {
	t.Helper()
	return New(logging.NewNop(), maxPerUser)
}

func TestAddRemoveInvariant(t *testing.T) {
	r := newRegistry(t, 0)
	c1 := &fakeConn{id: 1, open: true}
	c2 := &fakeConn{id: 1, open: true}

	require.True(t, r.Add(1, c1))
	require.True(t, r.Add(1, c2))
	assert.True(t, r.IsConnected(1))
	assert.Equal(t, 1, r.Count())
	assert.Len(t, r.Get(1), 2)

	r.Remove(1, c1)
	assert.True(t, r.IsConnected(1))
	assert.Equal(t, 1, r.Count())

	r.Remove(1, c2)
	assert.False(t, r.IsConnected(1))
	assert.Equal(t, 0, r.Count())
	assert.Nil(t, r.Get(1))
}

func TestRemoveIsIdempotent(t *testing.T) {
	r := newRegistry(t, 0)
	c := &fakeConn{id: 1, open: true}
	require.True(t, r.Add(1, c))

	r.Remove(1, c)
	assert.NotPanics(t, func() { r.Remove(1, c) })
	assert.False(t, r.IsConnected(1))
	assert.Equal(t, 0, r.Count())

	// removing for a user that never connected is also a no-op
	assert.NotPanics(t, func() { r.Remove(99, c) })
}

func TestGetReturnsSnapshot(t *testing.T) {
	r := newRegistry(t, 0)
	c1 := &fakeConn{id: 1, open: true}
	require.True(t, r.Add(1, c1))

	snapshot := r.Get(1)
	r.Remove(1, c1)
	assert.Len(t, snapshot, 1, "snapshot must not observe later mutations")
}

func TestPerUserCap(t *testing.T) {
	r := newRegistry(t, 2)
	require.True(t, r.Add(1, &fakeConn{id: 1, open: true}))
	require.True(t, r.Add(1, &fakeConn{id: 1, open: true}))
	assert.False(t, r.Add(1, &fakeConn{id: 1, open: true}))
	assert.Len(t, r.Get(1), 2)
}

func TestCountDistinctUsers(t *testing.T) {
	r := newRegistry(t, 0)
	require.True(t, r.Add(1, &fakeConn{id: 1, open: true}))
	require.True(t, r.Add(1, &fakeConn{id: 1, open: true}))
	require.True(t, r.Add(2, &fakeConn{id: 2, open: true}))
	assert.Equal(t, 2, r.Count())
	assert.ElementsMatch(t, []int64{1, 2}, r.UserIDs())
}

func TestConcurrentAddRemove(t *testing.T) {
	r := newRegistry(t, 0)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			c := &fakeConn{id: userID, open: true}
			r.Add(userID, c)
			r.Get(userID)
			r.Remove(userID, c)
		}(int64(i % 5))
	}
	wg.Wait()
	assert.Equal(t, 0, r.Count())
}
