package session

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/lk2023060901/roomchat-go/internal/network/session/sessiontest"
	"github.com/lk2023060901/roomchat-go/pkg/util/merr"
)

type ClientRegistrySuite struct {
	suite.Suite
}

func newTestBuilder() func(id uint64) Session {
	return func(id uint64) Session {
		return NewBaseSession(context.Background(), id, sessiontest.NewConn(fmt.Sprintf("10.0.0.1:%d", id)))
	}
}

func (s *ClientRegistrySuite) TestRegisterAllocatesIDs() {
	m := NewClientRegistry(3)
	build := newTestBuilder()

	for want := FirstID; want < FirstID+3; want++ {
		sess, err := m.Register(build)
		s.Require().NoError(err)
		s.Equal(want, sess.ID())
	}
	s.Equal(3, m.Count())
	s.Equal(3, m.Cap())
}

func (s *ClientRegistrySuite) TestCapacityExceeded() {
	m := NewClientRegistry(2)
	build := newTestBuilder()

	_, err := m.Register(build)
	s.Require().NoError(err)
	_, err = m.Register(build)
	s.Require().NoError(err)

	called := false
	_, err = m.Register(func(id uint64) Session {
		called = true
		return build(id)
	})
	s.ErrorIs(err, merr.ErrCapacityExceeded)
	s.False(called)
	s.Equal(2, m.Count())

	// 拒绝不消耗 ID，ID 也不会复用。
	s.True(m.Unregister(FirstID))
	sess, err := m.Register(build)
	s.Require().NoError(err)
	s.Equal(FirstID+2, sess.ID())
}

func (s *ClientRegistrySuite) TestDefaultCapacity() {
	s.Equal(DefaultCapacity, NewClientRegistry(0).Cap())
}

func (s *ClientRegistrySuite) TestRegisterNilBuilder() {
	m := NewClientRegistry(1)
	_, err := m.Register(nil)
	s.ErrorIs(err, merr.ErrServiceInternal)

	_, err = m.Register(func(uint64) Session { return nil })
	s.ErrorIs(err, merr.ErrServiceInternal)
	s.Equal(0, m.Count())
}

func (s *ClientRegistrySuite) TestGetAndUnregister() {
	m := NewClientRegistry(5)
	sess, err := m.Register(newTestBuilder())
	s.Require().NoError(err)

	got, ok := m.Get(sess.ID())
	s.True(ok)
	s.Same(sess, got)

	s.True(m.Unregister(sess.ID()))
	s.False(m.Unregister(sess.ID()))
	_, ok = m.Get(sess.ID())
	s.False(ok)
	s.Equal(0, m.Count())
}

func (s *ClientRegistrySuite) TestRangeSortedSnapshot() {
	m := NewClientRegistry(10)
	build := newTestBuilder()
	for i := 0; i < 6; i++ {
		_, err := m.Register(build)
		s.Require().NoError(err)
	}
	m.Unregister(FirstID + 2)

	var ids []uint64
	m.Range(func(sess Session) bool {
		ids = append(ids, sess.ID())
		// 回调在锁外执行，可以重入注册表。
		_ = m.Count()
		return true
	})
	s.Equal([]uint64{100, 101, 103, 104, 105}, ids)

	ids = ids[:0]
	m.Range(func(sess Session) bool {
		ids = append(ids, sess.ID())
		return len(ids) < 2
	})
	s.Equal([]uint64{100, 101}, ids)

	snapshot := m.Snapshot()
	s.Len(snapshot, 5)
	s.Equal(uint64(105), snapshot[4].ID())
}

func (s *ClientRegistrySuite) TestConcurrentRegister() {
	m := NewClientRegistry(50)
	build := newTestBuilder()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ids      = make(map[uint64]struct{})
		rejected int
	)
	for i := 0; i < 80; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess, err := m.Register(build)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				rejected++
				return
			}
			ids[sess.ID()] = struct{}{}
		}()
	}
	wg.Wait()

	s.Len(ids, 50)
	s.Equal(30, rejected)
	s.Equal(50, m.Count())
}

func TestClientRegistry(t *testing.T) {
	suite.Run(t, new(ClientRegistrySuite))
}
