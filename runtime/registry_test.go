package runtime

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"board-lab/domain"
	"board-lab/errors"
)

type fakeChannel struct {
	mu       sync.Mutex
	fail     bool
	shapes   [][]domain.Shape
	strokes  [][]domain.Stroke
	labels   [][]domain.Label
	rosters  [][]string
	chats    [][]string
	evicted  int
	shutdown int
}

func (c *fakeChannel) PushShapes(shapes []domain.Shape) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.ErrChannelUnreachable
	}
	c.shapes = append(c.shapes, shapes)
	return nil
}

func (c *fakeChannel) PushStrokes(strokes []domain.Stroke) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.ErrChannelUnreachable
	}
	c.strokes = append(c.strokes, strokes)
	return nil
}

func (c *fakeChannel) PushLabels(labels []domain.Label) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.ErrChannelUnreachable
	}
	c.labels = append(c.labels, labels)
	return nil
}

func (c *fakeChannel) PushRoster(names []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.ErrChannelUnreachable
	}
	c.rosters = append(c.rosters, names)
	return nil
}

func (c *fakeChannel) PushChat(history []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.ErrChannelUnreachable
	}
	c.chats = append(c.chats, history)
	return nil
}

func (c *fakeChannel) NotifyEvicted() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evicted++
	if c.fail {
		return errors.ErrChannelUnreachable
	}
	return nil
}

func (c *fakeChannel) NotifyShutdown() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shutdown++
	if c.fail {
		return errors.ErrChannelUnreachable
	}
	return nil
}

func (c *fakeChannel) lastRoster() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.rosters) == 0 {
		return nil
	}
	return c.rosters[len(c.rosters)-1]
}

type approverFunc func(candidate string) bool

func (f approverFunc) Decide(candidate string) bool { return f(candidate) }

func acceptAll() approverFunc { return func(string) bool { return true } }

func TestRegistry_ManagerSeeded(t *testing.T) {
	req := require.New(t)

	registry := NewRegistry("boss")

	req.Equal([]string{"boss"}, registry.Names())
	req.Equal("boss", registry.ManagerName())
	req.Empty(registry.Channels())
}

func TestRegistry_Register_JoinOrder(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry("boss")

	req.NoError(registry.Register("alice", &fakeChannel{}, acceptAll()))
	req.NoError(registry.Register("bob", &fakeChannel{}, acceptAll()))

	req.Equal([]string{"boss", "alice", "bob"}, registry.Names())
	req.Len(registry.Channels(), 2)
}

func TestRegistry_Register_DuplicateSkipsApprover(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry("boss")
	req.NoError(registry.Register("alice", &fakeChannel{}, acceptAll()))

	asked := 0
	counting := approverFunc(func(string) bool { asked++; return true })

	// When the same name registers again
	err := registry.Register("alice", &fakeChannel{}, counting)

	// Then it is rejected before the human is consulted
	req.ErrorIs(err, errors.ErrDuplicateName)
	req.Zero(asked)

	// And the manager's own name is just as taken
	req.ErrorIs(registry.Register("boss", &fakeChannel{}, counting), errors.ErrDuplicateName)
	req.Zero(asked)
}

func TestRegistry_Register_Denied(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry("boss")

	err := registry.Register("mallory", &fakeChannel{}, approverFunc(func(string) bool { return false }))

	req.ErrorIs(err, errors.ErrDeniedByApprover)
	req.Equal([]string{"boss"}, registry.Names())
}

func TestRegistry_Register_PendingDecisionDoesNotBlockOthers(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry("boss")

	release := make(chan bool)
	slow := approverFunc(func(string) bool { return <-release })

	done := make(chan error, 1)
	go func() { done <- registry.Register("alice", &fakeChannel{}, slow) }()

	// While alice's decision is pending, bob gets through
	req.Eventually(func() bool {
		return registry.Register("bob", &fakeChannel{}, acceptAll()) == nil
	}, time.Second, 10*time.Millisecond)

	release <- true
	req.NoError(<-done)
	req.ElementsMatch([]string{"boss", "alice", "bob"}, registry.Names())
}

func TestRegistry_Register_NameClaimedWhileDeciding(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry("boss")

	release := make(chan bool)
	deciding := make(chan struct{})
	slow := approverFunc(func(string) bool { close(deciding); return <-release })

	done := make(chan error, 1)
	go func() { done <- registry.Register("alice", &fakeChannel{}, slow) }()
	// Wait until the first request is actually inside the approver, so the
	// rival claim below cannot win the race before the decision is pending.
	<-deciding

	// The same name sneaks in through a fast approver while the first
	// request is still waiting on the human.
	req.Eventually(func() bool {
		return registry.Register("alice", &fakeChannel{}, acceptAll()) == nil
	}, time.Second, 10*time.Millisecond)

	release <- true
	req.ErrorIs(<-done, errors.ErrDuplicateName)
	req.Equal([]string{"boss", "alice"}, registry.Names())
}

func TestRegistry_Remove(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry("boss")
	req.NoError(registry.Register("alice", &fakeChannel{}, acceptAll()))

	req.True(registry.Remove("alice"))
	req.False(registry.Remove("alice"))
	req.False(registry.Remove("nobody"))
	req.Equal([]string{"boss"}, registry.Names())
}

func TestRegistry_Remove_ManagerIsPermanent(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry("boss")

	req.False(registry.Remove("boss"))
	req.Equal([]string{"boss"}, registry.Names())
}

func TestRegistry_RemoveByChannel(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry("boss")
	alice := &fakeChannel{}
	req.NoError(registry.Register("alice", alice, acceptAll()))
	req.NoError(registry.Register("bob", &fakeChannel{}, acceptAll()))

	name, ok := registry.RemoveByChannel(alice)

	req.True(ok)
	req.Equal("alice", name)
	req.Equal([]string{"boss", "bob"}, registry.Names())

	_, ok = registry.RemoveByChannel(alice)
	req.False(ok)
}

func TestRegistry_Chat(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry("boss")

	registry.AppendChat("boss: hello")
	registry.AppendChat("alice: hi")

	req.Equal([]string{"boss: hello", "alice: hi"}, registry.ChatHistory())
}
