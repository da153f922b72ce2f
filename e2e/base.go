package e2e

import (
	"context"
	"fmt"
	"log/slog"
	"net/http/httptest"
	"strings"

	"github.com/gookit/color"
	"github.com/stretchr/testify/suite"

	"board-lab/client"
	"board-lab/contract"
	"board-lab/domain"
	"board-lab/errors"
	"board-lab/infrastructure/ws"
	"board-lab/moderation"
	"board-lab/runtime"
)

// BaseSessionSuite hosts a full in-process session: the replication service
// behind a real websocket listener, a scriptable admission queue standing in
// for the manager, and helpers to join participants through the real client
// proxy.
type BaseSessionSuite struct {
	suite.Suite
	Config Config

	service   *runtime.Service
	server    *httptest.Server
	url       string
	decisions chan bool
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseSessionSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
}

func (s *BaseSessionSuite) SetupTest() {
	log := slog.New(slog.DiscardHandler)
	moderator, err := moderation.New(s.Config.ForbiddenWords, '*')
	s.Require().NoError(err)

	board := domain.NewBoard()
	registry := runtime.NewRegistry(s.Config.ManagerName)
	dispatcher := runtime.NewDispatcher(log, registry)
	surface := runtime.NewSurface(board, fixedMeasurer{})
	s.service = runtime.NewService(log, board, registry, dispatcher, surface, moderator, &memoryStore{snaps: map[string]domain.Snapshot{}})

	// Admission decisions are scripted per test via the queue.
	s.decisions = make(chan bool, 16)
	server, err := ws.NewServer(log, s.service, queueApprover{decisions: s.decisions})
	s.Require().NoError(err)
	s.server = httptest.NewServer(server)
	s.url = "ws" + strings.TrimPrefix(s.server.URL, "http")
}

func (s *BaseSessionSuite) TearDownTest() {
	s.server.Close()
}

// Approve queues the next admission decision.
func (s *BaseSessionSuite) Approve() { s.decisions <- true }

// Deny queues the next admission decision.
func (s *BaseSessionSuite) Deny() { s.decisions <- false }

// Join connects a participant and waits for admission. The caller must have
// queued a decision first, or the join request is answered as a duplicate
// before any decision is consumed.
func (s *BaseSessionSuite) Join(name string) *client.Proxy {
	s.Step(fmt.Sprintf("%s joins", name))
	proxy, err := client.Dial(context.Background(), slog.New(slog.DiscardHandler), s.url, name)
	s.Require().NoError(err)
	s.T().Cleanup(proxy.Close)
	return proxy
}

// Step prints a colorized scenario header in the test log.
func (s *BaseSessionSuite) Step(name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

type queueApprover struct {
	decisions chan bool
}

func (a queueApprover) Decide(candidate string) bool { return <-a.decisions }

type memoryStore struct{ snaps map[string]domain.Snapshot }

func (m *memoryStore) Save(ctx context.Context, key string, snap domain.Snapshot) error {
	m.snaps[key] = snap
	return nil
}

func (m *memoryStore) Load(ctx context.Context, key string) (domain.Snapshot, error) {
	snap, ok := m.snaps[key]
	if !ok {
		return domain.Snapshot{}, errors.ErrNotFound
	}
	return snap, nil
}

type fixedMeasurer struct{}

func (fixedMeasurer) MeasureText(text string) (float64, float64) { return 40, 16 }

var _ contract.Approver = queueApprover{}
