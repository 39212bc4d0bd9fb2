package server

import (
	"context"
	"errors"
	"fmt"
	rand "math/rand/v2"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/google/uuid"

	"github.com/lox/pokerroom/internal/game"
	"github.com/lox/pokerroom/internal/protocol"
	"github.com/lox/pokerroom/internal/randutil"
)

var (
	ErrAlreadyJoined = errors.New("already queued or seated")
	ErrLobbyClosed   = errors.New("lobby closed")
)

// Member is a participant the lobby can seat. Connection is the production
// implementation.
type Member interface {
	ID() string
	Name() string
	SendMessage(msg *protocol.Message) error
	AwaitAction() <-chan game.Response
	CancelAction()
	Done() <-chan struct{}
	Close() error
}

// TableInfo describes a running table
type TableInfo struct {
	ID      string                `json:"id"`
	Request protocol.TableRequest `json:"request"`
	Players []string              `json:"players"`
	Started time.Time             `json:"started"`
}

// Lobby queues members by the table they asked for and runs a table each
// time a queue fills.
type Lobby struct {
	settings *LobbySettings
	variants []game.Variant
	clock    quartz.Clock
	logger   *log.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	rng      *rand.Rand
	rngMutex sync.Mutex

	mu     sync.Mutex
	closed bool
	queues map[protocol.TableRequest][]Member
	seated map[string]string // member id -> table id
	tables map[string]*TableInfo
}

// NewLobby creates a lobby. rng seeds every table's deck shuffles.
func NewLobby(settings *LobbySettings, clock quartz.Clock, rng *rand.Rand, logger *log.Logger) (*Lobby, error) {
	variants, err := settings.AllowedVariants()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Lobby{
		settings: settings,
		variants: variants,
		clock:    clock,
		logger:   logger.WithPrefix("lobby"),
		ctx:      ctx,
		cancel:   cancel,
		rng:      rng,
		queues:   make(map[protocol.TableRequest][]Member),
		seated:   make(map[string]string),
		tables:   make(map[string]*TableInfo),
	}, nil
}

// WithRNG executes fn with exclusive access to the lobby's RNG
func (l *Lobby) WithRNG(fn func(*rand.Rand)) {
	l.rngMutex.Lock()
	defer l.rngMutex.Unlock()
	fn(l.rng)
}

// Validate checks a request against the configured limits
func (l *Lobby) Validate(req protocol.TableRequest) error {
	if req.Seats < l.settings.MinSeats || req.Seats > l.settings.MaxSeats {
		return fmt.Errorf("seats must be between %d and %d, got %d", l.settings.MinSeats, l.settings.MaxSeats, req.Seats)
	}
	if err := req.Config().Validate(); err != nil {
		return err
	}
	if req.Stack <= 0 || req.Stack > l.settings.MaxStack {
		return fmt.Errorf("stack must be between 1 and %d, got %d", l.settings.MaxStack, req.Stack)
	}
	if !slices.Contains(l.variants, req.Variant) {
		return fmt.Errorf("variant %s is not offered here", req.Variant)
	}
	return nil
}

// Join queues m for a table matching req. When the queue fills, a table is
// started with the queued members in join order.
func (l *Lobby) Join(m Member, req protocol.TableRequest) error {
	if err := l.Validate(req); err != nil {
		return err
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrLobbyClosed
	}
	if _, ok := l.seated[m.ID()]; ok || l.queuedLocked(m.ID()) {
		l.mu.Unlock()
		return ErrAlreadyJoined
	}

	queue := append(l.queues[req], m)
	if len(queue) < req.Seats {
		l.queues[req] = queue
		l.mu.Unlock()
		l.logger.Info("Member queued", "player", m.Name(), "request", req, "waiting", len(queue))
		return nil
	}
	delete(l.queues, req)

	info := &TableInfo{
		ID:      uuid.NewString(),
		Request: req,
		Started: l.clock.Now(),
	}
	for _, member := range queue {
		l.seated[member.ID()] = info.ID
		info.Players = append(info.Players, member.Name())
	}
	l.tables[info.ID] = info
	l.wg.Add(1)
	l.mu.Unlock()

	go func() {
		defer l.wg.Done()
		l.runTable(info, queue)
	}()
	return nil
}

// Leave removes m from any queue. A member seated at a table is noticed by
// the table itself when its connection closes.
func (l *Lobby) Leave(m Member) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for req, queue := range l.queues {
		i := slices.IndexFunc(queue, func(q Member) bool { return q.ID() == m.ID() })
		if i < 0 {
			continue
		}
		queue = slices.Delete(queue, i, i+1)
		if len(queue) == 0 {
			delete(l.queues, req)
		} else {
			l.queues[req] = queue
		}
		l.logger.Info("Member left queue", "player", m.Name(), "request", req)
		return
	}
}

func (l *Lobby) queuedLocked(id string) bool {
	for _, queue := range l.queues {
		for _, q := range queue {
			if q.ID() == id {
				return true
			}
		}
	}
	return false
}

// Waiting returns the number of members queued for req
func (l *Lobby) Waiting(req protocol.TableRequest) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queues[req])
}

// Tables lists the running tables, oldest first
func (l *Lobby) Tables() []TableInfo {
	l.mu.Lock()
	defer l.mu.Unlock()

	tables := make([]TableInfo, 0, len(l.tables))
	for _, t := range l.tables {
		info := *t
		info.Players = slices.Clone(t.Players)
		tables = append(tables, info)
	}
	sort.Slice(tables, func(i, j int) bool {
		if tables[i].Started.Equal(tables[j].Started) {
			return tables[i].ID < tables[j].ID
		}
		return tables[i].Started.Before(tables[j].Started)
	})
	return tables
}

// Close stops every running table, disconnects queued members and waits for
// the tables to finish.
func (l *Lobby) Close() {
	l.mu.Lock()
	l.closed = true
	var queued []Member
	for _, queue := range l.queues {
		queued = append(queued, queue...)
	}
	l.queues = make(map[protocol.TableRequest][]Member)
	l.mu.Unlock()

	l.cancel()
	for _, m := range queued {
		_ = m.Close()
	}
	l.wg.Wait()
}

func (l *Lobby) runTable(info *TableInfo, members []Member) {
	logger := l.logger.With("table", info.ID[:8])
	logger.Info("Table started", "request", info.Request, "players", info.Players)

	for seat, m := range members {
		msg, err := protocol.NewMessage(protocol.TypeSeated, protocol.Seated{
			TableID: info.ID,
			Seat:    seat,
			Request: info.Request,
		})
		if err == nil {
			_ = m.SendMessage(msg) // A failed send surfaces as a boundary failure
		}
	}

	var seed int64
	l.WithRNG(func(r *rand.Rand) { seed = r.Int64() })

	b := newRemoteBoundary(info.ID, members, l.clock, l.settings.Timeout(), logger)
	b.onEnd = func() { l.release(info, members) }
	tbl, err := game.New(info.Request.Config(), info.Request.Stacks(), b,
		game.WithLogger(logger),
		game.WithRand(randutil.New(seed)),
	)
	if err == nil {
		if l.settings.MaxRounds > 0 {
			err = tbl.PlayNRounds(l.ctx, l.settings.MaxRounds)
		} else {
			err = tbl.PlayUntilEnd(l.ctx)
		}
	}

	l.release(info, members)

	var fault *game.Fault
	switch {
	case err == nil:
		logger.Info("Table finished", "rounds", tbl.Rounds(), "stacks", tbl.Stacks())
	case errors.As(err, &fault):
		logger.Warn("Table faulted", "seat", fault.Seat, "fault", fault.Kind, "error", fault.Err)
		l.requeue(info, members, fault)
	default:
		logger.Info("Table stopped", "error", err)
	}
}

// release forgets a finished table so its members may join again
func (l *Lobby) release(info *TableInfo, members []Member) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.tables, info.ID)
	for _, m := range members {
		if l.seated[m.ID()] == info.ID {
			delete(l.seated, m.ID())
		}
	}
}

// requeue disconnects the faulting member and puts everyone else still
// connected back in the queue they came from.
func (l *Lobby) requeue(info *TableInfo, members []Member, fault *game.Fault) {
	for seat, m := range members {
		if seat == fault.Seat {
			if msg, err := protocol.NewMessage(protocol.TypeError, protocol.Error{
				Code:    protocol.CodeFault,
				Message: fault.Error(),
			}); err == nil {
				_ = m.SendMessage(msg)
			}
			_ = m.Close()
			continue
		}

		select {
		case <-m.Done():
			continue
		default:
		}

		if msg, err := protocol.NewMessage(protocol.TypeRequeued, protocol.Requeued{
			TableID: info.ID,
			Request: info.Request,
		}); err == nil {
			_ = m.SendMessage(msg)
		}
		if err := l.Join(m, info.Request); err != nil {
			l.logger.Warn("Failed to requeue member", "player", m.Name(), "error", err)
		}
	}
}
