package transcript

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/a-h/ragtutor/metrics"
	"github.com/google/uuid"
)

var (
	ErrSessionNotFound  = errors.New("transcript: session not found")
	ErrSessionForbidden = errors.New("transcript: session belongs to another user")
)

const DefaultTimeout = 10 * time.Second

type Session struct {
	ID        string
	Owner     string
	CreatedAt time.Time
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	ID        string
	SessionID string
	Role      Role
	Content   string
	Metadata  json.RawMessage
	CreatedAt time.Time
}

type Store interface {
	CreateSession(ctx context.Context, s Session) error
	GetSession(ctx context.Context, id string) (s Session, ok bool, err error)
	// AddMessages stores the messages in order.
	AddMessages(ctx context.Context, msgs []Message) error
	Messages(ctx context.Context, sessionID string) (msgs []Message, err error)
}

// Scheduler runs work that must not hold up the response.
type Scheduler interface {
	Go(f func())
}

// Detached runs each function in its own goroutine.
type Detached struct {
	wg sync.WaitGroup
}

func (d *Detached) Go(f func()) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		f()
	}()
}

// Wait blocks until all scheduled work has finished.
func (d *Detached) Wait() {
	d.wg.Wait()
}

// Immediate runs functions on the calling goroutine.
type Immediate struct{}

func (Immediate) Go(f func()) {
	f()
}

func NewRecorder(log *slog.Logger, store Store, scheduler Scheduler) *Recorder {
	return &Recorder{
		log:       log,
		store:     store,
		scheduler: scheduler,
		Timeout:   DefaultTimeout,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Recorder saves question and answer pairs to a chat session.
type Recorder struct {
	log       *slog.Logger
	store     Store
	scheduler Scheduler
	// Timeout bounds the detached write.
	Timeout time.Duration
	now     func() time.Time
	newID   func() string
}

// Target is where an exchange will be saved. The zero Target saves nothing.
type Target struct {
	SessionID string
	Owner     string
	// New is set when the session doesn't exist yet, and is created by Save.
	New bool
}

// Resolve works out where the exchange will be saved, without writing
// anything.
//
// The zero Target with a nil error means nothing will be saved: either there
// is no user, or the store failed. Ownership problems are returned as errors,
// since the caller must not be allowed to write to someone else's session.
func (r *Recorder) Resolve(ctx context.Context, user, sessionID string) (t Target, err error) {
	if r == nil || r.store == nil || user == "" {
		return t, nil
	}
	if sessionID == "" {
		return Target{Owner: user, New: true}, nil
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	s, ok, err := r.store.GetSession(ctx, sessionID)
	if err != nil {
		metrics.PersistenceFailures.WithLabelValues("get_session").Inc()
		r.log.Warn("failed to get session, transcript will not be saved", slog.String("sessionID", sessionID), slog.Any("error", err))
		return t, nil
	}
	if !ok {
		return t, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if s.Owner != user {
		return t, fmt.Errorf("%w: %s", ErrSessionForbidden, sessionID)
	}
	return Target{SessionID: s.ID, Owner: user}, nil
}

// Save creates the target's session if it's new, then schedules the question
// and answer to be written with Append. It returns the session id, or an empty
// string if nothing will be saved.
func (r *Recorder) Save(ctx context.Context, t Target, question, answer string, metadata any) (sessionID string) {
	if r == nil || r.store == nil || t.Owner == "" {
		return ""
	}
	sessionID = t.SessionID
	if t.New {
		s := Session{
			ID:        r.newID(),
			Owner:     t.Owner,
			CreatedAt: r.now().UTC(),
		}
		createCtx, cancel := r.withTimeout(context.WithoutCancel(ctx))
		defer cancel()
		if err := r.store.CreateSession(createCtx, s); err != nil {
			metrics.PersistenceFailures.WithLabelValues("create_session").Inc()
			r.log.Warn("failed to create session, transcript will not be saved", slog.Any("error", err))
			return ""
		}
		r.log.Debug("created session", slog.String("sessionID", s.ID), slog.String("user", t.Owner))
		sessionID = s.ID
	}
	r.Append(ctx, sessionID, question, answer, metadata)
	return sessionID
}

// Append schedules the user question and the assistant answer to be written to
// the session. Failures are logged, and never reach the caller.
func (r *Recorder) Append(ctx context.Context, sessionID, question, answer string, metadata any) {
	if r == nil || r.store == nil || sessionID == "" {
		return
	}
	meta, err := json.Marshal(metadata)
	if err != nil {
		metrics.PersistenceFailures.WithLabelValues("add_messages").Inc()
		r.log.Error("failed to marshal message metadata", slog.Any("error", err))
		return
	}
	now := r.now().UTC()
	msgs := []Message{
		{ID: r.newID(), SessionID: sessionID, Role: RoleUser, Content: question, Metadata: json.RawMessage("{}"), CreatedAt: now},
		{ID: r.newID(), SessionID: sessionID, Role: RoleAssistant, Content: answer, Metadata: meta, CreatedAt: now},
	}
	ctx = context.WithoutCancel(ctx)
	r.scheduler.Go(func() {
		ctx, cancel := r.withTimeout(ctx)
		defer cancel()
		if err := r.store.AddMessages(ctx, msgs); err != nil {
			metrics.PersistenceFailures.WithLabelValues("add_messages").Inc()
			r.log.Error("failed to save transcript", slog.String("sessionID", sessionID), slog.Any("error", err))
			return
		}
		r.log.Debug("saved transcript", slog.String("sessionID", sessionID))
	})
}

// withTimeout bounds store calls by Timeout. A zero Timeout means no bound.
func (r *Recorder) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.Timeout)
}

// History returns the messages of a session owned by the user.
func (r *Recorder) History(ctx context.Context, user, sessionID string) (msgs []Message, err error) {
	s, ok, err := r.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if s.Owner != user {
		return nil, fmt.Errorf("%w: %s", ErrSessionForbidden, sessionID)
	}
	return r.store.Messages(ctx, sessionID)
}
