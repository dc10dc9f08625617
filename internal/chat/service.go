package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/neexbeast/takeabreak/internal/gemini"
	"github.com/neexbeast/takeabreak/internal/location"
	"github.com/neexbeast/takeabreak/internal/session"
)

// defaultExchangeTimeout bounds the completion call. It stays below the exchange
// lock expiry so the lock cannot lapse while a call is outstanding.
const defaultExchangeTimeout = 90 * time.Second

// PermissionDeniedText is the model turn added when the user refuses location access.
const PermissionDeniedText = "I can't find places near you without location access."

var (
	// ErrEmptyMessage is returned for blank input.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrExchangeInFlight is returned while another exchange for the same session is unresolved.
	ErrExchangeInFlight = errors.New("a chat exchange is already in progress")
	// ErrPermissionDenied is returned by a PositionSource when the user refuses location access.
	ErrPermissionDenied = errors.New("location permission denied")
)

// Completer is the text-generation client.
type Completer interface {
	Chat(ctx context.Context, history []gemini.Message, listing string) (gemini.Completion, error)
}

// Guard allows at most one exchange per session at a time.
// TryAcquire returns ok=false when the session is already held.
type Guard interface {
	TryAcquire(ctx context.Context, sessionID string) (release func(), ok bool, err error)
}

// PositionSource performs the one-shot device location fetch.
type PositionSource interface {
	Position(ctx context.Context) (location.UserCoordinates, error)
}

// Recorder receives exchange outcomes for metrics.
type Recorder interface {
	ObserveCompletion(outcome string)
	ObserveRecommendation(matched bool)
}

type nopRecorder struct{}

func (nopRecorder) ObserveCompletion(string)   {}
func (nopRecorder) ObserveRecommendation(bool) {}

// Exchange is the result of one Send.
type Exchange struct {
	UserTurn         *session.Turn      `json:"user_turn,omitempty"`
	Reply            *session.Turn      `json:"reply,omitempty"`
	Outcome          gemini.Outcome     `json:"outcome,omitempty"`
	Recommended      *location.Location `json:"recommended_location,omitempty"`
	PermissionDenied bool               `json:"permission_denied,omitempty"`
}

// Service runs chat exchanges against per-session state.
type Service struct {
	sessions  *session.Registry
	completer Completer
	guard     Guard
	recorder  Recorder
	log       *slog.Logger
	timeout   time.Duration
}

// NewService constructs a Service. recorder may be nil.
func NewService(sessions *session.Registry, completer Completer, guard Guard, recorder Recorder, log *slog.Logger) *Service {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Service{
		sessions:  sessions,
		completer: completer,
		guard:     guard,
		recorder:  recorder,
		log:       log,
		timeout:   defaultExchangeTimeout,
	}
}

// SetExchangeTimeout overrides how long one completion call may take.
func (s *Service) SetExchangeTimeout(d time.Duration) {
	s.timeout = d
}

// Send runs one exchange: the optional location side channel, the completion call and
// recommendation resolution, in that order. Only one exchange per session may run at a time,
// so a session's transcript follows submission order.
func (s *Service) Send(ctx context.Context, sessionID, text string, positions PositionSource) (*Exchange, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	release, ok, err := s.guard.TryAcquire(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("acquiring exchange guard for session %s: %w", sessionID, err)
	}
	if !ok {
		return nil, ErrExchangeInFlight
	}
	defer release()

	sess := s.sessions.Get(sessionID)
	// The shared lock can expire; the in-process mark cannot.
	if !sess.TryBeginExchange() {
		return nil, ErrExchangeInFlight
	}
	defer sess.EndExchange()
	state, transcript := sess.State, sess.Transcript

	listing := Listing(state.Catalog().All())

	if WantsProximity(text) {
		coords, known := state.UserLocation()
		if !known && positions != nil {
			fix, err := positions.Position(ctx)
			switch {
			case errors.Is(err, ErrPermissionDenied):
				reply := transcript.Append(session.RoleModel, PermissionDeniedText)
				return &Exchange{Reply: &reply, PermissionDenied: true}, nil
			case err != nil:
				s.log.Warn("could not get user location for chat", "session", sessionID, "err", err)
			default:
				state.SetUserLocation(&fix)
				coords, known = fix, true
			}
		}
		if known {
			listing = withUserLocation(listing, coords)
		}
	}

	userTurn := transcript.Append(session.RoleUser, text)
	transcript.SetPending(true)
	defer transcript.SetPending(false)

	turns := transcript.Turns()
	history := make([]gemini.Message, 0, len(turns))
	for _, t := range turns {
		history = append(history, gemini.Message{Role: string(t.Role), Text: t.Text})
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	completion, err := s.completer.Chat(callCtx, history, listing)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("chat completion for session %s: %w", sessionID, err)
	}
	s.recorder.ObserveCompletion(string(completion.Outcome))

	ex := &Exchange{UserTurn: &userTurn, Outcome: completion.Outcome}

	if completion.Generated() {
		if rec, found := location.Resolve(completion.Text, state.Catalog().All()); found {
			if err := state.Recommend(rec); err != nil {
				s.log.Error("recording recommendation", "session", sessionID, "err", err)
			} else {
				ex.Recommended = &rec
			}
		}
		s.recorder.ObserveRecommendation(ex.Recommended != nil)
	}

	reply := transcript.Append(session.RoleModel, completion.Text)
	ex.Reply = &reply
	return ex, nil
}

// Transcript returns the session's turns and whether a reply is pending.
func (s *Service) Transcript(sessionID string) ([]session.Turn, bool) {
	sess := s.sessions.Get(sessionID)
	return sess.Transcript.Turns(), sess.Transcript.Pending()
}
