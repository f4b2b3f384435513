package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"omniscore/internal/domain"
	"omniscore/internal/infra"
)

const (
	greeting    = "Hello! I'm your Omniscore Social Strategist. How can I help you grow your audience or optimize your content today?"
	emptyReply  = "I couldn't process that. Could you try again?"
	failedReply = "Oops, I encountered an error connecting to my neural network. Please check your API key and try again."

	// SystemInstruction frames every strategist conversation.
	SystemInstruction = "You are the Omniscore AI Social Strategist. You help creators optimize their social media strategy, brainstorm content ideas, analyze engagement patterns, and navigate platform algorithms. You are professional, creative, and data-driven."
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Message is one turn of a conversation.
type Message struct {
	Role Role      `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// Transcript is a snapshot of a conversation.
type Transcript struct {
	ID       string    `json:"id"`
	Messages []Message `json:"messages"`
}

// Session is a stateful model conversation.
type Session interface {
	Send(ctx context.Context, text string) (string, error)
}

// Backend opens model sessions.
type Backend interface {
	NewSession(ctx context.Context) (Session, error)
}

type conversation struct {
	mu       sync.Mutex
	id       string
	session  Session
	messages []Message
}

// Service keeps strategist conversations in memory. Model failures never
// surface as errors; they become a canned assistant reply.
type Service struct {
	backend Backend
	logger  infra.Logger
	now     func() time.Time

	mu    sync.RWMutex
	convs map[string]*conversation
}

func NewService(backend Backend, logger infra.Logger) *Service {
	return &Service{
		backend: backend,
		logger:  infra.Component(logger, "chat"),
		now:     time.Now,
		convs:   make(map[string]*conversation),
	}
}

// Start opens a conversation seeded with the strategist greeting.
func (s *Service) Start(ctx context.Context) (*Transcript, error) {
	session, err := s.backend.NewSession(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("open chat session failed")
		session = nil
	}
	conv := &conversation{
		id:       uuid.NewString(),
		session:  session,
		messages: []Message{{Role: RoleModel, Text: greeting, At: s.now()}},
	}

	s.mu.Lock()
	s.convs[conv.id] = conv
	s.mu.Unlock()

	return conv.transcript(), nil
}

// Get returns the transcript of a conversation.
func (s *Service) Get(id string) (*Transcript, error) {
	conv, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	conv.mu.Lock()
	defer conv.mu.Unlock()
	return conv.transcript(), nil
}

// Send appends the user message and the assistant reply. Turns within one
// conversation are serialized.
func (s *Service) Send(ctx context.Context, id, text string) (*Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.ErrInvalidInput
	}
	conv, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	conv.mu.Lock()
	defer conv.mu.Unlock()

	conv.messages = append(conv.messages, Message{Role: RoleUser, Text: text, At: s.now()})

	reply := failedReply
	if conv.session == nil {
		s.logger.Warn().Str("conversation_id", id).Msg("chat session unavailable")
	} else {
		out, err := conv.session.Send(ctx, text)
		switch {
		case err != nil:
			s.logger.Error().Err(err).Str("conversation_id", id).Msg("chat turn failed")
		case strings.TrimSpace(out) == "":
			reply = emptyReply
		default:
			reply = out
		}
	}

	msg := Message{Role: RoleModel, Text: reply, At: s.now()}
	conv.messages = append(conv.messages, msg)
	return &msg, nil
}

func (s *Service) lookup(id string) (*conversation, error) {
	s.mu.RLock()
	conv, ok := s.convs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	return conv, nil
}

func (c *conversation) transcript() *Transcript {
	msgs := make([]Message, len(c.messages))
	copy(msgs, c.messages)
	return &Transcript{ID: c.id, Messages: msgs}
}

// ErrNoAPIKey is returned by the offline backend.
var ErrNoAPIKey = errors.New("chat: gemini api key not configured")

// OfflineBackend is used when no API key is configured; every turn
// answers with the connection error reply.
type OfflineBackend struct{}

func (OfflineBackend) NewSession(context.Context) (Session, error) {
	return nil, ErrNoAPIKey
}
