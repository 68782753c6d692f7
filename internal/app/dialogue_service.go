package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"thucydides/internal/model"
)

var (
	ErrSessionNotFound = errors.New("dialogue session not found")
	ErrFigureNotFound  = errors.New("historical figure not found")
	ErrNoActiveProject = errors.New("user has no active project")
	ErrMessageEmpty    = errors.New("message content is empty")
	ErrTurnEnqueue     = errors.New("assistant turn enqueue failed")
)

// AsyncTurnPublisher hands a finished assistant turn to the commit queue.
type AsyncTurnPublisher interface {
	Publish(ctx context.Context, turn model.AssistantTurn) error
}

// HistoryCache keeps per-session message history out of MySQL on the hot
// read path.
type HistoryCache interface {
	GetHistory(ctx context.Context, sessionID uint) ([]model.Message, bool, error)
	SetHistory(ctx context.Context, sessionID uint, messages []model.Message) error
	DeleteHistory(ctx context.Context, sessionID uint) error
	MarkDirty(ctx context.Context, sessionID uint) error
	IsDirty(ctx context.Context, sessionID uint) (bool, error)
}

// DialogueSessionStore is the slice of session persistence the service needs.
type DialogueSessionStore interface {
	Create(session *model.DialogueSession) error
	GetByIDAndUserID(sessionID, userID uint) (*model.DialogueSession, error)
	ListByUserIDAndFigureID(userID, figureID uint) ([]model.DialogueSession, error)
	ListRecentByUserID(userID uint, limit int) ([]model.DialogueSession, error)
}

// MessageStore persists dialogue turns and serves the recent history window.
type MessageStore interface {
	Create(message *model.Message) error
	CreateWithCitations(message *model.Message, citations []model.Citation) error
	ListRecentBySessionID(sessionID uint, limit int) ([]model.Message, error)
}

type FigureStore interface {
	GetByID(id uint) (*model.Figure, error)
}

type UserStore interface {
	GetByID(id uint) (*model.User, error)
}

type DialogueService struct {
	sessionRepo  DialogueSessionStore
	messageRepo  MessageStore
	figureRepo   FigureStore
	userRepo     UserStore
	responder    *Responder
	publisher    AsyncTurnPublisher
	historyCache HistoryCache
	maxContext   int
}

type ChatInput struct {
	UserID        uint
	SessionID     uint
	Content       string
	AllowExternal bool
}

// RecentDialogue is one entry of the "continue talking to" strip: the newest
// session per figure.
type RecentDialogue struct {
	SessionID    uint      `json:"session_id"`
	FigureID     uint      `json:"figure_id"`
	FigureName   string    `json:"figure_name"`
	FigureAvatar string    `json:"figure_avatar"`
	StartedAt    time.Time `json:"started_at"`
}

func NewDialogueService(
	sessionRepo DialogueSessionStore,
	messageRepo MessageStore,
	figureRepo FigureStore,
	userRepo UserStore,
	responder *Responder,
	publisher AsyncTurnPublisher,
	historyCache HistoryCache,
	maxContext int,
) *DialogueService {
	if maxContext <= 0 {
		maxContext = 20
	}
	return &DialogueService{
		sessionRepo:  sessionRepo,
		messageRepo:  messageRepo,
		figureRepo:   figureRepo,
		userRepo:     userRepo,
		responder:    responder,
		publisher:    publisher,
		historyCache: historyCache,
		maxContext:   maxContext,
	}
}

// StartSession creates a session under the user's active project and seeds it
// with an in-character welcome message. The welcome turn runs through the
// full retrieval pipeline but is persisted synchronously: the session is only
// returned once its first message is committed.
func (s *DialogueService) StartSession(ctx context.Context, userID, figureID uint) (*model.DialogueSession, error) {
	if userID == 0 || figureID == 0 {
		return nil, ErrInvalidInput
	}

	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidInput
	}
	if user.ActiveProjectID == 0 {
		return nil, ErrNoActiveProject
	}

	figure, err := s.figureRepo.GetByID(figureID)
	if err != nil {
		return nil, err
	}
	if figure == nil {
		return nil, ErrFigureNotFound
	}

	session := &model.DialogueSession{
		ProjectID: user.ActiveProjectID,
		FigureID:  figure.ID,
	}
	if err := s.sessionRepo.Create(session); err != nil {
		return nil, err
	}
	session.Figure = *figure

	welcome, citations, err := s.generateWelcome(ctx, *figure)
	if err != nil {
		return nil, err
	}
	message := &model.Message{
		SessionID: session.ID,
		Role:      model.RoleAssistant,
		Content:   welcome,
		CreatedAt: time.Now(),
	}
	if err := s.messageRepo.CreateWithCitations(message, citations); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *DialogueService) generateWelcome(ctx context.Context, figure model.Figure) (string, []model.Citation, error) {
	input := AnswerInput{
		Persona:    buildPersonaPrompt(figure),
		FigureName: figure.Name,
		Query:      fmt.Sprintf("Please introduce yourself, %s.", figure.Name),
	}

	var content strings.Builder
	var citations []model.Citation
	err := s.responder.StreamAnswer(ctx, input, func(ev StreamEvent) error {
		switch ev.Type {
		case EventText:
			content.WriteString(ev.Content)
		case EventCitations:
			citations = ev.Data
		}
		return nil
	})
	if err != nil {
		return "", nil, err
	}
	return content.String(), citations, nil
}

// Chat runs one user turn. The user message is committed before generation
// starts, so it survives whatever happens to the stream. The assistant turn
// is accumulated alongside the live stream and queued for commit once the
// stream drains; a client that stops reading mid-stream does not lose the
// turn, it just gets the degraded tail.
func (s *DialogueService) Chat(ctx context.Context, input ChatInput, onChunk func(chunk string) error) error {
	if input.UserID == 0 || input.SessionID == 0 {
		return ErrInvalidInput
	}
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return ErrMessageEmpty
	}

	session, err := s.sessionRepo.GetByIDAndUserID(input.SessionID, input.UserID)
	if err != nil {
		return err
	}
	if session == nil {
		return ErrSessionNotFound
	}

	history, err := s.messageRepo.ListRecentBySessionID(input.SessionID, s.maxContext)
	if err != nil {
		return err
	}

	userMessage := &model.Message{
		SessionID: input.SessionID,
		Role:      model.RoleUser,
		Content:   content,
		CreatedAt: time.Now(),
	}
	if err := s.messageRepo.Create(userMessage); err != nil {
		return err
	}
	s.invalidateHistory(input.SessionID)

	// The transcript ends with the turn just committed.
	history = append(history, *userMessage)

	answer := AnswerInput{
		Persona:       buildPersonaPrompt(session.Figure),
		FigureName:    session.Figure.Name,
		Query:         content,
		History:       history,
		AllowExternal: input.AllowExternal,
	}

	var full strings.Builder
	var citations []model.Citation
	clientGone := false
	if err := s.responder.StreamAnswer(ctx, answer, func(ev StreamEvent) error {
		switch ev.Type {
		case EventText:
			full.WriteString(ev.Content)
			if !clientGone {
				if writeErr := onChunk(ev.Content); writeErr != nil {
					// Keep draining so the turn can still be committed.
					clientGone = true
				}
			}
		case EventCitations:
			citations = ev.Data
		}
		return nil
	}); err != nil {
		return err
	}

	if s.publisher == nil {
		return ErrTurnEnqueue
	}
	turn := model.AssistantTurn{
		Message: model.Message{
			SessionID: input.SessionID,
			Role:      model.RoleAssistant,
			Content:   full.String(),
			CreatedAt: time.Now(),
		},
		Citations: citations,
	}
	// Background context: the commit must outlive a cancelled request.
	if err := s.publisher.Publish(context.Background(), turn); err != nil {
		return ErrTurnEnqueue
	}
	return nil
}

// GetMessages returns the newest limit messages of a session in chronological
// order, serving from the cache when it is present and clean.
func (s *DialogueService) GetMessages(userID, sessionID uint, limit int) ([]model.Message, error) {
	if userID == 0 || sessionID == 0 {
		return nil, ErrInvalidInput
	}
	session, err := s.sessionRepo.GetByIDAndUserID(sessionID, userID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	ctx := context.Background()
	if s.historyCache != nil {
		dirty, err := s.historyCache.IsDirty(ctx, sessionID)
		if err == nil && !dirty {
			if cached, hit, cacheErr := s.historyCache.GetHistory(ctx, sessionID); cacheErr == nil && hit {
				return trimMessages(cached, limit), nil
			}
		}
	}

	messages, err := s.messageRepo.ListRecentBySessionID(sessionID, limit)
	if err != nil {
		return nil, err
	}
	if s.historyCache != nil {
		if dirty, dirtyErr := s.historyCache.IsDirty(ctx, sessionID); dirtyErr == nil && !dirty {
			_ = s.historyCache.SetHistory(ctx, sessionID, messages)
		}
	}
	return messages, nil
}

func (s *DialogueService) ListSessions(userID, figureID uint) ([]model.DialogueSession, error) {
	if userID == 0 || figureID == 0 {
		return nil, ErrInvalidInput
	}
	return s.sessionRepo.ListByUserIDAndFigureID(userID, figureID)
}

// RecentDialogues lists the newest session for each of up to five figures the
// user has talked to, newest first.
func (s *DialogueService) RecentDialogues(userID uint) ([]RecentDialogue, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	sessions, err := s.sessionRepo.ListRecentByUserID(userID, 50)
	if err != nil {
		return nil, err
	}

	seen := make(map[uint]bool)
	recent := make([]RecentDialogue, 0, 5)
	for _, session := range sessions {
		if seen[session.FigureID] {
			continue
		}
		seen[session.FigureID] = true
		recent = append(recent, RecentDialogue{
			SessionID:    session.ID,
			FigureID:     session.FigureID,
			FigureName:   session.Figure.Name,
			FigureAvatar: session.Figure.Avatar,
			StartedAt:    session.CreatedAt,
		})
		if len(recent) == 5 {
			break
		}
	}
	return recent, nil
}

func (s *DialogueService) invalidateHistory(sessionID uint) {
	if s.historyCache == nil {
		return
	}
	ctx := context.Background()
	_ = s.historyCache.MarkDirty(ctx, sessionID)
	_ = s.historyCache.DeleteHistory(ctx, sessionID)
}

func trimMessages(messages []model.Message, limit int) []model.Message {
	if limit <= 0 || limit >= len(messages) {
		return messages
	}
	return messages[len(messages)-limit:]
}
