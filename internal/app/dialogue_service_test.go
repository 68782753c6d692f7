package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thucydides/internal/ai"
	"thucydides/internal/model"
	"thucydides/internal/vectorstore"
)

type generatorFunc func(ctx context.Context, req ai.GenerateRequest, onChunk func(string) error) (string, error)

func (f generatorFunc) StreamGenerate(ctx context.Context, req ai.GenerateRequest, onChunk func(string) error) (string, error) {
	return f(ctx, req, onChunk)
}

type fakeSessionStore struct {
	session *model.DialogueSession
	created []*model.DialogueSession
	recent  []model.DialogueSession
}

func (f *fakeSessionStore) Create(session *model.DialogueSession) error {
	session.ID = uint(len(f.created) + 1)
	f.created = append(f.created, session)
	return nil
}

func (f *fakeSessionStore) GetByIDAndUserID(sessionID, userID uint) (*model.DialogueSession, error) {
	return f.session, nil
}

func (f *fakeSessionStore) ListByUserIDAndFigureID(userID, figureID uint) ([]model.DialogueSession, error) {
	return nil, nil
}

func (f *fakeSessionStore) ListRecentByUserID(userID uint, limit int) ([]model.DialogueSession, error) {
	return f.recent, nil
}

type committedTurn struct {
	message   model.Message
	citations []model.Citation
}

type fakeMessageStore struct {
	history   []model.Message
	gotLimit  int
	created   []model.Message
	committed []committedTurn
}

func (f *fakeMessageStore) Create(message *model.Message) error {
	message.ID = uint(len(f.created) + 1)
	f.created = append(f.created, *message)
	return nil
}

func (f *fakeMessageStore) CreateWithCitations(message *model.Message, citations []model.Citation) error {
	f.committed = append(f.committed, committedTurn{message: *message, citations: citations})
	return nil
}

func (f *fakeMessageStore) ListRecentBySessionID(sessionID uint, limit int) ([]model.Message, error) {
	f.gotLimit = limit
	return f.history, nil
}

type fakeFigureStore struct{ figure *model.Figure }

func (f *fakeFigureStore) GetByID(id uint) (*model.Figure, error) { return f.figure, nil }

type fakeUserStore struct{ user *model.User }

func (f *fakeUserStore) GetByID(id uint) (*model.User, error) { return f.user, nil }

type fakeTurnPublisher struct {
	turns  []model.AssistantTurn
	gotCtx context.Context
	err    error
}

func (f *fakeTurnPublisher) Publish(ctx context.Context, turn model.AssistantTurn) error {
	f.gotCtx = ctx
	f.turns = append(f.turns, turn)
	return f.err
}

type fakeHistoryCache struct {
	history []model.Message
	hit     bool
	dirty   bool
	stored  [][]model.Message
	marked  []uint
	deleted []uint
}

func (f *fakeHistoryCache) GetHistory(_ context.Context, _ uint) ([]model.Message, bool, error) {
	return f.history, f.hit, nil
}

func (f *fakeHistoryCache) SetHistory(_ context.Context, _ uint, messages []model.Message) error {
	f.stored = append(f.stored, messages)
	return nil
}

func (f *fakeHistoryCache) DeleteHistory(_ context.Context, sessionID uint) error {
	f.deleted = append(f.deleted, sessionID)
	return nil
}

func (f *fakeHistoryCache) MarkDirty(_ context.Context, sessionID uint) error {
	f.marked = append(f.marked, sessionID)
	return nil
}

func (f *fakeHistoryCache) IsDirty(_ context.Context, _ uint) (bool, error) {
	return f.dirty, nil
}

func dialogueFigure() model.Figure {
	return model.Figure{
		ID:     2,
		Name:   "Socrates",
		Title:  "Athenian Philosopher",
		Avatar: "/avatars/socrates.png",
	}
}

func newChatService(gen Generator, messages *fakeMessageStore, pub AsyncTurnPublisher, cache HistoryCache, docs []vectorstore.RetrievedDocument) *DialogueService {
	figure := dialogueFigure()
	sessions := &fakeSessionStore{
		session: &model.DialogueSession{ID: 7, ProjectID: 3, FigureID: figure.ID, Figure: figure},
	}
	responder := NewResponder(&fakeEmbedder{vector: []float32{0.1}}, &fakeIndex{docs: docs}, gen)
	return NewDialogueService(sessions, messages, &fakeFigureStore{figure: &figure}, &fakeUserStore{}, responder, pub, cache, 20)
}

func TestChatCommitsUserMessageBeforeGeneration(t *testing.T) {
	messages := &fakeMessageStore{}
	var persistedAtGeneration int
	gen := generatorFunc(func(_ context.Context, _ ai.GenerateRequest, onChunk func(string) error) (string, error) {
		persistedAtGeneration = len(messages.created)
		if err := onChunk("Indeed."); err != nil {
			return "", err
		}
		return "Indeed.", nil
	})
	svc := newChatService(gen, messages, &fakeTurnPublisher{}, nil, nil)

	err := svc.Chat(context.Background(), ChatInput{UserID: 1, SessionID: 7, Content: "What is virtue?"}, func(string) error { return nil })

	require.NoError(t, err)
	assert.Equal(t, 1, persistedAtGeneration)
	require.Len(t, messages.created, 1)
	assert.Equal(t, model.RoleUser, messages.created[0].Role)
	assert.Equal(t, "What is virtue?", messages.created[0].Content)
}

func TestChatUserMessageSurvivesGenerationFailure(t *testing.T) {
	messages := &fakeMessageStore{}
	pub := &fakeTurnPublisher{}
	gen := &fakeGenerator{chunks: []string{"Virtue is "}, err: errors.New("upstream closed")}
	svc := newChatService(gen, messages, pub, nil, []vectorstore.RetrievedDocument{retrievedDoc("Apology", "know thyself")})

	err := svc.Chat(context.Background(), ChatInput{UserID: 1, SessionID: 7, Content: "What is virtue?"}, func(string) error { return nil })

	require.NoError(t, err)
	require.Len(t, messages.created, 1)
	assert.Equal(t, model.RoleUser, messages.created[0].Role)
	require.Len(t, pub.turns, 1)
	assert.Equal(t, "Virtue is "+degradedAnswer, pub.turns[0].Message.Content)
	assert.Empty(t, pub.turns[0].Citations)
}

func TestChatQueuesAccumulatedTurn(t *testing.T) {
	messages := &fakeMessageStore{}
	pub := &fakeTurnPublisher{}
	gen := &fakeGenerator{chunks: []string{"Know ", "thyself."}}
	svc := newChatService(gen, messages, pub, nil, []vectorstore.RetrievedDocument{retrievedDoc("Apology", "know thyself")})

	var streamed string
	err := svc.Chat(context.Background(), ChatInput{UserID: 1, SessionID: 7, Content: "Any advice?"}, func(chunk string) error {
		streamed += chunk
		return nil
	})

	require.NoError(t, err)
	require.Len(t, pub.turns, 1)
	turn := pub.turns[0]
	assert.Equal(t, "Know thyself.", streamed)
	assert.Equal(t, streamed, turn.Message.Content)
	assert.Equal(t, model.RoleAssistant, turn.Message.Role)
	assert.Equal(t, uint(7), turn.Message.SessionID)
	require.Len(t, turn.Citations, 1)
	assert.Equal(t, "Apology", turn.Citations[0].Source)
	// The commit must outlive the request, so it is queued detached from it.
	assert.Equal(t, context.Background(), pub.gotCtx)
}

func TestChatDrainsAfterClientWriteFailure(t *testing.T) {
	messages := &fakeMessageStore{}
	pub := &fakeTurnPublisher{}
	gen := &fakeGenerator{chunks: []string{"He who ", "is not content."}}
	svc := newChatService(gen, messages, pub, nil, nil)

	writes := 0
	err := svc.Chat(context.Background(), ChatInput{UserID: 1, SessionID: 7, Content: "Go on."}, func(string) error {
		writes++
		return errors.New("client went away")
	})

	require.NoError(t, err)
	assert.Equal(t, 1, writes)
	require.Len(t, pub.turns, 1)
	assert.Equal(t, "He who is not content.", pub.turns[0].Message.Content)
}

func TestChatSendsRecentWindowEndingWithUserTurn(t *testing.T) {
	messages := &fakeMessageStore{history: []model.Message{
		{ID: 21, SessionID: 7, Role: model.RoleUser, Content: "Hello."},
		{ID: 22, SessionID: 7, Role: model.RoleAssistant, Content: "Greetings, friend."},
	}}
	gen := &fakeGenerator{chunks: []string{"Courage is knowledge."}}
	svc := newChatService(gen, messages, &fakeTurnPublisher{}, nil, nil)

	err := svc.Chat(context.Background(), ChatInput{UserID: 1, SessionID: 7, Content: "What is courage?"}, func(string) error { return nil })

	require.NoError(t, err)
	assert.Equal(t, 20, messages.gotLimit)
	require.Len(t, gen.gotReq.History, 3)
	assert.Equal(t, "user", gen.gotReq.History[0].Role)
	assert.Equal(t, "model", gen.gotReq.History[1].Role)
	assert.Equal(t, "user", gen.gotReq.History[2].Role)
	assert.Equal(t, "What is courage?", gen.gotReq.History[2].Content)
}

func TestChatPublishFailureReturnsEnqueueError(t *testing.T) {
	pub := &fakeTurnPublisher{err: errors.New("broker down")}
	gen := &fakeGenerator{chunks: []string{"Indeed."}}
	svc := newChatService(gen, &fakeMessageStore{}, pub, nil, nil)

	err := svc.Chat(context.Background(), ChatInput{UserID: 1, SessionID: 7, Content: "Hm?"}, func(string) error { return nil })

	assert.ErrorIs(t, err, ErrTurnEnqueue)
}

func TestChatInvalidatesCachedHistory(t *testing.T) {
	cache := &fakeHistoryCache{}
	gen := &fakeGenerator{chunks: []string{"Indeed."}}
	svc := newChatService(gen, &fakeMessageStore{}, &fakeTurnPublisher{}, cache, nil)

	err := svc.Chat(context.Background(), ChatInput{UserID: 1, SessionID: 7, Content: "Hm?"}, func(string) error { return nil })

	require.NoError(t, err)
	assert.Contains(t, cache.marked, uint(7))
	assert.Contains(t, cache.deleted, uint(7))
}

func TestStartSessionCommitsWelcomeSynchronously(t *testing.T) {
	figure := dialogueFigure()
	sessions := &fakeSessionStore{}
	messages := &fakeMessageStore{}
	pub := &fakeTurnPublisher{}
	gen := &fakeGenerator{chunks: []string{"I am Socrates ", "of Athens."}}
	responder := NewResponder(&fakeEmbedder{vector: []float32{0.1}}, &fakeIndex{docs: []vectorstore.RetrievedDocument{retrievedDoc("Apology", "I am Socrates")}}, gen)
	users := &fakeUserStore{user: &model.User{ID: 1, ActiveProjectID: 3, IsActive: true}}
	svc := NewDialogueService(sessions, messages, &fakeFigureStore{figure: &figure}, users, responder, pub, nil, 20)

	session, err := svc.StartSession(context.Background(), 1, figure.ID)

	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, uint(3), session.ProjectID)
	require.Len(t, messages.committed, 1)
	welcome := messages.committed[0]
	assert.Equal(t, session.ID, welcome.message.SessionID)
	assert.Equal(t, model.RoleAssistant, welcome.message.Role)
	assert.Equal(t, "I am Socrates of Athens.", welcome.message.Content)
	require.Len(t, welcome.citations, 1)
	assert.Empty(t, pub.turns)
}

func TestGetMessagesCacheHitServesNewestWindow(t *testing.T) {
	cache := &fakeHistoryCache{
		hit: true,
		history: []model.Message{
			{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4}, {ID: 5},
		},
	}
	svc := newChatService(&fakeGenerator{}, &fakeMessageStore{}, &fakeTurnPublisher{}, cache, nil)

	got, err := svc.GetMessages(1, 7, 3)

	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, uint(3), got[0].ID)
	assert.Equal(t, uint(5), got[2].ID)
}

func TestGetMessagesCacheMissReadsRecentWindow(t *testing.T) {
	cache := &fakeHistoryCache{}
	messages := &fakeMessageStore{history: []model.Message{{ID: 4}, {ID: 5}}}
	svc := newChatService(&fakeGenerator{}, messages, &fakeTurnPublisher{}, cache, nil)

	got, err := svc.GetMessages(1, 7, 2)

	require.NoError(t, err)
	assert.Equal(t, 2, messages.gotLimit)
	require.Len(t, got, 2)
	assert.Equal(t, uint(4), got[0].ID)
	require.Len(t, cache.stored, 1)
}
