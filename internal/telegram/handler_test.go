package telegram

import (
	"context"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"accmgr-telebot/internal/account"
	"accmgr-telebot/internal/auth"
	"accmgr-telebot/internal/model"
)

type fakeSender struct {
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

// lastText returns the text of the most recent outgoing message or edit.
func (f *fakeSender) lastText() string {
	if len(f.sent) == 0 {
		return ""
	}
	switch m := f.sent[len(f.sent)-1].(type) {
	case tgbotapi.MessageConfig:
		return m.Text
	case tgbotapi.EditMessageTextConfig:
		return m.Text
	default:
		return ""
	}
}

type fakeUserRepo struct {
	upserts []model.User
}

func (f *fakeUserRepo) Upsert(ctx context.Context, user model.User) error {
	f.upserts = append(f.upserts, user)
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id int64) (model.User, error) {
	return model.User{ID: id}, nil
}

type fakePhoneRepo struct {
	nextID  int64
	records map[int64]*model.PhoneNumber
	order   []int64
}

func newFakePhoneRepo() *fakePhoneRepo {
	return &fakePhoneRepo{records: make(map[int64]*model.PhoneNumber)}
}

func (f *fakePhoneRepo) Insert(ctx context.Context, userID int64, phone string) (int64, error) {
	f.nextID++
	f.records[f.nextID] = &model.PhoneNumber{
		ID:      f.nextID,
		UserID:  userID,
		Phone:   phone,
		Status:  model.StatusPending,
		AddedAt: time.Now().UTC(),
	}
	f.order = append(f.order, f.nextID)
	return f.nextID, nil
}

func (f *fakePhoneRepo) ListByUser(ctx context.Context, userID int64) ([]model.PhoneNumber, error) {
	var out []model.PhoneNumber
	for i := len(f.order) - 1; i >= 0; i-- {
		if r := f.records[f.order[i]]; r.UserID == userID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakePhoneRepo) UpdateStatus(ctx context.Context, id int64, status model.PhoneStatus, authenticated bool) error {
	if r, ok := f.records[id]; ok {
		r.Status = status
		r.IsAuthenticated = authenticated
		now := time.Now().UTC()
		r.LastLogin = &now
	}
	return nil
}

type fakeSessionRepo struct {
	refs map[string]string // userID_phone -> session ref
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{refs: make(map[string]string)}
}

func (f *fakeSessionRepo) Upsert(ctx context.Context, userID int64, phone, sessionRef string) error {
	f.refs[account.SessionName("", userID, phone)] = sessionRef
	return nil
}

func (f *fakeSessionRepo) ActiveRef(ctx context.Context, userID int64, phone string) (string, bool, error) {
	ref, ok := f.refs[account.SessionName("", userID, phone)]
	return ref, ok, nil
}

type fixture struct {
	sender   *fakeSender
	users    *fakeUserRepo
	phones   *fakePhoneRepo
	sessions *fakeSessionRepo
	registry *auth.Registry
	handler  *Handler
}

func newFixture(t *testing.T, twoFactorPassword string) *fixture {
	t.Helper()
	sender := &fakeSender{}
	users := &fakeUserRepo{}
	phones := newFakePhoneRepo()
	sessions := newFakeSessionRepo()
	dialer := account.NewStubDialer("13579", twoFactorPassword)
	registry := auth.NewRegistry(dialer, auth.NewRepoStore(phones, sessions), "sessions", 15*time.Minute, nil)
	handler := NewHandler(sender, users, phones, registry, 15*time.Minute, nil)
	return &fixture{sender: sender, users: users, phones: phones, sessions: sessions, registry: registry, handler: handler}
}

func textUpdate(userID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: userID, UserName: "tester", FirstName: "Test"},
		Chat:      &tgbotapi.Chat{ID: userID, Type: "private"},
		Text:      text,
	}}
}

func (fx *fixture) send(t *testing.T, userID int64, text string) {
	t.Helper()
	require.NoError(t, fx.handler.HandleUpdate(context.Background(), textUpdate(userID, text)))
}

func TestHandler_invalidPhoneStaysInAwaitingPhone(t *testing.T) {
	fx := newFixture(t, "")
	fx.send(t, 7, buttonAddNumber)

	for _, bad := range []string{"15551234567", "+1555", "hello"} {
		fx.send(t, 7, bad)
		assert.Contains(t, fx.sender.lastText(), "Invalid phone number format")
	}

	// Still awaiting a phone number: a valid one now proceeds to the code step.
	fx.send(t, 7, "+15551234567")
	assert.Contains(t, fx.sender.lastText(), "verification code")
}

func TestHandler_scenarioA_phoneToAwaitingCode(t *testing.T) {
	fx := newFixture(t, "")
	fx.send(t, 7, buttonAddNumber)
	fx.send(t, 7, "+15551234567")

	assert.Contains(t, fx.sender.lastText(), "verification code")
	assert.True(t, fx.registry.HasPending(7))
	assert.Equal(t, stateAwaitCode, fx.handler.flows.get(7).State)
}

func TestHandler_scenarioB_correctCodeSignsIn(t *testing.T) {
	fx := newFixture(t, "")
	fx.send(t, 7, buttonAddNumber)
	fx.send(t, 7, "+15551234567")
	fx.send(t, 7, "13579")

	assert.Contains(t, fx.sender.lastText(), "Authentication successful")
	assert.Equal(t, stateIdle, fx.handler.flows.get(7).State)
	assert.False(t, fx.registry.HasPending(7))

	record := fx.phones.records[1]
	require.NotNil(t, record)
	assert.True(t, record.IsAuthenticated)
	assert.Equal(t, model.StatusAuthenticated, record.Status)

	_, ok, err := fx.sessions.ActiveRef(context.Background(), 7, "+15551234567")
	require.NoError(t, err)
	assert.True(t, ok, "session handle must be persisted")
}

func TestHandler_scenarioC_twoFactorRequired(t *testing.T) {
	fx := newFixture(t, "hunter2")
	fx.send(t, 7, buttonAddNumber)
	fx.send(t, 7, "+15551234567")
	fx.send(t, 7, "13579")

	assert.Contains(t, fx.sender.lastText(), "2FA password")
	assert.Equal(t, stateAwaitTwoFactor, fx.handler.flows.get(7).State)
	assert.True(t, fx.registry.HasPending(7), "pending entry survives the 2FA transition")
}

func TestHandler_scenarioD_wrongPasswordAbandonsFlow(t *testing.T) {
	fx := newFixture(t, "hunter2")
	fx.send(t, 7, buttonAddNumber)
	fx.send(t, 7, "+15551234567")
	fx.send(t, 7, "13579")
	fx.send(t, 7, "wrong-password")

	assert.Contains(t, fx.sender.lastText(), "Invalid 2FA password")
	assert.Equal(t, stateIdle, fx.handler.flows.get(7).State)
	assert.False(t, fx.registry.HasPending(7))

	record := fx.phones.records[1]
	require.NotNil(t, record)
	assert.False(t, record.IsAuthenticated, "record stays unauthenticated after 2FA failure")
}

func TestHandler_wrongCodeAllowsRetry(t *testing.T) {
	fx := newFixture(t, "")
	fx.send(t, 7, buttonAddNumber)
	fx.send(t, 7, "+15551234567")
	fx.send(t, 7, "00000")

	assert.Contains(t, fx.sender.lastText(), "Invalid verification code")
	assert.Equal(t, stateAwaitCode, fx.handler.flows.get(7).State)

	fx.send(t, 7, "13579")
	assert.Contains(t, fx.sender.lastText(), "Authentication successful")
}

func TestHandler_secondPhoneReplacesPendingAttempt(t *testing.T) {
	fx := newFixture(t, "")
	fx.send(t, 7, buttonAddNumber)
	fx.send(t, 7, "+15551234567")
	fx.send(t, 7, buttonAddNumber)
	fx.send(t, 7, "+15559876543")
	fx.send(t, 7, "13579")

	assert.Contains(t, fx.sender.lastText(), "Authentication successful")

	// Only the second submission is authenticated.
	assert.False(t, fx.phones.records[1].IsAuthenticated)
	assert.True(t, fx.phones.records[2].IsAuthenticated)
}

func TestHandler_dropsNonPrivateChats(t *testing.T) {
	fx := newFixture(t, "")
	upd := textUpdate(7, "/start")
	upd.Message.Chat.Type = "group"

	require.NoError(t, fx.handler.HandleUpdate(context.Background(), upd))
	assert.Empty(t, fx.sender.sent)
	assert.Empty(t, fx.users.upserts)
}

func TestHandler_startShowsMenuAndUpsertsUser(t *testing.T) {
	fx := newFixture(t, "")
	fx.send(t, 7, "/start")

	assert.Contains(t, fx.sender.lastText(), "Welcome")
	require.Len(t, fx.users.upserts, 1)
	assert.Equal(t, "tester", fx.users.upserts[0].Username)

	last := fx.sender.sent[len(fx.sender.sent)-1].(tgbotapi.MessageConfig)
	_, ok := last.ReplyMarkup.(tgbotapi.ReplyKeyboardMarkup)
	assert.True(t, ok, "welcome reply carries the main keyboard")
}

func TestHandler_numbersCallbackNavigation(t *testing.T) {
	fx := newFixture(t, "")
	fx.send(t, 7, buttonAddNumber)
	fx.send(t, 7, "+15551234567")
	fx.send(t, 7, "13579")
	fx.send(t, 7, buttonMyNumbers)

	cb := tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:   "q1",
		From: &tgbotapi.User{ID: 7},
		Data: "number_1",
		Message: &tgbotapi.Message{
			MessageID: 2,
			Chat:      &tgbotapi.Chat{ID: 7, Type: "private"},
		},
	}}
	require.NoError(t, fx.handler.HandleUpdate(context.Background(), cb))

	require.Len(t, fx.sender.requests, 1, "callback query must be answered")
	assert.Contains(t, fx.sender.lastText(), "+15551234567")
	assert.Contains(t, fx.sender.lastText(), "authenticated")
}
