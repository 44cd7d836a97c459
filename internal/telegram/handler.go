package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"accmgr-telebot/internal/account"
	"accmgr-telebot/internal/auth"
	"accmgr-telebot/internal/model"
	"accmgr-telebot/internal/repo"
)

// minPhoneLen is the minimum accepted length of a phone number in
// international format, including the leading plus sign.
const minPhoneLen = 10

// sender is the slice of the bot API the handler uses to produce replies.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Handler routes each inbound update through the conversation state machine
// and the pending-authentication registry, and renders the reply.
type Handler struct {
	api      sender
	users    repo.UserRepo
	phones   repo.PhoneRepo
	registry *auth.Registry
	flows    *flowStore
	logger   *zap.Logger
}

// NewHandler constructs a Handler. ttl bounds how long an abandoned
// conversation keeps its state.
func NewHandler(api sender, users repo.UserRepo, phones repo.PhoneRepo, registry *auth.Registry, ttl time.Duration, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		api:      api,
		users:    users,
		phones:   phones,
		registry: registry,
		flows:    newFlowStore(ttl),
		logger:   logger,
	}
}

// HandleUpdate processes one update. Only private chats are handled; all
// other chat kinds are dropped silently.
func (h *Handler) HandleUpdate(ctx context.Context, update tgbotapi.Update) error {
	switch {
	case update.Message != nil:
		msg := update.Message
		if msg.Chat == nil || !msg.Chat.IsPrivate() || msg.From == nil {
			return nil
		}
		return h.handleMessage(ctx, msg)
	case update.CallbackQuery != nil:
		return h.handleCallback(ctx, update.CallbackQuery)
	default:
		return nil
	}
}

// Sweep drops expired conversation flows and pending authentications.
func (h *Handler) Sweep() {
	if n := h.flows.sweep(); n > 0 {
		h.logger.Info("expired conversation flows dropped", zap.Int("count", n))
	}
	h.registry.Sweep()
}

func (h *Handler) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	userID := msg.From.ID
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	if err := h.users.Upsert(ctx, model.User{
		ID:        userID,
		Username:  msg.From.UserName,
		FirstName: msg.From.FirstName,
		LastName:  msg.From.LastName,
	}); err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}

	switch {
	case strings.HasPrefix(text, "/start"):
		return h.handleStart(chatID, msg.From.FirstName, userID)
	case strings.HasPrefix(text, "/help"), text == buttonHelp:
		return h.reply(chatID, helpText)
	case text == buttonAddNumber:
		h.flows.set(userID, flow{State: stateAwaitPhone})
		return h.reply(chatID, promptPhoneText)
	case text == buttonMyNumbers:
		return h.sendNumbers(ctx, chatID, userID)
	}

	f := h.flows.get(userID)
	switch f.State {
	case stateAwaitPhone:
		return h.handlePhoneInput(ctx, chatID, userID, text)
	case stateAwaitCode:
		return h.handleCodeInput(ctx, chatID, userID, f, text)
	case stateAwaitTwoFactor:
		return h.handleTwoFactorInput(ctx, chatID, userID, text)
	default:
		// Free text outside a flow is ignored.
		return nil
	}
}

func (h *Handler) handleStart(chatID int64, firstName string, userID int64) error {
	if firstName == "" {
		firstName = "User"
	}
	h.flows.clear(userID)
	welcome := fmt.Sprintf(
		"🔐 Welcome to Account Manager, %s!\n\n"+
			"This bot helps you register multiple messaging accounts.\n\n"+
			"• Add Number — register a new phone number\n"+
			"• My Numbers — view your numbers\n"+
			"• Help — get assistance\n\n"+
			"Choose an option from the menu below:", firstName)
	return h.replyWithKeyboard(chatID, welcome, mainKeyboard())
}

func (h *Handler) handlePhoneInput(ctx context.Context, chatID, userID int64, text string) error {
	if !validPhone(text) {
		// Invalid input re-prompts and stays in the same state.
		h.flows.set(userID, flow{State: stateAwaitPhone})
		return h.reply(chatID, invalidPhoneText)
	}

	recordID, err := h.phones.Insert(ctx, userID, text)
	if err != nil {
		h.flows.clear(userID)
		_ = h.replyWithKeyboard(chatID, genericErrorText, mainKeyboard())
		return fmt.Errorf("insert phone number: %w", err)
	}

	_ = h.reply(chatID, "⏳ Sending verification code...")

	status, err := h.registry.Begin(ctx, userID, recordID, text)
	if err != nil {
		h.flows.clear(userID)
		var rl *account.RateLimitError
		switch {
		case errors.Is(err, account.ErrPhoneInvalid):
			return h.replyWithKeyboard(chatID, "❌ Invalid phone number format.", mainKeyboard())
		case errors.As(err, &rl):
			return h.replyWithKeyboard(chatID,
				fmt.Sprintf("❌ Too many attempts. Wait %d seconds and try again.", int(rl.RetryAfter.Seconds())),
				mainKeyboard())
		default:
			_ = h.replyWithKeyboard(chatID, genericErrorText, mainKeyboard())
			return fmt.Errorf("begin authentication: %w", err)
		}
	}

	if status == auth.BeginAlreadyAuthorized {
		h.flows.clear(userID)
		return h.replyWithKeyboard(chatID, "✅ This number is already authenticated!", mainKeyboard())
	}

	h.flows.set(userID, flow{State: stateAwaitCode, Phone: text, RecordID: recordID})
	return h.reply(chatID, "📨 Verification code sent successfully.\n\nPlease enter the verification code you received:")
}

func (h *Handler) handleCodeInput(ctx context.Context, chatID, userID int64, f flow, code string) error {
	res, err := h.registry.SubmitCode(ctx, userID, code)
	if err != nil {
		h.flows.clear(userID)
		if errors.Is(err, auth.ErrNoPendingAuth) {
			return h.replyWithKeyboard(chatID, startOverText, mainKeyboard())
		}
		_ = h.replyWithKeyboard(chatID, genericErrorText, mainKeyboard())
		return fmt.Errorf("submit code: %w", err)
	}

	switch res.Outcome {
	case auth.OutcomeSuccess:
		h.flows.clear(userID)
		return h.replyWithKeyboard(chatID, "✅ Authentication successful!", mainKeyboard())
	case auth.OutcomeTwoFactorRequired:
		f.State = stateAwaitTwoFactor
		h.flows.set(userID, f)
		return h.reply(chatID, "🔐 Two-factor authentication is enabled.\nPlease enter your 2FA password:")
	case auth.OutcomeCodeInvalid:
		h.flows.set(userID, f)
		return h.reply(chatID, "❌ Invalid verification code. Please try again:")
	case auth.OutcomeCodeExpired:
		h.flows.set(userID, f)
		return h.reply(chatID, "❌ Verification code expired. Please try again:")
	default:
		h.flows.clear(userID)
		return h.replyWithKeyboard(chatID, genericErrorText, mainKeyboard())
	}
}

func (h *Handler) handleTwoFactorInput(ctx context.Context, chatID, userID int64, password string) error {
	res, err := h.registry.SubmitTwoFactor(ctx, userID, password)
	h.flows.clear(userID)
	if err != nil {
		if errors.Is(err, auth.ErrNoPendingAuth) {
			return h.replyWithKeyboard(chatID, startOverText, mainKeyboard())
		}
		_ = h.replyWithKeyboard(chatID, genericErrorText, mainKeyboard())
		return fmt.Errorf("submit two-factor password: %w", err)
	}

	switch res.Outcome {
	case auth.OutcomeSuccess:
		return h.replyWithKeyboard(chatID, "✅ 2FA authentication successful!", mainKeyboard())
	case auth.OutcomePasswordInvalid:
		return h.replyWithKeyboard(chatID, "❌ Invalid 2FA password.", mainKeyboard())
	default:
		return h.replyWithKeyboard(chatID, genericErrorText, mainKeyboard())
	}
}

func (h *Handler) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if _, err := h.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		h.logger.Warn("answer callback failed", zap.Error(err))
	}
	if cb.Message == nil || cb.Message.Chat == nil || !cb.Message.Chat.IsPrivate() || cb.From == nil {
		return nil
	}

	chatID := cb.Message.Chat.ID
	messageID := cb.Message.MessageID
	userID := cb.From.ID

	switch {
	case cb.Data == "back_main":
		edit := tgbotapi.NewEditMessageText(chatID, messageID, "🔐 Main Menu")
		_, err := h.api.Send(edit)
		return err
	case cb.Data == "back_numbers":
		numbers, err := h.phones.ListByUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("list phone numbers: %w", err)
		}
		edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID,
			"📱 Your registered numbers:", numbersKeyboard(numbers))
		_, err = h.api.Send(edit)
		return err
	case strings.HasPrefix(cb.Data, "number_"):
		return h.editNumberDetails(ctx, chatID, messageID, userID, cb.Data)
	default:
		return nil
	}
}

func (h *Handler) editNumberDetails(ctx context.Context, chatID int64, messageID int, userID int64, data string) error {
	id, err := strconv.ParseInt(strings.TrimPrefix(data, "number_"), 10, 64)
	if err != nil {
		return nil
	}

	numbers, err := h.phones.ListByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("list phone numbers: %w", err)
	}

	text := "📱 Number not found."
	for _, n := range numbers {
		if n.ID != id {
			continue
		}
		lastLogin := "never"
		if n.LastLogin != nil {
			lastLogin = n.LastLogin.Format("2006-01-02 15:04")
		}
		text = fmt.Sprintf("📱 %s\n\nStatus: %s\nAdded: %s\nLast login: %s",
			n.Phone, n.Status, n.AddedAt.Format("2006-01-02 15:04"), lastLogin)
		break
	}

	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, backToNumbersKeyboard())
	_, err = h.api.Send(edit)
	return err
}

func (h *Handler) sendNumbers(ctx context.Context, chatID, userID int64) error {
	numbers, err := h.phones.ListByUser(ctx, userID)
	if err != nil {
		_ = h.reply(chatID, genericErrorText)
		return fmt.Errorf("list phone numbers: %w", err)
	}
	return h.replyWithKeyboard(chatID, "📱 Your registered numbers:", numbersKeyboard(numbers))
}

func (h *Handler) reply(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.api.Send(msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func (h *Handler) replyWithKeyboard(chatID int64, text string, keyboard interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboard
	if _, err := h.api.Send(msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func validPhone(text string) bool {
	return strings.HasPrefix(text, "+") && len(text) >= minPhoneLen
}

const (
	promptPhoneText = "📱 Please send your phone number in international format.\n" +
		"Example: +1234567890\n\n" +
		"Make sure to include the country code!"

	invalidPhoneText = "❌ Invalid phone number format.\n" +
		"Please use international format: +1234567890"

	startOverText = "⚠️ No login in progress. Please start over with ➕ Add Number."

	genericErrorText = "❌ Something went wrong. Please try again later."

	helpText = "🔐 Account Manager Help\n\n" +
		"How to use:\n" +
		"1. Click '➕ Add Number' to add a new phone number\n" +
		"2. Enter the phone number in international format (+1234567890)\n" +
		"3. Wait for the verification code\n" +
		"4. Enter the received code\n" +
		"5. If you have 2FA enabled, enter your password\n" +
		"6. Your session will be saved securely\n\n" +
		"Security notes:\n" +
		"• Never share your verification codes\n" +
		"• Use strong 2FA passwords"
)
