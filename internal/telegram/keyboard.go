package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"accmgr-telebot/internal/model"
)

const (
	buttonAddNumber = "➕ Add Number"
	buttonMyNumbers = "📱 My Numbers"
	buttonHelp      = "ℹ️ Help"
)

func mainKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(buttonAddNumber)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(buttonMyNumbers)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(buttonHelp)),
	)
	kb.ResizeKeyboard = true
	return kb
}

func numbersKeyboard(numbers []model.PhoneNumber) tgbotapi.InlineKeyboardMarkup {
	if len(numbers) == 0 {
		return tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("No numbers added", "none"),
			),
		)
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(numbers)+1)
	for _, n := range numbers {
		emoji := "⏳"
		if n.IsAuthenticated {
			emoji = "✅"
		}
		label := fmt.Sprintf("%s %s (%s)", emoji, n.Phone, n.Status)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("number_%d", n.ID)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🔙 Back", "back_main"),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func backToNumbersKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔙 Back", "back_numbers"),
		),
	)
}
