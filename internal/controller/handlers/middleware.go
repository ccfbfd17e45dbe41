package handlers

import (
	"context"
	"errors"
	"strconv"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"github.com/orlandoalexander/educatch/internal/service"
	"github.com/orlandoalexander/educatch/internal/session"
)

// tutorFor находит тьютора чата; в демо-режиме подставляется тьютор по умолчанию
func (h *Handlers) tutorFor(chatID int64) (int64, bool) {
	if id, ok := h.tutors[chatID]; ok {
		return id, true
	}
	if h.demoTutorID > 0 {
		return h.demoTutorID, true
	}
	return 0, false
}

// scope добавляет ключ демо-сессии: у каждого чата своё хранилище
func (h *Handlers) scope(ctx context.Context, chatID int64) context.Context {
	if h.sessions == nil {
		return ctx
	}
	return session.WithKey(ctx, sessionKey(chatID))
}

func sessionKey(chatID int64) string {
	return "chat-" + strconv.FormatInt(chatID, 10)
}

// requireTutor проверяет привязку чата и готовит контекст запроса
// Возвращает контекст, tutor id и true если OK
func (h *Handlers) requireTutor(ctx context.Context, b *bot.Bot, update *models.Update) (context.Context, int64, bool) {
	if update.Message == nil {
		return ctx, 0, false
	}

	chatID := update.Message.Chat.ID
	tutorID, ok := h.tutorFor(chatID)
	if !ok {
		h.logger.Warn("Chat is not linked to a tutor", zap.Int64("chat_id", chatID))
		h.sendError(ctx, b, chatID, "❌ This chat is not linked to a tutor account.")
		return ctx, 0, false
	}

	return h.scope(ctx, chatID), tutorID, true
}

// errorText переводит ошибку ядра в сообщение пользователю
func errorText(err error) string {
	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrNotFound):
		return "❌ " + err.Error()
	case errors.Is(err, service.ErrConflict), errors.Is(err, service.ErrConsistency):
		return "⚠️ " + err.Error()
	default:
		return "❌ Something went wrong. Please try again later."
	}
}

// fail логирует ошибку и отвечает пользователю
func (h *Handlers) fail(ctx context.Context, b *bot.Bot, chatID int64, msg string, err error) {
	h.logger.Error(msg, zap.Int64("chat_id", chatID), zap.Error(err))
	h.sendError(ctx, b, chatID, errorText(err))
}

// sendError отправляет сообщение об ошибке и логирует если не удалось
func (h *Handlers) sendError(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		h.logger.Error("Failed to send error message",
			zap.Int64("chat_id", chatID),
			zap.String("text", text),
			zap.Error(err),
		)
	}
}

// sendMessage отправляет сообщение и логирует если не удалось
func (h *Handlers) sendMessage(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		h.logger.Error("Failed to send message",
			zap.Int64("chat_id", chatID),
			zap.Error(err),
		)
	}
}
