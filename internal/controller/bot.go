package controller

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"github.com/orlandoalexander/educatch/internal/controller/handlers"
	"github.com/orlandoalexander/educatch/internal/service"
	"github.com/orlandoalexander/educatch/internal/session"
)

type BotController struct {
	bot      *bot.Bot
	handlers *handlers.Handlers
	demo     bool
	logger   *zap.Logger
}

// NewBotController sessions передаётся только в демо-режиме
func NewBotController(
	botInstance *bot.Bot,
	services *service.Services,
	sessions *session.Manager,
	tutors map[int64]int64,
	demoTutorID int64,
	logger *zap.Logger,
) *BotController {
	return &BotController{
		bot:      botInstance,
		handlers: handlers.NewHandlers(services, sessions, tutors, demoTutorID, logger),
		demo:     sessions != nil,
		logger:   logger,
	}
}

// RegisterHandlers регистрирует все обработчики команд
func (c *BotController) RegisterHandlers(ctx context.Context) error {
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, c.handlers.HandleStart)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypeExact, c.handlers.HandleHelp)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/lessons", bot.MatchTypeExact, c.handlers.HandleLessons)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/invoices", bot.MatchTypeExact, c.handlers.HandleInvoices)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/submit", bot.MatchTypePrefix, c.handlers.HandleSubmit)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/ics", bot.MatchTypeExact, c.handlers.HandleICS)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/reset", bot.MatchTypeExact, c.handlers.HandleReset)

	return c.setCommands(ctx)
}

// setCommands устанавливает список команд в меню бота
func (c *BotController) setCommands(ctx context.Context) error {
	commands := []models.BotCommand{
		{Command: "lessons", Description: "📅 Lessons this week"},
		{Command: "invoices", Description: "🧾 Weekly invoices"},
		{Command: "submit", Description: "📨 Submit an invoice"},
		{Command: "ics", Description: "🗓 Timetable as a calendar file"},
		{Command: "help", Description: "❓ Help"},
	}
	if c.demo {
		commands = append(commands, models.BotCommand{Command: "reset", Description: "🔄 Reset demo data"})
	}

	_, err := c.bot.SetMyCommands(ctx, &bot.SetMyCommandsParams{
		Commands: commands,
	})
	if err != nil {
		c.logger.Error("Failed to set bot commands", zap.Error(err))
		return err
	}

	c.logger.Info("✅ Bot commands menu set", zap.Int("commands", len(commands)))
	return nil
}

// Start запускает бота и блокируется до отмены контекста
func (c *BotController) Start(ctx context.Context) {
	c.logger.Info("Starting bot...")
	c.bot.Start(ctx)
}
