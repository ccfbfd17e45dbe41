package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"github.com/orlandoalexander/educatch/internal/controller/formatting"
	"github.com/orlandoalexander/educatch/internal/export"
	"github.com/orlandoalexander/educatch/internal/model"
	"github.com/orlandoalexander/educatch/internal/service"
)

// lessonsAhead горизонт /lessons и /ics
const lessonsAhead = 7 * 24 * time.Hour

const helpText = "📚 Commands:\n\n" +
	"/lessons - Lessons in the next 7 days\n" +
	"/invoices - Weekly invoices and their status\n" +
	"/submit <id> - Submit a ready invoice\n" +
	"/ics - Timetable as a calendar file\n" +
	"/help - Show this help"

// HandleStart обрабатывает команду /start
func (h *Handlers) HandleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	name := "there"
	if update.Message.From != nil && update.Message.From.FirstName != "" {
		name = update.Message.From.FirstName
	}
	text := fmt.Sprintf("👋 Hi, %s!\n\nThis bot shows your tutoring timetable and invoices.\n\n%s", name, helpText)
	if h.sessions != nil {
		text += "\n/reset - Start the demo again"
	}
	h.sendMessage(ctx, b, update.Message.Chat.ID, text)
}

// HandleHelp обрабатывает команду /help
func (h *Handlers) HandleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	h.sendMessage(ctx, b, update.Message.Chat.ID, helpText)
}

// HandleLessons расписание тьютора на неделю вперёд
func (h *Handlers) HandleLessons(ctx context.Context, b *bot.Bot, update *models.Update) {
	ctx, tutorID, ok := h.requireTutor(ctx, b, update)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	entries, err := h.timetable(ctx, tutorID)
	if err != nil {
		h.fail(ctx, b, chatID, "Failed to load timetable", err)
		return
	}
	h.sendMessage(ctx, b, chatID, formatting.FormatTimetable(entries))
}

// HandleInvoices счета тьютора после пересчёта статусов
func (h *Handlers) HandleInvoices(ctx context.Context, b *bot.Bot, update *models.Update) {
	ctx, tutorID, ok := h.requireTutor(ctx, b, update)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	invoices, err := h.services.Invoices.ListInvoices(ctx, service.InvoiceQuery{TutorID: &tutorID})
	if err != nil {
		h.fail(ctx, b, chatID, "Failed to list invoices", err)
		return
	}
	h.sendMessage(ctx, b, chatID, formatting.FormatInvoices(invoices))
}

// HandleSubmit обрабатывает /submit <id>
func (h *Handlers) HandleSubmit(ctx context.Context, b *bot.Bot, update *models.Update) {
	ctx, tutorID, ok := h.requireTutor(ctx, b, update)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	invoiceID, err := parseInvoiceID(update.Message.Text)
	if err != nil {
		h.sendError(ctx, b, chatID, "❌ Usage: /submit <invoice id>")
		return
	}

	summary, err := h.services.Invoices.InvoiceLessons(ctx, invoiceID)
	if err != nil {
		h.fail(ctx, b, chatID, "Failed to load invoice", err)
		return
	}
	if summary.Invoice.TutorID != tutorID {
		h.sendError(ctx, b, chatID, fmt.Sprintf("❌ Invoice #%d is not yours.", invoiceID))
		return
	}

	_, err = h.services.Invoices.UpdateInvoices(ctx, model.InvoicePatch{
		IDs:    []int64{invoiceID},
		Status: model.InvoiceSubmitted,
	})
	if err != nil {
		h.fail(ctx, b, chatID, "Failed to submit invoice", err)
		return
	}
	summary.Invoice.Status = model.InvoiceSubmitted

	h.logger.Info("Invoice submitted from chat",
		zap.Int64("chat_id", chatID),
		zap.Int64("invoice_id", invoiceID),
	)
	h.sendMessage(ctx, b, chatID, formatting.FormatInvoiceSummary(summary))
}

// HandleICS отправляет расписание файлом iCalendar
func (h *Handlers) HandleICS(ctx context.Context, b *bot.Bot, update *models.Update) {
	ctx, tutorID, ok := h.requireTutor(ctx, b, update)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	entries, err := h.timetable(ctx, tutorID)
	if err != nil {
		h.fail(ctx, b, chatID, "Failed to load timetable", err)
		return
	}

	body := export.Calendar(entries, time.Now().UTC())
	_, err = b.SendDocument(ctx, &bot.SendDocumentParams{
		ChatID:   chatID,
		Document: &models.InputFileUpload{Filename: "timetable.ics", Data: strings.NewReader(body)},
		Caption:  fmt.Sprintf("📅 %d lessons", len(entries)),
	})
	if err != nil {
		h.logger.Error("Failed to send calendar", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// HandleReset возвращает демо-сессию чата к исходным данным
func (h *Handlers) HandleReset(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	if h.sessions == nil {
		h.sendError(ctx, b, chatID, "❌ Reset is only available in the demo.")
		return
	}
	h.sessions.Reset(sessionKey(chatID))
	h.sendMessage(ctx, b, chatID, "🔄 Demo data has been reset.")
}

func (h *Handlers) timetable(ctx context.Context, tutorID int64) ([]model.TimetableEntry, error) {
	from := time.Now().UTC()
	to := from.Add(lessonsAhead)
	return h.services.Lessons.Timetable(ctx, service.OccurrenceQuery{
		TutorID: &tutorID,
		From:    &from,
		To:      &to,
	})
}

func parseInvoiceID(text string) (int64, error) {
	fields := strings.Fields(text)
	if len(fields) != 2 {
		return 0, fmt.Errorf("expected one argument, got %d", len(fields)-1)
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(fields[1], "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid invoice id %q", fields[1])
	}
	return id, nil
}
