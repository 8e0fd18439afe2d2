package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/diegoclair/earnings-reminder-bot/internal/domain/contract"
	"github.com/diegoclair/earnings-reminder-bot/internal/domain/entity"
	slackcmd "github.com/diegoclair/earnings-reminder-bot/internal/domain/slack"
	"github.com/slack-go/slack"
)

const (
	reportDateLayout = "January 2, 2006"

	// slash command payloads are a few hundred bytes
	maxRequestBytes = 64 << 10

	// bounds a deferred reminder lookup plus its reply
	deferredReplyTimeout = 2 * time.Minute
)

type SlackHandler struct {
	reminderService contract.ReminderService
	signingSecret   string
	loc             *time.Location

	pending sync.WaitGroup
}

func New(reminderService contract.ReminderService, signingSecret string, loc *time.Location) *SlackHandler {
	return &SlackHandler{
		reminderService: reminderService,
		signingSecret:   signingSecret,
		loc:             loc,
	}
}

func (h *SlackHandler) HandleSlashCommand(w http.ResponseWriter, r *http.Request) {
	// Verify request from Slack
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	r.Body = io.NopCloser(bytes.NewBuffer(body))

	verifier, err := slack.NewSecretsVerifier(r.Header, h.signingSecret)
	if err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	if _, err := verifier.Write(body); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	if err := verifier.Ensure(); err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	s, err := slack.SlashCommandParse(r)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	cmd, err := slackcmd.ParseCommand(s.Text)
	if err != nil {
		h.respond(w, h.createErrorResponse(err.Error()))
		return
	}

	h.respond(w, h.handleCommand(r, cmd, &s))
}

// Wait blocks until every deferred reply has been posted.
func (h *SlackHandler) Wait() {
	h.pending.Wait()
}

// HandleHealth answers liveness probes.
func (h *SlackHandler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *SlackHandler) handleCommand(r *http.Request, cmd *slackcmd.Command, slashCmd *slack.SlashCommand) *slack.Msg {
	switch cmd.Type {
	case slackcmd.CmdRemind:
		return h.handleRemind(r, cmd, slashCmd)
	case slackcmd.CmdList:
		return h.handleList(r, slashCmd)
	case slackcmd.CmdRemove:
		return h.handleRemove(r, cmd, slashCmd)
	case slackcmd.CmdPing:
		return &slack.Msg{ResponseType: slack.ResponseTypeEphemeral, Text: "pong"}
	case slackcmd.CmdHelp:
		return h.handleHelp()
	default:
		return h.createErrorResponse("Unknown command")
	}
}

func (h *SlackHandler) handleRemind(r *http.Request, cmd *slackcmd.Command, slashCmd *slack.SlashCommand) *slack.Msg {
	if cmd.Symbol() == "" {
		return h.createErrorResponse("Please provide a symbol: `/earnings reminder AAPL`")
	}
	symbol := strings.ToUpper(cmd.Symbol())
	channelID, responseURL := slashCmd.ChannelID, slashCmd.ResponseURL

	// Slack drops the reply after 3s and the earnings lookup can take longer,
	// so acknowledge now and post the outcome to the response URL.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), deferredReplyTimeout)
	h.pending.Add(1)
	go func() {
		defer h.pending.Done()
		defer cancel()

		h.postDeferred(ctx, channelID, responseURL, h.remind(ctx, channelID, symbol))
	}()

	return &slack.Msg{
		ResponseType: slack.ResponseTypeEphemeral,
		Text:         fmt.Sprintf("Looking up the next earnings date for %s…", symbol),
	}
}

func (h *SlackHandler) remind(ctx context.Context, channelID, symbol string) *slack.Msg {
	reminder, err := h.reminderService.RemindNextEarnings(ctx, channelID, symbol)
	switch {
	case errors.Is(err, entity.ErrReminderExists):
		return h.createErrorResponse(fmt.Sprintf("A reminder for %s already exists in this channel", symbol))
	case errors.Is(err, entity.ErrNoUpcomingEarnings):
		return h.createErrorResponse(fmt.Sprintf("No upcoming earnings found for %s", symbol))
	case errors.Is(err, entity.ErrInvalidSymbol):
		return h.createErrorResponse(fmt.Sprintf("%s is not a valid symbol", symbol))
	case err != nil:
		slog.Error("failed to set reminder", "channel_id", channelID, "symbol", symbol, "error", err)
		return h.createErrorResponse(fmt.Sprintf("Failed to set a reminder for %s, please try again later", symbol))
	}

	return &slack.Msg{
		ResponseType: slack.ResponseTypeInChannel,
		Text:         fmt.Sprintf("✅ Reminder set for %s: earnings on %s", reminder.Symbol, h.describeReport(reminder)),
	}
}

func (h *SlackHandler) postDeferred(ctx context.Context, channelID, responseURL string, msg *slack.Msg) {
	if responseURL == "" {
		slog.Error("no response url for deferred reply", "channel_id", channelID, "text", msg.Text)
		return
	}

	err := slack.PostWebhookContext(ctx, responseURL, &slack.WebhookMessage{
		ResponseType: msg.ResponseType,
		Text:         msg.Text,
	})
	if err != nil {
		slog.Error("failed to post deferred reply", "channel_id", channelID, "error", err)
	}
}

func (h *SlackHandler) handleList(r *http.Request, slashCmd *slack.SlashCommand) *slack.Msg {
	reminders, err := h.reminderService.ListReminders(r.Context(), slashCmd.ChannelID)
	if err != nil {
		slog.Error("failed to list reminders", "channel_id", slashCmd.ChannelID, "error", err)
		return h.createErrorResponse("Failed to list reminders")
	}

	if len(reminders) == 0 {
		return &slack.Msg{
			ResponseType: slack.ResponseTypeEphemeral,
			Text:         "No reminders in this channel. Use `/earnings reminder SYMBOL` to add one.",
		}
	}

	var list strings.Builder
	list.WriteString("*Earnings reminders in this channel:*\n")
	for i, reminder := range reminders {
		list.WriteString(fmt.Sprintf("%d. %s: %s\n", i+1, reminder.Symbol, h.describeReport(reminder)))
	}

	return &slack.Msg{
		ResponseType: slack.ResponseTypeEphemeral,
		Text:         list.String(),
	}
}

func (h *SlackHandler) handleRemove(r *http.Request, cmd *slackcmd.Command, slashCmd *slack.SlashCommand) *slack.Msg {
	if cmd.Symbol() == "" {
		return h.createErrorResponse("Please provide a symbol: `/earnings remove AAPL`")
	}
	symbol := strings.ToUpper(cmd.Symbol())

	err := h.reminderService.RemoveReminder(r.Context(), slashCmd.ChannelID, symbol)
	switch {
	case errors.Is(err, entity.ErrReminderNotFound):
		return h.createErrorResponse(fmt.Sprintf("There is no reminder for %s in this channel", symbol))
	case errors.Is(err, entity.ErrInvalidSymbol):
		return h.createErrorResponse(fmt.Sprintf("%s is not a valid symbol", symbol))
	case err != nil:
		slog.Error("failed to remove reminder", "channel_id", slashCmd.ChannelID, "symbol", symbol, "error", err)
		return h.createErrorResponse(fmt.Sprintf("Failed to remove the reminder for %s", symbol))
	}

	return &slack.Msg{
		ResponseType: slack.ResponseTypeInChannel,
		Text:         fmt.Sprintf("✅ Reminder for %s removed", symbol),
	}
}

func (h *SlackHandler) handleHelp() *slack.Msg {
	return &slack.Msg{
		ResponseType: slack.ResponseTypeEphemeral,
		Text:         slackcmd.GetHelpText(),
	}
}

// describeReport renders "May 10, 2024 after market close", dropping the phrase for unknown timing.
func (h *SlackHandler) describeReport(reminder *entity.Reminder) string {
	description := reminder.ReportDate.In(h.loc).Format(reportDateLayout)
	if phrase := reminder.ReportTiming.Phrase(); phrase != "" {
		description += " " + phrase
	}
	return description
}

func (h *SlackHandler) createErrorResponse(message string) *slack.Msg {
	return &slack.Msg{
		ResponseType: slack.ResponseTypeEphemeral,
		Text:         fmt.Sprintf("❌ %s", message),
	}
}

func (h *SlackHandler) respond(w http.ResponseWriter, response *slack.Msg) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.Error("failed to encode slack response", "error", err)
	}
}
