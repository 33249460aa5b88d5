package handler

import (
	"context"
	"errors"
	"fmt"

	"github.com/davidmdi/moodbot/internal/models"
	"github.com/davidmdi/moodbot/internal/tracker"
)

const (
	reasonPrompt = "Thanks! ✍️ Now tell me in a message: *why* do you feel this way today?"
	reactFirst   = "Please react to the survey message with one of the emojis first 🙂"
	thankYou     = "💚 Thank you for sharing! Your answer was recorded."
)

func (h *SurveyHandler) collectMood(ctx context.Context, r models.Reaction) error {
	pending, ok := h.tracker.Get(r.SenderID)
	if !ok || pending.PromptMessageID != r.TargetMessageID {
		return nil
	}

	mood, ok := models.MoodFromSymbol(r.Emoji)
	if !ok {
		return nil
	}

	if err := h.tracker.SetMood(ctx, r.SenderID, mood); err != nil {
		if errors.Is(err, tracker.ErrMoodAlreadySet) {
			h.log.Debug().Str("recipient", r.SenderID).Msg("Ignoring second mood selection")
			return nil
		}
		return fmt.Errorf("failed to record mood: %w", err)
	}

	h.log.Info().Str("recipient", r.SenderID).Stringer("mood", mood).Msg("Mood selected")

	if current, ok := h.tracker.Get(r.SenderID); ok && current.Reason == nil {
		if _, err := h.messenger.SendText(ctx, r.ChatID, reasonPrompt); err != nil {
			return fmt.Errorf("failed to ask for reason: %w", err)
		}
	}
	return nil
}

func (h *SurveyHandler) collectReason(ctx context.Context, chatID, senderID, text string) error {
	pending, ok := h.tracker.Get(senderID)
	if !ok || pending.Reason != nil {
		return nil
	}
	if pending.Mood == nil {
		if _, err := h.messenger.SendText(ctx, chatID, reactFirst); err != nil {
			return fmt.Errorf("failed to send reminder: %w", err)
		}
		return nil
	}

	if err := h.tracker.SetReason(ctx, senderID, text); err != nil {
		return fmt.Errorf("failed to record reason: %w", err)
	}

	if _, err := h.messenger.SendText(ctx, chatID, thankYou); err != nil {
		h.log.Warn().Err(err).Str("recipient", senderID).Msg("Failed to acknowledge answer")
	}

	resp, err := h.tracker.Finalize(senderID)
	if err != nil {
		return fmt.Errorf("failed to finalize response: %w", err)
	}

	rec, err := models.NewMoodRecord(resp, h.now().In(h.config.Location))
	if err != nil {
		return err
	}
	h.deliver(ctx, rec)
	return nil
}

// deliver hands a finished record to storage and the operations chat.
// Failures are only logged: the recipient was already thanked.
func (h *SurveyHandler) deliver(ctx context.Context, rec models.MoodRecord) {
	if err := h.records.Append(ctx, rec); err != nil {
		h.log.Warn().Err(err).Str("recipient", rec.RecipientID).Msg("Response not stored")
	}

	if h.config.OpsChat == "" {
		return
	}
	if _, err := h.messenger.SendText(ctx, h.config.OpsChat, responseNotice(rec)); err != nil {
		h.log.Warn().Err(err).Str("recipient", rec.RecipientID).Msg("Failed to notify operations chat")
	}
}

func responseNotice(rec models.MoodRecord) string {
	symbol := ""
	if m, ok := rec.Mood(); ok {
		symbol = m.Symbol() + " "
	}
	return fmt.Sprintf(
		"📝 *New mood response*\n\n👤 %s\n%s%s\n💬 %s\n🕒 %s",
		rec.DisplayName, symbol, rec.MoodLabel, rec.Reason, rec.Timestamp.Format(models.TimestampLayout),
	)
}
