package handler

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/davidmdi/moodbot/internal/models"
)

// DispatchSummary counts what happened to each roster member in one run
type DispatchSummary struct {
	RunID          string
	Sent           int
	Failed         int
	Excluded       int
	Bots           int
	AlreadyPending int
}

func (s DispatchSummary) String() string {
	return fmt.Sprintf(
		"📨 Survey sent\n\n✅ Sent: %d\n❌ Failed: %d\n🚫 Excluded: %d\n⏳ Already pending: %d\n🤖 Bots skipped: %d",
		s.Sent, s.Failed, s.Excluded, s.AlreadyPending, s.Bots,
	)
}

// Dispatch sends today's survey to the community group
func (h *SurveyHandler) Dispatch(ctx context.Context) (DispatchSummary, error) {
	return h.DispatchGroup(ctx, h.config.CommunityGroup)
}

// DispatchGroup sends the survey to every eligible member of groupID.
// A failed delivery is counted and never stops the batch. Runs are
// serialised so a member is never prompted twice by overlapping runs.
func (h *SurveyHandler) DispatchGroup(ctx context.Context, groupID string) (DispatchSummary, error) {
	h.dispatchMu.Lock()
	defer h.dispatchMu.Unlock()

	summary := DispatchSummary{RunID: uuid.NewString()}
	log := h.log.With().Str("run", summary.RunID).Str("group", groupID).Logger()

	members, err := h.messenger.GroupMembers(ctx, groupID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch group members")
		return summary, fmt.Errorf("failed to fetch members of %s: %w", groupID, err)
	}

	log.Info().Int("members", len(members)).Msg("Dispatching survey")

	for _, m := range members {
		switch {
		case m.IsBot:
			summary.Bots++
			continue
		case h.exclusions.Contains(m.ID):
			summary.Excluded++
			log.Debug().Str("recipient", m.ID).Msg("Recipient excluded")
			continue
		}
		if _, pending := h.tracker.Get(m.ID); pending {
			summary.AlreadyPending++
			continue
		}

		if err := h.sendSurvey(ctx, m); err != nil {
			summary.Failed++
			log.Warn().Err(err).Str("recipient", m.ID).Msg("Survey not delivered")
			continue
		}
		summary.Sent++
	}

	log.Info().
		Int("sent", summary.Sent).
		Int("failed", summary.Failed).
		Int("excluded", summary.Excluded).
		Int("pending", summary.AlreadyPending).
		Msg("Survey dispatch finished")

	return summary, nil
}

func (h *SurveyHandler) sendSurvey(ctx context.Context, m models.Member) error {
	msgID, err := h.messenger.SendText(ctx, m.ID, surveyPrompt(m.DisplayName))
	if err != nil {
		return err
	}
	if err := h.tracker.Begin(m.ID, msgID, m.DisplayName); err != nil {
		return fmt.Errorf("failed to track survey: %w", err)
	}
	return nil
}

func surveyPrompt(name string) string {
	greeting := "Hi! 👋"
	if name != "" {
		greeting = fmt.Sprintf("Hi %s! 👋", name)
	}
	return fmt.Sprintf(
		"%s\n\n*How are you feeling today?*\n\nReact to this message with one of:\n\n%s",
		greeting, models.MoodPrompt(),
	)
}
