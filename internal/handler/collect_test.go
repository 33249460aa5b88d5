package handler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidmdi/moodbot/internal/models"
)

func dispatched(t *testing.T) (*testEnv, string) {
	t.Helper()

	env := newTestEnv(t)
	_, err := env.h.Dispatch(context.Background())
	require.NoError(t, err)

	pending, ok := env.tracker.Get(ana)
	require.True(t, ok)
	return env, pending.PromptMessageID
}

func TestCollect_HappyThenReason(t *testing.T) {
	t.Parallel()

	env, prompt := dispatched(t)

	env.react(t, ana, prompt, models.MoodHappy.Symbol())
	assert.Equal(t, reasonPrompt, env.messenger.last(ana).text)

	env.dm(t, ana, "great tournament")

	_, pending := env.tracker.Get(ana)
	assert.False(t, pending, "finalized record leaves the tracker")

	require.Len(t, env.sink.records, 1)
	rec := env.sink.records[0]
	assert.Equal(t, ana, rec.RecipientID)
	assert.Equal(t, "Ana", rec.DisplayName)
	assert.Equal(t, "Happy", rec.MoodLabel)
	assert.Equal(t, "great tournament", rec.Reason)
	assert.True(t, rec.Timestamp.Equal(fixedNow))

	assert.Equal(t, thankYou, env.messenger.last(ana).text)
	notice := env.messenger.last(opsChat).text
	assert.Contains(t, notice, "Ana")
	assert.Contains(t, notice, "Happy")
	assert.Contains(t, notice, "great tournament")
}

func TestCollect_ReasonBeforeMoodIsRejected(t *testing.T) {
	t.Parallel()

	env, prompt := dispatched(t)

	env.dm(t, ana, "typing before reacting")
	assert.Equal(t, reactFirst, env.messenger.last(ana).text)

	pending, _ := env.tracker.Get(ana)
	assert.Nil(t, pending.Mood)
	assert.Nil(t, pending.Reason)

	env.react(t, ana, prompt, models.MoodNeutral.Symbol())
	env.dm(t, ana, "the real reason")
	require.Len(t, env.sink.records, 1)
	assert.Equal(t, "the real reason", env.sink.records[0].Reason)
}

func TestCollect_IgnoresForeignReactions(t *testing.T) {
	t.Parallel()

	env, prompt := dispatched(t)
	before := len(env.messenger.messagesTo(ana))

	// other message, unknown emoji, reaction removal, and someone else's prompt
	env.react(t, ana, "OTHER", models.MoodHappy.Symbol())
	env.react(t, ana, prompt, "👍")
	env.react(t, ana, prompt, "")
	env.react(t, bruno, prompt, models.MoodHappy.Symbol())

	pending, _ := env.tracker.Get(ana)
	assert.Nil(t, pending.Mood)
	assert.Len(t, env.messenger.messagesTo(ana), before)
}

func TestCollect_SecondMoodIgnored(t *testing.T) {
	t.Parallel()

	env, prompt := dispatched(t)

	env.react(t, ana, prompt, models.MoodVeryHappy.Symbol())
	env.react(t, ana, prompt, models.MoodVeryUnhappy.Symbol())

	pending, _ := env.tracker.Get(ana)
	require.NotNil(t, pending.Mood)
	assert.Equal(t, models.MoodVeryHappy, *pending.Mood)
	assert.Len(t, env.messenger.messagesTo(ana), 2, "prompt plus a single follow-up")
}

func TestCollect_GroupMessagesAreNotReasons(t *testing.T) {
	t.Parallel()

	env, prompt := dispatched(t)
	env.react(t, ana, prompt, models.MoodHappy.Symbol())

	require.NoError(t, env.h.HandleMessage(context.Background(), models.IncomingMessage{
		ChatID: community, SenderID: ana, Text: "hello group", IsGroup: true,
	}))

	pending, ok := env.tracker.Get(ana)
	require.True(t, ok)
	assert.Nil(t, pending.Reason)
}

func TestCollect_MessageWithoutSurveyIgnored(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.dm(t, ana, "hi bot")
	assert.Empty(t, env.messenger.messagesTo(ana))
}

func TestCollect_StorageFailureStillAcknowledges(t *testing.T) {
	t.Parallel()

	env, prompt := dispatched(t)
	env.sink.err = errors.New("storage unavailable")

	env.react(t, ana, prompt, models.MoodUnhappy.Symbol())
	env.dm(t, ana, "lost the final")

	assert.Equal(t, thankYou, env.messenger.last(ana).text)
	_, pending := env.tracker.Get(ana)
	assert.False(t, pending)
	assert.Contains(t, env.messenger.last(opsChat).text, "lost the final")
}

func TestCollect_ReasonStartingWithBang(t *testing.T) {
	t.Parallel()

	env, prompt := dispatched(t)
	env.react(t, ana, prompt, models.MoodVeryHappy.Symbol())

	env.dm(t, ana, "!!! amazing day")

	require.Len(t, env.sink.records, 1)
	assert.Equal(t, "!!! amazing day", env.sink.records[0].Reason)
	assert.Equal(t, thankYou, env.messenger.last(ana).text)
	assert.False(t, contains(env.messenger.messagesTo(ana), "Only administrators"))

	// without a reason owed, the same text is a command again
	env.dm(t, ana, "!status")
	assert.Contains(t, env.messenger.last(ana).text, "Only administrators")
}
