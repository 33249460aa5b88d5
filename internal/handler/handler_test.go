package handler

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/davidmdi/moodbot/internal/models"
	"github.com/davidmdi/moodbot/internal/report"
	"github.com/davidmdi/moodbot/internal/storage"
	"github.com/davidmdi/moodbot/internal/tracker"
)

const (
	community = "120363000000000001@g.us"
	opsChat   = "120363000000000002@g.us"
	ana       = "5511900000001@s.whatsapp.net"
	bruno     = "5511900000002@s.whatsapp.net"
	carla     = "5511900000003@s.whatsapp.net"
	botUser   = "5511900000009@s.whatsapp.net"
	adminUser = "5511900000010@s.whatsapp.net"
)

type sentMessage struct {
	id     string
	chatID string
	text   string
}

type messengerMock struct {
	mu         sync.Mutex
	sent       []sentMessage
	images     int
	members    map[string][]models.Member
	failFor    map[string]bool
	membersErr error
	nextID     int
	sendDelay  time.Duration
}

func newMessengerMock() *messengerMock {
	return &messengerMock{
		members: map[string][]models.Member{
			community: {
				{ID: ana, DisplayName: "Ana"},
				{ID: bruno, DisplayName: "Bruno"},
				{ID: carla, DisplayName: "Carla"},
				{ID: botUser, DisplayName: "Bot", IsBot: true},
				{ID: adminUser, DisplayName: "Admin", IsAdmin: true},
			},
		},
		failFor: make(map[string]bool),
	}
}

func (m *messengerMock) SendText(_ context.Context, chatID, text string) (string, error) {
	time.Sleep(m.sendDelay)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failFor[chatID] {
		return "", errors.New("recipient does not accept messages")
	}
	m.nextID++
	id := fmt.Sprintf("MSG%d", m.nextID)
	m.sent = append(m.sent, sentMessage{id: id, chatID: chatID, text: text})
	return id, nil
}

func (m *messengerMock) SendImage(context.Context, string, []byte, string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.images++
	return nil
}

func (m *messengerMock) GroupMembers(_ context.Context, groupID string) ([]models.Member, error) {
	if m.membersErr != nil {
		return nil, m.membersErr
	}
	members, ok := m.members[groupID]
	if !ok {
		return nil, fmt.Errorf("unknown group %s", groupID)
	}
	return members, nil
}

func (m *messengerMock) Connected() bool { return true }

func (m *messengerMock) messagesTo(chatID string) []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []sentMessage
	for _, s := range m.sent {
		if s.chatID == chatID {
			out = append(out, s)
		}
	}
	return out
}

func (m *messengerMock) last(chatID string) sentMessage {
	msgs := m.messagesTo(chatID)
	if len(msgs) == 0 {
		return sentMessage{}
	}
	return msgs[len(msgs)-1]
}

type sinkMock struct {
	mu      sync.Mutex
	records []models.MoodRecord
	err     error
}

func (s *sinkMock) Append(_ context.Context, rec models.MoodRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, rec)
	return nil
}

func (s *sinkMock) Enabled() bool { return s.err == nil }

type reporterMock struct {
	calls int
	res   report.Result
	err   error
}

func (r *reporterMock) Run(context.Context) (report.Result, error) {
	r.calls++
	return r.res, r.err
}

type testEnv struct {
	h          *SurveyHandler
	messenger  *messengerMock
	tracker    *tracker.Tracker
	exclusions *storage.Exclusions
	sink       *sinkMock
	reporter   *reporterMock
}

var fixedNow = time.Date(2026, 3, 9, 10, 30, 0, 0, time.UTC)

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	ex, err := storage.NewExclusions(filepath.Join(t.TempDir(), "excluded.txt"), true)
	require.NoError(t, err)

	env := &testEnv{
		messenger:  newMessengerMock(),
		tracker:    tracker.New(zerolog.Nop()),
		exclusions: ex,
		sink:       &sinkMock{},
		reporter:   &reporterMock{},
	}
	env.h = NewSurveyHandler(env.messenger, env.tracker, ex, env.sink, env.reporter, &Config{
		CommunityGroup: community,
		OpsChat:        opsChat,
		Location:       time.UTC,
		ConfirmTimeout: 200 * time.Millisecond,
	}, zerolog.Nop())
	env.h.now = func() time.Time { return fixedNow }
	return env
}

func (env *testEnv) react(t *testing.T, sender, target, emoji string) {
	t.Helper()
	require.NoError(t, env.h.HandleReaction(context.Background(), models.Reaction{
		ChatID: sender, SenderID: sender, TargetMessageID: target, Emoji: emoji,
	}))
}

func (env *testEnv) dm(t *testing.T, sender, text string) {
	t.Helper()
	require.NoError(t, env.h.HandleMessage(context.Background(), models.IncomingMessage{
		ChatID: sender, SenderID: sender, Text: text,
	}))
}

func (env *testEnv) command(t *testing.T, sender, chatID, text string, mentions ...string) {
	t.Helper()
	require.NoError(t, env.h.HandleMessage(context.Background(), models.IncomingMessage{
		ChatID: chatID, SenderID: sender, Text: text, IsGroup: strings.HasSuffix(chatID, "@g.us"), Mentions: mentions,
	}))
}

func contains(msgs []sentMessage, substr string) bool {
	for _, m := range msgs {
		if strings.Contains(m.text, substr) {
			return true
		}
	}
	return false
}
