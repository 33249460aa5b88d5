package handler

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/davidmdi/moodbot/internal/models"
	"github.com/davidmdi/moodbot/internal/whatsapp"
)

const commandPrefix = "!"

const helpText = `🤖 *Mood bot commands*

!survey_now - send today's survey now
!test_survey [group] - send the survey to one group only
!report_now - post the weekly report now
!status - show bot status
!exclude @user|number - stop surveying a user
!include @user|number - survey a user again
!exclusions - list excluded users
!clear_exclusions - remove every exclusion (asks for confirmation)
!help - show this message`

type command struct {
	name     string
	args     []string
	mentions []string
	chatID   string
	senderID string
	console  bool
	reply    func(ctx context.Context, text string) (string, error)
}

func parseCommand(text string) (string, []string) {
	fields := strings.Fields(strings.TrimPrefix(strings.TrimSpace(text), commandPrefix))
	if len(fields) == 0 {
		return "", nil
	}
	return strings.ToLower(fields[0]), fields[1:]
}

// HandleCommand runs an admin command received in a chat
func (h *SurveyHandler) HandleCommand(ctx context.Context, msg models.IncomingMessage) error {
	name, args := parseCommand(msg.Text)
	if name == "" {
		return nil
	}

	cmd := command{
		name:     name,
		args:     args,
		mentions: msg.Mentions,
		chatID:   msg.ChatID,
		senderID: msg.SenderID,
		reply: func(ctx context.Context, text string) (string, error) {
			return h.messenger.SendText(ctx, msg.ChatID, text)
		},
	}

	if !h.isAdmin(ctx, msg.SenderID) {
		h.log.Warn().Str("sender", msg.SenderID).Str("command", name).Msg("Command refused")
		_, err := cmd.reply(ctx, "⛔ Only administrators can use bot commands.")
		return err
	}

	return h.execute(ctx, cmd)
}

// RunConsoleCommand runs a command typed on the operator console
func (h *SurveyHandler) RunConsoleCommand(ctx context.Context, line string, out io.Writer) error {
	name, args := parseCommand(line)
	if name == "" {
		return nil
	}

	cmd := command{
		name:    name,
		args:    args,
		chatID:  h.config.OpsChat,
		console: true,
		reply: func(_ context.Context, text string) (string, error) {
			_, err := fmt.Fprintln(out, text)
			return "", err
		},
	}
	return h.execute(ctx, cmd)
}

func (h *SurveyHandler) isAdmin(ctx context.Context, userID string) bool {
	if slices.Contains(h.config.Admins, userID) {
		return true
	}

	members, err := h.messenger.GroupMembers(ctx, h.config.CommunityGroup)
	if err != nil {
		h.log.Warn().Err(err).Msg("Cannot check admin rights")
		return false
	}
	for _, m := range members {
		if m.ID == userID {
			return m.IsAdmin
		}
	}
	return false
}

func (h *SurveyHandler) execute(ctx context.Context, cmd command) error {
	h.log.Info().Str("command", cmd.name).Str("sender", cmd.senderID).Bool("console", cmd.console).Msg("Running command")

	var text string
	switch cmd.name {
	case "survey_now":
		text = h.cmdSurveyNow(ctx)
	case "test_survey":
		text = h.cmdTestSurvey(ctx, cmd)
	case "report_now":
		text = h.cmdReportNow(ctx)
	case "status":
		text = h.cmdStatus()
	case "exclude":
		text = h.cmdExclude(cmd)
	case "include":
		text = h.cmdInclude(cmd)
	case "exclusions":
		text = h.cmdListExclusions()
	case "clear_exclusions":
		return h.cmdClearExclusions(ctx, cmd)
	case "help":
		text = helpText
	default:
		text = fmt.Sprintf("❓ Unknown command %q. Send !help for the list.", cmd.name)
	}

	_, err := cmd.reply(ctx, text)
	return err
}

func (h *SurveyHandler) cmdSurveyNow(ctx context.Context) string {
	summary, err := h.Dispatch(ctx)
	if err != nil {
		return fmt.Sprintf("❌ Survey failed: %v", err)
	}
	return summary.String()
}

func (h *SurveyHandler) cmdTestSurvey(ctx context.Context, cmd command) string {
	groupID := cmd.chatID
	if len(cmd.args) > 0 {
		groupID = cmd.args[0]
	}
	if groupID == "" {
		return "Usage: !test_survey <group>"
	}

	summary, err := h.DispatchGroup(ctx, groupID)
	if err != nil {
		return fmt.Sprintf("❌ Test survey failed: %v", err)
	}
	return fmt.Sprintf("🧪 Test run for %s\n\n%s", groupID, summary)
}

func (h *SurveyHandler) cmdReportNow(ctx context.Context) string {
	res, err := h.reporter.Run(ctx)
	if err != nil {
		return fmt.Sprintf("❌ Report failed: %v", err)
	}
	return fmt.Sprintf("📊 Report posted for %d users (%d records, %d rows skipped).", res.Users, res.Records, res.Skipped)
}

func (h *SurveyHandler) cmdStatus() string {
	var b strings.Builder

	b.WriteString("🤖 *Bot status*\n\n")
	fmt.Fprintf(&b, "Connection: %s\n", onOff(h.messenger.Connected(), "online", "offline"))
	fmt.Fprintf(&b, "Pending surveys: %d\n", h.tracker.Len())
	fmt.Fprintf(&b, "Exclusions: %d (%s)\n", h.exclusions.Len(), onOff(h.exclusions.Persistent(), "saved to disk", "memory only"))
	fmt.Fprintf(&b, "Storage: %s\n", onOff(h.records.Enabled(), "enabled", "disabled"))
	if h.schedule != nil {
		fmt.Fprintf(&b, "Next survey: %s\n", formatNext(h.schedule.NextSurvey(), h.config.Location))
		fmt.Fprintf(&b, "Next report: %s\n", formatNext(h.schedule.NextReport(), h.config.Location))
	}

	return strings.TrimRight(b.String(), "\n")
}

// target picks the user an exclusion command refers to: a mention wins over
// a typed number
func (h *SurveyHandler) target(cmd command) (string, bool) {
	if len(cmd.mentions) > 0 {
		return cmd.mentions[0], true
	}
	if len(cmd.args) == 0 {
		return "", false
	}
	return whatsapp.UserID(strings.Join(cmd.args, ""))
}

func (h *SurveyHandler) cmdExclude(cmd command) string {
	id, ok := h.target(cmd)
	if !ok {
		return "Usage: !exclude @user or !exclude <phone number>"
	}

	changed, err := h.exclusions.Add(id)
	if err != nil {
		h.log.Error().Err(err).Str("recipient", id).Msg("Failed to save exclusions")
		return fmt.Sprintf("⚠️ %s excluded, but the list could not be saved: %v", id, err)
	}
	if !changed {
		return fmt.Sprintf("ℹ️ %s is already excluded.", id)
	}
	return fmt.Sprintf("🚫 %s will no longer receive the survey.", id)
}

func (h *SurveyHandler) cmdInclude(cmd command) string {
	id, ok := h.target(cmd)
	if !ok {
		return "Usage: !include @user or !include <phone number>"
	}

	changed, err := h.exclusions.Remove(id)
	if err != nil {
		h.log.Error().Err(err).Str("recipient", id).Msg("Failed to save exclusions")
		return fmt.Sprintf("⚠️ %s included, but the list could not be saved: %v", id, err)
	}
	if !changed {
		return fmt.Sprintf("ℹ️ %s was not excluded.", id)
	}
	return fmt.Sprintf("✅ %s will receive the survey again.", id)
}

func (h *SurveyHandler) cmdListExclusions() string {
	ids := h.exclusions.List()
	if len(ids) == 0 {
		return "📋 No users are excluded."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📋 *Excluded users* (%d)\n", len(ids))
	for _, id := range ids {
		fmt.Fprintf(&b, "\n• %s", id)
	}
	return b.String()
}

func (h *SurveyHandler) cmdClearExclusions(ctx context.Context, cmd command) error {
	n := h.exclusions.Len()
	if n == 0 {
		_, err := cmd.reply(ctx, "📋 No users are excluded.")
		return err
	}

	if cmd.console {
		if len(cmd.args) == 0 || cmd.args[0] != "confirm" {
			_, err := cmd.reply(ctx, fmt.Sprintf("This removes %d exclusions. Type: clear_exclusions confirm", n))
			return err
		}
		_, err := cmd.reply(ctx, h.clearExclusions())
		return err
	}

	msgID, err := cmd.reply(ctx, fmt.Sprintf(
		"⚠️ This will remove all %d exclusions.\nReact with %s to this message within %s to confirm.",
		n, confirmEmoji, h.config.ConfirmTimeout,
	))
	if err != nil {
		return err
	}

	done := h.confirms.register(msgID, cmd.senderID)
	h.background.Add(1)
	go func() {
		defer h.background.Done()

		waitCtx := context.WithoutCancel(ctx)
		if !h.confirms.wait(waitCtx, msgID, done, h.config.ConfirmTimeout) {
			h.log.Info().Str("sender", cmd.senderID).Msg("Clear exclusions cancelled")
			if _, err := cmd.reply(waitCtx, "⌛ No confirmation received. Exclusions were kept."); err != nil {
				h.log.Warn().Err(err).Msg("Failed to report cancellation")
			}
			return
		}

		if _, err := cmd.reply(waitCtx, h.clearExclusions()); err != nil {
			h.log.Warn().Err(err).Msg("Failed to report cleared exclusions")
		}
	}()
	return nil
}

func (h *SurveyHandler) clearExclusions() string {
	n, err := h.exclusions.Clear()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to save exclusions")
		return fmt.Sprintf("⚠️ %d exclusions removed, but the list could not be saved: %v", n, err)
	}
	return fmt.Sprintf("🧹 Removed %d exclusions.", n)
}

func onOff(v bool, on, off string) string {
	if v {
		return on
	}
	return off
}

func formatNext(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return "not scheduled"
	}
	return t.In(loc).Format("Mon 02/01 15:04")
}
