package whatsapp

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/skip2/go-qrcode"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"

	"github.com/davidmdi/moodbot/internal/models"
)

// MessageHandler is a callback for incoming text messages
type MessageHandler func(context.Context, models.IncomingMessage) error

// ReactionHandler is a callback for incoming reactions
type ReactionHandler func(context.Context, models.Reaction) error

type Config struct {
	DataDir string
}

type Service struct {
	client          *whatsmeow.Client
	cfg             *Config
	log             zerolog.Logger
	messageHandler  MessageHandler
	reactionHandler ReactionHandler
}

// NewService creates a new WhatsApp service
func NewService(cfg *Config, log zerolog.Logger) (*Service, error) {
	ctx := context.Background()
	logger := log.With().Str("component", "WhatsApp").Logger()

	// Use nil logger - sqlstore will use a no-op logger by default
	container, err := sqlstore.New(ctx, "sqlite3", fmt.Sprintf("file:%s/whatsmeow.db?_foreign_keys=on", cfg.DataDir), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}

	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}

	client := whatsmeow.NewClient(deviceStore, nil)

	service := &Service{
		client: client,
		cfg:    cfg,
		log:    logger,
	}

	client.AddEventHandler(func(evt interface{}) {
		service.eventHandler(evt)
	})

	return service, nil
}

// NormalizePhoneNumber strips everything but digits and a leading
// international "00" prefix
func NormalizePhoneNumber(phoneNumber string) string {
	var b strings.Builder
	for _, r := range phoneNumber {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return strings.TrimPrefix(b.String(), "00")
}

// UserID turns a phone number or JID into the recipient ID used by the bot
func UserID(input string) (string, bool) {
	input = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(input), "@"))
	if strings.Contains(input, "@") {
		jid, err := types.ParseJID(input)
		if err != nil || jid.User == "" {
			return "", false
		}
		return jid.ToNonAD().String(), true
	}

	number := NormalizePhoneNumber(input)
	if number == "" {
		return "", false
	}
	return types.NewJID(number, types.DefaultUserServer).String(), true
}

// Connect connects to WhatsApp, pairing with a QR code on first run
func (s *Service) Connect() error {
	if s.client.Store.ID == nil {
		qrChan, _ := s.client.GetQRChannel(context.Background())
		err := s.client.Connect()
		if err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
		for evt := range qrChan {
			if evt.Event == "code" {
				q, err := qrcode.New(evt.Code, qrcode.Medium)
				if err != nil {
					fmt.Printf("QR Code: %s\n", evt.Code)
					fmt.Println("Please scan this QR code with WhatsApp to connect.")
				} else {
					fmt.Println("\n" + q.ToSmallString(false))
					fmt.Println("📱 Please scan the QR code above with WhatsApp:")
					fmt.Println("   1. Open WhatsApp on your phone")
					fmt.Println("   2. Go to Settings > Linked Devices")
					fmt.Println("   3. Tap 'Link a Device'")
					fmt.Println("   4. Scan the QR code shown above")
				}
			} else {
				s.log.Info().Str("event", evt.Event).Msg("Login event")
			}
		}
	} else {
		err := s.client.Connect()
		if err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
	}
	return nil
}

// Disconnect disconnects from WhatsApp
func (s *Service) Disconnect() {
	s.client.Disconnect()
}

// Connected reports whether the client is online and logged in
func (s *Service) Connected() bool {
	return s.client.IsConnected() && s.client.IsLoggedIn()
}

// resolveChat parses chatID and, for direct chats, checks the user is on WhatsApp
func (s *Service) resolveChat(ctx context.Context, chatID string) (types.JID, error) {
	jid, err := types.ParseJID(chatID)
	if err != nil {
		return types.JID{}, fmt.Errorf("invalid chat %q: %w", chatID, err)
	}
	if jid.Server != types.DefaultUserServer {
		return jid, nil
	}

	resp, err := s.client.IsOnWhatsApp(ctx, []string{"+" + jid.User})
	if err != nil {
		return types.JID{}, fmt.Errorf("failed to verify number on WhatsApp: %w", err)
	}
	if len(resp) == 0 || !resp[0].IsIn {
		return types.JID{}, fmt.Errorf("number %s is not registered on WhatsApp", jid.User)
	}
	return resp[0].JID, nil
}

// SendText sends a text message and returns its message ID
func (s *Service) SendText(ctx context.Context, chatID, text string) (string, error) {
	jid, err := s.resolveChat(ctx, chatID)
	if err != nil {
		return "", err
	}

	s.log.Debug().Str("jid", jid.String()).Msg("Sending message")

	sent, err := s.client.SendMessage(ctx, jid, &waE2E.Message{
		Conversation: proto.String(text),
	})
	if err != nil {
		return "", fmt.Errorf("failed to send message to %s: %w", jid.String(), err)
	}
	return sent.ID, nil
}

// SendImage uploads a PNG and sends it with a caption
func (s *Service) SendImage(ctx context.Context, chatID string, png []byte, caption string) error {
	jid, err := s.resolveChat(ctx, chatID)
	if err != nil {
		return err
	}

	uploaded, err := s.client.Upload(ctx, png, whatsmeow.MediaImage)
	if err != nil {
		return fmt.Errorf("failed to upload image: %w", err)
	}

	_, err = s.client.SendMessage(ctx, jid, &waE2E.Message{
		ImageMessage: &waE2E.ImageMessage{
			Caption:       proto.String(caption),
			Mimetype:      proto.String(http.DetectContentType(png)),
			URL:           proto.String(uploaded.URL),
			DirectPath:    proto.String(uploaded.DirectPath),
			MediaKey:      uploaded.MediaKey,
			FileEncSHA256: uploaded.FileEncSHA256,
			FileSHA256:    uploaded.FileSHA256,
			FileLength:    proto.Uint64(uploaded.FileLength),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send image to %s: %w", jid.String(), err)
	}
	return nil
}

// GroupMembers returns the roster of a group
func (s *Service) GroupMembers(ctx context.Context, groupID string) ([]models.Member, error) {
	jid, err := types.ParseJID(groupID)
	if err != nil {
		return nil, fmt.Errorf("invalid group %q: %w", groupID, err)
	}
	if jid.Server != types.GroupServer {
		return nil, fmt.Errorf("%s is not a group", groupID)
	}

	info, err := s.client.GetGroupInfo(ctx, jid)
	if err != nil {
		return nil, fmt.Errorf("failed to get group info: %w", err)
	}

	members := make([]models.Member, 0, len(info.Participants))
	for _, p := range info.Participants {
		user := s.userJID(ctx, p.JID)
		members = append(members, models.Member{
			ID:          user.String(),
			DisplayName: s.displayName(ctx, user, p.DisplayName),
			IsBot:       s.isBot(user),
			IsAdmin:     p.IsAdmin || p.IsSuperAdmin,
		})
	}
	return members, nil
}

// userJID maps hidden (LID) addresses to phone-number JIDs when the mapping is known
func (s *Service) userJID(ctx context.Context, jid types.JID) types.JID {
	jid = jid.ToNonAD()
	if jid.Server != types.HiddenUserServer {
		return jid
	}
	pn, err := s.client.Store.LIDs.GetPNForLID(ctx, jid)
	if err != nil || pn.IsEmpty() {
		return jid
	}
	return pn.ToNonAD()
}

func (s *Service) displayName(ctx context.Context, jid types.JID, fallback string) string {
	if fallback != "" {
		return fallback
	}
	contact, err := s.client.Store.Contacts.GetContact(ctx, jid)
	if err == nil {
		for _, name := range []string{contact.FullName, contact.PushName, contact.FirstName} {
			if name != "" {
				return name
			}
		}
	}
	return jid.User
}

func (s *Service) isBot(jid types.JID) bool {
	if jid.Server == types.BotServer {
		return true
	}
	own := s.client.Store.ID
	return own != nil && own.User == jid.User
}

// eventHandler handles incoming WhatsApp events
func (s *Service) eventHandler(evt interface{}) {
	if evt == nil {
		return
	}
	switch evt := evt.(type) {
	case *events.Message:
		s.handleMessage(evt)
	case *events.Connected:
		s.log.Info().Msg("Connected to WhatsApp")
	case *events.Disconnected:
		s.log.Info().Msg("Disconnected from WhatsApp")
	case *events.LoggedOut:
		s.log.Warn().Msg("Logged out from WhatsApp")
	}
}

// handleMessage converts a message event and passes it to the registered handler
func (s *Service) handleMessage(msg *events.Message) {
	// Skip messages from self
	if msg.Info.IsFromMe || msg.Message == nil {
		return
	}

	ctx := context.Background()
	sender := s.userJID(ctx, msg.Info.Sender).String()

	if reaction := msg.Message.GetReactionMessage(); reaction != nil {
		if s.reactionHandler == nil {
			return
		}
		err := s.reactionHandler(ctx, models.Reaction{
			ChatID:          msg.Info.Chat.String(),
			SenderID:        sender,
			TargetMessageID: reaction.GetKey().GetID(),
			Emoji:           reaction.GetText(),
		})
		if err != nil {
			s.log.Error().Err(err).Str("sender", sender).Msg("Error handling reaction")
		}
		return
	}

	text, mentions := messageText(msg.Message)
	if text == "" {
		return
	}

	if s.messageHandler == nil {
		s.log.Info().Str("sender", sender).Str("message", text).Msg("Received message")
		return
	}

	resolved := make([]string, 0, len(mentions))
	for _, m := range mentions {
		if jid, err := types.ParseJID(m); err == nil {
			resolved = append(resolved, s.userJID(ctx, jid).String())
		}
	}

	err := s.messageHandler(ctx, models.IncomingMessage{
		ChatID:     msg.Info.Chat.String(),
		SenderID:   sender,
		SenderName: msg.Info.PushName,
		MessageID:  msg.Info.ID,
		Text:       text,
		IsGroup:    msg.Info.IsGroup,
		Mentions:   resolved,
	})
	if err != nil {
		s.log.Error().Err(err).Str("sender", sender).Msg("Error handling message")
	}
}

func messageText(m *waE2E.Message) (string, []string) {
	if text := m.GetConversation(); text != "" {
		return text, nil
	}
	ext := m.GetExtendedTextMessage()
	return ext.GetText(), ext.GetContextInfo().GetMentionedJID()
}

// SetMessageHandler sets the handler for incoming text messages
func (s *Service) SetMessageHandler(handler MessageHandler) {
	s.messageHandler = handler
}

// SetReactionHandler sets the handler for incoming reactions
func (s *Service) SetReactionHandler(handler ReactionHandler) {
	s.reactionHandler = handler
}
