package models

// Member is one entry of a group roster
type Member struct {
	ID          string
	DisplayName string
	IsBot       bool
	IsAdmin     bool
}

// IncomingMessage is a text message received from the chat platform
type IncomingMessage struct {
	ChatID     string
	SenderID   string
	SenderName string
	MessageID  string
	Text       string
	IsGroup    bool
	Mentions   []string
}

// Reaction is a reaction added to a message. An empty Emoji means the
// reaction was removed.
type Reaction struct {
	ChatID          string
	SenderID        string
	TargetMessageID string
	Emoji           string
}
