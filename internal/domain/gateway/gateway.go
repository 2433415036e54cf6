// Package gateway is the messaging transport boundary. The core talks
// to the chat platform only through the Gateway interface and receives
// input only as Events; everything transport-specific lives in the
// adapter that implements them.
package gateway

import (
	"context"

	"xcourses_bot/internal/domain/model"
)

// Button is one inline button. Action carries an encoded model.Action;
// URL buttons leave Action empty.
type Button struct {
	Text   string
	Action string
	URL    string
}

// Keyboard is an inline button grid attached to a single message.
type Keyboard [][]Button

// Menu is a persistent reply keyboard of plain text shortcuts.
type Menu [][]string

// MessageRef identifies a previously sent message for editing.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// Gateway delivers chat-visible output. Implementations must treat an
// unreachable recipient as an ordinary error; callers decide whether
// the failure is fatal (it almost never is).
type Gateway interface {
	Send(ctx context.Context, userID int64, text string, kb Keyboard) (MessageRef, error)
	SendMenu(ctx context.Context, userID int64, text string, menu Menu) error
	Edit(ctx context.Context, ref MessageRef, text string, kb Keyboard) error
	// EditMarkup replaces only the buttons; a nil keyboard strips
	// them. Unlike Edit this works on media messages too.
	EditMarkup(ctx context.Context, ref MessageRef, kb Keyboard) error
	Answer(ctx context.Context, callbackID, text string) error
	SendMedia(ctx context.Context, userID int64, att model.Attachment, caption string, kb Keyboard) (MessageRef, error)
	SendMediaGroup(ctx context.Context, userID int64, atts []model.Attachment) error
}

// Callback is a button press on a previously sent message.
type Callback struct {
	ID        string
	MessageID int
	Data      string
}

// Event is one normalized inbound update. Exactly one of Text,
// Attachment or Callback is the payload; Command is set when Text is a
// slash command.
type Event struct {
	UserID     int64
	MessageID  int
	Text       string
	Command    string
	CommandArg string
	Attachment *model.Attachment
	Callback   *Callback
}
