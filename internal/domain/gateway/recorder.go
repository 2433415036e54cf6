package gateway

import (
	"context"
	"sync"

	"xcourses_bot/internal/domain/model"
)

// Recorder is an in-memory Gateway that captures everything sent
// through it. Tests assert on the recorded traffic; it also backs dry
// runs where no chat platform is configured.
type Recorder struct {
	mu   sync.Mutex
	next int

	Sent   []RecordedMessage
	Edited []RecordedMessage
	Groups []RecordedGroup

	// FailFor simulates unreachable recipients (e.g. a blocked bot).
	FailFor map[int64]error
}

type RecordedMessage struct {
	UserID     int64
	Text       string
	Keyboard   Keyboard
	Menu       Menu
	Attachment *model.Attachment
	Ref        MessageRef
}

type RecordedGroup struct {
	UserID      int64
	Attachments []model.Attachment
}

func NewRecorder() *Recorder {
	return &Recorder{FailFor: make(map[int64]error)}
}

func (r *Recorder) fail(userID int64) error {
	if err, ok := r.FailFor[userID]; ok {
		return err
	}
	return nil
}

func (r *Recorder) Send(_ context.Context, userID int64, text string, kb Keyboard) (MessageRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail(userID); err != nil {
		return MessageRef{}, err
	}
	r.next++
	ref := MessageRef{ChatID: userID, MessageID: r.next}
	r.Sent = append(r.Sent, RecordedMessage{UserID: userID, Text: text, Keyboard: kb, Ref: ref})
	return ref, nil
}

func (r *Recorder) SendMenu(_ context.Context, userID int64, text string, menu Menu) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail(userID); err != nil {
		return err
	}
	r.next++
	r.Sent = append(r.Sent, RecordedMessage{UserID: userID, Text: text, Menu: menu, Ref: MessageRef{ChatID: userID, MessageID: r.next}})
	return nil
}

func (r *Recorder) Edit(_ context.Context, ref MessageRef, text string, kb Keyboard) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail(ref.ChatID); err != nil {
		return err
	}
	r.Edited = append(r.Edited, RecordedMessage{UserID: ref.ChatID, Text: text, Keyboard: kb, Ref: ref})
	return nil
}

func (r *Recorder) EditMarkup(_ context.Context, ref MessageRef, kb Keyboard) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail(ref.ChatID); err != nil {
		return err
	}
	r.Edited = append(r.Edited, RecordedMessage{UserID: ref.ChatID, Keyboard: kb, Ref: ref})
	return nil
}

func (r *Recorder) Answer(_ context.Context, callbackID, text string) error {
	return nil
}

func (r *Recorder) SendMedia(_ context.Context, userID int64, att model.Attachment, caption string, kb Keyboard) (MessageRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail(userID); err != nil {
		return MessageRef{}, err
	}
	r.next++
	a := att
	ref := MessageRef{ChatID: userID, MessageID: r.next}
	r.Sent = append(r.Sent, RecordedMessage{UserID: userID, Text: caption, Keyboard: kb, Attachment: &a, Ref: ref})
	return ref, nil
}

func (r *Recorder) SendMediaGroup(_ context.Context, userID int64, atts []model.Attachment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail(userID); err != nil {
		return err
	}
	r.Groups = append(r.Groups, RecordedGroup{UserID: userID, Attachments: atts})
	return nil
}

// SentTo returns every plain message recorded for one recipient.
func (r *Recorder) SentTo(userID int64) []RecordedMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []RecordedMessage
	for _, m := range r.Sent {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	return out
}
