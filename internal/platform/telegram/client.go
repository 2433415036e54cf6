// Package telegram is the Bot API adapter behind gateway.Gateway. It
// speaks plain JSON over HTTP so the rest of the bot never sees a
// transport type.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"xcourses_bot/internal/domain/gateway"
	"xcourses_bot/internal/domain/model"
)

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) call(ctx context.Context, method string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram %s: marshal: %w", method, err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	defer resp.Body.Close()

	var envelope apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("telegram %s: decode: %w", method, err)
	}
	if !envelope.OK {
		return fmt.Errorf("telegram %s: api error %d: %s", method, envelope.ErrorCode, envelope.Description)
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return fmt.Errorf("telegram %s: decode result: %w", method, err)
		}
	}
	return nil
}

func inlineMarkup(kb gateway.Keyboard) *InlineKeyboardMarkup {
	if len(kb) == 0 {
		return nil
	}
	markup := &InlineKeyboardMarkup{}
	for _, row := range kb {
		var out []InlineKeyboardButton
		for _, b := range row {
			out = append(out, InlineKeyboardButton{Text: b.Text, CallbackData: b.Action, URL: b.URL})
		}
		markup.InlineKeyboard = append(markup.InlineKeyboard, out)
	}
	return markup
}

func (c *Client) Send(ctx context.Context, userID int64, text string, kb gateway.Keyboard) (gateway.MessageRef, error) {
	payload := map[string]any{"chat_id": userID, "text": text}
	if markup := inlineMarkup(kb); markup != nil {
		payload["reply_markup"] = markup
	}
	var msg Message
	if err := c.call(ctx, "sendMessage", payload, &msg); err != nil {
		return gateway.MessageRef{}, err
	}
	return gateway.MessageRef{ChatID: userID, MessageID: msg.MessageID}, nil
}

func (c *Client) SendMenu(ctx context.Context, userID int64, text string, menu gateway.Menu) error {
	markup := ReplyKeyboardMarkup{ResizeKeyboard: true}
	for _, row := range menu {
		var out []KeyboardButton
		for _, label := range row {
			out = append(out, KeyboardButton{Text: label})
		}
		markup.Keyboard = append(markup.Keyboard, out)
	}
	payload := map[string]any{"chat_id": userID, "text": text, "reply_markup": markup}
	return c.call(ctx, "sendMessage", payload, nil)
}

func (c *Client) Edit(ctx context.Context, ref gateway.MessageRef, text string, kb gateway.Keyboard) error {
	payload := map[string]any{
		"chat_id":    ref.ChatID,
		"message_id": ref.MessageID,
		"text":       text,
	}
	if markup := inlineMarkup(kb); markup != nil {
		payload["reply_markup"] = markup
	}
	return c.call(ctx, "editMessageText", payload, nil)
}

func (c *Client) EditMarkup(ctx context.Context, ref gateway.MessageRef, kb gateway.Keyboard) error {
	payload := map[string]any{
		"chat_id":    ref.ChatID,
		"message_id": ref.MessageID,
	}
	if markup := inlineMarkup(kb); markup != nil {
		payload["reply_markup"] = markup
	}
	return c.call(ctx, "editMessageReplyMarkup", payload, nil)
}

func (c *Client) Answer(ctx context.Context, callbackID, text string) error {
	payload := map[string]any{"callback_query_id": callbackID}
	if text != "" {
		payload["text"] = text
	}
	return c.call(ctx, "answerCallbackQuery", payload, nil)
}

func (c *Client) SendMedia(ctx context.Context, userID int64, att model.Attachment, caption string, kb gateway.Keyboard) (gateway.MessageRef, error) {
	method := "sendDocument"
	field := "document"
	if att.Kind == model.AttachmentPhoto {
		method = "sendPhoto"
		field = "photo"
	}
	payload := map[string]any{"chat_id": userID, field: att.FileID}
	if caption != "" {
		payload["caption"] = caption
	}
	if markup := inlineMarkup(kb); markup != nil {
		payload["reply_markup"] = markup
	}
	var msg Message
	if err := c.call(ctx, method, payload, &msg); err != nil {
		return gateway.MessageRef{}, err
	}
	return gateway.MessageRef{ChatID: userID, MessageID: msg.MessageID}, nil
}

func (c *Client) SendMediaGroup(ctx context.Context, userID int64, atts []model.Attachment) error {
	media := make([]InputMedia, 0, len(atts))
	for _, att := range atts {
		kind := "document"
		if att.Kind == model.AttachmentPhoto {
			kind = "photo"
		}
		media = append(media, InputMedia{Type: kind, Media: att.FileID})
	}
	payload := map[string]any{"chat_id": userID, "media": media}
	return c.call(ctx, "sendMediaGroup", payload, nil)
}

// GetUpdates long-polls for new updates starting after offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error) {
	payload := map[string]any{
		"offset":          offset,
		"timeout":         int(timeout.Seconds()),
		"allowed_updates": []string{"message", "callback_query"},
	}
	var updates []Update
	if err := c.call(ctx, "getUpdates", payload, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// SetWebhook registers the public webhook URL; the secret comes back
// on every delivery in X-Telegram-Bot-Api-Secret-Token.
func (c *Client) SetWebhook(ctx context.Context, url, secret string) error {
	payload := map[string]any{
		"url":             url,
		"secret_token":    secret,
		"allowed_updates": []string{"message", "callback_query"},
	}
	return c.call(ctx, "setWebhook", payload, nil)
}

// DeleteWebhook switches the bot back to long polling.
func (c *Client) DeleteWebhook(ctx context.Context) error {
	return c.call(ctx, "deleteWebhook", map[string]any{}, nil)
}

// ToEvent normalizes one update into a gateway.Event. The second
// return is false for update shapes this bot does not handle.
func ToEvent(u Update) (gateway.Event, bool) {
	if u.CallbackQuery != nil {
		cb := u.CallbackQuery
		ev := gateway.Event{
			UserID: cb.From.ID,
			Callback: &gateway.Callback{
				ID:   cb.ID,
				Data: cb.Data,
			},
		}
		if cb.Message != nil {
			ev.Callback.MessageID = cb.Message.MessageID
			ev.MessageID = cb.Message.MessageID
		}
		return ev, true
	}

	if u.Message == nil {
		return gateway.Event{}, false
	}
	msg := u.Message

	ev := gateway.Event{MessageID: msg.MessageID, Text: msg.Text}
	if msg.From != nil {
		ev.UserID = msg.From.ID
	} else {
		ev.UserID = msg.Chat.ID
	}

	switch {
	case len(msg.Photo) > 0:
		// Renditions arrive smallest first; keep only the largest.
		best := msg.Photo[len(msg.Photo)-1]
		ev.Attachment = &model.Attachment{Kind: model.AttachmentPhoto, FileID: best.FileID}
		ev.Text = msg.Caption
	case msg.Document != nil:
		ev.Attachment = &model.Attachment{Kind: model.AttachmentDocument, FileID: msg.Document.FileID}
		ev.Text = msg.Caption
	}

	if strings.HasPrefix(ev.Text, "/") {
		cmd, arg, _ := strings.Cut(ev.Text, " ")
		// Commands in groups carry a @botname suffix.
		cmd, _, _ = strings.Cut(cmd, "@")
		ev.Command = strings.TrimPrefix(cmd, "/")
		ev.CommandArg = strings.TrimSpace(arg)
	}

	if ev.Text == "" && ev.Attachment == nil && ev.Command == "" {
		return gateway.Event{}, false
	}
	return ev, true
}
