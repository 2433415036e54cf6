// Package api exposes the HTTP surface: the Telegram webhook receiver
// and a health endpoint. In long-poll mode only /health is of any use,
// but the router is mounted either way.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"xcourses_bot/internal/bot"
	"xcourses_bot/internal/common"
	"xcourses_bot/internal/platform/telegram"
)

const secretHeader = "X-Telegram-Bot-Api-Secret-Token"

func NewRouter(dispatcher *bot.Dispatcher, webhookSecret string, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		common.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/telegram/webhook", webhookHandler(dispatcher, webhookSecret, log))

	return r
}

// webhookHandler verifies the shared secret, acknowledges immediately
// and hands the update to the dispatcher in the background. Telegram
// retries non-200 responses, so the only error it ever sees is a bad
// secret.
func webhookHandler(dispatcher *bot.Dispatcher, secret string, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if secret != "" {
			got := r.Header.Get(secretHeader)
			if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
				log.Warn("webhook call with bad secret", zap.String("remote", r.RemoteAddr))
				common.RespondWithError(w, http.StatusForbidden, "forbidden")
				return
			}
		}

		var update telegram.Update
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			log.Warn("undecodable webhook payload", zap.Error(err))
			common.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
			return
		}

		if ev, ok := telegram.ToEvent(update); ok {
			// The request context dies as soon as we respond; the
			// dispatch must outlive it.
			go dispatcher.Dispatch(context.Background(), ev)
		}
		common.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
	}
}
