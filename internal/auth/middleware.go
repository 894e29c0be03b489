package auth

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/UkralStul/yatube/internal/domain"
	"github.com/UkralStul/yatube/internal/storage"

	"github.com/sirupsen/logrus"
)

// CookieName - cookie с сессионным токеном.
const CookieName = "session"

type ctxKey string

const actorKey = ctxKey("actor")

// WithActor кладет актора в контекст.
func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFrom достает актора из контекста. Если его нет - аноним.
func ActorFrom(ctx context.Context) domain.Actor {
	actor, _ := ctx.Value(actorKey).(domain.Actor)
	return actor
}

// tokenFrom берет токен из cookie или заголовка Authorization: Bearer.
func tokenFrom(r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// Middleware определяет актора запроса. Без токена или с плохим токеном запрос идет анонимно.
func Middleware(tokens *Tokens, store storage.Storage, log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := domain.Anonymous()
			if raw := tokenFrom(r); raw != "" {
				actor = resolve(r.Context(), tokens, store, log, raw)
			}
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

func resolve(ctx context.Context, tokens *Tokens, store storage.Storage, log logrus.FieldLogger, raw string) domain.Actor {
	username, err := tokens.Parse(raw)
	if err != nil {
		log.WithError(err).Debug("token rejected")
		return domain.Anonymous()
	}
	user, err := store.GetUserByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.WithError(err).Error("failed to load session user")
		}
		return domain.Anonymous()
	}
	return domain.Authenticated(user)
}

// LoginURL возвращает адрес входа с параметром next, указывающим на r.
func LoginURL(loginURL string, r *http.Request) string {
	next := strings.ReplaceAll(url.QueryEscape(r.URL.RequestURI()), "%2F", "/")
	return loginURL + "?next=" + next
}

// RequireLogin перенаправляет анонимов на страницу входа.
func RequireLogin(loginURL string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !ActorFrom(r.Context()).IsAuthenticated() {
				http.Redirect(w, r, LoginURL(loginURL, r), http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
