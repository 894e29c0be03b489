// Package web - HTML-интерфейс Yatube: маршруты, обработчики и кэш главной страницы.
package web

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/UkralStul/yatube/internal/auth"
	"github.com/UkralStul/yatube/internal/cache"
	"github.com/UkralStul/yatube/internal/dataloader"
	"github.com/UkralStul/yatube/internal/domain"
	"github.com/UkralStul/yatube/internal/feed"
	"github.com/UkralStul/yatube/internal/follow"
	"github.com/UkralStul/yatube/internal/logging"
	"github.com/UkralStul/yatube/internal/media"
	"github.com/UkralStul/yatube/internal/posting"
	"github.com/UkralStul/yatube/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// Имя представления главной страницы, оно же префикс ключа кэша.
const IndexPageKey = "index_page"

// Deps - зависимости сервера.
type Deps struct {
	Store    storage.Storage
	Cache    cache.Cache
	Media    *media.Store
	Tokens   *auth.Tokens
	Renderer Renderer
	Log      logrus.FieldLogger

	PageSize int
	HomeTTL  time.Duration
	LoginURL string
}

// Server обслуживает HTML-маршруты.
type Server struct {
	store    storage.Storage
	cache    cache.Cache
	media    *media.Store
	tokens   *auth.Tokens
	render   Renderer
	log      logrus.FieldLogger
	homeTTL  time.Duration
	loginURL string

	feed    *feed.Service
	posting *posting.Service
	follow  *follow.Service
}

func New(d Deps) *Server {
	return &Server{
		store:    d.Store,
		cache:    d.Cache,
		media:    d.Media,
		tokens:   d.Tokens,
		render:   d.Renderer,
		log:      d.Log,
		homeTTL:  d.HomeTTL,
		loginURL: d.LoginURL,
		feed:     feed.New(d.Store, d.PageSize),
		posting:  posting.New(d.Store, d.Media, d.Log),
		follow:   follow.New(d.Store, d.Log),
	}
}

// Router собирает все маршруты.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logging.RequestLogger(s.log))
	r.Use(middleware.Recoverer)
	r.Use(auth.Middleware(s.tokens, s.store, s.log))
	r.Use(func(next http.Handler) http.Handler {
		return dataloader.Middleware(s.store, next)
	})

	r.NotFound(s.notFound)
	r.Handle(s.media.BaseURL()+"*", s.media.Handler())

	r.With(s.cachePage(IndexPageKey)).Get("/", s.index)
	r.Get("/group/{slug}/", s.groupPosts)
	r.Get("/profile/{username}/", s.profile)
	r.Get("/posts/{post_id}/", s.postDetail)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireLogin(s.loginURL))

		r.Get("/create/", s.createForm)
		r.Post("/create/", s.createPost)
		r.Get("/posts/{post_id}/edit/", s.editForm)
		r.Post("/posts/{post_id}/edit/", s.editPost)
		r.Post("/posts/{post_id}/comment", s.addComment)
		r.Get("/follow/", s.followIndex)
		r.Get("/profile/{username}/follow/", s.profileFollow)
		r.Get("/profile/{username}/unfollow/", s.profileUnfollow)
	})
	return r
}

// cachePage отдает успешные GET-ответы из кэша. Ключ - имя представления и номер
// страницы, в который разрешится параметр page: "/", "?page=1" и "?page=abc" делят
// одну запись, а все номера за пределами ленты - запись последней страницы.
func (s *Server) cachePage(view string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if s.homeTTL <= 0 || r.Method != http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			number, err := s.feed.HomePageNumber(ctx, pageParam(r))
			if err != nil {
				s.log.WithError(err).Warn("page cache bypassed")
				next.ServeHTTP(w, r)
				return
			}
			key := cache.Key(view, strconv.Itoa(number))

			cached, err := s.cache.Get(ctx, key)
			if err != nil {
				s.log.WithError(err).WithField("key", key).Warn("page cache read failed")
			}
			if cached != nil {
				w.Header().Set("Content-Type", cached.ContentType)
				_, _ = w.Write(cached.Body)
				return
			}

			var body bytes.Buffer
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			ww.Tee(&body)
			next.ServeHTTP(ww, r)

			if ww.Status() != http.StatusOK {
				return
			}
			page := &cache.Page{ContentType: ww.Header().Get("Content-Type"), Body: body.Bytes()}
			if err := s.cache.Set(ctx, key, page, s.homeTTL); err != nil {
				s.log.WithError(err).WithField("key", key).Warn("page cache write failed")
			}
		})
	}
}

// renderPage рендерит в буфер, чтобы ошибка шаблона не оставила половину страницы.
func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, status int, name string, data map[string]any) {
	var buf bytes.Buffer
	if err := s.render.Render(&buf, name, data); err != nil {
		s.serverError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, http.StatusNotFound, "core/404.html", s.withViewer(r, map[string]any{
		"path": r.URL.Path,
	}))
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	s.log.WithError(err).WithFields(logrus.Fields{
		"path":       r.URL.Path,
		"request_id": middleware.GetReqID(r.Context()),
	}).Error("request failed")
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// fail переводит ошибку сервиса в HTTP-ответ.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		s.notFound(w, r)
	case errors.Is(err, domain.ErrLoginRequired):
		http.Redirect(w, r, auth.LoginURL(s.loginURL, r), http.StatusFound)
	default:
		s.serverError(w, r, err)
	}
}
