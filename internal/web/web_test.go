package web

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/UkralStul/yatube/internal/auth"
	"github.com/UkralStul/yatube/internal/cache"
	"github.com/UkralStul/yatube/internal/domain"
	"github.com/UkralStul/yatube/internal/media"
	"github.com/UkralStul/yatube/internal/storage"
	"github.com/UkralStul/yatube/internal/storage/inmemory"
	"github.com/UkralStul/yatube/internal/storage/storagetest"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var smallGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x02, 0x00,
	0x01, 0x00, 0x80, 0x00, 0x00, 0x00, 0x00, 0x00,
	0xFF, 0xFF, 0xFF, 0x21, 0xF9, 0x04, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x2C, 0x00, 0x00, 0x00, 0x00,
	0x02, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02, 0x0C,
	0x0A, 0x00, 0x3B,
}

const loginURL = "/auth/login/"

type testEnv struct {
	handler http.Handler
	store   *inmemory.Store
	cache   *cache.Memory
	media   *media.Store
	tokens  *auth.Tokens
	f       storagetest.Fixture
	post    *domain.Post
}

func newTestEnv(t *testing.T, homeTTL time.Duration) *testEnv {
	t.Helper()
	store := inmemory.New()
	f := storagetest.Seed(t, store)
	post, err := store.CreatePost(context.Background(), &domain.Post{
		Text:     "Тестовый пост автора",
		AuthorID: f.Author.ID,
		GroupID:  &f.Group.ID,
	})
	require.NoError(t, err)

	pages, err := cache.NewMemory(16)
	require.NoError(t, err)
	m := media.New(afero.NewMemMapFs(), "/media/", 1<<20)
	templates, err := NewTemplates(m.URL)
	require.NoError(t, err)
	log, _ := test.NewNullLogger()
	tokens := auth.NewTokens("test-secret", time.Hour)

	srv := New(Deps{
		Store:    store,
		Cache:    pages,
		Media:    m,
		Tokens:   tokens,
		Renderer: templates,
		Log:      log,
		PageSize: 10,
		HomeTTL:  homeTTL,
		LoginURL: loginURL,
	})
	return &testEnv{handler: srv.Router(), store: store, cache: pages, media: m, tokens: tokens, f: f, post: post}
}

// do выполняет запрос от имени user (nil - аноним).
func (e *testEnv) do(t *testing.T, user *domain.User, method, target string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body != nil {
		r = httptest.NewRequest(method, target, body)
		r.Header.Set("Content-Type", contentType)
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	if user != nil {
		token, err := e.tokens.Issue(user.Username)
		require.NoError(t, err)
		r.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token})
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, r)
	return w
}

func (e *testEnv) get(t *testing.T, user *domain.User, target string) *httptest.ResponseRecorder {
	return e.do(t, user, http.MethodGet, target, nil, "")
}

func (e *testEnv) postForm(t *testing.T, user *domain.User, target string, values url.Values) *httptest.ResponseRecorder {
	return e.do(t, user, http.MethodPost, target, bytes.NewBufferString(values.Encode()), "application/x-www-form-urlencoded")
}

func multipartBody(t *testing.T, fields map[string]string, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("image", filename)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestRouter_PublicPages(t *testing.T) {
	e := newTestEnv(t, 0)

	tests := []struct {
		path   string
		status int
	}{
		{"/", http.StatusOK},
		{"/group/test-slug/", http.StatusOK},
		{"/profile/author/", http.StatusOK},
		{fmt.Sprintf("/posts/%d/", e.post.ID), http.StatusOK},
		{"/unexisting_page/", http.StatusNotFound},
		{"/group/nope/", http.StatusNotFound},
		{"/profile/nobody/", http.StatusNotFound},
		{"/posts/999/", http.StatusNotFound},
		{"/posts/abc/", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := e.get(t, nil, tt.path)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
		})
	}

	w := e.get(t, nil, "/unexisting_page/")
	assert.Contains(t, w.Body.String(), "Custom 404")
}

func TestRouter_PagesShowPost(t *testing.T) {
	e := newTestEnv(t, 0)

	for _, path := range []string{"/", "/group/test-slug/", "/profile/author/", fmt.Sprintf("/posts/%d/", e.post.ID)} {
		body := e.get(t, nil, path).Body.String()
		assert.Contains(t, body, "Тестовый пост автора", path)
		assert.Contains(t, body, "Лев Толстой", path)
	}
	detail := e.get(t, nil, fmt.Sprintf("/posts/%d/", e.post.ID)).Body.String()
	assert.Contains(t, detail, "Всего постов автора: 1")
	assert.Contains(t, detail, "/group/test-slug/")
}

func TestRouter_LoginRequired(t *testing.T) {
	e := newTestEnv(t, 0)
	editURL := fmt.Sprintf("/posts/%d/edit/", e.post.ID)
	commentURL := fmt.Sprintf("/posts/%d/comment", e.post.ID)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/create/"},
		{http.MethodPost, "/create/"},
		{http.MethodGet, editURL},
		{http.MethodPost, editURL},
		{http.MethodPost, commentURL},
		{http.MethodGet, "/follow/"},
		{http.MethodGet, "/profile/author/follow/"},
		{http.MethodGet, "/profile/author/unfollow/"},
		// Аноним уходит на вход раньше, чем выясняется, что поста нет.
		{http.MethodGet, "/posts/999/edit/"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := e.do(t, nil, tt.method, tt.path, nil, "")
			assert.Equal(t, http.StatusFound, w.Code)
			assert.Equal(t, loginURL+"?next="+tt.path, w.Header().Get("Location"))
		})
	}
}

func TestRouter_CreatePost(t *testing.T) {
	e := newTestEnv(t, 0)
	ctx := context.Background()

	w := e.get(t, e.f.Author, "/create/")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Тестовая группа")

	body, ct := multipartBody(t, map[string]string{
		"text":  "Пост с картинкой",
		"group": fmt.Sprint(e.f.Group.ID),
	}, "small.gif", smallGIF)
	w = e.do(t, e.f.Author, http.MethodPost, "/create/", body, ct)
	require.Equal(t, http.StatusFound, w.Code, w.Body.String())
	assert.Equal(t, "/profile/author/", w.Header().Get("Location"))

	posts, err := e.store.ListPosts(ctx, storage.PostFilter{}, 10, 0)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	created := posts[0]
	assert.Equal(t, "Пост с картинкой", created.Text)
	assert.Equal(t, e.f.Author.ID, created.AuthorID)
	require.NotNil(t, created.GroupID)
	assert.Equal(t, e.f.Group.ID, *created.GroupID)
	require.NotEmpty(t, created.Image)

	img := e.get(t, nil, e.media.URL(created.Image))
	assert.Equal(t, http.StatusOK, img.Code)
	assert.Equal(t, smallGIF, img.Body.Bytes())
}

func TestRouter_CreatePost_Invalid(t *testing.T) {
	e := newTestEnv(t, 0)

	w := e.postForm(t, e.f.Author, "/create/", url.Values{"text": {""}, "group": {"999"}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "This field is required.")
	assert.Contains(t, w.Body.String(), "That choice is not one of the available choices.")

	n, err := e.store.CountPosts(context.Background(), storage.PostFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRouter_CreatePost_ImageTooLarge(t *testing.T) {
	e := newTestEnv(t, 0)
	limit := int(e.media.MaxBytes())

	oversized := func(size int) []byte {
		data := make([]byte, size)
		copy(data, smallGIF)
		return data
	}
	tests := []struct {
		name string
		data []byte
	}{
		{"file over limit", oversized(limit + limit/2)},
		{"body over limit", oversized(3 * limit)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, ct := multipartBody(t, map[string]string{"text": "Пост с огромной картинкой"}, "big.gif", tt.data)
			w := e.do(t, e.f.Author, http.MethodPost, "/create/", body, ct)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Body.String(), "The submitted file is too large.")

			n, err := e.store.CountPosts(context.Background(), storage.PostFilter{})
			require.NoError(t, err)
			assert.Equal(t, 1, n)
		})
	}

	editURL := fmt.Sprintf("/posts/%d/edit/", e.post.ID)
	body, ct := multipartBody(t, map[string]string{"text": "Новый текст"}, "big.gif", oversized(3*limit))
	w := e.do(t, e.f.Author, http.MethodPost, editURL, body, ct)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "The submitted file is too large.")
	stored, err := e.store.GetPostByID(context.Background(), e.post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Тестовый пост автора", stored.Text)
}

// Автор поста всегда текущий пользователь, поле author в форме игнорируется.
func TestRouter_CreatePost_IgnoresAuthorField(t *testing.T) {
	e := newTestEnv(t, 0)

	w := e.postForm(t, e.f.Another, "/create/", url.Values{
		"text":   {"Чужими руками"},
		"author": {fmt.Sprint(e.f.Author.ID)},
	})
	require.Equal(t, http.StatusFound, w.Code, w.Body.String())
	assert.Equal(t, "/profile/another/", w.Header().Get("Location"))

	posts, err := e.store.ListPosts(context.Background(), storage.PostFilter{AuthorID: &e.f.Another.ID}, 10, 0)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "Чужими руками", posts[0].Text)
	assert.Equal(t, e.f.Another.ID, posts[0].AuthorID)
}

func TestRouter_EditPost(t *testing.T) {
	e := newTestEnv(t, 0)
	ctx := context.Background()
	editURL := fmt.Sprintf("/posts/%d/edit/", e.post.ID)
	detailURL := fmt.Sprintf("/posts/%d/", e.post.ID)

	w := e.get(t, e.f.Author, editURL)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Тестовый пост автора")
	assert.Contains(t, w.Body.String(), "Редактировать пост")

	// Чужой пост нельзя ни открыть на редактирование, ни изменить.
	w = e.get(t, e.f.Another, editURL)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, detailURL, w.Header().Get("Location"))

	w = e.postForm(t, e.f.Another, editURL, url.Values{"text": {"Взлом"}})
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, detailURL, w.Header().Get("Location"))
	stored, err := e.store.GetPostByID(ctx, e.post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Тестовый пост автора", stored.Text)

	w = e.postForm(t, e.f.Author, editURL, url.Values{"text": {"Исправленный текст"}})
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, detailURL, w.Header().Get("Location"))
	stored, err = e.store.GetPostByID(ctx, e.post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Исправленный текст", stored.Text)
	assert.Nil(t, stored.GroupID)
	assert.Equal(t, e.post.AuthorID, stored.AuthorID)

	w = e.postForm(t, e.f.Author, editURL, url.Values{"text": {""}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "This field is required.")

	w = e.get(t, e.f.Author, "/posts/999/edit/")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_AddComment(t *testing.T) {
	e := newTestEnv(t, 0)
	ctx := context.Background()
	commentURL := fmt.Sprintf("/posts/%d/comment", e.post.ID)
	detailURL := fmt.Sprintf("/posts/%d/", e.post.ID)

	w := e.postForm(t, e.f.Another, commentURL, url.Values{"text": {"Отличный пост"}})
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, detailURL, w.Header().Get("Location"))

	comments, err := e.store.GetCommentsByPostID(ctx, e.post.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, e.f.Another.ID, comments[0].AuthorID)
	assert.Contains(t, e.get(t, nil, detailURL).Body.String(), "Отличный пост")

	// Пустой комментарий тоже возвращает на пост, но не сохраняется.
	w = e.postForm(t, e.f.Another, commentURL, url.Values{"text": {""}})
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, detailURL, w.Header().Get("Location"))
	comments, err = e.store.GetCommentsByPostID(ctx, e.post.ID)
	require.NoError(t, err)
	assert.Len(t, comments, 1)

	w = e.postForm(t, e.f.Another, "/posts/999/comment", url.Values{"text": {"в пустоту"}})
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Поля author и post из формы не подменяют автора и пост из адреса.
	other, err := e.store.CreatePost(ctx, &domain.Post{Text: "Другой пост", AuthorID: e.f.Author.ID})
	require.NoError(t, err)
	w = e.postForm(t, e.f.Another, commentURL, url.Values{
		"text":   {"Подмена полей"},
		"author": {fmt.Sprint(e.f.Author.ID)},
		"post":   {fmt.Sprint(other.ID)},
	})
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, detailURL, w.Header().Get("Location"))

	comments, err = e.store.GetCommentsByPostID(ctx, e.post.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	spoofed := comments[1]
	assert.Equal(t, "Подмена полей", spoofed.Text)
	assert.Equal(t, e.f.Another.ID, spoofed.AuthorID)
	assert.Equal(t, e.post.ID, spoofed.PostID)

	onOther, err := e.store.GetCommentsByPostID(ctx, other.ID)
	require.NoError(t, err)
	assert.Empty(t, onOther)
}

func TestRouter_IndexCache(t *testing.T) {
	e := newTestEnv(t, 20*time.Second)
	ctx := context.Background()

	first := e.get(t, nil, "/")
	require.Equal(t, http.StatusOK, first.Code)
	assert.Contains(t, first.Body.String(), "Тестовый пост автора")

	require.NoError(t, e.store.DeletePost(ctx, e.post.ID))

	cached := e.get(t, nil, "/")
	assert.Equal(t, first.Body.String(), cached.Body.String())
	assert.Equal(t, "text/html; charset=utf-8", cached.Header().Get("Content-Type"))

	require.NoError(t, e.cache.Clear(ctx))
	fresh := e.get(t, nil, "/")
	assert.NotContains(t, fresh.Body.String(), "Тестовый пост автора")
}

func TestRouter_IndexCacheKeyUsesResolvedPage(t *testing.T) {
	e := newTestEnv(t, 20*time.Second)
	ctx := context.Background()

	first := e.get(t, nil, "/?page=abc")
	require.Equal(t, http.StatusOK, first.Code)

	cached, err := e.cache.Get(ctx, cache.Key(IndexPageKey, "1"))
	require.NoError(t, err)
	require.NotNil(t, cached)
	raw, err := e.cache.Get(ctx, cache.Key(IndexPageKey, "abc"))
	require.NoError(t, err)
	assert.Nil(t, raw)

	require.NoError(t, e.store.DeletePost(ctx, e.post.ID))

	// Все варианты первой страницы и номера вне ленты попадают в одну запись.
	for _, path := range []string{"/", "/?page=1", "/?page=01", "/?page=+1", "/?page=abd", "/?page=0", "/?page=999"} {
		w := e.get(t, nil, path)
		require.Equal(t, http.StatusOK, w.Code, path)
		assert.Equal(t, first.Body.String(), w.Body.String(), path)
	}
}

func TestRouter_Paginator(t *testing.T) {
	e := newTestEnv(t, 20*time.Second)
	ctx := context.Background()
	for i := 0; i < 12; i++ {
		_, err := e.store.CreatePost(ctx, &domain.Post{
			Text:     fmt.Sprintf("Пост номер %d", i),
			AuthorID: e.f.Author.ID,
			GroupID:  &e.f.Group.ID,
		})
		require.NoError(t, err)
	}

	tests := []struct {
		path  string
		count int
	}{
		{"/", 10},
		{"/?page=2", 3},
		{"/?page=100", 3},
		{"/?page=abc", 10},
		{"/group/test-slug/", 10},
		{"/group/test-slug/?page=2", 3},
		{"/profile/author/?page=2", 3},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := e.get(t, nil, tt.path)
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.count, strings.Count(w.Body.String(), "<article>"))
		})
	}
}

func TestRouter_Follow(t *testing.T) {
	e := newTestEnv(t, 0)
	ctx := context.Background()
	third, err := e.store.CreateUser(ctx, &domain.User{Username: "third"})
	require.NoError(t, err)

	w := e.get(t, e.f.Another, "/profile/author/follow/")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/profile/author/", w.Header().Get("Location"))
	assert.Contains(t, e.get(t, e.f.Another, "/profile/author/").Body.String(), "Отписаться")

	// Повторная подписка и подписка на себя ничего не ломают.
	assert.Equal(t, http.StatusFound, e.get(t, e.f.Another, "/profile/author/follow/").Code)
	assert.Equal(t, http.StatusFound, e.get(t, e.f.Author, "/profile/author/follow/").Code)
	self, err := e.store.FollowExists(ctx, e.f.Author.ID, e.f.Author.ID)
	require.NoError(t, err)
	assert.False(t, self)

	assert.Contains(t, e.get(t, e.f.Another, "/follow/").Body.String(), "Тестовый пост автора")
	assert.NotContains(t, e.get(t, third, "/follow/").Body.String(), "Тестовый пост автора")

	w = e.get(t, e.f.Another, "/profile/author/unfollow/")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.NotContains(t, e.get(t, e.f.Another, "/follow/").Body.String(), "Тестовый пост автора")

	w = e.get(t, e.f.Another, "/profile/author/unfollow/")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = e.get(t, e.f.Another, "/profile/nobody/follow/")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_BearerToken(t *testing.T) {
	e := newTestEnv(t, 0)
	token, err := e.tokens.Issue(e.f.Author.Username)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/create/", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)
}
