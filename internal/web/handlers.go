package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/UkralStul/yatube/internal/auth"
	"github.com/UkralStul/yatube/internal/domain"
	"github.com/UkralStul/yatube/internal/forms"
	"github.com/UkralStul/yatube/internal/media"
	"github.com/UkralStul/yatube/internal/posting"
	"github.com/UkralStul/yatube/internal/storage"

	"github.com/go-chi/chi/v5"
)

const (
	maxFormMemory = 32 << 20
	// formOverhead - запас на текстовые поля и разметку multipart сверх картинки.
	formOverhead = 1 << 20
)

// withViewer добавляет в контекст шаблона текущего пользователя.
func (s *Server) withViewer(r *http.Request, data map[string]any) map[string]any {
	data["viewer"] = auth.ActorFrom(r.Context())
	data["login_url"] = s.loginURL
	return data
}

func postURL(id uint64) string {
	return fmt.Sprintf("/posts/%d/", id)
}

func profileURL(username string) string {
	return "/profile/" + url.PathEscape(username) + "/"
}

// postID разбирает {post_id}. Неразобранный id - это 404, а не 400.
func postID(r *http.Request) (uint64, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, "post_id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("post id %q: %w", chi.URLParam(r, "post_id"), storage.ErrNotFound)
	}
	return id, nil
}

func pageParam(r *http.Request) string {
	return r.URL.Query().Get("page")
}

// === Feeds ===

// index не кладет в контекст пользователя: страница кэшируется для всех.
func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	page, err := s.feed.Home(r.Context(), pageParam(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	views, err := pageViews(r.Context(), page)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.renderPage(w, r, http.StatusOK, "posts/index.html", map[string]any{"page_obj": views})
}

func (s *Server) groupPosts(w http.ResponseWriter, r *http.Request) {
	group, err := s.feed.Group(r.Context(), chi.URLParam(r, "slug"), pageParam(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	views, err := pageViews(r.Context(), group.Page)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.renderPage(w, r, http.StatusOK, "posts/group_list.html", s.withViewer(r, map[string]any{
		"group":    group.Group,
		"page_obj": views,
	}))
}

func (s *Server) profile(w http.ResponseWriter, r *http.Request) {
	viewer := auth.ActorFrom(r.Context())
	profile, err := s.feed.Profile(r.Context(), viewer, chi.URLParam(r, "username"), pageParam(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	views, err := pageViews(r.Context(), profile.Page)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.renderPage(w, r, http.StatusOK, "posts/profile.html", s.withViewer(r, map[string]any{
		"author":     profile.Author,
		"page_obj":   views,
		"following":  profile.Following,
		"can_follow": viewer.IsAuthenticated() && !viewer.Is(profile.Author.ID),
	}))
}

func (s *Server) followIndex(w http.ResponseWriter, r *http.Request) {
	page, err := s.feed.Following(r.Context(), auth.ActorFrom(r.Context()), pageParam(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	views, err := pageViews(r.Context(), page)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.renderPage(w, r, http.StatusOK, "posts/follow.html", s.withViewer(r, map[string]any{"page_obj": views}))
}

// === Post Methods ===

func (s *Server) postDetail(w http.ResponseWriter, r *http.Request) {
	id, err := postID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	detail, err := s.feed.Post(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	postView, err := postViews(r.Context(), []*domain.Post{detail.Post})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	comments, err := commentViews(r.Context(), detail.Comments)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.renderPage(w, r, http.StatusOK, "posts/post_detail.html", s.withViewer(r, map[string]any{
		"post":        postView[0],
		"comments":    comments,
		"posts_count": detail.AuthorPostsCount,
		"can_edit":    posting.CanEdit(auth.ActorFrom(r.Context()), detail.Post),
		"form":        formData{},
	}))
}

// errUploadTooLarge - тело запроса с картинкой превысило лимит media.
var errUploadTooLarge = errors.New("upload is too large")

// postInput читает форму поста вместе с файлом картинки. Тело ограничено размером
// картинки плюс formOverhead, сама картинка читается не дальше лимита и одного байта.
func (s *Server) postInput(w http.ResponseWriter, r *http.Request) (posting.PostInput, error) {
	maxBytes := s.media.MaxBytes()
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+formOverhead)
	}
	if err := r.ParseMultipartForm(maxFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return posting.PostInput{}, errUploadTooLarge
		}
		return posting.PostInput{}, fmt.Errorf("failed to parse form: %w", err)
	}
	in := posting.PostInput{
		Text:       r.FormValue("text"),
		Group:      r.FormValue("group"),
		ClearImage: r.FormValue("image_clear") != "",
	}

	file, header, err := r.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		return in, nil
	case err != nil:
		return in, fmt.Errorf("failed to read image: %w", err)
	}
	defer file.Close()

	var src io.Reader = file
	if maxBytes > 0 {
		src = io.LimitReader(file, maxBytes+1)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return in, fmt.Errorf("failed to read image: %w", err)
	}
	in.Image = &media.Upload{Filename: header.Filename, Data: data}
	return in, nil
}

// tooLargeErrors - ошибки формы, когда тело запроса оборвано по лимиту.
func tooLargeErrors() forms.Errors {
	errs := forms.Errors{}
	errs.Add(posting.FieldImage, posting.ImageError(media.ErrTooLarge))
	return errs
}

func (s *Server) renderPostForm(w http.ResponseWriter, r *http.Request, data map[string]any) {
	groups, err := s.store.ListGroups(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	data["groups"] = groups
	if _, ok := data["errors"]; !ok {
		data["errors"] = forms.Errors{}
	}
	s.renderPage(w, r, http.StatusOK, "posts/create_post.html", s.withViewer(r, data))
}

func (s *Server) createForm(w http.ResponseWriter, r *http.Request) {
	s.renderPostForm(w, r, map[string]any{"form": formData{}, "is_edit": false})
}

func (s *Server) createPost(w http.ResponseWriter, r *http.Request) {
	actor := auth.ActorFrom(r.Context())
	in, err := s.postInput(w, r)
	if errors.Is(err, errUploadTooLarge) {
		s.renderPostForm(w, r, map[string]any{
			"form":    formData{},
			"errors":  tooLargeErrors(),
			"is_edit": false,
		})
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	_, errs, err := s.posting.CreatePost(r.Context(), actor, in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if errs.Any() {
		s.renderPostForm(w, r, map[string]any{
			"form":    formData{Text: in.Text, Group: in.Group},
			"errors":  errs,
			"is_edit": false,
		})
		return
	}
	http.Redirect(w, r, profileURL(actor.User().Username), http.StatusFound)
}

func groupValue(post *domain.Post) string {
	if post.GroupID == nil {
		return ""
	}
	return strconv.FormatUint(*post.GroupID, 10)
}

func (s *Server) editForm(w http.ResponseWriter, r *http.Request) {
	id, err := postID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	post, err := s.posting.EditablePost(r.Context(), auth.ActorFrom(r.Context()), id)
	if errors.Is(err, posting.ErrNotAuthor) {
		http.Redirect(w, r, postURL(id), http.StatusFound)
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.renderPostForm(w, r, map[string]any{
		"form":    formData{Text: post.Text, Group: groupValue(post)},
		"post":    post,
		"is_edit": true,
	})
}

func (s *Server) editPost(w http.ResponseWriter, r *http.Request) {
	id, err := postID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	in, err := s.postInput(w, r)
	if errors.Is(err, errUploadTooLarge) {
		post, err := s.posting.EditablePost(r.Context(), auth.ActorFrom(r.Context()), id)
		if errors.Is(err, posting.ErrNotAuthor) {
			http.Redirect(w, r, postURL(id), http.StatusFound)
			return
		}
		if err != nil {
			s.fail(w, r, err)
			return
		}
		s.renderPostForm(w, r, map[string]any{
			"form":    formData{Text: post.Text, Group: groupValue(post)},
			"errors":  tooLargeErrors(),
			"post":    post,
			"is_edit": true,
		})
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	_, errs, err := s.posting.EditPost(r.Context(), auth.ActorFrom(r.Context()), id, in)
	if errors.Is(err, posting.ErrNotAuthor) {
		http.Redirect(w, r, postURL(id), http.StatusFound)
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if errs.Any() {
		post, err := s.store.GetPostByID(r.Context(), id)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		s.renderPostForm(w, r, map[string]any{
			"form":    formData{Text: in.Text, Group: in.Group},
			"errors":  errs,
			"post":    post,
			"is_edit": true,
		})
		return
	}
	http.Redirect(w, r, postURL(id), http.StatusFound)
}

// addComment всегда возвращает на страницу поста, даже если комментарий не прошел проверку.
func (s *Server) addComment(w http.ResponseWriter, r *http.Request) {
	id, err := postID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	_, _, err = s.posting.AddComment(r.Context(), auth.ActorFrom(r.Context()), id, posting.CommentInput{
		Text: r.FormValue("text"),
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	http.Redirect(w, r, postURL(id), http.StatusFound)
}

// === Follow Methods ===

func (s *Server) profileFollow(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if _, err := s.follow.Follow(r.Context(), auth.ActorFrom(r.Context()), username); err != nil {
		s.fail(w, r, err)
		return
	}
	http.Redirect(w, r, profileURL(username), http.StatusFound)
}

func (s *Server) profileUnfollow(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if err := s.follow.Unfollow(r.Context(), auth.ActorFrom(r.Context()), username); err != nil {
		s.fail(w, r, err)
		return
	}
	http.Redirect(w, r, profileURL(username), http.StatusFound)
}
