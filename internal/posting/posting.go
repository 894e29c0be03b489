// Package posting создает и редактирует посты и добавляет комментарии.
//
// Работа с вводом двухфазная: сначала Validate* возвращает проверенные данные
// или ошибки по полям, и только потом выполняется изменение.
package posting

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/UkralStul/yatube/internal/domain"
	"github.com/UkralStul/yatube/internal/forms"
	"github.com/UkralStul/yatube/internal/media"
	"github.com/UkralStul/yatube/internal/storage"

	"github.com/sirupsen/logrus"
)

// ErrNotAuthor - пост пытается изменить не его автор.
var ErrNotAuthor = errors.New("only the author can edit the post")

const (
	FieldText  = "text"
	FieldGroup = "group"
	FieldImage = "image"
)

// PostInput - сырые данные формы поста.
type PostInput struct {
	Text       string
	Group      string // id группы из формы, пустая строка - без группы
	Image      *media.Upload
	ClearImage bool
}

// ValidPost - проверенные данные поста.
type ValidPost struct {
	Text       string
	GroupID    *uint64
	Image      *media.Upload
	ClearImage bool
}

// CommentInput - сырые данные формы комментария.
type CommentInput struct {
	Text string
}

type postForm struct {
	Text  string `form:"text" validate:"required"`
	Group string `form:"group" validate:"omitempty,numeric"`
}

type commentForm struct {
	Text string `form:"text" validate:"required"`
}

// Service выполняет изменения постов и комментариев от имени актора.
type Service struct {
	store storage.Storage
	media *media.Store
	log   logrus.FieldLogger
}

func New(store storage.Storage, media *media.Store, log logrus.FieldLogger) *Service {
	return &Service{store: store, media: media, log: log}
}

// CanEdit сообщает, может ли актор редактировать пост.
func CanEdit(actor domain.Actor, post *domain.Post) bool {
	return actor.Is(post.AuthorID)
}

// ValidatePost проверяет форму поста. Ошибка возвращается только при сбое хранилища.
func (s *Service) ValidatePost(ctx context.Context, in PostInput) (*ValidPost, forms.Errors, error) {
	form := postForm{Text: strings.TrimSpace(in.Text), Group: strings.TrimSpace(in.Group)}
	errs := forms.Validate(&form)

	valid := &ValidPost{Text: form.Text, ClearImage: in.ClearImage}

	if form.Group != "" && !errs.Has(FieldGroup) {
		id, err := strconv.ParseUint(form.Group, 10, 64)
		if err != nil {
			errs.Add(FieldGroup, "Select a valid choice.")
		} else if _, err := s.store.GetGroupByID(ctx, id); err != nil {
			if !errors.Is(err, storage.ErrNotFound) {
				return nil, nil, err
			}
			errs.Add(FieldGroup, "Select a valid choice. That choice is not one of the available choices.")
		} else {
			valid.GroupID = &id
		}
	}

	if in.Image != nil {
		if _, err := s.media.Validate(in.Image); err != nil {
			errs.Add(FieldImage, ImageError(err))
		} else {
			valid.Image = in.Image
		}
	}

	if errs.Any() {
		return nil, errs, nil
	}
	return valid, errs, nil
}

// ImageError - текст ошибки поля image для ошибки из media.
func ImageError(err error) string {
	switch {
	case errors.Is(err, media.ErrEmpty):
		return "The submitted file is empty."
	case errors.Is(err, media.ErrTooLarge):
		return "The submitted file is too large."
	default:
		return "Upload a valid image. The file you uploaded was either not an image or a corrupted image."
	}
}

// ValidateComment проверяет форму комментария.
func ValidateComment(in CommentInput) (string, forms.Errors) {
	form := commentForm{Text: strings.TrimSpace(in.Text)}
	return form.Text, forms.Validate(&form)
}

// CreatePost создает пост, автором всегда становится актор.
func (s *Service) CreatePost(ctx context.Context, actor domain.Actor, in PostInput) (*domain.Post, forms.Errors, error) {
	if !actor.IsAuthenticated() {
		return nil, nil, domain.ErrLoginRequired
	}
	valid, errs, err := s.ValidatePost(ctx, in)
	if err != nil || errs.Any() {
		return nil, errs, err
	}

	post := &domain.Post{
		Text:     valid.Text,
		AuthorID: actor.User().ID,
		GroupID:  valid.GroupID,
	}
	if valid.Image != nil {
		if post.Image, err = s.media.Save(valid.Image); err != nil {
			return nil, nil, err
		}
	}

	created, err := s.store.CreatePost(ctx, post)
	if err != nil {
		_ = s.media.Delete(post.Image)
		return nil, nil, fmt.Errorf("failed to create post: %w", err)
	}
	s.log.WithFields(logrus.Fields{"post_id": created.ID, "author": actor.User().Username}).Info("post created")
	return created, errs, nil
}

// EditablePost возвращает пост, если актор может его редактировать.
func (s *Service) EditablePost(ctx context.Context, actor domain.Actor, postID uint64) (*domain.Post, error) {
	if !actor.IsAuthenticated() {
		return nil, domain.ErrLoginRequired
	}
	post, err := s.store.GetPostByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !CanEdit(actor, post) {
		return post, ErrNotAuthor
	}
	return post, nil
}

// EditPost меняет текст, группу и картинку поста. id, автор и дата создания не меняются.
func (s *Service) EditPost(ctx context.Context, actor domain.Actor, postID uint64, in PostInput) (*domain.Post, forms.Errors, error) {
	post, err := s.EditablePost(ctx, actor, postID)
	if err != nil {
		return nil, nil, err
	}
	valid, errs, err := s.ValidatePost(ctx, in)
	if err != nil || errs.Any() {
		return nil, errs, err
	}

	oldImage := post.Image
	post.Text = valid.Text
	post.GroupID = valid.GroupID
	switch {
	case valid.Image != nil:
		if post.Image, err = s.media.Save(valid.Image); err != nil {
			return nil, nil, err
		}
	case valid.ClearImage:
		post.Image = ""
	}

	updated, err := s.store.UpdatePost(ctx, post)
	if err != nil {
		if post.Image != oldImage {
			_ = s.media.Delete(post.Image)
		}
		return nil, nil, fmt.Errorf("failed to update post: %w", err)
	}
	if oldImage != "" && oldImage != updated.Image {
		if err := s.media.Delete(oldImage); err != nil {
			s.log.WithError(err).WithField("image", oldImage).Warn("failed to delete replaced image")
		}
	}
	s.log.WithFields(logrus.Fields{"post_id": updated.ID, "author": actor.User().Username}).Info("post updated")
	return updated, errs, nil
}

// AddComment добавляет комментарий к посту postID от имени актора.
// При невалидном вводе комментарий не создается, возвращаются ошибки формы.
func (s *Service) AddComment(ctx context.Context, actor domain.Actor, postID uint64, in CommentInput) (*domain.Comment, forms.Errors, error) {
	if !actor.IsAuthenticated() {
		return nil, nil, domain.ErrLoginRequired
	}
	if _, err := s.store.GetPostByID(ctx, postID); err != nil {
		return nil, nil, err
	}
	text, errs := ValidateComment(in)
	if errs.Any() {
		return nil, errs, nil
	}

	comment, err := s.store.CreateComment(ctx, &domain.Comment{
		PostID:   postID,
		AuthorID: actor.User().ID,
		Text:     text,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to add comment: %w", err)
	}
	return comment, errs, nil
}
