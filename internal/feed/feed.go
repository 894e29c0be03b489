// Package feed собирает ленты постов: главную, группы, профиля и подписок.
package feed

import (
	"context"
	"fmt"

	"github.com/UkralStul/yatube/internal/domain"
	"github.com/UkralStul/yatube/internal/paging"
	"github.com/UkralStul/yatube/internal/storage"
)

// PostPage - страница постов, новые сверху.
type PostPage = paging.Page[*domain.Post]

// PostSource - выборка постов по фильтру. Каждый вызов заново идет в хранилище.
type PostSource struct {
	store  storage.Storage
	filter storage.PostFilter
}

// Posts возвращает выборку постов по фильтру.
func Posts(store storage.Storage, filter storage.PostFilter) PostSource {
	return PostSource{store: store, filter: filter}
}

func (s PostSource) Count(ctx context.Context) (int, error) {
	return s.store.CountPosts(ctx, s.filter)
}

func (s PostSource) Slice(ctx context.Context, offset, limit int) ([]*domain.Post, error) {
	return s.store.ListPosts(ctx, s.filter, limit, offset)
}

// GroupFeed - лента группы.
type GroupFeed struct {
	Group *domain.Group
	Page  *PostPage
}

// ProfileFeed - лента автора и подписан ли на него смотрящий.
type ProfileFeed struct {
	Author    *domain.User
	Page      *PostPage
	Following bool
}

// PostDetail - пост с комментариями (старые сверху).
type PostDetail struct {
	Post             *domain.Post
	Comments         []*domain.Comment
	AuthorPostsCount int
}

// Service собирает ленты поверх хранилища.
type Service struct {
	store   storage.Storage
	perPage int
}

func New(store storage.Storage, perPage int) *Service {
	return &Service{store: store, perPage: perPage}
}

func (s *Service) page(ctx context.Context, filter storage.PostFilter, rawPage string) (*PostPage, error) {
	return paging.GetPage[*domain.Post](ctx, Posts(s.store, filter), s.perPage, rawPage)
}

// Home - все посты.
func (s *Service) Home(ctx context.Context, rawPage string) (*PostPage, error) {
	return s.page(ctx, storage.PostFilter{}, rawPage)
}

// HomePageNumber - номер страницы главной, который откроется по сырому значению rawPage.
func (s *Service) HomePageNumber(ctx context.Context, rawPage string) (int, error) {
	count, err := s.store.CountPosts(ctx, storage.PostFilter{})
	if err != nil {
		return 0, fmt.Errorf("failed to count posts: %w", err)
	}
	return paging.ResolveNumber(rawPage, paging.NumPages(count, s.perPage)), nil
}

// Group - посты группы со слагом slug.
func (s *Service) Group(ctx context.Context, slug, rawPage string) (*GroupFeed, error) {
	group, err := s.store.GetGroupBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	page, err := s.page(ctx, storage.PostFilter{GroupID: &group.ID}, rawPage)
	if err != nil {
		return nil, fmt.Errorf("group %q feed: %w", slug, err)
	}
	return &GroupFeed{Group: group, Page: page}, nil
}

// Profile - посты автора username. Following всегда false для анонима и для самого автора.
func (s *Service) Profile(ctx context.Context, viewer domain.Actor, username, rawPage string) (*ProfileFeed, error) {
	author, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	page, err := s.page(ctx, storage.PostFilter{AuthorID: &author.ID}, rawPage)
	if err != nil {
		return nil, fmt.Errorf("profile %q feed: %w", username, err)
	}

	following := false
	if viewer.IsAuthenticated() && !viewer.Is(author.ID) {
		following, err = s.store.FollowExists(ctx, viewer.User().ID, author.ID)
		if err != nil {
			return nil, err
		}
	}
	return &ProfileFeed{Author: author, Page: page, Following: following}, nil
}

// Following - посты авторов, на которых подписан viewer.
func (s *Service) Following(ctx context.Context, viewer domain.Actor, rawPage string) (*PostPage, error) {
	if !viewer.IsAuthenticated() {
		return nil, domain.ErrLoginRequired
	}
	followerID := viewer.User().ID
	return s.page(ctx, storage.PostFilter{FollowerID: &followerID}, rawPage)
}

// Post - один пост с комментариями.
func (s *Service) Post(ctx context.Context, id uint64) (*PostDetail, error) {
	post, err := s.store.GetPostByID(ctx, id)
	if err != nil {
		return nil, err
	}
	comments, err := s.store.GetCommentsByPostID(ctx, id)
	if err != nil {
		return nil, err
	}
	count, err := s.store.CountPosts(ctx, storage.PostFilter{AuthorID: &post.AuthorID})
	if err != nil {
		return nil, err
	}
	return &PostDetail{Post: post, Comments: comments, AuthorPostsCount: count}, nil
}
