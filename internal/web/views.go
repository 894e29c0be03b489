package web

import (
	"context"

	"github.com/UkralStul/yatube/internal/dataloader"
	"github.com/UkralStul/yatube/internal/domain"
	"github.com/UkralStul/yatube/internal/feed"
	"github.com/UkralStul/yatube/internal/paging"
)

// PostView - пост вместе с автором и группой для шаблонов.
type PostView struct {
	*domain.Post
	Author *domain.User
	Group  *domain.Group
}

// CommentView - комментарий вместе с автором.
type CommentView struct {
	*domain.Comment
	Author *domain.User
}

// formData - значения полей формы поста для повторного показа.
type formData struct {
	Text  string
	Group string
}

// postViews подгружает авторов и группы постов через дата-лоадеры.
func postViews(ctx context.Context, posts []*domain.Post) ([]PostView, error) {
	userIDs := make([]uint64, 0, len(posts))
	var groupIDs []uint64
	for _, p := range posts {
		userIDs = append(userIDs, p.AuthorID)
		if p.GroupID != nil {
			groupIDs = append(groupIDs, *p.GroupID)
		}
	}

	users, err := dataloader.Users(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	groups, err := dataloader.Groups(ctx, groupIDs)
	if err != nil {
		return nil, err
	}

	views := make([]PostView, len(posts))
	for i, p := range posts {
		views[i] = PostView{Post: p, Author: users[p.AuthorID]}
		if p.GroupID != nil {
			views[i].Group = groups[*p.GroupID]
		}
	}
	return views, nil
}

// pageViews возвращает ту же страницу, но с PostView вместо постов.
func pageViews(ctx context.Context, page *feed.PostPage) (*paging.Page[PostView], error) {
	views, err := postViews(ctx, page.Items)
	if err != nil {
		return nil, err
	}
	return &paging.Page[PostView]{
		Items:    views,
		Number:   page.Number,
		PerPage:  page.PerPage,
		Count:    page.Count,
		NumPages: page.NumPages,
	}, nil
}

func commentViews(ctx context.Context, comments []*domain.Comment) ([]CommentView, error) {
	ids := make([]uint64, len(comments))
	for i, c := range comments {
		ids[i] = c.AuthorID
	}
	users, err := dataloader.Users(ctx, ids)
	if err != nil {
		return nil, err
	}
	views := make([]CommentView, len(comments))
	for i, c := range comments {
		views[i] = CommentView{Comment: c, Author: users[c.AuthorID]}
	}
	return views, nil
}
