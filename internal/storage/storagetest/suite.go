// Package storagetest содержит общие тесты контракта storage.Storage,
// которые прогоняются для каждой реализации хранилища.
package storagetest

import (
	"context"
	"testing"

	"github.com/UkralStul/yatube/internal/domain"
	"github.com/UkralStul/yatube/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory создает пустое хранилище для одного теста.
type Factory func(t *testing.T) storage.Storage

// Fixture - минимальный набор данных: два пользователя и группа.
type Fixture struct {
	Author  *domain.User
	Another *domain.User
	Group   *domain.Group
}

// Seed создает Fixture в хранилище.
func Seed(t *testing.T, s storage.Storage) Fixture {
	t.Helper()
	ctx := context.Background()

	author, err := s.CreateUser(ctx, &domain.User{Username: "author", FirstName: "Лев", LastName: "Толстой"})
	require.NoError(t, err)
	another, err := s.CreateUser(ctx, &domain.User{Username: "another"})
	require.NoError(t, err)
	group, err := s.CreateGroup(ctx, &domain.Group{Title: "Тестовая группа", Slug: "test-slug", Description: "Описание"})
	require.NoError(t, err)

	return Fixture{Author: author, Another: another, Group: group}
}

// Run прогоняет весь набор тестов.
func Run(t *testing.T, newStore Factory) {
	t.Run("Users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("Groups", func(t *testing.T) { testGroups(t, newStore(t)) })
	t.Run("CreateAndGetPost", func(t *testing.T) { testCreateAndGetPost(t, newStore(t)) })
	t.Run("UpdatePost", func(t *testing.T) { testUpdatePost(t, newStore(t)) })
	t.Run("DeletePost", func(t *testing.T) { testDeletePost(t, newStore(t)) })
	t.Run("ListPostsOrderAndFilters", func(t *testing.T) { testListPosts(t, newStore(t)) })
	t.Run("Comments", func(t *testing.T) { testComments(t, newStore(t)) })
	t.Run("Follows", func(t *testing.T) { testFollows(t, newStore(t)) })
	t.Run("FollowFilter", func(t *testing.T) { testFollowFilter(t, newStore(t)) })
	t.Run("BatchLookups", func(t *testing.T) { testBatchLookups(t, newStore(t)) })
}

func testUsers(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	f := Seed(t, s)

	byName, err := s.GetUserByUsername(ctx, "author")
	require.NoError(t, err)
	assert.Equal(t, f.Author.ID, byName.ID)
	assert.Equal(t, "Лев", byName.FirstName)

	byID, err := s.GetUserByID(ctx, f.Another.ID)
	require.NoError(t, err)
	assert.Equal(t, "another", byID.Username)

	_, err = s.GetUserByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = s.CreateUser(ctx, &domain.User{Username: "author"})
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)
}

func testGroups(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	f := Seed(t, s)

	g, err := s.GetGroupBySlug(ctx, "test-slug")
	require.NoError(t, err)
	assert.Equal(t, f.Group.ID, g.ID)
	assert.Equal(t, "Описание", g.Description)

	_, err = s.GetGroupBySlug(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = s.GetGroupByID(ctx, f.Group.ID+1000)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = s.CreateGroup(ctx, &domain.Group{Title: "Дубль", Slug: "test-slug"})
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)

	_, err = s.CreateGroup(ctx, &domain.Group{Title: "Алфавит", Slug: "abc"})
	require.NoError(t, err)
	groups, err := s.ListGroups(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "Алфавит", groups[0].Title)
}

func testCreateAndGetPost(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	f := Seed(t, s)

	post, err := s.CreatePost(ctx, &domain.Post{Text: "Тестовый текст", AuthorID: f.Author.ID, GroupID: &f.Group.ID, Image: "posts/a.gif"})
	require.NoError(t, err)
	assert.NotZero(t, post.ID)
	assert.False(t, post.CreatedAt.IsZero())

	retrieved, err := s.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, post.Text, retrieved.Text)
	assert.Equal(t, f.Author.ID, retrieved.AuthorID)
	require.NotNil(t, retrieved.GroupID)
	assert.Equal(t, f.Group.ID, *retrieved.GroupID)
	assert.Equal(t, "posts/a.gif", retrieved.Image)

	_, err = s.GetPostByID(ctx, post.ID+1000)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testUpdatePost(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	f := Seed(t, s)

	post, err := s.CreatePost(ctx, &domain.Post{Text: "before", AuthorID: f.Author.ID, GroupID: &f.Group.ID})
	require.NoError(t, err)

	edit := *post
	edit.Text = "after"
	edit.GroupID = nil
	edit.Image = "posts/new.png"
	edit.AuthorID = f.Another.ID

	updated, err := s.UpdatePost(ctx, &edit)
	require.NoError(t, err)
	assert.Equal(t, post.ID, updated.ID)
	assert.Equal(t, "after", updated.Text)
	assert.Nil(t, updated.GroupID)
	assert.Equal(t, "posts/new.png", updated.Image)
	assert.Equal(t, f.Author.ID, updated.AuthorID, "author is immutable")
	assert.True(t, post.CreatedAt.Equal(updated.CreatedAt), "created_at is immutable")

	count, err := s.CountPosts(ctx, storage.PostFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = s.UpdatePost(ctx, &domain.Post{ID: post.ID + 1000, Text: "x"})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testDeletePost(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	f := Seed(t, s)

	post, err := s.CreatePost(ctx, &domain.Post{Text: "to delete", AuthorID: f.Author.ID})
	require.NoError(t, err)
	_, err = s.CreateComment(ctx, &domain.Comment{PostID: post.ID, AuthorID: f.Another.ID, Text: "bye"})
	require.NoError(t, err)

	require.NoError(t, s.DeletePost(ctx, post.ID))

	_, err = s.GetPostByID(ctx, post.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	comments, err := s.GetCommentsByPostID(ctx, post.ID)
	require.NoError(t, err)
	assert.Empty(t, comments)

	assert.ErrorIs(t, s.DeletePost(ctx, post.ID), storage.ErrNotFound)
}

func testListPosts(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	f := Seed(t, s)

	var ids []uint64
	for i := 0; i < 5; i++ {
		p := &domain.Post{Text: "post", AuthorID: f.Author.ID}
		if i%2 == 0 {
			p.GroupID = &f.Group.ID
			p.AuthorID = f.Another.ID
		}
		created, err := s.CreatePost(ctx, p)
		require.NoError(t, err)
		ids = append(ids, created.ID)
	}

	all, err := s.ListPosts(ctx, storage.PostFilter{}, 10, 0)
	require.NoError(t, err)
	require.Len(t, all, 5)
	for i := 1; i < len(all); i++ {
		assert.False(t, all[i].CreatedAt.After(all[i-1].CreatedAt), "posts must be newest first")
	}
	assert.Equal(t, ids[4], all[0].ID)
	assert.Equal(t, ids[0], all[4].ID)

	page, err := s.ListPosts(ctx, storage.PostFilter{}, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[2], page[0].ID)

	tail, err := s.ListPosts(ctx, storage.PostFilter{}, 10, 10)
	require.NoError(t, err)
	assert.Empty(t, tail)

	inGroup, err := s.ListPosts(ctx, storage.PostFilter{GroupID: &f.Group.ID}, 10, 0)
	require.NoError(t, err)
	assert.Len(t, inGroup, 3)
	n, err := s.CountPosts(ctx, storage.PostFilter{GroupID: &f.Group.ID})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	byAuthor, err := s.ListPosts(ctx, storage.PostFilter{AuthorID: &f.Author.ID}, 10, 0)
	require.NoError(t, err)
	assert.Len(t, byAuthor, 2)
	for _, p := range byAuthor {
		assert.Equal(t, f.Author.ID, p.AuthorID)
	}

	both, err := s.CountPosts(ctx, storage.PostFilter{AuthorID: &f.Author.ID, GroupID: &f.Group.ID})
	require.NoError(t, err)
	assert.Zero(t, both)
}

func testComments(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	f := Seed(t, s)

	post, err := s.CreatePost(ctx, &domain.Post{Text: "Test Post", AuthorID: f.Author.ID})
	require.NoError(t, err)

	first, err := s.CreateComment(ctx, &domain.Comment{PostID: post.ID, AuthorID: f.Another.ID, Text: "First comment!"})
	require.NoError(t, err)
	assert.NotZero(t, first.ID)
	_, err = s.CreateComment(ctx, &domain.Comment{PostID: post.ID, AuthorID: f.Author.ID, Text: "Second"})
	require.NoError(t, err)

	comments, err := s.GetCommentsByPostID(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "First comment!", comments[0].Text)
	assert.Equal(t, f.Another.ID, comments[0].AuthorID)
	assert.Equal(t, "Second", comments[1].Text)

	_, err = s.CreateComment(ctx, &domain.Comment{PostID: post.ID + 1000, AuthorID: f.Author.ID, Text: "orphan"})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testFollows(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	f := Seed(t, s)

	created, err := s.CreateFollow(ctx, f.Another.ID, f.Author.ID)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.CreateFollow(ctx, f.Another.ID, f.Author.ID)
	require.NoError(t, err)
	assert.False(t, created, "duplicate follow must be a no-op")

	exists, err := s.FollowExists(ctx, f.Another.ID, f.Author.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	reverse, err := s.FollowExists(ctx, f.Author.ID, f.Another.ID)
	require.NoError(t, err)
	assert.False(t, reverse)

	require.NoError(t, s.DeleteFollow(ctx, f.Another.ID, f.Author.ID))
	exists, err = s.FollowExists(ctx, f.Another.ID, f.Author.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	assert.ErrorIs(t, s.DeleteFollow(ctx, f.Another.ID, f.Author.ID), storage.ErrNotFound)
}

func testFollowFilter(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	f := Seed(t, s)
	third, err := s.CreateUser(ctx, &domain.User{Username: "third"})
	require.NoError(t, err)

	authorPost, err := s.CreatePost(ctx, &domain.Post{Text: "followed", AuthorID: f.Author.ID})
	require.NoError(t, err)
	_, err = s.CreatePost(ctx, &domain.Post{Text: "not followed", AuthorID: third.ID})
	require.NoError(t, err)

	_, err = s.CreateFollow(ctx, f.Another.ID, f.Author.ID)
	require.NoError(t, err)

	feed, err := s.ListPosts(ctx, storage.PostFilter{FollowerID: &f.Another.ID}, 10, 0)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, authorPost.ID, feed[0].ID)

	empty, err := s.CountPosts(ctx, storage.PostFilter{FollowerID: &f.Author.ID})
	require.NoError(t, err)
	assert.Zero(t, empty)
}

func testBatchLookups(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	f := Seed(t, s)

	users, err := s.GetUsersByIDs(ctx, []uint64{f.Author.ID, f.Another.ID, 9999})
	require.NoError(t, err)
	assert.Len(t, users, 2)
	assert.Equal(t, "author", users[f.Author.ID].Username)

	groups, err := s.GetGroupsByIDs(ctx, []uint64{f.Group.ID})
	require.NoError(t, err)
	assert.Equal(t, "test-slug", groups[f.Group.ID].Slug)

	none, err := s.GetGroupsByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}
