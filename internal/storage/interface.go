package storage

import (
	"context"
	"errors"

	"github.com/UkralStul/yatube/internal/domain"
)

var (
	// ErrNotFound - запрошенной записи нет.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists - нарушено условие уникальности (username, slug).
	ErrAlreadyExists = errors.New("record already exists")
)

// PostFilter задает выборку постов. Пустой фильтр - все посты.
// Заданные поля комбинируются через AND.
type PostFilter struct {
	GroupID  *uint64
	AuthorID *uint64
	// FollowerID - только посты авторов, на которых подписан этот пользователь.
	FollowerID *uint64
}

// Storage определяет контракт для хранилищ.
// Списки постов всегда отсортированы по CreatedAt по убыванию (при равенстве - по ID).
type Storage interface {
	CreateUser(ctx context.Context, user *domain.User) (*domain.User, error)
	GetUserByID(ctx context.Context, id uint64) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)

	CreateGroup(ctx context.Context, group *domain.Group) (*domain.Group, error)
	GetGroupByID(ctx context.Context, id uint64) (*domain.Group, error)
	GetGroupBySlug(ctx context.Context, slug string) (*domain.Group, error)
	ListGroups(ctx context.Context) ([]*domain.Group, error)

	CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error)
	GetPostByID(ctx context.Context, id uint64) (*domain.Post, error)
	UpdatePost(ctx context.Context, post *domain.Post) (*domain.Post, error)
	DeletePost(ctx context.Context, id uint64) error

	// Методы для пагинации
	CountPosts(ctx context.Context, filter PostFilter) (int, error)
	ListPosts(ctx context.Context, filter PostFilter, limit, offset int) ([]*domain.Post, error)

	CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error)
	GetCommentsByPostID(ctx context.Context, postID uint64) ([]*domain.Comment, error)

	// CreateFollow возвращает false, если подписка уже была.
	CreateFollow(ctx context.Context, userID, authorID uint64) (bool, error)
	DeleteFollow(ctx context.Context, userID, authorID uint64) error
	FollowExists(ctx context.Context, userID, authorID uint64) (bool, error)

	// Методы для Dataloader'ов
	GetUsersByIDs(ctx context.Context, ids []uint64) (map[uint64]*domain.User, error)
	GetGroupsByIDs(ctx context.Context, ids []uint64) (map[uint64]*domain.Group, error)
}
