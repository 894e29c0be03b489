// Package sqlstore реализует storage.Storage поверх gorm.
// Поддерживаются PostgreSQL (основной вариант) и SQLite (встроенная база и тесты).
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/UkralStul/yatube/internal/domain"
	"github.com/UkralStul/yatube/internal/storage"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const postOrder = "created_at DESC, id DESC"

// Store реализует интерфейс Storage с использованием реляционной БД.
type Store struct {
	db  *gorm.DB
	log logrus.FieldLogger
}

// NewPostgres создает хранилище поверх PostgreSQL.
func NewPostgres(dsn string, log *logrus.Logger) (*Store, error) {
	return Open(postgres.Open(dsn), log)
}

// NewSQLite создает хранилище поверх SQLite. Для тестов подходит "file::memory:".
func NewSQLite(path string, log *logrus.Logger) (*Store, error) {
	return Open(sqlite.Open(path), log)
}

// Open подключается к БД через переданный диалект и выполняет миграцию схемы.
func Open(dialector gorm.Dialector, log *logrus.Logger) (*Store, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.New(log, logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormLogLevel(log.GetLevel()),
			IgnoreRecordNotFoundError: true,
		}),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Выполняем миграцию схемы
	if err := db.AutoMigrate(&domain.User{}, &domain.Group{}, &domain.Post{}, &domain.Comment{}, &domain.Follow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{db: db, log: log.WithField("component", "sqlstore")}, nil
}

// Close закрывает пул соединений.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func gormLogLevel(level logrus.Level) logger.LogLevel {
	switch {
	case level >= logrus.DebugLevel:
		return logger.Info
	case level >= logrus.WarnLevel:
		return logger.Warn
	default:
		return logger.Error
	}
}

// translate приводит ошибки gorm к ошибкам storage.
func translate(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", what, storage.ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", what, storage.ErrAlreadyExists)
	default:
		return fmt.Errorf("%s: %w", what, err)
	}
}

// === User Methods ===

func (s *Store) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	u := *user
	u.ID = 0
	if err := s.db.WithContext(ctx).Create(&u).Error; err != nil {
		return nil, translate(err, fmt.Sprintf("create user %q", user.Username))
	}
	return &u, nil
}

func (s *Store) GetUserByID(ctx context.Context, id uint64) (*domain.User, error) {
	var u domain.User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, translate(err, fmt.Sprintf("user with id %d", id))
	}
	return &u, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	var u domain.User
	if err := s.db.WithContext(ctx).First(&u, "username = ?", username).Error; err != nil {
		return nil, translate(err, fmt.Sprintf("user %q", username))
	}
	return &u, nil
}

// === Group Methods ===

func (s *Store) CreateGroup(ctx context.Context, group *domain.Group) (*domain.Group, error) {
	g := *group
	g.ID = 0
	if err := s.db.WithContext(ctx).Create(&g).Error; err != nil {
		return nil, translate(err, fmt.Sprintf("create group %q", group.Slug))
	}
	return &g, nil
}

func (s *Store) GetGroupByID(ctx context.Context, id uint64) (*domain.Group, error) {
	var g domain.Group
	if err := s.db.WithContext(ctx).First(&g, "id = ?", id).Error; err != nil {
		return nil, translate(err, fmt.Sprintf("group with id %d", id))
	}
	return &g, nil
}

func (s *Store) GetGroupBySlug(ctx context.Context, slug string) (*domain.Group, error) {
	var g domain.Group
	if err := s.db.WithContext(ctx).First(&g, "slug = ?", slug).Error; err != nil {
		return nil, translate(err, fmt.Sprintf("group %q", slug))
	}
	return &g, nil
}

func (s *Store) ListGroups(ctx context.Context) ([]*domain.Group, error) {
	var groups []*domain.Group
	err := s.db.WithContext(ctx).Order("title ASC").Find(&groups).Error
	return groups, translate(err, "list groups")
}

// === Post Methods ===

func (s *Store) CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	p := *post
	p.ID = 0
	p.CreatedAt = time.Now().UTC()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := mustExist(tx, &domain.User{}, p.AuthorID, "author"); err != nil {
			return err
		}
		if p.GroupID != nil {
			if err := mustExist(tx, &domain.Group{}, *p.GroupID, "group"); err != nil {
				return err
			}
		}
		return tx.Create(&p).Error
	})
	if err != nil {
		return nil, translate(err, "create post")
	}
	return &p, nil
}

func (s *Store) GetPostByID(ctx context.Context, id uint64) (*domain.Post, error) {
	var post domain.Post
	if err := s.db.WithContext(ctx).First(&post, "id = ?", id).Error; err != nil {
		// GORM возвращает gorm.ErrRecordNotFound, если запись не найдена
		return nil, translate(err, fmt.Sprintf("post with id %d", id))
	}
	return &post, nil
}

// UpdatePost меняет только текст, группу и картинку; автор и дата создания не трогаются.
func (s *Store) UpdatePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	var updated domain.Post
	// Используем транзакцию для атомарности операции чтения-записи
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&updated, "id = ?", post.ID).Error; err != nil {
			return err
		}
		if post.GroupID != nil {
			if err := mustExist(tx, &domain.Group{}, *post.GroupID, "group"); err != nil {
				return err
			}
		}
		err := tx.Model(&domain.Post{}).Where("id = ?", post.ID).Updates(map[string]any{
			"text":     post.Text,
			"group_id": post.GroupID,
			"image":    post.Image,
		}).Error
		if err != nil {
			return err
		}
		return tx.First(&updated, "id = ?", post.ID).Error
	})
	if err != nil {
		return nil, translate(err, fmt.Sprintf("update post %d", post.ID))
	}
	return &updated, nil
}

func (s *Store) DeletePost(ctx context.Context, id uint64) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&domain.Comment{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&domain.Post{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return translate(err, fmt.Sprintf("delete post %d", id))
	}
	s.log.WithField("post_id", id).Info("post deleted")
	return nil
}

// === Pagination Methods ===

func (s *Store) postQuery(ctx context.Context, filter storage.PostFilter) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&domain.Post{})
	if filter.GroupID != nil {
		q = q.Where("group_id = ?", *filter.GroupID)
	}
	if filter.AuthorID != nil {
		q = q.Where("author_id = ?", *filter.AuthorID)
	}
	if filter.FollowerID != nil {
		followed := s.db.Model(&domain.Follow{}).Select("author_id").Where("user_id = ?", *filter.FollowerID)
		q = q.Where("author_id IN (?)", followed)
	}
	return q
}

func (s *Store) CountPosts(ctx context.Context, filter storage.PostFilter) (int, error) {
	var n int64
	if err := s.postQuery(ctx, filter).Count(&n).Error; err != nil {
		return 0, translate(err, "count posts")
	}
	return int(n), nil
}

func (s *Store) ListPosts(ctx context.Context, filter storage.PostFilter, limit, offset int) ([]*domain.Post, error) {
	var posts []*domain.Post
	err := s.postQuery(ctx, filter).Order(postOrder).Limit(limit).Offset(offset).Find(&posts).Error
	if err != nil {
		return nil, translate(err, "list posts")
	}
	return posts, nil
}

// === Comment Methods ===

func (s *Store) CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	c := *comment
	c.ID = 0
	c.CreatedAt = time.Now().UTC()

	// Проверяем существование поста и автора в одной транзакции
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := mustExist(tx, &domain.Post{}, c.PostID, "post"); err != nil {
			return err
		}
		if err := mustExist(tx, &domain.User{}, c.AuthorID, "author"); err != nil {
			return err
		}
		return tx.Create(&c).Error
	})
	if err != nil {
		return nil, translate(err, "create comment")
	}
	return &c, nil
}

func (s *Store) GetCommentsByPostID(ctx context.Context, postID uint64) ([]*domain.Comment, error) {
	var comments []*domain.Comment
	err := s.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at ASC, id ASC").
		Find(&comments).Error
	return comments, translate(err, fmt.Sprintf("comments of post %d", postID))
}

// === Follow Methods ===

// CreateFollow полагается на уникальный индекс (user_id, author_id):
// одновременные повторные запросы не создадут вторую строку.
func (s *Store) CreateFollow(ctx context.Context, userID, authorID uint64) (bool, error) {
	follow := domain.Follow{UserID: userID, AuthorID: authorID}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&follow)
	if res.Error != nil {
		return false, translate(res.Error, fmt.Sprintf("follow %d -> %d", userID, authorID))
	}
	return res.RowsAffected == 1, nil
}

func (s *Store) DeleteFollow(ctx context.Context, userID, authorID uint64) error {
	res := s.db.WithContext(ctx).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Delete(&domain.Follow{})
	if res.Error != nil {
		return translate(res.Error, fmt.Sprintf("unfollow %d -> %d", userID, authorID))
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("follow %d -> %d: %w", userID, authorID, storage.ErrNotFound)
	}
	return nil
}

func (s *Store) FollowExists(ctx context.Context, userID, authorID uint64) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&domain.Follow{}).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Count(&n).Error
	if err != nil {
		return false, translate(err, "check follow")
	}
	return n > 0, nil
}

// === Dataloader Methods ===

func (s *Store) GetUsersByIDs(ctx context.Context, ids []uint64) (map[uint64]*domain.User, error) {
	result := make(map[uint64]*domain.User, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var users []*domain.User
	// Загружаем всех пользователей одним запросом
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, translate(err, "users by ids")
	}
	for _, u := range users {
		result[u.ID] = u
	}
	return result, nil
}

func (s *Store) GetGroupsByIDs(ctx context.Context, ids []uint64) (map[uint64]*domain.Group, error) {
	result := make(map[uint64]*domain.Group, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var groups []*domain.Group
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&groups).Error; err != nil {
		return nil, translate(err, "groups by ids")
	}
	for _, g := range groups {
		result[g.ID] = g
	}
	return result, nil
}

// mustExist возвращает gorm.ErrRecordNotFound, если строки с таким id нет.
func mustExist(tx *gorm.DB, model any, id uint64, what string) error {
	var n int64
	if err := tx.Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", what, id, gorm.ErrRecordNotFound)
	}
	return nil
}
