package domain

import (
	"fmt"
	"strings"
	"time"
)

// postPreviewLen - сколько символов текста поста попадает в String().
const postPreviewLen = 20

// User - пользователь. Учетными записями владеет внешний сервис,
// здесь хранится только то, на что ссылаются посты и подписки.
type User struct {
	ID        uint64 `json:"id" gorm:"primaryKey"`
	Username  string `json:"username" gorm:"type:varchar(150);not null;uniqueIndex"`
	FirstName string `json:"firstName" gorm:"type:varchar(150);not null;default:''"`
	LastName  string `json:"lastName" gorm:"type:varchar(150);not null;default:''"`
}

// DisplayName возвращает полное имя, а если оно пустое - username.
func (u *User) DisplayName() string {
	full := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if full == "" {
		return u.Username
	}
	return full
}

func (u *User) String() string {
	return u.Username
}

// Group - тематическое сообщество. Создается только администратором.
type Group struct {
	ID          uint64 `json:"id" gorm:"primaryKey"`
	Title       string `json:"title" gorm:"type:varchar(200);not null"`
	Slug        string `json:"slug" gorm:"type:varchar(200);not null;uniqueIndex"`
	Description string `json:"description" gorm:"type:text;not null;default:''"`
}

func (g *Group) String() string {
	return g.Title
}

// Post представляет пост в системе.
type Post struct {
	ID        uint64    `json:"id" gorm:"primaryKey"`
	Text      string    `json:"text" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"createdAt" gorm:"not null;index"`
	AuthorID  uint64    `json:"authorId" gorm:"not null;index"`
	GroupID   *uint64   `json:"groupId,omitempty" gorm:"index"`
	Image     string    `json:"image,omitempty" gorm:"type:varchar(255);not null;default:''"`
}

// Describe формирует короткое описание поста для логов и админских утилит.
func (p *Post) Describe(author *User) string {
	name := ""
	if author != nil {
		name = author.DisplayName()
	}
	text := []rune(p.Text)
	if len(text) > postPreviewLen {
		text = text[:postPreviewLen]
	}
	return fmt.Sprintf("Author: %s, Text: %s", name, string(text))
}

// HasImage сообщает, прикреплена ли к посту картинка.
func (p *Post) HasImage() bool {
	return p.Image != ""
}

// Comment представляет комментарий к посту.
type Comment struct {
	ID        uint64    `json:"id" gorm:"primaryKey"`
	PostID    uint64    `json:"postId" gorm:"not null;index"`
	AuthorID  uint64    `json:"authorId" gorm:"not null;index"`
	Text      string    `json:"text" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"createdAt" gorm:"not null;index"`
}

// Follow - подписка UserID на посты AuthorID.
// Пара (UserID, AuthorID) уникальна, подписка на себя запрещена.
type Follow struct {
	ID       uint64 `json:"id" gorm:"primaryKey"`
	UserID   uint64 `json:"userId" gorm:"not null;uniqueIndex:idx_follow_user_author;check:chk_follow_not_self,user_id <> author_id"`
	AuthorID uint64 `json:"authorId" gorm:"not null;uniqueIndex:idx_follow_user_author;index"`
}
