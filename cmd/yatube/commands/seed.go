package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/UkralStul/yatube/internal/domain"
	"github.com/UkralStul/yatube/internal/storage"

	"github.com/gosimple/slug"
	"github.com/sirupsen/logrus"
)

// fillWithMockData заполняет хранилище демо-данными. Повторный запуск
// на уже заполненной базе ничего не делает.
func fillWithMockData(ctx context.Context, s storage.Storage, log logrus.FieldLogger) error {
	// 1. Создаем двух авторов.
	leo, err := s.CreateUser(ctx, &domain.User{Username: "leo", FirstName: "Лев", LastName: "Толстой"})
	if errors.Is(err, storage.ErrAlreadyExists) {
		log.Info("mock data already present, skipping")
		return nil
	}
	if err != nil {
		return fmt.Errorf("fillWithMockData: failed to create user: %w", err)
	}
	anna, err := s.CreateUser(ctx, &domain.User{Username: "anna", FirstName: "Анна", LastName: "Ахматова"})
	if err != nil {
		return fmt.Errorf("fillWithMockData: failed to create user: %w", err)
	}

	// 2. Группа со слагом из названия.
	title := "Лев Толстой – зеркало русской революции"
	group, err := s.CreateGroup(ctx, &domain.Group{
		Title:       title,
		Slug:        slug.Make(title),
		Description: "Группа любителей классической русской литературы.",
	})
	if err != nil {
		return fmt.Errorf("fillWithMockData: failed to create group: %w", err)
	}

	// 3. Посты: один в группе, один без группы.
	post, err := s.CreatePost(ctx, &domain.Post{
		Text:     "Все счастливые семьи похожи друг на друга, каждая несчастливая семья несчастлива по-своему.",
		AuthorID: leo.ID,
		GroupID:  &group.ID,
	})
	if err != nil {
		return fmt.Errorf("fillWithMockData: failed to create post: %w", err)
	}
	if _, err := s.CreatePost(ctx, &domain.Post{
		Text:     "Мне голос был. Он звал утешно.",
		AuthorID: anna.ID,
	}); err != nil {
		return fmt.Errorf("fillWithMockData: failed to create post: %w", err)
	}

	// 4. Комментарий и подписка.
	if _, err := s.CreateComment(ctx, &domain.Comment{PostID: post.ID, AuthorID: anna.ID, Text: "Прекрасное начало."}); err != nil {
		return fmt.Errorf("fillWithMockData: failed to create comment: %w", err)
	}
	if _, err := s.CreateFollow(ctx, anna.ID, leo.ID); err != nil {
		return fmt.Errorf("fillWithMockData: failed to create follow: %w", err)
	}

	log.WithFields(logrus.Fields{"group": group.Slug, "post_id": post.ID}).Info("mock data filled successfully")
	return nil
}
