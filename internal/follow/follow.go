// Package follow управляет подписками пользователей на авторов.
package follow

import (
	"context"
	"errors"
	"fmt"

	"github.com/UkralStul/yatube/internal/domain"
	"github.com/UkralStul/yatube/internal/storage"

	"github.com/sirupsen/logrus"
)

// Service создает и удаляет подписки от имени смотрящего пользователя.
type Service struct {
	store storage.Storage
	log   logrus.FieldLogger
}

func New(store storage.Storage, log logrus.FieldLogger) *Service {
	return &Service{store: store, log: log}
}

// Follow подписывает viewer на username. Подписка на себя и повторная
// подписка ничего не делают. Возвращает true, если подписка создана.
func (s *Service) Follow(ctx context.Context, viewer domain.Actor, username string) (bool, error) {
	if !viewer.IsAuthenticated() {
		return false, domain.ErrLoginRequired
	}
	author, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		return false, err
	}
	if viewer.Is(author.ID) {
		return false, nil
	}

	created, err := s.store.CreateFollow(ctx, viewer.User().ID, author.ID)
	if err != nil {
		return false, fmt.Errorf("follow %q: %w", username, err)
	}
	if created {
		s.log.WithFields(logrus.Fields{"user": viewer.User().Username, "author": username}).Info("follow created")
	}
	return created, nil
}

// Unfollow удаляет подписку viewer на username.
// Если подписки нет, возвращает storage.ErrNotFound.
func (s *Service) Unfollow(ctx context.Context, viewer domain.Actor, username string) error {
	if !viewer.IsAuthenticated() {
		return domain.ErrLoginRequired
	}
	author, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		return err
	}
	if err := s.store.DeleteFollow(ctx, viewer.User().ID, author.ID); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("unfollow %q: %w", username, err)
		}
		return err
	}
	s.log.WithFields(logrus.Fields{"user": viewer.User().Username, "author": username}).Info("follow removed")
	return nil
}
