package domain

import "errors"

// ErrLoginRequired возвращается операциями, которым нужен вошедший пользователь.
var ErrLoginRequired = errors.New("login required")

// Actor - тот, от чьего имени выполняется запрос: аноним или пользователь.
// Нулевое значение - аноним.
type Actor struct {
	user *User
}

// Anonymous возвращает анонимного актора.
func Anonymous() Actor {
	return Actor{}
}

// Authenticated возвращает актора для вошедшего пользователя.
func Authenticated(u *User) Actor {
	return Actor{user: u}
}

func (a Actor) IsAuthenticated() bool {
	return a.user != nil
}

// User возвращает пользователя или nil для анонима.
func (a Actor) User() *User {
	return a.user
}

// Is сообщает, является ли актор пользователем с данным id.
func (a Actor) Is(userID uint64) bool {
	return a.user != nil && a.user.ID == userID
}
