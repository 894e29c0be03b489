package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/UkralStul/yatube/internal/domain"
	"github.com/UkralStul/yatube/internal/storage"
)

type followKey struct {
	userID   uint64
	authorID uint64
}

// Store реализует интерфейс Storage в памяти.
// Наружу отдаются копии записей, чтобы изменения вне хранилища его не портили.
type Store struct {
	mu       sync.RWMutex
	seq      uint64
	users    map[uint64]*domain.User
	groups   map[uint64]*domain.Group
	posts    map[uint64]*domain.Post
	comments map[uint64]*domain.Comment
	follows  map[followKey]*domain.Follow

	commentsByPost map[uint64][]uint64 // map[postID][]commentID
	now            func() time.Time
}

// New создает новый экземпляр in-memory хранилища.
func New() *Store {
	return &Store{
		users:          make(map[uint64]*domain.User),
		groups:         make(map[uint64]*domain.Group),
		posts:          make(map[uint64]*domain.Post),
		comments:       make(map[uint64]*domain.Comment),
		follows:        make(map[followKey]*domain.Follow),
		commentsByPost: make(map[uint64][]uint64),
		now:            func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) nextID() uint64 {
	s.seq++
	return s.seq
}

// === User Methods ===

func (s *Store) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == user.Username {
			return nil, fmt.Errorf("user %q: %w", user.Username, storage.ErrAlreadyExists)
		}
	}
	u := *user
	u.ID = s.nextID()
	s.users[u.ID] = &u
	out := u
	return &out, nil
}

func (s *Store) GetUserByID(ctx context.Context, id uint64) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user with id %d: %w", id, storage.ErrNotFound)
	}
	out := *u
	return &out, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Username == username {
			out := *u
			return &out, nil
		}
	}
	return nil, fmt.Errorf("user %q: %w", username, storage.ErrNotFound)
}

// === Group Methods ===

func (s *Store) CreateGroup(ctx context.Context, group *domain.Group) (*domain.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, g := range s.groups {
		if g.Slug == group.Slug {
			return nil, fmt.Errorf("group %q: %w", group.Slug, storage.ErrAlreadyExists)
		}
	}
	g := *group
	g.ID = s.nextID()
	s.groups[g.ID] = &g
	out := g
	return &out, nil
}

func (s *Store) GetGroupByID(ctx context.Context, id uint64) (*domain.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.groups[id]
	if !ok {
		return nil, fmt.Errorf("group with id %d: %w", id, storage.ErrNotFound)
	}
	out := *g
	return &out, nil
}

func (s *Store) GetGroupBySlug(ctx context.Context, slug string) (*domain.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, g := range s.groups {
		if g.Slug == slug {
			out := *g
			return &out, nil
		}
	}
	return nil, fmt.Errorf("group %q: %w", slug, storage.ErrNotFound)
}

func (s *Store) ListGroups(ctx context.Context) ([]*domain.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	groups := make([]*domain.Group, 0, len(s.groups))
	for _, g := range s.groups {
		out := *g
		groups = append(groups, &out)
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Title < groups[j].Title
	})
	return groups, nil
}

// === Post Methods ===

func (s *Store) CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[post.AuthorID]; !ok {
		return nil, fmt.Errorf("author with id %d: %w", post.AuthorID, storage.ErrNotFound)
	}
	if post.GroupID != nil {
		if _, ok := s.groups[*post.GroupID]; !ok {
			return nil, fmt.Errorf("group with id %d: %w", *post.GroupID, storage.ErrNotFound)
		}
	}

	p := clonePost(post)
	p.ID = s.nextID()
	p.CreatedAt = s.now()
	s.posts[p.ID] = p
	return clonePost(p), nil
}

func (s *Store) GetPostByID(ctx context.Context, id uint64) (*domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	post, ok := s.posts[id]
	if !ok {
		return nil, fmt.Errorf("post with id %d: %w", id, storage.ErrNotFound)
	}
	return clonePost(post), nil
}

// UpdatePost меняет только изменяемые поля: текст, группу и картинку.
func (s *Store) UpdatePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.posts[post.ID]
	if !ok {
		return nil, fmt.Errorf("post with id %d: %w", post.ID, storage.ErrNotFound)
	}
	if post.GroupID != nil {
		if _, ok := s.groups[*post.GroupID]; !ok {
			return nil, fmt.Errorf("group with id %d: %w", *post.GroupID, storage.ErrNotFound)
		}
	}

	updated := clonePost(stored)
	updated.Text = post.Text
	updated.GroupID = cloneID(post.GroupID)
	updated.Image = post.Image
	s.posts[post.ID] = updated
	return clonePost(updated), nil
}

func (s *Store) DeletePost(ctx context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[id]; !ok {
		return fmt.Errorf("post with id %d: %w", id, storage.ErrNotFound)
	}
	for _, cID := range s.commentsByPost[id] {
		delete(s.comments, cID)
	}
	delete(s.commentsByPost, id)
	delete(s.posts, id)
	return nil
}

// === Pagination Methods ===

func (s *Store) CountPosts(ctx context.Context, filter storage.PostFilter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.filterPosts(filter)), nil
}

func (s *Store) ListPosts(ctx context.Context, filter storage.PostFilter, limit, offset int) ([]*domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	allPosts := s.filterPosts(filter)
	sort.Slice(allPosts, func(i, j int) bool {
		if allPosts[i].CreatedAt.Equal(allPosts[j].CreatedAt) {
			return allPosts[i].ID > allPosts[j].ID
		}
		return allPosts[i].CreatedAt.After(allPosts[j].CreatedAt)
	})

	start := offset
	if start < 0 {
		start = 0
	}
	if start >= len(allPosts) {
		return []*domain.Post{}, nil
	}
	end := start + limit
	if end > len(allPosts) {
		end = len(allPosts)
	}

	page := make([]*domain.Post, 0, end-start)
	for _, p := range allPosts[start:end] {
		page = append(page, clonePost(p))
	}
	return page, nil
}

// filterPosts вызывается под блокировкой.
func (s *Store) filterPosts(filter storage.PostFilter) []*domain.Post {
	posts := make([]*domain.Post, 0, len(s.posts))
	for _, p := range s.posts {
		if filter.GroupID != nil && (p.GroupID == nil || *p.GroupID != *filter.GroupID) {
			continue
		}
		if filter.AuthorID != nil && p.AuthorID != *filter.AuthorID {
			continue
		}
		if filter.FollowerID != nil {
			if _, ok := s.follows[followKey{userID: *filter.FollowerID, authorID: p.AuthorID}]; !ok {
				continue
			}
		}
		posts = append(posts, p)
	}
	return posts
}

// === Comment Methods ===

func (s *Store) CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[comment.PostID]; !ok {
		return nil, fmt.Errorf("post with id %d: %w", comment.PostID, storage.ErrNotFound)
	}
	if _, ok := s.users[comment.AuthorID]; !ok {
		return nil, fmt.Errorf("author with id %d: %w", comment.AuthorID, storage.ErrNotFound)
	}

	c := *comment
	c.ID = s.nextID()
	c.CreatedAt = s.now()
	s.comments[c.ID] = &c
	s.commentsByPost[c.PostID] = append(s.commentsByPost[c.PostID], c.ID)

	out := c
	return &out, nil
}

func (s *Store) GetCommentsByPostID(ctx context.Context, postID uint64) ([]*domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.commentsByPost[postID]
	comments := make([]*domain.Comment, 0, len(ids))
	for _, id := range ids {
		if c, ok := s.comments[id]; ok {
			out := *c
			comments = append(comments, &out)
		}
	}
	sort.Slice(comments, func(i, j int) bool {
		if comments[i].CreatedAt.Equal(comments[j].CreatedAt) {
			return comments[i].ID < comments[j].ID
		}
		return comments[i].CreatedAt.Before(comments[j].CreatedAt)
	})
	return comments, nil
}

// === Follow Methods ===

func (s *Store) CreateFollow(ctx context.Context, userID, authorID uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := followKey{userID: userID, authorID: authorID}
	if _, ok := s.follows[key]; ok {
		return false, nil
	}
	s.follows[key] = &domain.Follow{ID: s.nextID(), UserID: userID, AuthorID: authorID}
	return true, nil
}

func (s *Store) DeleteFollow(ctx context.Context, userID, authorID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := followKey{userID: userID, authorID: authorID}
	if _, ok := s.follows[key]; !ok {
		return fmt.Errorf("follow %d -> %d: %w", userID, authorID, storage.ErrNotFound)
	}
	delete(s.follows, key)
	return nil
}

func (s *Store) FollowExists(ctx context.Context, userID, authorID uint64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.follows[followKey{userID: userID, authorID: authorID}]
	return ok, nil
}

// === Dataloader Methods ===

func (s *Store) GetUsersByIDs(ctx context.Context, ids []uint64) (map[uint64]*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[uint64]*domain.User, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out := *u
			result[id] = &out
		}
	}
	return result, nil
}

func (s *Store) GetGroupsByIDs(ctx context.Context, ids []uint64) (map[uint64]*domain.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[uint64]*domain.Group, len(ids))
	for _, id := range ids {
		if g, ok := s.groups[id]; ok {
			out := *g
			result[id] = &out
		}
	}
	return result, nil
}

func clonePost(p *domain.Post) *domain.Post {
	out := *p
	out.GroupID = cloneID(p.GroupID)
	return &out
}

func cloneID(id *uint64) *uint64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
