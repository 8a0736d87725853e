package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/minishop/apiserver/internal/store"
	"github.com/minishop/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

type fakeUserRepo struct {
	mu     sync.Mutex
	nextID int
	users  map[string]types.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		nextID: 1,
		users:  make(map[string]types.User),
	}
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id int) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.ID == id {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *fakeUserRepo) GetByUsername(ctx context.Context, username string) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[username]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) Create(ctx context.Context, user types.User) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.Username]; ok {
		return types.User{}, store.ErrDuplicateUser
	}
	user.ID = r.nextID
	r.nextID++
	r.users[user.Username] = user
	return user, nil
}

func TestUserService_Register(t *testing.T) {
	t.Run("hashes the password", func(t *testing.T) {
		repo := newFakeUserRepo()
		svc := NewUserService(repo)

		user, err := svc.Register(context.Background(), "alice", "hunter2")
		if err != nil {
			t.Fatalf("register: %v", err)
		}
		if user.PasswordHash == "hunter2" {
			t.Fatalf("password stored in plaintext")
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("hunter2")); err != nil {
			t.Fatalf("stored hash does not match password: %v", err)
		}
	})

	t.Run("duplicate username fails and keeps one record", func(t *testing.T) {
		repo := newFakeUserRepo()
		svc := NewUserService(repo)

		if _, err := svc.Register(context.Background(), "bob", "pw1"); err != nil {
			t.Fatalf("first register: %v", err)
		}
		if _, err := svc.Register(context.Background(), "bob", "pw2"); !errors.Is(err, store.ErrDuplicateUser) {
			t.Fatalf("expected ErrDuplicateUser, got %v", err)
		}
		if len(repo.users) != 1 {
			t.Fatalf("expected exactly one user record, got %d", len(repo.users))
		}
	})
}

func TestUserService_Authenticate(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewUserService(repo)

	registered, err := svc.Register(context.Background(), "carol", "correct-horse")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	t.Run("valid credentials", func(t *testing.T) {
		user, err := svc.Authenticate(context.Background(), "carol", "correct-horse")
		if err != nil {
			t.Fatalf("authenticate: %v", err)
		}
		if user.ID != registered.ID {
			t.Fatalf("expected user id %d, got %d", registered.ID, user.ID)
		}
	})

	t.Run("wrong password and unknown user return the same error", func(t *testing.T) {
		_, wrongPassErr := svc.Authenticate(context.Background(), "carol", "wrong")
		_, unknownUserErr := svc.Authenticate(context.Background(), "nobody", "wrong")

		if !errors.Is(wrongPassErr, ErrInvalidCredentials) {
			t.Fatalf("wrong password: expected ErrInvalidCredentials, got %v", wrongPassErr)
		}
		if !errors.Is(unknownUserErr, ErrInvalidCredentials) {
			t.Fatalf("unknown user: expected ErrInvalidCredentials, got %v", unknownUserErr)
		}
		if wrongPassErr.Error() != unknownUserErr.Error() {
			t.Fatalf("errors must not distinguish the two cases: %q vs %q",
				wrongPassErr.Error(), unknownUserErr.Error())
		}
	})
}
