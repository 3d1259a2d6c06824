package inmem

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/rotaract/reportdesk/core/user"
)

type UserRepository struct {
	mutex sync.RWMutex
	table map[string]*user.User
}

var _ user.Repository = (*UserRepository)(nil)

func NewUserRepository() *UserRepository {
	return &UserRepository{table: make(map[string]*user.User)}
}

func (repo *UserRepository) CheckUsernameUniqueness(_ context.Context, username, email string, excludedUsers ...user.User) error {
	repo.mutex.RLock()
	defer repo.mutex.RUnlock()

	excluded := make(map[string]bool, len(excludedUsers))
	for _, u := range excludedUsers {
		excluded[u.ID] = true
	}
	for _, usr := range repo.table {
		if excluded[usr.ID] {
			continue
		}
		if strings.EqualFold(usr.Username, username) {
			return user.ErrUsernameExists
		}
		if strings.EqualFold(usr.Email, email) {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *UserRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.mutex.Lock()
	defer repo.mutex.Unlock()

	usr.ID = uuid.New().String()
	repo.table[usr.ID] = &usr
	return usr, nil
}

func (repo *UserRepository) GetUser(_ context.Context, filter user.GetFilter) (user.User, error) {
	repo.mutex.RLock()
	defer repo.mutex.RUnlock()

	if filter.ID != "" {
		if usr, ok := repo.table[filter.ID]; ok {
			return *usr, nil
		}
		return user.User{}, user.ErrNotFound
	}
	if filter.UsernameOrEmail == "" {
		return user.User{}, user.ErrNotFound
	}
	for _, usr := range repo.table {
		if strings.EqualFold(usr.Username, filter.UsernameOrEmail) || strings.EqualFold(usr.Email, filter.UsernameOrEmail) {
			return *usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *UserRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.mutex.Lock()
	defer repo.mutex.Unlock()

	if _, ok := repo.table[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	repo.table[usr.ID] = &usr
	return usr, nil
}
