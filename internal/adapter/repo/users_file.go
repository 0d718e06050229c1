package repo

import (
	"context"
	"fmt"

	"lifelink/internal/domain"
	"lifelink/internal/storage"
)

// UsersFileName is the key of the user document inside the data directory.
const UsersFileName = "users.json"

type usersDocument struct {
	Users map[string]domain.User `json:"users"`
}

func newUsersDocument() *usersDocument {
	return &usersDocument{Users: map[string]domain.User{}}
}

// UserFile implements domain.UserStore on a JSON file keyed by username.
type UserFile struct {
	doc *storage.JSONDocument[usersDocument]
}

// NewUserFile opens the user file in fs.
func NewUserFile(fs *storage.FileStore) (*UserFile, error) {
	doc, err := storage.OpenJSONDocument(fs, UsersFileName, newUsersDocument)
	if err != nil {
		return nil, err
	}
	return &UserFile{doc: doc}, nil
}

func (u *UserFile) Create(ctx context.Context, user *domain.User) error {
	return u.doc.Update(ctx, func(d *usersDocument) error {
		if d.Users == nil {
			d.Users = map[string]domain.User{}
		}
		if _, exists := d.Users[user.Username]; exists {
			return fmt.Errorf("%w: username %q already registered", domain.ErrConflict, user.Username)
		}
		d.Users[user.Username] = *user
		return nil
	})
}

func (u *UserFile) Get(ctx context.Context, username string) (*domain.User, error) {
	var (
		found domain.User
		ok    bool
	)
	err := u.doc.View(ctx, func(d *usersDocument) {
		found, ok = d.Users[username]
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &found, nil
}

// Close stops the writer.
func (u *UserFile) Close() error {
	return u.doc.Close()
}
