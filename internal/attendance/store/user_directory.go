package store

import "context"

type User struct {
	ID     string
	Name   string
	Role   string
	Active bool
}

type UserDirectory interface {
	GetUser(ctx context.Context, id string) (User, error)
	ListActiveUsers(ctx context.Context) ([]User, error)
}
