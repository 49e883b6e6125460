package models

import "errors"

// Domain errors surfaced by repositories and the study service
var (
	ErrUserNotFound     = errors.New("user not found")
	ErrWordNotFound     = errors.New("word not found")
	ErrBookNotFound     = errors.New("book not found")
	ErrProgressNotFound = errors.New("progress record not found")
	ErrNoActivePlan     = errors.New("no active study plan")
)
