package dao

import "errors"

var (
	ErrNotFound           = errors.New("task not found")
	ErrAlreadyExists      = errors.New("task already exists")
	ErrTerminal           = errors.New("task already finished")
	ErrProgressRegression = errors.New("task progress cannot go backwards")
)
