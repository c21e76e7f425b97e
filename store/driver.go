package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)

	// Course model related methods.
	CreateCourse(ctx context.Context, create *Course) (*Course, error)
	ListCourses(ctx context.Context, find *FindCourse) ([]*Course, error)
	UpdateCourse(ctx context.Context, update *UpdateCourse) (*Course, error)
	DeleteCourse(ctx context.Context, delete *DeleteCourse) error

	// Topic model related methods.
	CreateTopic(ctx context.Context, create *Topic) (*Topic, error)
	ListTopics(ctx context.Context, find *FindTopic) ([]*Topic, error)
	UpdateTopic(ctx context.Context, update *UpdateTopic) (*Topic, error)
	DeleteTopic(ctx context.Context, delete *DeleteTopic) error

	// Question model related methods.
	CreateQuestion(ctx context.Context, create *Question) (*Question, error)
	ListQuestions(ctx context.Context, find *FindQuestion) ([]*Question, error)
	UpdateQuestion(ctx context.Context, update *UpdateQuestion) (*Question, error)
	DeleteQuestion(ctx context.Context, delete *DeleteQuestion) error

	// Enrollment model related methods.
	UpsertEnrollment(ctx context.Context, upsert *Enrollment) (*Enrollment, error)
	ListEnrollments(ctx context.Context, find *FindEnrollment) ([]*Enrollment, error)
	DeleteEnrollment(ctx context.Context, delete *DeleteEnrollment) error

	// Card model related methods. UpdateCard enforces the optimistic
	// version check and returns ErrConcurrentUpdate on a lost race.
	CreateCard(ctx context.Context, create *Card) (*Card, error)
	ListCards(ctx context.Context, find *FindCard) ([]*Card, error)
	UpdateCard(ctx context.Context, update *UpdateCard) (*Card, error)
	DeleteCard(ctx context.Context, delete *DeleteCard) error
	CountCards(ctx context.Context, find *FindCard) (int64, error)

	// Attempt model related methods. Attempts are append-only.
	CreateAttempt(ctx context.Context, create *Attempt) (*Attempt, error)
	ListAttempts(ctx context.Context, find *FindAttempt) ([]*Attempt, error)
	CountAttempts(ctx context.Context, find *FindAttempt) (int64, error)
	CountActiveUsers(ctx context.Context, since int64) (int64, error)
}
