package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"social_match_service/internal/chat/domain"
	"social_match_service/pkg/database"
	"social_match_service/pkg/logger"

	"go.uber.org/zap"
)

// ErrUserNotFound no row for the requested id
var ErrUserNotFound = errors.New("no user found with given id")

// UserRepository definition get user display info
type UserRepository interface {
	FindByID(ctx context.Context, id int64) (*domain.ChatUser, error)
}

type userRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository create a UserRepository
func NewUserRepository(db *pgxpool.Pool) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) FindByID(ctx context.Context, id int64) (*domain.ChatUser, error) {
	row := r.db.QueryRow(ctx, "SELECT id, name FROM users WHERE id = $1", id)

	var user domain.ChatUser
	if err := row.Scan(&user.ID, &user.Name); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

type cachedUserRepository struct {
	inner UserRepository
	cache database.RedisRepository[domain.ChatUser]
	ttl   time.Duration
}

// NewCachedUserRepository wrap a UserRepository with a redis read-through cache
func NewCachedUserRepository(inner UserRepository, cache database.RedisRepository[domain.ChatUser], ttl time.Duration) UserRepository {
	return &cachedUserRepository{inner: inner, cache: cache, ttl: ttl}
}

func (r *cachedUserRepository) FindByID(ctx context.Context, id int64) (*domain.ChatUser, error) {
	key := fmt.Sprintf("chat:user:%d", id)

	if user, err := r.cache.Get(ctx, key); err == nil {
		return &user, nil
	}

	user, err := r.inner.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := r.cache.Set(ctx, key, *user, r.ttl); err != nil {
		logger.Log.Warn("user cache set failed", zap.Int64("userID", id), zap.Error(err))
	}
	return user, nil
}
