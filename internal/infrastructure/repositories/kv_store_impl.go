package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domainerrors "dao-ledger.backend/internal/domain/errors"
	domainRepos "dao-ledger.backend/internal/domain/repositories"
	"dao-ledger.backend/internal/infrastructure/models"
	"dao-ledger.backend/pkg/badger"
	"dao-ledger.backend/pkg/redis"
)

// GormKVStore keeps device data in the chat store database
type GormKVStore struct {
	db *gorm.DB
}

func NewGormKVStore(db *gorm.DB) *GormKVStore {
	return &GormKVStore{db: db}
}

func (s *GormKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	var m models.KVEntry
	if err := GetDB(ctx, s.db).Where("entry_key = ?", key).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return m.Value, nil
}

func (s *GormKVStore) Set(ctx context.Context, key string, value []byte) error {
	m := &models.KVEntry{Key: key, Value: value, UpdatedAt: time.Now()}
	return GetDB(ctx, s.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "entry_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(m).Error
}

func (s *GormKVStore) Delete(ctx context.Context, key string) error {
	return GetDB(ctx, s.db).Where("entry_key = ?", key).Delete(&models.KVEntry{}).Error
}

const redisKVPrefix = "dao-ledger:kv:"

var (
	redisKVGet = redis.Get
	redisKVSet = redis.Set
	redisKVDel = redis.Del
)

// RedisKVStore keeps device data in Redis
type RedisKVStore struct{}

func NewRedisKVStore() *RedisKVStore {
	return &RedisKVStore{}
}

func (s *RedisKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := redisKVGet(ctx, redisKVPrefix+key)
	if err != nil {
		if redis.IsNil(err) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return []byte(v), nil
}

func (s *RedisKVStore) Set(ctx context.Context, key string, value []byte) error {
	return redisKVSet(ctx, redisKVPrefix+key, value, 0)
}

func (s *RedisKVStore) Delete(ctx context.Context, key string) error {
	return redisKVDel(ctx, redisKVPrefix+key)
}

type byteStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// BadgerKVStore keeps device data in the embedded badger store
type BadgerKVStore struct {
	store byteStore
}

func NewBadgerKVStore(store byteStore) *BadgerKVStore {
	return &BadgerKVStore{store: store}
}

func (s *BadgerKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.store.Get(ctx, key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, domainerrors.ErrNotFound
	}
	return v, err
}

func (s *BadgerKVStore) Set(ctx context.Context, key string, value []byte) error {
	return s.store.Set(ctx, key, value)
}

func (s *BadgerKVStore) Delete(ctx context.Context, key string) error {
	return s.store.Delete(ctx, key)
}

type sealer interface {
	Seal(plaintext []byte) (string, error)
	Open(sealedHex string) ([]byte, error)
}

// SealedKVStore encrypts values before they reach the wrapped store
type SealedKVStore struct {
	inner  domainRepos.KVStore
	sealer sealer
}

func NewSealedKVStore(inner domainRepos.KVStore, s sealer) *SealedKVStore {
	return &SealedKVStore{inner: inner, sealer: s}
}

func (s *SealedKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	sealed, err := s.inner.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	plain, err := s.sealer.Open(string(sealed))
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", domainerrors.ErrStoreCorrupt, key, err)
	}
	return plain, nil
}

func (s *SealedKVStore) Set(ctx context.Context, key string, value []byte) error {
	sealed, err := s.sealer.Seal(value)
	if err != nil {
		return err
	}
	return s.inner.Set(ctx, key, []byte(sealed))
}

func (s *SealedKVStore) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, key)
}
