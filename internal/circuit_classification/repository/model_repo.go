package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/domain"
)

const (
	modelKeyPrefix   = "onionpop:model:"        // Model blob: onionpop:model:{name}
	savedAtKeyPrefix = "onionpop:saved:"        // Save time: onionpop:saved:{name}
	modelIndexKey    = "onionpop:models"        // Set of stored model names
	currentModelKey  = "onionpop:model-current" // Name of the model the service should serve
)

// ModelRepository keeps encoded model blobs in Redis so every API replica
// can pick up a newly trained model.
type ModelRepository struct {
	client *redis.Client
}

func NewModelRepository(client *redis.Client) *ModelRepository {
	return &ModelRepository{client: client}
}

func (r *ModelRepository) Save(ctx context.Context, name string, blob []byte) error {
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, modelKeyPrefix+name, blob, 0)
	pipe.Set(ctx, savedAtKeyPrefix+name, time.Now().UTC().Format(time.RFC3339Nano), 0)
	pipe.SAdd(ctx, modelIndexKey, name)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save model %q: %w", name, err)
	}
	return nil
}

func (r *ModelRepository) Load(ctx context.Context, name string) ([]byte, error) {
	b, err := r.client.Get(ctx, modelKeyPrefix+name).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("model %q: %w", name, domain.ErrModelNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load model %q: %w", name, err)
	}
	return b, nil
}

// SavedAt reports when name was last written.
func (r *ModelRepository) SavedAt(ctx context.Context, name string) (time.Time, error) {
	s, err := r.client.Get(ctx, savedAtKeyPrefix+name).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, fmt.Errorf("model %q: %w", name, domain.ErrModelNotFound)
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339Nano, s)
}

func (r *ModelRepository) List(ctx context.Context) ([]string, error) {
	names, err := r.client.SMembers(ctx, modelIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

// SetCurrent points the serving alias at a stored model.
func (r *ModelRepository) SetCurrent(ctx context.Context, name string) error {
	ok, err := r.client.SIsMember(ctx, modelIndexKey, name).Result()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("model %q: %w", name, domain.ErrModelNotFound)
	}
	return r.client.Set(ctx, currentModelKey, name, 0).Err()
}

func (r *ModelRepository) Current(ctx context.Context) (string, error) {
	name, err := r.client.Get(ctx, currentModelKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", domain.ErrModelNotFound
	}
	return name, err
}
