package bootstrap

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/GoSim-25-26J-441/onionpop/config"
	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/modelstore"
	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/repository"
)

// OpenModelStore picks the model store named by MODEL_STORE. rdb is only
// used for the redis store.
func OpenModelStore(ctx context.Context, cfg *config.Config, rdb *redis.Client) (modelstore.Store, error) {
	switch cfg.Model.Store {
	case "file":
		return modelstore.NewFileStore(cfg.Model.Path), nil
	case "redis":
		if rdb == nil {
			return nil, fmt.Errorf("redis model store needs a redis client")
		}
		return repository.NewModelRepository(rdb), nil
	case "s3":
		return modelstore.NewS3Store(ctx, cfg.S3.Region, cfg.S3.Bucket, cfg.S3.Prefix)
	}
	return nil, fmt.Errorf("unknown model store %q", cfg.Model.Store)
}
