package toml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/ldeneuve/felicare/internal/domain"
	"github.com/ldeneuve/felicare/internal/ports"
)

const (
	queuePathKey  = "queue.path"
	queueFileName = "queue.toml"
)

// QueueRepository persists the offline operation queue as an ordered
// list of operation entries. Order in the file is creation order; a
// corrupt entry is skipped and counted instead of blocking the rest of
// the queue.
type QueueRepository struct {
	path string
	mu   *sync.RWMutex
}

var _ ports.QueueRepository = (*QueueRepository)(nil)

func NewQueueRepository(cfg *viper.Viper) (*QueueRepository, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	defaultPath := filepath.Join(homeDir, configDirName, queueFileName)

	cfg.SetConfigName(configName)
	cfg.SetConfigType(configType)
	cfg.AddConfigPath(filepath.Join(homeDir, configDirName))
	cfg.SetDefault(queuePathKey, defaultPath)

	if err := cfg.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	path := cfg.GetString(queuePathKey)
	if path == "" {
		return nil, errors.New("queue path is empty")
	}
	path, err = normalizeStoragePath(path)
	if err != nil {
		return nil, err
	}

	return &QueueRepository{path: path, mu: lockForPath(path)}, nil
}

func (r *QueueRepository) Append(ctx context.Context, op domain.QueuedOperation) error {
	if err := op.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.readSchema()
	if err != nil {
		return err
	}
	file.applyDefaults()
	file.Operations = append(file.Operations, toOperationSchema(op))

	if err := ctx.Err(); err != nil {
		return err
	}

	return writeFileAtomic(r.path, file)
}

func (r *QueueRepository) List(ctx context.Context) ([]domain.QueuedOperation, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return nil, 0, err
	}

	ops := make([]domain.QueuedOperation, 0, len(file.Operations))
	skipped := 0
	for _, entry := range file.Operations {
		op, err := fromOperationSchema(entry)
		if err != nil {
			skipped++
			continue
		}
		ops = append(ops, op)
	}

	return ops, skipped, nil
}

func (r *QueueRepository) Remove(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.readSchema()
	if err != nil {
		return err
	}
	file.applyDefaults()

	kept := file.Operations[:0]
	removed := false
	for _, entry := range file.Operations {
		if entry.ID == id {
			removed = true
			continue
		}
		kept = append(kept, entry)
	}

	if !removed {
		return nil
	}

	file.Operations = kept
	return writeFileAtomic(r.path, file)
}

func (r *QueueRepository) Len(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return 0, err
	}

	return len(file.Operations), nil
}

func (r *QueueRepository) readSchema() (queueFileSchema, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return queueFileSchema{}, nil
		}
		return queueFileSchema{}, fmt.Errorf("read queue file: %w", err)
	}

	var file queueFileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return queueFileSchema{}, fmt.Errorf("decode queue file: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return queueFileSchema{}, err
	}
	file.applyDefaults()

	return file, nil
}
