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
	summariesPathKey  = "summaries.path"
	summariesFileName = "summaries.toml"
)

// SummaryRepository persists one entry per (owner, subject, date) in a
// single TOML file under the felicare config directory.
type SummaryRepository struct {
	path string
	mu   *sync.RWMutex
}

var _ ports.SummaryRepository = (*SummaryRepository)(nil)

func NewSummaryRepository(cfg *viper.Viper) (*SummaryRepository, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	defaultPath := filepath.Join(homeDir, configDirName, summariesFileName)

	cfg.SetConfigName(configName)
	cfg.SetConfigType(configType)
	cfg.AddConfigPath(filepath.Join(homeDir, configDirName))
	cfg.SetDefault(summariesPathKey, defaultPath)

	if err := cfg.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	path := cfg.GetString(summariesPathKey)
	if path == "" {
		return nil, errors.New("summaries path is empty")
	}
	path, err = normalizeStoragePath(path)
	if err != nil {
		return nil, err
	}

	return &SummaryRepository{path: path, mu: lockForPath(path)}, nil
}

func (r *SummaryRepository) Get(ctx context.Context, key domain.SummaryKey) (domain.DailySummary, error) {
	if err := ctx.Err(); err != nil {
		return domain.DailySummary{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return domain.DailySummary{}, err
	}

	wanted := summaryStorageKey(key)
	for _, entry := range file.Summaries {
		if entry.Key == wanted {
			return fromSummarySchema(entry), nil
		}
	}

	return domain.DailySummary{}, domain.ErrSummaryNotFound
}

func (r *SummaryRepository) Save(ctx context.Context, summary domain.DailySummary) error {
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

	encoded := toSummarySchema(summary)
	updated := false
	for i := range file.Summaries {
		if file.Summaries[i].Key == encoded.Key {
			file.Summaries[i] = encoded
			updated = true
			break
		}
	}
	if !updated {
		file.Summaries = append(file.Summaries, encoded)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	return writeFileAtomic(r.path, file)
}

func (r *SummaryRepository) DeleteOtherDates(ctx context.Context, today string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.readSchema()
	if err != nil {
		return 0, err
	}
	file.applyDefaults()

	kept := file.Summaries[:0]
	purged := 0
	for _, entry := range file.Summaries {
		if entry.Date == today {
			kept = append(kept, entry)
			continue
		}
		purged++
	}

	if purged == 0 {
		return 0, nil
	}

	file.Summaries = kept
	if err := writeFileAtomic(r.path, file); err != nil {
		return 0, err
	}

	return purged, nil
}

func (r *SummaryRepository) readSchema() (summaryFileSchema, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return summaryFileSchema{}, nil
		}
		return summaryFileSchema{}, fmt.Errorf("read summaries file: %w", err)
	}

	var file summaryFileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return summaryFileSchema{}, fmt.Errorf("decode summaries file: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return summaryFileSchema{}, err
	}
	file.applyDefaults()

	return file, nil
}
