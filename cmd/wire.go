package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ldeneuve/felicare/internal/adapters/analytics"
	"github.com/ldeneuve/felicare/internal/adapters/connectivity"
	"github.com/ldeneuve/felicare/internal/adapters/ids"
	"github.com/ldeneuve/felicare/internal/adapters/profile"
	"github.com/ldeneuve/felicare/internal/adapters/reminders"
	"github.com/ldeneuve/felicare/internal/adapters/remote/rest"
	tomlrepo "github.com/ldeneuve/felicare/internal/adapters/repo/toml"
	"github.com/ldeneuve/felicare/internal/adapters/tokens"
	"github.com/ldeneuve/felicare/internal/application"
	"github.com/ldeneuve/felicare/internal/domain"
	"github.com/ldeneuve/felicare/internal/ports"
)

type app struct {
	cfg          *viper.Viper
	profile      ports.ActiveProfile
	monitor      ports.ConnectivityMonitor
	tokens       ports.TokenStore
	cache        *application.SummaryCache
	reader       *application.SummaryReader
	queue        *application.OfflineQueue
	coordinator  *application.Coordinator
	orchestrator *application.SyncOrchestrator
	closeSink    func()
	now          func() time.Time
}

type scheduleConfig struct {
	ID         string   `mapstructure:"id"`
	Kind       string   `mapstructure:"kind"`
	Medication string   `mapstructure:"medication"`
	Dose       float64  `mapstructure:"dose"`
	Unit       string   `mapstructure:"unit"`
	Volume     float64  `mapstructure:"volume"`
	Times      []string `mapstructure:"times"`
}

func wireApp() (*app, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	cfg := viper.New()
	cfg.SetConfigName("config")
	cfg.SetConfigType("toml")
	cfg.AddConfigPath(filepath.Join(homeDir, ".felicare"))
	if err := cfg.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	summaryRepo, err := tomlrepo.NewSummaryRepository(cfg)
	if err != nil {
		return nil, fmt.Errorf("wire summary repository: %w", err)
	}
	queueRepo, err := tomlrepo.NewQueueRepository(cfg)
	if err != nil {
		return nil, fmt.Errorf("wire queue repository: %w", err)
	}

	sink, closeSink, err := wireSink(cfg)
	if err != nil {
		return nil, err
	}

	clock := ports.SystemClock{}

	tokenStore, err := tokens.NewDefault(filepath.Join(homeDir, ".felicare", "secrets"))
	if err != nil {
		return nil, fmt.Errorf("wire token store: %w", err)
	}

	authToken := strings.TrimSpace(cfg.GetString("remote.token"))
	if authToken == "" {
		// Best effort: a missing token only matters once a request is
		// actually made.
		if stored, err := tokenStore.Get(context.Background(), tokens.DefaultKey); err == nil {
			authToken = strings.TrimSpace(stored)
		}
	}

	baseURL := strings.TrimSpace(cfg.GetString("remote.base_url"))
	remote := &rest.Client{
		BaseURL:    baseURL,
		AuthToken:  authToken,
		HTTPClient: http.DefaultClient,
	}

	// Without a remote endpoint every write goes through the offline
	// queue.
	var monitor ports.ConnectivityMonitor
	if baseURL == "" {
		monitor = connectivity.NewStatic(false)
	} else {
		monitor = connectivity.NewProbe(baseURL, nil, cfg.GetDuration("remote.probe_interval"))
	}

	cache := application.NewSummaryCache(summaryRepo, clock, sink)
	reader := application.NewSummaryReader(remote, clock, sink)
	guard := application.NewDuplicateGuard(cache, remote, clock, sink)
	queue := application.NewOfflineQueue(queueRepo, clock, sink,
		cfg.GetInt("queue.warn_at"), cfg.GetInt("queue.max_depth"))
	activeProfile := profile.NewConfigProfile(cfg)

	coordinator := application.NewCoordinator(
		activeProfile, remote, cache, reader, guard, queue,
		monitor, reminders.NewEventCanceller(sink), sink, clock, ids.UUIDGenerator{},
	)
	orchestrator := application.NewSyncOrchestrator(queue, coordinator.Replay, monitor, clock)

	if err := cache.ClearExpired(context.Background()); err != nil {
		return nil, err
	}

	return &app{
		cfg:          cfg,
		profile:      activeProfile,
		monitor:      monitor,
		tokens:       tokenStore,
		cache:        cache,
		reader:       reader,
		queue:        queue,
		coordinator:  coordinator,
		orchestrator: orchestrator,
		closeSink:    closeSink,
		now:          time.Now,
	}, nil
}

func wireSink(cfg *viper.Viper) (ports.AnalyticsSink, func(), error) {
	path := strings.TrimSpace(cfg.GetString("analytics.path"))
	if path == "" {
		return analytics.NopSink{}, func() {}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, nil, fmt.Errorf("create analytics directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open analytics log: %w", err)
	}

	sink := analytics.NewWriterSink(file)
	return sink, func() {
		sink.Close()
		_ = file.Close()
	}, nil
}

func (a *app) close() {
	if a.closeSink != nil {
		a.closeSink()
	}
}

// todaysSchedules materializes the configured schedules against
// today's local date. Reminder times are configured as "15:04" wall
// clock values.
func (a *app) todaysSchedules() ([]domain.Schedule, error) {
	var entries []scheduleConfig
	if err := a.cfg.UnmarshalKey("schedules", &entries); err != nil {
		return nil, fmt.Errorf("parse schedules: %w", err)
	}

	now := a.now()
	schedules := make([]domain.Schedule, 0, len(entries))
	for _, entry := range entries {
		schedule := domain.Schedule{
			ID:             entry.ID,
			Kind:           domain.TreatmentKind(entry.Kind),
			MedicationName: entry.Medication,
			TargetDose:     entry.Dose,
			DoseUnit:       entry.Unit,
			TargetVolume:   entry.Volume,
		}
		for _, raw := range entry.Times {
			clock, err := time.ParseInLocation("15:04", strings.TrimSpace(raw), time.Local)
			if err != nil {
				return nil, fmt.Errorf("parse schedule time %q: %w", raw, err)
			}
			slot := time.Date(now.Year(), now.Month(), now.Day(),
				clock.Hour(), clock.Minute(), 0, 0, time.Local)
			schedule.ReminderTimes = append(schedule.ReminderTimes, slot)
		}
		schedules = append(schedules, schedule)
	}

	return schedules, nil
}
