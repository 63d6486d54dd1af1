// Package archive periodically exports a JSON snapshot of aggregate
// stats and completed tasks to object storage.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"tasktrack/internal/clock"
	"tasktrack/internal/domain"
	"tasktrack/internal/service"
	"tasktrack/internal/storage"
)

// Archiver drives the snapshot export loop.
type Archiver interface {
	Start(ctx context.Context) error
	Shutdown()
	ExportOnce(ctx context.Context) (string, error)
}

type Config struct {
	Bucket    string
	KeyPrefix string
	Interval  time.Duration
	Logger    *logrus.Logger
}

type archiver struct {
	cfg     Config
	tasks   service.TaskService
	stats   service.StatsService
	storage storage.Service
	clock   clock.Clock

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func New(cfg Config, tasks service.TaskService, stats service.StatsService, store storage.Service, clk clock.Clock) Archiver {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &archiver{
		cfg:     cfg,
		tasks:   tasks,
		stats:   stats,
		storage: store,
		clock:   clk,
	}
}

func (a *archiver) Start(ctx context.Context) error {
	if a.cfg.Bucket == "" {
		return fmt.Errorf("archive bucket is required")
	}

	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ticker := time.NewTicker(a.cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				location, err := a.ExportOnce(runCtx)
				if err != nil {
					a.cfg.Logger.Warnf("export snapshot: %v", err)
					continue
				}
				a.cfg.Logger.Infof("exported snapshot to %s", location)
			}
		}
	}()

	a.cfg.Logger.Infof("archiver started, interval %s", a.cfg.Interval)
	return nil
}

func (a *archiver) Shutdown() {
	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()
}

type snapshot struct {
	ExportedAt     time.Time       `json:"exportedAt"`
	TotalTasks     int64           `json:"totalTasks"`
	ActiveTasks    int64           `json:"activeTasks"`
	CompletedTasks int64           `json:"completedTasks"`
	TotalUsers     int64           `json:"totalUsers"`
	Completed      []snapshotEntry `json:"completed"`
}

type snapshotEntry struct {
	ID          int64  `json:"id"`
	UserID      int64  `json:"userId"`
	Title       string `json:"title"`
	Priority    string `json:"priority"`
	CompletedAt string `json:"completedAt"`
}

// ExportOnce serializes current stats plus all completed tasks and
// uploads them under a timestamped key.
func (a *archiver) ExportOnce(ctx context.Context) (string, error) {
	stats, err := a.stats.Collect(ctx)
	if err != nil {
		return "", fmt.Errorf("collect stats: %w", err)
	}

	tasks, err := a.tasks.ListTasks(ctx)
	if err != nil {
		return "", fmt.Errorf("list tasks: %w", err)
	}

	now := a.clock.Now()
	snap := snapshot{
		ExportedAt:     now,
		TotalTasks:     stats.TotalTasks,
		ActiveTasks:    stats.ActiveTasks,
		CompletedTasks: stats.CompletedTasks,
		TotalUsers:     stats.TotalUsers,
	}
	for _, task := range tasks {
		if task.Status != domain.TaskStatusCompleted || task.CompletedAt == nil {
			continue
		}
		snap.Completed = append(snap.Completed, snapshotEntry{
			ID:          task.ID,
			UserID:      task.UserID,
			Title:       task.Title,
			Priority:    string(task.Priority),
			CompletedAt: task.CompletedAt.Format(time.RFC3339),
		})
	}

	body, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	key := a.snapshotKey(now)
	location, err := a.storage.PutSnapshot(ctx, a.cfg.Bucket, key, body)
	if err != nil {
		return "", err
	}
	return location, nil
}

func (a *archiver) snapshotKey(now time.Time) string {
	name := fmt.Sprintf("snapshot-%s-%s.json", now.UTC().Format("20060102T150405Z"), uuid.NewString())
	prefix := strings.Trim(a.cfg.KeyPrefix, "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}
