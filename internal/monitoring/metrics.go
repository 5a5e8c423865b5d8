package monitoring

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/GFB-Team3/backend/internal/models"
)

// StatsSource reports row counts and backend health.
type StatsSource interface {
	Stats(ctx context.Context) (models.Stats, error)
	Ping(ctx context.Context) error
}

// Service holds runtime context for monitoring and reporting.
type Service struct {
	startedAt  time.Time
	source     StatsSource
	db         *sql.DB
	metrics    *Metrics
	uploadsDir string
}

type Snapshot struct {
	TimestampUTC        string      `json:"timestamp_utc"`
	UptimeSeconds       int64       `json:"uptime_seconds"`
	StoreStatus         string      `json:"store_status"`
	HTTPActiveRequests  int64       `json:"http_active_requests"`
	HTTPTotalRequests   uint64      `json:"http_total_requests"`
	DBOpenConnections   int         `json:"db_open_connections"`
	DBInUseConnections  int         `json:"db_in_use_connections"`
	DBWaitCount         int64       `json:"db_wait_count"`
	Goroutines          int         `json:"goroutines"`
	GoMemoryAllocBytes  uint64      `json:"go_memory_alloc_bytes"`
	GoMemorySysBytes    uint64      `json:"go_memory_sys_bytes"`
	GoHeapInUseBytes    uint64      `json:"go_heap_in_use_bytes"`
	GoGCCount           uint32      `json:"go_gc_count"`
	UsersTotal          int64       `json:"users_total"`
	PinsTotal           int64       `json:"pins_total"`
	LikesTotal          int64       `json:"likes_total"`
	CommentsTotal       int64       `json:"comments_total"`
	DBSizeBytes         int64       `json:"db_size_bytes"`
	UploadsSizeBytes    int64       `json:"uploads_size_bytes"`
	UploadsFilesCount   int64       `json:"uploads_files_count"`
	UploadsFSTotalBytes uint64      `json:"uploads_fs_total_bytes"`
	UploadsFSFreeBytes  uint64      `json:"uploads_fs_free_bytes"`
	Uploads             UploadStats `json:"uploads"`
}

// NewService builds a reporter. db may be nil when the store is not SQL backed.
func NewService(startedAt time.Time, source StatsSource, db *sql.DB, metrics *Metrics, uploadsDir string) *Service {
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &Service{
		startedAt:  startedAt,
		source:     source,
		db:         db,
		metrics:    metrics,
		uploadsDir: uploadsDir,
	}
}

func (s *Service) storeState(ctx context.Context) string {
	if err := s.source.Ping(ctx); err != nil {
		return "error: " + err.Error()
	}
	return "ok"
}

func (s *Service) dbStats() sql.DBStats {
	if s.db == nil {
		return sql.DBStats{}
	}
	return s.db.Stats()
}

func (s *Service) dbSize(ctx context.Context) int64 {
	if s.db == nil {
		return 0
	}
	var size int64
	_ = s.db.QueryRowContext(ctx, `SELECT COALESCE(pg_database_size(current_database()), 0)`).Scan(&size)
	return size
}

func (s *Service) StatusText(ctx context.Context) string {
	uptime := time.Since(s.startedAt).Round(time.Second)
	activeHTTP, totalHTTP := s.metrics.httpStats()

	return strings.Join([]string{
		"Pins API Status",
		fmt.Sprintf("Uptime: %s", uptime),
		fmt.Sprintf("Store: %s", s.storeState(ctx)),
		fmt.Sprintf("HTTP active requests: %d", activeHTTP),
		fmt.Sprintf("HTTP total requests: %d", totalHTTP),
		fmt.Sprintf("DB open connections: %d", s.dbStats().OpenConnections),
		fmt.Sprintf("Go goroutines: %d", runtime.NumGoroutine()),
	}, "\n")
}

func (s *Service) StorageText(ctx context.Context) string {
	uploadsBytes := dirSize(s.uploadsDir)
	uploadsFiles := dirFileCount(s.uploadsDir)
	uploadsTotal, uploadsFree, _ := diskUsage(s.uploadsDir)
	uploads := s.metrics.UploadStats()

	return strings.Join([]string{
		"Pins API Storage",
		fmt.Sprintf("PostgreSQL DB size: %s", formatBytes(s.dbSize(ctx))),
		fmt.Sprintf("Uploads folder size (%s): %s", s.uploadsDir, formatBytes(uploadsBytes)),
		fmt.Sprintf("Uploads files count: %d", uploadsFiles),
		fmt.Sprintf("Uploads disk free: %s", formatBytes(int64(uploadsFree))),
		fmt.Sprintf("Uploads disk total: %s", formatBytes(int64(uploadsTotal))),
		fmt.Sprintf("Uploads handled: %d (failed %d, avg %.1f ms)", uploads.RequestsTotal, uploads.FailedTotal, uploads.AvgDurationMS),
	}, "\n")
}

func (s *Service) ConnectionsText() string {
	stats := s.dbStats()
	activeHTTP, totalHTTP := s.metrics.httpStats()

	return strings.Join([]string{
		"Pins API Connections",
		fmt.Sprintf("DB MaxOpenConnections: %d", stats.MaxOpenConnections),
		fmt.Sprintf("DB OpenConnections: %d", stats.OpenConnections),
		fmt.Sprintf("DB InUse: %d", stats.InUse),
		fmt.Sprintf("DB Idle: %d", stats.Idle),
		fmt.Sprintf("DB WaitCount: %d", stats.WaitCount),
		fmt.Sprintf("HTTP active requests: %d", activeHTTP),
		fmt.Sprintf("HTTP total requests: %d", totalHTTP),
	}, "\n")
}

func (s *Service) RuntimeText() string {
	var memory runtime.MemStats
	runtime.ReadMemStats(&memory)

	return strings.Join([]string{
		"Pins API Runtime",
		fmt.Sprintf("Go version: %s", runtime.Version()),
		fmt.Sprintf("CPU cores: %d", runtime.NumCPU()),
		fmt.Sprintf("Goroutines: %d", runtime.NumGoroutine()),
		fmt.Sprintf("Memory alloc: %s", formatBytes(int64(memory.Alloc))),
		fmt.Sprintf("Memory sys: %s", formatBytes(int64(memory.Sys))),
		fmt.Sprintf("Heap in use: %s", formatBytes(int64(memory.HeapInuse))),
		fmt.Sprintf("GC cycles: %d", memory.NumGC),
	}, "\n")
}

func (s *Service) ContentText(ctx context.Context) string {
	stats, err := s.source.Stats(ctx)
	if err != nil {
		return "Pins API Content\nunavailable: " + err.Error()
	}

	return strings.Join([]string{
		"Pins API Content",
		fmt.Sprintf("Users total: %d", stats.Users),
		fmt.Sprintf("Pins total: %d", stats.Pins),
		fmt.Sprintf("Likes total: %d", stats.Likes),
		fmt.Sprintf("Comments total: %d", stats.Comments),
	}, "\n")
}

func (s *Service) AllText(ctx context.Context) string {
	return strings.Join([]string{
		s.StatusText(ctx),
		"",
		s.StorageText(ctx),
		"",
		s.ConnectionsText(),
		"",
		s.RuntimeText(),
		"",
		s.ContentText(ctx),
	}, "\n")
}

func (s *Service) Snapshot(ctx context.Context) Snapshot {
	stats := s.dbStats()
	activeHTTP, totalHTTP := s.metrics.httpStats()
	uploadsTotal, uploadsFree, _ := diskUsage(s.uploadsDir)

	var memory runtime.MemStats
	runtime.ReadMemStats(&memory)

	snap := Snapshot{
		TimestampUTC:        time.Now().UTC().Format(time.RFC3339),
		UptimeSeconds:       int64(time.Since(s.startedAt).Seconds()),
		StoreStatus:         s.storeState(ctx),
		HTTPActiveRequests:  activeHTTP,
		HTTPTotalRequests:   totalHTTP,
		DBOpenConnections:   stats.OpenConnections,
		DBInUseConnections:  stats.InUse,
		DBWaitCount:         stats.WaitCount,
		Goroutines:          runtime.NumGoroutine(),
		GoMemoryAllocBytes:  memory.Alloc,
		GoMemorySysBytes:    memory.Sys,
		GoHeapInUseBytes:    memory.HeapInuse,
		GoGCCount:           memory.NumGC,
		DBSizeBytes:         s.dbSize(ctx),
		UploadsSizeBytes:    dirSize(s.uploadsDir),
		UploadsFilesCount:   dirFileCount(s.uploadsDir),
		UploadsFSTotalBytes: uploadsTotal,
		UploadsFSFreeBytes:  uploadsFree,
		Uploads:             s.metrics.UploadStats(),
	}

	if counts, err := s.source.Stats(ctx); err == nil {
		snap.UsersTotal = counts.Users
		snap.PinsTotal = counts.Pins
		snap.LikesTotal = counts.Likes
		snap.CommentsTotal = counts.Comments
	}

	return snap
}

func dirSize(path string) int64 {
	var total int64
	_ = filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		info, infoErr := d.Info()
		if infoErr != nil {
			return nil
		}
		total += info.Size()
		return nil
	})
	return total
}

func dirFileCount(path string) int64 {
	var total int64
	_ = filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		total++
		return nil
	})
	return total
}

func formatBytes(value int64) string {
	units := []string{"B", "KB", "MB", "GB", "TB"}
	size := float64(value)
	unit := 0

	for size >= 1024 && unit < len(units)-1 {
		size /= 1024
		unit++
	}

	if unit == 0 {
		return fmt.Sprintf("%d %s", value, units[unit])
	}
	return fmt.Sprintf("%.2f %s", size, units[unit])
}
