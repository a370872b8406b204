package biz

import (
	"context"
	"sync/atomic"

	"github.com/go-kratos/kratos/v2/log"

	"nominatim-indexer/internal/metrics"
)

const (
	minRank = 1
	maxRank = 30
)

// UpdateRepo 增量更新所需的 indexed_status 读写。
type UpdateRepo interface {
	PlaceSectors(ctx context.Context, rank int) ([]int, error)
	PlacesInSector(ctx context.Context, rank, sector int) ([]UpdateStatusRow, error)
	ClearPlaceStatus(ctx context.Context, placeID int64) error
	InterpolationSectors(ctx context.Context) ([]int, error)
	InterpolationsInSector(ctx context.Context, sector int) ([]UpdateStatusRow, error)
	ClearInterpolationStatus(ctx context.Context, placeID int64) error
	// MarkIndexed 将全局 import_status 标记为已索引。
	MarkIndexed(ctx context.Context) error
}

// UpdateLock 跨进程互斥（可选），TryLock 不阻塞。
type UpdateLock interface {
	TryLock() (bool, error)
	Unlock() error
}

// UpdateStats 一次增量更新的计数。
type UpdateStats struct {
	UpdatedPlaces          int
	DeletedPlaces          int
	UpdatedInterpolations  int
	DeletedInterpolations  int
	InterpolationDocuments int
}

// Updater 增量更新引擎：按 rank 升序处理 placex，再处理插值线。
// 同一时刻只允许一个更新在运行，并发调用直接放弃。
type Updater struct {
	repo    UpdateRepo
	builder *DocumentBuilder
	sink    IndexSink
	lock    UpdateLock
	metrics *metrics.Metrics
	log     *log.Helper

	running atomic.Bool
}

func NewUpdater(repo UpdateRepo, builder *DocumentBuilder, sink IndexSink, lock UpdateLock, m *metrics.Metrics, logger log.Logger) *Updater {
	return &Updater{
		repo:    repo,
		builder: builder,
		sink:    sink,
		lock:    lock,
		metrics: m,
		log:     log.NewHelper(log.With(logger, "module", "biz/updater")),
	}
}

// Running reports whether an update currently holds the guard.
func (u *Updater) Running() bool {
	return u.running.Load()
}

// Update runs one full update. started is false when another run held the
// guard; that case is not an error.
func (u *Updater) Update(ctx context.Context) (stats UpdateStats, started bool, err error) {
	if !u.running.CompareAndSwap(false, true) {
		u.skipped(ctx)
		return stats, false, nil
	}
	defer u.running.Store(false)

	if u.lock != nil {
		ok, err := u.lock.TryLock()
		if err != nil {
			u.metrics.UpdateRuns.WithLabelValues("failed").Inc()
			return stats, false, err
		}
		if !ok {
			u.skipped(ctx)
			return stats, false, nil
		}
		defer func() {
			if err := u.lock.Unlock(); err != nil {
				u.log.WithContext(ctx).Errorf("release update lock: %v", err)
			}
		}()
	}

	u.metrics.UpdateRunning.Set(1)
	defer u.metrics.UpdateRunning.Set(0)

	if err = u.run(ctx, &stats); err != nil {
		u.metrics.UpdateRuns.WithLabelValues("failed").Inc()
		u.log.WithContext(ctx).Errorf("update failed: %v", err)
		return stats, true, err
	}
	u.metrics.UpdateRuns.WithLabelValues("completed").Inc()
	return stats, true, nil
}

func (u *Updater) skipped(ctx context.Context) {
	u.metrics.UpdateRuns.WithLabelValues("skipped").Inc()
	u.log.WithContext(ctx).Info("Update already in progress")
}

func (u *Updater) run(ctx context.Context, stats *UpdateStats) error {
	u.builder.ResetCache()
	for rank := minRank; rank <= maxRank; rank++ {
		u.log.WithContext(ctx).Infof("Starting rank %d", rank)
		sectors, err := u.repo.PlaceSectors(ctx, rank)
		if err != nil {
			return err
		}
		for _, sector := range sectors {
			rows, err := u.repo.PlacesInSector(ctx, rank, sector)
			if err != nil {
				return err
			}
			for _, row := range rows {
				if err := u.updatePlace(ctx, rank, row, stats); err != nil {
					return err
				}
			}
		}
	}
	u.log.WithContext(ctx).Infof("%d places created or updated, %d deleted", stats.UpdatedPlaces, stats.DeletedPlaces)

	// interpolation documents are always useful, no check needed
	u.log.WithContext(ctx).Info("Starting interpolations")
	sectors, err := u.repo.InterpolationSectors(ctx)
	if err != nil {
		return err
	}
	for _, sector := range sectors {
		rows, err := u.repo.InterpolationsInSector(ctx, sector)
		if err != nil {
			return err
		}
		for _, row := range rows {
			if err := u.updateInterpolation(ctx, row, stats); err != nil {
				return err
			}
		}
	}
	u.log.WithContext(ctx).Infof("%d interpolations created or updated, %d deleted, %d documents added or updated",
		stats.UpdatedInterpolations, stats.DeletedInterpolations, stats.InterpolationDocuments)

	if err := u.sink.Finish(ctx); err != nil {
		u.sinkFailed(ctx, "finish", 0, err)
	}
	if err := u.repo.MarkIndexed(ctx); err != nil {
		return err
	}
	u.log.WithContext(ctx).Info("Finished updating")
	return nil
}

func (u *Updater) updatePlace(ctx context.Context, rank int, row UpdateStatusRow, stats *UpdateStats) error {
	if err := u.repo.ClearPlaceStatus(ctx, row.PlaceID); err != nil {
		return err
	}

	status := row.Status
	if !validStatus(status) {
		u.metrics.UpdateRows.WithLabelValues("place", "unknown").Inc()
		u.log.WithContext(ctx).Errorf("Unknown index status %d for place %d", status, row.PlaceID)
		return nil
	}
	if status == StatusDelete || (status == StatusUpdate && rank == maxRank) {
		u.delete(ctx, row.PlaceID)
		if status == StatusDelete {
			stats.DeletedPlaces++
			u.metrics.UpdateRows.WithLabelValues("place", "deleted").Inc()
			return nil
		}
		// always rebuilt at the last rank
		status = StatusCreate
	}
	stats.UpdatedPlaces++

	docs, err := u.builder.PlaceDocuments(ctx, row.PlaceID)
	if err != nil {
		return err
	}
	wasUseful := false
	for _, doc := range docs {
		if !doc.IsUsefulForIndex() {
			continue
		}
		switch status {
		case StatusCreate:
			if err := u.sink.Create(ctx, doc); err != nil {
				u.sinkFailed(ctx, "create", row.PlaceID, err)
			}
		case StatusUpdate:
			if err := u.sink.UpdateOrCreate(ctx, doc); err != nil {
				u.sinkFailed(ctx, "update", row.PlaceID, err)
			}
			wasUseful = true
		}
	}
	if status == StatusUpdate && !wasUseful {
		// only below the last rank
		u.delete(ctx, row.PlaceID)
		stats.UpdatedPlaces--
		u.metrics.UpdateRows.WithLabelValues("place", "dropped").Inc()
		return nil
	}
	u.metrics.UpdateRows.WithLabelValues("place", "updated").Inc()
	return nil
}

func (u *Updater) updateInterpolation(ctx context.Context, row UpdateStatusRow, stats *UpdateStats) error {
	if err := u.repo.ClearInterpolationStatus(ctx, row.PlaceID); err != nil {
		return err
	}

	if !validStatus(row.Status) {
		u.metrics.UpdateRows.WithLabelValues("interpolation", "unknown").Inc()
		u.log.WithContext(ctx).Errorf("Unknown index status %d for interpolation %d", row.Status, row.PlaceID)
		return nil
	}
	if row.Status != StatusCreate {
		u.delete(ctx, row.PlaceID)
		if row.Status == StatusDelete {
			stats.DeletedInterpolations++
			u.metrics.UpdateRows.WithLabelValues("interpolation", "deleted").Inc()
			return nil
		}
	}
	stats.UpdatedInterpolations++

	docs, err := u.builder.InterpolationDocuments(ctx, row.PlaceID)
	if err != nil {
		return err
	}
	for _, doc := range docs {
		if err := u.sink.Create(ctx, doc); err != nil {
			u.sinkFailed(ctx, "create", row.PlaceID, err)
		}
		stats.InterpolationDocuments++
	}
	u.metrics.UpdateRows.WithLabelValues("interpolation", "updated").Inc()
	return nil
}

func (u *Updater) delete(ctx context.Context, placeID int64) {
	if err := u.sink.Delete(ctx, placeID); err != nil {
		u.sinkFailed(ctx, "delete", placeID, err)
	}
}

func (u *Updater) sinkFailed(ctx context.Context, op string, placeID int64, err error) {
	u.metrics.SinkFailures.Inc()
	u.log.WithContext(ctx).Errorf("sink %s of place %d failed: %v", op, placeID, err)
}

func validStatus(s int) bool {
	return s == StatusCreate || s == StatusUpdate || s == StatusDelete
}
