package data

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"nominatim-indexer/internal/biz"
	"nominatim-indexer/internal/conf"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/store/go_cache/v4"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
	"github.com/jackc/pgx/v5/stdlib"
	gocache "github.com/patrickmn/go-cache"
	"github.com/qustavo/sqlhooks/v2"
)

// ProviderSet is data providers.
var ProviderSet = wire.NewSet(
	NewData,
	NewSqlDriver,
	NewCountryNames,
	NewPlaceRepo,
	NewUpdateRepo,
	NewBleveSink,
	NewUpdateLock,
	wire.Bind(new(biz.CountryNameLookup), new(*CountryNames)),
	wire.Bind(new(biz.IndexSink), new(*BleveSink)),
)

// Data .
type Data struct {
	cache  cache.CacheInterface[any]
	conf   *conf.Data
	sqlDrv *entsql.Driver
	log    *log.Helper
}

// SQLDB 返回共享的 *sql.DB（由 ent 驱动管理的连接池）
func (d *Data) SQLDB() *sql.DB {
	if d.sqlDrv != nil {
		return d.sqlDrv.DB()
	}
	return nil
}

// Cache 返回进程内缓存（不过期，显式预热）
func (d *Data) Cache() cache.CacheInterface[any] {
	return d.cache
}

// Ping 检查数据库可用性
func (d *Data) Ping(ctx context.Context) error {
	db := d.SQLDB()
	if db == nil {
		return fmt.Errorf("database not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}

// NewData .
func NewData(
	c *conf.Data,
	drv *entsql.Driver,
	logger log.Logger) (*Data, func(), error) {
	store := go_cache.NewGoCache(gocache.New(gocache.NoExpiration, 0))
	data := &Data{
		conf:   c,
		cache:  cache.New[any](store),
		sqlDrv: drv,
		log:    log.NewHelper(log.With(logger, "module", "data")),
	}
	cleanup := func() {
		data.log.Info("closing the data resources")
		if err := drv.Close(); err != nil {
			data.log.Errorf("close database: %v", err)
		}
	}
	return data, cleanup, nil
}

var registerPgx sync.Once

func NewSqlDriver(c *conf.Data) (*entsql.Driver, error) {
	switch c.Database.Driver {
	case "postgres", "postgresql", "pgx":
		return newPostgresDriver(c)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", c.Database.Driver)
	}
}

func newPostgresDriver(c *conf.Data) (*entsql.Driver, error) {
	registerPgx.Do(func() {
		sql.Register("pgxWithHooks", sqlhooks.Wrap(&stdlib.Driver{}, &Hooks{Slow: c.Database.SlowThreshold.AsDuration()}))
	})
	db, err := sql.Open("pgxWithHooks", c.Database.Source)
	if err != nil {
		return nil, err
	}
	db.SetMaxIdleConns(c.Database.MaxIdleConns)
	db.SetMaxOpenConns(c.Database.MaxOpenConns)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(time.Minute * 10)
	return entsql.OpenDB(dialect.Postgres, db), nil
}

// newDataForDB wraps an already opened *sql.DB (tests, tooling).
func newDataForDB(db *sql.DB, logger log.Logger) *Data {
	d, _, _ := NewData(&conf.Data{Database: &conf.Data_Database{Driver: dialect.Postgres}}, entsql.OpenDB(dialect.Postgres, db), logger)
	return d
}
