package conf

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-kratos/kratos/v2/config"
	"github.com/go-kratos/kratos/v2/config/file"
	_ "github.com/go-kratos/kratos/v2/encoding/yaml"
)

// Bootstrap 配置根节点。
type Bootstrap struct {
	Server *Server `json:"server"`
	Data   *Data   `json:"data"`
	Index  *Index  `json:"index"`
	Import *Import `json:"import"`
	Update *Update `json:"update"`
	Log    *Log    `json:"log"`
}

type Server struct {
	Http *Server_HTTP `json:"http"`
}

type Server_HTTP struct {
	Network   string   `json:"network"`
	Addr      string   `json:"addr"`
	Timeout   Duration `json:"timeout"`
	RateLimit float64  `json:"rate_limit"` // 每秒请求数，0 不限流
}

type Data struct {
	Database *Data_Database `json:"database"`
}

type Data_Database struct {
	Driver        string   `json:"driver"`
	Source        string   `json:"source"`
	Debug         bool     `json:"debug"`
	SlowThreshold Duration `json:"slow_threshold"`
	MaxOpenConns  int      `json:"max_open_conns"`
	MaxIdleConns  int      `json:"max_idle_conns"`
}

// Index 本地 bleve 索引。
type Index struct {
	Path      string   `json:"path"` // 为空时使用内存索引
	Languages []string `json:"languages"`
	BatchSize int      `json:"batch_size"`
}

type Import struct {
	CountryCodes     []string `json:"country_codes"`
	AddressCacheSize int      `json:"address_cache_size"` // 0 关闭
}

type Update struct {
	LockFile string `json:"lock_file"` // 为空时只做进程内互斥
}

type Log struct {
	Level  string `json:"level"`
	Format string `json:"format"` // json | console
}

// Duration accepts "5s" style strings and plain nanosecond numbers.
type Duration time.Duration

func (d Duration) AsDuration() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case float64:
		*d = Duration(time.Duration(t))
	case string:
		dur, err := time.ParseDuration(t)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", t, err)
		}
		*d = Duration(dur)
	case nil:
		*d = 0
	default:
		return fmt.Errorf("invalid duration %v", v)
	}
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Load 读取配置文件（或目录），并补齐缺省值与环境变量覆盖。
func Load(path string) (*Bootstrap, error) {
	c := config.New(config.WithSource(file.NewSource(path)))
	defer c.Close()
	if err := c.Load(); err != nil {
		return nil, err
	}
	var bc Bootstrap
	if err := c.Scan(&bc); err != nil {
		return nil, err
	}
	bc.applyDefaults()
	if dsn := os.Getenv("PG_DSN"); dsn != "" {
		bc.Data.Database.Source = dsn
	}
	return &bc, nil
}

// Default returns a configuration with every default applied.
func Default() *Bootstrap {
	bc := &Bootstrap{}
	bc.applyDefaults()
	return bc
}

func (bc *Bootstrap) applyDefaults() {
	if bc.Server == nil {
		bc.Server = &Server{}
	}
	if bc.Server.Http == nil {
		bc.Server.Http = &Server_HTTP{}
	}
	if bc.Server.Http.Addr == "" {
		bc.Server.Http.Addr = "0.0.0.0:2322"
	}
	if bc.Server.Http.Timeout == 0 {
		bc.Server.Http.Timeout = Duration(10 * time.Second)
	}
	if bc.Data == nil {
		bc.Data = &Data{}
	}
	if bc.Data.Database == nil {
		bc.Data.Database = &Data_Database{}
	}
	db := bc.Data.Database
	if db.Driver == "" {
		db.Driver = "postgres"
	}
	if db.SlowThreshold == 0 {
		db.SlowThreshold = Duration(500 * time.Millisecond)
	}
	if db.MaxOpenConns == 0 {
		db.MaxOpenConns = 100
	}
	if db.MaxIdleConns == 0 {
		db.MaxIdleConns = 10
	}
	if bc.Index == nil {
		bc.Index = &Index{}
	}
	if len(bc.Index.Languages) == 0 {
		bc.Index.Languages = []string{"de", "en", "fr", "it"}
	}
	if bc.Index.BatchSize <= 0 {
		bc.Index.BatchSize = 10000
	}
	if bc.Import == nil {
		bc.Import = &Import{}
	}
	if bc.Update == nil {
		bc.Update = &Update{}
	}
	if bc.Log == nil {
		bc.Log = &Log{}
	}
	if bc.Log.Level == "" {
		bc.Log.Level = "info"
	}
	bc.Log.Level = strings.ToLower(bc.Log.Level)
	if bc.Log.Format == "" {
		bc.Log.Format = "json"
	}
}
