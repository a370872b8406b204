package data

import (
	"context"
	"maps"
	"strings"

	"github.com/go-kratos/kratos/v2/log"
)

const countryNamesQuery = `SELECT country_code, COALESCE(hstore_to_json(name)::text, '{}') AS name FROM country_name`

// CountryNames 国家名表，构造时一次性加载，之后只读。
type CountryNames struct {
	data  *Data
	count int
}

// NewCountryNames loads the whole country_name table into the data cache.
// It must run before any mapping starts.
func NewCountryNames(d *Data, logger log.Logger) (*CountryNames, error) {
	cn := &CountryNames{data: d}
	if err := cn.warm(context.Background()); err != nil {
		return nil, err
	}
	log.NewHelper(log.With(logger, "module", "data/country")).Infof("loaded %d country names", cn.count)
	return cn, nil
}

func (c *CountryNames) warm(ctx context.Context) error {
	rows, err := c.data.SQLDB().QueryContext(ctx, countryNamesQuery)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var code, nameJSON string
		if err := rows.Scan(&code, &nameJSON); err != nil {
			return err
		}
		if err := c.data.Cache().Set(ctx, countryKey(code), decodeHstore(nameJSON)); err != nil {
			return err
		}
		c.count++
	}
	return rows.Err()
}

// CountryName returns the per-language names of a country, nil if unknown.
func (c *CountryNames) CountryName(code string) map[string]string {
	v, err := c.data.Cache().Get(context.Background(), countryKey(code))
	if err != nil {
		return nil
	}
	m, ok := v.(map[string]string)
	if !ok {
		return nil
	}
	return maps.Clone(m)
}

func countryKey(code string) string {
	return "country:" + strings.ToLower(code)
}
