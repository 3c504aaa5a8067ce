package config

import (
	"io"
	"io/fs"
	"log/slog"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/krew-solutions/ascetic-criteria-go/asceticddd/criteria/domain/coercion"
)

const EnvPrefix = "CRITERIA_"

type Config struct {
	Log      Log      `mapstructure:"log"`
	Coercion Coercion `mapstructure:"coercion"`
	Postgres Postgres `mapstructure:"postgres"`
	HTTP     HTTP     `mapstructure:"http"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Coercion configures how date operands are read. Calendars are tried in
// the order given.
type Coercion struct {
	Calendars []string `mapstructure:"calendars"`
	Location  string   `mapstructure:"location"`
}

type Postgres struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
}

type HTTP struct {
	Addr string `mapstructure:"addr"`
}

func Default() Config {
	return Config{
		Log:      Log{Level: "info", Format: "text"},
		Coercion: Coercion{Calendars: []string{"gregorian", "solar-hijri"}, Location: "UTC"},
		HTTP:     HTTP{Addr: ":8080"},
	}
}

// Load reads the optional files and then the environment into target.
// Variables are matched by prefix: CRITERIA_POSTGRES_HOST sets
// postgres.host. Without files, ".env" is tried and may be absent.
func Load(prefix string, target any, files ...string) error {
	v := viper.New()

	optional := len(files) == 0
	if optional {
		files = []string{".env"}
	}
	for _, file := range files {
		v.SetConfigFile(file)
		if err := v.MergeInConfig(); err != nil {
			if optional && isMissing(err) {
				continue
			}
			return errors.Wrapf(err, "read config %s", file)
		}
	}

	// Flat KEY=value files such as .env use the same names as the
	// environment.
	prefixLower := strings.ToLower(prefix)
	for _, key := range v.AllKeys() {
		if strings.HasPrefix(key, prefixLower) {
			v.Set(propKey(prefixLower, key), v.Get(key))
		}
	}

	prefixUpper := strings.ToUpper(prefix)
	for _, envStr := range os.Environ() {
		key, value, ok := strings.Cut(envStr, "=")
		if !ok || !strings.HasPrefix(key, prefixUpper) {
			continue
		}
		v.Set(propKey(prefixUpper, key), value)
	}

	if err := v.Unmarshal(target); err != nil {
		return errors.Wrap(err, "failed to unmarshal config")
	}
	return nil
}

// propKey maps CRITERIA_POSTGRES_HOST to postgres.host.
func propKey(prefix, key string) string {
	k := strings.TrimPrefix(key, prefix)
	k = strings.ToLower(strings.ReplaceAll(k, "_", "."))
	return strings.TrimPrefix(k, ".")
}

func isMissing(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}

// FromEnv loads Default() overlaid with files and CRITERIA_ variables.
func FromEnv(files ...string) (Config, error) {
	cfg := Default()
	if err := Load(EnvPrefix, &cfg, files...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Enabled reports whether a Postgres source is configured at all.
func (p Postgres) Enabled() bool {
	return p.Host != ""
}

func (p Postgres) DSN() string {
	port := p.Port
	if port == 0 {
		port = 5432
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(p.Host, strconv.Itoa(port)),
		Path:   "/" + p.Name,
	}
	if p.User != "" {
		if p.Password != "" {
			u.User = url.UserPassword(p.User, p.Password)
		} else {
			u.User = url.User(p.User)
		}
	}
	return u.String()
}

func (c Coercion) DateParser() (*coercion.DateParser, error) {
	loc := time.UTC
	if c.Location != "" {
		l, err := time.LoadLocation(c.Location)
		if err != nil {
			return nil, errors.Wrap(err, "coercion.location")
		}
		loc = l
	}
	strategies := make([]coercion.CalendarStrategy, 0, len(c.Calendars))
	for _, name := range c.Calendars {
		s, err := coercion.StrategyByName(name)
		if err != nil {
			return nil, errors.Wrap(err, "coercion.calendars")
		}
		strategies = append(strategies, s)
	}
	return coercion.NewDateParser(loc, strategies...), nil
}

// Coercer builds a coercer with the configured date parser and logger.
func (c Coercion) Coercer(logger *slog.Logger) (*coercion.Coercer, error) {
	dates, err := c.DateParser()
	if err != nil {
		return nil, err
	}
	opts := []coercion.Option{coercion.WithDateParser(dates)}
	if logger != nil {
		opts = append(opts, coercion.WithLogger(logger))
	}
	return coercion.New(opts...), nil
}

func (l Log) Logger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if l.Level != "" {
		if err := level.UnmarshalText([]byte(l.Level)); err != nil {
			return nil, errors.Wrap(err, "log.level")
		}
	}
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(l.Format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return nil, errors.Errorf("log.format: unknown format \"%s\"", l.Format)
}
