package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// LookupFunc resolves one environment variable. os.LookupEnv is the usual
// implementation.
type LookupFunc func(key string) (string, bool)

// Load reads the configuration from the process environment and validates it.
func Load() (*Config, error) {
	return LoadFrom(os.LookupEnv)
}

// LoadFrom reads the configuration through lookup. Struct fields are bound
// with tags:
//
//	env      primary variable name
//	envAlt   fallback variable name
//	default  value used when neither variable is set
//	required "true" if the variable must be set
//	unit     "bytes" accepts sizes such as 20MiB or 512KB
//
// Every bad or missing variable is reported, not just the first.
func LoadFrom(lookup LookupFunc) (*Config, error) {
	cfg := &Config{}
	d := decoder{lookup: lookup}
	d.walk(reflect.ValueOf(cfg).Elem())
	if len(d.errs) > 0 {
		return nil, fmt.Errorf("config load: %w", errors.Join(d.errs...))
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

type decoder struct {
	lookup LookupFunc
	errs   []error
}

var (
	durationType = reflect.TypeOf(time.Duration(0))
	timeType     = reflect.TypeOf(time.Time{})
)

func (d *decoder) walk(v reflect.Value) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		fv := v.Field(i)
		if !fv.CanSet() {
			continue
		}
		if sf.Type.Kind() == reflect.Struct && sf.Type != timeType {
			d.walk(fv)
			continue
		}
		name := sf.Tag.Get("env")
		if name == "" {
			continue
		}

		raw, ok := d.get(name, sf.Tag.Get("envAlt"))
		if !ok {
			if sf.Tag.Get("required") == "true" {
				d.errs = append(d.errs, fmt.Errorf("%s is required", name))
				continue
			}
			raw = sf.Tag.Get("default")
		}
		if raw == "" {
			continue
		}
		if err := assign(fv, raw, sf.Tag.Get("unit")); err != nil {
			d.errs = append(d.errs, fmt.Errorf("%s=%q: %w", name, raw, err))
		}
	}
}

// get returns the first non-empty value of name or alt.
func (d *decoder) get(name, alt string) (string, bool) {
	for _, key := range []string{name, alt} {
		if key == "" {
			continue
		}
		if v, ok := d.lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), true
		}
	}
	return "", false
}

func assign(fv reflect.Value, raw, unit string) error {
	switch {
	case fv.Type() == durationType:
		dur, err := time.ParseDuration(raw)
		if err != nil {
			return errors.New("not a duration")
		}
		fv.SetInt(int64(dur))
	case fv.Kind() == reflect.String:
		fv.SetString(raw)
	case fv.Kind() == reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return errors.New("not a boolean")
		}
		fv.SetBool(b)
	case fv.CanInt() && unit == "bytes":
		n, err := ParseByteSize(raw)
		if err != nil {
			return err
		}
		fv.SetInt(n)
	case fv.CanInt():
		n, err := strconv.ParseInt(raw, 10, fv.Type().Bits())
		if err != nil {
			return errors.New("not an integer")
		}
		fv.SetInt(n)
	case fv.Kind() == reflect.Slice && fv.Type().Elem().Kind() == reflect.String:
		fv.Set(reflect.ValueOf(splitList(raw)))
	default:
		return fmt.Errorf("unsupported field type %s", fv.Type())
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

var byteUnits = []struct {
	suffix string
	mult   int64
}{
	{"kib", 1 << 10}, {"mib", 1 << 20}, {"gib", 1 << 30},
	{"kb", 1000}, {"mb", 1000 * 1000}, {"gb", 1000 * 1000 * 1000},
	{"k", 1 << 10}, {"m", 1 << 20}, {"g", 1 << 30},
	{"b", 1},
}

// ParseByteSize parses a plain byte count or a number with a KB, MB, GB,
// KiB, MiB or GiB suffix. Bare K, M and G are binary.
func ParseByteSize(s string) (int64, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	mult := int64(1)
	for _, u := range byteUnits {
		if strings.HasSuffix(v, u.suffix) {
			v = strings.TrimSpace(strings.TrimSuffix(v, u.suffix))
			mult = u.mult
			break
		}
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid byte size %q", s)
	}
	return n * mult, nil
}

// Validate reports every invalid setting in one error.
func (c *Config) Validate() error {
	var p problems
	c.Database.validate(&p)
	c.Server.validate(&p)
	c.Import.validate(&p)
	c.Archive.validate(&p)

	if c.Rate.Enabled {
		if c.Rate.RequestsPerMinute <= 0 {
			p.add("RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
		}
		if c.Rate.ImportLimit <= 0 {
			p.add("RATE_LIMIT_IMPORT must be positive when rate limiting is enabled")
		}
	}
	if c.Security.RequireAPIKey && len(c.Security.APIKeys) == 0 {
		p.add("REQUIRE_API_KEY is true but API_KEYS is empty")
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		p.addf("METRICS_PATH (%q) must start with /", c.Metrics.Path)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		p.addf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		p.addf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format)
	}
	return p.err()
}

type problems []string

func (p *problems) add(msg string) { *p = append(*p, msg) }
func (p *problems) addf(format string, a ...any) { p.add(fmt.Sprintf(format, a...)) }

func (p problems) err() error {
	if len(p) == 0 {
		return nil
	}
	return fmt.Errorf("validation failed:\n  - %s", strings.Join(p, "\n  - "))
}

func (c *DatabaseConfig) validate(p *problems) {
	switch strings.ToLower(c.Driver) {
	case DriverPostgres:
		if c.URL == "" {
			p.add("DATABASE_URL is required when STORE_DRIVER=postgres")
		}
		if c.MaxConns <= 0 {
			p.add("DB_MAX_CONNS must be positive")
		}
		if c.MinConns < 0 {
			p.add("DB_MIN_CONNS must be non-negative")
		}
		if c.MaxConns < c.MinConns {
			p.addf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)", c.MaxConns, c.MinConns)
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			p.add("SQLITE_PATH is required when STORE_DRIVER=sqlite")
		}
	case DriverMemory:
	default:
		p.addf("STORE_DRIVER (%q) must be one of: postgres, sqlite, memory", c.Driver)
	}
}

func (c *ServerConfig) validate(p *problems) {
	if c.Port <= 0 || c.Port > 65535 {
		p.addf("SERVER_PORT (%d) must be 1-65535", c.Port)
	}
	if c.ReadTimeout < 0 {
		p.add("SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.ShutdownTimeout <= 0 {
		p.add("SERVER_SHUTDOWN_TIMEOUT must be positive")
	}
}

func (c *ImportConfig) validate(p *problems) {
	if c.MaxFileSize <= 0 {
		p.add("IMPORT_MAX_FILE_SIZE must be positive")
	}
	if c.MaxConcurrent <= 0 {
		p.add("IMPORT_MAX_CONCURRENT must be positive")
	}
	if c.MaxWaitTime <= 0 {
		p.add("IMPORT_MAX_WAIT must be positive")
	}
	if c.CommitTimeout <= 0 {
		p.add("IMPORT_COMMIT_TIMEOUT must be positive")
	}
	if c.Workers <= 0 {
		p.add("IMPORT_WORKERS must be positive")
	}
	for _, pair := range c.GatePolicies {
		_, policy, ok := strings.Cut(pair, ":")
		switch strings.ToLower(strings.TrimSpace(policy)) {
		case "strict", "lenient":
			if ok {
				continue
			}
		}
		p.addf("IMPORT_GATE_POLICIES entry %q must look like import:strict or import:lenient", pair)
	}
}

func (c *ArchiveConfig) validate(p *problems) {
	switch strings.ToLower(c.Driver) {
	case ArchiveNone, ArchiveMemory:
	case ArchiveFS:
		if c.FSRoot == "" {
			p.add("ARCHIVE_FS_ROOT is required when ARCHIVE_DRIVER=fs")
		}
	case ArchiveS3:
		if c.S3Bucket == "" {
			p.add("ARCHIVE_S3_BUCKET is required when ARCHIVE_DRIVER=s3")
		}
	default:
		p.addf("ARCHIVE_DRIVER (%q) must be one of: none, fs, s3, memory", c.Driver)
	}
}

// String renders the configuration for startup logs with credentials masked.
func (c *Config) String() string {
	url := "[MASKED]"
	if c.Database.URL == "" {
		url = ""
	}
	return fmt.Sprintf("Config{Server: {Addr: %q}, "+
		"Database: {Driver: %q, URL: %s, MaxConns: %d, MinConns: %d}, "+
		"Import: {MaxFileSize: %d, MaxConcurrent: %d, CommitTimeout: %s, Workers: %d, GatePolicies: %v}, "+
		"Rate: {Enabled: %v, RequestsPerMinute: %d, ImportLimit: %d}, "+
		"Security: {RequireAPIKey: %v, APIKeys: %d configured, TrustedProxies: %d}, "+
		"Archive: {Driver: %q}, Logging: {Level: %q, Format: %q}}",
		c.Server.Addr(),
		c.Database.Driver, url, c.Database.MaxConns, c.Database.MinConns,
		c.Import.MaxFileSize, c.Import.MaxConcurrent, c.Import.CommitTimeout, c.Import.Workers, c.Import.GatePolicies,
		c.Rate.Enabled, c.Rate.RequestsPerMinute, c.Rate.ImportLimit,
		c.Security.RequireAPIKey, len(c.Security.APIKeys), len(c.Security.TrustedProxies),
		c.Archive.Driver, c.Logging.Level, c.Logging.Format)
}
