// Package config loads the node configuration from YAML.
package config

import (
	"fmt"
	"io"
	"os"
	"path"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/tamas-pataky/cultiva-node/util"
)

type NodeConf struct {
	// ID identifies this node to the hub.
	ID string `yaml:"id" validate:"required"`
	// Hub is the base address of the hub service, e.g. https://hub.example.com.
	Hub string `yaml:"hub" validate:"omitempty,url"`
}

type ControllerConf struct {
	VendorID      string   `yaml:"vendor_id" validate:"required,hexadecimal"`
	ProductID     string   `yaml:"product_id" validate:"required,hexadecimal"`
	Baud          int      `yaml:"baud" validate:"gte=0"`
	ReadTimeout   Duration `yaml:"read_timeout"`
	WarmupTimeout Duration `yaml:"warmup_timeout"`
}

type EndpointsConf struct {
	Api  string `yaml:"api"`
	Mqtt struct {
		Broker string `yaml:"broker" validate:"omitempty,url"`
	} `yaml:"mqtt"`
}

type SentinelConf struct {
	Enabled   bool     `yaml:"enabled"`
	Interval  Duration `yaml:"interval"`
	Internet  string   `yaml:"internet" validate:"omitempty,url"`
	Pings     []string `yaml:"pings" validate:"dive,hostname|ip"`
	Database  string   `yaml:"database"`
	Prolonged Duration `yaml:"prolonged"`
}

type LogConf struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warning error"`
	File  string `yaml:"file"`
}

// Duration accepts Go durations ("1m30s") and the extended units of
// util.ParseDuration ("2d").
type Duration struct {
	Duration time.Duration
}

func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if v, err := time.ParseDuration(s); err == nil {
		d.Duration = v
		return nil
	}
	v, err := util.ParseDuration(s)
	if err != nil {
		return errors.Errorf("invalid duration %q", s)
	}
	d.Duration = v
	return nil
}

// Configuration structure
type Config struct {
	Node       NodeConf       `yaml:"node"`
	Controller ControllerConf `yaml:"controller"`
	Endpoints  EndpointsConf  `yaml:"endpoints"`
	Sentinel   SentinelConf   `yaml:"sentinel"`
	Log        LogConf        `yaml:"log"`
}

const (
	DefaultApi       = ":5000"
	DefaultInterval  = 37 * time.Second
	DefaultInternet  = "http://www.google.com/"
	DefaultProlonged = time.Minute
	DefaultLogLevel  = "info"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report fields by their yaml names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Open configuration from disk. An empty path means ConfigPath("cultiva.yml").
func Open(p string) (*Config, error) {
	if p == "" {
		p = ConfigPath("cultiva.yml")
	}
	file, err := os.Open(p)
	if err != nil {
		return nil, errors.Wrap(err, "opening configuration")
	}
	defer file.Close()
	return OpenReader(file)
}

// Open configuration from a reader.
func OpenReader(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return OpenRaw(data)
}

// Open configuration from []byte, applying defaults and validating.
func OpenRaw(data []byte) (*Config, error) {
	c := &Config{}
	if err := yaml.UnmarshalStrict(data, c); err != nil {
		return nil, errors.Wrap(err, "parsing configuration")
	}
	c.setDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func Must(c *Config, err error) *Config {
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Config) setDefaults() {
	if c.Controller.Baud == 0 {
		c.Controller.Baud = 9600
	}
	if c.Controller.ReadTimeout.Duration == 0 {
		c.Controller.ReadTimeout.Duration = 10 * time.Second
	}
	if c.Endpoints.Api == "" {
		c.Endpoints.Api = DefaultApi
	}
	if c.Sentinel.Interval.Duration == 0 {
		c.Sentinel.Interval.Duration = DefaultInterval
	}
	if c.Sentinel.Internet == "" {
		c.Sentinel.Internet = DefaultInternet
	}
	if c.Sentinel.Prolonged.Duration == 0 {
		c.Sentinel.Prolonged.Duration = DefaultProlonged
	}
	if c.Sentinel.Database == "" {
		c.Sentinel.Database = ConfigPath("sentinel.db")
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	c.Sentinel.Database = util.ExpandUser(c.Sentinel.Database)
	c.Log.File = util.ExpandUser(c.Log.File)
}

// Validate checks the configuration, reporting every invalid field.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	var invalid validator.ValidationErrors
	if !errors.As(err, &invalid) {
		return err
	}
	msgs := make([]string, len(invalid))
	for i, fe := range invalid {
		msgs[i] = fmt.Sprintf("%s: failed '%s'", strings.TrimPrefix(fe.Namespace(), "Config."), fe.ActualTag())
	}
	return errors.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

// helpers

// Resolve a configuration file under .config/cultiva
func ConfigPath(p string) string {
	config := os.Getenv("XDG_CONFIG_HOME")
	if config == "" {
		config = path.Join(os.Getenv("HOME"), ".config")
	}
	return path.Join(config, "cultiva", p)
}
