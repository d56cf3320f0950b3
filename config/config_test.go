package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var yml = `
node:
  id: shed
controller:
  vendor_id: 1a86
  product_id: "7523"
  warmup_timeout: 1m30s
sentinel:
  prolonged: 2d
`

func ExampleOpenRaw() {
	config, _ := OpenRaw([]byte(yml))
	fmt.Println(config.Node.ID)
	fmt.Println(config.Controller.VendorID, config.Controller.ProductID, config.Controller.Baud)
	fmt.Println(config.Controller.WarmupTimeout.Duration)
	fmt.Println(config.Sentinel.Prolonged.Duration)
	// Output:
	// shed
	// 1a86 7523 9600
	// 1m30s
	// 48h0m0s
}

func TestDefaults(t *testing.T) {
	config, err := OpenRaw([]byte(yml))
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, config.Controller.ReadTimeout.Duration)
	assert.Equal(t, DefaultApi, config.Endpoints.Api)
	assert.Equal(t, DefaultInterval, config.Sentinel.Interval.Duration)
	assert.Equal(t, DefaultInternet, config.Sentinel.Internet)
	assert.Equal(t, DefaultLogLevel, config.Log.Level)
	assert.False(t, config.Sentinel.Enabled)
}

func TestExampleConfig(t *testing.T) {
	assert.Equal(t, "greenhouse-1", ExampleConfig.Node.ID)
	assert.Equal(t, []string{"192.168.1.1", "hub.example.com"}, ExampleConfig.Sentinel.Pings)
	assert.Equal(t, "tcp://127.0.0.1:1883", ExampleConfig.Endpoints.Mqtt.Broker)
}

func TestValidate(t *testing.T) {
	_, err := OpenRaw([]byte(`
controller:
  vendor_id: xyz
  product_id: "0043"
log:
  level: verbose
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "node.id: failed 'required'")
	assert.Contains(t, err.Error(), "controller.vendor_id: failed 'hexadecimal'")
	assert.Contains(t, err.Error(), "log.level: failed 'oneof'")
}

func TestUnknownField(t *testing.T) {
	_, err := OpenRaw([]byte("node:\n  id: a\n  name: b\n"))
	assert.Error(t, err)
}

func TestBadDuration(t *testing.T) {
	_, err := OpenRaw([]byte("sentinel:\n  interval: soon\n"))
	assert.ErrorContains(t, err, `invalid duration "soon"`)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "cultiva"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cultiva", "cultiva.yml"), []byte(ExampleYaml), 0o600))

	config, err := Open("")
	require.NoError(t, err)
	assert.Equal(t, "greenhouse-1", config.Node.ID)

	_, err = Open(filepath.Join(dir, "missing.yml"))
	assert.Error(t, err)
}

func TestExpandsHome(t *testing.T) {
	t.Setenv("HOME", "/home/grower")
	config, err := OpenRaw([]byte("node:\n  id: a\ncontroller:\n  vendor_id: \"2341\"\n  product_id: \"0043\"\nsentinel:\n  database: ~/sentinel.db\n"))
	require.NoError(t, err)
	assert.Equal(t, "/home/grower/sentinel.db", config.Sentinel.Database)
}
