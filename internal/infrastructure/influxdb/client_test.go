package influxdb_test

import (
	"context"
	"errors"
	"testing"

	"github.com/nerrad567/homelink-core/internal/infrastructure/config"
	"github.com/nerrad567/homelink-core/internal/infrastructure/influxdb"
)

func TestConnect_Disabled(t *testing.T) {
	cfg := config.InfluxDBConfig{Enabled: false}

	_, err := influxdb.Connect(cfg)
	if !errors.Is(err, influxdb.ErrDisabled) {
		t.Errorf("Connect() with disabled config error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	cfg := config.InfluxDBConfig{
		Enabled: true,
		URL:     "http://127.0.0.1:1", // nothing listens here
		Token:   "test",
		Org:     "homelink",
		Bucket:  "metrics",
	}

	_, err := influxdb.Connect(cfg)
	if !errors.Is(err, influxdb.ErrConnectionFailed) {
		t.Errorf("Connect() to unreachable server error = %v, want ErrConnectionFailed", err)
	}
}

func TestHealthCheck_Disconnected(t *testing.T) {
	c := &influxdb.Client{}
	if err := c.HealthCheck(context.Background()); !errors.Is(err, influxdb.ErrNotConnected) {
		t.Errorf("HealthCheck() on zero client error = %v, want ErrNotConnected", err)
	}
}

func TestWriteDeviceMetric_DisconnectedIsNoop(t *testing.T) {
	// Writes on a disconnected client must be silently dropped, not panic.
	c := &influxdb.Client{}
	c.WriteDeviceMetric("lamp-1", "brightness", 178)
	c.WritePoint("poll_stats", nil, map[string]interface{}{"deltas": 1})
	c.Flush()
}

func TestClose_Unconnected(t *testing.T) {
	c := &influxdb.Client{}
	if err := c.Close(); err != nil {
		t.Errorf("Close() on zero client error = %v, want nil", err)
	}
}
