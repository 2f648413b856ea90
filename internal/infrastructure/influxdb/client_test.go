package influxdb_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-loadsynth/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-loadsynth/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-loadsynth/internal/presence"
	"github.com/nerrad567/gray-logic-loadsynth/internal/simulation"
)

// testConfig points at a local development InfluxDB.
func testConfig() config.InfluxDBConfig {
	cfg := config.InfluxDBConfig{
		Enabled:       true,
		URL:           "http://127.0.0.1:8086",
		Token:         "loadsynth-dev-token",
		Org:           "loadsynth",
		Bucket:        "traces",
		BatchSize:     1000,
		FlushInterval: 1,
		Resolution:    60,
	}
	if v := os.Getenv("LOADSYNTH_INFLUXDB_URL"); v != "" {
		cfg.URL = v
	}
	return cfg
}

// connectOrSkip skips the test if InfluxDB is not running.
func connectOrSkip(t *testing.T) *influxdb.Client {
	t.Helper()
	client, err := influxdb.Connect(testConfig())
	if err != nil {
		t.Skipf("InfluxDB not available, skipping integration test: %v", err)
	}
	t.Cleanup(func() { client.Close() }) //nolint:errcheck // Test cleanup
	return client
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false

	if _, err := influxdb.Connect(cfg); !errors.Is(err, influxdb.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	cfg := testConfig()
	cfg.URL = "http://127.0.0.1:59999"

	if _, err := influxdb.Connect(cfg); !errors.Is(err, influxdb.ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestHealthCheck(t *testing.T) {
	client := connectOrSkip(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestExportRun(t *testing.T) {
	client := connectOrSkip(t)

	res := &simulation.Result{
		RunID:    "integration-" + time.Now().Format("150405"),
		Days:     1,
		Channels: simulation.NewChannels(presence.SecondsPerDay),
	}
	res.Channels.Ensure(simulation.ChannelKey{Kind: simulation.KindUser, Name: "alice"})

	n, err := client.ExportRun(context.Background(), res, time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ExportRun() error = %v", err)
	}
	// Two channels of 1440 one-minute points
	if n != 2*1440 {
		t.Errorf("ExportRun() wrote %d points, want %d", n, 2*1440)
	}
}

func TestExportRun_AfterClose(t *testing.T) {
	client := connectOrSkip(t)
	client.Close() //nolint:errcheck // closing early on purpose

	res := &simulation.Result{Channels: simulation.NewChannels(10)}
	if _, err := client.ExportRun(context.Background(), res, time.Now()); !errors.Is(err, influxdb.ErrNotConnected) {
		t.Errorf("ExportRun() error = %v, want ErrNotConnected", err)
	}
}
