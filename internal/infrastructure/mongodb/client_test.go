package mongodb_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-threshold/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-threshold/internal/infrastructure/mongodb"
)

func testConfig() config.MongoDBConfig {
	uri := os.Getenv("THRESHOLDCTL_TEST_MONGODB_URI")
	if uri == "" {
		uri = "mongodb://127.0.0.1:27017/?serverSelectionTimeoutMS=1000"
	}
	return config.MongoDBConfig{
		Enabled:    true,
		URI:        uri,
		Database:   "thresholdctl_test",
		Collection: "actuator_telemetry",
	}
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false

	_, err := mongodb.Connect(context.Background(), cfg)
	if !errors.Is(err, mongodb.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestInsertMany(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := mongodb.Connect(ctx, testConfig())
	if err != nil {
		t.Skip("MongoDB not available, skipping integration test")
	}
	defer client.Close(context.Background()) //nolint:errcheck // Test cleanup

	docs := []any{
		map[string]any{"device_tag": 7, "sensor_type": 1003, "state": 1, "timestamp": time.Now().UnixMilli()},
	}
	if err := client.InsertMany(ctx, docs); err != nil {
		t.Errorf("InsertMany() error = %v", err)
	}
	if err := client.InsertMany(ctx, nil); err != nil {
		t.Errorf("InsertMany(nil) error = %v", err)
	}
	if err := client.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}
