package influxdb

import (
	"testing"

	"github.com/nerrad567/rssimon/internal/infrastructure/config"
)

func TestBatchSettings(t *testing.T) {
	tests := []struct {
		name       string
		cfg        config.InfluxDBConfig
		wantSize   uint
		wantMillis uint
	}{
		{"defaults for zero", config.InfluxDBConfig{}, 100, 10000},
		{"negative falls back", config.InfluxDBConfig{BatchSize: -1, FlushInterval: -5}, 100, 10000},
		{"explicit", config.InfluxDBConfig{BatchSize: 20, FlushInterval: 2}, 20, 2000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			size, millis := batchSettings(tt.cfg)
			if size != tt.wantSize || millis != tt.wantMillis {
				t.Errorf("batchSettings() = (%d, %d), want (%d, %d)", size, millis, tt.wantSize, tt.wantMillis)
			}
		})
	}
}
