package ingest

import (
	"errors"
	"testing"
)

func TestDecodeReading(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Reading
		wantErr bool
	}{
		{
			name: "plain JSON",
			raw:  `{"mac": 303721692, "type": 248, "data": 23.4, "timestamp": 1700000000000}`,
			want: Reading{Device: 303721692, SensorType: 248, Value: 23.4, Timestamp: 1700000000000},
		},
		{
			name: "legacy pickled form",
			raw:  `{"py/object": "sensor_message_item.SensorMessageItem", "_mac": "303721692", "_type": "248", "_data": "21.5", "_timestamp": 1700000000500, "_sent": true}`,
			want: Reading{Device: 303721692, SensorType: 248, Value: 21.5, Timestamp: 1700000000500},
		},
		{
			name: "device taken from key when absent",
			raw:  `{"type": 1, "data": 0, "timestamp": 5}`,
			want: Reading{Device: 303721692, SensorType: 1, Value: 0, Timestamp: 5},
		},
		{
			name: "integral float type",
			raw:  `{"type": 248.0, "data": 1, "timestamp": 5}`,
			want: Reading{Device: 303721692, SensorType: 248, Value: 1, Timestamp: 5},
		},
		{name: "not JSON", raw: `garbage`, wantErr: true},
		{name: "device mismatch", raw: `{"mac": 1, "type": 1, "data": 1, "timestamp": 1}`, wantErr: true},
		{name: "missing type", raw: `{"data": 1, "timestamp": 1}`, wantErr: true},
		{name: "missing value", raw: `{"type": 1, "timestamp": 1}`, wantErr: true},
		{name: "missing timestamp", raw: `{"type": 1, "data": 1}`, wantErr: true},
		{name: "non numeric value", raw: `{"type": 1, "data": "warm", "timestamp": 1}`, wantErr: true},
		{name: "fractional type", raw: `{"type": 1.5, "data": 1, "timestamp": 1}`, wantErr: true},
		{name: "boolean timestamp", raw: `{"type": 1, "data": 1, "timestamp": true}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeReading(303721692, tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrDecode) {
					t.Errorf("DecodeReading() error = %v, want ErrDecode", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeReading() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("DecodeReading() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
