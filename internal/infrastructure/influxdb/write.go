package influxdb

import (
	"context"
	"fmt"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Point describes one measurement row before it is encoded.
type Point struct {
	Measurement string
	Tags        map[string]string
	Fields      map[string]any
	Time        time.Time
}

// WritePoints writes all points in a single blocking request.
//
// Either the server accepts the batch or an ErrWriteFailed is returned;
// there is no partial success from the caller's point of view.
func (c *Client) WritePoints(ctx context.Context, points []Point) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	if len(points) == 0 {
		return nil
	}

	encoded := make([]*write.Point, 0, len(points))
	for _, p := range points {
		encoded = append(encoded, write.NewPoint(p.Measurement, p.Tags, p.Fields, p.Time))
	}

	if err := c.writeAPI.WritePoint(ctx, encoded...); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}

	return nil
}
