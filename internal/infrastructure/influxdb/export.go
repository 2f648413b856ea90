package influxdb

import (
	"context"
	"fmt"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"gonum.org/v1/gonum/stat"

	"github.com/nerrad567/gray-logic-loadsynth/internal/simulation"
)

// Measurement is the InfluxDB measurement holding load traces.
const Measurement = "load_trace"

// Downsample returns the mean of every resolution-second bucket of series.
// The last bucket may be shorter. A resolution below 2 returns a copy.
func Downsample(series []float64, resolution int) []float64 {
	if resolution < 2 {
		return append([]float64(nil), series...)
	}
	out := make([]float64, 0, (len(series)+resolution-1)/resolution)
	for start := 0; start < len(series); start += resolution {
		end := min(start+resolution, len(series))
		out = append(out, stat.Mean(series[start:end], nil))
	}
	return out
}

// ChannelPoints converts one channel into points stamped from epoch.
func ChannelPoints(runID string, key simulation.ChannelKey, series []float64, epoch time.Time, resolution int) []*write.Point {
	if resolution < 1 {
		resolution = 1
	}
	tags := map[string]string{
		"run_id":       runID,
		"channel_kind": string(key.Kind),
		"channel":      channelName(key),
	}
	step := time.Duration(resolution) * time.Second

	values := Downsample(series, resolution)
	points := make([]*write.Point, len(values))
	for i, v := range values {
		points[i] = write.NewPoint(Measurement, tags, map[string]any{"power_w": v}, epoch.Add(time.Duration(i)*step))
	}
	return points
}

func channelName(key simulation.ChannelKey) string {
	if key.Kind == simulation.KindTotal {
		return string(simulation.KindTotal)
	}
	return key.Name
}

// ExportRun writes every channel of res and waits for the batches to be
// sent. epoch is the wall-clock time of trace second 0.
//
// Returns:
//   - int: number of points written
//   - error: ctx.Err() when cancelled between channels, or ErrWriteFailed
//     wrapping the first rejected batch
func (c *Client) ExportRun(ctx context.Context, res *simulation.Result, epoch time.Time) (int, error) {
	if !c.IsConnected() {
		return 0, ErrNotConnected
	}
	c.takeWriteErr() //nolint:errcheck // discard errors of earlier exports

	written := 0
	for _, key := range res.Channels.Keys() {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		for _, p := range ChannelPoints(res.RunID, key, res.Channels.Get(key), epoch, c.cfg.Resolution) {
			c.writeAPI.WritePoint(p)
			written++
		}
	}
	c.writeAPI.Flush()

	if err := c.takeWriteErr(); err != nil {
		return written, fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	return written, nil
}
