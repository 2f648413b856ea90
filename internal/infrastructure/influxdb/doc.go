// Package influxdb exports synthesized load traces to InfluxDB v2.
//
// It wraps the official influxdb-client-go v2 library. Every channel of a
// run becomes one series of measurement "load_trace":
//
//	load_trace,run_id=<id>,channel_kind=appliance,channel=KETTLE power_w=1873.2 <ts>
//
// Per-second channels are downsampled to the configured resolution; each
// point carries the mean power of its bucket and is stamped with the
// bucket start.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	n, err := client.ExportRun(ctx, res, output.Epoch(res.FirstWeekday))
//
// # Error Handling
//
// Writes are non-blocking and batched (batch_size, flush_interval). Write
// errors arrive asynchronously; ExportRun flushes and reports the first one.
package influxdb
