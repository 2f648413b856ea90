// Package mqtt publishes run notifications to an MQTT broker.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Publishing with QoS and retained flags
//   - Last Will and Testament (LWT) for offline detection
//   - Run notifications (status, per-day progress, summary)
//
// # Topics
//
//	loadsynth/run/<run_id>/status   started | completed | failed (retained)
//	loadsynth/run/<run_id>/day      progress after each simulated day
//	loadsynth/run/<run_id>/summary  run statistics as JSON (retained)
//	loadsynth/client/<client_id>/status  online | offline (retained, LWT)
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	notifier := mqtt.NewNotifier(client, byte(cfg.MQTT.QoS))
//	notifier.RunStarted(runID, name, days)
package mqtt
