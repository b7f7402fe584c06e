// Package mqtt provides MQTT client connectivity for rssimon.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Publishing retained device state
//   - Subscriptions with wildcard support, restored after reconnect
//   - Last Will and Testament (LWT) for offline detection
//
// MQTT is optional. When enabled, every accepted RSSI update is published to
// rssimon/device/{name}/state, and reporters that speak MQTT can publish to
// rssimon/report/{name} instead of dialing the TCP listener.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.PublishJSON(mqtt.Topics{}.DeviceState("sensor-1"), state)
package mqtt
