// Package mqtt connects Poppy Motion to the robot's MQTT bus.
//
// Every actuator channel has a command topic the playback engine publishes
// goal positions to, and a status topic its driver reports compliance,
// direction, offset and load limit on. The two hand servos share one command
// topic. Playback is triggered by messages on the play and stop topics.
//
//	Playback Engine → poppy/set/<channel>, servo/cmd → actuator drivers
//	actuator drivers → poppy/get/<channel> → status cache
//	Word, Word/stop → playback controller
//
// The client announces itself with a retained presence message on
// poppy/system/status and registers an offline Last Will on the same topic.
// Subscriptions are tracked and replayed after a reconnect.
//
// Enable TLS (mqtt.broker.tls) when the broker is not running on the robot.
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topics := client.Topics()
//	err = client.Subscribe(topics.ChannelStatus("head_z"), 1, handleStatus)
//	err = client.Publish(topics.ChannelCommand("head_z"), payload, 1, false)
package mqtt
