// Package mqtt provides MQTT client connectivity for the constrained device
// agent.
//
// This package manages:
//   - Connection to the gateway's broker with auto-reconnect
//   - Message publishing with QoS 0, 1 or 2
//   - Topic subscriptions, restored after every reconnect
//   - Last Will and Testament (LWT) for offline detection
//
// # Topics
//
// Every topic follows PIOT/ConstrainedDevice/<kind>, built from the closed
// data.ResourceName set through the Topics helper.
//
// The client publishes a retained StatusData on
// PIOT/ConstrainedDevice/MgmtStatusMsg: "online" after each (re)connect,
// "offline" on Close. The broker publishes the LWT with the same shape if
// the device drops off the network.
//
// # Usage
//
//	client, err := mqtt.Connect(ctx, cfg.MQTT, clientID, deviceID)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.Resource(data.ActuatorCmdResource), 1,
//	    func(topic string, payload []byte) error {
//	        return nil
//	    })
package mqtt
