// Command mqtt-publish is a manual test helper: it publishes one
// synthetic Frigate event, review, or availability payload to a broker
// so an operator can watch it flow through a running ingestor without
// waiting on a real camera. Not part of the ingestion pipeline.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

func main() {
	broker := flag.String("broker", "", "MQTT broker URL, e.g. tcp://localhost:1883")
	kind := flag.String("kind", "event", "payload kind: event|review|available")
	frigateID := flag.String("frigate-id", "", "frigate instance id; empty for the default instance")
	camera := flag.String("camera", "front_door", "camera name")
	flag.Parse()

	if *broker == "" {
		fmt.Fprintln(os.Stderr, "usage: mqtt-publish -broker tcp://host:1883 [-kind event|review|available] [-frigate-id id] [-camera name]")
		os.Exit(2)
	}

	topic, payload, err := buildMessage(*kind, *frigateID, *camera)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	opts := mqtt.NewClientOptions().
		AddBroker(*broker).
		SetClientID(fmt.Sprintf("mqtt-publish-%d", time.Now().UnixNano())).
		SetConnectTimeout(8 * time.Second)
	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		fmt.Fprintln(os.Stderr, "connect timeout")
		os.Exit(1)
	}
	if err := token.Error(); err != nil {
		fmt.Fprintln(os.Stderr, "connect failed:", err)
		os.Exit(1)
	}
	defer client.Disconnect(250)

	pubToken := client.Publish(topic, 0, false, payload)
	pubToken.Wait()
	if err := pubToken.Error(); err != nil {
		fmt.Fprintln(os.Stderr, "publish failed:", err)
		os.Exit(1)
	}
	fmt.Printf("published to %s: %s\n", topic, payload)
}

func buildMessage(kind, frigateID, camera string) (topic string, payload string, err error) {
	prefix := "frigate/"
	if frigateID != "" {
		prefix = "frigate/" + frigateID + "/"
	}

	switch kind {
	case "event":
		topic = prefix + "events/" + camera
		payload = fmt.Sprintf(`{"type":"new","before":{},"after":{"id":"synthetic-%d","camera":%q,"label":"person","start_time":%d}}`,
			time.Now().UnixNano(), camera, time.Now().Unix())
	case "review":
		topic = prefix + "reviews/" + camera
		payload = fmt.Sprintf(`{"after":{"id":"synthetic-review-%d","camera":%q,"severity":"alert","timestamp":%d}}`,
			time.Now().UnixNano(), camera, time.Now().Unix())
	case "available":
		topic = prefix + "available"
		payload = "online"
	default:
		return "", "", fmt.Errorf("unknown kind %q, expected event|review|available", kind)
	}
	return topic, payload, nil
}
