// Command mqtt-verify subscribes to the three frigate/{events,reviews,
// available}/# filters and prints every decoded, normalized message to
// stdout, for manually confirming a broker is carrying what an operator
// expects before pointing a real ingestor at it. Not part of the
// ingestion pipeline.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alufers/frigate-ingestor/internal/bus"
	frigatemqtt "github.com/alufers/frigate-ingestor/internal/mqtt"
	"github.com/alufers/frigate-ingestor/internal/normalize"
)

func main() {
	broker := flag.String("broker", "", "MQTT broker URL, e.g. tcp://localhost:1883")
	username := flag.String("username", "", "MQTT username")
	password := flag.String("password", "", "MQTT password")
	flag.Parse()

	if *broker == "" {
		fmt.Fprintln(os.Stderr, "usage: mqtt-verify -broker tcp://host:1883 [-username u] [-password p]")
		os.Exit(2)
	}

	b := bus.New(0)
	b.OnEvent(func(_ context.Context, ev *normalize.NormalizedEvent) bus.HandlerResult {
		printNormalized("event", ev)
		return nil
	})
	b.OnReview(func(_ context.Context, rv *normalize.NormalizedReview) bus.HandlerResult {
		printNormalized("review", rv)
		return nil
	})
	b.OnAvailable(func(_ context.Context, av *normalize.NormalizedAvailable) bus.HandlerResult {
		printNormalized("available", av)
		return nil
	})

	sub := frigatemqtt.New(frigatemqtt.Options{BrokerURL: *broker, Username: *username, Password: *password}, b, nil)
	if err := sub.Start(); err != nil {
		fmt.Fprintln(os.Stderr, "connect failed:", err)
		os.Exit(1)
	}
	defer sub.Stop()

	fmt.Println("subscribed to frigate/{events,reviews,available}/#, waiting for messages (ctrl-c to exit)")
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
}

func printNormalized(kind string, v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to marshal %s: %v\n", kind, err)
		return
	}
	fmt.Printf("--- %s ---\n%s\n", kind, b)
}
