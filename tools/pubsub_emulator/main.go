package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"cloud.google.com/go/pubsub"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Creates the topic where the results of the ingestion tasks are published, and a subscription to follow them.
func main() {
	ctx := context.Background()

	host := flag.String("host", "localhost:8085", "emulator host")
	projectID := flag.String("project", "eeutil-emulator", "emulator project")
	topic := flag.String("topic", "eeutil-results", "topic of the results of the tasks")
	subscription := flag.String("subscription", "eeutil-results", "subscription to the results (empty: none)")
	flag.Parse()

	os.Setenv("PUBSUB_EMULATOR_HOST", *host)

	log.Print("New client for project " + *projectID)
	client, err := pubsub.NewClient(ctx, *projectID)
	if err != nil {
		log.Fatalf("pubsub.NewClient: %v", err)
	}
	defer client.Close()

	log.Print("Create Topic : " + *topic)
	if _, err = client.CreateTopic(ctx, *topic); err != nil && status.Code(err) != codes.AlreadyExists {
		log.Fatalf("pubsub.CreateTopic: %v", err)
	}

	if *subscription != "" {
		log.Print("Create Subscription : " + *subscription)
		if _, err = client.CreateSubscription(ctx, *subscription, pubsub.SubscriptionConfig{
			Topic:       client.Topic(*topic),
			AckDeadline: 10 * time.Second,
		}); err != nil && status.Code(err) != codes.AlreadyExists {
			log.Fatalf("CreateSubscription: %v", err)
		}
	}

	log.Print("Done! export " + "PUBSUB_EMULATOR_HOST=" + *host + " EEUTIL_PS_PROJECT=" + *projectID + " EEUTIL_PS_TOPIC=" + *topic)
}
