// Mock agent runtime: registers with the hub, subscribes to its own topic,
// and answers request messages with canned supply-chain responses. The
// "thinking" here is an arbitrary stand-in; only the register/send/subscribe
// plumbing matters to the hub.
package main

import (
	"context"
	"encoding/json"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/aaronmeis/mock-agent-supplychain/internal/bus"
	"github.com/aaronmeis/mock-agent-supplychain/internal/models"
	"github.com/aaronmeis/mock-agent-supplychain/pkg/hubclient"
)

func main() {
	_ = godotenv.Load()

	name := getEnv("AGENT_NAME", "universal-agent")
	kind := getEnv("AGENT_TYPE", "sub-agent")
	hubURL := getEnv("HUB_URL", "http://localhost:3000")
	redisURL := getEnv("REDIS_URL", "redis://localhost:6379")
	endpoint := getEnv("AGENT_ENDPOINT", "http://"+name+":3001")

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		With().
		Timestamp().
		Str("agent", name).
		Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	channelBus, err := bus.NewRedisBus(ctx, redisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}
	defer channelBus.Close()

	sub, err := channelBus.Subscribe(ctx, bus.AgentTopic(name))
	if err != nil {
		logger.Fatal().Err(err).Msg("topic subscribe failed")
	}
	defer sub.Unsubscribe()

	client := hubclient.New(hubURL)

	agentID, err := client.Register(ctx, hubclient.RegisterParams{
		AgentName:    name,
		AgentType:    kind,
		Endpoint:     endpoint,
		Capabilities: []string{},
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("hub registration failed")
	}
	logger.Info().Str("agent_id", agentID).Msg("registered with hub")

	go func() {
		for event := range sub.Events() {
			var delivery models.Delivery
			if err := json.Unmarshal(event, &delivery); err != nil {
				logger.Warn().Err(err).Msg("bad delivery payload")
				continue
			}
			handleDelivery(ctx, logger, client, name, delivery)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("agent stopped")
}

func handleDelivery(ctx context.Context, logger zerolog.Logger, client *hubclient.Client, name string, delivery models.Delivery) {
	logger.Info().
		Str("message_id", delivery.MessageID).
		Str("from", delivery.FromAgent).
		Str("kind", delivery.Kind).
		Msg("message received")

	if delivery.Kind != models.MessageKindRequest {
		return
	}

	// Simulate thinking
	time.Sleep(time.Second + time.Duration(rand.Intn(2000))*time.Millisecond)

	action := gjson.GetBytes(delivery.Payload, "action").String()
	if action == "" {
		action = "generic"
	}

	response := map[string]interface{}{
		"originalMessageId": delivery.MessageID,
		"content":           "Completed " + action,
		"result":            processRequest(name),
	}

	if _, err := client.Send(ctx, name, delivery.FromAgent, models.MessageKindResponse, response); err != nil {
		logger.Error().Err(err).Str("to", delivery.FromAgent).Msg("response send failed")
	}
}

// processRequest returns canned results keyed by agent identity.
func processRequest(name string) interface{} {
	switch name {
	case "demand-forecasting-agent":
		return map[string]interface{}{
			"forecast": []map[string]interface{}{
				{"date": "2026-02-01", "quantity": 1200},
				{"date": "2026-02-15", "quantity": 1350},
				{"date": "2026-03-01", "quantity": 1500},
			},
			"confidence": 0.92,
		}
	case "inventory-optimization-agent":
		return map[string]interface{}{
			"optimalStock": 5000,
			"safetyStock":  800,
			"reorderPoint": 1200,
		}
	default:
		return map[string]interface{}{
			"status":    "success",
			"message":   "Processed by " + name,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
