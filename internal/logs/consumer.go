package logs

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/phuslu/log"
	"github.com/ternarybob/arbor"
	arborlevels "github.com/ternarybob/arbor/levels"
	arbormodels "github.com/ternarybob/arbor/models"
	"github.com/ternarybob/caveo/internal/interfaces"
	"github.com/ternarybob/caveo/internal/models"
)

// Consumer consumes log batches from arbor's context channel and
// dispatches to run-log storage and the event bus. Lines carrying a
// correlation ID belong to an evaluation run; everything else is
// console-only.
type Consumer struct {
	storage       interfaces.RunLogStorage
	eventService  interfaces.EventService
	logger        arbor.ILogger
	channel       chan []arbormodels.LogEvent
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	minEventLevel arbor.LogLevel // Minimum log level to publish as events
	publishing    sync.Map       // Track events being published to prevent recursion
}

// NewConsumer creates a new log consumer
func NewConsumer(storage interfaces.RunLogStorage, eventService interfaces.EventService, logger arbor.ILogger, minEventLevel string) *Consumer {
	ctx, cancel := context.WithCancel(context.Background())
	return &Consumer{
		storage:       storage,
		eventService:  eventService,
		logger:        logger,
		channel:       make(chan []arbormodels.LogEvent, 10),
		ctx:           ctx,
		cancel:        cancel,
		minEventLevel: parseLogLevel(minEventLevel),
	}
}

// parseLogLevel converts string log level to arbor.LogLevel
func parseLogLevel(levelStr string) arbor.LogLevel {
	switch strings.ToLower(levelStr) {
	case "debug":
		return arbor.DebugLevel
	case "info":
		return arbor.InfoLevel
	case "warn", "warning":
		return arbor.WarnLevel
	case "error":
		return arbor.ErrorLevel
	default:
		return arbor.InfoLevel // Default to Info
	}
}

// convertTo3Letter converts full level names to 3-letter codes
func convertTo3Letter(level string) string {
	switch strings.ToUpper(level) {
	case "INFO":
		return models.LevelInfo
	case "WARN", "WARNING":
		return models.LevelWarn
	case "ERROR":
		return models.LevelError
	case "DEBUG":
		return models.LevelDebug
	default:
		// If already 3 letters, return as-is (uppercase)
		if len(level) == 3 {
			return strings.ToUpper(level)
		}
		return models.LevelInfo
	}
}

// GetChannel returns the channel for arbor to send log batches to
func (c *Consumer) GetChannel() chan []arbormodels.LogEvent {
	return c.channel
}

// Start launches the consumer goroutine
func (c *Consumer) Start() error {
	c.wg.Add(1)
	go c.consumer()
	return nil
}

// Stop gracefully shuts down the consumer
func (c *Consumer) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	c.logger.Info().Msg("Log consumer stopped")
	return nil
}

// consumer processes log batches from arbor and dispatches to destinations
func (c *Consumer) consumer() {
	defer c.wg.Done()

	defer func() {
		if r := recover(); r != nil {
			// Use logger without correlation ID to avoid recursive channel processing
			c.logger.Error().
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("LogConsumer panic recovered")
		}
	}()

	for {
		select {
		case batch, ok := <-c.channel:
			if !ok {
				return
			}

			// Group entries by run ID for ordered writes
			entriesByRun := make(map[string][]models.RunLogEntry)

			for _, event := range batch {
				// HTTP middleware and websocket chatter carries a
				// correlation ID for request tracing but is not part of
				// any evaluation run.
				if event.Message == "HTTP request" ||
					event.Message == "HTTP request - client error" ||
					event.Message == "HTTP request - server error" ||
					strings.Contains(event.Message, "WebSocket client") {
					continue
				}

				logEntry := transformEvent(event)

				runID := event.CorrelationID
				if runID != "" {
					entriesByRun[runID] = append(entriesByRun[runID], logEntry)
				}

				// Publish as event if level >= threshold (for UI real-time updates)
				if c.eventService != nil && c.shouldPublishEvent(event.Level) {
					c.publishLogEvent(event, logEntry)
				}
			}

			// Write runs concurrently; lines within a run stay ordered.
			var wg sync.WaitGroup
			for runID, entries := range entriesByRun {
				wg.Add(1)
				go func(rid string, lines []models.RunLogEntry) {
					defer wg.Done()

					for _, line := range lines {
						if err := c.storage.AppendEntry(c.ctx, rid, line); err != nil {
							// Use logger without correlation ID to avoid recursive channel processing
							c.logger.Warn().
								Err(err).
								Str("run_id", rid).
								Msg("Failed to write run log entry")
							return
						}
					}
				}(runID, entries)
			}

			wg.Wait()

		case <-c.ctx.Done():
			return
		}
	}
}

// shouldPublishEvent checks if a log event should be published based on level threshold
func (c *Consumer) shouldPublishEvent(level log.Level) bool {
	eventLevel := arborlevels.FromLogLevel(level)
	return eventLevel >= c.minEventLevel
}

// publishLogEvent publishes a log entry as an event for UI consumption
func (c *Consumer) publishLogEvent(event arbormodels.LogEvent, logEntry models.RunLogEntry) {
	// Circuit breaker: skip if an identical line is already in flight,
	// so a handler that logs cannot feed the bus its own output.
	key := fmt.Sprintf("%s:%s", event.CorrelationID, logEntry.Message)
	if _, loaded := c.publishing.LoadOrStore(key, true); loaded {
		return
	}
	defer c.publishing.Delete(key)

	payload := map[string]interface{}{
		"run_id":    event.CorrelationID,
		"level":     logEntry.Level,
		"message":   logEntry.Message,
		"timestamp": logEntry.Timestamp,
	}

	if err := c.eventService.Publish(c.ctx, interfaces.Event{
		Type:    interfaces.EventLogEntry,
		Payload: payload,
	}); err != nil {
		// Use logger without correlation ID to avoid recursive channel processing
		c.logger.Warn().
			Err(err).
			Str("run_id", event.CorrelationID).
			Msg("Failed to publish log event")
	}
}

// transformEvent converts arbor LogEvent to RunLogEntry format
func transformEvent(event arbormodels.LogEvent) models.RunLogEntry {
	formattedTime := event.Timestamp.Format("15:04:05")
	fullTimestamp := event.Timestamp.Format(time.RFC3339Nano)
	levelStr := convertTo3Letter(event.Level.String())

	// Structured fields fold into the message for persistence.
	message := event.Message
	if len(event.Fields) > 0 {
		for key, value := range event.Fields {
			message += fmt.Sprintf(" %s=%v", key, value)
		}
	}

	return models.RunLogEntry{
		Timestamp:     formattedTime,
		FullTimestamp: fullTimestamp,
		Level:         levelStr,
		Message:       message,
		RunID:         event.CorrelationID,
	}
}
