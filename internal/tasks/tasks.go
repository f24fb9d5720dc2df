package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/rileyflames/marketplace/internal/config"
	"github.com/rileyflames/marketplace/internal/services"
)

// Background task types.
const (
	TypeRatingsRebuild = "ratings:rebuild"
	TypeReportsDigest  = "reports:digest"
)

// Client wraps the asynq client with typed enqueue helpers.
type Client struct {
	inner *asynq.Client
}

// NewClient creates an asynq-backed task client sharing the Redis connection
// settings of rdb.
func NewClient(rdb *redis.Client) *Client {
	clientOpt := asynq.RedisClientOpt{
		Addr:     rdb.Options().Addr,
		Password: rdb.Options().Password,
		DB:       rdb.Options().DB,
	}
	return &Client{inner: asynq.NewClient(clientOpt)}
}

// Close releases the underlying asynq client.
func (c *Client) Close() error {
	return c.inner.Close()
}

// RatingsRebuildPayload identifies the user whose rating snapshot to rebuild.
type RatingsRebuildPayload struct {
	UserID string `json:"user_id"`
}

// EnqueueRatingsRebuild schedules a snapshot rebuild for one user. The task
// ID is derived from the user, so repeated repair requests for the same user
// collapse into a single queued task.
func (c *Client) EnqueueRatingsRebuild(userID primitive.ObjectID) error {
	payload, err := json.Marshal(RatingsRebuildPayload{UserID: userID.Hex()})
	if err != nil {
		return fmt.Errorf("failed to marshal ratings rebuild payload: %w", err)
	}
	task := asynq.NewTask(TypeRatingsRebuild, payload)
	_, err = c.inner.Enqueue(task,
		asynq.TaskID(TypeRatingsRebuild+":"+userID.Hex()),
		asynq.Queue("critical"),
		asynq.MaxRetry(5),
	)
	if err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
		return fmt.Errorf("failed to enqueue ratings rebuild for user %s: %w", userID.Hex(), err)
	}
	return nil
}

// ReportsDigestPayload tags one digest run.
type ReportsDigestPayload struct {
	RunID string `json:"run_id"`
}

// EnqueueReportsDigest schedules one run of the pending-report digest.
func (c *Client) EnqueueReportsDigest() error {
	payload, err := json.Marshal(ReportsDigestPayload{RunID: uuid.NewString()})
	if err != nil {
		return fmt.Errorf("failed to marshal reports digest payload: %w", err)
	}
	_, err = c.inner.Enqueue(asynq.NewTask(TypeReportsDigest, payload), asynq.Queue("low"))
	if err != nil {
		return fmt.Errorf("failed to enqueue reports digest: %w", err)
	}
	return nil
}

// TaskProcessor handles the processing of background tasks. It holds the
// services the task handlers need.
type TaskProcessor struct {
	cfg           *config.Config
	ratingService services.IRatingService
	reportService services.IReportService
}

// NewTaskProcessor creates a new TaskProcessor.
func NewTaskProcessor(cfg *config.Config, ratingService services.IRatingService, reportService services.IReportService) *TaskProcessor {
	return &TaskProcessor{
		cfg:           cfg,
		ratingService: ratingService,
		reportService: reportService,
	}
}

// HandleRatingsRebuildTask recomputes one user's rating snapshot from the
// ratings collection. Safe to retry: the rebuild is idempotent.
func (p *TaskProcessor) HandleRatingsRebuildTask(ctx context.Context, t *asynq.Task) error {
	var payload RatingsRebuildPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal ratings rebuild payload: %v: %w", err, asynq.SkipRetry)
	}
	userID, err := primitive.ObjectIDFromHex(payload.UserID)
	if err != nil {
		return fmt.Errorf("invalid user ID in ratings rebuild payload: %v: %w", err, asynq.SkipRetry)
	}

	if err := p.ratingService.RebuildUserRatings(ctx, userID); err != nil {
		return fmt.Errorf("ratings rebuild for user %s failed: %w", payload.UserID, err)
	}
	return nil
}

// HandleReportsDigestTask logs the pending moderation backlog grouped by
// target, giving moderators a periodic queue summary.
func (p *TaskProcessor) HandleReportsDigestTask(ctx context.Context, t *asynq.Task) error {
	var payload ReportsDigestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal reports digest payload: %v: %w", err, asynq.SkipRetry)
	}

	rows, err := p.reportService.CountPendingByTarget(ctx)
	if err != nil {
		return fmt.Errorf("reports digest %s failed: %w", payload.RunID, err)
	}
	if len(rows) == 0 {
		log.Printf("Reports digest %s: moderation queue is empty", payload.RunID)
		return nil
	}
	for _, row := range rows {
		log.Printf("Reports digest %s: %s %s has %d pending report(s)", payload.RunID, row.TargetType, row.TargetID.Hex(), row.Count)
	}
	return nil
}

// SetupServer configures an Asynq server and its handler mux. The caller
// runs srv.Run(mux) on its own goroutine and srv.Shutdown() on exit.
func SetupServer(rdb *redis.Client, processor *TaskProcessor) (*asynq.Server, *asynq.ServeMux) {
	serverOpt := asynq.RedisClientOpt{
		Addr:     rdb.Options().Addr,
		Password: rdb.Options().Password,
		DB:       rdb.Options().DB,
	}

	srv := asynq.NewServer(
		serverOpt,
		asynq.Config{
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Printf("[Asynq Error] Task Type: %s, Payload: %s, Error: %v", task.Type(), string(task.Payload()), err)
			}),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeRatingsRebuild, processor.HandleRatingsRebuildTask)
	mux.HandleFunc(TypeReportsDigest, processor.HandleReportsDigestTask)
	log.Println("Registered background task handlers.")

	return srv, mux
}

// StartDigestScheduler enqueues the reports digest on a fixed interval until
// ctx is cancelled.
func StartDigestScheduler(ctx context.Context, client *Client, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := client.EnqueueReportsDigest(); err != nil {
					log.Printf("Failed to enqueue reports digest: %v", err)
				}
			}
		}
	}()
}
