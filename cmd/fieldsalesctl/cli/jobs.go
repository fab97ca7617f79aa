package cli

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/fieldsales/jobs"
)

// TaskEnqueuer is the subset of the Asynq client the jobs commands use.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// QueueInspector is the subset of the Asynq inspector the jobs commands use.
type QueueInspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
	ListScheduledTasks(queue string, opts ...asynq.ListOption) ([]*asynq.TaskInfo, error)
	Close() error
}

// JobsCLI wraps manual management helpers for Asynq jobs.
type JobsCLI struct {
	client    TaskEnqueuer
	inspector QueueInspector
}

// NewJobsCLI initialises the CLI helpers against the provided Redis options.
func NewJobsCLI(opt asynq.RedisClientOpt) *JobsCLI {
	return &JobsCLI{client: asynq.NewClient(opt), inspector: asynq.NewInspector(opt)}
}

// Close releases underlying resources.
func (c *JobsCLI) Close() error {
	var err error
	if c.inspector != nil {
		if closeErr := c.inspector.Close(); closeErr != nil {
			err = closeErr
		}
	}
	if c.client != nil {
		if closeErr := c.client.Close(); closeErr != nil {
			err = closeErr
		}
	}
	return err
}

// Trigger enqueues a supported job by task type. zone narrows the warmup to a
// single zone; reason is recorded on cache bumps.
func (c *JobsCLI) Trigger(ctx context.Context, name string, zone *uuid.UUID, reason string) (*asynq.TaskInfo, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("jobs cli: client not configured")
	}
	var task *asynq.Task
	var err error
	switch name {
	case jobs.TaskAnalyticsReportWarmup:
		task, err = jobs.NewReportWarmupTask(zone)
	case jobs.TaskAnalyticsCacheBump:
		task, err = jobs.NewCacheBumpTask(reason)
	default:
		return nil, fmt.Errorf("jobs cli: unsupported job %s", name)
	}
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task, asynq.Queue(jobs.QueueDefault), asynq.MaxRetry(3))
}

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string
	Pending   int
	Active    int
	Scheduled int
	Retry     int
}

// InspectQueue reports the queue metrics for the default queue.
func (c *JobsCLI) InspectQueue(ctx context.Context) (QueueStats, error) {
	if c == nil || c.inspector == nil {
		return QueueStats{}, errors.New("jobs cli: inspector not configured")
	}
	info, err := c.inspector.GetQueueInfo(jobs.QueueDefault)
	if err != nil {
		return QueueStats{}, err
	}
	stats := QueueStats{Queue: jobs.QueueDefault}
	if info != nil {
		stats.Pending = info.Pending
		stats.Active = info.Active
		stats.Scheduled = info.Scheduled
		stats.Retry = info.Retry
	}
	return stats, nil
}

// ListScheduled returns scheduled task infos for observability.
func (c *JobsCLI) ListScheduled(ctx context.Context, size int) ([]*asynq.TaskInfo, error) {
	if c == nil || c.inspector == nil {
		return nil, errors.New("jobs cli: inspector not configured")
	}
	if size <= 0 {
		size = 10
	}
	return c.inspector.ListScheduledTasks(jobs.QueueDefault, asynq.PageSize(size), asynq.Page(1))
}

// newJobsCLI is swapped in tests.
var newJobsCLI = func() (*JobsCLI, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	opt, err := jobs.RedisOpt(cfg.AsynqRedisAddr)
	if err != nil {
		return nil, err
	}
	return NewJobsCLI(opt), nil
}

func newJobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Trigger and inspect background jobs",
	}

	var zone, reason string
	trigger := &cobra.Command{
		Use:       "trigger [" + jobs.TaskAnalyticsReportWarmup + "|" + jobs.TaskAnalyticsCacheBump + "]",
		Short:     "Enqueue a job immediately",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{jobs.TaskAnalyticsReportWarmup, jobs.TaskAnalyticsCacheBump},
		RunE: func(cmd *cobra.Command, args []string) error {
			var zoneID *uuid.UUID
			if zone != "" {
				id, err := uuid.Parse(zone)
				if err != nil {
					return fmt.Errorf("invalid --zone: %w", err)
				}
				zoneID = &id
			}
			c, err := newJobsCLI()
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()
			info, err := c.Trigger(cmd.Context(), args[0], zoneID, reason)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s as %s\n", info.Type, info.ID)
			return nil
		},
	}
	trigger.Flags().StringVar(&zone, "zone", "", "limit the report warmup to one zone id")
	trigger.Flags().StringVar(&reason, "reason", "manual", "reason recorded with a cache bump")

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show queue counters and upcoming scheduled tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newJobsCLI()
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()
			s, err := c.InspectQueue(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "QUEUE\tPENDING\tACTIVE\tSCHEDULED\tRETRY")
			fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\n", s.Queue, s.Pending, s.Active, s.Scheduled, s.Retry)
			if err := tw.Flush(); err != nil {
				return err
			}
			scheduled, err := c.ListScheduled(cmd.Context(), 10)
			if err != nil {
				return err
			}
			for _, t := range scheduled {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", t.ID, t.Type, t.NextProcessAt.Format("2006-01-02 15:04"))
			}
			return nil
		},
	}

	cmd.AddCommand(trigger, stats)
	return cmd
}
