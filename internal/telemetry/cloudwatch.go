package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"quill/internal/types"
)

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

const (
	cloudWatchBufferSize    = 256
	cloudWatchBatchSize     = 20
	cloudWatchFlushInterval = 10 * time.Second
	cloudWatchPutTimeout    = 5 * time.Second
)

// CloudWatch emits the alerting subset of metrics:
//
//	RequestPipelineDefect   {Endpoint}            every raw-body defect
//	SignatureVerification   {Endpoint, Outcome}   rejected and malformed only
//	WebhookDispatch         {EventType, Outcome}  failed dispatches only
//
// Request volume and successful outcomes are left to Prometheus.
//
// Datums are queued and published by a background loop in batches, so a
// slow CloudWatch call never delays a response. When the queue is full,
// datums are dropped and logged.
type CloudWatch struct {
	client    CloudWatchClient
	namespace string
	logger    *slog.Logger

	queue chan cwtypes.MetricDatum
	done  chan struct{}
	once  sync.Once
}

var _ Recorder = (*CloudWatch)(nil)

// NewCloudWatch creates the emitter and starts its publish loop. Call Close
// to flush and stop it.
func NewCloudWatch(client CloudWatchClient, namespace string, logger *slog.Logger) *CloudWatch {
	if logger == nil {
		logger = slog.Default()
	}
	if namespace == "" {
		namespace = types.MetricNamespace
	}
	cw := &CloudWatch{
		client:    client,
		namespace: namespace,
		logger:    logger,
		queue:     make(chan cwtypes.MetricDatum, cloudWatchBufferSize),
		done:      make(chan struct{}),
	}
	go cw.run(cloudWatchFlushInterval)
	return cw
}

func (c *CloudWatch) RecordVerification(_ context.Context, endpoint, outcome string) {
	if outcome != types.OutcomeRejected && outcome != types.OutcomeMalformed {
		return
	}
	c.enqueue(count(types.MetricVerification,
		dim(types.DimEndpoint, endpoint),
		dim(types.DimOutcome, outcome),
	))
}

func (c *CloudWatch) RecordPipelineDefect(_ context.Context, endpoint string) {
	c.enqueue(count(types.MetricPipelineDefect, dim(types.DimEndpoint, endpoint)))
}

func (c *CloudWatch) RecordDispatch(_ context.Context, eventType, result string) {
	if result != types.DispatchFailed {
		return
	}
	c.enqueue(count(types.MetricWebhookDispatch,
		dim(types.DimEventType, eventType),
		dim(types.DimOutcome, result),
	))
}

// RecordRequest is a no-op; request metrics are served by Prometheus.
func (c *CloudWatch) RecordRequest(string, string, string, time.Duration) {}

// Close stops accepting datums, publishes what is queued and waits for the
// loop to exit or ctx to expire.
func (c *CloudWatch) Close(ctx context.Context) error {
	c.once.Do(func() { close(c.queue) })
	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *CloudWatch) enqueue(d cwtypes.MetricDatum) {
	defer func() {
		// Send on a closed queue after Close; the datum is dropped.
		if recover() != nil {
			c.logger.Warn("cloudwatch metric dropped after close", "metric", aws.ToString(d.MetricName))
		}
	}()
	select {
	case c.queue <- d:
	default:
		c.logger.Warn("cloudwatch metric queue full, dropping datum", "metric", aws.ToString(d.MetricName))
	}
}

func (c *CloudWatch) run(interval time.Duration) {
	defer close(c.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	batch := make([]cwtypes.MetricDatum, 0, cloudWatchBatchSize)
	for {
		select {
		case d, ok := <-c.queue:
			if !ok {
				c.publish(batch)
				return
			}
			batch = append(batch, d)
			if len(batch) >= cloudWatchBatchSize {
				c.publish(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			c.publish(batch)
			batch = batch[:0]
		}
	}
}

func (c *CloudWatch) publish(batch []cwtypes.MetricDatum) {
	if len(batch) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), cloudWatchPutTimeout)
	defer cancel()

	input := &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(c.namespace),
		MetricData: append([]cwtypes.MetricDatum(nil), batch...),
	}
	if _, err := c.client.PutMetricData(ctx, input); err != nil {
		c.logger.Error("failed to publish cloudwatch metrics",
			"error", err.Error(),
			"datums", len(batch),
		)
	}
}

func count(name string, dims ...cwtypes.Dimension) cwtypes.MetricDatum {
	return cwtypes.MetricDatum{
		MetricName: aws.String(name),
		Value:      aws.Float64(1),
		Unit:       cwtypes.StandardUnitCount,
		Timestamp:  aws.Time(time.Now()),
		Dimensions: dims,
	}
}

func dim(name, value string) cwtypes.Dimension {
	return cwtypes.Dimension{Name: aws.String(name), Value: aws.String(value)}
}
