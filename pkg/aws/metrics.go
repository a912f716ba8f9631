package aws

import (
	"context"
	"fmt"
	"sort"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

const (
	MetricHTTPRequests = "HTTPRequests"
	MetricHTTPErrors   = "HTTPErrors"
	MetricHTTPLatency  = "HTTPLatency"
	MetricHTTP4xx      = "HTTP4xxErrors"
	MetricHTTP5xx      = "HTTP5xxErrors"

	MetricCheckoutSessions = "CheckoutSessionsCreated"
	MetricOrdersCompleted  = "OrdersCompleted"
	MetricEmailsFailed     = "EmailsFailed"
)

// maxDatumsPerCall is the PutMetricData request limit.
const maxDatumsPerCall = 1000

type cloudWatchAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// Datum is one data point. All datums in a PutMetrics call share a timestamp.
type Datum struct {
	Name  string
	Value float64
	Unit  types.StandardUnit
}

// Count is a single-increment counter datum.
func Count(name string) Datum { return Datum{Name: name, Value: 1, Unit: types.StandardUnitCount} }

// Latency is a duration datum in milliseconds.
func Latency(name string, d time.Duration) Datum {
	return Datum{Name: name, Value: float64(d.Milliseconds()), Unit: types.StandardUnitMilliseconds}
}

// MetricsClient publishes storefront counters and latencies to CloudWatch.
// The zero value and a nil pointer are both disabled.
type MetricsClient struct {
	client    cloudWatchAPI
	namespace string
	enabled   bool
	now       func() time.Time
}

func NewMetricsClient(cfg sdkaws.Config, namespace string, enabled bool) *MetricsClient {
	if namespace == "" {
		namespace = "Storefront"
	}
	return &MetricsClient{
		client:    cloudwatch.NewFromConfig(cfg),
		namespace: namespace,
		enabled:   enabled,
		now:       time.Now,
	}
}

// PutMetrics sends datums in as few requests as the API allows, each carrying
// the same dimensions.
func (m *MetricsClient) PutMetrics(ctx context.Context, dimensions map[string]string, datums ...Datum) error {
	if !m.IsEnabled() || len(datums) == 0 {
		return nil
	}

	dims := toDimensions(dimensions)
	ts := time.Now()
	if m.now != nil {
		ts = m.now()
	}

	for start := 0; start < len(datums); start += maxDatumsPerCall {
		end := min(start+maxDatumsPerCall, len(datums))
		data := make([]types.MetricDatum, 0, end-start)
		for _, d := range datums[start:end] {
			data = append(data, types.MetricDatum{
				MetricName: sdkaws.String(d.Name),
				Value:      sdkaws.Float64(d.Value),
				Unit:       d.Unit,
				Timestamp:  sdkaws.Time(ts),
				Dimensions: dims,
			})
		}
		if _, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  sdkaws.String(m.namespace),
			MetricData: data,
		}); err != nil {
			return fmt.Errorf("put %d metrics to %s: %w", len(data), m.namespace, err)
		}
	}
	return nil
}

func (m *MetricsClient) RecordCount(ctx context.Context, metricName string, dimensions map[string]string) error {
	return m.PutMetrics(ctx, dimensions, Count(metricName))
}

func (m *MetricsClient) RecordLatency(ctx context.Context, metricName string, duration time.Duration, dimensions map[string]string) error {
	return m.PutMetrics(ctx, dimensions, Latency(metricName, duration))
}

// IsEnabled is safe on a nil client.
func (m *MetricsClient) IsEnabled() bool {
	return m != nil && m.enabled && m.client != nil
}

// toDimensions orders dimensions by name so identical maps produce identical
// requests.
func toDimensions(in map[string]string) []types.Dimension {
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	dims := make([]types.Dimension, 0, len(keys))
	for _, k := range keys {
		dims = append(dims, types.Dimension{Name: sdkaws.String(k), Value: sdkaws.String(in[k])})
	}
	return dims
}
