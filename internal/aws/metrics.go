package aws

import (
	"context"
	"fmt"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// Metric names emitted by the API and the worker.
const (
	MetricOrderCreated       = "OrderCreated"
	MetricGatewayFailure     = "GatewayFailure"
	MetricPaymentVerified    = "PaymentVerified"
	MetricSignatureMismatch  = "SignatureMismatch"
	MetricConfirmationSent   = "ConfirmationEmailSent"
	MetricConfirmationFailed = "ConfirmationEmailFailed"
)

// Metrics publishes counters to CloudWatch. A nil *Metrics or one without a
// client is a no-op so local runs need no AWS access.
type Metrics struct {
	client    CloudWatchAPI
	namespace string
	nowFunc   func() time.Time
}

// NewMetrics returns a Metrics bound to a CloudWatch namespace.
func NewMetrics(client CloudWatchAPI, namespace string) *Metrics {
	return &Metrics{
		client:    client,
		namespace: namespace,
		nowFunc:   time.Now,
	}
}

// Count records a single occurrence of name with optional dimensions.
func (m *Metrics) Count(ctx context.Context, name string, dims map[string]string) error {
	if m == nil || m.client == nil || m.namespace == "" {
		return nil
	}
	datum := cwtypes.MetricDatum{
		MetricName: sdkaws.String(name),
		Timestamp:  sdkaws.Time(m.nowFunc()),
		Unit:       cwtypes.StandardUnitCount,
		Value:      sdkaws.Float64(1),
	}
	for k, v := range dims {
		datum.Dimensions = append(datum.Dimensions, cwtypes.Dimension{
			Name:  sdkaws.String(k),
			Value: sdkaws.String(v),
		})
	}

	_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  sdkaws.String(m.namespace),
		MetricData: []cwtypes.MetricDatum{datum},
	})
	if err != nil {
		return fmt.Errorf("put metric %s: %w", name, err)
	}
	return nil
}
