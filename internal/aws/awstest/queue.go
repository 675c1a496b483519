package awstest

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// SQS records sent messages.
type SQS struct {
	mu       sync.Mutex
	Messages []*sqs.SendMessageInput
	Err      error
}

func (q *SQS) SendMessage(ctx context.Context, in *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.Err != nil {
		return nil, q.Err
	}
	q.Messages = append(q.Messages, in)
	return &sqs.SendMessageOutput{}, nil
}

// SES records sent emails.
type SES struct {
	mu   sync.Mutex
	Sent []*sesv2.SendEmailInput
	Err  error
}

func (s *SES) SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	s.Sent = append(s.Sent, in)
	return &sesv2.SendEmailOutput{MessageId: strPtr(fmt.Sprintf("msg-%d", len(s.Sent)))}, nil
}

// CloudWatch records metric data.
type CloudWatch struct {
	mu    sync.Mutex
	Names []string
}

func (c *CloudWatch) PutMetricData(ctx context.Context, in *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, d := range in.MetricData {
		if d.MetricName != nil {
			c.Names = append(c.Names, *d.MetricName)
		}
	}
	return &cloudwatch.PutMetricDataOutput{}, nil
}

// Count returns how many data points named name were recorded.
func (c *CloudWatch) Count(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, got := range c.Names {
		if got == name {
			n++
		}
	}
	return n
}
