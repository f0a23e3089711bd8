// internal/common/aws/sns.go
package aws

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"catalog-enrichment/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// PublishAPI is the subset of the SNS client used here.
type PublishAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSClient publishes enrichment job events to one topic.
type SNSClient struct {
	client   PublishAPI
	topicARN string
}

// JobEvent is the message body for a job that reached a terminal state.
type JobEvent struct {
	Event      string                `json:"event"`
	OccurredAt time.Time             `json:"occurredAt"`
	Job        *models.EnrichmentJob `json:"job"`
}

func NewSNSClient(ctx context.Context, region, topicARN string) (*SNSClient, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return NewSNSClientWithAPI(sns.NewFromConfig(cfg), topicARN), nil
}

func NewSNSClientWithAPI(api PublishAPI, topicARN string) *SNSClient {
	return &SNSClient{client: api, topicARN: topicARN}
}

func eventName(status models.JobStatus) string {
	switch status {
	case models.JobStatusCompleted:
		return "enrichment.job.completed"
	case models.JobStatusFailed:
		return "enrichment.job.failed"
	}
	return "enrichment.job.updated"
}

// PublishJobEvent sends the job snapshot with its status as a message attribute.
func (s *SNSClient) PublishJobEvent(ctx context.Context, job *models.EnrichmentJob) error {
	body, err := json.Marshal(JobEvent{
		Event:      eventName(job.Status),
		OccurredAt: time.Now().UTC(),
		Job:        job,
	})
	if err != nil {
		return fmt.Errorf("encode job event: %w", err)
	}

	_, err = s.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(s.topicARN),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"status": {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(job.Status)),
			},
			"jobId": {
				DataType:    aws.String("Number"),
				StringValue: aws.String(fmt.Sprintf("%d", job.ID)),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("publish job %d event: %w", job.ID, err)
	}
	return nil
}
