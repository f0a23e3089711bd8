package aws

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"catalog-enrichment/internal/models"

	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	input *sns.PublishInput
	err   error
}

func (f *fakePublisher) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{}, nil
}

func TestSNSClient_PublishJobEvent(t *testing.T) {
	api := &fakePublisher{}
	client := NewSNSClientWithAPI(api, "arn:aws:sns:us-east-1:123456789012:enrichment-jobs")

	job := &models.EnrichmentJob{
		ID:         12,
		ProductIDs: []int64{1, 2},
		Status:     models.JobStatusCompleted,
		Progress:   100,
		Result:     models.CompletedResult(2, 0),
	}
	require.NoError(t, client.PublishJobEvent(context.Background(), job))

	require.NotNil(t, api.input)
	assert.Equal(t, "arn:aws:sns:us-east-1:123456789012:enrichment-jobs", *api.input.TopicArn)
	assert.Equal(t, "COMPLETED", *api.input.MessageAttributes["status"].StringValue)
	assert.Equal(t, "12", *api.input.MessageAttributes["jobId"].StringValue)

	var event JobEvent
	require.NoError(t, json.Unmarshal([]byte(*api.input.Message), &event))
	assert.Equal(t, "enrichment.job.completed", event.Event)
	assert.Equal(t, int64(12), event.Job.ID)
}

func TestSNSClient_PublishJobEvent_Error(t *testing.T) {
	client := NewSNSClientWithAPI(&fakePublisher{err: errors.New("throttled")}, "arn")

	err := client.PublishJobEvent(context.Background(), &models.EnrichmentJob{ID: 3, Status: models.JobStatusFailed})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish job 3 event")
}
