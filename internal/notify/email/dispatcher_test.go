// internal/notify/email/dispatcher_test.go
package email

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formative-notifications/internal/common/config"
	"formative-notifications/internal/common/logger"
	"formative-notifications/internal/models"
)

type MockSESService struct {
	SendEmailFunc func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
	Calls         []*ses.SendEmailInput
}

func (m *MockSESService) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	m.Calls = append(m.Calls, params)
	return m.SendEmailFunc(ctx, params, optFns...)
}

func testEmailConfig() config.EmailConfig {
	return config.EmailConfig{
		Enabled:   true,
		FromEmail: "noreply@formative.app",
		FromName:  "Formative",
		AWSRegion: "us-east-1",
	}
}

func testJob(template string, data map[string]interface{}) *models.EmailJob {
	return &models.EmailJob{
		ID:           "job-001",
		UserID:       "user-001",
		ToEmail:      "u@x.com",
		Template:     template,
		TemplateData: data,
		Status:       models.JobStatusPending,
	}
}

func TestDispatch_Success(t *testing.T) {
	mock := &MockSESService{
		SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			return &ses.SendEmailOutput{MessageId: aws.String("ses-msg-123")}, nil
		},
	}
	d := NewDispatcher(mock, testEmailConfig(), logger.NewTestLogger(t))

	result := d.Dispatch(context.Background(), testJob(TemplateMessageReceived, map[string]interface{}{
		"senderName": "Ana",
		"preview":    "Hi there",
	}))

	assert.True(t, result.Success)
	assert.Equal(t, "ses-msg-123", result.MessageID)
	assert.Empty(t, result.Error)

	require.Len(t, mock.Calls, 1)
	call := mock.Calls[0]
	assert.Equal(t, "New message from Ana", *call.Message.Subject.Data)
	assert.Equal(t, []string{"u@x.com"}, call.Destination.ToAddresses)
	assert.Equal(t, "Formative <noreply@formative.app>", *call.Source)
	assert.Contains(t, *call.Message.Body.Html.Data, "Hi there")
}

func TestDispatch_NotConfigured(t *testing.T) {
	d := NewDispatcher(nil, config.EmailConfig{}, logger.NewNoOpLogger())

	result := d.Dispatch(context.Background(), testJob(TemplateMessageReceived, nil))

	assert.False(t, result.Success)
	assert.Equal(t, "email service not configured", result.Error)
	assert.False(t, d.Configured())
}

func TestDispatch_ProviderError(t *testing.T) {
	mock := &MockSESService{
		SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			return nil, errors.New("rate exceeded")
		},
	}
	d := NewDispatcher(mock, testEmailConfig(), logger.NewNoOpLogger())

	result := d.Dispatch(context.Background(), testJob(TemplatePaymentReceived, map[string]interface{}{"amount": "$500"}))

	assert.False(t, result.Success)
	assert.Equal(t, "rate exceeded", result.Error)
}

func TestDispatch_UnknownTemplateUsesGenericFallback(t *testing.T) {
	mock := &MockSESService{
		SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			return &ses.SendEmailOutput{MessageId: aws.String("ses-msg-456")}, nil
		},
	}
	d := NewDispatcher(mock, testEmailConfig(), logger.NewNoOpLogger())

	// Unknown template with data missing every optional field must still send.
	result := d.Dispatch(context.Background(), testJob("no_such_template", nil))

	assert.True(t, result.Success)
	require.Len(t, mock.Calls, 1)
	assert.Equal(t, "Notification from Formative", *mock.Calls[0].Message.Subject.Data)
}

func TestDispatch_MultipleDestinations(t *testing.T) {
	mock := &MockSESService{
		SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			return &ses.SendEmailOutput{MessageId: aws.String("ses-msg-789")}, nil
		},
	}
	d := NewDispatcher(mock, testEmailConfig(), logger.NewNoOpLogger())

	job := testJob(TemplateGeneric, map[string]interface{}{"title": "Hello"})
	job.ToEmail = "a@x.com, b@x.com"

	result := d.Dispatch(context.Background(), job)

	assert.True(t, result.Success)
	require.Len(t, mock.Calls, 1)
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, mock.Calls[0].Destination.ToAddresses)
}
