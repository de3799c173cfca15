// internal/notify/email/dispatcher.go
package email

import (
	"context"
	"strings"

	"formative-notifications/internal/common/config"
	"formative-notifications/internal/common/errors"
	"formative-notifications/internal/common/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"formative-notifications/internal/models"
)

// SESService is the subset of the SES client the dispatcher uses.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// DispatchResult is the outcome of one provider invocation for one job.
type DispatchResult struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Dispatcher renders a job's template and invokes the email provider. The
// provider is nil when the channel is not configured; dispatch then
// short-circuits with a fixed reason instead of crashing. That outcome is
// distinguished from a provider-side failure in logs but follows the same
// retry policy.
type Dispatcher struct {
	provider SESService
	cfg      config.EmailConfig
	logger   logger.Logger
}

func NewDispatcher(provider SESService, cfg config.EmailConfig, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		provider: provider,
		cfg:      cfg,
		logger:   log.WithFields(map[string]interface{}{"component": "email-dispatcher"}),
	}
}

// Configured reports whether a provider is present.
func (d *Dispatcher) Configured() bool {
	return d.provider != nil
}

// Dispatch sends one job. It never panics and never returns an error; every
// failure mode is folded into the result.
func (d *Dispatcher) Dispatch(ctx context.Context, job *models.EmailJob) DispatchResult {
	if d.provider == nil {
		stdErr := errors.NewEmailNotConfiguredError()
		d.logger.Warn("dispatch skipped", map[string]interface{}{
			"jobId": job.ID,
			"code":  string(stdErr.Code),
		})
		return DispatchResult{Success: false, Error: stdErr.Message}
	}

	tmpl, known := LookupTemplate(job.Template)
	if !known {
		d.logger.Debug("unknown template, using generic fallback", map[string]interface{}{
			"jobId":    job.ID,
			"template": job.Template,
		})
	}

	if issues := ValidateTemplateData(job.Template, job.TemplateData); len(issues) > 0 {
		d.logger.Warn("template data does not match declared shape", map[string]interface{}{
			"jobId":    job.ID,
			"template": job.Template,
			"issues":   issues,
		})
	}

	subject := tmpl.Subject(job.TemplateData)
	html := tmpl.HTML(job.TemplateData)

	source := d.cfg.FromEmail
	if d.cfg.FromName != "" {
		source = d.cfg.FromName + " <" + d.cfg.FromEmail + ">"
	}

	out, err := d.provider.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: splitAddresses(job.ToEmail),
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(html)},
			},
		},
		Source: aws.String(source),
	})
	if err != nil {
		stdErr := errors.NewEmailSendFailedError(err)
		d.logger.Error("provider send failed", map[string]interface{}{
			"jobId": job.ID,
			"code":  string(stdErr.Code),
			"error": err.Error(),
		})
		return DispatchResult{Success: false, Error: err.Error()}
	}

	messageID := ""
	if out != nil && out.MessageId != nil {
		messageID = *out.MessageId
	}

	return DispatchResult{Success: true, MessageID: messageID}
}

// splitAddresses accepts a single address or a comma-separated list.
func splitAddresses(to string) []string {
	parts := strings.Split(to, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
