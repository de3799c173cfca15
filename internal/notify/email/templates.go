// internal/notify/email/templates.go
package email

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// Known template names. Anything else falls back to TemplateGeneric.
const (
	TemplateMessageReceived     = "message_received"
	TemplateApplicationReceived = "application_received"
	TemplateApplicationAccepted = "application_accepted"
	TemplatePaymentReceived     = "payment_received"
	TemplateMilestoneCompleted  = "milestone_completed"
	TemplateFileUploaded        = "file_uploaded"
	TemplateDeadlineReminder    = "deadline_reminder"
	TemplateOpportunityInvite   = "opportunity_invite"
	TemplateGeneric             = "generic"
)

// Template pairs a subject renderer with an HTML body renderer. Renderers must
// tolerate any shape of data, including nil: a missing field renders as its
// zero text, never a panic.
type Template struct {
	Subject func(data map[string]interface{}) string
	HTML    func(data map[string]interface{}) string
	Schema  string // optional JSON schema for the expected data shape
}

// str reads a string field from template data, falling back when the key is
// absent or not a string.
func str(data map[string]interface{}, key, fallback string) string {
	if data == nil {
		return fallback
	}
	if v, ok := data[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
		if v != nil {
			return fmt.Sprintf("%v", v)
		}
	}
	return fallback
}

func layout(heading, body, actionURL string) string {
	html := `<div style="font-family:Helvetica,Arial,sans-serif;max-width:560px;margin:0 auto;padding:24px">` +
		`<h2 style="color:#1a1a2e">` + heading + `</h2>` +
		`<p style="color:#444;line-height:1.5">` + body + `</p>`
	if actionURL != "" {
		html += `<p><a href="` + actionURL + `" style="display:inline-block;background:#4f46e5;color:#fff;padding:10px 20px;border-radius:6px;text-decoration:none">View on Formative</a></p>`
	}
	html += `<p style="color:#999;font-size:12px">You are receiving this because of your notification settings on Formative.</p></div>`
	return html
}

var templates = map[string]Template{
	TemplateMessageReceived: {
		Subject: func(d map[string]interface{}) string {
			return "New message from " + str(d, "senderName", "a Formative user")
		},
		HTML: func(d map[string]interface{}) string {
			body := str(d, "preview", str(d, "message", ""))
			return layout("You have a new message", body, str(d, "actionUrl", ""))
		},
		Schema: `{"type":"object","properties":{"senderName":{"type":"string"},"preview":{"type":"string"}},"required":["senderName"]}`,
	},
	TemplateApplicationReceived: {
		Subject: func(d map[string]interface{}) string {
			return "New application for " + str(d, "opportunityTitle", "your opportunity")
		},
		HTML: func(d map[string]interface{}) string {
			body := str(d, "applicantName", "Someone") + " applied to " + str(d, "opportunityTitle", "your opportunity") + "."
			return layout("New application received", body, str(d, "actionUrl", ""))
		},
		Schema: `{"type":"object","properties":{"applicantName":{"type":"string"},"opportunityTitle":{"type":"string"}},"required":["opportunityTitle"]}`,
	},
	TemplateApplicationAccepted: {
		Subject: func(d map[string]interface{}) string {
			return "Your application was accepted"
		},
		HTML: func(d map[string]interface{}) string {
			body := "Congratulations! Your application for " + str(d, "opportunityTitle", "an opportunity") + " was accepted."
			return layout("Application accepted", body, str(d, "actionUrl", ""))
		},
	},
	TemplatePaymentReceived: {
		Subject: func(d map[string]interface{}) string {
			return "Payment received: " + str(d, "amount", "")
		},
		HTML: func(d map[string]interface{}) string {
			body := "A payment of " + str(d, "amount", "an undisclosed amount") + " was recorded for " + str(d, "campaignName", "your campaign") + "."
			return layout("Payment received", body, str(d, "actionUrl", ""))
		},
		Schema: `{"type":"object","properties":{"amount":{"type":"string"},"campaignName":{"type":"string"}},"required":["amount"]}`,
	},
	TemplateMilestoneCompleted: {
		Subject: func(d map[string]interface{}) string {
			return "Milestone completed: " + str(d, "milestoneName", "")
		},
		HTML: func(d map[string]interface{}) string {
			body := str(d, "milestoneName", "A milestone") + " was marked complete on " + str(d, "campaignName", "your campaign") + "."
			return layout("Milestone completed", body, str(d, "actionUrl", ""))
		},
	},
	TemplateFileUploaded: {
		Subject: func(d map[string]interface{}) string {
			return "New file uploaded to " + str(d, "campaignName", "your campaign")
		},
		HTML: func(d map[string]interface{}) string {
			body := str(d, "uploaderName", "Someone") + " uploaded " + str(d, "fileName", "a file") + "."
			return layout("New file uploaded", body, str(d, "actionUrl", ""))
		},
	},
	TemplateDeadlineReminder: {
		Subject: func(d map[string]interface{}) string {
			return "Upcoming deadline: " + str(d, "milestoneName", "")
		},
		HTML: func(d map[string]interface{}) string {
			body := str(d, "milestoneName", "A milestone") + " is due " + str(d, "dueDate", "soon") + "."
			return layout("Deadline approaching", body, str(d, "actionUrl", ""))
		},
	},
	TemplateOpportunityInvite: {
		Subject: func(d map[string]interface{}) string {
			return "You've been invited to " + str(d, "opportunityTitle", "an opportunity")
		},
		HTML: func(d map[string]interface{}) string {
			body := str(d, "brandName", "A brand") + " invited you to apply to " + str(d, "opportunityTitle", "an opportunity") + "."
			return layout("You're invited", body, str(d, "actionUrl", ""))
		},
	},
}

var genericTemplate = Template{
	Subject: func(d map[string]interface{}) string {
		return str(d, "title", "Notification from Formative")
	},
	HTML: func(d map[string]interface{}) string {
		return layout(str(d, "title", "Notification"), str(d, "message", ""), str(d, "actionUrl", ""))
	},
}

// LookupTemplate returns the template for the given name, or the generic
// fallback when the name is unknown. The second return reports whether the
// name was known.
func LookupTemplate(name string) (Template, bool) {
	if t, ok := templates[name]; ok {
		return t, true
	}
	return genericTemplate, false
}

// ValidateTemplateData checks the data payload against the template's declared
// schema. Violations are advisory only; dispatch proceeds regardless. Returns
// nil when the template carries no schema or the data conforms.
func ValidateTemplateData(name string, data map[string]interface{}) []string {
	t, ok := templates[name]
	if !ok || t.Schema == "" {
		return nil
	}
	if data == nil {
		data = map[string]interface{}{}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(t.Schema),
		gojsonschema.NewGoLoader(data),
	)
	if err != nil {
		return []string{fmt.Sprintf("schema validation error: %v", err)}
	}
	if result.Valid() {
		return nil
	}

	issues := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		issues = append(issues, e.String())
	}
	return issues
}
