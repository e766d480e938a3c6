// internal/notify/notifier.go
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"forbill-bot/internal/common/config"
	"forbill-bot/internal/common/logger"
	"forbill-bot/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// Define interfaces for mocking
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Notifier sends transaction receipts over email and operational alerts
// over SMS/SNS. Delivery is best-effort: a notification failure is logged
// but never fails the transaction that triggered it.
type Notifier struct {
	cfg       config.NotificationConfig
	logger    logger.Logger
	sesClient SESService
	snsClient SNSService
	templates map[string]map[string]string
}

func NewNotifier(cfg config.NotificationConfig, sesClient SESService, snsClient SNSService, log logger.Logger) *Notifier {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Notifier{
		cfg:       cfg,
		logger:    log.WithFields(map[string]interface{}{"component": "notify"}),
		sesClient: sesClient,
		snsClient: snsClient,
		templates: receiptTemplates(),
	}
}

// SendReceipt emails a transaction receipt to the user. Users without an
// email on file are skipped silently.
func (n *Notifier) SendReceipt(ctx context.Context, user *models.User, txn *models.Transaction) error {
	if !n.cfg.AWS.SES.Enabled || user.Email == "" {
		return nil
	}

	template, exists := n.templates[string(txn.Type)]
	if !exists {
		template = n.templates["default"]
	}

	data := map[string]interface{}{
		"name":      user.Name,
		"reference": txn.Reference,
		"amount":    formatNaira(txn.Amount),
		"network":   txn.Network,
		"phone":     txn.RecipientPhone,
		"plan":      txn.PlanName,
		"token":     txn.Token,
		"balance":   formatNaira(txn.NewBalance),
		"date":      time.Now().UTC().Format(time.RFC1123),
	}

	subject := renderTemplate(template["subject"], data)
	body := renderTemplate(template["body"], data)

	_, err := n.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{user.Email},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
				Html: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(n.cfg.AWS.SES.FromEmail),
	})
	if err != nil {
		n.logger.Error("receipt email send failed", map[string]interface{}{
			"error":     err,
			"email":     user.Email,
			"reference": txn.Reference,
		})
		return err
	}

	n.logger.Info("receipt email sent", map[string]interface{}{
		"email":     user.Email,
		"reference": txn.Reference,
	})
	return nil
}

// SendAdminAlert pushes a high-priority operational message to the admin
// phone number, falling back to the alert topic when no phone is configured.
func (n *Notifier) SendAdminAlert(ctx context.Context, message string) error {
	if !n.cfg.AWS.SNS.Enabled {
		return nil
	}

	input := &sns.PublishInput{
		Message: aws.String(message),
	}
	if n.cfg.AWS.SNS.AdminPhone != "" {
		input.PhoneNumber = aws.String(n.cfg.AWS.SNS.AdminPhone)
	} else if n.cfg.AWS.SNS.AlertTopicARN != "" {
		input.TopicArn = aws.String(n.cfg.AWS.SNS.AlertTopicARN)
	} else {
		return nil
	}

	_, err := n.snsClient.Publish(ctx, input)
	if err != nil {
		n.logger.Error("admin alert publish failed", map[string]interface{}{
			"error": err,
		})
		return err
	}
	return nil
}

// AlertVendFailure reports a vending failure that left a wallet refunded,
// so an operator can follow up with the provider.
func (n *Notifier) AlertVendFailure(ctx context.Context, txn *models.Transaction, vendErr error) {
	msg := fmt.Sprintf("ForBill vend failure: %s %s for %s refunded. Error: %v",
		txn.Type, formatNaira(txn.Amount), txn.RecipientPhone, vendErr)
	if err := n.SendAdminAlert(ctx, msg); err != nil {
		n.logger.Warn("vend failure alert not delivered", map[string]interface{}{
			"reference": txn.Reference,
		})
	}
}

func formatNaira(amount int64) string {
	return fmt.Sprintf("₦%d", amount)
}

// Simplified template rendering with placeholder removal for missing values
func renderTemplate(tmpl string, data map[string]interface{}) string {
	result := tmpl

	for k, v := range data {
		placeholder := "{{" + k + "}}"
		value := ""
		if s, ok := v.(string); ok {
			value = s
		} else if i, ok := v.(int); ok {
			value = fmt.Sprintf("%d", i)
		} else if v != nil {
			value = fmt.Sprintf("%v", v)
		}
		result = strings.ReplaceAll(result, placeholder, value)
	}

	// Remove any remaining placeholders (missing values)
	for {
		start := strings.Index(result, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end == -1 {
			break
		}
		end += start + 2
		result = result[:start] + result[end:]
	}

	return result
}

func receiptTemplates() map[string]map[string]string {
	return map[string]map[string]string{
		string(models.TxnTypeAirtime): {
			"subject": "Airtime Purchase Receipt - {{reference}}",
			"body":    "Hello {{name}},\n\nYour airtime purchase was successful.\n\nAmount: {{amount}}\nNetwork: {{network}}\nPhone: {{phone}}\nReference: {{reference}}\nNew balance: {{balance}}\nDate: {{date}}\n\nForBill",
		},
		string(models.TxnTypeData): {
			"subject": "Data Purchase Receipt - {{reference}}",
			"body":    "Hello {{name}},\n\nYour data purchase was successful.\n\nPlan: {{plan}}\nNetwork: {{network}}\nPhone: {{phone}}\nReference: {{reference}}\nNew balance: {{balance}}\nDate: {{date}}\n\nForBill",
		},
		string(models.TxnTypeElectricity): {
			"subject": "Electricity Payment Receipt - {{reference}}",
			"body":    "Hello {{name}},\n\nYour electricity payment was successful.\n\nAmount: {{amount}}\nToken: {{token}}\nReference: {{reference}}\nNew balance: {{balance}}\nDate: {{date}}\n\nForBill",
		},
		string(models.TxnTypeWalletFunding): {
			"subject": "Wallet Funded - {{reference}}",
			"body":    "Hello {{name}},\n\nYour wallet has been credited.\n\nAmount: {{amount}}\nReference: {{reference}}\nNew balance: {{balance}}\nDate: {{date}}\n\nForBill",
		},
		"default": {
			"subject": "Transaction Receipt - {{reference}}",
			"body":    "Hello {{name}},\n\nYour transaction was successful.\n\nAmount: {{amount}}\nReference: {{reference}}\nNew balance: {{balance}}\nDate: {{date}}\n\nForBill",
		},
	}
}
