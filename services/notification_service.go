// services/notification_service.go
package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"salonpro-pos/models"
	"salonpro-pos/repository"
	"salonpro-pos/utils"
)

// MessageSender is the part of the Twilio REST API the notifier uses.
type MessageSender interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

type TwilioConfig struct {
	AccountSID     string
	AuthToken      string
	PhoneNumber    string
	WhatsAppNumber string
}

// TwilioNotifier sends sale receipts, and payment links for deferred sales,
// over WhatsApp or SMS. Every attempt ends up in notification_logs.
type TwilioNotifier struct {
	sender    MessageSender
	clients   repository.ClientRepository
	logs      repository.NotificationLogRepository
	smsFrom   string
	waFrom    string
	timestamp func() time.Time
}

func NewTwilioNotifier(cfg TwilioConfig, clients repository.ClientRepository, logs repository.NotificationLogRepository) *TwilioNotifier {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return NewNotifierWithSender(client.Api, cfg, clients, logs)
}

func NewNotifierWithSender(sender MessageSender, cfg TwilioConfig, clients repository.ClientRepository, logs repository.NotificationLogRepository) *TwilioNotifier {
	return &TwilioNotifier{
		sender:    sender,
		clients:   clients,
		logs:      logs,
		smsFrom:   cfg.PhoneNumber,
		waFrom:    cfg.WhatsAppNumber,
		timestamp: time.Now,
	}
}

func (n *TwilioNotifier) SaleCompleted(ctx context.Context, result SaleResult) {
	if result.ClientID == nil {
		return
	}
	client, err := n.clients.GetClient(ctx, result.OrgID, *result.ClientID)
	if err != nil {
		log.Printf("[notify] sale %s: client %s: %v", result.SaleID, *result.ClientID, err)
		return
	}
	phone, ok := utils.NormalizePhone(client.Phone)
	if !ok {
		log.Printf("[notify] sale %s: client %s has no usable phone", result.SaleID, client.ID)
		return
	}

	message := receiptMessage(client.Name, result)
	channel := "sms"
	to := phone
	from := n.smsFrom
	// E.164 numbers go over WhatsApp
	if strings.HasPrefix(phone, "+") && n.waFrom != "" {
		channel = "whatsapp"
		to = "whatsapp:" + phone
		from = "whatsapp:" + n.waFrom
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(from)
	params.SetBody(message)

	entry := &models.NotificationLog{
		OrgID:    result.OrgID,
		ClientID: client.ID,
		Message:  message,
		Channel:  channel,
		SentAt:   n.timestamp(),
		Status:   "sent",
	}
	if result.Payment != nil {
		entry.PaymentID = &result.Payment.ID
	}

	resp, err := n.sender.CreateMessage(params)
	if err != nil {
		entry.Status = "failed"
		entry.ErrorMessage = err.Error()
		log.Printf("[notify] sale %s: %s to %s failed: %v", result.SaleID, channel, phone, err)
	} else if resp != nil && resp.Sid != nil {
		log.Printf("[notify] sale %s: %s sent (%s)", result.SaleID, channel, *resp.Sid)
	}

	if err := n.logs.CreateNotificationLog(ctx, entry); err != nil {
		log.Printf("[notify] sale %s: failed to log notification: %v", result.SaleID, err)
	}
}

func receiptMessage(name string, result SaleResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s, thank you for your purchase.", name)
	for _, t := range result.Transactions {
		if t.PricePerUnit != nil && t.TotalPrice != nil {
			fmt.Fprintf(&b, "\n%d x %s = %s", t.Magnitude(), t.PricePerUnit.StringFixed(2), t.TotalPrice.StringFixed(2))
		}
	}
	fmt.Fprintf(&b, "\nTotal: %s", result.Total.StringFixed(2))
	if p := result.Payment; p != nil && p.Status == models.PaymentPending && p.PaymentURL != "" {
		fmt.Fprintf(&b, "\nPay here: %s", p.PaymentURL)
	}
	return b.String()
}
