package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/tickify/ticketing/internal/models"
)

// Template kinds the downstream email/SMS collaborator understands. The
// template content itself lives with that collaborator.
const (
	TemplateBookingCreated   = "booking_created"
	TemplateBookingConfirmed = "booking_confirmed"
	TemplateOTP              = "otp"
)

// Message is the envelope the notification collaborator consumes:
// (email, templateKind, data).
type Message struct {
	Email    string                 `json:"email"`
	Template string                 `json:"template"`
	Data     map[string]interface{} `json:"data"`
}

type Producer struct {
	Writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers: brokers,
		Topic:   topic,
	})
	return &Producer{Writer: writer}
}

// Notify publishes one notification envelope keyed by recipient.
func (p *Producer) Notify(email, templateKind string, data map[string]interface{}) error {
	msg := Message{Email: email, Template: templateKind, Data: data}
	msgBytes, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	fmt.Printf("Publishing to Kafka [%s]: %s\n", templateKind, string(msgBytes))

	return p.Writer.WriteMessages(context.Background(),
		kafka.Message{
			Key:   []byte(email),
			Value: msgBytes,
		},
	)
}

// PublishBookingCreated streams the booking creation event for the email
// collaborator.
func (p *Producer) PublishBookingCreated(booking models.Booking) error {
	return p.Notify(booking.UserEmail, TemplateBookingCreated, bookingData(booking))
}

// PublishBookingConfirmed streams the post-payment confirmation event.
func (p *Producer) PublishBookingConfirmed(booking models.Booking) error {
	return p.Notify(booking.UserEmail, TemplateBookingConfirmed, bookingData(booking))
}

func bookingData(booking models.Booking) map[string]interface{} {
	return map[string]interface{}{
		"booking_id":   booking.ID,
		"reference":    booking.Reference,
		"event_id":     booking.EventID,
		"user_name":    booking.UserName,
		"total_amount": booking.TotalAmount,
		"status":       booking.Status,
	}
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}
