package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/cargoflow/tracking-service/internal/domain"
	"github.com/cargoflow/tracking-service/pkg/cloudevents"
	"github.com/cargoflow/tracking-service/pkg/kafka"
	"github.com/cargoflow/tracking-service/pkg/logging"
	"github.com/cargoflow/tracking-service/pkg/metrics"
)

// Notification channels
const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

// eventProducer is the subset of the Kafka producer the notifier needs
type eventProducer interface {
	PublishEvent(ctx context.Context, topic string, event *cloudevents.TrackingCloudEvent) error
}

// KafkaNotifier implements domain.ChangeNotifier by emitting notification
// request events to the outbound notifications topic. Delivery itself is
// handled by downstream workers. Dispatch is best effort: failures are
// logged and counted but never surface to the caller, so a broker outage
// cannot fail a tracking append.
type KafkaNotifier struct {
	producer     eventProducer
	eventFactory *cloudevents.EventFactory
	logger       *logging.Logger
	metrics      *metrics.Metrics
	timeout      time.Duration
}

// NewKafkaNotifier creates a notifier publishing to the notifications topic
func NewKafkaNotifier(
	producer eventProducer,
	eventFactory *cloudevents.EventFactory,
	logger *logging.Logger,
	m *metrics.Metrics,
) *KafkaNotifier {
	return &KafkaNotifier{
		producer:     producer,
		eventFactory: eventFactory,
		logger:       logger,
		metrics:      m,
		timeout:      5 * time.Second,
	}
}

// Notify emits one notification request per reachable receiver channel
func (n *KafkaNotifier) Notify(ctx context.Context, shipment *domain.Shipment, event domain.TrackingEvent) {
	if shipment == nil {
		return
	}

	// Detach from the request deadline so a slow broker does not hold the
	// append response, but still bound the publish.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
	defer cancel()

	message := notificationMessage(shipment, event)

	if shipment.Receiver.Email != "" {
		n.dispatch(ctx, shipment.AWB, ChannelEmail, shipment.Receiver.Email, message, event)
	}
	if shipment.Receiver.Phone != "" {
		n.dispatch(ctx, shipment.AWB, ChannelSMS, shipment.Receiver.Phone, message, event)
	}
}

func (n *KafkaNotifier) dispatch(ctx context.Context, awb, channel, recipient, message string, event domain.TrackingEvent) {
	cloudEvent := n.eventFactory.CreateNotificationRequestedEvent(ctx, awb, channel, recipient, message)

	err := n.producer.PublishEvent(ctx, kafka.Topics.NotificationsOutbound, cloudEvent)
	success := err == nil

	if n.metrics != nil {
		n.metrics.RecordNotificationDispatched(channel, success)
	}
	n.logger.Notification(ctx, awb, channel, event.Status.String(), success)

	if err != nil {
		n.logger.WithError(err).Warn("Notification dispatch failed",
			"awb", awb,
			"channel", channel,
			"status", event.Status.String(),
		)
	}
}

func notificationMessage(shipment *domain.Shipment, event domain.TrackingEvent) string {
	return fmt.Sprintf("Shipment %s is now %s at %s: %s",
		shipment.AWB,
		event.Status.String(),
		event.Location,
		event.Description,
	)
}
