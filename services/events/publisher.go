package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"github.com/rabbitmq/amqp091-go"

	"github.com/unimailhq/unimail/interfaces"
	"github.com/unimailhq/unimail/internal/logger"
	"github.com/unimailhq/unimail/internal/tracing"
	"github.com/unimailhq/unimail/internal/utils"
)

const (
	ExchangeUnimailDirect = "unimail-direct"
	RoutingKeyMailEvents  = "mail-events"

	publishTimeout = 5 * time.Second
)

// Event is the wire shape published for every mail mutation.
type Event struct {
	ID        string      `json:"id"`
	EventType string      `json:"eventType"`
	AccountID string      `json:"accountId"`
	UserID    string      `json:"userId"`
	AppSource string      `json:"appSource"`
	Timestamp string      `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// RabbitMQPublisher pushes mutation events to the unimail-direct exchange.
// The connection is established lazily and re-established after failures.
type RabbitMQPublisher struct {
	url string
	log logger.Logger

	mu         sync.Mutex
	connection *amqp091.Connection
	channel    *amqp091.Channel
}

func NewRabbitMQPublisher(rabbitmqURL string, log logger.Logger) *RabbitMQPublisher {
	return &RabbitMQPublisher{url: rabbitmqURL, log: log}
}

func (p *RabbitMQPublisher) Publish(ctx context.Context, eventType string, accountID string, data interface{}) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "RabbitMQPublisher.Publish")
	defer span.Finish()
	span.SetTag("event_type", eventType)
	tracing.TagAccount(span, accountID)

	event := Event{
		ID:        uuid.New().String(),
		EventType: eventType,
		AccountID: accountID,
		UserID:    utils.GetUserIdFromContext(ctx),
		AppSource: utils.GetAppSourceFromContext(ctx),
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Data:      data,
	}

	tracing.LogObjectAsJson(span, "event", event)

	payload, err := json.Marshal(event)
	if err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrap(err, "failed to marshal event")
	}

	channel, err := p.getChannel()
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = channel.PublishWithContext(
		publishCtx,
		ExchangeUnimailDirect,
		RoutingKeyMailEvents,
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    event.ID,
			Timestamp:    time.Now().UTC(),
			Body:         payload,
		},
	)
	if err != nil {
		p.reset()
		tracing.TraceErr(span, err)
		return errors.Wrap(err, "failed to publish event")
	}
	return nil
}

func (p *RabbitMQPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel != nil {
		_ = p.channel.Close()
		p.channel = nil
	}
	if p.connection != nil {
		err := p.connection.Close()
		p.connection = nil
		return err
	}
	return nil
}

func (p *RabbitMQPublisher) getChannel() (*amqp091.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel != nil && !p.connection.IsClosed() {
		return p.channel, nil
	}

	connection, err := amqp091.Dial(p.url)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to rabbitmq")
	}

	channel, err := connection.Channel()
	if err != nil {
		_ = connection.Close()
		return nil, errors.Wrap(err, "failed to open channel")
	}

	err = channel.ExchangeDeclare(
		ExchangeUnimailDirect,
		"direct",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = channel.Close()
		_ = connection.Close()
		return nil, errors.Wrap(err, "failed to declare exchange")
	}

	p.connection = connection
	p.channel = channel
	return p.channel, nil
}

func (p *RabbitMQPublisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel != nil {
		_ = p.channel.Close()
		p.channel = nil
	}
	if p.connection != nil {
		_ = p.connection.Close()
		p.connection = nil
	}
}

var _ interfaces.MailEventPublisher = (*RabbitMQPublisher)(nil)
