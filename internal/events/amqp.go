package events

import (
	"encoding/json"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

const exchangeName = "activity_stream"

// AMQPEmitter publishes activity events to a fanout exchange so external
// monitors can tail them. Publish failures are logged and swallowed.
type AMQPEmitter struct {
	ch  *amqp.Channel
	log *zap.Logger
}

func NewAMQPEmitter(conn *amqp.Connection, log *zap.Logger) (*AMQPEmitter, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}

	err = ch.ExchangeDeclare(
		exchangeName,
		"fanout",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, err
	}

	if log == nil {
		log = zap.NewNop()
	}
	return &AMQPEmitter{ch: ch, log: log}, nil
}

func (e *AMQPEmitter) Emit(workspaceID string, ev Event) {
	body, err := json.Marshal(struct {
		WorkspaceID string `json:"workspace_id"`
		Event
	}{WorkspaceID: workspaceID, Event: ev})
	if err != nil {
		e.log.Warn("failed to marshal activity event", zap.Error(err))
		return
	}

	err = e.ch.Publish(
		exchangeName,
		"", // fanout ignores routing key
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
	if err != nil {
		e.log.Warn("failed to publish activity event", zap.Error(err))
	}
}

func (e *AMQPEmitter) Close() error {
	return e.ch.Close()
}
