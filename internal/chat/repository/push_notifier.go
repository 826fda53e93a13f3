package repository

import (
	"encoding/json"

	"github.com/streadway/amqp"

	"social_match_service/pkg/database"
	"social_match_service/pkg/logger"

	"go.uber.org/zap"
)

// PushNotification payload published to the push dispatch queue
type PushNotification struct {
	UserID int64  `json:"userId"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

// PushNotifier fire-and-forget push trigger, must never block the caller
type PushNotifier interface {
	Notify(userID int64, title, body string)
}

type rabbitPushNotifier struct {
	rabbit database.RabbitRepo
	queue  string
}

// NewRabbitPushNotifier create a PushNotifier on a RabbitMQ queue
func NewRabbitPushNotifier(rabbit database.RabbitRepo, queue string) PushNotifier {
	return &rabbitPushNotifier{rabbit: rabbit, queue: queue}
}

func (n *rabbitPushNotifier) Notify(userID int64, title, body string) {
	go func() {
		data, err := json.Marshal(PushNotification{UserID: userID, Title: title, Body: body})
		if err != nil {
			logger.Log.Errorf("push payload marshal failed:", err)
			return
		}
		err = n.rabbit.Publish(
			"",      // default exchange
			n.queue, // queue name
			false,
			false,
			amqp.Publishing{
				ContentType: "application/json",
				Body:        data,
			},
		)
		if err != nil {
			logger.Log.Error("push publish failed", zap.Int64("userID", userID), zap.Error(err))
		}
	}()
}
