package alert

import (
	"context"
	"time"

	"web3-sentry/internal/worker/model"

	"github.com/bytedance/sonic"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const kafkaRetryCount = 3

// KafkaSink 把告警发到下游消费的topic
type KafkaSink struct {
	mq    *kafka.Writer
	topic string
	tl    *zap.Logger
}

func NewKafkaSink(mq *kafka.Writer, topic string, tl *zap.Logger) *KafkaSink {
	return &KafkaSink{mq: mq, topic: topic, tl: tl}
}

func (s *KafkaSink) Name() string {
	return "kafka"
}

func (s *KafkaSink) Deliver(ctx context.Context, alert model.SellAlert) error {
	jsonData, err := sonic.Marshal(alert)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Topic: s.topic,
		Key:   []byte(alert.TokenAddress),
		Value: jsonData,
	}

	newCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	for attempt := 0; attempt < kafkaRetryCount; attempt++ {
		err = s.mq.WriteMessages(newCtx, msg)
		if err == nil {
			return nil
		}
	}
	s.tl.Warn("❌ MQ write failed, exceeded the maximum number of retries", zap.Error(err))
	return err
}
