package main

import (
	"context"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	notificationmetrics "givebridge/internal/notification/metrics"
	"givebridge/internal/notification/sender"
	"givebridge/internal/platform/config"
	"givebridge/internal/platform/kafka"
)

// buildSender always logs events and adds the mail API and Kafka sinks when
// they are configured.
func buildSender(ctx context.Context, cfg config.Config, directory sender.Directory, m *notificationmetrics.Metrics, logger *slog.Logger) (sender.Sender, func(), error) {
	senders := []sender.Sender{sender.NewLogSender(logger)}
	cleanup := func() {}

	if cfg.Email.APIURL != "" {
		senders = append(senders, sender.NewEmailSender(sender.EmailConfig{
			APIURL: cfg.Email.APIURL,
			APIKey: cfg.Email.APIKey,
			From:   cfg.Email.From,
		}, directory, sender.WithEmailLogger(logger), sender.WithEmailMetrics(m)))
	}

	var client *kgo.Client
	if len(cfg.Kafka.Brokers) > 0 {
		var err error
		client, err = kafka.NewClient(ctx, kafka.Config{Brokers: cfg.Kafka.Brokers, ClientID: "givebridge"})
		if err != nil {
			return nil, cleanup, err
		}
		if err := kafka.EnsureTopic(ctx, client, cfg.Kafka.NotificationTopic, 3, 1); err != nil {
			client.Close()
			return nil, cleanup, err
		}
		cleanup = client.Close
		senders = append(senders, sender.NewKafkaSender(client, cfg.Kafka.NotificationTopic))
		logger.InfoContext(ctx, "kafka notifications enabled", "topic", cfg.Kafka.NotificationTopic)
	}

	if len(senders) == 1 {
		return senders[0], cleanup, nil
	}
	return sender.NewMultiSender(senders...), cleanup, nil
}
