package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/smtp"
	"strings"

	"ai-recruiter-go/internal/config"
	"ai-recruiter-go/internal/logger"
	"ai-recruiter-go/internal/storage"
)

// SMTPNotifier 通过SMTP直接发送邮件
// 凭据缺失时进入日志模式：只记录不外发，Send仍返回true
type SMTPNotifier struct {
	cfg config.MailConfig
}

var _ Notifier = (*SMTPNotifier)(nil)

// NewSMTPNotifier 创建SMTP通知器
func NewSMTPNotifier(cfg config.MailConfig) *SMTPNotifier {
	if !cfg.Enabled() {
		logger.Warn().Msg("邮件凭据未配置，通知进入日志模式")
	}
	return &SMTPNotifier{cfg: cfg}
}

// Send 发送一封邮件，失败返回false由调用方决定跳过什么
func (n *SMTPNotifier) Send(ctx context.Context, msg storage.EmailMessage) bool {
	if !n.cfg.Enabled() {
		logger.Info().
			Str("to", msg.To).
			Str("subject", msg.Subject).
			Msg("日志模式：邮件未实际发送")
		return true
	}

	from := n.cfg.From
	if from == "" {
		from = n.cfg.Username
	}

	var sb strings.Builder
	sb.WriteString("From: " + from + "\r\n")
	sb.WriteString("To: " + msg.To + "\r\n")
	sb.WriteString("Subject: " + msg.Subject + "\r\n")
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(msg.Body)

	addr := fmt.Sprintf("%s:%d", n.cfg.SMTPHost, n.cfg.SMTPPort)
	auth := smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.SMTPHost)

	if err := smtp.SendMail(addr, auth, from, []string{msg.To}, []byte(sb.String())); err != nil {
		logger.Error().
			Err(err).
			Str("to", msg.To).
			Str("application_id", msg.ApplicationID).
			Msg("SMTP发送失败")
		return false
	}

	logger.Info().
		Str("to", msg.To).
		Str("application_id", msg.ApplicationID).
		Msg("邮件已发送")
	return true
}

// AMQPNotifier 将邮件投入消息队列，由消费者异步外发
// 发布成功即视为发送成功
type AMQPNotifier struct {
	mq       storage.MessageQueue
	exchange string
	routing  string
}

var _ Notifier = (*AMQPNotifier)(nil)

// NewAMQPNotifier 创建队列通知器并声明拓扑
func NewAMQPNotifier(mq storage.MessageQueue, cfg config.RabbitMQConfig) (*AMQPNotifier, error) {
	if mq == nil {
		return nil, fmt.Errorf("消息队列不能为空")
	}
	if err := mq.EnsureExchange(cfg.EmailExchange, "direct", true); err != nil {
		return nil, err
	}
	if err := mq.EnsureQueue(cfg.EmailQueue, true); err != nil {
		return nil, err
	}
	if err := mq.BindQueue(cfg.EmailQueue, cfg.EmailExchange, cfg.EmailRoutingKey); err != nil {
		return nil, err
	}
	return &AMQPNotifier{
		mq:       mq,
		exchange: cfg.EmailExchange,
		routing:  cfg.EmailRoutingKey,
	}, nil
}

// Send 将邮件发布到队列
func (n *AMQPNotifier) Send(ctx context.Context, msg storage.EmailMessage) bool {
	if err := n.mq.PublishJSON(ctx, n.exchange, n.routing, msg, true); err != nil {
		logger.Error().
			Err(err).
			Str("application_id", msg.ApplicationID).
			Msg("邮件入队失败")
		return false
	}
	return true
}

// StartEmailConsumer 启动邮件队列消费者，由deliverer完成实际外发
// 返回的通道关闭后消费者停止
func StartEmailConsumer(mq *storage.RabbitMQ, cfg config.RabbitMQConfig, deliverer Notifier) (chan<- struct{}, error) {
	prefetch := cfg.ConsumerPrefetch
	if prefetch <= 0 {
		prefetch = 5
	}

	return mq.StartConsumer(cfg.EmailQueue, prefetch, func(body []byte) bool {
		var msg storage.EmailMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			logger.Error().Err(err).Msg("邮件消息反序列化失败，丢弃")
			// 格式损坏的消息重入队只会死循环
			return true
		}
		// 外发失败也确认消息：与同步发送一致，失败不重试
		_ = deliverer.Send(context.Background(), msg)
		return true
	})
}
