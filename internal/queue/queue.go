package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/domain"
)

const (
	MailQueue = "email_queue"
	JobQueue  = "optimization_queue"
)

// DeclareQueues 声明邮件队列和优化任务队列
func DeclareQueues(ch *amqp.Channel) error {
	for _, name := range []string{MailQueue, JobQueue} {
		if _, err := ch.QueueDeclare(
			name,  // 队列名称
			true,  // 是否持久化
			false, // 是否自动删除，设置为 false 可以避免没有消费者的时候自动删除队列
			false, // 是否独占
			false, // 是否不等待
			nil,   // 额外参数
		); err != nil {
			return fmt.Errorf("无法声明队列 %s: %w", name, err)
		}
	}
	return nil
}

// Publisher 向默认交换机发送 JSON 消息，amqp.Channel 不是并发安全的，所以需要加锁
type Publisher struct {
	ch      *amqp.Channel
	mu      sync.Mutex
	timeout time.Duration
}

func NewPublisher(ch *amqp.Channel, timeout time.Duration) *Publisher {
	return &Publisher{ch: ch, timeout: timeout}
}

func newPublishing(v any) (amqp.Publishing, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return amqp.Publishing{}, err
	}

	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now(),
		Body:         body,
	}, nil
}

func (p *Publisher) Publish(ctx context.Context, queue string, v any) error {
	msg, err := newPublishing(v)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()

	return p.ch.PublishWithContext(
		ctx,
		"",    // 默认交换机
		queue, // routing key 即队列名称
		true,  // mandatory
		false, // immediate
		msg,
	)
}

func (p *Publisher) PublishMail(ctx context.Context, message domain.MailMessage) error {
	return p.Publish(ctx, MailQueue, message)
}

func (p *Publisher) PublishJob(ctx context.Context, job domain.OptimizationJob) error {
	return p.Publish(ctx, JobQueue, job)
}

// Consume 每次只取一条消息，处理完之后需要手动 Ack
func Consume(ch *amqp.Channel, queue string, tag string) (<-chan amqp.Delivery, error) {
	if err := ch.Qos(1, 0, false); err != nil {
		return nil, err
	}

	return ch.Consume(
		queue, // 队列
		tag,   // 消费者标识，为空时由 RabbitMQ 自动分配
		false, // 是否自动确认
		false, // 是否独占队列
		false, // no-local，RabbitMQ 不支持，必须为 false
		false, // 是否不等待
		nil,   // 额外参数
	)
}

// Decode 将消息体反序列化为 T
func Decode[T any](body []byte) (T, error) {
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		return v, fmt.Errorf("消息反序列化失败: %w", err)
	}
	return v, nil
}
