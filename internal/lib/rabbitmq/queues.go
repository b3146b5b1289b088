package rabbitmq

// QueueConfig очередь и шаблон routing key, по которому она привязана к exchange.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// AuditQueue очередь, привязанная ко всем событиям.
const AuditQueue = "kuitter.audit"

// EventQueues очереди потребителей доменных событий.
func EventQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "kuitter.profile", RoutingKey: "profile.*"},
		{QueueName: "kuitter.onboarding", RoutingKey: "onboarding.*"},
		{QueueName: "kuitter.billing", RoutingKey: "subscription.*"},
		{QueueName: AuditQueue, RoutingKey: "#"},
	}
}
