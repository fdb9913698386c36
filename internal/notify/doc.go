// Package notify moves side-channel events (milestones, odometer gaps,
// incomplete trips) out of the process. Publishers send them to RabbitMQ or
// an MQTT broker, either directly as a service.Notifier or from the Postgres
// job queue through a Dispatcher.
package notify
