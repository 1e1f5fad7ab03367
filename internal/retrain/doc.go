// Package retrain turns correction milestones into asynchronous
// retraining triggers published to RabbitMQ.
package retrain
