package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"product-lens/internal/platform/rabbitmq"
)

const deleteTimeout = 30 * time.Second

var errEmptyName = errors.New("release message has no file name")

// FileDeleter removes a file from the remote generative service.
type FileDeleter interface {
	DeleteFile(ctx context.Context, name string) error
}

// RemoteFileCleanupWorker consumes release messages and deletes the named
// remote files.
type RemoteFileCleanupWorker struct {
	conn      *amqp.Connection
	deleter   FileDeleter
	queueName string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewRemoteFileCleanupWorker(conn *amqp.Connection, deleter FileDeleter, queueName string) *RemoteFileCleanupWorker {
	return &RemoteFileCleanupWorker{
		conn:      conn,
		deleter:   deleter,
		queueName: queueName,
	}
}

func (w *RemoteFileCleanupWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	_, err = ch.QueueDeclare(
		w.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare worker queue failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				if err := w.handle(workerCtx, d.Body); err != nil {
					log.Printf("worker release remote file failed: %v", err)
					_ = d.Nack(false, false)
					continue
				}
				_ = d.Ack(false)
			}
		}
	}()

	return nil
}

func (w *RemoteFileCleanupWorker) handle(ctx context.Context, body []byte) error {
	var msg rabbitmq.ReleaseMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("decode release message failed: %w", err)
	}
	if msg.Name == "" {
		return errEmptyName
	}

	deleteCtx, cancel := context.WithTimeout(ctx, deleteTimeout)
	defer cancel()
	return w.deleter.DeleteFile(deleteCtx, msg.Name)
}

func (w *RemoteFileCleanupWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
