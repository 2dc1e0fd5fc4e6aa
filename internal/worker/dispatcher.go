package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"oficinapro/internal/dto"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// QueueNotificacoes is consumed by the notification (WhatsApp) subsystem.
const QueueNotificacoes = "jobs:notificacoes"

// Job types.
const JobTurnoFechado = "turno_fechado"

// Job is the generic envelope for all async tasks.
type Job struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Dispatcher enqueues async jobs into Redis lists.
// Consumers dequeue them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// NotificarTurnoFechado pushes a turno_fechado job for the notification subsystem.
func (d *Dispatcher) NotificarTurnoFechado(ctx context.Context, evento dto.TurnoFechadoEvento) error {
	if err := d.enqueue(ctx, QueueNotificacoes, JobTurnoFechado, evento); err != nil {
		return err
	}
	log.Debug().Str("turno_id", evento.TurnoID).Str("queue", QueueNotificacoes).Msg("job enqueued")
	return nil
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	encoded, err := encodeJob(jobType, payload)
	if err != nil {
		return err
	}
	if err := d.rdb.LPush(ctx, queue, encoded).Err(); err != nil {
		return fmt.Errorf("enqueue %s: %w", jobType, err)
	}
	return nil
}

func encodeJob(jobType string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Job{Type: jobType, Payload: data})
}
