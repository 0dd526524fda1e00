// Package scheduler runs the background side of the engine: the asynq worker
// that executes call-queue passes and the ticker that triggers them.
package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskCallQueuePass = "callqueue.pass"

// Trigger identifies what requested a queue pass.
const (
	TriggerPeriodic = "periodic"
	TriggerManual   = "manual"
)

type CallQueuePassPayload struct {
	TriggeredBy string `json:"triggeredBy"`
}

func NewCallQueuePassTask(payload CallQueuePassPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCallQueuePass, data), nil
}

func ParseCallQueuePassPayload(task *asynq.Task) (CallQueuePassPayload, error) {
	var payload CallQueuePassPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return CallQueuePassPayload{}, err
	}
	return payload, nil
}
