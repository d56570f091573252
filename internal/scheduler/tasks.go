package scheduler

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const TaskFollowupSweep = "followups.sweep"

type FollowupSweepPayload struct {
	Source string `json:"source,omitempty"`
}

func NewFollowupSweepTask(payload FollowupSweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	// A sweep that outlives its interval is superseded by the next one.
	return asynq.NewTask(TaskFollowupSweep, data, asynq.MaxRetry(0), asynq.Timeout(2*time.Minute)), nil
}

func ParseFollowupSweepPayload(task *asynq.Task) (FollowupSweepPayload, error) {
	var payload FollowupSweepPayload
	if len(task.Payload()) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return FollowupSweepPayload{}, err
	}
	return payload, nil
}
