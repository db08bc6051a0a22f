package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskLeadRescore = "leads.rescore"

const TaskRescoreSweep = "leads.rescore_sweep"

type LeadRescorePayload struct {
	LeadID string `json:"leadId"`
}

func NewLeadRescoreTask(payload LeadRescorePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLeadRescore, data), nil
}

func ParseLeadRescorePayload(task *asynq.Task) (LeadRescorePayload, error) {
	var payload LeadRescorePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return LeadRescorePayload{}, err
	}
	return payload, nil
}

// NewRescoreSweepTask carries no payload; the sweep always covers every open lead.
func NewRescoreSweepTask() *asynq.Task {
	return asynq.NewTask(TaskRescoreSweep, nil)
}
