package ws

import (
	"encoding/json"
	"time"
)

// JobEvent is the wire form of one job status transition.
type JobEvent struct {
	Type      string `json:"type"`
	Queue     string `json:"queue"`
	JobID     string `json:"job_id"`
	SkillID   string `json:"skill_id"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// JobNotifier adapts the hub to the core's notifier hook.
type JobNotifier struct {
	hub *Hub
}

func NewJobNotifier(hub *Hub) *JobNotifier {
	return &JobNotifier{hub: hub}
}

func (n *JobNotifier) JobStatusChanged(queue, jobID, skillID, status string) {
	if n == nil || n.hub == nil {
		return
	}
	evt := JobEvent{
		Type:      "job_status",
		Queue:     queue,
		JobID:     jobID,
		SkillID:   skillID,
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	b, err := json.Marshal(evt)
	if err != nil {
		return
	}
	n.hub.Broadcast(b)
}
