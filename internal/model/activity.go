package model

import "time"

// ActivityType names the kind of event recorded in the feed
type ActivityType string

const (
	ActivityTaskCreated   ActivityType = "task_created"
	ActivityTaskUpdated   ActivityType = "task_updated"
	ActivityTaskCompleted ActivityType = "task_completed"
	ActivityCommentAdded  ActivityType = "comment_added"
	ActivityMemberJoined  ActivityType = "member_joined"
)

// ActivityLimit caps feed listings
const ActivityLimit = 50

// Activity is an immutable feed entry
type Activity struct {
	ID          string       `json:"id"`
	Type        ActivityType `json:"type"`
	UserID      string       `json:"userId"`
	TaskID      *string      `json:"taskId,omitempty"`
	WorkspaceID string       `json:"workspaceId"`
	Message     string       `json:"message"`
	CreatedAt   time.Time    `json:"timestamp"`
}
