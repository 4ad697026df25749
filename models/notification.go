package models

// NotificationInfo carries everything a delivery backend needs to push one
// notification. Whether the priority flag is honored depends on the backend;
// the relay transport ignores it, FCM maps it to message priority.
type NotificationInfo struct {
	Message      string `json:"message"`
	HighPriority bool   `json:"highPriority"`
}
