package delivery

// Backend is the contract every push transport implements. Forward accepts
// one notification for the backend's client; a returned error is logged by
// the caller and not retried there — retry, if any, is the backend's own
// responsibility.
type Backend interface {
	Forward(message string, highPriority bool) error
}
