package agent

type Status string

const (
	StatusInitializing Status = "initializing"
	StatusReady        Status = "ready"
	StatusBusy         Status = "busy"
	StatusError        Status = "error"
)
