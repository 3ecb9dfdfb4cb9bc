package agent

import "context"

// CompleteFunc is a completion call bound to the model the executor picked.
// Handlers shape the prompt; model selection and fallback stay in the
// executor.
type CompleteFunc func(ctx context.Context, prompt string) (string, error)

// TaskHandler executes one kind of task. Handlers are registered per agent
// in an explicit dispatch table keyed by task type; an unregistered type
// falls through to the generic handler.
type TaskHandler interface {
	Kind() string
	Handle(ctx context.Context, task *Task, complete CompleteFunc) (any, error)
}

type handlerFunc struct {
	kind string
	fn   func(ctx context.Context, task *Task, complete CompleteFunc) (any, error)
}

func (h handlerFunc) Kind() string { return h.kind }

func (h handlerFunc) Handle(ctx context.Context, task *Task, complete CompleteFunc) (any, error) {
	return h.fn(ctx, task, complete)
}

// HandlerFunc adapts a function to the TaskHandler interface.
func HandlerFunc(kind string, fn func(ctx context.Context, task *Task, complete CompleteFunc) (any, error)) TaskHandler {
	return handlerFunc{kind: kind, fn: fn}
}

// genericHandler completes the task's prompt parameter as-is. It backs any
// task type without a registered handler.
type genericHandler struct{}

func (genericHandler) Kind() string { return "generic" }

func (genericHandler) Handle(ctx context.Context, task *Task, complete CompleteFunc) (any, error) {
	prompt, _ := task.Parameters["prompt"].(string)
	if prompt == "" {
		prompt = task.Type
	}
	return complete(ctx, prompt)
}
