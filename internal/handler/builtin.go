package handler

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/mrz1836/taskgraph/internal/constants"
	"github.com/mrz1836/taskgraph/internal/domain"
)

// builtinHandlers returns the handlers registered unconditionally on
// every Registry. These exist for tests and examples, not production
// workflows: "log" writes a single structured log line from
// parameters.log; "test" reads parameters.paused/parameters.error to
// drive the pause and error-path scenarios; "noop" completes
// immediately without touching parameters.
func builtinHandlers() map[string]Handler {
	return map[string]Handler{
		"log":  HandlerFunc(logHandler),
		"test": HandlerFunc(testHandler),
		"noop": HandlerFunc(noopHandler),
	}
}

func logHandler(_ context.Context, workflowID, taskName string, task *domain.Task) error {
	msg, _ := task.Parameters["log"].(string)
	log.Info().
		Str("instance_id", workflowID).
		Str("task", taskName).
		Msg(msg)
	return nil
}

func testHandler(_ context.Context, _, _ string, task *domain.Task) error {
	switch v := task.Parameters["error"].(type) {
	case string:
		if v != "" {
			return fmt.Errorf("%s", v)
		}
	case bool:
		if v {
			return fmt.Errorf("test handler reported error")
		}
	}
	if paused, ok := task.Parameters["paused"].(bool); ok && paused {
		task.Status = constants.TaskStatusPaused.String()
	}
	return nil
}

func noopHandler(_ context.Context, _, _ string, _ *domain.Task) error {
	return nil
}
