package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/veldtops/fieldhand/internal/core/domain"
)

// Built-in operation names. Domain lifecycles (container stacks, site
// provisioning, web server config) live with their owning collaborators and
// register themselves the same way; these two ship with the agent so a bare
// install can already run tracked work end to end.
const (
	OpRunCommand   = "command.run"
	OpUpdateConfig = "config.update"
)

// RegisterBuiltinOperations wires the built-in operations into the registry.
// Both the enqueueing process and the worker must call this, so operation
// identities resolve on either side of the queue.
func RegisterBuiltinOperations(registry *Registry, tracker *Tracker, executor *Executor, ws *Workspace) error {
	if err := registry.Register(OpRunCommand, runCommandOperation(tracker, executor, ws)); err != nil {
		return err
	}
	return registry.Register(OpUpdateConfig, updateConfigOperation(tracker, ws))
}

func runCommandOperation(tracker *Tracker, executor *Executor, ws *Workspace) Operation {
	return func(ctx context.Context, inv domain.Invocation) (any, error) {
		text, _ := inv.Kwargs["command"].(string)
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("%s: missing command", OpRunCommand)
		}
		directory, _ := inv.Kwargs["directory"].(string)
		if directory == "" {
			directory = ws.Directory
		}
		input, _ := inv.Kwargs["input"].(string)

		return tracker.Step(ctx, "Run Command", func(ctx context.Context) (any, error) {
			return executor.Execute(ctx, Command{Text: text, Directory: directory, Input: input})
		})
	}
}

func updateConfigOperation(tracker *Tracker, ws *Workspace) Operation {
	return func(ctx context.Context, inv domain.Invocation) (any, error) {
		values, _ := inv.Kwargs["config"].(map[string]any)
		if len(values) == 0 {
			return nil, fmt.Errorf("%s: missing config values", OpUpdateConfig)
		}

		return tracker.Step(ctx, "Update Configuration", func(ctx context.Context) (any, error) {
			return ws.UpdateConfig(values)
		})
	}
}
