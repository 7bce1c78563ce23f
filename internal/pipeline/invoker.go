package pipeline

import (
	"fmt"
	"log/slog"
)

// CommandInvoker executes a fixed sequence of commands over image data.
type CommandInvoker struct {
	commands []Command
}

// NewCommandInvoker creates an invoker over the given commands.
func NewCommandInvoker(commands []Command) *CommandInvoker {
	return &CommandInvoker{commands: commands}
}

// Execute runs all commands in order, feeding each command the output
// of the previous one. An empty command list returns the input unchanged.
func (i *CommandInvoker) Execute(imageData []byte) ([]byte, error) {
	result := imageData
	for _, command := range i.commands {
		var err error
		result, err = command.Execute(result)
		if err != nil {
			slog.Error("command execution failed", "command", command.Name(), "error", err)
			return nil, fmt.Errorf("command %s failed: %w", command.Name(), err)
		}
	}
	return result, nil
}

// ExecuteCommands instantiates the configured commands from the default
// registry and runs them over the image data.
func ExecuteCommands(imageData []byte, configs []CommandConfig) ([]byte, error) {
	commands := make([]Command, 0, len(configs))
	for _, config := range configs {
		command, err := DefaultRegistry.Create(config.Name, config.Params)
		if err != nil {
			return nil, err
		}
		commands = append(commands, command)
	}
	return NewCommandInvoker(commands).Execute(imageData)
}
