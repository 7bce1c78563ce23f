package pipeline

import (
	"errors"
	"testing"
)

func TestExecuteCommands_EmptyList(t *testing.T) {
	testData := []byte("test data")
	result, err := ExecuteCommands(testData, []CommandConfig{})

	if err != nil {
		t.Errorf("Expected no error for empty command list, got %v", err)
	}
	if string(result) != string(testData) {
		t.Error("Expected result to match input for empty command list")
	}
}

func TestExecuteCommands_UnknownCommand(t *testing.T) {
	configs := []CommandConfig{
		{Name: "UnknownCommand", Params: map[string]any{}},
	}

	_, err := ExecuteCommands([]byte("test data"), configs)
	if err == nil {
		t.Error("Expected error for unknown command")
	}
}

func TestExecuteCommands_InvalidCommandConfig(t *testing.T) {
	// DownscaleCommand requires a maxSide parameter.
	configs := []CommandConfig{
		{Name: "DownscaleCommand", Params: map[string]any{}},
	}

	_, err := ExecuteCommands([]byte("test data"), configs)
	if err == nil {
		t.Error("Expected error for invalid command configuration")
	}
}

func TestCommandInvoker_EmptyCommandList(t *testing.T) {
	invoker := NewCommandInvoker([]Command{})
	testData := []byte("test data")
	result, err := invoker.Execute(testData)
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if string(result) != string(testData) {
		t.Error("Expected result to match input for empty command list")
	}
}

func TestCommandInvoker_CommandError(t *testing.T) {
	testCmd := newMockCommandWithError("TestCommand", errors.New("invalid image data"))

	invoker := NewCommandInvoker([]Command{testCmd})
	_, err := invoker.Execute([]byte("invalid image data"))
	if err == nil {
		t.Error("Expected error from failing command")
	}
}

func TestCommandInvoker_MultipleCommands(t *testing.T) {
	cmd1 := &mockCommand{
		name: "Command1",
		executeFunc: func(data []byte) ([]byte, error) {
			return append(data, []byte("-cmd1")...), nil
		},
	}
	cmd2 := &mockCommand{
		name: "Command2",
		executeFunc: func(data []byte) ([]byte, error) {
			return append(data, []byte("-cmd2")...), nil
		},
	}

	invoker := NewCommandInvoker([]Command{cmd1, cmd2})
	result, err := invoker.Execute([]byte("data"))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if string(result) != "data-cmd1-cmd2" {
		t.Errorf("Expected commands to chain in order, got %q", string(result))
	}
}

func TestCommandRegistry_Register(t *testing.T) {
	registry := NewCommandRegistry()

	err := registry.Register("TestCommand", func(params map[string]any) (Command, error) {
		return newMockCommand("TestCommand"), nil
	})
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}

	if !registry.IsRegistered("TestCommand") {
		t.Error("Expected TestCommand to be registered")
	}

	// Duplicate registration must fail.
	err = registry.Register("TestCommand", func(params map[string]any) (Command, error) {
		return newMockCommand("TestCommand"), nil
	})
	if err == nil {
		t.Error("Expected error for duplicate registration")
	}
}

func TestCommandRegistry_RegisterInvalid(t *testing.T) {
	registry := NewCommandRegistry()

	if err := registry.Register("", func(params map[string]any) (Command, error) {
		return newMockCommand(""), nil
	}); err == nil {
		t.Error("Expected error for empty command name")
	}

	if err := registry.Register("NilFactory", nil); err == nil {
		t.Error("Expected error for nil factory")
	}
}

func TestDefaultRegistry_BuiltinCommands(t *testing.T) {
	for _, name := range []string{"NormalizeCommand", "DownscaleCommand"} {
		if !DefaultRegistry.IsRegistered(name) {
			t.Errorf("Expected %s to be registered in the default registry", name)
		}
	}
}
