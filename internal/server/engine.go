package server

import (
	"fmt"
	"strings"

	"github.com/nightglow/respd/internal/resp"
	"go.uber.org/zap"
)

// Engine routes decoded requests to command handlers and produces the reply
// value for each. It never touches the wire: framing belongs to the peer.
type Engine struct {
	commands map[string]command // Registry of available commands (the key is the command name in uppercase)
	logger   *zap.Logger
}

// NewEngine initializes the engine and registers the basic commands
func NewEngine(logger *zap.Logger) *Engine {
	engine := Engine{
		commands: make(map[string]command),
		logger:   logger,
	}
	engine.registerBasicCommand()

	return &engine
}

// register adds a new command to the engine. The command name is uppercase
func (e *Engine) register(name string, cmd command) {
	e.commands[strings.ToUpper(name)] = cmd
}

// registerBasicCommand fills the registry with standard commands
func (e *Engine) registerBasicCommand() {
	e.register("PING", commandFunc(ping))
	e.register("ECHO", commandFunc(echo))
	e.register("COMMAND", commandFunc(cmd))
}

// Execute finds the command by name and executes it with the passed arguments.
// If the command is not found, returns an error in the RESP format
func (e *Engine) Execute(name string, args []resp.Value) resp.Value {
	if e.logger.Core().Enabled(zap.DebugLevel) {
		// Log the command name and number of args
		e.logger.Debug("executing command",
			zap.String("cmd", name),
			zap.Int("args_count", len(args)),
		)
	}

	cmd, ok := e.commands[name]
	if !ok {
		return resp.MakeError(fmt.Sprintf("ERR unknown command '%s'", name))
	}

	ctx := &context{
		args: args,
	}

	return cmd.execute(ctx)
}
