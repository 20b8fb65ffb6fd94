package server

import (
	"strings"

	"github.com/nightglow/respd/internal/resp"
)

func ping(ctx *context) resp.Value {
	switch len(ctx.args) {
	case 0:
		return resp.MakeSimpleString("PONG")
	case 1:
		return resp.Value{Type: resp.TypeBulkString, String: ctx.args[0].String}
	default:
		return resp.MakeErrorWrongNumberOfArguments("PING")
	}
}

func echo(ctx *context) resp.Value {
	if len(ctx.args) != 1 {
		return resp.MakeErrorWrongNumberOfArguments("ECHO")
	}
	return resp.Value{Type: resp.TypeBulkString, String: ctx.args[0].String}
}

// cmd answers COMMAND, COMMAND COUNT and COMMAND DOCS so that standard
// clients can introspect the server on connect
func cmd(ctx *context) resp.Value {
	if len(ctx.args) == 0 {
		return getAllCommands()
	}

	sub := strings.ToUpper(string(ctx.args[0].String))
	switch sub {
	case "COUNT":
		return resp.MakeInteger(int64(len(commandRegistry)))
	case "DOCS":
		return getCommandsDocs(ctx.args[1:])
	default:
		return getAllCommands()
	}
}
