package server

import (
	"github.com/nightglow/respd/internal/resp"
)

// context carries the arguments of one decoded request. Commands here are
// stateless: this server frames and answers, it keeps no keyspace.
type context struct {
	args []resp.Value
}

type command interface {
	execute(ctx *context) resp.Value
}

type commandFunc func(ctx *context) resp.Value

func (c commandFunc) execute(ctx *context) resp.Value {
	return c(ctx)
}
