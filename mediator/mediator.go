// Package mediator routes client commands to the entity workers and fans out
// change events to every other connected client after a successful mutation.
package mediator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/maruel/ksid"

	"github.com/shakahl/db-diagram/document"
	"github.com/shakahl/db-diagram/internal/catalog"
	"github.com/shakahl/db-diagram/protocol"
)

// Mediator owns the registry of connected clients and the (Command,
// SubCommand) dispatch. Handlers are bound at compile time; an unmapped pair
// answers a structured unsupported-command error instead of panicking.
type Mediator struct {
	log *slog.Logger
	dbs *catalog.DatabaseWorker
	tbs *catalog.TableWorker
	fds *catalog.FieldWorker

	mu      sync.Mutex
	clients map[ksid.ID]*Client
}

// New builds a mediator over the three entity workers.
func New(dbs *catalog.DatabaseWorker, tbs *catalog.TableWorker, fds *catalog.FieldWorker, log *slog.Logger) *Mediator {
	return &Mediator{
		log:     log.With("component", "mediator"),
		dbs:     dbs,
		tbs:     tbs,
		fds:     fds,
		clients: make(map[ksid.ID]*Client),
	}
}

// Connect registers a new client and starts its event delivery loop.
func (m *Mediator) Connect(kind protocol.FrameKind, url string) *Client {
	c := &Client{
		id:        ksid.NewID(),
		kind:      kind,
		url:       url,
		m:         m,
		events:    make(chan protocol.ChangeEvent, eventBuffer),
		done:      make(chan struct{}),
		listeners: make(map[protocol.EventType]map[int]func(protocol.ChangeEvent)),
	}
	m.mu.Lock()
	m.clients[c.id] = c
	m.mu.Unlock()
	go c.run()
	m.log.Debug("client connected", "id", c.id, "kind", kind, "url", url)
	return c
}

func (m *Mediator) disconnect(c *Client) {
	m.mu.Lock()
	delete(m.clients, c.id)
	m.mu.Unlock()
	m.log.Debug("client disconnected", "id", c.id)
}

// handle runs one request to completion and returns its single response.
func (m *Mediator) handle(ctx context.Context, from *Client, req protocol.Request) protocol.Response {
	switch req.Command {
	case protocol.CmdMeta:
		if req.SubCommand == protocol.SubMeta {
			return success(from.Info())
		}
	case protocol.CmdShow:
		return m.handleShow(ctx, req)
	case protocol.CmdCreate:
		return m.handleCreate(ctx, from, req)
	case protocol.CmdUpdate:
		return m.handleUpdate(ctx, from, req)
	case protocol.CmdDelete:
		return m.handleDelete(ctx, from, req)
	}
	return unsupported(req)
}

func (m *Mediator) handleShow(ctx context.Context, req protocol.Request) protocol.Response {
	switch req.SubCommand {
	case protocol.SubDatabase:
		r, err := m.dbs.Show(ctx)
		return respond(r, err)
	case protocol.SubTable:
		db, perr := payload[*document.Database](req)
		if perr != nil {
			return failure(perr)
		}
		r, err := m.tbs.Show(ctx, db.Name)
		return respond(r, err)
	case protocol.SubField:
		tb, perr := payload[*document.Table](req)
		if perr != nil {
			return failure(perr)
		}
		r, err := m.fds.Show(ctx, tb.Database, tb.Name)
		return respond(r, err)
	}
	return unsupported(req)
}

func (m *Mediator) handleCreate(ctx context.Context, from *Client, req protocol.Request) protocol.Response {
	switch req.SubCommand {
	case protocol.SubDatabase:
		db, perr := payload[*document.Database](req)
		if perr != nil {
			return failure(perr)
		}
		r, err := m.dbs.Create(ctx, db)
		return m.mutated(from, protocol.EventCreateDatabase, respond(r, err))
	case protocol.SubTable:
		tb, perr := payload[*document.Table](req)
		if perr != nil {
			return failure(perr)
		}
		r, err := m.tbs.Create(ctx, tb)
		return m.mutated(from, protocol.EventCreateTable, respond(r, err))
	case protocol.SubField:
		fd, perr := payload[*document.Field](req)
		if perr != nil {
			return failure(perr)
		}
		r, err := m.fds.Create(ctx, fd)
		return m.mutated(from, protocol.EventCreateField, respond(r, err))
	}
	return unsupported(req)
}

func (m *Mediator) handleUpdate(ctx context.Context, from *Client, req protocol.Request) protocol.Response {
	switch req.SubCommand {
	case protocol.SubDatabase:
		db, perr := payload[*document.Database](req)
		if perr != nil {
			return failure(perr)
		}
		r, err := m.dbs.Alter(ctx, db)
		return m.mutated(from, protocol.EventAlterDatabase, respond(r, err))
	case protocol.SubTable:
		tb, perr := payload[*document.Table](req)
		if perr != nil {
			return failure(perr)
		}
		r, err := m.tbs.Alter(ctx, tb)
		return m.mutated(from, protocol.EventAlterTable, respond(r, err))
	case protocol.SubField:
		fd, perr := payload[*document.Field](req)
		if perr != nil {
			return failure(perr)
		}
		r, err := m.fds.Alter(ctx, fd)
		return m.mutated(from, protocol.EventAlterField, respond(r, err))
	}
	return unsupported(req)
}

func (m *Mediator) handleDelete(ctx context.Context, from *Client, req protocol.Request) protocol.Response {
	switch req.SubCommand {
	case protocol.SubDatabase:
		db, perr := payload[*document.Database](req)
		if perr != nil {
			return failure(perr)
		}
		var r document.Result[*document.Database]
		var err error
		if db.ID != "" {
			r, err = m.dbs.Drop(ctx, db.ID)
		} else {
			r, err = m.dbs.DropByName(ctx, db.Name)
		}
		return m.mutated(from, protocol.EventDropDatabase, respond(r, err))
	case protocol.SubTable:
		tb, perr := payload[*document.Table](req)
		if perr != nil {
			return failure(perr)
		}
		var r document.Result[*document.Table]
		var err error
		if tb.ID != "" {
			r, err = m.tbs.Drop(ctx, tb.ID)
		} else {
			r, err = m.tbs.DropByName(ctx, tb.Name, tb.Database)
		}
		return m.mutated(from, protocol.EventDropTable, respond(r, err))
	case protocol.SubField:
		fd, perr := payload[*document.Field](req)
		if perr != nil {
			return failure(perr)
		}
		var r document.Result[*document.Field]
		var err error
		if fd.ID != "" {
			r, err = m.fds.Drop(ctx, fd.ID)
		} else {
			r, err = m.fds.DropByName(ctx, fd.Name, fd.Database, fd.Table)
		}
		return m.mutated(from, protocol.EventDropField, respond(r, err))
	}
	return unsupported(req)
}

// mutated fans a change event out to every connected client except the
// origin, then passes the response through. Fan-out happens only after a
// successful mutation and is never awaited.
func (m *Mediator) mutated(from *Client, typ protocol.EventType, resp protocol.Response) protocol.Response {
	if !resp.Success {
		return resp
	}
	m.mu.Lock()
	targets := make([]*Client, 0, len(m.clients))
	for id, c := range m.clients {
		if id != from.id {
			targets = append(targets, c)
		}
	}
	m.mu.Unlock()
	ev := protocol.ChangeEvent{Source: from.id.String(), Type: typ, Detail: resp.Data}
	for _, c := range targets {
		select {
		case c.events <- ev:
		default:
			m.log.Warn("change event dropped, client queue full", "client", c.id, "type", typ)
		}
	}
	return resp
}

// payload extracts the typed data of a request.
func payload[T any](req protocol.Request) (T, *protocol.Error) {
	v, ok := req.Data.(T)
	if !ok {
		var zero T
		return zero, &protocol.Error{
			Status: document.StatusFailed,
			Detail: fmt.Sprintf("request command %s sub command %s carries no usable data", req.Command, req.SubCommand),
		}
	}
	return v, nil
}

// respond folds a worker result and transport error into a response.
func respond[T any](r document.Result[T], err error) protocol.Response {
	if err != nil {
		return failure(&protocol.Error{Status: document.StatusFailed, Detail: err.Error()})
	}
	if !r.OK() {
		return failure(&protocol.Error{Status: r.Status, Detail: r.Detail})
	}
	return success(r.Data)
}

func success(data any) protocol.Response {
	return protocol.Response{Success: true, Data: data}
}

func failure(err *protocol.Error) protocol.Response {
	return protocol.Response{Success: false, Err: err}
}

func unsupported(req protocol.Request) protocol.Response {
	return failure(&protocol.Error{
		Status: document.StatusFailed,
		Detail: fmt.Sprintf("request command %s sub command %s is not supported", req.Command, req.SubCommand),
	})
}
