// Package protocol defines the command envelope exchanged between diagram
// clients and the mediator, and the change events fanned out to clients
// after a successful mutation.
package protocol

import (
	"fmt"

	"github.com/shakahl/db-diagram/document"
)

// Command is the verb of a client request.
type Command int

const (
	CmdMeta Command = iota
	CmdShow
	CmdCreate
	CmdDelete
	CmdUpdate
	CmdPush
	CmdSync
)

// String returns the command name.
func (c Command) String() string {
	switch c {
	case CmdMeta:
		return "META"
	case CmdShow:
		return "SHOW"
	case CmdCreate:
		return "CREATE"
	case CmdDelete:
		return "DELETE"
	case CmdUpdate:
		return "UPDATE"
	case CmdPush:
		return "PUSH"
	case CmdSync:
		return "SYNC"
	default:
		return fmt.Sprintf("COMMAND(%d)", int(c))
	}
}

// SubCommand selects the entity a command operates on.
type SubCommand int

const (
	SubMeta SubCommand = iota
	SubDatabase
	SubTable
	SubField
	SubRelation
)

// String returns the subcommand name.
func (s SubCommand) String() string {
	switch s {
	case SubMeta:
		return "META"
	case SubDatabase:
		return "DATABASE"
	case SubTable:
		return "TABLE"
	case SubField:
		return "FIELD"
	case SubRelation:
		return "RELATION"
	default:
		return fmt.Sprintf("SUBCOMMAND(%d)", int(s))
	}
}

// Request is one client command. Data carries the entity document or natural
// key the command operates on; its concrete type depends on (Command,
// SubCommand).
type Request struct {
	Command    Command    `json:"command"`
	SubCommand SubCommand `json:"subCommand"`
	Data       any        `json:"data,omitempty"`
}

// Error is a structured command failure. Status carries the validation or
// store taxonomy code; Detail is optional human-readable context.
type Error struct {
	Status document.Status `json:"status"`
	Detail string          `json:"detail,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Detail == "" {
		return e.Status.String()
	}
	return fmt.Sprintf("%s: %s", e.Status, e.Detail)
}

// Response answers exactly one Request.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Err     *Error `json:"error,omitempty"`
}

// EventType names a change event fanned out to connected clients.
type EventType string

const (
	EventClientInfo EventType = "client-info"

	EventCreateDatabase EventType = "create-database"
	EventAlterDatabase  EventType = "alter-database"
	EventAlterDatabases EventType = "alter-databases"
	EventDropDatabase   EventType = "drop-database"

	EventCreateTable EventType = "create-table"
	EventAlterTable  EventType = "alter-table"
	EventAlterTables EventType = "alter-tables"
	EventDropTable   EventType = "drop-table"

	EventCreateField EventType = "create-field"
	EventAlterField  EventType = "alter-field"
	EventAlterFields EventType = "alter-fields"
	EventDropField   EventType = "drop-field"

	EventCreateRelation EventType = "create-relation"
	EventAlterRelation  EventType = "alter-relation"
	EventAlterRelations EventType = "alter-relations"
	EventDropRelation   EventType = "drop-relation"
)

// ChangeEvent notifies a client that another client mutated shared state.
// Source is the originating client's id; Detail carries the affected
// document or document list.
type ChangeEvent struct {
	Source string    `json:"source"`
	Type   EventType `json:"type"`
	Detail any       `json:"detail,omitempty"`
}

// FrameKind tells where a client is hosted.
type FrameKind string

const (
	FrameTopLevel  FrameKind = "top-level"
	FrameNested    FrameKind = "nested"
	FrameAuxiliary FrameKind = "auxiliary"
	FrameNone      FrameKind = "none"
)

// ClientInfo is the caller identity metadata answered to a META request.
type ClientInfo struct {
	Kind FrameKind `json:"frameType"`
	ID   string    `json:"id"`
	URL  string    `json:"url,omitempty"`
}
