package protocol

import (
	"errors"
	"testing"

	"github.com/shakahl/db-diagram/document"
)

func TestErrorFormatting(t *testing.T) {
	e := &Error{Status: document.StatusNameExist}
	if got := e.Error(); got != "NAME_EXIST" {
		t.Fatalf("Error() = %q", got)
	}
	e.Detail = "item name sales already existed"
	if got := e.Error(); got != "NAME_EXIST: item name sales already existed" {
		t.Fatalf("Error() = %q", got)
	}

	// It must satisfy the error interface for errors.As chains.
	var target *Error
	if !errors.As(error(e), &target) {
		t.Fatal("errors.As failed")
	}
}

func TestCommandNames(t *testing.T) {
	if CmdMeta.String() != "META" || CmdSync.String() != "SYNC" {
		t.Fatalf("command names wrong: %s %s", CmdMeta, CmdSync)
	}
	if SubRelation.String() != "RELATION" {
		t.Fatalf("subcommand name wrong: %s", SubRelation)
	}
	// Out-of-range values must not panic.
	if Command(42).String() == "" || SubCommand(42).String() == "" {
		t.Fatal("out-of-range stringer empty")
	}
}
