package alpm

import (
	"testing"

	goalpm "github.com/Jguer/go-alpm/v2"

	"github.com/pacwrap/pacwrap/pkg/perror"
	"github.com/pacwrap/pacwrap/pkg/types"
)

func TestSignatureLevelDefaults(t *testing.T) {
	level, err := signatureLevel("")
	if err != nil {
		t.Fatalf("signatureLevel(\"\") error = %v", err)
	}
	want := goalpm.SigDatabaseOptional | goalpm.SigPackageOptional
	if level != want {
		t.Fatalf("signatureLevel(\"\") = %v, want %v", level, want)
	}
}

func TestSignatureLevelRequired(t *testing.T) {
	level, err := signatureLevel("required")
	if err != nil {
		t.Fatalf("signatureLevel(required) error = %v", err)
	}
	want := goalpm.SigDatabaseRequired | goalpm.SigPackageRequired
	if level != want {
		t.Fatalf("signatureLevel(required) = %v, want %v", level, want)
	}
}

func TestSignatureLevelRejectsUnknown(t *testing.T) {
	_, err := signatureLevel("bogus")
	perr, ok := perror.As(err)
	if !ok || perr.Kind != perror.KindConfigParse {
		t.Fatalf("err = %v, want a KindConfigParse perror.Error", err)
	}
}

func TestTranslateFlagsCombinesEveryFlag(t *testing.T) {
	flags := types.TransactionFlags{
		Cascade:      true,
		Recursive:    true,
		KeepConfig:   true,
		DatabaseOnly: true,
		Force:        true,
	}
	got := translateFlags(flags)

	want := int(goalpm.TransFlagCascade) | int(goalpm.TransFlagRecurse) | int(goalpm.TransFlagNoSave) |
		int(goalpm.TransFlagDBOnly) | int(goalpm.TransFlagForce)
	if got != want {
		t.Fatalf("translateFlags() = %v, want %v", got, want)
	}
}

func TestTranslateFlagsZeroValue(t *testing.T) {
	if got := translateFlags(types.TransactionFlags{}); got != 0 {
		t.Fatalf("translateFlags(zero value) = %v, want 0", got)
	}
}
