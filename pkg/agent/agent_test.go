package agent

import (
	"bytes"
	"testing"

	"github.com/pacwrap/pacwrap/pkg/agentproto"
	"github.com/pacwrap/pacwrap/pkg/perror"
)

func TestTransactRejectsBadMagic(t *testing.T) {
	var buf bytes.Buffer
	if err := agentproto.Write(&buf, agentproto.Envelope{Frontend: FrontendVersion, Required: FrontendVersion}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	corrupted := buf.Bytes()
	corrupted[0] ^= 0xFF

	var stdout bytes.Buffer
	err := Transact(bytes.NewReader(corrupted), &stdout)
	perr, ok := perror.As(err)
	if !ok || perr.Kind != perror.KindInvalidMagic {
		t.Fatalf("err = %v, want a KindInvalidMagic perror.Error", err)
	}
}

func TestTransactRejectsIncompatibleFrontend(t *testing.T) {
	env := agentproto.Envelope{
		Frontend: agentproto.Version{Major: 9, Minor: 0, Patch: 0},
		Required: FrontendVersion,
		Payload:  []byte(`{}`),
	}

	var buf bytes.Buffer
	if err := agentproto.Write(&buf, env); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	var stdout bytes.Buffer
	err := Transact(&buf, &stdout)
	perr, ok := perror.As(err)
	if !ok || perr.Kind != perror.KindInvalidVersion {
		t.Fatalf("err = %v, want a KindInvalidVersion perror.Error", err)
	}
}

func TestTransactRejectsWhenEnvelopeRequiredVersionIsIncompatible(t *testing.T) {
	env := agentproto.Envelope{
		Frontend: FrontendVersion,
		Required: agentproto.Version{Major: FrontendVersion.Major + 1, Minor: 0, Patch: 0},
		Payload:  []byte(`{}`),
	}

	var buf bytes.Buffer
	if err := agentproto.Write(&buf, env); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	// Frontend matches this build's own FrontendVersion exactly, so a
	// check gated on FrontendVersion alone would wrongly accept this
	// envelope; Required's major version mismatch is what must reject it.
	var stdout bytes.Buffer
	err := Transact(&buf, &stdout)
	perr, ok := perror.As(err)
	if !ok || perr.Kind != perror.KindInvalidVersion {
		t.Fatalf("err = %v, want a KindInvalidVersion perror.Error", err)
	}
}

func TestTransactRejectsMalformedPayload(t *testing.T) {
	env := agentproto.Envelope{
		Frontend: FrontendVersion,
		Required: FrontendVersion,
		Payload:  []byte(`not json`),
	}

	var buf bytes.Buffer
	if err := agentproto.Write(&buf, env); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	var stdout bytes.Buffer
	err := Transact(&buf, &stdout)
	perr, ok := perror.As(err)
	if !ok || perr.Kind != perror.KindDeserializationError {
		t.Fatalf("err = %v, want a KindDeserializationError perror.Error", err)
	}
}

func TestEmitterWritesLineDelimitedEvents(t *testing.T) {
	var buf bytes.Buffer
	e := newEmitter(&buf)
	e.emit("install", "zsh")
	e.emit("complete", "")

	want := "EVENT\tinstall\tzsh\nEVENT\tcomplete\t\n"
	if buf.String() != want {
		t.Fatalf("emitter output = %q, want %q", buf.String(), want)
	}
}
