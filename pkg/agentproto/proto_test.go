package agentproto

import (
	"bytes"
	"testing"

	"github.com/pacwrap/pacwrap/pkg/perror"
)

func TestWriteReadRoundTrip(t *testing.T) {
	env := Envelope{
		Frontend: Version{Major: 1, Minor: 2, Patch: 0},
		Required: Version{Major: 1, Minor: 0, Patch: 0},
		Payload:  []byte(`{"root":"/containers/base/root"}`),
	}

	var buf bytes.Buffer
	if err := Write(&buf, env); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got.Frontend != env.Frontend || got.Required != env.Required {
		t.Fatalf("Read() versions = %+v, want %+v", got, env)
	}
	if !bytes.Equal(got.Payload, env.Payload) {
		t.Fatalf("Read() payload = %q, want %q", got.Payload, env.Payload)
	}
}

func TestReadRejectsBadMagic(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0xDE, 0xAD, 0xBE, 0xEF, 1, 0, 0, 1, 0, 0})
	_, err := Read(buf)
	perr, ok := perror.As(err)
	if !ok || perr.Kind != perror.KindInvalidMagic {
		t.Fatalf("err = %v, want a KindInvalidMagic perror.Error", err)
	}
}

func TestReadRejectsTruncatedStream(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, Envelope{Payload: []byte("hello")}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	truncated := bytes.NewReader(buf.Bytes()[:buf.Len()-2])
	_, err := Read(truncated)
	perr, ok := perror.As(err)
	if !ok || perr.Kind != perror.KindDeserializationError {
		t.Fatalf("err = %v, want a KindDeserializationError perror.Error", err)
	}
}

func TestCompatibleRequiresMatchingMajor(t *testing.T) {
	ok, err := Compatible(Version{Major: 1, Minor: 0, Patch: 0}, Version{Major: 2, Minor: 0, Patch: 0})
	if err != nil {
		t.Fatalf("Compatible() error = %v", err)
	}
	if ok {
		t.Fatal("Compatible() = true, want false for mismatched majors")
	}
}

func TestCompatibleAllowsNewerFrontendMinor(t *testing.T) {
	ok, err := Compatible(Version{Major: 1, Minor: 2, Patch: 0}, Version{Major: 1, Minor: 0, Patch: 0})
	if err != nil {
		t.Fatalf("Compatible() error = %v", err)
	}
	if !ok {
		t.Fatal("Compatible() = false, want true when the frontend's minor is newer than required")
	}
}

func TestCompatibleRejectsFrontendPatchBelowRequired(t *testing.T) {
	ok, err := Compatible(Version{Major: 1, Minor: 0, Patch: 1}, Version{Major: 1, Minor: 0, Patch: 5})
	if err != nil {
		t.Fatalf("Compatible() error = %v", err)
	}
	if ok {
		t.Fatal("Compatible() = true, want false when the frontend's patch is behind the required one")
	}
}

func TestEncodeDecodePayloadRoundTrip(t *testing.T) {
	type cmd struct {
		Root string `json:"root"`
	}
	in := cmd{Root: "/containers/base/root"}

	data, err := EncodePayload(in)
	if err != nil {
		t.Fatalf("EncodePayload() error = %v", err)
	}

	var out cmd
	if err := DecodePayload(data, &out); err != nil {
		t.Fatalf("DecodePayload() error = %v", err)
	}
	if out != in {
		t.Fatalf("DecodePayload() = %+v, want %+v", out, in)
	}
}

func TestVersionString(t *testing.T) {
	v := Version{Major: 1, Minor: 2, Patch: 3}
	if v.String() != "1.2.3" {
		t.Fatalf("String() = %q, want 1.2.3", v.String())
	}
}
