package agentproto

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"github.com/Masterminds/semver/v3"

	"github.com/pacwrap/pacwrap/pkg/perror"
)

// Magic is the fixed four-byte marker every envelope begins with,
// guarding against a stdin stream that is not a pacwrap agent handoff.
const Magic uint32 = 0x50414357 // "PACW"

// Version is a wire-level semver triple, encoded as three bytes rather
// than a string to keep the frame header fixed-size.
type Version struct {
	Major, Minor, Patch uint8
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

func (v Version) semver() (*semver.Version, error) {
	return semver.NewVersion(v.String())
}

// Compatible reports whether a front-end advertising `frontend` satisfies
// the minimum version `required`: the major versions must match exactly,
// and the front-end's minor.patch must be at least the required one,
// mirroring the protocol's backward-compatibility rule.
func Compatible(frontend, required Version) (bool, error) {
	fe, err := frontend.semver()
	if err != nil {
		return false, perror.Wrap(perror.KindInvalidVersion, err, "parse frontend version")
	}
	req, err := required.semver()
	if err != nil {
		return false, perror.Wrap(perror.KindInvalidVersion, err, "parse agent version")
	}
	if fe.Major() != req.Major() {
		return false, nil
	}
	if fe.Minor() != req.Minor() {
		return fe.Minor() > req.Minor(), nil
	}
	return fe.Patch() >= req.Patch(), nil
}

// Envelope is the full frame sent over the agent's stdin: the magic
// number, both version triples, and an opaque JSON payload the agent
// decodes into its own command type.
type Envelope struct {
	Frontend Version
	Required Version
	Payload  []byte
}

// Write serializes the envelope to w: magic, frontend version, required
// version, payload length, payload. All integers are little-endian.
func Write(w io.Writer, env Envelope) error {
	if err := binary.Write(w, binary.LittleEndian, Magic); err != nil {
		return fmt.Errorf("write magic: %w", err)
	}
	if err := writeVersion(w, env.Frontend); err != nil {
		return fmt.Errorf("write frontend version: %w", err)
	}
	if err := writeVersion(w, env.Required); err != nil {
		return fmt.Errorf("write required version: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint64(len(env.Payload))); err != nil {
		return fmt.Errorf("write payload length: %w", err)
	}
	if _, err := w.Write(env.Payload); err != nil {
		return fmt.Errorf("write payload: %w", err)
	}
	return nil
}

func writeVersion(w io.Writer, v Version) error {
	_, err := w.Write([]byte{v.Major, v.Minor, v.Patch})
	return err
}

func readVersion(r io.Reader) (Version, error) {
	var buf [3]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return Version{}, err
	}
	return Version{Major: buf[0], Minor: buf[1], Patch: buf[2]}, nil
}

// Read parses an envelope from r, failing with typed errors on a bad
// magic number, a malformed version, or a truncated/oversized payload.
// All integers are little-endian.
func Read(r io.Reader) (Envelope, error) {
	var magic uint32
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return Envelope{}, perror.Wrap(perror.KindDeserializationError, err, "read magic")
	}
	if magic != Magic {
		return Envelope{}, perror.New(perror.KindInvalidMagic, "unrecognized agent protocol magic")
	}

	fe, err := readVersion(r)
	if err != nil {
		return Envelope{}, perror.Wrap(perror.KindDeserializationError, err, "read frontend version")
	}
	req, err := readVersion(r)
	if err != nil {
		return Envelope{}, perror.Wrap(perror.KindDeserializationError, err, "read required version")
	}

	var length uint64
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return Envelope{}, perror.Wrap(perror.KindDeserializationError, err, "read payload length")
	}
	const maxPayload = 64 << 20
	if length > maxPayload {
		return Envelope{}, perror.New(perror.KindDeserializationError, "payload exceeds maximum size")
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Envelope{}, perror.Wrap(perror.KindDeserializationError, err, "read payload")
	}

	return Envelope{Frontend: fe, Required: req, Payload: payload}, nil
}

// EncodePayload is a convenience wrapper for JSON-encoding a typed
// command into an envelope's payload.
func EncodePayload(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, perror.Wrap(perror.KindDeserializationError, err, "encode payload")
	}
	return data, nil
}

// DecodePayload is the receiving side's counterpart to EncodePayload.
func DecodePayload(payload []byte, v any) error {
	if err := json.Unmarshal(payload, v); err != nil {
		return perror.Wrap(perror.KindDeserializationError, err, "decode payload")
	}
	return nil
}
