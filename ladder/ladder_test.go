package ladder

import (
	"bytes"
	"testing"

	"github.com/r3e-network/go-secapi"
	"github.com/r3e-network/go-secapi/primitives"
)

func fill(b byte) [16]byte {
	var a [16]byte
	for i := range a {
		a[i] = b
	}
	return a
}

// TestUnwrapMatchesManualComposition pins spec §8 scenario 4: ladder
// derivation with input1=0x11x16, input2=0x22x16 under the fake device
// root must equal AES(AES(input1, root), input2) computed independently.
func TestUnwrapMatchesManualComposition(t *testing.T) {
	input1 := fill(0x11)
	input2 := fill(0x22)

	got, err := Unwrap(secapi.DeviceRootKey, input1, input2)
	if err != nil {
		t.Fatalf("unwrap: %v", err)
	}

	stage1, err := primitives.ECBEncrypt(input1[:], secapi.DeviceRootKey[:])
	if err != nil {
		t.Fatalf("stage1: %v", err)
	}
	want, err := primitives.ECBEncrypt(input2[:], stage1)
	if err != nil {
		t.Fatalf("stage2: %v", err)
	}

	if !bytes.Equal(got[:], want) {
		t.Errorf("ladder mismatch: got %x want %x", got, want)
	}
}

func TestUnwrapIsDeterministic(t *testing.T) {
	input1 := fill(0xaa)
	input2 := fill(0xbb)
	a, err := Unwrap(secapi.DeviceRootKey, input1, input2)
	if err != nil {
		t.Fatalf("unwrap: %v", err)
	}
	b, err := Unwrap(secapi.DeviceRootKey, input1, input2)
	if err != nil {
		t.Fatalf("unwrap: %v", err)
	}
	if a != b {
		t.Errorf("expected deterministic output")
	}
}

func TestProvisionBaseKeyIsIdempotentForSameNonce(t *testing.T) {
	var nonce [20]byte
	copy(nonce[:], "abcdefghijklmnopqr\x00\x00")

	k1, err := ProvisionBaseKey(secapi.DeviceRootKey, nonce)
	if err != nil {
		t.Fatalf("provision: %v", err)
	}
	k2, err := ProvisionBaseKey(secapi.DeviceRootKey, nonce)
	if err != nil {
		t.Fatalf("provision: %v", err)
	}
	if k1 != k2 {
		t.Errorf("expected idempotent base key for the same nonce")
	}
	if k1.AES != k1.MAC {
		t.Errorf("BASE_KEY_AES and BASE_KEY_MAC must be the same K4 material")
	}
}

func TestProvisionBaseKeyDiffersAcrossNonces(t *testing.T) {
	var n1, n2 [20]byte
	copy(n1[:], "nonce-one-twenty-byt")
	copy(n2[:], "nonce-two-twenty-byt")

	k1, err := ProvisionBaseKey(secapi.DeviceRootKey, n1)
	if err != nil {
		t.Fatalf("provision: %v", err)
	}
	k2, err := ProvisionBaseKey(secapi.DeviceRootKey, n2)
	if err != nil {
		t.Fatalf("provision: %v", err)
	}
	if k1 == k2 {
		t.Errorf("expected different base keys for different nonces")
	}
}
