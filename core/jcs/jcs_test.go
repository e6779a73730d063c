package jcs

import "testing"

func TestCanonicalizeJSON(t *testing.T) {
	in := []byte(`{ "events": [ { "t": 1, "c": "SB" } ] }`)
	want := `{"events":[{"c":"SB","t":1}]}`
	out, err := CanonicalizeJSON(in)
	if err != nil {
		t.Fatalf("canonicalize error: %v", err)
	}
	if string(out) != want {
		t.Fatalf("unexpected canonical form: %s", string(out))
	}
}

func TestDigestJCSStable(t *testing.T) {
	a := []byte(`{"c":"E","m":"boom"}`)
	b := []byte(`{ "m":"boom", "c":"E" }`)

	da, err := DigestJCS(a)
	if err != nil {
		t.Fatalf("digest error: %v", err)
	}
	db, err := DigestJCS(b)
	if err != nil {
		t.Fatalf("digest error: %v", err)
	}
	if da != db {
		t.Fatalf("expected same digest for equivalent JSON")
	}
	if len(da) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(da))
	}
}

func TestDigestJCSInvalid(t *testing.T) {
	if _, err := CanonicalizeJSON([]byte(`{`)); err == nil {
		t.Fatalf("expected error for invalid JSON")
	}
	if _, err := DigestJCS([]byte(`{`)); err == nil {
		t.Fatalf("expected error for invalid JSON digest")
	}
}
