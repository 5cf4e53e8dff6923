package bridge

import "testing"

func TestSocketTypeRoundTrip(t *testing.T) {
	types := []SocketType{Pair, Pub, Sub, Req, Rep, XReq, XRep, Dealer, Router, XPub, XSub, Pull, Push}
	for _, want := range types {
		name := want.String()
		got, ok := socketTypeByName(name)
		if !ok {
			t.Fatalf("socketTypeByName(%q) reported not found", name)
		}
		if got != want {
			t.Fatalf("socketTypeByName(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestSocketTypeByNameUnknown(t *testing.T) {
	if _, ok := socketTypeByName("bogus"); ok {
		t.Fatal("expected ok=false for unknown socket type name")
	}
}

func TestSocketTypeByNameCaseInsensitive(t *testing.T) {
	if _, ok := socketTypeByName("PAIR"); !ok {
		t.Fatal("expected socketTypeByName to be case-insensitive via strings.ToLower")
	}
}

func TestWithSocketTypeNameAcceptsKnownName(t *testing.T) {
	opts, err := RegisterOptions{}.WithSocketTypeName("push")
	if err != nil {
		t.Fatalf("WithSocketTypeName(push): %v", err)
	}
	if !opts.hasSocketType || opts.socketType != Push {
		t.Fatalf("got socketType=%v hasSocketType=%v, want Push/true", opts.socketType, opts.hasSocketType)
	}
}

func TestWithSocketTypeNameRejectsUnknownName(t *testing.T) {
	if _, err := (RegisterOptions{}).WithSocketTypeName("bogus"); err == nil {
		t.Fatal("expected an error for an unknown socket type name")
	}
}
