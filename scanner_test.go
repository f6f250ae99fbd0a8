package csv

import "testing"

func TestDetectNewlineLF(t *testing.T) {
	d := DefaultDialect()
	kind, n, incomplete := detectNewline([]byte("\nrest"), d)
	if kind != NewlineLF || n != 1 || incomplete {
		t.Fatalf("got %v %d %v", kind, n, incomplete)
	}
}

func TestDetectNewlineCRLF(t *testing.T) {
	d := DefaultDialect()
	kind, n, incomplete := detectNewline([]byte("\r\nrest"), d)
	if kind != NewlineCRLF || n != 2 || incomplete {
		t.Fatalf("got %v %d %v", kind, n, incomplete)
	}
}

func TestDetectNewlineLoneCRIncomplete(t *testing.T) {
	d := DefaultDialect()
	_, _, incomplete := detectNewline([]byte("\r"), d)
	if !incomplete {
		t.Fatal("expected a trailing lone CR to be incomplete when CRLF is accepted")
	}
}

func TestDetectNewlineLoneCRBeforeOtherByteWithoutAcceptCR(t *testing.T) {
	d := DefaultDialect()
	kind, _, incomplete := detectNewline([]byte("\rX"), d)
	if incomplete {
		t.Fatal("should not be incomplete once the next byte is known")
	}
	if kind != NewlineNone {
		t.Fatalf("expected NewlineNone since AcceptCR is false, got %v", kind)
	}
}

func TestDetectNewlineBareCRAccepted(t *testing.T) {
	d := DefaultDialect()
	d.AcceptCR = true
	d.AcceptCRLF = false
	kind, n, incomplete := detectNewline([]byte("\rX"), d)
	if incomplete || kind != NewlineCR || n != 1 {
		t.Fatalf("got %v %d %v", kind, n, incomplete)
	}
}

func TestStripBOM(t *testing.T) {
	rest, stripped := stripBOM([]byte("\xEF\xBB\xBFhello"))
	if !stripped || string(rest) != "hello" {
		t.Fatalf("got %q %v", rest, stripped)
	}
	rest, stripped = stripBOM([]byte("hello"))
	if stripped || string(rest) != "hello" {
		t.Fatalf("expected no BOM stripped, got %q %v", rest, stripped)
	}
}

func TestValidateUTF8Valid(t *testing.T) {
	ok, _ := validateUTF8([]byte("héllo, 世界"))
	if !ok {
		t.Fatal("expected valid UTF-8")
	}
}

func TestValidateUTF8TruncatedSequence(t *testing.T) {
	ok, bad := validateUTF8([]byte{'a', 0xE2, 0x82})
	if ok {
		t.Fatal("expected truncated sequence to be rejected")
	}
	if bad != 1 {
		t.Fatalf("expected bad offset 1, got %d", bad)
	}
}

func TestValidateUTF8Overlong(t *testing.T) {
	// 0xC0 0x80 is an overlong encoding of NUL.
	ok, bad := validateUTF8([]byte{0xC0, 0x80})
	if ok || bad != 0 {
		t.Fatalf("expected overlong rejection at 0, got ok=%v bad=%d", ok, bad)
	}
}

func TestValidateUTF8SurrogateHalf(t *testing.T) {
	// 0xED 0xA0 0x80 encodes U+D800, a lone surrogate.
	ok, _ := validateUTF8([]byte{0xED, 0xA0, 0x80})
	if ok {
		t.Fatal("expected surrogate half to be rejected")
	}
}

func TestValidateUTF8StrayContinuationByte(t *testing.T) {
	ok, bad := validateUTF8([]byte{0x80})
	if ok || bad != 0 {
		t.Fatalf("expected rejection at 0, got ok=%v bad=%d", ok, bad)
	}
}

func TestPositionAdvanceBytesAndNewline(t *testing.T) {
	p := startPosition()
	p.advanceBytes(5)
	if p.Offset != 5 || p.Line != 1 || p.Column != 6 {
		t.Fatalf("got %+v", p)
	}
	p.advanceNewline(1)
	if p.Offset != 6 || p.Line != 2 || p.Column != 1 {
		t.Fatalf("got %+v", p)
	}
}
