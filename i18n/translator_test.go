package i18n

import "testing"

func TestTranslator_DefaultAndJapanese(t *testing.T) {
	// default is en
	if msg := T("invalid_name", nil); msg != "Invalid name." {
		t.Fatalf("expected a human message, got %q", msg)
	}

	SetLanguage("ja")
	if msg := T("invalid_operation", nil); msg == "Invalid operation." || msg == "invalid_operation" {
		t.Fatalf("expected japanese message, got %q", msg)
	}

	// reset to en
	SetLanguage("en")
}

func TestTranslator_Placeholders(t *testing.T) {
	if msg := T("resolution_failed", map[string]string{"ref": "#/definitions/x"}); msg != "cannot resolve reference #/definitions/x" {
		t.Fatalf("placeholder not substituted: %q", msg)
	}
	if msg := T("no_such_code", nil); msg != "no_such_code" {
		t.Fatalf("unknown codes should echo, got %q", msg)
	}
}

type upper struct{}

func (upper) Message(code string, _ map[string]string) string { return "X:" + code }

func TestSetTranslator(t *testing.T) {
	SetTranslator(upper{})
	defer SetTranslator(nil)
	if msg := T("invalid_name", nil); msg != "X:invalid_name" {
		t.Fatalf("custom translator not used: %q", msg)
	}
}
