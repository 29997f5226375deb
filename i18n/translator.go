package i18n

import "strings"

// Translator retrieves localized messages for error codes.
// data provides optional values to embed in the message (for example,
// "name" or "ref").
type Translator interface {
	Message(code string, data map[string]string) string
}

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct{ lang string }

func (t dictTranslator) Message(code string, data map[string]string) string {
	var msg string
	switch t.lang {
	case "ja":
		switch code {
		case "invalid_name":
			msg = "名前が不正です。"
		case "invalid_operation":
			msg = "不正な操作です。"
		case "resolution_failed":
			msg = "参照 {ref} を解決できません"
		case "hook_failed":
			msg = "フック {hook} の実行に失敗しました"
		}
	default: // "en"
		switch code {
		case "invalid_name":
			msg = "Invalid name."
		case "invalid_operation":
			msg = "Invalid operation."
		case "resolution_failed":
			msg = "cannot resolve reference {ref}"
		case "hook_failed":
			msg = "hook {hook} failed"
		}
	}
	if msg == "" {
		return code
	}
	for k, v := range data {
		msg = strings.ReplaceAll(msg, "{"+k+"}", v)
	}
	return msg
}

var currentTranslator Translator = dictTranslator{lang: "en"}

// SetLanguage switches the built-in Translator language ("en"/"ja").
func SetLanguage(lang string) {
	if lang != "ja" {
		lang = "en"
	}
	currentTranslator = dictTranslator{lang: lang}
}

// SetTranslator replaces the Translator implementation (not limited to the
// dictionary version).
func SetTranslator(tr Translator) {
	if tr == nil {
		currentTranslator = dictTranslator{lang: "en"}
		return
	}
	currentTranslator = tr
}

// T fetches a message for the given code using the current Translator.
func T(code string, data map[string]string) string { return currentTranslator.Message(code, data) }
