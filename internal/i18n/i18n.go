// Package i18n provides the bilingual (English/Arabic) strings used in chat
// transcripts and the language-detection rule that picks between them.
package i18n

import "fmt"

// Lang is a supported display language.
type Lang string

const (
	LangEN Lang = "en"
	LangAR Lang = "ar"
)

// Message keys.
const (
	KeyGreeting      = "chat.greeting"
	KeyTurnError     = "chat.turn_error"
	KeyEmptyResponse = "chat.empty_response"
)

// messages stores all translations, keyed by language then message key.
var messages = map[Lang]map[string]string{
	LangEN: {
		KeyGreeting:      "Hello! I'm Ahmed, your travel assistant. Let's plan your trip from %s to %s.",
		KeyTurnError:     "Sorry, there was an error processing your request. Please try again.",
		KeyEmptyResponse: "Sorry, I received an empty response. Please try again.",
	},
	LangAR: {
		KeyGreeting:      "مرحباً! أنا أحمد، مساعدك للسفر. لنخطط رحلتك من %s إلى %s.",
		KeyTurnError:     "عذراً، حدث خطأ أثناء معالجة طلبك. يرجى المحاولة مرة أخرى.",
		KeyEmptyResponse: "عذراً، وصلني رد فارغ. يرجى المحاولة مرة أخرى.",
	},
}

// T returns the translated message for the given key, falling back to
// English and then to the key itself if no translation exists.
func T(lang Lang, key string) string {
	if msg, ok := messages[lang][key]; ok {
		return msg
	}
	if msg, ok := messages[LangEN][key]; ok {
		return msg
	}
	return key
}

// Sprintf returns the translated and formatted message.
func Sprintf(lang Lang, key string, args ...interface{}) string {
	return fmt.Sprintf(T(lang, key), args...)
}

// Detect picks the display language for a conversation from the route the
// user typed: any character in an Arabic Unicode block makes the whole
// session Arabic. The decision is made once at session start and does not
// change mid-conversation.
func Detect(startingPoint, destination string) Lang {
	if containsArabic(startingPoint) || containsArabic(destination) {
		return LangAR
	}
	return LangEN
}

// Arabic Unicode blocks: Arabic, Arabic Supplement, Arabic Extended-A, and
// the two presentation-form blocks.
func containsArabic(s string) bool {
	for _, r := range s {
		switch {
		case r >= 0x0600 && r <= 0x06FF,
			r >= 0x0750 && r <= 0x077F,
			r >= 0x08A0 && r <= 0x08FF,
			r >= 0xFB50 && r <= 0xFDFF,
			r >= 0xFE70 && r <= 0xFEFF:
			return true
		}
	}
	return false
}
