// Package tts synthesizes narration with a Kokoro server and produces the
// caption timing that goes with it.
package tts

import "slices"

// Language describes how Kokoro handles a voice's language.
type Language struct {
	// Code is Kokoro's single-letter pipeline code ("a" American English,
	// "b" British English, "z" Mandarin, ...).
	Code string `json:"lang_code"`

	// International voices have no word timestamps; they are synthesized
	// sentence by sentence and captioned per sentence.
	International bool `json:"international"`

	ISO6391 string `json:"iso639_1"`
}

var languages = map[string]Language{
	"en-us": {Code: "a", ISO6391: "en"},
	"en":    {Code: "a", ISO6391: "en"},
	"en-gb": {Code: "b", ISO6391: "en"},
	"es":    {Code: "e", International: true, ISO6391: "es"},
	"fr":    {Code: "f", International: true, ISO6391: "fr"},
	"hi":    {Code: "h", International: true, ISO6391: "hi"},
	"it":    {Code: "i", International: true, ISO6391: "it"},
	"pt":    {Code: "p", International: true, ISO6391: "pt"},
	"ja":    {Code: "j", International: true, ISO6391: "ja"},
	"zh":    {Code: "z", International: true, ISO6391: "zh"},
}

// voicesByLocale lists the Kokoro-82M voices per locale.
var voicesByLocale = []struct {
	locale string
	voices []string
}{
	{"en-us", []string{
		"af_heart", "af_alloy", "af_aoede", "af_bella", "af_jessica", "af_kore",
		"af_nicole", "af_nova", "af_river", "af_sarah", "af_sky",
		"am_adam", "am_echo", "am_eric", "am_fenrir", "am_liam", "am_michael",
		"am_onyx", "am_puck", "am_santa",
	}},
	{"en-gb", []string{
		"bf_alice", "bf_emma", "bf_isabella", "bf_lily",
		"bm_daniel", "bm_fable", "bm_george", "bm_lewis",
	}},
	{"zh", []string{
		"zf_xiaobei", "zf_xiaoni", "zf_xiaoxiao", "zf_xiaoyi",
		"zm_yunjian", "zm_yunxi", "zm_yunxia", "zm_yunyang",
	}},
	{"es", []string{"ef_dora", "em_alex", "em_santa"}},
	{"fr", []string{"ff_siwis"}},
	{"it", []string{"if_sara", "im_nicola"}},
	{"pt", []string{"pf_dora", "pm_alex", "pm_santa"}},
	{"hi", []string{"hf_alpha", "hf_beta", "hm_omega", "hm_psi"}},
}

var voiceLanguage = func() map[string]Language {
	m := make(map[string]Language)
	for _, entry := range voicesByLocale {
		lang, ok := languages[entry.locale]
		if !ok {
			continue
		}
		for _, v := range entry.voices {
			m[v] = lang
		}
	}
	return m
}()

// LookupVoice returns the language of a known voice.
func LookupVoice(voice string) (Language, bool) {
	lang, ok := voiceLanguage[voice]
	return lang, ok
}

// Voices lists the voices of one locale, or every voice when locale is
// empty. Unknown locales yield nil.
func Voices(locale string) []string {
	var out []string
	for _, entry := range voicesByLocale {
		if locale == "" || entry.locale == locale {
			out = append(out, entry.voices...)
		}
	}
	return slices.Clip(out)
}
