// Package commands turns free-text admin commands into intents and
// answers them.
package commands

import (
	"fmt"
	"regexp"
	"strings"
)

type Kind string

const (
	KindSummon  Kind = "summon"
	KindStatus  Kind = "status"
	KindPause   Kind = "pause"
	KindReset   Kind = "reset"
	KindUnknown Kind = "unknown"
)

type Bot string

const (
	BotGiftverseLeader Bot = "giftverse-leader"
	BotCommandDeck     Bot = "command-deck"
	BotVoiceGuardian   Bot = "voice-guardian"
)

// Bots lists the known bots in display order.
var Bots = []Bot{BotGiftverseLeader, BotCommandDeck, BotVoiceGuardian}

var botAliases = map[string]Bot{
	"giftverse-leader": BotGiftverseLeader,
	"giftverse leader": BotGiftverseLeader,
	"giftverse":        BotGiftverseLeader,
	"leader":           BotGiftverseLeader,
	"command-deck":     BotCommandDeck,
	"command deck":     BotCommandDeck,
	"deck":             BotCommandDeck,
	"voice-guardian":   BotVoiceGuardian,
	"voice guardian":   BotVoiceGuardian,
	"guardian":         BotVoiceGuardian,
}

var verbs = map[string]Kind{
	"summon":   KindSummon,
	"call":     KindSummon,
	"wake":     KindSummon,
	"start":    KindSummon,
	"activate": KindSummon,
	"status":   KindStatus,
	"report":   KindStatus,
	"health":   KindStatus,
	"check":    KindStatus,
	"pause":    KindPause,
	"stop":     KindPause,
	"halt":     KindPause,
	"suspend":  KindPause,
	"reset":    KindReset,
	"restart":  KindReset,
	"reboot":   KindReset,
}

// Intent is the parsed command. Bot is empty for Unknown and for a Status
// that names no bot.
type Intent struct {
	Kind Kind `json:"kind"`
	Bot  Bot  `json:"bot,omitempty"`
}

var wordPattern = regexp.MustCompile(`[a-z]+`)

// Classify picks the first verb and the first bot named in text.
// Summon, Pause and Reset need a bot; Status does not.
func Classify(text string) Intent {
	words := wordPattern.FindAllString(strings.ToLower(text), -1)

	kind := KindUnknown
	for _, w := range words {
		if k, ok := verbs[w]; ok {
			kind = k
			break
		}
	}
	if kind == KindUnknown {
		return Intent{Kind: KindUnknown}
	}

	bot := findBot(words)
	if bot == "" && kind != KindStatus {
		return Intent{Kind: KindUnknown}
	}
	return Intent{Kind: kind, Bot: bot}
}

// findBot prefers two-word aliases so "command deck" is not read as "deck".
func findBot(words []string) Bot {
	for i := 0; i+1 < len(words); i++ {
		if b, ok := botAliases[words[i]+" "+words[i+1]]; ok {
			return b
		}
	}
	for _, w := range words {
		if b, ok := botAliases[w]; ok {
			return b
		}
	}
	return ""
}

// Response is what the console shows for an intent.
type Response struct {
	Intent  Intent `json:"intent"`
	Message string `json:"message"`
	Handled bool   `json:"handled"`
}

// Dispatch answers an intent without parsing anything.
func Dispatch(in Intent) Response {
	r := Response{Intent: in, Handled: true}
	switch in.Kind {
	case KindSummon:
		r.Message = fmt.Sprintf("%s is online and listening.", displayName(in.Bot))
	case KindStatus:
		if in.Bot == "" {
			names := make([]string, len(Bots))
			for i, b := range Bots {
				names[i] = displayName(b)
			}
			r.Message = "All agents operational: " + strings.Join(names, ", ") + "."
		} else {
			r.Message = fmt.Sprintf("%s is operational.", displayName(in.Bot))
		}
	case KindPause:
		r.Message = fmt.Sprintf("%s paused. Say \"summon %s\" to resume.", displayName(in.Bot), in.Bot)
	case KindReset:
		r.Message = fmt.Sprintf("%s reset to its default configuration.", displayName(in.Bot))
	default:
		r.Handled = false
		r.Message = "Command not recognised. Try \"status\", \"summon leader\", \"pause deck\" or \"reset guardian\"."
	}
	return r
}

// Run is Classify followed by Dispatch.
func Run(text string) Response {
	return Dispatch(Classify(text))
}

func displayName(b Bot) string {
	switch b {
	case BotGiftverseLeader:
		return "Giftverse Leader"
	case BotCommandDeck:
		return "Command Deck"
	case BotVoiceGuardian:
		return "Voice Guardian"
	}
	return string(b)
}
