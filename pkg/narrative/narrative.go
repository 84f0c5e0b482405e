package narrative

import (
	"encoding/json"
	"fmt"
)

// Narrative is the fire-and-forget story surface missions drive.
// Callbacks passed to PlayVideo and ForceMessage run when the player finishes watching.
type Narrative interface {
	IncomingMessage(id string)
	PlayVideo(id string, onComplete func())
	ForceMessage(id string, onComplete func())
	Achievement(id string)
	GameOver()
	WinGame()
}

// Kind classifies a narrative entry.
type Kind string

const (
	KindMessage     Kind = "message"
	KindVideo       Kind = "video"
	KindForced      Kind = "forced_message"
	KindAchievement Kind = "achievement"
	KindGameOver    Kind = "game_over"
	KindWin         Kind = "win"
)

// ParseKind maps a stored name onto a Kind
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindMessage, KindVideo, KindForced, KindAchievement, KindGameOver, KindWin:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("unknown narrative kind: %q", s)
	}
}

// UnmarshalJSON rejects unknown kinds
func (k *Kind) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseKind(raw)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Entry is one narrative beat as seen by the UI layer.
type Entry struct {
	Seq      int    `json:"seq"`
	Kind     Kind   `json:"kind"`
	ID       string `json:"id,omitempty"`
	GameHour int    `json:"game_hour"`
	// AwaitsCompletion is set when the host must call Complete(ID) to resume the story.
	AwaitsCompletion bool `json:"awaits_completion,omitempty"`
}
