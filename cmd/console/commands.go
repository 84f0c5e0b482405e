package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jwebster45206/campaign-engine/pkg/mission"
	"github.com/jwebster45206/campaign-engine/pkg/narrative"
	"github.com/jwebster45206/campaign-engine/pkg/queue"
	"github.com/jwebster45206/campaign-engine/pkg/world"
)

const helpText = `
Commands:
• /advance <hours>  - Advance game time
• /wait <millis>    - Let wall-clock time pass and fire due timeouts
• /event <kind> [key=value ...] - Deliver a host event
    keys: fleet other planet player target id level stance x y
    battles: attacker defenders winner destroyed (lists are comma separated)
• /done <id> [video|message|forced_message] - Finish a video or message
• /reset   - Restart the current level
• /copy    - Copy the campaign id to the clipboard
• /help    - Show this help
• Ctrl+C   - Quit
`

// parseCommand turns a console line into a queued request shape. CampaignID is left unset.
func parseCommand(input string) (*queue.Request, error) {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty command")
	}

	switch strings.ToLower(fields[0]) {
	case "/advance":
		n, err := intArg(fields, "hours")
		if err != nil {
			return nil, err
		}
		return &queue.Request{Type: queue.RequestTypeAdvance, Hours: n}, nil

	case "/wait":
		n, err := intArg(fields, "millis")
		if err != nil {
			return nil, err
		}
		return &queue.Request{Type: queue.RequestTypeAdvance, Millis: int64(n)}, nil

	case "/event":
		if len(fields) < 2 {
			return nil, fmt.Errorf("usage: /event <kind> [key=value ...]")
		}
		ev, err := parseEvent(fields[1], fields[2:])
		if err != nil {
			return nil, err
		}
		return &queue.Request{Type: queue.RequestTypeEvent, Event: ev}, nil

	case "/done":
		if len(fields) < 2 {
			return nil, fmt.Errorf("usage: /done <id> [video|message|forced_message]")
		}
		kind := narrative.KindVideo
		if len(fields) > 2 {
			kind = narrative.Kind(strings.ToLower(fields[2]))
		}
		return &queue.Request{Type: queue.RequestTypeNarrativeComplete, NarrativeID: fields[1], NarrativeKind: kind}, nil

	case "/reset":
		return &queue.Request{Type: queue.RequestTypeReset}, nil

	default:
		return nil, fmt.Errorf("unknown command %s, try /help", fields[0])
	}
}

func intArg(fields []string, name string) (int, error) {
	if len(fields) != 2 {
		return 0, fmt.Errorf("usage: %s <%s>", fields[0], name)
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer", name)
	}
	return n, nil
}

func parseEvent(kindName string, args []string) (*mission.Event, error) {
	kind, err := mission.ParseKind(strings.ToLower(kindName))
	if err != nil {
		return nil, err
	}
	ev := &mission.Event{Kind: kind}
	var battle mission.BattleResult
	hasBattle := false

	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || value == "" {
			return nil, fmt.Errorf("expected key=value, got %q", arg)
		}
		switch strings.ToLower(key) {
		case "fleet":
			ev.Fleet, err = fleetID(value)
		case "other":
			ev.Other, err = fleetID(value)
		case "planet":
			ev.Planet = value
			battle.Planet = value
		case "player":
			ev.Player = value
		case "target":
			ev.Target = value
		case "id":
			ev.ID = value
		case "level":
			ev.Level, err = strconv.Atoi(value)
		case "stance":
			ev.Stance, err = strconv.Atoi(value)
		case "x":
			ev.X, err = strconv.ParseFloat(value, 64)
		case "y":
			ev.Y, err = strconv.ParseFloat(value, 64)
		case "attacker":
			hasBattle = true
			battle.Attacker, err = fleetID(value)
		case "defenders":
			hasBattle = true
			battle.Defenders, err = fleetIDs(value)
		case "winner":
			hasBattle = true
			battle.Winner = value
		case "destroyed":
			hasBattle = true
			battle.Destroyed, err = fleetIDs(value)
		default:
			return nil, fmt.Errorf("unknown event key %q", key)
		}
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", key, err)
		}
	}
	if hasBattle {
		ev.Battle = &battle
	}
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	return ev, nil
}

func fleetID(s string) (world.FleetID, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	return world.FleetID(n), nil
}

func fleetIDs(s string) ([]world.FleetID, error) {
	var out []world.FleetID
	for _, part := range strings.Split(s, ",") {
		id, err := fleetID(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}
