package main

import (
	"encoding/json"
	"fmt"
	"os"

	sapi "sapientino/pkg/sapientino"
)

func loadRunRequestFromConfig(path string) (sapi.RunRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return sapi.RunRequest{}, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return sapi.RunRequest{}, err
	}

	var req sapi.RunRequest
	if v, ok := asString(raw["run_id"]); ok {
		req.RunID = v
	}
	if v, ok := asString(raw["scenario"]); ok {
		req.Scenario = v
	}
	if v, ok := asString(raw["map_text"]); ok {
		req.MapText = v
	}
	if v, ok := asString(raw["model"]); ok {
		req.Model = v
	}
	if v, ok := asInt(raw["agents"]); ok {
		req.Agents = v
	}
	if v, ok := asInt(raw["episodes"]); ok {
		req.Episodes = v
	}
	if v, ok := asInt(raw["steps"]); ok {
		req.Steps = v
	}
	if v, ok := asInt64(raw["seed"]); ok {
		req.Seed = v
	}
	if v, ok := asString(raw["driver"]); ok {
		req.Driver = v
	}
	if v, ok := asStringSlice(raw["script"]); ok {
		req.Script = v
	}
	if v, ok := asFloat64(raw["reward_per_step"]); ok {
		req.RewardPerStep = v
	}
	if v, ok := asFloat64(raw["reward_outside_grid"]); ok {
		req.RewardOutsideGrid = v
	}
	if v, ok := asFloat64(raw["reward_duplicate_beep"]); ok {
		req.RewardDuplicateBeep = v
	}
	if v, ok := asBool(raw["shared_reward"]); ok {
		req.SharedReward = v
	}
	if v, ok := asFloat64(raw["separation"]); ok {
		req.Separation = v
	}
	return req, nil
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

func asInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case float64:
		return int(x), true
	default:
		return 0, false
	}
}

func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case float64:
		return int64(x), true
	default:
		return 0, false
	}
}

func asFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	default:
		return 0, false
	}
}

func asStringSlice(v any) ([]string, bool) {
	switch x := v.(type) {
	case []string:
		return x, true
	case []any:
		out := make([]string, 0, len(x))
		for _, item := range x {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

func overrideFromFlags(req *sapi.RunRequest, set map[string]bool, flagValue map[string]any) error {
	for name := range set {
		v, ok := flagValue[name]
		if !ok {
			continue
		}
		switch name {
		case "run-id":
			req.RunID = v.(string)
		case "scenario":
			req.Scenario = v.(string)
		case "map":
			req.MapText = v.(string)
		case "model":
			req.Model = v.(string)
		case "agents":
			req.Agents = v.(int)
		case "episodes":
			req.Episodes = v.(int)
		case "steps":
			req.Steps = v.(int)
		case "seed":
			req.Seed = v.(int64)
		case "driver":
			req.Driver = v.(string)
		case "script":
			req.Script = splitScripts(v.(string))
		case "reward-per-step":
			req.RewardPerStep = v.(float64)
		case "reward-outside-grid":
			req.RewardOutsideGrid = v.(float64)
		case "reward-duplicate-beep":
			req.RewardDuplicateBeep = v.(float64)
		case "shared":
			req.SharedReward = v.(bool)
		case "separation":
			req.Separation = v.(float64)
		}
	}
	return nil
}

func loadOrDefaultRunRequest(configPath string) (sapi.RunRequest, error) {
	if configPath == "" {
		return sapi.RunRequest{}, nil
	}
	req, err := loadRunRequestFromConfig(configPath)
	if err != nil {
		return sapi.RunRequest{}, fmt.Errorf("load config: %w", err)
	}
	return req, nil
}
