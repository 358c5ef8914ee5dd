package app

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"fe-quiz-runner/internal/domain"
)

// PresetService persists the beginner flag, last-used settings and named user presets.
// Storage failures degrade to defaults and are never reported.
type PresetService struct {
	store Storage
}

func NewPresetService(store Storage) *PresetService {
	return &PresetService{store: store}
}

// Beginner returns the persisted beginner flag (false when absent).
func (p *PresetService) Beginner(ctx context.Context) bool {
	v, err := p.store.Get(ctx, keyBeginner)
	return err == nil && v == "1"
}

func (p *PresetService) SetBeginner(ctx context.Context, on bool) {
	v := "0"
	if on {
		v = "1"
	}
	_ = p.store.Set(ctx, keyBeginner, v)
}

// Settings returns the last-used settings, normalized.
func (p *PresetService) Settings(ctx context.Context) (domain.Settings, bool) {
	var raw json.RawMessage
	if !loadJSON(ctx, p.store, keySettings, &raw) {
		return domain.Settings{}, false
	}
	s, err := domain.NormalizeSettings(raw)
	if err != nil {
		return domain.Settings{}, false
	}
	return s, true
}

func (p *PresetService) SaveSettings(ctx context.Context, s domain.Settings) {
	saveJSON(ctx, p.store, keySettings, s)
}

// UserPresets returns every named preset; entries that fail normalization are dropped.
func (p *PresetService) UserPresets(ctx context.Context) map[string]domain.Settings {
	out := make(map[string]domain.Settings)
	var raw map[string]json.RawMessage
	if !loadJSON(ctx, p.store, keyUserPresets, &raw) {
		return out
	}
	for name, entry := range raw {
		s, err := domain.NormalizeSettings(entry)
		if err != nil {
			continue
		}
		out[name] = s
	}
	return out
}

// Names lists user preset names in sorted order.
func (p *PresetService) Names(ctx context.Context) []string {
	presets := p.UserPresets(ctx)
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (p *PresetService) SavePreset(ctx context.Context, name string, s domain.Settings) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.ErrPresetNameRequired
	}
	presets := p.UserPresets(ctx)
	presets[name] = s
	saveJSON(ctx, p.store, keyUserPresets, presets)
	return nil
}

func (p *PresetService) DeletePreset(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.ErrPresetNameRequired
	}
	presets := p.UserPresets(ctx)
	if _, ok := presets[name]; !ok {
		return domain.ErrPresetNotFound
	}
	delete(presets, name)
	saveJSON(ctx, p.store, keyUserPresets, presets)
	return nil
}

// Export renders all user presets as indented JSON.
func (p *PresetService) Export(ctx context.Context) (string, error) {
	data, err := json.MarshalIndent(p.UserPresets(ctx), "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Import merges a name-to-settings JSON object into the user presets and
// returns how many entries were accepted. Same-named presets are overwritten.
func (p *PresetService) Import(ctx context.Context, text string) (int, error) {
	text = strings.TrimSpace(text)
	if text == "" || text[0] != '{' {
		return 0, domain.ErrInvalidImport
	}
	var incoming map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &incoming); err != nil {
		return 0, domain.ErrInvalidImport
	}

	presets := p.UserPresets(ctx)
	count := 0
	for name, raw := range incoming {
		if name == "" {
			continue
		}
		s, err := domain.NormalizeSettings(raw)
		if err != nil {
			continue
		}
		presets[name] = s
		count++
	}
	saveJSON(ctx, p.store, keyUserPresets, presets)
	return count, nil
}

// Resolve looks a preset up in the fixed table first, then among user presets.
func (p *PresetService) Resolve(ctx context.Context, name string) (domain.Settings, bool) {
	if s, ok := domain.FixedPresets()[name]; ok {
		return s, true
	}
	if s, ok := p.UserPresets(ctx)[name]; ok {
		return s, true
	}
	return domain.Settings{}, false
}
