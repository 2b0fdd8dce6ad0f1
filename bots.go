// Copyright (c) 2021-2026 Rustam Gilyazov and Contributors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package wecombot

// In this file: bot configuration and registry.

import (
	"bytes"
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/tidwall/jsonc"
)

// Environment variables that configure the bots.
const (
	EnvWebhookURL = "WECOM_WEBHOOK_URL" // single default bot
	EnvBots       = "WECOM_BOTS"        // JSON map of bots
	envBotPrefix  = "WECOM_BOT_"        // WECOM_BOT_<ID>_URL
	envBotSuffix  = "_URL"
)

// DefaultBotID is the reserved ID of the bot configured with
// WECOM_WEBHOOK_URL.
const DefaultBotID = "default"

// BotConfig is the configuration of a single bot.
type BotConfig struct {
	Name        string `json:"name" yaml:"name" koanf:"name"`
	WebhookURL  string `json:"webhook_url" yaml:"webhook_url" koanf:"webhook_url"`
	Description string `json:"description,omitempty" yaml:"description,omitempty" koanf:"description"`
}

// NewBotConfig returns a validated bot configuration.
func NewBotConfig(name, webhookURL, description string) (BotConfig, error) {
	c := BotConfig{Name: name, WebhookURL: strings.TrimSpace(webhookURL), Description: description}
	if err := c.Validate(); err != nil {
		return BotConfig{}, err
	}
	return c, nil
}

// Validate checks that the webhook URL is set and is an http(s) URL.
func (c BotConfig) Validate() error {
	if c.WebhookURL == "" {
		return errValidation("Bot '%s': webhook_url is empty", c.Name)
	}
	if !validURL(c.WebhookURL) {
		return errValidation("Bot '%s': webhook_url must start with http:// or https://, got: %s", c.Name, c.WebhookURL)
	}
	return nil
}

func validURL(u string) bool {
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")
}

// BotInfo is the public description of a bot, it does not disclose the
// webhook URL.
type BotInfo struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	HasWebhook  bool   `json:"has_webhook" yaml:"has_webhook"`
}

// Registry maps case-insensitive bot IDs to bot configurations.  It is built
// lazily on first use from the configured sources, in the order of
// increasing precedence:
//
//  1. bots given with WithBots (i.e. from the settings file);
//  2. WECOM_WEBHOOK_URL, bound to the "default" ID;
//  3. WECOM_BOTS, JSON object of ID to URL string or BotConfig;
//  4. WECOM_BOT_<ID>_URL variables.
//
// A bot from a later source replaces a bot with the same ID from an earlier
// one.  Registry is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	bots  map[string]BotConfig
	order []string
	built bool

	environ func() []string
	base    map[string]BotConfig
	lg      *slog.Logger
}

type RegistryOption func(*Registry)

// WithEnviron sets the function that returns the environment, in the
// os.Environ format.
func WithEnviron(fn func() []string) RegistryOption {
	return func(r *Registry) {
		if fn != nil {
			r.environ = fn
		}
	}
}

// WithBots sets the lowest precedence bots.
func WithBots(bots map[string]BotConfig) RegistryOption {
	return func(r *Registry) {
		r.base = bots
	}
}

func WithRegistryLogger(lg *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if lg != nil {
			r.lg = lg
		}
	}
}

// NewRegistry returns a new unconfigured registry.  Sources are read on the
// first access or on Reload.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		environ: os.Environ,
		lg:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func normID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// Reload rereads all sources and replaces the bots.  Invalid entries are
// logged and skipped, Reload never fails.
func (r *Registry) Reload() {
	bots, order := r.load()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.bots, r.order, r.built = bots, order, true
}

// Reset returns the registry to the unconfigured state.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bots, r.order, r.built = nil, nil, false
}

// ensure builds the registry on first use.  A concurrent build that commits
// first wins, so that a bot registered in the meantime is not lost.
func (r *Registry) ensure() {
	r.mu.RLock()
	built := r.built
	r.mu.RUnlock()
	if built {
		return
	}
	bots, order := r.load()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.built {
		return
	}
	r.bots, r.order, r.built = bots, order, true
}

// Register adds or replaces the bot with the given id.
func (r *Registry) Register(id string, cfg BotConfig) error {
	id = normID(id)
	if id == "" {
		return errValidation("Bot ID cannot be empty")
	}
	if cfg.Name == "" {
		cfg.Name = id
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	r.ensure()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.bots[id]; !exists {
		r.order = append(r.order, id)
	}
	r.bots[id] = cfg
	return nil
}

// Has reports whether the bot with the given id exists.
func (r *Registry) Has(id string) bool {
	r.ensure()
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.bots[normID(id)]
	return ok
}

// Get returns the bot configuration.  If id is empty, it returns the only
// bot, if there's just one, or the default bot.
func (r *Registry) Get(id string) (BotConfig, error) {
	r.ensure()
	r.mu.RLock()
	defer r.mu.RUnlock()

	if id = normID(id); id != "" {
		cfg, ok := r.bots[id]
		if !ok {
			return BotConfig{}, errValidation("Bot '%s' not found. Available bots: %s", id, r.available())
		}
		return cfg, nil
	}
	switch len(r.bots) {
	case 0:
		return BotConfig{}, errValidation("No bots configured. Set %s or %s environment variable.", EnvWebhookURL, EnvBots)
	case 1:
		return r.bots[r.order[0]], nil
	}
	if cfg, ok := r.bots[DefaultBotID]; ok {
		return cfg, nil
	}
	return BotConfig{}, errValidation("Multiple bots configured and no default bot, specify bot_id. Available bots: %s", r.available())
}

// WebhookURL returns the webhook URL of the bot, see Get.
func (r *Registry) WebhookURL(id string) (string, error) {
	cfg, err := r.Get(id)
	if err != nil {
		return "", err
	}
	return cfg.WebhookURL, nil
}

// available returns the comma-separated list of IDs.  Caller must hold the
// lock.
func (r *Registry) available() string {
	if len(r.order) == 0 {
		return "(none)"
	}
	return strings.Join(r.order, ", ")
}

// List iterates over the bots in the order they were added.  The listing is
// a snapshot taken on the first iteration step.
func (r *Registry) List() iter.Seq[BotInfo] {
	return func(yield func(BotInfo) bool) {
		r.ensure()
		r.mu.RLock()
		order := slices.Clone(r.order)
		bots := make(map[string]BotConfig, len(r.bots))
		for k, v := range r.bots {
			bots[k] = v
		}
		r.mu.RUnlock()

		for _, id := range order {
			cfg := bots[id]
			if !yield(BotInfo{ID: id, Name: cfg.Name, Description: cfg.Description, HasWebhook: cfg.WebhookURL != ""}) {
				return
			}
		}
	}
}

// Count returns the number of bots.
func (r *Registry) Count() int {
	r.ensure()
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bots)
}

// HasMultiple reports whether more than one bot is configured.
func (r *Registry) HasMultiple() bool {
	return r.Count() > 1
}

// Instructions returns the text that tells the client which bots are
// available and how to choose one.
func (r *Registry) Instructions() string {
	bots := slices.Collect(r.List())
	var sb strings.Builder
	switch len(bots) {
	case 0:
		sb.WriteString("No WeCom bots are configured. Set " + EnvWebhookURL + " or " + EnvBots + " environment variable.")
	case 1:
		fmt.Fprintf(&sb, "One WeCom bot is configured: %s. The bot_id parameter can be omitted.", describe(bots[0]))
	default:
		sb.WriteString("## Multiple WeCom Bots Available\n\n")
		sb.WriteString("Use the bot_id parameter to choose the bot that receives the message:\n\n")
		for _, b := range bots {
			fmt.Fprintf(&sb, "- `%s`: %s\n", b.ID, describe(b))
		}
		if r.Has(DefaultBotID) {
			sb.WriteString("\nIf bot_id is omitted, the message is sent by the `" + DefaultBotID + "` bot.")
		} else {
			sb.WriteString("\nThere is no default bot, bot_id is required.")
		}
	}
	return sb.String()
}

func describe(b BotInfo) string {
	s := b.Name
	if s == "" {
		s = b.ID
	}
	if b.Description != "" {
		s += " (" + b.Description + ")"
	}
	return s
}

// botSet is the ordered set of bots being built.
type botSet struct {
	bots  map[string]BotConfig
	order []string
	lg    *slog.Logger
}

func (s *botSet) add(source, id string, cfg BotConfig) {
	id = normID(id)
	if id == "" {
		s.lg.Warn("skipping bot with empty id", "source", source)
		return
	}
	if cfg.Name == "" {
		cfg.Name = id
	}
	if err := cfg.Validate(); err != nil {
		s.lg.Warn("skipping invalid bot", "source", source, "id", id, "error", err)
		return
	}
	if _, exists := s.bots[id]; exists {
		s.lg.Debug("bot overridden", "source", source, "id", id)
	} else {
		s.order = append(s.order, id)
	}
	s.bots[id] = cfg
}

func (r *Registry) load() (map[string]BotConfig, []string) {
	s := &botSet{bots: make(map[string]BotConfig), lg: r.lg}

	baseIDs := make([]string, 0, len(r.base))
	for id := range r.base {
		baseIDs = append(baseIDs, id)
	}
	slices.Sort(baseIDs)
	for _, id := range baseIDs {
		s.add("config", id, r.base[id])
	}

	env := envMap(r.environ())
	if u := strings.TrimSpace(env[EnvWebhookURL]); u != "" {
		s.add(EnvWebhookURL, DefaultBotID, BotConfig{Name: DefaultBotID, WebhookURL: u, Description: "Default bot"})
	}
	if data := strings.TrimSpace(env[EnvBots]); data != "" {
		if err := parseBots(s, []byte(data)); err != nil {
			r.lg.Warn("unable to parse "+EnvBots, "error", err)
		}
	}

	var named []string
	for k := range env {
		if strings.HasPrefix(k, envBotPrefix) && strings.HasSuffix(k, envBotSuffix) && len(k) > len(envBotPrefix)+len(envBotSuffix) {
			named = append(named, k)
		}
	}
	slices.Sort(named)
	for _, k := range named {
		id := k[len(envBotPrefix) : len(k)-len(envBotSuffix)]
		s.add(k, id, BotConfig{WebhookURL: strings.TrimSpace(env[k])})
	}

	r.lg.Debug("bots loaded", "count", len(s.bots), "ids", s.order)
	return s.bots, s.order
}

func envMap(environ []string) map[string]string {
	m := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		m[k] = v
	}
	return m
}

// parseBots parses the JSON object of bots, keeping the order of keys.
// Values are either the webhook URL string or the BotConfig object.
// Comments and trailing commas are allowed.
func parseBots(s *botSet, data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected JSON object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		id := tok.(string) // keys are always strings inside an object.
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("bot %q: %w", id, err)
		}
		cfg, err := decodeBot(raw)
		if err != nil {
			s.lg.Warn("skipping bot", "source", EnvBots, "id", id, "error", err)
			continue
		}
		s.add(EnvBots, id, cfg)
	}
	return nil
}

func decodeBot(raw json.RawMessage) (BotConfig, error) {
	var u string
	if err := json.Unmarshal(raw, &u); err == nil {
		return BotConfig{WebhookURL: strings.TrimSpace(u)}, nil
	}
	var cfg BotConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return BotConfig{}, fmt.Errorf("expected URL string or bot object: %w", err)
	}
	cfg.WebhookURL = strings.TrimSpace(cfg.WebhookURL)
	return cfg, nil
}
