package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"docinsight/internal/config"
	"docinsight/internal/llm"
)

// ========== Settings Endpoint ==========

type SettingsRequest struct {
	Provider string            `json:"provider"`
	Model    string            `json:"model"`
	Keys     map[string]string `json:"keys"`
}

func (s *Server) settingsView() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make(map[string]string, len(llm.ProviderNames))
	for _, name := range llm.ProviderNames {
		keys[name] = config.MaskKey(s.cfg.APIKey(name))
	}
	return map[string]interface{}{
		"provider":   s.cfg.Provider,
		"model":      s.cfg.Model,
		"keys":       keys,
		"configured": s.cfg.APIKey(s.cfg.Provider) != "",
	}
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		jsonResp(w, s.settingsView())

	case http.MethodPost:
		var req SettingsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonErr(w, "Invalid request", http.StatusBadRequest)
			return
		}
		update := config.Settings{
			Provider: strings.ToLower(strings.TrimSpace(req.Provider)),
			Model:    strings.TrimSpace(req.Model),
			Keys:     map[string]string{},
		}
		for name, key := range req.Keys {
			key = strings.TrimSpace(key)
			// Masked values echoed back from GET mean "unchanged".
			if key == "" || strings.Contains(key, "...") || key == "****" {
				continue
			}
			update.Keys[strings.ToLower(name)] = key
		}
		if err := config.ValidateSettings(update); err != nil {
			jsonErr(w, err.Error(), http.StatusBadRequest)
			return
		}

		s.mu.Lock()
		s.cfg.Apply(&update)
		provider, perr := s.cfg.NewProvider()
		saved := config.Settings{Provider: s.cfg.Provider, Model: s.cfg.Model, Keys: make(map[string]string, len(s.cfg.ProviderKeys))}
		for name, key := range s.cfg.ProviderKeys {
			saved.Keys[name] = key
		}
		current := s.cfg.Provider
		s.mu.Unlock()

		if perr != nil && !errors.Is(perr, config.ErrNoAPIKey) {
			jsonErr(w, "Provider error: "+perr.Error(), http.StatusBadRequest)
			return
		}
		if perr != nil {
			s.logger.Warn("no API key for selected provider", zap.String("provider", current))
		}
		s.analyzer.SetProvider(provider)

		if s.settings != nil {
			if err := s.settings.Save(saved); err != nil {
				s.logger.Error("failed to persist settings", zap.Error(err))
			}
		}
		s.logger.Info("settings updated", zap.String("provider", current))
		jsonResp(w, s.settingsView())

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var available []string
	for _, name := range llm.ProviderNames {
		if s.cfg.APIKey(name) != "" {
			available = append(available, name)
		}
	}
	jsonResp(w, map[string]interface{}{
		"providers": llm.ProviderNames,
		"available": available,
		"current":   s.cfg.Provider,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	jsonResp(w, map[string]interface{}{
		"status":   "ok",
		"sessions": s.sessions.Count(),
	})
}
