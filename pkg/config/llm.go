package config

import (
	"fmt"
	"net/url"
)

// SectionIDLLM is the store key for provider endpoint settings.
const SectionIDLLM = "llm"

// LLMSection holds provider endpoint and model settings. The cloud API key
// itself never lives in the config file; only the environment variable name
// that holds it does.
type LLMSection struct {
	// OnDeviceBaseURL is the local OpenAI-compatible server address.
	OnDeviceBaseURL string

	// OnDeviceModel is the model name sent to the local server.
	OnDeviceModel string

	// CloudBaseURL is the cloud API endpoint, for API-compatible gateways.
	CloudBaseURL string

	// CloudModel is the model requested from the cloud API.
	CloudModel string

	// CloudAPIKeyEnv names the environment variable holding the cloud API
	// key.
	CloudAPIKeyEnv string
}

// NewLLMSection creates an LLM section with default values.
func NewLLMSection() *LLMSection {
	return &LLMSection{
		OnDeviceBaseURL: "http://127.0.0.1:8080",
		OnDeviceModel:   "local",
		CloudBaseURL:    "https://api.openai.com/v1",
		CloudModel:      "gpt-4o",
		CloudAPIKeyEnv:  "OPENAI_API_KEY",
	}
}

// ID implements Section.
func (s *LLMSection) ID() string {
	return SectionIDLLM
}

// Data implements Section.
func (s *LLMSection) Data() map[string]interface{} {
	return map[string]interface{}{
		"on_device_base_url": s.OnDeviceBaseURL,
		"on_device_model":    s.OnDeviceModel,
		"cloud_base_url":     s.CloudBaseURL,
		"cloud_model":        s.CloudModel,
		"cloud_api_key_env":  s.CloudAPIKeyEnv,
	}
}

// SetData implements Section.
func (s *LLMSection) SetData(data map[string]interface{}) error {
	if data == nil {
		return nil
	}
	if v, ok := data["on_device_base_url"].(string); ok && v != "" {
		s.OnDeviceBaseURL = v
	}
	if v, ok := data["on_device_model"].(string); ok && v != "" {
		s.OnDeviceModel = v
	}
	if v, ok := data["cloud_base_url"].(string); ok && v != "" {
		s.CloudBaseURL = v
	}
	if v, ok := data["cloud_model"].(string); ok && v != "" {
		s.CloudModel = v
	}
	if v, ok := data["cloud_api_key_env"].(string); ok && v != "" {
		s.CloudAPIKeyEnv = v
	}
	return nil
}

// Validate implements Section.
func (s *LLMSection) Validate() error {
	parsed, err := url.Parse(s.OnDeviceBaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("on_device_base_url %q is not a valid URL", s.OnDeviceBaseURL)
	}
	parsed, err = url.Parse(s.CloudBaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("cloud_base_url %q is not a valid URL", s.CloudBaseURL)
	}
	if s.CloudModel == "" {
		return fmt.Errorf("cloud_model must not be empty")
	}
	return nil
}
