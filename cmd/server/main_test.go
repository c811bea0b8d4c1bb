package main

import (
	"testing"
	"time"

	"github.com/nikhilgowda/feedpulse/internal/config"
)

func TestNewInferenceClient(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.SentimentConfig
		wantName string
		wantErr  bool
	}{
		{
			name: "http provider",
			cfg: config.SentimentConfig{
				Provider: "http",
				APIURL:   "https://api.example.com/classify",
				Timeout:  10 * time.Second,
			},
			wantName: "http",
		},
		{
			name:     "mock provider",
			cfg:      config.SentimentConfig{Provider: "mock"},
			wantName: "mock",
		},
		{
			name:    "unknown provider",
			cfg:     config.SentimentConfig{Provider: "grpc"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := newInferenceClient(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if client.Name() != tt.wantName {
				t.Errorf("got provider %q, want %q", client.Name(), tt.wantName)
			}
		})
	}
}
