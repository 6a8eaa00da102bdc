package backend

import (
	"context"
	"path/filepath"
	"testing"

	"tracker/internal/config"
)

func TestFromAppConfig(t *testing.T) {
	tests := []struct {
		name      string
		appConfig *config.Config
		wantType  BackendType
		wantErr   bool
	}{
		{
			name:      "memory backend",
			appConfig: &config.Config{DataBackend: "memory"},
			wantType:  MemoryBackend,
		},
		{
			name:      "file backend",
			appConfig: &config.Config{DataBackend: "file", DataFilePath: "./data.json"},
			wantType:  FileBackend,
		},
		{
			name:      "sqlite backend",
			appConfig: &config.Config{DataBackend: "sqlite", SQLiteDBPath: "./test.db"},
			wantType:  SQLiteBackend,
		},
		{
			name:      "invalid backend",
			appConfig: &config.Config{DataBackend: "cassandra"},
			wantErr:   true,
		},
		{
			name:    "nil config",
			wantErr: true,
		},
	}

	for i, tt := range tests {
		cfg, err := FromAppConfig(tt.appConfig)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("case %d (%s): expected error, got nil", i, tt.name)
			}
			continue
		}
		if err != nil {
			t.Fatalf("case %d (%s): unexpected error: %v", i, tt.name, err)
		}
		if cfg.Type != tt.wantType {
			t.Errorf("case %d (%s): Type = %v, want %v", i, tt.name, cfg.Type, tt.wantType)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"valid memory", Config{Type: MemoryBackend}, false},
		{"valid file", Config{Type: FileBackend, DataFilePath: "./data.json"}, false},
		{"file missing path", Config{Type: FileBackend}, true},
		{"valid sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: "./test.db"}, false},
		{"sqlite missing path", Config{Type: SQLiteBackend}, true},
		{"invalid type", Config{Type: "cassandra"}, true},
	}

	for i, tt := range tests {
		err := tt.config.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("case %d (%s): Validate() error = %v, wantErr %v", i, tt.name, err, tt.wantErr)
		}
	}
}

func TestCreateBackends(t *testing.T) {
	factory := NewFactory(nil)
	ctx := context.Background()
	tmpDir := t.TempDir()

	tests := []struct {
		name        string
		config      Config
		wantCleanup bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"file", Config{Type: FileBackend, DataFilePath: filepath.Join(tmpDir, "data.json")}, false},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(tmpDir, "test.db")}, true},
	}

	for i, tt := range tests {
		result, err := factory.CreateBackend(ctx, tt.config)
		if err != nil {
			t.Fatalf("case %d (%s): CreateBackend: %v", i, tt.name, err)
		}
		if result.Backend == nil {
			t.Fatalf("case %d (%s): backend is nil", i, tt.name)
		}
		if (result.Cleanup != nil) != tt.wantCleanup {
			t.Errorf("case %d (%s): cleanup presence = %v, want %v", i, tt.name, result.Cleanup != nil, tt.wantCleanup)
		}
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				t.Errorf("case %d (%s): cleanup: %v", i, tt.name, err)
			}
		}
	}
}

func TestCreateBackendInvalidType(t *testing.T) {
	factory := NewFactory(nil)
	if _, err := factory.CreateBackend(context.Background(), Config{Type: "cassandra"}); err == nil {
		t.Fatal("expected error for invalid backend type")
	}
}
