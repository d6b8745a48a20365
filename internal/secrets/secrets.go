// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads the NCBI contact email and API key from a directory
// of plain-text files. Each file is one secret: the filename is the key and
// the trimmed contents are the value.
//
// Recognised keys: pubmed-email, ncbi-api-key.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Key file names.
const (
	EmailKey  = "pubmed-email"
	APIKeyKey = "ncbi-api-key"
)

// Secrets maps key file names to their values.
type Secrets map[string]string

// Load reads all files in dir. A missing directory is not an error and
// yields an empty set. Unreadable files are logged and skipped.
func Load(dir string, logger *zap.Logger) (Secrets, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Secrets{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	s := make(Secrets)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			logger.Warn("could not read secret", zap.String("name", name), zap.Error(err))
			continue
		}
		if value := strings.TrimSpace(string(data)); value != "" {
			s[name] = value
		}
	}
	return s, nil
}

// Value returns override when it is set, otherwise the stored secret for key.
// Explicit flags and config therefore win over files.
func (s Secrets) Value(key, override string) string {
	if override != "" {
		return override
	}
	return s[key]
}

// Keys returns the names of the loaded secrets without their values.
func (s Secrets) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	return keys
}
