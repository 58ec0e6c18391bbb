package config

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/a8m/envsubst"
	"github.com/pkg/errors"
	"github.com/yosuke-furukawa/json5/encoding/json5"

	"go.viam.com/artrack/logging"
)

// Read reads a config from the given file, expanding ${VAR} references to environment variables.
func Read(filePath string, logger logging.Logger) (*Config, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return FromReader(filePath, bytes.NewReader(buf), logger)
}

// FromReader reads a config from the given reader and specifies
// where, if applicable, the file the reader originated from. The input may be JSON5, so comments
// and trailing commas are allowed.
func FromReader(originalPath string, r io.Reader, logger logging.Logger) (*Config, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	normalized, err := normalizeJSON5(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode Config from json")
	}
	cfg := Config{ConfigFilePath: originalPath}
	decoder := json.NewDecoder(bytes.NewReader(normalized))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to decode Config from json")
	}
	for _, section := range []struct {
		name    string
		missing bool
	}{
		{"camera", cfg.Camera == nil},
		{"orb", cfg.ORB == nil},
		{"matching", cfg.Matching == nil},
		{"tracker", cfg.Tracker == nil},
	} {
		if section.missing {
			logger.Debugw("using default config section", "section", section.name)
		}
	}
	cfg.fillDefaults()
	if err := cfg.Validate(""); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// normalizeJSON5 rewrites a JSON5 document as plain JSON so that unknown fields can still be rejected.
func normalizeJSON5(data []byte) ([]byte, error) {
	var doc interface{}
	if err := json5.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}
