package index

import (
	"errors"
	"os"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/quire/internal/models"
)

// Service loads the index and the optional parameter fallback table
type Service struct {
	logger arbor.ILogger
}

// NewService creates an index service
func NewService(logger arbor.ILogger) *Service {
	return &Service{logger: logger}
}

// LoadRules reads and parses the index file. A missing or unreadable file is returned as
// an error; malformed rows are returned in rowErrs and logged.
func (s *Service) LoadRules(path string) ([]models.IndexRule, []error, error) {
	table, err := ReadTable(path)
	if err != nil {
		return nil, nil, err
	}

	rules, rowErrs, warnings := ParseIndex(table)
	for _, w := range warnings {
		s.logger.Warn().Str("index", path).Msg(w)
	}
	for _, e := range rowErrs {
		s.logger.Error().Err(e).Str("index", path).Msg("Index row rejected")
	}

	s.logger.Info().
		Str("index", path).
		Int("rules", len(rules)).
		Int("rejected", len(rowErrs)).
		Msg("Index loaded")

	return rules, rowErrs, nil
}

// LoadFallback reads the parameter fallback table. An empty path means no table;
// a configured but absent file is logged and treated as empty.
func (s *Service) LoadFallback(path string) (map[string]models.Params, error) {
	if path == "" {
		return map[string]models.Params{}, nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		s.logger.Warn().Str("path", path).Msg("Parameter fallback table not found, continuing without it")
		return map[string]models.Params{}, nil
	}

	table, err := ReadTable(path)
	if err != nil {
		return nil, err
	}
	fallback, warnings := ParseFallback(table)
	for _, w := range warnings {
		s.logger.Warn().Str("fallback", path).Msg(w)
	}

	s.logger.Debug().Str("path", path).Int("entries", len(fallback)).Msg("Parameter fallback table loaded")
	return fallback, nil
}
