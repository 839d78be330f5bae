package rules

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/denial-appeal-assistant/internal/core/domain"
)

// extensions are tried in order; the first existing file wins.
var extensions = []string{".json", ".yaml", ".yml"}

// FileStore reads plan rule documents named <plan_key>.<ext> from a directory.
// Files are read on every lookup so edits apply without a restart.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) Lookup(_ context.Context, planKey string) (*domain.InsuranceRules, bool, error) {
	key := domain.NormalizePlanName(planKey)
	if key == "" || strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return nil, false, nil
	}

	for _, ext := range extensions {
		path := filepath.Join(s.dir, key+ext)
		raw, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, false, fmt.Errorf("read rules %s: %w", path, err)
		}
		rules, err := parseRules(raw, ext)
		if err != nil {
			return nil, false, fmt.Errorf("parse rules %s: %w", path, err)
		}
		if rules.Plan == "" {
			rules.Plan = key
		}
		return rules, true, nil
	}
	return nil, false, nil
}

// parseRules decodes a rule document into typed rules and keeps the whole
// document in Raw.
func parseRules(raw []byte, ext string) (*domain.InsuranceRules, error) {
	unmarshal := yaml.Unmarshal
	if ext == ".json" {
		unmarshal = json.Unmarshal
	}
	var rules domain.InsuranceRules
	if err := unmarshal(raw, &rules); err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, errors.New("empty rule document")
	}
	rules.Raw = doc
	return &rules, nil
}

func (s *FileStore) ListPlans(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("list rules dir: %w", err)
	}

	seen := make(map[string]struct{}, len(entries))
	plans := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if !isRuleExtension(ext) {
			continue
		}
		key := strings.TrimSuffix(name, filepath.Ext(name))
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		plans = append(plans, key)
	}
	sort.Strings(plans)
	return plans, nil
}

func isRuleExtension(ext string) bool {
	for _, candidate := range extensions {
		if ext == candidate {
			return true
		}
	}
	return false
}
