package library

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Rules returns all folder rules ordered by kind then id.
func (l *Library) Rules(ctx context.Context) ([]Rule, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, path, kind, enabled FROM folder_rules ORDER BY kind, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []Rule
	for rows.Next() {
		var r Rule
		var kind string
		var enabled int
		if err := rows.Scan(&r.ID, &r.Path, &kind, &enabled); err != nil {
			return nil, err
		}
		r.Kind = RuleKind(kind)
		r.Enabled = enabled != 0
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

// AddRule inserts a folder rule.
func (l *Library) AddRule(ctx context.Context, path string, kind RuleKind) (int64, error) {
	switch kind {
	case RulePrimaryRoot, RuleSetRoot, RuleExclude:
	default:
		return 0, fmt.Errorf("unknown rule kind %q", kind)
	}
	abs, err := filepath.Abs(strings.TrimSpace(path))
	if err != nil {
		abs = strings.TrimSpace(path)
	}
	res, err := l.db.ExecContext(ctx, `
		INSERT INTO folder_rules (path, kind, enabled, created_at) VALUES (?, ?, 1, ?)
	`, abs, string(kind), time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("add folder rule: %w", err)
	}
	return res.LastInsertId()
}

// RemoveRule deletes a folder rule by id.
func (l *Library) RemoveRule(ctx context.Context, id int64) error {
	_, err := l.db.ExecContext(ctx, `DELETE FROM folder_rules WHERE id = ?`, id)
	return err
}

// SetRuleEnabled toggles a rule without deleting it.
func (l *Library) SetRuleEnabled(ctx context.Context, id int64, enabled bool) error {
	v := 0
	if enabled {
		v = 1
	}
	_, err := l.db.ExecContext(ctx,
		`UPDATE folder_rules SET enabled = ? WHERE id = ?`, v, id)
	return err
}

// MigrateRules seeds folder rules from config values when the table is
// empty, so existing config files keep working after rules moved into
// the database.
func (l *Library) MigrateRules(ctx context.Context, primaryRoots []string, setRoot string, excludes []string) error {
	var count int
	if err := l.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM folder_rules`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	add := func(path string, kind RuleKind) error {
		if path == "" {
			return nil
		}
		_, err := l.AddRule(ctx, path, kind)
		return err
	}
	for _, p := range primaryRoots {
		if err := add(p, RulePrimaryRoot); err != nil {
			return err
		}
	}
	if err := add(setRoot, RuleSetRoot); err != nil {
		return err
	}
	for _, p := range excludes {
		if err := add(p, RuleExclude); err != nil {
			return err
		}
	}
	return nil
}

// WatchRoots returns the directories a filesystem watcher should cover:
// the enabled primary and set roots.
func (l *Library) WatchRoots(ctx context.Context) ([]string, error) {
	rules, err := l.enabledRules(ctx)
	if err != nil {
		return nil, err
	}
	return rules.roots(), nil
}

// ruleSet is the resolved, enabled folder configuration for one scan.
type ruleSet struct {
	primary  []string
	set      []string
	excluded []string
}

func (l *Library) enabledRules(ctx context.Context) (*ruleSet, error) {
	rules, err := l.Rules(ctx)
	if err != nil {
		return nil, err
	}
	rs := &ruleSet{}
	for _, r := range rules {
		if !r.Enabled {
			continue
		}
		p := normalizeRoot(r.Path)
		switch r.Kind {
		case RulePrimaryRoot:
			rs.primary = append(rs.primary, p)
		case RuleSetRoot:
			rs.set = append(rs.set, p)
		case RuleExclude:
			rs.excluded = append(rs.excluded, p)
		}
	}
	return rs, nil
}

func normalizeRoot(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}

// classify applies folder-rule precedence to one file path:
// exclusion beats set-copy beats primary.
func (rs *ruleSet) classify(path string) Classification {
	if underAny(path, rs.excluded) {
		return ClassExcluded
	}
	if underAny(path, rs.set) {
		return ClassSetCopy
	}
	return ClassPrimary
}

// roots returns the directories a scan enumerates: primary and set
// roots. Excluded paths are classification input, not scan roots.
func (rs *ruleSet) roots() []string {
	out := make([]string, 0, len(rs.primary)+len(rs.set))
	out = append(out, rs.primary...)
	out = append(out, rs.set...)
	return out
}

func underAny(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if path == prefix || strings.HasPrefix(path, prefix+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
