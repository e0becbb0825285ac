// Package rules extracts bill drafts from raw text with regex rules loaded from
// YAML files.
//
// Each rule names the app and data type it applies to and a pattern with named
// groups. Recognized groups are money, fee, type, shop_name, shop_item,
// account_from, account_to, channel, currency, category and time. Values not
// captured by the pattern can be supplied through the rule's defaults.
//
// Rules are grouped by scope. System rules ship with the service, user rules
// are maintained by the operator. Within a scope the first matching rule wins.
package rules

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/eshaffer321/bill-reconciler/internal/domain/bill"
)

// Scope selects a rule set
type Scope string

const (
	ScopeSystem Scope = "system"
	ScopeUser   Scope = "user"
)

// ParseScope converts a string to a Scope
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case ScopeSystem, ScopeUser:
		return Scope(s), nil
	}
	return "", fmt.Errorf("unknown rule scope %q", s)
}

// defaultTimeLayouts are tried in order when a rule captures a time group
// without naming a layout
var defaultTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"2006年01月02日 15:04:05",
	"2006年01月02日 15:04",
	"01月02日 15:04",
}

// Rule is one extraction rule as written in a rule file
type Rule struct {
	Name       string            `yaml:"name"`
	App        string            `yaml:"app"`
	DataType   string            `yaml:"data_type"`
	Pattern    string            `yaml:"pattern"`
	Type       string            `yaml:"type"`
	Auto       bool              `yaml:"auto"`
	TimeLayout string            `yaml:"time_layout"`
	Defaults   map[string]string `yaml:"defaults"`
	Disabled   bool              `yaml:"disabled"`

	re *regexp.Regexp
}

// CategoryRule assigns a book and category to bills whose fields match
type CategoryRule struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	ShopName string `yaml:"shop_name"`
	ShopItem string `yaml:"shop_item"`
	Book     string `yaml:"book"`
	Category string `yaml:"category"`

	shopName *regexp.Regexp
	shopItem *regexp.Regexp
}

// File is the YAML layout of a rule file
type File struct {
	Rules      []Rule         `yaml:"rules"`
	Categories []CategoryRule `yaml:"categories"`
}

// Engine evaluates loaded rules. It is safe for concurrent use.
type Engine struct {
	logger *slog.Logger
	now    func() time.Time

	mu         sync.RWMutex
	rules      map[Scope][]*Rule
	categories []*CategoryRule
}

// NewEngine creates an empty engine
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		logger: logger.With("system", "rules"),
		now:    time.Now,
		rules:  make(map[Scope][]*Rule),
	}
}

// LoadFile parses a rule file and appends its rules to scope
func (e *Engine) LoadFile(path string, scope Scope) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read rule file %s: %w", path, err)
	}
	if err := e.Load(data, scope); err != nil {
		return fmt.Errorf("rule file %s: %w", path, err)
	}
	return nil
}

// Load parses YAML rule data and appends its rules to scope. Nothing is
// added when any rule fails to compile.
func (e *Engine) Load(data []byte, scope Scope) error {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse rules: %w", err)
	}

	compiled := make([]*Rule, 0, len(file.Rules))
	for i := range file.Rules {
		r := file.Rules[i]
		if r.Disabled {
			continue
		}
		if err := r.compile(); err != nil {
			return err
		}
		compiled = append(compiled, &r)
	}

	categories := make([]*CategoryRule, 0, len(file.Categories))
	for i := range file.Categories {
		c := file.Categories[i]
		if err := c.compile(); err != nil {
			return err
		}
		categories = append(categories, &c)
	}

	e.mu.Lock()
	e.rules[scope] = append(e.rules[scope], compiled...)
	e.categories = append(e.categories, categories...)
	e.mu.Unlock()

	e.logger.Debug("loaded rules", "scope", scope, "rules", len(compiled), "category_rules", len(categories))
	return nil
}

// Len returns the number of rules in scope
func (e *Engine) Len(scope Scope) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.rules[scope])
}

func (r *Rule) compile() error {
	if r.Name == "" {
		return fmt.Errorf("rule without a name")
	}
	re, err := regexp.Compile(r.Pattern)
	if err != nil {
		return fmt.Errorf("rule %q has an invalid pattern: %w", r.Name, err)
	}
	if !hasGroup(re, "money") && r.Defaults["money"] == "" {
		return fmt.Errorf("rule %q captures no money", r.Name)
	}
	if r.Type != "" {
		if _, err := bill.ParseType(r.Type); err != nil {
			return fmt.Errorf("rule %q: %w", r.Name, err)
		}
	} else if !hasGroup(re, "type") {
		return fmt.Errorf("rule %q has neither a type nor a type group", r.Name)
	}
	r.re = re
	return nil
}

func (c *CategoryRule) compile() error {
	var err error
	if c.ShopName != "" {
		if c.shopName, err = regexp.Compile(c.ShopName); err != nil {
			return fmt.Errorf("category rule %q has an invalid shop_name pattern: %w", c.Name, err)
		}
	}
	if c.ShopItem != "" {
		if c.shopItem, err = regexp.Compile(c.ShopItem); err != nil {
			return fmt.Errorf("category rule %q has an invalid shop_item pattern: %w", c.Name, err)
		}
	}
	return nil
}

func hasGroup(re *regexp.Regexp, name string) bool {
	return re.SubexpIndex(name) >= 0
}

// Evaluate runs the rules of scope against data and returns the first draft
// produced, or nil when no rule matches.
func (e *Engine) Evaluate(ctx context.Context, app, data string, dataType bill.DataType, scope Scope) (*bill.Draft, error) {
	e.mu.RLock()
	candidates := e.rules[scope]
	e.mu.RUnlock()

	for _, r := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if r.App != "" && r.App != app {
			continue
		}
		if r.DataType != "" && !strings.EqualFold(r.DataType, string(dataType)) {
			continue
		}
		fields := r.match(data)
		if fields == nil {
			continue
		}
		draft, err := r.draft(fields, e.now())
		if err != nil {
			e.logger.Debug("rule matched but produced no bill", "rule", r.Name, "error", err)
			continue
		}
		e.logger.Debug("rule matched", "rule", r.Name, "scope", scope, "app", app)
		return draft, nil
	}
	return nil, nil
}

// match returns the captured groups merged over the rule defaults
func (r *Rule) match(data string) map[string]string {
	m := r.re.FindStringSubmatch(data)
	if m == nil {
		return nil
	}
	fields := make(map[string]string, len(r.Defaults)+len(m))
	for k, v := range r.Defaults {
		fields[k] = v
	}
	for i, name := range r.re.SubexpNames() {
		if name == "" || i >= len(m) {
			continue
		}
		if v := strings.TrimSpace(m[i]); v != "" {
			fields[name] = v
		}
	}
	return fields
}

func (r *Rule) draft(fields map[string]string, now time.Time) (*bill.Draft, error) {
	amount, err := ParseAmount(fields["money"])
	if err != nil {
		return nil, err
	}
	if amount.IsZero() {
		return nil, fmt.Errorf("zero amount")
	}

	fee := decimal.Zero
	if v := fields["fee"]; v != "" {
		if fee, err = ParseAmount(v); err != nil {
			return nil, err
		}
	}

	typ, err := r.billType(fields["type"])
	if err != nil {
		return nil, err
	}

	return &bill.Draft{
		Type:         typ,
		Amount:       amount,
		Fee:          fee,
		Currency:     fields["currency"],
		Time:         r.parseTime(fields["time"], now),
		ShopName:     fields["shop_name"],
		ShopItem:     fields["shop_item"],
		CategoryName: fields["category"],
		AccountFrom:  fields["account_from"],
		AccountTo:    fields["account_to"],
		Channel:      fields["channel"],
		RuleName:     r.Name,
		Auto:         r.Auto,
	}, nil
}

func (r *Rule) billType(captured string) (bill.Type, error) {
	if r.Type != "" {
		return bill.ParseType(r.Type)
	}
	return bill.ParseType(captured)
}

// parseTime returns the zero time when nothing parses so the draft falls back
// to the ingestion time
func (r *Rule) parseTime(v string, now time.Time) time.Time {
	if v == "" {
		return time.Time{}
	}
	layouts := defaultTimeLayouts
	if r.TimeLayout != "" {
		layouts = []string{r.TimeLayout}
	}
	for _, layout := range layouts {
		t, err := time.ParseInLocation(layout, v, now.Location())
		if err != nil {
			continue
		}
		if t.Year() == 0 {
			t = t.AddDate(now.Year(), 0, 0)
		}
		return t
	}
	return time.Time{}
}

var amountNoise = strings.NewReplacer(",", "", "，", "", "¥", "", "￥", "", "元", "", " ", "", "+", "")

// ParseAmount parses a captured money string and returns its absolute value
func ParseAmount(s string) (decimal.Decimal, error) {
	cleaned := amountNoise.Replace(strings.TrimSpace(s))
	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d.Abs(), nil
}

// Categorize returns the book and category of the first category rule that
// matches b. ok is false when none matches.
func (e *Engine) Categorize(b *bill.Bill) (book, category string, ok bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, c := range e.categories {
		if c.Type != "" && c.Type != string(b.Type.CategoryClass()) {
			continue
		}
		if c.shopName == nil && c.shopItem == nil {
			continue
		}
		if c.shopName != nil && !c.shopName.MatchString(b.ShopName) {
			continue
		}
		if c.shopItem != nil && !c.shopItem.MatchString(b.ShopItem) {
			continue
		}
		return c.Book, c.Category, true
	}
	return "", "", false
}
