// 中文说明：
// presets 管理准入条件组合档案（profile）：从 YAML 文件加载、按 JSON Schema
// 校验结构、构建成可用的 criteria.Manager，并通过 fsnotify 热更新。
// 文件档案与内置档案同名时文件优先。
package presets

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"premia/internal/criteria"
	"premia/internal/logger"
)

// Profile 单个条件组合档案。
type Profile struct {
	ID          string          `mapstructure:"id" json:"id" yaml:"id"`
	Description string          `mapstructure:"description" json:"description" yaml:"description"`
	Version     int             `mapstructure:"version" json:"version" yaml:"version"`
	Criteria    []criteria.Spec `mapstructure:"criteria" json:"criteria" yaml:"criteria"`
}

// FileConfig 映射 presets 文件根节点。
type FileConfig struct {
	Presets map[string]Profile `mapstructure:"presets" yaml:"presets"`
}

// Snapshot 公开的档案快照。
type Snapshot struct {
	Version  int64
	LoadedAt time.Time
	Profiles map[string]Profile
}

// ChangeListener 在 registry 重载时触发。
type ChangeListener func(Snapshot)

// Registry 管理档案集合，文件存在时监听热更新。
type Registry struct {
	path string
	v    *viper.Viper

	mu        sync.RWMutex
	snapshot  Snapshot
	listeners []ChangeListener
}

const profileSchemaJSON = `{
  "type": "object",
  "properties": {
    "id": {"type": "string"},
    "description": {"type": "string"},
    "version": {"type": "integer", "minimum": 1},
    "criteria": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["type"],
        "properties": {
          "type": {"type": "string", "minLength": 1},
          "weight": {"type": "number", "exclusiveMinimum": 0},
          "params": {"type": "object"}
        }
      }
    }
  },
  "required": ["criteria"]
}`

var profileSchema = mustCompileSchema(profileSchemaJSON)

func mustCompileSchema(raw string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("profile.json", strings.NewReader(raw)); err != nil {
		panic(err)
	}
	return compiler.MustCompile("profile.json")
}

// NewRegistry 读取档案文件并监听更新。path 为空时仅提供内置档案。
func NewRegistry(path string) (*Registry, error) {
	r := &Registry{path: strings.TrimSpace(path)}
	if r.path == "" {
		r.snapshot = Snapshot{Version: 1, LoadedAt: time.Now(), Profiles: map[string]Profile{}}
		return r, nil
	}

	v := viper.New()
	v.SetConfigFile(r.path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read presets config failed: %w", err)
	}
	r.v = v
	if err := r.reload(); err != nil {
		return nil, err
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := r.Reload(); err != nil {
			logger.Errorf("presets reload failed: %v", err)
		}
	})
	v.WatchConfig()
	return r, nil
}

// Reload 重新读取档案文件并触发全部回调。加载失败时保留旧快照。
// 文件监听命中时自动调用，也可由外部手动触发。path 为空时是空操作。
func (r *Registry) Reload() error {
	if r.path == "" {
		return nil
	}
	if err := r.reload(); err != nil {
		return err
	}
	r.notifyListeners()
	return nil
}

// OnChange 注册重载回调。
func (r *Registry) OnChange(fn ChangeListener) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	r.mu.Unlock()
}

// Snapshot 返回当前档案集。
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneSnapshot(r.snapshot)
}

// Names 返回全部可用档案名（文件档案加内置档案，排序去重）。
func (r *Registry) Names() []string {
	seen := make(map[string]bool)
	var names []string
	for _, n := range criteria.PresetNames() {
		if !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	r.mu.RLock()
	for n := range r.snapshot.Profiles {
		if !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Profile 返回指定 ID 的文件档案。
func (r *Registry) Profile(id string) (Profile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.snapshot.Profiles[strings.TrimSpace(id)]
	return p, ok
}

// Manager 把档案名解析成可用的 criteria.Manager。
// 查找顺序：文件档案优先，其次内置档案，未命中报错。
func (r *Registry) Manager(name string) (*criteria.Manager, error) {
	if p, ok := r.Profile(name); ok {
		mgr, err := criteria.BuildManager(p.Criteria)
		if err != nil {
			return nil, fmt.Errorf("build preset %q: %w", name, err)
		}
		return mgr, nil
	}
	return criteria.Preset(name)
}

func (r *Registry) reload() error {
	cfg, err := readPresetsFile(r.path)
	if err != nil {
		return err
	}
	profiles := make(map[string]Profile, len(cfg.Presets))
	for name, p := range cfg.Presets {
		norm, err := normalizeProfile(name, p)
		if err != nil {
			return fmt.Errorf("preset %q: %w", name, err)
		}
		profiles[norm.ID] = norm
	}
	r.mu.Lock()
	r.snapshot = Snapshot{
		Version:  r.snapshot.Version + 1,
		LoadedAt: time.Now(),
		Profiles: profiles,
	}
	r.mu.Unlock()
	logger.Infof("presets registry loaded %d profiles from %s", len(profiles), filepath.Base(r.path))
	return nil
}

func (r *Registry) notifyListeners() {
	r.mu.RLock()
	snap := cloneSnapshot(r.snapshot)
	listeners := append([]ChangeListener(nil), r.listeners...)
	r.mu.RUnlock()
	for _, fn := range listeners {
		go func(cb ChangeListener) {
			defer safeRecover("presets listener")
			cb(snap)
		}(fn)
	}
}

// normalizeProfile 归一化档案并做两层校验：
// 先按 JSON Schema 校验结构，再干跑一次工厂确认每个 criterion 可构建。
func normalizeProfile(name string, p Profile) (Profile, error) {
	p.ID = strings.TrimSpace(p.ID)
	if p.ID == "" {
		p.ID = strings.TrimSpace(name)
	}
	if p.Version <= 0 {
		p.Version = 1
	}
	p.Description = strings.TrimSpace(p.Description)

	doc, err := profileDocument(p)
	if err != nil {
		return Profile{}, err
	}
	if err := profileSchema.Validate(doc); err != nil {
		return Profile{}, fmt.Errorf("schema 校验失败: %w", err)
	}
	if _, err := criteria.BuildManager(p.Criteria); err != nil {
		return Profile{}, err
	}
	return p, nil
}

func profileDocument(p Profile) (any, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func cloneSnapshot(src Snapshot) Snapshot {
	dst := Snapshot{
		Version:  src.Version,
		LoadedAt: src.LoadedAt,
		Profiles: make(map[string]Profile, len(src.Profiles)),
	}
	for id, p := range src.Profiles {
		dst.Profiles[id] = p
	}
	return dst
}

func safeRecover(tag string) {
	if r := recover(); r != nil {
		logger.Errorf("%s panic: %v", tag, r)
	}
}

func readPresetsFile(path string) (FileConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, fmt.Errorf("read presets config failed: %w", err)
	}
	var cfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return FileConfig{}, fmt.Errorf("parse presets config failed: %w", err)
	}
	return cfg, nil
}
