package prompt

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const fileSuffix = ".prompt.yaml"

// Template 一个提示词模板文件的内容
type Template struct {
	Name           string  `yaml:"-"`
	SystemPrompt   string  `yaml:"system_prompt"`
	UserPrompt     string  `yaml:"user_prompt"`
	OutputFormat   string  `yaml:"output_format"`   // 追加在 user prompt 末尾的输出格式说明
	Temperature    float64 `yaml:"temperature"`
	StructuredJSON bool    `yaml:"structured_json"` // 是否要求模型以 json_object 模式输出
}

// Render 用 vars 填充 {{ key }} 形式的变量并返回 system/user 两段
func (t *Template) Render(vars map[string]string) (string, string) {
	system := t.SystemPrompt
	user := t.UserPrompt
	for key, value := range vars {
		for _, pattern := range []string{"{{ " + key + " }}", "{{" + key + "}}"} {
			system = strings.ReplaceAll(system, pattern, value)
			user = strings.ReplaceAll(user, pattern, value)
		}
	}
	if t.OutputFormat != "" {
		user = user + "\n\n" + t.OutputFormat
	}
	return system, user
}

// Provider 编排核心依赖的提示词能力接口
type Provider interface {
	Get(name string) (*Template, error)
	Reload() error
}

// Loader 从目录读取 *.prompt.yaml 的 Provider 实现，Reload 后原子替换
type Loader struct {
	dir       string
	mu        sync.RWMutex
	templates map[string]*Template
}

func NewLoader(dir string) (*Loader, error) {
	l := &Loader{dir: dir}
	if err := l.Reload(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Loader) Get(name string) (*Template, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	tpl, ok := l.templates[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("prompt %q not found in %s", name, l.dir)
	}
	return tpl, nil
}

func (l *Loader) Reload() error {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return err
	}

	templates := make(map[string]*Template)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), fileSuffix) {
			continue
		}

		data, err := os.ReadFile(filepath.Join(l.dir, entry.Name()))
		if err != nil {
			return err
		}

		var tpl Template
		if err := yaml.Unmarshal(data, &tpl); err != nil {
			return fmt.Errorf("parse prompt %s: %w", entry.Name(), err)
		}

		name := strings.ToLower(strings.TrimSuffix(entry.Name(), fileSuffix))
		tpl.Name = name
		if tpl.Temperature == 0 {
			tpl.Temperature = 0.7
		}
		templates[name] = &tpl
	}

	l.mu.Lock()
	l.templates = templates
	l.mu.Unlock()
	return nil
}

// Static 固定模板集的 Provider，Reload 为空操作，测试与生产镜像使用
type Static struct {
	Templates map[string]*Template
}

func (s *Static) Get(name string) (*Template, error) {
	tpl, ok := s.Templates[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("prompt %q not found", name)
	}
	return tpl, nil
}

func (s *Static) Reload() error { return nil }
