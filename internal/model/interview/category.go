package interview

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Category selects the interviewer style and therefore the system instruction.
type Category string

const (
	General   Category = "general"
	Technical Category = "technical"
	HR        Category = "hr"
)

// Categories lists the supported interview styles in display order.
func Categories() []Category {
	return []Category{General, Technical, HR}
}

// ParseCategory 解析面试类型，未知或为空时回退到 general，第二个返回值表示是否命中。
func ParseCategory(raw string) (Category, bool) {
	switch Category(strings.ToLower(strings.TrimSpace(raw))) {
	case General:
		return General, true
	case Technical:
		return Technical, true
	case HR:
		return HR, true
	default:
		return General, false
	}
}

// Templates maps every category to the instruction that seeds each generation call.
type Templates map[Category]string

// DefaultTemplates provides the built-in interviewer instructions.
func DefaultTemplates() Templates {
	return Templates{
		General: `You are an AI Interviewer conducting a professional job interview.
Ask one structured question at a time. Evaluate candidate clarity, accuracy, and confidence.
Keep your responses under 150 words. If the candidate struggles, simplify your question.
Always remain professional and encouraging. Start with a welcome message and ask for their name.`,
		Technical: `You are an AI Technical Interviewer for software development positions.
Ask technical questions about programming, algorithms, system design, and problem-solving.
One question at a time, under 150 words. Adapt difficulty based on candidate responses.
Start with a welcome and ask about their technical background.`,
		HR: `You are an AI HR Interviewer focusing on behavioral and cultural fit questions.
Ask about experience, teamwork, leadership, and company culture alignment.
One question at a time, under 150 words. Be warm and professional.
Start with a welcome and ask them to introduce themselves.`,
	}
}

// Instruction returns the template for category, falling back to the general one.
func (t Templates) Instruction(category Category) string {
	if instruction, ok := t[category]; ok && strings.TrimSpace(instruction) != "" {
		return instruction
	}
	if instruction, ok := t[General]; ok {
		return instruction
	}
	return DefaultTemplates()[General]
}

// LoadTemplates 从 YAML 文件加载模板覆盖，未出现的类型保留默认值。
// An empty path returns the defaults.
func LoadTemplates(path string) (Templates, error) {
	templates := DefaultTemplates()
	if strings.TrimSpace(path) == "" {
		return templates, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompt templates: %w", err)
	}

	return mergeTemplates(templates, data)
}

func mergeTemplates(base Templates, data []byte) (Templates, error) {
	var overrides map[string]string
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("parse prompt templates: %w", err)
	}

	for key, instruction := range overrides {
		category, ok := ParseCategory(key)
		if !ok {
			return nil, fmt.Errorf("unknown interview category %q in prompt templates", key)
		}
		instruction = strings.TrimSpace(instruction)
		if instruction == "" {
			continue
		}
		base[category] = instruction
	}

	return base, nil
}
