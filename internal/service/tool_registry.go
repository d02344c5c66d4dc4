package service

import (
	"fmt"
	"math"
)

// ToolName 模型可请求执行的工具标识
type ToolName string

const (
	ToolCreateRoadmapSkeleton    ToolName = "createRoadmapSkeleton"
	ToolEditRoadmapSkeleton      ToolName = "editRoadmapSkeleton"
	ToolCreateLearningMaterial   ToolName = "createLearningMaterial"
	ToolCreateQuizForGoal        ToolName = "createQuizForGoal"
	ToolCreateGraduationProject  ToolName = "createGraduationProject"
	ToolEvaluateGraduationAnswer ToolName = "evaluateGraduationProjectAnswer"
)

// ParamSpec 工具入参的声明式约束
type ParamSpec struct {
	Type        string // string / integer / number / boolean / array / object
	Description string
	Required    bool
	Minimum     *float64
	Maximum     *float64
	Enum        []string
}

// ToolSpec 工具的静态定义：入参表在启动时固定，不做运行时反射
type ToolSpec struct {
	Name        ToolName
	Description string
	Params      map[string]ParamSpec
}

func limit(v float64) *float64 { return &v }

var toolSpecs = map[ToolName]ToolSpec{
	ToolCreateRoadmapSkeleton: {
		Name: ToolCreateRoadmapSkeleton,
		Description: "根据用户的学习诉求生成个性化学习路线图骨架：按优先级排列的学习目标、" +
			"时间估算、依赖关系，以及一个贯穿全部技能的毕业项目。用户想建立学习路径时调用。",
		Params: map[string]ParamSpec{
			"userRequest": {
				Type:        "string",
				Description: "用户的具体学习诉求，例如『我想成为 Python 后端工程师』",
				Required:    true,
			},
			"userExperience": {
				Type:        "string",
				Description: "用户现有经验与背景，可从简历或资料中提取，可选",
			},
			"numberOfGoals": {
				Type:        "integer",
				Description: "生成的学习目标数量，默认 6，范围 3-15",
				Minimum:     limit(3),
				Maximum:     limit(15),
			},
		},
	},
	ToolEditRoadmapSkeleton: {
		Name: ToolEditRoadmapSkeleton,
		Description: "修改尚未开始执行的路线图骨架：增删目标、调整优先级或时间估算。" +
			"仅在路线图还是草稿时调用。",
		Params: map[string]ParamSpec{
			"editRequest": {
				Type:        "string",
				Description: "要对骨架做的修改描述",
				Required:    true,
			},
		},
	},
	ToolCreateLearningMaterial: {
		Name: ToolCreateLearningMaterial,
		Description: "为路线图中的某个目标生成学习材料：讲解、示例与练习。" +
			"路线图开始执行后，用户准备学习某个目标时调用。",
		Params: map[string]ParamSpec{
			"goalNumber": {
				Type:        "integer",
				Description: "目标在路线图中的序号，从 1 开始",
				Required:    true,
			},
			"materialRequest": {
				Type:        "string",
				Description: "对材料内容或形式的额外要求，可选",
			},
		},
	},
	ToolCreateQuizForGoal: {
		Name: ToolCreateQuizForGoal,
		Description: "为某个目标生成单选题测验，题目只考察该目标已有材料覆盖的内容。" +
			"用户完成目标材料、需要自测时调用。",
		Params: map[string]ParamSpec{
			"goalNumber": {
				Type:        "integer",
				Description: "目标在路线图中的序号，从 1 开始",
				Required:    true,
			},
			"questionCount": {
				Type:        "integer",
				Description: "题目数量，默认 5，范围 3-20",
				Minimum:     limit(3),
				Maximum:     limit(20),
			},
		},
	},
	ToolCreateGraduationProject: {
		Name: ToolCreateGraduationProject,
		Description: "全部目标完成后，生成毕业项目与五道覆盖整个路线图的开放式考核题。" +
			"每道题附带评分细则。",
		Params: map[string]ParamSpec{},
	},
	ToolEvaluateGraduationAnswer: {
		Name: ToolEvaluateGraduationAnswer,
		Description: "按评分细则批改毕业项目某道题的答案，给出分数与可执行的反馈。",
		Params: map[string]ParamSpec{
			"questionSlug": {
				Type:        "string",
				Description: "题目标识",
				Required:    true,
			},
		},
	},
}

// GetToolSpec 按名字取工具定义，未注册的返回 false
func GetToolSpec(name ToolName) (ToolSpec, bool) {
	spec, ok := toolSpecs[name]
	return spec, ok
}

// ToolDefinitions 把指定工具集转成 OpenAI 兼容的工具定义。
// 只暴露当前阶段的工具，让非法调用在构造上就不可能发生
func ToolDefinitions(eligible []ToolName) []AIToolDefinition {
	defs := make([]AIToolDefinition, 0, len(eligible))
	for _, name := range eligible {
		spec, ok := toolSpecs[name]
		if !ok {
			continue
		}

		properties := make(map[string]interface{}, len(spec.Params))
		required := make([]string, 0)
		for paramName, param := range spec.Params {
			prop := map[string]interface{}{
				"type":        param.Type,
				"description": param.Description,
			}
			if param.Minimum != nil {
				prop["minimum"] = *param.Minimum
			}
			if param.Maximum != nil {
				prop["maximum"] = *param.Maximum
			}
			if len(param.Enum) > 0 {
				prop["enum"] = param.Enum
			}
			properties[paramName] = prop
			if param.Required {
				required = append(required, paramName)
			}
		}

		var def AIToolDefinition
		def.Type = "function"
		def.Function.Name = string(spec.Name)
		def.Function.Description = spec.Description
		def.Function.Parameters = map[string]interface{}{
			"type":       "object",
			"properties": properties,
			"required":   required,
		}
		defs = append(defs, def)
	}
	return defs
}

// ValidateArgs 按工具入参表校验模型给出的参数。
// JSON 反序列化后数字统一是 float64，整型参数接受整数值的 float64
func ValidateArgs(name ToolName, args map[string]interface{}) *ToolError {
	spec, ok := toolSpecs[name]
	if !ok {
		return NewSchemaValidationError("", fmt.Sprintf("未注册的工具: %s", name))
	}

	for paramName, param := range spec.Params {
		value, present := args[paramName]
		if !present {
			if param.Required {
				return NewSchemaValidationError(paramName, "缺少必填参数")
			}
			continue
		}

		switch param.Type {
		case "string":
			s, ok := value.(string)
			if !ok {
				return NewSchemaValidationError(paramName, "类型应为 string")
			}
			if len(param.Enum) > 0 && !stringInSet(s, param.Enum) {
				return NewSchemaValidationError(paramName, fmt.Sprintf("取值必须是 %v 之一", param.Enum))
			}
			if param.Required && s == "" {
				return NewSchemaValidationError(paramName, "必填参数不能为空")
			}
		case "integer":
			f, ok := value.(float64)
			if !ok || f != math.Trunc(f) {
				return NewSchemaValidationError(paramName, "类型应为 integer")
			}
			if param.Minimum != nil && f < *param.Minimum {
				return NewSchemaValidationError(paramName, fmt.Sprintf("不能小于 %v", *param.Minimum))
			}
			if param.Maximum != nil && f > *param.Maximum {
				return NewSchemaValidationError(paramName, fmt.Sprintf("不能大于 %v", *param.Maximum))
			}
		case "number":
			f, ok := value.(float64)
			if !ok {
				return NewSchemaValidationError(paramName, "类型应为 number")
			}
			if param.Minimum != nil && f < *param.Minimum {
				return NewSchemaValidationError(paramName, fmt.Sprintf("不能小于 %v", *param.Minimum))
			}
			if param.Maximum != nil && f > *param.Maximum {
				return NewSchemaValidationError(paramName, fmt.Sprintf("不能大于 %v", *param.Maximum))
			}
		case "boolean":
			if _, ok := value.(bool); !ok {
				return NewSchemaValidationError(paramName, "类型应为 boolean")
			}
		case "array":
			if _, ok := value.([]interface{}); !ok {
				return NewSchemaValidationError(paramName, "类型应为 array")
			}
		case "object":
			if _, ok := value.(map[string]interface{}); !ok {
				return NewSchemaValidationError(paramName, "类型应为 object")
			}
		}
	}

	// 多余的未知参数直接拒绝，避免静默丢弃模型的意图
	for argName := range args {
		if _, known := spec.Params[argName]; !known {
			return NewSchemaValidationError(argName, "未声明的参数")
		}
	}
	return nil
}

func stringInSet(s string, set []string) bool {
	for _, item := range set {
		if item == s {
			return true
		}
	}
	return false
}
