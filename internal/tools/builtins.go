package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// builtins returns the local tools compiled into every registry.
func builtins() []Tool {
	return []Tool{
		{
			Descriptor: Descriptor{
				Name:        "assistant_helper",
				Description: "Provides helpful information about the assistant's capabilities",
				Parameters: map[string]Param{
					"topic": {Type: "string", Description: "Topic to get help with", Required: false},
				},
				Kind: KindLocal,
			},
			Handler: assistantHelper,
		},
		{
			Descriptor: Descriptor{
				Name:        "calculator",
				Description: "Performs basic arithmetic: add, subtract, multiply, divide",
				Parameters: map[string]Param{
					"operation": {Type: "string", Description: "One of: add, subtract, multiply, divide", Required: true},
					"a":         {Type: "number", Description: "First operand", Required: true},
					"b":         {Type: "number", Description: "Second operand", Required: true},
				},
				Kind: KindLocal,
			},
			Handler: calculator,
		},
		{
			Descriptor: Descriptor{
				Name:        "current_time",
				Description: "Returns the current date and time, optionally in a given IANA timezone",
				Parameters: map[string]Param{
					"timezone": {Type: "string", Description: "IANA timezone name, e.g. Europe/Oslo", Required: false},
				},
				Kind: KindLocal,
			},
			Handler: currentTime,
		},
		{
			Descriptor: Descriptor{
				Name:        "generate_uuid",
				Description: "Generates a random UUID",
				Kind:        KindLocal,
			},
			Handler: generateUUID,
		},
	}
}

func assistantHelper(_ context.Context, args map[string]any) (string, error) {
	topic, _ := args["topic"].(string)
	switch strings.ToLower(strings.TrimSpace(topic)) {
	case "tools":
		return "I can use local tools (calculator, current_time, generate_uuid) and any tools provided by a connected tool server. Ask me a question and I will pick the right one.", nil
	case "models":
		return "I answer using a configurable language model with automatic fallback when a model is unavailable.", nil
	default:
		return "I am a conversational assistant that can reason step by step and use tools to answer questions. Ask about 'tools' or 'models' for details.", nil
	}
}

func calculator(_ context.Context, args map[string]any) (string, error) {
	op, _ := args["operation"].(string)
	a, aok := toFloat(args["a"])
	b, bok := toFloat(args["b"])
	if !aok || !bok {
		return "", &SchemaError{Tool: "calculator", Reason: "operands a and b must be numbers"}
	}

	var result float64
	var sym string
	switch strings.ToLower(strings.TrimSpace(op)) {
	case "add":
		result, sym = a+b, "+"
	case "subtract":
		result, sym = a-b, "-"
	case "multiply":
		result, sym = a*b, "*"
	case "divide":
		if b == 0 {
			return "", fmt.Errorf("division by zero")
		}
		result, sym = a/b, "/"
	default:
		return "", &SchemaError{Tool: "calculator", Reason: fmt.Sprintf("unknown operation %q", op)}
	}
	return fmt.Sprintf("%s %s %s = %s", formatNum(a), sym, formatNum(b), formatNum(result)), nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func formatNum(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}

func currentTime(_ context.Context, args map[string]any) (string, error) {
	loc := time.Local
	if tz, ok := args["timezone"].(string); ok && tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return "", fmt.Errorf("unknown timezone %q", tz)
		}
		loc = l
	}
	return time.Now().In(loc).Format("2006-01-02 15:04:05 MST"), nil
}

func generateUUID(_ context.Context, _ map[string]any) (string, error) {
	return uuid.NewString(), nil
}
