package tools_test

import (
	"context"
	"errors"
	"testing"

	"github.com/petal-labs/anthropic-go/internal/json"
	"github.com/petal-labs/anthropic-go/providers/anthropic"
	"github.com/petal-labs/anthropic-go/tools"
)

type weatherArgs struct {
	Location string `json:"location"`
	Unit     string `json:"unit"`
}

var weatherSchema = json.RawMessage(`{"type":"object","properties":{"location":{"type":"string"},"unit":{"type":"string"}},"required":["location"]}`)

func weatherTool() tools.Tool {
	return tools.Func("get_weather", "Get the current weather", weatherSchema,
		func(ctx context.Context, args weatherArgs) (any, error) {
			if args.Location == "" {
				return nil, errors.New("location is required")
			}
			return map[string]any{"location": args.Location, "temp": 21}, nil
		})
}

func TestFuncDecodesInput(t *testing.T) {
	tool := weatherTool()

	got, err := tool.Call(context.Background(), json.RawMessage(`{"location":"Paris"}`))
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	m := got.(map[string]any)
	if m["location"] != "Paris" {
		t.Errorf("location = %v, want Paris", m["location"])
	}

	if _, err := tool.Call(context.Background(), json.RawMessage(`{"location":`)); err == nil {
		t.Error("Call() with malformed input should fail")
	}
}

func TestFuncEmptyInput(t *testing.T) {
	called := false
	tool := tools.Func("noop", "", nil, func(ctx context.Context, args struct{}) (any, error) {
		called = true
		return "ok", nil
	})
	if _, err := tool.Call(context.Background(), nil); err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if !called {
		t.Error("fn was not called")
	}
}

func TestDefinition(t *testing.T) {
	def := tools.Definition(weatherTool())

	if def.Name != "get_weather" {
		t.Errorf("Name = %q, want get_weather", def.Name)
	}
	if def.Description != "Get the current weather" {
		t.Errorf("Description = %q", def.Description)
	}
	b, err := json.Marshal(def)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"name":"get_weather","description":"Get the current weather","input_schema":` + string(weatherSchema) + `}`
	if string(b) != want {
		t.Errorf("Marshal = %s, want %s", b, want)
	}
}

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    weatherArgs
		wantErr bool
	}{
		{"full", `{"location":"Oslo","unit":"celsius"}`, weatherArgs{"Oslo", "celsius"}, false},
		{"partial", `{"location":"Oslo"}`, weatherArgs{Location: "Oslo"}, false},
		{"extra fields", `{"location":"Oslo","x":1}`, weatherArgs{Location: "Oslo"}, false},
		{"malformed", `{"location":`, weatherArgs{}, true},
		{"wrong type", `{"location":3}`, weatherArgs{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			use := &anthropic.ToolUseBlock{ID: "toolu_1", Name: "get_weather", Input: json.RawMessage(tt.input)}
			got, err := tools.ParseArgs[weatherArgs](use)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseArgs() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && *got != tt.want {
				t.Errorf("ParseArgs() = %+v, want %+v", *got, tt.want)
			}
		})
	}
}
