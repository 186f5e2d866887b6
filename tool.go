package goquad

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ============================================================
// MCP Tool Interface
// ============================================================

type ToolRequest struct {
	Tool   string                 `json:"tool"`
	Params map[string]interface{} `json:"params"`
}

type ToolResponse struct {
	Result interface{} `json:"result,omitempty"`
	String string      `json:"string,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// ToolSet dispatches tool calls to an Engine. MaxN, when positive, caps the
// sub-interval count a caller may request.
type ToolSet struct {
	Engine *Engine
	MaxN   int
}

func NewToolSet(engine *Engine, maxN int) *ToolSet {
	return &ToolSet{Engine: engine, MaxN: maxN}
}

func (t *ToolSet) HandleToolCall(req ToolRequest) ToolResponse {
	getString := func(key string) (string, error) {
		v, ok := req.Params[key]
		if !ok {
			return "", fmt.Errorf("missing param: %s", key)
		}
		s, ok := v.(string)
		if !ok {
			return "", fmt.Errorf("param %s must be a string", key)
		}
		return s, nil
	}
	// Numbers may arrive as JSON numbers or as decimal text.
	getNumber := func(key string) (float64, error) {
		v, ok := req.Params[key]
		if !ok {
			return 0, fmt.Errorf("missing param: %s", key)
		}
		return toFloat(key, v)
	}
	getInt := func(key string) (int, error) {
		f, err := getNumber(key)
		if err != nil {
			return 0, err
		}
		if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
			return 0, fmt.Errorf("param %s must be an integer", key)
		}
		return int(f), nil
	}
	getNumbers := func(key string) ([]float64, error) {
		v, ok := req.Params[key]
		if !ok {
			return nil, fmt.Errorf("missing param: %s", key)
		}
		raw, ok := v.([]interface{})
		if !ok {
			return nil, fmt.Errorf("param %s must be array", key)
		}
		out := make([]float64, len(raw))
		for i, r := range raw {
			f, err := toFloat(fmt.Sprintf("%s[%d]", key, i), r)
			if err != nil {
				return nil, err
			}
			out[i] = f
		}
		return out, nil
	}
	integrate := func(rule Rule) ToolResponse {
		expr, err := getString("expr")
		if err != nil {
			return errResp(err)
		}
		a, err := getNumber("a")
		if err != nil {
			return errResp(err)
		}
		b, err := getNumber("b")
		if err != nil {
			return errResp(err)
		}
		n, err := getInt("n")
		if err != nil {
			return errResp(err)
		}
		if t.MaxN > 0 && n > t.MaxN {
			return errResp(fmt.Errorf("param n must not exceed %d", t.MaxN))
		}
		res, err := t.Engine.Integrate(rule, expr, a, b, n)
		if err != nil {
			return errResp(err)
		}
		return ToolResponse{Result: res, String: strconv.FormatFloat(res.Estimate, 'g', -1, 64)}
	}

	switch req.Tool {
	case "integrate":
		name, err := getString("rule")
		if err != nil {
			return errResp(err)
		}
		rule, err := ParseRule(name)
		if err != nil {
			return errResp(err)
		}
		return integrate(rule)
	case "trapezoid":
		return integrate(Trapezoid)
	case "simpson":
		return integrate(Simpson)
	case "evaluate":
		expr, err := getString("expr")
		if err != nil {
			return errResp(err)
		}
		xs, err := getNumbers("xs")
		if err != nil {
			return errResp(err)
		}
		f, err := Compile(expr)
		if err != nil {
			return errResp(err)
		}
		return ToolResponse{Result: SampleSet{X: xs, Y: f.Apply(xs)}, String: f.String()}
	case "parse":
		expr, err := getString("expr")
		if err != nil {
			return errResp(err)
		}
		node, err := Parse(expr)
		if err != nil {
			return errResp(err)
		}
		return ToolResponse{Result: node.String(), String: node.String()}
	case "samples":
		if t.Engine.Store == nil {
			return errResp(fmt.Errorf("no sample store configured"))
		}
		s, err := t.Engine.Store.Read()
		if err != nil {
			return errResp(err)
		}
		return ToolResponse{Result: s, String: fmt.Sprintf("%d samples", s.Len())}
	case "functions":
		names := Functions()
		return ToolResponse{Result: names, String: strings.Join(names, ", ")}
	case "mcp_spec":
		return ToolResponse{Result: MCPToolSpec()}
	}
	return ToolResponse{Error: fmt.Sprintf("unknown tool: %s", req.Tool)}
}

// ToolNames lists the tools HandleToolCall dispatches, in MCPToolSpec order.
var ToolNames = []string{"integrate", "trapezoid", "simpson", "evaluate", "parse", "samples", "functions", "mcp_spec"}

// IsTool reports whether name is one of ToolNames.
func IsTool(name string) bool {
	for _, n := range ToolNames {
		if n == name {
			return true
		}
	}
	return false
}

func errResp(err error) ToolResponse { return ToolResponse{Error: err.Error()} }

func toFloat(key string, v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("param %s must be a number, got %q", key, n)
		}
		return f, nil
	}
	return 0, fmt.Errorf("param %s must be a number", key)
}

// ============================================================
// MCP spec
// ============================================================

func MCPToolSpec() string {
	rangeProps := map[string]string{"expr": "string", "a": "number", "b": "number", "n": "integer"}
	tools := []map[string]interface{}{
		ts("integrate", "Composite Newton-Cotes estimate of ∫_a^b expr dx. rule is trapezoid or simpson", []string{"expr", "a", "b", "n", "rule"},
			map[string]string{"expr": "string", "a": "number", "b": "number", "n": "integer", "rule": "string"}),
		ts("trapezoid", "Composite trapezoid rule on n sub-intervals", []string{"expr", "a", "b", "n"}, rangeProps),
		ts("simpson", "Composite Simpson rule on 2n sub-intervals", []string{"expr", "a", "b", "n"}, rangeProps),
		ts("evaluate", "Evaluate expr at every x in xs; returns {x, y}", []string{"expr", "xs"}, map[string]string{"expr": "string", "xs": "array"}),
		ts("parse", "Parse expr and return its canonical form", []string{"expr"}, map[string]string{"expr": "string"}),
		ts("samples", "Return the (x, y) samples of the most recent integration", []string{}, map[string]string{}),
		ts("functions", "List the functions an expression may call", []string{}, map[string]string{}),
		ts("mcp_spec", "Return this tool schema", []string{}, map[string]string{}),
	}
	spec := map[string]interface{}{"tools": tools}
	b, _ := json.MarshalIndent(spec, "", "  ")
	return string(b)
}

func ts(name, description string, required []string, props map[string]string) map[string]interface{} {
	properties := map[string]interface{}{}
	for k, typ := range props {
		properties[k] = map[string]interface{}{"type": typ}
	}
	return map[string]interface{}{
		"name":        name,
		"description": description,
		"inputSchema": map[string]interface{}{
			"type":       "object",
			"properties": properties,
			"required":   required,
		},
	}
}
