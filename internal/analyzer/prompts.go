package analyzer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/prompts"
)

// Techniques are the information flow tracking methods the prompts ask for.
var Techniques = []struct {
	Name        string
	Description string
}{
	{
		Name: "gate-level IFT",
		Description: "In gate-level IFT, each logic gate in the hardware design is augmented or paired with additional tracking " +
			"logic that propagates 'taint' or 'tags' representing sensitive data. This allows fine-grained visibility " +
			"into exactly how each gate transforms or propagates the data.",
	},
	{
		Name: "net-level IFT",
		Description: "Net-level IFT focuses on tagging and tracking data at the signal or net boundaries instead of at every gate. " +
			"Because nets often group multiple gates or logic elements together, this approach reduces the instrumentation " +
			"overhead.",
	},
}

// NoAncestorContext is used when none of a module's ancestors produced context yet.
const NoAncestorContext = "This module has no parent modules.\n"

const primingSystem = `You are an expert in hardware security. You will use advanced hardware Information Flow Tracking (IFT) methods.

IFT is a technique used to track data propagation within a hardware design to ensure that sensitive information does not flow to unauthorized or unintended parts of the system. Here are some common IFT methods and their details:

{{.techniques}}

Your goal is to detect any definite information leakage in the provided design.`

const primingUser = `I will provide the full structure of a Verilog design, including the topological order of modules and the module dependency graph. Analyze and store this context for subsequent prompts. You will use these hardware IFT methods to trace how sensitive data flows through the design.

Focus on detecting **definite information leakage** caused by unauthorized access or unintended data flows.
Be strict in your analysis and only return a positive result if you confirm actual leakage with certainty.

Topologically Sorted Modules:
{{.sorted_modules}}

Adjacency List of Module Dependencies:
{{.adjacency_list}}

Store this context but do not provide any output yet. I will provide further prompts.`

const moduleSystem = `You are analyzing modules using advanced hardware IFT methods (e.g., {{.technique_names}}) based on previously stored context.`

const moduleUser = `Analyze the following Verilog module to find **definite information leakage**.

Use ONLY the specified IFT techniques to track how sensitive or critical signals identified so far flow into or out of this module.
Report **only confirmed leakage**, where data flows to unintended or unauthorized points.

**Ancestor Path** (modules above in the hierarchy):
{{.ancestor_path}}

**Ancestor Context** (findings from each ancestor):
{{.ancestor_context}}

----
**Module Name**: {{.module_name}}
**Dependencies**: {{.dependencies}}
**Verilog Code**:
{{.verilog_code}}

Instructions:
1. Integrate relevant details from the ancestor modules to see if sensitive data enters this module.
2. Check if any signals here propagate that data to an unauthorized output.
3. Provide a strict analysis focusing on whether there is confirmed leakage, referencing signals and logic within this module.

Provide the context and analysis for this module that can be used for the next module's analysis.`

const summarySystem = `You are an expert in hardware security using advanced IFT methods. You have completed analyzing all modules in this design. You are generating a final report on information leakage based on hardware IFT methods (e.g., {{.technique_names}}).`

const summaryUser = `Provide a comprehensive, **final** analysis of the entire hardware design using all previous context. Focus on whether there is **definite information leakage** across modules.

Here is the overall context collected from all modules:

{{.accumulated_context}}

Here is the topologically sorted list of modules:
{{.sorted_modules}}

Here is the adjacency list of dependencies:
{{.adjacency_list}}

Instructions:
1. Use the complete context and your prior analyses to determine if any end-to-end leakage path exists.
2. If leakage is found, produce a **detailed** path from the sensitive source in the top module all the way to the unauthorized sink/output.
3. The ` + "`leakage_path`" + ` must be an ordered sequence of steps with arrow marks (` + "`-->`" + `). Each step should mention:
   - Module name
   - Signal name
   - Operation performed (e.g., XOR, SHIFT, register assignment)
   - Resulting signal or net
   - Next module (if applicable)
4. In the **final step**, explicitly show how the submodule's output is mapped to the top module's output signal, i.e., how the internal leakage becomes externally visible.

Output must be in **strict JSON format** (no extra keys or text) as follows:
{
  "is_vulnerable": true/false,
  "vulnerable_modules": ["module1", "module2", ...],
  "leakage_path": [
    "Step 1: <Detailed explanation of module.signal, operation, next signal> --> <module.signal>",
    "Step 2: ...",
    "..."
  ],
  "leakage_type": "type_of_leakage",
  "explanation": "A detailed explanation of how the leak actually occurs."
}`

// promptPair is a system and user template rendered together.
type promptPair struct {
	system prompts.PromptTemplate
	user   prompts.PromptTemplate
}

func newPromptPair(system, user string, systemVars, userVars []string) promptPair {
	return promptPair{
		system: prompts.NewPromptTemplate(system, systemVars),
		user:   prompts.NewPromptTemplate(user, userVars),
	}
}

func (p promptPair) render(values map[string]any) ([]Message, error) {
	system, err := p.system.Format(values)
	if err != nil {
		return nil, fmt.Errorf("failed to render system prompt: %w", err)
	}
	user, err := p.user.Format(values)
	if err != nil {
		return nil, fmt.Errorf("failed to render user prompt: %w", err)
	}
	return []Message{
		{Role: RoleSystem, Content: system},
		{Role: RoleUser, Content: user},
	}, nil
}

var (
	primingPrompt = newPromptPair(primingSystem, primingUser,
		[]string{"techniques"}, []string{"sorted_modules", "adjacency_list"})
	modulePrompt = newPromptPair(moduleSystem, moduleUser,
		[]string{"technique_names"},
		[]string{"ancestor_path", "ancestor_context", "module_name", "dependencies", "verilog_code"})
	summaryPrompt = newPromptPair(summarySystem, summaryUser,
		[]string{"technique_names"}, []string{"accumulated_context", "sorted_modules", "adjacency_list"})
)

// DesignInput carries the design-wide values shared by the priming and summary prompts.
type DesignInput struct {
	Order     []string
	Adjacency any // Anything that marshals to a JSON object, e.g. *graph.Adjacency
}

// ModuleInput carries the values of one module analysis prompt.
type ModuleInput struct {
	Name            string
	Dependencies    []string
	Text            string
	AncestorPath    []string
	AncestorContext string
}

func techniqueText() string {
	var b strings.Builder
	for i, t := range Techniques {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "- **%s**: %s", t.Name, t.Description)
	}
	return b.String()
}

func techniqueNames() string {
	names := make([]string, len(Techniques))
	for i, t := range Techniques {
		names[i] = t.Name
	}
	return strings.Join(names, ", ")
}

func jsonText(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// PrimingMessages renders the design structure prompt.
func PrimingMessages(in DesignInput) ([]Message, error) {
	order, adjacency, err := designValues(in)
	if err != nil {
		return nil, err
	}
	return primingPrompt.render(map[string]any{
		"techniques":     techniqueText(),
		"sorted_modules": order,
		"adjacency_list": adjacency,
	})
}

// ModuleMessages renders the per-module analysis prompt.
func ModuleMessages(in ModuleInput) ([]Message, error) {
	path, err := jsonText(nonNil(in.AncestorPath))
	if err != nil {
		return nil, err
	}
	deps, err := jsonText(nonNil(in.Dependencies))
	if err != nil {
		return nil, err
	}
	ancestorContext := in.AncestorContext
	if ancestorContext == "" {
		ancestorContext = NoAncestorContext
	}
	return modulePrompt.render(map[string]any{
		"technique_names":  techniqueNames(),
		"ancestor_path":    path,
		"ancestor_context": ancestorContext,
		"module_name":      in.Name,
		"dependencies":     deps,
		"verilog_code":     in.Text,
	})
}

// SummaryMessages renders the final report prompt.
func SummaryMessages(in DesignInput, accumulated string) ([]Message, error) {
	order, adjacency, err := designValues(in)
	if err != nil {
		return nil, err
	}
	return summaryPrompt.render(map[string]any{
		"technique_names":     techniqueNames(),
		"accumulated_context": accumulated,
		"sorted_modules":      order,
		"adjacency_list":      adjacency,
	})
}

func designValues(in DesignInput) (string, string, error) {
	order, err := jsonText(nonNil(in.Order))
	if err != nil {
		return "", "", fmt.Errorf("failed to encode module order: %w", err)
	}
	adjacency := "{}"
	if in.Adjacency != nil {
		if adjacency, err = jsonText(in.Adjacency); err != nil {
			return "", "", fmt.Errorf("failed to encode adjacency: %w", err)
		}
	}
	return order, adjacency, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
