package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mvp-joe/hdl-ift/internal/design"
	"github.com/mvp-joe/hdl-ift/internal/extract"
	"github.com/mvp-joe/hdl-ift/internal/graph"
	"github.com/mvp-joe/hdl-ift/internal/hierarchy"
)

// DesignPreparer turns a design folder into ordered module records.
type DesignPreparer interface {
	Prepare(ctx context.Context, in design.Input) (*design.Design, error)
}

// SourceLoader returns the combined source text of a design folder.
type SourceLoader func(dir string) (string, error)

// HierarchyResponse is returned by hdl_hierarchy.
type HierarchyResponse struct {
	Top          string           `json:"top"`
	Order        []string         `json:"order"`
	Dependencies *graph.Adjacency `json:"dependencies"`
	Edges        []hierarchy.Edge `json:"edges"`
	Missing      []string         `json:"missing,omitempty"`
	Flat         bool             `json:"flat,omitempty"`
	Cyclic       bool             `json:"cyclic,omitempty"`
}

// ModuleResponse is returned by hdl_module.
type ModuleResponse struct {
	Module string `json:"module"`
	Text   string `json:"verilog_code"`
	Mode   string `json:"mode"`
}

// AncestorsResponse is returned by hdl_ancestors.
type AncestorsResponse struct {
	Module    string   `json:"module"`
	Policy    string   `json:"policy"`
	Ancestors []string `json:"ancestors"`
}

// AddHierarchyTool registers hdl_hierarchy.
func AddHierarchyTool(s *server.MCPServer, prep DesignPreparer) {
	tool := mcp.NewTool(
		"hdl_hierarchy",
		mcp.WithDescription("Build the module hierarchy of a Verilog design folder with yosys. Returns the modules in dependency order (instantiated modules first), the direct dependencies of every module and the parent->child instantiation edges."),
		mcp.WithString("folder",
			mcp.Required(),
			mcp.Description("Design folder containing .v/.vhd sources")),
		mcp.WithString("top_module",
			mcp.Required(),
			mcp.Description("Name of the top module")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, createHierarchyHandler(prep))
}

func createHierarchyHandler(prep DesignPreparer) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, ok := request.Params.Arguments.(map[string]interface{})
		if !ok {
			return mcp.NewToolResultError("invalid arguments format"), nil
		}

		d, errResult := prepare(ctx, prep, argsMap)
		if errResult != nil {
			return errResult, nil
		}

		return jsonResult(HierarchyResponse{
			Top:          d.Top,
			Order:        d.Order,
			Dependencies: d.Adjacency,
			Edges:        d.Edges,
			Missing:      d.Missing,
			Flat:         d.Flat,
			Cyclic:       d.Cyclic,
		})
	}
}

// AddModuleTool registers hdl_module.
func AddModuleTool(s *server.MCPServer, load SourceLoader) {
	tool := mcp.NewTool(
		"hdl_module",
		mcp.WithDescription("Return the source text of one module, from its 'module' declaration through the matching 'endmodule'."),
		mcp.WithString("folder",
			mcp.Required(),
			mcp.Description("Design folder containing .v/.vhd sources")),
		mcp.WithString("module",
			mcp.Required(),
			mcp.Description("Module name")),
		mcp.WithBoolean("lexical",
			mcp.Description("Ignore 'endmodule' inside comments and strings (default: false)")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, createModuleHandler(load))
}

func createModuleHandler(load SourceLoader) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, ok := request.Params.Arguments.(map[string]interface{})
		if !ok {
			return mcp.NewToolResultError("invalid arguments format"), nil
		}

		folder, err := parseStringArg(argsMap, "folder", true)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		module, err := parseStringArg(argsMap, "module", true)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		mode := extract.Boundary
		if parseBoolArg(argsMap, "lexical", false) {
			mode = extract.Lexical
		}

		source, err := load(folder)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to load sources: %v", err)), nil
		}

		text, found := extract.New(mode).ExtractOne(source, module)
		if !found {
			return mcp.NewToolResultError(fmt.Sprintf("module %s not found in %s", module, folder)), nil
		}

		return jsonResult(ModuleResponse{Module: module, Text: text, Mode: string(mode)})
	}
}

// AddAncestorsTool registers hdl_ancestors.
func AddAncestorsTool(s *server.MCPServer, prep DesignPreparer) {
	tool := mcp.NewTool(
		"hdl_ancestors",
		mcp.WithDescription("List every module that transitively instantiates the given module. With policy 'all-paths' (default) the chains of all parents are concatenated, so shared ancestors repeat; 'first-path' follows only the first parent, nearest first."),
		mcp.WithString("folder",
			mcp.Required(),
			mcp.Description("Design folder containing .v/.vhd sources")),
		mcp.WithString("top_module",
			mcp.Required(),
			mcp.Description("Name of the top module")),
		mcp.WithString("module",
			mcp.Required(),
			mcp.Description("Module whose ancestors are listed")),
		mcp.WithString("policy",
			mcp.Description("'all-paths' or 'first-path' (default: all-paths)")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, createAncestorsHandler(prep))
}

func createAncestorsHandler(prep DesignPreparer) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, ok := request.Params.Arguments.(map[string]interface{})
		if !ok {
			return mcp.NewToolResultError("invalid arguments format"), nil
		}

		module, err := parseStringArg(argsMap, "module", true)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		policyArg, err := parseStringArg(argsMap, "policy", false)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		policy := graph.AllPaths
		if policyArg != "" {
			policy = graph.AncestorPolicy(policyArg)
			if !policy.Valid() {
				return mcp.NewToolResultError(fmt.Sprintf("invalid policy: %s (must be one of: all-paths, first-path)", policyArg)), nil
			}
		}

		d, errResult := prepare(ctx, prep, argsMap)
		if errResult != nil {
			return errResult, nil
		}
		if !d.Adjacency.Has(module) {
			return mcp.NewToolResultError(fmt.Sprintf("module %s is not part of the hierarchy of %s", module, d.Top)), nil
		}

		return jsonResult(AncestorsResponse{
			Module:    module,
			Policy:    string(policy),
			Ancestors: d.Ancestors(module, policy),
		})
	}
}

// prepare reads folder and top_module and runs the pipeline. Failures come back as a
// tool error result so the client sees the message.
func prepare(ctx context.Context, prep DesignPreparer, argsMap map[string]interface{}) (*design.Design, *mcp.CallToolResult) {
	folder, err := parseStringArg(argsMap, "folder", true)
	if err != nil {
		return nil, mcp.NewToolResultError(err.Error())
	}
	top, err := parseStringArg(argsMap, "top_module", true)
	if err != nil {
		return nil, mcp.NewToolResultError(err.Error())
	}

	d, err := prep.Prepare(ctx, design.Input{Dir: folder, Top: top})
	if err != nil {
		return nil, mcp.NewToolResultError(fmt.Sprintf("failed to build hierarchy: %v", err))
	}
	return d, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonData, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}
