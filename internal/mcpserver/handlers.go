package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"fwdctl/internal/config"
	"fwdctl/internal/gateway"
)

// configInfo is the JSON shape of one configuration in tool output.
type configInfo struct {
	ID           int64  `json:"id"`
	Alias        string `json:"alias,omitempty"`
	Service      string `json:"service"`
	Namespace    string `json:"namespace"`
	Context      string `json:"context"`
	LocalPort    uint16 `json:"local_port"`
	RemotePort   uint16 `json:"remote_port"`
	WorkloadType string `json:"workload_type"`
	Protocol     string `json:"protocol"`
	Running      bool   `json:"running"`
}

func toConfigInfo(c config.Config, running bool) configInfo {
	return configInfo{
		ID:           c.ID,
		Alias:        c.Alias,
		Service:      c.Service,
		Namespace:    c.Namespace,
		Context:      c.Context,
		LocalPort:    c.LocalPort,
		RemotePort:   c.RemotePort,
		WorkloadType: string(c.WorkloadType),
		Protocol:     string(c.Protocol),
		Running:      running,
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to format result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *MCPServer) handleConfigList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap := s.reg.Snapshot()
	if len(snap.Configs) == 0 {
		return mcp.NewToolResultText("No configurations defined"), nil
	}

	infos := make([]configInfo, 0, len(snap.Configs))
	for _, c := range snap.Configs {
		infos = append(infos, toConfigInfo(c, snap.Running[c.ID]))
	}
	return jsonResult(infos)
}

func (s *MCPServer) handleConfigGet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError("id parameter is required"), nil
	}

	cfg, ok := s.reg.Get(int64(id))
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("No configuration with id %d", id)), nil
	}
	return jsonResult(toConfigInfo(cfg, s.reg.IsRunning(cfg.ID)))
}

func (s *MCPServer) handleForwardStart(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError("id parameter is required"), nil
	}

	cfg, ok := s.reg.Get(int64(id))
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("No configuration with id %d", id)), nil
	}
	if s.reg.IsRunning(cfg.ID) {
		return mcp.NewToolResultText(fmt.Sprintf("Config %d (%s) is already running", cfg.ID, cfg.DisplayName())), nil
	}
	if err := s.orch.Start(ctx, cfg); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Started forward for config %d (%s) on local port %d", cfg.ID, cfg.DisplayName(), cfg.LocalPort)), nil
}

func (s *MCPServer) handleForwardStop(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError("id parameter is required"), nil
	}

	cfg, ok := s.reg.Get(int64(id))
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("No configuration with id %d", id)), nil
	}
	if err := s.orch.Stop(ctx, cfg); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Stopped forward for config %d (%s)", cfg.ID, cfg.DisplayName())), nil
}

func (s *MCPServer) handleForwardStartAll(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap := s.reg.Snapshot()
	var targets []config.Config
	for _, c := range snap.Configs {
		if !snap.Running[c.ID] {
			targets = append(targets, c)
		}
	}
	if len(targets) == 0 {
		return mcp.NewToolResultText("Nothing to start; every configuration is already running"), nil
	}

	report := s.orch.StartMany(ctx, targets)
	if report.Failed() {
		return mcp.NewToolResultError(report.Summary()), nil
	}
	return mcp.NewToolResultText(report.Summary()), nil
}

func (s *MCPServer) handleForwardStopAll(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap := s.reg.Snapshot()
	var targets []config.Config
	for _, c := range snap.Configs {
		if snap.Running[c.ID] {
			targets = append(targets, c)
		}
	}
	if len(targets) == 0 {
		return mcp.NewToolResultText("Nothing to stop; no session is running"), nil
	}

	report := s.orch.StopMany(ctx, targets)
	if report.Failed() {
		return mcp.NewToolResultError(report.Summary()), nil
	}
	return mcp.NewToolResultText(report.Summary()), nil
}

// resourceInfo is the JSON shape of one discovered cluster resource.
type resourceInfo struct {
	Context      string `json:"context"`
	Namespace    string `json:"namespace"`
	ResourceType string `json:"resource_type"`
	Name         string `json:"name"`
	ConfigID     *int64 `json:"config_id,omitempty"`
	Orphaned     bool   `json:"orphaned"`
	Age          string `json:"age,omitempty"`
	Status       string `json:"status,omitempty"`
}

func flattenGroups(groups []gateway.NamespaceGroup) []resourceInfo {
	var infos []resourceInfo
	for _, group := range groups {
		for _, res := range group.Resources {
			infos = append(infos, resourceInfo{
				Context:      res.Context,
				Namespace:    res.Namespace,
				ResourceType: res.ResourceType,
				Name:         res.Name,
				ConfigID:     res.ConfigID,
				Orphaned:     res.Orphaned,
				Age:          res.Age,
				Status:       res.Status,
			})
		}
	}
	return infos
}

func (s *MCPServer) handleResourcesList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	clusterContext := request.GetString("context", "")

	var infos []resourceInfo
	if clusterContext != "" {
		groups, err := s.sweep.SweepContext(ctx, clusterContext)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		infos = flattenGroups(groups)
	} else {
		results, err := s.sweep.SweepAll(ctx, nil)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		for _, groups := range results {
			infos = append(infos, flattenGroups(groups)...)
		}
	}

	if len(infos) == 0 {
		return mcp.NewToolResultText("No fwdctl-created resources found"), nil
	}
	return jsonResult(infos)
}

func (s *MCPServer) handleResourcesCleanup(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	modeArg, err := request.RequireString("mode")
	if err != nil {
		return mcp.NewToolResultError("mode parameter is required"), nil
	}
	mode := gateway.CleanupMode(modeArg)
	if mode != gateway.CleanupOrphaned && mode != gateway.CleanupAll {
		return mcp.NewToolResultError(fmt.Sprintf("unknown mode %q; use orphaned or all", modeArg)), nil
	}

	contexts := s.reg.Contexts()
	if clusterContext := request.GetString("context", ""); clusterContext != "" {
		contexts = []string{clusterContext}
	}
	if len(contexts) == 0 {
		return mcp.NewToolResultText("No contexts known; nothing to clean up"), nil
	}

	report := s.sweep.ExecuteCleanup(ctx, contexts, mode)
	if report.Failed() {
		return mcp.NewToolResultError(report.Summary()), nil
	}
	return mcp.NewToolResultText(report.Summary()), nil
}
