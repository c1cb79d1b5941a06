package coretools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/harun/onion/pkg/toolexecutor"
)

const defaultReadLimit = 200000

// ReadFileTool returns the read_file tool confined to workspaceRoot. The
// execution context's WorkingDir, when set, takes precedence.
func ReadFileTool(workspaceRoot string) toolexecutor.ToolDefinition {
	return toolexecutor.Func("read_file", "Read a text file from the workspace.",
		[]toolexecutor.ToolParameter{
			{Name: "path", Type: toolexecutor.TypeString, Description: "File path relative to the workspace", Required: true},
			{Name: "max_bytes", Type: toolexecutor.TypeInteger, Description: "Maximum bytes to read (default 200000)", Default: defaultReadLimit},
		},
		func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			root, err := resolveWorkspaceRoot(toolexecutor.ExecContextFromContext(ctx), workspaceRoot)
			if err != nil {
				return nil, err
			}
			pathValue, _ := params["path"].(string)
			target, err := resolvePathInWorkspace(root, pathValue)
			if err != nil {
				return nil, err
			}

			limit := int64(defaultReadLimit)
			if n, ok := params["max_bytes"].(int); ok && n > 0 {
				limit = int64(n)
			}

			data, truncated, err := readFileWithLimit(target, limit)
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("file not found: %s", pathValue)
			}
			if err != nil {
				return nil, err
			}

			content := string(data)
			if truncated {
				content += fmt.Sprintf("\n... [truncated at %d bytes]", limit)
			}
			return content, nil
		},
	)
}

func resolveWorkspaceRoot(execCtx *toolexecutor.ExecutionContext, fallback string) (string, error) {
	if execCtx != nil && strings.TrimSpace(execCtx.WorkingDir) != "" {
		return filepath.Clean(execCtx.WorkingDir), nil
	}
	if strings.TrimSpace(fallback) != "" {
		return filepath.Clean(fallback), nil
	}
	return "", fmt.Errorf("workspace root is not configured")
}

func resolvePathInWorkspace(workspaceRoot string, pathValue string) (string, error) {
	pathValue = strings.TrimSpace(pathValue)
	if pathValue == "" {
		return "", fmt.Errorf("path is required")
	}
	if strings.Contains(pathValue, "://") {
		return "", fmt.Errorf("path must be a local file")
	}
	candidate := pathValue
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(workspaceRoot, candidate)
	}
	candidate = filepath.Clean(candidate)

	rel, err := filepath.Rel(workspaceRoot, candidate)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q is outside workspace root", pathValue)
	}
	return candidate, nil
}

func readFileWithLimit(path string, limit int64) ([]byte, bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, false, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, false, err
	}
	if info.IsDir() {
		return nil, false, fmt.Errorf("%s is a directory", filepath.Base(path))
	}

	var buf bytes.Buffer
	if _, err := io.CopyN(&buf, file, limit); err != nil && !errors.Is(err, io.EOF) {
		return nil, false, err
	}

	extra := make([]byte, 1)
	n, _ := file.Read(extra)
	return buf.Bytes(), n > 0, nil
}
