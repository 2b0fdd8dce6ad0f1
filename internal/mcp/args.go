// Copyright (c) 2021-2026 Rustam Gilyazov and Contributors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package mcp

// In this file: tool argument helpers.

import (
	"strings"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/rusq/wecombot/internal/primitive"
)

// stringArg extracts a named string argument from a tool call request.
// Returns ("", false) if the argument is absent or not a string.
func stringArg(req mcplib.CallToolRequest, name string) (string, bool) {
	args := req.GetArguments()
	if args == nil {
		return "", false
	}
	v, ok := args[name]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// stringOr returns the string argument, or def, if it's absent or empty.
func stringOr(req mcplib.CallToolRequest, name string, def string) string {
	if s, ok := stringArg(req, name); ok && s != "" {
		return s
	}
	return def
}

// stringsArg extracts a list of strings.  The clients are not consistent in
// how they send lists, so a JSON array and a comma-separated string are both
// accepted.  Blank and duplicate items are removed.
func stringsArg(req mcplib.CallToolRequest, name string) []string {
	args := req.GetArguments()
	if args == nil {
		return nil
	}
	switch v := args[name].(type) {
	case []string:
		return primitive.Compact(v)
	case []any:
		ss := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				ss = append(ss, s)
			}
		}
		return primitive.Compact(ss)
	case string:
		return primitive.Compact(strings.Split(v, ","))
	}
	return nil
}

// objectArg extracts a named JSON object argument.  Returns nil if the
// argument is absent or not an object.
func objectArg(req mcplib.CallToolRequest, name string) map[string]any {
	args := req.GetArguments()
	if args == nil {
		return nil
	}
	m, _ := args[name].(map[string]any)
	return m
}

// objectsArg extracts a named array of JSON objects.  Items that are not
// objects are skipped.
func objectsArg(req mcplib.CallToolRequest, name string) []map[string]any {
	args := req.GetArguments()
	if args == nil {
		return nil
	}
	list, ok := args[name].([]any)
	if !ok {
		return nil
	}
	var out []map[string]any
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}
