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

package serve

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rusq/wecombot/cmd/wecombot/internal/golang/base"
)

func TestRunServe_unknownTransport(t *testing.T) {
	old := transport
	t.Cleanup(func() { transport = old })
	transport = "carrier-pigeon"

	err := runServe(t.Context(), CmdServe, nil)
	assert.ErrorContains(t, err, `unknown transport "carrier-pigeon"`)
	assert.Equal(t, base.SInvalidParameters, base.ExitStatus())
}

func TestRunServe_unexpectedArgs(t *testing.T) {
	err := runServe(t.Context(), CmdServe, []string{"extra"})
	assert.ErrorContains(t, err, "unexpected arguments")
}

func TestRunServe_httpCancelled(t *testing.T) {
	oldT, oldA := transport, listenAddr
	t.Cleanup(func() { transport, listenAddr = oldT, oldA })
	transport, listenAddr = "http", "127.0.0.1:0"

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	assert.NoError(t, runServe(ctx, CmdServe, nil))
}

func TestCmdServe(t *testing.T) {
	assert.Equal(t, "serve", CmdServe.Name())
	assert.True(t, CmdServe.Runnable())
	assert.NotNil(t, CmdServe.Flag.Lookup("transport"))
	assert.NotNil(t, CmdServe.Flag.Lookup("listen"))
}
