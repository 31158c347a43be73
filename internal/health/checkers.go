// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"fmt"
	"strings"

	"github.com/ManuGH/tunebox/internal/library"
	"github.com/ManuGH/tunebox/internal/tunnel"
)

// RootLister is the library view the library checker needs.
type RootLister interface {
	Roots(ctx context.Context) ([]library.Root, error)
}

// LibraryChecker reports failed or degraded scans. A library that cannot
// be queried at all is unhealthy.
type LibraryChecker struct {
	lib RootLister
}

// NewLibraryChecker creates a checker over lib.
func NewLibraryChecker(lib RootLister) *LibraryChecker {
	return &LibraryChecker{lib: lib}
}

func (c *LibraryChecker) Name() string { return "library" }

func (c *LibraryChecker) Check(ctx context.Context) CheckResult {
	roots, err := c.lib.Roots(ctx)
	if err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	var bad []string
	for _, r := range roots {
		if r.LastScanStatus == library.RootStatusFailed || r.LastScanStatus == library.RootStatusDegraded {
			bad = append(bad, r.ID)
		}
	}
	if len(bad) > 0 {
		return CheckResult{
			Status:  StatusDegraded,
			Message: fmt.Sprintf("%d of %d roots not ok: %s", len(bad), len(roots), strings.Join(bad, ", ")),
		}
	}
	return CheckResult{Status: StatusHealthy, Message: fmt.Sprintf("%d roots", len(roots))}
}

// TunnelLister is the tunnel view the tunnel checker needs.
type TunnelLister interface {
	Status() []tunnel.Status
}

// TunnelChecker degrades when any tunnel gave up. Tunnels never make the
// service unready since local clients still work.
type TunnelChecker struct {
	tunnels TunnelLister
}

// NewTunnelChecker creates a checker over tunnels.
func NewTunnelChecker(tunnels TunnelLister) *TunnelChecker {
	return &TunnelChecker{tunnels: tunnels}
}

func (c *TunnelChecker) Name() string { return "tunnels" }

func (c *TunnelChecker) Check(_ context.Context) CheckResult {
	var failed []string
	statuses := c.tunnels.Status()
	for _, s := range statuses {
		if s.State == tunnel.StateFailed {
			failed = append(failed, s.Domain)
		}
	}
	if len(failed) > 0 {
		return CheckResult{Status: StatusDegraded, Message: "failed: " + strings.Join(failed, ", ")}
	}
	return CheckResult{Status: StatusHealthy, Message: fmt.Sprintf("%d tunnels", len(statuses))}
}
