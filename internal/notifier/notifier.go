// Package notifier pushes lifecycle events (entities created or retired,
// sub-domains degrading or recovering) to an external channel.
package notifier

import (
	"fmt"
	"strings"

	"hypersense/internal/logger"
	"hypersense/internal/reconcile"
)

type Notifier interface {
	Notify(text string) error
}

// Nop discards every notification.
type Nop struct{}

func (Nop) Notify(string) error { return nil }

// LifecycleMessage formats a cycle's entity churn. Pure updates produce no
// message; creations and retirements do.
func LifecycleMessage(wallet string, plan reconcile.Plan) string {
	if len(plan.Create) == 0 && len(plan.Retire) == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "*%s*\n", shortWallet(wallet))
	if len(plan.Create) > 0 {
		fmt.Fprintf(&b, "new: %s\n", joinKeys(plan.Create))
	}
	if len(plan.Retire) > 0 {
		fmt.Fprintf(&b, "retired: %s\n", joinKeys(plan.Retire))
	}
	return strings.TrimRight(b.String(), "\n")
}

// DegradedMessage formats a sub-domain availability change.
func DegradedMessage(wallet, domain, reason string, recovered bool) string {
	if recovered {
		return fmt.Sprintf("*%s* %s recovered", shortWallet(wallet), domain)
	}
	return fmt.Sprintf("*%s* %s degraded: %s", shortWallet(wallet), domain, reason)
}

// Send pushes a message and logs instead of failing the caller: the poll
// loop never stops because a notification channel is down.
func Send(n Notifier, text string) {
	if n == nil || text == "" {
		return
	}
	if err := n.Notify(text); err != nil {
		logger.Warnf("notifier: send failed: %v", err)
	}
}

func joinKeys(keys []reconcile.Key) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k.String()
	}
	return strings.Join(parts, ", ")
}

func shortWallet(wallet string) string {
	if len(wallet) <= 10 {
		return wallet
	}
	return wallet[:10] + "..."
}
