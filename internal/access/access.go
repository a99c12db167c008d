// Package access resolves whether a caller may mutate an inventory's records.
//
// A caller is granted mutation rights iff it is the administrator, the
// inventory's owner, or an authorized reporter whose grant covers the
// inventory. The administrator identity is fixed at construction and
// immutable. Caller identities are opaque principals supplied per call by
// the execution environment; the package never authenticates them.
package access

import (
	"context"
	"fmt"
	"sync"

	"veriledger/internal/epoch"
	"veriledger/internal/errs"
)

// Principal is an opaque caller identity.
type Principal string

// MaxReporterInventories bounds the permission set of a single reporter.
// Oversized grants are rejected, never truncated.
const MaxReporterInventories = 20

// ReporterGrant records a reporter's standing. Revocation retains the record
// with Authorized=false so the history of the revocation stays auditable.
type ReporterGrant struct {
	Reporter    Principal
	Authorized  bool
	Inventories map[uint64]struct{}
	LastReport  uint64
}

// clone returns a deep copy safe to hand to callers.
func (g *ReporterGrant) clone() ReporterGrant {
	out := ReporterGrant{
		Reporter:    g.Reporter,
		Authorized:  g.Authorized,
		Inventories: make(map[uint64]struct{}, len(g.Inventories)),
		LastReport:  g.LastReport,
	}
	for id := range g.Inventories {
		out.Inventories[id] = struct{}{}
	}
	return out
}

// Journal persists grant changes. Implemented by the sqlite store;
// a nil journal means the controller runs ephemeral.
type Journal interface {
	RecordReporterGrant(ctx context.Context, grant ReporterGrant) error
}

// Controller is the access control component.
//
// Thread-safety: all methods are safe for concurrent use. Mutations are
// serialized under one mutex, matching the single-writer execution model
// the engines assume.
type Controller struct {
	mu      sync.Mutex
	admin   Principal
	clock   *epoch.Clock
	journal Journal
	grants  map[Principal]*ReporterGrant
}

// NewController creates a controller with a fixed administrator identity.
// journal may be nil for ephemeral operation.
func NewController(admin Principal, clock *epoch.Clock, journal Journal) *Controller {
	return &Controller{
		admin:   admin,
		clock:   clock,
		journal: journal,
		grants:  make(map[Principal]*ReporterGrant),
	}
}

// Admin returns the administrator principal.
func (c *Controller) Admin() Principal {
	return c.admin
}

// IsAdmin reports whether p is the administrator.
func (c *Controller) IsAdmin(p Principal) bool {
	return p == c.admin
}

// GrantReporter creates or replaces a reporter grant. Administrator-only.
// The supplied inventory set replaces any previous permissions and the
// grant is marked authorized.
func (c *Controller) GrantReporter(ctx context.Context, caller, reporter Principal, inventoryIDs []uint64) error {
	if !c.IsAdmin(caller) {
		return errs.Unauthorized("only the administrator manages reporter grants")
	}
	if len(inventoryIDs) > MaxReporterInventories {
		return errs.InvalidData(fmt.Sprintf("reporter permission set exceeds capacity %d", MaxReporterInventories)).
			WithDetail("got", fmt.Sprintf("%d", len(inventoryIDs)))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	perms := make(map[uint64]struct{}, len(inventoryIDs))
	for _, id := range inventoryIDs {
		perms[id] = struct{}{}
	}

	grant := &ReporterGrant{
		Reporter:    reporter,
		Authorized:  true,
		Inventories: perms,
	}
	if prev, ok := c.grants[reporter]; ok {
		grant.LastReport = prev.LastReport
	}

	if c.journal != nil {
		if err := c.journal.RecordReporterGrant(ctx, grant.clone()); err != nil {
			return fmt.Errorf("journal reporter grant: %w", err)
		}
	}

	c.grants[reporter] = grant
	return nil
}

// RevokeReporter revokes a reporter grant. Administrator-only.
// The record is retained with an empty permission set and LastReport
// stamped at the current epoch.
func (c *Controller) RevokeReporter(ctx context.Context, caller, reporter Principal) error {
	if !c.IsAdmin(caller) {
		return errs.Unauthorized("only the administrator manages reporter grants")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.grants[reporter]; !ok {
		return errs.NotFound(fmt.Sprintf("reporter %q has no grant", reporter))
	}

	revoked := &ReporterGrant{
		Reporter:    reporter,
		Authorized:  false,
		Inventories: make(map[uint64]struct{}),
		LastReport:  c.clock.Current(),
	}

	if c.journal != nil {
		if err := c.journal.RecordReporterGrant(ctx, revoked.clone()); err != nil {
			return fmt.Errorf("journal reporter revocation: %w", err)
		}
	}

	c.grants[reporter] = revoked
	return nil
}

// Authorize returns nil iff caller may mutate the inventory owned by owner.
func (c *Controller) Authorize(caller Principal, inventoryID uint64, owner Principal) error {
	if c.CanMutate(caller, inventoryID, owner) {
		return nil
	}
	return errs.Unauthorized(fmt.Sprintf("caller %q may not mutate inventory %d", caller, inventoryID))
}

// CanMutate reports whether caller is the administrator, the owner, or an
// authorized reporter covering inventoryID.
func (c *Controller) CanMutate(caller Principal, inventoryID uint64, owner Principal) bool {
	if c.IsAdmin(caller) || caller == owner {
		return true
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	grant, ok := c.grants[caller]
	if !ok || !grant.Authorized {
		return false
	}
	_, permitted := grant.Inventories[inventoryID]
	return permitted
}

// Grant returns a copy of a reporter's grant record.
func (c *Controller) Grant(reporter Principal) (ReporterGrant, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	grant, ok := c.grants[reporter]
	if !ok {
		return ReporterGrant{}, false
	}
	return grant.clone(), true
}

// RestoreGrant installs a persisted grant record without journaling.
// Used when rebuilding state from the store on open.
func (c *Controller) RestoreGrant(grant ReporterGrant) {
	c.mu.Lock()
	defer c.mu.Unlock()

	g := grant.clone()
	c.grants[grant.Reporter] = &g
}
