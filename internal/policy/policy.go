// Package policy implements the role-scoped visibility rules and the
// per-object ownership guard shared by every resource handler.  Scope
// functions are pure: they only assemble SQL predicate fragments, the
// repositories execute them.  Absence of matches is an empty result,
// never an error.
package policy

import "errors"

// Role values stored in users.role and carried in the JWT "role" claim.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleRealtor = "realtor"
)

// Property status values.  StatusActive is the only status visible to
// non-staff callers when no explicit status filter is supplied.
const (
	StatusDraft    = "draft"
	StatusActive   = "active"
	StatusReserved = "reserved"
	StatusSold     = "sold"
	StatusArchived = "archived"
)

// ErrUnauthenticated means no valid principal was supplied.  Handlers
// translate it into HTTP 401.
var ErrUnauthenticated = errors.New("authentication required")

// ErrForbidden means the principal is authenticated but is neither the
// owner of the target object nor staff.  Handlers translate it into 403.
var ErrForbidden = errors.New("not the owner")

// Principal identifies the authenticated caller.  A zero ID means the
// request is anonymous.
type Principal struct {
	ID   uint64
	Role string
}

// IsStaff reports whether the principal has store-wide privilege.
func (p Principal) IsStaff() bool {
	return p.Role == RoleAdmin || p.Role == RoleManager
}

// Authenticated reports whether a real user is behind the request.
func (p Principal) Authenticated() bool {
	return p.ID != 0
}

// Predicate is a conjunction of SQL clauses with their bind arguments.
// An empty Predicate matches every row.
type Predicate struct {
	Where []string
	Args  []any
}

// And appends one clause and its arguments to the conjunction.
func (pr *Predicate) And(clause string, args ...any) {
	pr.Where = append(pr.Where, clause)
	pr.Args = append(pr.Args, args...)
}

// Clause renders the predicate for interpolation after WHERE.  It
// returns "1=1" for the unrestricted predicate so callers can always
// append further conditions with AND.
func (pr Predicate) Clause() string {
	if len(pr.Where) == 0 {
		return "1=1"
	}
	out := pr.Where[0]
	for _, w := range pr.Where[1:] {
		out += " AND " + w
	}
	return out
}

// PropertyScope computes which property rows the caller may read.
// Rules, in order:
//  1. staff without mine: unrestricted;
//  2. an explicit status filter is applied verbatim (combined with mine
//     when requested);
//  3. otherwise non-staff callers without mine fall back to the public
//     catalog subset, exactly status=active.
//
// mine restricts to rows where the caller is the owning realtor and, on
// its own, lifts the active-only fallback (an agent sees all of their
// own drafts).
func PropertyScope(p Principal, status string, mine bool) Predicate {
	var pr Predicate
	if mine {
		pr.And("p.realtor_id = ?", p.ID)
	}
	if status != "" {
		pr.And("p.status = ?", status)
		return pr
	}
	if p.IsStaff() || mine {
		return pr
	}
	pr.And("p.status = ?", StatusActive)
	return pr
}

// ShowingScope computes which showing rows the caller may read.
// Showings are exclusively owned by their agent: staff see the whole
// calendar unless they ask for mine, everyone else sees their own.
func ShowingScope(p Principal, mine bool) Predicate {
	var pr Predicate
	if p.IsStaff() && !mine {
		return pr
	}
	pr.And("s.agent_id = ?", p.ID)
	return pr
}

// DealScope computes which deal rows the caller may read.  Deal
// visibility is ownership-based, not status-based: admin and manager see
// everything, a realtor sees only deals where they are creator or
// assignee.  Staff supplying mine opt into the same restriction.
func DealScope(p Principal, mine bool) Predicate {
	var pr Predicate
	if p.IsStaff() && !mine {
		return pr
	}
	pr.And("(d.created_by = ? OR d.assigned_to = ?)", p.ID, p.ID)
	return pr
}
