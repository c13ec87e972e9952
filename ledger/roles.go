/*
roles.go - Static role-to-capability mapping

Roles are resolved by the surrounding auth layer; this package only holds
the fixed mapping from role to capability tags and to the entry kinds the
role may view. There are no dynamic permission tables.

VISIBILITY NOTE:
  The distributor view is deliberately restricted to deposit/withdrawal
  entry kinds rather than true ownership of the originating action. This
  is the documented current policy, carried forward on purpose; widening
  it to per-actor ownership is an open product decision.
*/
package ledger

type Role string

const (
	RoleClient      Role = "client"
	RoleDistributor Role = "distributor"
	RoleAdmin       Role = "admin"
)

type Capability string

const (
	CapDeposit     Capability = "deposit"
	CapWithdraw    Capability = "withdraw"
	CapTransfer    Capability = "transfer"
	CapPayMerchant Capability = "pay_merchant"
	CapViewOwn     Capability = "view_own"
	CapViewScoped  Capability = "view_scoped"
	CapProvision   Capability = "provision"
)

var roleCapabilities = map[Role][]Capability{
	RoleClient:      {CapTransfer, CapPayMerchant, CapViewOwn},
	RoleDistributor: {CapDeposit, CapWithdraw, CapViewScoped, CapProvision},
	RoleAdmin:       {CapDeposit, CapWithdraw, CapTransfer, CapPayMerchant, CapViewOwn, CapViewScoped, CapProvision},
}

// Known reports whether the role is one of the defined roles.
func (r Role) Known() bool {
	_, ok := roleCapabilities[r]
	return ok
}

// Can reports whether the role carries the capability tag.
func (r Role) Can(c Capability) bool {
	for _, have := range roleCapabilities[r] {
		if have == c {
			return true
		}
	}
	return false
}

// VisibleKinds returns the entry kinds the role may view.
// nil means all kinds.
func (r Role) VisibleKinds() []EntryKind {
	if r == RoleDistributor {
		return []EntryKind{KindDeposit, KindWithdrawal}
	}
	return nil
}

// CanView reports whether the role may view an entry of the given kind.
func (r Role) CanView(kind EntryKind) bool {
	visible := r.VisibleKinds()
	if visible == nil {
		return true
	}
	for _, k := range visible {
		if k == kind {
			return true
		}
	}
	return false
}
