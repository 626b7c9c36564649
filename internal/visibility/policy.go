// Package visibility decides whether a requester may read a business file.
// The decision is per file, never per business: one listing can mix public
// teaser images with NDA-gated financials.
package visibility

import (
	"github.com/Talalkassab/manfaa-api/internal/model"
)

// Denial reasons surfaced to the client on 403 responses.
const (
	ReasonNDARequired  = "NDA required"
	ReasonOwnerOnly    = "owner only"
	ReasonUnknownTier  = "unknown visibility rule"
	ReasonAuthRequired = "authentication required"
)

// Decision is the outcome of an access check
type Decision struct {
	Allowed bool
	Reason  string // set when denied
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// CanAccess evaluates the visibility policy for a single file.
// requesterID is nil for anonymous requests.
//
//	public  -> always allowed
//	private -> owner only
//	nda     -> owner, or an approved NDA for (business, requester)
//
// Anything else fails closed.
func CanAccess(requesterID *uint, vis model.Visibility, ownerID uint, hasApprovedNDA bool) Decision {
	if vis == model.VisibilityPublic {
		return allow()
	}

	if !vis.Known() {
		return deny(ReasonUnknownTier)
	}

	if requesterID == nil {
		if vis == model.VisibilityNDA {
			return deny(ReasonNDARequired)
		}
		return deny(ReasonAuthRequired)
	}

	if *requesterID == ownerID {
		return allow()
	}

	switch vis {
	case model.VisibilityPrivate:
		return deny(ReasonOwnerOnly)
	case model.VisibilityNDA:
		if hasApprovedNDA {
			return allow()
		}
		return deny(ReasonNDARequired)
	}

	return deny(ReasonUnknownTier)
}
