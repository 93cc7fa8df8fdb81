package policy

import "net/http"

// HasOwner is implemented by every entity with a controlling principal:
// Property resolves to its realtor, Showing to its agent, KYCProfile to
// its subject user and Deal to its creator.  Resolution is static per
// type; there is no runtime field probing.
type HasOwner interface {
	OwnerID() uint64
}

// Authorize performs the per-object check, after the object has already
// been fetched through a scope.  Safe methods only require an
// authenticated caller.  Unsafe methods require staff privilege or
// ownership.  The two denial reasons stay distinguishable so the HTTP
// layer can map them to 401 vs 403.  A forbidden result deliberately
// reveals that the object exists; uniform not-found masking applies to
// scoped lookups, not to this guard.
func Authorize(p Principal, method string, obj HasOwner) error {
	if !p.Authenticated() {
		return ErrUnauthenticated
	}
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return nil
	}
	if p.IsStaff() {
		return nil
	}
	if obj.OwnerID() == p.ID {
		return nil
	}
	return ErrForbidden
}
