package ic

import (
	"errors"
	"fmt"

	"github.com/roach88/tierprobe/internal/ir"
)

// ErrInvalidSiteKind is the sentinel matched by errors.Is for every
// *InvalidSiteKindError.
var ErrInvalidSiteKind = errors.New("invalid site kind")

// InvalidSiteKindError reports feedback recorded against the wrong kind of
// site, e.g. a store recorded on a load site. It is a wiring bug, never a
// runtime scenario, and callers must not catch it.
type InvalidSiteKindError struct {
	Site   ir.PropertySite
	Access ir.SiteKind
}

// Error implements the error interface.
func (e *InvalidSiteKindError) Error() string {
	return fmt.Sprintf("INVALID_SITE_KIND: %s access recorded on %s site for key %q",
		e.Access, e.Site.Kind, e.Site.Key)
}

// Is makes errors.Is(err, ErrInvalidSiteKind) match.
func (e *InvalidSiteKindError) Is(target error) bool {
	return target == ErrInvalidSiteKind
}
