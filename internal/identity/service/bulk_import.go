package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"idvault/internal/identity/models"
	id "idvault/pkg/domain"
	"idvault/pkg/platform/audit"
)

// SaveAttributesBulk merges a batch of externally-sourced attributes into the
// user's attribute list in one load-persist cycle. Every incoming attribute is
// treated as new: names colliding (case-insensitively) with existing or
// earlier in-batch names are renamed with a tag derived from providerUserID,
// never merged into an existing attribute.
//
// Repeated imports of the same provider data therefore accumulate renamed
// duplicates. That is the intended contract, not a bug: callers needing
// idempotent re-import must dedupe before calling.
func (s *Service) SaveAttributesBulk(ctx context.Context, userID id.UserID, incoming []models.IdentityAttribute, providerUserID string) ([]models.IdentityAttribute, error) {
	start := time.Now()

	unlock := s.lockUser(userID)
	defer unlock()

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	taken := user.TakenAttributeNames()
	tag := importTag(providerUserID)

	renames := 0
	added := make([]models.IdentityAttribute, 0, len(incoming))
	for _, attr := range incoming {
		name := disambiguateName(taken, attr.Name, tag)
		if name != attr.Name {
			renames++
		}
		attr.Name = name
		attr.ID = id.NewAttributeID()
		attr.UserID = userID
		attr.ContextIDs = models.NormalizeContextIDs(attr.ContextIDs)

		taken[strings.ToLower(name)] = struct{}{}
		added = append(added, attr)
	}

	user.Attributes = append(user.Attributes, added...)

	if err := s.persist(ctx, user); err != nil {
		return nil, err
	}

	s.logAudit(ctx, audit.EventAttributesImported, audit.Event{
		UserID:     userID,
		ProviderID: providerUserID,
		Reason:     fmt.Sprintf("%d imported, %d renamed", len(added), renames),
	})
	if s.metrics != nil {
		s.metrics.AttributesImported.Add(float64(len(added)))
		s.metrics.ImportRenames.Add(float64(renames))
		s.metrics.ObserveBulkImport(start)
	}
	return added, nil
}

// importTag derives the short disambiguation tag from a provider user id: the
// local part before '@' (e.g. "jdoe" from "jdoe@example.com"). Ids without an
// '@' are used whole.
func importTag(providerUserID string) string {
	if i := strings.Index(providerUserID, "@"); i >= 0 {
		return providerUserID[:i]
	}
	return providerUserID
}

// disambiguateName returns name unchanged when free, otherwise
// "<name> (<tag>)", then "<name> (<tag>) 2", "<name> (<tag>) 3", and so on.
// Comparison is case-insensitive against the taken set; the caller adds the
// chosen name back into the set so within-batch duplicates keep advancing.
func disambiguateName(taken map[string]struct{}, name, tag string) string {
	if _, used := taken[strings.ToLower(name)]; !used {
		return name
	}
	candidate := fmt.Sprintf("%s (%s)", name, tag)
	for n := 2; ; n++ {
		if _, used := taken[strings.ToLower(candidate)]; !used {
			return candidate
		}
		candidate = fmt.Sprintf("%s (%s) %d", name, tag, n)
	}
}
